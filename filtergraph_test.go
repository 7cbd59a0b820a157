package groove

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/groove/media"
)

func TestClampVolume(t *testing.T) {
	assert.Equal(t, 0.0, clampVolume(-0.5))
	assert.Equal(t, 1.0, clampVolume(1.5))
	assert.Equal(t, 0.5, clampVolume(0.5))
}

func TestApplyVolumeNoopAtUnity(t *testing.T) {
	frame := testFloat(1, 4)
	for i := 0; i < frame.Len(); i++ {
		frame.SetSample(i, 1.0)
	}
	applyVolume(frame, 1.0)
	for i := 0; i < frame.Len(); i++ {
		assert.Equal(t, 1.0, frame.Sample(i))
	}
}

func TestApplyVolumeScales(t *testing.T) {
	frame := testFloat(1, 4)
	for i := 0; i < frame.Len(); i++ {
		frame.SetSample(i, 1.0)
	}
	applyVolume(frame, 0.5)
	for i := 0; i < frame.Len(); i++ {
		assert.Equal(t, 0.5, frame.Sample(i))
	}
}

func TestFilterGraphEnsureRebuildsOnDrift(t *testing.T) {
	var sinks sinkMap
	sinks.add(NewSink(desired(44100, 2, false)))

	g := newFilterGraph()
	fmtA := media.StreamFormat{SampleRate: 44100, Channels: 2}
	assert.NoError(t, g.ensure(&sinks, fmtA, 1.0))
	assert.True(t, g.built)
	assert.False(t, g.rebuildFlag)

	// Same format/volume: no rebuild needed, but ensure must still succeed.
	assert.NoError(t, g.ensure(&sinks, fmtA, 1.0))

	// Format drift forces rebuild.
	fmtB := media.StreamFormat{SampleRate: 48000, Channels: 2}
	assert.NoError(t, g.ensure(&sinks, fmtB, 1.0))
	assert.True(t, g.inputFormat.Equal(fmtB))
}

func TestLinearResampleChangesLength(t *testing.T) {
	in := testFloat(1, 100)
	out := linearResample(in, 44100, 22050)
	assert.InDelta(t, 50, out.Len(), 1)
}

func TestLinearResamplePassthroughSameRate(t *testing.T) {
	in := testFloat(1, 10)
	out := linearResample(in, 44100, 44100)
	assert.Equal(t, in.Len(), out.Len())
}
