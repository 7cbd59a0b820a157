package groove

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/groove/media"
	"pipelined.dev/signal"
)

func desired(rate signal.Frequency, channels int, disable bool) media.DesiredFormat {
	return media.DesiredFormat{
		Format: media.StreamFormat{
			SampleRate:   rate,
			Channels:     channels,
			SampleFormat: media.SampleFormat{Kind: media.KindFloat},
		},
		BufferSampleCount: 1024,
		BufferSize:        4096,
		DisableResample:   disable,
	}
}

func TestSinkMapGrouping(t *testing.T) {
	var m sinkMap
	x := NewSink(desired(48000, 2, false))
	y := NewSink(desired(48000, 2, false))
	z := NewSink(desired(22050, 1, false))

	m.add(x)
	m.add(y)
	m.add(z)

	assert.Equal(t, 2, m.groupCount())
}

func TestSinkMapRemove(t *testing.T) {
	var m sinkMap
	x := NewSink(desired(48000, 2, false))
	y := NewSink(desired(48000, 2, false))
	m.add(x)
	m.add(y)

	assert.NoError(t, m.remove(x))
	assert.Equal(t, 1, m.groupCount())
	assert.NoError(t, m.remove(y))
	assert.Equal(t, 0, m.groupCount())
	assert.ErrorIs(t, m.remove(x), ErrSinkNotFound)
}

func TestSinkAttachConflict(t *testing.T) {
	p := New()
	defer p.Destroy()

	s := NewSink(desired(44100, 2, false))
	assert.NoError(t, p.Attach(s))
	assert.ErrorIs(t, p.Attach(s), ErrSinkAttachConflict)
}

func TestSinkDetachIdempotent(t *testing.T) {
	p := New()
	defer p.Destroy()

	s := NewSink(desired(44100, 2, false))
	assert.NoError(t, p.Attach(s))
	assert.NoError(t, p.Detach(s))
	assert.Error(t, p.Detach(s))
}
