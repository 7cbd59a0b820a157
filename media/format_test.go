package media_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/groove/media"
)

func TestFormatByPath(t *testing.T) {
	tests := []struct {
		path     string
		wantName string
		negative bool
	}{
		{path: "track.wav", wantName: "wav"},
		{path: "track.WAV", wantName: "wav"},
		{path: "track.mp3", wantName: "mp3"},
		{path: "track.flac", wantName: "flac"},
		{path: "track.ogg", negative: true},
		{path: "", negative: true},
	}

	for _, test := range tests {
		f, err := media.FormatByPath(test.path)
		if test.negative {
			assert.Error(t, err)
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, test.wantName, f.Name())
	}
}

func TestExtensions(t *testing.T) {
	tests := []struct {
		format   media.Format
		expected int
	}{
		{media.WAV, 2},
		{media.MP3, 1},
		{media.FLAC, 1},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, len(test.format.Extensions()))
	}
}

func TestSampleFormatEqual(t *testing.T) {
	tests := []struct {
		name  string
		a, b  media.SampleFormat
		equal bool
	}{
		{
			name:  "both float ignores bit depth",
			a:     media.SampleFormat{Kind: media.KindFloat},
			b:     media.SampleFormat{Kind: media.KindFloat, BitDepth: 64},
			equal: true,
		},
		{
			name:  "signed matching depth",
			a:     media.SampleFormat{Kind: media.KindSigned, BitDepth: 16},
			b:     media.SampleFormat{Kind: media.KindSigned, BitDepth: 16},
			equal: true,
		},
		{
			name:  "signed mismatched depth",
			a:     media.SampleFormat{Kind: media.KindSigned, BitDepth: 16},
			b:     media.SampleFormat{Kind: media.KindSigned, BitDepth: 24},
			equal: false,
		},
		{
			name:  "signed vs unsigned",
			a:     media.SampleFormat{Kind: media.KindSigned, BitDepth: 16},
			b:     media.SampleFormat{Kind: media.KindUnsigned, BitDepth: 16},
			equal: false,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.equal, test.a.Equal(test.b))
		})
	}
}

func TestDesiredFormatEquivalent(t *testing.T) {
	base := media.DesiredFormat{
		Format: media.StreamFormat{
			SampleRate:   44100,
			Channels:     2,
			SampleFormat: media.SampleFormat{Kind: media.KindSigned, BitDepth: 16},
		},
		BufferSampleCount: 1024,
	}

	tests := []struct {
		name  string
		other media.DesiredFormat
		want  bool
	}{
		{
			name:  "identical",
			other: base,
			want:  true,
		},
		{
			name: "different buffer sample count",
			other: media.DesiredFormat{
				Format:            base.Format,
				BufferSampleCount: 512,
			},
			want: false,
		},
		{
			name: "different sample rate",
			other: media.DesiredFormat{
				Format: media.StreamFormat{
					SampleRate:   48000,
					Channels:     2,
					SampleFormat: base.Format.SampleFormat,
				},
				BufferSampleCount: 1024,
			},
			want: false,
		},
		{
			name: "only one disables resample",
			other: media.DesiredFormat{
				Format: media.StreamFormat{
					SampleRate: 22050,
					Channels:   1,
				},
				BufferSampleCount: 1024,
				DisableResample:   true,
			},
			want: false, // base does not disable resample
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, base.Equivalent(test.other))
		})
	}
}
