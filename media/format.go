// Package media adapts the external media framework collaborator (file
// open/probe, codec decode, filter-graph rendering) behind the narrow
// contract this engine actually needs: an opaque, per-item File handle that
// yields decoded PCM frames and reports its stream format.
//
// Concrete file-format dispatch mirrors pipelined.dev/audio/file's
// Format/Pump split; see file.go's formatByExtension table.
package media

import (
	"pipelined.dev/pipe"
	"pipelined.dev/signal"
)

// Kind identifies the sample representation of a PCM stream.
type Kind int

const (
	// KindFloat is a floating point sample (always backed by signal.Floating;
	// this PCM stack does not distinguish 32 vs 64 bit float storage).
	KindFloat Kind = iota
	KindSigned
	KindUnsigned
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindSigned:
		return "signed"
	case KindUnsigned:
		return "unsigned"
	default:
		return "unknown"
	}
}

// Common channel layouts. The engine treats a channel layout as a plain
// channel count, the same modeling signal.Signal.Channels() uses; these are
// named constants purely for readability at call sites.
const (
	LayoutMono   = 1
	LayoutStereo = 2
)

// SampleFormat describes the wire representation of one PCM sample.
type SampleFormat struct {
	Kind     Kind
	BitDepth int // ignored when Kind == KindFloat
}

// Equal reports whether two sample formats are identical.
func (f SampleFormat) Equal(other SampleFormat) bool {
	if f.Kind == KindFloat || other.Kind == KindFloat {
		return f.Kind == other.Kind
	}
	return f.Kind == other.Kind && f.BitDepth == other.BitDepth
}

// StreamFormat is the (sample rate, channel count, sample format, time
// base) tuple tracked per file. TimeBase is seconds per
// presentation-timestamp tick; when a decoder has no explicit time base it
// is 1/SampleRate.
type StreamFormat struct {
	SampleRate   signal.Frequency
	Channels     int
	SampleFormat SampleFormat
	TimeBase     float64
}

// Equal reports whether two stream formats are identical in every field
// FilterGraph.ensure must watch for to detect input-format drift.
func (f StreamFormat) Equal(other StreamFormat) bool {
	return f.SampleRate == other.SampleRate &&
		f.Channels == other.Channels &&
		f.SampleFormat.Equal(other.SampleFormat) &&
		f.TimeBase == other.TimeBase
}

// Properties converts to the pipelined.dev/pipe vocabulary, reused here as
// the wire shape for describing a stream's channel/rate pair to the rest of
// the collaborator stack.
func (f StreamFormat) Properties() pipe.SignalProperties {
	return pipe.SignalProperties{
		Channels:   f.Channels,
		SampleRate: f.SampleRate,
	}
}

// outputEquivalent reports whether two sinks' desired output formats group
// into the same sinkMap bucket: equal BufferSampleCount, and either both
// disable resampling or an exact (rate, channels, format) match.
func outputEquivalent(a, b DesiredFormat) bool {
	if a.BufferSampleCount != b.BufferSampleCount {
		return false
	}
	if a.DisableResample || b.DisableResample {
		return a.DisableResample == b.DisableResample
	}
	return a.Format.Equal(b.Format)
}

// DesiredFormat is what a Sink asks for: target stream format, whether
// fixed-size frames are required, the sink's queue capacity, and whether
// resampling is disabled (pass-through).
//
// BufferSampleCount and BufferSize are independent: BufferSampleCount is the
// decode granularity (0 = accept variable-size frames) and governs group
// equivalence and fixed-frame pulls; BufferSize is the queue capacity, in
// frames, that the sink's backpressure threshold is derived from. A
// variable-frame sink (BufferSampleCount == 0) still needs a non-zero
// BufferSize to get meaningful backpressure.
type DesiredFormat struct {
	Format            StreamFormat
	BufferSampleCount int // 0 = accept variable-size frames
	BufferSize        int // queue capacity, in frames
	DisableResample   bool
}

// Equivalent reports whether two DesiredFormats belong in the same sinkMap
// group.
func (d DesiredFormat) Equivalent(other DesiredFormat) bool {
	return outputEquivalent(d, other)
}
