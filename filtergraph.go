package groove

import (
	"fmt"

	"pipelined.dev/groove/media"
	"pipelined.dev/signal"
)

// filterGraph is the rebuild-on-drift render pipeline: source -> volume? ->
// split? -> per-group (format-convert? -> terminal). The collaborator stack
// this engine is built on exposes PCM transformation as plain functions over
// signal.Floating rather than a live out-of-process graph server, so ensure
// recomputes a renderPlan in-process instead of opening graph handles.
// Grounded on mixer.go's sample-wise frame.add/frame.sum loops (volume node)
// and asset.go/source.go's signal.*As* conversion calls (format-convert
// node).
type filterGraph struct {
	built       bool
	inputFormat media.StreamFormat
	filterVolume float64
	rebuildFlag  bool

	groupPlans []groupPlan
}

// groupPlan is the per-group tail: optional resample + sample-format
// conversion, omitted entirely when the representative sink disabled
// resampling.
type groupPlan struct {
	group           *sinkGroup
	target          media.StreamFormat
	disableResample bool
}

func newFilterGraph() *filterGraph {
	return &filterGraph{rebuildFlag: true}
}

// markDirty flags the graph for rebuild on the next ensure call. Called
// whenever a sink is added to or removed from the sinkMap.
func (g *filterGraph) markDirty() { g.rebuildFlag = true }

// ensure rebuilds the render plan if the graph doesn't exist yet, the
// rebuild flag is set, the file's current stream format has drifted from
// the cached input format, or the effective volume has changed.
func (g *filterGraph) ensure(sinks *sinkMap, inputFormat media.StreamFormat, effectiveVolume float64) error {
	needsRebuild := !g.built ||
		g.rebuildFlag ||
		!g.inputFormat.Equal(inputFormat) ||
		g.filterVolume != clampVolume(effectiveVolume)

	if !needsRebuild {
		return nil
	}

	plans := make([]groupPlan, 0, sinks.groupCount())
	var buildErr error
	sinks.forEach(func(group *sinkGroup) {
		if buildErr != nil {
			return
		}
		rep := group.representative()
		desired := rep.Desired()
		plans = append(plans, groupPlan{
			group:           group,
			target:          desired.Format,
			disableResample: desired.DisableResample,
		})
	})
	if buildErr != nil {
		return fmt.Errorf("%w: %w", ErrGraphBuildFailed, buildErr)
	}

	g.groupPlans = plans
	g.inputFormat = inputFormat
	g.filterVolume = clampVolume(effectiveVolume)
	g.rebuildFlag = false
	g.built = true
	return nil
}

// clampVolume clamps effective volume to [0.0, 1.0] (see DESIGN.md): no
// collaborator in this stack exposes a compand/amplify node, so values
// above unity gain have nowhere to go.
func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// applyVolume multiplies every sample of frame in place by volume. A volume
// of 1.0 is a no-op pass-through, so the volume node is skipped entirely
// when effective volume is unity. Grounded on mixer.go's frame.add
// sample-wise loop.
func applyVolume(frame signal.Floating, volume float64) {
	if volume == 1 {
		return
	}
	for i := 0; i < frame.Len(); i++ {
		frame.SetSample(i, frame.Sample(i)*volume)
	}
}

// render executes one pass of the plan over a decoded frame: volume (clamped
// by clampVolume), then per-group format-convert, returning one rendered
// signal.Floating per group alongside the plan that produced it. The same
// post-volume frame is fanned out to every group; no shared mutable state
// crosses groups.
func (g *filterGraph) render(frame signal.Floating, volume float64) []renderedGroup {
	applyVolume(frame, clampVolume(volume))

	out := make([]renderedGroup, 0, len(g.groupPlans))
	for _, plan := range g.groupPlans {
		rendered := convertFormat(frame, g.inputFormat.SampleRate, plan.target, plan.disableResample)
		out = append(out, renderedGroup{plan: plan, data: rendered})
	}
	return out
}

type renderedGroup struct {
	plan groupPlan
	data signal.Floating
}

// convertFormat performs the format-convert node: a linear resample to the
// target sample rate (stdlib-only, see DESIGN.md) followed by a
// signal.*As* conversion to the group's target sample representation, or a
// pure pass-through when disableResample is set.
func convertFormat(in signal.Floating, inRate signal.Frequency, target media.StreamFormat, disableResample bool) signal.Floating {
	if disableResample {
		return in
	}

	resampled := in
	if inRate > 0 && target.SampleRate > 0 && inRate != target.SampleRate {
		resampled = linearResample(in, inRate, target.SampleRate)
	}

	switch target.SampleFormat.Kind {
	case media.KindSigned:
		out := signal.Allocator{
			Channels: resampled.Channels(),
			Capacity: resampled.Len() / resampled.Channels(),
			Length:   resampled.Len() / resampled.Channels(),
		}.Int8(target.SampleFormat.BitDepth)
		signal.FloatingAsSigned(resampled, out)
		return signal.SignedAsFloating(out, signal.Allocator{
			Channels: resampled.Channels(),
			Capacity: resampled.Len() / resampled.Channels(),
			Length:   resampled.Len() / resampled.Channels(),
		}.Float64())
	case media.KindUnsigned:
		out := signal.Allocator{
			Channels: resampled.Channels(),
			Capacity: resampled.Len() / resampled.Channels(),
			Length:   resampled.Len() / resampled.Channels(),
		}.Uint8(target.SampleFormat.BitDepth)
		signal.FloatingAsUnsigned(resampled, out)
		return signal.UnsignedAsFloating(out, signal.Allocator{
			Channels: resampled.Channels(),
			Capacity: resampled.Len() / resampled.Channels(),
			Length:   resampled.Len() / resampled.Channels(),
		}.Float64())
	default:
		return resampled
	}
}

// linearResample performs simple linear-interpolation sample-rate
// conversion. No repository in this stack ships a resampler (see
// DESIGN.md), so this is the one deliberate stdlib-only node in the graph.
func linearResample(in signal.Floating, from, to signal.Frequency) signal.Floating {
	if from == to || from == 0 {
		return in
	}
	channels := in.Channels()
	frames := in.Len() / channels
	ratio := float64(to) / float64(from)
	outFrames := int(float64(frames) * ratio)
	if outFrames < 1 {
		outFrames = 1
	}
	out := signal.Allocator{
		Channels: channels,
		Capacity: outFrames,
		Length:   outFrames,
	}.Float64()

	for c := 0; c < channels; c++ {
		for i := 0; i < outFrames; i++ {
			srcPos := float64(i) / ratio
			lo := int(srcPos)
			hi := lo + 1
			if hi >= frames {
				hi = frames - 1
			}
			if lo >= frames {
				lo = frames - 1
			}
			frac := srcPos - float64(lo)
			a := in.Sample(lo*channels + c)
			b := in.Sample(hi*channels + c)
			out.SetSample(i*channels+c, a+(b-a)*frac)
		}
	}
	return out
}
