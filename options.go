package groove

import "log/slog"

// FillMode selects the worker's backpressure predicate.
type FillMode int

const (
	// FillModeAllSinksFull blocks the worker only when every attached sink
	// is at or above its min_queue_bytes. Default.
	FillModeAllSinksFull FillMode = iota
	// FillModeAnySinkFull blocks the worker as soon as one attached sink
	// is full.
	FillModeAnySinkFull
)

// Option configures a Playlist at construction. Functional options,
// grounded on the options-struct convention visible across the pack's
// SDK-shaped dependencies (e.g. aws-sdk-go-v2's functional options) — the
// engine is a library, not a service, so there is no env-var config loader
// here the way denpa-radio's config.Load works.
type Option func(*playlistConfig)

type playlistConfig struct {
	fillMode FillMode
	logger   *slog.Logger
}

func defaultConfig() playlistConfig {
	return playlistConfig{
		fillMode: FillModeAllSinksFull,
		logger:   slog.Default(),
	}
}

// WithFillMode sets the initial fill mode. Default: FillModeAllSinksFull.
func WithFillMode(mode FillMode) Option {
	return func(c *playlistConfig) { c.fillMode = mode }
}

// WithLogger sets the *slog.Logger used for non-fatal decode-step failures.
// Default: slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *playlistConfig) {
		if log != nil {
			c.logger = log
		}
	}
}
