package groove

import (
	"errors"
	"log/slog"
)

// Sentinel errors for the engine's non-fatal failure kinds.
// ErrSinkAttachConflict and ErrSinkNotFound live in sink.go next to the code
// that returns them.
var (
	// ErrOutOfMemory names the out_of_memory error kind. No operation in
	// this package returns it.
	ErrOutOfMemory = errors.New("groove: allocation failed")
	// ErrGraphBuildFailed is returned when the filter graph fails to
	// (re)build; the decode step fails but the worker continues with the
	// next item.
	ErrGraphBuildFailed = errors.New("groove: filter graph build failed")
	// ErrSeekFailed names the seek_failed error kind. No operation returns
	// it: the worker logs a failed codec-level seek under that kind with the
	// decoder's own error and goes on decoding.
	ErrSeekFailed = errors.New("groove: seek failed")
	// ErrIndexOutOfRange reports a position outside the playlist's bounds.
	// No operation in this package returns it: navigation is by *Item, not
	// by index.
	ErrIndexOutOfRange = errors.New("groove: index out of range")
)

// errKind tags a logged failure with the row of the error-kind policy it
// belongs to, so log lines are greppable by kind without string-matching
// messages.
type errKind string

const (
	kindOutOfMemory     errKind = "out_of_memory"
	kindGraphBuildFailed errKind = "graph_build_failed"
	kindDecoderError    errKind = "decoder_error"
	kindIOError         errKind = "io_error"
	kindSeekFailed      errKind = "seek_failed"
)

// logDecodeError logs a non-fatal failure from the decode step. Errors are
// never propagated out of the worker goroutine, only logged and then
// effectively resolved by moving on (frame skipped, item advanced, or
// stream ended via sentinel).
func logDecodeError(log *slog.Logger, kind errKind, item *Item, err error) {
	if log == nil || err == nil {
		return
	}
	log.Warn("decode step failed",
		slog.String("kind", string(kind)),
		slog.Any("item", item),
		slog.Any("error", err),
	)
}
