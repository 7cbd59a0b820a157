package groove

import (
	"sync"

	"pipelined.dev/signal"
)

// Buffer is a reference-counted wrapper around one decoded PCM frame. A
// single decoded frame can be referenced by several sinks at once when
// FilterGraph fans it out to more than one group; the frame's storage is
// only released back once every referencing sink has consumed it. Grounded
// on mixer.go's frame struct (pooled signal.Floating payload) generalized
// from a single mix accumulator to a shared, multiply-referenced unit.
type Buffer struct {
	mu       sync.Mutex
	data     signal.Floating
	pos      float64
	refs     int
	item     *Item
	released bool
}

// NewBuffer wraps data with an initial reference count of count, tagged
// with the Item it was decoded from so a later purge-on-remove can find it,
// and stamped with pos: the presentation position, in seconds, of this
// frame's first sample within item. Restarts at (close to) 0 across an item
// boundary and is non-decreasing within a single (sink, item) stream.
func NewBuffer(data signal.Floating, item *Item, pos float64, count int) *Buffer {
	if count < 1 {
		count = 1
	}
	return &Buffer{data: data, pos: pos, refs: count, item: item}
}

// Data returns the underlying PCM payload. Valid until the last reference
// is released.
func (b *Buffer) Data() signal.Floating {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}

// Item returns the playlist item this buffer was decoded from.
func (b *Buffer) Item() *Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.item
}

// Pos returns the presentation position, in seconds, of this buffer's first
// sample within its item's audio clock.
func (b *Buffer) Pos() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pos
}

// Ref increments the reference count, for handing the buffer to one more
// holder. The worker itself does not call it: it creates each buffer with a
// count equal to its group's sink count.
func (b *Buffer) Ref() {
	b.mu.Lock()
	b.refs++
	b.mu.Unlock()
}

// Unref decrements the reference count and reports whether this call
// dropped it to zero, i.e. whether the buffer's storage is now free to
// recycle. Calling Unref past zero is a programming error and panics,
// matching mixer.go's frame.release assumption that callers never
// double-release (its added/flushed flags reset once, trusting callers not
// to call sum() again for the same frame).
func (b *Buffer) Unref() (freed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refs <= 0 {
		panic("groove: Buffer.Unref called with refs already zero")
	}
	b.refs--
	if b.refs == 0 {
		b.released = true
		return true
	}
	return false
}

// Refs returns the current reference count, chiefly for tests and
// diagnostics.
func (b *Buffer) Refs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refs
}

// Released reports whether every reference has already been dropped.
func (b *Buffer) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

// BelongsTo reports whether this buffer was decoded from item. Used by the
// queue's purge predicate when an item is removed from the playlist.
func (b *Buffer) BelongsTo(item *Item) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.item == item
}
