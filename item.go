package groove

import "pipelined.dev/groove/media"

// Item is one playlist entry: a file handle bound with a gain. Grounded on
// track.go's link (prev/next doubly-linked splicing), generalized from a
// clip timeline keyed by sample offset to a playable-item list keyed by
// playlist order only. prev/next are non-owning back-references; the
// Playlist exclusively owns every Item and frees it only via remove/clear
// under the coordinator lock.
type Item struct {
	file *media.File
	gain float64

	prev *Item
	next *Item
}

// NewItem constructs an unlinked item. Playlist.Insert splices it into the
// list.
func NewItem(file *media.File, gain float64) *Item {
	return &Item{file: file, gain: gain}
}

// File returns the item's file handle.
func (it *Item) File() *media.File { return it.file }

// Gain returns the item's per-item gain.
func (it *Item) Gain() float64 { return it.gain }

// Next returns the following item, or nil at the tail.
func (it *Item) Next() *Item { return it.next }

// Prev returns the preceding item, or nil at the head.
func (it *Item) Prev() *Item { return it.prev }

// spliceBefore inserts it immediately before next, or at the tail when next
// is nil. Caller must hold the coordinator lock.
func spliceBefore(head, tail **Item, it, next *Item) {
	if next == nil {
		// append
		it.prev = *tail
		it.next = nil
		if *tail != nil {
			(*tail).next = it
		} else {
			*head = it
		}
		*tail = it
		return
	}

	it.prev = next.prev
	it.next = next
	if next.prev != nil {
		next.prev.next = it
	} else {
		*head = it
	}
	next.prev = it
}

// unsplice removes it from the list. Caller must hold the coordinator lock.
func unsplice(head, tail **Item, it *Item) {
	if it.prev != nil {
		it.prev.next = it.next
	} else {
		*head = it.next
	}
	if it.next != nil {
		it.next.prev = it.prev
	} else {
		*tail = it.prev
	}
	it.prev = nil
	it.next = nil
}
