package groove

import (
	"errors"
	"sync"

	"pipelined.dev/groove/media"
)

// ErrSinkAttachConflict is returned by attach when the sink is already
// bound to a playlist.
var ErrSinkAttachConflict = errors.New("groove: sink already attached to a playlist")

// ErrSinkNotFound is returned by SinkMap.remove when the sink is not a
// member of any group.
var ErrSinkNotFound = errors.New("groove: sink not attached")

// OnPurge is an optional hook a Sink can register, invoked once per item
// purged from its queue when Remove evicts that item from the playlist.
type OnPurge func(item *Item)

// Sink is the downstream-consumer handle: a desired output format, a
// bounded FIFO of decoded buffers, and the bookkeeping attach/detach needs.
// Grounded on mixer.go's input struct (per-consumer
// frame/semaphore bookkeeping) and repeat.go's fan-out source list,
// generalized from "one more mix/repeat consumer" to "one more format
// group member".
type Sink struct {
	mu sync.Mutex

	desired         media.DesiredFormat
	bytesPerFrame   int
	bytesPerSec     float64
	minQueueBytes   int
	disableResample bool

	queue    *queue
	playlist *Playlist
	onPurge  OnPurge
}

// NewSink constructs an unattached sink requesting desired. Call
// Playlist.Attach to bind it.
func NewSink(desired media.DesiredFormat) *Sink {
	s := &Sink{desired: desired, disableResample: desired.DisableResample}
	s.queue = newQueue(s)
	return s
}

// SetOnPurge installs the optional purge-notification hook.
func (s *Sink) SetOnPurge(fn OnPurge) {
	s.mu.Lock()
	s.onPurge = fn
	s.mu.Unlock()
}

// Desired returns the sink's requested output format.
func (s *Sink) Desired() media.DesiredFormat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desired
}

// attach computes the sink's per-frame/per-second byte rates and minimum
// queue size, binds the sink to playlist, and resets its queue.
func (s *Sink) attach(p *Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playlist != nil {
		return ErrSinkAttachConflict
	}
	bytesPerSample := 4
	if s.desired.Format.SampleFormat.Kind != media.KindFloat {
		bytesPerSample = s.desired.Format.SampleFormat.BitDepth / 8
		if bytesPerSample == 0 {
			bytesPerSample = 2
		}
	}
	s.bytesPerFrame = s.desired.Format.Channels * bytesPerSample
	s.bytesPerSec = float64(s.desired.Format.SampleRate) * float64(s.bytesPerFrame)
	s.minQueueBytes = s.desired.BufferSize * s.bytesPerFrame
	s.playlist = p
	s.queue.reset()
	return nil
}

// detach aborts and flushes the queue, unbinds the sink. Idempotent:
// calling detach on an already-detached sink returns an error but performs
// no further action.
func (s *Sink) detach() error {
	s.mu.Lock()
	if s.playlist == nil {
		s.mu.Unlock()
		return errors.New("groove: sink already detached")
	}
	s.playlist = nil
	s.mu.Unlock()

	s.queue.abort()
	s.queue.flush()
	return nil
}

func (s *Sink) attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playlist != nil
}

// bufferGetResult mirrors the {yes, no, end} shape of BufferGet/BufferPeek.
// Err is ErrQueueAborted when OK and End are both false because the sink
// was detached/destroyed while a blocking caller waited, distinguishing
// that from an ordinary non-blocking empty read.
type bufferGetResult struct {
	Buffer *Buffer
	OK     bool
	End    bool
	Err    error
}

// BufferGet is a thin wrapper over queue.get mapping the sentinel to
// end_of_playlist.
func (s *Sink) BufferGet(blocking bool) bufferGetResult {
	r := s.queue.get(blocking)
	return bufferGetResult{Buffer: r.buffer, OK: r.ok && !r.end, End: r.end && r.ok, Err: r.err}
}

// BufferPeek is a thin wrapper over queue.peek.
func (s *Sink) BufferPeek(blocking bool) bufferGetResult {
	r := s.queue.peek(blocking)
	return bufferGetResult{Buffer: r.buffer, OK: r.ok && !r.end, End: r.end && r.ok, Err: r.err}
}

// put enqueues a decoded buffer destined for this sink. Returns false if
// the sink's queue has been aborted (e.g. mid-detach).
func (s *Sink) put(b *Buffer) bool { return s.queue.put(b) }

// byteSize reports the sink's current queued byte size, used by the
// worker's fill predicate.
func (s *Sink) byteSize() int {
	s.mu.Lock()
	bpf := s.bytesPerFrame
	s.mu.Unlock()
	if bpf == 0 {
		return 0
	}
	return s.queue.byteSize(bpf)
}

// full reports whether the sink's queue is at or above min_queue_bytes.
func (s *Sink) full() bool {
	s.mu.Lock()
	min := s.minQueueBytes
	s.mu.Unlock()
	if min <= 0 {
		return false
	}
	return s.byteSize() >= min
}

// queueCallbacks implementation: onPut/onGet are no-ops beyond bookkeeping
// hooks future metrics could use; onCleanup releases the buffer reference.
func (s *Sink) onPut(b *Buffer)  {}
func (s *Sink) onGet(b *Buffer)  {}
func (s *Sink) onCleanup(b *Buffer) {
	b.Unref()
}

// sinkGroup is a SinkMap bucket: a stack of format-equivalent sinks sharing
// one filter-graph tail. The representative (stack head) format determines
// the group's format-convert/terminal node shape.
type sinkGroup struct {
	sinks []*Sink // sinks[0] is the representative
}

func (g *sinkGroup) representative() *Sink { return g.sinks[0] }

func (g *sinkGroup) push(s *Sink) { g.sinks = append(g.sinks, s) }

func (g *sinkGroup) pop(s *Sink) bool {
	for i, cur := range g.sinks {
		if cur == s {
			g.sinks = append(g.sinks[:i], g.sinks[i+1:]...)
			return true
		}
	}
	return false
}

// sinkMap partitions attached sinks into format-equivalent groups.
type sinkMap struct {
	groups []*sinkGroup
}

// add scans existing groups for a format-equivalent representative; if
// found, sink joins that group's stack, otherwise a new group is created.
func (m *sinkMap) add(s *Sink) {
	for _, g := range m.groups {
		if g.representative().Desired().Equivalent(s.Desired()) {
			g.push(s)
			return
		}
	}
	m.groups = append(m.groups, &sinkGroup{sinks: []*Sink{s}})
}

// remove locates sink by identity, pops it from its group's stack, and
// removes the group entirely if it becomes empty.
func (m *sinkMap) remove(s *Sink) error {
	for i, g := range m.groups {
		if g.pop(s) {
			if len(g.sinks) == 0 {
				m.groups = append(m.groups[:i], m.groups[i+1:]...)
			}
			return nil
		}
	}
	return ErrSinkNotFound
}

// groupCount returns the number of distinct format groups, used by
// FilterGraph.ensure to decide whether a split node is needed.
func (m *sinkMap) groupCount() int { return len(m.groups) }

// forEach calls fn with every group currently in the map.
func (m *sinkMap) forEach(fn func(g *sinkGroup)) {
	for _, g := range m.groups {
		fn(g)
	}
}
