package groove

import (
	"errors"
	"sync"
)

// queueElem is a tagged-variant element: a distinguished end marker instead
// of a sentinel pointer value, so there is no aliasing hazard between "no
// buffer" and "end of playlist".
type queueElem struct {
	buffer *Buffer
	end    bool
}

// queueCallbacks is the capability interface a queue's owner implements:
// onPut/onGet/onCleanup hooks closed over the owning Sink rather than
// threaded through as raw function pointers with shared context.
type queueCallbacks interface {
	onPut(b *Buffer)
	onGet(b *Buffer)
	onCleanup(b *Buffer)
}

// queue is a multi-producer/single-consumer FIFO. It is unbounded in
// element count; byte-size backpressure is the worker's concern (the
// fill-mode predicate in worker.go), not the queue's. Grounded on
// doismellburning-samoyed's src/tq.go transmit-queue
// (mutex + condition variable wakeup discipline), translated out of its cgo
// transliteration into idiomatic Go: one sync.Mutex, one sync.Cond, no C
// types, no manual refcounting of OS handles.
type queue struct {
	mu   sync.Mutex
	cond *sync.Cond

	elems   []queueElem
	aborted bool
	cb      queueCallbacks
}

func newQueue(cb queueCallbacks) *queue {
	q := &queue{cb: cb}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// put enqueues one buffer. Fails (returns false) once abort has been called
// and reset has not yet run. on_put fires under the queue's own lock,
// exactly once, before waiters are woken.
func (q *queue) put(b *Buffer) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.aborted {
		return false
	}
	if q.cb != nil {
		q.cb.onPut(b)
	}
	q.elems = append(q.elems, queueElem{buffer: b})
	q.cond.Signal()
	return true
}

// putSentinel enqueues the end-of-playlist marker. The sentinel bypasses
// every queueCallbacks hook.
func (q *queue) putSentinel() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.aborted {
		return false
	}
	q.elems = append(q.elems, queueElem{end: true})
	q.cond.Signal()
	return true
}

// ErrQueueAborted is returned via getResult.err by a get/peek call that
// found the queue empty and aborted, distinguishing that case from an
// ordinary non-blocking empty read.
var ErrQueueAborted = errors.New("groove: queue aborted")

// getResult is the {yes, item} | {no} | {end} return shape of get/peek. err
// is set to ErrQueueAborted when ok is false because the queue was aborted
// while empty, and left nil for an ordinary non-blocking empty read.
type getResult struct {
	buffer *Buffer
	ok     bool
	end    bool
	err    error
}

// get dequeues the head element. When blocking is true and the queue is
// empty, it waits until an element arrives or abort is called. on_get fires
// under the queue's own lock, exactly once per real element; the sentinel
// bypasses it.
func (q *queue) get(blocking bool) getResult {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.elems) == 0 {
		if q.aborted {
			return getResult{err: ErrQueueAborted}
		}
		if !blocking {
			return getResult{}
		}
		q.cond.Wait()
	}
	e := q.elems[0]
	q.elems = q.elems[1:]
	if e.end {
		return getResult{end: true, ok: true}
	}
	if q.cb != nil {
		q.cb.onGet(e.buffer)
		q.cb.onCleanup(e.buffer)
	}
	return getResult{buffer: e.buffer, ok: true}
}

// peek reports availability without dequeuing. blocking mirrors get's
// waiting behaviour.
func (q *queue) peek(blocking bool) getResult {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.elems) == 0 {
		if q.aborted {
			return getResult{err: ErrQueueAborted}
		}
		if !blocking {
			return getResult{}
		}
		q.cond.Wait()
	}
	e := q.elems[0]
	if e.end {
		return getResult{end: true, ok: true}
	}
	return getResult{buffer: e.buffer, ok: true}
}

// flush drains every element, invoking on_cleanup per element (sentinels
// excepted).
func (q *queue) flush() {
	q.mu.Lock()
	elems := q.elems
	q.elems = nil
	q.mu.Unlock()

	if q.cb == nil {
		return
	}
	for _, e := range elems {
		if !e.end {
			q.cb.onCleanup(e.buffer)
		}
	}
}

// abort unblocks every waiter; subsequent put/putSentinel fail until reset.
func (q *queue) abort() {
	q.mu.Lock()
	q.aborted = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// reset clears abort state, allowing put/putSentinel to succeed again.
func (q *queue) reset() {
	q.mu.Lock()
	q.aborted = false
	q.mu.Unlock()
}

// purge removes every element for which pred reports true, invoking
// on_cleanup per removed element. Sentinels never match a purge predicate
// (predicates are always phrased over buffer.item, and the sentinel has no
// buffer) so they are left untouched by construction.
func (q *queue) purge(pred func(b *Buffer) bool) {
	q.mu.Lock()
	kept := q.elems[:0]
	var removed []*Buffer
	for _, e := range q.elems {
		if !e.end && pred(e.buffer) {
			removed = append(removed, e.buffer)
			continue
		}
		kept = append(kept, e)
	}
	q.elems = kept
	q.mu.Unlock()

	if q.cb == nil {
		return
	}
	for _, b := range removed {
		q.cb.onCleanup(b)
	}
}

// byteSize returns the total size, in bytes, of every buffer currently
// queued, used by the worker's fill-mode predicate. Sentinels contribute
// zero.
func (q *queue) byteSize(bytesPerFrame int) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	for _, e := range q.elems {
		if e.end {
			continue
		}
		total += e.buffer.Data().Len() / e.buffer.Data().Channels() * bytesPerFrame
	}
	return total
}

// empty reports whether the queue currently holds no elements.
func (q *queue) empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.elems) == 0
}
