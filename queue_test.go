package groove

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingCallbacks struct {
	mu               sync.Mutex
	puts, gets, cleanups int
}

func (c *countingCallbacks) onPut(b *Buffer)     { c.mu.Lock(); c.puts++; c.mu.Unlock() }
func (c *countingCallbacks) onGet(b *Buffer)     { c.mu.Lock(); c.gets++; c.mu.Unlock() }
func (c *countingCallbacks) onCleanup(b *Buffer) { c.mu.Lock(); c.cleanups++; c.mu.Unlock() }

func TestQueuePutGet(t *testing.T) {
	cb := &countingCallbacks{}
	q := newQueue(cb)
	item := NewItem(nil, 1)
	b1 := NewBuffer(testFloat(1, 1), item, 0, 1)
	b2 := NewBuffer(testFloat(1, 1), item, 0, 1)

	assert.True(t, q.put(b1))
	assert.True(t, q.put(b2))

	r := q.get(false)
	assert.True(t, r.ok)
	assert.False(t, r.end)
	assert.Same(t, b1, r.buffer)

	r = q.get(false)
	assert.Same(t, b2, r.buffer)

	r = q.get(false)
	assert.False(t, r.ok)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	assert.Equal(t, 2, cb.puts)
	assert.Equal(t, 2, cb.gets)
	assert.Equal(t, 2, cb.cleanups) // get invokes onCleanup too, not just flush/purge
}

func TestQueueSentinelBypassesCallbacks(t *testing.T) {
	cb := &countingCallbacks{}
	q := newQueue(cb)
	assert.True(t, q.putSentinel())

	r := q.get(false)
	assert.True(t, r.end)
	assert.True(t, r.ok)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	assert.Zero(t, cb.puts)
	assert.Zero(t, cb.gets)
	assert.Zero(t, cb.cleanups)
}

func TestQueueBlockingGetUnblocksOnPut(t *testing.T) {
	q := newQueue(nil)
	item := NewItem(nil, 1)
	b := NewBuffer(testFloat(1, 1), item, 0, 1)

	done := make(chan getResult, 1)
	go func() { done <- q.get(true) }()

	time.Sleep(10 * time.Millisecond)
	q.put(b)

	select {
	case r := <-done:
		assert.Same(t, b, r.buffer)
	case <-time.After(time.Second):
		t.Fatal("blocking get never unblocked")
	}
}

func TestQueueAbortUnblocksWaiters(t *testing.T) {
	q := newQueue(nil)
	done := make(chan getResult, 1)
	go func() { done <- q.get(true) }()

	time.Sleep(10 * time.Millisecond)
	q.abort()

	select {
	case r := <-done:
		assert.False(t, r.ok)
	case <-time.After(time.Second):
		t.Fatal("abort never unblocked waiter")
	}

	assert.False(t, q.put(NewBuffer(testFloat(1, 1), NewItem(nil, 1), 0, 1)))
	q.reset()
	assert.True(t, q.put(NewBuffer(testFloat(1, 1), NewItem(nil, 1), 0, 1)))
}

func TestQueueFlushInvokesCleanup(t *testing.T) {
	cb := &countingCallbacks{}
	q := newQueue(cb)
	item := NewItem(nil, 1)
	q.put(NewBuffer(testFloat(1, 1), item, 0, 1))
	q.put(NewBuffer(testFloat(1, 1), item, 0, 1))
	q.putSentinel()

	q.flush()
	assert.True(t, q.empty())

	cb.mu.Lock()
	defer cb.mu.Unlock()
	assert.Equal(t, 2, cb.cleanups)
}

func TestQueuePurgeByPredicate(t *testing.T) {
	cb := &countingCallbacks{}
	q := newQueue(cb)
	a := NewItem(nil, 1)
	b := NewItem(nil, 1)
	bufA := NewBuffer(testFloat(1, 1), a, 0, 1)
	bufB := NewBuffer(testFloat(1, 1), b, 0, 1)
	q.put(bufA)
	q.put(bufB)

	q.purge(func(buf *Buffer) bool { return buf.BelongsTo(a) })

	cb.mu.Lock()
	assert.Equal(t, 1, cb.cleanups)
	cb.mu.Unlock()

	r := q.get(false)
	assert.Same(t, bufB, r.buffer)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	assert.Equal(t, 2, cb.cleanups)
}
