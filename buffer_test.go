package groove

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pipelined.dev/signal"
)

func testFloat(channels, frames int) signal.Floating {
	return signal.Allocator{Channels: channels, Capacity: frames, Length: frames}.Float64()
}

func TestBufferRefcount(t *testing.T) {
	item := NewItem(nil, 1)
	b := NewBuffer(testFloat(2, 4), item, 1.5, 3)

	assert.Equal(t, 3, b.Refs())
	assert.Equal(t, 1.5, b.Pos())
	assert.False(t, b.Released())

	assert.False(t, b.Unref())
	assert.False(t, b.Unref())
	assert.True(t, b.Unref())
	assert.True(t, b.Released())
}

func TestBufferUnrefPastZeroPanics(t *testing.T) {
	item := NewItem(nil, 1)
	b := NewBuffer(testFloat(1, 1), item, 0, 1)
	b.Unref()
	assert.Panics(t, func() { b.Unref() })
}

func TestBufferBelongsTo(t *testing.T) {
	a := NewItem(nil, 1)
	c := NewItem(nil, 1)
	b := NewBuffer(testFloat(1, 1), a, 0, 1)

	assert.True(t, b.BelongsTo(a))
	assert.False(t, b.BelongsTo(c))
}

func TestBufferRef(t *testing.T) {
	item := NewItem(nil, 1)
	b := NewBuffer(testFloat(1, 1), item, 0, 1)
	b.Ref()
	assert.Equal(t, 2, b.Refs())
	assert.False(t, b.Unref())
	assert.True(t, b.Unref())
}
