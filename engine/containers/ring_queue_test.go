package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueFIFOOrder(t *testing.T) {
	rq := NewRingQueue[int](4)
	assert.True(t, rq.IsEmpty())

	for i := 1; i <= 3; i++ {
		require.NoError(t, rq.Enqueue(i))
	}
	assert.Equal(t, 3, rq.Len())

	for i := 1; i <= 3; i++ {
		value, err := rq.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, i, value)
	}
	assert.True(t, rq.IsEmpty())
}

func TestRingQueueWrapAround(t *testing.T) {
	rq := NewRingQueue[string](3)
	require.NoError(t, rq.Enqueue("a"))
	require.NoError(t, rq.Enqueue("b"))
	require.NoError(t, rq.Enqueue("c"))

	// Free one slot and refill it; order must survive the index wrap.
	value, err := rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "a", value)
	require.NoError(t, rq.Enqueue("d"))

	for _, want := range []string{"b", "c", "d"} {
		value, err = rq.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, want, value)
	}
}

func TestRingQueueEnqueueWhenFull(t *testing.T) {
	rq := NewRingQueue[int](2)
	require.NoError(t, rq.Enqueue(1))
	require.NoError(t, rq.Enqueue(2))
	assert.True(t, rq.IsFull())

	assert.ErrorIs(t, rq.Enqueue(3), ErrQueueFull)
	assert.Equal(t, 2, rq.Len())
}

func TestRingQueueDequeueWhenEmpty(t *testing.T) {
	rq := NewRingQueue[int](2)

	_, err := rq.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)
	_, err = rq.Peek()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestRingQueuePeekDoesNotRemove(t *testing.T) {
	rq := NewRingQueue[int](2)
	require.NoError(t, rq.Enqueue(7))

	value, err := rq.Peek()
	require.NoError(t, err)
	assert.Equal(t, 7, value)
	assert.Equal(t, 1, rq.Len())

	value, err = rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 7, value)
}
