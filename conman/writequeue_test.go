package conman

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestWriteQueueLimit checks the byte limit counts unwritten bytes, including
// ones the writer has taken but not yet flushed.
func TestWriteQueueLimit(t *testing.T) {
	t.Parallel()

	w := newWriteQueue(16)

	require.True(t, w.enqueue(make([]byte, 10)))
	require.True(t, w.enqueue(make([]byte, 6)))
	require.Equal(t, 16, w.size())

	// One more byte does not fit, and the refused buffer is not queued.
	require.False(t, w.enqueue([]byte{1}))
	require.Equal(t, 16, w.size())

	bufs, size, ok := w.next()
	require.True(t, ok)
	require.Len(t, bufs, 2)
	require.Equal(t, 16, size)

	// Still in flight.
	require.False(t, w.enqueue([]byte{1}))

	w.written(size)
	require.Zero(t, w.size())
	require.True(t, w.enqueue([]byte{1}))

	// Empty buffers are always accepted.
	require.True(t, w.enqueue(nil))
}

// TestWriteQueueOversized checks a single buffer over the limit is refused.
func TestWriteQueueOversized(t *testing.T) {
	t.Parallel()

	w := newWriteQueue(16)
	require.False(t, w.enqueue(make([]byte, 64)))
	require.Zero(t, w.size())
}

// TestWriteQueueStop checks stop releases a blocked writer and refuses
// further buffers.
func TestWriteQueueStop(t *testing.T) {
	t.Parallel()

	w := newWriteQueue(16)

	done := make(chan bool, 1)
	go func() {
		_, _, ok := w.next()
		done <- ok
	}()

	w.stop()
	w.stop()

	require.False(t, recv(t, done))
	require.False(t, w.enqueue([]byte{1}))
}
