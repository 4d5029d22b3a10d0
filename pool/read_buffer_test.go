package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestReadBufferRecycles checks that buffers handed back to the pool come out
// zeroed.
func TestReadBufferRecycles(t *testing.T) {
	t.Parallel()

	p := NewReadBuffer(time.Minute, time.Minute)

	buf := p.Take()
	require.NotNil(t, buf)
	copy(buf[:], "dirty")
	p.Return(buf)

	// Whether or not we get the same array back, it must be clean.
	for i := 0; i < 3; i++ {
		b := p.Take()
		require.Zero(t, b[0])
		require.Zero(t, b[4])
		p.Return(b)
	}
}
