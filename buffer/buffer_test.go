package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRecycleRead asserts that a recycled Read buffer is entirely zero.
func TestRecycleRead(t *testing.T) {
	t.Parallel()

	var b Read
	for i := range b {
		b[i] = byte(i)
	}

	b.Recycle()
	require.Equal(t, Read{}, b)
}
