package signal

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown channel not closed")
	}
}

// TestRequestShutdown checks that an application request closes the
// shutdown channel and that repeated requests do not block.
func TestRequestShutdown(t *testing.T) {
	c := newInterceptor()
	go c.mainInterruptHandler()

	require.True(t, c.Alive())

	c.RequestShutdown()
	waitClosed(t, c.ShutdownChannel())
	require.False(t, c.Alive())

	c.RequestShutdown()
}

// TestInterrupt checks that a received signal triggers shutdown.
func TestInterrupt(t *testing.T) {
	c := newInterceptor()
	go c.mainInterruptHandler()

	c.interruptChannel <- os.Interrupt
	waitClosed(t, c.ShutdownChannel())
}
