package pool

import (
	"time"

	"github.com/lightningnetwork/lnd/queue"
	"github.com/nodewire/p2pd/buffer"
)

const (
	// DefaultReadBufferGCInterval is the default interval at which the
	// pool checks for idle buffers to release to the runtime.
	DefaultReadBufferGCInterval = 15 * time.Second

	// DefaultReadBufferExpiryInterval is the minimum time a returned
	// buffer stays in the pool before it can be released.
	DefaultReadBufferExpiryInterval = 30 * time.Second

	// readBufferReturnQueue bounds how many buffers can be returned in a
	// burst without being dropped.
	readBufferReturnQueue = 100
)

// ReadBuffer is a pool of recycled buffer.Read items that grows with the
// number of active connection readers and shrinks again when they go idle.
type ReadBuffer struct {
	pool *queue.GCQueue
}

// NewReadBuffer returns a read buffer pool using the given gc and expiry
// intervals.
func NewReadBuffer(gcInterval, expiryInterval time.Duration) *ReadBuffer {
	return &ReadBuffer{
		pool: queue.NewGCQueue(
			func() interface{} { return new(buffer.Read) },
			readBufferReturnQueue, gcInterval, expiryInterval,
		),
	}
}

// Take returns a zeroed buffer.Read to the caller.
func (p *ReadBuffer) Take() *buffer.Read {
	return p.pool.Take().(*buffer.Read)
}

// Return recycles the buffer and hands it back to the pool. The caller must
// not touch the buffer afterwards.
func (p *ReadBuffer) Return(buf *buffer.Read) {
	buf.Recycle()
	p.pool.Return(buf)
}
