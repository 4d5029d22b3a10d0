package conman

import (
	"sync"
)

// writeQueue holds the buffers waiting to be written on one connection. The
// loop enqueues, the connection's writer goroutine dequeues. Bytes count
// against the limit until they have been written to the socket.
type writeQueue struct {
	mu     sync.Mutex
	bufs   [][]byte
	queued int
	limit  int

	wake chan struct{}
	quit chan struct{}
	once sync.Once
}

// newWriteQueue returns a queue holding at most limit unwritten bytes.
func newWriteQueue(limit int) *writeQueue {
	return &writeQueue{
		limit: limit,
		wake:  make(chan struct{}, 1),
		quit:  make(chan struct{}),
	}
}

// enqueue adds buf to the queue. It returns false, leaving the queue
// untouched, if buf would push the queued byte count past the limit or the
// queue has been stopped.
func (w *writeQueue) enqueue(buf []byte) bool {
	select {
	case <-w.quit:
		return false
	default:
	}

	if len(buf) == 0 {
		return true
	}

	w.mu.Lock()
	if w.queued+len(buf) > w.limit {
		w.mu.Unlock()
		return false
	}
	w.bufs = append(w.bufs, buf)
	w.queued += len(buf)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}

	return true
}

// next blocks until buffers are available and returns all of them along with
// their total size. It returns false once the queue is stopped.
func (w *writeQueue) next() ([][]byte, int, bool) {
	for {
		select {
		case <-w.quit:
			return nil, 0, false
		default:
		}

		w.mu.Lock()
		bufs := w.bufs
		w.bufs = nil
		w.mu.Unlock()

		if len(bufs) > 0 {
			size := 0
			for _, b := range bufs {
				size += len(b)
			}

			return bufs, size, true
		}

		select {
		case <-w.wake:
		case <-w.quit:
			return nil, 0, false
		}
	}
}

// written releases n bytes of the limit once they reached the socket.
func (w *writeQueue) written(n int) {
	w.mu.Lock()
	w.queued -= n
	w.mu.Unlock()
}

// size returns the number of bytes queued but not yet written.
func (w *writeQueue) size() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.queued
}

// stop discards everything queued and makes the writer exit.
func (w *writeQueue) stop() {
	w.once.Do(func() {
		close(w.quit)

		w.mu.Lock()
		w.bufs = nil
		w.mu.Unlock()
	})
}
