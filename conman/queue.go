package conman

import (
	"sync"

	"github.com/nodewire/p2pd/endpoint"
	"github.com/nodewire/p2pd/errcode"
)

// command is a unit of work executed on the loop goroutine. The set of
// commands is closed; the loop dispatches on the concrete type.
type command interface {
	isCommand()
}

// getPeersCmd asks for a snapshot of every live connection.
type getPeersCmd struct {
	cb func([]PeerInfo)
}

// connectCmd asks for an outbound connection to addr.
type connectCmd struct {
	addr endpoint.Address
}

// inspectCmd runs cb against the loop's state.
type inspectCmd struct {
	cb func(*State)
}

// deferCmd runs an arbitrary function on the loop.
type deferCmd struct {
	cb func()
}

// startReadCmd starts reading on a connection.
type startReadCmd struct {
	id ConnID
}

// sendCmd queues buf for writing on a connection.
type sendCmd struct {
	id  ConnID
	buf []byte
}

// closeCmd closes a connection with the given code.
type closeCmd struct {
	id   ConnID
	code errcode.Code
}

// shutdownCmd stops the manager, closing every connection with reason.
type shutdownCmd struct {
	reason errcode.Code
}

func (getPeersCmd) isCommand()  {}
func (connectCmd) isCommand()   {}
func (inspectCmd) isCommand()   {}
func (deferCmd) isCommand()     {}
func (startReadCmd) isCommand() {}
func (sendCmd) isCommand()      {}
func (closeCmd) isCommand()     {}
func (shutdownCmd) isCommand()  {}

// eventQueue is a multi-producer queue of commands consumed by the loop.
// Pushes only hold the lock for the append, and a burst of pushes results in
// a single wakeup.
type eventQueue struct {
	mu      sync.Mutex
	pending []command
	closed  bool

	// wake has room for exactly one signal.
	wake chan struct{}
}

// newEventQueue returns an open, empty queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		wake: make(chan struct{}, 1),
	}
}

// push appends cmd and wakes the loop. It returns false once the queue has
// been closed, in which case cmd will never run.
func (q *eventQueue) push(cmd command) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.pending = append(q.pending, cmd)
	q.mu.Unlock()

	q.signal()

	return true
}

// signal wakes the loop unless a wakeup is already pending.
func (q *eventQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// wakeup returns the channel the loop waits on.
func (q *eventQueue) wakeup() <-chan struct{} {
	return q.wake
}

// drain takes every pending command in enqueue order. The caller runs them
// without holding the lock, so commands may push further commands.
func (q *eventQueue) drain() []command {
	q.mu.Lock()
	cmds := q.pending
	q.pending = nil
	q.mu.Unlock()

	return cmds
}

// close stops the queue from accepting commands and drops any still pending.
func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.pending = nil
	q.mu.Unlock()

	q.signal()
}

// isClosed reports whether close has been called.
func (q *eventQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.closed
}
