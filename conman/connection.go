package conman

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/nodewire/p2pd/endpoint"
	"github.com/nodewire/p2pd/errcode"
)

// ConnID identifies a connection for the lifetime of its manager. IDs are
// never reused.
type ConnID uint64

// connState is the lifecycle of a connection. It only moves forward.
type connState uint8

const (
	stateOpen connState = iota
	stateClosing
	stateClosed
)

// String returns a human readable name for the state.
func (s connState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateClosing:
		return "closing"
	case stateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Connection is the loop's record of one peer socket. All fields other than
// the socket itself are only touched from the loop goroutine.
type Connection struct {
	id        ConnID
	conn      net.Conn
	peer      endpoint.Address
	inbound   bool
	createdAt time.Time

	state   connState
	reading bool
	writes  *writeQueue

	mgr *Manager

	// wg tracks the reader and writer goroutines.
	wg sync.WaitGroup
}

// newConnection wraps an established socket and starts its writer.
func newConnection(m *Manager, id ConnID, conn net.Conn,
	peer endpoint.Address, inbound bool) *Connection {

	c := &Connection{
		id:        id,
		conn:      conn,
		peer:      peer,
		inbound:   inbound,
		createdAt: m.cfg.Clock.Now(),
		writes:    newWriteQueue(m.cfg.MaxWriteQueue),
		mgr:       m,
	}

	c.wg.Add(1)
	go c.writeHandler()

	return c
}

// String returns the direction and peer of the connection, e.g.
// "(in) 1.2.3.4:9186".
func (c *Connection) String() string {
	return connString(c.inbound, c.peer)
}

func connString(inbound bool, peer endpoint.Address) string {
	if inbound {
		return "(in) " + peer.String()
	}

	return "(out) " + peer.String()
}

// ref returns the externally held handle of the connection.
func (c *Connection) ref() ConnRef {
	return ConnRef{
		id:        c.id,
		peer:      c.peer,
		inbound:   c.inbound,
		createdAt: c.createdAt,
		mgr:       c.mgr,
	}
}

// startRead begins reading from the socket. It does nothing unless the
// connection is open and not yet reading.
func (c *Connection) startRead() {
	if c.state != stateOpen || c.reading {
		return
	}
	c.reading = true

	c.wg.Add(1)
	go c.readHandler()

	c.mgr.cfg.Handler.OnConnected(c.ref())
}

// send queues buf for writing. A buffer that does not fit in the write queue
// closes the connection with errcode.BufferFull.
func (c *Connection) send(buf []byte) {
	if c.state != stateOpen {
		return
	}

	if !c.writes.enqueue(buf) {
		log.Debugf("%v write queue full: %d bytes queued, %d more "+
			"refused", c, c.writes.size(), len(buf))

		c.close(errcode.BufferFull)
	}
}

// close tears down the socket and notifies the handler. Only the first call
// has any effect. The connection is removed from the set once its goroutines
// have exited.
func (c *Connection) close(code errcode.Code) {
	if c.state != stateOpen {
		return
	}
	c.state = stateClosing

	c.writes.stop()
	if err := c.conn.Close(); err != nil {
		log.Debugf("%v socket close: %v", c, err)
	}

	log.Infof("%v closed: %v (%v)", c, code.Name(), code.Description())

	c.mgr.connClosing(c, code)

	go func() {
		c.wg.Wait()
		c.mgr.post(closedEvent{conn: c})
	}()
}

// readHandler reads from the socket until it fails, handing every chunk to
// the loop.
//
// NOTE: This method MUST be run as a goroutine.
func (c *Connection) readHandler() {
	defer c.wg.Done()

	for {
		buf := c.mgr.readPool.Take()
		n, err := c.conn.Read(buf[:])
		if n > 0 {
			c.mgr.post(dataEvent{conn: c, buf: buf, n: n})
		} else {
			c.mgr.readPool.Return(buf)
		}

		switch {
		case err == nil:
			continue

		case errors.Is(err, io.EOF):
			c.mgr.post(endEvent{conn: c})

		default:
			c.mgr.post(errorEvent{conn: c, err: err})
		}

		return
	}
}

// writeHandler writes queued buffers to the socket until the queue is
// stopped or a write fails.
//
// NOTE: This method MUST be run as a goroutine.
func (c *Connection) writeHandler() {
	defer c.wg.Done()

	for {
		bufs, size, ok := c.writes.next()
		if !ok {
			return
		}

		batch := net.Buffers(bufs)
		_, err := batch.WriteTo(c.conn)
		c.writes.written(size)

		if err != nil {
			c.mgr.post(errorEvent{conn: c, err: err})
			return
		}
	}
}

// ConnRef is a handle to a connection that may be held and used from any
// goroutine. Its methods only schedule work on the loop, so they never block
// on the socket and are safe to call after the connection is gone.
type ConnRef struct {
	id        ConnID
	peer      endpoint.Address
	inbound   bool
	createdAt time.Time
	mgr       *Manager
}

// ID returns the connection's id.
func (r ConnRef) ID() ConnID {
	return r.id
}

// Peer returns the remote endpoint.
func (r ConnRef) Peer() endpoint.Address {
	return r.peer
}

// Inbound reports whether the peer connected to us.
func (r ConnRef) Inbound() bool {
	return r.inbound
}

// CreatedAt returns when the connection was established.
func (r ConnRef) CreatedAt() time.Time {
	return r.createdAt
}

// ListenPort returns the port the manager listens on.
func (r ConnRef) ListenPort() uint16 {
	return r.mgr.ListenAddr().Port
}

// StartRead starts reading from the connection.
func (r ConnRef) StartRead() error {
	return r.mgr.StartRead(r)
}

// Send queues buf for writing. The caller must not modify buf afterwards.
func (r ConnRef) Send(buf []byte) error {
	return r.mgr.Send(r, buf)
}

// Close closes the connection with the given code.
func (r ConnRef) Close(code errcode.Code) error {
	return r.mgr.Close(r, code)
}

// String returns the direction and peer of the connection.
func (r ConnRef) String() string {
	return connString(r.inbound, r.peer)
}
