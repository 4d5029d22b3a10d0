package conman

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/queue"
	"github.com/nodewire/p2pd/endpoint"
	"github.com/nodewire/p2pd/errcode"
	"github.com/nodewire/p2pd/pool"
	"golang.org/x/time/rate"
)

var (
	// ErrShuttingDown is returned for commands submitted after the
	// manager stopped accepting them.
	ErrShuttingDown = errors.New("connection manager is shutting down")
)

// Manager owns every peer socket of the node. All connection state lives on a
// single loop goroutine; other goroutines interact with it by submitting
// commands, and the goroutines doing socket I/O only report events to it.
type Manager struct {
	started atomic.Bool
	stopped atomic.Bool

	cfg *Config

	queue  *eventQueue
	events chan socketEvent

	// listenAddr is set by Start before any goroutine is launched.
	listenAddr endpoint.Address

	listener     net.Listener
	limiter      *rate.Limiter
	acceptCtx    context.Context
	cancelAccept context.CancelFunc

	readPool *pool.ReadBuffer
	metrics  *metrics

	// The fields below are owned by the loop goroutine.
	conns        *connSet
	nextID       ConnID
	closing      bool
	accepting    bool
	pendingDials int
	dials        *fn.GoroutineManager
	recentCloses *queue.CircularBuffer

	// shuttingDown is closed once shutdown begins, quit once the loop
	// has exited.
	shuttingDown chan struct{}
	quit         chan struct{}
	wg           sync.WaitGroup
}

// New creates a connection manager. It does not touch the network until
// Start is called.
func New(cfg *Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	recent, err := queue.NewCircularBuffer(cfg.RecentCloses)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.AcceptRate > 0 {
		limiter = rate.NewLimiter(cfg.AcceptRate, cfg.AcceptBurst)
	}

	acceptCtx, cancelAccept := context.WithCancel(context.Background())

	return &Manager{
		cfg:          cfg,
		queue:        newEventQueue(),
		events:       make(chan socketEvent, eventBacklog),
		listenAddr:   cfg.Bind,
		limiter:      limiter,
		acceptCtx:    acceptCtx,
		cancelAccept: cancelAccept,
		readPool: pool.NewReadBuffer(
			pool.DefaultReadBufferGCInterval,
			pool.DefaultReadBufferExpiryInterval,
		),
		metrics:      newMetrics(cfg.Registerer),
		conns:        newConnSet(),
		dials:        fn.NewGoroutineManager(),
		recentCloses: recent,
		shuttingDown: make(chan struct{}),
		quit:         make(chan struct{}),
	}, nil
}

// Start binds the listener and launches the accept and loop goroutines. A
// bind failure is returned as an error carrying its errcode. Calling Start
// again once it succeeded is a no-op.
func (m *Manager) Start() error {
	if m.queue.isClosed() {
		return ErrShuttingDown
	}
	if !m.started.CompareAndSwap(false, true) {
		return nil
	}

	log.Infof("P2P endpoint is %v.", m.cfg.Bind)

	lis, err := net.ListenTCP("tcp4", m.cfg.Bind.TCPAddr())
	if err != nil {
		m.started.Store(false)

		return fmt.Errorf("cannot start connection manager: %w",
			errcode.Wrap(err))
	}

	m.listener = lis
	m.listenAddr = endpoint.FromNetAddr(lis.Addr()).UnwrapOr(m.cfg.Bind)
	m.accepting = true

	if m.cfg.Isolated {
		log.Infof("Isolated mode: refusing inbound connections")
	}

	m.cfg.StatsTicker.Resume()

	m.wg.Add(2)
	go m.acceptHandler(lis)
	go m.eventLoop()

	return nil
}

// Stop shuts the manager down with errcode.Shutdown and waits until every
// connection is closed and every goroutine has exited.
func (m *Manager) Stop() error {
	if !m.stopped.CompareAndSwap(false, true) {
		return nil
	}

	log.Info("Connection manager shutting down...")

	m.Shutdown(errcode.Shutdown)

	if !m.started.Load() {
		m.queue.close()
		m.cancelAccept()
		m.cfg.StatsTicker.Stop()
		m.dials.Stop()

		return nil
	}

	m.wg.Wait()

	return nil
}

// Shutdown asks the loop to close the listener, cancel outbound attempts and
// close every connection with reason. It returns immediately; Done is closed
// once the loop has exited. Calling it more than once has no further
// effect.
func (m *Manager) Shutdown(reason errcode.Code) {
	if !m.queue.push(shutdownCmd{reason: reason}) {
		log.Tracef("Shutdown(%v) ignored, already shutting down",
			reason)
	}
}

// Done returns a channel that is closed once the loop has exited.
func (m *Manager) Done() <-chan struct{} {
	return m.quit
}

// ListenAddr returns the endpoint the manager is bound to. After Start it
// reflects the port chosen by the OS when binding to port 0.
func (m *Manager) ListenAddr() endpoint.Address {
	return m.listenAddr
}

// submit hands cmd to the loop.
func (m *Manager) submit(cmd command) error {
	if !m.queue.push(cmd) {
		return ErrShuttingDown
	}

	return nil
}

// GetPeers delivers a snapshot of every open connection to cb, in the order
// the connections were established. cb runs on the loop goroutine.
func (m *Manager) GetPeers(cb func([]PeerInfo)) error {
	return m.submit(getPeersCmd{cb: cb})
}

// Peers is the blocking form of GetPeers.
func (m *Manager) Peers(ctx context.Context) ([]PeerInfo, error) {
	result := make(chan []PeerInfo, 1)

	err := m.GetPeers(func(peers []PeerInfo) {
		result <- peers
	})
	if err != nil {
		return nil, err
	}

	select {
	case peers := <-result:
		return peers, nil

	case <-m.shuttingDown:
		select {
		case peers := <-result:
			return peers, nil
		default:
			return nil, ErrShuttingDown
		}

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Connect starts an outbound connection attempt to addr. Failure is reported
// through PeerServer.OnFailedConnect; success inserts the connection and
// starts reading from it.
func (m *Manager) Connect(addr endpoint.Address) error {
	return m.submit(connectCmd{addr: addr})
}

// Inspect runs cb on the loop goroutine with a view of its state. The State
// must not be used after cb returns.
func (m *Manager) Inspect(cb func(*State)) error {
	return m.submit(inspectCmd{cb: cb})
}

// Defer runs cb on the loop goroutine.
func (m *Manager) Defer(cb func()) error {
	return m.submit(deferCmd{cb: cb})
}

// StartRead starts reading from the connection.
func (m *Manager) StartRead(ref ConnRef) error {
	return m.submit(startReadCmd{id: ref.id})
}

// Send queues buf for writing on the connection.
func (m *Manager) Send(ref ConnRef, buf []byte) error {
	return m.submit(sendCmd{id: ref.id, buf: buf})
}

// Close closes the connection with code.
func (m *Manager) Close(ref ConnRef, code errcode.Code) error {
	return m.submit(closeCmd{id: ref.id, code: code})
}

// post reports a socket event to the loop. The loop does not exit while any
// goroutine that could still post is alive, so this never blocks forever.
func (m *Manager) post(ev socketEvent) {
	m.events <- ev
}

// acceptHandler accepts inbound sockets until the listener is closed.
//
// NOTE: This method MUST be run as a goroutine.
func (m *Manager) acceptHandler(lis net.Listener) {
	defer m.wg.Done()

	for {
		if m.limiter != nil {
			if err := m.limiter.Wait(m.acceptCtx); err != nil {
				m.post(acceptDoneEvent{err: err})
				return
			}
		}

		conn, err := lis.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				m.post(acceptDoneEvent{err: err})
				return
			}

			log.Errorf("Unable to accept connection: %v", err)

			select {
			case <-time.After(acceptRetryDelay):
			case <-m.acceptCtx.Done():
			}

			continue
		}

		m.post(acceptEvent{conn: conn})
	}
}

// eventLoop is the goroutine that owns all connection state. It exits once
// shutdown has begun and nothing remains that could post an event.
//
// NOTE: This method MUST be run as a goroutine.
func (m *Manager) eventLoop() {
	defer m.wg.Done()
	defer close(m.quit)

	for !m.finished() {
		select {
		case <-m.queue.wakeup():
			m.runCommands()

		case ev := <-m.events:
			// Commands enqueued before this event was observed
			// run first.
			m.runCommands()
			m.handleEvent(ev)

		case <-m.cfg.StatsTicker.Ticks():
			m.logStats()
		}
	}

	log.Infof("Connection manager stopped")
}

// finished reports whether the loop may exit.
func (m *Manager) finished() bool {
	return m.closing && !m.accepting && m.pendingDials == 0 &&
		m.conns.len() == 0
}

// runCommands executes every pending command in enqueue order.
func (m *Manager) runCommands() {
	for _, cmd := range m.queue.drain() {
		m.metrics.commands.Inc()
		m.execute(cmd)
	}
}

// execute runs a single command on the loop.
func (m *Manager) execute(cmd command) {
	switch cmd := cmd.(type) {
	case getPeersCmd:
		cmd.cb(m.snapshot())

	case connectCmd:
		m.connect(cmd.addr)

	case inspectCmd:
		cmd.cb(&State{m: m})

	case deferCmd:
		cmd.cb()

	case startReadCmd:
		if c, ok := m.conns.get(cmd.id); ok {
			c.startRead()
		}

	case sendCmd:
		if c, ok := m.conns.get(cmd.id); ok {
			c.send(cmd.buf)
		}

	case closeCmd:
		if c, ok := m.conns.get(cmd.id); ok {
			c.close(cmd.code)
		}

	case shutdownCmd:
		m.shutdown(cmd.reason)

	default:
		log.Errorf("Unknown command type: %T", cmd)
	}
}

// handleEvent dispatches a socket event.
func (m *Manager) handleEvent(ev socketEvent) {
	switch ev := ev.(type) {
	case acceptEvent:
		m.handleAccept(ev.conn)

	case acceptDoneEvent:
		m.accepting = false
		if !m.closing {
			log.Errorf("Accept loop exited: %v", ev.err)
		}

	case dataEvent:
		if ev.conn.state == stateOpen {
			m.cfg.Handler.OnMessage(ev.conn.ref(), ev.buf[:ev.n])
		}
		m.readPool.Return(ev.buf)

	case endEvent:
		ev.conn.close(errcode.EOF)

	case errorEvent:
		ev.conn.close(errcode.FromError(ev.err))

	case closedEvent:
		c := ev.conn
		c.state = stateClosed
		if m.conns.remove(c.id) {
			m.metrics.connRemoved(c.inbound)
		}

	case dialResultEvent:
		m.handleDialResult(ev)

	default:
		log.Errorf("Unknown socket event type: %T", ev)
	}
}

// handleAccept registers an inbound socket and hands it to the peer server.
// Sockets that are not IPv4 are dropped without a trace.
func (m *Manager) handleAccept(conn net.Conn) {
	peer := endpoint.FromNetAddr(conn.RemoteAddr())
	if peer.IsNone() {
		conn.Close()
		return
	}

	if m.closing {
		conn.Close()
		return
	}

	m.metrics.accepted.Inc()

	addr := peer.UnwrapOr(endpoint.Address{})
	if m.cfg.Isolated {
		log.Debugf("Refusing inbound connection from %v", addr)

		m.metrics.refused.Inc()
		conn.Close()

		return
	}

	c := m.addConnection(conn, addr, true)
	m.cfg.PeerServer.Authenticate(c.ref())
}

// connect launches an outbound attempt to addr.
func (m *Manager) connect(addr endpoint.Address) {
	if m.closing {
		m.failConnect(addr, errcode.Shutdown)
		return
	}

	log.Debugf("Connecting to %v", addr)

	timeout := m.cfg.DialTimeout
	ok := m.dials.Go(context.Background(), func(ctx context.Context) {
		dialer := net.Dialer{Timeout: timeout}
		conn, err := dialer.DialContext(ctx, "tcp4", addr.String())
		m.post(dialResultEvent{addr: addr, conn: conn, err: err})
	})
	if !ok {
		m.failConnect(addr, errcode.Shutdown)
		return
	}

	m.pendingDials++
}

// handleDialResult inserts a successful outbound connection or reports the
// failure.
func (m *Manager) handleDialResult(ev dialResultEvent) {
	m.pendingDials--

	if ev.err != nil {
		code := errcode.FromError(ev.err)
		log.Debugf("Unable to connect to %v: %v", ev.addr, ev.err)

		m.failConnect(ev.addr, code)

		return
	}

	if m.closing {
		ev.conn.Close()
		return
	}

	c := m.addConnection(ev.conn, ev.addr, false)
	c.startRead()
}

// failConnect reports a failed outbound attempt.
func (m *Manager) failConnect(addr endpoint.Address, code errcode.Code) {
	if code == errcode.OK {
		code = errcode.Unknown
	}

	m.metrics.dialFailed(code)
	m.cfg.PeerServer.OnFailedConnect(addr, code)
}

// addConnection wraps conn and inserts it into the set.
func (m *Manager) addConnection(conn net.Conn, peer endpoint.Address,
	inbound bool) *Connection {

	m.nextID++
	c := newConnection(m, m.nextID, conn, peer, inbound)

	m.conns.insert(c)
	m.metrics.connOpened(inbound)

	log.Debugf("New connection %v", c)

	return c
}

// connClosing records the closure of c and notifies the handler.
func (m *Manager) connClosing(c *Connection, code errcode.Code) {
	m.metrics.connClosed(code)
	m.recentCloses.Add(CloseRecord{
		Peer:    c.peer,
		Inbound: c.inbound,
		Code:    code,
		Time:    m.cfg.Clock.Now(),
	})

	m.cfg.Handler.OnClose(c.ref(), code)
}

// snapshot lists every open connection.
func (m *Manager) snapshot() []PeerInfo {
	peers := make([]PeerInfo, 0, m.conns.len())
	m.conns.each(func(c *Connection) bool {
		if c.state == stateOpen {
			peers = append(peers, PeerInfo{
				Peer:      c.peer,
				Inbound:   c.inbound,
				CreatedAt: c.createdAt,
			})
		}

		return true
	})

	return peers
}

// shutdown closes the queue, the listener, pending dials and every
// connection. The loop keeps running until they have all finished.
func (m *Manager) shutdown(reason errcode.Code) {
	if m.closing {
		return
	}
	m.closing = true
	close(m.shuttingDown)

	log.Infof("Closing %d connections: %v", m.conns.len(), reason)

	m.queue.close()
	m.cancelAccept()

	if m.listener != nil {
		if err := m.listener.Close(); err != nil {
			log.Debugf("Listener close: %v", err)
		}
	}

	// Stopping the dial manager waits for the dial goroutines, which
	// need the loop to deliver their results.
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.dials.Stop()
	}()

	m.conns.each(func(c *Connection) bool {
		c.close(reason)
		return true
	})

	m.cfg.StatsTicker.Stop()
}

// logStats logs the current connection counts.
func (m *Manager) logStats() {
	log.Infof("Connections: %d inbound, %d outbound, %d dials pending",
		m.conns.inbound, m.conns.outbound, m.pendingDials)
}
