package conman

import (
	"errors"
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/nodewire/p2pd/endpoint"
	"github.com/nodewire/p2pd/errcode"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxWriteQueue is the default number of bytes that may be
	// queued for writing on a single connection before it is dropped.
	DefaultMaxWriteQueue = 4 * 1024 * 1024

	// DefaultDialTimeout is the default time allowed for an outbound
	// connection attempt.
	DefaultDialTimeout = 10 * time.Second

	// DefaultStatsInterval is the default interval at which connection
	// counts are logged.
	DefaultStatsInterval = time.Minute

	// DefaultRecentCloses is the number of recent connection closures
	// kept for inspection.
	DefaultRecentCloses = 32

	// acceptRetryDelay is how long the accept goroutine pauses after an
	// accept error that did not close the listener.
	acceptRetryDelay = 5 * time.Millisecond

	// eventBacklog bounds the number of socket events waiting for the
	// loop. Readers block once it is full.
	eventBacklog = 256
)

// PeerServer is the collaborator that decides what to do with new sockets.
// Both methods are called on the loop goroutine and must not block.
type PeerServer interface {
	// Authenticate is called for every accepted inbound connection. The
	// connection is open but not reading; the server is expected to call
	// StartRead or Close on it.
	Authenticate(ref ConnRef)

	// OnFailedConnect is called when an outbound attempt to addr could
	// not be established. The code is never errcode.OK.
	OnFailedConnect(addr endpoint.Address, code errcode.Code)
}

// Handler receives connection level events. All methods run on the loop
// goroutine, in the order the underlying socket events occurred, and never
// concurrently for the same connection.
type Handler interface {
	// OnConnected is called once a connection starts reading.
	OnConnected(ref ConnRef)

	// OnMessage is called with each chunk of bytes read from the peer.
	// The slice is only valid for the duration of the call.
	OnMessage(ref ConnRef, msg []byte)

	// OnClose is called exactly once when a connection is closed.
	OnClose(ref ConnRef, code errcode.Code)
}

// Config houses the parameters of a Manager.
type Config struct {
	// Bind is the local endpoint the manager listens on.
	Bind endpoint.Address

	// Isolated refuses every inbound connection as soon as it is
	// accepted. Outbound connects still work.
	Isolated bool

	// PeerServer authenticates inbound connections and is told about
	// failed outbound attempts.
	PeerServer PeerServer

	// Handler receives connection events. If nil, events are dropped.
	Handler Handler

	// MaxWriteQueue is the maximum number of bytes queued for writing
	// on a single connection. A send that would exceed it closes the
	// connection with errcode.BufferFull.
	MaxWriteQueue int

	// DialTimeout bounds each outbound connection attempt.
	DialTimeout time.Duration

	// AcceptRate limits the number of inbound connections accepted per
	// second. Zero means no limit.
	AcceptRate rate.Limit

	// AcceptBurst is the burst size for AcceptRate.
	AcceptBurst int

	// StatsTicker drives the periodic connection count log line.
	StatsTicker ticker.Ticker

	// Clock is used to timestamp connections.
	Clock clock.Clock

	// Registerer, if set, is where the manager's metrics are registered.
	Registerer prometheus.Registerer

	// RecentCloses is the number of closed connections remembered for
	// Inspect.
	RecentCloses int
}

// validate checks the config and fills in defaults for unset fields.
func (c *Config) validate() error {
	if c.PeerServer == nil {
		return errors.New("a peer server is required")
	}
	if c.MaxWriteQueue < 0 {
		return fmt.Errorf("invalid max write queue: %d",
			c.MaxWriteQueue)
	}
	if c.AcceptRate < 0 || c.AcceptBurst < 0 {
		return fmt.Errorf("invalid accept rate: %v/%d", c.AcceptRate,
			c.AcceptBurst)
	}

	if c.MaxWriteQueue == 0 {
		c.MaxWriteQueue = DefaultMaxWriteQueue
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.AcceptRate > 0 && c.AcceptBurst == 0 {
		c.AcceptBurst = 1
	}
	if c.StatsTicker == nil {
		c.StatsTicker = ticker.New(DefaultStatsInterval)
	}
	if c.Clock == nil {
		c.Clock = clock.NewDefaultClock()
	}
	if c.RecentCloses <= 0 {
		c.RecentCloses = DefaultRecentCloses
	}
	if c.Handler == nil {
		c.Handler = noopHandler{}
	}

	return nil
}

// noopHandler discards all connection events.
type noopHandler struct{}

func (noopHandler) OnConnected(ConnRef) {}
func (noopHandler) OnMessage(ConnRef, []byte) {}
func (noopHandler) OnClose(ConnRef, errcode.Code) {}
