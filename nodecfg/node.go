package nodecfg

import (
	"fmt"
	"time"

	"github.com/nodewire/p2pd/endpoint"
)

const (
	// DefaultBind is the default P2P listen endpoint.
	DefaultBind = "0.0.0.0:9186"

	// DefaultMaxWriteQueue is the default per connection write queue
	// limit in bytes.
	DefaultMaxWriteQueue = 4 * 1024 * 1024

	// DefaultDialTimeout is the default timeout of an outbound connect.
	DefaultDialTimeout = 10 * time.Second

	// DefaultStatsInterval is the default interval between connection
	// count log lines.
	DefaultStatsInterval = time.Minute

	// DefaultAcceptBurst is the default accept burst when an accept rate
	// is configured.
	DefaultAcceptBurst = 8
)

// Node holds the configuration of the P2P connection manager.
//
//nolint:ll
type Node struct {
	Bind string `long:"bind" description:"The IPv4 endpoint to accept peer connections on, in a.b.c.d:port form"`

	Isolated bool `long:"isolated" description:"Refuse every inbound connection. Outbound connections are still made"`

	Connect []string `long:"connect" description:"Connect to this peer on startup; can be specified multiple times"`

	MaxWriteQueue int `long:"maxwritequeue" description:"The maximum number of bytes queued for a single peer before it is disconnected"`

	DialTimeout time.Duration `long:"dialtimeout" description:"The timeout of an outbound connection attempt"`

	AcceptRate float64 `long:"acceptrate" description:"The maximum number of inbound connections accepted per second; 0 means unlimited"`

	AcceptBurst int `long:"acceptburst" description:"The number of inbound connections that may be accepted in a burst above acceptrate"`

	StatsInterval time.Duration `long:"statsinterval" description:"The interval at which connection counts are logged"`
}

// DefaultNode returns the default node configuration.
func DefaultNode() *Node {
	return &Node{
		Bind:          DefaultBind,
		MaxWriteQueue: DefaultMaxWriteQueue,
		DialTimeout:   DefaultDialTimeout,
		AcceptBurst:   DefaultAcceptBurst,
		StatsInterval: DefaultStatsInterval,
	}
}

// Validate checks the node configuration and returns the parsed bind
// endpoint and connect targets.
func (n *Node) Validate() (endpoint.Address, []endpoint.Address, error) {
	bind, err := endpoint.Parse(n.Bind)
	if err != nil {
		return endpoint.Address{}, nil, fmt.Errorf("node.bind: %w", err)
	}

	targets := make([]endpoint.Address, 0, len(n.Connect))
	for _, target := range n.Connect {
		addr, err := endpoint.Parse(target)
		if err != nil {
			return endpoint.Address{}, nil, fmt.Errorf("node.connect: "+
				"%w", err)
		}
		targets = append(targets, addr)
	}

	switch {
	case n.MaxWriteQueue <= 0:
		return endpoint.Address{}, nil, fmt.Errorf("node.maxwritequeue "+
			"must be positive, got %d", n.MaxWriteQueue)

	case n.DialTimeout <= 0:
		return endpoint.Address{}, nil, fmt.Errorf("node.dialtimeout "+
			"must be positive, got %v", n.DialTimeout)

	case n.AcceptRate < 0:
		return endpoint.Address{}, nil, fmt.Errorf("node.acceptrate "+
			"must not be negative, got %v", n.AcceptRate)

	case n.AcceptBurst < 0:
		return endpoint.Address{}, nil, fmt.Errorf("node.acceptburst "+
			"must not be negative, got %d", n.AcceptBurst)

	case n.StatsInterval <= 0:
		return endpoint.Address{}, nil, fmt.Errorf("node.statsinterval "+
			"must be positive, got %v", n.StatsInterval)
	}

	return bind, targets, nil
}
