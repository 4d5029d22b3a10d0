package conman

import (
	"time"

	"github.com/nodewire/p2pd/endpoint"
	"github.com/nodewire/p2pd/errcode"
)

// PeerInfo is a snapshot of one live connection.
type PeerInfo struct {
	// Peer is the remote endpoint.
	Peer endpoint.Address

	// Inbound is true if the peer connected to us.
	Inbound bool

	// CreatedAt is when the connection was established.
	CreatedAt time.Time
}

// CloseRecord describes a connection that was closed recently.
type CloseRecord struct {
	Peer    endpoint.Address
	Inbound bool
	Code    errcode.Code
	Time    time.Time
}

// State is a view of the manager's internals handed to Inspect callbacks. It
// is only valid for the duration of the callback, which runs on the loop
// goroutine.
type State struct {
	m *Manager
}

// Bind returns the endpoint the manager is listening on.
func (s *State) Bind() endpoint.Address {
	return s.m.ListenAddr()
}

// Isolated reports whether inbound connections are refused.
func (s *State) Isolated() bool {
	return s.m.cfg.Isolated
}

// Closing reports whether shutdown has begun.
func (s *State) Closing() bool {
	return s.m.closing
}

// NumConnections returns the number of live inbound and outbound
// connections.
func (s *State) NumConnections() (int, int) {
	return s.m.conns.inbound, s.m.conns.outbound
}

// PendingDials returns the number of outbound attempts in flight.
func (s *State) PendingDials() int {
	return s.m.pendingDials
}

// ForEachConnection calls f for every live connection in the order they were
// established, until f returns false.
func (s *State) ForEachConnection(f func(ConnRef) bool) {
	s.m.conns.each(func(c *Connection) bool {
		if c.state != stateOpen {
			return true
		}

		return f(c.ref())
	})
}

// RecentCloses returns the most recently closed connections, oldest first.
func (s *State) RecentCloses() []CloseRecord {
	items := s.m.recentCloses.List()

	records := make([]CloseRecord, 0, len(items))
	for _, item := range items {
		records = append(records, item.(CloseRecord))
	}

	return records
}
