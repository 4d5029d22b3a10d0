package p2pd

import (
	"github.com/nodewire/p2pd/conman"
	"github.com/nodewire/p2pd/endpoint"
	"github.com/nodewire/p2pd/errcode"
)

// peerServer is the daemon's stand-in for the node's peer layer. It admits
// every inbound connection and logs connection events, leaving the protocol
// to whatever is layered on top.
type peerServer struct{}

// A compile-time check to ensure peerServer implements both collaborator
// interfaces of the connection manager.
var (
	_ conman.PeerServer = (*peerServer)(nil)
	_ conman.Handler    = (*peerServer)(nil)
)

// Authenticate admits the inbound connection by starting to read from it.
func (s *peerServer) Authenticate(ref conman.ConnRef) {
	p2pdLog.Debugf("Admitting %v", ref)

	if err := ref.StartRead(); err != nil {
		p2pdLog.Debugf("Unable to start reading from %v: %v", ref, err)
	}
}

// OnFailedConnect logs the failed outbound attempt.
func (s *peerServer) OnFailedConnect(addr endpoint.Address,
	code errcode.Code) {

	p2pdLog.Warnf("Unable to connect to %v: %v (%v)", addr, code.Name(),
		code.Description())
}

// OnConnected logs the new connection.
func (s *peerServer) OnConnected(ref conman.ConnRef) {
	p2pdLog.Infof("Connected to %v", ref)
}

// OnMessage logs the size of the received chunk.
func (s *peerServer) OnMessage(ref conman.ConnRef, msg []byte) {
	p2pdLog.Tracef("Received %d bytes from %v", len(msg), ref)
}

// OnClose is a no-op; the connection manager already logs every close.
func (s *peerServer) OnClose(conman.ConnRef, errcode.Code) {}
