package conman

import (
	"net"

	"github.com/nodewire/p2pd/buffer"
	"github.com/nodewire/p2pd/endpoint"
)

// socketEvent is something that happened on a socket, reported to the loop
// by one of the accept, dial, reader or writer goroutines.
type socketEvent interface {
	isSocketEvent()
}

// acceptEvent carries a newly accepted inbound socket.
type acceptEvent struct {
	conn net.Conn
}

// acceptDoneEvent reports that the accept goroutine has exited.
type acceptDoneEvent struct {
	err error
}

// dataEvent carries bytes read from a connection. The loop returns buf to the
// read pool after handing it to the handler.
type dataEvent struct {
	conn *Connection
	buf  *buffer.Read
	n    int
}

// endEvent reports that the peer closed its side of the connection.
type endEvent struct {
	conn *Connection
}

// errorEvent reports a failed read or write.
type errorEvent struct {
	conn *Connection
	err  error
}

// closedEvent reports that both goroutines of a closing connection exited.
// It is always the last event posted for a connection.
type closedEvent struct {
	conn *Connection
}

// dialResultEvent carries the outcome of an outbound connection attempt.
// Exactly one of conn and err is set.
type dialResultEvent struct {
	addr endpoint.Address
	conn net.Conn
	err  error
}

func (acceptEvent) isSocketEvent()     {}
func (acceptDoneEvent) isSocketEvent() {}
func (dataEvent) isSocketEvent()       {}
func (endEvent) isSocketEvent()        {}
func (errorEvent) isSocketEvent()      {}
func (closedEvent) isSocketEvent()     {}
func (dialResultEvent) isSocketEvent() {}
