// Package errcode defines the symbolic error codes recorded when a peer
// connection is closed or an outbound connect fails.
package errcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// Code identifies why a connection ended. The zero value means no error.
type Code int32

const (
	// OK is the absence of an error.
	OK Code = iota

	// EOF means the remote end closed its side of the connection.
	EOF

	// BufferFull means the outbound write queue overflowed and the peer
	// was disconnected.
	BufferFull

	// Shutdown means the local node is shutting down.
	Shutdown

	// ConnRefused means the remote host refused the connection.
	ConnRefused

	// ConnReset means the connection was reset by the peer.
	ConnReset

	// ConnAborted means the connection was aborted locally.
	ConnAborted

	// TimedOut means the operation timed out.
	TimedOut

	// HostUnreachable means no route to the remote host exists.
	HostUnreachable

	// NetUnreachable means the remote network is unreachable.
	NetUnreachable

	// BrokenPipe means a write hit a connection already closed by the peer.
	BrokenPipe

	// AddrInUse means the local address is already in use.
	AddrInUse

	// AddrNotAvail means the local address cannot be assigned.
	AddrNotAvail

	// Canceled means the operation was canceled before completing.
	Canceled

	// Closed means the socket was used after being closed.
	Closed

	// Unknown is any error without a more specific code.
	Unknown
)

// info holds the symbolic name and description of a code.
type info struct {
	name string
	desc string
}

var codeInfo = map[Code]info{
	OK:              {"OK", "no error"},
	EOF:             {"EOF", "end of file"},
	BufferFull:      {"EBUFFERFULL", "write buffer full"},
	Shutdown:        {"ESHUTDOWN", "node is shutting down"},
	ConnRefused:     {"ECONNREFUSED", "connection refused"},
	ConnReset:       {"ECONNRESET", "connection reset by peer"},
	ConnAborted:     {"ECONNABORTED", "software caused connection abort"},
	TimedOut:        {"ETIMEDOUT", "connection timed out"},
	HostUnreachable: {"EHOSTUNREACH", "host is unreachable"},
	NetUnreachable:  {"ENETUNREACH", "network is unreachable"},
	BrokenPipe:      {"EPIPE", "broken pipe"},
	AddrInUse:       {"EADDRINUSE", "address already in use"},
	AddrNotAvail:    {"EADDRNOTAVAIL", "address not available"},
	Canceled:        {"ECANCELED", "operation canceled"},
	Closed:          {"ECLOSED", "use of closed connection"},
	Unknown:         {"UNKNOWN", "unknown error"},
}

// Name returns the symbolic name of the code, e.g. "ECONNRESET".
func (c Code) Name() string {
	if i, ok := codeInfo[c]; ok {
		return i.name
	}

	return fmt.Sprintf("E%d", int32(c))
}

// Description returns a human readable description of the code.
func (c Code) Description() string {
	if i, ok := codeInfo[c]; ok {
		return i.desc
	}

	return "unrecognized error code"
}

// String returns the symbolic name of the code.
func (c Code) String() string {
	return c.Name()
}

// Error wraps a Code so it can travel as an error.
type Error struct {
	Code Code

	// Err is the underlying error, if any.
	Err error
}

// Error returns the human readable version of this error type.
//
// NOTE: Part of the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Code.Name(), e.Err)
	}

	return fmt.Sprintf("%v: %v", e.Code.Name(), e.Code.Description())
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns err annotated with the code derived from it. A nil err stays
// nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}

	return &Error{Code: FromError(err), Err: err}
}

// errnoCodes maps the errno values a socket may report to codes.
var errnoCodes = map[syscall.Errno]Code{
	syscall.ECONNREFUSED:  ConnRefused,
	syscall.ECONNRESET:    ConnReset,
	syscall.ECONNABORTED:  ConnAborted,
	syscall.ETIMEDOUT:     TimedOut,
	syscall.EHOSTUNREACH:  HostUnreachable,
	syscall.ENETUNREACH:   NetUnreachable,
	syscall.EPIPE:         BrokenPipe,
	syscall.EADDRINUSE:    AddrInUse,
	syscall.EADDRNOTAVAIL: AddrNotAvail,
}

// FromError maps an error returned by the net package, or by this module, to
// a code. It returns OK for nil and Unknown for errors it does not recognize.
func FromError(err error) Code {
	if err == nil {
		return OK
	}

	var codeErr *Error
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if code, ok := errnoCodes[errno]; ok {
			return code
		}

		return Unknown
	}

	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return EOF

	case errors.Is(err, context.Canceled):
		return Canceled

	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, os.ErrDeadlineExceeded):

		return TimedOut

	case errors.Is(err, net.ErrClosed):
		return Closed
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TimedOut
	}

	return Unknown
}
