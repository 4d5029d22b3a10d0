// Package endpoint defines the IPv4 address and port pair that identifies a
// peer socket.
package endpoint

import (
	"cmp"
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// IPv4 is an IPv4 address in host byte order.
type IPv4 uint32

// NewIPv4 builds an address from its four dotted-quad octets.
func NewIPv4(a, b, c, d byte) IPv4 {
	return IPv4(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d))
}

// Octets returns the four octets of the address, most significant first.
func (ip IPv4) Octets() [4]byte {
	return [4]byte{
		byte(ip >> 24), byte(ip >> 16), byte(ip >> 8), byte(ip),
	}
}

// String returns the dotted-quad form of the address.
func (ip IPv4) String() string {
	o := ip.Octets()
	return fmt.Sprintf("%d.%d.%d.%d", o[0], o[1], o[2], o[3])
}

// Address identifies a peer by IPv4 address and TCP port. It is a plain value:
// copy it freely, compare it with ==.
type Address struct {
	IP   IPv4
	Port uint16
}

// New returns the address for the given ip and port.
func New(ip IPv4, port uint16) Address {
	return Address{IP: ip, Port: port}
}

// String returns the canonical "a.b.c.d:port" form, which Parse accepts.
func (a Address) String() string {
	return a.IP.String() + ":" + strconv.FormatUint(uint64(a.Port), 10)
}

// AddrPort returns the address as a netip.AddrPort.
func (a Address) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(netip.AddrFrom4(a.IP.Octets()), a.Port)
}

// TCPAddr returns the socket address used to bind or dial this endpoint.
func (a Address) TCPAddr() *net.TCPAddr {
	return net.TCPAddrFromAddrPort(a.AddrPort())
}

// Network returns "tcp4". Together with String it lets an Address be used
// wherever a net.Addr is expected.
func (a Address) Network() string {
	return "tcp4"
}

// A compile-time check to ensure Address implements net.Addr.
var _ net.Addr = Address{}

// Compare orders addresses by ip, then port. It returns -1, 0 or +1.
func Compare(a, b Address) int {
	if c := cmp.Compare(a.IP, b.IP); c != 0 {
		return c
	}

	return cmp.Compare(a.Port, b.Port)
}

// Less reports whether a sorts before b.
func (a Address) Less(b Address) bool {
	return Compare(a, b) < 0
}

// FromAddrPort converts an IPv4 netip.AddrPort. IPv6 addresses, including
// IPv4-mapped ones, yield None.
func FromAddrPort(ap netip.AddrPort) fn.Option[Address] {
	addr := ap.Addr()
	if !addr.Is4() {
		return fn.None[Address]()
	}

	o := addr.As4()
	return fn.Some(New(NewIPv4(o[0], o[1], o[2], o[3]), ap.Port()))
}

// FromNetAddr extracts the IPv4 endpoint of a socket address. Anything that is
// not a TCP socket of the IPv4 family yields None.
func FromNetAddr(addr net.Addr) fn.Option[Address] {
	switch a := addr.(type) {
	case Address:
		return fn.Some(a)

	case *net.TCPAddr:
		if a == nil {
			return fn.None[Address]()
		}

		return FromAddrPort(a.AddrPort())

	default:
		return fn.None[Address]()
	}
}
