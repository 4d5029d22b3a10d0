package endpoint

import (
	"net"
	"net/netip"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestParse checks well formed and malformed inputs against Parse.
func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		valid  bool
		expect Address
	}{
		{
			input:  "127.0.0.1:9186",
			valid:  true,
			expect: New(NewIPv4(127, 0, 0, 1), 9186),
		},
		{
			input:  "0.0.0.0:0",
			valid:  true,
			expect: New(0, 0),
		},
		{
			input:  "255.255.255.255:65535",
			valid:  true,
			expect: New(NewIPv4(255, 255, 255, 255), 65535),
		},
		{input: "999.1.1.1:70000"},
		{input: "1.1.1.1:70000"},
		{input: "256.0.0.1:80"},
		{input: "nope"},
		{input: ""},
		{input: ":80"},
		{input: "1.2.3.4"},
		{input: "1.2.3.4:"},
		{input: "1.2.3:80"},
		{input: "1.2.3.4.5:80"},
		{input: "01.2.3.4:80"},
		{input: "1.2.3.4:080"},
		{input: "1.2.3.4:-1"},
		{input: "1.2.3.4:+80"},
		{input: " 1.2.3.4:80"},
		{input: "1.2.3.4:80 "},
		{input: "[::1]:80"},
		{input: "::ffff:1.2.3.4:80"},
		{input: "a.b.c.d:80"},
		{input: "1..3.4:80"},
	}

	for _, test := range tests {
		addr, err := Parse(test.input)
		if !test.valid {
			require.Error(t, err, "input %q", test.input)

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			require.Equal(t, test.input, parseErr.Input)
			continue
		}

		require.NoError(t, err, "input %q", test.input)
		require.Equal(t, test.expect, addr)
		require.Equal(t, test.input, addr.String())
	}
}

// TestParseRoundTrip asserts that for every endpoint the canonical string form
// parses back to the same value.
func TestParseRoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		addr := New(
			IPv4(rapid.Uint32().Draw(t, "ip")),
			rapid.Uint16().Draw(t, "port"),
		)

		parsed, err := Parse(addr.String())
		if err != nil {
			t.Fatalf("unable to parse %v: %v", addr, err)
		}
		if parsed != addr {
			t.Fatalf("round trip mismatch: %v != %v", parsed, addr)
		}

		again, err := Parse(parsed.String())
		if err != nil || again != parsed {
			t.Fatalf("second round trip mismatch: %v", again)
		}
	})
}

// TestParseNeverPanics feeds arbitrary strings into Parse. Whatever it returns,
// a successful parse must be canonical.
func TestParseNeverPanics(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		s := rapid.OneOf(
			rapid.String(),
			rapid.StringMatching(`[0-9.:]{0,24}`),
		).Draw(t, "input")

		addr, err := Parse(s)
		if err != nil {
			return
		}
		if addr.String() != s {
			t.Fatalf("accepted non-canonical input %q as %v", s, addr)
		}
	})
}

// TestOrdering checks Compare orders by ip first, then port.
func TestOrdering(t *testing.T) {
	t.Parallel()

	addrs := []Address{
		MustParse("10.0.0.1:2"),
		MustParse("9.255.255.255:65535"),
		MustParse("10.0.0.1:1"),
		MustParse("10.0.0.0:9"),
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Less(addrs[j])
	})

	require.Equal(t, []Address{
		MustParse("9.255.255.255:65535"),
		MustParse("10.0.0.0:9"),
		MustParse("10.0.0.1:1"),
		MustParse("10.0.0.1:2"),
	}, addrs)

	require.Zero(t, Compare(addrs[0], addrs[0]))
}

// TestSocketAddress checks the conversions to and from OS level addresses.
func TestSocketAddress(t *testing.T) {
	t.Parallel()

	addr := MustParse("192.168.1.20:9186")

	tcpAddr := addr.TCPAddr()
	require.Equal(t, 9186, tcpAddr.Port)
	require.True(t, tcpAddr.IP.Equal(net.IPv4(192, 168, 1, 20)))
	require.Equal(t, "192.168.1.20:9186", tcpAddr.String())

	got := FromNetAddr(tcpAddr)
	require.True(t, got.IsSome())
	require.Equal(t, addr, got.UnwrapOr(Address{}))

	// IPv6 peers, mapped or not, are not IPv4 endpoints.
	v6 := &net.TCPAddr{IP: net.IPv6loopback, Port: 80}
	require.True(t, FromNetAddr(v6).IsNone())

	mapped := net.TCPAddrFromAddrPort(netip.MustParseAddrPort(
		"[::ffff:1.2.3.4]:80",
	))
	require.True(t, FromNetAddr(mapped).IsNone())

	unix := &net.UnixAddr{Name: "/tmp/sock", Net: "unix"}
	require.True(t, FromNetAddr(unix).IsNone())

	var nilAddr *net.TCPAddr
	require.True(t, FromNetAddr(nilAddr).IsNone())
}
