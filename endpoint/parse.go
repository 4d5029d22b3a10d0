package endpoint

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError is returned when a string is not a valid "ipv4:port" endpoint.
type ParseError struct {
	// Input is the string that failed to parse.
	Input string

	// Reason describes which part of the input is malformed.
	Reason string
}

// Error returns the human readable version of this error type.
//
// NOTE: Part of the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid endpoint %q: %s", e.Input, e.Reason)
}

// Parse parses an endpoint in "a.b.c.d:port" form. Octets are decimal in
// [0, 255] without leading zeros and the port is decimal in [0, 65535].
func Parse(s string) (Address, error) {
	fail := func(reason string) (Address, error) {
		return Address{}, &ParseError{Input: s, Reason: reason}
	}

	host, portStr, ok := strings.Cut(s, ":")
	if !ok {
		return fail("missing port")
	}
	if strings.Contains(portStr, ":") {
		return fail("too many colons")
	}

	ip, err := parseIPv4(host)
	if err != nil {
		return fail(err.Error())
	}

	port, err := parseDecimal(portStr, 5, 65535)
	if err != nil {
		return fail("port " + err.Error())
	}

	return New(ip, uint16(port)), nil
}

// MustParse is like Parse but panics on malformed input. It is meant for
// constants and tests.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return a
}

// parseIPv4 parses a dotted-quad IPv4 address.
func parseIPv4(s string) (IPv4, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, fmt.Errorf("ip must have 4 octets")
	}

	var ip IPv4
	for i, part := range parts {
		octet, err := parseDecimal(part, 3, 255)
		if err != nil {
			return 0, fmt.Errorf("octet %d %v", i+1, err)
		}
		ip = ip<<8 | IPv4(octet)
	}

	return ip, nil
}

// parseDecimal parses an unsigned decimal of at most maxDigits digits that may
// not exceed limit. Signs, whitespace and leading zeros are rejected.
func parseDecimal(s string, maxDigits int, limit uint64) (uint64, error) {
	switch {
	case s == "":
		return 0, fmt.Errorf("is empty")

	case len(s) > maxDigits:
		return 0, fmt.Errorf("%q is too long", s)

	case len(s) > 1 && s[0] == '0':
		return 0, fmt.Errorf("%q has a leading zero", s)
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%q is not a decimal number", s)
		}
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, err)
	}
	if v > limit {
		return 0, fmt.Errorf("%d is out of range", v)
	}

	return v, nil
}
