package conman

import (
	"testing"

	"github.com/nodewire/p2pd/endpoint"
	"github.com/stretchr/testify/require"
)

func testConn(id ConnID, inbound bool) *Connection {
	return &Connection{
		id:      id,
		peer:    endpoint.New(endpoint.NewIPv4(10, 0, 0, byte(id)), 9186),
		inbound: inbound,
	}
}

// collect returns the ids in the set in iteration order.
func collect(s *connSet) []ConnID {
	var ids []ConnID
	s.each(func(c *Connection) bool {
		ids = append(ids, c.id)
		return true
	})

	return ids
}

// TestConnSetOrder checks insertion order survives removals from the middle.
func TestConnSetOrder(t *testing.T) {
	t.Parallel()

	s := newConnSet()
	for id := ConnID(1); id <= 5; id++ {
		s.insert(testConn(id, id%2 == 0))
	}
	require.Equal(t, []ConnID{1, 2, 3, 4, 5}, collect(s))
	require.Equal(t, 2, s.inbound)
	require.Equal(t, 3, s.outbound)

	require.True(t, s.remove(3))
	require.True(t, s.remove(1))
	require.Equal(t, []ConnID{2, 4, 5}, collect(s))
	require.Equal(t, 3, s.len())

	s.insert(testConn(6, true))
	require.Equal(t, []ConnID{2, 4, 5, 6}, collect(s))
	require.Equal(t, 3, s.inbound)
	require.Equal(t, 1, s.outbound)

	c, ok := s.get(4)
	require.True(t, ok)
	require.Equal(t, ConnID(4), c.id)

	_, ok = s.get(3)
	require.False(t, ok)
}

// TestConnSetRemoveOnce checks a connection is only ever erased once.
func TestConnSetRemoveOnce(t *testing.T) {
	t.Parallel()

	s := newConnSet()
	s.insert(testConn(1, true))

	require.True(t, s.remove(1))
	require.False(t, s.remove(1))
	require.Zero(t, s.len())
	require.Zero(t, s.inbound)
}

// TestConnSetDuplicateInsert checks inserting the same id twice panics.
func TestConnSetDuplicateInsert(t *testing.T) {
	t.Parallel()

	s := newConnSet()
	s.insert(testConn(1, false))

	require.Panics(t, func() {
		s.insert(testConn(1, false))
	})
}

// TestConnSetEachStops checks iteration stops when the callback says so.
func TestConnSetEachStops(t *testing.T) {
	t.Parallel()

	s := newConnSet()
	for id := ConnID(1); id <= 3; id++ {
		s.insert(testConn(id, true))
	}

	var seen []ConnID
	s.each(func(c *Connection) bool {
		seen = append(seen, c.id)
		return c.id < 2
	})
	require.Equal(t, []ConnID{1, 2}, seen)
}
