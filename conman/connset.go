package conman

import (
	"container/list"
	"fmt"
)

// connSet is the registry of live connections. It keeps insertion order and
// supports constant time insert, lookup and removal by id. It is owned by the
// loop goroutine and is not safe for concurrent use.
type connSet struct {
	order *list.List
	index map[ConnID]*list.Element

	inbound  int
	outbound int
}

// newConnSet returns an empty connection set.
func newConnSet() *connSet {
	return &connSet{
		order: list.New(),
		index: make(map[ConnID]*list.Element),
	}
}

// insert adds c to the end of the set. Inserting the same id twice is a
// programming error and panics.
func (s *connSet) insert(c *Connection) {
	if _, ok := s.index[c.id]; ok {
		panic(fmt.Sprintf("connection %d inserted twice", c.id))
	}

	s.index[c.id] = s.order.PushBack(c)
	if c.inbound {
		s.inbound++
	} else {
		s.outbound++
	}
}

// get returns the connection with the given id, if it is live.
func (s *connSet) get(id ConnID) (*Connection, bool) {
	e, ok := s.index[id]
	if !ok {
		return nil, false
	}

	return e.Value.(*Connection), true
}

// remove erases the connection with the given id. It returns false if the
// connection had already been removed.
func (s *connSet) remove(id ConnID) bool {
	e, ok := s.index[id]
	if !ok {
		return false
	}

	c := s.order.Remove(e).(*Connection)
	delete(s.index, id)

	if c.inbound {
		s.inbound--
	} else {
		s.outbound--
	}

	return true
}

// len returns the number of connections in the set.
func (s *connSet) len() int {
	return s.order.Len()
}

// each calls f for every connection in insertion order until f returns
// false. f may close connections but must not insert or remove them.
func (s *connSet) each(f func(*Connection) bool) {
	for e := s.order.Front(); e != nil; e = e.Next() {
		if !f(e.Value.(*Connection)) {
			return
		}
	}
}
