package conman

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestEventQueueOrder checks that drain returns commands in push order and
// that any number of pushes leaves a single wakeup pending.
func TestEventQueueOrder(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		q := newEventQueue()
		n := rapid.IntRange(0, 200).Draw(t, "n")

		for i := 0; i < n; i++ {
			if !q.push(closeCmd{id: ConnID(i)}) {
				t.Fatalf("push %d refused", i)
			}
		}

		wakeups := len(q.wake)
		if n > 0 && wakeups != 1 {
			t.Fatalf("expected one wakeup, got %d", wakeups)
		}

		cmds := q.drain()
		if len(cmds) != n {
			t.Fatalf("drained %d commands, pushed %d", len(cmds), n)
		}
		for i, cmd := range cmds {
			if cmd.(closeCmd).id != ConnID(i) {
				t.Fatalf("command %d out of order: %v", i, cmd)
			}
		}

		if len(q.drain()) != 0 {
			t.Fatalf("second drain not empty")
		}
	})
}

// TestEventQueueConcurrentPush pushes from several goroutines and checks that
// nothing is lost and every producer's commands keep their relative order.
func TestEventQueueConcurrentPush(t *testing.T) {
	t.Parallel()

	const (
		producers = 8
		perWorker = 1000
	)

	q := newEventQueue()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				q.push(sendCmd{
					id:  ConnID(p),
					buf: []byte{byte(i), byte(i >> 8)},
				})
			}
		}()
	}

	var cmds []command
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for finished := false; !finished; {
		select {
		case <-q.wakeup():
		case <-done:
			finished = true
		}
		cmds = append(cmds, q.drain()...)
	}
	cmds = append(cmds, q.drain()...)

	require.Len(t, cmds, producers*perWorker)

	next := make(map[ConnID]int)
	for _, cmd := range cmds {
		send := cmd.(sendCmd)
		seq := int(send.buf[0]) | int(send.buf[1])<<8
		require.Equal(t, next[send.id], seq)
		next[send.id]++
	}
}

// TestEventQueueClose checks that a closed queue refuses and drops commands.
func TestEventQueueClose(t *testing.T) {
	t.Parallel()

	q := newEventQueue()
	require.True(t, q.push(deferCmd{cb: func() {}}))
	require.False(t, q.isClosed())

	q.close()
	require.True(t, q.isClosed())
	require.False(t, q.push(deferCmd{cb: func() {}}))
	require.Empty(t, q.drain())

	// Closing again is harmless.
	q.close()
}

// TestEventQueueReentrantPush pushes from inside a drained command, which
// must not deadlock and must be picked up by the next drain.
func TestEventQueueReentrantPush(t *testing.T) {
	t.Parallel()

	q := newEventQueue()

	ran := 0
	q.push(deferCmd{cb: func() {
		ran++
		q.push(deferCmd{cb: func() { ran++ }})
	}})

	for _, cmd := range q.drain() {
		cmd.(deferCmd).cb()
	}
	require.Equal(t, 1, ran)

	for _, cmd := range q.drain() {
		cmd.(deferCmd).cb()
	}
	require.Equal(t, 2, ran)
}
