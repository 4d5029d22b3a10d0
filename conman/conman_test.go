package conman

import (
	"net"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/nodewire/p2pd/endpoint"
	"github.com/nodewire/p2pd/errcode"
	"github.com/stretchr/testify/require"
)

const testTimeout = 5 * time.Second

// testStartTime is the time reported by the managers' test clock.
var testStartTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// failedConnect is a recorded call to OnFailedConnect.
type failedConnect struct {
	addr endpoint.Address
	code errcode.Code
}

// mockPeerServer records the calls made by the manager. If autoRead is set,
// every inbound connection is told to start reading.
type mockPeerServer struct {
	autoRead bool

	authenticated chan ConnRef
	failed        chan failedConnect
}

func newMockPeerServer(autoRead bool) *mockPeerServer {
	return &mockPeerServer{
		autoRead:      autoRead,
		authenticated: make(chan ConnRef, 16),
		failed:        make(chan failedConnect, 16),
	}
}

func (s *mockPeerServer) Authenticate(ref ConnRef) {
	if s.autoRead {
		_ = ref.StartRead()
	}
	s.authenticated <- ref
}

func (s *mockPeerServer) OnFailedConnect(addr endpoint.Address,
	code errcode.Code) {

	s.failed <- failedConnect{addr: addr, code: code}
}

// closeNote is a recorded call to OnClose.
type closeNote struct {
	ref  ConnRef
	code errcode.Code
}

// mockHandler records connection events.
type mockHandler struct {
	connected chan ConnRef
	messages  chan []byte
	closed    chan closeNote
}

func newMockHandler() *mockHandler {
	return &mockHandler{
		connected: make(chan ConnRef, 16),
		messages:  make(chan []byte, 64),
		closed:    make(chan closeNote, 16),
	}
}

func (h *mockHandler) OnConnected(ref ConnRef) {
	h.connected <- ref
}

func (h *mockHandler) OnMessage(_ ConnRef, msg []byte) {
	h.messages <- append([]byte(nil), msg...)
}

func (h *mockHandler) OnClose(ref ConnRef, code errcode.Code) {
	h.closed <- closeNote{ref: ref, code: code}
}

// testHarness bundles a started manager and its collaborators.
type testHarness struct {
	mgr     *Manager
	server  *mockPeerServer
	handler *mockHandler
	ticker  *ticker.Force
}

// newTestHarness starts a manager bound to an ephemeral loopback port. The
// manager is stopped when the test ends.
func newTestHarness(t *testing.T, autoRead bool,
	modify func(*Config)) *testHarness {

	t.Helper()

	h := &testHarness{
		server:  newMockPeerServer(autoRead),
		handler: newMockHandler(),
		ticker:  ticker.NewForce(time.Hour),
	}

	cfg := &Config{
		Bind:        endpoint.MustParse("127.0.0.1:0"),
		PeerServer:  h.server,
		Handler:     h.handler,
		DialTimeout: time.Second,
		StatsTicker: h.ticker,
		Clock:       clock.NewTestClock(testStartTime),
	}
	if modify != nil {
		modify(cfg)
	}

	mgr, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, mgr.Start())
	t.Cleanup(func() {
		require.NoError(t, mgr.Stop())
	})

	h.mgr = mgr

	return h
}

// dial opens a client socket to the harness' manager.
func (h *testHarness) dial(t *testing.T) net.Conn {
	t.Helper()

	conn, err := net.DialTimeout(
		"tcp4", h.mgr.ListenAddr().String(), testTimeout,
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
	})

	return conn
}

// numConns returns the size of the connection set, read on the loop.
func (h *testHarness) numConns(t *testing.T) int {
	t.Helper()

	result := make(chan int, 1)
	require.NoError(t, h.mgr.Inspect(func(s *State) {
		in, out := s.NumConnections()
		result <- in + out
	}))

	return recv(t, result)
}

// waitNoConns polls until every connection has left the set.
func (h *testHarness) waitNoConns(t *testing.T) {
	t.Helper()

	deadline := time.Now().Add(testTimeout)
	for h.numConns(t) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("connections still open")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// recv waits for a value on ch.
func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(testTimeout):
		t.Fatalf("timeout waiting for %T", *new(T))
	}

	panic("unreachable")
}

// requireNone asserts nothing arrives on ch for a short while.
func requireNone[T any](t *testing.T, ch <-chan T) {
	t.Helper()

	select {
	case v := <-ch:
		t.Fatalf("unexpected %T: %v", v, v)
	case <-time.After(100 * time.Millisecond):
	}
}

// flush waits until every command submitted so far has run on the loop.
func flush(t *testing.T, m *Manager) {
	t.Helper()

	done := make(chan struct{})
	require.NoError(t, m.Defer(func() {
		close(done)
	}))
	recv(t, done)
}
