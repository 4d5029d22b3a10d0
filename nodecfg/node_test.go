package nodecfg_test

import (
	"os"
	"os/user"
	"path/filepath"
	"testing"
	"time"

	"github.com/nodewire/p2pd/endpoint"
	"github.com/nodewire/p2pd/nodecfg"
	"github.com/stretchr/testify/require"
)

// TestValidateNode asserts that node configs are only accepted with a valid
// bind endpoint, valid connect targets and positive limits.
func TestValidateNode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*nodecfg.Node)
		valid  bool
	}{
		{
			name:   "defaults",
			modify: func(*nodecfg.Node) {},
			valid:  true,
		},
		{
			name: "connect targets",
			modify: func(n *nodecfg.Node) {
				n.Connect = []string{"1.2.3.4:9186", "5.6.7.8:1"}
			},
			valid: true,
		},
		{
			name: "bad bind",
			modify: func(n *nodecfg.Node) {
				n.Bind = "localhost:9186"
			},
		},
		{
			name: "bad connect target",
			modify: func(n *nodecfg.Node) {
				n.Connect = []string{"1.2.3.4:99999"}
			},
		},
		{
			name: "zero write queue",
			modify: func(n *nodecfg.Node) {
				n.MaxWriteQueue = 0
			},
		},
		{
			name: "zero dial timeout",
			modify: func(n *nodecfg.Node) {
				n.DialTimeout = 0
			},
		},
		{
			name: "negative accept rate",
			modify: func(n *nodecfg.Node) {
				n.AcceptRate = -1
			},
		},
		{
			name: "negative accept burst",
			modify: func(n *nodecfg.Node) {
				n.AcceptBurst = -1
			},
		},
		{
			name: "zero stats interval",
			modify: func(n *nodecfg.Node) {
				n.StatsInterval = 0
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			node := nodecfg.DefaultNode()
			test.modify(node)

			bind, targets, err := node.Validate()
			if !test.valid {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, endpoint.MustParse(node.Bind), bind)
			require.Len(t, targets, len(node.Connect))
		})
	}
}

// TestValidateHealthCheck checks the minimums of enabled health checks and
// that disabled checks are not validated.
func TestValidateHealthCheck(t *testing.T) {
	t.Parallel()

	cfg := nodecfg.DefaultHealthCheck()
	require.NoError(t, cfg.Validate())

	cfg.Loop.Interval = time.Millisecond
	require.Error(t, cfg.Validate())

	cfg.Loop.Attempts = 0
	require.NoError(t, cfg.Validate())

	require.Error(t, (&nodecfg.HealthCheckConfig{}).Validate())
}

// TestCleanAndExpandPath checks home and environment expansion.
func TestCleanAndExpandPath(t *testing.T) {
	t.Setenv("P2PD_TEST_DIR", "/var/lib/p2pd")

	home := os.Getenv("HOME")
	if u, err := user.Current(); err == nil {
		home = u.HomeDir
	}

	require.Empty(t, nodecfg.CleanAndExpandPath(""))
	require.Equal(t, "/var/lib/p2pd/logs",
		nodecfg.CleanAndExpandPath("$P2PD_TEST_DIR/./logs/"))
	require.Equal(t, filepath.Join(home, "p2pd"),
		nodecfg.CleanAndExpandPath("~/p2pd"))
}
