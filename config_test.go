package p2pd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nodewire/p2pd/endpoint"
	"github.com/nodewire/p2pd/nodecfg"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a p2pd.conf with contents into dir.
func writeConfig(t *testing.T, dir, contents string) {
	t.Helper()

	path := filepath.Join(dir, nodecfg.DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
}

// TestLoadConfigPrecedence checks that the config file overrides defaults and
// the command line overrides the config file.
func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[node]
node.bind=127.0.0.1:19186
node.connect=10.0.0.1:9186
node.connect=10.0.0.2:9186
node.maxwritequeue=1024
node.dialtimeout=3s
`)

	cfg, err := LoadConfig([]string{
		"--p2pddir=" + dir,
		"--node.maxwritequeue=2048",
		"--debuglevel=debug,CMGR=trace",
	})
	require.NoError(t, err)

	require.Equal(t, endpoint.MustParse("127.0.0.1:19186"), cfg.Bind())
	require.Equal(t, []endpoint.Address{
		endpoint.MustParse("10.0.0.1:9186"),
		endpoint.MustParse("10.0.0.2:9186"),
	}, cfg.ConnectPeers())
	require.Equal(t, 2048, cfg.Node.MaxWriteQueue)
	require.Equal(t, 3*time.Second, cfg.Node.DialTimeout)
	require.Equal(t, "debug,CMGR=trace", cfg.DebugLevel)

	require.Equal(t, filepath.Join(dir, defaultDataDirname), cfg.DataDir)
	require.Equal(t, filepath.Join(dir, nodecfg.DefaultLogDirname),
		cfg.LogDir)
	require.Equal(t, filepath.Join(
		dir, nodecfg.DefaultLogDirname, nodecfg.DefaultLogFilename,
	), cfg.LogFile())
}

// TestLoadConfigMissingFile checks a missing config file is not fatal.
func TestLoadConfigMissingFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig([]string{"--p2pddir=" + dir})
	require.NoError(t, err)
	require.Equal(t, endpoint.MustParse(nodecfg.DefaultBind), cfg.Bind())
	require.Empty(t, cfg.ConnectPeers())
}

// TestLoadConfigErrors checks malformed files and values are rejected.
func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		args []string
	}{
		{
			name: "bad bind",
			args: []string{"--node.bind=localhost:9186"},
		},
		{
			name: "bad connect",
			args: []string{"--node.connect=1.2.3.4"},
		},
		{
			name: "unknown option in file",
			file: "[node]\nnode.nope=1\n",
		},
		{
			name: "bad compressor",
			args: []string{"--logging.file.compressor=lz4"},
		},
		{
			name: "prometheus without listen",
			args: []string{
				"--prometheus.enable", "--prometheus.listen=",
			},
		},
		{
			name: "health check interval too small",
			args: []string{"--healthcheck.loop.interval=1ms"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dir := t.TempDir()
			if test.file != "" {
				writeConfig(t, dir, test.file)
			}

			args := append([]string{"--p2pddir=" + dir}, test.args...)
			_, err := LoadConfig(args)
			require.Error(t, err)
		})
	}
}
