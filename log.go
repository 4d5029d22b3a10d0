package p2pd

import (
	"io"
	"os"

	"github.com/btcsuite/btclog/v2"
	"github.com/nodewire/p2pd/build"
	"github.com/nodewire/p2pd/conman"
	"github.com/nodewire/p2pd/monitoring"
	"github.com/nodewire/p2pd/signal"
)

// Subsystem defines the logging code for the daemon itself.
const Subsystem = "P2PD"

// p2pdLog is the daemon's own logger. It stays disabled until SetupLoggers
// is called.
var p2pdLog = build.NewSubLogger(Subsystem, nil)

// SetupLoggers initializes all package-global logger variables so they write
// through the given manager.
func SetupLoggers(root *build.SubLoggerManager) {
	p2pdLog = root.GenSubLogger(Subsystem, nil)

	root.GenSubLogger(conman.Subsystem, conman.UseLogger)
	root.GenSubLogger(monitoring.Subsystem, monitoring.UseLogger)
	root.GenSubLogger(signal.Subsystem, signal.UseLogger)
}

// NewLogHandler builds the log handler for the configured outputs: stdout
// unless the console logger is disabled, and the rotating log file unless
// the file logger is disabled.
func NewLogHandler(cfg *build.LogConfig,
	logFile io.Writer) btclog.Handler {

	var (
		writers []io.Writer
		opts    []btclog.HandlerOption
	)

	if !cfg.Console.Disable {
		writers = append(writers, os.Stdout)
		opts = cfg.Console.HandlerOptions()
	}
	if !cfg.File.Disable {
		writers = append(writers, logFile)
		if opts == nil {
			opts = cfg.File.HandlerOptions()
		}
	}

	return btclog.NewDefaultHandler(io.MultiWriter(writers...), opts...)
}
