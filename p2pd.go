// Package p2pd wires the connection manager and its supporting services into
// a runnable daemon.
package p2pd

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btclog/v2"
	"github.com/coreos/go-systemd/daemon"
	"github.com/davecgh/go-spew/spew"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/healthcheck"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/nodewire/p2pd/build"
	"github.com/nodewire/p2pd/conman"
	"github.com/nodewire/p2pd/errcode"
	"github.com/nodewire/p2pd/monitoring"
	"github.com/nodewire/p2pd/signal"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Main is the true entry point for p2pd. It sets up logging, runs the
// daemon and blocks until a shutdown is requested through the interceptor.
func Main(cfg *Config, interceptor signal.Interceptor) error {
	logWriter := build.NewRotatingLogWriter()
	if !cfg.LogConfig.File.Disable {
		err := logWriter.InitLogRotator(cfg.LogConfig.File, cfg.LogFile())
		if err != nil {
			return err
		}
	}
	defer logWriter.Close()

	subLogMgr := build.NewSubLoggerManager(
		NewLogHandler(cfg.LogConfig, logWriter),
	)
	SetupLoggers(subLogMgr)

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems",
			subLogMgr.SupportedSubsystems())

		return nil
	}

	err := build.ParseAndSetDebugLevels(cfg.DebugLevel, subLogMgr)
	if err != nil {
		return err
	}

	defer p2pdLog.Info("Shutdown complete")

	return run(cfg, interceptor)
}

// run starts every service and waits for shutdown.
func run(cfg *Config, interceptor signal.Interceptor) error {
	p2pdLog.Infof("Version: %s commit=%s, build=%s, logging=%s, "+
		"debuglevel=%s", build.Version(), build.Commit, build.Deployment,
		build.LoggingType, cfg.DebugLevel)

	if p2pdLog.Level() <= btclog.LevelDebug {
		p2pdLog.Debugf("Node config: %v", spew.Sdump(cfg.Node))
	}

	var registerer prometheus.Registerer
	if cfg.Prometheus.Enable {
		exporter := monitoring.NewExporter(cfg.Prometheus)
		if err := exporter.Start(); err != nil {
			return fmt.Errorf("unable to start prometheus exporter: "+
				"%w", err)
		}
		defer exporter.Stop()

		registerer = exporter.Registerer()
	}

	server := &peerServer{}
	mgr, err := conman.New(&conman.Config{
		Bind:          cfg.Bind(),
		Isolated:      cfg.Node.Isolated,
		PeerServer:    server,
		Handler:       server,
		MaxWriteQueue: cfg.Node.MaxWriteQueue,
		DialTimeout:   cfg.Node.DialTimeout,
		AcceptRate:    rate.Limit(cfg.Node.AcceptRate),
		AcceptBurst:   cfg.Node.AcceptBurst,
		StatsTicker:   ticker.New(cfg.Node.StatsInterval),
		Clock:         clock.NewDefaultClock(),
		Registerer:    registerer,
	})
	if err != nil {
		return err
	}

	if err := mgr.Start(); err != nil {
		p2pdLog.Errorf("%v", err)
		return err
	}
	defer func() {
		notifySystemd(daemon.SdNotifyStopping)
		if err := mgr.Stop(); err != nil {
			p2pdLog.Errorf("Unable to stop connection manager: %v",
				err)
		}
	}()

	if check := cfg.HealthChecks.Loop; check.Attempts != 0 {
		monitor := healthcheck.NewMonitor(&healthcheck.Config{
			Checks: []*healthcheck.Observation{
				healthcheck.NewObservation(
					"event loop", loopCheck(mgr),
					check.Interval, check.Timeout,
					check.Backoff, check.Attempts,
				),
			},
			Shutdown: func(format string, params ...interface{}) {
				p2pdLog.Criticalf("Health check: "+format,
					params...)
				interceptor.RequestShutdown()
			},
		})
		if err := monitor.Start(); err != nil {
			return fmt.Errorf("unable to start health checks: %w",
				err)
		}
		defer monitor.Stop()
	}

	for _, addr := range cfg.ConnectPeers() {
		if err := mgr.Connect(addr); err != nil {
			return err
		}
	}

	notifySystemd(daemon.SdNotifyReady)

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		select {
		case <-interceptor.ShutdownChannel():
		case <-ctx.Done():
		}

		mgr.Shutdown(errcode.Shutdown)

		return nil
	})
	g.Go(func() error {
		<-mgr.Done()
		if interceptor.Alive() {
			return errors.New("connection manager stopped " +
				"unexpectedly")
		}

		return nil
	})

	return g.Wait()
}

// loopCheck returns a health check that succeeds once the connection
// manager's loop has run a probe.
func loopCheck(mgr *conman.Manager) func() error {
	return func() error {
		done := make(chan struct{})
		err := mgr.Defer(func() {
			close(done)
		})
		if err != nil {
			return err
		}

		select {
		case <-done:
			return nil
		case <-mgr.Done():
			return conman.ErrShuttingDown
		}
	}
}

// notifySystemd sends state to the service manager if p2pd runs under
// systemd.
func notifySystemd(state string) {
	notified, err := daemon.SdNotify(false, state)
	if err != nil {
		p2pdLog.Warnf("Unable to notify systemd of %q: %v", state, err)
		return
	}

	if notified {
		p2pdLog.Debugf("Notified systemd: %q", state)
	}
}
