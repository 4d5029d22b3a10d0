// Package monitoring serves the daemon's Prometheus metrics over HTTP.
package monitoring

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nodewire/p2pd/nodecfg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// readHeaderTimeout bounds how long a scrape may take to send its headers.
const readHeaderTimeout = 5 * time.Second

// Exporter serves the metrics registered with its registry on /metrics.
type Exporter struct {
	cfg      nodecfg.Prometheus
	registry *prometheus.Registry

	server   *http.Server
	listener net.Listener

	started sync.Once
	stopped sync.Once
	wg      sync.WaitGroup
}

// NewExporter creates an exporter with a fresh registry that already holds
// the Go runtime and process collectors.
func NewExporter(cfg nodecfg.Prometheus) *Exporter {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(
			collectors.ProcessCollectorOpts{},
		),
	)

	return &Exporter{
		cfg:      cfg,
		registry: registry,
	}
}

// Registerer returns the registry that metrics should be registered with.
func (e *Exporter) Registerer() prometheus.Registerer {
	return e.registry
}

// Start binds the listen address and begins serving scrapes.
func (e *Exporter) Start() error {
	var err error
	e.started.Do(func() {
		e.listener, err = net.Listen("tcp", e.cfg.Listen)
		if err != nil {
			return
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(
			e.registry, promhttp.HandlerOpts{
				ErrorLog: promErrorLog{},
			},
		))

		e.server = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		}

		log.Infof("Prometheus exporter started on %v/metrics",
			e.listener.Addr())

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()

			err := e.server.Serve(e.listener)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("Prometheus exporter stopped: %v", err)
			}
		}()
	})

	return err
}

// Addr returns the address the exporter is listening on, or nil before
// Start.
func (e *Exporter) Addr() net.Addr {
	if e.listener == nil {
		return nil
	}

	return e.listener.Addr()
}

// Stop shuts the HTTP server down, waiting for in-flight scrapes.
func (e *Exporter) Stop() error {
	var err error
	e.stopped.Do(func() {
		if e.server == nil {
			return
		}

		ctx, cancel := context.WithTimeout(
			context.Background(), readHeaderTimeout,
		)
		defer cancel()

		err = e.server.Shutdown(ctx)
		e.wg.Wait()
	})

	return err
}

// promErrorLog routes promhttp errors to the package logger.
type promErrorLog struct{}

// Println implements promhttp.Logger.
func (promErrorLog) Println(v ...interface{}) {
	log.Error(v...)
}
