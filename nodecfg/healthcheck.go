package nodecfg

import (
	"errors"
	"fmt"
	"time"
)

var (
	// MinHealthCheckInterval is the minimum interval we allow between
	// health checks.
	MinHealthCheckInterval = time.Second

	// MinHealthCheckTimeout is the minimum timeout we allow for a health
	// check.
	MinHealthCheckTimeout = time.Millisecond * 100

	// MinHealthCheckBackoff is the minimum back off we allow between
	// health check retries.
	MinHealthCheckBackoff = time.Millisecond * 100
)

// HealthCheckConfig contains the configuration for the health checks the
// daemon runs.
//
//nolint:ll
type HealthCheckConfig struct {
	Loop *CheckConfig `group:"loop" namespace:"loop"`
}

// DefaultHealthCheck returns the default health check configuration. The
// event loop is probed every minute and the node shuts down after three
// consecutive misses.
func DefaultHealthCheck() *HealthCheckConfig {
	return &HealthCheckConfig{
		Loop: &CheckConfig{
			Interval: time.Minute,
			Timeout:  5 * time.Second,
			Backoff:  time.Second,
			Attempts: 3,
		},
	}
}

// Validate checks the values configured for our health checks.
func (h *HealthCheckConfig) Validate() error {
	if h.Loop == nil {
		return errors.New("healthcheck.loop must be set")
	}

	if err := h.Loop.validate("loop"); err != nil {
		return err
	}

	return nil
}

// CheckConfig configures a single health check.
//
//nolint:ll
type CheckConfig struct {
	Interval time.Duration `long:"interval" description:"How often to run a health check."`

	Attempts int `long:"attempts" description:"The number of calls we will make for the check before failing. Set this value to 0 to disable a check."`

	Timeout time.Duration `long:"timeout" description:"The amount of time we allow the health check to take before failing due to timeout."`

	Backoff time.Duration `long:"backoff" description:"The amount of time to back-off between failed health checks."`
}

// validate checks the values in a health check config entry if it is
// enabled.
func (c *CheckConfig) validate(name string) error {
	if c.Attempts == 0 {
		return nil
	}

	if c.Backoff < MinHealthCheckBackoff {
		return fmt.Errorf("%v backoff: %v below minimum: %v", name,
			c.Backoff, MinHealthCheckBackoff)
	}

	if c.Timeout < MinHealthCheckTimeout {
		return fmt.Errorf("%v timeout: %v below minimum: %v", name,
			c.Timeout, MinHealthCheckTimeout)
	}

	if c.Interval < MinHealthCheckInterval {
		return fmt.Errorf("%v interval: %v below minimum: %v", name,
			c.Interval, MinHealthCheckInterval)
	}

	return nil
}
