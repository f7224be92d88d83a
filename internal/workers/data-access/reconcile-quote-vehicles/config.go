// internal/workers/data-access/reconcile-quote-vehicles/config.go
package reconcilequotevehicles

import (
	"time"

	"quote-vehicle-reconciler/internal/common/config"
)

// Config holds the job defaults used when a variable is absent.
type Config struct {
	Timeout     time.Duration
	TargetState string
	DryRun      bool
	Apply       bool
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		Timeout:     10 * time.Minute,
		TargetState: cfg.Reconcile.TargetState,
		DryRun:      cfg.Reconcile.DryRun,
		Apply:       cfg.Reconcile.Apply,
	}
	if wc, ok := cfg.Workers[config.ReconcileTaskType]; ok && wc.Timeout > 0 {
		c.Timeout = time.Duration(wc.Timeout) * time.Millisecond
	}
	return c
}
