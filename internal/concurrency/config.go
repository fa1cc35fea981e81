// File: internal/concurrency/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pool configuration: the immutable-at-construction defaults plus the
// runtime-tunable fields. A control.ConfigStore mirrors the starting
// values; changes to maxShrinkCount and idleTimeoutMillis made through
// that store propagate to the pool via its reload listeners.

package concurrency

import (
	"time"

	"github.com/hioload/threadpool/api"
	"github.com/hioload/threadpool/control"
)

// Config is the pool's construction-time configuration. Fields that are
// also runtime-mutable have corresponding Pool.SetXxx methods; Config
// only supplies their starting values.
type Config struct {
	Name                string
	MinThreads          int
	MaxThreads          int
	IdleTimeout         time.Duration
	ReservedThreads     int // -1 = heuristic, 0 = disabled
	MaxShrinkCount      int
	StopTimeout         time.Duration
	LowThreadsThreshold int
	Daemon              bool
	ThreadPriority      int
	DetailedDump        bool
	QueueCapacity       int // 0 = unbounded
}

// DefaultConfig mirrors the conventional Jetty QueuedThreadPool
// defaults translated to this module's units.
func DefaultConfig() Config {
	return Config{
		Name:                "pool",
		MinThreads:          8,
		MaxThreads:          200,
		IdleTimeout:         60 * time.Second,
		ReservedThreads:     -1,
		MaxShrinkCount:      1,
		StopTimeout:         30 * time.Second,
		LowThreadsThreshold: 1,
		QueueCapacity:       0,
	}
}

// validate checks the invariants a pool needs before it can start:
// minThreads >= 0, maxThreads >= 1, maxThreads >= minThreads,
// maxShrinkCount >= 1.
func (c Config) validate() error {
	if c.MinThreads < 0 {
		return api.NewError(api.ErrCodeInvalidConfig, "minThreads must be >= 0").WithContext("minThreads", c.MinThreads)
	}
	if c.MaxThreads < 1 {
		return api.NewError(api.ErrCodeInvalidConfig, "maxThreads must be >= 1 when started").WithContext("maxThreads", c.MaxThreads)
	}
	if c.MaxThreads < c.MinThreads {
		return api.NewError(api.ErrCodeInvalidConfig, "maxThreads must be >= minThreads").WithContext("maxThreads", c.MaxThreads).WithContext("minThreads", c.MinThreads)
	}
	if c.MaxShrinkCount < 1 {
		return api.NewError(api.ErrCodeInvalidConfig, "maxShrinkCount must be >= 1").WithContext("maxShrinkCount", c.MaxShrinkCount)
	}
	return nil
}

// buildConfigStore snapshots cfg into a control.ConfigStore. The reload
// listener that carries later SetConfig changes of maxShrinkCount and
// idleTimeoutMillis into the pool's live atomics is installed
// separately, by registerReloadPropagation. The pool's own setters do
// not write back into the store.
func (p *Pool) buildConfigStore(cfg Config) {
	p.configStore = control.NewConfigStore()
	p.configStore.SetConfig(map[string]any{
		"name":                cfg.Name,
		"minThreads":          cfg.MinThreads,
		"maxThreads":          cfg.MaxThreads,
		"idleTimeoutMillis":   cfg.IdleTimeout.Milliseconds(),
		"maxShrinkCount":      cfg.MaxShrinkCount,
		"stopTimeoutMillis":   cfg.StopTimeout.Milliseconds(),
		"lowThreadsThreshold": cfg.LowThreadsThreshold,
		"daemon":              cfg.Daemon,
		"detailedDump":        cfg.DetailedDump,
	})
}
