// File: internal/concurrency/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pool ties together the atomic (threads, netIdle) cell, the blocking
// job queue, the shrink strategy, the worker runner, the submission
// path, and the lifecycle controller into a bounded, elastic worker
// pool, generalized from the websocket-specific executor this package
// started as.

package concurrency

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hioload/threadpool/api"
	"github.com/hioload/threadpool/control"
)

// lifecycle states for the observers isStarted/isRunning/isStopping.
const (
	stateNotStarted int32 = iota
	stateRunning
	stateStopping
	stateStopped
)

// RunJobFunc is the overridable job-execution hook; the default simply
// calls job.Run().
type RunJobFunc func(api.Job)

type shrinkBox struct{ s shrinkStrategy }

// reservation is the combined contract a tryExecutor install must
// satisfy: it both bridges execute-side tryExecute calls and answers
// the observer formulas need from the lease source.
type reservation interface {
	tryExecutor
	LeaseSource
}

type reservationBox struct{ r reservation }

// Pool is a bounded, elastic worker pool.
type Pool struct {
	name atomic.Value // string

	minThreads          atomic.Int32
	maxThreads          atomic.Int32
	idleTimeoutNanos    atomic.Int64
	maxShrinkCount      atomic.Int32
	stopTimeoutNanos    atomic.Int64
	lowThreadsThreshold atomic.Int32
	daemon              atomic.Bool
	threadPriority      atomic.Int32
	detailedDump        atomic.Bool

	queueCapacity int

	cfgMu              sync.Mutex // guards reservedThreadsCfg (settable only while not running)
	reservedThreadsCfg int

	counts counts
	queue  *blockingQueue

	shrinkRef atomic.Pointer[shrinkBox]
	execRef   atomic.Pointer[reservationBox]

	workersMu    sync.Mutex
	workers      map[int]*workerHandle
	nextWorkerID atomic.Int32
	wg           sync.WaitGroup

	lifecycle atomic.Int32

	joinMu   sync.Mutex
	joinCond *sync.Cond

	runJob RunJobFunc

	logger       *log.Logger
	debugEnabled bool

	configStore *control.ConfigStore
	metrics     *control.MetricsRegistry
	debugProbes *control.DebugProbes
}

// New constructs a Pool from cfg without starting it. Call Start to
// prime minThreads workers.
func New(cfg Config) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	p := &Pool{
		queueCapacity:      cfg.QueueCapacity,
		reservedThreadsCfg: cfg.ReservedThreads,
		workers:            make(map[int]*workerHandle),
		runJob:             func(j api.Job) { j.Run() },
		logger:             log.Default(),
		debugEnabled:       cfg.DetailedDump,
	}
	p.name.Store(cfg.Name)
	p.minThreads.Store(int32(cfg.MinThreads))
	p.maxThreads.Store(int32(cfg.MaxThreads))
	p.idleTimeoutNanos.Store(int64(cfg.IdleTimeout))
	p.maxShrinkCount.Store(int32(cfg.MaxShrinkCount))
	p.stopTimeoutNanos.Store(int64(cfg.StopTimeout))
	p.lowThreadsThreshold.Store(int32(cfg.LowThreadsThreshold))
	p.daemon.Store(cfg.Daemon)
	p.threadPriority.Store(int32(cfg.ThreadPriority))
	p.detailedDump.Store(cfg.DetailedDump)

	p.queue = newBlockingQueue(cfg.QueueCapacity)
	p.joinCond = sync.NewCond(&p.joinMu)
	p.shrinkRef.Store(&shrinkBox{s: newShrinkStrategy(cfg.IdleTimeout, cfg.MaxShrinkCount)})
	p.execRef.Store(&reservationBox{r: alwaysFalseExecutor{}})

	p.buildConfigStore(cfg)
	p.metrics = control.NewMetricsRegistry()
	p.debugProbes = control.NewDebugProbes()
	control.RegisterPlatformProbes(p.debugProbes)
	p.registerReloadPropagation()

	return p, nil
}

func (p *Pool) currentShrink() shrinkStrategy { return p.shrinkRef.Load().s }
func (p *Pool) currentReservation() reservation { return p.execRef.Load().r }

// SetRunJob installs a custom job-execution hook, the Go idiom this
// codebase already uses (functional fields) in place of Java-style
// subclassing overrides of runJob/doRunJob.
func (p *Pool) SetRunJob(fn RunJobFunc) { p.runJob = fn }

// SetLogger overrides the pool's *log.Logger, defaulting to
// log.Default() to match the rest of this codebase.
func (p *Pool) SetLogger(l *log.Logger) { p.logger = l }

// --- tuning getters/setters ---

func (p *Pool) MinThreads() int { return int(p.minThreads.Load()) }
func (p *Pool) MaxThreads() int { return int(p.maxThreads.Load()) }
func (p *Pool) IdleTimeout() time.Duration {
	return time.Duration(p.idleTimeoutNanos.Load())
}
func (p *Pool) MaxShrinkCount() int { return int(p.maxShrinkCount.Load()) }
func (p *Pool) StopTimeout() time.Duration {
	return time.Duration(p.stopTimeoutNanos.Load())
}
func (p *Pool) LowThreadsThreshold() int { return int(p.lowThreadsThreshold.Load()) }
func (p *Pool) Daemon() bool             { return p.daemon.Load() }
func (p *Pool) ThreadPriority() int      { return int(p.threadPriority.Load()) }
func (p *Pool) DetailedDump() bool       { return p.detailedDump.Load() }
func (p *Pool) Name() string             { return p.name.Load().(string) }

// SetMinMax updates minThreads/maxThreads; if min > max, max is raised
// to match.
func (p *Pool) SetMinMax(min, max int) error {
	if min < 0 {
		return api.NewError(api.ErrCodeInvalidConfig, "minThreads must be >= 0")
	}
	if max < min {
		max = min
	}
	p.minThreads.Store(int32(min))
	p.maxThreads.Store(int32(max))
	p.ensureThreads()
	return nil
}

// SetIdleTimeout updates idleTimeoutMillis and re-selects the shrink
// strategy to match.
func (p *Pool) SetIdleTimeout(d time.Duration) {
	p.idleTimeoutNanos.Store(int64(d))
	p.reselectShrink()
}

// SetMaxShrinkCount updates maxShrinkCount (must be >= 1) and
// re-selects the shrink strategy.
func (p *Pool) SetMaxShrinkCount(n int) error {
	if n < 1 {
		return api.NewError(api.ErrCodeInvalidConfig, "maxShrinkCount must be >= 1")
	}
	p.maxShrinkCount.Store(int32(n))
	p.reselectShrink()
	return nil
}

func (p *Pool) reselectShrink() {
	p.shrinkRef.Store(&shrinkBox{s: newShrinkStrategy(p.IdleTimeout(), p.MaxShrinkCount())})
}

// SetReservedThreads is only legal while the pool is not running.
func (p *Pool) SetReservedThreads(n int) error {
	if p.IsRunning() {
		return api.NewError(api.ErrCodeInvalidConfig, "reservedThreads can only be set while stopped")
	}
	p.cfgMu.Lock()
	p.reservedThreadsCfg = n
	p.cfgMu.Unlock()
	return nil
}

func (p *Pool) SetStopTimeout(d time.Duration) { p.stopTimeoutNanos.Store(int64(d)) }
func (p *Pool) SetLowThreadsThreshold(n int)   { p.lowThreadsThreshold.Store(int32(n)) }
func (p *Pool) SetDaemon(v bool)               { p.daemon.Store(v) }
func (p *Pool) SetThreadPriority(n int)        { p.threadPriority.Store(int32(n)) }
func (p *Pool) SetDetailedDump(v bool)         { p.detailedDump.Store(v) }

// SetName is only legal while the pool is not running.
func (p *Pool) SetName(name string) error {
	if p.IsRunning() {
		return api.NewError(api.ErrCodeInvalidConfig, "name can only be set while stopped")
	}
	p.name.Store(name)
	return nil
}

// --- observers ---

// Observe returns every derived quantity (idle/busy/utilized threads,
// queue depth, reservation state) as one consistent snapshot.
func (p *Pool) Observe() observers {
	return p.counts.observe(p.MaxThreads(), p.LowThreadsThreshold(), p.currentReservation())
}

func (p *Pool) Threads() int                  { return p.Observe().Threads }
func (p *Pool) IdleThreads() int              { return p.Observe().IdleThreads }
func (p *Pool) ReadyThreads() int             { return p.Observe().ReadyThreads }
func (p *Pool) BusyThreads() int              { o := p.Observe(); return o.Threads - o.IdleThreads }
func (p *Pool) UtilizedThreads() int          { return p.Observe().UtilizedThreads }
func (p *Pool) MaxAvailableThreads() int      { return p.Observe().MaxAvailableThreads }
func (p *Pool) UtilizationRate() float64      { return p.Observe().UtilizationRate }
func (p *Pool) QueueSize() int                { return p.Observe().QueueSize }
func (p *Pool) MaxReservedThreads() int       { return p.Observe().MaxReservedThreads }
func (p *Pool) AvailableReservedThreads() int { return p.Observe().AvailableReservedThreads }
func (p *Pool) LeasedThreads() int            { return p.Observe().LeasedThreads }
func (p *Pool) IsLowOnThreads() bool          { return p.Observe().IsLowOnThreads }

func (p *Pool) IsStarted() bool { return p.lifecycle.Load() != stateNotStarted }
func (p *Pool) IsRunning() bool { return p.lifecycle.Load() == stateRunning }
func (p *Pool) IsStopping() bool {
	s := p.lifecycle.Load()
	return s == stateStopping
}

// Stats renders a snapshot suitable for control.MetricsRegistry or any
// external telemetry surface.
func (p *Pool) Stats() map[string]any {
	o := p.Observe()
	return map[string]any{
		"threads":         o.Threads,
		"idleThreads":     o.IdleThreads,
		"readyThreads":    o.ReadyThreads,
		"utilizedThreads": o.UtilizedThreads,
		"queueSize":       o.QueueSize,
		"utilizationRate": o.UtilizationRate,
		"isLowOnThreads":  o.IsLowOnThreads,
		"running":         p.IsRunning(),
		"stopping":        p.IsStopping(),
	}
}

// --- api.Control / api.Debug adapters ---
//
// Pool satisfies api.Control and api.Debug by delegating to the
// control.ConfigStore/MetricsRegistry/DebugProbes it already owns,
// rather than duplicating their storage.

func (p *Pool) GetConfig() map[string]any { return p.configStore.GetSnapshot() }

func (p *Pool) SetConfig(cfg map[string]any) error {
	p.configStore.SetConfig(cfg)
	return nil
}

func (p *Pool) OnReload(fn func()) { p.configStore.OnReload(fn) }

func (p *Pool) RegisterDebugProbe(name string, fn func() any) {
	p.debugProbes.RegisterProbe(name, fn)
}

func (p *Pool) DumpState() map[string]any { return p.debugProbes.DumpState() }

func (p *Pool) RegisterProbe(name string, fn func() any) {
	p.debugProbes.RegisterProbe(name, fn)
}

var (
	_ api.Control          = (*Pool)(nil)
	_ api.Debug            = (*Pool)(nil)
	_ api.GracefulShutdown = (*Pool)(nil)
)

func (p *Pool) String() string {
	o := p.Observe()
	state := "STOPPED"
	switch p.lifecycle.Load() {
	case stateRunning:
		state = "RUNNING"
	case stateStopping:
		state = "STOPPING"
	case stateNotStarted:
		state = "NOT_STARTED"
	}
	return fmt.Sprintf("Pool[%s]{%s,%d<=%d<=%d,idle=%d,reserved=%d,queue=%d}",
		p.Name(), state, p.MinThreads(), o.Threads, p.MaxThreads(), o.IdleThreads,
		o.MaxReservedThreads, o.QueueSize)
}
