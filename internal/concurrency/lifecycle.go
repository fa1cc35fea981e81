// File: internal/concurrency/lifecycle.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Start, ensure-threads, the two-phase stop, and join-until-quiescent.

package concurrency

import (
	"io"
	"runtime/debug"
	"time"

	"github.com/hioload/threadpool/api"
	"github.com/hioload/threadpool/control"
)

// noopJob is offered into the queue during stop solely to wake timed
// pollers; the drain path recognizes it and does not log it as
// "stopped without executing".
type noopJob struct{}

func (noopJob) Run() {}

func isNoop(j api.Job) bool {
	_, ok := j.(noopJob)
	return ok
}

// Start primes the pool up to minThreads workers. Calling Start twice
// is a no-op.
func (p *Pool) Start() error {
	if p.lifecycle.Load() != stateNotStarted {
		return nil
	}
	if !p.lifecycle.CompareAndSwap(stateNotStarted, stateRunning) {
		return nil
	}
	p.counts.cell.Set(0, 0)
	p.currentShrink().init(-1)

	if rt := p.reservedThreadsCfg; rt != 0 {
		p.execRef.Store(&reservationBox{r: NewReservedThreadExecutor(rt)})
	}

	p.ensureThreads()
	return nil
}

// ensureThreads is the CAS loop guaranteeing, post-submission and
// post-exit, that T >= min(minThreads, maxThreads) and that if I < 0
// and T < maxThreads another worker is started. This closes the race
// between "last worker exits" and "new job just arrived".
func (p *Pool) ensureThreads() {
	for {
		if p.counts.isStopping() {
			return
		}
		t, i := p.counts.threadsIdle()
		min := p.minThreads.Load()
		max := p.maxThreads.Load()
		target := min
		if max < target {
			target = max
		}
		need := t < target || (i < 0 && t < max)
		if !need {
			return
		}
		if !p.counts.addCounts(1, 1) {
			return
		}
		p.spawnWorker()
	}
}

// spawnWorker registers a new worker in the live-worker set and starts
// its goroutine. Callers must have already grown (T, I) accordingly;
// Go goroutine creation cannot itself fail, so there is no rollback
// path to mirror Jetty's startThread catch-and-undo here.
func (p *Pool) spawnWorker() {
	id := int(p.nextWorkerID.Add(1))
	h := newWorkerHandle(id)

	p.workersMu.Lock()
	p.workers[id] = h
	p.workersMu.Unlock()

	p.currentShrink().init(id)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runWorker(h)
	}()
}

// removeWorker deletes a worker from the live-worker set. Called only
// by the exiting worker itself.
func (p *Pool) removeWorker(id int) {
	p.workersMu.Lock()
	delete(p.workers, id)
	p.workersMu.Unlock()
}

// Stop executes the two-phase shutdown sequence: detach the
// reservation facility, flip the stop sentinel, wake blocked pollers,
// escalate to interrupts, drain and close leftovers, then signal
// joiners. It returns once the sequence completes, regardless of
// whether every worker exited in time (stragglers are logged, not
// force-killed).
func (p *Pool) Stop() error {
	if !p.lifecycle.CompareAndSwap(stateRunning, stateStopping) {
		if p.lifecycle.Load() == stateNotStarted {
			p.lifecycle.Store(stateStopped)
		}
		return nil
	}
	p.joinMu.Lock()
	p.joinCond.Broadcast()
	p.joinMu.Unlock()

	p.execRef.Store(&reservationBox{r: alwaysFalseExecutor{}})

	previousT := p.counts.setStopping()
	timeout := p.StopTimeout()

	if timeout > 0 && previousT > 0 {
		for n := int32(0); n < previousT; n++ {
			p.queue.Offer(noopJob{})
		}
		p.queue.WakeAll()

		half := timeout / 2
		if !p.waitWorkersDone(half) {
			for _, h := range p.snapshotWorkers() {
				h.interrupt()
			}
			p.queue.WakeAll()
			if !p.waitWorkersDone(timeout - half) {
				p.logStuckWorkers()
			}
		}
	} else {
		p.queue.WakeAll()
		p.waitWorkersDone(0)
	}

	p.drainAndClose()

	p.joinMu.Lock()
	p.lifecycle.Store(stateStopped)
	p.joinCond.Broadcast()
	p.joinMu.Unlock()
	return nil
}

// waitWorkersDone blocks until every spawned worker has exited or
// timeout elapses (0 means "don't wait at all, just check"). Returns
// true if all workers had already exited.
func (p *Pool) waitWorkersDone(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	if timeout <= 0 {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Shutdown adapts Stop to api.GracefulShutdown, using the pool's own
// configured StopTimeout rather than taking one as a parameter.
func (p *Pool) Shutdown() error {
	return p.Stop()
}

// Join blocks until the pool has fully stopped (Stop has completed its
// drain and transitioned lifecycle to stopped). Join on a pool that
// was never stopped blocks forever, matching the original's semantics
// of joining a thread that never exits.
func (p *Pool) Join() {
	p.joinMu.Lock()
	for p.lifecycle.Load() != stateStopped {
		p.joinCond.Wait()
	}
	p.joinMu.Unlock()
}

func (p *Pool) snapshotWorkers() []*workerHandle {
	p.workersMu.Lock()
	defer p.workersMu.Unlock()
	out := make([]*workerHandle, 0, len(p.workers))
	for _, h := range p.workers {
		out = append(out, h)
	}
	return out
}

func (p *Pool) logStuckWorkers() {
	stragglers := p.snapshotWorkers()
	if len(stragglers) == 0 {
		return
	}
	p.logger.Printf("pool %q: %d worker(s) still alive after stop grace period", p.Name(), len(stragglers))
	if p.DetailedDump() {
		p.logger.Printf("pool %q: stack dump:\n%s", p.Name(), debug.Stack())
	}
}

// drainAndClose empties the queue; a closeable drained job is closed
// (failures logged and swallowed), a non-closeable non-sentinel job is
// logged as stopped without executing. This reads only what the queue
// returns after T was set to the stop sentinel: a worker that dequeued
// a job before the sentinel went live completes it normally or is
// interrupted, so a job is either run or closed here, never both.
func (p *Pool) drainAndClose() {
	for _, job := range p.queue.Drain() {
		if isNoop(job) {
			continue
		}
		if closer, ok := job.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				p.logger.Printf("pool %q: closing drained job failed: %v", p.Name(), err)
			}
			continue
		}
		p.logger.Printf("pool %q: job stopped without executing", p.Name())
	}
}

func (p *Pool) logJobThrew(job api.Job, r any) {
	p.logger.Printf("pool %q: job panicked: %v\n%s", p.Name(), r, debug.Stack())
}

// registerReloadPropagation wires control.ConfigStore's reload hook so
// external tuning changes (via SetConfig) flow into the pool's live
// atomics, mirroring the same hot-reload mechanism control/hotreload.go
// exposes process-wide.
func (p *Pool) registerReloadPropagation() {
	p.configStore.OnReload(func() {
		snap := p.configStore.GetSnapshot()
		if v, ok := snap["maxShrinkCount"].(int); ok {
			_ = p.SetMaxShrinkCount(v)
		}
		if v, ok := snap["idleTimeoutMillis"].(int64); ok {
			p.SetIdleTimeout(time.Duration(v) * time.Millisecond)
		}
	})
	control.RegisterReloadHook(func() {
		p.metrics.Set(p.Name()+".stats", p.Stats())
	})
	p.debugProbes.RegisterProbe(p.Name()+".dump", func() any {
		return p.Dump()
	})
}
