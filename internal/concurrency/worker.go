// File: internal/concurrency/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The loop every worker runs: poll, run, rebalance counters, evaluate
// shrink, repeat. A worker owns its shrink slot and its wake
// channel exclusively for its lifetime; the pool owns the strategy's
// global state and the live-worker set.

package concurrency

import (
	"time"

	"github.com/hioload/threadpool/api"
)

// workerHandle is the pool's record of one live worker, read by dump
// and interrupt operations from outside the worker's own goroutine.
type workerHandle struct {
	id    int
	wake  chan struct{} // buffered(1); non-blocking wake, Go's analogue of interrupt
	state atomicString  // compressed stack tag: "IDLE" or "" (running)
}

func newWorkerHandle(id int) *workerHandle {
	return &workerHandle{id: id, wake: make(chan struct{}, 1)}
}

// interrupt sends a non-blocking wake and reports whether it was
// queued (false if a wake is already pending). The wake is read only by
// PollInterruptible, which returns nil early: at once if the worker is
// parked there, else at its next timed poll. A worker blocked in Take
// (idleTimeout <= 0) never reads it.
func (w *workerHandle) interrupt() bool {
	select {
	case w.wake <- struct{}{}:
		return true
	default:
		return false
	}
}

// runWorker is the goroutine body started by spawnWorker. p owns the
// shared queue/counts/shrink strategy; h.id is this worker's slot in the
// shrink strategy's per-worker arena and in p.workers.
func (p *Pool) runWorker(h *workerHandle) {
	shrink := p.currentShrink()
	pruneOnExit := shrink.onIdle(h.id)
	idleCreditHeld := true

	for {
		t, _ := p.counts.threadsIdle()
		if t == stoppingSentinel {
			break
		}

		idleTimeout := p.IdleTimeout()
		h.state.set("IDLE")
		var job api.Job
		if idleTimeout > 0 {
			job = p.pollInterruptible(h, idleTimeout)
		} else {
			job = p.queue.Take()
		}
		h.state.set("")

		if job != nil {
			pruneOnExit = shrink.onBusy(h.id)
			idleCreditHeld = false
			for job != nil {
				p.runJobSafely(job)
				stillRunning := p.counts.addCounts(0, 1)
				idleCreditHeld = true
				if !stillRunning {
					break
				}
				job = p.queue.PollNow()
			}
			pruneOnExit = shrink.onIdle(h.id)
		}

		if shrink.evict(h.id, idleTimeout, p.MaxShrinkCount()) {
			pruneOnExit = false
			break
		}
	}

	if pruneOnExit {
		shrink.prune(h.id)
	}
	p.removeWorker(h.id)
	dI := int32(0)
	if idleCreditHeld {
		dI = -1
	}
	p.counts.addCounts(-1, dI)
	p.ensureThreads()
}

// pollInterruptible polls the queue with a timeout, also waking early
// if this worker's wake channel fires: an interruptThread(id) call
// landing while the worker is parked here.
func (p *Pool) pollInterruptible(h *workerHandle, d time.Duration) api.Job {
	return p.queue.PollInterruptible(d, h.wake)
}

// runJobSafely runs job through the pool's overridable hook, catching
// any panic so a misbehaving job can never take a worker down outside
// the shrink/shutdown paths (losing a worker silently would violate the
// (T, I) accounting).
func (p *Pool) runJobSafely(job api.Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logJobThrew(job, r)
		}
	}()
	p.runJob(job)
}
