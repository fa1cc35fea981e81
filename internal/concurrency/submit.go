// File: internal/concurrency/submit.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The submission path. Execute implements the grow-or-queue decision;
// TryExecute is the non-blocking bridge to the reservation facility.

package concurrency

import (
	"github.com/hioload/threadpool/api"
)

// Execute submits job for asynchronous execution. It returns
// api.ErrRejected if the pool is stopping or the bounded queue refuses
// the offer; otherwise it returns as soon as the job is accepted,
// before it runs.
func (p *Pool) Execute(job api.Job) error {
	if job == nil {
		return api.NewError(api.ErrCodeInvalidArgument, "job must not be nil")
	}

	var startWorker int32
	for {
		t, i := p.counts.threadsIdle()
		if t == stoppingSentinel {
			return api.ErrRejected
		}

		startWorker = 0
		if i <= 0 && t < p.maxThreads.Load() {
			startWorker = 1
		}

		if p.counts.cell.CompareAndSetRaw(pack(t, i), pack(t+startWorker, i+startWorker-1)) {
			break
		}
	}

	if !p.queue.Offer(job) {
		// Reverse the grow-or-demand delta we just committed: the
		// queue refused, so the job was never handed to anyone.
		p.counts.addCounts(-startWorker, -(startWorker - 1))
		return api.ErrRejected
	}

	if startWorker == 1 {
		p.spawnWorker()
	}
	return nil
}

// TryExecute offers job to the reservation facility only; it never
// blocks and never enqueues, returning false immediately if no
// reserved slot is free or none is configured.
func (p *Pool) TryExecute(job api.Job) bool {
	if job == nil {
		return false
	}
	return p.currentReservation().TryExecute(job)
}
