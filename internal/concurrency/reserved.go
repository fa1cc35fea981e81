// File: internal/concurrency/reserved.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The thin bridge to an external reservation facility. tryExecute
// delegates to a TryExecutor; by default that is the always-false
// implementation used when reservedThreads == 0. When reservedThreads
// != 0, a semaphore-bounded ReservedThreadExecutor is installed as the
// concrete reference implementation of that collaborator's contract.
// The reservation facility itself (leasing policy, thread sourcing
// beyond this) remains out of scope.

package concurrency

import (
	"runtime"

	"golang.org/x/sync/semaphore"

	"github.com/hioload/threadpool/api"
)

// tryExecutor is the try-execute hook's contract: best-effort dispatch
// that must never block and must never enqueue.
type tryExecutor interface {
	TryExecute(job api.Job) bool
}

// alwaysFalseExecutor is installed when reservedThreads == 0 or after
// stop(); it rejects every tryExecute call.
type alwaysFalseExecutor struct{}

func (alwaysFalseExecutor) TryExecute(api.Job) bool            { return false }
func (alwaysFalseExecutor) MaxReservedThreads() int             { return 0 }
func (alwaysFalseExecutor) AvailableReservedThreads() int       { return 0 }
func (alwaysFalseExecutor) MaxLeasedThreads() int                { return 0 }

// reservedHeuristicDivisor mirrors the conventional "one reserved
// thread per 8 CPUs, at least 1" heuristic used when reservedThreads
// is configured as -1.
const reservedHeuristicDivisor = 8

// ReservedThreadExecutor is a semaphore-bounded pool of threads parked
// ready for immediate transient dispatch, separate from the main
// worker set. capacity <= 0 after heuristic resolution disables it.
type ReservedThreadExecutor struct {
	sem      *semaphore.Weighted
	capacity int64
}

// NewReservedThreadExecutor builds a reservation bridge with the given
// capacity; capacity == -1 resolves to the CPU-count heuristic.
func NewReservedThreadExecutor(capacity int) *ReservedThreadExecutor {
	if capacity < 0 {
		capacity = runtime.NumCPU() / reservedHeuristicDivisor
		if capacity < 1 {
			capacity = 1
		}
	}
	return &ReservedThreadExecutor{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

// TryExecute attempts to acquire a reserved slot and run job on a
// dedicated goroutine; it never blocks and never enqueues, returning
// false immediately if no reserved slot is free.
func (r *ReservedThreadExecutor) TryExecute(job api.Job) bool {
	if !r.sem.TryAcquire(1) {
		return false
	}
	go func() {
		defer r.sem.Release(1)
		job.Run()
	}()
	return true
}

// MaxReservedThreads reports the configured reservation capacity.
func (r *ReservedThreadExecutor) MaxReservedThreads() int {
	return int(r.capacity)
}

// AvailableReservedThreads reports how many reserved slots are free
// right now, via a non-blocking probe-acquire/release pair.
func (r *ReservedThreadExecutor) AvailableReservedThreads() int {
	available := 0
	for available < int(r.capacity) {
		if !r.sem.TryAcquire(1) {
			break
		}
		available++
	}
	if available > 0 {
		r.sem.Release(int64(available))
	}
	return available
}

// MaxLeasedThreads is always 0: this module does not model a separate
// leasing facility for dedicated long-running workers; leasedThreads
// therefore degrades to 0 via the clamp in observe().
func (r *ReservedThreadExecutor) MaxLeasedThreads() int { return 0 }
