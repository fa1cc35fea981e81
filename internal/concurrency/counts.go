// File: internal/concurrency/counts.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The (threads, netIdle) cell and the observers derived from it. T is
// the hi half: the number of workers the pool considers live, or the
// sentinel stopping value. I is the lo half: idle workers minus queued
// jobs awaiting a worker.

package concurrency

import "math"

// stoppingSentinel is the hi-half value meaning "stopping/stopped": no
// further growth permitted, workers treat it as an exit signal.
const stoppingSentinel int32 = math.MinInt32

// counts wraps the bi-integer cell with the pool's interpretation of
// its two halves.
type counts struct {
	cell AtomicBiInteger
}

// threadsIdle returns the raw (T, I) pair.
func (c *counts) threadsIdle() (t, i int32) {
	return c.cell.GetHiLo()
}

// isStopping reports whether T currently holds the sentinel.
func (c *counts) isStopping() bool {
	t, _ := c.cell.GetHiLo()
	return t == stoppingSentinel
}

// addCounts applies (dT, dI) via a CAS loop. If the cell is already
// stopping, only the lo half is updated (hi stays pinned at the
// sentinel) and stillRunning is false, telling the caller not to
// attempt any growth-related side effect (starting a worker, etc).
func (c *counts) addCounts(dT, dI int32) (stillRunning bool) {
	for {
		t, i := c.cell.GetHiLo()
		if t == stoppingSentinel {
			if c.cell.CompareAndSet(t, i, t, i+dI) {
				return false
			}
			continue
		}
		if c.cell.CompareAndSet(t, i, t+dT, i+dI) {
			return true
		}
	}
}

// setStopping swaps T to the sentinel, capturing and returning the
// previous T (the live-worker count at the moment stop was called).
func (c *counts) setStopping() (previousT int32) {
	for {
		t, i := c.cell.GetHiLo()
		if t == stoppingSentinel {
			return t
		}
		if c.cell.CompareAndSet(t, i, stoppingSentinel, i) {
			return t
		}
	}
}

func maxI32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// LeaseSource is queried for the reservation facility's view of leased
// capacity; a zero-value default reports no leasing in effect, keeping
// lease accounting a pluggable collaborator rather than a concrete
// budget engine.
type LeaseSource interface {
	MaxLeasedThreads() int
	MaxReservedThreads() int
	AvailableReservedThreads() int
}

type noLease struct{}

func (noLease) MaxLeasedThreads() int         { return 0 }
func (noLease) MaxReservedThreads() int       { return 0 }
func (noLease) AvailableReservedThreads() int { return 0 }

// observers bundles every derived quantity (idle/busy/utilized threads,
// queue depth, reservation state) computed from a single (T, I)
// snapshot plus the pool's static config and its lease source, so
// callers see a self-consistent view rather than recomputing against a
// moving cell.
type observers struct {
	Threads                  int
	IdleThreads              int
	QueueSize                int
	ReadyThreads             int
	LeasedThreads            int
	UtilizedThreads          int
	MaxAvailableThreads      int
	MaxReservedThreads       int
	AvailableReservedThreads int
	IsLowOnThreads           bool
	UtilizationRate          float64
}

func (c *counts) observe(maxThreads int, lowThreadsThreshold int, lease LeaseSource) observers {
	t, i := c.threadsIdle()
	threads := int(maxI32(0, t))
	idle := int(maxI32(0, i))
	queueSize := int(maxI32(0, -i))
	availableReserved := lease.AvailableReservedThreads()
	ready := idle + availableReserved
	leased := lease.MaxLeasedThreads() - lease.MaxReservedThreads()
	if leased < 0 {
		leased = 0
	}
	utilized := threads - leased - ready
	if utilized < 0 {
		utilized = 0
	}
	denom := maxThreads - leased
	var rate float64
	if denom > 0 {
		rate = float64(utilized) / float64(denom)
	}
	low := (maxThreads-threads)+ready-queueSize <= lowThreadsThreshold

	return observers{
		Threads:                  threads,
		IdleThreads:              idle,
		QueueSize:                queueSize,
		ReadyThreads:             ready,
		LeasedThreads:            leased,
		UtilizedThreads:          utilized,
		MaxAvailableThreads:      maxThreads,
		MaxReservedThreads:       lease.MaxReservedThreads(),
		AvailableReservedThreads: availableReserved,
		IsLowOnThreads:           low,
		UtilizationRate:          rate,
	}
}
