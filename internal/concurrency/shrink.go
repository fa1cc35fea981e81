// File: internal/concurrency/shrink.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pluggable shrink strategies deciding when an idle worker exits.
// Modeled as a small closed interface with three concrete arms rather
// than open-ended polymorphism; per-worker state for the linear variant
// lives in an arena indexed by worker id, not goroutine-local storage,
// so prune can be invoked for a worker that exits some other way.

package concurrency

import (
	"sync"
	"sync/atomic"
	"time"
)

// shrinkStrategy governs whether idle workers are allowed to exit.
// onIdle/onBusy track a worker's idle transitions; evict decides
// eviction; prune cleans up per-worker state on any exit path other
// than a true evict.
type shrinkStrategy interface {
	onIdle(workerID int) (prunesOnExit bool)
	onBusy(workerID int) bool
	evict(workerID int, idleTimeout time.Duration, maxEvictCount int) bool
	prune(workerID int)
	init(workerID int)
}

// newShrinkStrategy selects the strategy variant per spec: idleTimeout
// <= 0 disables shrink entirely; maxShrinkCount == 1 uses the global
// rate-limited default; maxShrinkCount > 1 uses the linear, per-worker
// TTL variant with a windowed quota.
func newShrinkStrategy(idleTimeout time.Duration, maxShrinkCount int) shrinkStrategy {
	switch {
	case idleTimeout <= 0:
		return noopShrink{}
	case maxShrinkCount <= 1:
		return newDefaultShrink()
	default:
		return newLinearShrink()
	}
}

// noopShrink never authorizes an exit; used when idleTimeout <= 0.
// prune must never legally be called against it.
type noopShrink struct{}

func (noopShrink) onIdle(int) bool                    { return false }
func (noopShrink) onBusy(int) bool                    { return false }
func (noopShrink) evict(int, time.Duration, int) bool { return false }
func (noopShrink) prune(int)                          {}
func (noopShrink) init(int)                           {}

// defaultShrink enforces one eviction per interval globally, across all
// workers, via a single monotonic "last shrink" timestamp.
type defaultShrink struct {
	lastShrink atomic.Int64 // monotonic nanoseconds
}

func newDefaultShrink() *defaultShrink {
	d := &defaultShrink{}
	d.lastShrink.Store(time.Now().UnixNano())
	return d
}

func (d *defaultShrink) onIdle(int) bool { return true }
func (d *defaultShrink) onBusy(int) bool { return false }

// evict returns true iff more than itNanos has elapsed since the last
// shrink and the CAS advancing the timeline succeeds. The advance rule
// moves the timeline forward by at least itNanos, never by less, so
// concurrent evictors near the same instant cannot all succeed, yet the
// timeline never falls behind more than one interval under load. A
// naive `last = now` would gap the timeline and slow shrink artificially.
func (d *defaultShrink) evict(_ int, itNanos time.Duration, _ int) bool {
	it := int64(itNanos)
	for {
		last := d.lastShrink.Load()
		now := time.Now().UnixNano()
		if now-last <= it {
			return false
		}
		next := last + it
		if alt := now - it; alt > next {
			next = alt
		}
		if d.lastShrink.CompareAndSwap(last, next) {
			return true
		}
	}
}

func (d *defaultShrink) prune(int) {}
func (d *defaultShrink) init(int)  { d.lastShrink.Store(time.Now().UnixNano()) }

// linearShrink allows up to maxEvictCount exits per window, gated per
// worker by its own idle age.
type linearShrink struct {
	mu        sync.Mutex
	idleSince map[int]int64 // workerID -> became-idle nanos; absent == busy

	// window packs (truncated window-start, evictedThisWindow) into one
	// AtomicBiInteger: hi holds the window start in ~1ms units (coarse
	// enough to fit 32 bits for the comparison below), lo the count.
	window AtomicBiInteger
}

func newLinearShrink() *linearShrink {
	l := &linearShrink{idleSince: make(map[int]int64)}
	l.window.Set(int32(time.Now().UnixNano()>>20), 0)
	return l
}

func (l *linearShrink) onIdle(workerID int) bool {
	l.mu.Lock()
	l.idleSince[workerID] = time.Now().UnixNano()
	l.mu.Unlock()
	return true
}

func (l *linearShrink) onBusy(workerID int) bool {
	l.mu.Lock()
	delete(l.idleSince, workerID)
	l.mu.Unlock()
	return false
}

func (l *linearShrink) evict(workerID int, itNanos time.Duration, maxEvictCount int) bool {
	l.mu.Lock()
	since, ok := l.idleSince[workerID]
	l.mu.Unlock()
	if !ok {
		return false
	}
	now := time.Now().UnixNano()
	if time.Duration(now-since) < itNanos {
		return false
	}
	windowUnits := int32(itNanos >> 20)
	if windowUnits == 0 {
		windowUnits = 1
	}
	nowUnit := int32(now >> 20)
	for {
		startUnit, count := l.window.GetHiLo()
		newStart, newCount := startUnit, count
		if nowUnit-startUnit > windowUnits {
			newStart, newCount = nowUnit, 0
		}
		if newCount >= int32(maxEvictCount) {
			return false
		}
		if l.window.CompareAndSet(startUnit, count, newStart, newCount+1) {
			l.mu.Lock()
			delete(l.idleSince, workerID)
			l.mu.Unlock()
			return true
		}
	}
}

func (l *linearShrink) prune(workerID int) {
	l.mu.Lock()
	delete(l.idleSince, workerID)
	l.mu.Unlock()
}

func (l *linearShrink) init(workerID int) {
	l.mu.Lock()
	delete(l.idleSince, workerID)
	l.mu.Unlock()
}
