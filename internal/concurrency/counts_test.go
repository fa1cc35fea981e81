// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

// counts_test.go — addCounts/setStopping state transitions and the
// observer formulas derived from a (threads, netIdle) snapshot.
package concurrency

import "testing"

func TestCounts_AddCounts(t *testing.T) {
	var c counts
	c.cell.Set(0, 0)
	if !c.addCounts(1, 1) {
		t.Fatal("expected addCounts to report still-running")
	}
	tv, i := c.threadsIdle()
	if tv != 1 || i != 1 {
		t.Fatalf("got (%d,%d), want (1,1)", tv, i)
	}
}

func TestCounts_SetStoppingPinsHi(t *testing.T) {
	var c counts
	c.cell.Set(3, 2)
	prev := c.setStopping()
	if prev != 3 {
		t.Fatalf("setStopping returned %d, want 3", prev)
	}
	if !c.isStopping() {
		t.Fatal("expected isStopping true after setStopping")
	}
	if ok := c.addCounts(5, 1); ok {
		t.Fatal("addCounts must report not-still-running once stopping")
	}
	tv, i := c.threadsIdle()
	if tv != stoppingSentinel || i != 3 {
		t.Fatalf("got (%d,%d), want (sentinel,3)", tv, i)
	}
}

func TestCounts_Observe(t *testing.T) {
	var c counts
	c.cell.Set(10, 2)
	o := c.observe(20, 1, noLease{})
	if o.Threads != 10 {
		t.Fatalf("Threads = %d, want 10", o.Threads)
	}
	if o.IdleThreads != 2 {
		t.Fatalf("IdleThreads = %d, want 2", o.IdleThreads)
	}
	if o.QueueSize != 0 {
		t.Fatalf("QueueSize = %d, want 0", o.QueueSize)
	}
}

func TestCounts_ObserveNegativeIdleMeansQueueBacklog(t *testing.T) {
	var c counts
	c.cell.Set(10, -4)
	o := c.observe(20, 1, noLease{})
	if o.IdleThreads != 0 {
		t.Fatalf("IdleThreads = %d, want 0 (clamped)", o.IdleThreads)
	}
	if o.QueueSize != 4 {
		t.Fatalf("QueueSize = %d, want 4", o.QueueSize)
	}
}
