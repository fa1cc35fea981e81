// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

// reserved_test.go — ReservedThreadExecutor's non-blocking try-execute
// and its capacity accounting.
package concurrency

import (
	"testing"
	"time"

	"github.com/hioload/threadpool/api"
)

func TestReservedThreadExecutor_TryExecuteBoundedByCapacity(t *testing.T) {
	r := NewReservedThreadExecutor(1)
	release := make(chan struct{})
	started := make(chan struct{})

	ok := r.TryExecute(&api.MockJob{RunFunc: func() {
		close(started)
		<-release
	}})
	if !ok {
		t.Fatal("expected first TryExecute to succeed")
	}
	<-started

	if r.TryExecute(&api.MockJob{}) {
		t.Fatal("expected second TryExecute to fail: capacity exhausted")
	}
	close(release)
}

func TestReservedThreadExecutor_AvailableReservedThreads(t *testing.T) {
	r := NewReservedThreadExecutor(3)
	if got := r.AvailableReservedThreads(); got != 3 {
		t.Fatalf("AvailableReservedThreads() = %d, want 3", got)
	}
	if got := r.MaxReservedThreads(); got != 3 {
		t.Fatalf("MaxReservedThreads() = %d, want 3", got)
	}
}

func TestAlwaysFalseExecutor_NeverAccepts(t *testing.T) {
	var e alwaysFalseExecutor
	if e.TryExecute(&api.MockJob{}) {
		t.Fatal("alwaysFalseExecutor must never accept")
	}
}

func TestNewReservedThreadExecutor_HeuristicIsAtLeastOne(t *testing.T) {
	r := NewReservedThreadExecutor(-1)
	if r.MaxReservedThreads() < 1 {
		t.Fatalf("heuristic capacity = %d, want >= 1", r.MaxReservedThreads())
	}
}

func TestReservedThreadExecutor_ReleasesAfterJobCompletes(t *testing.T) {
	r := NewReservedThreadExecutor(1)
	done := make(chan struct{})
	r.TryExecute(&api.MockJob{RunFunc: func() { close(done) }})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job never ran")
	}
	deadline := time.Now().Add(time.Second)
	for r.AvailableReservedThreads() < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if r.AvailableReservedThreads() != 1 {
		t.Fatal("expected the reserved slot to be released after job completion")
	}
}
