// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

// pool_test.go — end-to-end lifecycle: start, submit, grow, stop,
// join, plus the reserved-thread try-execute bridge.
package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hioload/threadpool/api"
)

func newTestPool(t *testing.T, cfg Config) *Pool {
	t.Helper()
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return p
}

func TestPool_StartPrimesMinThreads(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinThreads = 3
	cfg.MaxThreads = 10
	p := newTestPool(t, cfg)
	defer p.Shutdown()

	deadline := time.Now().Add(time.Second)
	for p.Threads() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if p.Threads() < 3 {
		t.Fatalf("Threads() = %d, want >= 3", p.Threads())
	}
}

func TestPool_ExecuteRunsJob(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinThreads = 1
	cfg.MaxThreads = 4
	p := newTestPool(t, cfg)
	defer p.Shutdown()

	done := make(chan struct{})
	job := &api.MockJob{RunFunc: func() { close(done) }}
	if err := p.Execute(job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not run within timeout")
	}
}

func TestPool_ExecuteGrowsBeyondMinWhenBusy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinThreads = 1
	cfg.MaxThreads = 4
	cfg.IdleTimeout = time.Minute
	p := newTestPool(t, cfg)
	defer p.Shutdown()

	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(4)
	for i := 0; i < 4; i++ {
		job := &api.MockJob{RunFunc: func() {
			started.Done()
			<-release
		}}
		if err := p.Execute(job); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}

	waitDone := make(chan struct{})
	go func() { started.Wait(); close(waitDone) }()
	select {
	case <-waitDone:
	case <-time.After(time.Second):
		t.Fatal("pool did not grow to run all 4 blocking jobs concurrently")
	}
	close(release)
}

func TestPool_ExecuteRejectsAfterStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinThreads = 1
	cfg.MaxThreads = 2
	p := newTestPool(t, cfg)
	if err := p.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := p.Execute(&api.MockJob{}); err != api.ErrRejected {
		t.Fatalf("Execute after stop = %v, want ErrRejected", err)
	}
}

func TestPool_JoinBlocksUntilStopped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinThreads = 1
	cfg.MaxThreads = 2
	p := newTestPool(t, cfg)

	joined := make(chan struct{})
	go func() { p.Join(); close(joined) }()

	select {
	case <-joined:
		t.Fatal("Join returned before Stop was called")
	case <-time.After(50 * time.Millisecond):
	}

	p.Shutdown()
	select {
	case <-joined:
	case <-time.After(time.Second):
		t.Fatal("Join did not return after Shutdown")
	}
}

func TestPool_StopDrainsAndClosesLeftoverJobs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinThreads = 0
	cfg.MaxThreads = 1
	cfg.StopTimeout = 100 * time.Millisecond
	p := newTestPool(t, cfg)

	closed := make(chan struct{})
	p.queue.Offer(&closeableJob{closeFunc: func() error { close(closed); return nil }})

	if err := p.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case <-closed:
	default:
		t.Fatal("expected leftover job to be closed during drain")
	}
}

type closeableJob struct {
	closeFunc func() error
}

func (j *closeableJob) Run()        {}
func (j *closeableJob) Close() error { return j.closeFunc() }

// mockReservation pairs api.MockTryExecutor with noLease so it
// satisfies the package-private reservation interface (tryExecutor +
// LeaseSource) the execRef slot requires.
type mockReservation struct {
	*api.MockTryExecutor
	noLease
}

func TestPool_TryExecuteUsesReservationBridge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinThreads = 0
	cfg.MaxThreads = 1
	cfg.ReservedThreads = 0
	p := newTestPool(t, cfg)
	defer p.Shutdown()

	if p.TryExecute(&api.MockJob{}) {
		t.Fatal("expected TryExecute to fail with reservedThreads == 0")
	}

	mock := &api.MockTryExecutor{AcceptFunc: func(api.Job) bool { return true }}
	p.execRef.Store(&reservationBox{r: mockReservation{mock, noLease{}}})

	job := &api.MockJob{}
	if !p.TryExecute(job) {
		t.Fatal("expected TryExecute to succeed via installed mock")
	}
	if len(mock.Offered) != 1 {
		t.Fatalf("mock.Offered = %d, want 1", len(mock.Offered))
	}
}

// TestPool_LinearShrinkReclaimsAcrossMultipleWindows grows the pool well
// past minThreads, then lets it sit idle across several real
// idleTimeout windows with MaxShrinkCount > 1 (selecting linearShrink).
// It only asserts Threads() eventually settles back at minThreads,
// within a deadline — if the window-reset CAS in linearShrink.evict
// ever livelocks again, every worker goroutine past minThreads spins at
// 100% CPU instead of exiting and this test times out.
func TestPool_LinearShrinkReclaimsAcrossMultipleWindows(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinThreads = 2
	cfg.MaxThreads = 10
	cfg.IdleTimeout = 20 * time.Millisecond
	cfg.MaxShrinkCount = 3
	p := newTestPool(t, cfg)
	defer p.Shutdown()

	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(8)
	for i := 0; i < 8; i++ {
		job := &api.MockJob{RunFunc: func() {
			started.Done()
			<-release
		}}
		if err := p.Execute(job); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}

	growDone := make(chan struct{})
	go func() { started.Wait(); close(growDone) }()
	select {
	case <-growDone:
	case <-time.After(time.Second):
		t.Fatal("pool did not grow to run all 8 blocking jobs concurrently")
	}
	close(release)

	deadline := time.Now().Add(3 * time.Second)
	for p.Threads() > cfg.MinThreads && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := p.Threads(); got > cfg.MinThreads {
		t.Fatalf("Threads() = %d after shrink deadline, want <= %d (possible shrink livelock)",
			got, cfg.MinThreads)
	}
}

func TestPool_SetMinMaxRaisesMaxToMatchMin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinThreads = 1
	cfg.MaxThreads = 4
	p := newTestPool(t, cfg)
	defer p.Shutdown()

	if err := p.SetMinMax(6, 3); err != nil {
		t.Fatalf("SetMinMax: %v", err)
	}
	if p.MaxThreads() != 6 {
		t.Fatalf("MaxThreads() = %d, want 6 (raised to match min)", p.MaxThreads())
	}
}

// TestPool_ConcurrentSubmitStress submits from many goroutines
// simultaneously under a deadline guard, checked by atomic completion
// count.
func TestPool_ConcurrentSubmitStress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinThreads = 2
	cfg.MaxThreads = 16
	cfg.QueueCapacity = 0
	p := newTestPool(t, cfg)
	defer p.Shutdown()

	const n = 300
	var completed int32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			job := &api.MockJob{RunFunc: func() { atomic.AddInt32(&completed, 1) }}
			for {
				if err := p.Execute(job); err == nil {
					return
				}
				time.Sleep(time.Millisecond)
			}
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout: possible deadlock under concurrent submission")
	}

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&completed) < n && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := atomic.LoadInt32(&completed); got != n {
		t.Fatalf("completed = %d, want %d", got, n)
	}
}
