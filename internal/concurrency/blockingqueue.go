// File: internal/concurrency/blockingqueue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// blockingQueue is the concrete FIFO job queue the pool is specified
// against: blocking take, timed poll, non-blocking offer/poll, and a
// snapshot iterator. github.com/eapache/queue supplies the growable
// ring buffer storage; this type adds the mutex/condvar blocking
// semantics and the optional capacity bound around it.

package concurrency

import (
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/hioload/threadpool/api"
)

// blockingQueue is a many-producer, many-consumer FIFO of api.Job.
// A capacity of 0 means unbounded; Offer never fails in that case.
type blockingQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	q        *queue.Queue
	capacity int
	closed   bool
}

func newBlockingQueue(capacity int) *blockingQueue {
	bq := &blockingQueue{
		q:        queue.New(),
		capacity: capacity,
	}
	bq.notEmpty = sync.NewCond(&bq.mu)
	return bq
}

// Offer enqueues job if capacity allows; returns false if the bounded
// queue is full. It never blocks.
func (bq *blockingQueue) Offer(job api.Job) bool {
	bq.mu.Lock()
	defer bq.mu.Unlock()
	if bq.capacity > 0 && bq.q.Length() >= bq.capacity {
		return false
	}
	bq.q.Add(job)
	bq.notEmpty.Signal()
	return true
}

// Take blocks until a job is available.
func (bq *blockingQueue) Take() api.Job {
	bq.mu.Lock()
	defer bq.mu.Unlock()
	for bq.q.Length() == 0 {
		bq.notEmpty.Wait()
	}
	return bq.pop()
}

// PollTimed blocks up to d for a job; returns nil on timeout. A d of 0
// is treated as an immediate PollNow.
func (bq *blockingQueue) PollTimed(d time.Duration) api.Job {
	if d <= 0 {
		return bq.PollNow()
	}
	deadline := time.Now().Add(d)
	timer := time.AfterFunc(d, func() {
		bq.mu.Lock()
		bq.notEmpty.Broadcast()
		bq.mu.Unlock()
	})
	defer timer.Stop()

	bq.mu.Lock()
	defer bq.mu.Unlock()
	for bq.q.Length() == 0 {
		if !time.Now().Before(deadline) {
			return nil
		}
		bq.notEmpty.Wait()
	}
	return bq.pop()
}

// PollInterruptible blocks up to d for a job, same as PollTimed, but
// also returns nil early if wake fires first: the Go analogue of a
// blocked poll observing Thread.interrupt().
func (bq *blockingQueue) PollInterruptible(d time.Duration, wake <-chan struct{}) api.Job {
	if d <= 0 {
		return bq.PollNow()
	}
	deadline := time.Now().Add(d)
	cancelled := false

	timer := time.AfterFunc(d, func() {
		bq.mu.Lock()
		bq.notEmpty.Broadcast()
		bq.mu.Unlock()
	})
	defer timer.Stop()

	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-wake:
			bq.mu.Lock()
			cancelled = true
			bq.notEmpty.Broadcast()
			bq.mu.Unlock()
		case <-stopWatch:
		}
	}()

	bq.mu.Lock()
	defer bq.mu.Unlock()
	for bq.q.Length() == 0 {
		if cancelled || !time.Now().Before(deadline) {
			return nil
		}
		bq.notEmpty.Wait()
	}
	return bq.pop()
}

// PollNow returns a job if one is immediately available, else nil.
func (bq *blockingQueue) PollNow() api.Job {
	bq.mu.Lock()
	defer bq.mu.Unlock()
	if bq.q.Length() == 0 {
		return nil
	}
	return bq.pop()
}

// pop removes and returns the head job. Caller must hold bq.mu.
func (bq *blockingQueue) pop() api.Job {
	v := bq.q.Peek()
	bq.q.Remove()
	job, _ := v.(api.Job)
	return job
}

// Len reports the current queue length.
func (bq *blockingQueue) Len() int {
	bq.mu.Lock()
	defer bq.mu.Unlock()
	return bq.q.Length()
}

// Snapshot returns a point-in-time copy of queued jobs, oldest first,
// without removing them.
func (bq *blockingQueue) Snapshot() []api.Job {
	bq.mu.Lock()
	defer bq.mu.Unlock()
	out := make([]api.Job, bq.q.Length())
	for i := range out {
		job, _ := bq.q.Get(i).(api.Job)
		out[i] = job
	}
	return out
}

// WakeAll broadcasts to every blocked Take/PollTimed/PollInterruptible
// caller. Each re-checks only its own wait condition (a job available,
// its deadline, its wake cancellation) and waits again if none holds;
// the queue keeps no stop flag, so a blocked Take returns only once a
// job arrives. The stop sequence calls it after offering NOOP fillers.
func (bq *blockingQueue) WakeAll() {
	bq.mu.Lock()
	bq.notEmpty.Broadcast()
	bq.mu.Unlock()
}

// Drain removes and returns every remaining job, emptying the queue.
// Used by stop() to hand leftovers to the close-on-stop path.
func (bq *blockingQueue) Drain() []api.Job {
	bq.mu.Lock()
	defer bq.mu.Unlock()
	out := make([]api.Job, 0, bq.q.Length())
	for bq.q.Length() > 0 {
		out = append(out, bq.pop())
	}
	return out
}
