// File: internal/concurrency/dump.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Diagnostics: the per-worker compressed stack tag and the pool-wide
// toString()-style dump, approximating Jetty's interruptThread/
// dumpThread pair within what a goroutine can actually expose.

package concurrency

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// atomicString is a minimal atomic string cell; workerHandle.state uses
// it so dump reads never race the worker's own poll/run transitions.
type atomicString struct {
	v atomic.Value
}

func (a *atomicString) set(s string) { a.v.Store(s) }
func (a *atomicString) get() string {
	if s, ok := a.v.Load().(string); ok {
		return s
	}
	return ""
}

// interruptThread is the pool-level analogue of Jetty's
// interruptThread(id): wake a specific worker if it is parked in a
// timed poll. Returns false if no such worker is live or a wake is
// already pending for it.
func (p *Pool) interruptThread(id int) bool {
	p.workersMu.Lock()
	h, ok := p.workers[id]
	p.workersMu.Unlock()
	if !ok {
		return false
	}
	return h.interrupt()
}

// dumpThread renders one worker's compressed state tag. Go goroutines
// carry no addressable native stack the way Java threads do, so this
// approximates Jetty's per-thread dump with the self-reported
// workerState instead of a captured call stack.
func (p *Pool) dumpThread(id int) string {
	p.workersMu.Lock()
	h, ok := p.workers[id]
	p.workersMu.Unlock()
	if !ok {
		return fmt.Sprintf("worker-%d=GONE", id)
	}
	state := h.state.get()
	if state == "" {
		state = "RUNNING"
	}
	return fmt.Sprintf("worker-%d=%s", id, state)
}

// Dump renders a toString()-style multi-line snapshot: the pool summary
// line followed by one line per live worker and, if DetailedDump() is
// set, a line per queued job's concrete type.
func (p *Pool) Dump() string {
	var b strings.Builder
	b.WriteString(p.String())
	b.WriteByte('\n')

	ids := p.liveWorkerIDs()
	for _, id := range ids {
		b.WriteString("  ")
		b.WriteString(p.dumpThread(id))
		b.WriteByte('\n')
	}

	if p.DetailedDump() {
		for i, job := range p.queue.Snapshot() {
			fmt.Fprintf(&b, "  queued[%d]=%T\n", i, job)
		}
	}
	return b.String()
}

func (p *Pool) liveWorkerIDs() []int {
	p.workersMu.Lock()
	defer p.workersMu.Unlock()
	ids := make([]int, 0, len(p.workers))
	for id := range p.workers {
		ids = append(ids, id)
	}
	return ids
}
