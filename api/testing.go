// Package api
// Author: momentics
//
// Mock/testing utilities for the pool's own contracts; extendable for
// new interfaces as the package grows.

package api

// MockJob is a test-friendly Job: RunFunc is invoked by Run, and Runs
// counts how many times Run was called, so tests can assert a job
// executed exactly once without a separate channel/flag.
type MockJob struct {
	RunFunc func()
	Runs    int
}

func (m *MockJob) Run() {
	m.Runs++
	if m.RunFunc != nil {
		m.RunFunc()
	}
}

// MockTryExecutor is a test double for the reservation bridge a pool's
// TryExecute delegates to: AcceptFunc decides whether to accept a job,
// defaulting to always-reject when nil.
type MockTryExecutor struct {
	AcceptFunc func(Job) bool
	Offered    []Job
}

func (m *MockTryExecutor) TryExecute(job Job) bool {
	m.Offered = append(m.Offered, job)
	if m.AcceptFunc == nil {
		return false
	}
	return m.AcceptFunc(job)
}

// Extend with mocks for additional contracts as architecture evolves.
