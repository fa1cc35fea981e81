// File: api/job.go
// Author: momentics <momentics@gmail.com>
//
// Job is the opaque unit of work the pool runs. Jobs that additionally
// implement io.Closer are detected dynamically by the drain path during
// shutdown rather than requiring every job to declare the capability.

package api

// Job is a unit of work submitted to the pool.
type Job interface {
	Run()
}

// JobFunc adapts a plain func() to Job.
type JobFunc func()

// Run invokes the underlying function.
func (f JobFunc) Run() { f() }
