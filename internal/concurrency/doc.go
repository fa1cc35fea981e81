// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package concurrency implements a bounded, elastic worker pool for
// the request-processing path of a high-throughput network server: a
// single atomic bi-integer cell coordinating live worker count and net
// idle demand, a blocking FIFO job queue, pluggable shrink strategies,
// and the two-phase lifecycle that starts, grows, shrinks, and stops
// the pool.
package concurrency
