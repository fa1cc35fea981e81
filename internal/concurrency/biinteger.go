// File: internal/concurrency/biinteger.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// AtomicBiInteger packs two signed 32-bit values into one 64-bit atomic
// cell so that updates to both halves are linearizable with respect to
// each other. This is load-bearing for the pool's (threads, netIdle)
// cell: splitting it into two independent int32 atomics would let a
// reader observe a torn pair mid-transition.

package concurrency

import "sync/atomic"

// AtomicBiInteger is a lock-free 64-bit cell addressed as two signed
// 32-bit halves, hi and lo.
type AtomicBiInteger struct {
	v atomic.Int64
}

func pack(hi, lo int32) int64 {
	return int64(uint64(uint32(hi))<<32 | uint64(uint32(lo)))
}

func unpack(v int64) (hi, lo int32) {
	u := uint64(v)
	return int32(u >> 32), int32(u)
}

// Get returns the raw packed 64-bit value.
func (b *AtomicBiInteger) Get() int64 {
	return b.v.Load()
}

// GetHiLo decodes the current value into its two signed halves.
func (b *AtomicBiInteger) GetHiLo() (hi, lo int32) {
	return unpack(b.v.Load())
}

// GetHi returns only the hi half.
func (b *AtomicBiInteger) GetHi() int32 {
	hi, _ := b.GetHiLo()
	return hi
}

// GetLo returns only the lo half.
func (b *AtomicBiInteger) GetLo() int32 {
	_, lo := b.GetHiLo()
	return lo
}

// Set unconditionally stores the pair.
func (b *AtomicBiInteger) Set(hi, lo int32) {
	b.v.Store(pack(hi, lo))
}

// CompareAndSet succeeds only if the current value matches (expectedHi,
// expectedLo) exactly, then stores (newHi, newLo).
func (b *AtomicBiInteger) CompareAndSet(expectedHi, expectedLo, newHi, newLo int32) bool {
	return b.v.CompareAndSwap(pack(expectedHi, expectedLo), pack(newHi, newLo))
}

// CompareAndSetRaw is the single-word CAS primitive other packages can
// build retry loops on top of without decoding/encoding each attempt.
func (b *AtomicBiInteger) CompareAndSetRaw(expected, new int64) bool {
	return b.v.CompareAndSwap(expected, new)
}

// GetAndSetHi atomically replaces the hi half, leaving lo untouched, and
// returns the previous hi value.
func (b *AtomicBiInteger) GetAndSetHi(h int32) int32 {
	for {
		old := b.v.Load()
		oldHi, oldLo := unpack(old)
		if b.v.CompareAndSwap(old, pack(h, oldLo)) {
			return oldHi
		}
	}
}

// AddHi adds d to the hi half, leaving lo untouched, and returns the new
// hi value.
func (b *AtomicBiInteger) AddHi(d int32) int32 {
	for {
		old := b.v.Load()
		oldHi, oldLo := unpack(old)
		newHi := oldHi + d
		if b.v.CompareAndSwap(old, pack(newHi, oldLo)) {
			return newHi
		}
	}
}

// AddLo adds d to the lo half, leaving hi untouched, and returns the new
// lo value.
func (b *AtomicBiInteger) AddLo(d int32) int32 {
	for {
		old := b.v.Load()
		oldHi, oldLo := unpack(old)
		newLo := oldLo + d
		if b.v.CompareAndSwap(old, pack(oldHi, newLo)) {
			return newLo
		}
	}
}
