// File: core/concurrency/backoff.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Time source and adaptive idle strategy for busy-poll loops. Both are
// injectable so tests can drive waiting with virtual time.

package concurrency

import (
	"runtime"
	"time"
)

// Clock is the time source of a poll loop.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

const (
	DefaultBackoffSpins = 64
	DefaultBackoffMin   = time.Microsecond
	DefaultBackoffMax   = time.Millisecond
)

// Backoff yields a few times, then sleeps with exponentially growing
// intervals capped at Max. A Backoff belongs to a single goroutine.
type Backoff struct {
	clock Clock
	spins int
	min   time.Duration
	max   time.Duration

	spun int
	cur  time.Duration
}

// NewBackoff returns a backoff sleeping on clock. Non-positive arguments
// select the package defaults.
func NewBackoff(clock Clock, spins int, min, max time.Duration) *Backoff {
	if clock == nil {
		clock = SystemClock
	}
	if spins < 0 {
		spins = DefaultBackoffSpins
	}
	if min <= 0 {
		min = DefaultBackoffMin
	}
	if max < min {
		max = min
	}
	b := &Backoff{clock: clock, spins: spins, min: min, max: max}
	b.Reset()
	return b
}

// Wait idles once and escalates the next interval.
func (b *Backoff) Wait() {
	if b.spun < b.spins {
		b.spun++
		runtime.Gosched()
		return
	}
	b.clock.Sleep(b.cur)
	next := b.cur * 2
	if next > b.max {
		next = b.max
	}
	b.cur = next
}

// Reset returns to the spinning phase.
func (b *Backoff) Reset() {
	b.spun = 0
	b.cur = b.min
}

// Clock returns the time source the backoff sleeps on.
func (b *Backoff) Clock() Clock { return b.clock }
