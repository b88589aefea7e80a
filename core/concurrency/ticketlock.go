// File: core/concurrency/ticketlock.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// FIFO-fair spin lock for short critical sections on the scheduling fast path.

package concurrency

import (
	"runtime"
	"sync/atomic"
)

// spinsBeforeYield bounds busy spinning before the waiter yields its P.
const spinsBeforeYield = 32

// TicketLock grants the lock in arrival order. The zero value is unlocked.
// It must not be copied after first use.
type TicketLock struct {
	next atomic.Uint32
	cur  atomic.Uint32
}

// Lock takes a ticket and spins until it is served.
func (l *TicketLock) Lock() {
	ticket := l.next.Add(1) - 1
	for spins := 0; l.cur.Load() != ticket; spins++ {
		if spins >= spinsBeforeYield {
			runtime.Gosched()
		}
	}
}

// TryLock takes the lock only when nobody holds or waits for it.
func (l *TicketLock) TryLock() bool {
	cur := l.cur.Load()
	return l.next.CompareAndSwap(cur, cur+1)
}

// Unlock serves the next ticket. Only the holder may call it.
func (l *TicketLock) Unlock() {
	l.cur.Add(1)
}

// IsLocked reports whether the lock is held or contended.
func (l *TicketLock) IsLocked() bool {
	return l.cur.Load() != l.next.Load()
}
