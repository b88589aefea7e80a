// File: sched/ordering.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Order restoration for ordered queues. Each ordered queue hands out
// order_in values at dequeue and retires them through order_out. Work that
// finishes early waits in the queue reorder list until every earlier order
// has been retired.

package sched

import (
	"github.com/momentics/hioload-sched/api"
)

// reorderEntry is either a batch of events bound for target or, with a nil
// target, a placeholder standing for a context released without enqueue.
type reorderEntry struct {
	next    *reorderEntry
	order   uint64
	target  *Queue
	events  []api.Event
	release bool
}

// reorderList is sorted by order. Entries of equal order keep insertion
// order. Owned by one queue and guarded by its ord lock.
type reorderList struct {
	head *reorderEntry
	tail *reorderEntry
	n    int
}

func (l *reorderList) len() int { return l.n }

func (l *reorderList) insert(e *reorderEntry) {
	l.n++
	e.next = nil
	if l.head == nil {
		l.head, l.tail = e, e
		return
	}
	if l.tail.order <= e.order {
		l.tail.next = e
		l.tail = e
		return
	}
	if e.order < l.head.order {
		e.next = l.head
		l.head = e
		return
	}
	prev := l.head
	for prev.next != nil && prev.next.order <= e.order {
		prev = prev.next
	}
	e.next = prev.next
	prev.next = e
}

// popReady unlinks the head when its order is at most limit.
func (l *reorderList) popReady(limit uint64) *reorderEntry {
	e := l.head
	if e == nil || e.order > limit {
		return nil
	}
	l.head = e.next
	if l.head == nil {
		l.tail = nil
	}
	e.next = nil
	l.n--
	return e
}

// last returns the most recent entry of the given order.
func (l *reorderList) last(order uint64) *reorderEntry {
	var found *reorderEntry
	for e := l.head; e != nil && e.order <= order; e = e.next {
		if e.order == order {
			found = e
		}
	}
	return found
}

// inOrderLocked reports whether order is the next one to retire. q.ord held.
func (q *Queue) inOrderLocked(order uint64) bool {
	return order <= q.orderOut.Load()
}

// orderReleaseLocked retires count orders. Ordered lock counters that lag
// behind order_out catch up, so contexts that never took a lock do not
// block later ones. q.ord held.
func (q *Queue) orderReleaseLocked(count uint64) {
	out := q.orderOut.Add(count)
	for i := 0; i < q.param.LockCount; i++ {
		so := &q.syncOut[i]
		for {
			cur := so.Load()
			if cur >= out || so.CompareAndSwap(cur, out) {
				break
			}
		}
	}
}

// drainLocked delivers every reorder entry whose order has been reached,
// in list order. Events go straight into their target queue. Placeholders
// and releasing entries retire their order, which may unblock the next
// entries. q.ord held.
func (q *Queue) drainLocked() {
	for {
		e := q.reorder.popReady(q.orderOut.Load())
		if e == nil {
			return
		}
		if e.target != nil {
			q.s.deliver(e.target, e.events)
		}
		if e.target == nil || e.release {
			q.orderReleaseLocked(1)
		}
	}
}

// deliver hands reordered events to their target queue. Events for a queue
// destroyed meanwhile are dropped.
func (s *Scheduler) deliver(target *Queue, evs []api.Event) {
	if _, err := target.push(evs, true); err != nil {
		s.stats.dropped.Add(uint64(len(evs)))
		s.log.Warning().Str("queue", target.name).Int("events", len(evs)).Err(err).
			Log("reordered events dropped")
	}
}
