// File: sched/thread.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-thread scheduling state and the synchronization context release
// protocol.

package sched

import (
	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/core/concurrency"
)

type orderState uint8

const (
	orderPending orderState = iota
	orderSustained
	orderReleased
)

// orderedCtx is the ordered context a thread holds after taking an event
// from an ordered queue.
type orderedCtx struct {
	origin    *Queue
	order     uint64
	sync      [MaxOrderedLocks]uint64
	state     orderState
	enqCalled bool
	held      uint8 // ordered locks currently held
	taken     uint8 // ordered locks acquired at least once
}

func (c *orderedCtx) active() bool { return c.origin != nil && c.state != orderReleased }

// Thread is the scheduling state of one registered thread. It must be used
// by a single goroutine.
type Thread struct {
	s    *Scheduler
	id   int
	kind api.ThreadKind

	buf      [MaxDequeue]api.Event
	one      [1]api.Event
	cache    []api.Event
	cacheSrc *Queue

	atomicQ   *Queue
	atomicCmd *command
	ord       orderedCtx

	paused bool
	polls  uint32
	idle   *concurrency.Backoff
	spin   *concurrency.Backoff
	gone   bool
}

// ID returns the stable thread id used for slot rotation and group masks.
func (t *Thread) ID() int { return t.id }

// Kind returns the role the thread registered with.
func (t *Thread) Kind() api.ThreadKind { return t.kind }

// Cached returns the number of events dequeued but not yet returned.
func (t *Thread) Cached() int { return len(t.cache) }

// AtomicQueue returns the queue whose atomic context is held, if any.
func (t *Thread) AtomicQueue() *Queue { return t.atomicQ }

// OrderedContext returns the origin queue and order of the held ordered
// context. ok is false when no ordered context is held.
func (t *Thread) OrderedContext() (origin *Queue, order uint64, ok bool) {
	if !t.ord.active() {
		return nil, 0, false
	}
	return t.ord.origin, t.ord.order, true
}

// Pause stops the thread from searching for new work. Cached events are
// still returned and held contexts are still released.
func (t *Thread) Pause() { t.paused = true }

// Resume undoes Pause.
func (t *Thread) Resume() { t.paused = false }

// ReleaseAtomic gives up the atomic context so that other threads may serve
// the queue. It does nothing while cached events of that queue remain.
func (t *Thread) ReleaseAtomic() {
	if len(t.cache) == 0 {
		t.releaseAtomic()
	}
}

func (t *Thread) releaseAtomic() {
	c := t.atomicCmd
	if c == nil {
		return
	}
	t.atomicCmd, t.atomicQ = nil, nil
	if !c.q.engageable() {
		t.s.fatal(api.NewError(api.ErrCodeInternal, "re-engage of freed queue").
			WithContext("queue", c.q.name))
	}
	t.s.bank.push(c)
}

// ReleaseOrdered retires the held order. Reordered enqueues of later
// contexts that become in order are delivered. Out of order contexts leave
// a marker that retires the order once earlier contexts are done.
func (t *Thread) ReleaseOrdered() {
	c := &t.ord
	if c.origin == nil {
		return
	}
	if c.state != orderReleased {
		t.unlockHeld()
		q := c.origin
		q.ord.Lock()
		switch {
		case q.inOrderLocked(c.order):
			q.orderReleaseLocked(1)
			q.drainLocked()
		case c.enqCalled:
			e := q.reorder.last(c.order)
			if e == nil {
				q.ord.Unlock()
				t.s.fatal(api.NewError(api.ErrCodeInternal, "reorder entries of context lost").
					WithContext("queue", q.name).WithContext("order", c.order))
			}
			e.release = true
		default:
			q.reorder.insert(&reorderEntry{order: c.order})
			t.s.stats.placeholders.Inc()
		}
		q.ord.Unlock()
	}
	*c = orderedCtx{}
}

// ReleaseContext releases whichever context is held.
func (t *Thread) ReleaseContext() {
	if t.ord.origin != nil {
		t.ReleaseOrdered()
		return
	}
	t.ReleaseAtomic()
}

// Enqueue appends events to target on behalf of the held context. From an
// ordered context the events become visible only after every earlier order
// of the source queue has been released; mode OrderRelease retires the order
// together with this enqueue. Without an ordered context it is a plain
// EnqueueMulti.
func (t *Thread) Enqueue(target *Queue, evs []api.Event, mode api.OrderMode) (int, error) {
	c := &t.ord
	if !c.active() {
		return target.EnqueueMulti(evs)
	}
	if len(evs) > QueueMultiMax {
		evs = evs[:QueueMultiMax]
	}
	release := mode == api.OrderRelease

	origin := c.origin
	origin.ord.Lock()
	if origin.inOrderLocked(c.order) {
		n, err := target.push(evs, false)
		if err != nil {
			origin.ord.Unlock()
			return 0, err
		}
		if release {
			t.unlockHeld()
			origin.orderReleaseLocked(1)
			origin.drainLocked()
		}
		origin.ord.Unlock()
		t.markEnqueued(release)
		return n, nil
	}

	if !target.accepting() {
		origin.ord.Unlock()
		return 0, api.NewError(api.ErrCodeQueueDestroyed, "enqueue into destroyed queue").
			WithContext("queue", target.name)
	}
	batch := make([]api.Event, len(evs))
	copy(batch, evs)
	if release {
		t.unlockHeld()
	}
	origin.reorder.insert(&reorderEntry{
		order:   c.order,
		target:  target,
		events:  batch,
		release: release,
	})
	origin.ord.Unlock()
	t.s.stats.reordered.Inc()
	t.markEnqueued(release)
	return len(batch), nil
}

func (t *Thread) markEnqueued(release bool) {
	t.ord.enqCalled = true
	if release {
		t.ord.state = orderReleased
	} else {
		t.ord.state = orderSustained
	}
}

// accepting reports whether the queue takes new events.
func (q *Queue) accepting() bool {
	q.mu.Lock()
	st := q.status
	q.mu.Unlock()
	return st != statusFree && st != statusDestroyed
}

func (t *Thread) checkLock(op string, i int) {
	c := &t.ord
	if !c.active() {
		t.s.fatal(api.NewError(api.ErrCodeInternal, "ordered lock outside ordered context").
			WithContext("op", op).WithContext("index", i))
	}
	if i < 0 || i >= c.origin.param.LockCount {
		t.s.fatal(api.NewError(api.ErrCodeInternal, "ordered lock index out of range").
			WithContext("op", op).WithContext("index", i).
			WithContext("queue", c.origin.name).WithContext("lock_count", c.origin.param.LockCount))
	}
}

// OrderLock waits until every earlier context of the source queue has
// released ordered lock i, then takes it. A lock may be taken once per
// context.
func (t *Thread) OrderLock(i int) {
	t.checkLock("lock", i)
	c := &t.ord
	bit := uint8(1) << i
	if c.taken&bit != 0 {
		t.s.fatal(api.NewError(api.ErrCodeInternal, "ordered lock acquired twice").
			WithContext("index", i).WithContext("queue", c.origin.name).WithContext("order", c.order))
	}
	so := &c.origin.syncOut[i]
	t.spin.Reset()
	for so.Load() < c.sync[i] {
		t.spin.Wait()
	}
	c.taken |= bit
	c.held |= bit
}

// OrderUnlock releases ordered lock i to the next context.
func (t *Thread) OrderUnlock(i int) {
	t.checkLock("unlock", i)
	c := &t.ord
	bit := uint8(1) << i
	if c.held&bit == 0 {
		t.s.fatal(api.NewError(api.ErrCodeInternal, "ordered lock released without acquire").
			WithContext("index", i).WithContext("queue", c.origin.name).WithContext("order", c.order))
	}
	c.held &^= bit
	c.origin.syncOut[i].CompareAndSwap(c.sync[i], c.sync[i]+1)
}

// unlockHeld drops ordered locks still held when the order retires.
func (t *Thread) unlockHeld() {
	c := &t.ord
	for i := 0; c.held != 0 && i < MaxOrderedLocks; i++ {
		bit := uint8(1) << i
		if c.held&bit != 0 {
			c.held &^= bit
			c.origin.syncOut[i].CompareAndSwap(c.sync[i], c.sync[i]+1)
		}
	}
}

// Unregister releases held contexts and removes the thread from its groups.
// It fails with api.ErrBusy while cached events are undelivered.
func (t *Thread) Unregister() error {
	if t.gone {
		return api.NewError(api.ErrCodeNotFound, "thread not registered").WithContext("thread", t.id)
	}
	if len(t.cache) > 0 {
		return api.NewError(api.ErrCodeBusy, "thread has cached events").
			WithContext("thread", t.id).WithContext("events", len(t.cache))
	}
	t.ReleaseContext()
	t.s.unregisterThread(t)
	t.gone = true
	return nil
}
