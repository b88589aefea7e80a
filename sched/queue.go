// File: sched/queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Logical queues: pending event FIFO, engagement state and the ordering
// context of ordered queues.

package sched

import (
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/core/concurrency"
)

type queueStatus uint8

const (
	statusFree queueStatus = iota
	statusDestroyed
	statusReady
	statusNotSched
	statusSched
)

func (st queueStatus) String() string {
	switch st {
	case statusFree:
		return "free"
	case statusDestroyed:
		return "destroyed"
	case statusReady:
		return "ready"
	case statusNotSched:
		return "idle"
	case statusSched:
		return "scheduled"
	}
	return "unknown"
}

// Queue is a logical event queue.
//
// Lock order: ord before mu. mu is a leaf guarding the event FIFO, the
// engagement state and the order_in counters. ord guards the reorder list
// and serializes order_out advances of an ordered queue.
type Queue struct {
	s     *Scheduler
	id    uint32
	name  string
	param api.QueueParam
	slot  int
	ctx   atomic.Value

	mu      concurrency.TicketLock
	status  queueStatus
	events  *queue.Queue
	cmd     *command
	orderIn uint64
	syncIn  [MaxOrderedLocks]uint64

	ord      concurrency.TicketLock
	orderOut atomic.Uint64
	syncOut  [MaxOrderedLocks]atomic.Uint64
	reorder  reorderList
}

type ctxBox struct{ v any }

// QueueInfo describes a queue.
type QueueInfo struct {
	Name  string
	Param api.QueueParam
}

func (q *Queue) ID() uint32 { return q.id }
func (q *Queue) Name() string { return q.name }
func (q *Queue) Sync() api.SyncMode { return q.param.Sync }
func (q *Queue) Priority() api.Priority { return q.param.Prio }
func (q *Queue) Group() api.GroupID { return q.param.Group }
func (q *Queue) Type() api.QueueType { return q.param.Type }
func (q *Queue) Info() QueueInfo { return QueueInfo{Name: q.name, Param: q.param} }
func (q *Queue) OrderOut() uint64 { return q.orderOut.Load() }
func (q *Queue) String() string { return q.name }
func (q *Queue) scheduled() bool { return q.param.Type == api.QueueTypeSched }
func (q *Queue) ordered() bool { return q.scheduled() && q.param.Sync == api.SyncOrdered }
func (q *Queue) atomicSync() bool { return q.scheduled() && q.param.Sync == api.SyncAtomic }

// LockCount returns the number of ordered locks, or -1 for queues that are
// not ordered.
func (q *Queue) LockCount() int {
	if !q.ordered() {
		return -1
	}
	return q.param.LockCount
}

// Context returns the user value attached to the queue.
func (q *Queue) Context() any {
	if b, ok := q.ctx.Load().(ctxBox); ok {
		return b.v
	}
	return nil
}

// SetContext attaches a user value to the queue.
func (q *Queue) SetContext(v any) { q.ctx.Store(ctxBox{v}) }

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	n := q.events.Length()
	q.mu.Unlock()
	return n
}

// ReorderLen returns the number of entries parked in the reorder list.
func (q *Queue) ReorderLen() int {
	q.ord.Lock()
	n := q.reorder.len()
	q.ord.Unlock()
	return n
}

// Enqueue appends one event. See EnqueueMulti.
func (q *Queue) Enqueue(ev api.Event) error {
	_, err := q.push([]api.Event{ev}, false)
	return err
}

// EnqueueMulti appends up to QueueMultiMax events and returns how many were
// taken. Appending to an idle scheduled queue engages it, which needs a
// command token; when the pool is exhausted nothing is appended and the
// error matches api.ErrResourceExhausted.
//
// The enqueue is not ordered against any context the calling thread holds;
// use Thread.Enqueue for that.
func (q *Queue) EnqueueMulti(evs []api.Event) (int, error) {
	if len(evs) > QueueMultiMax {
		evs = evs[:QueueMultiMax]
	}
	return q.push(evs, false)
}

// Dequeue removes the oldest event of a plain queue.
func (q *Queue) Dequeue() (api.Event, bool) {
	var one [1]api.Event
	if q.DequeueMulti(one[:]) == 0 {
		return nil, false
	}
	return one[0], true
}

// DequeueMulti removes up to len(out) events of a plain queue. Scheduled
// queues are only served through the scheduler and always return zero.
func (q *Queue) DequeueMulti(out []api.Event) int {
	if q.scheduled() {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.status != statusReady {
		return 0
	}
	return q.takeLocked(out)
}

func (q *Queue) takeLocked(out []api.Event) int {
	n := q.events.Length()
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = q.events.Remove()
	}
	return n
}

// push appends evs and engages an idle scheduled queue.
//
// Strict pushes fail without side effects when no command token is left.
// Deferred pushes come from reorder list delivery, where events must not be
// lost: they append anyway and park the queue until a token frees up.
func (q *Queue) push(evs []api.Event, deferred bool) (int, error) {
	if len(evs) == 0 {
		return 0, nil
	}
	s := q.s
	var engage *command
	starved := false

	q.mu.Lock()
	switch q.status {
	case statusFree, statusDestroyed:
		q.mu.Unlock()
		return 0, api.NewError(api.ErrCodeQueueDestroyed, "enqueue into destroyed queue").
			WithContext("queue", q.name)
	case statusNotSched:
		c, ok := s.cmds.Get()
		switch {
		case ok:
			c.kind, c.q = cmdQueue, q
			q.cmd = c
			q.status = statusSched
			engage = c
		case deferred:
			starved = true
		default:
			q.mu.Unlock()
			s.stats.poolExhausted.Inc()
			s.log.Warning().Str("queue", q.name).Int("pool_size", s.cmds.Size()).
				Log("command pool exhausted")
			return 0, api.NewError(api.ErrCodeResourceExhausted, "command pool exhausted").
				WithContext("queue", q.name)
		}
	}
	for _, ev := range evs {
		q.events.Add(ev)
	}
	q.mu.Unlock()

	if engage != nil {
		s.bank.push(engage)
	}
	if starved {
		s.stats.poolExhausted.Inc()
		s.park(q)
	}
	return len(evs), nil
}

// orderSnap is the ordered context recorded at dequeue.
type orderSnap struct {
	order uint64
	sync  [MaxOrderedLocks]uint64
}

// schedDequeue takes events for a scheduling thread that holds the queue
// command. It returns -1 for a destroyed queue and 0 after disengaging an
// empty one; in both cases the caller keeps the command to free it.
func (q *Queue) schedDequeue(out []api.Event, snap *orderSnap) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch q.status {
	case statusDestroyed:
		return -1
	case statusSched:
	default:
		q.s.fatal(api.NewError(api.ErrCodeInternal, "scheduled command for queue in bad state").
			WithContext("queue", q.name).WithContext("status", q.status.String()))
	}
	if q.events.Length() == 0 {
		q.status = statusNotSched
		q.cmd = nil
		return 0
	}
	n := q.takeLocked(out)
	if q.ordered() {
		snap.order = q.orderIn
		q.orderIn++
		for i := 0; i < q.param.LockCount; i++ {
			snap.sync[i] = q.syncIn[i]
			q.syncIn[i]++
		}
	}
	return n
}

// engageable reports whether a held command may go back into the bank.
func (q *Queue) engageable() bool {
	q.mu.Lock()
	st := q.status
	q.mu.Unlock()
	return st == statusSched || st == statusDestroyed
}
