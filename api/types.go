// File: api/types.go
// Package api defines scheduling contracts shared by all hioload-sched layers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import (
	"fmt"
	"time"
)

// Event is an opaque unit of work carried by logical queues.
type Event = any

// SyncMode is the synchronization discipline of a scheduled queue.
type SyncMode int

const (
	// SyncParallel events may be processed by any number of threads at once.
	SyncParallel SyncMode = iota
	// SyncAtomic events are processed by at most one thread at a time.
	SyncAtomic
	// SyncOrdered events are processed in parallel, their enqueue results
	// are restored to source order.
	SyncOrdered
)

func (m SyncMode) String() string {
	switch m {
	case SyncParallel:
		return "parallel"
	case SyncAtomic:
		return "atomic"
	case SyncOrdered:
		return "ordered"
	default:
		return fmt.Sprintf("sync(%d)", int(m))
	}
}

// QueueType selects whether a queue participates in scheduling.
type QueueType int

const (
	// QueueTypeSched queues are served by the scheduler.
	QueueTypeSched QueueType = iota
	// QueueTypePlain queues are polled directly with Dequeue.
	QueueTypePlain
)

// Priority of a scheduled queue; 0 is the highest.
type Priority int

const (
	NumPriorities = 8

	PriorityHighest Priority = 0
	PriorityNormal  Priority = NumPriorities / 2
	PriorityLowest  Priority = NumPriorities - 1
	PriorityDefault          = PriorityNormal
)

// Valid reports whether p is inside [PriorityHighest, PriorityLowest].
func (p Priority) Valid() bool { return p >= PriorityHighest && p <= PriorityLowest }

// GroupID identifies a schedule group.
type GroupID int

const (
	GroupInvalid GroupID = -1
	// GroupAll contains every registered thread.
	GroupAll GroupID = 0
	// GroupWorker contains threads registered as workers.
	GroupWorker GroupID = 1
	// GroupControl contains threads registered as control threads.
	GroupControl GroupID = 2
	// GroupNamed is the first id handed out by group creation.
	GroupNamed GroupID = 3
)

// ThreadKind is the role a thread registers with.
type ThreadKind int

const (
	ThreadWorker ThreadKind = iota
	ThreadControl
)

func (k ThreadKind) String() string {
	if k == ThreadControl {
		return "control"
	}
	return "worker"
}

// OrderMode tells an enqueue made from an ordered context whether the
// context order is retired with it.
type OrderMode int

const (
	// OrderSustain keeps the order held; more enqueues may follow.
	OrderSustain OrderMode = iota
	// OrderRelease retires the order together with this enqueue.
	OrderRelease
)

// WaitPolicy bounds how long a schedule call searches for work.
type WaitPolicy int64

const (
	// WaitForever keeps searching until an event is found.
	WaitForever WaitPolicy = -1
	// NoWait performs a single search pass.
	NoWait WaitPolicy = 0
)

// WaitTime returns a policy that searches for at most d.
func WaitTime(d time.Duration) WaitPolicy {
	if d <= 0 {
		return NoWait
	}
	return WaitPolicy(d)
}

// Duration returns the timed bound; zero for NoWait and WaitForever.
func (w WaitPolicy) Duration() time.Duration {
	if w <= 0 {
		return 0
	}
	return time.Duration(w)
}

// QueueParam holds creation time attributes of a logical queue.
type QueueParam struct {
	Type      QueueType
	Sync      SyncMode
	Prio      Priority
	Group     GroupID
	LockCount int
	Context   any
}

// DefaultQueueParam returns a parallel scheduled queue at default priority
// served by every thread.
func DefaultQueueParam() QueueParam {
	return QueueParam{
		Type:  QueueTypeSched,
		Sync:  SyncParallel,
		Prio:  PriorityDefault,
		Group: GroupAll,
	}
}
