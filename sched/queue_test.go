package sched_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/sched"
)

func TestCreateQueueValidation(t *testing.T) {
	f := newFixture(t, nil)

	bad := []api.QueueParam{
		{Type: api.QueueTypeSched, Sync: api.SyncMode(9), Prio: api.PriorityDefault},
		{Type: api.QueueTypeSched, Sync: api.SyncParallel, Prio: api.Priority(api.NumPriorities)},
		{Type: api.QueueTypeSched, Sync: api.SyncOrdered, Prio: api.PriorityDefault, LockCount: sched.MaxOrderedLocks + 1},
		{Type: api.QueueType(7)},
	}
	for i, p := range bad {
		_, err := f.s.CreateQueue("", p)
		assert.ErrorIs(t, err, api.ErrInvalidArgument, "param %d", i)
	}

	_, err := f.s.CreateQueue("", api.QueueParam{Type: api.QueueTypeSched, Group: api.GroupID(9)})
	assert.ErrorIs(t, err, api.ErrNotFound)

	f.queue(t, "dup", api.SyncParallel)
	_, err = f.s.CreateQueue("dup", api.DefaultQueueParam())
	assert.ErrorIs(t, err, api.ErrAlreadyExists)
}

func TestCreateQueueExhausted(t *testing.T) {
	f := newFixture(t, func(c *sched.Config) { c.MaxQueues = 2 })
	f.queue(t, "", api.SyncParallel)
	f.queue(t, "", api.SyncParallel)
	_, err := f.s.CreateQueue("", api.DefaultQueueParam())
	assert.ErrorIs(t, err, api.ErrResourceExhausted)
}

func TestQueueInfo(t *testing.T) {
	f := newFixture(t, nil)
	o := f.queue(t, "ord", api.SyncOrdered, withLocks(2), withPrio(api.PriorityHighest))
	a := f.queue(t, "atom", api.SyncAtomic, withLocks(1))

	assert.Equal(t, 2, o.LockCount())
	assert.Equal(t, -1, a.LockCount())
	assert.Equal(t, sched.QueueInfo{Name: "atom", Param: api.QueueParam{
		Type: api.QueueTypeSched, Sync: api.SyncAtomic, Prio: api.PriorityDefault, Group: api.GroupAll,
	}}, a.Info())
	assert.Equal(t, api.PriorityHighest, o.Priority())

	got, err := f.s.LookupQueue("ord")
	require.NoError(t, err)
	assert.Same(t, o, got)
	_, err = f.s.LookupQueue("nope")
	assert.ErrorIs(t, err, api.ErrNotFound)

	assert.Nil(t, o.Context())
	o.SetContext("ctx")
	assert.Equal(t, "ctx", o.Context())
}

func TestPlainQueue(t *testing.T) {
	f := newFixture(t, nil)
	q := f.plain(t, "plain")

	n, err := q.EnqueueMulti(seq(0, 20))
	require.NoError(t, err)
	assert.Equal(t, sched.QueueMultiMax, n)
	assert.Equal(t, sched.QueueMultiMax, q.Len())
	assert.Equal(t, 0, f.s.BankDepth(), "plain queues are never scheduled")

	out := make([]api.Event, 3)
	require.Equal(t, 3, q.DequeueMulti(out))
	assert.Equal(t, seq(0, 3), out)
	assert.Equal(t, seq(3, sched.QueueMultiMax), drainPlain(q))

	sq := f.queue(t, "sched", api.SyncParallel)
	require.NoError(t, sq.Enqueue(1))
	_, ok := sq.Dequeue()
	assert.False(t, ok, "scheduled queues are served by threads only")
}

func TestDestroyQueue(t *testing.T) {
	f := newFixture(t, nil)
	th := f.thread(t)

	idle := f.queue(t, "idle", api.SyncParallel)
	require.NoError(t, f.s.DestroyQueue(idle))
	assert.ErrorIs(t, f.s.DestroyQueue(idle), api.ErrQueueDestroyed)
	assert.ErrorIs(t, idle.Enqueue(1), api.ErrQueueDestroyed)
	assert.Equal(t, 0, f.s.NumQueues())

	full := f.queue(t, "full", api.SyncParallel)
	require.NoError(t, full.Enqueue(1))
	err := f.s.DestroyQueue(full)
	assert.ErrorIs(t, err, api.ErrQueueNotEmpty)
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, api.ErrCodeQueueNotEmpty, apiErr.Code)

	// The queue is empty but its command is still in the bank.
	ev, src := th.Next(api.NoWait)
	require.Equal(t, 1, ev)
	require.Same(t, full, src)
	require.Equal(t, 1, f.s.BankDepth())

	require.NoError(t, f.s.DestroyQueue(full))
	_, err = f.s.LookupQueue("full")
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Equal(t, 1, f.s.NumQueues(), "finalized by the next scan")

	ev, _ = th.Next(api.NoWait)
	assert.Nil(t, ev)
	assert.Equal(t, 0, f.s.NumQueues())
	assert.Equal(t, 0, f.s.BankDepth())
	assert.EqualValues(t, 1, f.s.Stats()[sched.MetricFinalized])

	again := f.queue(t, "full", api.SyncParallel)
	assert.NotNil(t, again, "name is reusable after destroy")
}

func TestCommandPoolExhaustion(t *testing.T) {
	f := newFixture(t, func(c *sched.Config) { c.CommandPoolSize = 1 })
	th := f.thread(t)
	q1 := f.queue(t, "q1", api.SyncParallel)
	q2 := f.queue(t, "q2", api.SyncParallel)

	require.NoError(t, q1.Enqueue("a"))
	require.NoError(t, q1.Enqueue("b"), "engaged queues need no further token")

	err := q2.Enqueue("x")
	require.ErrorIs(t, err, api.ErrResourceExhausted)
	assert.Equal(t, 0, q2.Len(), "nothing appended on exhaustion")
	assert.EqualValues(t, 1, f.s.Stats()[sched.MetricPoolExhausted])

	out := make([]api.Event, 4)
	n, _ := th.NextEvents(api.NoWait, out)
	require.Equal(t, 2, n)
	n, _ = th.NextEvents(api.NoWait, out)
	require.Equal(t, 0, n, "empty queue disengaged and its token freed")

	require.NoError(t, q2.Enqueue("x"))
	ev, src := th.Next(api.NoWait)
	assert.Equal(t, "x", ev)
	assert.Same(t, q2, src)
}
