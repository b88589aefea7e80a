package sched_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/sched"
	"github.com/momentics/hioload-sched/thrmask"
)

func TestGroupLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	id, err := f.s.CreateGroup("rx", thrmask.New(0, 1))
	require.NoError(t, err)
	assert.Equal(t, api.GroupNamed, id)

	_, err = f.s.CreateGroup("rx", thrmask.New(2))
	assert.ErrorIs(t, err, api.ErrAlreadyExists)

	got, err := f.s.LookupGroup("rx")
	require.NoError(t, err)
	assert.Equal(t, id, got)
	_, err = f.s.LookupGroup("tx")
	assert.ErrorIs(t, err, api.ErrNotFound)
	_, err = f.s.LookupGroup("")
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	require.NoError(t, f.s.JoinGroup(id, thrmask.New(5)))
	require.NoError(t, f.s.LeaveGroup(id, thrmask.New(0)))
	m, err := f.s.GroupMask(id)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5}, m.Members())

	m.Set(7)
	again, err := f.s.GroupMask(id)
	require.NoError(t, err)
	assert.False(t, again.IsSet(7), "GroupMask returns a copy")

	assert.ErrorIs(t, f.s.JoinGroup(api.GroupAll, thrmask.New(3)), api.ErrInvalidArgument)
	assert.ErrorIs(t, f.s.LeaveGroup(api.GroupWorker, thrmask.New(3)), api.ErrInvalidArgument)
	assert.ErrorIs(t, f.s.DestroyGroup(api.GroupControl), api.ErrInvalidArgument)
	assert.ErrorIs(t, f.s.JoinGroup(api.GroupID(9), thrmask.New(3)), api.ErrNotFound)

	q := f.queue(t, "rxq", api.SyncAtomic, withGroup(id))
	assert.ErrorIs(t, f.s.DestroyGroup(id), api.ErrBusy)
	require.NoError(t, f.s.DestroyQueue(q))

	require.NoError(t, f.s.DestroyGroup(id))
	assert.ErrorIs(t, f.s.DestroyGroup(id), api.ErrNotFound)
	_, err = f.s.LookupGroup("rx")
	assert.ErrorIs(t, err, api.ErrNotFound)
	_, err = f.s.GroupMask(id)
	assert.ErrorIs(t, err, api.ErrNotFound)

	reused, err := f.s.CreateGroup("", nil)
	require.NoError(t, err)
	assert.Equal(t, id, reused, "lowest free id is reused")
}

func TestGroupExhausted(t *testing.T) {
	f := newFixture(t, func(c *sched.Config) { c.MaxGroups = int(api.GroupNamed) + 1 })
	_, err := f.s.CreateGroup("one", thrmask.New(0))
	require.NoError(t, err)
	_, err = f.s.CreateGroup("two", thrmask.New(0))
	assert.ErrorIs(t, err, api.ErrResourceExhausted)
}

func TestThreadKindGroups(t *testing.T) {
	f := newFixture(t, nil)
	worker := f.thread(t)
	ctl, err := f.s.RegisterThread(api.ThreadControl)
	require.NoError(t, err)
	assert.Equal(t, api.ThreadControl, ctl.Kind())

	wm, err := f.s.GroupMask(api.GroupWorker)
	require.NoError(t, err)
	assert.Equal(t, []int{worker.ID()}, wm.Members())
	cm, err := f.s.GroupMask(api.GroupControl)
	require.NoError(t, err)
	assert.Equal(t, []int{ctl.ID()}, cm.Members())
	all, err := f.s.GroupMask(api.GroupAll)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Count())

	q := f.queue(t, "work", api.SyncParallel, withGroup(api.GroupWorker))
	require.NoError(t, q.Enqueue("job"))

	ev, _ := ctl.Next(api.NoWait)
	assert.Nil(t, ev, "control thread is not in the worker group")
	ev, src := worker.Next(api.NoWait)
	assert.Equal(t, "job", ev)
	assert.Same(t, q, src)
}

func TestThreadLimit(t *testing.T) {
	f := newFixture(t, func(c *sched.Config) { c.MaxThreads = 2 })
	f.thread(t)
	f.thread(t)
	_, err := f.s.RegisterThread(api.ThreadWorker)
	assert.ErrorIs(t, err, api.ErrResourceExhausted)
	assert.Equal(t, 2, f.s.NumThreads())
}
