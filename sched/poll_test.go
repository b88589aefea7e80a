package sched_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/fake"
	"github.com/momentics/hioload-sched/sched"
)

func TestPollFirstHitWithPeriodicFullPass(t *testing.T) {
	f := newFixture(t, nil)
	th := f.thread(t)
	p0, p1 := &fake.Poller{}, &fake.Poller{}
	// Source ids 0 and 1 with first index 0 land in poll slots 0 and 1.
	require.NoError(t, f.s.StartPoll(p0, []int{0}))
	require.NoError(t, f.s.StartPoll(p1, []int{0}))

	for i := 0; i < 16; i++ {
		ev, _ := th.Next(api.NoWait)
		require.Nil(t, ev)
	}
	assert.Equal(t, 16, p0.Calls())
	assert.Equal(t, 1, p1.Calls(), "only the full pass reaches the second slot")
	assert.EqualValues(t, 17, f.s.Stats()[sched.MetricPolls])
}

func TestPollDeliversIntoQueue(t *testing.T) {
	f := newFixture(t, nil)
	th := f.thread(t)
	q := f.queue(t, "rx", api.SyncAtomic)
	p := &fake.Poller{Deliver: func(batch []api.Event) {
		_, err := q.EnqueueMulti(batch)
		assert.NoError(t, err)
	}}
	p.Push("pkt0", "pkt1")
	require.NoError(t, f.s.StartPoll(p, []int{3, 4}))

	out := make([]api.Event, 4)
	n, src := th.NextEvents(api.WaitTime(time.Second), out)
	require.Equal(t, 2, n)
	assert.Same(t, q, src)
	assert.Equal(t, []api.Event{"pkt0", "pkt1"}, out[:n])
	assert.Equal(t, [][]int{{3, 4}}, p.Indices())
}

func TestPollSourceStops(t *testing.T) {
	f := newFixture(t, nil)
	th := f.thread(t)
	p := &fake.Poller{Limit: 2}
	require.NoError(t, f.s.StartPoll(p, nil))

	for i := 0; i < 4; i++ {
		_, _ = th.Next(api.NoWait)
	}
	assert.Equal(t, 2, p.Calls())
	assert.EqualValues(t, 1, f.s.Stats()[sched.MetricPollStops])
}

func TestPollRateLimited(t *testing.T) {
	f := newFixture(t, func(c *sched.Config) {
		c.PollRate = 1
		c.PollBurst = 1
	})
	th := f.thread(t)
	p := &fake.Poller{}
	require.NoError(t, f.s.StartPoll(p, nil))
	assert.Equal(t, 1.0, f.s.PollRate())

	_, _ = th.Next(api.NoWait)
	_, _ = th.Next(api.NoWait)
	assert.Equal(t, 1, p.Calls())

	f.clock.Advance(time.Second)
	_, _ = th.Next(api.NoWait)
	assert.Equal(t, 2, p.Calls())

	f.s.SetPollRate(0, 0)
	assert.Zero(t, f.s.PollRate())
	_, _ = th.Next(api.NoWait)
	_, _ = th.Next(api.NoWait)
	assert.Equal(t, 4, p.Calls())
}

func TestStartPollLimits(t *testing.T) {
	f := newFixture(t, func(c *sched.Config) { c.MaxPollSources = 2 })
	assert.ErrorIs(t, f.s.StartPoll(nil, nil), api.ErrInvalidArgument)

	calls := 0
	fn := api.PollerFunc(func([]int) bool { calls++; return true })
	require.NoError(t, f.s.StartPoll(fn, nil))
	require.NoError(t, f.s.StartPoll(fn, nil))
	assert.ErrorIs(t, f.s.StartPoll(fn, nil), api.ErrResourceExhausted)

	th := f.thread(t)
	_, _ = th.Next(api.NoWait)
	assert.Equal(t, 1, calls)

	require.NoError(t, th.Unregister())
	require.NoError(t, f.s.Term(), "poll sources are stopped by Term")
	_, err := f.s.RegisterThread(api.ThreadWorker)
	assert.ErrorIs(t, err, api.ErrNotSupported)
}
