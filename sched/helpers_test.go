package sched_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/fake"
	"github.com/momentics/hioload-sched/sched"
)

type fixture struct {
	s     *sched.Scheduler
	clock *fake.Clock
}

func newFixture(t *testing.T, mutate func(*sched.Config), opts ...sched.Option) *fixture {
	t.Helper()
	cfg := sched.DefaultConfig()
	cfg.MaxQueues = 64
	cfg.MaxThreads = 16
	cfg.MaxGroups = 16
	cfg.MaxPollSources = 8
	if mutate != nil {
		mutate(&cfg)
	}
	clk := fake.NewClock(time.Unix(1_700_000_000, 0))
	s, err := sched.New(cfg, append([]sched.Option{sched.WithClock(clk)}, opts...)...)
	require.NoError(t, err)
	return &fixture{s: s, clock: clk}
}

func (f *fixture) thread(t *testing.T) *sched.Thread {
	t.Helper()
	th, err := f.s.RegisterThread(api.ThreadWorker)
	require.NoError(t, err)
	return th
}

func (f *fixture) queue(t *testing.T, name string, sync api.SyncMode, mutate ...func(*api.QueueParam)) *sched.Queue {
	t.Helper()
	p := api.DefaultQueueParam()
	p.Sync = sync
	for _, m := range mutate {
		m(&p)
	}
	q, err := f.s.CreateQueue(name, p)
	require.NoError(t, err)
	return q
}

func (f *fixture) plain(t *testing.T, name string) *sched.Queue {
	t.Helper()
	p := api.DefaultQueueParam()
	p.Type = api.QueueTypePlain
	q, err := f.s.CreateQueue(name, p)
	require.NoError(t, err)
	return q
}

func withPrio(p api.Priority) func(*api.QueueParam) {
	return func(qp *api.QueueParam) { qp.Prio = p }
}

func withGroup(g api.GroupID) func(*api.QueueParam) {
	return func(qp *api.QueueParam) { qp.Group = g }
}

func withLocks(n int) func(*api.QueueParam) {
	return func(qp *api.QueueParam) { qp.LockCount = n }
}

func fill(t *testing.T, q *sched.Queue, from, to int) {
	t.Helper()
	for i := from; i < to; i++ {
		require.NoError(t, q.Enqueue(i))
	}
}

func drainPlain(q *sched.Queue) []api.Event {
	var out []api.Event
	for {
		ev, ok := q.Dequeue()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

func seq(from, to int) []api.Event {
	out := make([]api.Event, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
