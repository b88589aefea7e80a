// File: sched/stats.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sched

import (
	"go.uber.org/atomic"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/control"
)

type stats struct {
	scheduled     atomic.Uint64
	events        atomic.Uint64
	requeued      atomic.Uint64
	disengaged    atomic.Uint64
	finalized     atomic.Uint64
	polls         atomic.Uint64
	pollStops     atomic.Uint64
	poolExhausted atomic.Uint64
	reordered     atomic.Uint64
	placeholders  atomic.Uint64
	dropped       atomic.Uint64
}

// Metric names published by PublishStats.
const (
	MetricScheduled     = "sched.scheduled"
	MetricEvents        = "sched.events"
	MetricRequeued      = "sched.requeued_ineligible"
	MetricDisengaged    = "sched.disengaged"
	MetricFinalized     = "sched.finalized"
	MetricPolls         = "sched.polls"
	MetricPollStops     = "sched.poll_stops"
	MetricPoolExhausted = "sched.pool_exhausted"
	MetricReordered     = "sched.reordered"
	MetricPlaceholders  = "sched.placeholders"
	MetricDropped       = "sched.dropped"
)

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() map[string]uint64 {
	return map[string]uint64{
		MetricScheduled:     s.stats.scheduled.Load(),
		MetricEvents:        s.stats.events.Load(),
		MetricRequeued:      s.stats.requeued.Load(),
		MetricDisengaged:    s.stats.disengaged.Load(),
		MetricFinalized:     s.stats.finalized.Load(),
		MetricPolls:         s.stats.polls.Load(),
		MetricPollStops:     s.stats.pollStops.Load(),
		MetricPoolExhausted: s.stats.poolExhausted.Load(),
		MetricReordered:     s.stats.reordered.Load(),
		MetricPlaceholders:  s.stats.placeholders.Load(),
		MetricDropped:       s.stats.dropped.Load(),
	}
}

// PublishStats publishes the counters into reg, stamped with the
// scheduler clock.
func (s *Scheduler) PublishStats(reg *control.MetricsRegistry) {
	reg.PublishAt(s.clock.Now(), s.Stats())
}

// RegisterProbes exposes live scheduler state through d.
func (s *Scheduler) RegisterProbes(d api.Debug) {
	d.RegisterProbe("sched.bank_depth", func() any {
		depth := make([]int, api.NumPriorities)
		for p := range depth {
			depth[p] = s.bank.depthAt(api.Priority(p))
		}
		return depth
	})
	d.RegisterProbe("sched.poll_sources", func() any { return int(s.bank.pollCmds.Load()) })
	d.RegisterProbe("sched.tokens_free", func() any { return s.cmds.Available() })
	d.RegisterProbe("sched.queues", func() any { return s.NumQueues() })
	d.RegisterProbe("sched.threads", func() any { return s.NumThreads() })
	d.RegisterProbe("sched.ordered", func() any {
		out := make(map[string]map[string]uint64)
		for _, q := range s.liveQueues() {
			if q.ordered() {
				out[q.name] = map[string]uint64{
					"order_out": q.OrderOut(),
					"reorder":   uint64(q.ReorderLen()),
				}
			}
		}
		return out
	})
	if dp, ok := d.(*control.DebugProbes); ok {
		control.RegisterPlatformProbes(dp)
	}
}

// BankDepth returns the number of queue commands waiting in the bank.
func (s *Scheduler) BankDepth() int { return s.bank.depth() }
