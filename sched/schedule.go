// File: sched/schedule.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The per-thread search loop.

package sched

import (
	"time"

	"github.com/momentics/hioload-sched/api"
)

// Next returns one event and its source queue, or nil when wait expires.
// See NextEvents.
func (t *Thread) Next(wait api.WaitPolicy) (api.Event, *Queue) {
	n, q := t.NextEvents(wait, t.one[:])
	if n == 0 {
		return nil, nil
	}
	ev := t.one[0]
	t.one[0] = nil
	return ev, q
}

// NextEvents fills out with events of one queue and returns their count and
// source. Calling it releases the context held since the previous call,
// unless events cached from that call are still being handed out. An
// expired wait returns zero and a nil queue.
func (t *Thread) NextEvents(wait api.WaitPolicy, out []api.Event) (int, *Queue) {
	if len(out) == 0 {
		return 0, nil
	}
	var deadline time.Time
	t.idle.Reset()
	for {
		if n, q := t.schedule(out); n > 0 {
			return n, q
		}
		switch {
		case wait == api.NoWait:
			return 0, nil
		case wait > 0:
			now := t.s.clock.Now()
			if deadline.IsZero() {
				deadline = now.Add(wait.Duration())
			} else if !now.Before(deadline) {
				return 0, nil
			}
		}
		t.idle.Wait()
	}
}

func (t *Thread) schedule(out []api.Event) (int, *Queue) {
	if len(t.cache) > 0 {
		return t.takeCached(out)
	}
	t.ReleaseContext()
	if t.paused {
		return 0, nil
	}
	if n, q := t.scan(out); n > 0 {
		return n, q
	}
	t.s.retryParked()
	t.pollInput()
	return 0, nil
}

func (t *Thread) takeCached(out []api.Event) (int, *Queue) {
	n := copy(out, t.cache)
	for i := 0; i < n; i++ {
		t.cache[i] = nil
	}
	t.cache = t.cache[n:]
	q := t.cacheSrc
	if len(t.cache) == 0 {
		t.cache, t.cacheSrc = nil, nil
	}
	return n, q
}

// scan searches the bank from the highest priority down, starting each
// priority at the slot selected by the thread id.
func (t *Thread) scan(out []api.Event) (int, *Queue) {
	s := t.s
	b := s.bank
	groups := s.groups.load()

	for prio := 0; prio < api.NumPriorities; prio++ {
		mask := b.priMask[prio].Load()
		if mask == 0 {
			continue
		}
		for j := 0; j < SlotsPerPrio; j++ {
			k := (t.id + j) % SlotsPerPrio
			if mask&(1<<k) == 0 {
				continue
			}
			slot := &b.prio[prio][k]
			c := slot.pop()
			if c == nil {
				continue
			}
			q := c.q
			if !groups.member(q.param.Group, t.id) {
				slot.push(c)
				s.stats.requeued.Inc()
				continue
			}

			limit := MaxDequeue
			if q.ordered() {
				limit = 1
			}
			var snap orderSnap
			n := q.schedDequeue(t.buf[:limit], &snap)
			if n < 0 {
				s.finalize(q, c)
				continue
			}
			if n == 0 {
				s.releaseCommand(c)
				s.stats.disengaged.Inc()
				continue
			}

			switch {
			case q.ordered():
				t.ord = orderedCtx{origin: q, order: snap.order, sync: snap.sync}
				slot.push(c)
			case q.atomicSync():
				t.atomicQ, t.atomicCmd = q, c
			default:
				slot.push(c)
			}
			s.stats.scheduled.Inc()
			s.stats.events.Add(uint64(n))
			return t.hand(out, n, q), q
		}
	}
	return 0, nil
}

// hand copies the dequeued batch to out and caches what does not fit.
func (t *Thread) hand(out []api.Event, n int, q *Queue) int {
	k := copy(out, t.buf[:n])
	if k < n {
		t.cache = append(t.cache[:0], t.buf[k:n]...)
		t.cacheSrc = q
	}
	for i := 0; i < n; i++ {
		t.buf[i] = nil
	}
	return k
}

// pollInput polls packet input sources. Usually it stops after the first
// source found; every sixteenth pass visits all poll slots.
func (t *Thread) pollInput() {
	s := t.s
	b := s.bank
	if b.pollCmds.Load() == 0 {
		return
	}
	if !s.limiter.AllowN(s.clock.Now(), 1) {
		return
	}
	t.polls++
	full := t.polls&pollFullScanMask == 0

	for i := 0; i < PollCmdQueues; i++ {
		slot := &b.poll[(t.id+i)%PollCmdQueues]
		c := slot.pop()
		if c == nil {
			continue
		}
		s.stats.polls.Inc()
		if c.src.poller.PollInput(c.src.indices) {
			slot.push(c)
		} else {
			b.pollCmds.Add(-1)
			s.stats.pollStops.Inc()
			s.log.Debug().Int("source", c.src.id).Log("packet input polling stopped")
			s.releaseCommand(c)
		}
		if !full {
			break
		}
	}
}
