// File: sched/scheduler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scheduler object: queue and thread registries, command token pool and
// lifecycle.

package sched

import (
	"fmt"
	"sync"

	"github.com/eapache/queue"
	"golang.org/x/time/rate"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/control"
	"github.com/momentics/hioload-sched/core/concurrency"
	"github.com/momentics/hioload-sched/pool"
	"github.com/momentics/hioload-sched/thrmask"
)

// Scheduler dispatches events of logical queues to registered threads.
type Scheduler struct {
	cfg   Config
	log   *Logger
	clock concurrency.Clock
	store *control.ConfigStore

	bank    *bank
	cmds    *pool.TokenPool[*command]
	groups  *groupSet
	limiter *rate.Limiter
	stats   stats

	mu      sync.RWMutex
	queues  []*Queue
	byName  map[string]*Queue
	threads *thrmask.Mask
	pollSeq int

	parkMu sync.Mutex
	parked []*Queue

	closed bool
}

// New builds a scheduler sized by cfg.
func New(cfg Config, opts ...Option) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		cfg:     cfg,
		clock:   concurrency.SystemClock,
		bank:    newBank(),
		groups:  newGroupSet(cfg.MaxGroups),
		queues:  make([]*Queue, cfg.MaxQueues),
		byName:  make(map[string]*Queue),
		threads: thrmask.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	cmds, err := pool.NewTokenPool(cfg.commandPoolSize(), func(int) *command { return &command{} })
	if err != nil {
		return nil, fmt.Errorf("command pool: %w", err)
	}
	s.cmds = cmds
	s.limiter = rate.NewLimiter(pollLimit(cfg.PollRate), pollBurst(cfg.PollBurst))
	if s.store != nil {
		s.bindConfig(s.store)
	}
	s.log.Debug().Str("config", cfg.String()).Log("scheduler created")
	return s, nil
}

func pollLimit(r float64) rate.Limit {
	if r <= 0 {
		return rate.Inf
	}
	return rate.Limit(r)
}

func pollBurst(b int) int {
	if b <= 0 {
		return 1
	}
	return b
}

// Config returns the configuration the scheduler was built with.
func (s *Scheduler) Config() Config { return s.cfg }

// NumPriorities returns the number of scheduling priorities.
func (s *Scheduler) NumPriorities() int { return api.NumPriorities }

// SetPollRate changes the packet input poll rate limit at runtime.
func (s *Scheduler) SetPollRate(perSecond float64, burst int) {
	now := s.clock.Now()
	s.limiter.SetLimitAt(now, pollLimit(perSecond))
	s.limiter.SetBurstAt(now, pollBurst(burst))
	s.log.Debug().Str("rate", fmt.Sprint(perSecond)).Int("burst", burst).Log("poll rate changed")
}

// PollRate returns the current poll rate limit; zero means unlimited.
func (s *Scheduler) PollRate() float64 {
	l := s.limiter.Limit()
	if l == rate.Inf {
		return 0
	}
	return float64(l)
}

func (s *Scheduler) bindConfig(cs *control.ConfigStore) {
	cs.SetConfig(s.cfg.Map())
	cs.OnReload(func(changed map[string]any) {
		_, r := changed[KeyPollRate]
		_, b := changed[KeyPollBurst]
		if !r && !b {
			return
		}
		snap := cs.GetSnapshot()
		s.SetPollRate(toFloat(snap[KeyPollRate]), int(toFloat(snap[KeyPollBurst])))
	})
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return 0
}

// CreateQueue creates a logical queue. Scheduled queues must reference an
// existing group; ordered queues may declare up to MaxOrderedLocks ordered
// locks. Non-empty names are unique.
func (s *Scheduler) CreateQueue(name string, param api.QueueParam) (*Queue, error) {
	invalid := func(msg string) error {
		return api.NewError(api.ErrCodeInvalidArgument, msg).WithContext("queue", name)
	}
	switch param.Type {
	case api.QueueTypeSched:
		if param.Sync < api.SyncParallel || param.Sync > api.SyncOrdered {
			return nil, invalid("unknown sync mode")
		}
		if !param.Prio.Valid() {
			return nil, invalid("priority out of range")
		}
		if !s.groups.load().exists(param.Group) {
			return nil, errGroupNotFound(param.Group)
		}
		if param.LockCount < 0 || param.LockCount > MaxOrderedLocks {
			return nil, invalid("ordered lock count out of range")
		}
		if param.Sync != api.SyncOrdered {
			param.LockCount = 0
		}
	case api.QueueTypePlain:
		param.LockCount = 0
	default:
		return nil, invalid("unknown queue type")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, api.NewError(api.ErrCodeNotSupported, "scheduler terminated")
	}
	if name != "" {
		if _, ok := s.byName[name]; ok {
			return nil, api.NewError(api.ErrCodeAlreadyExists, "queue exists").WithContext("queue", name)
		}
	}
	id := -1
	for i, q := range s.queues {
		if q == nil {
			id = i
			break
		}
	}
	if id < 0 {
		return nil, api.NewError(api.ErrCodeResourceExhausted, "no free queue").
			WithContext("queue", name).WithContext("max_queues", s.cfg.MaxQueues)
	}

	q := &Queue{
		s:      s,
		id:     uint32(id),
		name:   name,
		param:  param,
		events: queue.New(),
		status: statusReady,
	}
	if q.scheduled() {
		q.status = statusNotSched
		q.slot = slotFor(q.id)
		s.bank.attach(param.Prio, q.slot)
	}
	if param.Context != nil {
		q.SetContext(param.Context)
	}
	s.queues[id] = q
	if name != "" {
		s.byName[name] = q
	}
	s.log.Debug().Str("queue", name).Int("id", id).Str("sync", param.Sync.String()).
		Int("prio", int(param.Prio)).Int("group", int(param.Group)).Log("queue created")
	return q, nil
}

// LookupQueue finds a live queue by name.
func (s *Scheduler) LookupQueue(name string) (*Queue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if q, ok := s.byName[name]; ok {
		return q, nil
	}
	return nil, api.NewError(api.ErrCodeNotFound, "queue not found").WithContext("queue", name)
}

// NumQueues returns the number of queue ids in use, including destroyed
// queues the scheduler has not finalized yet.
func (s *Scheduler) NumQueues() int {
	return len(s.liveQueues())
}

func (s *Scheduler) liveQueues() []*Queue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Queue, 0, len(s.byName))
	for _, q := range s.queues {
		if q != nil {
			out = append(out, q)
		}
	}
	return out
}

// DestroyQueue destroys a drained queue. An engaged queue is only marked
// destroyed; the thread that next pops its command frees it. The name is
// released at once.
func (s *Scheduler) DestroyQueue(q *Queue) error {
	q.ord.Lock()
	q.mu.Lock()
	switch {
	case q.status == statusFree || q.status == statusDestroyed:
		q.mu.Unlock()
		q.ord.Unlock()
		return api.NewError(api.ErrCodeQueueDestroyed, "queue already destroyed").WithContext("queue", q.name)
	case q.events.Length() > 0 || q.reorder.len() > 0:
		n, r := q.events.Length(), q.reorder.len()
		q.mu.Unlock()
		q.ord.Unlock()
		s.log.Warning().Str("queue", q.name).Int("events", n).Int("reorder", r).Log("destroy refused")
		return api.NewError(api.ErrCodeQueueNotEmpty, "queue not empty").
			WithContext("queue", q.name).WithContext("events", n).WithContext("reorder", r)
	}
	deferred := q.status == statusSched
	if deferred {
		q.status = statusDestroyed
	} else {
		q.status = statusFree
	}
	q.mu.Unlock()
	q.ord.Unlock()

	s.mu.Lock()
	if s.byName[q.name] == q {
		delete(s.byName, q.name)
	}
	if !deferred {
		s.dropQueueLocked(q)
	}
	s.mu.Unlock()
	s.log.Debug().Str("queue", q.name).Bool("deferred", deferred).Log("queue destroyed")
	return nil
}

func (s *Scheduler) dropQueueLocked(q *Queue) {
	if s.queues[q.id] == q {
		s.queues[q.id] = nil
	}
	if q.scheduled() {
		s.bank.detach(q.param.Prio, q.slot)
	}
}

// finalize frees a destroyed queue whose command was popped from the bank.
func (s *Scheduler) finalize(q *Queue, c *command) {
	q.mu.Lock()
	q.status = statusFree
	q.cmd = nil
	q.mu.Unlock()
	s.releaseCommand(c)

	s.mu.Lock()
	s.dropQueueLocked(q)
	s.mu.Unlock()
	s.stats.finalized.Inc()
	s.log.Debug().Str("queue", q.name).Log("queue finalized")
}

// park remembers a queue holding events without a command token.
func (s *Scheduler) park(q *Queue) {
	s.parkMu.Lock()
	s.parked = append(s.parked, q)
	s.parkMu.Unlock()
	s.log.Warning().Str("queue", q.name).Log("queue parked until a command token frees up")
}

// retryParked engages parked queues as tokens become available.
func (s *Scheduler) retryParked() {
	s.parkMu.Lock()
	if len(s.parked) == 0 {
		s.parkMu.Unlock()
		return
	}
	pending := s.parked
	s.parked = nil
	s.parkMu.Unlock()

	var still []*Queue
	for _, q := range pending {
		q.mu.Lock()
		if q.status != statusNotSched || q.events.Length() == 0 {
			q.mu.Unlock()
			continue
		}
		c, ok := s.cmds.Get()
		if !ok {
			q.mu.Unlock()
			still = append(still, q)
			continue
		}
		c.kind, c.q = cmdQueue, q
		q.cmd = c
		q.status = statusSched
		q.mu.Unlock()
		s.bank.push(c)
	}
	if len(still) > 0 {
		s.parkMu.Lock()
		s.parked = append(still, s.parked...)
		s.parkMu.Unlock()
	}
}

// RegisterThread allocates the lowest free thread id and adds the thread
// to GroupAll and to GroupWorker or GroupControl.
func (s *Scheduler) RegisterThread(kind api.ThreadKind) (*Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, api.NewError(api.ErrCodeNotSupported, "scheduler terminated")
	}
	id := 0
	for s.threads.IsSet(id) {
		id++
	}
	if id >= s.cfg.MaxThreads {
		return nil, api.NewError(api.ErrCodeResourceExhausted, "no free thread id").
			WithContext("max_threads", s.cfg.MaxThreads)
	}
	s.threads.Set(id)

	_ = s.groups.modify(api.GroupAll, func(m *thrmask.Mask) { m.Set(id) })
	_ = s.groups.modify(kindGroup(kind), func(m *thrmask.Mask) { m.Set(id) })

	t := &Thread{
		s:    s,
		id:   id,
		kind: kind,
		idle: concurrency.NewBackoff(s.clock, s.cfg.BackoffSpins, s.cfg.BackoffMin, s.cfg.BackoffMax),
		spin: concurrency.NewBackoff(s.clock, s.cfg.BackoffSpins, s.cfg.BackoffMin, s.cfg.BackoffMax),
	}
	s.log.Debug().Int("thread", id).Str("kind", kind.String()).Log("thread registered")
	return t, nil
}

func kindGroup(kind api.ThreadKind) api.GroupID {
	if kind == api.ThreadControl {
		return api.GroupControl
	}
	return api.GroupWorker
}

func (s *Scheduler) unregisterThread(t *Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.groups.modify(api.GroupAll, func(m *thrmask.Mask) { m.Clear(t.id) })
	_ = s.groups.modify(kindGroup(t.kind), func(m *thrmask.Mask) { m.Clear(t.id) })
	s.threads.Clear(t.id)
	s.log.Debug().Int("thread", t.id).Log("thread unregistered")
}

// NumThreads returns the number of registered threads.
func (s *Scheduler) NumThreads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threads.Count()
}

// StartPoll registers a packet input source. Threads poll it when they find
// no queued work, until the poller reports it has no more input.
func (s *Scheduler) StartPoll(p api.PacketInputPoller, indices []int) error {
	if p == nil {
		return api.NewError(api.ErrCodeInvalidArgument, "nil poller")
	}
	if int(s.bank.pollCmds.Load()) >= s.cfg.MaxPollSources {
		return api.NewError(api.ErrCodeResourceExhausted, "too many poll sources").
			WithContext("max_poll_sources", s.cfg.MaxPollSources)
	}
	c, ok := s.cmds.Get()
	if !ok {
		s.stats.poolExhausted.Inc()
		return api.NewError(api.ErrCodeResourceExhausted, "command pool exhausted")
	}
	s.mu.Lock()
	id := s.pollSeq
	s.pollSeq++
	s.mu.Unlock()

	c.kind = cmdPoll
	c.src = &pollSource{id: id, poller: p, indices: append([]int(nil), indices...)}
	s.bank.pollCmds.Add(1)
	s.bank.poll[pollSlotFor(id, indices)].push(c)
	s.log.Debug().Int("source", id).Int("inputs", len(indices)).Log("packet input polling started")
	return nil
}

// Term drains the bank, frees queues destroyed but not yet finalized and
// stops packet input polling. It reports queues and threads still alive.
func (s *Scheduler) Term() error {
	for p := range s.bank.prio {
		for k := range s.bank.prio[p] {
			slot := &s.bank.prio[p][k]
			var keep []*command
			for c := slot.pop(); c != nil; c = slot.pop() {
				q := c.q
				q.mu.Lock()
				destroyed := q.status == statusDestroyed
				q.mu.Unlock()
				if destroyed {
					s.finalize(q, c)
					continue
				}
				keep = append(keep, c)
			}
			for _, c := range keep {
				slot.push(c)
			}
		}
	}
	for k := range s.bank.poll {
		for c := s.bank.poll[k].pop(); c != nil; c = s.bank.poll[k].pop() {
			s.bank.pollCmds.Add(-1)
			s.releaseCommand(c)
		}
	}

	s.mu.Lock()
	s.closed = true
	var leaked []string
	for _, q := range s.queues {
		if q != nil {
			leaked = append(leaked, q.name)
		}
	}
	threads := s.threads.Count()
	s.mu.Unlock()

	if len(leaked) == 0 && threads == 0 {
		s.log.Debug().Log("scheduler terminated")
		return nil
	}
	s.log.Err().Int("queues", len(leaked)).Int("threads", threads).Log("scheduler terminated with live resources")
	return api.NewError(api.ErrCodeBusy, "scheduler terminated with live resources").
		WithContext("queues", leaked).WithContext("threads", threads)
}
