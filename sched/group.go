// File: sched/group.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Schedule groups restrict which threads may serve a queue. Membership is
// published copy-on-write: the scan reads an immutable table without
// locking, updates serialize on a mutex. A thread that just left a group may
// still receive one more batch from it.

package sched

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/thrmask"
)

type groupEntry struct {
	name string
	mask *thrmask.Mask // nil marks a free id
}

type groupTable struct {
	entries []groupEntry
}

// member reports whether thread thr may serve queues of group id. GroupAll
// admits every thread without a mask lookup.
func (t *groupTable) member(id api.GroupID, thr int) bool {
	if id == api.GroupAll {
		return true
	}
	if id < 0 || int(id) >= len(t.entries) {
		return false
	}
	return t.entries[id].mask.IsSet(thr)
}

func (t *groupTable) exists(id api.GroupID) bool {
	return id >= 0 && int(id) < len(t.entries) && t.entries[id].mask != nil
}

type groupSet struct {
	mu  sync.Mutex
	cur atomic.Pointer[groupTable]
}

func newGroupSet(max int) *groupSet {
	tb := &groupTable{entries: make([]groupEntry, max)}
	tb.entries[api.GroupAll] = groupEntry{name: "all", mask: thrmask.New()}
	tb.entries[api.GroupWorker] = groupEntry{name: "worker", mask: thrmask.New()}
	tb.entries[api.GroupControl] = groupEntry{name: "control", mask: thrmask.New()}
	g := &groupSet{}
	g.cur.Store(tb)
	return g
}

func (g *groupSet) load() *groupTable { return g.cur.Load() }

// update runs fn on a private copy of the table and publishes it when fn
// succeeds. Entries fn modifies must get fresh masks.
func (g *groupSet) update(fn func(entries []groupEntry) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	old := g.cur.Load()
	next := &groupTable{entries: make([]groupEntry, len(old.entries))}
	copy(next.entries, old.entries)
	if err := fn(next.entries); err != nil {
		return err
	}
	g.cur.Store(next)
	return nil
}

func (g *groupSet) modify(id api.GroupID, fn func(m *thrmask.Mask)) error {
	return g.update(func(entries []groupEntry) error {
		if id < 0 || int(id) >= len(entries) || entries[id].mask == nil {
			return errGroupNotFound(id)
		}
		m := entries[id].mask.Clone()
		fn(m)
		entries[id].mask = m
		return nil
	})
}

func errGroupNotFound(id api.GroupID) error {
	return api.NewError(api.ErrCodeNotFound, "schedule group not found").WithContext("group", int(id))
}

func errGroupPredefined(id api.GroupID) error {
	return api.NewError(api.ErrCodeInvalidArgument, "predefined schedule group").WithContext("group", int(id))
}

// CreateGroup creates a named group with the given members and returns its
// id. Names must be unique when not empty.
func (s *Scheduler) CreateGroup(name string, mask *thrmask.Mask) (api.GroupID, error) {
	id := api.GroupInvalid
	err := s.groups.update(func(entries []groupEntry) error {
		for i := int(api.GroupNamed); i < len(entries); i++ {
			e := entries[i]
			if e.mask == nil {
				if id == api.GroupInvalid {
					id = api.GroupID(i)
				}
				continue
			}
			if name != "" && e.name == name {
				return api.NewError(api.ErrCodeAlreadyExists, "schedule group exists").WithContext("name", name)
			}
		}
		if id == api.GroupInvalid {
			return api.NewError(api.ErrCodeResourceExhausted, "no free schedule group").WithContext("name", name)
		}
		entries[id] = groupEntry{name: name, mask: mask.Clone()}
		return nil
	})
	if err != nil {
		return api.GroupInvalid, err
	}
	s.log.Debug().Str("group", name).Int("id", int(id)).Str("mask", mask.String()).Log("schedule group created")
	return id, nil
}

// DestroyGroup frees a named group. It fails with api.ErrBusy while a live
// queue still belongs to the group.
func (s *Scheduler) DestroyGroup(id api.GroupID) error {
	if id < api.GroupNamed {
		return errGroupPredefined(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.queues {
		if q != nil && q.param.Group == id {
			return api.NewError(api.ErrCodeBusy, "schedule group in use").
				WithContext("group", int(id)).WithContext("queue", q.name)
		}
	}
	err := s.groups.update(func(entries []groupEntry) error {
		if int(id) >= len(entries) || entries[id].mask == nil {
			return errGroupNotFound(id)
		}
		entries[id] = groupEntry{}
		return nil
	})
	if err == nil {
		s.log.Debug().Int("id", int(id)).Log("schedule group destroyed")
	}
	return err
}

// JoinGroup adds the threads of mask to a named group.
func (s *Scheduler) JoinGroup(id api.GroupID, mask *thrmask.Mask) error {
	if id < api.GroupNamed {
		return errGroupPredefined(id)
	}
	return s.groups.modify(id, func(m *thrmask.Mask) { m.Or(mask) })
}

// LeaveGroup removes the threads of mask from a named group.
func (s *Scheduler) LeaveGroup(id api.GroupID, mask *thrmask.Mask) error {
	if id < api.GroupNamed {
		return errGroupPredefined(id)
	}
	return s.groups.modify(id, func(m *thrmask.Mask) { m.AndNot(mask) })
}

// LookupGroup returns the id of the named group.
func (s *Scheduler) LookupGroup(name string) (api.GroupID, error) {
	if name == "" {
		return api.GroupInvalid, api.NewError(api.ErrCodeInvalidArgument, "empty group name")
	}
	tb := s.groups.load()
	for i := int(api.GroupNamed); i < len(tb.entries); i++ {
		if tb.entries[i].mask != nil && tb.entries[i].name == name {
			return api.GroupID(i), nil
		}
	}
	return api.GroupInvalid, api.NewError(api.ErrCodeNotFound, "schedule group not found").WithContext("name", name)
}

// GroupMask returns a copy of the members of any existing group, predefined
// groups included.
func (s *Scheduler) GroupMask(id api.GroupID) (*thrmask.Mask, error) {
	tb := s.groups.load()
	if !tb.exists(id) {
		return nil, errGroupNotFound(id)
	}
	return tb.entries[id].mask.Clone(), nil
}
