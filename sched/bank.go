// File: sched/bank.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sched

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/zeebo/xxh3"
	"golang.org/x/sys/cpu"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/core/concurrency"
)

// cmdSlot is one FIFO of command tokens.
type cmdSlot struct {
	lock concurrency.TicketLock
	fifo *queue.Queue
	_    cpu.CacheLinePad
}

func (s *cmdSlot) push(c *command) {
	s.lock.Lock()
	s.fifo.Add(c)
	s.lock.Unlock()
}

func (s *cmdSlot) pop() *command {
	s.lock.Lock()
	if s.fifo.Length() == 0 {
		s.lock.Unlock()
		return nil
	}
	c := s.fifo.Remove().(*command)
	s.lock.Unlock()
	return c
}

func (s *cmdSlot) len() int {
	s.lock.Lock()
	n := s.fifo.Length()
	s.lock.Unlock()
	return n
}

// bank multiplexes ready commands by priority. priMask marks the slots of a
// priority that have at least one live queue attached, so the scan skips
// priorities and slots nobody can ever fill.
type bank struct {
	prio [api.NumPriorities][SlotsPerPrio]cmdSlot
	poll [PollCmdQueues]cmdSlot

	priMask  [api.NumPriorities]atomic.Uint32
	maskMu   sync.Mutex
	attached [api.NumPriorities][SlotsPerPrio]int

	pollCmds atomic.Int32
}

func newBank() *bank {
	b := &bank{}
	for p := range b.prio {
		for k := range b.prio[p] {
			b.prio[p][k].fifo = queue.New()
		}
	}
	for k := range b.poll {
		b.poll[k].fifo = queue.New()
	}
	return b
}

// slotFor hashes a queue id to its slot. Every engagement of a queue lands
// in the same slot, which keeps its commands in FIFO order.
func slotFor(id uint32) int {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], id)
	return int(xxh3.Hash(buf[:]) % SlotsPerPrio)
}

func pollSlotFor(srcID int, indices []int) int {
	first := 0
	if len(indices) > 0 {
		first = indices[0]
	}
	v := (srcID ^ first) % PollCmdQueues
	if v < 0 {
		v += PollCmdQueues
	}
	return v
}

func (b *bank) attach(prio api.Priority, slot int) {
	b.maskMu.Lock()
	if b.attached[prio][slot] == 0 {
		b.priMask[prio].Store(b.priMask[prio].Load() | 1<<slot)
	}
	b.attached[prio][slot]++
	b.maskMu.Unlock()
}

func (b *bank) detach(prio api.Priority, slot int) {
	b.maskMu.Lock()
	b.attached[prio][slot]--
	if b.attached[prio][slot] == 0 {
		b.priMask[prio].Store(b.priMask[prio].Load() &^ (1 << slot))
	}
	b.maskMu.Unlock()
}

func (b *bank) slot(q *Queue) *cmdSlot {
	return &b.prio[q.param.Prio][q.slot]
}

func (b *bank) push(c *command) {
	b.slot(c.q).push(c)
}

// depth counts queue commands waiting in the bank.
func (b *bank) depth() int {
	n := 0
	for p := range b.prio {
		for k := range b.prio[p] {
			n += b.prio[p][k].len()
		}
	}
	return n
}

func (b *bank) depthAt(prio api.Priority) int {
	n := 0
	for k := range b.prio[prio] {
		n += b.prio[prio][k].len()
	}
	return n
}
