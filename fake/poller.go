// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"

	"github.com/momentics/hioload-sched/api"
)

var _ api.PacketInputPoller = (*Poller)(nil)

// Poller is a scripted packet input source. Each poll delivers the next
// scripted batch through Deliver; once Limit polls have happened it asks the
// scheduler to stop polling. A zero Limit polls forever.
type Poller struct {
	Deliver func(batch []api.Event)
	Limit   int

	mu      sync.Mutex
	pending [][]api.Event
	calls   int
	seen    [][]int
}

// Push scripts a batch for a later poll.
func (p *Poller) Push(batch ...api.Event) {
	p.mu.Lock()
	p.pending = append(p.pending, batch)
	p.mu.Unlock()
}

// PollInput implements api.PacketInputPoller.
func (p *Poller) PollInput(indices []int) bool {
	p.mu.Lock()
	p.calls++
	p.seen = append(p.seen, append([]int(nil), indices...))
	var batch []api.Event
	if len(p.pending) > 0 {
		batch = p.pending[0]
		p.pending = p.pending[1:]
	}
	more := p.Limit == 0 || p.calls < p.Limit
	deliver := p.Deliver
	p.mu.Unlock()

	if batch != nil && deliver != nil {
		deliver(batch)
	}
	return more
}

// Calls returns how many times the source was polled.
func (p *Poller) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Indices returns the input indices passed to every poll.
func (p *Poller) Indices() [][]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]int(nil), p.seen...)
}
