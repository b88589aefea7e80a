// File: sched/command.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sched

import "github.com/momentics/hioload-sched/api"

type cmdKind uint8

const (
	cmdQueue cmdKind = iota
	cmdPoll
)

// command is a ready token. It sits in exactly one bank slot or is held by
// exactly one thread, never both.
type command struct {
	kind cmdKind
	q    *Queue
	src  *pollSource
}

func (c *command) reset() {
	c.kind = cmdQueue
	c.q = nil
	c.src = nil
}

// pollSource is a packet input registered with StartPoll.
type pollSource struct {
	id      int
	poller  api.PacketInputPoller
	indices []int
}

// releaseCommand returns a token to the pool.
func (s *Scheduler) releaseCommand(c *command) {
	c.reset()
	if !s.cmds.Put(c) {
		s.fatal(api.NewError(api.ErrCodeInternal, "command token returned twice").
			WithContext("pool_size", s.cmds.Size()))
	}
}
