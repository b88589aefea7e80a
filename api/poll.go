// Package api
// Author: momentics
//
// DPDK-style packet input polling contract consumed by the scheduler when no
// queue has work.

package api

// PacketInputPoller is an external input source (NIC, socket, tap) that feeds
// logical queues when polled.
type PacketInputPoller interface {
    // PollInput moves any pending input of the given input queue indices into
    // their logical queues. It must not block and must tolerate being called
    // repeatedly. Returning false stops polling of this source.
    PollInput(indices []int) (more bool)
}

// PollerFunc adapts a function to PacketInputPoller.
type PollerFunc func(indices []int) bool

// PollInput implements PacketInputPoller.
func (f PollerFunc) PollInput(indices []int) bool { return f(indices) }
