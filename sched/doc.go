// Package sched
// Author: momentics <momentics@gmail.com>
//
// Priority based multi-thread event scheduler with parallel, atomic and
// ordered queue synchronization.
//
// A Scheduler owns a bank of command slots: NumPriorities priorities with
// SlotsPerPrio FIFO slots each. Enqueueing into an idle scheduled queue
// engages it by placing a command token into the slot picked by a stable
// hash of the queue id. Registered threads search the bank from the highest
// to the lowest priority, starting at a slot rotated by their thread id, and
// pop the first command they may serve. Higher priorities are always drained
// before lower ones are looked at.
//
// The discipline of the queue decides what the thread holds afterwards:
//
//   - Parallel: nothing, the command goes back to its slot at once.
//   - Atomic: the command itself. No other thread sees the queue until the
//     holder calls the scheduler again or releases the context.
//   - Ordered: a snapshot of the queue order. Exactly one event is taken per
//     call, so consecutive events spread over threads. Enqueues made through
//     the thread are held back in the source queue reorder list until every
//     earlier order has been released, and ordered locks admit contexts in
//     order.
//
// Every thread is represented by an explicit *Thread obtained from
// RegisterThread; a Thread must be driven by a single goroutine.
//
// When the bank is empty the scheduler polls registered packet input
// sources, rate limited and stopping at the first source found except on
// every sixteenth pass.
package sched
