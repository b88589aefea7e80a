// Package api
// Author: momentics@gmail.com
//
// Bounded MPMC ring contract used for free lists of scheduling tokens.

package api

// Ring is a bounded multi-producer/multi-consumer FIFO.
type Ring[T any] interface {
    // Enqueue appends an item, returns false when the ring is full.
    Enqueue(item T) bool
    // Dequeue removes the oldest item, returns false when empty.
    Dequeue() (T, bool)
    // Len is an approximate item count under concurrent use.
    Len() int
    // Cap is the fixed ring capacity.
    Cap() int
}
