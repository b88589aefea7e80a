// Package pool
// Author: momentics <momentics@gmail.com>
//
// Bounded, preallocated pools for the scheduling fast path. Pools fail
// closed: exhaustion is reported to the caller instead of allocating.
package pool
