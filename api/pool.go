// File: api/pool.go
// Author: momentics <momentics@gmail.com>
//
// Defines abstract pooling APIs for bounded token reuse.

package api

// TokenPool hands out a bounded number of reusable tokens.
type TokenPool[T any] interface {
	// Get returns a free token; ok is false when the pool is exhausted.
	Get() (tok T, ok bool)

	// Put returns a token for reuse.
	Put(tok T) bool

	// Available reports an approximate count of free tokens.
	Available() int
}
