// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package pool

import (
	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/core/concurrency"
)

var _ api.TokenPool[*int] = (*TokenPool[*int])(nil)

// TokenPool is a bounded, preallocated free list of tokens. It never
// allocates after construction: when every token is out, Get fails.
type TokenPool[T any] struct {
	free *concurrency.LockFreeQueue[T]
	size int
}

// NewTokenPool preallocates size tokens built by newFn.
func NewTokenPool[T any](size int, newFn func(i int) T) (*TokenPool[T], error) {
	if size <= 0 || newFn == nil {
		return nil, concurrency.ErrInvalidCapacity
	}
	p := &TokenPool[T]{
		free: concurrency.NewLockFreeQueue[T](size),
		size: size,
	}
	for i := 0; i < size; i++ {
		p.free.Enqueue(newFn(i))
	}
	return p, nil
}

// Get takes a token; ok is false when the pool is exhausted.
func (p *TokenPool[T]) Get() (T, bool) {
	return p.free.Dequeue()
}

// Put returns a token. It reports false when the pool is already full,
// which means a token was returned twice.
func (p *TokenPool[T]) Put(tok T) bool {
	if p.free.Len() >= p.size {
		return false
	}
	return p.free.Enqueue(tok)
}

// Available is the approximate number of free tokens.
func (p *TokenPool[T]) Available() int { return p.free.Len() }

// Size is the total number of tokens owned by the pool.
func (p *TokenPool[T]) Size() int { return p.size }
