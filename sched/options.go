// File: sched/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sched

import (
	"github.com/momentics/hioload-sched/control"
	"github.com/momentics/hioload-sched/core/concurrency"
)

// Option customizes a Scheduler at construction.
type Option func(*Scheduler)

// WithLogger sets the structured logger. A nil logger disables logging.
func WithLogger(l *Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithClock replaces the wall clock used for timed waits, idle sleeps and
// poll rate limiting.
func WithClock(c concurrency.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithConfigStore publishes the effective config into cs and follows
// runtime changes of the poll rate keys.
func WithConfigStore(cs *control.ConfigStore) Option {
	return func(s *Scheduler) { s.store = cs }
}
