// File: sched/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sched

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-sched/api"
	"github.com/momentics/hioload-sched/control"
	"github.com/momentics/hioload-sched/core/concurrency"
)

const (
	// SlotsPerPrio is the number of command FIFOs per priority.
	SlotsPerPrio = 4
	// PollCmdQueues is the number of FIFOs holding packet input poll commands.
	PollCmdQueues = 4
	// MaxDequeue bounds the events taken from a queue per schedule pass.
	MaxDequeue = 4
	// MaxOrderedLocks is the number of ordered locks a queue may declare.
	MaxOrderedLocks = 2
	// QueueMultiMax bounds a single multi-event enqueue.
	QueueMultiMax = 8

	pollFullScanMask = 0xf
)

const (
	DefaultMaxQueues      = 1024
	DefaultMaxThreads     = 128
	DefaultMaxGroups      = 256
	DefaultMaxPollSources = 64
)

// Config sizes the scheduler and tunes its idle behavior.
type Config struct {
	// MaxQueues bounds live logical queues.
	MaxQueues int `yaml:"max_queues"`
	// MaxThreads bounds registered threads; ids are below this value.
	MaxThreads int `yaml:"max_threads"`
	// MaxGroups bounds schedule groups, predefined ones included.
	MaxGroups int `yaml:"max_groups"`
	// MaxPollSources bounds active packet input poll commands.
	MaxPollSources int `yaml:"max_poll_sources"`
	// CommandPoolSize is the number of command tokens. Zero sizes the pool
	// for every queue and poll source; a smaller pool makes enqueue into an
	// idle queue fail with ErrResourceExhausted once tokens run out.
	CommandPoolSize int `yaml:"command_pool_size"`
	// PollRate limits packet input polls per second over all threads.
	// Zero disables the limit.
	PollRate float64 `yaml:"poll_rate"`
	// PollBurst is the limiter bucket size.
	PollBurst int `yaml:"poll_burst"`
	// BackoffSpins, BackoffMin and BackoffMax shape the idle loop of
	// schedule calls and ordered lock waits.
	BackoffSpins int           `yaml:"backoff_spins"`
	BackoffMin   time.Duration `yaml:"backoff_min"`
	BackoffMax   time.Duration `yaml:"backoff_max"`
	// LogLevel is used by NewLoggerFromConfig.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the stock sizing.
func DefaultConfig() Config {
	return Config{
		MaxQueues:      DefaultMaxQueues,
		MaxThreads:     DefaultMaxThreads,
		MaxGroups:      DefaultMaxGroups,
		MaxPollSources: DefaultMaxPollSources,
		PollBurst:      1,
		BackoffSpins:   concurrency.DefaultBackoffSpins,
		BackoffMin:     concurrency.DefaultBackoffMin,
		BackoffMax:     concurrency.DefaultBackoffMax,
		LogLevel:       "info",
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := control.LoadYAML(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges.
func (c Config) Validate() error {
	invalid := func(field string, v any) error {
		return api.NewError(api.ErrCodeInvalidArgument, "invalid scheduler config").
			WithContext("field", field).WithContext("value", v)
	}
	switch {
	case c.MaxQueues <= 0:
		return invalid("max_queues", c.MaxQueues)
	case c.MaxThreads <= 0:
		return invalid("max_threads", c.MaxThreads)
	case c.MaxGroups <= int(api.GroupNamed):
		return invalid("max_groups", c.MaxGroups)
	case c.MaxPollSources < 0:
		return invalid("max_poll_sources", c.MaxPollSources)
	case c.CommandPoolSize < 0:
		return invalid("command_pool_size", c.CommandPoolSize)
	case c.PollRate < 0:
		return invalid("poll_rate", c.PollRate)
	case c.PollBurst < 0:
		return invalid("poll_burst", c.PollBurst)
	case c.BackoffMax < c.BackoffMin:
		return invalid("backoff_max", c.BackoffMax)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return invalid("log_level", c.LogLevel)
	}
	return nil
}

func (c Config) commandPoolSize() int {
	if c.CommandPoolSize > 0 {
		return c.CommandPoolSize
	}
	return c.MaxQueues + c.MaxPollSources
}

// Config store keys published through WithConfigStore.
const (
	KeyMaxQueues       = "sched.max_queues"
	KeyMaxThreads      = "sched.max_threads"
	KeyMaxGroups       = "sched.max_groups"
	KeyMaxPollSources  = "sched.max_poll_sources"
	KeyCommandPoolSize = "sched.command_pool_size"
	KeyPollRate        = "sched.poll_rate"
	KeyPollBurst       = "sched.poll_burst"
)

// Map flattens the config for a control.ConfigStore.
func (c Config) Map() map[string]any {
	return map[string]any{
		KeyMaxQueues:       c.MaxQueues,
		KeyMaxThreads:      c.MaxThreads,
		KeyMaxGroups:       c.MaxGroups,
		KeyMaxPollSources:  c.MaxPollSources,
		KeyCommandPoolSize: c.commandPoolSize(),
		KeyPollRate:        c.PollRate,
		KeyPollBurst:       c.PollBurst,
	}
}

func (c Config) String() string {
	return fmt.Sprintf("queues=%d threads=%d groups=%d polls=%d tokens=%d rate=%g",
		c.MaxQueues, c.MaxThreads, c.MaxGroups, c.MaxPollSources, c.commandPoolSize(), c.PollRate)
}
