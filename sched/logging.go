// File: sched/logging.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sched

import (
	"fmt"
	"io"
	"strings"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	"github.com/momentics/hioload-sched/api"
)

// Logger is the structured logger type accepted by the scheduler.
type Logger = logiface.Logger[logiface.Event]

// NewLogger returns a JSON lines logger writing to w.
func NewLogger(w io.Writer, level logiface.Level) *Logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	).Logger()
}

// NewLoggerFromConfig builds a logger at cfg.LogLevel.
func NewLoggerFromConfig(w io.Writer, cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return NewLogger(w, level), nil
}

// ParseLevel maps a syslog style level keyword to a logiface level.
func ParseLevel(s string) (logiface.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info", "informational":
		return logiface.LevelInformational, nil
	case "disabled", "off", "none":
		return logiface.LevelDisabled, nil
	case "emerg", "emergency":
		return logiface.LevelEmergency, nil
	case "alert":
		return logiface.LevelAlert, nil
	case "crit", "critical":
		return logiface.LevelCritical, nil
	case "err", "error":
		return logiface.LevelError, nil
	case "warn", "warning":
		return logiface.LevelWarning, nil
	case "notice":
		return logiface.LevelNotice, nil
	case "debug":
		return logiface.LevelDebug, nil
	case "trace":
		return logiface.LevelTrace, nil
	}
	return logiface.LevelDisabled, fmt.Errorf("%w: log level %q", api.ErrInvalidArgument, s)
}

// fatal reports a broken scheduling invariant and aborts. Continuing would
// corrupt ordering state shared with other threads.
func (s *Scheduler) fatal(err *api.Error) {
	b := s.log.Emerg().Str("code", err.Code.String())
	for k, v := range err.Context {
		b = b.Any(k, v)
	}
	b.Log(err.Message)
	panic(err)
}
