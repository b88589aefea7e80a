// Package api
// Author: momentics
//
// Live introspection of scheduler state for diagnostics.

package api

// Probe reports one piece of live state. It is called on demand and must be
// safe to run concurrently with scheduling.
type Probe func() any

// Debug is a registry of named probes.
type Debug interface {
    // RegisterProbe registers or replaces the probe under name.
    RegisterProbe(name string, fn Probe)

    // DumpState evaluates every probe and returns the results by name.
    DumpState() map[string]any
}
