// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime control layer of hioload-sched: configuration loading and live
// reconfiguration, metrics publication and debug probes.
//
// Provides concurrent-safe state handling primitives including:
//   - Snapshot config reads and change listeners
//   - YAML configuration loading
//   - Metrics registry fed by scheduler counters
//   - Probe registration and state export
package control
