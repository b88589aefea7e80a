// Package api
// Author: momentics <momentics@gmail.com>
//
// Contracts of hioload-sched: queue sync modes and priorities, wait policies,
// external input pollers, bounded token pools, rings and structured errors.
// Implementations live in core/concurrency, pool, control and sched.
package api
