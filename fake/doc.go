// Package fake
// Author: momentics <momentics@gmail.com>
//
// Test doubles for hioload-sched: a virtual clock and a scripted packet
// input poller.
package fake
