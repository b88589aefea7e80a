// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Counter registry fed by periodic scheduler snapshots. Keeps the previous
// publication so per-second rates can be derived between the two.

package control

import (
	"sort"
	"sync"
	"time"
)

// MetricsRegistry holds the two most recent counter publications.
type MetricsRegistry struct {
	mu       sync.RWMutex
	cur      map[string]uint64
	prev     map[string]uint64
	updated  time.Time
	previous time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{cur: make(map[string]uint64)}
}

// Publish records a counter snapshot taken now.
func (mr *MetricsRegistry) Publish(values map[string]uint64) {
	mr.PublishAt(time.Now(), values)
}

// PublishAt records a counter snapshot taken at ts. Keys absent from values
// keep their last published value.
func (mr *MetricsRegistry) PublishAt(ts time.Time, values map[string]uint64) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	next := make(map[string]uint64, len(mr.cur)+len(values))
	for k, v := range mr.cur {
		next[k] = v
	}
	for k, v := range values {
		next[k] = v
	}
	if !mr.updated.IsZero() {
		mr.prev, mr.previous = mr.cur, mr.updated
	}
	mr.cur, mr.updated = next, ts
}

// Get returns one counter of the latest publication.
func (mr *MetricsRegistry) Get(key string) (uint64, bool) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	v, ok := mr.cur[key]
	return v, ok
}

// Snapshot returns a copy of the latest publication.
func (mr *MetricsRegistry) Snapshot() map[string]uint64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]uint64, len(mr.cur))
	for k, v := range mr.cur {
		out[k] = v
	}
	return out
}

// Keys returns the published counter names in sorted order.
func (mr *MetricsRegistry) Keys() []string {
	mr.mu.RLock()
	keys := make([]string, 0, len(mr.cur))
	for k := range mr.cur {
		keys = append(keys, k)
	}
	mr.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Rates returns per-second increments between the last two publications.
// It is empty until two publications exist. Counters that went backwards
// report zero.
func (mr *MetricsRegistry) Rates() map[string]float64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]float64)
	if mr.prev == nil {
		return out
	}
	secs := mr.updated.Sub(mr.previous).Seconds()
	if secs <= 0 {
		return out
	}
	for k, v := range mr.cur {
		if p := mr.prev[k]; v > p {
			out[k] = float64(v-p) / secs
		} else {
			out[k] = 0
		}
	}
	return out
}

// Updated returns the time of the last publication.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}
