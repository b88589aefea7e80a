// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe runtime configuration store with change notification.

package control

import (
	"reflect"
	"sync"
)

// ConfigStore is a dynamic key/value map with snapshot reads and change
// listeners.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func(changed map[string]any)
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config: make(map[string]any),
	}
}

// Get returns a single value.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// SetConfig merges new values and notifies listeners with the keys whose
// value changed. Listeners run on their own goroutines.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	changed := make(map[string]any)
	for k, v := range newCfg {
		if old, ok := cs.config[k]; ok && reflect.DeepEqual(old, v) {
			continue
		}
		cs.config[k] = v
		changed[k] = v
	}
	listeners := cs.listeners
	cs.mu.Unlock()

	if len(changed) == 0 {
		return
	}
	for _, fn := range listeners {
		go fn(changed)
	}
}

// OnReload registers a listener called after values change.
func (cs *ConfigStore) OnReload(fn func(changed map[string]any)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	next := make([]func(map[string]any), len(cs.listeners), len(cs.listeners)+1)
	copy(next, cs.listeners)
	cs.listeners = append(next, fn)
}
