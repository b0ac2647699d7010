package core

import (
	"maps"
	"sync"
)

// TagRegistry is a mutable set of key/value tags attached to every emitted
// event. Writers are external callers; the dispatcher only takes snapshots.
type TagRegistry struct {
	mu       sync.RWMutex
	tags     map[string]string
	snapshot map[string]string
}

// NewTagRegistry creates an empty registry
func NewTagRegistry() *TagRegistry {
	return &TagRegistry{tags: make(map[string]string)}
}

// Set stores or replaces a tag
func (r *TagRegistry) Set(key, value string) {
	r.mu.Lock()
	r.tags[key] = value
	r.snapshot = nil
	r.mu.Unlock()
}

// Delete removes a tag
func (r *TagRegistry) Delete(key string) {
	r.mu.Lock()
	if _, ok := r.tags[key]; ok {
		delete(r.tags, key)
		r.snapshot = nil
	}
	r.mu.Unlock()
}

// Get returns the value of a tag
func (r *TagRegistry) Get(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.tags[key]
	return v, ok
}

// Snapshot returns an immutable copy of the current tags, or nil when the
// registry is empty. The copy is cached until the next write, so repeated
// calls between writes return the same map; callers must not modify it.
func (r *TagRegistry) Snapshot() map[string]string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	snap := r.snapshot
	empty := len(r.tags) == 0
	r.mu.RUnlock()
	if snap != nil || empty {
		return snap
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshot == nil && len(r.tags) > 0 {
		r.snapshot = maps.Clone(r.tags)
	}
	return r.snapshot
}

// Len returns the number of tags
func (r *TagRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tags)
}
