package shard

import (
	"fmt"
	"sync"
)

// Router maps shard IDs to backends of type T.
type Router[T any] struct {
	mu        sync.RWMutex
	numShards int
	backends  map[ID]T
}

// NewRouter creates a Router over numShards shards.
func NewRouter[T any](numShards int) *Router[T] {
	if numShards < 1 {
		numShards = 1
	}
	return &Router[T]{numShards: numShards, backends: make(map[ID]T, numShards)}
}

// NumShards returns the shard count keys are hashed over.
func (r *Router[T]) NumShards() int {
	return r.numShards
}

// Register associates a shard ID with a backend.
func (r *Router[T]) Register(id ID, backend T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[id] = backend
}

// For returns the backend registered for the given shard ID.
func (r *Router[T]) For(id ID) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("no backend registered for shard %d", id)
	}
	return b, nil
}

// ForKey returns the backend owning key.
func (r *Router[T]) ForKey(key string) (T, error) {
	return r.For(ForKey(key, r.numShards))
}
