package live

import (
	"context"
	"sync"
)

const valueTopic = "value"

// Value is an observable variable. Watchers see the current value first and
// then the latest value after each Set; intermediate values may be skipped.
type Value[T any] struct {
	mu  sync.RWMutex
	v   T
	hub *Hub
}

// NewValue creates a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial, hub: NewHub()}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.v
}

// Set replaces the value and wakes watchers.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	v.v = x
	v.mu.Unlock()
	v.hub.Notify(valueTopic)
}

// Watch subscribes to the value.
func (v *Value[T]) Watch(ctx context.Context) *Subscription[T] {
	changes, cancel := v.hub.Watch(valueTopic)
	return Stream(ctx, cancel, func(ctx context.Context, emit func(T) bool) error {
		if !emit(v.Get()) {
			return nil
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
				if !emit(v.Get()) {
					return nil
				}
			}
		}
	})
}

// Watchers returns the number of active watchers.
func (v *Value[T]) Watchers() int {
	return v.hub.Subscribers(valueTopic)
}
