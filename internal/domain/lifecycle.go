package domain

import (
	"context"
	"errors"
	"sync"
)

// Event names a point in a document's life.
type Event string

const (
	BeforeCreate Event = "before_create"
	AfterCreate  Event = "after_create"
	AfterAttach  Event = "after_attach"
	AfterEmail   Event = "after_email"
)

// Hook observes or amends an entity at an Event.
type Hook[T any] func(ctx context.Context, entity T) error

// Lifecycle holds hooks per event. It is safe to register hooks while
// events fire.
type Lifecycle[T any] struct {
	mu    sync.RWMutex
	hooks map[Event][]Hook[T]
}

// NewLifecycle returns an empty Lifecycle.
func NewLifecycle[T any]() *Lifecycle[T] {
	return &Lifecycle[T]{hooks: make(map[Event][]Hook[T])}
}

// On appends hook to event.
func (l *Lifecycle[T]) On(event Event, hook Hook[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks[event] = append(l.hooks[event], hook)
}

func (l *Lifecycle[T]) snapshot(event Event) []Hook[T] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hooks[event]
}

// Fire runs the hooks for event in order and stops at the first error.
// Use it for before-events, where a failure vetoes the operation.
func (l *Lifecycle[T]) Fire(ctx context.Context, event Event, entity T) error {
	for _, hook := range l.snapshot(event) {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

// Notify runs every hook for event and joins their errors. Use it for
// after-events, where the operation has already committed.
func (l *Lifecycle[T]) Notify(ctx context.Context, event Event, entity T) error {
	var errs []error
	for _, hook := range l.snapshot(event) {
		if err := hook(ctx, entity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
