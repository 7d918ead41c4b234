// Package live provides the standing-query primitives used by the document store
// and its remote clients.
package live

import (
	"context"
	"sync"
)

// Subscription is a standing query. C yields successive results until the
// subscription is closed or its producer fails; C is then closed and Err
// reports the failure (nil after Close).
type Subscription[T any] struct {
	C <-chan T

	ch      chan T
	cancel  context.CancelFunc
	release func()
	once    sync.Once
	done    chan struct{}

	mu  sync.Mutex
	err error
}

// Producer runs until ctx is cancelled or it fails. emit blocks until the
// value is taken or the subscription is closed, in which case it returns false.
type Producer[T any] func(ctx context.Context, emit func(T) bool) error

// Stream starts producer in its own goroutine. release runs exactly once when
// the subscription ends for any reason.
func Stream[T any](ctx context.Context, release func(), producer Producer[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan T)
	s := &Subscription[T]{
		C:       ch,
		ch:      ch,
		cancel:  cancel,
		release: release,
		done:    make(chan struct{}),
	}

	emit := func(v T) bool {
		select {
		case s.ch <- v:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(s.done)
		defer close(s.ch)
		defer s.Close()
		err := producer(ctx, emit)
		if err != nil && ctx.Err() == nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		}
	}()
	return s
}

// Failed returns a subscription that ends immediately with err.
func Failed[T any](err error) *Subscription[T] {
	return Stream[T](context.Background(), nil, func(context.Context, func(T) bool) error {
		return err
	})
}

// Close releases the subscription. It is safe to call more than once and
// from any goroutine.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.cancel()
		if s.release != nil {
			s.release()
		}
	})
}

// Done is closed after the producer has returned and C has been closed.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Err returns the producer failure, if any.
func (s *Subscription[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
