package oneshot

import (
	"context"
	"fmt"
	"sync/atomic"
)

// AwaitError is returned by Await when ctx ends before an outcome arrives.
type AwaitError struct {
	Err error
}

func (e *AwaitError) Error() string {
	return fmt.Sprintf("await failed: %v", e.Err)
}

func (e *AwaitError) Unwrap() error {
	return e.Err
}

const (
	pending uint32 = iota
	claimed
	delivered
)

// Gate carries exactly one value from whichever goroutine gets there first.
// Delivery is two-phase: Claim reserves the gate through a compare-and-set,
// Publish stores the value and wakes waiters. Resolve does both.
type Gate[T any] struct {
	state atomic.Uint32
	done  chan struct{}
	val   T
}

func New[T any]() *Gate[T] {
	return &Gate[T]{done: make(chan struct{})}
}

// Claim reserves the gate. Only the caller that gets true may Publish.
func (g *Gate[T]) Claim() bool {
	return g.state.CompareAndSwap(pending, claimed)
}

// Publish stores v and closes Done.
//
// Panics unless the gate is claimed and not yet published.
func (g *Gate[T]) Publish(v T) {
	if g.state.Load() != claimed {
		panic("oneshot: Publish without a successful Claim")
	}
	g.val = v
	g.state.Store(delivered)
	close(g.done)
}

// Resolve claims and publishes v. It reports whether this call won the gate.
func (g *Gate[T]) Resolve(v T) bool {
	if !g.Claim() {
		return false
	}
	g.Publish(v)
	return true
}

// Delivered reports whether the gate has been claimed.
func (g *Gate[T]) Delivered() bool {
	return g.state.Load() != pending
}

// Done is closed once the value is readable.
func (g *Gate[T]) Done() <-chan struct{} {
	return g.done
}

// Outcome returns the published value. ok is false until Publish.
func (g *Gate[T]) Outcome() (v T, ok bool) {
	if g.state.Load() != delivered {
		return v, false
	}
	return g.val, true
}

// Await blocks until a value is published or ctx is done.
func (g *Gate[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-g.done:
		return g.val, nil
	case <-ctx.Done():
		var zero T
		return zero, &AwaitError{Err: ctx.Err()}
	}
}
