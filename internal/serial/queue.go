// Package serial runs submitted functions one at a time, in submission
// order, on a single goroutine.
package serial

import (
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// Queue is a FIFO executor. The zero value is not usable; call New.
type Queue struct {
	mu     sync.Mutex
	items  *linkedlistqueue.Queue
	closed bool

	wake    chan struct{}
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once

	onPanic func(any)
}

// Option configures a Queue.
type Option func(*Queue)

// WithPanicHandler is called with the recovered value when a task panics.
// Without it the panic is swallowed so later tasks still run.
func WithPanicHandler(f func(any)) Option {
	return func(q *Queue) {
		q.onPanic = f
	}
}

// New starts the worker goroutine. Close must be called to stop it.
func New(opts ...Option) *Queue {
	q := &Queue{
		items:   linkedlistqueue.New(),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	go q.loop()
	return q
}

// Submit enqueues fn. It returns false when the queue is closed.
func (q *Queue) Submit(fn func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items.Enqueue(fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Size()
}

// Close rejects new tasks, runs the ones already queued and waits for the
// worker to exit. It must not be called from inside a task.
func (q *Queue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.quit)
	})
	<-q.stopped
}

func (q *Queue) loop() {
	defer close(q.stopped)
	for {
		if fn, ok := q.next(); ok {
			q.run(fn)
			continue
		}

		select {
		case <-q.wake:
		case <-q.quit:
			for {
				fn, ok := q.next()
				if !ok {
					return
				}
				q.run(fn)
			}
		}
	}
}

func (q *Queue) next() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	value, ok := q.items.Dequeue()
	if !ok {
		return nil, false
	}
	fn, ok := value.(func())
	return fn, ok
}

func (q *Queue) run(fn func()) {
	defer func() {
		if r := recover(); r != nil && q.onPanic != nil {
			q.onPanic(r)
		}
	}()
	fn()
}
