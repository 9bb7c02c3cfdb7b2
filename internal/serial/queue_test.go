package serial

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestQueue_RunsInOrder(t *testing.T) {
	q := New()
	defer q.Close()

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})

	for i := 0; i < 100; i++ {
		i := i
		assert.True(t, q.Submit(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == 99 {
				close(done)
			}
		}))
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for tasks")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestQueue_NeverRunsTasksConcurrently(t *testing.T) {
	q := New()

	var active, maxActive atomic.Int32
	for i := 0; i < 50; i++ {
		q.Submit(func() {
			n := active.Add(1)
			if n > maxActive.Load() {
				maxActive.Store(n)
			}
			time.Sleep(100 * time.Microsecond)
			active.Add(-1)
		})
	}
	q.Close()

	assert.Equal(t, int32(1), maxActive.Load())
}

func TestQueue_CloseDrainsAndRejects(t *testing.T) {
	q := New()

	var ran atomic.Int32
	block := make(chan struct{})
	q.Submit(func() { <-block })
	for i := 0; i < 5; i++ {
		q.Submit(func() { ran.Add(1) })
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(block)
	}()
	q.Close()

	assert.Equal(t, int32(5), ran.Load())
	assert.False(t, q.Submit(func() {}))
	assert.Equal(t, 0, q.Len())

	// idempotent
	q.Close()
}

func TestQueue_PanicDoesNotStopWorker(t *testing.T) {
	var recovered atomic.Value
	q := New(WithPanicHandler(func(r any) { recovered.Store(r) }))

	var ran atomic.Bool
	q.Submit(func() { panic("boom") })
	q.Submit(func() { ran.Store(true) })
	q.Close()

	assert.Equal(t, "boom", recovered.Load())
	assert.True(t, ran.Load())
}
