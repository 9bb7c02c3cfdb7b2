package oneshot

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_ResolveOnce(t *testing.T) {
	g := New[string]()
	assert.False(t, g.Delivered())

	assert.True(t, g.Resolve("first"))
	assert.False(t, g.Resolve("second"))
	assert.False(t, g.Claim())

	v, ok := g.Outcome()
	require.True(t, ok)
	assert.Equal(t, "first", v)

	got, err := g.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", got)
}

func TestGate_ClaimThenPublish(t *testing.T) {
	g := New[int]()
	require.True(t, g.Claim())

	assert.True(t, g.Delivered())
	assert.False(t, g.Resolve(7))
	_, ok := g.Outcome()
	assert.False(t, ok)
	select {
	case <-g.Done():
		t.Fatal("done must stay open until Publish")
	default:
	}

	g.Publish(42)
	v, ok := g.Outcome()
	require.True(t, ok)
	assert.Equal(t, 42, v)
	<-g.Done()
}

func TestGate_PublishWithoutClaimPanics(t *testing.T) {
	g := New[int]()
	assert.Panics(t, func() { g.Publish(1) })

	require.True(t, g.Resolve(1))
	assert.Panics(t, func() { g.Publish(2) })
}

func TestGate_AwaitContext(t *testing.T) {
	g := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := g.Await(ctx)
	var aerr *AwaitError
	require.ErrorAs(t, err, &aerr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGate_ConcurrentDeliveryHasOneWinner(t *testing.T) {
	for round := 0; round < 100; round++ {
		g := New[int]()
		var winners atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})

		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				if g.Resolve(i) {
					winners.Add(1)
				}
			}(i)
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), winners.Load())
		select {
		case <-g.Done():
		default:
			t.Fatal("done channel must be closed")
		}
	}
}

func TestGate_OutcomePending(t *testing.T) {
	g := New[int]()
	_, ok := g.Outcome()
	assert.False(t, ok)
}
