package sync

import "sync/atomic"

// Counter hands out monotonically increasing sequence numbers.
type Counter interface {
	Get() uint64
	Inc() uint64
}

type CounterImpl struct {
	value atomic.Uint64
}

func NewCounter() Counter {
	return &CounterImpl{}
}

func (c *CounterImpl) Get() uint64 {
	return c.value.Load()
}

func (c *CounterImpl) Inc() uint64 {
	return c.value.Add(1)
}

// Gauge tracks a value that goes up and down, such as in-flight requests.
type Gauge struct {
	value atomic.Int64
}

func (g *Gauge) Inc() int64 {
	return g.value.Add(1)
}

func (g *Gauge) Dec() int64 {
	return g.value.Add(-1)
}

func (g *Gauge) Get() int64 {
	return g.value.Load()
}
