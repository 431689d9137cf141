package sensor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gammazero/deque"
)

// ProcessedCapacity is the default depth of the measurement queue.
const ProcessedCapacity = 5

// MeasurementQueue is a bounded FIFO between the acquisition loop and
// its consumer. Push never blocks: when full, the oldest measurement is
// evicted and the overflow counter incremented.
type MeasurementQueue struct {
	mu        sync.Mutex
	items     deque.Deque[Measurement]
	capacity  int
	overflows atomic.Uint64
	ready     chan struct{}
}

func NewMeasurementQueue(capacity int) *MeasurementQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &MeasurementQueue{
		capacity: capacity,
		ready:    make(chan struct{}, 1),
	}
}

// Push appends m and reports whether an older entry had to be evicted.
func (q *MeasurementQueue) Push(m Measurement) bool {
	q.mu.Lock()
	evicted := false
	if q.items.Len() >= q.capacity {
		q.items.PopFront()
		q.overflows.Add(1)
		evicted = true
	}
	q.items.PushBack(m)
	q.mu.Unlock()

	q.signal()
	return evicted
}

// ReadLatest blocks until a measurement is available and returns the
// oldest pending one, so consumers see measurements in acquisition
// order. It only returns early when ctx is done.
func (q *MeasurementQueue) ReadLatest(ctx context.Context) (Measurement, error) {
	for {
		if m, ok := q.TryRead(); ok {
			return m, nil
		}
		select {
		case <-ctx.Done():
			return Measurement{}, ctx.Err()
		case <-q.ready:
		}
	}
}

// TryRead pops the oldest pending measurement without blocking.
func (q *MeasurementQueue) TryRead() (Measurement, bool) {
	q.mu.Lock()
	if q.items.Len() == 0 {
		q.mu.Unlock()
		return Measurement{}, false
	}
	m := q.items.PopFront()
	more := q.items.Len() > 0
	q.mu.Unlock()

	if more {
		// keep other waiting readers going
		q.signal()
	}
	return m, true
}

// Pending returns a copy of all queued measurements, oldest first.
func (q *MeasurementQueue) Pending() []Measurement {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Measurement, q.items.Len())
	for i := range out {
		out[i] = q.items.At(i)
	}
	return out
}

func (q *MeasurementQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

func (q *MeasurementQueue) Cap() int {
	return q.capacity
}

func (q *MeasurementQueue) Overflows() uint64 {
	return q.overflows.Load()
}

func (q *MeasurementQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
