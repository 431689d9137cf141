package sensor

import "sync/atomic"

// RawEventCapacity is the depth of the edge event channel.
const RawEventCapacity = 2

// EdgeTimer pairs rising and falling echo edges into EdgeEvents. Rising
// and Falling are called from the edge delivery context (GPIO event
// handler or simulation) and never block or allocate.
type EdgeTimer struct {
	start    atomic.Uint64
	armed    atomic.Bool
	events   chan EdgeEvent
	dropped  atomic.Uint64
	spurious atomic.Uint64
}

func NewEdgeTimer() *EdgeTimer {
	return &EdgeTimer{
		events: make(chan EdgeEvent, RawEventCapacity),
	}
}

// Rising records the start of an echo pulse.
func (e *EdgeTimer) Rising(tsUs uint64) {
	e.start.Store(tsUs)
	e.armed.Store(true)
}

// Falling completes the pulse started by the last rising edge. Without a
// preceding rising edge the call is ignored. If the channel is full the
// event is dropped and counted.
func (e *EdgeTimer) Falling(tsUs uint64) {
	if !e.armed.Swap(false) {
		e.spurious.Add(1)
		return
	}
	ev := EdgeEvent{StartUs: e.start.Load(), EndUs: tsUs}
	select {
	case e.events <- ev:
	default:
		e.dropped.Add(1)
	}
}

func (e *EdgeTimer) Events() <-chan EdgeEvent {
	return e.events
}

// Drain discards stale events and any half-seen pulse. It returns the
// number of discarded events.
func (e *EdgeTimer) Drain() int {
	e.armed.Store(false)
	n := 0
	for {
		select {
		case <-e.events:
			n++
		default:
			return n
		}
	}
}

// Dropped counts events lost to a full channel.
func (e *EdgeTimer) Dropped() uint64 {
	return e.dropped.Load()
}

// Spurious counts falling edges seen without a rising edge.
func (e *EdgeTimer) Spurious() uint64 {
	return e.spurious.Load()
}
