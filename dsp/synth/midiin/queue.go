package midiin

import (
	"fmt"
	"sync/atomic"
)

// Queue is a fixed-capacity single-producer/single-consumer ring of events.
// Push and Drain never block or allocate. Exactly one goroutine may push and
// exactly one may drain.
type Queue struct {
	buf     []Event
	mask    uint64
	head    atomic.Uint64 // next slot to read
	tail    atomic.Uint64 // next slot to write
	dropped atomic.Uint64
}

// NewQueue returns a queue holding capacity events. capacity must be a power
// of two.
func NewQueue(capacity int) (*Queue, error) {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("midiin: queue capacity must be a power of two >= 2: %d", capacity)
	}

	return &Queue{
		buf:  make([]Event, capacity),
		mask: uint64(capacity - 1),
	}, nil
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return len(q.buf) }

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// Push appends ev. It returns false and counts a drop when the queue is full.
func (q *Queue) Push(ev Event) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() == uint64(len(q.buf)) {
		q.dropped.Add(1)

		return false
	}

	q.buf[tail&q.mask] = ev
	q.tail.Store(tail + 1)

	return true
}

// Drain applies every queued event to t in arrival order and returns how
// many were applied.
func (q *Queue) Drain(t Target) int {
	head := q.head.Load()
	tail := q.tail.Load()

	for i := head; i != tail; i++ {
		q.buf[i&q.mask].Apply(t)
	}

	q.head.Store(tail)

	return int(tail - head)
}

// Dropped returns the number of events rejected because the queue was full.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
