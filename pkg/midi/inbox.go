package midi

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
)

// DefaultInboxSize is the capacity used by the engine for live input
const DefaultInboxSize = 1024

// Inbox carries events from control goroutines (HTTP handlers, device
// readers) to the render context.
//
// It is a single-consumer ring with atomic indices. Producers take a mutex
// among themselves; the consumer never locks and never allocates.
type Inbox struct {
	mu   sync.Mutex
	buf  []Event
	mask uint64

	head    atomic.Uint64 // next slot to read
	tail    atomic.Uint64 // next slot to write
	dropped atomic.Uint64
}

// NewInbox creates an inbox holding at least capacity events
func NewInbox(capacity int) *Inbox {
	size := 16
	for size < capacity {
		size <<= 1
	}
	return &Inbox{
		buf:  make([]Event, size),
		mask: uint64(size - 1),
	}
}

// Push enqueues an event. It returns false and counts a drop when the inbox
// is full.
func (q *Inbox) Push(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	tail := q.tail.Load()
	if tail-q.head.Load() >= uint64(len(q.buf)) {
		q.dropped.Add(1)
		return false
	}
	q.buf[tail&q.mask] = e
	q.tail.Store(tail + 1)
	return true
}

// Drain appends pending events to dst without growing it past its capacity
// and returns the extended slice. Events that do not fit stay queued.
func (q *Inbox) Drain(dst []Event) []Event {
	head := q.head.Load()
	tail := q.tail.Load()

	for head != tail && len(dst) < cap(dst) {
		dst = append(dst, q.buf[head&q.mask])
		head++
	}
	q.head.Store(head)
	return dst
}

// Len returns the number of queued events
func (q *Inbox) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// Cap returns the inbox capacity
func (q *Inbox) Cap() int {
	return len(q.buf)
}

// Dropped returns how many events were rejected because the inbox was full
func (q *Inbox) Dropped() uint64 {
	return q.dropped.Load()
}

// SortByOffset orders events by sample offset, keeping arrival order for
// equal offsets. It does not allocate.
func SortByOffset(events []Event) {
	slices.SortStableFunc(events, compareOffset)
}

func compareOffset(a, b Event) int {
	return cmp.Compare(a.Offset, b.Offset)
}
