// Package planner holds the motion queue: a bounded ring buffer of
// planned straight-line moves waiting for execution. Producers check
// Available before appending so arc generation can yield instead of
// blocking when the queue fills.
package planner

import (
	"sync"

	"tinyg-go-migration/pkg/errors"
)

// Move is a planned straight-line move. Target is in absolute machine
// coordinates (mm); MoveTime is the planned duration in minutes.
type Move struct {
	Target   [3]float64
	MoveTime float64
	FeedRate float64
}

// Queue is a fixed-capacity ring buffer of moves. It is safe for a
// single producer and a single consumer on separate goroutines.
type Queue struct {
	mu    sync.Mutex
	buf   []Move
	head  int // next slot to read
	tail  int // next slot to write
	count int
}

// NewQueue creates a queue holding at most capacity moves.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{buf: make([]Move, capacity)}
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return len(q.buf)
}

// Len returns the number of queued moves.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Available returns the number of free slots.
func (q *Queue) Available() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) - q.count
}

// Append queues a move. It returns a runtime queue error when full;
// callers are expected to have checked Available first.
func (q *Queue) Append(m Move) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == len(q.buf) {
		return errors.RuntimeQueueError("append", "motion queue full")
	}
	q.buf[q.tail] = m
	q.tail = (q.tail + 1) % len(q.buf)
	q.count++
	return nil
}

// Next removes and returns the oldest queued move. The second return
// is false when the queue is empty.
func (q *Queue) Next() (Move, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return Move{}, false
	}
	m := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return m, true
}

// Flush discards all queued moves (feedhold abort path).
func (q *Queue) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.head, q.tail, q.count = 0, 0, 0
}
