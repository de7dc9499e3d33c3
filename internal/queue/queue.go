// Package queue provides the bounded FIFO admission queue that hands
// submitted job identifiers to the worker loop. The queue is the only
// backpressure point in the system: Offer fails fast at capacity instead
// of blocking the submitting caller.
package queue

// DefaultCapacity is the backlog size used when none is configured.
const DefaultCapacity = 100

// Queue is a fixed-capacity FIFO of job identifiers. It is safe for
// concurrent producers and consumers.
type Queue struct {
	ch chan string
}

// New creates a queue with the given capacity. Non-positive capacities
// fall back to DefaultCapacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{ch: make(chan string, capacity)}
}

// Offer attempts to enqueue an identifier without blocking. It returns
// false when the queue is at capacity.
func (q *Queue) Offer(id string) bool {
	select {
	case q.ch <- id:
		return true
	default:
		return false
	}
}

// Take blocks until an identifier is available or done is closed. The
// second return value is false when the wait was aborted by done.
func (q *Queue) Take(done <-chan struct{}) (string, bool) {
	select {
	case id := <-q.ch:
		return id, true
	case <-done:
		return "", false
	}
}

// Cap returns the configured capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// Depth returns the number of identifiers currently waiting.
func (q *Queue) Depth() int {
	return len(q.ch)
}
