package ibftevent

import (
	"context"
	"sync"
	"time"
)

// Queue is an unbounded multi-producer, single-consumer FIFO of events.
type Queue struct {
	mu     sync.Mutex
	events []Event // +checklocks:mu
	notify chan struct{}
}

func NewQueue() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
	}
}

// Add enqueues the event. It never blocks.
func (q *Queue) Add(event Event) {
	q.mu.Lock()
	q.events = append(q.events, event)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Poll returns the oldest event, waiting up to timeout for one to arrive.
// It returns nil if the timeout passes or ctx is done first.
func (q *Queue) Poll(ctx context.Context, timeout time.Duration) Event {
	if event := q.pop(); event != nil {
		return event
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-q.notify:
			if event := q.pop(); event != nil {
				return event
			}
		case <-timer.C:
			return q.pop()
		case <-ctx.Done():
			return nil
		}
	}
}

func (q *Queue) pop() Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return nil
	}
	event := q.events[0]
	q.events[0] = nil
	q.events = q.events[1:]
	return event
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
