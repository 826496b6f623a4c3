// internal/bus/queue.go
package bus

import (
	"context"

	"github.com/tamzrod/mcstatus-relay/internal/notify"
)

// Queue is the bounded inbound side: many senders, one consumer (the relay).
type Queue struct {
	ch chan notify.PingRequest
}

// NewQueue creates a queue holding at most size pending requests.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{ch: make(chan notify.PingRequest, size)}
}

// Submit blocks until the request is queued or ctx is done.
func (q *Queue) Submit(ctx context.Context, req notify.PingRequest) error {
	select {
	case q.ch <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit queues the request only if there is room.
func (q *Queue) TrySubmit(req notify.PingRequest) bool {
	select {
	case q.ch <- req:
		return true
	default:
		return false
	}
}

// Requests is the consumer end.
func (q *Queue) Requests() <-chan notify.PingRequest {
	return q.ch
}

// Len returns the number of pending requests.
func (q *Queue) Len() int {
	return len(q.ch)
}
