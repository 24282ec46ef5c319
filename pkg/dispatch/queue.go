// Package dispatch runs a protocol session: the receiver and keep-alive
// producers, the single ordered work queue, and the main loop that consumes
// it.
package dispatch

import (
	"context"
	"errors"
	"sync"

	"smartclient/pkg/markup"
)

// ErrQueueClosed is returned by Put and Take once the queue is closed.
var ErrQueueClosed = errors.New("work queue is closed")

// Kind tags a work item.
type Kind int

const (
	KindIncoming Kind = iota
	KindOutgoing
	KindEditorAction
	KindTerminate
)

var kindNames = [...]string{"incoming", "outgoing", "editor_action", "terminate"}

// String returns the kind name
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// WorkItem is one unit of work for the main loop. Command is set for
// incoming and outgoing items and is never modified after Put.
type WorkItem struct {
	Kind    Kind
	Command *markup.Element
}

// Queue is an unbounded FIFO with any number of producers and a single
// consumer.
type Queue struct {
	mu     sync.Mutex
	items  []WorkItem
	ready  chan struct{}
	closed bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Put appends an item. It never blocks.
func (q *Queue) Put(item WorkItem) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.signal()
	return nil
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Take removes the oldest item, blocking until one is available, the queue
// is closed and drained, or ctx is done.
func (q *Queue) Take(ctx context.Context) (WorkItem, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = WorkItem{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return WorkItem{}, ErrQueueClosed
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			return WorkItem{}, ctx.Err()
		}
	}
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further Puts. Items already queued can still be taken.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}
