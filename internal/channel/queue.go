package channel

import (
	"sync"

	"NestLink/entity"
)

// PendingQueue holds messages authored while the conversation channel was
// not open. FIFO; each queued message is transmitted exactly once when the
// channel next opens.
type PendingQueue struct {
	mu    sync.Mutex
	items []entity.Message
}

func NewPendingQueue() *PendingQueue {
	return &PendingQueue{}
}

// Push appends a message to the tail of the queue.
func (q *PendingQueue) Push(msg entity.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, msg)
}

// Drain swaps out the queued messages in original order and leaves the
// queue empty.
func (q *PendingQueue) Drain() []entity.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
