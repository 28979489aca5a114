package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is an in-process Queue for tests and single-node runs.
// Semantics match the durable backends: leased messages reappear after
// the visibility timeout unless deleted.
type MemoryQueue struct {
	mu    sync.Mutex
	items []*memItem
	// now is swappable so tests can advance time without sleeping.
	now func() time.Time
}

type memItem struct {
	jobID     string
	receipt   string
	visibleAt time.Time
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{now: time.Now}
}

// SetClock replaces the time source. Test hook.
func (q *MemoryQueue) SetClock(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

func (q *MemoryQueue) Enqueue(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, &memItem{jobID: jobID, visibleAt: q.now()})
	return nil
}

func (q *MemoryQueue) Receive(ctx context.Context, visibility time.Duration) (*Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	for _, it := range q.items {
		if it.visibleAt.After(now) {
			continue
		}
		it.receipt = uuid.NewString()
		it.visibleAt = now.Add(visibility)
		return &Message{JobID: it.jobID, Receipt: it.receipt}, nil
	}
	return nil, ErrNoMessage
}

func (q *MemoryQueue) Delete(ctx context.Context, msg *Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, it := range q.items {
		if it.receipt == msg.Receipt {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return nil
		}
	}
	// Outdated receipt: the lease lapsed and someone else owns the
	// message now. Deleting nothing is the correct outcome.
	return nil
}

// Len returns the number of messages, leased or not. Test helper.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
