package service

import (
	"fmt"
	"sync"
	"time"

	"annotator/internal/domain"

	"github.com/google/uuid"
)

// MemoryQueue is a domain.PendingQueue kept in process memory. It is used
// when no local database is configured, and in tests.
type MemoryQueue struct {
	mu  sync.Mutex
	ops []domain.PendingOperation
}

// NewMemoryQueue creates an empty MemoryQueue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Enqueue(op *domain.PendingOperation) error {
	if !op.Kind.Valid() {
		return fmt.Errorf("%w: unknown op kind %q", domain.ErrValidation, op.Kind)
	}
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, cur := range q.ops {
		if cur.ID == op.ID {
			return nil
		}
	}
	// Insert after every op created no later than op, keeping FIFO by creation.
	i := len(q.ops)
	for i > 0 && q.ops[i-1].CreatedAt.After(op.CreatedAt) {
		i--
	}
	q.ops = append(q.ops, domain.PendingOperation{})
	copy(q.ops[i+1:], q.ops[i:])
	q.ops[i] = *op
	return nil
}

func (q *MemoryQueue) PeekAll() ([]domain.PendingOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.PendingOperation, len(q.ops))
	copy(out, q.ops)
	return out, nil
}

func (q *MemoryQueue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, op := range q.ops {
		if op.ID == id {
			q.ops = append(q.ops[:i], q.ops[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *MemoryQueue) Drain() ([]domain.PendingOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.ops
	q.ops = nil
	return out, nil
}

func (q *MemoryQueue) MarkAttempt(id, lastErr string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.ops {
		if q.ops[i].ID == id {
			q.ops[i].Attempts++
			q.ops[i].LastError = lastErr
			return nil
		}
	}
	return fmt.Errorf("pending op not found: %s", id)
}

func (q *MemoryQueue) Len() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops), nil
}
