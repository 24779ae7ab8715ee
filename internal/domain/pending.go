package domain

import "time"

// OpKind identifies the remote mutation a PendingOperation replays.
type OpKind string

const (
	OpAddPoint    OpKind = "add_point"
	OpRemovePoint OpKind = "remove_point"
	OpAddRect     OpKind = "add_rect"
	OpRemoveRect  OpKind = "remove_rect"
)

// Valid reports whether k is a known kind.
func (k OpKind) Valid() bool {
	switch k {
	case OpAddPoint, OpRemovePoint, OpAddRect, OpRemoveRect:
		return true
	}
	return false
}

// Delta is the change this kind applies to the image's annotation total
// once the remote store accepts it.
func (k OpKind) Delta() int {
	switch k {
	case OpAddPoint, OpAddRect:
		return 1
	case OpRemovePoint, OpRemoveRect:
		return -1
	}
	return 0
}

// PendingOperation is a remote mutation that has been applied locally but
// not yet acknowledged by the remote store. ID is a correlation id sent with
// every attempt so the remote side can recognise a replay.
type PendingOperation struct {
	ID        string    `json:"id"`
	Kind      OpKind    `json:"kind"`
	ImageID   int       `json:"imageId"`
	Point     *Point    `json:"point,omitempty"`
	Rect      *Rect     `json:"rect,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"lastError,omitempty"`
}

// PendingQueue persists operations awaiting delivery, in FIFO order.
// Implementations must make Enqueue and Remove individually durable.
type PendingQueue interface {
	Enqueue(op *PendingOperation) error
	PeekAll() ([]PendingOperation, error)
	Remove(id string) error
	Drain() ([]PendingOperation, error)
	MarkAttempt(id string, lastErr string) error
	Len() (int, error)
}
