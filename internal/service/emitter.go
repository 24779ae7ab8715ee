package service

import (
	"context"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from the presentation layer
// ─────────────────────────────────────────────────────────────

// EventEmitter is an interface for emitting events to whatever front end
// is attached (the MCP server, a log, a UI bridge). Services receive this
// interface, which keeps them independently testable with a mock emitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// Events emitted by the sync layer.
const (
	EventPending   = "sync:pending"   // data: pending queue length
	EventConfirmed = "sync:confirmed" // data: domain.PendingOperation
	EventTotal     = "annotation:total"
	EventError     = "sync:error"
)

// MockEmitter is a test-friendly EventEmitter that records all calls.
// It is safe for concurrent use since sync results arrive on goroutines.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Named returns a copy of the recorded emissions of event.
func (m *MockEmitter) Named(event string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// LogEmitter writes every event through the standard logger.
type LogEmitter struct{}

func (LogEmitter) Emit(_ context.Context, event string, data any) {
	logEvent(event, data)
}
