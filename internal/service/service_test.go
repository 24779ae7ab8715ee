package service_test

import (
	"context"
	"testing"
	"time"

	"annotator/internal/domain"
	"annotator/internal/service"
)

// ─────────────────────────────────────────────────────────────
// runningGuard tests
// ─────────────────────────────────────────────────────────────

func TestRunningGuard_TryLock(t *testing.T) {
	var g service.ExportedRunningGuard

	if !g.TryLock("retry-pass") {
		t.Fatal("expected first TryLock to succeed")
	}
	if g.TryLock("retry-pass") {
		t.Fatal("expected second TryLock for the same task to fail")
	}
	if !g.TryLock("hydrate") {
		t.Fatal("expected TryLock for a different task to succeed")
	}
	if !g.Running("hydrate") {
		t.Fatal("expected hydrate to be reported running")
	}
	g.Unlock("retry-pass")
	g.Unlock("hydrate")

	if !g.TryLock("retry-pass") {
		t.Fatal("expected TryLock to succeed after unlock")
	}
	g.Unlock("retry-pass")
}

func TestRunningGuard_WaitAll(t *testing.T) {
	var g service.ExportedRunningGuard

	if !g.TryLock("retry-pass") {
		t.Fatal("expected lock to succeed")
	}

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("retry-pass")
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, service.EventPending, 2)
	m.Emit(ctx, service.EventTotal, 10)
	m.Emit(ctx, service.EventPending, 1)

	if len(m.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(m.Events))
	}
	pending := m.Named(service.EventPending)
	if len(pending) != 2 || pending[1].Data != 1 {
		t.Errorf("expected two pending events ending at 1, got %+v", pending)
	}
}

// ─────────────────────────────────────────────────────────────
// MemoryQueue tests
// ─────────────────────────────────────────────────────────────

func TestMemoryQueue_OrdersByCreation(t *testing.T) {
	q := service.NewMemoryQueue()
	base := time.Now()
	late := domain.PendingOperation{Kind: domain.OpAddPoint, CreatedAt: base.Add(time.Second)}
	early := domain.PendingOperation{Kind: domain.OpRemovePoint, CreatedAt: base}
	q.Enqueue(&late)
	q.Enqueue(&early)
	q.Enqueue(&early) // same id: ignored

	ops, _ := q.PeekAll()
	if len(ops) != 2 || ops[0].ID != early.ID || ops[1].ID != late.ID {
		t.Fatalf("expected [early late], got %+v", ops)
	}

	if err := q.MarkAttempt(late.ID, "offline"); err != nil {
		t.Fatal(err)
	}
	q.Remove(early.ID)
	ops, _ = q.PeekAll()
	if len(ops) != 1 || ops[0].Attempts != 1 {
		t.Fatalf("unexpected queue %+v", ops)
	}
	drained, _ := q.Drain()
	if n, _ := q.Len(); len(drained) != 1 || n != 0 {
		t.Fatal("expected drain to empty the queue")
	}
}

func TestMemoryQueue_RejectsUnknownKind(t *testing.T) {
	if err := service.NewMemoryQueue().Enqueue(&domain.PendingOperation{Kind: "nope"}); err == nil {
		t.Fatal("expected validation error")
	}
}
