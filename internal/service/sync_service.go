package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"annotator/internal/domain"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// ─────────────────────────────────────────────────────────────
// Sync Service: optimistic delivery plus a persisted retry queue
// ─────────────────────────────────────────────────────────────

// DefaultRetryInterval is how often queued operations are retried.
const DefaultRetryInterval = 5 * time.Second

const retryPassJob = "retry-pass"

// ErrRetryInProgress is returned by RetryPass when a pass is already running.
var ErrRetryInProgress = errors.New("retry pass already running")

// SyncListener is told about the fate of each submitted operation.
// Callbacks arrive on background goroutines.
type SyncListener interface {
	// OnConfirmed runs once the remote store accepted op. rectID is the
	// server id for an accepted AddRect, when the backend reported one.
	OnConfirmed(op domain.PendingOperation, rectID *int)
	// OnQueued runs when op failed and was persisted for retry.
	OnQueued(op domain.PendingOperation)
}

// RetryResult summarizes one retry pass.
type RetryResult struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

// SyncService sends local mutations to the remote store. A failed send is
// persisted in the pending queue and replayed by a periodic retry pass; the
// local state is never rolled back.
type SyncService struct {
	remote  domain.RemoteStore
	queue   domain.PendingQueue
	emitter EventEmitter
	timeout time.Duration

	guard    runningGuard
	inflight sync.WaitGroup

	mu       sync.Mutex
	listener SyncListener
	total    int

	cronSched *cron.Cron
}

// NewSyncService creates a SyncService. timeout bounds each remote call.
func NewSyncService(remote domain.RemoteStore, queue domain.PendingQueue, emitter EventEmitter, timeout time.Duration) *SyncService {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SyncService{
		remote:  remote,
		queue:   queue,
		emitter: emitter,
		timeout: timeout,
	}
}

// SetListener registers the receiver of delivery outcomes.
func (s *SyncService) SetListener(l SyncListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

func (s *SyncService) currentListener() SyncListener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener
}

// SetTotal seeds the running annotation total, usually from hydration.
func (s *SyncService) SetTotal(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = n
}

// Total returns the running annotation total as confirmed by the remote store.
func (s *SyncService) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// NewOperation builds a PendingOperation with a fresh correlation id.
func NewOperation(kind domain.OpKind, imageID int) domain.PendingOperation {
	return domain.PendingOperation{
		ID:        uuid.New().String(),
		Kind:      kind,
		ImageID:   imageID,
		CreatedAt: time.Now(),
	}
}

// ── Submit ─────────────────────────────────────────────────

// Submit sends op to the remote store in the background and returns
// immediately. The caller has already applied op locally.
func (s *SyncService) Submit(ctx context.Context, op domain.PendingOperation) {
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now()
	}
	// The send outlives the caller's request.
	bg := context.WithoutCancel(ctx)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		rectID, err := s.send(bg, op)
		if err == nil || removalAlreadyApplied(op, err) {
			s.confirm(bg, op, rectID, err == nil)
			return
		}
		s.park(bg, op, err)
	}()
}

// park persists a failed op for the retry pass.
func (s *SyncService) park(ctx context.Context, op domain.PendingOperation, cause error) {
	log.Printf("sync: %s %s failed, queued for retry: %v", op.Kind, op.ID, cause)
	op.LastError = cause.Error()
	if err := s.queue.Enqueue(&op); err != nil {
		// The op now only exists in local state; surface it loudly.
		log.Printf("sync: could not persist %s %s: %v", op.Kind, op.ID, err)
		s.emitter.Emit(ctx, EventError, fmt.Sprintf("could not persist %s: %v", op.Kind, err))
		return
	}
	if l := s.currentListener(); l != nil {
		l.OnQueued(op)
	}
	s.emitPending(ctx)
}

func (s *SyncService) confirm(ctx context.Context, op domain.PendingOperation, rectID *int, applied bool) {
	if applied {
		s.mu.Lock()
		s.total += op.Kind.Delta()
		total := s.total
		s.mu.Unlock()
		s.emitter.Emit(ctx, EventTotal, total)
	}
	if l := s.currentListener(); l != nil {
		l.OnConfirmed(op, rectID)
	}
	s.emitter.Emit(ctx, EventConfirmed, op)
}

// send performs the remote call for op.
func (s *SyncService) send(ctx context.Context, op domain.PendingOperation) (*int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	switch op.Kind {
	case domain.OpAddPoint, domain.OpRemovePoint:
		if op.Point == nil {
			return nil, fmt.Errorf("%w: %s without point", domain.ErrValidation, op.Kind)
		}
		if op.Kind == domain.OpAddPoint {
			return nil, s.remote.AddPoint(ctx, op.ImageID, *op.Point, op.ID)
		}
		return nil, s.remote.RemovePoint(ctx, op.ImageID, *op.Point, op.ID)
	case domain.OpAddRect:
		if op.Rect == nil {
			return nil, fmt.Errorf("%w: %s without rect", domain.ErrValidation, op.Kind)
		}
		return s.remote.AddRect(ctx, op.ImageID, *op.Rect, op.ID)
	case domain.OpRemoveRect:
		if op.Rect == nil {
			return nil, fmt.Errorf("%w: %s without rect", domain.ErrValidation, op.Kind)
		}
		return nil, s.remote.RemoveRect(ctx, op.ImageID, *op.Rect, op.ID)
	default:
		return nil, fmt.Errorf("%w: unknown op kind %q", domain.ErrValidation, op.Kind)
	}
}

// removalAlreadyApplied reports whether a removal failed only because the
// remote store no longer has the annotation, which is the desired end state.
func removalAlreadyApplied(op domain.PendingOperation, err error) bool {
	return (op.Kind == domain.OpRemovePoint || op.Kind == domain.OpRemoveRect) &&
		errors.Is(err, domain.ErrNotFound)
}

// ── Retry ──────────────────────────────────────────────────

// RetryPass attempts every queued operation once, oldest first. Delivered
// operations leave the queue; failures stay with their attempt count bumped.
// Only one pass runs at a time; an overlapping call returns ErrRetryInProgress.
func (s *SyncService) RetryPass(ctx context.Context) (*RetryResult, error) {
	if !s.guard.TryLock(retryPassJob) {
		return nil, ErrRetryInProgress
	}
	defer s.guard.Unlock(retryPassJob)

	ops, err := s.queue.PeekAll()
	if err != nil {
		return nil, fmt.Errorf("load pending ops: %w", err)
	}

	res := &RetryResult{}
	for _, op := range ops {
		if ctx.Err() != nil {
			break
		}
		res.Attempted++
		rectID, err := s.send(ctx, op)
		if err != nil && !removalAlreadyApplied(op, err) {
			res.Failed++
			if merr := s.queue.MarkAttempt(op.ID, err.Error()); merr != nil {
				log.Printf("sync: record attempt for %s: %v", op.ID, merr)
			}
			continue
		}
		if rerr := s.queue.Remove(op.ID); rerr != nil {
			// Leave it queued; a replay is safer than losing it.
			log.Printf("sync: dequeue %s: %v", op.ID, rerr)
			continue
		}
		res.Delivered++
		s.confirm(ctx, op, rectID, err == nil)
	}

	res.Remaining, _ = s.queue.Len()
	if res.Attempted > 0 {
		log.Printf("sync: retry pass delivered %d/%d, %d remaining", res.Delivered, res.Attempted, res.Remaining)
		s.emitPending(ctx)
	}
	return res, nil
}

// Retrying reports whether a retry pass is running.
func (s *SyncService) Retrying() bool {
	return s.guard.Running(retryPassJob)
}

// Start schedules RetryPass every interval until Stop.
func (s *SyncService) Start(interval time.Duration) error {
	s.Stop()
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if _, err := s.RetryPass(context.Background()); err != nil && !errors.Is(err, ErrRetryInProgress) {
			log.Printf("sync cron: retry pass failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule retry pass: %w", err)
	}
	c.Start()
	s.mu.Lock()
	s.cronSched = c
	s.mu.Unlock()
	log.Printf("sync cron: retrying pending ops every %s", interval)
	return nil
}

// Stop halts the retry schedule. In-flight sends are not cancelled.
func (s *SyncService) Stop() {
	s.mu.Lock()
	c := s.cronSched
	s.cronSched = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Wait blocks until in-flight sends and any running retry pass finish, or
// ctx is cancelled. Used for graceful shutdown.
func (s *SyncService) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return
	}
	s.guard.WaitAll(ctx)
}

// ── Queue inspection ───────────────────────────────────────

// PendingCount returns the number of operations awaiting delivery.
func (s *SyncService) PendingCount() int {
	n, err := s.queue.Len()
	if err != nil {
		log.Printf("sync: count pending ops: %v", err)
		return 0
	}
	return n
}

// Pending returns the queued operations, oldest first.
func (s *SyncService) Pending() ([]domain.PendingOperation, error) {
	return s.queue.PeekAll()
}

// Discard drops every queued operation and returns what was dropped.
func (s *SyncService) Discard(ctx context.Context) ([]domain.PendingOperation, error) {
	ops, err := s.queue.Drain()
	if err != nil {
		return nil, err
	}
	log.Printf("sync: discarded %d pending op(s)", len(ops))
	s.emitPending(ctx)
	return ops, nil
}

func (s *SyncService) emitPending(ctx context.Context) {
	s.emitter.Emit(ctx, EventPending, s.PendingCount())
}

// ── Passthrough calls ──────────────────────────────────────

// ToggleGridCell sends a grid toggle in the background. Toggles are not
// queued: replaying one after a partial failure could flip the cell back.
func (s *SyncService) ToggleGridCell(ctx context.Context, imageID int, cell domain.GridCell) {
	bg := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(bg, s.timeout)
		defer cancel()
		if err := s.remote.ToggleGridCell(ctx, imageID, cell); err != nil {
			log.Printf("sync: grid toggle %d,%d failed: %v", cell.Col, cell.Row, err)
			s.emitter.Emit(bg, EventError, fmt.Sprintf("grid toggle failed: %v", err))
		}
	}()
}

// Recalibrate submits a calibration synchronously and returns the redirect.
func (s *SyncService) Recalibrate(ctx context.Context, req domain.CalibrationRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.remote.Recalibrate(ctx, req)
}

func logEvent(event string, data any) {
	log.Printf("event %s: %v", event, data)
}
