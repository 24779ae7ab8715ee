package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"annotator/internal/domain"

	"github.com/google/uuid"
)

// PendingStore implements domain.PendingQueue on SQLite so queued
// operations survive restarts.
type PendingStore struct {
	db *DB
}

// NewPendingStore creates a new PendingStore.
func NewPendingStore(db *DB) *PendingStore {
	return &PendingStore{db: db}
}

type pendingPayload struct {
	Point *domain.Point `json:"point,omitempty"`
	Rect  *domain.Rect  `json:"rect,omitempty"`
}

// Enqueue persists op. A missing ID or CreatedAt is filled in.
func (s *PendingStore) Enqueue(op *domain.PendingOperation) error {
	if !op.Kind.Valid() {
		return fmt.Errorf("%w: unknown op kind %q", domain.ErrValidation, op.Kind)
	}
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(pendingPayload{Point: op.Point, Rect: op.Rect})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = s.db.conn.Exec(
		`INSERT INTO pending_ops (id, kind, image_id, payload_json, created_ns, attempts, last_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		op.ID, op.Kind, op.ImageID, string(payload), op.CreatedAt.UnixNano(), op.Attempts, op.LastError,
	)
	if err != nil {
		return fmt.Errorf("enqueue pending op: %w", err)
	}
	return nil
}

// PeekAll returns every queued operation in FIFO order without removing any.
func (s *PendingStore) PeekAll() ([]domain.PendingOperation, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, kind, image_id, payload_json, created_ns, attempts, last_error
		 FROM pending_ops ORDER BY created_ns, seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending ops: %w", err)
	}
	defer rows.Close()

	var ops []domain.PendingOperation
	for rows.Next() {
		var op domain.PendingOperation
		var payload string
		var createdNs int64
		if err := rows.Scan(&op.ID, &op.Kind, &op.ImageID, &payload, &createdNs, &op.Attempts, &op.LastError); err != nil {
			return nil, err
		}
		op.CreatedAt = time.Unix(0, createdNs)
		var p pendingPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("decode payload for %s: %w", op.ID, err)
		}
		op.Point, op.Rect = p.Point, p.Rect
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// Remove deletes the operation with the given id. Removing an unknown id is not an error.
func (s *PendingStore) Remove(id string) error {
	_, err := s.db.conn.Exec(`DELETE FROM pending_ops WHERE id = ?`, id)
	return err
}

// Drain returns every queued operation and empties the queue atomically.
func (s *PendingStore) Drain() ([]domain.PendingOperation, error) {
	ops, err := s.PeekAll()
	if err != nil {
		return nil, err
	}
	tx, err := s.db.conn.Begin()
	if err != nil {
		return nil, err
	}
	for _, op := range ops {
		if _, err := tx.Exec(`DELETE FROM pending_ops WHERE id = ?`, op.ID); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("drain pending op %s: %w", op.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ops, nil
}

// MarkAttempt records a failed delivery attempt.
func (s *PendingStore) MarkAttempt(id, lastErr string) error {
	res, err := s.db.conn.Exec(
		`UPDATE pending_ops SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		lastErr, id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Len returns the number of queued operations.
func (s *PendingStore) Len() (int, error) {
	var n int
	err := s.db.conn.QueryRow(`SELECT COUNT(*) FROM pending_ops`).Scan(&n)
	return n, err
}
