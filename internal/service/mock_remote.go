package service

import (
	"context"
	"fmt"
	"sync"

	"annotator/internal/domain"
)

// MockRemote is a test-friendly domain.RemoteStore that records calls and
// fails on demand.
type MockRemote struct {
	mu       sync.Mutex
	calls    []RemoteCall
	failing  bool
	notFound bool
	nextID   int
	gate     chan struct{}
}

// RemoteCall is one recorded MockRemote call.
type RemoteCall struct {
	Method      string
	ImageID     int
	Point       *domain.Point
	Rect        *domain.Rect
	Cell        *domain.GridCell
	Calibration *domain.CalibrationRequest
	RequestID   string
}

// SetFailing makes every later call fail with ErrNetworkFailure.
func (m *MockRemote) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

// SetNotFound makes removals fail as if the annotation did not exist remotely.
func (m *MockRemote) SetNotFound(notFound bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notFound = notFound
}

// Hold blocks every later call until Release is called.
func (m *MockRemote) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = make(chan struct{})
}

// Release unblocks calls held by Hold.
func (m *MockRemote) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

// Calls returns a copy of the recorded calls.
func (m *MockRemote) Calls() []RemoteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RemoteCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockRemote) record(ctx context.Context, c RemoteCall, removal bool) error {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", domain.ErrNetworkFailure, ctx.Err())
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	if m.failing {
		return fmt.Errorf("%w: %s: connection refused", domain.ErrNetworkFailure, c.Method)
	}
	if removal && m.notFound {
		return fmt.Errorf("%w: %s: %w", domain.ErrNetworkFailure, c.Method, domain.ErrNotFound)
	}
	return nil
}

func (m *MockRemote) AddPoint(ctx context.Context, imageID int, p domain.Point, requestID string) error {
	return m.record(ctx, RemoteCall{Method: "AddPoint", ImageID: imageID, Point: &p, RequestID: requestID}, false)
}

func (m *MockRemote) RemovePoint(ctx context.Context, imageID int, p domain.Point, requestID string) error {
	return m.record(ctx, RemoteCall{Method: "RemovePoint", ImageID: imageID, Point: &p, RequestID: requestID}, true)
}

func (m *MockRemote) AddRect(ctx context.Context, imageID int, r domain.Rect, requestID string) (*int, error) {
	if err := m.record(ctx, RemoteCall{Method: "AddRect", ImageID: imageID, Rect: &r, RequestID: requestID}, false); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	return &id, nil
}

func (m *MockRemote) RemoveRect(ctx context.Context, imageID int, r domain.Rect, requestID string) error {
	return m.record(ctx, RemoteCall{Method: "RemoveRect", ImageID: imageID, Rect: &r, RequestID: requestID}, true)
}

func (m *MockRemote) ToggleGridCell(ctx context.Context, imageID int, cell domain.GridCell) error {
	return m.record(ctx, RemoteCall{Method: "ToggleGridCell", ImageID: imageID, Cell: &cell}, false)
}

func (m *MockRemote) Recalibrate(ctx context.Context, req domain.CalibrationRequest) (string, error) {
	if err := m.record(ctx, RemoteCall{Method: "Recalibrate", ImageID: req.ImageID, Calibration: &req}, false); err != nil {
		return "", err
	}
	return fmt.Sprintf("/edit/%d/", req.ImageID), nil
}

func (m *MockRemote) Close() error { return nil }
