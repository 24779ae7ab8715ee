package domain

import "errors"

var (
	// ErrNotReady is returned when the viewer has no image loaded or no
	// pointer position is known yet. Callers treat it as a silent no-op.
	ErrNotReady = errors.New("viewer not ready")

	// ErrNetworkFailure wraps transport errors and non-success responses
	// from the remote store.
	ErrNetworkFailure = errors.New("remote store unavailable")

	// ErrValidation is returned when an operation's preconditions fail.
	ErrValidation = errors.New("validation failed")

	// ErrNoPolygons is returned when averaging an empty polygon set.
	ErrNoPolygons = errors.New("no completed polygons")

	// ErrNotFound is returned when a remote annotation does not exist.
	ErrNotFound = errors.New("not found")
)
