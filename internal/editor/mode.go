package editor

import (
	"annotator/internal/calibration"
	"annotator/internal/domain"
)

// ModeListener is invoked on every mode change.
type ModeListener func(prev, next domain.Mode)

// ModeController owns the active mode and the transient, uncommitted state
// each mode accumulates: the first rectangle corner with its live preview,
// and the calibration polygon being drawn. It is not safe for concurrent
// use; the Session serializes access.
type ModeController struct {
	mode      domain.Mode
	corner    *domain.Point
	preview   *domain.Rect
	polygons  *calibration.Builder
	listeners []ModeListener
}

// NewModeController starts in point mode.
func NewModeController(polygons *calibration.Builder) *ModeController {
	return &ModeController{mode: domain.ModePoint, polygons: polygons}
}

// AddListener registers a listener for mode changes.
func (m *ModeController) AddListener(l ModeListener) {
	m.listeners = append(m.listeners, l)
}

// Current returns the active mode.
func (m *ModeController) Current() domain.Mode {
	return m.mode
}

// SetMode switches to next. Any pending rectangle corner and preview are
// discarded, and leaving calibration discards the unfinished polygon.
// Committed annotations and completed polygons are kept.
// It reports whether the mode changed.
func (m *ModeController) SetMode(next domain.Mode) bool {
	prev := m.mode
	if prev == next {
		return false
	}
	m.ClearCorner()
	if prev == domain.ModeCalibration {
		m.polygons.Cancel()
	}
	m.mode = next
	for _, l := range m.listeners {
		l(prev, next)
	}
	return true
}

// ── Rectangle corner buffer ────────────────────────────────

// Corner returns the first rectangle corner, if one is placed.
func (m *ModeController) Corner() (domain.Point, bool) {
	if m.corner == nil {
		return domain.Point{}, false
	}
	return *m.corner, true
}

// PlaceCorner stores the first rectangle corner and starts a zero-size preview.
func (m *ModeController) PlaceCorner(p domain.Point) {
	m.corner = &domain.Point{X: p.X, Y: p.Y}
	r := domain.NormalizeRect(p.X, p.Y, p.X, p.Y)
	m.preview = &r
}

// StretchPreview moves the preview's free corner to p.
func (m *ModeController) StretchPreview(p domain.Point) bool {
	if m.corner == nil {
		return false
	}
	r := domain.NormalizeRect(m.corner.X, m.corner.Y, p.X, p.Y)
	m.preview = &r
	return true
}

// ClearCorner empties the corner buffer and the preview.
func (m *ModeController) ClearCorner() {
	m.corner = nil
	m.preview = nil
}

// Preview returns the live rectangle preview, if any.
func (m *ModeController) Preview() *domain.Rect {
	if m.preview == nil {
		return nil
	}
	r := *m.preview
	return &r
}

// Polygons returns the calibration polygon builder.
func (m *ModeController) Polygons() *calibration.Builder {
	return m.polygons
}
