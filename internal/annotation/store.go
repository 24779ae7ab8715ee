// Package annotation holds the in-memory points and rectangles for the open
// image. It is the single source of truth the overlays are drawn from.
package annotation

import (
	"math"

	"annotator/internal/domain"
)

// DefaultPointTolerance is the image-pixel radius used to pick a point for removal.
const DefaultPointTolerance = 10

// Store keeps points and rects in insertion order. It is not safe for
// concurrent use; the editor session serializes access.
type Store struct {
	points []domain.Point
	rects  []*domain.Rect
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// ── Points ─────────────────────────────────────────────────

// AddPoint appends a point and returns it.
func (s *Store) AddPoint(x, y int) domain.Point {
	p := domain.Point{X: x, Y: y}
	s.points = append(s.points, p)
	return p
}

// RemoveNearestPoint removes the most recently added point within tolerance
// of (x, y), scanning newest first. It returns nil when nothing matches.
func (s *Store) RemoveNearestPoint(x, y int, tolerance float64) *domain.Point {
	for i := len(s.points) - 1; i >= 0; i-- {
		p := s.points[i]
		if math.Hypot(float64(p.X-x), float64(p.Y-y)) <= tolerance {
			s.points = append(s.points[:i], s.points[i+1:]...)
			return &p
		}
	}
	return nil
}

// MarkPoint sets the unconfirmed marker on the newest point at (x, y).
// It returns false when no such point is stored.
func (s *Store) MarkPoint(x, y int, unconfirmed bool) bool {
	for i := len(s.points) - 1; i >= 0; i-- {
		if s.points[i].X == x && s.points[i].Y == y {
			s.points[i].Unconfirmed = unconfirmed
			return true
		}
	}
	return false
}

// Points returns a copy of the stored points in insertion order.
func (s *Store) Points() []domain.Point {
	out := make([]domain.Point, len(s.points))
	copy(out, s.points)
	return out
}

// PointCount returns the number of stored points.
func (s *Store) PointCount() int {
	return len(s.points)
}

// LoadPoints replaces every stored point. It never triggers remote mutations.
func (s *Store) LoadPoints(points []domain.Point) {
	s.points = make([]domain.Point, 0, len(points))
	for _, p := range points {
		s.points = append(s.points, domain.Point{X: p.X, Y: p.Y})
	}
}

// ── Rects ──────────────────────────────────────────────────

// AddRect normalizes the two corners into a rect, appends it and returns
// the stored entry. The pointer stays valid as the rect's identity.
func (s *Store) AddRect(c1, c2 domain.Point) *domain.Rect {
	r := domain.NormalizeRect(c1.X, c1.Y, c2.X, c2.Y)
	s.rects = append(s.rects, &r)
	return &r
}

// FindRectAt returns the most recently added rect containing (x, y),
// borders inclusive, or nil.
func (s *Store) FindRectAt(x, y int) *domain.Rect {
	for i := len(s.rects) - 1; i >= 0; i-- {
		if s.rects[i].Contains(x, y) {
			return s.rects[i]
		}
	}
	return nil
}

// RemoveRect removes r by identity and reports whether it was stored.
// Identity is the server id when r carries one, otherwise the stored entry.
func (s *Store) RemoveRect(r *domain.Rect) bool {
	if r == nil {
		return false
	}
	for i, cur := range s.rects {
		if cur == r || (r.ID != nil && cur.ID != nil && *cur.ID == *r.ID) {
			s.rects = append(s.rects[:i], s.rects[i+1:]...)
			return true
		}
	}
	return false
}

// SetRectID records the server id for the newest unidentified rect with
// the given geometry. It returns false when no such rect is stored.
func (s *Store) SetRectID(geom domain.Rect, id int) bool {
	for i := len(s.rects) - 1; i >= 0; i-- {
		r := s.rects[i]
		if r.ID == nil && sameGeometry(*r, geom) {
			r.ID = &id
			return true
		}
	}
	return false
}

// MarkRect sets the unconfirmed marker on the newest rect with the given geometry.
func (s *Store) MarkRect(geom domain.Rect, unconfirmed bool) bool {
	for i := len(s.rects) - 1; i >= 0; i-- {
		if sameGeometry(*s.rects[i], geom) {
			s.rects[i].Unconfirmed = unconfirmed
			return true
		}
	}
	return false
}

// Rects returns copies of the stored rects in insertion order.
func (s *Store) Rects() []domain.Rect {
	out := make([]domain.Rect, len(s.rects))
	for i, r := range s.rects {
		out[i] = *r
	}
	return out
}

// RectCount returns the number of stored rects.
func (s *Store) RectCount() int {
	return len(s.rects)
}

// LoadRects replaces every stored rect, normalizing each one.
func (s *Store) LoadRects(rects []domain.Rect) {
	s.rects = make([]*domain.Rect, 0, len(rects))
	for _, in := range rects {
		r := domain.NormalizeRect(in.X, in.Y, in.X+in.Width, in.Y+in.Height)
		r.ID = in.ID
		s.rects = append(s.rects, &r)
	}
}

// Clear drops every point and rect.
func (s *Store) Clear() {
	s.points = nil
	s.rects = nil
}

func sameGeometry(a, b domain.Rect) bool {
	return a.X == b.X && a.Y == b.Y && a.Width == b.Width && a.Height == b.Height
}

// FindRect returns the newest stored rect with the given geometry, or nil.
func (s *Store) FindRect(geom domain.Rect) *domain.Rect {
	for i := len(s.rects) - 1; i >= 0; i-- {
		if sameGeometry(*s.rects[i], geom) {
			return s.rects[i]
		}
	}
	return nil
}
