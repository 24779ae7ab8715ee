package calibration

import "annotator/internal/domain"

// DefaultCloseThreshold is the screen-pixel distance from the first vertex
// within which a click closes the polygon being drawn.
const DefaultCloseThreshold = 10.0

// DistanceFunc measures the distance between two image points in screen
// pixels at the current zoom.
type DistanceFunc func(a, b domain.Point) float64

// Builder tracks the polygon being drawn and the completed polygons.
// It is not safe for concurrent use.
type Builder struct {
	current   domain.Polygon
	completed []domain.Polygon
	preview   *domain.Point

	threshold float64
	distance  DistanceFunc
}

// NewBuilder creates a Builder that closes polygons when a click lands
// within threshold screen pixels of the first vertex.
func NewBuilder(distance DistanceFunc, threshold float64) *Builder {
	if threshold <= 0 {
		threshold = DefaultCloseThreshold
	}
	return &Builder{distance: distance, threshold: threshold}
}

// SetThreshold changes the close threshold.
func (b *Builder) SetThreshold(threshold float64) {
	if threshold > 0 {
		b.threshold = threshold
	}
}

// Click handles an add gesture at p: it closes the current polygon when p
// is near its first vertex and it has at least three vertices, otherwise it
// appends p as a new vertex. It reports whether a polygon was closed.
func (b *Builder) Click(p domain.Point) bool {
	if b.TryClose(p) {
		return true
	}
	b.AddVertex(p)
	return false
}

// TryClose closes the current polygon if p is within the threshold of its
// first vertex and it has at least three vertices.
func (b *Builder) TryClose(p domain.Point) bool {
	if len(b.current) < 3 {
		return false
	}
	if b.distance(b.current[0], p) > b.threshold {
		return false
	}
	b.finish()
	return true
}

func (b *Builder) finish() {
	closed := make(domain.Polygon, 0, len(b.current)+1)
	closed = append(closed, b.current...)
	closed = append(closed, b.current[0])
	b.completed = append(b.completed, closed)
	b.current = nil
	b.preview = nil
}

// AddVertex appends p to the current polygon.
func (b *Builder) AddVertex(p domain.Point) {
	b.current = append(b.current, domain.Point{X: p.X, Y: p.Y})
}

// UndoVertex removes the last vertex of the current polygon.
// It reports false when there is nothing to undo.
func (b *Builder) UndoVertex() bool {
	if len(b.current) == 0 {
		return false
	}
	b.current = b.current[:len(b.current)-1]
	if len(b.current) == 0 {
		b.preview = nil
	}
	return true
}

// Cancel discards the current polygon and the preview.
func (b *Builder) Cancel() {
	b.current = nil
	b.preview = nil
}

// RemoveLast erases the most recently completed polygon.
func (b *Builder) RemoveLast() bool {
	if len(b.completed) == 0 {
		return false
	}
	b.completed = b.completed[:len(b.completed)-1]
	return true
}

// SetPreview moves the rubber-band endpoint. It is ignored while no polygon
// is being drawn.
func (b *Builder) SetPreview(p domain.Point) {
	if len(b.current) == 0 {
		return
	}
	b.preview = &domain.Point{X: p.X, Y: p.Y}
}

// Preview returns the rubber-band segment from the last vertex to the
// pointer, if any.
func (b *Builder) Preview() (from, to domain.Point, ok bool) {
	if b.preview == nil || len(b.current) == 0 {
		return domain.Point{}, domain.Point{}, false
	}
	return b.current[len(b.current)-1], *b.preview, true
}

// Current returns a copy of the vertices drawn so far.
func (b *Builder) Current() domain.Polygon {
	out := make(domain.Polygon, len(b.current))
	copy(out, b.current)
	return out
}

// Completed returns copies of the completed polygons.
func (b *Builder) Completed() []domain.Polygon {
	out := make([]domain.Polygon, len(b.completed))
	for i, p := range b.completed {
		out[i] = append(domain.Polygon(nil), p...)
	}
	return out
}

// LoadCompleted replaces the completed polygons, closing any open ring.
func (b *Builder) LoadCompleted(polygons []domain.Polygon) {
	b.completed = nil
	for _, p := range polygons {
		if len(p) < 3 {
			continue
		}
		ring := append(domain.Polygon(nil), p...)
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}
		b.completed = append(b.completed, ring)
	}
}

// CanSubmit reports whether enough polygons are completed to submit.
func (b *Builder) CanSubmit() bool {
	return len(b.completed) >= MinPolygons
}

// AverageArea averages the completed polygons.
func (b *Builder) AverageArea() (float64, error) {
	return AverageArea(b.completed)
}

// Reset drops everything, completed polygons included.
func (b *Builder) Reset() {
	b.current = nil
	b.completed = nil
	b.preview = nil
}
