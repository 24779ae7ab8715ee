package calibration_test

import (
	"errors"
	"math"
	"testing"

	"annotator/internal/calibration"
	"annotator/internal/domain"
)

func euclid(a, b domain.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

func square(x, y, side int) domain.Polygon {
	return domain.Polygon{{X: x, Y: y}, {X: x + side, Y: y}, {X: x + side, Y: y + side}, {X: x, Y: y + side}}
}

// ─────────────────────────────────────────────────────────────
// Area
// ─────────────────────────────────────────────────────────────

func TestPolygonArea_Square(t *testing.T) {
	if got := calibration.PolygonArea(square(0, 0, 10)); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
}

func TestPolygonArea_ClosedMatchesOpen(t *testing.T) {
	open := square(3, 4, 7)
	closed := append(append(domain.Polygon(nil), open...), open[0])
	if calibration.PolygonArea(open) != calibration.PolygonArea(closed) {
		t.Fatal("expected explicit closure not to change the area")
	}
}

func TestPolygonArea_OrientationIndependent(t *testing.T) {
	cw := domain.Polygon{{X: 0, Y: 0}, {X: 0, Y: 4}, {X: 3, Y: 0}}
	ccw := domain.Polygon{{X: 0, Y: 0}, {X: 3, Y: 0}, {X: 0, Y: 4}}
	if calibration.PolygonArea(cw) != 6 || calibration.PolygonArea(ccw) != 6 {
		t.Fatalf("expected 6 for both windings, got %v and %v",
			calibration.PolygonArea(cw), calibration.PolygonArea(ccw))
	}
}

func TestPolygonArea_Degenerate(t *testing.T) {
	if got := calibration.PolygonArea(domain.Polygon{{X: 1, Y: 1}, {X: 2, Y: 2}}); got != 0 {
		t.Fatalf("expected 0 for two vertices, got %v", got)
	}
	line := domain.Polygon{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 10}}
	if got := calibration.PolygonArea(line); got != 0 {
		t.Fatalf("expected 0 for collinear vertices, got %v", got)
	}
}

func TestAverageArea(t *testing.T) {
	avg, err := calibration.AverageArea([]domain.Polygon{square(0, 0, 10), square(0, 0, 20), square(5, 5, 30)})
	if err != nil {
		t.Fatal(err)
	}
	want := (100.0 + 400 + 900) / 3
	if math.Abs(avg-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, avg)
	}
}

func TestAverageArea_Empty(t *testing.T) {
	if _, err := calibration.AverageArea(nil); !errors.Is(err, domain.ErrNoPolygons) {
		t.Fatalf("expected ErrNoPolygons, got %v", err)
	}
}

func TestPixelsPerUnit(t *testing.T) {
	got, err := calibration.PixelsPerUnit(500, 2)
	if err != nil || got != 250 {
		t.Fatalf("expected 250, got %v (%v)", got, err)
	}
	if _, err := calibration.PixelsPerUnit(500, 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

// ─────────────────────────────────────────────────────────────
// Builder
// ─────────────────────────────────────────────────────────────

func TestBuilder_ClosesNearFirstVertex(t *testing.T) {
	b := calibration.NewBuilder(euclid, 10)
	for _, p := range square(0, 0, 100) {
		if b.Click(p) {
			t.Fatal("unexpected close while placing vertices")
		}
	}
	if !b.Click(domain.Point{X: 6, Y: 8}) {
		t.Fatal("expected click 10px from the first vertex to close")
	}
	done := b.Completed()
	if len(done) != 1 || len(done[0]) != 5 || !done[0].Closed() {
		t.Fatalf("expected one explicitly closed 5-vertex ring, got %+v", done)
	}
	if len(b.Current()) != 0 {
		t.Fatal("expected in-progress polygon cleared")
	}
	if _, _, ok := b.Preview(); ok {
		t.Fatal("expected preview cleared on close")
	}
}

func TestBuilder_NoCloseWithTwoVertices(t *testing.T) {
	b := calibration.NewBuilder(euclid, 10)
	b.Click(domain.Point{X: 0, Y: 0})
	b.Click(domain.Point{X: 50, Y: 0})
	if b.Click(domain.Point{X: 1, Y: 1}) {
		t.Fatal("expected no close with fewer than three vertices")
	}
	if got := len(b.Current()); got != 3 {
		t.Fatalf("expected the click to append a vertex, got %d vertices", got)
	}
}

func TestBuilder_FarClickAppends(t *testing.T) {
	b := calibration.NewBuilder(euclid, 10)
	for _, p := range square(0, 0, 100) {
		b.Click(p)
	}
	if b.Click(domain.Point{X: 11, Y: 0}) {
		t.Fatal("expected no close beyond threshold")
	}
	if len(b.Current()) != 5 {
		t.Fatalf("expected 5 vertices, got %d", len(b.Current()))
	}
}

func TestBuilder_ThresholdUsesScreenDistance(t *testing.T) {
	zoom := 1.0
	screen := func(a, c domain.Point) float64 { return euclid(a, c) * zoom }
	b := calibration.NewBuilder(screen, 10)
	for _, p := range square(0, 0, 100) {
		b.Click(p)
	}
	zoom = 4
	if b.TryClose(domain.Point{X: 5, Y: 0}) {
		t.Fatal("expected 5 image px to exceed the threshold at zoom 4")
	}
	zoom = 0.5
	if !b.TryClose(domain.Point{X: 15, Y: 0}) {
		t.Fatal("expected 15 image px to close at zoom 0.5")
	}
}

func TestBuilder_UndoCancelRemove(t *testing.T) {
	b := calibration.NewBuilder(euclid, 10)
	if b.UndoVertex() || b.RemoveLast() {
		t.Fatal("expected no-ops on an empty builder")
	}
	b.Click(domain.Point{X: 0, Y: 0})
	b.Click(domain.Point{X: 10, Y: 0})
	b.SetPreview(domain.Point{X: 20, Y: 20})
	if from, to, ok := b.Preview(); !ok || from.X != 10 || to.X != 20 {
		t.Fatalf("unexpected preview %v %v %v", from, to, ok)
	}
	if !b.UndoVertex() || len(b.Current()) != 1 {
		t.Fatal("expected undo to pop one vertex")
	}
	b.Cancel()
	if len(b.Current()) != 0 {
		t.Fatal("expected cancel to discard the polygon")
	}

	b.LoadCompleted([]domain.Polygon{square(0, 0, 1), square(0, 0, 2)})
	if !b.RemoveLast() || len(b.Completed()) != 1 {
		t.Fatal("expected one completed polygon after RemoveLast")
	}
}

func TestBuilder_CanSubmit(t *testing.T) {
	b := calibration.NewBuilder(euclid, 10)
	b.LoadCompleted([]domain.Polygon{square(0, 0, 1), square(0, 0, 2)})
	if b.CanSubmit() {
		t.Fatal("expected submission disabled with two polygons")
	}
	b.LoadCompleted([]domain.Polygon{square(0, 0, 1), square(0, 0, 2), square(0, 0, 3)})
	if !b.CanSubmit() {
		t.Fatal("expected submission enabled with three polygons")
	}
	if b.Completed()[0][4] != (domain.Point{X: 0, Y: 0}) {
		t.Fatal("expected loaded rings to be closed")
	}
}
