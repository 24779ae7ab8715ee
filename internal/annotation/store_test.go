package annotation_test

import (
	"testing"

	"annotator/internal/annotation"
	"annotator/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Points
// ─────────────────────────────────────────────────────────────

func TestRemoveNearestPoint_NewestFirst(t *testing.T) {
	s := annotation.NewStore()
	s.AddPoint(100, 100)
	s.AddPoint(105, 100)

	removed := s.RemoveNearestPoint(102, 100, 10)
	if removed == nil || removed.X != 105 {
		t.Fatalf("expected the newer point (105,100) to be removed, got %+v", removed)
	}
	pts := s.Points()
	if len(pts) != 1 || pts[0].X != 100 {
		t.Fatalf("expected only (100,100) to remain, got %+v", pts)
	}
}

func TestRemoveNearestPoint_ToleranceInclusive(t *testing.T) {
	s := annotation.NewStore()
	s.AddPoint(0, 0)

	if s.RemoveNearestPoint(6, 9, 10) != nil {
		t.Fatal("expected no removal beyond tolerance")
	}
	if s.RemoveNearestPoint(6, 8, 10) == nil {
		t.Fatal("expected removal at exactly the tolerance distance")
	}
	if s.RemoveNearestPoint(0, 0, 10) != nil {
		t.Fatal("expected nil on an empty store")
	}
}

func TestDuplicatePointsAllowed(t *testing.T) {
	s := annotation.NewStore()
	s.AddPoint(5, 5)
	s.AddPoint(5, 5)
	if s.PointCount() != 2 {
		t.Fatalf("expected 2 points, got %d", s.PointCount())
	}
	s.RemoveNearestPoint(5, 5, 1)
	if s.PointCount() != 1 {
		t.Fatalf("expected exactly one duplicate removed, got %d left", s.PointCount())
	}
}

func TestMarkPoint(t *testing.T) {
	s := annotation.NewStore()
	s.AddPoint(1, 2)
	if !s.MarkPoint(1, 2, true) || !s.Points()[0].Unconfirmed {
		t.Fatal("expected point marked unconfirmed")
	}
	if s.MarkPoint(9, 9, true) {
		t.Fatal("expected false for unknown point")
	}
}

// ─────────────────────────────────────────────────────────────
// Rects
// ─────────────────────────────────────────────────────────────

func TestAddRect_Normalizes(t *testing.T) {
	s := annotation.NewStore()
	r := s.AddRect(domain.Point{X: 50, Y: 80}, domain.Point{X: 10, Y: 20})
	if r.X != 10 || r.Y != 20 || r.Width != 40 || r.Height != 60 {
		t.Fatalf("expected {10,20,40,60}, got %+v", *r)
	}
}

func TestAddRect_CornerOrderIrrelevant(t *testing.T) {
	tl, br := domain.Point{X: 10, Y: 20}, domain.Point{X: 50, Y: 80}
	tr, bl := domain.Point{X: 50, Y: 20}, domain.Point{X: 10, Y: 80}
	want := domain.Rect{X: 10, Y: 20, Width: 40, Height: 60}

	for _, corners := range [][2]domain.Point{{tl, br}, {br, tl}, {tr, bl}, {bl, tr}} {
		s := annotation.NewStore()
		if got := *s.AddRect(corners[0], corners[1]); got != want {
			t.Errorf("AddRect(%v, %v) = %+v, want %+v", corners[0], corners[1], got, want)
		}
	}
}

func TestAddRect_ZeroArea(t *testing.T) {
	s := annotation.NewStore()
	r := s.AddRect(domain.Point{X: 7, Y: 7}, domain.Point{X: 7, Y: 7})
	if r.Width != 0 || r.Height != 0 || s.RectCount() != 1 {
		t.Fatalf("expected a stored zero-area rect, got %+v", *r)
	}
	if s.FindRectAt(7, 7) != r {
		t.Fatal("expected zero-area rect to contain its own corner")
	}
}

func TestFindRectAt_InclusiveAndNewest(t *testing.T) {
	s := annotation.NewStore()
	first := s.AddRect(domain.Point{X: 0, Y: 0}, domain.Point{X: 100, Y: 100})
	second := s.AddRect(domain.Point{X: 50, Y: 50}, domain.Point{X: 150, Y: 150})

	if got := s.FindRectAt(75, 75); got != second {
		t.Fatal("expected overlapping hit to return the newest rect")
	}
	if got := s.FindRectAt(0, 100); got != first {
		t.Fatal("expected border hit on the first rect")
	}
	if s.FindRectAt(151, 151) != nil {
		t.Fatal("expected miss outside every rect")
	}
}

func TestRemoveRect_ByIdentity(t *testing.T) {
	s := annotation.NewStore()
	a := s.AddRect(domain.Point{X: 0, Y: 0}, domain.Point{X: 10, Y: 10})
	b := s.AddRect(domain.Point{X: 0, Y: 0}, domain.Point{X: 10, Y: 10})

	if !s.RemoveRect(a) {
		t.Fatal("expected removal")
	}
	if s.RectCount() != 1 || s.FindRectAt(5, 5) != b {
		t.Fatal("expected the identical-geometry twin to survive")
	}
	if s.RemoveRect(a) {
		t.Fatal("expected second removal of the same rect to fail")
	}
	if s.RemoveRect(nil) {
		t.Fatal("expected nil removal to fail")
	}
}

func TestRemoveRect_ByServerID(t *testing.T) {
	s := annotation.NewStore()
	id := 42
	s.LoadRects([]domain.Rect{{ID: &id, X: 0, Y: 0, Width: 5, Height: 5}})

	other := 42
	if !s.RemoveRect(&domain.Rect{ID: &other}) {
		t.Fatal("expected removal by server id")
	}
}

func TestSetRectID(t *testing.T) {
	s := annotation.NewStore()
	r := s.AddRect(domain.Point{X: 0, Y: 0}, domain.Point{X: 4, Y: 4})
	if !s.SetRectID(*r, 9) {
		t.Fatal("expected id to be recorded")
	}
	if r.ID == nil || *r.ID != 9 {
		t.Fatalf("expected id 9, got %v", r.ID)
	}
}

func TestLoadReplaces(t *testing.T) {
	s := annotation.NewStore()
	s.AddPoint(1, 1)
	s.LoadPoints([]domain.Point{{X: 2, Y: 2}, {X: 3, Y: 3}})
	if s.PointCount() != 2 || s.Points()[0].X != 2 {
		t.Fatalf("expected loaded points to replace existing, got %+v", s.Points())
	}
	s.LoadRects([]domain.Rect{{X: 10, Y: 10, Width: 2, Height: 2}})
	if s.RectCount() != 1 {
		t.Fatalf("expected 1 rect, got %d", s.RectCount())
	}
	s.Clear()
	if s.PointCount() != 0 || s.RectCount() != 0 {
		t.Fatal("expected empty store after Clear")
	}
}
