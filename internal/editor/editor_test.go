package editor_test

import (
	"errors"
	"testing"

	"annotator/internal/calibration"
	"annotator/internal/domain"
	"annotator/internal/editor"
)

func TestKeymapDefaults(t *testing.T) {
	k := editor.MustDefaultKeymap()
	cases := map[string]editor.Action{
		"e":         editor.ActionAdd,
		"E":         editor.ActionAdd,
		"R":         editor.ActionDelete,
		"escape":    editor.ActionCancelPolygon,
		"Backspace": editor.ActionUndoVertex,
		"b":         editor.ActionRemovePolygon,
		"w":         editor.ActionToggleGridCell,
		"G":         editor.ActionToggleGrid,
	}
	for key, want := range cases {
		got, ok := k.Lookup(key)
		if !ok || got != want {
			t.Errorf("Lookup(%q) = %q, %v; want %q", key, got, ok, want)
		}
		if !k.Intercepts(key) {
			t.Errorf("Intercepts(%q) = false", key)
		}
	}
	if k.Intercepts("x") {
		t.Error("unbound key must pass through")
	}
}

func TestKeymapOverrides(t *testing.T) {
	k, err := editor.NewKeymap(map[editor.Action]string{editor.ActionAdd: "a"})
	if err != nil {
		t.Fatalf("NewKeymap: %v", err)
	}
	if a, _ := k.Lookup("A"); a != editor.ActionAdd {
		t.Errorf("override not applied, got %q", a)
	}
	if k.Intercepts("e") {
		t.Error("old key should be released")
	}

	_, err = editor.NewKeymap(map[editor.Action]string{editor.ActionAdd: "R"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("duplicate key: expected ErrValidation, got %v", err)
	}
	_, err = editor.NewKeymap(map[editor.Action]string{"teleport": "t"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("unknown action: expected ErrValidation, got %v", err)
	}
	_, err = editor.NewKeymap(map[editor.Action]string{editor.ActionDelete: " "})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty key: expected ErrValidation, got %v", err)
	}
}

func TestGridCellAt(t *testing.T) {
	g := editor.NewGrid(0)
	if g.Size() != editor.DefaultGridSize {
		t.Fatalf("expected default size, got %d", g.Size())
	}
	cases := []struct {
		x, y int
		want domain.GridCell
	}{
		{0, 0, domain.GridCell{Col: 0, Row: 0}},
		{511, 511, domain.GridCell{Col: 0, Row: 0}},
		{512, 1023, domain.GridCell{Col: 1, Row: 1}},
		{-1, 5, domain.GridCell{Col: -1, Row: 0}},
	}
	for _, tc := range cases {
		if got := g.CellAt(tc.x, tc.y); got != tc.want {
			t.Errorf("CellAt(%d,%d) = %v, want %v", tc.x, tc.y, got, tc.want)
		}
	}
	if key := (domain.GridCell{Col: 3, Row: 4}).String(); key != "3,4" {
		t.Errorf("unexpected key %q", key)
	}
}

func TestGridToggleAndLines(t *testing.T) {
	g := editor.NewGrid(100)
	c := domain.GridCell{Col: 2, Row: 1}
	if !g.Toggle(c) || !g.Verified(c) {
		t.Fatal("first toggle should verify")
	}
	if g.Toggle(c) || g.Verified(c) {
		t.Fatal("second toggle should clear")
	}

	g.Load([]domain.GridCell{{Col: 1, Row: 1}, {Col: 0, Row: 1}, {Col: 5, Row: 0}})
	cells := g.Cells()
	if cells[0] != (domain.GridCell{Col: 5, Row: 0}) || cells[1] != (domain.GridCell{Col: 0, Row: 1}) {
		t.Errorf("cells not ordered by row then col: %v", cells)
	}

	xs, ys := g.Lines(domain.Size{Width: 350, Height: 200})
	if len(xs) != 3 || len(ys) != 1 {
		t.Errorf("unexpected lines %v %v", xs, ys)
	}
	if r := g.CellRect(domain.GridCell{Col: 2, Row: 1}); r.X != 200 || r.Y != 100 || r.Width != 100 {
		t.Errorf("unexpected cell rect %+v", r)
	}
}

func TestModeControllerTransitions(t *testing.T) {
	b := calibration.NewBuilder(func(a, b domain.Point) float64 { return 1000 }, 10)
	m := editor.NewModeController(b)
	if m.Current() != domain.ModePoint {
		t.Fatalf("expected point mode, got %s", m.Current())
	}

	var seen [][2]domain.Mode
	m.AddListener(func(prev, next domain.Mode) {
		seen = append(seen, [2]domain.Mode{prev, next})
	})

	if m.SetMode(domain.ModePoint) {
		t.Error("same-mode switch should report no change")
	}
	m.SetMode(domain.ModeRectangle)
	m.PlaceCorner(domain.Point{X: 5, Y: 5})
	if !m.StretchPreview(domain.Point{X: 1, Y: 9}) {
		t.Fatal("stretch with a corner placed should succeed")
	}
	if p := m.Preview(); p == nil || *p != (domain.Rect{X: 1, Y: 5, Width: 4, Height: 4}) {
		t.Errorf("unexpected preview %+v", p)
	}

	m.SetMode(domain.ModeCalibration)
	if _, ok := m.Corner(); ok || m.Preview() != nil {
		t.Error("corner buffer should be empty after switch")
	}
	b.AddVertex(domain.Point{X: 1, Y: 1})
	m.SetMode(domain.ModePoint)
	if len(b.Current()) != 0 {
		t.Error("leaving calibration should cancel the polygon")
	}
	if len(seen) != 3 || seen[2] != [2]domain.Mode{domain.ModeCalibration, domain.ModePoint} {
		t.Errorf("unexpected transitions %v", seen)
	}
}
