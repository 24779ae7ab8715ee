package coords_test

import (
	"errors"
	"math"
	"testing"

	"annotator/internal/coords"
	"annotator/internal/domain"
	"annotator/internal/viewer"
)

func TestScreenToImage_NotReady(t *testing.T) {
	tr := coords.New(viewer.NewHeadless(800, 600))
	if _, err := tr.ScreenToImage(domain.ScreenPoint{X: 10, Y: 10}); !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestRoundTripWithinOnePixel(t *testing.T) {
	v := viewer.NewHeadless(1024, 768)
	v.Open(6000, 4000)
	tr := coords.New(v)

	for _, zoom := range []float64{0.5, 1, 2.7, 8, 40} {
		v.ZoomTo(zoom)
		v.PanTo(domain.ViewportPoint{X: 0.41, Y: 0.27})
		for x := 0; x < 6000; x += 977 {
			for y := 0; y < 4000; y += 613 {
				in := domain.Point{X: x, Y: y}
				s := tr.PointToScreen(in)
				back, err := tr.ScreenToImage(s)
				if err != nil {
					t.Fatal(err)
				}
				got := tr.PointToScreen(back)
				if d := math.Hypot(got.X-s.X, got.Y-s.Y); d > 1 {
					t.Errorf("zoom %v: %v drifted %.3f screen px", zoom, in, d)
				}
			}
		}
	}
}

func TestScreenDistanceScalesWithZoom(t *testing.T) {
	v := viewer.NewHeadless(800, 600)
	v.Open(800, 600)
	tr := coords.New(v)

	a := domain.Point{X: 100, Y: 100}
	b := domain.Point{X: 110, Y: 100}
	if d := tr.ScreenDistance(a, b); math.Abs(d-10) > 1e-9 {
		t.Fatalf("expected 10px at zoom 1, got %v", d)
	}
	v.ZoomTo(4)
	if d := tr.ScreenDistance(a, b); math.Abs(d-40) > 1e-9 {
		t.Fatalf("expected 40px at zoom 4, got %v", d)
	}
}

func TestRectToViewport(t *testing.T) {
	v := viewer.NewHeadless(800, 600)
	v.Open(1000, 1000)
	tr := coords.New(v)

	got := tr.RectToViewport(domain.Rect{X: 100, Y: 200, Width: 300, Height: 400})
	want := domain.ViewportRect{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.4}
	if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Height-want.Height) > 1e-9 {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}
