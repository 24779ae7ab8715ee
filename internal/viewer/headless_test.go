package viewer_test

import (
	"math"
	"testing"

	"annotator/internal/domain"
	"annotator/internal/viewer"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestHeadless_FitsImageWidth(t *testing.T) {
	v := viewer.NewHeadless(800, 600)
	v.Open(1000, 500)

	tl := v.ViewportToPixel(v.ImageToViewport(domain.ImagePoint{X: 0, Y: 0}))
	if !near(tl.X, 0) || !near(tl.Y, 100) {
		t.Errorf("expected image origin at (0,100), got (%v,%v)", tl.X, tl.Y)
	}
	br := v.ViewportToPixel(v.ImageToViewport(domain.ImagePoint{X: 1000, Y: 500}))
	if !near(br.X, 800) || !near(br.Y, 500) {
		t.Errorf("expected image corner at (800,500), got (%v,%v)", br.X, br.Y)
	}
}

func TestHeadless_PixelRoundTrip(t *testing.T) {
	v := viewer.NewHeadless(800, 600)
	v.Open(4000, 3000)
	v.ZoomTo(3.5)
	v.PanTo(domain.ViewportPoint{X: 0.3, Y: 0.2})

	in := domain.ScreenPoint{X: 123.25, Y: 456.5}
	out := v.ViewportToPixel(v.PixelToViewport(in))
	if !near(in.X, out.X) || !near(in.Y, out.Y) {
		t.Errorf("round trip mismatch: %v -> %v", in, out)
	}
}

func TestHeadless_NotLoaded(t *testing.T) {
	v := viewer.NewHeadless(800, 600)
	if _, ok := v.ImageContentSize(); ok {
		t.Fatal("expected no image before Open")
	}
	v.Open(100, 100)
	if size, ok := v.ImageContentSize(); !ok || size.Width != 100 {
		t.Fatalf("expected loaded 100px image, got %v %v", size, ok)
	}
	v.Close()
	if _, ok := v.ImageContentSize(); ok {
		t.Fatal("expected no image after Close")
	}
}

func TestHeadless_Overlays(t *testing.T) {
	v := viewer.NewHeadless(800, 600)
	v.Open(100, 100)

	a := v.AddOverlay(viewer.Primitive{Kind: viewer.PrimitivePoint}, domain.ViewportRect{})
	b := v.AddOverlay(viewer.Primitive{Kind: viewer.PrimitiveRect}, domain.ViewportRect{})
	v.UpdateOverlay(b, domain.ViewportRect{X: 0.5, Width: 0.1})

	if got := v.CountOverlays(viewer.PrimitivePoint); got != 1 {
		t.Errorf("expected 1 point overlay, got %d", got)
	}
	v.RemoveOverlay(a)
	all := v.Overlays()
	if len(all) != 1 || all[0].Handle != b || all[0].At.X != 0.5 {
		t.Errorf("unexpected overlays after remove: %+v", all)
	}
}
