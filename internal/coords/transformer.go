// Package coords converts positions between screen, viewport and image space.
package coords

import (
	"math"

	"annotator/internal/domain"
	"annotator/internal/viewer"
)

// Transformer holds no state of its own; every call reads the viewer's
// current pan and zoom.
type Transformer struct {
	v viewer.Viewer
}

// New creates a Transformer over v.
func New(v viewer.Viewer) *Transformer {
	return &Transformer{v: v}
}

// Ready reports whether an image is loaded.
func (t *Transformer) Ready() bool {
	_, ok := t.v.ImageContentSize()
	return ok
}

// ImageToViewport maps image pixels to viewport coordinates.
func (t *Transformer) ImageToViewport(p domain.ImagePoint) domain.ViewportPoint {
	return t.v.ImageToViewport(p)
}

// ViewportToImage maps viewport coordinates to fractional image pixels.
func (t *Transformer) ViewportToImage(p domain.ViewportPoint) domain.ImagePoint {
	return t.v.ViewportToImage(p)
}

// ViewportToPixel maps viewport coordinates to screen pixels at the current pan and zoom.
func (t *Transformer) ViewportToPixel(p domain.ViewportPoint) domain.ScreenPoint {
	return t.v.ViewportToPixel(p)
}

// PixelToViewport is the inverse of ViewportToPixel.
func (t *Transformer) PixelToViewport(p domain.ScreenPoint) domain.ViewportPoint {
	return t.v.PixelToViewport(p)
}

// ImageToScreen maps image pixels to screen pixels.
func (t *Transformer) ImageToScreen(p domain.ImagePoint) domain.ScreenPoint {
	return t.v.ViewportToPixel(t.v.ImageToViewport(p))
}

// ScreenToImage maps a screen position to the nearest integer image pixel.
// It fails with ErrNotReady while no image is loaded.
func (t *Transformer) ScreenToImage(p domain.ScreenPoint) (domain.Point, error) {
	if !t.Ready() {
		return domain.Point{}, domain.ErrNotReady
	}
	ip := t.v.ViewportToImage(t.v.PixelToViewport(p))
	return domain.Point{X: int(math.Round(ip.X)), Y: int(math.Round(ip.Y))}, nil
}

// PointToScreen maps an annotation point to screen pixels.
func (t *Transformer) PointToScreen(p domain.Point) domain.ScreenPoint {
	return t.ImageToScreen(domain.ImagePoint{X: float64(p.X), Y: float64(p.Y)})
}

// PointToViewport maps an annotation point to viewport space.
func (t *Transformer) PointToViewport(p domain.Point) domain.ViewportPoint {
	return t.v.ImageToViewport(domain.ImagePoint{X: float64(p.X), Y: float64(p.Y)})
}

// RectToViewport maps an image-space rect to the viewport rect an overlay
// should occupy.
func (t *Transformer) RectToViewport(r domain.Rect) domain.ViewportRect {
	tl := t.v.ImageToViewport(domain.ImagePoint{X: float64(r.X), Y: float64(r.Y)})
	br := t.v.ImageToViewport(domain.ImagePoint{X: float64(r.X + r.Width), Y: float64(r.Y + r.Height)})
	return domain.ViewportRect{X: tl.X, Y: tl.Y, Width: br.X - tl.X, Height: br.Y - tl.Y}
}

// ScreenDistance is the distance between two image points measured in
// current screen pixels, so it shrinks as the viewer zooms out.
func (t *Transformer) ScreenDistance(a, b domain.Point) float64 {
	sa := t.PointToScreen(a)
	sb := t.PointToScreen(b)
	return math.Hypot(sa.X-sb.X, sa.Y-sb.Y)
}
