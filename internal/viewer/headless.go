package viewer

import (
	"sort"
	"sync"

	"annotator/internal/domain"
)

// Headless is an in-process Viewer with no rendering. It models a deep-zoom
// viewport: viewport x and y are image pixels divided by the image width, and
// zoom 1 fits the image width to the container.
type Headless struct {
	mu sync.Mutex

	image     domain.Size
	loaded    bool
	container domain.Size
	center    domain.ViewportPoint
	zoom      float64

	overlays map[OverlayHandle]Overlay
	next     OverlayHandle
}

// Overlay is a drawn primitive and its placement.
type Overlay struct {
	Handle    OverlayHandle       `json:"handle"`
	Primitive Primitive           `json:"primitive"`
	At        domain.ViewportRect `json:"at"`
}

// NewHeadless creates a Headless viewer with the given container size in pixels.
func NewHeadless(containerWidth, containerHeight float64) *Headless {
	return &Headless{
		container: domain.Size{Width: containerWidth, Height: containerHeight},
		zoom:      1,
		overlays:  make(map[OverlayHandle]Overlay),
	}
}

// Open loads an image of the given pixel size and fits it to the container.
func (h *Headless) Open(width, height float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.image = domain.Size{Width: width, Height: height}
	h.loaded = width > 0 && height > 0
	h.zoom = 1
	if h.loaded {
		h.center = domain.ViewportPoint{X: 0.5, Y: height / width / 2}
	}
	h.overlays = make(map[OverlayHandle]Overlay)
}

// Close unloads the image and drops every overlay.
func (h *Headless) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loaded = false
	h.image = domain.Size{}
	h.overlays = make(map[OverlayHandle]Overlay)
}

// Resize changes the container size, keeping the viewport centre.
func (h *Headless) Resize(width, height float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.container = domain.Size{Width: width, Height: height}
}

// Zoom returns the current zoom factor.
func (h *Headless) Zoom() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.zoom
}

// Center returns the current viewport centre.
func (h *Headless) Center() domain.ViewportPoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.center
}

// ImageContentSize returns the open image size; ok is false when none is open.
func (h *Headless) ImageContentSize() (domain.Size, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.image, h.loaded
}

// ImageToViewport divides both axes by the image width.
func (h *Headless) ImageToViewport(p domain.ImagePoint) domain.ViewportPoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.image.Width == 0 {
		return domain.ViewportPoint{}
	}
	return domain.ViewportPoint{X: p.X / h.image.Width, Y: p.Y / h.image.Width}
}

// ViewportToImage multiplies both axes by the image width.
func (h *Headless) ViewportToImage(p domain.ViewportPoint) domain.ImagePoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return domain.ImagePoint{X: p.X * h.image.Width, Y: p.Y * h.image.Width}
}

// ViewportToPixel projects through the visible bounds onto the container.
func (h *Headless) ViewportToPixel(p domain.ViewportPoint) domain.ScreenPoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	tl, scale := h.boundsLocked()
	return domain.ScreenPoint{X: (p.X - tl.X) * scale, Y: (p.Y - tl.Y) * scale}
}

// PixelToViewport is the inverse of ViewportToPixel.
func (h *Headless) PixelToViewport(p domain.ScreenPoint) domain.ViewportPoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	tl, scale := h.boundsLocked()
	return domain.ViewportPoint{X: p.X/scale + tl.X, Y: p.Y/scale + tl.Y}
}

// boundsLocked returns the top-left of the visible viewport rectangle and
// the number of screen pixels per viewport unit.
func (h *Headless) boundsLocked() (domain.ViewportPoint, float64) {
	boundsWidth := 1 / h.zoom
	boundsHeight := boundsWidth * h.container.Height / h.container.Width
	tl := domain.ViewportPoint{
		X: h.center.X - boundsWidth/2,
		Y: h.center.Y - boundsHeight/2,
	}
	return tl, h.container.Width / boundsWidth
}

// PanTo centres the view on a viewport point.
func (h *Headless) PanTo(center domain.ViewportPoint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.center = center
}

// ZoomTo sets the zoom factor; non-positive values are ignored.
func (h *Headless) ZoomTo(zoom float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if zoom <= 0 {
		return
	}
	h.zoom = zoom
}

// ── Overlays ───────────────────────────────────────────────

// AddOverlay records p at the given placement and returns its handle.
func (h *Headless) AddOverlay(p Primitive, at domain.ViewportRect) OverlayHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.overlays[h.next] = Overlay{Handle: h.next, Primitive: p, At: at}
	return h.next
}

// UpdateOverlay moves an existing overlay; unknown handles are ignored.
func (h *Headless) UpdateOverlay(handle OverlayHandle, at domain.ViewportRect) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if o, ok := h.overlays[handle]; ok {
		o.At = at
		h.overlays[handle] = o
	}
}

// RemoveOverlay forgets the overlay behind handle.
func (h *Headless) RemoveOverlay(handle OverlayHandle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.overlays, handle)
}

// Overlays returns the drawn overlays ordered by handle.
func (h *Headless) Overlays() []Overlay {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Overlay, 0, len(h.overlays))
	for _, o := range h.overlays {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// CountOverlays returns how many overlays of kind are drawn.
func (h *Headless) CountOverlays(kind PrimitiveKind) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, o := range h.overlays {
		if o.Primitive.Kind == kind {
			n++
		}
	}
	return n
}
