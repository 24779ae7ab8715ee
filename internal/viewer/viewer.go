package viewer

import "annotator/internal/domain"

// ─────────────────────────────────────────────────────────────
// Viewer: the zoomable image widget the editor draws on
// ─────────────────────────────────────────────────────────────

// Viewer is the contract the editor needs from an image viewer.
// Conversions always reflect the viewer's current pan and zoom.
type Viewer interface {
	ImageToViewport(p domain.ImagePoint) domain.ViewportPoint
	ViewportToImage(p domain.ViewportPoint) domain.ImagePoint
	ViewportToPixel(p domain.ViewportPoint) domain.ScreenPoint
	PixelToViewport(p domain.ScreenPoint) domain.ViewportPoint

	// ImageContentSize reports the loaded image's size in pixels.
	// ok is false while no image is open.
	ImageContentSize() (size domain.Size, ok bool)

	AddOverlay(p Primitive, at domain.ViewportRect) OverlayHandle
	UpdateOverlay(h OverlayHandle, at domain.ViewportRect)
	RemoveOverlay(h OverlayHandle)

	PanTo(center domain.ViewportPoint)
	ZoomTo(zoom float64)
}

// OverlayHandle identifies a drawn overlay so it can be moved or removed.
type OverlayHandle int

// PrimitiveKind names the shape an overlay draws.
type PrimitiveKind string

const (
	PrimitivePoint       PrimitiveKind = "point"
	PrimitiveRect        PrimitiveKind = "rect"
	PrimitiveRectPreview PrimitiveKind = "rect-preview"
	PrimitiveVertex      PrimitiveKind = "polygon-vertex"
	PrimitiveEdge        PrimitiveKind = "polygon-edge"
	PrimitivePreviewEdge PrimitiveKind = "polygon-preview"
	PrimitiveGridLine    PrimitiveKind = "grid-line"
	PrimitiveGridCell    PrimitiveKind = "grid-cell"
)

// Primitive describes what an overlay looks like.
type Primitive struct {
	Kind        PrimitiveKind `json:"kind"`
	Unconfirmed bool          `json:"unconfirmed,omitempty"`
	Hover       bool          `json:"hover,omitempty"`
	Selected    bool          `json:"selected,omitempty"`
	// Line endpoints for edge primitives, in viewport space.
	From *domain.ViewportPoint `json:"from,omitempty"`
	To   *domain.ViewportPoint `json:"to,omitempty"`
}
