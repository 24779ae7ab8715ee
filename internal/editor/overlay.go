package editor

import (
	"sync"

	"annotator/internal/coords"
	"annotator/internal/domain"
	"annotator/internal/viewer"
)

// Renderer turns effects into viewer overlays. Each layer is rebuilt from
// a State snapshot; the rectangle preview is moved in place.
type Renderer struct {
	mu      sync.Mutex
	v       viewer.Viewer
	tr      *coords.Transformer
	layers  map[EffectKind][]viewer.OverlayHandle
	preview *viewer.OverlayHandle
}

func NewRenderer(v viewer.Viewer) *Renderer {
	return &Renderer{
		v:      v,
		tr:     coords.New(v),
		layers: make(map[EffectKind][]viewer.OverlayHandle),
	}
}

// Apply performs each distinct effect once against st.
func (r *Renderer) Apply(st State, effects []Effect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.tr.Ready() {
		return
	}
	done := make(map[EffectKind]bool, len(effects))
	for _, e := range effects {
		if done[e.Kind] {
			continue
		}
		done[e.Kind] = true
		switch e.Kind {
		case EffectPoints:
			r.drawPoints(st)
		case EffectRects:
			r.drawRects(st)
		case EffectRectPreview:
			r.drawRectPreview(st)
		case EffectPolygons:
			r.drawPolygons(st)
		case EffectGrid:
			r.drawGrid(st)
		}
	}
}

func (r *Renderer) clear(kind EffectKind) {
	for _, h := range r.layers[kind] {
		r.v.RemoveOverlay(h)
	}
	r.layers[kind] = r.layers[kind][:0]
}

func (r *Renderer) add(kind EffectKind, p viewer.Primitive, at domain.ViewportRect) {
	r.layers[kind] = append(r.layers[kind], r.v.AddOverlay(p, at))
}

func (r *Renderer) pointAt(p domain.Point) domain.ViewportRect {
	vp := r.tr.PointToViewport(p)
	return domain.ViewportRect{X: vp.X, Y: vp.Y}
}

func (r *Renderer) drawPoints(st State) {
	r.clear(EffectPoints)
	if !st.ShowPoints {
		return
	}
	for _, p := range st.Points {
		r.add(EffectPoints, viewer.Primitive{
			Kind:        viewer.PrimitivePoint,
			Unconfirmed: p.Unconfirmed,
			Hover:       p.Hover,
			Selected:    p.Selected,
		}, r.pointAt(p))
	}
}

func (r *Renderer) drawRects(st State) {
	r.clear(EffectRects)
	if !st.ShowRects {
		return
	}
	for _, rect := range st.Rects {
		r.add(EffectRects, viewer.Primitive{
			Kind:        viewer.PrimitiveRect,
			Unconfirmed: rect.Unconfirmed,
			Hover:       rect.Hover,
			Selected:    rect.Selected,
		}, r.tr.RectToViewport(rect))
	}
}

func (r *Renderer) drawRectPreview(st State) {
	if st.RectPreview == nil {
		if r.preview != nil {
			r.v.RemoveOverlay(*r.preview)
			r.preview = nil
		}
		return
	}
	at := r.tr.RectToViewport(*st.RectPreview)
	if r.preview != nil {
		r.v.UpdateOverlay(*r.preview, at)
		return
	}
	h := r.v.AddOverlay(viewer.Primitive{Kind: viewer.PrimitiveRectPreview}, at)
	r.preview = &h
}

func (r *Renderer) drawPolygons(st State) {
	r.clear(EffectPolygons)
	for _, poly := range st.Completed {
		r.drawRing(poly)
	}
	r.drawRing(st.Polygon)
	if len(st.PolygonPreview) == 2 {
		r.edge(viewer.PrimitivePreviewEdge, st.PolygonPreview[0], st.PolygonPreview[1])
	}
}

// drawRing draws vertices and the edges between consecutive vertices. A
// closed polygon repeats its first vertex, so its closing edge comes free.
func (r *Renderer) drawRing(poly domain.Polygon) {
	vertices := poly
	if poly.Closed() {
		vertices = poly[:len(poly)-1]
	}
	for _, p := range vertices {
		r.add(EffectPolygons, viewer.Primitive{Kind: viewer.PrimitiveVertex}, r.pointAt(p))
	}
	for i := 1; i < len(poly); i++ {
		r.edge(viewer.PrimitiveEdge, poly[i-1], poly[i])
	}
}

func (r *Renderer) edge(kind viewer.PrimitiveKind, a, b domain.Point) {
	from := r.tr.PointToViewport(a)
	to := r.tr.PointToViewport(b)
	r.add(EffectPolygons, viewer.Primitive{Kind: kind, From: &from, To: &to}, spanning(from, to))
}

func (r *Renderer) drawGrid(st State) {
	r.clear(EffectGrid)
	if !st.GridVisible {
		return
	}
	size, ok := r.v.ImageContentSize()
	if !ok {
		return
	}
	grid := NewGrid(st.GridSize)
	xs, ys := grid.Lines(size)
	h, w := int(size.Height), int(size.Width)
	for _, x := range xs {
		r.line(domain.Point{X: x}, domain.Point{X: x, Y: h})
	}
	for _, y := range ys {
		r.line(domain.Point{Y: y}, domain.Point{X: w, Y: y})
	}
	for _, c := range st.VerifiedCells {
		r.add(EffectGrid, viewer.Primitive{Kind: viewer.PrimitiveGridCell}, r.tr.RectToViewport(grid.CellRect(c)))
	}
}

func (r *Renderer) line(a, b domain.Point) {
	from := r.tr.PointToViewport(a)
	to := r.tr.PointToViewport(b)
	r.add(EffectGrid, viewer.Primitive{Kind: viewer.PrimitiveGridLine, From: &from, To: &to}, spanning(from, to))
}

func spanning(a, b domain.ViewportPoint) domain.ViewportRect {
	x, y := min(a.X, b.X), min(a.Y, b.Y)
	return domain.ViewportRect{X: x, Y: y, Width: max(a.X, b.X) - x, Height: max(a.Y, b.Y) - y}
}
