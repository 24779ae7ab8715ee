package editor

import (
	"math"
	"sort"

	"annotator/internal/domain"
)

// DefaultGridSize is the verification grid cell edge in image pixels.
const DefaultGridSize = 512

// Grid is the verification grid laid over the image. Cells are marked
// verified by toggling; the overlay itself can be hidden.
type Grid struct {
	size    int
	visible bool
	cells   map[domain.GridCell]struct{}
}

func NewGrid(size int) *Grid {
	if size <= 0 {
		size = DefaultGridSize
	}
	return &Grid{size: size, cells: make(map[domain.GridCell]struct{})}
}

func (g *Grid) Size() int { return g.size }

// CellAt returns the cell containing image pixel (x, y).
func (g *Grid) CellAt(x, y int) domain.GridCell {
	return domain.GridCell{
		Col: int(math.Floor(float64(x) / float64(g.size))),
		Row: int(math.Floor(float64(y) / float64(g.size))),
	}
}

// Toggle flips the verified state of c and reports the new state.
func (g *Grid) Toggle(c domain.GridCell) bool {
	if _, ok := g.cells[c]; ok {
		delete(g.cells, c)
		return false
	}
	g.cells[c] = struct{}{}
	return true
}

func (g *Grid) Verified(c domain.GridCell) bool {
	_, ok := g.cells[c]
	return ok
}

// Cells returns the verified cells ordered by row, then column.
func (g *Grid) Cells() []domain.GridCell {
	out := make([]domain.GridCell, 0, len(g.cells))
	for c := range g.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// Load replaces the verified cells.
func (g *Grid) Load(cells []domain.GridCell) {
	g.cells = make(map[domain.GridCell]struct{}, len(cells))
	for _, c := range cells {
		g.cells[c] = struct{}{}
	}
}

func (g *Grid) Visible() bool       { return g.visible }
func (g *Grid) SetVisible(v bool)   { g.visible = v }
func (g *Grid) ToggleVisible() bool { g.visible = !g.visible; return g.visible }

// Lines returns the x positions of vertical lines and y positions of
// horizontal lines inside an image of the given size.
func (g *Grid) Lines(size domain.Size) (xs, ys []int) {
	for x := g.size; float64(x) < size.Width; x += g.size {
		xs = append(xs, x)
	}
	for y := g.size; float64(y) < size.Height; y += g.size {
		ys = append(ys, y)
	}
	return xs, ys
}

// CellRect returns the image-space rectangle covered by c.
func (g *Grid) CellRect(c domain.GridCell) domain.Rect {
	return domain.Rect{X: c.Col * g.size, Y: c.Row * g.size, Width: g.size, Height: g.size}
}
