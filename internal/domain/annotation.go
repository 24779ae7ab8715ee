package domain

import "strconv"

// Point is a single annotated specimen in image pixel coordinates.
// Points are positional: two points with the same coordinates are
// indistinguishable and duplicates are allowed.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`

	// View state only; never persisted or compared.
	Hover       bool `json:"-"`
	Selected    bool `json:"-"`
	Unconfirmed bool `json:"-"` // queued but not yet accepted by the remote store
}

// SamePosition reports whether p and o share image coordinates.
func (p Point) SamePosition(o Point) bool {
	return p.X == o.X && p.Y == o.Y
}

// Rect is a bounding box in image pixel coordinates.
// X/Y is always the top-left corner and Width/Height are never negative.
type Rect struct {
	ID     *int `json:"id,omitempty"` // assigned by the remote store once known
	X      int  `json:"x"`
	Y      int  `json:"y"`
	Width  int  `json:"width"`
	Height int  `json:"height"`

	Hover       bool `json:"-"`
	Selected    bool `json:"-"`
	Unconfirmed bool `json:"-"`
}

// NormalizeRect builds a Rect from two arbitrary opposite corners.
func NormalizeRect(x1, y1, x2, y2 int) Rect {
	return Rect{
		X:      min(x1, x2),
		Y:      min(y1, y2),
		Width:  abs(x2 - x1),
		Height: abs(y2 - y1),
	}
}

// Contains reports whether (x, y) lies inside r. Borders are inclusive.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// Corners returns the top-left and bottom-right corners of r.
func (r Rect) Corners() (x1, y1, x2, y2 int) {
	return r.X, r.Y, r.X + r.Width, r.Y + r.Height
}

// Polygon is an ordered list of calibration vertices in image coordinates.
// A completed polygon carries a copy of its first vertex as its last one.
type Polygon []Point

// Closed reports whether the last vertex repeats the first.
func (p Polygon) Closed() bool {
	return len(p) > 1 && p[0].SamePosition(p[len(p)-1])
}

// GridCell addresses one square of the verification grid.
type GridCell struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// AnnotationSet is a bulk snapshot of the annotations stored for an image.
type AnnotationSet struct {
	ImageID       int        `json:"imageId"`
	Points        []Point    `json:"points"`
	Rects         []Rect     `json:"rects"`
	VerifiedCells []GridCell `json:"verifiedCells"`
	TotalEggs     int        `json:"totalEggs"`
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// String returns the "col,row" key of c.
func (c GridCell) String() string {
	return strconv.Itoa(c.Col) + "," + strconv.Itoa(c.Row)
}
