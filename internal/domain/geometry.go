package domain

// ScreenPoint is a position in screen pixels relative to the viewer's container.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ImagePoint is an unrounded position in image pixels.
type ImagePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ViewportPoint is a position in the viewer's normalized viewport space,
// where the image width spans 0..1.
type ViewportPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ViewportRect is a rectangle in viewport space, used to place overlays.
type ViewportRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
