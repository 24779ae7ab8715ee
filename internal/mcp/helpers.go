package mcpserver

import (
	"fmt"

	"annotator/internal/domain"
)

// numberArg reads a JSON number argument.
func numberArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// positionArg resolves optional x/y arguments to a screen position.
// With space "image" the values are image pixels, otherwise screen pixels.
// It returns nil when no position was given.
func (s *Server) positionArg(args map[string]any) (*domain.ScreenPoint, error) {
	x, okX := numberArg(args, "x")
	y, okY := numberArg(args, "y")
	if !okX && !okY {
		return nil, nil
	}
	if okX != okY {
		return nil, fmt.Errorf("x and y must be given together")
	}
	switch stringArg(args, "space") {
	case "", "screen":
		return &domain.ScreenPoint{X: x, Y: y}, nil
	case "image":
		if !s.session.Transformer().Ready() {
			return nil, domain.ErrNotReady
		}
		sp := s.session.Transformer().ImageToScreen(domain.ImagePoint{X: x, Y: y})
		return &sp, nil
	default:
		return nil, fmt.Errorf("space must be \"screen\" or \"image\"")
	}
}
