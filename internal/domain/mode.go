package domain

import (
	"fmt"
	"time"
)

// Mode is the active editing mode. Exactly one mode is active at a time.
type Mode string

const (
	ModePoint       Mode = "point"
	ModeRectangle   Mode = "rectangle"
	ModeCalibration Mode = "calibration"
)

// ParseMode converts a user-supplied string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePoint, ModeRectangle, ModeCalibration:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrValidation, s)
	}
}

// SessionState is the per-image editor state restored when an image is reopened.
type SessionState struct {
	ImageID     int  `json:"imageId"`
	Mode        Mode `json:"mode"`
	GridVisible bool `json:"gridVisible"`
}

// CalibrationRun records a submitted calibration.
type CalibrationRun struct {
	ID            string    `json:"id"`
	ImageID       int       `json:"imageId"`
	Mode          string    `json:"mode"`
	Polygons      []Polygon `json:"polygons"`
	AveragePixels float64   `json:"averagePixels"`
	Redirect      string    `json:"redirect"`
	CreatedAt     time.Time `json:"createdAt"`
}
