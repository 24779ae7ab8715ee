// Package calibration builds calibration polygons and measures their areas.
package calibration

import (
	"math"

	"annotator/internal/domain"
)

// MinPolygons is the number of completed polygons required before a
// calibration can be submitted.
const MinPolygons = 3

// PolygonArea returns the absolute shoelace area of p in square image pixels.
// A trailing vertex that repeats the first is ignored, so explicitly closed
// and open rings of the same shape measure the same.
func PolygonArea(p domain.Polygon) float64 {
	ring := p
	if ring.Closed() {
		ring = ring[:len(ring)-1]
	}
	n := len(ring)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += float64(ring[i].X)*float64(ring[j].Y) - float64(ring[j].X)*float64(ring[i].Y)
	}
	return math.Abs(sum / 2)
}

// AverageArea returns the mean area of polygons.
// It fails with ErrNoPolygons when polygons is empty.
func AverageArea(polygons []domain.Polygon) (float64, error) {
	if len(polygons) == 0 {
		return 0, domain.ErrNoPolygons
	}
	var total float64
	for _, p := range polygons {
		total += PolygonArea(p)
	}
	return total / float64(len(polygons)), nil
}

// PixelsPerUnit converts an average pixel area of a calibration target with
// a known physical area into square pixels per square unit.
func PixelsPerUnit(averagePixels, knownArea float64) (float64, error) {
	if knownArea <= 0 {
		return 0, domain.ErrValidation
	}
	return averagePixels / knownArea, nil
}
