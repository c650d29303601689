package imaging

import (
	"fmt"
	"math"

	"github.com/pigfarm/receipt-capture/internal/apperror"
)

// Orientation is a clockwise rotation in degrees, always one of 0, 90, 180 or 270
type Orientation int

// Rotation steps accepted by Rotate
const (
	RotateLeft  = -90
	RotateRight = 90
)

// Rotate returns the orientation after turning by delta degrees.
// Only quarter turns are accepted.
func (o Orientation) Rotate(delta int) (Orientation, error) {
	if delta != RotateLeft && delta != RotateRight {
		return o, apperror.Validation(fmt.Sprintf("rotation must be %d or %d degrees, got %d", RotateLeft, RotateRight, delta))
	}
	return Orientation((int(o) + delta + 360) % 360), nil
}

// Radians returns the angle in radians
func (o Orientation) Radians() float64 {
	return float64(o) * math.Pi / 180
}

// sincos returns exact values for quarter turns so the paint transform stays on the pixel grid
func (o Orientation) sincos() (sin, cos float64) {
	switch o {
	case 0:
		return 0, 1
	case 90:
		return 1, 0
	case 180:
		return 0, -1
	case 270:
		return -1, 0
	}
	return math.Sincos(o.Radians())
}
