package imaging

import (
	"fmt"
	"image"
)

// DefaultSurfaceCap bounds the render surface edge in pixels
const DefaultSurfaceCap = 800

// SurfaceDim sizes a square surface that holds a width x height image at any quarter turn,
// capped at hardCap when hardCap is positive
func SurfaceDim(width, height, hardCap int) int {
	dim := max(width, height)
	if hardCap > 0 && dim > hardCap {
		dim = hardCap
	}
	return dim
}

// Surface is the off-screen raster a source is painted onto.
// Rotations only mark it stale; Render repaints once for the latest orientation.
type Surface struct {
	dim     int
	raster  *image.NRGBA
	painted Orientation
	current bool
}

// NewSurface sizes a surface for src
func NewSurface(src *SourceImage, hardCap int) *Surface {
	return &Surface{dim: SurfaceDim(src.Width, src.Height, hardCap)}
}

// Dim returns the surface edge length in pixels
func (s *Surface) Dim() int {
	return s.dim
}

// Current reports whether the surface already shows orientation o
func (s *Surface) Current(o Orientation) bool {
	return s.current && s.painted == o
}

// Invalidate forces the next Render to repaint
func (s *Surface) Invalidate() {
	s.current = false
}

// Render returns the surface painted at orientation o, repainting only when stale
func (s *Surface) Render(r Rasterizer, src *SourceImage, o Orientation) (*image.NRGBA, error) {
	if s.Current(o) {
		return s.raster, nil
	}
	raster, err := r.Paint(src.Raster, o, s.dim)
	if err != nil {
		return nil, fmt.Errorf("painting surface: %w", err)
	}
	s.raster = raster
	s.painted = o
	s.current = true
	return raster, nil
}
