package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	"image/png"
	"math"
	"strings"

	"github.com/gen2brain/heic"
	"github.com/gen2brain/webp"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Rasterizer decodes, transforms and encodes rasters
type Rasterizer interface {
	// Decode decodes image bytes of the given MIME type
	Decode(data []byte, mimeType string) (image.Image, error)
	// Paint draws src onto a size x size surface rotated about its center
	Paint(src image.Image, angle Orientation, size int) (*image.NRGBA, error)
	// Encode serializes a raster with the given codec
	Encode(img image.Image, codec Codec) ([]byte, error)
}

// Software is a pure Go Rasterizer
type Software struct {
	// Interpolator used when painting; draw.BiLinear when nil
	Interpolator draw.Interpolator
	// JPEGQuality in [1,100]; 92 when zero
	JPEGQuality int
	// WebPQuality in [0,100]; 92 when zero
	WebPQuality int
}

// NewSoftware creates a Software rasterizer with default settings
func NewSoftware() *Software {
	return &Software{}
}

// Decode decodes JPEG, PNG, GIF, WebP and HEIC/HEIF data
func (s *Software) Decode(data []byte, mimeType string) (image.Image, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	switch {
	case isHEICFormat(data) || isHEICMimeType(mimeType):
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	case isWebPFormat(data) || mimeType == "image/webp":
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding WebP image: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if strings.Contains(err.Error(), "unknown format") {
			return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, WebP, HEIC, HEIF, PDF. Error: %w", err)
		}
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// Paint translates to the surface center, rotates by angle and draws src
// scaled uniformly to fit the surface. Corners that leave the surface are clipped.
func (s *Software) Paint(src image.Image, angle Orientation, size int) (*image.NRGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid surface size %d", size)
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("source image is empty")
	}

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))

	w, h := float64(b.Dx()), float64(b.Dy())
	dim := float64(size)
	scale := math.Min(dim/w, dim/h)
	sin, cos := angle.sincos()

	// top-left of the scaled image relative to the pivot
	x0 := -w / 2 * scale
	y0 := -h / 2 * scale
	minX, minY := float64(b.Min.X), float64(b.Min.Y)

	a, bb := cos*scale, -sin*scale
	d, e := sin*scale, cos*scale
	m := f64.Aff3{
		a, bb, cos*x0 - sin*y0 + dim/2 - (a*minX + bb*minY),
		d, e, sin*x0 + cos*y0 + dim/2 - (d*minX + e*minY),
	}

	s.interpolator().Transform(dst, m, src, b, draw.Over, nil)
	return dst, nil
}

// Encode serializes img as PNG, WebP or JPEG
func (s *Software) Encode(img image.Image, codec Codec) ([]byte, error) {
	var buf bytes.Buffer
	switch codec {
	case PNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encoding PNG: %w", err)
		}
	case WebP:
		if err := webp.Encode(&buf, img, webp.Options{Quality: qualityOrDefault(s.WebPQuality)}); err != nil {
			return nil, fmt.Errorf("encoding WebP: %w", err)
		}
	case JPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: qualityOrDefault(s.JPEGQuality)}); err != nil {
			return nil, fmt.Errorf("encoding JPEG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported codec %q", codec.MimeType)
	}
	return buf.Bytes(), nil
}

func (s *Software) interpolator() draw.Interpolator {
	if s.Interpolator != nil {
		return s.Interpolator
	}
	return draw.BiLinear
}

// qualityOrDefault matches the 0.92 default browsers use for lossy canvas exports
func qualityOrDefault(q int) int {
	if q <= 0 || q > 100 {
		return 92
	}
	return q
}
