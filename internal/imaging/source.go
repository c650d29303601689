package imaging

import (
	"encoding/base64"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pigfarm/receipt-capture/internal/apperror"
)

// SourceImage is the user's original selection. It is never modified after Load.
type SourceImage struct {
	Filename string
	MimeType string
	Data     []byte
	Width    int
	Height   int
	Raster   image.Image
}

// Load validates a selected file and decodes it.
// An empty or generic declared type is replaced by the sniffed type.
// PDFs are rendered from their first page into a PNG source.
func Load(r Rasterizer, filename string, data []byte, declaredType string) (*SourceImage, error) {
	if len(data) == 0 {
		return nil, apperror.Validation("no image selected")
	}

	mimeType := strings.ToLower(strings.TrimSpace(declaredType))
	detected := mimetype.Detect(data)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = detected.String()
	}

	if mimeType == "application/pdf" || detected.Is("application/pdf") {
		pngData, err := renderPDFPage(data)
		if err != nil {
			return nil, &apperror.Error{Kind: apperror.KindValidation, Message: "could not read PDF receipt", Err: err}
		}
		data = pngData
		mimeType = PNG.MimeType
		filename = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".png"
	}

	if !strings.HasPrefix(mimeType, "image/") {
		return nil, apperror.Validation(fmt.Sprintf("selected file is not an image (%s)", mimeType))
	}

	raster, err := r.Decode(data, mimeType)
	if err != nil {
		return nil, &apperror.Error{Kind: apperror.KindValidation, Message: "could not decode selected image", Err: err}
	}
	bounds := raster.Bounds()

	if filename == "" || filename == ".png" {
		filename = "receipt"
	}

	return &SourceImage{
		Filename: filename,
		MimeType: mimeType,
		Data:     data,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Raster:   raster,
	}, nil
}

// Asset returns the original bytes for upload, unmodified
func (s *SourceImage) Asset() *Asset {
	return &Asset{
		Filename: s.Filename,
		MimeType: s.MimeType,
		Data:     s.Data,
	}
}

// DataURL returns the original bytes as a data URL for previews
func (s *SourceImage) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", s.MimeType, base64.StdEncoding.EncodeToString(s.Data))
}
