package imaging

import (
	"fmt"
	"image"

	"github.com/pigfarm/receipt-capture/internal/apperror"
)

// Codec is an output image format
type Codec struct {
	MimeType  string
	Extension string
}

// Supported output codecs
var (
	PNG  = Codec{MimeType: "image/png", Extension: "png"}
	WebP = Codec{MimeType: "image/webp", Extension: "webp"}
	JPEG = Codec{MimeType: "image/jpeg", Extension: "jpg"}
)

const rotatedBaseName = "rotated_image"

// CodecFor picks the output codec for an original MIME type.
// PNG and WebP are kept by exact match; everything else, including "", becomes JPEG.
func CodecFor(originalMimeType string) Codec {
	switch originalMimeType {
	case PNG.MimeType:
		return PNG
	case WebP.MimeType:
		return WebP
	default:
		return JPEG
	}
}

// Asset is a named binary image ready for upload
type Asset struct {
	Filename string
	MimeType string
	Data     []byte
}

// EncodeAsset re-encodes a rendered surface as rotated_image.<ext>, keeping the
// original format family. No asset is returned when the codec fails.
func EncodeAsset(r Rasterizer, surface image.Image, originalMimeType string) (*Asset, error) {
	codec := CodecFor(originalMimeType)
	data, err := r.Encode(surface, codec)
	if err != nil {
		return nil, apperror.Encoding("encoding rotated image", err)
	}
	if len(data) == 0 {
		return nil, apperror.Encoding("encoding rotated image", fmt.Errorf("%s encoder produced no data", codec.Extension))
	}
	return &Asset{
		Filename: fmt.Sprintf("%s.%s", rotatedBaseName, codec.Extension),
		MimeType: codec.MimeType,
		Data:     data,
	}, nil
}
