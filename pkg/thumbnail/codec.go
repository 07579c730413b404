package thumbnail

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/webp"
)

// Codec encodes captures losslessly and decodes them back
type Codec interface {
	Format() string
	MIMEType() string
	Encode(w io.Writer, img image.Image) error
	Decode(r io.Reader) (image.Image, error)
}

// WebP is the lossless WebP codec
type WebP struct{}

func (WebP) Format() string   { return "webp" }
func (WebP) MIMEType() string { return "image/webp" }

func (WebP) Encode(w io.Writer, img image.Image) error {
	return nativewebp.Encode(w, img, nil)
}

func (WebP) Decode(r io.Reader) (image.Image, error) {
	return webp.Decode(r)
}

// PNG is the PNG codec
type PNG struct{}

func (PNG) Format() string   { return "png" }
func (PNG) MIMEType() string { return "image/png" }

func (PNG) Encode(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}

func (PNG) Decode(r io.Reader) (image.Image, error) {
	return png.Decode(r)
}

// CodecFor returns the codec for a format name such as "webp" or "png"
func CodecFor(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "webp", "":
		return WebP{}, nil
	case "png":
		return PNG{}, nil
	default:
		return nil, fmt.Errorf("thumbnail: unsupported format %q", format)
	}
}
