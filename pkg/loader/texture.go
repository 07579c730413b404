package loader

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/draw"

	"github.com/philipparndt/gopreview/pkg/scene"
)

// DecodeTexture decodes PNG, JPEG or TGA image data into a texture.
// TGA has no magic bytes, so it is picked by the .tga extension of name.
func DecodeTexture(name string, data []byte) (*scene.Texture, error) {
	var (
		img image.Image
		err error
	)
	if strings.EqualFold(filepath.Ext(name), ".tga") {
		img, err = tga.Decode(bytes.NewReader(data))
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", name, err)
	}

	return &scene.Texture{Name: name, Image: toNRGBA(img)}, nil
}

// toNRGBA converts any image to NRGBA with its origin at (0, 0)
func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	if n, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
