// Package thumbnail turns rendered frames into encoded still images.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"
	"os"

	"golang.org/x/image/draw"
)

// DefaultEdge is the height of a capture in pixels
const DefaultEdge = 1024

// ErrCanvasUnavailable is returned when no drawing canvas can be obtained
var ErrCanvasUnavailable = errors.New("thumbnail: canvas unavailable")

// CanvasProvider allocates the image a capture is drawn into
type CanvasProvider func(width, height int) (draw.Image, error)

// NewCanvas allocates an NRGBA canvas
func NewCanvas(width, height int) (draw.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrCanvasUnavailable
	}
	return image.NewNRGBA(image.Rect(0, 0, width, height)), nil
}

// Thumbnail is an encoded capture together with its decoded image
type Thumbnail struct {
	Width  int
	Height int
	Format string
	Data   []byte
	Image  image.Image
}

// WriteFile stores the encoded bytes at path
func (t *Thumbnail) WriteFile(path string) error {
	if err := os.WriteFile(path, t.Data, 0o644); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}
	return nil
}

// TargetSize scales (width, height) to a height of edge, preserving the
// aspect ratio. A landscape frame comes out wider than edge.
func TargetSize(width, height, edge int) (int, int) {
	if width <= 0 || height <= 0 || edge <= 0 {
		return 0, 0
	}
	aspect := float64(width) / float64(height)
	return max(1, int(math.Round(float64(edge)*aspect))), edge
}

// Capturer rescales frames and encodes them
type Capturer struct {
	Edge   int
	Codec  Codec
	Canvas CanvasProvider
}

// NewCapturer creates a capturer writing lossless WebP at DefaultEdge
func NewCapturer() *Capturer {
	return &Capturer{Edge: DefaultEdge, Codec: WebP{}, Canvas: NewCanvas}
}

// Capture draws frame onto a canvas c.Edge pixels high, encodes it
// and decodes the result back into an image
func (c *Capturer) Capture(frame image.Image) (*Thumbnail, error) {
	if frame == nil || frame.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty frame", ErrCanvasUnavailable)
	}

	edge := c.Edge
	if edge <= 0 {
		edge = DefaultEdge
	}
	codec := c.Codec
	if codec == nil {
		codec = WebP{}
	}
	provide := c.Canvas
	if provide == nil {
		provide = NewCanvas
	}

	b := frame.Bounds()
	w, h := TargetSize(b.Dx(), b.Dy(), edge)
	canvas, err := provide(w, h)
	if err != nil {
		if errors.Is(err, ErrCanvasUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCanvasUnavailable, err)
	}
	if canvas == nil {
		return nil, ErrCanvasUnavailable
	}

	draw.CatmullRom.Scale(canvas, canvas.Bounds(), frame, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := codec.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode %s: %w", codec.Format(), err)
	}
	decoded, err := codec.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", codec.Format(), err)
	}

	return &Thumbnail{
		Width:  w,
		Height: h,
		Format: codec.Format(),
		Data:   buf.Bytes(),
		Image:  decoded,
	}, nil
}
