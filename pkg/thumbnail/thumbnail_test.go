package thumbnail

import (
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"
	"pgregory.net/rapid"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestTargetSize(t *testing.T) {
	tests := []struct {
		w, h, wantW, wantH int
	}{
		{800, 600, 1365, 1024},
		{800, 400, 2048, 1024},
		{600, 800, 768, 1024},
		{500, 500, 1024, 1024},
		{1, 4000, 1, 1024},
		{0, 10, 0, 0},
	}
	for _, tt := range tests {
		w, h := TargetSize(tt.w, tt.h, 1024)
		assert.Equal(t, tt.wantW, w, "%dx%d", tt.w, tt.h)
		assert.Equal(t, tt.wantH, h, "%dx%d", tt.w, tt.h)
	}
}

func TestTargetSizeFixedHeight(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := rapid.IntRange(1, 5000).Draw(t, "w")
		h := rapid.IntRange(1, 5000).Draw(t, "h")
		edge := rapid.IntRange(1, 2048).Draw(t, "edge")

		tw, th := TargetSize(w, h, edge)
		if th != edge {
			t.Fatalf("height %d, want %d", th, edge)
		}
		want := float64(edge) * float64(w) / float64(h)
		if tw < 1 || (want >= 1 && math.Abs(float64(tw)-want) > 0.5+1e-9) {
			t.Fatalf("width %d for %dx%d at %d, want %.2f", tw, w, h, edge, want)
		}
	})
}

func TestCaptureWebP(t *testing.T) {
	c := NewCapturer()
	thumb, err := c.Capture(solid(800, 600, color.NRGBA{R: 200, G: 40, B: 10, A: 255}))
	require.NoError(t, err)

	assert.Equal(t, 1365, thumb.Width)
	assert.Equal(t, 1024, thumb.Height)
	assert.Equal(t, "webp", thumb.Format)
	assert.Equal(t, "RIFF", string(thumb.Data[:4]))
	assert.Equal(t, image.Rect(0, 0, 1365, 1024), thumb.Image.Bounds())

	r, g, b, a := thumb.Image.At(682, 512).RGBA()
	assert.Equal(t, []uint32{200, 40, 10, 255}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})
}

func TestCapturePNGPortrait(t *testing.T) {
	c := &Capturer{Edge: 64, Codec: PNG{}}
	thumb, err := c.Capture(solid(30, 40, color.NRGBA{G: 255, A: 255}))
	require.NoError(t, err)

	assert.Equal(t, 48, thumb.Width)
	assert.Equal(t, 64, thumb.Height)
	assert.Equal(t, "png", thumb.Format)
	assert.Equal(t, image.Rect(0, 0, 48, 64), thumb.Image.Bounds())
}

func TestCaptureKeepsAlpha(t *testing.T) {
	thumb, err := (&Capturer{Edge: 16, Codec: PNG{}}).Capture(solid(8, 8, color.NRGBA{}))
	require.NoError(t, err)

	_, _, _, a := thumb.Image.At(8, 8).RGBA()
	assert.Zero(t, a)
}

func TestCaptureCanvasUnavailable(t *testing.T) {
	c := NewCapturer()
	c.Canvas = func(int, int) (draw.Image, error) {
		return nil, errors.New("no 2d context")
	}

	thumb, err := c.Capture(solid(8, 8, color.NRGBA{A: 255}))
	assert.Nil(t, thumb)
	assert.ErrorIs(t, err, ErrCanvasUnavailable)

	_, err = NewCapturer().Capture(image.NewNRGBA(image.Rectangle{}))
	assert.ErrorIs(t, err, ErrCanvasUnavailable)
}

func TestCodecFor(t *testing.T) {
	c, err := CodecFor("PNG")
	require.NoError(t, err)
	assert.Equal(t, "image/png", c.MIMEType())

	c, err = CodecFor(".webp")
	require.NoError(t, err)
	assert.Equal(t, "webp", c.Format())

	_, err = CodecFor("gif")
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	thumb, err := (&Capturer{Edge: 16, Codec: PNG{}}).Capture(solid(4, 2, color.NRGBA{A: 255}))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "thumb.png")
	require.NoError(t, thumb.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, thumb.Data, data)
}
