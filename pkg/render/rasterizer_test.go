package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/gopreview/pkg/geometry"
	"github.com/philipparndt/gopreview/pkg/scene"
)

var black = color.NRGBA{A: 255}

func frontCamera(z float64) *scene.Camera {
	cam := scene.NewCamera(75)
	cam.Position = geometry.NewVector3(0, 0, z)
	cam.LookAt(geometry.NewVector3(0, 0, 0))
	return cam
}

func quad(size, z float64, mat scene.Material) *scene.Node {
	n := scene.NewNode("quad")
	n.Mesh = &scene.Mesh{
		Positions: []geometry.Vector3{
			geometry.NewVector3(-size, -size, z),
			geometry.NewVector3(size, -size, z),
			geometry.NewVector3(size, size, z),
			geometry.NewVector3(-size, size, z),
		},
		UVs:      [][2]float64{{0, 1}, {1, 1}, {1, 0}, {0, 0}},
		Indices:  []int{0, 1, 2, 0, 2, 3},
		Material: mat,
	}
	return n
}

func basic(c scene.Color) *scene.BasicMaterial {
	s := scene.DefaultSurface()
	s.Color = c
	return &scene.BasicMaterial{Surface: s}
}

func newRasterizer(t *testing.T) *Rasterizer {
	t.Helper()
	r, err := New(64, 64, black, nil)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestNewInvalidSize(t *testing.T) {
	_, err := New(0, 10, black, nil)
	assert.Error(t, err)
}

func TestRenderEmptyScene(t *testing.T) {
	r, err := New(8, 4, color.NRGBA{R: 15, G: 18, B: 25, A: 255}, nil)
	require.NoError(t, err)

	require.NoError(t, r.Render(scene.NewNode("root"), frontCamera(5)))
	frame := r.Frame()
	assert.Equal(t, image.Rect(0, 0, 8, 4), frame.Bounds())
	assert.Equal(t, color.NRGBA{R: 15, G: 18, B: 25, A: 255}, frame.NRGBAAt(3, 2))
	assert.Equal(t, uint64(1), r.Stats().Frames)
}

func TestRenderTransparentBackground(t *testing.T) {
	r, err := New(64, 64, color.NRGBA{}, nil)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Render(quad(1, 0, basic(scene.RGB(1, 0, 0))), frontCamera(5)))
	frame := r.Frame()
	assert.Equal(t, color.NRGBA{}, frame.NRGBAAt(0, 0), "empty pixels keep zero alpha")
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, frame.NRGBAAt(32, 32))
}

func TestRenderBasicTriangle(t *testing.T) {
	r := newRasterizer(t)
	root := quad(1, 0, basic(scene.RGB(1, 0, 0)))

	require.NoError(t, r.Render(root, frontCamera(5)))
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, r.Frame().NRGBAAt(32, 32))
	assert.Equal(t, black, r.Frame().NRGBAAt(0, 0))
	assert.Equal(t, 2, r.Stats().Triangles)
}

func TestRenderCullsBySide(t *testing.T) {
	r := newRasterizer(t)
	mat := basic(scene.RGB(0, 1, 0))
	root := quad(1, 0, mat)
	behind := frontCamera(-5)

	require.NoError(t, r.Render(root, behind))
	assert.Equal(t, black, r.Frame().NRGBAAt(32, 32), "front faces are culled from behind")
	assert.Equal(t, 2, r.Stats().Culled)

	mat.Side = scene.DoubleSide
	require.NoError(t, r.Render(root, behind))
	assert.Equal(t, color.NRGBA{G: 255, A: 255}, r.Frame().NRGBAAt(32, 32))

	mat.Side = scene.BackSide
	require.NoError(t, r.Render(root, frontCamera(5)))
	assert.Equal(t, black, r.Frame().NRGBAAt(32, 32))
}

func TestRenderDepthOrder(t *testing.T) {
	r := newRasterizer(t)
	near := quad(1, 1, basic(scene.RGB(0, 0, 1)))
	far := quad(1, 0, basic(scene.RGB(1, 0, 0)))

	for _, order := range [][]*scene.Node{{near, far}, {far, near}} {
		root := scene.NewNode("root")
		root.Add(order...)
		require.NoError(t, r.Render(root, frontCamera(5)))
		assert.Equal(t, color.NRGBA{B: 255, A: 255}, r.Frame().NRGBAAt(32, 32))
	}
}

func TestRenderTransparentBlend(t *testing.T) {
	r := newRasterizer(t)
	mat := basic(scene.RGB(1, 1, 1))
	mat.Transparent = true
	mat.Opacity = 0.5

	require.NoError(t, r.Render(quad(1, 0, mat), frontCamera(5)))
	px := r.Frame().NRGBAAt(32, 32)
	assert.InDelta(t, 128, int(px.R), 1)
	assert.Equal(t, uint8(255), px.A)
}

func TestRenderLitAndNormal(t *testing.T) {
	r := newRasterizer(t)
	s := scene.DefaultSurface()
	s.Color = scene.RGB(0.5, 0.5, 0.5)

	require.NoError(t, r.Render(quad(1, 0, &scene.StandardMaterial{Surface: s}), frontCamera(5)))
	assert.InDelta(t, 128, int(r.Frame().NRGBAAt(32, 32).R), 1, "head-on faces get full light")

	require.NoError(t, r.Render(quad(1, 0, &scene.NormalMaterial{}), frontCamera(5)))
	px := r.Frame().NRGBAAt(32, 32)
	assert.InDelta(t, 128, int(px.R), 1)
	assert.InDelta(t, 128, int(px.G), 1)
	assert.Equal(t, uint8(255), px.B)
}

func TestRenderTexture(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{B: 255, A: 255})

	mat := basic(scene.RGB(1, 1, 1))
	mat.Map = &scene.Texture{Name: "split", Image: img}

	r := newRasterizer(t)
	require.NoError(t, r.Render(quad(1, 0, mat), frontCamera(2)))
	frame := r.Frame()
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, frame.NRGBAAt(24, 32))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, frame.NRGBAAt(40, 32))
}

func TestRenderRejectsNearPlane(t *testing.T) {
	r := newRasterizer(t)
	cam := frontCamera(0.005)

	require.NoError(t, r.Render(quad(1, 0, basic(scene.RGB(1, 1, 1))), cam))
	assert.Equal(t, 0, r.Stats().Triangles)
}

func TestFrameIsCopy(t *testing.T) {
	r := newRasterizer(t)
	frame := r.Frame()
	frame.SetNRGBA(0, 0, color.NRGBA{R: 1, A: 255})
	assert.Equal(t, black, r.Frame().NRGBAAt(0, 0))
}

func TestClose(t *testing.T) {
	r, err := New(4, 4, black, nil)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Nil(t, r.Frame())
	assert.ErrorIs(t, r.Render(scene.NewNode("x"), frontCamera(5)), ErrClosed)
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#0f1219")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0x0f, G: 0x12, B: 0x19, A: 255}, c)

	c, err = ParseHexColor("fff")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, c)

	c, err = ParseHexColor("#10203080")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0x80}, c)

	c, err = ParseHexColor("Transparent")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{}, c)

	_, err = ParseHexColor("#12345")
	assert.Error(t, err)
	_, err = ParseHexColor("#zzzzzz")
	assert.Error(t, err)
}
