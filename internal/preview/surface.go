package preview

import (
	"image"
	"image/color"

	"go.uber.org/zap"

	"github.com/philipparndt/gopreview/pkg/render"
	"github.com/philipparndt/gopreview/pkg/scene"
)

// Surface is the render target of a session
type Surface interface {
	Size() (width, height int)
	Render(root *scene.Node, cam *scene.Camera) error
	// Frame returns a copy of the last rendered image.
	Frame() *image.NRGBA
	Close() error
}

// SurfaceFactory acquires a render surface of the given size
type SurfaceFactory func(width, height int) (Surface, error)

// RasterSurface returns a factory for software rasterizer surfaces
func RasterSurface(background color.NRGBA, logger *zap.Logger) SurfaceFactory {
	return func(width, height int) (Surface, error) {
		return render.New(width, height, background, logger)
	}
}
