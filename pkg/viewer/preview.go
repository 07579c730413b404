// Package viewer provides a fyne widget showing preview frames
package viewer

import (
	"image"
	"math"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

const (
	// DegreesPerPixel converts drag distance to rotation
	DegreesPerPixel = 0.4
	// ZoomPerScroll is the zoom factor for one scroll step of 10 units
	ZoomPerScroll = 1.1
)

// Controller receives the gestures made on the widget
type Controller interface {
	Orbit(dYaw, dPitch float64)
	ZoomBy(factor float64)
}

// Preview displays the latest frame and turns drag into rotation and
// scroll into zoom
type Preview struct {
	widget.BaseWidget

	controller Controller
	raster     *canvas.Image

	mu    sync.Mutex
	frame image.Image
}

// NewPreview creates a preview widget. controller may be nil.
func NewPreview(controller Controller) *Preview {
	p := &Preview{controller: controller}
	p.raster = canvas.NewImageFromImage(nil)
	p.raster.FillMode = canvas.ImageFillContain
	p.raster.ScaleMode = canvas.ImageScaleFastest
	p.ExtendBaseWidget(p)
	return p
}

// SetController replaces the gesture receiver
func (p *Preview) SetController(c Controller) {
	p.mu.Lock()
	p.controller = c
	p.mu.Unlock()
}

// SetFrame shows img. It may be called from any goroutine.
func (p *Preview) SetFrame(img image.Image) {
	p.mu.Lock()
	p.frame = img
	p.mu.Unlock()

	fyne.Do(func() {
		p.mu.Lock()
		p.raster.Image = p.frame
		p.mu.Unlock()
		p.raster.Refresh()
	})
}

// Frame returns the frame last passed to SetFrame
func (p *Preview) Frame() image.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame
}

func (p *Preview) current() Controller {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.controller
}

// Dragged rotates: horizontal drag changes yaw, vertical drag pitch
func (p *Preview) Dragged(event *fyne.DragEvent) {
	if c := p.current(); c != nil {
		dYaw, dPitch := DragToRotation(event.Dragged.DX, event.Dragged.DY)
		c.Orbit(dYaw, dPitch)
	}
}

// DragEnd implements fyne.Draggable
func (p *Preview) DragEnd() {}

// Scrolled zooms in on scroll up
func (p *Preview) Scrolled(event *fyne.ScrollEvent) {
	if c := p.current(); c != nil {
		c.ZoomBy(ScrollToZoom(event.Scrolled.DY))
	}
}

// CreateRenderer implements fyne.Widget
func (p *Preview) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(p.raster)
}

// MinSize keeps the preview usable in small windows
func (p *Preview) MinSize() fyne.Size {
	return fyne.NewSize(320, 240)
}

// DragToRotation maps a drag delta in pixels to yaw and pitch in degrees
func DragToRotation(dx, dy float32) (dYaw, dPitch float64) {
	return float64(dx) * DegreesPerPixel, float64(dy) * DegreesPerPixel
}

// ScrollToZoom maps a scroll delta to a multiplicative zoom factor
func ScrollToZoom(dy float32) float64 {
	return math.Pow(ZoomPerScroll, float64(dy)/10)
}
