// Package render draws scene graphs into an in-memory image with a software
// z-buffer rasterizer.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/philipparndt/gopreview/pkg/geometry"
	"github.com/philipparndt/gopreview/pkg/scene"
)

// ErrClosed is returned when rendering into a released rasterizer
var ErrClosed = errors.New("render: rasterizer closed")

const (
	ambient = 0.35
	diffuse = 0.65
)

var defaultMaterial = &scene.StandardMaterial{Name: "default", Surface: scene.DefaultSurface()}

// Stats describes the last rendered frame
type Stats struct {
	Frames    uint64
	Triangles int
	Culled    int
}

// Rasterizer renders into a fixed-size color buffer
type Rasterizer struct {
	mu         sync.Mutex
	width      int
	height     int
	background color.NRGBA
	color      *image.NRGBA
	depth      []float64
	closed     bool
	stats      Stats
	logger     *zap.Logger
}

// New allocates the color and depth buffers
func New(width, height int, background color.NRGBA, logger *zap.Logger) (*Rasterizer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("render: invalid surface size %dx%d", width, height)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Rasterizer{
		width:      width,
		height:     height,
		background: background,
		color:      image.NewNRGBA(image.Rect(0, 0, width, height)),
		depth:      make([]float64, width*height),
		logger:     logger.With(zap.String("component", "render")),
	}
	r.clear()
	return r, nil
}

// Size returns the surface size in pixels
func (r *Rasterizer) Size() (int, int) {
	return r.width, r.height
}

// Stats returns counters of the last frame
func (r *Rasterizer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Close releases the buffers. Calling it more than once is harmless.
func (r *Rasterizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.color = nil
	r.depth = nil
	r.logger.Debug("Render surface released")
	return nil
}

// Frame returns a copy of the current color buffer, or nil after Close
func (r *Rasterizer) Frame() *image.NRGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	img := image.NewNRGBA(r.color.Rect)
	copy(img.Pix, r.color.Pix)
	return img
}

func (r *Rasterizer) clear() {
	pix := r.color.Pix
	bg := r.background
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = bg.R, bg.G, bg.B, bg.A
	}
	for i := range r.depth {
		r.depth[i] = math.Inf(1)
	}
}

// view is the camera basis captured once per frame
type view struct {
	cam                *scene.Camera
	right, up, forward geometry.Vector3
	width, height      float64
}

func (v *view) toView(p geometry.Vector3) geometry.Vector3 {
	rel := p.Sub(v.cam.Position)
	return geometry.NewVector3(rel.Dot(v.right), rel.Dot(v.up), rel.Dot(v.forward))
}

type pending struct {
	verts [3]vertex
	shade shader
}

// Render draws every mesh below root as seen from cam. Opaque triangles are
// drawn first; transparent ones are blended over them without writing depth.
func (r *Rasterizer) Render(root *scene.Node, cam *scene.Camera) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	r.clear()
	r.stats = Stats{Frames: r.stats.Frames + 1}
	if root == nil || cam == nil {
		return nil
	}

	right, up, forward := cam.Basis()
	v := &view{cam: cam, right: right, up: up, forward: forward, width: float64(r.width), height: float64(r.height)}

	var transparent []pending
	root.Traverse(func(node *scene.Node, world geometry.Mat4) {
		mesh := node.Mesh
		if mesh == nil {
			return
		}
		mat := mesh.Material
		if mat == nil {
			mat = defaultMaterial
		}
		surface := mat.Attributes()
		blend := surface.Transparent

		for i := 0; i < mesh.TriangleCount(); i++ {
			p, ok := r.prepare(v, mesh, world, i, mat, surface)
			if !ok {
				r.stats.Culled++
				continue
			}
			if blend {
				transparent = append(transparent, p)
				continue
			}
			r.fillTriangle(p.verts, p.shade, false)
			r.stats.Triangles++
		}
	})

	for _, p := range transparent {
		r.fillTriangle(p.verts, p.shade, true)
		r.stats.Triangles++
	}
	return nil
}

// prepare projects triangle i and builds its shader. It reports false for
// triangles that are culled, degenerate or cross the near plane.
func (r *Rasterizer) prepare(v *view, mesh *scene.Mesh, world geometry.Mat4, i int, mat scene.Material, surface scene.Surface) (pending, bool) {
	ia, ib, ic := mesh.Triangle(i)
	n := len(mesh.Positions)
	if ia >= n || ib >= n || ic >= n {
		return pending{}, false
	}
	idx := [3]int{ia, ib, ic}

	var w [3]geometry.Vector3
	for k, j := range idx {
		w[k] = world.MulPoint(mesh.Positions[j])
	}

	normal := w[1].Sub(w[0]).Cross(w[2].Sub(w[0]))
	if normal.Length() < 1e-15 {
		return pending{}, false
	}
	normal = normal.Normalize()
	toCam := v.cam.Position.Sub(w[0])
	front := normal.Dot(toCam) > 0

	switch surface.Side {
	case scene.FrontSide:
		if !front {
			return pending{}, false
		}
	case scene.BackSide:
		if front {
			return pending{}, false
		}
	}
	if !front {
		normal = normal.Neg()
	}

	var p pending
	for k, j := range idx {
		vv := v.toView(w[k])
		if vv.Z < v.cam.Near {
			return pending{}, false
		}
		x, y, z := v.cam.ProjectView(vv, v.width, v.height)
		p.verts[k] = vertex{x: x, y: y, z: z}
		if mesh.HasUVs() {
			p.verts[k].u, p.verts[k].v = mesh.UVs[j][0], mesh.UVs[j][1]
		}
	}

	p.shade = shaderFor(mat, surface, normal, v)
	return p, true
}
