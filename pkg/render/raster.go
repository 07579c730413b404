package render

import (
	"math"

	"github.com/philipparndt/gopreview/pkg/scene"
)

// vertex is a projected vertex: screen position, view depth and texture
// coordinates
type vertex struct {
	x, y, z float64
	u, v    float64
}

// shader returns the color and alpha of a fragment at texture coordinates
// (u, v)
type shader func(u, v float64) (scene.Color, float64)

func edge(a, b vertex, px, py float64) float64 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// fillTriangle rasterizes a triangle with depth testing, sampling pixel
// centers. Depth and texture coordinates are interpolated perspective
// correct. Blended fragments are composited over the buffer and leave the
// depth buffer untouched.
func (r *Rasterizer) fillTriangle(t [3]vertex, shade shader, blend bool) {
	a, b, c := t[0], t[1], t[2]

	area := edge(a, b, c.x, c.y)
	if math.Abs(area) < 1e-12 {
		return
	}

	minX := int(math.Max(0, math.Floor(math.Min(a.x, math.Min(b.x, c.x)))))
	maxX := int(math.Min(float64(r.width-1), math.Ceil(math.Max(a.x, math.Max(b.x, c.x)))))
	minY := int(math.Max(0, math.Floor(math.Min(a.y, math.Min(b.y, c.y)))))
	maxY := int(math.Min(float64(r.height-1), math.Ceil(math.Max(a.y, math.Max(b.y, c.y)))))

	iza, izb, izc := 1/a.z, 1/b.z, 1/c.z
	pix := r.color.Pix
	stride := r.color.Stride

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5

			w0 := edge(b, c, px, py) / area
			w1 := edge(c, a, px, py) / area
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			iz := w0*iza + w1*izb + w2*izc
			z := 1 / iz
			di := y*r.width + x
			if z >= r.depth[di] {
				continue
			}

			u := (w0*a.u*iza + w1*b.u*izb + w2*c.u*izc) * z
			v := (w0*a.v*iza + w1*b.v*izb + w2*c.v*izc) * z
			col, alpha := shade(u, v)

			o := y*stride + x*4
			if blend {
				if alpha <= 0 {
					continue
				}
				blendPixel(pix[o:o+4], col, alpha)
				continue
			}

			c8 := col.NRGBA(1)
			pix[o], pix[o+1], pix[o+2], pix[o+3] = c8.R, c8.G, c8.B, 255
			r.depth[di] = z
		}
	}
}

// blendPixel composites col with alpha over an opaque destination pixel
func blendPixel(dst []uint8, col scene.Color, alpha float64) {
	if alpha > 1 {
		alpha = 1
	}
	src := col.NRGBA(1)
	mix := func(d, s uint8) uint8 {
		return uint8(float64(d)*(1-alpha) + float64(s)*alpha + 0.5)
	}
	dst[0] = mix(dst[0], src.R)
	dst[1] = mix(dst[1], src.G)
	dst[2] = mix(dst[2], src.B)
	dst[3] = 255
}
