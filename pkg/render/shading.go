package render

import (
	"math"

	"github.com/philipparndt/gopreview/pkg/geometry"
	"github.com/philipparndt/gopreview/pkg/scene"
)

// shaderFor builds the fragment shader of one face. normal is the unit world
// normal facing the camera.
func shaderFor(mat scene.Material, surface scene.Surface, normal geometry.Vector3, v *view) shader {
	switch m := mat.(type) {
	case *scene.NormalMaterial:
		// View-space normal with +Z toward the camera, mapped to [0, 1]
		n := geometry.NewVector3(normal.Dot(v.right), normal.Dot(v.up), -normal.Dot(v.forward))
		col := scene.RGB(n.X*0.5+0.5, n.Y*0.5+0.5, n.Z*0.5+0.5)
		return func(_, _ float64) (scene.Color, float64) { return col, 1 }

	case *scene.BasicMaterial:
		return surfaceShader(surface, 1, scene.Color{})

	case *scene.StandardMaterial:
		return surfaceShader(surface, lambert(normal, v), m.Emissive)

	case *scene.PhysicalMaterial:
		return surfaceShader(surface, lambert(normal, v), m.Emissive)

	default:
		return surfaceShader(surface, lambert(normal, v), scene.Color{})
	}
}

// lambert is the intensity of a headlight shining along the view direction
func lambert(normal geometry.Vector3, v *view) float64 {
	d := -normal.Dot(v.forward)
	if d < 0 {
		d = 0
	}
	return ambient + diffuse*d
}

func surfaceShader(s scene.Surface, intensity float64, emissive scene.Color) shader {
	base := s.Color.Scale(intensity)
	opacity := s.Opacity
	return func(u, v float64) (scene.Color, float64) {
		col := base
		alpha := opacity
		if s.Map != nil {
			texel, a := sample(s.Map, u, v)
			col = col.Mul(texel)
			alpha *= a
		}
		if s.AlphaMap != nil {
			// Alpha maps are read from the green channel
			texel, _ := sample(s.AlphaMap, u, v)
			alpha *= texel.G
		}
		col = scene.RGB(col.R+emissive.R, col.G+emissive.G, col.B+emissive.B)
		return col, alpha
	}
}

// sample reads the nearest texel with repeat wrapping
func sample(t *scene.Texture, u, v float64) (scene.Color, float64) {
	img := t.Image
	if img == nil {
		return scene.RGB(1, 1, 1), 1
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return scene.RGB(1, 1, 1), 1
	}

	u -= math.Floor(u)
	v -= math.Floor(v)
	x := int(u * float64(w))
	y := int(v * float64(h))
	if x >= w {
		x = w - 1
	}
	if y >= h {
		y = h - 1
	}

	c := img.NRGBAAt(b.Min.X+x, b.Min.Y+y)
	return scene.RGB(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255), float64(c.A) / 255
}
