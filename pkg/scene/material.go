package scene

import (
	"image"
	"image/color"
	"math"
)

// Side selects which faces of a mesh are drawn
type Side int

const (
	FrontSide Side = iota
	BackSide
	DoubleSide
)

func (s Side) String() string {
	switch s {
	case FrontSide:
		return "front"
	case BackSide:
		return "back"
	case DoubleSide:
		return "double"
	default:
		return "unknown"
	}
}

// Color is a linear RGB color with components in [0, 1]
type Color struct {
	R, G, B float64
}

// RGB creates a color from components in [0, 1]
func RGB(r, g, b float64) Color {
	return Color{R: r, G: g, B: b}
}

// Mul multiplies two colors component-wise
func (c Color) Mul(o Color) Color {
	return Color{R: c.R * o.R, G: c.G * o.G, B: c.B * o.B}
}

// Scale multiplies every component by f
func (c Color) Scale(f float64) Color {
	return Color{R: c.R * f, G: c.G * f, B: c.B * f}
}

// NRGBA converts the color to 8 bits per channel with the given alpha in [0, 1]
func (c Color) NRGBA(alpha float64) color.NRGBA {
	return color.NRGBA{R: to8(c.R), G: to8(c.G), B: to8(c.B), A: to8(alpha)}
}

func to8(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Texture is a decoded image sampled by UV coordinates
type Texture struct {
	Name  string
	Image *image.NRGBA
}

// Surface holds the attributes every material kind shares and that survive
// conversion to an unlit material
type Surface struct {
	Color       Color
	Map         *Texture
	AlphaMap    *Texture
	Transparent bool
	Opacity     float64
	Side        Side
}

// DefaultSurface is an opaque white front-sided surface
func DefaultSurface() Surface {
	return Surface{Color: RGB(1, 1, 1), Opacity: 1, Side: FrontSide}
}

// Kind tags the concrete material type
type Kind int

const (
	KindBasic Kind = iota
	KindStandard
	KindPhysical
	KindNormal
)

func (k Kind) String() string {
	switch k {
	case KindBasic:
		return "basic"
	case KindStandard:
		return "standard"
	case KindPhysical:
		return "physical"
	case KindNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// Material is one of *BasicMaterial, *StandardMaterial, *PhysicalMaterial
// or *NormalMaterial
type Material interface {
	Kind() Kind
	Attributes() Surface
}

// BasicMaterial is drawn from its color and textures without lighting
type BasicMaterial struct {
	Name string
	Surface
}

func (m *BasicMaterial) Kind() Kind          { return KindBasic }
func (m *BasicMaterial) Attributes() Surface { return m.Surface }

// StandardMaterial is a metallic-roughness PBR material
type StandardMaterial struct {
	Name string
	Surface
	Metalness float64
	Roughness float64
	Emissive  Color
}

func (m *StandardMaterial) Kind() Kind          { return KindStandard }
func (m *StandardMaterial) Attributes() Surface { return m.Surface }

// PhysicalMaterial extends StandardMaterial with the advanced PBR layers
type PhysicalMaterial struct {
	StandardMaterial
	Clearcoat      float64
	Transmission   float64
	SheenRoughness float64
}

func (m *PhysicalMaterial) Kind() Kind { return KindPhysical }

// NormalMaterial colors faces by their normal direction
type NormalMaterial struct {
	Name string
	Side Side
}

func (m *NormalMaterial) Kind() Kind { return KindNormal }

func (m *NormalMaterial) Attributes() Surface {
	s := DefaultSurface()
	s.Side = m.Side
	return s
}

// ToUnlit replaces a physically lit material with a BasicMaterial that keeps
// its color, color map, alpha map, transparency, opacity and side. Any other
// material is returned unchanged, so the conversion is idempotent.
func ToUnlit(m Material) Material {
	switch mat := m.(type) {
	case *StandardMaterial:
		return &BasicMaterial{Name: mat.Name, Surface: mat.Surface}
	case *PhysicalMaterial:
		return &BasicMaterial{Name: mat.Name, Surface: mat.Surface}
	default:
		return m
	}
}

// MakeUnlit turns shadows off on every mesh below root and converts lit
// materials with ToUnlit. It returns how many materials were replaced.
func MakeUnlit(root *Node) int {
	replaced := 0
	for _, mesh := range root.Meshes() {
		mesh.CastShadow = false
		mesh.ReceiveShadow = false
		if mesh.Material == nil {
			continue
		}
		unlit := ToUnlit(mesh.Material)
		if unlit != mesh.Material {
			mesh.Material = unlit
			replaced++
		}
	}
	return replaced
}
