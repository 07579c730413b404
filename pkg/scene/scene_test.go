package scene

import (
	"testing"

	"github.com/philipparndt/gopreview/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// boxMesh returns the 8 corners of an axis-aligned box as a point cloud
// mesh; only the bounds matter for these tests.
func boxMesh(center, size geometry.Vector3, mat Material) *Mesh {
	half := size.Mul(0.5)
	bbox := geometry.BoundingBox{Min: center.Sub(half), Max: center.Add(half)}
	corners := bbox.Corners()
	return &Mesh{
		Positions:     corners[:],
		Indices:       []int{0, 1, 2, 1, 3, 2, 4, 5, 6, 5, 7, 6},
		Material:      mat,
		CastShadow:    true,
		ReceiveShadow: true,
	}
}

func TestNodeWorldMatrix(t *testing.T) {
	parent := NewNode("parent")
	parent.Transform.Position = geometry.NewVector3(1, 0, 0)
	child := NewNode("child")
	child.Transform.Scale = geometry.NewVector3(2, 2, 2)
	parent.Add(child)

	p := child.WorldMatrix().MulPoint(geometry.NewVector3(1, 1, 1))
	assert.True(t, p.ApproxEqual(geometry.NewVector3(3, 2, 2), 1e-12), "got %v", p)
}

func TestNodeAddReparents(t *testing.T) {
	a := NewNode("a")
	b := NewNode("b")
	c := NewNode("c")
	a.Add(c)
	b.Add(c)

	assert.Empty(t, a.Children())
	assert.Equal(t, []*Node{c}, b.Children())
	assert.Same(t, b, c.Parent())
}

func TestNormalizeCentersAndScales(t *testing.T) {
	asset := NewNode("asset")
	asset.Mesh = boxMesh(geometry.NewVector3(1, 1, 1), geometry.NewVector3(2, 4, 8), &BasicMaterial{Surface: DefaultSurface()})

	norm, err := Normalize(asset, 3)
	require.NoError(t, err)

	assert.InDelta(t, 0.375, norm.Scale, 1e-12)
	assert.True(t, norm.Center.ApproxEqual(geometry.NewVector3(1, 1, 1), 1e-12))
	assert.Equal(t, 8.0, norm.MaxDimension())

	bbox := norm.Pivot.BoundingBox()
	assert.True(t, bbox.Center().ApproxEqual(geometry.Vector3{}, 1e-9), "center %v", bbox.Center())
	assert.InDelta(t, 3.0, bbox.MaxDimension(), 1e-9)
	assert.True(t, bbox.Size().ApproxEqual(geometry.NewVector3(0.75, 1.5, 3), 1e-9))
}

func TestNormalizeEmptyAsset(t *testing.T) {
	_, err := Normalize(NewNode("empty"), 3)
	assert.ErrorIs(t, err, ErrEmptyBounds)

	flat := NewNode("point")
	flat.Mesh = &Mesh{Positions: []geometry.Vector3{{X: 1, Y: 1, Z: 1}}}
	_, err = Normalize(flat, 3)
	assert.ErrorIs(t, err, ErrEmptyBounds)
}

func TestNormalizeLargestDimensionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		center := geometry.NewVector3(
			rapid.Float64Range(-1e3, 1e3).Draw(t, "cx"),
			rapid.Float64Range(-1e3, 1e3).Draw(t, "cy"),
			rapid.Float64Range(-1e3, 1e3).Draw(t, "cz"),
		)
		size := geometry.NewVector3(
			rapid.Float64Range(1e-3, 1e3).Draw(t, "sx"),
			rapid.Float64Range(1e-3, 1e3).Draw(t, "sy"),
			rapid.Float64Range(1e-3, 1e3).Draw(t, "sz"),
		)

		asset := NewNode("asset")
		asset.Mesh = boxMesh(center, size, nil)
		norm, err := Normalize(asset, 3)
		if err != nil {
			t.Fatalf("normalize: %v", err)
		}

		bbox := norm.Pivot.BoundingBox()
		if d := bbox.MaxDimension(); d < 3-1e-6 || d > 3+1e-6 {
			t.Fatalf("largest dimension %v, want 3", d)
		}
		if c := bbox.Center(); !c.ApproxEqual(geometry.Vector3{}, 1e-6) {
			t.Fatalf("center %v, want origin", c)
		}
	})
}

func TestToUnlitPreservesSurface(t *testing.T) {
	tex := &Texture{Name: "albedo"}
	alpha := &Texture{Name: "alpha"}
	surface := Surface{
		Color:       RGB(0.2, 0.4, 0.6),
		Map:         tex,
		AlphaMap:    alpha,
		Transparent: true,
		Opacity:     0.5,
		Side:        DoubleSide,
	}

	standard := &StandardMaterial{Name: "std", Surface: surface, Metalness: 1, Roughness: 0.2}
	physical := &PhysicalMaterial{StandardMaterial: StandardMaterial{Name: "phys", Surface: surface}, Clearcoat: 1}

	for _, m := range []Material{standard, physical} {
		unlit, ok := ToUnlit(m).(*BasicMaterial)
		require.True(t, ok, "%s should become basic", m.Kind())
		assert.Equal(t, surface, unlit.Surface)
		assert.Same(t, tex, unlit.Map)
		assert.Same(t, alpha, unlit.AlphaMap)
	}
}

func TestToUnlitPassesThroughOtherKinds(t *testing.T) {
	basic := &BasicMaterial{Surface: DefaultSurface()}
	normal := &NormalMaterial{Side: BackSide}

	assert.Same(t, basic, ToUnlit(basic))
	assert.Same(t, normal, ToUnlit(normal))
}

func TestMakeUnlitIsIdempotent(t *testing.T) {
	root := NewNode("root")
	lit := NewNode("lit")
	lit.Mesh = boxMesh(geometry.Vector3{}, geometry.NewVector3(1, 1, 1), &StandardMaterial{Surface: DefaultSurface()})
	phys := NewNode("phys")
	phys.Mesh = boxMesh(geometry.Vector3{}, geometry.NewVector3(1, 1, 1), &PhysicalMaterial{StandardMaterial: StandardMaterial{Surface: DefaultSurface()}})
	other := NewNode("other")
	other.Mesh = boxMesh(geometry.Vector3{}, geometry.NewVector3(1, 1, 1), &NormalMaterial{})
	root.Add(lit, phys, other)

	assert.Equal(t, 2, MakeUnlit(root))
	first := make([]Material, 0, 3)
	for _, m := range root.Meshes() {
		first = append(first, m.Material)
		assert.False(t, m.CastShadow)
		assert.False(t, m.ReceiveShadow)
	}

	assert.Equal(t, 0, MakeUnlit(root))
	for i, m := range root.Meshes() {
		assert.Same(t, first[i], m.Material, "mesh %d was rewrapped", i)
	}
	assert.Equal(t, KindBasic, lit.Mesh.Material.Kind())
	assert.Equal(t, KindBasic, phys.Mesh.Material.Kind())
	assert.Equal(t, KindNormal, other.Mesh.Material.Kind())
}

func TestCameraDollyKeepsDirection(t *testing.T) {
	cam := NewCamera(75)
	cam.Position = geometry.NewVector3(0, 3, 4)
	cam.LookAt(geometry.Vector3{})

	cam.Dolly(10)

	assert.InDelta(t, 10, cam.Distance(), 1e-12)
	assert.True(t, cam.Direction().ApproxEqual(geometry.NewVector3(0, 0.6, 0.8), 1e-12))
}

func TestCameraProjectCenter(t *testing.T) {
	cam := NewCamera(90)
	cam.Position = geometry.NewVector3(0, 0, 5)
	cam.LookAt(geometry.Vector3{})

	x, y, depth := cam.Project(geometry.Vector3{}, 200, 100)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 50, y, 1e-9)
	assert.InDelta(t, 5, depth, 1e-9)

	// With a 90° vertical FOV a point at height z sits on the top edge.
	_, top, _ := cam.Project(geometry.NewVector3(0, 5, 0), 200, 100)
	assert.InDelta(t, 0, top, 1e-9)
}
