package scene

import "github.com/philipparndt/gopreview/pkg/geometry"

// Mesh is an indexed triangle list with a single material
type Mesh struct {
	Positions []geometry.Vector3
	// UVs is either nil or parallel to Positions.
	UVs [][2]float64
	// Indices holds vertex triples. A nil slice means Positions is already
	// a flat triangle list.
	Indices  []int
	Material Material

	CastShadow    bool
	ReceiveShadow bool
}

// TriangleCount returns the number of triangles in the mesh
func (m *Mesh) TriangleCount() int {
	if m.Indices != nil {
		return len(m.Indices) / 3
	}
	return len(m.Positions) / 3
}

// Triangle returns the vertex indices of triangle i
func (m *Mesh) Triangle(i int) (int, int, int) {
	if m.Indices != nil {
		return m.Indices[i*3], m.Indices[i*3+1], m.Indices[i*3+2]
	}
	return i * 3, i*3 + 1, i*3 + 2
}

// HasUVs reports whether texture coordinates are usable
func (m *Mesh) HasUVs() bool {
	return len(m.UVs) == len(m.Positions) && len(m.UVs) > 0
}
