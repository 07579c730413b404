package stl

import (
	"github.com/philipparndt/gopreview/pkg/geometry"
)

// Model is a parsed STL solid
type Model struct {
	Name      string
	Triangles []geometry.Triangle
}

// NewModel creates an empty STL model
func NewModel(name string) *Model {
	return &Model{Name: name}
}

// AddTriangle adds a triangle to the model
func (m *Model) AddTriangle(triangle geometry.Triangle) {
	m.Triangles = append(m.Triangles, triangle)
}

// TriangleCount returns the number of triangles in the model
func (m *Model) TriangleCount() int {
	return len(m.Triangles)
}

// BoundingBox calculates the bounding box of the entire model
func (m *Model) BoundingBox() geometry.BoundingBox {
	bbox := geometry.NewBoundingBox()
	for _, triangle := range m.Triangles {
		bbox.Extend(triangle.V1)
		bbox.Extend(triangle.V2)
		bbox.Extend(triangle.V3)
	}
	return bbox
}

// Positions flattens the triangles into a vertex list, three per facet
func (m *Model) Positions() []geometry.Vector3 {
	positions := make([]geometry.Vector3, 0, len(m.Triangles)*3)
	for _, triangle := range m.Triangles {
		positions = append(positions, triangle.V1, triangle.V2, triangle.V3)
	}
	return positions
}
