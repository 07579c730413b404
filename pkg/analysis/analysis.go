// Package analysis reports statistics about a loaded asset
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/philipparndt/gopreview/pkg/geometry"
	"github.com/philipparndt/gopreview/pkg/scene"
)

// EdgeInfo is one triangle edge in world space
type EdgeInfo struct {
	Start  geometry.Vector3
	End    geometry.Vector3
	Length float64
	Mesh   int
	// Triangle is the triangle index within Mesh.
	Triangle int
}

// Framing returns the normalization scale and camera distance used to
// preview an asset with the given largest dimension
type Framing func(maxDim float64) (scale, distance float64)

// Report contains statistics of an asset
type Report struct {
	Name          string
	Meshes        int
	Triangles     int
	Vertices      int
	Materials     map[scene.Kind]int
	BoundingBox   geometry.BoundingBox
	Dimensions    geometry.Vector3
	SurfaceArea   float64
	Textured      int
	MinEdgeLength float64
	MaxEdgeLength float64
	AvgEdgeLength float64
	Edges         []EdgeInfo

	// Scale and FramingDistance are only set when a Framing is given.
	Scale           float64
	FramingDistance float64
}

// AnalyzeAsset walks the scene graph below root. Geometry is measured in
// world space so node transforms are honored.
func AnalyzeAsset(root *scene.Node, frame Framing) *Report {
	r := &Report{
		Name:        root.Name,
		Materials:   make(map[scene.Kind]int),
		BoundingBox: geometry.NewBoundingBox(),
	}

	seen := make(map[scene.Material]bool)
	minLength := math.MaxFloat64
	total := 0.0

	root.Traverse(func(node *scene.Node, world geometry.Mat4) {
		mesh := node.Mesh
		if mesh == nil {
			return
		}
		meshIndex := r.Meshes
		r.Meshes++
		r.Vertices += len(mesh.Positions)
		if mesh.HasUVs() {
			r.Textured++
		}
		if mesh.Material != nil && !seen[mesh.Material] {
			seen[mesh.Material] = true
			r.Materials[mesh.Material.Kind()]++
		}

		n := mesh.TriangleCount()
		for i := 0; i < n; i++ {
			a, b, c := mesh.Triangle(i)
			if a >= len(mesh.Positions) || b >= len(mesh.Positions) || c >= len(mesh.Positions) {
				continue
			}
			tri := geometry.Triangle{
				V1: world.MulPoint(mesh.Positions[a]),
				V2: world.MulPoint(mesh.Positions[b]),
				V3: world.MulPoint(mesh.Positions[c]),
			}
			r.Triangles++
			r.SurfaceArea += tri.Area()
			r.BoundingBox.Extend(tri.V1)
			r.BoundingBox.Extend(tri.V2)
			r.BoundingBox.Extend(tri.V3)

			for _, e := range [3][2]geometry.Vector3{{tri.V1, tri.V2}, {tri.V2, tri.V3}, {tri.V3, tri.V1}} {
				length := e[0].Distance(e[1])
				r.Edges = append(r.Edges, EdgeInfo{
					Start:    e[0],
					End:      e[1],
					Length:   length,
					Mesh:     meshIndex,
					Triangle: i,
				})
				total += length
				minLength = math.Min(minLength, length)
				r.MaxEdgeLength = math.Max(r.MaxEdgeLength, length)
			}
		}
	})

	if len(r.Edges) > 0 {
		r.MinEdgeLength = minLength
		r.AvgEdgeLength = total / float64(len(r.Edges))
	}
	if !r.BoundingBox.IsEmpty() {
		r.Dimensions = r.BoundingBox.Size()
		if frame != nil && r.Dimensions.MaxComponent() > 0 {
			r.Scale, r.FramingDistance = frame(r.Dimensions.MaxComponent())
		}
	}
	return r
}

// FindLongestEdges returns the count longest edges
func FindLongestEdges(r *Report, count int) []EdgeInfo {
	return sortedEdges(r, count, func(a, b float64) bool { return a > b })
}

// FindShortestEdges returns the count shortest edges
func FindShortestEdges(r *Report, count int) []EdgeInfo {
	return sortedEdges(r, count, func(a, b float64) bool { return a < b })
}

func sortedEdges(r *Report, count int, less func(a, b float64) bool) []EdgeInfo {
	edges := make([]EdgeInfo, len(r.Edges))
	copy(edges, r.Edges)
	sort.SliceStable(edges, func(i, j int) bool {
		return less(edges[i].Length, edges[j].Length)
	})
	if count < 0 {
		count = 0
	}
	if count > len(edges) {
		count = len(edges)
	}
	return edges[:count]
}

// MaterialSummary lists material counts per kind in a stable order
func (r *Report) MaterialSummary() string {
	kinds := make([]scene.Kind, 0, len(r.Materials))
	for k := range r.Materials {
		kinds = append(kinds, k)
	}
	if len(kinds) == 0 {
		return "none"
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%d %s", r.Materials[k], k)
	}
	return strings.Join(parts, ", ")
}

// FormatMeasurement formats a value with a unit
func FormatMeasurement(value float64, unit string) string {
	if unit == "" {
		unit = "units"
	}
	return fmt.Sprintf("%.3f %s", value, unit)
}

// FormatVector formats a 3D vector
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}
