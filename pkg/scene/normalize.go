package scene

import (
	"errors"
	"math"

	"github.com/philipparndt/gopreview/pkg/geometry"
)

// ErrEmptyBounds is returned when an asset has no extent to normalize
var ErrEmptyBounds = errors.New("scene: asset has empty or degenerate bounds")

// Normalization describes how an asset was placed into the preview scene
type Normalization struct {
	// Pivot is the new root. Rotating or scaling it turns the asset about
	// the world origin.
	Pivot *Node
	// Center and Size are the asset bounds before normalization.
	Center geometry.Vector3
	Size   geometry.Vector3
	// Scale is the uniform factor applied on all three axes.
	Scale float64
}

// MaxDimension returns the largest asset dimension before scaling
func (n Normalization) MaxDimension() float64 {
	return n.Size.MaxComponent()
}

// Normalize centers asset on the world origin and scales it uniformly so its
// largest bounding-box dimension equals targetSize. The asset is detached
// from any parent and placed under a fresh pivot node.
func Normalize(asset *Node, targetSize float64) (Normalization, error) {
	if asset.parent != nil {
		world := asset.WorldMatrix()
		asset.parent.Remove(asset)
		t, r, s := world.DecomposeTRS()
		asset.Transform = Transform{Position: t, Rotation: r, Scale: s}
	}

	bbox := asset.BoundingBox()
	maxDim := bbox.MaxDimension()
	if bbox.IsEmpty() || maxDim <= 0 || math.IsNaN(maxDim) || math.IsInf(maxDim, 0) {
		return Normalization{}, ErrEmptyBounds
	}

	center := bbox.Center()
	scale := targetSize / maxDim

	asset.Transform.Position = asset.Transform.Position.Sub(center)

	pivot := NewNode("pivot")
	pivot.Transform.Scale = geometry.NewVector3(scale, scale, scale)
	pivot.Add(asset)

	return Normalization{
		Pivot:  pivot,
		Center: center,
		Size:   bbox.Size(),
		Scale:  scale,
	}, nil
}
