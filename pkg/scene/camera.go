package scene

import (
	"math"

	"github.com/philipparndt/gopreview/pkg/geometry"
)

// Camera is a perspective camera looking at a target point
type Camera struct {
	Position geometry.Vector3
	Up       geometry.Vector3
	FOV      float64 // Vertical field of view in degrees
	Near     float64
	Far      float64

	target geometry.Vector3
}

// NewCamera creates a camera at the origin looking down -Z
func NewCamera(fov float64) *Camera {
	return &Camera{
		Position: geometry.NewVector3(0, 0, 0),
		Up:       geometry.NewVector3(0, 1, 0),
		FOV:      fov,
		Near:     0.01,
		Far:      1000,
		target:   geometry.NewVector3(0, 0, -1),
	}
}

// LookAt aims the camera at target
func (c *Camera) LookAt(target geometry.Vector3) {
	c.target = target
}

// Target returns the point the camera is aimed at
func (c *Camera) Target() geometry.Vector3 {
	return c.target
}

// Distance returns the distance between the camera and the world origin
func (c *Camera) Distance() float64 {
	return c.Position.Length()
}

// Direction returns the unit vector from the origin toward the camera.
// A camera sitting on the origin reports +Z.
func (c *Camera) Direction() geometry.Vector3 {
	dir := c.Position.Normalize()
	if dir == (geometry.Vector3{}) {
		return geometry.NewVector3(0, 0, 1)
	}
	return dir
}

// Dolly moves the camera along its current direction so that it ends up at
// distance from the origin
func (c *Camera) Dolly(distance float64) {
	c.Position = c.Direction().Mul(distance)
}

// Basis returns the camera's right, up and forward unit vectors
func (c *Camera) Basis() (right, up, forward geometry.Vector3) {
	forward = c.target.Sub(c.Position).Normalize()
	right = forward.Cross(c.Up).Normalize()
	if right == (geometry.Vector3{}) {
		// Looking straight along Up; pick any perpendicular.
		right = forward.Cross(geometry.NewVector3(0, 0, -1)).Normalize()
	}
	up = right.Cross(forward).Normalize()
	return right, up, forward
}

// ToView transforms a world-space point into camera space, with +Z pointing
// away from the camera
func (c *Camera) ToView(point geometry.Vector3) geometry.Vector3 {
	right, up, forward := c.Basis()
	rel := point.Sub(c.Position)
	return geometry.NewVector3(rel.Dot(right), rel.Dot(up), rel.Dot(forward))
}

// ProjectView maps a camera-space point to screen coordinates. The returned
// depth is the camera-space distance along the view axis.
func (c *Camera) ProjectView(v geometry.Vector3, width, height float64) (float64, float64, float64) {
	aspect := width / height
	fovScale := math.Tan(geometry.Deg2Rad(c.FOV) / 2)

	z := v.Z
	if z < 1e-9 {
		z = 1e-9
	}

	screenX := (v.X/(z*fovScale*aspect))*(width/2) + width/2
	screenY := (-v.Y/(z*fovScale))*(height/2) + height/2
	return screenX, screenY, v.Z
}

// Project maps a world-space point to screen coordinates
func (c *Camera) Project(point geometry.Vector3, width, height float64) (float64, float64, float64) {
	return c.ProjectView(c.ToView(point), width, height)
}
