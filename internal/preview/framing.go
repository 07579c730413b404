package preview

import (
	"math"

	"github.com/philipparndt/gopreview/pkg/geometry"
)

// FocalLengthToFOV maps a focal length in mm to a vertical field of view in
// degrees for the fixed sensor height
func FocalLengthToFOV(mm float64) float64 {
	return geometry.Rad2Deg(2 * math.Atan(SensorHeight/(2*mm)))
}

// FramingDistance is the camera distance at which an asset of maxDim scaled
// by scale fits the field of view with the framing margin
func FramingDistance(maxDim, scale, fovDeg float64) float64 {
	return (maxDim * scale) / (2 * math.Tan(geometry.Deg2Rad(fovDeg)/2)) * FramingMargin
}

// ZoomDistance is the camera distance for a zoom factor relative to the
// reference distance
func ZoomDistance(ref, zoom float64) float64 {
	return ref / zoom
}

// AssetRotation composes yaw, pitch and roll (degrees) in that order
func AssetRotation(v ViewState) geometry.Mat3 {
	return geometry.EulerYXZ(
		geometry.Deg2Rad(v.Yaw),
		geometry.Deg2Rad(clamp(v.Pitch, MinPitch, MaxPitch)),
		geometry.Deg2Rad(v.Roll),
	)
}

// CameraFrame is the camera placement derived from a view state
type CameraFrame struct {
	Distance float64
	FOV      float64
	Rotation geometry.Mat3
}

// FrameFor derives the camera frame of v for a reference distance
func FrameFor(v ViewState, ref float64) CameraFrame {
	return CameraFrame{
		Distance: ZoomDistance(ref, v.Zoom),
		FOV:      FocalLengthToFOV(v.FocalLength),
		Rotation: AssetRotation(v),
	}
}

// Framing returns the normalization scale and reference camera distance a
// session uses for an asset whose largest dimension is maxDim
func Framing(maxDim float64) (scale, distance float64) {
	scale = TargetSize / maxDim
	return scale, FramingDistance(maxDim, scale, BaseFOV)
}
