package preview

import (
	"errors"
	"fmt"
	"math"
)

const (
	// TargetSize is the largest dimension of a normalized asset in world units.
	TargetSize = 3.0
	// BaseFOV is the vertical field of view the camera starts with, in degrees.
	BaseFOV = 75.0
	// FramingMargin is the headroom applied to the framing distance.
	FramingMargin = 1.5
	// SensorHeight is the film height used by the focal length model, in mm.
	SensorHeight = 36.0

	MinPitch       = -90.0
	MaxPitch       = 90.0
	MinFocalLength = 20.0
	MaxFocalLength = 200.0
)

// ErrInvalidView is returned for view states with a non-positive zoom or
// non-finite values
var ErrInvalidView = errors.New("preview: invalid view state")

// ViewState is the user-adjustable view. It is replaced as a whole on every
// update.
type ViewState struct {
	Yaw         float64 `json:"yaw" yaml:"yaw"`
	Pitch       float64 `json:"pitch" yaml:"pitch"`
	Roll        float64 `json:"roll" yaml:"roll"`
	Zoom        float64 `json:"zoom" yaml:"zoom"`
	FocalLength float64 `json:"focalLength" yaml:"focal_length"`
}

// DefaultViewState is {0, 0, 0, 1, 50}
func DefaultViewState() ViewState {
	return ViewState{Zoom: 1, FocalLength: 50}
}

// Normalized clamps pitch and focal length into range and rejects states
// that cannot be rendered
func (v ViewState) Normalized() (ViewState, error) {
	for _, f := range []float64{v.Yaw, v.Pitch, v.Roll, v.Zoom, v.FocalLength} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return ViewState{}, fmt.Errorf("%w: non-finite value in %+v", ErrInvalidView, v)
		}
	}
	if v.Zoom <= 0 {
		return ViewState{}, fmt.Errorf("%w: zoom must be positive, got %g", ErrInvalidView, v.Zoom)
	}
	v.Pitch = clamp(v.Pitch, MinPitch, MaxPitch)
	v.FocalLength = clamp(v.FocalLength, MinFocalLength, MaxFocalLength)
	return v, nil
}

func (v ViewState) String() string {
	return fmt.Sprintf("yaw=%.1f° pitch=%.1f° roll=%.1f° zoom=%.2fx focal=%.0fmm",
		v.Yaw, v.Pitch, v.Roll, v.Zoom, v.FocalLength)
}

func (v ViewState) rotationDiffers(o ViewState) bool {
	return v.Yaw != o.Yaw || v.Pitch != o.Pitch || v.Roll != o.Roll
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Param describes one adjustable input of the view
type Param struct {
	Key     string
	Label   string
	Unit    string
	Min     float64
	Max     float64
	Step    float64
	Default float64
}

// Get reads the parameter from v
func (p Param) Get(v ViewState) float64 {
	switch p.Key {
	case "yaw":
		return v.Yaw
	case "pitch":
		return v.Pitch
	case "roll":
		return v.Roll
	case "zoom":
		return v.Zoom
	case "focal":
		return v.FocalLength
	}
	return 0
}

// Set returns v with the parameter replaced
func (p Param) Set(v ViewState, value float64) ViewState {
	switch p.Key {
	case "yaw":
		v.Yaw = value
	case "pitch":
		v.Pitch = value
	case "roll":
		v.Roll = value
	case "zoom":
		v.Zoom = value
	case "focal":
		v.FocalLength = value
	}
	return v
}

// Params lists the five view inputs with their range and step
func Params() []Param {
	d := DefaultViewState()
	return []Param{
		{Key: "yaw", Label: "Yaw", Unit: "°", Min: -180, Max: 180, Step: 5, Default: d.Yaw},
		{Key: "pitch", Label: "Pitch", Unit: "°", Min: MinPitch, Max: MaxPitch, Step: 5, Default: d.Pitch},
		{Key: "roll", Label: "Roll", Unit: "°", Min: -180, Max: 180, Step: 5, Default: d.Roll},
		{Key: "zoom", Label: "Zoom", Unit: "×", Min: 0.1, Max: 3, Step: 0.1, Default: d.Zoom},
		{Key: "focal", Label: "Focal length", Unit: "mm", Min: MinFocalLength, Max: MaxFocalLength, Step: 10, Default: d.FocalLength},
	}
}
