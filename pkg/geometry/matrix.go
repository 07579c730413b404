package geometry

import "math"

// Mat3 is a 3×3 matrix stored row-major. Value type, no allocations.
type Mat3 [9]float64

// Mat3Identity returns the identity rotation
func Mat3Identity() Mat3 {
	return Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Mul returns m × o.
func (m Mat3) Mul(o Mat3) Mat3 {
	var r Mat3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			r[row*3+col] = m[row*3]*o[col] + m[row*3+1]*o[3+col] + m[row*3+2]*o[6+col]
		}
	}
	return r
}

// MulVec returns m × v.
func (m Mat3) MulVec(v Vector3) Vector3 {
	return Vector3{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		Y: m[3]*v.X + m[4]*v.Y + m[5]*v.Z,
		Z: m[6]*v.X + m[7]*v.Y + m[8]*v.Z,
	}
}

// Transpose returns the transposed matrix (the inverse of a pure rotation)
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

// RotX returns a rotation around the X axis. Angle in radians.
func RotX(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	}
}

// RotY returns a rotation around the Y axis. Angle in radians.
func RotY(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	}
}

// RotZ returns a rotation around the Z axis. Angle in radians.
func RotZ(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	}
}

// EulerYXZ composes yaw about Y, then pitch about X, then roll about Z
// (intrinsic order). Angles in radians.
func EulerYXZ(yaw, pitch, roll float64) Mat3 {
	return RotY(yaw).Mul(RotX(pitch)).Mul(RotZ(roll))
}

// Quat is a unit quaternion (x, y, z, w).
type Quat [4]float64

// Mat3 converts the quaternion to a rotation matrix
func (q Quat) Mat3() Mat3 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return Mat3{
		1 - 2*(yy+zz), 2 * (xy - wz), 2 * (xz + wy),
		2 * (xy + wz), 1 - 2*(xx+zz), 2 * (yz - wx),
		2 * (xz - wy), 2 * (yz + wx), 1 - 2*(xx+yy),
	}
}

// Mat4 is a 4×4 affine matrix stored row-major.
type Mat4 [16]float64

// Mat4Identity returns the identity transform
func Mat4Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns m × o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var r Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			r[row*4+col] = m[row*4]*o[col] + m[row*4+1]*o[4+col] +
				m[row*4+2]*o[8+col] + m[row*4+3]*o[12+col]
		}
	}
	return r
}

// MulPoint transforms a point (w=1)
func (m Mat4) MulPoint(v Vector3) Vector3 {
	return Vector3{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z + m[3],
		Y: m[4]*v.X + m[5]*v.Y + m[6]*v.Z + m[7],
		Z: m[8]*v.X + m[9]*v.Y + m[10]*v.Z + m[11],
	}
}

// ComposeTRS builds T × R × S.
func ComposeTRS(t Vector3, r Mat3, s Vector3) Mat4 {
	return Mat4{
		r[0] * s.X, r[1] * s.Y, r[2] * s.Z, t.X,
		r[3] * s.X, r[4] * s.Y, r[5] * s.Z, t.Y,
		r[6] * s.X, r[7] * s.Y, r[8] * s.Z, t.Z,
		0, 0, 0, 1,
	}
}

// DecomposeTRS splits an affine matrix without shear into translation,
// rotation and scale. Negative determinants flip the X scale.
func (m Mat4) DecomposeTRS() (Vector3, Mat3, Vector3) {
	t := Vector3{X: m[3], Y: m[7], Z: m[11]}
	cx := Vector3{X: m[0], Y: m[4], Z: m[8]}
	cy := Vector3{X: m[1], Y: m[5], Z: m[9]}
	cz := Vector3{X: m[2], Y: m[6], Z: m[10]}
	s := Vector3{X: cx.Length(), Y: cy.Length(), Z: cz.Length()}
	if cx.Cross(cy).Dot(cz) < 0 {
		s.X = -s.X
	}

	safe := func(v float64) float64 {
		if v == 0 {
			return 1
		}
		return v
	}
	ix, iy, iz := 1/safe(s.X), 1/safe(s.Y), 1/safe(s.Z)
	r := Mat3{
		m[0] * ix, m[1] * iy, m[2] * iz,
		m[4] * ix, m[5] * iy, m[6] * iz,
		m[8] * ix, m[9] * iy, m[10] * iz,
	}
	return t, r, s
}

// Deg2Rad converts degrees to radians
func Deg2Rad(d float64) float64 {
	return d * math.Pi / 180
}

// Rad2Deg converts radians to degrees
func Rad2Deg(r float64) float64 {
	return r * 180 / math.Pi
}
