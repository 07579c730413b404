package geometry

import (
	"math"
	"testing"
)

func TestEulerYXZOrder(t *testing.T) {
	// Yaw 90° turns +Z into +X.
	got := EulerYXZ(Deg2Rad(90), 0, 0).MulVec(NewVector3(0, 0, 1))
	if !got.ApproxEqual(NewVector3(1, 0, 0), 1e-9) {
		t.Errorf("yaw: expected +X, got %v", got)
	}

	// Pitch is applied inside the yawed frame.
	m := EulerYXZ(Deg2Rad(90), Deg2Rad(90), 0)
	want := RotY(Deg2Rad(90)).MulVec(RotX(Deg2Rad(90)).MulVec(NewVector3(0, 1, 0)))
	if got := m.MulVec(NewVector3(0, 1, 0)); !got.ApproxEqual(want, 1e-9) {
		t.Errorf("composition: expected %v, got %v", want, got)
	}
}

func TestMat3TransposeInvertsRotation(t *testing.T) {
	r := EulerYXZ(0.3, -0.7, 1.1)
	v := NewVector3(1, -2, 3)

	back := r.Transpose().MulVec(r.MulVec(v))
	if !back.ApproxEqual(v, 1e-9) {
		t.Errorf("expected %v after round trip, got %v", v, back)
	}
}

func TestQuatIdentity(t *testing.T) {
	if m := (Quat{0, 0, 0, 1}).Mat3(); m != Mat3Identity() {
		t.Errorf("identity quaternion should give identity matrix, got %v", m)
	}
}

func TestComposeDecomposeTRS(t *testing.T) {
	tr := NewVector3(1, 2, 3)
	rot := RotZ(Deg2Rad(30))
	sc := NewVector3(2, 2, 0.5)

	m := ComposeTRS(tr, rot, sc)
	gotT, gotR, gotS := m.DecomposeTRS()

	if !gotT.ApproxEqual(tr, 1e-9) || !gotS.ApproxEqual(sc, 1e-9) {
		t.Errorf("decompose: expected T=%v S=%v, got T=%v S=%v", tr, sc, gotT, gotS)
	}
	for i := range rot {
		if math.Abs(rot[i]-gotR[i]) > 1e-9 {
			t.Fatalf("rotation mismatch at %d: expected %v, got %v", i, rot[i], gotR[i])
		}
	}

	p := m.MulPoint(NewVector3(1, 0, 0))
	want := tr.Add(rot.MulVec(NewVector3(2, 0, 0)))
	if !p.ApproxEqual(want, 1e-9) {
		t.Errorf("MulPoint: expected %v, got %v", want, p)
	}
}

func TestMat4MulIdentity(t *testing.T) {
	m := ComposeTRS(NewVector3(4, 5, 6), RotX(1), NewVector3(1, 1, 1))
	if got := Mat4Identity().Mul(m); got != m {
		t.Errorf("identity product changed the matrix: %v", got)
	}
}
