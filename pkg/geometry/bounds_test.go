package geometry

import (
	"math"
	"testing"
)

func TestBoundingBoxEmpty(t *testing.T) {
	bbox := NewBoundingBox()

	if !bbox.IsEmpty() {
		t.Fatal("new bounding box should be empty")
	}
	if size := bbox.Size(); size != (Vector3{}) {
		t.Errorf("empty box size should be zero, got %v", size)
	}
	if center := bbox.Center(); center != (Vector3{}) {
		t.Errorf("empty box center should be the origin, got %v", center)
	}
}

func TestBoundingBoxExtend(t *testing.T) {
	bbox := NewBoundingBox()
	bbox.Extend(NewVector3(1, 2, 3))
	bbox.Extend(NewVector3(4, 5, 6))
	bbox.Extend(NewVector3(-1, 0, 2))

	if want := NewVector3(-1, 0, 2); bbox.Min != want {
		t.Errorf("Min failed: expected %v, got %v", want, bbox.Min)
	}
	if want := NewVector3(4, 5, 6); bbox.Max != want {
		t.Errorf("Max failed: expected %v, got %v", want, bbox.Max)
	}
}

func TestBoundingBoxCenterAndSize(t *testing.T) {
	bbox := NewBoundingBox()
	bbox.Extend(NewVector3(0, -1, -3))
	bbox.Extend(NewVector3(2, 3, 5))

	if want := NewVector3(1, 1, 1); bbox.Center() != want {
		t.Errorf("Center failed: expected %v, got %v", want, bbox.Center())
	}
	if want := NewVector3(2, 4, 8); bbox.Size() != want {
		t.Errorf("Size failed: expected %v, got %v", want, bbox.Size())
	}
	if bbox.MaxDimension() != 8 {
		t.Errorf("MaxDimension failed: expected 8, got %v", bbox.MaxDimension())
	}
	if math.Abs(bbox.Volume()-64) > 1e-10 {
		t.Errorf("Volume failed: expected 64, got %v", bbox.Volume())
	}
}

func TestBoundingBoxUnion(t *testing.T) {
	a := NewBoundingBox()
	a.Extend(NewVector3(0, 0, 0))
	b := NewBoundingBox()
	b.Extend(NewVector3(1, 2, 3))

	a.Union(b)
	a.Union(NewBoundingBox())

	if want := NewVector3(1, 2, 3); a.Max != want {
		t.Errorf("Union failed: expected max %v, got %v", want, a.Max)
	}
}
