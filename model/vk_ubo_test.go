package model

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestSizeOfUbo(t *testing.T) {
	// Three 4x4 float32 matrices, tightly packed
	if got := SizeOfUbo(); got != 192 {
		t.Errorf("SizeOfUbo() = %d, want 192", got)
	}
}

func TestUboBytesRoundTrip(t *testing.T) {
	u := UniformBufferObject{
		Model:      mgl32.HomogRotate3D(0.5, mgl32.Vec3{1, 1, 0}.Normalize()),
		View:       mgl32.LookAtV(mgl32.Vec3{0, 0, -3}, mgl32.Vec3{}, mgl32.Vec3{0, -1, 0}),
		Projection: mgl32.Perspective(mgl32.DegToRad(45), 16.0/9.0, 0.1, 100),
	}
	raw := u.Bytes()
	if len(raw) != 192 {
		t.Fatalf("len(Bytes()) = %d, want 192", len(raw))
	}

	// Reading the bytes back as a UBO must yield the exact matrices that were written.
	var back UniformBufferObject
	copy(back.Bytes(), raw)
	if back != u {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", back, u)
	}
}

func TestUboBytesAliasStruct(t *testing.T) {
	var u UniformBufferObject
	u.Model = mgl32.Ident4()
	raw := u.Bytes()

	// Mutating the struct must be visible through the previously taken slice, since the
	// frame loop writes the struct and memcopies the slice without re-deriving it.
	// float32(42) is 0x42280000, stored little endian.
	u.Model[0] = 42
	if raw[2] != 0x28 || raw[3] != 0x42 {
		t.Errorf("slice does not alias struct memory: % x", raw[:4])
	}
}
