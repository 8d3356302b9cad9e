package model

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func almostEqual(a, b mgl32.Vec3) bool {
	const eps = 1e-5
	d := a.Sub(b)
	return d.Len() < eps
}

func TestCameraMoveAlongFront(t *testing.T) {
	c := NewCamera(45, 0.1, 100)
	start := c.Pos
	c.Move(mgl32.Vec3{0, 0, 2})
	want := start.Add(c.Front.Mul(2))
	if !almostEqual(c.Pos, want) {
		t.Errorf("Pos = %v, want %v", c.Pos, want)
	}
}

func TestCameraResetRestoresStart(t *testing.T) {
	c := NewCamera(45, 0.1, 100)
	c.Move(mgl32.Vec3{1, 2, 3})
	c.Reset()
	if !almostEqual(c.Pos, mgl32.Vec3{0, 0, -3}) {
		t.Errorf("Pos after reset = %v", c.Pos)
	}
	if !almostEqual(c.Front, mgl32.Vec3{0, 0, 1}) {
		t.Errorf("Front after reset = %v", c.Front)
	}
}

func TestProjectionUsesAspect(t *testing.T) {
	c := NewCamera(45, 0.1, 100)
	c.Aspect = 2
	p := c.Projection()
	// For a perspective projection m[0] = f/aspect, m[5] = -f (Y flipped for Vulkan)
	if p[5] >= 0 {
		t.Errorf("projection Y scale = %f, want negative (Vulkan clip space)", p[5])
	}
	if got, want := p[0], -p[5]/2; mgl32.Abs(got-want) > 1e-5 {
		t.Errorf("projection X scale = %f, want %f", got, want)
	}
}

func TestViewTransformsPositionToOrigin(t *testing.T) {
	c := NewCamera(45, 0.1, 100)
	v := c.View()
	// The camera position must map to the view-space origin.
	p := v.Mul4x1(mgl32.Vec4{c.Pos.X(), c.Pos.Y(), c.Pos.Z(), 1})
	if p.Vec3().Len() > 1e-5 {
		t.Errorf("view(camera pos) = %v, want origin", p)
	}
}
