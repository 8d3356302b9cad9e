package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a simple free-look camera. It is a host-side utility only; the renderer consumes
// its View/Projection matrices once per frame via the uniform buffer.
type Camera struct {
	Pos   mgl32.Vec3
	Front mgl32.Vec3
	Up    mgl32.Vec3

	Fov    float32
	Aspect float32
	Near   float32
	Far    float32
}

func NewCamera(fov float32, near float32, far float32) *Camera {
	return &Camera{
		Pos:    mgl32.Vec3{0, 0, -3},
		Front:  mgl32.Vec3{0, 0, 1},
		Up:     mgl32.Vec3{0, -1, 0},
		Fov:    fov,
		Aspect: 1,
		Near:   near,
		Far:    far,
	}
}

// Move translates the camera position by v in camera-local terms (v.Z along Front, v.X along
// the right vector, v.Y along Up).
func (c *Camera) Move(v mgl32.Vec3) {
	right := c.Front.Cross(c.Up).Normalize()
	c.Pos = c.Pos.Add(c.Front.Mul(v.Z())).Add(right.Mul(v.X())).Add(c.Up.Mul(v.Y()))
}

// Reset places the camera back at its starting position and orientation.
func (c *Camera) Reset() {
	c.Pos = mgl32.Vec3{0, 0, -3}
	c.Front = mgl32.Vec3{0, 0, 1}
	c.Up = mgl32.Vec3{0, -1, 0}
}

func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Pos, c.Pos.Add(c.Front), c.Up)
}

// Projection returns a perspective projection adjusted for Vulkan's clip space, whose Y axis
// points down compared to OpenGL's.
func (c *Camera) Projection() mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(c.Fov), c.Aspect, c.Near, c.Far)
	proj[5] *= -1
	return proj
}
