package model

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// UniformBufferObject is the per-frame uniform block consumed by the vertex shader at
// binding 0. Field order and packing must match the std140 layout of the shader block;
// three tightly packed mat4s need no padding.
type UniformBufferObject struct {
	Model      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// SizeOfUbo reports the byte size of the uniform block as allocated on the device.
func SizeOfUbo() uintptr {
	return unsafe.Sizeof(UniformBufferObject{})
}

// Bytes exposes the UBO's memory as a byte slice for vk.Memcopy. The slice aliases the
// struct, no copy is made.
func (u *UniformBufferObject) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(u)), SizeOfUbo())
}
