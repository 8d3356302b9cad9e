package model

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"

	"github.com/edeleiter/vulkanmon/common"
)

// Vertex is the fixed vertex layout every pipeline of this renderer is built against:
// position, color and texture coordinate. Changing it means rebuilding all pipelines.
type Vertex struct {
	Pos      mgl32.Vec3
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
}

func GetVertexBindingDescription() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vk.VertexInputRateVertex,
	}
}

func GetVertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Location: 0,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
		},
		{
			Location: 1,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Color)),
		},
		{
			Location: 2,
			Binding:  0,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.TexCoord)),
		},
	}
}

type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

func NewMesh(v []Vertex, id []uint32) *Mesh {
	return &Mesh{
		Vertices: v,
		Indices:  id,
	}
}

// NewTexturedCube builds the fixed unit cube this renderer draws: 8 corners, 12 triangles,
// with per-corner colors and texture coordinates that wrap the checker texture around it.
func NewTexturedCube() *Mesh {
	v := []Vertex{
		{Pos: mgl32.Vec3{-0.5, -0.5, -0.5}, Color: mgl32.Vec3{1, 0, 0}, TexCoord: mgl32.Vec2{0, 0}},
		{Pos: mgl32.Vec3{0.5, -0.5, -0.5}, Color: mgl32.Vec3{0, 1, 0}, TexCoord: mgl32.Vec2{1, 0}},
		{Pos: mgl32.Vec3{0.5, 0.5, -0.5}, Color: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{1, 1}},
		{Pos: mgl32.Vec3{-0.5, 0.5, -0.5}, Color: mgl32.Vec3{1, 0.5, 1}, TexCoord: mgl32.Vec2{0, 1}},
		{Pos: mgl32.Vec3{-0.5, -0.5, 0.5}, Color: mgl32.Vec3{1, 0.5, 0.5}, TexCoord: mgl32.Vec2{1, 0}},
		{Pos: mgl32.Vec3{0.5, -0.5, 0.5}, Color: mgl32.Vec3{0.5, 1, 0.5}, TexCoord: mgl32.Vec2{0, 0}},
		{Pos: mgl32.Vec3{0.5, 0.5, 0.5}, Color: mgl32.Vec3{0.5, 0.5, 1}, TexCoord: mgl32.Vec2{0, 1}},
		{Pos: mgl32.Vec3{-0.5, 0.5, 0.5}, Color: mgl32.Vec3{0, 0.5, 0}, TexCoord: mgl32.Vec2{1, 1}},
	}
	id := []uint32{
		2, 1, 0, 0, 3, 2, // front
		5, 1, 6, 1, 2, 6, // right
		4, 5, 6, 7, 4, 6, // back
		4, 7, 0, 0, 7, 3, // left
		0, 1, 5, 5, 4, 0, // top
		3, 7, 6, 2, 3, 6, // bottom
	}
	return NewMesh(v, id)
}

// VertexBufferSize returns the size required for keeping this mesh's vertices in device memory.
// Mainly used to determine the buffer size when calling common.CreateBuffer.
func (m *Mesh) VertexBufferSize() int {
	return len(m.VertexBufferBytes())
}

// VertexBufferBytes returns the raw bytes representing all vertices for this mesh.
// Mainly used to execute vk.Memcopy(..., src []byte) to move memory from CPU to GPU.
func (m *Mesh) VertexBufferBytes() []byte {
	return common.RawBytes(m.Vertices)
}

// IndexBufferSize returns the size required for keeping this mesh's index list in device memory.
func (m *Mesh) IndexBufferSize() int {
	return int(unsafe.Sizeof(m.Indices[0])) * len(m.Indices)
}

// IndexBufferBytes returns the raw bytes representing the indices used to address vertex data.
func (m *Mesh) IndexBufferBytes() []byte {
	return common.RawBytes(m.Indices)
}
