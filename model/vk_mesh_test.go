package model

import (
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
)

func TestVertexBindingDescription(t *testing.T) {
	bd := GetVertexBindingDescription()
	if bd.Binding != 0 {
		t.Errorf("Binding = %d, want 0", bd.Binding)
	}
	// Vec3 + Vec3 + Vec2 of float32
	if bd.Stride != 32 {
		t.Errorf("Stride = %d, want 32", bd.Stride)
	}
	if bd.InputRate != vk.VertexInputRateVertex {
		t.Errorf("InputRate = %v, want per-vertex", bd.InputRate)
	}
}

func TestVertexAttributeDescriptions(t *testing.T) {
	attrs := GetVertexAttributeDescriptions()
	if len(attrs) != 3 {
		t.Fatalf("got %d attributes, want 3", len(attrs))
	}
	wantOffsets := []uint32{0, 12, 24}
	wantFormats := []vk.Format{vk.FormatR32g32b32Sfloat, vk.FormatR32g32b32Sfloat, vk.FormatR32g32Sfloat}
	for i, a := range attrs {
		if a.Location != uint32(i) {
			t.Errorf("attr %d: Location = %d, want %d", i, a.Location, i)
		}
		if a.Offset != wantOffsets[i] {
			t.Errorf("attr %d: Offset = %d, want %d", i, a.Offset, wantOffsets[i])
		}
		if a.Format != wantFormats[i] {
			t.Errorf("attr %d: Format = %v, want %v", i, a.Format, wantFormats[i])
		}
	}
}

func TestTexturedCubeBufferSizes(t *testing.T) {
	m := NewTexturedCube()
	if len(m.Vertices) != 8 {
		t.Errorf("vertices = %d, want 8", len(m.Vertices))
	}
	if len(m.Indices) != 36 {
		t.Errorf("indices = %d, want 36 (12 triangles)", len(m.Indices))
	}
	if got, want := m.VertexBufferSize(), 8*int(unsafe.Sizeof(Vertex{})); got != want {
		t.Errorf("VertexBufferSize = %d, want %d", got, want)
	}
	if got := m.IndexBufferSize(); got != 36*4 {
		t.Errorf("IndexBufferSize = %d, want %d", got, 36*4)
	}
	if got := len(m.IndexBufferBytes()); got != m.IndexBufferSize() {
		t.Errorf("IndexBufferBytes len = %d, want %d", got, m.IndexBufferSize())
	}
	// All indices must address an existing vertex
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			t.Errorf("index %d out of range: %d", i, idx)
		}
	}
}
