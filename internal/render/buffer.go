package render

import (
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/irfansharif/markup/internal/logging"
)

const (
	// initialVertexCapacity is the size a fresh buffer is allocated at.
	initialVertexCapacity = 1024
	// growthMaxVertices caps doubling; larger uploads allocate exactly.
	growthMaxVertices = 1 << 22
)

// VertexBuffer is a VAO/VBO pair holding interleaved float vertex data with
// a fixed attribute layout. Uploads that outgrow the allocation double it,
// so a panel's annotations can churn without reallocating every frame.
type VertexBuffer struct {
	vao, vbo uint32
	attrs    []int32 // floats per attribute, in location order
	stride   int32   // floats per vertex

	capacity int // vertices allocated
	count    int // vertices uploaded
}

// NewVertexBuffer creates a buffer whose vertices consist of the given
// attribute sizes, bound to locations 0, 1, ...
func NewVertexBuffer(attrs ...int32) *VertexBuffer {
	b := &VertexBuffer{attrs: attrs}
	for _, a := range attrs {
		b.stride += a
	}
	gl.GenVertexArrays(1, &b.vao)
	gl.GenBuffers(1, &b.vbo)
	b.allocate(initialVertexCapacity)
	return b
}

// allocate (re)creates the VBO storage and attribute pointers.
func (b *VertexBuffer) allocate(vertices int) {
	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, vertices*int(b.stride)*4, nil, gl.DYNAMIC_DRAW)

	offset := 0
	for loc, size := range b.attrs {
		gl.EnableVertexAttribArray(uint32(loc))
		gl.VertexAttribPointer(uint32(loc), size, gl.FLOAT, false, b.stride*4, gl.PtrOffset(offset))
		offset += int(size) * 4
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	b.capacity = vertices
}

// Upload replaces the buffer contents, growing the allocation if needed.
func (b *VertexBuffer) Upload(data []float32) {
	vertices := len(data) / int(b.stride)
	if vertices > b.capacity {
		newCap := b.capacity
		for newCap < vertices && newCap < growthMaxVertices {
			newCap *= 2
		}
		if newCap < vertices {
			newCap = vertices
		}
		logging.Logger().Debug("growing vertex buffer", "from", b.capacity, "to", newCap)
		b.allocate(newCap)
	}
	b.count = vertices
	if vertices == 0 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(data)*4, gl.Ptr(data))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

// Draw issues the uploaded vertices as triangles.
func (b *VertexBuffer) Draw() {
	b.DrawRange(0, b.count)
}

// DrawRange draws count vertices starting at first.
func (b *VertexBuffer) DrawRange(first, count int) {
	if count == 0 {
		return
	}
	gl.BindVertexArray(b.vao)
	gl.DrawArrays(gl.TRIANGLES, int32(first), int32(count))
	gl.BindVertexArray(0)
}

// Len returns the number of uploaded vertices.
func (b *VertexBuffer) Len() int { return b.count }

// Delete releases the GL objects.
func (b *VertexBuffer) Delete() {
	gl.DeleteBuffers(1, &b.vbo)
	gl.DeleteVertexArrays(1, &b.vao)
	b.count, b.capacity = 0, 0
}
