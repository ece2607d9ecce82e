package renderer

import (
	"unsafe"

	"github.com/Fahien/vkr-go/engine/math"
)

const (
	mat4Size     = uint64(unsafe.Sizeof(math.Mat4{}))
	vec4Size     = uint64(unsafe.Sizeof(math.Vec4{}))
	vec2Size     = uint64(unsafe.Sizeof(math.Vec2{}))
	vertexStride = uint64(unsafe.Sizeof(math.Vertex3D{}))
	indexStride  = uint64(unsafe.Sizeof(uint16(0)))
)

// The upload helpers reinterpret typed data as raw bytes without copying.
// All the types involved are plain float32/uint16 aggregates with no
// padding, so their in-memory layout already matches what the device
// expects.

func mat4Bytes(m *math.Mat4) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(m)), mat4Size)
}

func vec4Bytes(v *math.Vec4) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), vec4Size)
}

func vec2Bytes(points []math.Vec2) []byte {
	if len(points) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&points[0])), uint64(len(points))*vec2Size)
}

func vertexBytes(vertices []math.Vertex3D) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), uint64(len(vertices))*vertexStride)
}

func indexBytes(indices []uint16) []byte {
	if len(indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), uint64(len(indices))*indexStride)
}
