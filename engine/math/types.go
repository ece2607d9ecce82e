package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

// Quaternion represents a rotational orientation
type Quaternion Vec4

// Mat4 is a 4x4 matrix in column-major order: element (row, col) lives at
// Data[col*4+row]. This is the layout uniform buffers expect, so matrices
// upload without conversion.
type Mat4 struct {
	Data [16]float32
}

// Vertex3D is a single mesh vertex
type Vertex3D struct {
	Position Vec3
	Colour   Vec4
	Normal   Vec3
	Texcoord Vec2
}

// Transform holds the position, rotation and scale of an object. The local
// matrix is cached and rebuilt lazily when any component changes. Parenting
// is a property of the scene graph, not of the transform itself.
type Transform struct {
	Position Vec3
	Rotation Quaternion
	Scale    Vec3
	IsDirty  bool
	Local    Mat4
}
