package scene

import (
	"github.com/Fahien/vkr-go/engine/containers"
	"github.com/Fahien/vkr-go/engine/math"
)

// NewTriangle returns a unit triangle in the XY plane facing +Z.
func NewTriangle(material containers.Handle[Material]) Primitive {
	return Primitive{
		Vertices: []math.Vertex3D{
			{
				Position: math.NewVec3(-0.5, -0.5, 0.0),
				Colour:   math.NewVec4(1.0, 0.0, 0.0, 1.0),
				Normal:   math.NewVec3(0.0, 0.0, 1.0),
				Texcoord: math.NewVec2(0.0, 1.0),
			},
			{
				Position: math.NewVec3(0.5, -0.5, 0.0),
				Colour:   math.NewVec4(0.0, 1.0, 0.0, 1.0),
				Normal:   math.NewVec3(0.0, 0.0, 1.0),
				Texcoord: math.NewVec2(1.0, 1.0),
			},
			{
				Position: math.NewVec3(0.0, 0.5, 0.0),
				Colour:   math.NewVec4(0.0, 0.0, 1.0, 1.0),
				Normal:   math.NewVec3(0.0, 0.0, 1.0),
				Texcoord: math.NewVec2(0.5, 0.0),
			},
		},
		Indices:  []uint16{0, 1, 2},
		Material: material,
	}
}

// NewCube returns a unit cube centred on the origin, 24 vertices with
// per-face normals, 36 indices.
func NewCube(material containers.Handle[Material]) Primitive {
	faces := []struct {
		normal math.Vec3
		right  math.Vec3
		up     math.Vec3
	}{
		{math.NewVec3(0, 0, 1), math.NewVec3(1, 0, 0), math.NewVec3(0, 1, 0)},
		{math.NewVec3(0, 0, -1), math.NewVec3(-1, 0, 0), math.NewVec3(0, 1, 0)},
		{math.NewVec3(1, 0, 0), math.NewVec3(0, 0, -1), math.NewVec3(0, 1, 0)},
		{math.NewVec3(-1, 0, 0), math.NewVec3(0, 0, 1), math.NewVec3(0, 1, 0)},
		{math.NewVec3(0, 1, 0), math.NewVec3(1, 0, 0), math.NewVec3(0, 0, -1)},
		{math.NewVec3(0, -1, 0), math.NewVec3(1, 0, 0), math.NewVec3(0, 0, 1)},
	}

	prim := Primitive{Material: material}
	corners := []math.Vec2{{X: -0.5, Y: -0.5}, {X: 0.5, Y: -0.5}, {X: 0.5, Y: 0.5}, {X: -0.5, Y: 0.5}}
	uvs := []math.Vec2{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}}

	for _, face := range faces {
		base := uint16(len(prim.Vertices))
		centre := face.normal.MulScalar(0.5)
		for i, corner := range corners {
			pos := centre.
				Add(face.right.MulScalar(corner.X)).
				Add(face.up.MulScalar(corner.Y))
			prim.Vertices = append(prim.Vertices, math.Vertex3D{
				Position: pos,
				Colour:   math.NewVec4(1.0, 1.0, 1.0, 1.0),
				Normal:   face.normal,
				Texcoord: uvs[i],
			})
		}
		prim.Indices = append(prim.Indices,
			base, base+1, base+2,
			base, base+2, base+3,
		)
	}
	return prim
}
