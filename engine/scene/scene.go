// Package scene is the entity store: flat arenas of nodes, cameras,
// materials, meshes and textures addressed through stable handles. Entities
// never point back at GPU resources; the renderer's per-slot caches key off
// the handles instead, so removing an entity can never dangle a GPU object.
package scene

import (
	"github.com/Fahien/vkr-go/engine/containers"
	"github.com/Fahien/vkr-go/engine/math"
)

// Node is a transform in the scene graph. It may carry a mesh, a camera, or
// neither. Children are handles, not pointers.
type Node struct {
	Name      string
	Transform math.Transform
	Children  []containers.Handle[Node]
	Mesh      containers.Handle[Mesh]
	Camera    containers.Handle[Camera]
}

// Camera holds a projection. The view matrix comes from the node the camera
// is attached to.
type Camera struct {
	Proj math.Mat4
}

// Material colours a primitive. Colour multiplies the albedo texture; an
// invalid Albedo handle means the renderer's white fallback.
type Material struct {
	Colour math.Vec4
	Albedo containers.Handle[Texture]
}

// Primitive is one draw's worth of geometry. Indices are optional.
type Primitive struct {
	Vertices []math.Vertex3D
	Indices  []uint16
	Material containers.Handle[Material]
}

// Mesh groups primitives under one node.
type Mesh struct {
	Primitives []containers.Handle[Primitive]
}

// Texture is decoded RGBA pixel data. Upload is the renderer's business.
type Texture struct {
	Pixels []byte
	Width  uint32
	Height uint32
}

// Scene owns the entity arenas.
type Scene struct {
	Nodes      *containers.Pack[Node]
	Cameras    *containers.Pack[Camera]
	Materials  *containers.Pack[Material]
	Meshes     *containers.Pack[Mesh]
	Primitives *containers.Pack[Primitive]
	Textures   *containers.Pack[Texture]
}

func New() *Scene {
	return &Scene{
		Nodes:      containers.NewPack[Node](),
		Cameras:    containers.NewPack[Camera](),
		Materials:  containers.NewPack[Material](),
		Meshes:     containers.NewPack[Mesh](),
		Primitives: containers.NewPack[Primitive](),
		Textures:   containers.NewPack[Texture](),
	}
}

// CreateNode pushes a named node with an identity transform.
func (s *Scene) CreateNode(name string) containers.Handle[Node] {
	return s.Nodes.Push(Node{
		Name:      name,
		Transform: *math.TransformCreate(),
	})
}

// CreateCameraNode pushes a camera and a node carrying it.
func (s *Scene) CreateCameraNode(name string, proj math.Mat4) containers.Handle[Node] {
	camera := s.Cameras.Push(Camera{Proj: proj})
	h := s.CreateNode(name)
	node, _ := s.Nodes.Get(h)
	node.Camera = camera
	return h
}

// CreateMeshNode pushes a mesh of one primitive and a node carrying it.
func (s *Scene) CreateMeshNode(name string, prim Primitive) containers.Handle[Node] {
	primitive := s.Primitives.Push(prim)
	mesh := s.Meshes.Push(Mesh{Primitives: []containers.Handle[Primitive]{primitive}})
	h := s.CreateNode(name)
	node, _ := s.Nodes.Get(h)
	node.Mesh = mesh
	return h
}

// AddChild records child under parent. Transforms still compose through
// Traverse, not through back pointers.
func (s *Scene) AddChild(parent, child containers.Handle[Node]) {
	node, ok := s.Nodes.Get(parent)
	if !ok {
		return
	}
	node.Children = append(node.Children, child)
}

// Traverse visits root and its descendants depth-first, handing each node
// its world matrix composed from the ancestor chain.
func (s *Scene) Traverse(root containers.Handle[Node], fn func(containers.Handle[Node], math.Mat4)) {
	s.traverse(root, math.NewMat4Identity(), fn)
}

func (s *Scene) traverse(h containers.Handle[Node], parent math.Mat4, fn func(containers.Handle[Node], math.Mat4)) {
	node, ok := s.Nodes.Get(h)
	if !ok {
		return
	}
	world := parent.Mul(node.Transform.GetLocal())
	fn(h, world)
	for _, child := range node.Children {
		s.traverse(child, world, fn)
	}
}
