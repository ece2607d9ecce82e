package renderer

import (
	"fmt"

	"github.com/Fahien/vkr-go/engine/containers"
	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
	"github.com/Fahien/vkr-go/engine/scene"
)

// SceneResources are the GPU objects every frame slot reads but none owns:
// vertex and index buffers per primitive and sampled textures. Each is
// uploaded once, the first time a frame needs it, and never written again,
// which is what makes sharing them across in-flight frames safe. Everything
// mutable per frame lives in the slots instead.
type SceneResources struct {
	device   gpu.Device
	vertices *BufferCache[scene.Primitive]
	indices  *BufferCache[scene.Primitive]
	textures map[containers.Handle[scene.Texture]]gpu.Texture
}

func NewSceneResources(device gpu.Device) *SceneResources {
	return &SceneResources{
		device:   device,
		vertices: NewBufferCache[scene.Primitive](device, gpu.BufferUsageVertex),
		indices:  NewBufferCache[scene.Primitive](device, gpu.BufferUsageIndex),
		textures: make(map[containers.Handle[scene.Texture]]gpu.Texture),
	}
}

// primitiveBuffers returns the vertex buffer and, when the primitive is
// indexed, the index buffer for h, uploading the geometry on first use.
func (r *SceneResources) primitiveBuffers(sc *scene.Scene, h containers.Handle[scene.Primitive]) (*GPUBuffer, *GPUBuffer, error) {
	prim, ok := sc.Primitives.Get(h)
	if !ok {
		err := fmt.Errorf("primitive %d is not in the scene", h.ID())
		core.LogError(err.Error())
		return nil, nil, err
	}

	vertexBuffer, created, err := r.vertices.GetOrCreate(h, uint64(len(prim.Vertices))*vertexStride)
	if err != nil {
		return nil, nil, err
	}
	if created {
		if err := vertexBuffer.Upload(vertexBytes(prim.Vertices)); err != nil {
			return nil, nil, err
		}
	}

	if len(prim.Indices) == 0 {
		return vertexBuffer, nil, nil
	}
	indexBuffer, created, err := r.indices.GetOrCreate(h, uint64(len(prim.Indices))*indexStride)
	if err != nil {
		return nil, nil, err
	}
	if created {
		if err := indexBuffer.Upload(indexBytes(prim.Indices)); err != nil {
			return nil, nil, err
		}
	}
	return vertexBuffer, indexBuffer, nil
}

// texture returns the sampled texture for h, creating it from the scene's
// pixel data on first use. Invalid handles fall back to the given texture.
func (r *SceneResources) texture(sc *scene.Scene, h containers.Handle[scene.Texture], fallback gpu.Texture) (gpu.Texture, error) {
	if !h.Valid() {
		return fallback, nil
	}
	if texture, ok := r.textures[h]; ok {
		return texture, nil
	}
	data, ok := sc.Textures.Get(h)
	if !ok {
		return fallback, nil
	}
	texture, err := r.device.CreateTexture(data.Pixels, data.Width, data.Height)
	if err != nil {
		err = fmt.Errorf("failed to create %dx%d texture: %w", data.Width, data.Height, err)
		core.LogError(err.Error())
		return nil, err
	}
	r.textures[h] = texture
	return texture, nil
}

// Destroy releases every shared resource. The device must be idle.
func (r *SceneResources) Destroy() {
	r.vertices.Destroy()
	r.indices.Destroy()
	for _, texture := range r.textures {
		texture.Destroy()
	}
	r.textures = make(map[containers.Handle[scene.Texture]]gpu.Texture)
}
