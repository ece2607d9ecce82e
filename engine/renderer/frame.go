package renderer

import (
	"fmt"

	"github.com/Fahien/vkr-go/engine/containers"
	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
	"github.com/Fahien/vkr-go/engine/math"
	"github.com/Fahien/vkr-go/engine/scene"
)

// SlotState tracks where a frame slot is in its lifecycle. Transitions only
// move forward within a frame; Submitted goes back to Idle when the next
// cycle observes the fence.
type SlotState int

const (
	SLOT_STATE_IDLE SlotState = iota
	SLOT_STATE_ACQUIRING
	SLOT_STATE_RECORDING
	SLOT_STATE_SUBMITTED
)

func (s SlotState) String() string {
	switch s {
	case SLOT_STATE_IDLE:
		return "idle"
	case SLOT_STATE_ACQUIRING:
		return "acquiring"
	case SLOT_STATE_RECORDING:
		return "recording"
	case SLOT_STATE_SUBMITTED:
		return "submitted"
	}
	return "unknown"
}

// FrameSlot bundles everything one in-flight frame needs: sync objects, a
// command buffer, a render target, and its own uniform buffers and
// descriptor groups. With a slot per chain image, frames never share
// mutable GPU state, so the CPU can record slot N while the GPU still reads
// slot N-1.
//
// The caches are keyed by entity handle and survive frame after frame; the
// state machine makes touching them provable-safe, because mutation outside
// Recording panics instead of corrupting a frame in flight.
type FrameSlot struct {
	// Index is the slot's position in the rotation, equal to the chain
	// image it renders to.
	Index int

	state  SlotState
	device gpu.Device

	target     gpu.RenderTarget
	cmd        gpu.CommandBuffer
	fence      gpu.Fence
	acquired   gpu.Semaphore
	finished   gpu.Semaphore
	imageIndex uint32

	// Per-entity uniforms, refreshed every frame this slot records.
	transforms *BufferCache[scene.Node]
	modelViews *BufferCache[scene.Node]
	views      *BufferCache[scene.Node]
	projs      *BufferCache[scene.Camera]
	materials  *BufferCache[scene.Material]

	allocator    *DescriptorAllocator
	modelSets    *DescriptorCache[scene.Node]
	viewSets     *DescriptorCache[scene.Node]
	materialSets *DescriptorCache[scene.Material]

	// presentGroup points the presentation subpass at this slot's offscreen
	// attachments. It lives outside the caches because it is keyed by the
	// render target, not by an entity: replacing the target frees it.
	presentGroup gpu.SetGroup

	fallback *Fallback

	// view bound by the current frame's camera, composed into model-view
	// uploads.
	view math.Mat4
}

// Fallback holds the slot's own default resources: a white 1x1 texture and
// white material buffer for primitives without one, and the oversized
// triangle whose clipped interior covers the viewport in the presentation
// subpass.
type Fallback struct {
	White         gpu.Texture
	Material      *GPUBuffer
	PresentBuffer *GPUBuffer
}

// NewFallback creates the default resources. Each slot owns its own copy so
// no GPU object is ever visible to two frames at once.
func NewFallback(device gpu.Device) (*Fallback, error) {
	white, err := device.CreateTexture([]byte{255, 255, 255, 255}, 1, 1)
	if err != nil {
		err = fmt.Errorf("failed to create fallback texture: %w", err)
		core.LogError(err.Error())
		return nil, err
	}

	material, err := NewGPUBuffer(device, vec4Size, gpu.BufferUsageUniform)
	if err != nil {
		white.Destroy()
		return nil, err
	}
	colour := math.NewVec4(1.0, 1.0, 1.0, 1.0)
	if err := material.Upload(vec4Bytes(&colour)); err != nil {
		material.Destroy()
		white.Destroy()
		return nil, err
	}

	triangle := []math.Vec2{
		math.NewVec2(-1.0, -1.0),
		math.NewVec2(-1.0, 3.0),
		math.NewVec2(3.0, -1.0),
	}
	present, err := NewGPUBuffer(device, uint64(len(triangle))*vec2Size, gpu.BufferUsageVertex)
	if err != nil {
		material.Destroy()
		white.Destroy()
		return nil, err
	}
	if err := present.Upload(vec2Bytes(triangle)); err != nil {
		present.Destroy()
		material.Destroy()
		white.Destroy()
		return nil, err
	}

	return &Fallback{White: white, Material: material, PresentBuffer: present}, nil
}

// Destroy releases the fallback resources.
func (f *Fallback) Destroy() {
	f.PresentBuffer.Destroy()
	f.Material.Destroy()
	f.White.Destroy()
}

// NewFrameSlot creates the slot for one chain image with its sync objects
// signaled-for-first-use, empty caches, and a descriptor pool of the given
// capacity.
func NewFrameSlot(device gpu.Device, index int, target gpu.RenderTarget, sizes gpu.PoolSizes) (*FrameSlot, error) {
	// Signaled so the very first wait passes without a prior submission.
	fence, err := device.CreateFence(true)
	if err != nil {
		err = fmt.Errorf("failed to create fence for frame slot %d: %w", index, err)
		core.LogError(err.Error())
		return nil, err
	}
	acquired, err := device.CreateSemaphore()
	if err != nil {
		err = fmt.Errorf("failed to create acquire semaphore for frame slot %d: %w", index, err)
		core.LogError(err.Error())
		return nil, err
	}
	finished, err := device.CreateSemaphore()
	if err != nil {
		err = fmt.Errorf("failed to create finish semaphore for frame slot %d: %w", index, err)
		core.LogError(err.Error())
		return nil, err
	}
	cmd, err := device.CreateCommandBuffer()
	if err != nil {
		err = fmt.Errorf("failed to create command buffer for frame slot %d: %w", index, err)
		core.LogError(err.Error())
		return nil, err
	}
	allocator, err := NewDescriptorAllocator(device, sizes)
	if err != nil {
		return nil, err
	}
	fallback, err := NewFallback(device)
	if err != nil {
		return nil, err
	}

	return &FrameSlot{
		Index:        index,
		state:        SLOT_STATE_IDLE,
		device:       device,
		target:       target,
		cmd:          cmd,
		fence:        fence,
		acquired:     acquired,
		finished:     finished,
		transforms:   NewBufferCache[scene.Node](device, gpu.BufferUsageUniform),
		modelViews:   NewBufferCache[scene.Node](device, gpu.BufferUsageUniform),
		views:        NewBufferCache[scene.Node](device, gpu.BufferUsageUniform),
		projs:        NewBufferCache[scene.Camera](device, gpu.BufferUsageUniform),
		materials:    NewBufferCache[scene.Material](device, gpu.BufferUsageUniform),
		allocator:    allocator,
		modelSets:    NewDescriptorCache[scene.Node](allocator),
		viewSets:     NewDescriptorCache[scene.Node](allocator),
		materialSets: NewDescriptorCache[scene.Material](allocator),
		fallback:     fallback,
		view:         math.NewMat4Identity(),
	}, nil
}

// State returns where the slot is in its lifecycle.
func (s *FrameSlot) State() SlotState {
	return s.state
}

// ImageIndex returns the chain image acquired for the current frame.
func (s *FrameSlot) ImageIndex() uint32 {
	return s.imageIndex
}

// assertRecording panics when the slot's per-frame resources are touched
// outside Recording. Anything else means the GPU may still be reading them.
func (s *FrameSlot) assertRecording(op string) {
	if s.state != SLOT_STATE_RECORDING {
		panic(fmt.Sprintf("%s on frame slot %d while %s: its resources may still be in flight", op, s.Index, s.state))
	}
}

// acquire runs the Idle half of the cycle: wait out the slot's previous
// submission, then claim the next chain image. The fence is reset only once
// the image is in hand, so a failed acquisition leaves it signaled and the
// slot safely re-entrant.
//
// Calling acquire on a slot that is already acquiring or recording is a
// missed submit in the caller and panics.
func (s *FrameSlot) acquire(surface gpu.Surface, timeoutNs uint64) error {
	if s.state != SLOT_STATE_IDLE && s.state != SLOT_STATE_SUBMITTED {
		panic(fmt.Sprintf("acquire on frame slot %d while %s", s.Index, s.state))
	}

	if err := s.fence.Wait(timeoutNs); err != nil {
		// Timeout: the previous submission is still running. The slot is
		// unchanged and the caller decides between retrying and bailing.
		return err
	}
	s.state = SLOT_STATE_IDLE

	imageIndex, err := surface.AcquireNextImage(timeoutNs, s.acquired)
	if err != nil {
		return err
	}
	if err := s.fence.Reset(); err != nil {
		err = fmt.Errorf("failed to reset fence of frame slot %d: %w", s.Index, err)
		core.LogError(err.Error())
		return err
	}
	s.imageIndex = imageIndex
	s.state = SLOT_STATE_ACQUIRING
	return nil
}

// beginRecording opens the command buffer and the render pass against the
// slot's target.
func (s *FrameSlot) beginRecording() error {
	if s.state != SLOT_STATE_ACQUIRING {
		panic(fmt.Sprintf("begin recording on frame slot %d while %s", s.Index, s.state))
	}
	if err := s.cmd.Begin(); err != nil {
		err = fmt.Errorf("failed to begin command buffer of frame slot %d: %w", s.Index, err)
		core.LogError(err.Error())
		return err
	}
	extent := s.target.Extent()
	s.cmd.SetViewport(extent)
	s.cmd.SetScissor(extent)
	s.cmd.BeginRenderPass(s.target)
	s.state = SLOT_STATE_RECORDING
	return nil
}

// Bind selects the camera for the draws that follow: binds the pipeline,
// refreshes the camera's view and projection buffers, and binds the view
// descriptor group.
func (s *FrameSlot) Bind(pipeline gpu.ScenePipeline, sc *scene.Scene, cameraNode containers.Handle[scene.Node]) error {
	s.assertRecording("bind")

	node, ok := sc.Nodes.Get(cameraNode)
	if !ok {
		err := fmt.Errorf("camera node %d is not in the scene", cameraNode.ID())
		core.LogError(err.Error())
		return err
	}
	camera, ok := sc.Cameras.Get(node.Camera)
	if !ok {
		err := fmt.Errorf("node %s carries no camera", node.Name)
		core.LogError(err.Error())
		return err
	}

	s.cmd.BindPipeline(pipeline)

	// The view matrix is the inverse of the camera node's transform.
	s.view = node.Transform.GetLocal().Inverse()
	viewBuffer, _, err := s.views.GetOrCreate(cameraNode, mat4Size)
	if err != nil {
		return err
	}
	if err := viewBuffer.Upload(mat4Bytes(&s.view)); err != nil {
		return err
	}

	projBuffer, _, err := s.projs.GetOrCreate(node.Camera, mat4Size)
	if err != nil {
		return err
	}
	proj := camera.Proj
	if err := projBuffer.Upload(mat4Bytes(&proj)); err != nil {
		return err
	}

	group, err := s.viewSets.BindOrCreate(pipeline.LayoutID(), cameraNode, pipeline.ViewSetLayouts(), func(group gpu.SetGroup) {
		pipeline.WriteViewSet(group, viewBuffer.Backing(), projBuffer.Backing())
	})
	if err != nil {
		return err
	}
	s.cmd.BindDescriptorGroup(pipeline, uint32(len(pipeline.ModelSetLayouts())), group)
	return nil
}

// Draw records one entity with the given model matrix: refreshes its
// transform, model-view and material buffers, binds the model and material
// groups, and issues every primitive of its mesh. Shared geometry comes
// from res.
func (s *FrameSlot) Draw(pipeline gpu.ScenePipeline, sc *scene.Scene, h containers.Handle[scene.Node], model math.Mat4, res *SceneResources) error {
	s.assertRecording("draw")

	node, ok := sc.Nodes.Get(h)
	if !ok {
		err := fmt.Errorf("node %d is not in the scene", h.ID())
		core.LogError(err.Error())
		return err
	}
	mesh, ok := sc.Meshes.Get(node.Mesh)
	if !ok {
		err := fmt.Errorf("node %s carries no mesh", node.Name)
		core.LogError(err.Error())
		return err
	}

	transformBuffer, _, err := s.transforms.GetOrCreate(h, mat4Size)
	if err != nil {
		return err
	}
	if err := transformBuffer.Upload(mat4Bytes(&model)); err != nil {
		return err
	}

	modelView := s.view.Mul(model)
	modelViewBuffer, _, err := s.modelViews.GetOrCreate(h, mat4Size)
	if err != nil {
		return err
	}
	if err := modelViewBuffer.Upload(mat4Bytes(&modelView)); err != nil {
		return err
	}

	modelGroup, err := s.modelSets.BindOrCreate(pipeline.LayoutID(), h, pipeline.ModelSetLayouts(), func(group gpu.SetGroup) {
		pipeline.WriteModelSet(group, transformBuffer.Backing(), modelViewBuffer.Backing())
	})
	if err != nil {
		return err
	}
	s.cmd.BindDescriptorGroup(pipeline, 0, modelGroup)

	materialFirstSet := uint32(len(pipeline.ModelSetLayouts()) + len(pipeline.ViewSetLayouts()))
	for _, ph := range mesh.Primitives {
		prim, ok := sc.Primitives.Get(ph)
		if !ok {
			continue
		}

		materialGroup, err := s.bindMaterial(pipeline, sc, prim.Material, res)
		if err != nil {
			return err
		}
		s.cmd.BindDescriptorGroup(pipeline, materialFirstSet, materialGroup)

		vertexBuffer, indexBuffer, err := res.primitiveBuffers(sc, ph)
		if err != nil {
			return err
		}
		s.cmd.BindVertexBuffer(vertexBuffer.Backing())
		if indexBuffer != nil {
			s.cmd.BindIndexBuffer(indexBuffer.Backing())
			s.cmd.DrawIndexed(uint32(len(prim.Indices)))
		} else {
			s.cmd.Draw(uint32(len(prim.Vertices)))
		}
	}
	return nil
}

// bindMaterial refreshes the material's colour buffer and returns its
// descriptor group. A primitive without a material uses the slot's white
// fallback, cached under the none handle.
func (s *FrameSlot) bindMaterial(pipeline gpu.ScenePipeline, sc *scene.Scene, h containers.Handle[scene.Material], res *SceneResources) (gpu.SetGroup, error) {
	material, ok := sc.Materials.Get(h)
	if !ok {
		return s.materialSets.BindOrCreate(pipeline.LayoutID(), containers.NoneHandle[scene.Material](), pipeline.MaterialSetLayouts(), func(group gpu.SetGroup) {
			pipeline.WriteMaterialSet(group, s.fallback.Material.Backing(), s.fallback.White)
		})
	}

	materialBuffer, _, err := s.materials.GetOrCreate(h, vec4Size)
	if err != nil {
		return nil, err
	}
	colour := material.Colour
	if err := materialBuffer.Upload(vec4Bytes(&colour)); err != nil {
		return nil, err
	}
	albedo, err := res.texture(sc, material.Albedo, s.fallback.White)
	if err != nil {
		return nil, err
	}

	return s.materialSets.BindOrCreate(pipeline.LayoutID(), h, pipeline.MaterialSetLayouts(), func(group gpu.SetGroup) {
		pipeline.WriteMaterialSet(group, materialBuffer.Backing(), albedo)
	})
}

// EndScene moves the command buffer to the presentation subpass: binds the
// present pipeline, lazily writes the present group pointing at this slot's
// offscreen attachments, and draws the fullscreen triangle.
func (s *FrameSlot) EndScene(pipeline gpu.PresentPipeline) error {
	s.assertRecording("end scene")

	s.cmd.NextSubpass()
	s.cmd.BindPipeline(pipeline)

	if s.presentGroup == nil {
		group, err := s.allocator.Allocate(pipeline.PresentSetLayouts())
		if err != nil {
			return err
		}
		pipeline.WritePresentSet(group, s.target)
		s.presentGroup = group
	}
	s.cmd.BindDescriptorGroup(pipeline, 0, s.presentGroup)
	s.cmd.BindVertexBuffer(s.fallback.PresentBuffer.Backing())
	s.cmd.Draw(3)
	return nil
}

// endRecording closes the render pass and the command buffer.
func (s *FrameSlot) endRecording() error {
	s.assertRecording("end recording")
	s.cmd.EndRenderPass()
	if err := s.cmd.End(); err != nil {
		err = fmt.Errorf("failed to end command buffer of frame slot %d: %w", s.Index, err)
		core.LogError(err.Error())
		return err
	}
	return nil
}

// markSubmitted records that the slot's work is on the queue. From here the
// slot is hands-off until the fence observes completion.
func (s *FrameSlot) markSubmitted() {
	s.state = SLOT_STATE_SUBMITTED
}

// ReplaceRenderTarget swaps in a target rebuilt against new surface
// geometry. The present group references the old attachments, so it is
// freed here and lazily rewritten by the next EndScene; buffer caches,
// descriptor caches and sync objects all persist. The device must be idle.
func (s *FrameSlot) ReplaceRenderTarget(target gpu.RenderTarget) {
	if s.state == SLOT_STATE_ACQUIRING || s.state == SLOT_STATE_RECORDING {
		panic(fmt.Sprintf("render target replaced on frame slot %d while %s", s.Index, s.state))
	}
	if s.presentGroup != nil {
		s.allocator.Free(s.presentGroup)
		s.presentGroup = nil
	}
	if s.target != nil {
		s.target.Destroy()
	}
	s.target = target
}

// Destroy releases everything the slot owns. The device must be idle.
func (s *FrameSlot) Destroy() {
	s.transforms.Destroy()
	s.modelViews.Destroy()
	s.views.Destroy()
	s.projs.Destroy()
	s.materials.Destroy()
	s.modelSets.Clear()
	s.viewSets.Clear()
	s.materialSets.Clear()
	s.presentGroup = nil
	s.allocator.Destroy()
	s.fallback.Destroy()
	s.cmd.Destroy()
	s.fence.Destroy()
	s.acquired.Destroy()
	s.finished.Destroy()
	if s.target != nil {
		s.target.Destroy()
		s.target = nil
	}
}
