package renderer

import (
	"bytes"
	"testing"

	"github.com/Fahien/vkr-go/engine/containers"
	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
	"github.com/Fahien/vkr-go/engine/math"
	"github.com/Fahien/vkr-go/engine/scene"
)

type rendererRig struct {
	device   *fakeDevice
	surface  *fakeSurface
	renderer *Renderer
	sc       *scene.Scene
	camera   containers.Handle[scene.Node]
	cube     containers.Handle[scene.Node]
	pipeline *fakeScenePipeline
	present  *fakePresentPipeline
}

func newRendererRig(t *testing.T, imageCount int) *rendererRig {
	t.Helper()
	device := newFakeDevice()
	surface := newFakeSurface(imageCount, 800, 600)
	present := newFakePresentPipeline()
	r, err := NewRenderer(device, surface, present, gpu.DefaultPoolSizes())
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}
	sc, camera, cube := newTestScene()
	return &rendererRig{
		device:   device,
		surface:  surface,
		renderer: r,
		sc:       sc,
		camera:   camera,
		cube:     cube,
		pipeline: newFakeScenePipeline(),
		present:  present,
	}
}

// renderFrame runs the whole application-facing sequence and fails the test
// if the frame is skipped.
func (r *rendererRig) renderFrame(t *testing.T) *FrameSlot {
	t.Helper()
	slot, err := r.renderer.BeginFrame()
	if err != nil {
		t.Fatalf("begin frame failed: %v", err)
	}
	if slot == nil {
		t.Fatal("frame unexpectedly skipped")
	}
	if err := r.renderer.Bind(slot, r.pipeline, r.sc, r.camera); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if err := r.renderer.Draw(slot, r.pipeline, r.sc, r.cube); err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if err := r.renderer.EndScene(slot); err != nil {
		t.Fatalf("end scene failed: %v", err)
	}
	if err := r.renderer.EndFrame(slot); err != nil {
		t.Fatalf("end frame failed: %v", err)
	}
	return slot
}

func TestRendererFrameLoop(t *testing.T) {
	rig := newRendererRig(t, 3)

	var indices []int
	for frame := 0; frame < 6; frame++ {
		indices = append(indices, rig.renderFrame(t).Index)
	}

	want := []int{0, 1, 2, 0, 1, 2}
	for i, index := range indices {
		if index != want[i] {
			t.Fatalf("frame %d used slot %d, want %d", i, index, want[i])
		}
	}
	if len(rig.surface.presented) != 6 {
		t.Fatalf("expected 6 presents, got %d", len(rig.surface.presented))
	}
	if len(rig.device.submits) != 6 {
		t.Fatalf("expected 6 submissions, got %d", len(rig.device.submits))
	}
}

func TestRendererUploadsGeometryOnce(t *testing.T) {
	rig := newRendererRig(t, 3)

	for frame := 0; frame < 6; frame++ {
		rig.renderFrame(t)
	}

	// One vertex and one index buffer for the cube, shared by every slot.
	if rig.renderer.res.vertices.Len() != 1 || rig.renderer.res.indices.Len() != 1 {
		t.Fatalf("expected one vertex and one index buffer, got %d and %d",
			rig.renderer.res.vertices.Len(), rig.renderer.res.indices.Len())
	}
	node, _ := rig.sc.Nodes.Get(rig.cube)
	mesh, _ := rig.sc.Meshes.Get(node.Mesh)
	vertexBuffer := rig.renderer.res.vertices.MustGet(mesh.Primitives[0])
	// Zero-initialization plus the real geometry, then never again.
	if writes := vertexBuffer.Backing().(*fakeBuffer).writes; writes != 2 {
		t.Fatalf("vertex buffer written %d times, want 2", writes)
	}
}

func TestRendererRefreshesUniformsEveryFrame(t *testing.T) {
	rig := newRendererRig(t, 2)

	for frame := 0; frame < 4; frame++ {
		rig.renderFrame(t)
	}

	// Each slot carries its own transform buffer for the cube, rewritten on
	// each of its two frames: zero-init plus two refreshes.
	for i, slot := range rig.renderer.Cycler().Slots() {
		if slot.transforms.Len() != 1 {
			t.Fatalf("slot %d caches %d transforms, want 1", i, slot.transforms.Len())
		}
		buffer := slot.transforms.MustGet(rig.cube)
		if writes := buffer.Backing().(*fakeBuffer).writes; writes != 3 {
			t.Fatalf("slot %d transform written %d times, want 3", i, writes)
		}
	}
	// Descriptor groups were written once per slot despite the refreshes.
	if rig.pipeline.modelWrites != 2 {
		t.Fatalf("expected one model group write per slot, got %d", rig.pipeline.modelWrites)
	}
}

func TestRendererSkipsOnZeroExtent(t *testing.T) {
	rig := newRendererRig(t, 3)
	rig.surface.extent = gpu.Extent2D{Width: 0, Height: 0}

	slot, err := rig.renderer.BeginFrame()
	if err != nil {
		t.Fatalf("begin frame failed: %v", err)
	}
	if slot != nil {
		t.Fatal("expected a skipped frame on a zero-sized surface")
	}
	if rig.surface.acquires != 0 {
		t.Fatal("no image should be acquired for a zero-sized surface")
	}
}

func TestRendererResizeRebuildsOnNextFrame(t *testing.T) {
	rig := newRendererRig(t, 3)
	rig.renderFrame(t)

	rig.renderer.OnResize(1024, 768)
	rig.surface.extent = gpu.Extent2D{Width: 1024, Height: 768}

	slot, err := rig.renderer.BeginFrame()
	if err != nil {
		t.Fatalf("begin frame failed: %v", err)
	}
	if slot != nil {
		t.Fatal("the rebuilding frame should be skipped")
	}
	if rig.surface.recreates != 1 {
		t.Fatalf("expected one chain recreation, got %d", rig.surface.recreates)
	}

	// Only one rebuild per resize generation.
	if rig.renderFrame(t).Index != 0 {
		t.Fatal("rendering should resume from slot 0")
	}
	if rig.surface.recreates != 1 {
		t.Fatalf("expected no further recreation, got %d", rig.surface.recreates)
	}
}

func TestRendererAcquireOutOfDateRebuildsAndSkips(t *testing.T) {
	rig := newRendererRig(t, 3)
	rig.renderFrame(t)

	rig.surface.acquireErr = core.ErrSurfaceOutOfDate
	slot, err := rig.renderer.BeginFrame()
	if err != nil {
		t.Fatalf("begin frame failed: %v", err)
	}
	if slot != nil {
		t.Fatal("the out-of-date frame should be skipped")
	}
	if rig.surface.recreates != 1 {
		t.Fatalf("expected one chain recreation, got %d", rig.surface.recreates)
	}

	if rig.renderFrame(t).Index != 0 {
		t.Fatal("rendering should resume from slot 0")
	}
}

func TestRendererPresentOutOfDateRebuilds(t *testing.T) {
	rig := newRendererRig(t, 3)

	slot, err := rig.renderer.BeginFrame()
	if err != nil {
		t.Fatalf("begin frame failed: %v", err)
	}
	if err := rig.renderer.EndScene(slot); err != nil {
		t.Fatalf("end scene failed: %v", err)
	}
	rig.surface.presentErr = core.ErrSurfaceOutOfDate
	if err := rig.renderer.EndFrame(slot); err != nil {
		t.Fatalf("end frame should absorb the stale surface, got %v", err)
	}
	if rig.surface.recreates != 1 {
		t.Fatalf("expected one chain recreation, got %d", rig.surface.recreates)
	}
	if rig.renderFrame(t).Index != 0 {
		t.Fatal("rendering should resume from slot 0")
	}
}

func TestRendererFenceTimeoutSkipsFrame(t *testing.T) {
	rig := newRendererRig(t, 3)
	rig.renderFrame(t)

	busy := rig.renderer.Cycler().Slots()[1]
	busy.fence.(*fakeFence).failWait = true
	slot, err := rig.renderer.BeginFrame()
	if err != nil {
		t.Fatalf("a long-running GPU should skip, not fail: %v", err)
	}
	if slot != nil {
		t.Fatal("the timed-out frame should be skipped")
	}

	busy.fence.(*fakeFence).failWait = false
	if rig.renderFrame(t).Index != 1 {
		t.Fatal("the delayed slot should cycle once the GPU catches up")
	}
}

func TestRendererDrawSceneComposesWorldMatrices(t *testing.T) {
	rig := newRendererRig(t, 2)

	parent := rig.sc.CreateNode("parent")
	parentNode, _ := rig.sc.Nodes.Get(parent)
	parentNode.Transform.SetPosition(math.NewVec3(1.0, 0.0, 0.0))
	material := rig.sc.Materials.Push(scene.Material{Colour: math.NewVec4(1.0, 1.0, 1.0, 1.0)})
	child := rig.sc.CreateMeshNode("child", scene.NewTriangle(material))
	childNode, _ := rig.sc.Nodes.Get(child)
	childNode.Transform.SetPosition(math.NewVec3(0.0, 2.0, 0.0))
	rig.sc.AddChild(parent, child)

	slot, err := rig.renderer.BeginFrame()
	if err != nil || slot == nil {
		t.Fatalf("begin frame failed: slot %v err %v", slot, err)
	}
	if err := rig.renderer.Bind(slot, rig.pipeline, rig.sc, rig.camera); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if err := rig.renderer.DrawScene(slot, rig.pipeline, rig.sc, parent); err != nil {
		t.Fatalf("draw scene failed: %v", err)
	}

	// The child's model matrix is its parent's translation composed with
	// its own.
	want := math.NewMat4Translation(math.NewVec3(1.0, 2.0, 0.0))
	buffer := slot.transforms.MustGet(child)
	if !bytes.Equal(buffer.Backing().(*fakeBuffer).data, mat4Bytes(&want)) {
		t.Fatal("child transform buffer does not hold the composed world matrix")
	}
	// The parent carries no mesh, so only the child was drawn.
	if slot.transforms.Len() != 1 {
		t.Fatalf("expected one drawn node, got %d", slot.transforms.Len())
	}
}

func TestRendererShutdownWaitsForDevice(t *testing.T) {
	rig := newRendererRig(t, 3)
	rig.renderFrame(t)

	rig.renderer.Shutdown()

	if rig.device.waitIdleCalls == 0 {
		t.Fatal("shutdown must wait for in-flight work")
	}
}
