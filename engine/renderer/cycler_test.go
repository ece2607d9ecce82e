package renderer

import (
	"errors"
	"testing"

	"github.com/Fahien/vkr-go/engine/containers"
	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
	"github.com/Fahien/vkr-go/engine/scene"
)

type cyclerRig struct {
	device   *fakeDevice
	surface  *fakeSurface
	cycler   *FrameCycler
	sc       *scene.Scene
	camera   containers.Handle[scene.Node]
	cube     containers.Handle[scene.Node]
	pipeline *fakeScenePipeline
	present  *fakePresentPipeline
	res      *SceneResources
}

func newCyclerRig(t *testing.T, imageCount int) *cyclerRig {
	t.Helper()
	device := newFakeDevice()
	surface := newFakeSurface(imageCount, 800, 600)
	cycler, err := NewFrameCycler(device, surface, gpu.DefaultPoolSizes())
	if err != nil {
		t.Fatalf("failed to create cycler: %v", err)
	}
	sc, camera, cube := newTestScene()
	return &cyclerRig{
		device:   device,
		surface:  surface,
		cycler:   cycler,
		sc:       sc,
		camera:   camera,
		cube:     cube,
		pipeline: newFakeScenePipeline(),
		present:  newFakePresentPipeline(),
		res:      NewSceneResources(device),
	}
}

// cycleFrame runs one whole frame the way the renderer does: acquire,
// record, submit, present.
func (r *cyclerRig) cycleFrame(t *testing.T) *FrameSlot {
	t.Helper()
	slot, err := r.cycler.Next()
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if err := slot.beginRecording(); err != nil {
		t.Fatalf("begin recording failed: %v", err)
	}
	if err := slot.Bind(r.pipeline, r.sc, r.camera); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	node, _ := r.sc.Nodes.Get(r.cube)
	if err := slot.Draw(r.pipeline, r.sc, r.cube, node.Transform.GetLocal(), r.res); err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if err := slot.EndScene(r.present); err != nil {
		t.Fatalf("end scene failed: %v", err)
	}
	if err := slot.endRecording(); err != nil {
		t.Fatalf("end recording failed: %v", err)
	}
	if err := r.device.Submit(gpu.SubmitInfo{
		CommandBuffer:   slot.cmd,
		WaitSemaphore:   slot.acquired,
		SignalSemaphore: slot.finished,
		Fence:           slot.fence,
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	slot.markSubmitted()
	if err := r.cycler.Present(slot); err != nil {
		t.Fatalf("present failed: %v", err)
	}
	return slot
}

func TestCyclerRotatesInOrder(t *testing.T) {
	rig := newCyclerRig(t, 3)

	var indices []int
	for frame := 0; frame < 6; frame++ {
		indices = append(indices, rig.cycleFrame(t).Index)
	}

	want := []int{0, 1, 2, 0, 1, 2}
	for i, index := range indices {
		if index != want[i] {
			t.Fatalf("frame %d used slot %d, want %d (full order %v)", i, index, want[i], indices)
		}
	}
}

func TestCyclerOneSlotPerChainImage(t *testing.T) {
	rig := newCyclerRig(t, 4)
	if len(rig.cycler.Slots()) != 4 {
		t.Fatalf("expected 4 slots for 4 chain images, got %d", len(rig.cycler.Slots()))
	}
}

func TestCyclerAcquireOutOfDateResetsRotation(t *testing.T) {
	rig := newCyclerRig(t, 3)
	rig.cycleFrame(t)
	if rig.cycler.Current() != 1 {
		t.Fatalf("expected rotation at 1 after a frame, got %d", rig.cycler.Current())
	}

	rig.surface.acquireErr = core.ErrSurfaceOutOfDate
	_, err := rig.cycler.Next()
	if !errors.Is(err, core.ErrSurfaceOutOfDate) {
		t.Fatalf("expected out of date, got %v", err)
	}
	if rig.cycler.Current() != 0 {
		t.Fatalf("expected rotation reset to 0, got %d", rig.cycler.Current())
	}
}

func TestCyclerPresentOutOfDateResetsRotation(t *testing.T) {
	rig := newCyclerRig(t, 3)
	rig.cycleFrame(t)

	slot, err := rig.cycler.Next()
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if err := slot.beginRecording(); err != nil {
		t.Fatalf("begin recording failed: %v", err)
	}
	if err := slot.endRecording(); err != nil {
		t.Fatalf("end recording failed: %v", err)
	}
	slot.fence.(*fakeFence).signaled = true
	slot.markSubmitted()

	rig.surface.presentErr = core.ErrSurfaceOutOfDate
	if err := rig.cycler.Present(slot); !errors.Is(err, core.ErrSurfaceOutOfDate) {
		t.Fatalf("expected out of date, got %v", err)
	}
	if rig.cycler.Current() != 0 {
		t.Fatalf("expected rotation reset to 0, got %d", rig.cycler.Current())
	}
}

func TestCyclerTimeoutKeepsRotation(t *testing.T) {
	rig := newCyclerRig(t, 3)
	rig.cycleFrame(t)

	busy := rig.cycler.Slots()[1]
	busy.fence.(*fakeFence).failWait = true
	_, err := rig.cycler.Next()
	if !errors.Is(err, core.ErrFenceWaitTimeout) {
		t.Fatalf("expected fence timeout, got %v", err)
	}
	if rig.cycler.Current() != 1 {
		t.Fatalf("timeout should keep the rotation at 1, got %d", rig.cycler.Current())
	}

	// The GPU catches up; the same slot cycles fine.
	busy.fence.(*fakeFence).failWait = false
	if rig.cycleFrame(t).Index != 1 {
		t.Fatal("expected the delayed slot to cycle next")
	}
}

func TestCyclerRecreatePreservesSlotResources(t *testing.T) {
	rig := newCyclerRig(t, 3)

	// One frame per slot so every cache and present group is populated.
	for frame := 0; frame < 3; frame++ {
		rig.cycleFrame(t)
	}

	slots := rig.cycler.Slots()
	fences := make([]gpu.Fence, len(slots))
	acquired := make([]gpu.Semaphore, len(slots))
	cached := make([]int, len(slots))
	for i, slot := range slots {
		fences[i] = slot.fence
		acquired[i] = slot.acquired
		cached[i] = slot.transforms.Len()
		if cached[i] == 0 {
			t.Fatalf("slot %d has no cached transforms before recreation", i)
		}
	}
	modelWrites := rig.pipeline.modelWrites
	presentWrites := rig.present.presentWrites

	rig.surface.acquireErr = core.ErrSurfaceOutOfDate
	if _, err := rig.cycler.Next(); !errors.Is(err, core.ErrSurfaceOutOfDate) {
		t.Fatalf("expected out of date, got %v", err)
	}
	if err := rig.cycler.Recreate(); err != nil {
		t.Fatalf("recreate failed: %v", err)
	}

	if rig.device.waitIdleCalls == 0 {
		t.Fatal("recreation must wait for the device first")
	}
	if rig.surface.recreates != 1 {
		t.Fatalf("expected one chain recreation, got %d", rig.surface.recreates)
	}
	for i, slot := range slots {
		if slot.fence != fences[i] {
			t.Fatalf("slot %d got a new fence across recreation", i)
		}
		if slot.acquired != acquired[i] {
			t.Fatalf("slot %d got a new semaphore across recreation", i)
		}
		if slot.transforms.Len() != cached[i] {
			t.Fatalf("slot %d lost cached buffers across recreation", i)
		}
		if slot.presentGroup != nil {
			t.Fatalf("slot %d kept a present group for destroyed attachments", i)
		}
	}

	// Rendering resumes from slot 0. Entity descriptor groups are still
	// cached, only the present groups are rewritten.
	for frame := 0; frame < 3; frame++ {
		slot := rig.cycleFrame(t)
		if slot.Index != frame {
			t.Fatalf("post-recreation frame %d used slot %d", frame, slot.Index)
		}
	}
	if rig.pipeline.modelWrites != modelWrites {
		t.Fatalf("model groups rewritten after recreation: %d -> %d", modelWrites, rig.pipeline.modelWrites)
	}
	if rig.present.presentWrites != presentWrites+3 {
		t.Fatalf("expected %d present writes after recreation, got %d",
			presentWrites+3, rig.present.presentWrites)
	}
}
