// Package renderer drives the per-frame resource lifecycle: frame slots
// rotating over the image chain, handle-keyed buffer and descriptor caches,
// and the begin/bind/draw/end sequence that records one frame.
//
// The design point is frame overlap without data races on the GPU: anything
// a frame mutates is duplicated per slot, anything shared is immutable, and
// the slot state machine turns violations into panics at the call site
// instead of flickering artifacts three frames later.
package renderer

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Fahien/vkr-go/engine/containers"
	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
	"github.com/Fahien/vkr-go/engine/math"
	"github.com/Fahien/vkr-go/engine/scene"
)

// Renderer sequences frames over the cycler and owns the slot-independent
// resources. A frame runs BeginFrame, any number of Bind and Draw calls,
// EndScene, then EndFrame with the slot BeginFrame returned.
type Renderer struct {
	device  gpu.Device
	surface gpu.Surface
	cycler  *FrameCycler
	present gpu.PresentPipeline
	res     *SceneResources

	// Resize events only bump the generation; the rebuild itself runs on
	// the render goroutine at the next BeginFrame. Atomic because resize
	// events arrive on the event goroutine.
	sizeGeneration     atomic.Uint64
	lastSizeGeneration uint64
}

// NewRenderer builds the frame slots over the surface's image chain. The
// present pipeline is the renderer's own because the presentation subpass
// is not the application's business.
func NewRenderer(device gpu.Device, surface gpu.Surface, present gpu.PresentPipeline, sizes gpu.PoolSizes) (*Renderer, error) {
	cycler, err := NewFrameCycler(device, surface, sizes)
	if err != nil {
		return nil, err
	}
	core.LogInfo("renderer ready with %d frame slots", len(cycler.Slots()))
	return &Renderer{
		device:  device,
		surface: surface,
		cycler:  cycler,
		present: present,
		res:     NewSceneResources(device),
	}, nil
}

// BeginFrame starts the next frame and returns the slot to record into. A
// nil slot with a nil error means skip this frame and try again next tick:
// the surface has no size, a resize is being absorbed, or the GPU is
// running long. Real errors are fatal to the renderer.
func (r *Renderer) BeginFrame() (*FrameSlot, error) {
	extent := r.surface.Extent()
	if extent.Width == 0 || extent.Height == 0 {
		return nil, nil
	}

	if r.sizeGeneration.Load() != r.lastSizeGeneration {
		core.LogDebug("surface size changed, rebuilding the image chain")
		if err := r.rebuild(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	slot, err := r.cycler.Next()
	if err != nil {
		if errors.Is(err, core.ErrSurfaceOutOfDate) {
			if err := r.rebuild(); err != nil {
				return nil, err
			}
			return nil, nil
		}
		if errors.Is(err, core.ErrFenceWaitTimeout) {
			core.LogWarn("frame slot fence still busy after %d ns, skipping frame", DefaultFenceTimeout)
			return nil, nil
		}
		return nil, err
	}

	if err := slot.beginRecording(); err != nil {
		return nil, err
	}
	return slot, nil
}

// Bind selects the camera for the draws that follow.
func (r *Renderer) Bind(slot *FrameSlot, pipeline gpu.ScenePipeline, sc *scene.Scene, cameraNode containers.Handle[scene.Node]) error {
	return slot.Bind(pipeline, sc, cameraNode)
}

// Draw records one node using its own transform as the model matrix.
func (r *Renderer) Draw(slot *FrameSlot, pipeline gpu.ScenePipeline, sc *scene.Scene, h containers.Handle[scene.Node]) error {
	node, ok := sc.Nodes.Get(h)
	if !ok {
		err := fmt.Errorf("node %d is not in the scene", h.ID())
		core.LogError(err.Error())
		return err
	}
	return slot.Draw(pipeline, sc, h, node.Transform.GetLocal(), r.res)
}

// DrawScene records every mesh node under root, each with its world matrix
// composed from the ancestor chain.
func (r *Renderer) DrawScene(slot *FrameSlot, pipeline gpu.ScenePipeline, sc *scene.Scene, root containers.Handle[scene.Node]) error {
	var firstErr error
	sc.Traverse(root, func(h containers.Handle[scene.Node], world math.Mat4) {
		if firstErr != nil {
			return
		}
		node, ok := sc.Nodes.Get(h)
		if !ok || !node.Mesh.Valid() {
			return
		}
		firstErr = slot.Draw(pipeline, sc, h, world, r.res)
	})
	return firstErr
}

// EndScene closes the scene subpass and blits it onto the chain image.
func (r *Renderer) EndScene(slot *FrameSlot) error {
	return slot.EndScene(r.present)
}

// EndFrame submits the slot's commands and queues the image for
// presentation. A stale surface at present time rebuilds the chain and
// drops the frame without error; everything else propagates.
func (r *Renderer) EndFrame(slot *FrameSlot) error {
	if err := slot.endRecording(); err != nil {
		return err
	}
	if err := r.device.Submit(gpu.SubmitInfo{
		CommandBuffer:   slot.cmd,
		WaitSemaphore:   slot.acquired,
		SignalSemaphore: slot.finished,
		Fence:           slot.fence,
	}); err != nil {
		err = fmt.Errorf("failed to submit frame slot %d: %w", slot.Index, err)
		core.LogError(err.Error())
		return err
	}
	slot.markSubmitted()

	if err := r.cycler.Present(slot); err != nil {
		if errors.Is(err, core.ErrSurfaceOutOfDate) {
			return r.rebuild()
		}
		err = fmt.Errorf("failed to present frame slot %d: %w", slot.Index, err)
		core.LogError(err.Error())
		return err
	}
	return nil
}

// OnResize notes the new surface size. Cheap and callable from event
// handlers; the rebuild itself happens at the next BeginFrame.
func (r *Renderer) OnResize(width, height uint32) {
	r.sizeGeneration.Add(1)
	core.LogDebug("surface resized to %dx%d", width, height)
}

func (r *Renderer) rebuild() error {
	// Read the generation before recreating: a resize landing mid-rebuild
	// keeps it ahead of lastSizeGeneration and triggers another pass.
	generation := r.sizeGeneration.Load()
	if err := r.cycler.Recreate(); err != nil {
		return err
	}
	r.lastSizeGeneration = generation
	return nil
}

// Cycler exposes the slot rotation, mostly for diagnostics.
func (r *Renderer) Cycler() *FrameCycler {
	return r.cycler
}

// Shutdown waits out in-flight work and releases everything the renderer
// created. The surface and device belong to the caller.
func (r *Renderer) Shutdown() {
	if err := r.device.WaitIdle(); err != nil {
		core.LogWarn("device wait failed during shutdown: %s", err.Error())
	}
	r.cycler.Destroy()
	r.res.Destroy()
	core.LogInfo("renderer shut down")
}
