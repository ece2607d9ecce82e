package engine

import (
	"github.com/Fahien/vkr-go/engine/gpu"
	"github.com/Fahien/vkr-go/engine/renderer"
)

// Game bundles an application's configuration, state and callbacks. The
// engine drives the callbacks: FnInitialize once the renderer is up,
// FnUpdate and FnRender every frame, FnOnResize when the window changes,
// FnShutdown before teardown. Nil callbacks are skipped.
type Game struct {
	ApplicationConfig *ApplicationConfig

	// Renderer and ScenePipeline are assigned by the engine before
	// FnInitialize runs.
	Renderer      *renderer.Renderer
	ScenePipeline gpu.ScenePipeline

	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error

// Render records the frame into the slot. The engine has already begun the
// frame; it ends the scene and submits after the callback returns.
type Render func(slot *renderer.FrameSlot, deltaTime float64) error

type OnResize func(width uint32, height uint32) error
type Shutdown func() error
