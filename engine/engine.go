package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/Fahien/vkr-go/engine/assets"
	"github.com/Fahien/vkr-go/engine/assets/loaders"
	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/platform"
	"github.com/Fahien/vkr-go/engine/renderer"
	"github.com/Fahien/vkr-go/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// Engine owns the window, the GPU stack and the main loop. It drives the
// Game's callbacks and routes platform events to the renderer.
type Engine struct {
	currentStage Stage
	gameInstance *Game
	platform     *platform.Platform
	watcher      *assets.Watcher

	device          *vulkan.Device
	surface         *vulkan.Swapchain
	scenePipeline   *vulkan.ScenePipeline
	presentPipeline *vulkan.PresentPipeline
	renderer        *renderer.Renderer

	// Flipped from event handlers, read by the run loop.
	isRunning   atomic.Bool
	isSuspended atomic.Bool

	width    uint32
	height   uint32
	clock    *core.Clock
	lastTime float64
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		err := fmt.Errorf("a game with an application configuration is required")
		core.LogError(err.Error())
		return nil, err
	}

	p, err := platform.New()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		platform:     p,
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
		lastTime:     0,
	}
	e.isRunning.Store(true)
	return e, nil
}

// Initialize brings up the window, the device, the swapchain, the builtin
// pipelines and the renderer, in that order, then hands the game its render
// entry points and runs its FnInitialize.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	config := e.gameInstance.ApplicationConfig
	core.SetLogLevel(config.LogLevel)

	// initialize input
	if err := core.InputInitialize(); err != nil {
		return err
	}

	// initialize events
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}

	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	// register some events
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)
	core.EventRegister(core.EVENT_CODE_WATCHED_FILE_WRITTEN, e.onFileWritten)

	if err := e.platform.Startup(config.Name,
		config.StartPosX,
		config.StartPosY,
		config.StartWidth,
		config.StartHeight); err != nil {
		return err
	}

	device, err := vulkan.NewDevice(config.Name, e.platform.Window, config.Validation)
	if err != nil {
		return err
	}
	e.device = device

	surface, err := vulkan.NewSwapchain(device, e.platform.Window, config.FramesInFlight)
	if err != nil {
		return err
	}
	e.surface = surface

	if err := e.createPipelines(); err != nil {
		return err
	}

	r, err := renderer.NewRenderer(device, surface, e.presentPipeline, config.PoolSizes)
	if err != nil {
		return err
	}
	e.renderer = r

	e.gameInstance.Renderer = r
	e.gameInstance.ScenePipeline = e.scenePipeline

	if config.ConfigPath != "" {
		if err := e.watchConfig(config.ConfigPath); err != nil {
			core.LogWarn("configuration watching disabled: %s", err.Error())
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}

	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// createPipelines loads the compiled shaders from assets/shaders and builds
// the scene and presentation pipelines against the swapchain's render pass.
func (e *Engine) createPipelines() error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	shaderDir := filepath.Join(wd, "assets", "shaders")
	loader := &loaders.ShaderLoader{}

	sceneVert, err := loader.Load(filepath.Join(shaderDir, "scene.vert.spv"))
	if err != nil {
		return err
	}
	sceneFrag, err := loader.Load(filepath.Join(shaderDir, "scene.frag.spv"))
	if err != nil {
		return err
	}
	presentVert, err := loader.Load(filepath.Join(shaderDir, "present.vert.spv"))
	if err != nil {
		return err
	}
	presentFrag, err := loader.Load(filepath.Join(shaderDir, "present.frag.spv"))
	if err != nil {
		return err
	}

	scenePipeline, err := vulkan.NewScenePipeline(e.device, e.surface, sceneVert, sceneFrag)
	if err != nil {
		return err
	}
	e.scenePipeline = scenePipeline

	presentPipeline, err := vulkan.NewPresentPipeline(e.device, e.surface, presentVert, presentFrag)
	if err != nil {
		return err
	}
	e.presentPipeline = presentPipeline
	return nil
}

func (e *Engine) watchConfig(path string) error {
	watcher, err := assets.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Watch(path); err != nil {
		watcher.Close()
		return err
	}
	e.watcher = watcher
	return nil
}

// Run drives the main loop until the window closes or something fatal
// happens. Skipped frames (minimized window, chain rebuild in progress) are
// not fatal; callback errors and unrecoverable renderer errors are.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		err := fmt.Errorf("engine must be initialized before running")
		core.LogError(err.Error())
		return err
	}
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	// start goroutine to process all the events around the engine
	go core.ProcessEvents()

	var targetFrameSeconds float64 = 1.0 / 60.0
	limitFrames := false

	for e.isRunning.Load() {
		if !e.platform.PumpMessages() {
			e.isRunning.Store(false)
		}

		if e.isSuspended.Load() {
			// Minimized: nothing to draw, keep the clock in step so the
			// first delta after resuming stays sane.
			e.clock.Update()
			e.lastTime = e.clock.Elapsed()
			core.MetricsReset()
			e.platform.Sleep(100)
			continue
		}

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := e.platform.GetAbsoluteTime()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("game update failed, shutting down: %s", err.Error())
				e.isRunning.Store(false)
				break
			}
		}

		if err := e.drawFrame(delta); err != nil {
			core.LogError("frame failed, shutting down: %s", err.Error())
			e.isRunning.Store(false)
			break
		}

		// Figure out how long the frame took.
		frameElapsedTime := e.platform.GetAbsoluteTime() - frameStartTime
		core.MetricsUpdate(frameElapsedTime)

		remainingSeconds := targetFrameSeconds - frameElapsedTime
		if remainingSeconds > 0 && limitFrames {
			// If there is time left, give it back to the OS.
			e.platform.Sleep(remainingSeconds*1000 - 1)
		}

		// NOTE: Input update/state copying should always be handled
		// after any input should be recorded; I.E. before this line.
		// As a safety, input is the last thing to be updated before
		// this frame ends.
		core.InputUpdate(delta)

		e.lastTime = currentTime
	}

	return nil
}

// drawFrame runs one begin/record/submit cycle. A nil slot means the
// renderer skipped the frame, which is not an error.
func (e *Engine) drawFrame(delta float64) error {
	slot, err := e.renderer.BeginFrame()
	if err != nil {
		return err
	}
	if slot == nil {
		return nil
	}

	if e.gameInstance.FnRender != nil {
		if err := e.gameInstance.FnRender(slot, delta); err != nil {
			return err
		}
	}

	if err := e.renderer.EndScene(slot); err != nil {
		return err
	}
	return e.renderer.EndFrame(slot)
}

// Shutdown tears everything down in reverse creation order. Safe to call
// after a failed Initialize; repeated calls are no-ops.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	core.LogInfo("shutting down")

	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown failed: %s", err.Error())
		}
	}

	if e.watcher != nil {
		e.watcher.Close()
	}

	if e.renderer != nil {
		e.renderer.Shutdown()
	}
	if e.scenePipeline != nil {
		e.scenePipeline.Destroy()
	}
	if e.presentPipeline != nil {
		e.presentPipeline.Destroy()
	}
	if e.surface != nil {
		e.surface.Destroy()
	}
	if e.device != nil {
		e.device.Destroy()
	}

	if err := core.EventSystemShutdown(); err != nil {
		return err
	}
	if err := core.InputShutdown(); err != nil {
		return err
	}
	if err := e.platform.Shutdown(); err != nil {
		return err
	}
	return nil
}

// GetFramebufferSize returns the width and height (in this order)
// of the application framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext) {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("application quit requested, stopping the main loop")
		e.isRunning.Store(false)
	}
}

func (e *Engine) onKey(context core.EventContext) {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}

	if context.Type == core.EVENT_CODE_KEY_PRESSED && ke.KeyCode == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		core.EventFire(core.EventContext{
			Type: core.EVENT_CODE_APPLICATION_QUIT,
		})
	}
}

func (e *Engine) onResized(context core.EventContext) {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}

	width := se.WindowWidth
	height := se.WindowHeight
	if width == e.width && height == e.height {
		return
	}
	e.width = width
	e.height = height

	core.LogDebug("window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("window minimized, suspending application")
		e.isSuspended.Store(true)
		return
	}

	if e.isSuspended.Load() {
		core.LogInfo("window restored, resuming application")
		e.isSuspended.Store(false)
	}
	e.renderer.OnResize(width, height)
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
}

// onFileWritten reloads the configuration when it changes on disk. Only the
// log level applies while running; everything else is read once at startup.
func (e *Engine) onFileWritten(context core.EventContext) {
	fe, ok := context.Data.(*core.FileEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}

	config, err := assets.LoadConfig(fe.Path)
	if err != nil {
		core.LogWarn("configuration reload failed: %s", err.Error())
		return
	}
	config.ApplyLogLevel()
	core.LogInfo("configuration reloaded from %s", fe.Path)
}
