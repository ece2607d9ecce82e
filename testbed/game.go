// Package testbed is a small application exercising the engine: a spinning
// textured cube with a satellite child, orbited by a keyboard-driven camera.
package testbed

import (
	stdmath "math"
	"path/filepath"

	"github.com/Fahien/vkr-go/engine"
	"github.com/Fahien/vkr-go/engine/assets/loaders"
	"github.com/Fahien/vkr-go/engine/containers"
	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/math"
	"github.com/Fahien/vkr-go/engine/renderer"
	"github.com/Fahien/vkr-go/engine/scene"
)

const configPath = "assets/config.toml"

type TestGame struct {
	*engine.Game
}

type gameState struct {
	scene      *scene.Scene
	root       containers.Handle[scene.Node]
	cameraNode containers.Handle[scene.Node]
	cube       containers.Handle[scene.Node]
	satellite  containers.Handle[scene.Node]

	width  uint32
	height uint32

	// Camera orbit around the origin, driven by the keyboard.
	yaw      float32
	pitch    float32
	distance float32
}

// NewGame loads the configuration and wires the testbed callbacks into a
// Game the engine can run.
func NewGame() (*engine.Game, error) {
	config, err := engine.NewApplicationConfig(configPath)
	if err != nil {
		return nil, err
	}

	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State: &gameState{
				yaw:      0.6,
				pitch:    0.35,
				distance: 4.0,
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg.Game, nil
}

func (g *TestGame) Initialize() error {
	core.LogDebug("testbed initializing")
	state := g.State.(*gameState)
	state.scene = scene.New()
	state.root = state.scene.CreateNode("root")

	// The projection is filled in by the first OnResize.
	state.cameraNode = state.scene.CreateCameraNode("camera", math.NewMat4Identity())
	aimCamera(state)

	material := scene.Material{Colour: math.NewVec4(1.0, 1.0, 1.0, 1.0)}
	imageLoader := &loaders.ImageLoader{MaxDimension: 2048}
	if img, err := imageLoader.Load(filepath.Join("assets", "textures", "crate.png")); err != nil {
		core.LogWarn("no crate texture, cubes stay white: %s", err.Error())
	} else {
		material.Albedo = state.scene.Textures.Push(scene.Texture{
			Pixels: img.Pixels,
			Width:  img.Width,
			Height: img.Height,
		})
	}
	crate := state.scene.Materials.Push(material)

	state.cube = state.scene.CreateMeshNode("cube", scene.NewCube(crate))
	state.scene.AddChild(state.root, state.cube)

	// A tinted satellite parented to the cube, so it orbits with the
	// cube's spin through the transform hierarchy.
	tinted := state.scene.Materials.Push(scene.Material{
		Colour: math.NewVec4(0.4, 0.7, 1.0, 1.0),
		Albedo: material.Albedo,
	})
	state.satellite = state.scene.CreateMeshNode("satellite", scene.NewCube(tinted))
	if node, ok := state.scene.Nodes.Get(state.satellite); ok {
		node.Transform.SetPosition(math.NewVec3(1.5, 0.0, 0.0))
		node.Transform.SetScale(math.NewVec3(0.4, 0.4, 0.4))
	}
	state.scene.AddChild(state.cube, state.satellite)

	return nil
}

var orbitSpeed float32 = 1.5
var zoomSpeed float32 = 2.0

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	dt := float32(deltaTime)

	if core.InputIsKeyDown(core.KEY_A) || core.InputIsKeyDown(core.KEY_LEFT) {
		state.yaw += orbitSpeed * dt
	}
	if core.InputIsKeyDown(core.KEY_D) || core.InputIsKeyDown(core.KEY_RIGHT) {
		state.yaw -= orbitSpeed * dt
	}
	if core.InputIsKeyDown(core.KEY_W) || core.InputIsKeyDown(core.KEY_UP) {
		state.pitch = math.Clamp(state.pitch+orbitSpeed*dt, -1.2, 1.2)
	}
	if core.InputIsKeyDown(core.KEY_S) || core.InputIsKeyDown(core.KEY_DOWN) {
		state.pitch = math.Clamp(state.pitch-orbitSpeed*dt, -1.2, 1.2)
	}
	if core.InputIsKeyDown(core.KEY_Q) {
		state.distance = math.Clamp(state.distance+zoomSpeed*dt, 1.5, 20.0)
	}
	if core.InputIsKeyDown(core.KEY_E) {
		state.distance = math.Clamp(state.distance-zoomSpeed*dt, 1.5, 20.0)
	}
	aimCamera(state)

	// Spin the cube; the satellite follows through the hierarchy.
	rotation := math.NewQuatFromAxisAngle(math.NewVec3Up(), 0.5*dt, false)
	if node, ok := state.scene.Nodes.Get(state.cube); ok {
		node.Transform.Rotate(rotation)
	}

	if core.InputIsKeyUp(core.KEY_P) && core.InputWasKeyDown(core.KEY_P) {
		fps, frameTime := core.MetricsFrame()
		core.LogInfo("fps: %5.1f (%4.1fms), camera yaw %.2f pitch %.2f distance %.1f",
			fps, frameTime, state.yaw, state.pitch, state.distance)
	}

	return nil
}

func (g *TestGame) Render(slot *renderer.FrameSlot, deltaTime float64) error {
	state := g.State.(*gameState)

	if err := g.Renderer.Bind(slot, g.ScenePipeline, state.scene, state.cameraNode); err != nil {
		return err
	}
	return g.Renderer.DrawScene(slot, g.ScenePipeline, state.scene, state.root)
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	if width == 0 || height == 0 {
		return nil
	}

	aspect := float32(width) / float32(height)
	if node, ok := state.scene.Nodes.Get(state.cameraNode); ok {
		if camera, ok := state.scene.Cameras.Get(node.Camera); ok {
			camera.Proj = math.NewMat4Perspective(math.DegToRad(45.0), aspect, 0.1, 100.0)
		}
	}
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("testbed shutting down")
	return nil
}

// aimCamera places the camera on its orbit and points it at the origin.
// The unrotated camera looks down negative Z, so yaw about the up axis
// followed by pitch about X faces it back at the centre.
func aimCamera(state *gameState) {
	node, ok := state.scene.Nodes.Get(state.cameraNode)
	if !ok {
		return
	}

	position := math.NewVec3(
		state.distance*cos32(state.pitch)*sin32(state.yaw),
		state.distance*sin32(state.pitch),
		state.distance*cos32(state.pitch)*cos32(state.yaw),
	)
	rotation := math.NewQuatFromAxisAngle(math.NewVec3Up(), state.yaw, false).
		Mul(math.NewQuatFromAxisAngle(math.NewVec3(1, 0, 0), -state.pitch, false))
	node.Transform.SetPositionRotationScale(position, rotation, math.NewVec3One())
}

func sin32(x float32) float32 {
	return float32(stdmath.Sin(float64(x)))
}

func cos32(x float32) float32 {
	return float32(stdmath.Cos(float64(x)))
}
