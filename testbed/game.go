package testbed

import (
	"fmt"
	"os"

	"github.com/spaghettifunk/pneuma/engine"
	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/math"
	"github.com/spaghettifunk/pneuma/engine/renderer/components"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
	"github.com/spaghettifunk/pneuma/engine/systems"
)

// configFile overrides the builtin application defaults when present next to
// the binary.
const configFile = "testbed.toml"

type TestGame struct {
	*engine.Game
}

type gameState struct {
	WorldCamera *components.Camera

	width  uint32
	height uint32

	meshes    []*metadata.Mesh
	cubeMesh  *metadata.Mesh
	glassMesh *metadata.Mesh

	// When set, the world view only draws meshes whose material carries the
	// "opaque" tag. Toggled with T.
	opaqueOnly bool
	opaqueTags []core.NameHash
}

func NewTestGame() (*TestGame, error) {
	config := engine.DefaultApplicationConfig()
	config.Name = "Pneuma Testbed"

	if _, err := os.Stat(configFile); err == nil {
		loaded, err := engine.LoadApplicationConfig(configFile)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{},
		},
	}

	tg.FnBoot = tg.Boot
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (g *TestGame) Boot() error {
	core.LogInfo("booting testbed...")

	config := g.ApplicationConfig

	for _, font := range config.Fonts {
		if font.Name == "ubuntu" {
			return nil
		}
	}
	config.Fonts = append(config.Fonts, engine.ApplicationFontConfig{
		Name: "ubuntu",
		Size: 21,
	})

	return nil
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")

	if g.SystemManager == nil {
		return fmt.Errorf("the engine is not yet initialized with all the system managers")
	}

	state := g.State.(*gameState)

	state.WorldCamera = g.SystemManager.CameraSystem.GetDefault()
	state.WorldCamera.SetPosition(math.NewVec3(0.0, 2.5, 12.0))

	state.opaqueTags = []core.NameHash{core.HashName("opaque")}

	// A ground plane and two cubes, the smaller one parented to the larger,
	// plus a glass pane whose material is tagged transparent.
	planeConfig, err := g.SystemManager.GeometrySystem.GeneratePlaneConfig(20.0, 20.0, 4, 4, 5.0, 5.0, "ground_plane", "ground")
	if err != nil {
		return err
	}
	plane, err := g.SystemManager.GeometrySystem.AcquireFromConfig(planeConfig, true)
	if err != nil {
		return err
	}
	planeMesh := &metadata.Mesh{
		Geometries: []*metadata.Geometry{plane},
		Transform:  math.TransformCreate(),
	}
	planeMesh.UniqueID = core.IdentifierAcquireNewID(planeMesh)

	cubeConfig, err := g.SystemManager.GeometrySystem.GenerateCubeConfig(2.0, 2.0, 2.0, 1.0, 1.0, "test_cube", "test_material")
	if err != nil {
		return err
	}
	cube, err := g.SystemManager.GeometrySystem.AcquireFromConfig(cubeConfig, true)
	if err != nil {
		return err
	}
	cubeMesh := &metadata.Mesh{
		Geometries: []*metadata.Geometry{cube},
		Transform:  math.TransformFromPosition(math.NewVec3(0.0, 1.0, 0.0)),
	}
	cubeMesh.UniqueID = core.IdentifierAcquireNewID(cubeMesh)
	state.cubeMesh = cubeMesh

	childConfig, err := g.SystemManager.GeometrySystem.GenerateCubeConfig(1.0, 1.0, 1.0, 1.0, 1.0, "test_cube_2", "test_material")
	if err != nil {
		return err
	}
	child, err := g.SystemManager.GeometrySystem.AcquireFromConfig(childConfig, true)
	if err != nil {
		return err
	}
	childMesh := &metadata.Mesh{
		Geometries: []*metadata.Geometry{child},
		Transform:  math.TransformFromPosition(math.NewVec3(2.5, 0.5, 0.0)),
	}
	childMesh.UniqueID = core.IdentifierAcquireNewID(childMesh)
	// Orbit the small cube with its parent.
	childMesh.Transform.Parent = cubeMesh.Transform

	glassConfig, err := g.SystemManager.GeometrySystem.GenerateCubeConfig(1.5, 1.5, 1.5, 1.0, 1.0, "glass_cube", "glass")
	if err != nil {
		return err
	}
	glass, err := g.SystemManager.GeometrySystem.AcquireFromConfig(glassConfig, true)
	if err != nil {
		return err
	}
	state.glassMesh = &metadata.Mesh{
		Geometries: []*metadata.Geometry{glass},
		Transform:  math.TransformFromPosition(math.NewVec3(-2.5, 0.75, 0.0)),
	}
	state.glassMesh.UniqueID = core.IdentifierAcquireNewID(state.glassMesh)

	state.meshes = []*metadata.Mesh{planeMesh, cubeMesh, childMesh, state.glassMesh}

	if _, err := g.SystemManager.FontSystem.Acquire("ubuntu"); err != nil {
		return err
	}
	if extent, err := g.SystemManager.FontSystem.MeasureString("ubuntu", g.ApplicationConfig.Name); err == nil {
		core.LogDebug("title measures %.0fx%.0f px in 'ubuntu'", extent.X, extent.Y)
	}

	// Warm the glass material definition on the resource worker.
	g.SystemManager.JobSystem.Submit(metadata.JobTask{
		JobType:  metadata.JOB_TYPE_RESOURCE_LOAD,
		Priority: metadata.JOB_PRIORITY_NORMAL,
		OnStart: func(params interface{}, results chan interface{}) error {
			resource, err := g.SystemManager.AssetManager.LoadAsset("glass", metadata.ResourceTypeMaterial, nil)
			if err != nil {
				return err
			}
			results <- resource
			return nil
		},
		OnComplete: func(results chan interface{}) {
			resource := (<-results).(*metadata.Resource)
			core.LogDebug("background load of material '%s' finished", resource.Name)
			g.SystemManager.AssetManager.UnloadAsset(resource)
		},
	})

	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, g.gameOnKey)
	core.EventRegister(core.EVENT_CODE_KEY_RELEASED, g.gameOnKey)
	core.EventRegister(core.EVENT_CODE_PROGRAM_RELOADED, g.gameOnProgramReloaded)

	return nil
}

var tempMoveSpeed float32 = 50.0

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)

	// HACK: temp hack to move camera around.
	if core.InputIsKeyDown(core.KEY_A) || core.InputIsKeyDown(core.KEY_LEFT) {
		state.WorldCamera.Yaw(float32(1.0 * deltaTime))
	}

	if core.InputIsKeyDown(core.KEY_D) || core.InputIsKeyDown(core.KEY_RIGHT) {
		state.WorldCamera.Yaw(float32(-1.0 * deltaTime))
	}

	if core.InputIsKeyDown(core.KEY_UP) {
		state.WorldCamera.Pitch(float32(1.0 * deltaTime))
	}

	if core.InputIsKeyDown(core.KEY_DOWN) {
		state.WorldCamera.Pitch(float32(-1.0 * deltaTime))
	}

	if core.InputIsKeyDown(core.KEY_W) {
		state.WorldCamera.MoveForward(tempMoveSpeed * float32(deltaTime))
	}

	if core.InputIsKeyDown(core.KEY_S) {
		state.WorldCamera.MoveBackward(tempMoveSpeed * float32(deltaTime))
	}

	if core.InputIsKeyDown(core.KEY_Q) {
		state.WorldCamera.MoveLeft(tempMoveSpeed * float32(deltaTime))
	}

	if core.InputIsKeyDown(core.KEY_E) {
		state.WorldCamera.MoveRight(tempMoveSpeed * float32(deltaTime))
	}

	if core.InputIsKeyDown(core.KEY_SPACE) {
		state.WorldCamera.MoveUp(tempMoveSpeed * float32(deltaTime))
	}

	if core.InputIsKeyDown(core.KEY_X) {
		state.WorldCamera.MoveDown(tempMoveSpeed * float32(deltaTime))
	}

	if core.InputIsKeyUp(core.KEY_P) && core.InputWasKeyDown(core.KEY_P) {
		pos := state.WorldCamera.GetPosition()
		core.LogDebug("Pos:[%.2f, %.2f, %.2f]", pos.X, pos.Y, pos.Z)
	}

	// Toggle the opaque-only tag filter.
	if core.InputIsKeyUp(core.KEY_T) && core.InputWasKeyDown(core.KEY_T) {
		state.opaqueOnly = !state.opaqueOnly
		core.LogInfo("opaque-only rendering: %t", state.opaqueOnly)
	}

	// Perform a small rotation on the large cube. The child orbits with it.
	rotation := math.NewQuatFromAxisAngle(math.NewVec3(0, 1, 0), float32(0.5*deltaTime), false)
	state.cubeMesh.Transform.Rotate(rotation)

	pos := state.WorldCamera.GetPosition()
	rot := state.WorldCamera.GetEulerRotation()

	leftDown := core.InputIsButtonDown(core.BUTTON_LEFT)
	rightDown := core.InputIsButtonDown(core.BUTTON_RIGHT)
	mouseX, mouseY := core.InputGetMousePosition()

	fps, frameTime := core.MetricsFrame()

	textBuffer := fmt.Sprintf(
		"FPS: %5.1f(%4.1fms) Pos=[%7.3f %7.3f %7.3f ] Rot=[%7.3f, %7.3f, %7.3f  ]\n"+
			"Mouse: X=%-5d Y=%-5d   L=%s R=%s",
		fps,
		frameTime,
		pos.X, pos.Y, pos.Z,
		math.RadToDeg(rot.X), math.RadToDeg(rot.Y), math.RadToDeg(rot.Z),
		mouseX, mouseY,
		map[bool]string{true: "Y", false: "N"}[leftDown],
		map[bool]string{true: "Y", false: "N"}[rightDown],
	)

	core.LogDebug(textBuffer)

	return nil
}

func (g *TestGame) Render(packet *metadata.RenderPacket, deltaTime float64) error {
	state := g.State.(*gameState)

	meshes := []*metadata.Mesh{}
	for _, m := range state.meshes {
		if m.Generation != metadata.InvalidIDUint8 {
			meshes = append(meshes, m)
		}
	}
	worldData := &metadata.WorldPacketData{
		Meshes: meshes,
	}
	if state.opaqueOnly {
		worldData.RequiredTags = state.opaqueTags
	}

	view := g.SystemManager.RenderViewSystem.Get(systems.WorldViewName)
	rvp, err := g.SystemManager.RenderViewSystem.BuildPacket(view, worldData)
	if err != nil {
		core.LogError("failed to build packet for view '%s'", systems.WorldViewName)
		return err
	}
	packet.ViewPackets = append(packet.ViewPackets, rvp)

	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)

	state.width = width
	state.height = height

	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)

	for _, m := range state.meshes {
		for _, geometry := range m.Geometries {
			g.SystemManager.GeometrySystem.Release(geometry)
		}
		core.IdentifierReleaseID(m.UniqueID)
	}
	state.meshes = nil

	g.SystemManager.FontSystem.Release("ubuntu")

	return nil
}

func (g *TestGame) gameOnKey(context core.EventContext) {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		return
	}

	if context.Type == core.EVENT_CODE_KEY_PRESSED {
		if ke.KeyCode == core.KEY_ESCAPE {
			// NOTE: Technically firing an event to itself, but there may be other listeners.
			core.EventFire(core.EventContext{
				Type: core.EVENT_CODE_APPLICATION_QUIT,
			})
			return
		}
		core.LogDebug("'%c' key pressed in window.", ke.KeyCode)
	} else if context.Type == core.EVENT_CODE_KEY_RELEASED {
		core.LogDebug("'%c' key released in window.", ke.KeyCode)
	}
}

func (g *TestGame) gameOnProgramReloaded(context core.EventContext) {
	pe, ok := context.Data.(*core.ProgramEvent)
	if !ok {
		return
	}
	core.LogInfo("shader program '%s' reloaded", pe.ProgramName)
}
