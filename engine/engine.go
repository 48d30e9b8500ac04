package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/pneuma/engine/assets"
	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/platform"
	"github.com/spaghettifunk/pneuma/engine/renderer"
	"github.com/spaghettifunk/pneuma/engine/renderer/headless"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
	"github.com/spaghettifunk/pneuma/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	isRunning     bool
	isSuspended   bool
	platform      *platform.Platform
	assetManager  *assets.AssetManager
	registry      *renderer.AdapterRegistry
	systemManager *systems.SystemManager
	width         uint32
	height        uint32
	clock         *core.Clock
	lastTime      float64
}

// New wires the platform layer, the asset manager and the renderer adapter
// registry. The systems themselves are built during Initialize, after the
// game's boot callback had a chance to finish the application configuration.
func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		err := fmt.Errorf("func New requires a game with an application configuration")
		core.LogError(err.Error())
		return nil, err
	}

	p := platform.New()

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	registry := renderer.NewAdapterRegistry()
	headless.Register(registry)

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		platform:     p,
		assetManager: am,
		registry:     registry,
		isRunning:    true,
		isSuspended:  false,
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
		lastTime:     0,
	}, nil
}

func (e *Engine) Initialize() error {
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
	core.EventRegister(core.EVENT_CODE_KEY_RELEASED, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)

	// The boot callback runs before any system exists so the game can still
	// append render views and fonts to the application configuration.
	e.currentStage = EngineStageBooting
	if e.gameInstance.FnBoot != nil {
		if err := e.gameInstance.FnBoot(); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageBootComplete

	config := e.gameInstance.ApplicationConfig
	if err := e.platform.Startup(config.Name,
		config.StartPosX,
		config.StartPosY,
		config.StartWidth,
		config.StartHeight); err != nil {
		return err
	}

	e.currentStage = EngineStageInitializing

	// initialize subsystems
	assetsDir := config.AssetsDir
	if assetsDir == "" {
		assetsDir = "assets"
	}
	if !filepath.IsAbs(assetsDir) {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		assetsDir = filepath.Join(wd, assetsDir)
	}
	if err := e.assetManager.Initialize(assetsDir); err != nil {
		return err
	}

	sm, err := systems.NewSystemManager(&systems.SystemManagerConfig{
		ApplicationName:   config.Name,
		BackendName:       config.Backend,
		Width:             config.StartWidth,
		Height:            config.StartHeight,
		BitmapFontConfigs: config.bitmapFontConfigs(),
		RenderViewConfigs: config.RenderViewConfigs,
	}, e.registry, e.assetManager)
	if err != nil {
		return err
	}
	e.systemManager = sm
	e.gameInstance.SystemManager = sm

	if err := e.systemManager.Initialize(); err != nil {
		return err
	}

	if err := e.gameInstance.FnInitialize(); err != nil {
		return err
	}

	if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine must be initialized before Run: %w", core.ErrNotInitialized)
	}

	e.clock.Start()
	e.clock.Update()

	e.lastTime = e.clock.Elapsed()

	e.currentStage = EngineStageRunning

	var runningTime float64 = 0.0
	var frameCount uint8 = 0
	var targetFrameSeconds float64 = 1.0 / 60.0

	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
		}

		// Deliver queued events and watched asset changes before the game
		// observes this frame's state.
		core.ProcessEvents()
		e.systemManager.ProcessAssetEvents()

		if !e.isSuspended {
			// Update clock and get delta time.
			e.clock.Update()

			var currentTime float64 = e.clock.Elapsed()
			var delta float64 = (currentTime - e.lastTime)
			var frameStartTime float64 = platform.GetAbsoluteTime()

			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("game update failed, shutting down: %s", err.Error())
				e.isRunning = false
				break
			}

			// The game fills in one view packet per view it wants drawn.
			packet := &metadata.RenderPacket{
				DeltaTime: delta,
			}
			if err := e.gameInstance.FnRender(packet, delta); err != nil {
				core.LogError("game render failed, shutting down: %s", err.Error())
				e.isRunning = false
				break
			}
			packet.ViewCount = uint16(len(packet.ViewPackets))

			if packet.ViewCount > 0 {
				if err := e.systemManager.DrawFrame(packet); err != nil {
					core.LogError("frame draw failed: %s", err.Error())
				}
			}

			// Figure out how long the frame took.
			var frameEndTime float64 = platform.GetAbsoluteTime()
			var frameElapsedTime float64 = frameEndTime - frameStartTime
			runningTime += frameElapsedTime
			var remainingSeconds float64 = targetFrameSeconds - frameElapsedTime

			core.MetricsUpdate(frameElapsedTime)

			if remainingSeconds > 0 {
				remainingMS := (remainingSeconds * 1000)
				// If there is time left, give it back to the OS.
				limitFrames := false
				if remainingMS > 0 && limitFrames {
					e.platform.Sleep(remainingMS - 1)
				}
				frameCount++
			}

			// NOTE: Input update/state copying should always be handled
			// after any input should be recorded; I.E. before this line.
			// As a safety, input is the last thing to be updated before
			// this frame ends.
			core.InputUpdate(delta)

			// Update last time
			e.lastTime = currentTime
		}
	}

	e.isRunning = false
	return nil
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	// The game releases its resources while the systems are still alive.
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown failed: %s", err.Error())
		}
	}

	if err := core.EventSystemShutdown(); err != nil {
		return err
	}
	if err := core.InputShutdown(); err != nil {
		return err
	}
	if e.systemManager != nil {
		if err := e.systemManager.Shutdown(); err != nil {
			return err
		}
	}
	if err := e.assetManager.Shutdown(); err != nil {
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
		{
			core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
			e.isRunning = false
		}
	}
}

func (e *Engine) onKey(context core.EventContext) {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}

	keyCode := ke.KeyCode

	if context.Type == core.EVENT_CODE_KEY_PRESSED {
		if keyCode == core.KEY_ESCAPE {
			// NOTE: Technically firing an event to itself, but there may be other listeners.
			data := core.EventContext{
				Type: core.EVENT_CODE_APPLICATION_QUIT,
			}
			core.EventFire(data)
			// Block anything else from processing this.
			return
		}
		core.LogDebug("'%c' key pressed in window.", keyCode)
	} else if context.Type == core.EVENT_CODE_KEY_RELEASED {
		core.LogDebug("'%c' key released in window.", keyCode)
	}
}

func (e *Engine) onResized(context core.EventContext) {
	if context.Type == core.EVENT_CODE_RESIZED {
		se, ok := context.Data.(*core.SystemEvent)
		if !ok {
			core.LogError("wrong event associated with the event type `%d`", context.Type)
			return
		}

		width := se.WindowWidth
		height := se.WindowHeight

		// Check if different. If so, trigger a resize event.
		if width != e.width || height != e.height {
			e.width = width
			e.height = height

			core.LogDebug("window resize: %d, %d", width, height)

			// Handle minimization
			if width == 0 || height == 0 {
				core.LogInfo("window minimized, suspending application.")
				e.isSuspended = true
				return
			}
			if e.isSuspended {
				core.LogInfo("window restored, resuming application.")
				e.isSuspended = false
			}
			if err := e.gameInstance.FnOnResize(width, height); err != nil {
				core.LogError(err.Error())
			}
			e.systemManager.OnResize(width, height)
		}
	}
}
