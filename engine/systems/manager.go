package systems

import (
	"fmt"

	"github.com/spaghettifunk/pneuma/engine/assets"
	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/renderer"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

/** @brief Configuration for the system manager and the systems it owns. */
type SystemManagerConfig struct {
	ApplicationName string
	/** @brief Selects a renderer adapter by name. Empty uses the registry default. */
	BackendName string
	Width       uint32
	Height      uint32
	/** @brief Bitmap fonts loaded during Initialize. */
	BitmapFontConfigs []*metadata.BitmapFontConfig
	/** @brief Views registered after the builtin world view. */
	RenderViewConfigs []*metadata.RenderViewConfig
}

/**
 * @brief Owns every engine system and wires them together in dependency
 * order. The engine talks to the manager; systems talk to each other through
 * the references handed to them at construction.
 */
type SystemManager struct {
	JobSystem        *JobSystem
	AssetManager     *assets.AssetManager
	RendererSystem   *RendererSystem
	TextureSystem    *TextureSystem
	ShaderSystem     *ShaderSystem
	TagRegistry      *TagRegistry
	MaterialSystem   *MaterialSystem
	CameraSystem     *CameraSystem
	GeometrySystem   *GeometrySystem
	RenderViewSystem *RenderViewSystem
	FontSystem       *FontSystem

	config *SystemManagerConfig
}

/**
 * @brief Constructs all systems without touching the backend. The asset
 * manager is owned by the caller and must be initialized with its asset root
 * before Initialize is called here.
 */
func NewSystemManager(config *SystemManagerConfig, registry *renderer.AdapterRegistry, am *assets.AssetManager) (*SystemManager, error) {
	if config == nil || registry == nil || am == nil {
		err := fmt.Errorf("func NewSystemManager requires a configuration, an adapter registry and an asset manager")
		core.LogError(err.Error())
		return nil, err
	}

	js, err := NewJobSystem(2, 128)
	if err != nil {
		return nil, err
	}
	rs, err := NewRendererSystem(&RendererSystemConfig{
		ApplicationName: config.ApplicationName,
		BackendName:     config.BackendName,
		Width:           config.Width,
		Height:          config.Height,
	}, registry)
	if err != nil {
		return nil, err
	}
	backend := rs.Backend()

	ts, err := NewTextureSystem(&TextureSystemConfig{
		MaxTextureCount: 1000,
	}, backend, am)
	if err != nil {
		return nil, err
	}
	ssys, err := NewShaderSystem(&ShaderSystemConfig{
		MaxShaderCount: 1000,
	}, backend, am)
	if err != nil {
		return nil, err
	}
	tags := NewTagRegistry()
	ms, err := NewMaterialSystem(&MaterialSystemConfig{
		MaxMaterialCount: 1000,
	}, ssys, ts, tags, am)
	if err != nil {
		return nil, err
	}
	cs, err := NewCameraSystem(&CameraSystemConfig{
		MaxCameraCount: 100,
	})
	if err != nil {
		return nil, err
	}
	gs, err := NewGeometrySystem(&GeometrySystemConfig{
		MaxGeometryCount: 1000,
	}, backend, ms)
	if err != nil {
		return nil, err
	}
	rvs, err := NewRenderViewSystem(&RenderViewSystemConfig{
		MaxViewCount: 251,
	}, rs, ssys, cs, ms, tags)
	if err != nil {
		return nil, err
	}
	fs, err := NewFontSystem(&FontSystemConfig{
		BitmapFontConfigs:  config.BitmapFontConfigs,
		MaxBitmapFontCount: 31,
	}, ts, ms, am)
	if err != nil {
		return nil, err
	}

	return &SystemManager{
		JobSystem:        js,
		AssetManager:     am,
		RendererSystem:   rs,
		TextureSystem:    ts,
		ShaderSystem:     ssys,
		TagRegistry:      tags,
		MaterialSystem:   ms,
		CameraSystem:     cs,
		GeometrySystem:   gs,
		RenderViewSystem: rvs,
		FontSystem:       fs,
		config:           config,
	}, nil
}

/**
 * @brief Brings the systems up in dependency order: backend and world
 * renderpass first, then default resources, the builtin world shader the
 * default material builds against, the world view and finally the configured
 * fonts. Any failure stops the sequence and is returned as is.
 */
func (sm *SystemManager) Initialize() error {
	if err := sm.RendererSystem.Initialize(); err != nil {
		return err
	}
	if err := sm.TextureSystem.Initialize(); err != nil {
		return err
	}
	if _, err := sm.ShaderSystem.Load(metadata.BuiltinShaderNameWorld); err != nil {
		core.LogError("the builtin world shader could not be loaded. Check the application's assets directory")
		return err
	}
	if err := sm.MaterialSystem.Initialize(); err != nil {
		return err
	}
	if err := sm.GeometrySystem.Initialize(); err != nil {
		return err
	}

	if err := sm.RenderViewSystem.Create(worldViewConfig()); err != nil {
		return err
	}
	for _, viewConfig := range sm.config.RenderViewConfigs {
		if err := sm.RenderViewSystem.Create(viewConfig); err != nil {
			return err
		}
	}

	if err := sm.FontSystem.Initialize(); err != nil {
		return err
	}

	core.EventRegister(core.EVENT_CODE_RENDER_TARGET_REFRESH_REQUIRED, sm.onRenderTargetRefresh)
	return nil
}

/** @brief The builtin world view rendering through the world renderpass. */
func worldViewConfig() *metadata.RenderViewConfig {
	return &metadata.RenderViewConfig{
		Name:             WorldViewName,
		RenderViewType:   metadata.RENDERER_VIEW_KNOWN_TYPE_WORLD,
		ViewMatrixSource: metadata.RENDER_VIEW_VIEW_MATRIX_SOURCE_SCENE_CAMERA,
		PassNames:        []string{WorldRenderPassName},
	}
}

/**
 * @brief Shuts all systems down in reverse dependency order. The asset
 * manager is owned by the caller and stays alive until after this returns.
 */
func (sm *SystemManager) Shutdown() error {
	if err := sm.FontSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.RenderViewSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.GeometrySystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.CameraSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.MaterialSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.ShaderSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.TextureSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.RendererSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.JobSystem.Shutdown(); err != nil {
		return err
	}
	return nil
}

// DrawFrame renders the packet through the renderer system, which hands each
// view packet back to the render view system for submission.
func (sm *SystemManager) DrawFrame(packet *metadata.RenderPacket) error {
	return sm.RendererSystem.DrawFrame(packet, sm.RenderViewSystem)
}

// OnResize records the new framebuffer size. The actual backend resize is
// deferred by the renderer until the size stops changing.
func (sm *SystemManager) OnResize(width, height uint32) {
	sm.RendererSystem.OnResize(width, height)
}

/**
 * @brief Applies asset file changes picked up by the watcher. The engine
 * calls this once per frame step; the drain never blocks. Shader changes
 * relink the program in place and announce the reload, image changes rewrite
 * the texture pixels through the existing handle.
 */
func (sm *SystemManager) ProcessAssetEvents() {
	for {
		select {
		case event, ok := <-sm.AssetManager.Events():
			if !ok {
				return
			}
			sm.applyAssetChange(event)
		default:
			return
		}
	}
}

func (sm *SystemManager) applyAssetChange(event assets.AssetEvent) {
	switch event.Type {
	case metadata.ResourceTypeShader:
		// Both the definition and the GLSL sources map back to the shader
		// name. Programs never loaded need nothing.
		if _, err := sm.ShaderSystem.GetShader(event.Name); err != nil {
			return
		}
		if err := sm.ShaderSystem.Reload(event.Name); err != nil {
			core.LogError("hot reload of shader '%s' failed: %s", event.Name, err.Error())
			return
		}
		core.EventFire(core.EventContext{
			Type: core.EVENT_CODE_PROGRAM_RELOADED,
			Data: &core.ProgramEvent{ProgramName: event.Name},
		})
	case metadata.ResourceTypeImage:
		if err := sm.TextureSystem.Reload(event.Name); err != nil {
			core.LogDebug("image '%s' changed but was not reloaded: %s", event.Name, err.Error())
		}
	case metadata.ResourceTypeMaterial:
		// Loaded materials keep their current state; material definitions
		// are only read at acquire time.
		core.LogDebug("material definition '%s' changed on disk", event.Name)
	}
}

func (sm *SystemManager) onRenderTargetRefresh(context core.EventContext) {
	if err := sm.RendererSystem.RegenerateRenderTargets(); err != nil {
		core.LogError("render target regeneration failed: %s", err.Error())
	}
}
