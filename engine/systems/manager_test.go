package systems

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/pneuma/engine/assets"
	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/renderer"
	"github.com/spaghettifunk/pneuma/engine/renderer/headless"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

type managerStack struct {
	root    string
	manager *SystemManager
	backend *headless.Backend
}

// newManagerStack stands up a full system manager over the headless backend.
// prepare may write extra fixture files under root and adjust the manager
// configuration before construction.
func newManagerStack(t *testing.T, prepare func(root string, config *SystemManagerConfig)) *managerStack {
	t.Helper()

	root := t.TempDir()
	writeShaderFiles(t, root, metadata.BuiltinShaderNameWorld, worldVertexSource, worldFragmentSource)

	config := &SystemManagerConfig{
		ApplicationName: "manager-test",
		Width:           800,
		Height:          600,
	}
	if prepare != nil {
		prepare(root, config)
	}

	registry := renderer.NewAdapterRegistry()
	headless.Register(registry)

	assetManager, err := assets.NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, assetManager.Initialize(root))
	t.Cleanup(func() { assetManager.Shutdown() })

	manager, err := NewSystemManager(config, registry, assetManager)
	require.NoError(t, err)
	t.Cleanup(func() { manager.Shutdown() })
	require.NoError(t, manager.Initialize())

	backend, ok := manager.RendererSystem.Backend().(*headless.Backend)
	require.True(t, ok)

	return &managerStack{root: root, manager: manager, backend: backend}
}

func TestNewSystemManagerValidation(t *testing.T) {
	_, err := NewSystemManager(nil, nil, nil)
	assert.Error(t, err)

	registry := renderer.NewAdapterRegistry()
	headless.Register(registry)
	_, err = NewSystemManager(&SystemManagerConfig{ApplicationName: "x"}, registry, nil)
	assert.Error(t, err)
}

func TestSystemManagerInitializeWiresSystems(t *testing.T) {
	stack := newManagerStack(t, func(root string, config *SystemManagerConfig) {
		writeFontFixture(t, root, "vector", 1)
		config.BitmapFontConfigs = []*metadata.BitmapFontConfig{vectorFontConfig()}
	})
	sm := stack.manager

	shader, err := sm.ShaderSystem.GetShader(metadata.BuiltinShaderNameWorld)
	require.NoError(t, err)
	assert.True(t, stack.backend.IsValid(shader.ProgramHandle))

	require.NotNil(t, sm.MaterialSystem.GetDefault())
	require.NotNil(t, sm.GeometrySystem.GetDefault())
	defaultTexture := sm.TextureSystem.GetDefaultTexture()
	require.NotNil(t, defaultTexture)
	assert.True(t, stack.backend.IsValid(defaultTexture.Handle))

	require.NotNil(t, sm.RendererSystem.WorldRenderPass)
	assert.Len(t, sm.RendererSystem.WorldRenderPass.Targets, int(sm.RendererSystem.WindowRenderTargetCount))

	view := sm.RenderViewSystem.Get(WorldViewName)
	require.NotNil(t, view)
	assert.NotEqual(t, metadata.InvalidIDUint16, view.ID)

	// The configured bitmap font was loaded during Initialize.
	fontData, err := sm.FontSystem.Acquire("vector")
	require.NoError(t, err)
	assert.Equal(t, "Vector", fontData.Face)
}

func TestSystemManagerInitializeFailsWithoutWorldShader(t *testing.T) {
	root := t.TempDir()

	registry := renderer.NewAdapterRegistry()
	headless.Register(registry)

	assetManager, err := assets.NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, assetManager.Initialize(root))
	t.Cleanup(func() { assetManager.Shutdown() })

	sm, err := NewSystemManager(&SystemManagerConfig{ApplicationName: "no-shader"}, registry, assetManager)
	require.NoError(t, err)
	t.Cleanup(func() { sm.Shutdown() })

	assert.Error(t, sm.Initialize())
}

func TestSystemManagerExtraRenderViews(t *testing.T) {
	stack := newManagerStack(t, func(root string, config *SystemManagerConfig) {
		config.RenderViewConfigs = []*metadata.RenderViewConfig{{
			Name:             "overlay",
			RenderViewType:   metadata.RENDERER_VIEW_KNOWN_TYPE_WORLD,
			ViewMatrixSource: metadata.RENDER_VIEW_VIEW_MATRIX_SOURCE_SCENE_CAMERA,
			PassNames:        []string{WorldRenderPassName},
		}}
	})

	require.NotNil(t, stack.manager.RenderViewSystem.Get(WorldViewName))
	overlay := stack.manager.RenderViewSystem.Get("overlay")
	require.NotNil(t, overlay)

	packet, err := stack.manager.RenderViewSystem.BuildPacket(overlay, &metadata.WorldPacketData{})
	require.NoError(t, err)
	assert.Same(t, overlay, packet.View)
}

func TestSystemManagerDrawFrame(t *testing.T) {
	stack := newManagerStack(t, nil)
	sm := stack.manager

	view := sm.RenderViewSystem.Get(WorldViewName)
	require.NotNil(t, view)

	buildFrame := func() *metadata.RenderPacket {
		packet, err := sm.RenderViewSystem.BuildPacket(view, &metadata.WorldPacketData{})
		require.NoError(t, err)
		return &metadata.RenderPacket{
			DeltaTime:   1.0 / 60.0,
			ViewCount:   1,
			ViewPackets: []*metadata.RenderViewPacket{packet},
		}
	}

	require.NoError(t, sm.DrawFrame(buildFrame()))
	assert.Equal(t, uint64(1), sm.RendererSystem.FrameNumber)
	require.NoError(t, sm.DrawFrame(buildFrame()))
	assert.Equal(t, uint64(2), sm.RendererSystem.FrameNumber)
}

func TestSystemManagerShaderHotReload(t *testing.T) {
	stack := newManagerStack(t, nil)
	sm := stack.manager

	require.True(t, core.EventSystemInitialize())
	var reloaded []string
	core.EventRegister(core.EVENT_CODE_PROGRAM_RELOADED, func(ctx core.EventContext) {
		if pe, ok := ctx.Data.(*core.ProgramEvent); ok {
			reloaded = append(reloaded, pe.ProgramName)
		}
	})
	t.Cleanup(func() { core.EventUnregisterAll(core.EVENT_CODE_PROGRAM_RELOADED) })

	shader, err := sm.ShaderSystem.GetShader(metadata.BuiltinShaderNameWorld)
	require.NoError(t, err)
	originalHandle := shader.ProgramHandle

	updatedFragment := worldFragmentSource + "\nuniform float fade;\n"
	fragPath := filepath.Join(stack.root, "shaders", metadata.BuiltinShaderNameWorld+".frag.glsl")
	require.NoError(t, os.WriteFile(fragPath, []byte(updatedFragment), 0o644))

	// The watcher delivers asynchronously; drain until the relink lands.
	require.Eventually(t, func() bool {
		sm.ProcessAssetEvents()
		return shader.Generation >= 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, originalHandle, shader.ProgramHandle)
	assert.True(t, stack.backend.IsValid(shader.ProgramHandle))

	core.ProcessEvents()
	assert.Contains(t, reloaded, metadata.BuiltinShaderNameWorld)
}

func TestSystemManagerImageHotReload(t *testing.T) {
	stack := newManagerStack(t, func(root string, config *SystemManagerConfig) {
		writeTestPNG(t, filepath.Join(root, "textures", "stone.png"), 4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	})
	sm := stack.manager

	texture, err := sm.TextureSystem.Acquire("stone", false)
	require.NoError(t, err)

	writeTestPNG(t, filepath.Join(stack.root, "textures", "stone.png"), 4, 4, color.NRGBA{R: 240, G: 50, B: 60, A: 255})

	require.Eventually(t, func() bool {
		sm.ProcessAssetEvents()
		pixels, err := stack.backend.TextureReadData(texture.Handle, 0, 4)
		return err == nil && pixels[0] == 240 && pixels[1] == 50
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSystemManagerShutdownTearsDown(t *testing.T) {
	root := t.TempDir()
	writeShaderFiles(t, root, metadata.BuiltinShaderNameWorld, worldVertexSource, worldFragmentSource)

	registry := renderer.NewAdapterRegistry()
	headless.Register(registry)

	assetManager, err := assets.NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, assetManager.Initialize(root))
	t.Cleanup(func() { assetManager.Shutdown() })

	sm, err := NewSystemManager(&SystemManagerConfig{ApplicationName: "teardown"}, registry, assetManager)
	require.NoError(t, err)
	require.NoError(t, sm.Initialize())

	backend, ok := sm.RendererSystem.Backend().(*headless.Backend)
	require.True(t, ok)
	shader, err := sm.ShaderSystem.GetShader(metadata.BuiltinShaderNameWorld)
	require.NoError(t, err)
	programHandle := shader.ProgramHandle
	textureHandle := sm.TextureSystem.GetDefaultTexture().Handle

	require.NoError(t, sm.Shutdown())

	assert.Nil(t, sm.RenderViewSystem.Get(WorldViewName))
	assert.False(t, backend.IsValid(programHandle))
	assert.False(t, backend.IsValid(textureHandle))
	_, err = sm.ShaderSystem.GetShader(metadata.BuiltinShaderNameWorld)
	assert.Error(t, err)
}
