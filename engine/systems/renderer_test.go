package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/pneuma/engine/renderer"
	"github.com/spaghettifunk/pneuma/engine/renderer/headless"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

func newTestRendererSystem(t *testing.T, width, height uint32) (*RendererSystem, *headless.Backend) {
	t.Helper()

	registry := renderer.NewAdapterRegistry()
	headless.Register(registry)

	rendererSystem, err := NewRendererSystem(&RendererSystemConfig{
		ApplicationName: "renderer-test",
		Width:           width,
		Height:          height,
	}, registry)
	require.NoError(t, err)
	require.NoError(t, rendererSystem.Initialize())
	t.Cleanup(func() { rendererSystem.Shutdown() })

	backend, ok := rendererSystem.Backend().(*headless.Backend)
	require.True(t, ok)
	return rendererSystem, backend
}

// emptyViewSystem builds a render view system with no registered views, for
// tests that only exercise the renderer's frame loop.
func emptyViewSystem(t *testing.T, rendererSystem *RendererSystem) *RenderViewSystem {
	t.Helper()
	renderViewSystem, err := NewRenderViewSystem(&RenderViewSystemConfig{MaxViewCount: 2}, rendererSystem, nil, nil, nil, nil)
	require.NoError(t, err)
	return renderViewSystem
}

func TestNewRendererSystemRequiresConfigAndRegistry(t *testing.T) {
	_, err := NewRendererSystem(nil, nil)
	assert.Error(t, err)

	_, err = NewRendererSystem(&RendererSystemConfig{ApplicationName: "renderer-test"}, nil)
	assert.Error(t, err)
}

func TestNewRendererSystemNoBackendAvailable(t *testing.T) {
	_, err := NewRendererSystem(&RendererSystemConfig{ApplicationName: "renderer-test"}, renderer.NewAdapterRegistry())
	assert.Error(t, err)

	registry := renderer.NewAdapterRegistry()
	headless.Register(registry)
	_, err = NewRendererSystem(&RendererSystemConfig{
		ApplicationName: "renderer-test",
		BackendName:     "bogus",
	}, registry)
	assert.Error(t, err)
}

func TestNewRendererSystemDefaultsDimensions(t *testing.T) {
	registry := renderer.NewAdapterRegistry()
	headless.Register(registry)

	rendererSystem, err := NewRendererSystem(&RendererSystemConfig{ApplicationName: "renderer-test"}, registry)
	require.NoError(t, err)
	assert.Equal(t, uint32(1280), rendererSystem.FramebufferWidth)
	assert.Equal(t, uint32(720), rendererSystem.FramebufferHeight)
}

func TestRendererSystemInitializeCreatesWorldPass(t *testing.T) {
	rendererSystem, backend := newTestRendererSystem(t, 640, 480)

	pass := rendererSystem.WorldRenderPass
	require.NotNil(t, pass)
	assert.Same(t, pass, rendererSystem.RenderPassGet(WorldRenderPassName))
	assert.Equal(t, uint8(2), rendererSystem.WindowRenderTargetCount)

	// One target per window attachment, sized to the framebuffer.
	require.Len(t, pass.Targets, 2)
	for _, handle := range pass.Targets {
		target := backend.RenderTargetGet(handle)
		require.NotNil(t, target)
		assert.Equal(t, uint32(640), target.Width)
		assert.Equal(t, uint32(480), target.Height)
	}
	assert.Equal(t, float32(640), pass.RenderArea.Z)
	assert.Equal(t, float32(480), pass.RenderArea.W)
}

func TestRendererSystemDrawFrameEmptyPacket(t *testing.T) {
	rendererSystem, backend := newTestRendererSystem(t, 640, 480)
	renderViewSystem := emptyViewSystem(t, rendererSystem)

	require.NoError(t, rendererSystem.DrawFrame(&metadata.RenderPacket{DeltaTime: 0.016}, renderViewSystem))
	assert.Equal(t, uint64(1), rendererSystem.FrameNumber)
	assert.Equal(t, uint64(0), backend.DrawCount())
}

func TestRendererSystemResizeDebounce(t *testing.T) {
	rendererSystem, backend := newTestRendererSystem(t, 640, 480)
	renderViewSystem := emptyViewSystem(t, rendererSystem)
	packet := &metadata.RenderPacket{DeltaTime: 0.016}

	rendererSystem.OnResize(800, 600)
	assert.True(t, rendererSystem.Resizing)
	assert.Equal(t, uint32(800), rendererSystem.FramebufferWidth)
	assert.Equal(t, uint32(600), rendererSystem.FramebufferHeight)

	// The backend keeps the old targets until the size holds still.
	for i := 0; i < 29; i++ {
		require.NoError(t, rendererSystem.DrawFrame(packet, renderViewSystem))
	}
	assert.True(t, rendererSystem.Resizing)
	target := backend.RenderTargetGet(rendererSystem.WorldRenderPass.Targets[0])
	require.NotNil(t, target)
	assert.Equal(t, uint32(640), target.Width)

	// The settling frame applies the resize and renders.
	require.NoError(t, rendererSystem.DrawFrame(packet, renderViewSystem))
	assert.False(t, rendererSystem.Resizing)
	assert.Equal(t, uint8(0), rendererSystem.FramesSinceResize)

	target = backend.RenderTargetGet(rendererSystem.WorldRenderPass.Targets[0])
	require.NotNil(t, target)
	assert.Equal(t, uint32(800), target.Width)
	assert.Equal(t, uint32(600), target.Height)
	assert.Equal(t, float32(800), rendererSystem.WorldRenderPass.RenderArea.Z)
	assert.Equal(t, float32(600), rendererSystem.WorldRenderPass.RenderArea.W)
}

func TestRendererSystemResizeRestartsDebounce(t *testing.T) {
	rendererSystem, backend := newTestRendererSystem(t, 640, 480)
	renderViewSystem := emptyViewSystem(t, rendererSystem)
	packet := &metadata.RenderPacket{DeltaTime: 0.016}

	rendererSystem.OnResize(800, 600)
	for i := 0; i < 20; i++ {
		require.NoError(t, rendererSystem.DrawFrame(packet, renderViewSystem))
	}

	// A second resize mid-settle starts the count over.
	rendererSystem.OnResize(1024, 768)
	assert.Equal(t, uint8(0), rendererSystem.FramesSinceResize)
	for i := 0; i < 29; i++ {
		require.NoError(t, rendererSystem.DrawFrame(packet, renderViewSystem))
	}
	assert.True(t, rendererSystem.Resizing)

	require.NoError(t, rendererSystem.DrawFrame(packet, renderViewSystem))
	assert.False(t, rendererSystem.Resizing)
	target := backend.RenderTargetGet(rendererSystem.WorldRenderPass.Targets[0])
	require.NotNil(t, target)
	assert.Equal(t, uint32(1024), target.Width)
	assert.Equal(t, uint32(768), target.Height)
}

func TestRendererSystemRegenerateRenderTargetsReplacesHandles(t *testing.T) {
	rendererSystem, backend := newTestRendererSystem(t, 640, 480)

	old := make([]metadata.AssetHandle, len(rendererSystem.WorldRenderPass.Targets))
	copy(old, rendererSystem.WorldRenderPass.Targets)

	require.NoError(t, rendererSystem.RegenerateRenderTargets())

	for i, handle := range rendererSystem.WorldRenderPass.Targets {
		assert.False(t, backend.IsValid(old[i]))
		assert.True(t, backend.IsValid(handle))
	}
}

func TestRendererSystemShutdownDestroysWorldPass(t *testing.T) {
	registry := renderer.NewAdapterRegistry()
	headless.Register(registry)
	rendererSystem, err := NewRendererSystem(&RendererSystemConfig{
		ApplicationName: "renderer-test",
		Width:           640,
		Height:          480,
	}, registry)
	require.NoError(t, err)
	require.NoError(t, rendererSystem.Initialize())
	backend := rendererSystem.Backend().(*headless.Backend)

	targets := make([]metadata.AssetHandle, len(rendererSystem.WorldRenderPass.Targets))
	copy(targets, rendererSystem.WorldRenderPass.Targets)

	require.NoError(t, rendererSystem.Shutdown())

	assert.Nil(t, rendererSystem.WorldRenderPass)
	assert.Nil(t, backend.RenderPassGet(WorldRenderPassName))
	for _, handle := range targets {
		assert.False(t, backend.IsValid(handle))
	}
}
