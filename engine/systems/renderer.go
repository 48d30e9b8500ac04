package systems

import (
	"fmt"

	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/math"
	"github.com/spaghettifunk/pneuma/engine/renderer"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

// WorldRenderPassName is the name the builtin world pass is registered
// under on the backend.
const WorldRenderPassName string = "Renderpass.Builtin.World"

// Number of frames the framebuffer dimensions must hold still before the
// backend and the render targets are actually resized.
const rendererFramesBeforeResize uint8 = 30

type RendererSystemConfig struct {
	ApplicationName string
	// BackendName selects a registered adapter by name. Leave empty to use
	// the highest priority adapter in the registry.
	BackendName string
	Width       uint32
	Height      uint32
}

type RendererSystem struct {
	Config  *RendererSystemConfig
	backend renderer.RendererBackend

	// The number of render targets. Typically lines up with the amount of
	// window back buffers.
	WindowRenderTargetCount uint8
	// The current window framebuffer width.
	FramebufferWidth uint32
	// The current window framebuffer height.
	FramebufferHeight uint32

	// A pointer to the world renderpass.
	WorldRenderPass *metadata.RenderPass
	// Indicates if the window is currently being resized.
	Resizing bool
	// The current number of frames since the last resize operation.
	// Only set if resizing = true. Otherwise 0.
	FramesSinceResize uint8
	// Incremented once per DrawFrame call, including frames skipped while
	// a resize settles.
	FrameNumber uint64
}

func NewRendererSystem(config *RendererSystemConfig, registry *renderer.AdapterRegistry) (*RendererSystem, error) {
	if config == nil || registry == nil {
		err := fmt.Errorf("func NewRendererSystem requires a configuration and an adapter registry")
		core.LogError(err.Error())
		return nil, err
	}

	var backend renderer.RendererBackend
	if config.BackendName != "" {
		backend = registry.Get(config.BackendName)
	} else {
		backend = registry.Default()
	}
	if backend == nil {
		err := fmt.Errorf("no renderer backend available under name '%s'", config.BackendName)
		core.LogError(err.Error())
		return nil, err
	}

	width := config.Width
	if width == 0 {
		width = 1280
	}
	height := config.Height
	if height == 0 {
		height = 720
	}

	return &RendererSystem{
		Config:            config,
		backend:           backend,
		FramebufferWidth:  width,
		FramebufferHeight: height,
	}, nil
}

func (r *RendererSystem) Initialize() error {
	r.Resizing = false
	r.FramesSinceResize = 0
	r.FrameNumber = 0

	if err := r.backend.Initialize(&metadata.RendererBackendConfig{
		ApplicationName: r.Config.ApplicationName,
		Width:           r.FramebufferWidth,
		Height:          r.FramebufferHeight,
	}); err != nil {
		core.LogError("failed to initialize the '%s' renderer backend: %s", r.backend.Name(), err.Error())
		return err
	}

	r.WindowRenderTargetCount = r.backend.WindowAttachmentCountGet()

	pass, err := r.backend.RenderPassCreate(&metadata.RenderPassConfig{
		Name:              WorldRenderPassName,
		RenderArea:        math.NewVec4Create(0, 0, float32(r.FramebufferWidth), float32(r.FramebufferHeight)),
		ClearColour:       math.NewVec4Create(0.0, 0.0, 0.2, 1.0),
		ClearFlags:        metadata.RENDERPASS_CLEAR_COLOUR_BUFFER_FLAG | metadata.RENDERPASS_CLEAR_DEPTH_BUFFER_FLAG | metadata.RENDERPASS_CLEAR_STENCIL_BUFFER_FLAG,
		Depth:             1.0,
		Stencil:           0,
		RenderTargetCount: r.WindowRenderTargetCount,
		Target:            r.worldTargetConfig(),
	})
	if err != nil {
		core.LogError("failed to create the world renderpass: %s", err.Error())
		return err
	}
	r.WorldRenderPass = pass

	return r.RegenerateRenderTargets()
}

func (r *RendererSystem) Shutdown() error {
	if r.WorldRenderPass != nil {
		for i := uint8(0); i < r.WindowRenderTargetCount; i++ {
			if r.WorldRenderPass.Targets[i] != metadata.InvalidAssetHandle {
				r.backend.RenderTargetDestroy(r.WorldRenderPass.Targets[i])
				r.WorldRenderPass.Targets[i] = metadata.InvalidAssetHandle
			}
		}
		r.backend.RenderPassDestroy(r.WorldRenderPass)
		r.WorldRenderPass = nil
	}
	return r.backend.Shutdown()
}

// OnResize only records the new dimensions. The backend is not told until
// the size has held still for rendererFramesBeforeResize frames, so a drag
// resize does not rebuild the render targets on every event.
func (r *RendererSystem) OnResize(width, height uint32) {
	r.Resizing = true
	r.FramebufferWidth = width
	r.FramebufferHeight = height
	r.FramesSinceResize = 0
}

func (r *RendererSystem) DrawFrame(packet *metadata.RenderPacket, renderViewSystem *RenderViewSystem) error {
	r.FrameNumber++

	// Make sure the window is not currently being resized by waiting a
	// designated number of frames after the last resize operation before
	// performing the backend updates.
	if r.Resizing {
		r.FramesSinceResize++

		// If the required number of frames have passed since the resize,
		// perform the actual update.
		if r.FramesSinceResize >= rendererFramesBeforeResize {
			width := r.FramebufferWidth
			height := r.FramebufferHeight

			if err := r.backend.Resized(width, height); err != nil {
				core.LogError("backend resize to %dx%d failed: %s", width, height, err.Error())
				return err
			}
			if err := r.RegenerateRenderTargets(); err != nil {
				return err
			}
			r.WorldRenderPass.RenderArea = math.NewVec4Create(0, 0, float32(width), float32(height))
			renderViewSystem.OnWindowResize(width, height)

			r.FramesSinceResize = 0
			r.Resizing = false
		} else {
			// Skip rendering the frame and try again next time.
			return nil
		}
	}

	// If the begin frame returned successfully, mid-frame operations may continue.
	if err := r.backend.BeginFrame(packet.DeltaTime); err != nil {
		core.LogError("backend begin frame failed: %s", err.Error())
		return err
	}

	attachmentIndex := r.backend.WindowAttachmentIndexGet()

	// Render each view.
	for i := 0; i < len(packet.ViewPackets); i++ {
		if err := renderViewSystem.OnRender(packet.ViewPackets[i], r.FrameNumber, attachmentIndex); err != nil {
			core.LogError("error rendering view index %d", i)
			return err
		}
	}

	// End the frame. If this fails, it is likely unrecoverable.
	if err := r.backend.EndFrame(packet.DeltaTime); err != nil {
		err := fmt.Errorf("backend func EndFrame failed. Application shutting down")
		core.LogError(err.Error())
		return err
	}

	return nil
}

// RegenerateRenderTargets rebuilds one world target per window attachment
// at the current framebuffer size. Old targets are destroyed first, which
// also destroys the attachment textures they own.
func (r *RendererSystem) RegenerateRenderTargets() error {
	targetConfig := r.worldTargetConfig()
	for i := uint8(0); i < r.WindowRenderTargetCount; i++ {
		if r.WorldRenderPass.Targets[i] != metadata.InvalidAssetHandle {
			r.backend.RenderTargetDestroy(r.WorldRenderPass.Targets[i])
			r.WorldRenderPass.Targets[i] = metadata.InvalidAssetHandle
		}
		target, err := r.backend.RenderTargetCreate(targetConfig)
		if err != nil {
			core.LogError("failed to create the world render target for attachment index %d: %s", i, err.Error())
			return err
		}
		r.WorldRenderPass.Targets[i] = target
	}
	return nil
}

func (r *RendererSystem) worldTargetConfig() *metadata.RenderTargetConfig {
	return &metadata.RenderTargetConfig{
		Name:   "Rendertarget.Builtin.World",
		Width:  r.FramebufferWidth,
		Height: r.FramebufferHeight,
		Attachments: []*metadata.RenderTargetAttachmentConfig{
			{
				RenderTargetAttachmentType: metadata.RENDER_TARGET_ATTACHMENT_TYPE_COLOUR,
				Source:                     metadata.RENDER_TARGET_ATTACHMENT_SOURCE_DEFAULT,
				Format:                     metadata.TextureFormatRGBA8,
				LoadOperation:              metadata.RENDER_TARGET_ATTACHMENT_LOAD_OPERATION_DONT_CARE,
				StoreOperation:             metadata.RENDER_TARGET_ATTACHMENT_STORE_OPERATION_STORE,
				PresentAfter:               true,
			},
			{
				RenderTargetAttachmentType: metadata.RENDER_TARGET_ATTACHMENT_TYPE_DEPTH,
				Source:                     metadata.RENDER_TARGET_ATTACHMENT_SOURCE_DEFAULT,
				Format:                     metadata.TextureFormatDepth24Stencil8,
				LoadOperation:              metadata.RENDER_TARGET_ATTACHMENT_LOAD_OPERATION_DONT_CARE,
				StoreOperation:             metadata.RENDER_TARGET_ATTACHMENT_STORE_OPERATION_DONT_CARE,
			},
		},
	}
}

// Backend exposes the underlying adapter so dependent systems can create
// their own GPU resources through it.
func (r *RendererSystem) Backend() renderer.RendererBackend {
	return r.backend
}

func (r *RendererSystem) IsMultithreaded() bool {
	return r.backend.IsMultithreaded()
}

func (r *RendererSystem) RenderPassGet(name string) *metadata.RenderPass {
	return r.backend.RenderPassGet(name)
}

func (r *RendererSystem) RenderPassBegin(pass *metadata.RenderPass, target metadata.AssetHandle) error {
	return r.backend.RenderPassBegin(pass, target)
}

func (r *RendererSystem) RenderPassEnd(pass *metadata.RenderPass) error {
	return r.backend.RenderPassEnd(pass)
}

func (r *RendererSystem) DrawGeometry(draw *metadata.DrawCall, declaration *metadata.VertexDeclaration) error {
	return r.backend.DrawGeometry(draw, declaration)
}

// SetConstantVec4, SetConstantMat4 and SetTexture make the renderer system
// a metadata.ConstantBinder, so render views can hand it straight to the
// material system when applying per draw state.
func (r *RendererSystem) SetConstantVec4(program metadata.AssetHandle, location uint32, values []math.Vec4) error {
	return r.backend.SetConstantVec4(program, location, values)
}

func (r *RendererSystem) SetConstantMat4(program metadata.AssetHandle, location uint32, value math.Mat4) error {
	return r.backend.SetConstantMat4(program, location, value)
}

func (r *RendererSystem) SetTexture(program metadata.AssetHandle, location uint32, unit uint32, texture metadata.AssetHandle) error {
	return r.backend.SetTexture(program, location, unit, texture)
}
