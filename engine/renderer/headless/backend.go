// Package headless implements the renderer backend seam entirely on the
// CPU. Textures, buffers and render target attachments are byte slices,
// programs are reflected by scanning their GLSL source and uniform binds
// are recorded per program. It backs tests, servers and tools that need
// the full resource lifecycle without a GPU.
package headless

import (
	"fmt"

	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/renderer"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

// BackendName is the name the backend registers under.
const BackendName = "headless"

// windowAttachmentCount mimics a double buffered swapchain.
const windowAttachmentCount = 2

type Backend struct {
	config *metadata.RendererBackendConfig
	assets *renderer.AssetContainer

	passes     map[string]*metadata.RenderPass
	nextPassID uint16

	framebufferWidth  uint32
	framebufferHeight uint32

	windowAttachments [windowAttachmentCount]metadata.AssetHandle
	depthAttachment   metadata.AssetHandle

	frameNumber    uint64
	inFrame        bool
	currentPass    *metadata.RenderPass
	currentProgram metadata.AssetHandle

	// Draw calls accepted since Initialize. Inspectable by tests and tools.
	drawCount uint64
}

func New() *Backend {
	return &Backend{
		assets: renderer.NewAssetContainer(),
		passes: make(map[string]*metadata.RenderPass),
	}
}

// Register adds the headless backend to registry. Priority sits below any
// hardware backend so it is only picked when nothing else is available.
func Register(registry *renderer.AdapterRegistry) {
	registry.Register(BackendName, 10, func() renderer.RendererBackend {
		return New()
	})
}

func (b *Backend) Name() string {
	return BackendName
}

func (b *Backend) Initialize(config *metadata.RendererBackendConfig) error {
	if config == nil {
		return core.ErrInvalidConfiguration
	}
	b.config = config
	b.framebufferWidth = config.Width
	b.framebufferHeight = config.Height
	if b.framebufferWidth == 0 || b.framebufferHeight == 0 {
		b.framebufferWidth = 1280
		b.framebufferHeight = 720
	}
	if err := b.createWindowAttachments(); err != nil {
		return err
	}
	core.LogInfo("headless renderer initialized (%dx%d)", b.framebufferWidth, b.framebufferHeight)
	return nil
}

func (b *Backend) Shutdown() error {
	b.destroyWindowAttachments()
	b.passes = make(map[string]*metadata.RenderPass)
	if leaked := b.assets.LiveCount(); leaked > 0 {
		core.LogWarn("headless renderer shutdown with %d live assets", leaked)
	}
	return nil
}

func (b *Backend) Resized(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("headless: cannot resize framebuffer to %dx%d", width, height)
	}
	b.framebufferWidth = width
	b.framebufferHeight = height
	b.destroyWindowAttachments()
	return b.createWindowAttachments()
}

func (b *Backend) BeginFrame(deltaTime float64) error {
	if b.inFrame {
		return fmt.Errorf("headless: BeginFrame called inside an open frame")
	}
	b.inFrame = true
	return nil
}

func (b *Backend) EndFrame(deltaTime float64) error {
	if !b.inFrame {
		return fmt.Errorf("headless: EndFrame called without BeginFrame")
	}
	b.inFrame = false
	b.frameNumber++
	return nil
}

func (b *Backend) IsValid(handle metadata.AssetHandle) bool {
	return b.assets.IsValid(handle)
}

func (b *Backend) WindowAttachmentGet(index uint8) metadata.AssetHandle {
	if index >= windowAttachmentCount {
		core.LogError("headless: window attachment index %d out of range", index)
		return metadata.InvalidAssetHandle
	}
	return b.windowAttachments[index]
}

func (b *Backend) WindowAttachmentCountGet() uint8 {
	return windowAttachmentCount
}

func (b *Backend) WindowAttachmentIndexGet() uint64 {
	return b.frameNumber % windowAttachmentCount
}

func (b *Backend) DepthAttachmentGet() metadata.AssetHandle {
	return b.depthAttachment
}

// DrawGeometry validates the draw call's resources and counts it. Nothing
// is rasterized.
func (b *Backend) DrawGeometry(draw *metadata.DrawCall, declaration *metadata.VertexDeclaration) error {
	if draw == nil || draw.Geometry == nil {
		return fmt.Errorf("headless: draw call without geometry")
	}
	if declaration == nil || declaration.Stride == 0 {
		return fmt.Errorf("headless: draw call for geometry %s without a vertex declaration", draw.Geometry.Name)
	}
	if !b.inFrame || b.currentPass == nil {
		return fmt.Errorf("headless: draw call for geometry %s outside a render pass", draw.Geometry.Name)
	}
	if vb := renderer.AssetFrom[buffer](b.assets, draw.Geometry.VertexBufferHandle, metadata.AssetTypeVertexBuffer); vb == nil {
		return fmt.Errorf("headless: geometry %s has an invalid vertex buffer handle", draw.Geometry.Name)
	}
	if draw.Geometry.IndexCount > 0 {
		if ib := renderer.AssetFrom[buffer](b.assets, draw.Geometry.IndexBufferHandle, metadata.AssetTypeIndexBuffer); ib == nil {
			return fmt.Errorf("headless: geometry %s has an invalid index buffer handle", draw.Geometry.Name)
		}
	}
	b.drawCount++
	return nil
}

// DrawCount returns the number of draw calls accepted since Initialize.
func (b *Backend) DrawCount() uint64 {
	return b.drawCount
}

func (b *Backend) IsMultithreaded() bool {
	return false
}

func (b *Backend) createWindowAttachments() error {
	for i := 0; i < windowAttachmentCount; i++ {
		info := &metadata.Texture{
			TextureType:  metadata.TextureType2d,
			Format:       metadata.TextureFormatRGBA8,
			Width:        b.framebufferWidth,
			Height:       b.framebufferHeight,
			LayerCount:   1,
			ChannelCount: 4,
			Flags:        metadata.TextureFlagIsWriteable | metadata.TextureFlagIsAttachment,
			Name:         fmt.Sprintf("Headless.WindowAttachment.%d", i),
		}
		handle, err := b.TextureCreateWriteable(info)
		if err != nil {
			return err
		}
		b.windowAttachments[i] = handle
	}

	depthInfo := &metadata.Texture{
		TextureType:  metadata.TextureType2d,
		Format:       metadata.TextureFormatDepth24Stencil8,
		Width:        b.framebufferWidth,
		Height:       b.framebufferHeight,
		LayerCount:   1,
		ChannelCount: 4,
		Flags:        metadata.TextureFlagIsWriteable | metadata.TextureFlagIsAttachment | metadata.TextureFlagDepth,
		Name:         "Headless.DepthAttachment",
	}
	handle, err := b.TextureCreateWriteable(depthInfo)
	if err != nil {
		return err
	}
	b.depthAttachment = handle
	return nil
}

func (b *Backend) destroyWindowAttachments() {
	for i := range b.windowAttachments {
		if b.windowAttachments[i] != metadata.InvalidAssetHandle {
			b.TextureDestroy(b.windowAttachments[i])
			b.windowAttachments[i] = metadata.InvalidAssetHandle
		}
	}
	if b.depthAttachment != metadata.InvalidAssetHandle {
		b.TextureDestroy(b.depthAttachment)
		b.depthAttachment = metadata.InvalidAssetHandle
	}
}
