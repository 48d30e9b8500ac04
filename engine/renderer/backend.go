package renderer

import (
	"github.com/spaghettifunk/pneuma/engine/math"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

// RendererBackend is the seam between the engine and a concrete graphics
// API. Every GPU object a backend creates lives in the backend's asset
// container and is referenced through an opaque handle; the engine never
// holds backend-native objects. All methods run on the frame goroutine.
type RendererBackend interface {
	Name() string
	Initialize(config *metadata.RendererBackendConfig) error
	Shutdown() error
	Resized(width, height uint32) error
	BeginFrame(deltaTime float64) error
	EndFrame(deltaTime float64) error

	// IsValid reports whether handle still resolves to a live backend
	// object of the type encoded in it.
	IsValid(handle metadata.AssetHandle) bool

	// Textures.
	TextureCreate(pixels []uint8, texture *metadata.Texture) (metadata.AssetHandle, error)
	TextureCreateWriteable(texture *metadata.Texture) (metadata.AssetHandle, error)
	TextureResize(handle metadata.AssetHandle, newWidth, newHeight uint32) error
	TextureWriteData(handle metadata.AssetHandle, offset, size uint32, pixels []uint8) error
	TextureReadData(handle metadata.AssetHandle, offset, size uint32) ([]uint8, error)
	TextureDestroy(handle metadata.AssetHandle)

	// Vertex and index buffers.
	BufferCreate(bufferType metadata.RenderBufferType, totalSize uint64) (metadata.AssetHandle, error)
	BufferLoadRange(handle metadata.AssetHandle, offset uint64, data []byte) error
	BufferDestroy(handle metadata.AssetHandle)

	// Programs. ProgramCreate links the stage sources and runs reflection;
	// Reflect returns the cached uniform and attribute lists in declaration
	// order, which is also their binding location. ProgramReload relinks
	// under the same handle, so existing references stay valid.
	ProgramCreate(config *metadata.ShaderConfig, stageSources map[metadata.ShaderStage]string) (metadata.AssetHandle, error)
	ProgramReload(handle metadata.AssetHandle, config *metadata.ShaderConfig, stageSources map[metadata.ShaderStage]string) error
	ProgramDestroy(handle metadata.AssetHandle)
	Reflect(handle metadata.AssetHandle) ([]metadata.ShaderUniform, []metadata.VertexAttribute, error)
	ProgramUse(handle metadata.AssetHandle) error

	// Uniform binders used by material constant application.
	SetConstantVec4(program metadata.AssetHandle, location uint32, values []math.Vec4) error
	SetConstantMat4(program metadata.AssetHandle, location uint32, value math.Mat4) error
	SetTexture(program metadata.AssetHandle, location uint32, unit uint32, texture metadata.AssetHandle) error

	// Render targets. A render target owns the attachment textures derived
	// from its config; destroying it destroys those before releasing the
	// target's own handle.
	RenderTargetCreate(config *metadata.RenderTargetConfig) (metadata.AssetHandle, error)
	RenderTargetGet(handle metadata.AssetHandle) *metadata.RenderTarget
	RenderTargetDestroy(handle metadata.AssetHandle)

	// Render passes.
	RenderPassCreate(config *metadata.RenderPassConfig) (*metadata.RenderPass, error)
	RenderPassDestroy(pass *metadata.RenderPass)
	RenderPassGet(name string) *metadata.RenderPass
	RenderPassBegin(pass *metadata.RenderPass, target metadata.AssetHandle) error
	RenderPassEnd(pass *metadata.RenderPass) error

	// Window attachments. Backends expose their presentation images as
	// container-held textures so render passes can target them like any
	// other attachment.
	WindowAttachmentGet(index uint8) metadata.AssetHandle
	WindowAttachmentCountGet() uint8
	WindowAttachmentIndexGet() uint64
	DepthAttachmentGet() metadata.AssetHandle

	DrawGeometry(draw *metadata.DrawCall, declaration *metadata.VertexDeclaration) error
	IsMultithreaded() bool
}
