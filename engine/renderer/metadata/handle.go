package metadata

import "fmt"

/** @brief The types of assets a backend container can hold. */
type AssetType uint8

const (
	AssetTypeInvalid AssetType = iota
	AssetTypeTexture
	AssetTypeRenderTarget
	AssetTypeVertexBuffer
	AssetTypeIndexBuffer
	AssetTypeProgram
	AssetTypeMax
)

func (t AssetType) String() string {
	switch t {
	case AssetTypeTexture:
		return "texture"
	case AssetTypeRenderTarget:
		return "render_target"
	case AssetTypeVertexBuffer:
		return "vertex_buffer"
	case AssetTypeIndexBuffer:
		return "index_buffer"
	case AssetTypeProgram:
		return "program"
	}
	return fmt.Sprintf("invalid(%d)", uint8(t))
}

/**
 * @brief An opaque reference to a backend resource object.
 *
 * Packs the asset type, a slot generation and the slot index into a single
 * integer so handles stay comparable, storable in game objects and safe to
 * pass across package boundaries. A handle is live only while the slot it
 * points at holds an asset of the same type and generation; anything else
 * resolves to nil rather than aliasing the new occupant.
 */
type AssetHandle uint64

const InvalidAssetHandle AssetHandle = 0

/** @brief Width mask of the generation field. Generations wrap inside it. */
const AssetHandleGenerationMask = 0xFFFFFF

const (
	assetHandleTypeShift       = 56
	assetHandleGenerationShift = 32
	assetHandleSlotMask        = 0xFFFFFFFF
)

// NewAssetHandle packs type, generation and slot into a handle.
func NewAssetHandle(t AssetType, generation uint32, slot uint32) AssetHandle {
	return AssetHandle(uint64(t)<<assetHandleTypeShift |
		uint64(generation&AssetHandleGenerationMask)<<assetHandleGenerationShift |
		uint64(slot))
}

// Type returns the asset type encoded in the handle.
func (h AssetHandle) Type() AssetType {
	t := AssetType(h >> assetHandleTypeShift)
	if t >= AssetTypeMax {
		return AssetTypeInvalid
	}
	return t
}

// Generation returns the slot generation the handle was minted with.
func (h AssetHandle) Generation() uint32 {
	return uint32(h>>assetHandleGenerationShift) & AssetHandleGenerationMask
}

// Slot returns the container slot index.
func (h AssetHandle) Slot() uint32 {
	return uint32(h & assetHandleSlotMask)
}

func (h AssetHandle) String() string {
	return fmt.Sprintf("%s/%d@%d", h.Type(), h.Slot(), h.Generation())
}
