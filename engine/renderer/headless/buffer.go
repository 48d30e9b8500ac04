package headless

import (
	"fmt"

	"github.com/spaghettifunk/pneuma/engine/renderer"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

// buffer is the backend-native vertex or index buffer object.
type buffer struct {
	bufferType metadata.RenderBufferType
	data       []byte
}

func assetTypeForBuffer(bufferType metadata.RenderBufferType) (metadata.AssetType, error) {
	switch bufferType {
	case metadata.RENDERBUFFER_TYPE_VERTEX:
		return metadata.AssetTypeVertexBuffer, nil
	case metadata.RENDERBUFFER_TYPE_INDEX:
		return metadata.AssetTypeIndexBuffer, nil
	default:
		return metadata.AssetTypeInvalid, fmt.Errorf("headless: unsupported render buffer type %d", bufferType)
	}
}

func (b *Backend) BufferCreate(bufferType metadata.RenderBufferType, totalSize uint64) (metadata.AssetHandle, error) {
	assetType, err := assetTypeForBuffer(bufferType)
	if err != nil {
		return metadata.InvalidAssetHandle, err
	}
	if totalSize == 0 {
		return metadata.InvalidAssetHandle, fmt.Errorf("headless: cannot create a zero byte %s", assetType.String())
	}
	buf := &buffer{
		bufferType: bufferType,
		data:       make([]byte, totalSize),
	}
	return b.assets.Store(buf, assetType)
}

func (b *Backend) BufferLoadRange(handle metadata.AssetHandle, offset uint64, data []byte) error {
	buf := b.resolveBuffer(handle)
	if buf == nil {
		return fmt.Errorf("headless: buffer load on invalid handle %s", handle.String())
	}
	if offset+uint64(len(data)) > uint64(len(buf.data)) {
		return fmt.Errorf("headless: buffer load range [%d,%d) exceeds %d bytes", offset, offset+uint64(len(data)), len(buf.data))
	}
	copy(buf.data[offset:], data)
	return nil
}

func (b *Backend) BufferDestroy(handle metadata.AssetHandle) {
	buf := b.resolveBuffer(handle)
	if buf == nil {
		return
	}
	buf.data = nil
	b.assets.Release(handle)
}

func (b *Backend) resolveBuffer(handle metadata.AssetHandle) *buffer {
	switch handle.Type() {
	case metadata.AssetTypeVertexBuffer, metadata.AssetTypeIndexBuffer:
		return renderer.AssetFrom[buffer](b.assets, handle, handle.Type())
	default:
		return nil
	}
}
