package headless

import (
	"fmt"

	"github.com/spaghettifunk/pneuma/engine/renderer"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

// texture is the backend-native texture object. Pixel storage lives on the
// CPU, which doubles as the readback path.
type texture struct {
	info   *metadata.Texture
	pixels []byte
}

func textureByteSize(info *metadata.Texture) uint32 {
	layers := info.LayerCount
	if layers == 0 {
		layers = 1
	}
	return info.Width * info.Height * info.Format.BytesPerPixel() * layers
}

func (b *Backend) TextureCreate(pixels []uint8, info *metadata.Texture) (metadata.AssetHandle, error) {
	if info == nil {
		return metadata.InvalidAssetHandle, fmt.Errorf("headless: texture create without a descriptor")
	}
	if info.Format == metadata.TextureFormatUnknown {
		return metadata.InvalidAssetHandle, fmt.Errorf("headless: texture %s has no pixel format", info.Name)
	}
	expected := textureByteSize(info)
	if uint32(len(pixels)) != expected {
		return metadata.InvalidAssetHandle, fmt.Errorf("headless: texture %s expects %d pixel bytes, got %d", info.Name, expected, len(pixels))
	}
	t := &texture{
		info:   info,
		pixels: append([]byte(nil), pixels...),
	}
	return b.assets.Store(t, metadata.AssetTypeTexture)
}

func (b *Backend) TextureCreateWriteable(info *metadata.Texture) (metadata.AssetHandle, error) {
	if info == nil {
		return metadata.InvalidAssetHandle, fmt.Errorf("headless: writeable texture create without a descriptor")
	}
	if info.Format == metadata.TextureFormatUnknown {
		return metadata.InvalidAssetHandle, fmt.Errorf("headless: writeable texture %s has no pixel format", info.Name)
	}
	t := &texture{
		info:   info,
		pixels: make([]byte, textureByteSize(info)),
	}
	return b.assets.Store(t, metadata.AssetTypeTexture)
}

func (b *Backend) TextureResize(handle metadata.AssetHandle, newWidth, newHeight uint32) error {
	t := renderer.AssetFrom[texture](b.assets, handle, metadata.AssetTypeTexture)
	if t == nil {
		return fmt.Errorf("headless: texture resize on invalid handle %s", handle.String())
	}
	t.info.Width = newWidth
	t.info.Height = newHeight
	// Resizing discards content, same as a GPU level recreate.
	t.pixels = make([]byte, textureByteSize(t.info))
	t.info.Generation++
	return nil
}

func (b *Backend) TextureWriteData(handle metadata.AssetHandle, offset, size uint32, pixels []uint8) error {
	t := renderer.AssetFrom[texture](b.assets, handle, metadata.AssetTypeTexture)
	if t == nil {
		return fmt.Errorf("headless: texture write on invalid handle %s", handle.String())
	}
	if uint32(len(pixels)) < size {
		return fmt.Errorf("headless: texture %s write of %d bytes supplied only %d", t.info.Name, size, len(pixels))
	}
	if offset+size > uint32(len(t.pixels)) {
		return fmt.Errorf("headless: texture %s write range [%d,%d) exceeds %d bytes", t.info.Name, offset, offset+size, len(t.pixels))
	}
	copy(t.pixels[offset:offset+size], pixels[:size])
	t.info.Generation++
	return nil
}

func (b *Backend) TextureReadData(handle metadata.AssetHandle, offset, size uint32) ([]uint8, error) {
	t := renderer.AssetFrom[texture](b.assets, handle, metadata.AssetTypeTexture)
	if t == nil {
		return nil, fmt.Errorf("headless: texture read on invalid handle %s", handle.String())
	}
	if offset+size > uint32(len(t.pixels)) {
		return nil, fmt.Errorf("headless: texture %s read range [%d,%d) exceeds %d bytes", t.info.Name, offset, offset+size, len(t.pixels))
	}
	out := make([]uint8, size)
	copy(out, t.pixels[offset:offset+size])
	return out, nil
}

func (b *Backend) TextureDestroy(handle metadata.AssetHandle) {
	t := renderer.AssetFrom[texture](b.assets, handle, metadata.AssetTypeTexture)
	if t == nil {
		// Already gone; destruction is idempotent for callers tearing down.
		return
	}
	t.pixels = nil
	b.assets.Release(handle)
}
