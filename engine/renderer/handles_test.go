package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

type fakeTexture struct {
	name string
}

type fakeBuffer struct {
	size uint64
}

func TestAssetContainerStoreResolveRoundTrip(t *testing.T) {
	c := NewAssetContainer()

	tex := &fakeTexture{name: "albedo"}
	handle, err := c.Store(tex, metadata.AssetTypeTexture)
	require.NoError(t, err)
	require.NotEqual(t, metadata.InvalidAssetHandle, handle)

	assert.Equal(t, metadata.AssetTypeTexture, handle.Type())
	assert.True(t, c.IsValid(handle))
	assert.Same(t, tex, c.Resolve(handle, metadata.AssetTypeTexture))
	assert.Same(t, tex, AssetFrom[fakeTexture](c, handle, metadata.AssetTypeTexture))
}

func TestAssetContainerResolveWrongTypeIsNil(t *testing.T) {
	c := NewAssetContainer()

	handle, err := c.Store(&fakeTexture{name: "albedo"}, metadata.AssetTypeTexture)
	require.NoError(t, err)

	assert.Nil(t, c.Resolve(handle, metadata.AssetTypeRenderTarget))
	assert.Nil(t, AssetFrom[fakeBuffer](c, handle, metadata.AssetTypeVertexBuffer))
	// The right type still resolves.
	assert.NotNil(t, c.Resolve(handle, metadata.AssetTypeTexture))
}

func TestAssetContainerReleaseInvalidatesHandle(t *testing.T) {
	c := NewAssetContainer()

	handle, err := c.Store(&fakeTexture{name: "albedo"}, metadata.AssetTypeTexture)
	require.NoError(t, err)
	require.True(t, c.IsValid(handle))

	c.Release(handle)

	assert.False(t, c.IsValid(handle))
	assert.Nil(t, c.Resolve(handle, metadata.AssetTypeTexture))
	assert.Equal(t, uint32(0), c.LiveCount())
}

func TestAssetContainerStaleHandleDoesNotAliasReusedSlot(t *testing.T) {
	c := NewAssetContainer()

	first, err := c.Store(&fakeTexture{name: "first"}, metadata.AssetTypeTexture)
	require.NoError(t, err)
	c.Release(first)

	// Exhaust the free queue so the released slot is reused.
	var second metadata.AssetHandle
	for i := 0; i < assetContainerInitialCapacity; i++ {
		h, err := c.Store(&fakeTexture{name: "second"}, metadata.AssetTypeTexture)
		require.NoError(t, err)
		if h.Slot() == first.Slot() {
			second = h
		}
	}
	require.NotEqual(t, metadata.InvalidAssetHandle, second, "released slot was not reused")

	assert.False(t, c.IsValid(first))
	assert.Nil(t, c.Resolve(first, metadata.AssetTypeTexture))
	assert.True(t, c.IsValid(second))
}

func TestAssetContainerGrowsPastInitialCapacity(t *testing.T) {
	c := NewAssetContainer()

	count := assetContainerInitialCapacity*4 + 3
	handles := make([]metadata.AssetHandle, 0, count)
	for i := 0; i < count; i++ {
		h, err := c.Store(&fakeBuffer{size: uint64(i)}, metadata.AssetTypeVertexBuffer)
		require.NoError(t, err)
		handles = append(handles, h)
	}

	assert.Equal(t, uint32(count), c.LiveCount())
	for i, h := range handles {
		buf := AssetFrom[fakeBuffer](c, h, metadata.AssetTypeVertexBuffer)
		require.NotNil(t, buf)
		assert.Equal(t, uint64(i), buf.size)
	}
}

func TestAssetContainerRejectsInvalidStores(t *testing.T) {
	c := NewAssetContainer()

	_, err := c.Store(&fakeTexture{}, metadata.AssetTypeInvalid)
	assert.Error(t, err)

	_, err = c.Store(nil, metadata.AssetTypeTexture)
	assert.Error(t, err)

	assert.Equal(t, uint32(0), c.LiveCount())
}

func TestAssetContainerInvalidHandleQueries(t *testing.T) {
	c := NewAssetContainer()

	assert.False(t, c.IsValid(metadata.InvalidAssetHandle))
	assert.Nil(t, c.Resolve(metadata.InvalidAssetHandle, metadata.AssetTypeTexture))

	// Out-of-range slot.
	forged := metadata.NewAssetHandle(metadata.AssetTypeTexture, 1, 9999)
	assert.False(t, c.IsValid(forged))
	assert.Nil(t, c.Resolve(forged, metadata.AssetTypeTexture))
}
