package systems

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/pneuma/engine/assets"
	"github.com/spaghettifunk/pneuma/engine/renderer/headless"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

func writeTestPNG(t *testing.T, path string, width, height int, c color.NRGBA) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func newTestTextureSystem(t *testing.T, root string) (*TextureSystem, *headless.Backend) {
	t.Helper()
	backend := headless.New()
	require.NoError(t, backend.Initialize(&metadata.RendererBackendConfig{
		ApplicationName: "texture-test",
		Width:           640,
		Height:          480,
	}))

	var assetManager *assets.AssetManager
	if root != "" {
		var err error
		assetManager, err = assets.NewAssetManager()
		require.NoError(t, err)
		require.NoError(t, assetManager.Initialize(root))
		t.Cleanup(func() { assetManager.Shutdown() })
	}

	textureSystem, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 16}, backend, assetManager)
	require.NoError(t, err)
	require.NoError(t, textureSystem.Initialize())
	return textureSystem, backend
}

func TestNewTextureSystemRejectsZeroCapacity(t *testing.T) {
	_, err := NewTextureSystem(&TextureSystemConfig{}, headless.New(), nil)
	assert.Error(t, err)
}

func TestTextureSystemDefaultTextures(t *testing.T) {
	textureSystem, backend := newTestTextureSystem(t, "")

	def := textureSystem.GetDefaultTexture()
	assert.Equal(t, uint32(256), def.Width)
	assert.Equal(t, uint32(256), def.Height)
	assert.True(t, backend.IsValid(def.Handle))
	assert.True(t, backend.IsValid(textureSystem.GetDefaultDiffuseTexture().Handle))
	assert.True(t, backend.IsValid(textureSystem.GetDefaultSpecularTexture().Handle))
	assert.True(t, backend.IsValid(textureSystem.GetDefaultNormalTexture().Handle))
}

func TestTextureSystemAcquireLoadsFromDisk(t *testing.T) {
	root := t.TempDir()
	writeTestPNG(t, filepath.Join(root, "textures", "bricks.png"), 4, 4, color.NRGBA{R: 200, G: 50, B: 10, A: 255})
	textureSystem, backend := newTestTextureSystem(t, root)

	texture, err := textureSystem.Acquire("bricks", true)
	require.NoError(t, err)
	assert.Equal(t, "bricks", texture.Name)
	assert.Equal(t, uint32(4), texture.Width)
	assert.Equal(t, uint32(4), texture.Height)
	assert.Equal(t, uint8(4), texture.ChannelCount)
	assert.Equal(t, uint32(0), texture.Generation)
	assert.True(t, backend.IsValid(texture.Handle))
	assert.Zero(t, texture.Flags&metadata.TextureFlagHasTransparency)

	again, err := textureSystem.Acquire("bricks", true)
	require.NoError(t, err)
	assert.Same(t, texture, again)
	assert.Equal(t, uint64(2), textureSystem.RegisteredTextureTable["bricks"].ReferenceCount)
}

func TestTextureSystemDetectsTransparency(t *testing.T) {
	root := t.TempDir()
	writeTestPNG(t, filepath.Join(root, "textures", "glass.png"), 2, 2, color.NRGBA{R: 255, G: 255, B: 255, A: 128})
	textureSystem, _ := newTestTextureSystem(t, root)

	texture, err := textureSystem.Acquire("glass", true)
	require.NoError(t, err)
	assert.NotZero(t, texture.Flags&metadata.TextureFlagHasTransparency)
}

func TestTextureSystemAcquireDefaultNameReturnsDefault(t *testing.T) {
	textureSystem, _ := newTestTextureSystem(t, "")
	texture, err := textureSystem.Acquire(metadata.DEFAULT_TEXTURE_NAME, true)
	require.NoError(t, err)
	assert.Same(t, textureSystem.GetDefaultTexture(), texture)
}

func TestTextureSystemReleaseDestroysAutoReleased(t *testing.T) {
	root := t.TempDir()
	writeTestPNG(t, filepath.Join(root, "textures", "bricks.png"), 4, 4, color.NRGBA{R: 200, G: 50, B: 10, A: 255})
	textureSystem, backend := newTestTextureSystem(t, root)

	texture, err := textureSystem.Acquire("bricks", true)
	require.NoError(t, err)
	handle := texture.Handle

	textureSystem.Release("bricks")
	assert.False(t, backend.IsValid(handle))
	assert.Equal(t, metadata.InvalidID, textureSystem.RegisteredTextureTable["bricks"].Handle)

	// The slot is reusable; the next acquire loads fresh.
	reloaded, err := textureSystem.Acquire("bricks", true)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), reloaded.Generation)
	assert.True(t, backend.IsValid(reloaded.Handle))
}

func TestTextureSystemReleaseWithoutAutoReleaseKeepsTexture(t *testing.T) {
	root := t.TempDir()
	writeTestPNG(t, filepath.Join(root, "textures", "bricks.png"), 4, 4, color.NRGBA{R: 200, G: 50, B: 10, A: 255})
	textureSystem, backend := newTestTextureSystem(t, root)

	texture, err := textureSystem.Acquire("bricks", false)
	require.NoError(t, err)

	textureSystem.Release("bricks")
	assert.True(t, backend.IsValid(texture.Handle))
	assert.Equal(t, uint64(0), textureSystem.RegisteredTextureTable["bricks"].ReferenceCount)
}

func TestTextureSystemReleaseUnknownWarns(t *testing.T) {
	textureSystem, _ := newTestTextureSystem(t, "")
	textureSystem.Release("missing")
}

func TestTextureSystemAcquireWriteable(t *testing.T) {
	textureSystem, backend := newTestTextureSystem(t, "")

	texture, err := textureSystem.AcquireWriteable("offscreen", 8, 8, 4, false)
	require.NoError(t, err)
	assert.True(t, backend.IsValid(texture.Handle))
	assert.NotZero(t, texture.Flags&metadata.TextureFlagIsWriteable)

	pixels := make([]uint8, 8*8*4)
	for i := range pixels {
		pixels[i] = uint8(i % 251)
	}
	require.True(t, textureSystem.WriteData(texture, 0, uint32(len(pixels)), pixels))

	back, err := backend.TextureReadData(texture.Handle, 0, uint32(len(pixels)))
	require.NoError(t, err)
	assert.Equal(t, pixels, back)
}

func TestTextureSystemReloadKeepsHandle(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "textures", "bricks.png")
	writeTestPNG(t, path, 4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	textureSystem, backend := newTestTextureSystem(t, root)

	texture, err := textureSystem.Acquire("bricks", true)
	require.NoError(t, err)
	handle := texture.Handle

	writeTestPNG(t, path, 4, 4, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	require.NoError(t, textureSystem.Reload("bricks"))

	assert.Equal(t, handle, texture.Handle)
	assert.True(t, backend.IsValid(handle))

	pixels, err := backend.TextureReadData(handle, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint8{200, 100, 50, 255}, pixels)
}

func TestTextureSystemReloadResizesChangedDimensions(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "textures", "bricks.png")
	writeTestPNG(t, path, 4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	textureSystem, backend := newTestTextureSystem(t, root)

	texture, err := textureSystem.Acquire("bricks", true)
	require.NoError(t, err)
	handle := texture.Handle

	writeTestPNG(t, path, 8, 8, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	require.NoError(t, textureSystem.Reload("bricks"))

	assert.Equal(t, handle, texture.Handle)
	assert.Equal(t, uint32(8), texture.Width)
	assert.Equal(t, uint32(8), texture.Height)

	_, err = backend.TextureReadData(handle, 0, 8*8*4)
	assert.NoError(t, err)
}

func TestTextureSystemAcquireCube(t *testing.T) {
	root := t.TempDir()
	for _, side := range []string{"r", "l", "u", "d", "f", "b"} {
		writeTestPNG(t, filepath.Join(root, "textures", "sky_"+side+".png"), 2, 2, color.NRGBA{R: 80, G: 120, B: 200, A: 255})
	}
	textureSystem, backend := newTestTextureSystem(t, root)

	texture, err := textureSystem.AcquireCube("sky", true)
	require.NoError(t, err)
	assert.Equal(t, metadata.TextureTypeCube, texture.TextureType)
	assert.Equal(t, uint32(6), texture.LayerCount)
	assert.True(t, backend.IsValid(texture.Handle))

	// All six faces landed in backend storage.
	_, err = backend.TextureReadData(texture.Handle, 0, 2*2*4*6)
	assert.NoError(t, err)
}

func TestTextureSystemAcquireCubeMismatchedFacesFails(t *testing.T) {
	root := t.TempDir()
	for _, side := range []string{"r", "l", "u", "d", "f"} {
		writeTestPNG(t, filepath.Join(root, "textures", "sky_"+side+".png"), 2, 2, color.NRGBA{A: 255})
	}
	writeTestPNG(t, filepath.Join(root, "textures", "sky_b.png"), 4, 4, color.NRGBA{A: 255})
	textureSystem, _ := newTestTextureSystem(t, root)

	_, err := textureSystem.AcquireCube("sky", true)
	assert.Error(t, err)
}

func TestTextureSystemCapacityExhausted(t *testing.T) {
	backend := headless.New()
	require.NoError(t, backend.Initialize(&metadata.RendererBackendConfig{ApplicationName: "texture-test", Width: 64, Height: 64}))
	textureSystem, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 1}, backend, nil)
	require.NoError(t, err)
	require.NoError(t, textureSystem.Initialize())

	_, err = textureSystem.AcquireWriteable("first", 2, 2, 4, false)
	require.NoError(t, err)
	_, err = textureSystem.AcquireWriteable("second", 2, 2, 4, false)
	assert.Error(t, err)
}

func TestTextureSystemShutdownDestroysAll(t *testing.T) {
	textureSystem, backend := newTestTextureSystem(t, "")

	texture, err := textureSystem.AcquireWriteable("offscreen", 4, 4, 4, false)
	require.NoError(t, err)
	handle := texture.Handle
	defaultHandle := textureSystem.GetDefaultTexture().Handle

	require.NoError(t, textureSystem.Shutdown())
	assert.False(t, backend.IsValid(handle))
	assert.False(t, backend.IsValid(defaultHandle))
}
