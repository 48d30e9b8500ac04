package systems

import (
	"fmt"

	"github.com/spaghettifunk/pneuma/engine/assets"
	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/renderer"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

type TextureSystemConfig struct {
	/** @brief The maximum number of textures that can be loaded at once. */
	MaxTextureCount uint32
}

type TextureSystem struct {
	Config         *TextureSystemConfig
	DefaultTexture *metadata.DefaultTexture
	// Array of registered textures.
	RegisteredTextures []*metadata.Texture
	// Hashtable for texture lookups.
	RegisteredTextureTable map[string]*metadata.TextureReference
	// sub systems
	backend      renderer.RendererBackend
	assetManager *assets.AssetManager
}

func NewTextureSystem(config *TextureSystemConfig, backend renderer.RendererBackend, am *assets.AssetManager) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}

	ts := &TextureSystem{
		Config:                 config,
		RegisteredTextures:     make([]*metadata.Texture, config.MaxTextureCount),
		RegisteredTextureTable: make(map[string]*metadata.TextureReference),
		DefaultTexture:         metadata.NewDefaultTexture(),
		backend:                backend,
		assetManager:           am,
	}

	// Invalidate all textures in the array.
	for i := uint32(0); i < config.MaxTextureCount; i++ {
		ts.RegisteredTextures[i] = &metadata.Texture{
			ID:         metadata.InvalidID,
			Generation: metadata.InvalidID,
		}
	}

	// Create the pixel data for the default textures.
	ts.DefaultTexture.CreateSkeletonTextures()

	return ts, nil
}

// Initialize uploads the generated default textures to the backend.
func (ts *TextureSystem) Initialize() error {
	defaults := []struct {
		texture *metadata.Texture
		pixels  []uint8
	}{
		{ts.DefaultTexture.DefaultTexture, ts.DefaultTexture.TexturePixels},
		{ts.DefaultTexture.DefaultDiffuseTexture, ts.DefaultTexture.DiffuseTexturePixels},
		{ts.DefaultTexture.DefaultSpecularTexture, ts.DefaultTexture.SpecularTexturePixels},
		{ts.DefaultTexture.DefaultNormalTexture, ts.DefaultTexture.NormalTexturePixels},
	}
	for _, d := range defaults {
		handle, err := ts.backend.TextureCreate(d.pixels, d.texture)
		if err != nil {
			core.LogError("failed to create default texture '%s'", d.texture.Name)
			return err
		}
		d.texture.Handle = handle
	}
	return nil
}

func (ts *TextureSystem) Shutdown() error {
	// Destroy all loaded textures.
	for i := uint32(0); i < ts.Config.MaxTextureCount; i++ {
		t := ts.RegisteredTextures[i]
		if t.ID != metadata.InvalidID {
			ts.destroyTexture(t)
		}
	}
	ts.backend.TextureDestroy(ts.DefaultTexture.DefaultTexture.Handle)
	ts.backend.TextureDestroy(ts.DefaultTexture.DefaultDiffuseTexture.Handle)
	ts.backend.TextureDestroy(ts.DefaultTexture.DefaultSpecularTexture.Handle)
	ts.backend.TextureDestroy(ts.DefaultTexture.DefaultNormalTexture.Handle)
	ts.DefaultTexture.DestroyDefaultTextures()
	return nil
}

/**
 * @brief Acquires the texture with the given name, loading it from disk the
 * first time. The reference count is incremented on every acquire.
 *
 * @param name The name of the texture resource.
 * @param autoRelease Destroy the backend texture when the count reaches zero.
 * Only honored on the first acquire after the texture was last unloaded.
 * @return A pointer to the texture, or an error.
 */
func (ts *TextureSystem) Acquire(name string, autoRelease bool) (*metadata.Texture, error) {
	// Return the default texture, but warn about it since it should be
	// requested via GetDefaultTexture.
	if ts.isDefaultName(name) {
		core.LogWarn("Acquire called for default texture '%s'. Use GetDefaultTexture instead", name)
		return ts.DefaultTexture.DefaultTexture, nil
	}
	return ts.acquire(name, metadata.TextureType2d, autoRelease)
}

/**
 * @brief Acquires a cubemap texture with the given name, loading all six
 * faces on first use. Face resources use the base name with a side suffix:
 * name_r, name_l, name_u, name_d, name_f, name_b.
 */
func (ts *TextureSystem) AcquireCube(name string, autoRelease bool) (*metadata.Texture, error) {
	if ts.isDefaultName(name) {
		core.LogWarn("AcquireCube called for default texture '%s'. Use GetDefaultTexture instead", name)
		return ts.DefaultTexture.DefaultTexture, nil
	}
	return ts.acquire(name, metadata.TextureTypeCube, autoRelease)
}

/**
 * @brief Acquires a writeable texture with the given name. No resource is
 * loaded; the backend allocates zeroed storage of the requested size.
 * Writeable textures are never auto-released, their lifetime belongs to the
 * owner that requested them.
 */
func (ts *TextureSystem) AcquireWriteable(name string, width, height uint32, channelCount uint8, hasTransparency bool) (*metadata.Texture, error) {
	ref := ts.reference(name)
	ref.ReferenceCount++
	if ref.Handle != metadata.InvalidID {
		return ts.RegisteredTextures[ref.Handle], nil
	}

	slot := ts.newTextureSlot()
	if slot == metadata.InvalidID {
		ref.ReferenceCount--
		err := fmt.Errorf("texture system cannot hold any more textures. Adjust configuration to allow more")
		core.LogError(err.Error())
		return nil, err
	}

	texture := ts.RegisteredTextures[slot]
	texture.Name = name
	texture.TextureType = metadata.TextureType2d
	texture.Width = width
	texture.Height = height
	texture.ChannelCount = channelCount
	texture.Format = formatForChannelCount(channelCount)
	texture.LayerCount = 1
	texture.Generation = 0
	texture.Flags = metadata.TextureFlagIsWriteable
	if hasTransparency {
		texture.Flags |= metadata.TextureFlagHasTransparency
	}

	handle, err := ts.backend.TextureCreateWriteable(texture)
	if err != nil {
		ref.ReferenceCount--
		core.LogError("failed to create writeable texture '%s'", name)
		return nil, err
	}
	texture.Handle = handle
	texture.ID = slot
	ref.Handle = slot
	return texture, nil
}

/**
 * @brief Releases the texture with the given name. When the reference count
 * reaches zero and the texture was acquired with autoRelease, the backend
 * texture is destroyed and the slot freed.
 */
func (ts *TextureSystem) Release(name string) {
	// Ignore release requests for the default textures.
	if ts.isDefaultName(name) {
		return
	}
	ref, ok := ts.RegisteredTextureTable[name]
	if !ok || ref.ReferenceCount == 0 {
		core.LogWarn("tried to release texture '%s' which is not acquired", name)
		return
	}
	ref.ReferenceCount--
	if ref.ReferenceCount == 0 && ref.AutoRelease {
		texture := ts.RegisteredTextures[ref.Handle]
		ts.destroyTexture(texture)
		ref.Handle = metadata.InvalidID
		ref.AutoRelease = false
		core.LogDebug("released texture '%s', unloaded because reference count reached 0", name)
	}
}

/**
 * @brief Reloads the texture's image from disk and writes the new pixels
 * through the existing backend object, so handles held by materials stay
 * valid. A dimension change resizes the backend storage first.
 */
func (ts *TextureSystem) Reload(name string) error {
	ref, ok := ts.RegisteredTextureTable[name]
	if !ok || ref.Handle == metadata.InvalidID {
		return fmt.Errorf("cannot reload texture '%s', it is not loaded", name)
	}
	texture := ts.RegisteredTextures[ref.Handle]

	imgResource, err := ts.assetManager.LoadAsset(name, metadata.ResourceTypeImage, &metadata.ImageResourceParams{FlipY: true})
	if err != nil {
		core.LogError("failed to reload image resource for texture '%s'", name)
		return err
	}
	defer ts.assetManager.UnloadAsset(imgResource)

	data, ok := imgResource.Data.(*metadata.ImageResourceData)
	if !ok {
		return fmt.Errorf("image resource '%s' holds unexpected data", name)
	}

	if data.Width != texture.Width || data.Height != texture.Height {
		if err := ts.backend.TextureResize(texture.Handle, data.Width, data.Height); err != nil {
			return err
		}
		texture.Width = data.Width
		texture.Height = data.Height
	}
	size := data.Width * data.Height * uint32(data.ChannelCount)
	if err := ts.backend.TextureWriteData(texture.Handle, 0, size, data.Pixels); err != nil {
		return err
	}
	core.LogInfo("texture '%s' reloaded, generation %d", name, texture.Generation)
	return nil
}

// WriteData writes pixels into a writeable texture through the backend.
func (ts *TextureSystem) WriteData(texture *metadata.Texture, offset, size uint32, pixels []uint8) bool {
	if texture == nil {
		return false
	}
	if err := ts.backend.TextureWriteData(texture.Handle, offset, size, pixels); err != nil {
		core.LogError(err.Error())
		return false
	}
	return true
}

func (ts *TextureSystem) GetDefaultTexture() *metadata.Texture {
	return ts.DefaultTexture.DefaultTexture
}

func (ts *TextureSystem) GetDefaultDiffuseTexture() *metadata.Texture {
	return ts.DefaultTexture.DefaultDiffuseTexture
}

func (ts *TextureSystem) GetDefaultSpecularTexture() *metadata.Texture {
	return ts.DefaultTexture.DefaultSpecularTexture
}

func (ts *TextureSystem) GetDefaultNormalTexture() *metadata.Texture {
	return ts.DefaultTexture.DefaultNormalTexture
}

// acquire increments the reference for name, filling a free slot and loading
// the resource when no texture exists yet.
func (ts *TextureSystem) acquire(name string, textureType metadata.TextureType, autoRelease bool) (*metadata.Texture, error) {
	ref := ts.reference(name)
	if ref.ReferenceCount == 0 {
		// Can only change on the first acquire after the texture was last
		// unloaded.
		ref.AutoRelease = autoRelease
	}
	ref.ReferenceCount++
	if ref.Handle != metadata.InvalidID {
		return ts.RegisteredTextures[ref.Handle], nil
	}

	slot := ts.newTextureSlot()
	if slot == metadata.InvalidID {
		ref.ReferenceCount--
		err := fmt.Errorf("texture system cannot hold any more textures. Adjust configuration to allow more")
		core.LogError(err.Error())
		return nil, err
	}

	texture := ts.RegisteredTextures[slot]
	var err error
	if textureType == metadata.TextureTypeCube {
		err = ts.loadCubeTexture(name, texture)
	} else {
		err = ts.loadTexture(name, texture)
	}
	if err != nil {
		ref.ReferenceCount--
		core.LogError("failed to load texture '%s'", name)
		return nil, err
	}
	texture.ID = slot
	ref.Handle = slot
	return texture, nil
}

// reference returns the reference entry for name, creating it on first use.
func (ts *TextureSystem) reference(name string) *metadata.TextureReference {
	ref, ok := ts.RegisteredTextureTable[name]
	if !ok {
		ref = &metadata.TextureReference{Handle: metadata.InvalidID}
		ts.RegisteredTextureTable[name] = ref
	}
	return ref
}

func (ts *TextureSystem) loadTexture(name string, texture *metadata.Texture) error {
	imgResource, err := ts.assetManager.LoadAsset(name, metadata.ResourceTypeImage, &metadata.ImageResourceParams{FlipY: true})
	if err != nil {
		return err
	}
	defer ts.assetManager.UnloadAsset(imgResource)

	data, ok := imgResource.Data.(*metadata.ImageResourceData)
	if !ok {
		return fmt.Errorf("image resource '%s' holds unexpected data", name)
	}

	currentGeneration := texture.Generation
	texture.Name = name
	texture.TextureType = metadata.TextureType2d
	texture.Width = data.Width
	texture.Height = data.Height
	texture.ChannelCount = data.ChannelCount
	texture.Format = formatForChannelCount(data.ChannelCount)
	texture.LayerCount = 1
	texture.Flags = 0
	if pixelsHaveTransparency(data.Pixels, data.ChannelCount) {
		texture.Flags |= metadata.TextureFlagHasTransparency
	}

	handle, err := ts.backend.TextureCreate(data.Pixels, texture)
	if err != nil {
		return err
	}
	texture.Handle = handle
	if currentGeneration == metadata.InvalidID {
		texture.Generation = 0
	} else {
		texture.Generation = currentGeneration + 1
	}
	return nil
}

func (ts *TextureSystem) loadCubeTexture(name string, texture *metadata.Texture) error {
	// +X,-X,+Y,-Y,+Z,-Z in cubemap space, which is left-handed y-down.
	faceNames := []string{
		fmt.Sprintf("%s_r", name),
		fmt.Sprintf("%s_l", name),
		fmt.Sprintf("%s_u", name),
		fmt.Sprintf("%s_d", name),
		fmt.Sprintf("%s_f", name),
		fmt.Sprintf("%s_b", name),
	}

	var pixels []uint8
	faceSize := uint32(0)
	for i, faceName := range faceNames {
		// Cube faces are sampled in cubemap space; no y-flip.
		imgResource, err := ts.assetManager.LoadAsset(faceName, metadata.ResourceTypeImage, &metadata.ImageResourceParams{FlipY: false})
		if err != nil {
			return fmt.Errorf("failed to load cube face '%s': %w", faceName, err)
		}
		data, ok := imgResource.Data.(*metadata.ImageResourceData)
		if !ok {
			ts.assetManager.UnloadAsset(imgResource)
			return fmt.Errorf("image resource '%s' holds unexpected data", faceName)
		}

		if pixels == nil {
			texture.Name = name
			texture.TextureType = metadata.TextureTypeCube
			texture.Width = data.Width
			texture.Height = data.Height
			texture.ChannelCount = data.ChannelCount
			texture.Format = formatForChannelCount(data.ChannelCount)
			texture.LayerCount = 6
			texture.Flags = 0

			faceSize = data.Width * data.Height * uint32(data.ChannelCount)
			pixels = make([]uint8, faceSize*6)
		} else if texture.Width != data.Width || texture.Height != data.Height || texture.ChannelCount != data.ChannelCount {
			ts.assetManager.UnloadAsset(imgResource)
			return fmt.Errorf("cube face '%s' does not match the first face's resolution and bit depth", faceName)
		}

		copy(pixels[faceSize*uint32(i):], data.Pixels)
		ts.assetManager.UnloadAsset(imgResource)
	}

	handle, err := ts.backend.TextureCreate(pixels, texture)
	if err != nil {
		return err
	}
	texture.Handle = handle
	texture.Generation = 0
	return nil
}

func (ts *TextureSystem) destroyTexture(texture *metadata.Texture) {
	if texture.Handle != metadata.InvalidAssetHandle {
		ts.backend.TextureDestroy(texture.Handle)
	}
	*texture = metadata.Texture{
		ID:         metadata.InvalidID,
		Generation: metadata.InvalidID,
	}
}

func (ts *TextureSystem) newTextureSlot() uint32 {
	for i := uint32(0); i < ts.Config.MaxTextureCount; i++ {
		if ts.RegisteredTextures[i].ID == metadata.InvalidID {
			return i
		}
	}
	return metadata.InvalidID
}

func (ts *TextureSystem) isDefaultName(name string) bool {
	switch name {
	case metadata.DEFAULT_TEXTURE_NAME,
		metadata.DEFAULT_DIFFUSE_TEXTURE_NAME,
		metadata.DEFAULT_SPECULAR_TEXTURE_NAME,
		metadata.DEFAULT_NORMAL_TEXTURE_NAME:
		return true
	}
	return false
}

func formatForChannelCount(channelCount uint8) metadata.TextureFormat {
	switch channelCount {
	case 1:
		return metadata.TextureFormatR8
	case 2:
		return metadata.TextureFormatRG8
	case 3:
		return metadata.TextureFormatRGB8
	}
	return metadata.TextureFormatRGBA8
}

// pixelsHaveTransparency scans the alpha channel. Images without an alpha
// channel are always opaque.
func pixelsHaveTransparency(pixels []uint8, channelCount uint8) bool {
	if channelCount != 4 {
		return false
	}
	for i := 3; i < len(pixels); i += 4 {
		if pixels[i] < 255 {
			return true
		}
	}
	return false
}
