package metadata

const (
	/** @brief The default texture name. */
	DEFAULT_TEXTURE_NAME string = "default"
	/** @brief The default diffuse texture name. */
	DEFAULT_DIFFUSE_TEXTURE_NAME string = "default_DIFF"
	/** @brief The default specular texture name. */
	DEFAULT_SPECULAR_TEXTURE_NAME string = "default_SPEC"
	/** @brief The default normal texture name. */
	DEFAULT_NORMAL_TEXTURE_NAME string = "default_NORM"
)

type TextureReference struct {
	ReferenceCount uint64
	Handle         uint32
	AutoRelease    bool
}

/** @brief Holds bit flags for textures. */
type TextureFlagBits uint8

const (
	/** @brief Indicates if the texture has transparency. */
	TextureFlagHasTransparency TextureFlagBits = 0x1
	/** @brief Indicates if the texture can be written (rendered) to. */
	TextureFlagIsWriteable TextureFlagBits = 0x2
	/** @brief Indicates if the texture was created via wrapping vs traditional creation. */
	TextureFlagIsWrapped TextureFlagBits = 0x4
	/** @brief Indicates if the texture is owned by a render target. */
	TextureFlagIsAttachment TextureFlagBits = 0x8
	/** @brief Indicates a depth or depth/stencil texture. */
	TextureFlagDepth TextureFlagBits = 0x10
)

/**
 * @brief Represents various types of textures.
 */
type TextureType int

const (
	/** @brief A standard two-dimensional texture. */
	TextureType2d TextureType = iota
	/** @brief A two-dimensional array texture. */
	TextureType2dArray
	/** @brief A cube texture, used for cubemaps. */
	TextureTypeCube
)

func (t TextureType) String() string {
	switch t {
	case TextureType2d:
		return "2d"
	case TextureType2dArray:
		return "2d_array"
	case TextureTypeCube:
		return "cube"
	}
	return "unknown"
}

/** @brief Pixel formats the engine can allocate. */
type TextureFormat int

const (
	TextureFormatUnknown TextureFormat = iota
	TextureFormatR8
	TextureFormatRG8
	TextureFormatRGB8
	TextureFormatRGBA8
	TextureFormatDepth16
	TextureFormatDepth24Stencil8
	TextureFormatDepth32F
)

// BytesPerPixel returns the CPU-side storage size of one pixel.
func (f TextureFormat) BytesPerPixel() uint32 {
	switch f {
	case TextureFormatR8:
		return 1
	case TextureFormatRG8, TextureFormatDepth16:
		return 2
	case TextureFormatRGB8:
		return 3
	case TextureFormatRGBA8, TextureFormatDepth24Stencil8, TextureFormatDepth32F:
		return 4
	}
	return 0
}

// IsDepth reports whether the format is a depth or depth/stencil format.
func (f TextureFormat) IsDepth() bool {
	switch f {
	case TextureFormatDepth16, TextureFormatDepth24Stencil8, TextureFormatDepth32F:
		return true
	}
	return false
}

/**
 * @brief Represents a texture.
 */
type Texture struct {
	/** @brief The unique texture identifier. */
	ID uint32
	/** @brief The texture object held by the backend container. */
	Handle AssetHandle
	/** @brief The texture type. */
	TextureType TextureType
	/** @brief The pixel format. */
	Format TextureFormat
	/** @brief The texture Width. */
	Width uint32
	/** @brief The texture Height. */
	Height uint32
	/** @brief The number of layers; 1 unless the texture is an array. */
	LayerCount uint32
	/** @brief The number of channels in the texture. */
	ChannelCount uint8
	/** @brief Holds various Flags for this texture. */
	Flags TextureFlagBits
	/** @brief The texture Generation. Incremented every time the data is reloaded. */
	Generation uint32
	/** @brief The texture Name. */
	Name string
	/** @brief Backend-specific data, typically the pixel storage. */
	InternalData interface{}
}

/** @brief A collection of texture uses */
type TextureUse int

const (
	/** @brief An unknown use. This is default, but should never actually be used. */
	TextureUseUnknown TextureUse = 0x00
	/** @brief The texture is used as a diffuse map. */
	TextureUseMapDiffuse TextureUse = 0x01
	/** @brief The texture is used as a specular map. */
	TextureUseMapSpecular TextureUse = 0x02
	/** @brief The texture is used as a normal map. */
	TextureUseMapNormal TextureUse = 0x03
	/** @brief The texture is used as a cube map. */
	TextureUseMapCubemap TextureUse = 0x04
)

/** @brief Represents supported texture filtering modes. */
type TextureFilter int

const (
	/** @brief Nearest-neighbor filtering. */
	TextureFilterModeNearest TextureFilter = 0x0
	/** @brief Linear (i.e. bilinear) filtering.*/
	TextureFilterModeLinear TextureFilter = 0x1
)

func TextureFilterFromString(s string) TextureFilter {
	if s == "nearest" {
		return TextureFilterModeNearest
	}
	return TextureFilterModeLinear
}

type TextureRepeat int

const (
	TextureRepeatRepeat         TextureRepeat = 0x1
	TextureRepeatMirroredRepeat TextureRepeat = 0x2
	TextureRepeatClampToEdge    TextureRepeat = 0x3
	TextureRepeatClampToBorder  TextureRepeat = 0x4
)

func TextureRepeatFromString(s string) TextureRepeat {
	switch s {
	case "mirrored":
		return TextureRepeatMirroredRepeat
	case "clamp_to_edge":
		return TextureRepeatClampToEdge
	case "clamp_to_border":
		return TextureRepeatClampToBorder
	}
	return TextureRepeatRepeat
}

/**
 * @brief A structure which maps a texture, use and
 * other properties.
 */
type TextureMap struct {
	/** @brief The texture held by the backend container. */
	TextureHandle AssetHandle
	/** @brief The Use of the texture */
	Use TextureUse
	/** @brief Texture filtering mode for minification. */
	FilterMinify TextureFilter
	/** @brief Texture filtering mode for magnification. */
	FilterMagnify TextureFilter
	/** @brief The repeat mode on the U axis (or X, or S) */
	RepeatU TextureRepeat
	/** @brief The repeat mode on the V axis (or Y, or T) */
	RepeatV TextureRepeat
	/** @brief The repeat mode on the W axis (or Z, or U) */
	RepeatW TextureRepeat
	/** @brief A pointer to internal, render API-specific data. Typically the internal sampler. */
	InternalData interface{}
}

type DefaultTexture struct {
	DefaultTexture         *Texture
	TexturePixels          []uint8
	DefaultDiffuseTexture  *Texture
	DiffuseTexturePixels   []uint8
	DefaultSpecularTexture *Texture
	SpecularTexturePixels  []uint8
	DefaultNormalTexture   *Texture
	NormalTexturePixels    []uint8
}

func NewDefaultTexture() *DefaultTexture {
	return &DefaultTexture{
		DefaultTexture:         &Texture{},
		DefaultDiffuseTexture:  &Texture{},
		DefaultSpecularTexture: &Texture{},
		DefaultNormalTexture:   &Texture{},
	}
}

// CreateSkeletonTextures builds the pixel data and texture shells for the
// default textures; the texture system uploads them through the renderer.
func (ts *DefaultTexture) CreateSkeletonTextures() bool {
	// NOTE: Create default texture, a 256x256 blue/white checkerboard pattern.
	// This is done in code to eliminate asset dependencies.
	texDimension := uint32(256)
	channels := uint32(4)
	pixelCount := uint32(texDimension * texDimension)

	pixels := make([]uint8, pixelCount*channels)
	for i := range pixels {
		pixels[i] = 255
	}

	// Each pixel.
	for row := uint32(0); row < texDimension; row++ {
		for col := uint32(0); col < texDimension; col++ {
			index := uint32((row * texDimension) + col)
			index_bpp := uint32(index * channels)
			if row%2 != 0 {
				if col%2 != 0 {
					pixels[index_bpp+0] = 0
					pixels[index_bpp+1] = 0
				}
			} else {
				if col%2 == 0 {
					pixels[index_bpp+0] = 0
					pixels[index_bpp+1] = 0
				}
			}
		}
	}

	ts.DefaultTexture.Name = DEFAULT_TEXTURE_NAME
	ts.DefaultTexture.Width = texDimension
	ts.DefaultTexture.Height = texDimension
	ts.DefaultTexture.ChannelCount = 4
	ts.DefaultTexture.Format = TextureFormatRGBA8
	ts.DefaultTexture.LayerCount = 1
	ts.DefaultTexture.Flags = 0
	ts.DefaultTexture.TextureType = TextureType2d
	ts.TexturePixels = pixels

	// Manually set the texture generation to invalid since this is a default texture.
	ts.DefaultTexture.Generation = InvalidID

	// Diffuse texture. Default diffuse map is all white.
	diffPixels := make([]uint8, 16*16*4)
	for i := range diffPixels {
		diffPixels[i] = 255
	}

	ts.DefaultDiffuseTexture.Name = DEFAULT_DIFFUSE_TEXTURE_NAME
	ts.DefaultDiffuseTexture.Width = 16
	ts.DefaultDiffuseTexture.Height = 16
	ts.DefaultDiffuseTexture.ChannelCount = 4
	ts.DefaultDiffuseTexture.Format = TextureFormatRGBA8
	ts.DefaultDiffuseTexture.LayerCount = 1
	ts.DefaultDiffuseTexture.Flags = 0
	ts.DefaultDiffuseTexture.TextureType = TextureType2d
	ts.DiffuseTexturePixels = diffPixels
	ts.DefaultDiffuseTexture.Generation = InvalidID

	// Specular texture. Default spec map is black (no specular).
	specPixels := make([]uint8, 16*16*4)

	ts.DefaultSpecularTexture.Name = DEFAULT_SPECULAR_TEXTURE_NAME
	ts.DefaultSpecularTexture.Width = 16
	ts.DefaultSpecularTexture.Height = 16
	ts.DefaultSpecularTexture.ChannelCount = 4
	ts.DefaultSpecularTexture.Format = TextureFormatRGBA8
	ts.DefaultSpecularTexture.LayerCount = 1
	ts.DefaultSpecularTexture.Flags = 0
	ts.DefaultSpecularTexture.TextureType = TextureType2d
	ts.SpecularTexturePixels = specPixels
	ts.DefaultSpecularTexture.Generation = InvalidID

	// Normal texture. Z-up normals with full alpha.
	normalPixels := make([]uint8, 16*16*4)
	for row := 0; row < 16; row++ {
		for col := 0; col < 16; col++ {
			index := uint32((row * 16) + col)
			index_bpp := index * channels
			normalPixels[index_bpp+0] = 128
			normalPixels[index_bpp+1] = 128
			normalPixels[index_bpp+2] = 255
			normalPixels[index_bpp+3] = 255
		}
	}

	ts.DefaultNormalTexture.Name = DEFAULT_NORMAL_TEXTURE_NAME
	ts.DefaultNormalTexture.Width = 16
	ts.DefaultNormalTexture.Height = 16
	ts.DefaultNormalTexture.ChannelCount = 4
	ts.DefaultNormalTexture.Format = TextureFormatRGBA8
	ts.DefaultNormalTexture.LayerCount = 1
	ts.DefaultNormalTexture.Flags = 0
	ts.DefaultNormalTexture.TextureType = TextureType2d
	ts.NormalTexturePixels = normalPixels
	ts.DefaultNormalTexture.Generation = InvalidID

	return true
}

func (ts *DefaultTexture) DestroyDefaultTextures() {
	ts.DestroySkeletonTexture(ts.DefaultTexture)
	ts.DestroySkeletonTexture(ts.DefaultDiffuseTexture)
	ts.DestroySkeletonTexture(ts.DefaultSpecularTexture)
	ts.DestroySkeletonTexture(ts.DefaultNormalTexture)
}

func (ts *DefaultTexture) DestroySkeletonTexture(texture *Texture) {
	texture.ID = InvalidID
	texture.Generation = InvalidID
}
