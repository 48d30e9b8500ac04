package systems

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/pneuma/engine/assets"
	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/renderer/headless"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

// fontStack wires the systems a bitmap font load runs through: textures for
// the atlas pages, the world shader and materials for the text material.
type fontStack struct {
	root           string
	backend        *headless.Backend
	assetManager   *assets.AssetManager
	textureSystem  *TextureSystem
	shaderSystem   *ShaderSystem
	materialSystem *MaterialSystem
	fontSystem     *FontSystem
}

// writeFontFixture writes a font descriptor with glyphs for 'A', 'V', space
// and 'B' plus an A-to-V kerning pair, along with one atlas image per page.
// 'B' sits on the last page.
func writeFontFixture(t *testing.T, root, name string, pageCount int) {
	t.Helper()
	fontDir := filepath.Join(root, "fonts")
	require.NoError(t, os.MkdirAll(fontDir, 0o755))

	pageLines := ""
	for i := 0; i < pageCount; i++ {
		pageLines += fmt.Sprintf("page id=%d file=\"%s_%d.png\"\n", i, name, i)
		writeTestPNG(t, filepath.Join(root, "textures", fmt.Sprintf("%s_%d.png", name, i)), 4, 4, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	}

	descriptor := fmt.Sprintf(`info face="Vector" size=32 bold=0 italic=0 charset="" unicode=1 stretchH=100 smooth=1 aa=1 padding=0,0,0,0 spacing=1,1 outline=0
common lineHeight=36 base=29 scaleW=256 scaleH=128 pages=%d packed=0 alphaChnl=1 redChnl=0 greenChnl=0 blueChnl=0
%schars count=4
char id=65 x=0 y=0 width=20 height=24 xoffset=1 yoffset=5 xadvance=22 page=0 chnl=15
char id=86 x=24 y=0 width=20 height=24 xoffset=0 yoffset=5 xadvance=20 page=0 chnl=15
char id=32 x=48 y=0 width=0 height=0 xoffset=0 yoffset=0 xadvance=10 page=0 chnl=15
char id=66 x=0 y=32 width=18 height=24 xoffset=1 yoffset=5 xadvance=21 page=%d chnl=15
kernings count=1
kerning first=65 second=86 amount=-3
`, pageCount, pageLines, pageCount-1)

	require.NoError(t, os.WriteFile(filepath.Join(fontDir, name+".fnt"), []byte(descriptor), 0o644))
}

func newFontStack(t *testing.T, config *FontSystemConfig) *fontStack {
	t.Helper()

	root := t.TempDir()
	writeShaderFiles(t, root, metadata.BuiltinShaderNameWorld, worldVertexSource, worldFragmentSource)
	writeFontFixture(t, root, "vector", 1)

	backend := headless.New()
	require.NoError(t, backend.Initialize(&metadata.RendererBackendConfig{
		ApplicationName: "font-test",
		Width:           640,
		Height:          480,
	}))
	t.Cleanup(func() { backend.Shutdown() })

	assetManager, err := assets.NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, assetManager.Initialize(root))
	t.Cleanup(func() { assetManager.Shutdown() })

	textureSystem, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 32}, backend, assetManager)
	require.NoError(t, err)
	require.NoError(t, textureSystem.Initialize())
	t.Cleanup(func() { textureSystem.Shutdown() })

	shaderSystem, err := NewShaderSystem(&ShaderSystemConfig{MaxShaderCount: 8}, backend, assetManager)
	require.NoError(t, err)
	t.Cleanup(func() { shaderSystem.Shutdown() })

	// Text materials bind to the world shader.
	_, err = shaderSystem.Load(metadata.BuiltinShaderNameWorld)
	require.NoError(t, err)

	tagRegistry := NewTagRegistry()
	materialSystem, err := NewMaterialSystem(&MaterialSystemConfig{MaxMaterialCount: 32}, shaderSystem, textureSystem, tagRegistry, assetManager)
	require.NoError(t, err)
	require.NoError(t, materialSystem.Initialize())
	t.Cleanup(func() { materialSystem.Shutdown() })

	fontSystem, err := NewFontSystem(config, textureSystem, materialSystem, assetManager)
	require.NoError(t, err)
	require.NoError(t, fontSystem.Initialize())
	t.Cleanup(func() { fontSystem.Shutdown() })

	return &fontStack{
		root:           root,
		backend:        backend,
		assetManager:   assetManager,
		textureSystem:  textureSystem,
		shaderSystem:   shaderSystem,
		materialSystem: materialSystem,
		fontSystem:     fontSystem,
	}
}

func vectorFontConfig() *metadata.BitmapFontConfig {
	return &metadata.BitmapFontConfig{Name: "vector", Size: 32, ResourceName: "vector"}
}

func TestNewFontSystemRejectsZeroCapacity(t *testing.T) {
	fs, err := NewFontSystem(&FontSystemConfig{MaxBitmapFontCount: 0}, nil, nil, nil)
	assert.Error(t, err)
	assert.Nil(t, fs)
}

func TestFontSystemLoadAndAcquire(t *testing.T) {
	stack := newFontStack(t, &FontSystemConfig{MaxBitmapFontCount: 4, AutoRelease: true})
	fs := stack.fontSystem

	require.NoError(t, fs.LoadBitmapFont(vectorFontConfig()))

	data, err := fs.Acquire("vector")
	require.NoError(t, err)
	require.NotNil(t, data)

	assert.Equal(t, "Vector", data.Face)
	assert.Equal(t, uint32(32), data.Size)
	assert.Equal(t, int32(36), data.LineHeight)
	assert.Equal(t, int32(29), data.Baseline)
	assert.Equal(t, int32(256), data.AtlasSizeX)
	assert.Equal(t, int32(128), data.AtlasSizeY)
	assert.Len(t, data.Glyphs, 4)
	assert.Len(t, data.Kernings, 1)

	// No tab glyph in the export, so the advance derives from four spaces.
	assert.Equal(t, float32(40), data.TabXAdvance)

	// The atlas map points at the primary page texture, clamped and linear.
	page, err := fs.PageTexture("vector", 0)
	require.NoError(t, err)
	require.NotNil(t, data.Atlas)
	assert.Equal(t, page.Handle, data.Atlas.TextureHandle)
	assert.Equal(t, metadata.TextureUseMapDiffuse, data.Atlas.Use)
	assert.Equal(t, metadata.TextureFilterModeLinear, data.Atlas.FilterMinify)
	assert.Equal(t, metadata.TextureRepeatClampToEdge, data.Atlas.RepeatU)

	assert.Equal(t, uint16(1), fs.BitmapFonts[0].ReferenceCount)
}

func TestFontSystemLoadMissingResource(t *testing.T) {
	stack := newFontStack(t, &FontSystemConfig{MaxBitmapFontCount: 4})

	err := stack.fontSystem.LoadBitmapFont(&metadata.BitmapFontConfig{Name: "ghost", ResourceName: "ghost"})
	assert.Error(t, err)
	assert.Equal(t, metadata.InvalidIDUint16, stack.fontSystem.BitmapFonts[0].ID)

	_, err = stack.fontSystem.Acquire("ghost")
	assert.Error(t, err)
}

func TestFontSystemDoubleLoadKeepsExisting(t *testing.T) {
	stack := newFontStack(t, &FontSystemConfig{MaxBitmapFontCount: 4})
	fs := stack.fontSystem

	require.NoError(t, fs.LoadBitmapFont(vectorFontConfig()))
	require.NoError(t, fs.LoadBitmapFont(vectorFontConfig()))

	assert.Equal(t, uint16(0), fs.BitmapFonts[0].ID)
	assert.Equal(t, metadata.InvalidIDUint16, fs.BitmapFonts[1].ID)

	_, err := fs.Acquire("vector")
	assert.NoError(t, err)
}

func TestFontSystemCapacityExhausted(t *testing.T) {
	stack := newFontStack(t, &FontSystemConfig{MaxBitmapFontCount: 1})
	fs := stack.fontSystem

	writeFontFixture(t, stack.root, "second", 1)

	require.NoError(t, fs.LoadBitmapFont(vectorFontConfig()))
	err := fs.LoadBitmapFont(&metadata.BitmapFontConfig{Name: "second", ResourceName: "second"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no space left")
}

func TestFontSystemAcquireUnknownFont(t *testing.T) {
	stack := newFontStack(t, &FontSystemConfig{MaxBitmapFontCount: 4})

	data, err := stack.fontSystem.Acquire("missing")
	assert.Error(t, err)
	assert.Nil(t, data)
}

func TestFontSystemInitializeLoadsConfiguredFonts(t *testing.T) {
	stack := newFontStack(t, &FontSystemConfig{
		MaxBitmapFontCount: 4,
		BitmapFontConfigs:  []*metadata.BitmapFontConfig{vectorFontConfig()},
	})

	data, err := stack.fontSystem.Acquire("vector")
	require.NoError(t, err)
	assert.Equal(t, "Vector", data.Face)
}

func TestFontSystemGlyphAndKerning(t *testing.T) {
	stack := newFontStack(t, &FontSystemConfig{MaxBitmapFontCount: 4})
	fs := stack.fontSystem
	require.NoError(t, fs.LoadBitmapFont(vectorFontConfig()))

	g := fs.Glyph("vector", 'A')
	require.NotNil(t, g)
	assert.Equal(t, int32('A'), g.Codepoint)
	assert.Equal(t, uint16(20), g.Width)
	assert.Equal(t, uint16(24), g.Height)
	assert.Equal(t, int16(1), g.XOffset)
	assert.Equal(t, int16(5), g.YOffset)
	assert.Equal(t, int16(22), g.XAdvance)

	// The export has no unknown-character glyph to fall back to.
	assert.Nil(t, fs.Glyph("vector", 'Z'))
	assert.Nil(t, fs.Glyph("missing", 'A'))

	assert.Equal(t, int16(-3), fs.Kerning("vector", 'A', 'V'))
	assert.Equal(t, int16(0), fs.Kerning("vector", 'V', 'A'))
}

func TestFontSystemMeasureString(t *testing.T) {
	stack := newFontStack(t, &FontSystemConfig{MaxBitmapFontCount: 4})
	fs := stack.fontSystem
	require.NoError(t, fs.LoadBitmapFont(vectorFontConfig()))

	// Kerning pulls the pair together: 22 - 3 + 20.
	size, err := fs.MeasureString("vector", "AV")
	require.NoError(t, err)
	assert.Equal(t, float32(39), size.X)
	assert.Equal(t, float32(36), size.Y)

	// The widest line wins, each line adds the line height.
	size, err = fs.MeasureString("vector", "AV\nA")
	require.NoError(t, err)
	assert.Equal(t, float32(39), size.X)
	assert.Equal(t, float32(72), size.Y)

	// Tabs advance by the derived tab width.
	size, err = fs.MeasureString("vector", "A\tA")
	require.NoError(t, err)
	assert.Equal(t, float32(84), size.X)

	// Codepoints without a glyph contribute nothing.
	size, err = fs.MeasureString("vector", "AZV")
	require.NoError(t, err)
	assert.Equal(t, float32(42), size.X)

	size, err = fs.MeasureString("vector", "")
	require.NoError(t, err)
	assert.Equal(t, float32(0), size.X)
	assert.Equal(t, float32(0), size.Y)

	_, err = fs.MeasureString("missing", "AV")
	assert.Error(t, err)
}

func TestFontSystemTextMaterial(t *testing.T) {
	stack := newFontStack(t, &FontSystemConfig{MaxBitmapFontCount: 4})
	fs := stack.fontSystem
	require.NoError(t, fs.LoadBitmapFont(vectorFontConfig()))

	material, err := fs.TextMaterial("vector")
	require.NoError(t, err)
	require.NotNil(t, material)
	assert.Equal(t, "Material.Text.vector", material.Name)

	shader, err := stack.shaderSystem.GetShader(metadata.BuiltinShaderNameWorld)
	require.NoError(t, err)
	assert.Equal(t, shader.ProgramHandle, material.ProgramHandle)

	sampler := material.Sampler(core.HashName("diffuse_texture"))
	require.NotNil(t, sampler)
	page, err := fs.PageTexture("vector", 0)
	require.NoError(t, err)
	assert.Equal(t, page.Handle, sampler.TextureHandle)
	assert.Equal(t, "vector_0", sampler.TextureName)
	assert.Equal(t, metadata.TextureFilterModeLinear, sampler.FilterMinify)
	assert.Equal(t, metadata.TextureRepeatClampToEdge, sampler.RepeatU)
	assert.Equal(t, metadata.TextureRepeatClampToEdge, sampler.RepeatV)
}

func TestFontSystemMultiPageFont(t *testing.T) {
	stack := newFontStack(t, &FontSystemConfig{MaxBitmapFontCount: 4})
	fs := stack.fontSystem

	writeFontFixture(t, stack.root, "duo", 2)
	require.NoError(t, fs.LoadBitmapFont(&metadata.BitmapFontConfig{Name: "duo", ResourceName: "duo"}))

	page0, err := fs.PageTexture("duo", 0)
	require.NoError(t, err)
	page1, err := fs.PageTexture("duo", 1)
	require.NoError(t, err)
	assert.Equal(t, "duo_0", page0.Name)
	assert.Equal(t, "duo_1", page1.Name)
	assert.NotEqual(t, page0.Handle, page1.Handle)

	// 'B' was exported on the second page.
	g := fs.Glyph("duo", 'B')
	require.NotNil(t, g)
	assert.Equal(t, uint8(1), g.PageID)

	_, err = fs.PageTexture("duo", 9)
	assert.Error(t, err)
}

func TestFontSystemReleaseUnloadsAtZero(t *testing.T) {
	stack := newFontStack(t, &FontSystemConfig{MaxBitmapFontCount: 4, AutoRelease: true})
	fs := stack.fontSystem
	require.NoError(t, fs.LoadBitmapFont(vectorFontConfig()))

	_, err := fs.Acquire("vector")
	require.NoError(t, err)
	fs.Release("vector")

	assert.Equal(t, metadata.InvalidIDUint16, fs.BitmapFonts[0].ID)
	_, err = fs.Acquire("vector")
	assert.Error(t, err)

	// The text material went away with the font.
	assert.Same(t, stack.materialSystem.GetDefault(), stack.materialSystem.GetByName("Material.Text.vector"))

	// The slot is reusable.
	require.NoError(t, fs.LoadBitmapFont(vectorFontConfig()))
	data, err := fs.Acquire("vector")
	require.NoError(t, err)
	assert.Equal(t, "Vector", data.Face)
	assert.Equal(t, uint16(0), fs.BitmapFonts[0].ID)
}

func TestFontSystemReleaseWithoutAutoReleaseKeeps(t *testing.T) {
	stack := newFontStack(t, &FontSystemConfig{MaxBitmapFontCount: 4, AutoRelease: false})
	fs := stack.fontSystem
	require.NoError(t, fs.LoadBitmapFont(vectorFontConfig()))

	_, err := fs.Acquire("vector")
	require.NoError(t, err)
	fs.Release("vector")

	assert.Equal(t, uint16(0), fs.BitmapFonts[0].ID)
	_, err = fs.Acquire("vector")
	assert.NoError(t, err)
}

func TestFontSystemShutdownUnloadsAll(t *testing.T) {
	stack := newFontStack(t, &FontSystemConfig{MaxBitmapFontCount: 4, AutoRelease: true})
	fs := stack.fontSystem

	writeFontFixture(t, stack.root, "second", 1)
	require.NoError(t, fs.LoadBitmapFont(vectorFontConfig()))
	require.NoError(t, fs.LoadBitmapFont(&metadata.BitmapFontConfig{Name: "second", ResourceName: "second"}))

	require.NoError(t, fs.Shutdown())

	for i := range fs.BitmapFonts {
		assert.Equal(t, metadata.InvalidIDUint16, fs.BitmapFonts[i].ID)
	}
	_, err := fs.Acquire("vector")
	assert.Error(t, err)
}
