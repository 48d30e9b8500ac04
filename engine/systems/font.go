package systems

import (
	"fmt"

	"github.com/spaghettifunk/pneuma/engine/assets"
	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/math"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

type FontSystemConfig struct {
	/** @brief Fonts loaded during initialization. */
	BitmapFontConfigs []*metadata.BitmapFontConfig
	/** @brief The maximum number of bitmap fonts that can be loaded at once. */
	MaxBitmapFontCount uint8
	/** @brief Unload fonts whose reference count reaches zero. */
	AutoRelease bool
}

type BitmapFontInternalData struct {
	LoadedResource *metadata.Resource
	// Casted pointer to the resource data for convenience.
	ResourceData *metadata.BitmapFontResourceData
	// One texture per atlas page, parallel to ResourceData.Pages.
	PageTextures []*metadata.Texture
	// The material text drawn with this font binds through.
	Material *metadata.Material

	glyphs   map[rune]*metadata.FontGlyph
	kernings map[kerningPair]int16
}

type kerningPair struct {
	first  rune
	second rune
}

type BitmapFontLookup struct {
	ID             uint16
	ReferenceCount uint16
	Font           *BitmapFontInternalData
}

/**
 * @brief The font system loads exported bitmap fonts, acquires their atlas
 * page textures through the texture system and builds a text material per
 * font. Loaded fonts are reference counted by name.
 */
type FontSystem struct {
	Config           *FontSystemConfig
	BitmapFontLookup map[string]uint16
	BitmapFonts      []*BitmapFontLookup
	// sub systems
	textureSystem  *TextureSystem
	materialSystem *MaterialSystem
	assetManager   *assets.AssetManager
}

func NewFontSystem(config *FontSystemConfig, ts *TextureSystem, ms *MaterialSystem, am *assets.AssetManager) (*FontSystem, error) {
	if config.MaxBitmapFontCount == 0 {
		err := fmt.Errorf("func NewFontSystem - config.MaxBitmapFontCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}

	fs := &FontSystem{
		Config:           config,
		BitmapFontLookup: make(map[string]uint16),
		BitmapFonts:      make([]*BitmapFontLookup, config.MaxBitmapFontCount),
		textureSystem:    ts,
		materialSystem:   ms,
		assetManager:     am,
	}

	// Invalidate all entries.
	for i := range fs.BitmapFonts {
		fs.BitmapFonts[i] = &BitmapFontLookup{
			ID:             metadata.InvalidIDUint16,
			ReferenceCount: 0,
		}
	}

	return fs, nil
}

// Initialize loads the configured default fonts.
func (fs *FontSystem) Initialize() error {
	for _, config := range fs.Config.BitmapFontConfigs {
		if err := fs.LoadBitmapFont(config); err != nil {
			core.LogError("failed to load bitmap font: %s", config.Name)
			return err
		}
	}
	return nil
}

func (fs *FontSystem) Shutdown() error {
	for name, id := range fs.BitmapFontLookup {
		if id == metadata.InvalidIDUint16 {
			continue
		}
		fs.unloadFont(name, fs.BitmapFonts[id])
	}
	return nil
}

/**
 * @brief Loads a bitmap font from its exported resource. Every atlas page's
 * texture is acquired through the texture system, and a material binding the
 * primary page is acquired for text drawing. Loading a name that is already
 * loaded is not an error; the existing font is kept.
 */
func (fs *FontSystem) LoadBitmapFont(config *metadata.BitmapFontConfig) error {
	id, ok := fs.BitmapFontLookup[config.Name]
	if ok && id != metadata.InvalidIDUint16 {
		core.LogWarn("a font named '%s' already exists and will not be loaded again", config.Name)
		// Not a hard error since the existing font can be used.
		return nil
	}

	id = metadata.InvalidIDUint16
	for i := uint16(0); i < uint16(fs.Config.MaxBitmapFontCount); i++ {
		if fs.BitmapFonts[i].ID == metadata.InvalidIDUint16 {
			id = i
			break
		}
	}
	if id == metadata.InvalidIDUint16 {
		err := fmt.Errorf("no space left to allocate a new bitmap font. Increase maximum number allowed in font system config")
		core.LogError(err.Error())
		return err
	}

	lookup := fs.BitmapFonts[id]

	resource, err := fs.assetManager.LoadAsset(config.ResourceName, metadata.ResourceTypeBitmapFont, nil)
	if err != nil {
		core.LogError("failed to load bitmap font resource '%s'", config.ResourceName)
		return err
	}
	data, ok := resource.Data.(*metadata.BitmapFontResourceData)
	if !ok || data.Data == nil {
		fs.assetManager.UnloadAsset(resource)
		return fmt.Errorf("bitmap font resource '%s' did not yield font data", config.ResourceName)
	}
	if len(data.Pages) == 0 {
		fs.assetManager.UnloadAsset(resource)
		return fmt.Errorf("bitmap font '%s' declares no atlas pages", config.Name)
	}

	font := &BitmapFontInternalData{
		LoadedResource: resource,
		ResourceData:   data,
		PageTextures:   make([]*metadata.Texture, len(data.Pages)),
	}

	for i, page := range data.Pages {
		texture, err := fs.textureSystem.Acquire(page.Name, true)
		if err != nil {
			for j := 0; j < i; j++ {
				fs.textureSystem.Release(data.Pages[j].Name)
			}
			fs.assetManager.UnloadAsset(resource)
			core.LogError("failed to acquire page texture '%s' for font '%s'", page.Name, config.Name)
			return err
		}
		font.PageTextures[i] = texture
	}

	fs.setupFontData(data.Data, font.PageTextures[0])
	font.indexGlyphs()

	// Materials over a missing shader fall back to the default material, the
	// same way geometry does when its material cannot be acquired.
	material, err := fs.materialSystem.AcquireFromConfig(textMaterialConfig(config.Name, data.Pages[0].Name))
	if err != nil {
		core.LogWarn("font '%s' could not acquire a text material, using default. %s", config.Name, err.Error())
		material = fs.materialSystem.GetDefault()
	}
	font.Material = material

	// Set the entry id last, after every acquisition succeeded.
	lookup.Font = font
	lookup.ID = id
	fs.BitmapFontLookup[config.Name] = id

	return nil
}

/**
 * @brief Acquires the named font's data, incrementing its reference count.
 * The font must have been loaded first.
 */
func (fs *FontSystem) Acquire(fontName string) (*metadata.FontData, error) {
	id, ok := fs.BitmapFontLookup[fontName]
	if !ok || id == metadata.InvalidIDUint16 {
		err := fmt.Errorf("a bitmap font named '%s' was not found. Font acquisition failed", fontName)
		core.LogError(err.Error())
		return nil, err
	}

	lookup := fs.BitmapFonts[id]
	lookup.ReferenceCount++
	return lookup.Font.ResourceData.Data, nil
}

/**
 * @brief Releases a reference to the named font. When the count reaches
 * zero and the system was configured with auto-release, the font's text
 * material, page textures and resource are unloaded.
 */
func (fs *FontSystem) Release(fontName string) {
	id, ok := fs.BitmapFontLookup[fontName]
	if !ok || id == metadata.InvalidIDUint16 {
		core.LogWarn("tried to release font '%s' which is not loaded", fontName)
		return
	}

	lookup := fs.BitmapFonts[id]
	if lookup.ReferenceCount == 0 {
		core.LogWarn("tried to release font '%s', but its reference count was already 0", fontName)
		return
	}
	lookup.ReferenceCount--
	if lookup.ReferenceCount == 0 && fs.Config.AutoRelease {
		fs.unloadFont(fontName, lookup)
	}
}

/** @brief PageTexture returns the texture loaded for one of the font's atlas pages. */
func (fs *FontSystem) PageTexture(fontName string, pageID uint8) (*metadata.Texture, error) {
	font, err := fs.internalData(fontName)
	if err != nil {
		return nil, err
	}
	for i, page := range font.ResourceData.Pages {
		if uint8(page.ID) == pageID {
			return font.PageTextures[i], nil
		}
	}
	return nil, fmt.Errorf("font '%s' has no atlas page %d", fontName, pageID)
}

/** @brief TextMaterial returns the material text drawn with the font binds through. */
func (fs *FontSystem) TextMaterial(fontName string) (*metadata.Material, error) {
	font, err := fs.internalData(fontName)
	if err != nil {
		return nil, err
	}
	return font.Material, nil
}

/**
 * @brief Glyph returns the font's glyph for a codepoint, falling back to
 * the export's unknown-character glyph. Returns nil when neither exists.
 */
func (fs *FontSystem) Glyph(fontName string, codepoint rune) *metadata.FontGlyph {
	font, err := fs.internalData(fontName)
	if err != nil {
		return nil
	}
	return font.glyph(codepoint)
}

// Kerning returns the horizontal adjustment between two adjacent codepoints,
// zero when the pair has none.
func (fs *FontSystem) Kerning(fontName string, first, second rune) int16 {
	font, err := fs.internalData(fontName)
	if err != nil {
		return 0
	}
	return font.kernings[kerningPair{first, second}]
}

/**
 * @brief MeasureString computes the extents of a string laid out with the
 * named font. A newline restarts the line, a tab advances by the font's tab
 * advance and adjacent pairs apply kerning. Codepoints without a glyph are
 * skipped.
 */
func (fs *FontSystem) MeasureString(fontName, text string) (math.Vec2, error) {
	font, err := fs.internalData(fontName)
	if err != nil {
		core.LogError(err.Error())
		return math.NewVec2(0, 0), err
	}
	data := font.ResourceData.Data

	var x, maxX float32
	lines := 1
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c == '\n' {
			if x > maxX {
				maxX = x
			}
			x = 0
			lines++
			continue
		}
		if c == '\t' {
			x += data.TabXAdvance
			continue
		}

		g := font.glyph(c)
		if g == nil {
			core.LogWarn("font '%s' has no glyph for codepoint %d. Skipping", fontName, c)
			continue
		}
		advance := int32(g.XAdvance)
		if i+1 < len(runes) {
			advance += int32(font.kernings[kerningPair{c, runes[i+1]}])
		}
		x += float32(advance)
	}
	if x > maxX {
		maxX = x
	}
	if len(runes) == 0 {
		return math.NewVec2(0, 0), nil
	}
	return math.NewVec2(maxX, float32(lines)*float32(data.LineHeight)), nil
}

// setupFontData points the font's atlas map at the primary page texture and
// derives the tab advance when the exported data has none.
func (fs *FontSystem) setupFontData(font *metadata.FontData, atlas *metadata.Texture) {
	if font.Atlas == nil {
		font.Atlas = &metadata.TextureMap{}
	}
	font.Atlas.TextureHandle = atlas.Handle
	font.Atlas.Use = metadata.TextureUseMapDiffuse
	font.Atlas.FilterMinify = metadata.TextureFilterModeLinear
	font.Atlas.FilterMagnify = metadata.TextureFilterModeLinear
	font.Atlas.RepeatU = metadata.TextureRepeatClampToEdge
	font.Atlas.RepeatV = metadata.TextureRepeatClampToEdge
	font.Atlas.RepeatW = metadata.TextureRepeatClampToEdge

	font.DeriveTabXAdvance()
}

func (fs *FontSystem) unloadFont(name string, lookup *BitmapFontLookup) {
	font := lookup.Font
	if font.Material != nil {
		fs.materialSystem.Release(font.Material.Name)
	}
	for _, page := range font.ResourceData.Pages {
		fs.textureSystem.Release(page.Name)
	}
	fs.assetManager.UnloadAsset(font.LoadedResource)

	lookup.Font = nil
	lookup.ID = metadata.InvalidIDUint16
	fs.BitmapFontLookup[name] = metadata.InvalidIDUint16
	core.LogDebug("unloaded bitmap font '%s'", name)
}

func (fs *FontSystem) internalData(fontName string) (*BitmapFontInternalData, error) {
	id, ok := fs.BitmapFontLookup[fontName]
	if !ok || id == metadata.InvalidIDUint16 {
		return nil, fmt.Errorf("a bitmap font named '%s' was not found", fontName)
	}
	return fs.BitmapFonts[id].Font, nil
}

// textMaterialConfig is the material definition text drawn with a font binds
// through: the primary atlas page on the diffuse sampler, clamped to the
// atlas edges.
func textMaterialConfig(fontName, pageTextureName string) *metadata.MaterialConfig {
	return &metadata.MaterialConfig{
		Name:        "Material.Text." + fontName,
		ShaderName:  metadata.BuiltinShaderNameWorld,
		AutoRelease: true,
		Samplers: []metadata.MaterialSamplerConfig{{
			Name:          "diffuse_texture",
			TextureName:   pageTextureName,
			FilterMinify:  "linear",
			FilterMagnify: "linear",
			RepeatU:       "clamp_to_edge",
			RepeatV:       "clamp_to_edge",
			RepeatW:       "clamp_to_edge",
		}},
	}
}

// indexGlyphs builds codepoint lookup tables over the loaded glyph and
// kerning arrays.
func (font *BitmapFontInternalData) indexGlyphs() {
	data := font.ResourceData.Data
	font.glyphs = make(map[rune]*metadata.FontGlyph, len(data.Glyphs))
	for _, g := range data.Glyphs {
		font.glyphs[rune(g.Codepoint)] = g
	}
	font.kernings = make(map[kerningPair]int16, len(data.Kernings))
	for _, k := range data.Kernings {
		font.kernings[kerningPair{rune(k.Codepoint0), rune(k.Codepoint1)}] = k.Amount
	}
}

func (font *BitmapFontInternalData) glyph(codepoint rune) *metadata.FontGlyph {
	if g, ok := font.glyphs[codepoint]; ok {
		return g
	}
	// Exports may carry an unknown-character glyph under codepoint -1.
	return font.glyphs[rune(-1)]
}
