package metadata

/**
 * @brief Identifies one bitmap font to load: the name it is looked up by
 * and the font resource holding its exported data.
 */
type BitmapFontConfig struct {
	Name         string
	Size         uint16
	ResourceName string
}

/** @brief A single glyph of a font's atlas, in atlas pixel coordinates. */
type FontGlyph struct {
	Codepoint int32
	X         uint16
	Y         uint16
	Width     uint16
	Height    uint16
	XOffset   int16
	YOffset   int16
	XAdvance  int16
	PageID    uint8
}

/** @brief Horizontal adjustment applied between two adjacent codepoints. */
type FontKerning struct {
	Codepoint0 int32
	Codepoint1 int32
	Amount     int16
}

/**
 * @brief The data of one loaded font face: its metrics, glyphs and
 * kernings, plus the texture map of the primary atlas page.
 */
type FontData struct {
	Face        string
	Size        uint32
	LineHeight  int32
	Baseline    int32
	AtlasSizeX  int32
	AtlasSizeY  int32
	Atlas       *TextureMap
	Glyphs      []*FontGlyph
	Kernings    []*FontKerning
	TabXAdvance float32
}

/** @brief One atlas page of a bitmap font, named after its image resource. */
type BitmapFontPage struct {
	ID   int8
	Name string
}

type BitmapFontResourceData struct {
	Data  *FontData
	Pages []*BitmapFontPage
}

/**
 * @brief DeriveTabXAdvance fills in the tab advance when the exported data
 * carries none. Exports do not always include a tab glyph; the fallback is
 * four spaces, then four times the font size.
 */
func (font *FontData) DeriveTabXAdvance() {
	if font.TabXAdvance != 0 {
		return
	}
	for _, g := range font.Glyphs {
		if g.Codepoint == '\t' {
			font.TabXAdvance = float32(g.XAdvance)
			return
		}
	}
	for _, g := range font.Glyphs {
		if g.Codepoint == ' ' {
			font.TabXAdvance = float32(g.XAdvance) * 4
			return
		}
	}
	font.TabXAdvance = float32(font.Size * 4)
}
