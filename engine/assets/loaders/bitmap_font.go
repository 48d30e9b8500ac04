package loaders

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fzipp/bmfont"

	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

// BitmapFontLoader reads AngelCode .fnt descriptor files. Page images are
// not loaded here; the font system acquires them through the texture system
// by page name.
type BitmapFontLoader struct{}

func (fl *BitmapFontLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	descriptor, err := bmfont.LoadDescriptor(path)
	if err != nil {
		return nil, fmt.Errorf("font file '%s' could not be parsed: %w", path, err)
	}

	data := &metadata.BitmapFontResourceData{
		Data: &metadata.FontData{
			Face:       descriptor.Info.Face,
			Size:       uint32(descriptor.Info.Size),
			LineHeight: int32(descriptor.Common.LineHeight),
			Baseline:   int32(descriptor.Common.Base),
			AtlasSizeX: int32(descriptor.Common.ScaleW),
			AtlasSizeY: int32(descriptor.Common.ScaleH),
			Glyphs:     make([]*metadata.FontGlyph, 0, len(descriptor.Chars)),
			Kernings:   make([]*metadata.FontKerning, 0, len(descriptor.Kerning)),
		},
		Pages: make([]*metadata.BitmapFontPage, 0, len(descriptor.Pages)),
	}

	for _, page := range descriptor.Pages {
		data.Pages = append(data.Pages, &metadata.BitmapFontPage{
			ID: int8(page.ID),
			// Pages reference their atlas image without the extension, the
			// way the texture system resolves names.
			Name: strings.TrimSuffix(page.File, filepath.Ext(page.File)),
		})
	}

	for _, char := range descriptor.Chars {
		data.Data.Glyphs = append(data.Data.Glyphs, &metadata.FontGlyph{
			Codepoint: int32(char.ID),
			X:         uint16(char.X),
			Y:         uint16(char.Y),
			Width:     uint16(char.Width),
			Height:    uint16(char.Height),
			XOffset:   int16(char.XOffset),
			YOffset:   int16(char.YOffset),
			XAdvance:  int16(char.XAdvance),
			PageID:    uint8(char.Page),
		})
	}

	for pair, kerning := range descriptor.Kerning {
		data.Data.Kernings = append(data.Data.Kernings, &metadata.FontKerning{
			Codepoint0: int32(pair.First),
			Codepoint1: int32(pair.Second),
			Amount:     int16(kerning.Amount),
		})
	}

	// The descriptor stores pages, glyphs and kernings in maps; order the
	// slices so the primary atlas page is always Pages[0].
	slices.SortFunc(data.Pages, func(a, b *metadata.BitmapFontPage) int {
		return int(a.ID) - int(b.ID)
	})
	slices.SortFunc(data.Data.Glyphs, func(a, b *metadata.FontGlyph) int {
		return int(a.Codepoint) - int(b.Codepoint)
	})
	slices.SortFunc(data.Data.Kernings, func(a, b *metadata.FontKerning) int {
		if a.Codepoint0 != b.Codepoint0 {
			return int(a.Codepoint0) - int(b.Codepoint0)
		}
		return int(a.Codepoint1) - int(b.Codepoint1)
	})

	return &metadata.Resource{
		Name:     fontNameFromPath(path),
		FullPath: path,
		Type:     metadata.ResourceTypeBitmapFont,
		DataSize: uint64(len(descriptor.Chars)),
		Data:     data,
	}, nil
}

func (fl *BitmapFontLoader) Unload(resource *metadata.Resource) error {
	if resource.Data != nil {
		data := resource.Data.(*metadata.BitmapFontResourceData)
		data.Data.Glyphs = nil
		data.Data.Kernings = nil
		data.Pages = nil
		resource.Data = nil
		resource.DataSize = 0
	}
	return nil
}

func fontNameFromPath(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
