package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

// ImageLoader decodes png and jpeg files into tightly packed RGBA pixel
// data. Textures always upload four channels.
type ImageLoader struct{}

func (il *ImageLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	flipY := false
	if p, ok := params.(*metadata.ImageResourceParams); ok && p != nil {
		flipY = p.FlipY
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoded, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("image file '%s' could not be decoded: %w", path, err)
	}

	bounds := decoded.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), decoded, bounds.Min, xdraw.Src)

	width := uint32(bounds.Dx())
	height := uint32(bounds.Dy())
	pixels := rgba.Pix
	if flipY {
		pixels = flipRows(pixels, rgba.Stride, int(height))
	}

	return &metadata.Resource{
		Name:     imageNameFromPath(path),
		FullPath: path,
		Type:     metadata.ResourceTypeImage,
		DataSize: uint64(len(pixels)),
		Data: &metadata.ImageResourceData{
			ChannelCount: 4,
			Width:        width,
			Height:       height,
			Pixels:       pixels,
		},
	}, nil
}

func (il *ImageLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	resource.DataSize = 0
	return nil
}

// flipRows reverses the row order of packed pixel data in place.
func flipRows(pixels []uint8, stride, rows int) []uint8 {
	for top, bottom := 0, rows-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := pixels[top*stride : top*stride+stride]
		b := pixels[bottom*stride : bottom*stride+stride]
		for i := range a {
			a[i], b[i] = b[i], a[i]
		}
	}
	return pixels
}

func imageNameFromPath(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
