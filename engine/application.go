package engine

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"start_height"`
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// The renderer backend to use. Empty selects the best registered adapter.
	Backend string `toml:"backend"`
	// The directory holding shaders, materials, textures and fonts. Relative
	// paths are resolved against the working directory.
	AssetsDir string `toml:"assets_dir"`
	// Bitmap fonts loaded during engine initialization.
	Fonts []ApplicationFontConfig `toml:"fonts"`

	// Render views registered in addition to the builtin world view.
	// Populated in code, typically from the game's boot callback.
	RenderViewConfigs []*metadata.RenderViewConfig `toml:"-"`
}

type ApplicationFontConfig struct {
	Name string `toml:"name"`
	Size uint16 `toml:"size"`
	// The resource holding the font descriptor. Defaults to the font name.
	Resource string `toml:"resource"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		StartPosX:   100,
		StartPosY:   100,
		StartWidth:  1280,
		StartHeight: 720,
		Name:        "Pneuma Application",
		AssetsDir:   "assets",
	}
}

// LoadApplicationConfig reads a TOML application definition. Keys absent
// from the file keep their defaults.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config := DefaultApplicationConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("application config '%s' is not valid toml: %w", path, err)
	}
	return config, nil
}

func (config *ApplicationConfig) bitmapFontConfigs() []*metadata.BitmapFontConfig {
	configs := make([]*metadata.BitmapFontConfig, 0, len(config.Fonts))
	for _, font := range config.Fonts {
		resource := font.Resource
		if resource == "" {
			resource = font.Name
		}
		configs = append(configs, &metadata.BitmapFontConfig{
			Name:         font.Name,
			Size:         font.Size,
			ResourceName: resource,
		})
	}
	return configs
}
