package loaders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

// MaterialLoader reads .material.toml definition files.
type MaterialLoader struct{}

func (ml *MaterialLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := &metadata.MaterialConfig{}
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("material file '%s' is not valid toml: %w", path, err)
	}
	if config.Name == "" {
		config.Name = materialNameFromPath(path)
	}
	if config.ShaderName == "" {
		return nil, fmt.Errorf("material file '%s' names no shader", path)
	}

	return &metadata.Resource{
		Name:     config.Name,
		FullPath: path,
		Type:     metadata.ResourceTypeMaterial,
		DataSize: uint64(len(data)),
		Data:     config,
	}, nil
}

func (ml *MaterialLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	resource.DataSize = 0
	return nil
}

// materialNameFromPath strips the directory and the ".material.toml" suffix.
func materialNameFromPath(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".toml")
	name = strings.TrimSuffix(name, ".material")
	return name
}
