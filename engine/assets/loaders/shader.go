package loaders

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

// ShaderLoader reads .shader.toml definition files and resolves every stage's
// GLSL source relative to the definition file's directory.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := &metadata.ShaderConfig{}
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("shader file '%s' is not valid toml: %w", path, err)
	}
	if config.Name == "" {
		return nil, fmt.Errorf("shader file '%s' names no shader", path)
	}
	if len(config.Stages) == 0 {
		return nil, fmt.Errorf("shader file '%s' declares no stages", path)
	}

	resourceData := &metadata.ShaderResourceData{
		Config: config,
		Stages: make([]metadata.ShaderStageSource, 0, len(config.Stages)),
	}
	dir := filepath.Dir(path)
	totalSize := uint64(len(data))
	for _, stage := range config.Stages {
		stageType, err := metadata.ShaderStageFromString(stage.Stage)
		if err != nil {
			return nil, fmt.Errorf("shader file '%s': %w", path, err)
		}
		sourcePath := filepath.Join(dir, stage.Filename)
		source, err := os.ReadFile(sourcePath)
		if err != nil {
			return nil, fmt.Errorf("shader '%s' stage %s: %w", config.Name, stage.Stage, err)
		}
		resourceData.Stages = append(resourceData.Stages, metadata.ShaderStageSource{
			Stage:    stageType,
			Filename: stage.Filename,
			Source:   string(source),
		})
		totalSize += uint64(len(source))
	}

	return &metadata.Resource{
		Name:     config.Name,
		FullPath: path,
		Type:     metadata.ResourceTypeShader,
		DataSize: totalSize,
		Data:     resourceData,
	}, nil
}

func (sl *ShaderLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	resource.DataSize = 0
	return nil
}
