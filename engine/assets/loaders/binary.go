package loaders

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

// BinaryLoader reads a file as raw bytes.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &metadata.Resource{
		Name:     name,
		FullPath: path,
		Type:     metadata.ResourceTypeBinary,
		DataSize: uint64(len(data)),
		Data:     data,
	}, nil
}

func (bl *BinaryLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	resource.DataSize = 0
	return nil
}
