package assets

import "github.com/spaghettifunk/pneuma/engine/renderer/metadata"

// Loader turns one file on disk into a typed resource. Params carry
// loader-specific options, e.g. *metadata.ImageResourceParams for images.
type Loader interface {
	Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error)
	Unload(*metadata.Resource) error
}
