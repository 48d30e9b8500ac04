package metadata

/** @brief The kinds of resources the asset manager can load. */
type ResourceType uint8

const (
	ResourceTypeNone ResourceType = iota
	/** @brief Plain text resource type. */
	ResourceTypeText
	/** @brief Raw binary resource type. */
	ResourceTypeBinary
	/** @brief Image resource type (e.g. png). */
	ResourceTypeImage
	/** @brief Material definition resource type. */
	ResourceTypeMaterial
	/** @brief Shader definition resource type. */
	ResourceTypeShader
	/** @brief Bitmap font resource type. */
	ResourceTypeBitmapFont
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeText:
		return "text"
	case ResourceTypeBinary:
		return "binary"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeMaterial:
		return "material"
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeBitmapFont:
		return "bitmap_font"
	}
	return "none"
}

/**
 * @brief A loaded resource. Data holds the loader-specific payload, e.g.
 * a *MaterialConfig for materials or an *ImageResourceData for images.
 */
type Resource struct {
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The type of the resource. */
	Type ResourceType
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}
