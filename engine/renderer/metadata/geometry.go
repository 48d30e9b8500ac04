package metadata

import (
	"github.com/spaghettifunk/pneuma/engine/math"
)

/** @brief The name of the default geometry. */
const DefaultGeometryName string = "default"

/**
 * @brief Represents the configuration for a geometry.
 */
type GeometryConfig struct {
	/** @brief The size of each vertex. */
	VertexSize uint32
	/** @brief The number of vertices. */
	VertexCount uint32
	/** @brief An array of Vertices. */
	Vertices []math.Vertex3D
	/** @brief The size of each index. */
	IndexSize uint32
	/** @brief The number of indices. */
	IndexCount uint32
	/** @brief An array of Indices. */
	Indices []uint32

	Center     math.Vec3
	MinExtents math.Vec3
	MaxExtents math.Vec3

	/** @brief The Name of the geometry. */
	Name string
	/** @brief The name of the material used by the geometry. */
	MaterialName string
}

type GeometryReference struct {
	ReferenceCount uint64
	Geometry       *Geometry
	AutoRelease    bool
}

/**
 * @brief A renderable collection of geometries sharing one transform.
 */
type Mesh struct {
	/** @brief A unique, per scene object identifier. */
	UniqueID uint32
	/** @brief Incremented every time the mesh's geometry list changes. */
	Generation uint8
	/** @brief The geometries attached to this mesh. */
	Geometries []*Geometry
	/** @brief The mesh transform. A nil transform renders at the world origin. */
	Transform *math.Transform
}

/**
 * @brief Represents actual geometry in the world.
 * Typically (but not always, depending on use) paired with a material.
 */
type Geometry struct {
	/** @brief The geometry identifier. */
	ID uint32
	/** @brief The geometry generation. Incremented every time the geometry changes. */
	Generation uint16
	/** @brief The vertex buffer held by the backend container. */
	VertexBufferHandle AssetHandle
	/** @brief The index buffer held by the backend container. */
	IndexBufferHandle AssetHandle
	/** @brief The number of vertices. */
	VertexCount uint32
	/** @brief The number of indices. */
	IndexCount uint32
	/** @brief The center of the geometry in local coordinates. */
	Center math.Vec3
	/** @brief The extents of the geometry in local coordinates. */
	Extents math.Extents3D
	/** @brief The geometry name. */
	Name string
	/** @brief The name of the material associated with this geometry. */
	MaterialName string
}
