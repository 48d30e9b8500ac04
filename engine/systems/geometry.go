package systems

import (
	"encoding/binary"
	"fmt"
	mt "math"

	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/math"
	"github.com/spaghettifunk/pneuma/engine/renderer"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

// Vertex3D is serialized field by field as packed little-endian float32
// streams: position, normal, texcoord, colour, tangent.
const vertex3DByteSize uint32 = (3 + 3 + 2 + 4 + 3) * 4

// Indices are uint32.
const indexByteSize uint32 = 4

type GeometrySystemConfig struct {
	// Max number of geometries that can be loaded at once.
	// NOTE: Should be significantly greater than the number of static meshes
	// because there can and will be more than one of these per mesh.
	MaxGeometryCount uint32
}

type GeometrySystem struct {
	Config          *GeometrySystemConfig
	DefaultGeometry *metadata.Geometry
	// Array of registered geometries.
	RegisteredGeometries []*metadata.GeometryReference

	backend        renderer.RendererBackend
	materialSystem *MaterialSystem
}

func NewGeometrySystem(config *GeometrySystemConfig, backend renderer.RendererBackend, ms *MaterialSystem) (*GeometrySystem, error) {
	if config.MaxGeometryCount == 0 {
		err := fmt.Errorf("func NewGeometrySystem - config.MaxGeometryCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}

	gs := &GeometrySystem{
		Config:               config,
		RegisteredGeometries: make([]*metadata.GeometryReference, config.MaxGeometryCount),
		backend:              backend,
		materialSystem:       ms,
	}

	// Invalidate all geometries in the array.
	for i := uint32(0); i < config.MaxGeometryCount; i++ {
		gs.RegisteredGeometries[i] = &metadata.GeometryReference{
			Geometry: &metadata.Geometry{
				ID:                 metadata.InvalidID,
				Generation:         metadata.InvalidIDUint16,
				VertexBufferHandle: metadata.InvalidAssetHandle,
				IndexBufferHandle:  metadata.InvalidAssetHandle,
			},
		}
	}

	return gs, nil
}

// Initialize uploads the default geometry. The material system must have
// been initialized first so the default material exists.
func (gs *GeometrySystem) Initialize() error {
	return gs.createDefaultGeometry()
}

func (gs *GeometrySystem) Shutdown() error {
	for i := uint32(0); i < gs.Config.MaxGeometryCount; i++ {
		ref := gs.RegisteredGeometries[i]
		if ref.Geometry.ID != metadata.InvalidID {
			gs.destroyGeometry(ref.Geometry)
			ref.ReferenceCount = 0
			ref.AutoRelease = false
		}
	}
	if gs.DefaultGeometry != nil {
		gs.destroyGeometry(gs.DefaultGeometry)
		gs.DefaultGeometry = nil
	}
	return nil
}

/**
 * @brief Acquires an existing geometry by id, incrementing its reference
 * count.
 */
func (gs *GeometrySystem) AcquireByID(id uint32) (*metadata.Geometry, error) {
	if id < gs.Config.MaxGeometryCount && gs.RegisteredGeometries[id].Geometry.ID != metadata.InvalidID {
		gs.RegisteredGeometries[id].ReferenceCount++
		return gs.RegisteredGeometries[id].Geometry, nil
	}

	err := fmt.Errorf("func geometry system AcquireByID cannot load invalid geometry id %d", id)
	core.LogError(err.Error())
	return nil, err
}

/**
 * @brief Registers and acquires a new geometry from the given config,
 * uploading its vertex and index data to backend buffers.
 */
func (gs *GeometrySystem) AcquireFromConfig(config *metadata.GeometryConfig, autoRelease bool) (*metadata.Geometry, error) {
	var ref *metadata.GeometryReference
	var geometry *metadata.Geometry
	for i := uint32(0); i < gs.Config.MaxGeometryCount; i++ {
		if gs.RegisteredGeometries[i].Geometry.ID == metadata.InvalidID {
			// Found empty slot.
			ref = gs.RegisteredGeometries[i]
			ref.AutoRelease = autoRelease
			ref.ReferenceCount = 1
			geometry = ref.Geometry
			geometry.ID = i
			break
		}
	}

	if geometry == nil {
		err := fmt.Errorf("geometry system cannot hold any more geometries. Adjust configuration to allow more")
		core.LogError(err.Error())
		return nil, err
	}

	if err := gs.createGeometry(config, geometry); err != nil {
		ref.ReferenceCount = 0
		ref.AutoRelease = false
		geometry.ID = metadata.InvalidID
		geometry.Generation = metadata.InvalidIDUint16
		core.LogError("failed to create geometry '%s': %s", config.Name, err.Error())
		return nil, err
	}

	return geometry, nil
}

/**
 * @brief Releases a reference to the provided geometry. The backend buffers
 * are destroyed once no references remain, if the geometry was acquired
 * with auto-release.
 */
func (gs *GeometrySystem) Release(geometry *metadata.Geometry) {
	if geometry == nil || geometry.ID == metadata.InvalidID {
		core.LogWarn("func geometry system Release cannot release an invalid geometry. Nothing was done")
		return
	}

	ref := gs.RegisteredGeometries[geometry.ID]
	if ref.Geometry != geometry {
		core.LogError("geometry id mismatch. Check registration logic, as this should never occur")
		return
	}

	if ref.ReferenceCount > 0 {
		ref.ReferenceCount--
	}
	if ref.ReferenceCount < 1 && ref.AutoRelease {
		gs.destroyGeometry(ref.Geometry)
		ref.ReferenceCount = 0
		ref.AutoRelease = false
	}
}

func (gs *GeometrySystem) GetDefault() *metadata.Geometry {
	return gs.DefaultGeometry
}

/**
 * @brief Generates the configuration for a segmented plane lying in the xy
 * plane, facing +z. The texture tiles across the whole plane tileX by tileY
 * times.
 */
func (gs *GeometrySystem) GeneratePlaneConfig(width, height float32, xSegmentCount, ySegmentCount uint32, tileX, tileY float32, name, materialName string) (*metadata.GeometryConfig, error) {
	if width == 0 {
		core.LogWarn("width must be nonzero. Defaulting to one")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("height must be nonzero. Defaulting to one")
		height = 1.0
	}
	if xSegmentCount < 1 {
		core.LogWarn("xSegmentCount must be a positive number. Defaulting to one")
		xSegmentCount = 1
	}
	if ySegmentCount < 1 {
		core.LogWarn("ySegmentCount must be a positive number. Defaulting to one")
		ySegmentCount = 1
	}
	if tileX == 0 {
		core.LogWarn("tileX must be nonzero. Defaulting to one")
		tileX = 1.0
	}
	if tileY == 0 {
		core.LogWarn("tileY must be nonzero. Defaulting to one")
		tileY = 1.0
	}

	config := &metadata.GeometryConfig{
		VertexSize:  vertex3DByteSize,
		VertexCount: xSegmentCount * ySegmentCount * 4, // 4 verts per segment
		Vertices:    make([]math.Vertex3D, xSegmentCount*ySegmentCount*4),
		IndexSize:   indexByteSize,
		IndexCount:  xSegmentCount * ySegmentCount * 6, // 6 indices per segment
		Indices:     make([]uint32, xSegmentCount*ySegmentCount*6),
	}

	// NOTE: This generates extra vertices, but they could always be
	// deduplicated later.
	segWidth := width / float32(xSegmentCount)
	segHeight := height / float32(ySegmentCount)
	halfWidth := width * 0.5
	halfHeight := height * 0.5
	for y := uint32(0); y < ySegmentCount; y++ {
		for x := uint32(0); x < xSegmentCount; x++ {
			minX := (float32(x) * segWidth) - halfWidth
			minY := (float32(y) * segHeight) - halfHeight
			maxX := minX + segWidth
			maxY := minY + segHeight
			minUVX := (float32(x) / float32(xSegmentCount)) * tileX
			minUVY := (float32(y) / float32(ySegmentCount)) * tileY
			maxUVX := (float32(x+1) / float32(xSegmentCount)) * tileX
			maxUVY := (float32(y+1) / float32(ySegmentCount)) * tileY

			vOffset := ((y * xSegmentCount) + x) * 4
			v0 := &config.Vertices[vOffset+0]
			v1 := &config.Vertices[vOffset+1]
			v2 := &config.Vertices[vOffset+2]
			v3 := &config.Vertices[vOffset+3]

			v0.Position = math.NewVec3(minX, minY, 0.0)
			v0.Texcoord = math.NewVec2(minUVX, minUVY)

			v1.Position = math.NewVec3(maxX, maxY, 0.0)
			v1.Texcoord = math.NewVec2(maxUVX, maxUVY)

			v2.Position = math.NewVec3(minX, maxY, 0.0)
			v2.Texcoord = math.NewVec2(minUVX, maxUVY)

			v3.Position = math.NewVec3(maxX, minY, 0.0)
			v3.Texcoord = math.NewVec2(maxUVX, minUVY)

			for _, v := range []*math.Vertex3D{v0, v1, v2, v3} {
				v.Normal = math.NewVec3(0.0, 0.0, 1.0)
				v.Colour = math.NewVec4One()
			}

			iOffset := ((y * xSegmentCount) + x) * 6
			config.Indices[iOffset+0] = vOffset + 0
			config.Indices[iOffset+1] = vOffset + 1
			config.Indices[iOffset+2] = vOffset + 2
			config.Indices[iOffset+3] = vOffset + 0
			config.Indices[iOffset+4] = vOffset + 3
			config.Indices[iOffset+5] = vOffset + 1
		}
	}

	config.MinExtents = math.NewVec3(-halfWidth, -halfHeight, 0.0)
	config.MaxExtents = math.NewVec3(halfWidth, halfHeight, 0.0)
	config.Center = math.NewVec3Zero()

	math.GeometryGenerateTangents(config.Vertices, config.Indices)

	if len(name) > 0 {
		config.Name = name
	} else {
		config.Name = metadata.DefaultGeometryName
	}
	if len(materialName) > 0 {
		config.MaterialName = materialName
	} else {
		config.MaterialName = metadata.DefaultMaterialName
	}

	return config, nil
}

/**
 * @brief Generates the configuration for an axis aligned cube centered on
 * the origin, with per-face normals and tangents.
 */
func (gs *GeometrySystem) GenerateCubeConfig(width, height, depth, tileX, tileY float32, name, materialName string) (*metadata.GeometryConfig, error) {
	if width == 0 {
		core.LogWarn("width must be nonzero. Defaulting to one")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("height must be nonzero. Defaulting to one")
		height = 1.0
	}
	if depth == 0 {
		core.LogWarn("depth must be nonzero. Defaulting to one")
		depth = 1.0
	}
	if tileX == 0 {
		core.LogWarn("tileX must be nonzero. Defaulting to one")
		tileX = 1.0
	}
	if tileY == 0 {
		core.LogWarn("tileY must be nonzero. Defaulting to one")
		tileY = 1.0
	}

	config := &metadata.GeometryConfig{
		VertexSize:  vertex3DByteSize,
		VertexCount: 4 * 6, // 4 verts per side, 6 sides
		Vertices:    make([]math.Vertex3D, 4*6),
		IndexSize:   indexByteSize,
		IndexCount:  6 * 6, // 6 indices per side, 6 sides
		Indices:     make([]uint32, 6*6),
	}

	halfWidth := width * 0.5
	halfHeight := height * 0.5
	halfDepth := depth * 0.5
	minX := -halfWidth
	minY := -halfHeight
	minZ := -halfDepth
	maxX := halfWidth
	maxY := halfHeight
	maxZ := halfDepth
	minUVX := float32(0.0)
	minUVY := float32(0.0)
	maxUVX := tileX
	maxUVY := tileY

	config.MinExtents = math.NewVec3(minX, minY, minZ)
	config.MaxExtents = math.NewVec3(maxX, maxY, maxZ)
	// Always 0 since min/max of each axis are -/+ half of the size.
	config.Center = math.NewVec3Zero()

	verts := config.Vertices

	// Front face
	verts[(0*4)+0].Position = math.NewVec3(minX, minY, maxZ)
	verts[(0*4)+1].Position = math.NewVec3(maxX, maxY, maxZ)
	verts[(0*4)+2].Position = math.NewVec3(minX, maxY, maxZ)
	verts[(0*4)+3].Position = math.NewVec3(maxX, minY, maxZ)
	verts[(0*4)+0].Texcoord = math.NewVec2(minUVX, minUVY)
	verts[(0*4)+1].Texcoord = math.NewVec2(maxUVX, maxUVY)
	verts[(0*4)+2].Texcoord = math.NewVec2(minUVX, maxUVY)
	verts[(0*4)+3].Texcoord = math.NewVec2(maxUVX, minUVY)
	for i := 0; i < 4; i++ {
		verts[(0*4)+i].Normal = math.NewVec3(0.0, 0.0, 1.0)
	}

	// Back face
	verts[(1*4)+0].Position = math.NewVec3(maxX, minY, minZ)
	verts[(1*4)+1].Position = math.NewVec3(minX, maxY, minZ)
	verts[(1*4)+2].Position = math.NewVec3(maxX, maxY, minZ)
	verts[(1*4)+3].Position = math.NewVec3(minX, minY, minZ)
	verts[(1*4)+0].Texcoord = math.NewVec2(minUVX, minUVY)
	verts[(1*4)+1].Texcoord = math.NewVec2(maxUVX, maxUVY)
	verts[(1*4)+2].Texcoord = math.NewVec2(minUVX, maxUVY)
	verts[(1*4)+3].Texcoord = math.NewVec2(maxUVX, minUVY)
	for i := 0; i < 4; i++ {
		verts[(1*4)+i].Normal = math.NewVec3(0.0, 0.0, -1.0)
	}

	// Left face
	verts[(2*4)+0].Position = math.NewVec3(minX, minY, minZ)
	verts[(2*4)+1].Position = math.NewVec3(minX, maxY, maxZ)
	verts[(2*4)+2].Position = math.NewVec3(minX, maxY, minZ)
	verts[(2*4)+3].Position = math.NewVec3(minX, minY, maxZ)
	verts[(2*4)+0].Texcoord = math.NewVec2(minUVX, minUVY)
	verts[(2*4)+1].Texcoord = math.NewVec2(maxUVX, maxUVY)
	verts[(2*4)+2].Texcoord = math.NewVec2(minUVX, maxUVY)
	verts[(2*4)+3].Texcoord = math.NewVec2(maxUVX, minUVY)
	for i := 0; i < 4; i++ {
		verts[(2*4)+i].Normal = math.NewVec3(-1.0, 0.0, 0.0)
	}

	// Right face
	verts[(3*4)+0].Position = math.NewVec3(maxX, minY, maxZ)
	verts[(3*4)+1].Position = math.NewVec3(maxX, maxY, minZ)
	verts[(3*4)+2].Position = math.NewVec3(maxX, maxY, maxZ)
	verts[(3*4)+3].Position = math.NewVec3(maxX, minY, minZ)
	verts[(3*4)+0].Texcoord = math.NewVec2(minUVX, minUVY)
	verts[(3*4)+1].Texcoord = math.NewVec2(maxUVX, maxUVY)
	verts[(3*4)+2].Texcoord = math.NewVec2(minUVX, maxUVY)
	verts[(3*4)+3].Texcoord = math.NewVec2(maxUVX, minUVY)
	for i := 0; i < 4; i++ {
		verts[(3*4)+i].Normal = math.NewVec3(1.0, 0.0, 0.0)
	}

	// Bottom face
	verts[(4*4)+0].Position = math.NewVec3(maxX, minY, maxZ)
	verts[(4*4)+1].Position = math.NewVec3(minX, minY, minZ)
	verts[(4*4)+2].Position = math.NewVec3(maxX, minY, minZ)
	verts[(4*4)+3].Position = math.NewVec3(minX, minY, maxZ)
	verts[(4*4)+0].Texcoord = math.NewVec2(minUVX, minUVY)
	verts[(4*4)+1].Texcoord = math.NewVec2(maxUVX, maxUVY)
	verts[(4*4)+2].Texcoord = math.NewVec2(minUVX, maxUVY)
	verts[(4*4)+3].Texcoord = math.NewVec2(maxUVX, minUVY)
	for i := 0; i < 4; i++ {
		verts[(4*4)+i].Normal = math.NewVec3(0.0, -1.0, 0.0)
	}

	// Top face
	verts[(5*4)+0].Position = math.NewVec3(minX, maxY, maxZ)
	verts[(5*4)+1].Position = math.NewVec3(maxX, maxY, minZ)
	verts[(5*4)+2].Position = math.NewVec3(minX, maxY, minZ)
	verts[(5*4)+3].Position = math.NewVec3(maxX, maxY, maxZ)
	verts[(5*4)+0].Texcoord = math.NewVec2(minUVX, minUVY)
	verts[(5*4)+1].Texcoord = math.NewVec2(maxUVX, maxUVY)
	verts[(5*4)+2].Texcoord = math.NewVec2(minUVX, maxUVY)
	verts[(5*4)+3].Texcoord = math.NewVec2(maxUVX, minUVY)
	for i := 0; i < 4; i++ {
		verts[(5*4)+i].Normal = math.NewVec3(0.0, 1.0, 0.0)
	}

	for i := range verts {
		verts[i].Colour = math.NewVec4One()
	}

	for i := 0; i < 6; i++ {
		vOffset := i * 4
		iOffset := i * 6
		config.Indices[iOffset+0] = uint32(vOffset + 0)
		config.Indices[iOffset+1] = uint32(vOffset + 1)
		config.Indices[iOffset+2] = uint32(vOffset + 2)
		config.Indices[iOffset+3] = uint32(vOffset + 0)
		config.Indices[iOffset+4] = uint32(vOffset + 3)
		config.Indices[iOffset+5] = uint32(vOffset + 1)
	}

	math.GeometryGenerateTangents(config.Vertices, config.Indices)

	if len(name) > 0 {
		config.Name = name
	} else {
		config.Name = metadata.DefaultGeometryName
	}
	if len(materialName) > 0 {
		config.MaterialName = materialName
	} else {
		config.MaterialName = metadata.DefaultMaterialName
	}

	return config, nil
}

func (gs *GeometrySystem) createDefaultGeometry() error {
	config, err := gs.GeneratePlaneConfig(10.0, 10.0, 1, 1, 1.0, 1.0, metadata.DefaultGeometryName, metadata.DefaultMaterialName)
	if err != nil {
		return err
	}

	geometry := &metadata.Geometry{
		ID:                 metadata.InvalidID,
		Generation:         metadata.InvalidIDUint16,
		VertexBufferHandle: metadata.InvalidAssetHandle,
		IndexBufferHandle:  metadata.InvalidAssetHandle,
	}
	if err := gs.createGeometry(config, geometry); err != nil {
		core.LogFatal("failed to create default geometry. Application cannot continue")
		return err
	}
	gs.DefaultGeometry = geometry
	return nil
}

func (gs *GeometrySystem) createGeometry(config *metadata.GeometryConfig, geometry *metadata.Geometry) error {
	if config == nil || len(config.Vertices) == 0 {
		return fmt.Errorf("geometry creation requires vertex data")
	}

	vertexData := vertex3DBytes(config.Vertices)
	vertexBuffer, err := gs.backend.BufferCreate(metadata.RENDERBUFFER_TYPE_VERTEX, uint64(len(vertexData)))
	if err != nil {
		return err
	}
	if err := gs.backend.BufferLoadRange(vertexBuffer, 0, vertexData); err != nil {
		gs.backend.BufferDestroy(vertexBuffer)
		return err
	}

	indexBuffer := metadata.InvalidAssetHandle
	if len(config.Indices) > 0 {
		indexData := indexBytes(config.Indices)
		indexBuffer, err = gs.backend.BufferCreate(metadata.RENDERBUFFER_TYPE_INDEX, uint64(len(indexData)))
		if err != nil {
			gs.backend.BufferDestroy(vertexBuffer)
			return err
		}
		if err := gs.backend.BufferLoadRange(indexBuffer, 0, indexData); err != nil {
			gs.backend.BufferDestroy(indexBuffer)
			gs.backend.BufferDestroy(vertexBuffer)
			return err
		}
	}

	// Acquire the material so it stays loaded for the geometry's lifetime.
	if len(config.MaterialName) > 0 && config.MaterialName != metadata.DefaultMaterialName {
		if _, err := gs.materialSystem.Acquire(config.MaterialName); err != nil {
			core.LogWarn("failed to acquire material '%s' for geometry '%s', using default", config.MaterialName, config.Name)
			config.MaterialName = metadata.DefaultMaterialName
		}
	}

	geometry.VertexBufferHandle = vertexBuffer
	geometry.IndexBufferHandle = indexBuffer
	geometry.VertexCount = config.VertexCount
	geometry.IndexCount = config.IndexCount
	geometry.Generation = 0
	geometry.Center = config.Center
	geometry.Extents.Min = config.MinExtents
	geometry.Extents.Max = config.MaxExtents
	geometry.Name = config.Name
	geometry.MaterialName = config.MaterialName
	return nil
}

func (gs *GeometrySystem) destroyGeometry(geometry *metadata.Geometry) {
	if geometry.VertexBufferHandle != metadata.InvalidAssetHandle {
		gs.backend.BufferDestroy(geometry.VertexBufferHandle)
	}
	if geometry.IndexBufferHandle != metadata.InvalidAssetHandle {
		gs.backend.BufferDestroy(geometry.IndexBufferHandle)
	}
	if len(geometry.MaterialName) > 0 && geometry.MaterialName != metadata.DefaultMaterialName {
		gs.materialSystem.Release(geometry.MaterialName)
	}

	*geometry = metadata.Geometry{
		ID:                 metadata.InvalidID,
		Generation:         metadata.InvalidIDUint16,
		VertexBufferHandle: metadata.InvalidAssetHandle,
		IndexBufferHandle:  metadata.InvalidAssetHandle,
	}
}

func vertex3DBytes(vertices []math.Vertex3D) []byte {
	data := make([]byte, 0, uint32(len(vertices))*vertex3DByteSize)
	for i := range vertices {
		v := &vertices[i]
		data = appendFloats(data,
			v.Position.X, v.Position.Y, v.Position.Z,
			v.Normal.X, v.Normal.Y, v.Normal.Z,
			v.Texcoord.X, v.Texcoord.Y,
			v.Colour.X, v.Colour.Y, v.Colour.Z, v.Colour.W,
			v.Tangent.X, v.Tangent.Y, v.Tangent.Z)
	}
	return data
}

func indexBytes(indices []uint32) []byte {
	data := make([]byte, len(indices)*int(indexByteSize))
	for i, index := range indices {
		binary.LittleEndian.PutUint32(data[i*int(indexByteSize):], index)
	}
	return data
}

func appendFloats(data []byte, values ...float32) []byte {
	for _, value := range values {
		data = binary.LittleEndian.AppendUint32(data, mt.Float32bits(value))
	}
	return data
}
