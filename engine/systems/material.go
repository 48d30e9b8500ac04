package systems

import (
	"encoding/binary"
	"fmt"
	mt "math"
	"slices"

	"github.com/spaghettifunk/pneuma/engine/assets"
	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/math"
	"github.com/spaghettifunk/pneuma/engine/renderer"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

type MaterialSystemConfig struct {
	/** @brief The maximum number of materials that can be loaded at once. */
	MaxMaterialCount uint32
}

type MaterialSystem struct {
	Config          *MaterialSystemConfig
	DefaultMaterial *metadata.Material
	// Array of registered materials.
	RegisteredMaterials []*metadata.Material
	// Hashtable for material lookups.
	RegisteredMaterialTable map[string]*metadata.MaterialReference
	// sub systems
	shaderSystem  *ShaderSystem
	textureSystem *TextureSystem
	tagRegistry   *TagRegistry
	assetManager  *assets.AssetManager
}

func NewMaterialSystem(config *MaterialSystemConfig, ss *ShaderSystem, ts *TextureSystem, tags *TagRegistry, am *assets.AssetManager) (*MaterialSystem, error) {
	if config.MaxMaterialCount == 0 {
		err := fmt.Errorf("func NewMaterialSystem - config.MaxMaterialCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}

	ms := &MaterialSystem{
		Config:                  config,
		RegisteredMaterials:     make([]*metadata.Material, config.MaxMaterialCount),
		RegisteredMaterialTable: make(map[string]*metadata.MaterialReference),
		shaderSystem:            ss,
		textureSystem:           ts,
		tagRegistry:             tags,
		assetManager:            am,
	}

	// Invalidate all materials in the array.
	for i := uint32(0); i < config.MaxMaterialCount; i++ {
		ms.RegisteredMaterials[i] = &metadata.Material{
			ID:         metadata.InvalidID,
			Generation: metadata.InvalidID,
		}
	}

	return ms, nil
}

// Initialize builds the default material. The builtin world shader must have
// been created before this is called.
func (ms *MaterialSystem) Initialize() error {
	return ms.createDefaultMaterial()
}

func (ms *MaterialSystem) Shutdown() error {
	// Destroy all loaded materials.
	for i := uint32(0); i < ms.Config.MaxMaterialCount; i++ {
		m := ms.RegisteredMaterials[i]
		if m.ID != metadata.InvalidID {
			ms.destroyMaterial(m)
		}
	}
	if ms.DefaultMaterial != nil {
		ms.destroyMaterial(ms.DefaultMaterial)
		ms.DefaultMaterial = nil
	}
	return nil
}

/**
 * @brief Acquires a material by name, loading its definition file on first
 * use. Every acquire increments the reference count; the material is
 * destroyed when the count reaches zero, if it was loaded with auto-release.
 */
func (ms *MaterialSystem) Acquire(name string) (*metadata.Material, error) {
	if name == metadata.DefaultMaterialName {
		core.LogWarn("func material system Acquire called for default material. Use GetDefault for material 'default'")
		return ms.DefaultMaterial, nil
	}

	if ref, ok := ms.RegisteredMaterialTable[name]; ok && ref.Handle != metadata.InvalidID {
		ref.ReferenceCount++
		return ms.RegisteredMaterials[ref.Handle], nil
	}

	resource, err := ms.assetManager.LoadAsset(name, metadata.ResourceTypeMaterial, nil)
	if err != nil {
		core.LogError("failed to load material resource '%s'", name)
		return nil, err
	}
	config, ok := resource.Data.(*metadata.MaterialConfig)
	if !ok {
		return nil, fmt.Errorf("material resource '%s' did not yield a material config", name)
	}
	material, err := ms.AcquireFromConfig(config)
	ms.assetManager.UnloadAsset(resource)
	return material, err
}

/**
 * @brief Acquires a material from an already loaded configuration,
 * referencing the existing instance when one with the same name is loaded.
 */
func (ms *MaterialSystem) AcquireFromConfig(config *metadata.MaterialConfig) (*metadata.Material, error) {
	if config.Name == metadata.DefaultMaterialName {
		return ms.DefaultMaterial, nil
	}

	ref, ok := ms.RegisteredMaterialTable[config.Name]
	if !ok {
		ref = &metadata.MaterialReference{Handle: metadata.InvalidID}
		ms.RegisteredMaterialTable[config.Name] = ref
	}
	// This can only be changed while no references are held.
	if ref.ReferenceCount == 0 {
		ref.AutoRelease = config.AutoRelease
	}
	ref.ReferenceCount++

	if ref.Handle == metadata.InvalidID {
		// No material exists yet for this name. Find a free slot first.
		slot := metadata.InvalidID
		for i := uint32(0); i < ms.Config.MaxMaterialCount; i++ {
			if ms.RegisteredMaterials[i].ID == metadata.InvalidID {
				slot = i
				break
			}
		}
		if slot == metadata.InvalidID {
			ref.ReferenceCount--
			err := fmt.Errorf("material system cannot hold any more materials. Adjust configuration to allow more")
			core.LogError(err.Error())
			return nil, err
		}

		m := ms.RegisteredMaterials[slot]
		if err := ms.loadMaterial(config, m); err != nil {
			ref.ReferenceCount--
			core.LogError("failed to load material '%s': %s", config.Name, err.Error())
			return nil, err
		}
		m.ID = slot
		ref.Handle = slot
	}

	return ms.RegisteredMaterials[ref.Handle], nil
}

/**
 * @brief Releases a named material. The material is destroyed once no
 * references remain, if it was acquired with auto-release. Releasing the
 * default material is ignored.
 */
func (ms *MaterialSystem) Release(name string) {
	if name == metadata.DefaultMaterialName {
		return
	}
	ref, ok := ms.RegisteredMaterialTable[name]
	if !ok || ref.Handle == metadata.InvalidID {
		core.LogWarn("tried to release non-existent material: '%s'", name)
		return
	}
	if ref.ReferenceCount == 0 {
		core.LogWarn("tried to release material '%s', but its reference count was already 0", name)
		return
	}

	ref.ReferenceCount--
	if ref.ReferenceCount == 0 && ref.AutoRelease {
		ms.destroyMaterial(ms.RegisteredMaterials[ref.Handle])
		ref.Handle = metadata.InvalidID
		ref.AutoRelease = false
		core.LogDebug("released material '%s', material unloaded because reference count=0 and autoRelease=true", name)
	}
}

func (ms *MaterialSystem) GetDefault() *metadata.Material {
	return ms.DefaultMaterial
}

/**
 * @brief Looks up a loaded material by name without touching its reference
 * count. Returns the default material when the name is unknown or the
 * material is not currently loaded, so render paths always get something
 * drawable back.
 */
func (ms *MaterialSystem) GetByName(name string) *metadata.Material {
	if ref, ok := ms.RegisteredMaterialTable[name]; ok && ref.Handle != metadata.InvalidID {
		return ms.RegisteredMaterials[ref.Handle]
	}
	return ms.DefaultMaterial
}

/**
 * @brief Pushes the material's state at the binder for one draw. Constants
 * carry per-draw transforms and are applied every call; samplers only need
 * rebinding once per frame.
 */
func (ms *MaterialSystem) Apply(m *metadata.Material, binder metadata.ConstantBinder, ctx *metadata.RenderContext, draw *metadata.DrawCall) error {
	if err := m.ApplyConstants(binder, ctx, draw); err != nil {
		return err
	}
	if m.RenderFrameNumber != ctx.FrameNumber {
		if err := m.ApplySamplers(binder); err != nil {
			return err
		}
		m.RenderFrameNumber = ctx.FrameNumber
	}
	return nil
}

func (ms *MaterialSystem) createDefaultMaterial() error {
	shader, err := ms.shaderSystem.GetShader(metadata.BuiltinShaderNameWorld)
	if err != nil {
		core.LogError("default material requires the builtin world shader to exist")
		return err
	}

	material := &metadata.Material{
		ID:   metadata.InvalidID,
		Name: metadata.DefaultMaterialName,
	}
	if err := buildMaterial(material, shader); err != nil {
		return err
	}

	// Every sampler of the default material points at the default texture.
	defaultTexture := ms.textureSystem.GetDefaultTexture()
	for i := range material.Samplers {
		material.Samplers[i].TextureHandle = defaultTexture.Handle
	}

	ms.DefaultMaterial = material
	return nil
}

// loadMaterial builds the material against its shader's reflection data,
// then applies the configuration on top: constant types and values, sampler
// states and textures, attribute overrides and tags.
func (ms *MaterialSystem) loadMaterial(config *metadata.MaterialConfig, m *metadata.Material) error {
	shader, err := ms.shaderSystem.GetShader(config.ShaderName)
	if err != nil {
		return fmt.Errorf("material '%s' references unknown shader '%s'", config.Name, config.ShaderName)
	}

	m.Name = config.Name
	if err := buildMaterial(m, shader); err != nil {
		return err
	}
	if m.Generation == metadata.InvalidID {
		m.Generation = 0
	} else {
		m.Generation++
	}

	for _, cc := range config.Constants {
		nameHash := core.HashName(cc.Name)
		if _, _, ok := m.GetConstant(nameHash); !ok {
			core.LogWarn("material '%s' configures unknown constant '%s'", config.Name, cc.Name)
			continue
		}
		constantType, err := metadata.ConstantTypeFromString(cc.Type)
		if err != nil {
			core.LogWarn("material '%s' constant '%s': %s", config.Name, cc.Name, err.Error())
			continue
		}
		m.SetConstantType(nameHash, constantType)
		if len(cc.Value) > 0 {
			m.SetConstant(nameHash, vec4sFromFloats(cc.Value))
		}
	}

	for _, sc := range config.Samplers {
		nameHash := core.HashName(sc.Name)
		sampler := m.Sampler(nameHash)
		if sampler == nil {
			core.LogWarn("material '%s' configures unknown sampler '%s'", config.Name, sc.Name)
			continue
		}
		m.BindSampler(nameHash, sampler.Unit, &metadata.SamplerParams{
			FilterMinify:  metadata.TextureFilterFromString(sc.FilterMinify),
			FilterMagnify: metadata.TextureFilterFromString(sc.FilterMagnify),
			RepeatU:       metadata.TextureRepeatFromString(sc.RepeatU),
			RepeatV:       metadata.TextureRepeatFromString(sc.RepeatV),
			RepeatW:       metadata.TextureRepeatFromString(sc.RepeatW),
			MaxAnisotropy: sc.MaxAnisotropy,
		})

		if sc.TextureName == "" {
			sampler.TextureHandle = ms.textureSystem.GetDefaultTexture().Handle
			continue
		}
		texture, err := ms.textureSystem.Acquire(sc.TextureName, true)
		if err != nil {
			core.LogWarn("material '%s' failed to acquire texture '%s', using default", config.Name, sc.TextureName)
			sampler.TextureHandle = ms.textureSystem.GetDefaultTexture().Handle
			continue
		}
		if !sampler.CanBind(texture) {
			ms.textureSystem.Release(sc.TextureName)
			sampler.TextureHandle = ms.textureSystem.GetDefaultTexture().Handle
			continue
		}
		sampler.TextureHandle = texture.Handle
		sampler.TextureName = sc.TextureName
	}

	if overrides := attributesFromConfig(config.Name, config.Attributes); len(overrides) > 0 {
		SetMaterialAttributes(m, overrides)
	}

	if len(config.Tags) > 0 {
		tags := make([]core.NameHash, len(config.Tags))
		for i, tag := range config.Tags {
			tags[i] = core.HashName(tag)
		}
		slices.Sort(tags)
		m.TagListKey = ms.tagRegistry.Register(tags)
	}

	return nil
}

func (ms *MaterialSystem) destroyMaterial(m *metadata.Material) {
	core.LogDebug("destroying material '%s'", m.Name)

	// Release any textures the material's samplers acquired.
	for i := range m.Samplers {
		if m.Samplers[i].TextureName != "" {
			ms.textureSystem.Release(m.Samplers[i].TextureName)
		}
	}

	m.Name = ""
	m.ID = metadata.InvalidID
	m.Generation = metadata.InvalidID
	m.ShaderID = metadata.InvalidID
	m.ProgramHandle = metadata.InvalidAssetHandle
	m.VertexAttributes = nil
	m.MaterialAttributes = nil
	m.AttributeValues = nil
	m.VertexDeclaration = nil
	m.Constants = nil
	m.Samplers = nil
	m.LocationLookup = nil
	m.TagListKey = 0
	m.RenderFrameNumber = 0
}

/**
 * @brief Sizes a material's stores from its shader's reflection data.
 * Uniforms are partitioned into constants and samplers, with the partition
 * counts pre-sizing the arrays. Attribute bookkeeping records a running
 * prefix sum of value offsets, and the packed value buffer is allocated
 * zero-filled at the summed byte size. A shader with no uniforms or no
 * attributes produces empty stores.
 */
func buildMaterial(m *metadata.Material, shader *metadata.Shader) error {
	m.ShaderID = shader.ID
	m.ProgramHandle = shader.ProgramHandle

	constantCount, samplerCount := 0, 0
	for i := range shader.Uniforms {
		if shader.Uniforms[i].Type.IsSampler() {
			samplerCount++
		} else {
			constantCount++
		}
	}

	m.Constants = make([]metadata.RenderConstant, 0, constantCount)
	m.Samplers = make([]metadata.MaterialSampler, 0, samplerCount)
	m.LocationLookup = make(map[core.NameHash]uint32, constantCount+samplerCount)

	for i := range shader.Uniforms {
		uniform := &shader.Uniforms[i]
		m.LocationLookup[uniform.NameHash] = uniform.Location

		if uniform.Type.IsSampler() {
			m.Samplers = append(m.Samplers, metadata.MaterialSampler{
				Name:     uniform.Name,
				NameHash: uniform.NameHash,
				Type:     uniform.Type,
				Location: uniform.Location,
				// The default unit assignment follows sampler order.
				Unit:           uint32(len(m.Samplers)),
				UnitValueCount: max(uniform.ElementCount, 1),
				FilterMinify:   metadata.TextureFilterModeLinear,
				FilterMagnify:  metadata.TextureFilterModeLinear,
				RepeatU:        metadata.TextureRepeatRepeat,
				RepeatV:        metadata.TextureRepeatRepeat,
				RepeatW:        metadata.TextureRepeatRepeat,
			})
			continue
		}

		// Matrix uniforms named after an engine computed source (view,
		// projection, world, view_projection, ...) are fed by the engine
		// without any material configuration. Everything else starts out
		// as a user constant.
		constantType := metadata.ConstantTypeUser
		if uniform.Type == metadata.ShaderDataTypeMatrix4 {
			if inferred, err := metadata.ConstantTypeFromString(uniform.Name); err == nil {
				constantType = inferred
			}
		}

		m.Constants = append(m.Constants, metadata.RenderConstant{
			Name:       uniform.Name,
			NameHash:   uniform.NameHash,
			Type:       constantType,
			DataType:   uniform.Type,
			Location:   uniform.Location,
			ElementIDs: metadata.FillElementIDs(uniform.Name),
			Values:     make([]math.Vec4, uniform.Type.Vec4Count()*max(uniform.ElementCount, 1)),
		})
	}

	m.VertexAttributes = make([]metadata.VertexAttribute, len(shader.Attributes))
	copy(m.VertexAttributes, shader.Attributes)
	m.MaterialAttributes = make([]metadata.MaterialAttribute, len(shader.Attributes))

	byteSize := uint32(0)
	for i := range m.VertexAttributes {
		attribute := &m.VertexAttributes[i]
		// Defaults live in the packed buffer, not on the descriptors.
		attribute.Values = nil

		m.MaterialAttributes[i] = metadata.MaterialAttribute{
			Location:   uint32(i),
			ValueIndex: byteSize,
			ValueCount: attribute.ElementCount,
			ElementIDs: metadata.FillElementIDs(attribute.Name),
		}
		byteSize += attribute.ByteSize()
	}
	m.AttributeValues = make([]byte, byteSize)

	m.VertexDeclaration = renderer.NewVertexDeclaration(m.VertexAttributes)
	return nil
}

/**
 * @brief Overrides attribute descriptors a material declared, matched by
 * name hash; names the material does not declare are skipped, never added.
 * Any match relays out the value store: every offset is recomputed as a
 * fresh prefix sum, the packed buffer is rebuilt from scratch at its new
 * size instead of patched in place, matched descriptors' payload bytes are
 * copied in clamped to their region, element ids are regenerated from the
 * incoming names, and the vertex declaration is rebuilt. Applying the same
 * override list twice therefore yields an identical layout and buffer.
 */
func SetMaterialAttributes(m *metadata.Material, overrides []metadata.VertexAttribute) {
	if len(overrides) == 0 {
		return
	}

	updated := false
	for i := range overrides {
		override := &overrides[i]
		index := m.AttributeIndex(override.NameHash)
		if index == metadata.InvalidID {
			continue
		}

		attribute := &m.VertexAttributes[index]
		attribute.DataType = override.DataType
		attribute.Normalize = override.Normalize
		attribute.ElementCount = override.ElementCount
		attribute.Semantic = override.Semantic
		attribute.CoordinateSpace = override.CoordinateSpace
		updated = true
	}

	// If nothing matched the declared attributes there is no layout change.
	if !updated {
		return
	}

	// The layout may have changed, so every value offset is recomputed.
	byteSize := uint32(0)
	for i := range m.VertexAttributes {
		m.MaterialAttributes[i].ValueIndex = byteSize
		m.MaterialAttributes[i].ValueCount = m.VertexAttributes[i].ElementCount
		byteSize += m.VertexAttributes[i].ByteSize()
	}
	m.AttributeValues = make([]byte, byteSize)

	// One more pass to copy the new values in and refresh element ids.
	for i := range overrides {
		override := &overrides[i]
		index := m.AttributeIndex(override.NameHash)
		if index == metadata.InvalidID {
			continue
		}
		materialAttribute := &m.MaterialAttributes[index]

		n := m.VertexAttributes[index].ByteSize()
		if incoming := uint32(len(override.Values)); incoming < n {
			n = incoming
		}
		copy(m.AttributeValues[materialAttribute.ValueIndex:materialAttribute.ValueIndex+n], override.Values[:n])

		if override.Name != "" {
			materialAttribute.ElementIDs = metadata.FillElementIDs(override.Name)
		}
	}

	m.VertexDeclaration = renderer.NewVertexDeclaration(m.VertexAttributes)
	m.Generation++
}

// vec4sFromFloats packs flat float components into Vec4 values, four per
// value. A trailing partial value is zero padded.
func vec4sFromFloats(components []float32) []math.Vec4 {
	values := make([]math.Vec4, 0, (len(components)+3)/4)
	for i := 0; i < len(components); i += 4 {
		var v math.Vec4
		v.X = components[i]
		if i+1 < len(components) {
			v.Y = components[i+1]
		}
		if i+2 < len(components) {
			v.Z = components[i+2]
		}
		if i+3 < len(components) {
			v.W = components[i+3]
		}
		values = append(values, v)
	}
	return values
}

// attributesFromConfig turns attribute entries of a material definition
// file into override descriptors. Entries with an unparsable data type are
// dropped with a warning.
func attributesFromConfig(materialName string, configs []metadata.MaterialAttributeConfig) []metadata.VertexAttribute {
	overrides := make([]metadata.VertexAttribute, 0, len(configs))
	for _, ac := range configs {
		dataType, err := metadata.ShaderDataTypeFromString(ac.DataType)
		if err != nil {
			core.LogWarn("material '%s' attribute '%s': %s", materialName, ac.Name, err.Error())
			continue
		}
		semantic, err := metadata.VertexAttributeSemanticFromString(ac.Semantic)
		if err != nil {
			core.LogWarn("material '%s' attribute '%s': %s", materialName, ac.Name, err.Error())
		}
		space, err := metadata.CoordinateSpaceFromString(ac.CoordinateSpace)
		if err != nil {
			core.LogWarn("material '%s' attribute '%s': %s", materialName, ac.Name, err.Error())
		}

		overrides = append(overrides, metadata.VertexAttribute{
			Name:            ac.Name,
			NameHash:        core.HashName(ac.Name),
			Semantic:        semantic,
			DataType:        dataType,
			ElementCount:    max(ac.ElementCount, 1),
			Normalize:       ac.Normalize,
			CoordinateSpace: space,
			Values:          attributeBytesFromFloats(ac.Value, dataType),
		})
	}
	return overrides
}

// attributeBytesFromFloats encodes definition-file float components as the
// attribute's base type, little endian, ready for the packed value buffer.
func attributeBytesFromFloats(components []float32, dataType metadata.ShaderDataType) []byte {
	if len(components) == 0 {
		return nil
	}
	switch dataType {
	case metadata.ShaderDataTypeInt8, metadata.ShaderDataTypeUint8:
		out := make([]byte, len(components))
		for i, c := range components {
			out[i] = byte(int64(c))
		}
		return out
	case metadata.ShaderDataTypeInt16, metadata.ShaderDataTypeUint16:
		out := make([]byte, 2*len(components))
		for i, c := range components {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(int64(c)))
		}
		return out
	case metadata.ShaderDataTypeInt32, metadata.ShaderDataTypeUint32:
		out := make([]byte, 4*len(components))
		for i, c := range components {
			binary.LittleEndian.PutUint32(out[i*4:], uint32(int64(c)))
		}
		return out
	default:
		out := make([]byte, 4*len(components))
		for i, c := range components {
			binary.LittleEndian.PutUint32(out[i*4:], mt.Float32bits(c))
		}
		return out
	}
}
