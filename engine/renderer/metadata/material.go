package metadata

import (
	"fmt"

	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/math"
)

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

/**
 * @brief Determines where a constant's value comes from at bind time. User
 * constants carry CPU-side values set through the material; the rest are
 * computed by the engine from the draw call's transforms and the render
 * context matrices.
 */
type ConstantType uint8

const (
	ConstantTypeUser ConstantType = iota
	ConstantTypeViewProjection
	ConstantTypeWorld
	ConstantTypeTexture
	ConstantTypeView
	ConstantTypeProjection
	ConstantTypeNormal
	ConstantTypeWorldView
	ConstantTypeWorldViewProjection
	ConstantTypeUserMatrix4
)

func (c ConstantType) String() string {
	switch c {
	case ConstantTypeUser:
		return "user"
	case ConstantTypeViewProjection:
		return "view_projection"
	case ConstantTypeWorld:
		return "world"
	case ConstantTypeTexture:
		return "texture"
	case ConstantTypeView:
		return "view"
	case ConstantTypeProjection:
		return "projection"
	case ConstantTypeNormal:
		return "normal"
	case ConstantTypeWorldView:
		return "world_view"
	case ConstantTypeWorldViewProjection:
		return "world_view_projection"
	case ConstantTypeUserMatrix4:
		return "user_matrix4"
	}
	return "unknown"
}

func ConstantTypeFromString(s string) (ConstantType, error) {
	switch s {
	case "", "user":
		return ConstantTypeUser, nil
	case "view_projection":
		return ConstantTypeViewProjection, nil
	case "world":
		return ConstantTypeWorld, nil
	case "texture":
		return ConstantTypeTexture, nil
	case "view":
		return ConstantTypeView, nil
	case "projection":
		return ConstantTypeProjection, nil
	case "normal":
		return ConstantTypeNormal, nil
	case "world_view":
		return ConstantTypeWorldView, nil
	case "world_view_projection":
		return ConstantTypeWorldViewProjection, nil
	case "user_matrix4":
		return ConstantTypeUserMatrix4, nil
	}
	return ConstantTypeUser, fmt.Errorf("string %s is not a valid ConstantType", s)
}

/**
 * @brief A named shader uniform bound to a CPU-side value list. A constant
 * addressed through one of its element ids reads or writes a single
 * component of the first value.
 */
type RenderConstant struct {
	/** @brief The declared uniform name. */
	Name string
	/** @brief Hash of Name. */
	NameHash core.NameHash
	/** @brief Where the value comes from at bind time. */
	Type ConstantType
	/** @brief The declared uniform data type. */
	DataType ShaderDataType
	/** @brief The resolved uniform location. */
	Location uint32
	/** @brief Hashes of "name.x" .. "name.w". */
	ElementIDs [4]core.NameHash
	/** @brief The CPU-side values; one Vec4 per declared element. */
	Values []math.Vec4
}

/**
 * @brief One texture-unit-consuming uniform of a material.
 */
type MaterialSampler struct {
	/** @brief The declared sampler name. */
	Name string
	/** @brief Hash of Name. */
	NameHash core.NameHash
	/** @brief The declared sampler type. */
	Type ShaderDataType
	/** @brief The resolved uniform location. */
	Location uint32
	/** @brief The texture unit the sampler is bound to. */
	Unit uint32
	/** @brief Array length of the sampler uniform; 1 for non-arrays. */
	UnitValueCount uint32
	/** @brief Texture filtering mode for minification. */
	FilterMinify TextureFilter
	/** @brief Texture filtering mode for magnification. */
	FilterMagnify TextureFilter
	/** @brief The repeat mode on the U axis (or X, or S) */
	RepeatU TextureRepeat
	/** @brief The repeat mode on the V axis (or Y, or T) */
	RepeatV TextureRepeat
	/** @brief The repeat mode on the W axis (or Z, or U) */
	RepeatW TextureRepeat
	/** @brief The maximum anisotropy level, 0 to disable. */
	MaxAnisotropy float32
	/** @brief The texture currently bound to the unit, if any. */
	TextureHandle AssetHandle
	/** @brief The name of the texture acquired for the sampler, if any. */
	TextureName string
}

type MaterialReference struct {
	ReferenceCount uint64
	Handle         uint32
	AutoRelease    bool
}

/** @brief Wrap/filter parameters applied when binding a sampler. */
type SamplerParams struct {
	FilterMinify  TextureFilter
	FilterMagnify TextureFilter
	RepeatU       TextureRepeat
	RepeatV       TextureRepeat
	RepeatW       TextureRepeat
	MaxAnisotropy float32
}

/** @brief Constant override in a material definition file. */
type MaterialConstantConfig struct {
	Name string `toml:"name"`
	/** @brief A ConstantType name; empty means user. */
	Type string `toml:"type"`
	/** @brief Value components, consumed four floats per element. */
	Value []float32 `toml:"value"`
}

/** @brief Sampler state in a material definition file. */
type MaterialSamplerConfig struct {
	Name          string `toml:"name"`
	TextureName   string `toml:"texture"`
	FilterMinify  string `toml:"filter_min"`
	FilterMagnify string `toml:"filter_mag"`
	RepeatU       string `toml:"repeat_u"`
	RepeatV       string `toml:"repeat_v"`
	RepeatW       string `toml:"repeat_w"`
	MaxAnisotropy float32 `toml:"max_anisotropy"`
}

/** @brief Attribute override in a material definition file. */
type MaterialAttributeConfig struct {
	Name string `toml:"name"`
	/** @brief A ShaderDataType name, e.g. "vec3". */
	DataType string `toml:"data_type"`
	/** @brief Array length; defaults to 1. */
	ElementCount uint32 `toml:"element_count"`
	Normalize    bool   `toml:"normalize"`
	/** @brief A VertexAttributeSemantic name. */
	Semantic string `toml:"semantic"`
	/** @brief A CoordinateSpace name. */
	CoordinateSpace string `toml:"coordinate_space"`
	/** @brief Default value components, consumed DataType-wise. */
	Value []float32 `toml:"value"`
}

/**
 * @brief Material configuration, loaded from a .material.toml resource file
 * or created in code.
 */
type MaterialConfig struct {
	/** @brief The name of the material. */
	Name string `toml:"name"`
	/** @brief The shader the material binds to. */
	ShaderName string `toml:"shader"`
	/** @brief Indicates if the material should be automatically released when no references to it remain. */
	AutoRelease bool `toml:"auto_release"`
	/** @brief Variant selection tags. Interned sorted at load time. */
	Tags []string `toml:"tags"`
	/** @brief Constant overrides applied after reflection. */
	Constants []MaterialConstantConfig `toml:"constants"`
	/** @brief Sampler states applied after reflection. */
	Samplers []MaterialSamplerConfig `toml:"samplers"`
	/** @brief Attribute default overrides applied after reflection. */
	Attributes []MaterialAttributeConfig `toml:"attributes"`
}

/**
 * @brief A material: one shader program plus the CPU-side store of its
 * bindable state. Constants and samplers are fixed once the material is
 * built against the program's reflection data; attribute descriptors can be
 * overridden afterwards, which re-lays out the packed value buffer.
 */
type Material struct {
	/** @brief The material id. */
	ID uint32
	/** @brief Incremented every time the material's layout is rebuilt. */
	Generation uint32
	/** @brief The material name. */
	Name string
	/** @brief The id of the shader the material was built against. */
	ShaderID uint32
	/** @brief The program object held by the backend container. */
	ProgramHandle AssetHandle
	/** @brief Attribute descriptors in declaration order. */
	VertexAttributes []VertexAttribute
	/** @brief Per-attribute value offsets, parallel to VertexAttributes. */
	MaterialAttributes []MaterialAttribute
	/** @brief Packed default attribute values, one contiguous region per attribute. */
	AttributeValues []byte
	/** @brief The stream layout derived from VertexAttributes. */
	VertexDeclaration *VertexDeclaration
	/** @brief Value-carrying uniforms in declaration order. */
	Constants []RenderConstant
	/** @brief Texture-unit-consuming uniforms in declaration order. */
	Samplers []MaterialSampler
	/** @brief Uniform location by name hash, constants and samplers alike. */
	LocationLookup map[core.NameHash]uint32
	/** @brief Key of the interned tag list; zero when untagged. */
	TagListKey uint32
	/** @brief Synced to the renderer's frame number when the material has been applied that frame. */
	RenderFrameNumber uint64
}

/**
 * @brief Resolved view of one material attribute, addressed by its full name
 * or by one of its ".x" through ".w" element names. Value aliases the
 * material's packed buffer region, so writes through it change the stored
 * defaults.
 */
type MaterialAttributeInfo struct {
	/** @brief Hash of the attribute's full name. */
	NameHash core.NameHash
	/** @brief The matched attribute descriptor. */
	Attribute *VertexAttribute
	/** @brief Element ids of the attribute. */
	ElementIDs [4]core.NameHash
	/** @brief Which element matched; 0 for a full-name match. */
	ElementIndex uint32
	/** @brief The attribute's region of the packed value buffer. */
	Value []byte
}

// FillElementIDs derives the per-component lookup ids of a binding name,
// the hashes of "name.x" through "name.w".
func FillElementIDs(name string) [4]core.NameHash {
	return [4]core.NameHash{
		core.HashName(name + ".x"),
		core.HashName(name + ".y"),
		core.HashName(name + ".z"),
		core.HashName(name + ".w"),
	}
}

// AttributeIndex returns the index of the attribute with the given name
// hash, or InvalidID.
func (m *Material) AttributeIndex(nameHash core.NameHash) uint32 {
	for i := range m.VertexAttributes {
		if m.VertexAttributes[i].NameHash == nameHash {
			return uint32(i)
		}
	}
	return InvalidID
}

/**
 * @brief Resolves an attribute by its full name hash or one of its element
 * ids. The returned value slice is capped to the attribute's region.
 */
func (m *Material) GetAttributeInfo(nameHash core.NameHash) (MaterialAttributeInfo, bool) {
	for i := range m.VertexAttributes {
		attribute := &m.VertexAttributes[i]
		materialAttribute := &m.MaterialAttributes[i]

		found := false
		elementIndex := uint32(0)
		if attribute.NameHash == nameHash {
			found = true
		} else {
			for e := uint32(0); e < 4; e++ {
				if materialAttribute.ElementIDs[e] == nameHash {
					elementIndex = e
					found = true
					break
				}
			}
		}
		if !found {
			continue
		}

		start := materialAttribute.ValueIndex
		end := start + attribute.ByteSize()
		return MaterialAttributeInfo{
			NameHash:     attribute.NameHash,
			Attribute:    attribute,
			ElementIDs:   materialAttribute.ElementIDs,
			ElementIndex: elementIndex,
			Value:        m.AttributeValues[start:end:end],
		}, true
	}
	return MaterialAttributeInfo{}, false
}

// AttributeValueBytes returns the packed value region of the attribute at
// the given index.
func (m *Material) AttributeValueBytes(index uint32) []byte {
	materialAttribute := &m.MaterialAttributes[index]
	start := materialAttribute.ValueIndex
	end := start + m.VertexAttributes[index].ByteSize()
	return m.AttributeValues[start:end:end]
}

/**
 * @brief Resolves a constant by its full name hash or one of its element
 * ids. The element index is InvalidID for a full-name match.
 */
func (m *Material) GetConstant(nameHash core.NameHash) (*RenderConstant, uint32, bool) {
	if nameHash == core.InvalidNameHash {
		return nil, InvalidID, false
	}
	for i := range m.Constants {
		c := &m.Constants[i]
		if c.NameHash == nameHash {
			return c, InvalidID, true
		}
		for e := uint32(0); e < 4; e++ {
			if c.ElementIDs[e] == nameHash {
				return c, e, true
			}
		}
	}
	return nil, InvalidID, false
}

/**
 * @brief Overwrites the CPU-side value list of the named constant. Unknown
 * names are ignored so callers can push shared values at many materials
 * without probing each one first. Values beyond the constant's capacity are
 * dropped.
 */
func (m *Material) SetConstant(nameHash core.NameHash, values []math.Vec4) {
	for i := range m.Constants {
		c := &m.Constants[i]
		if c.NameHash != nameHash {
			continue
		}
		n := len(values)
		if n > len(c.Values) {
			core.LogWarn("constant '%s' holds %d values, ignoring %d extra", c.Name, len(c.Values), n-len(c.Values))
			n = len(c.Values)
		}
		copy(c.Values, values[:n])
		return
	}
}

// SetConstantType switches where the named constant's value comes from at
// bind time. Unknown names are ignored.
func (m *Material) SetConstantType(nameHash core.NameHash, constantType ConstantType) {
	for i := range m.Constants {
		if m.Constants[i].NameHash == nameHash {
			m.Constants[i].Type = constantType
			return
		}
	}
}

// Sampler returns the sampler with the given name hash, or nil.
func (m *Material) Sampler(nameHash core.NameHash) *MaterialSampler {
	for i := range m.Samplers {
		if m.Samplers[i].NameHash == nameHash {
			return &m.Samplers[i]
		}
	}
	return nil
}

// SamplerUnit returns the texture unit the named sampler is bound to.
func (m *Material) SamplerUnit(nameHash core.NameHash) (uint32, bool) {
	if s := m.Sampler(nameHash); s != nil {
		return s.Unit, true
	}
	return 0, false
}

/**
 * @brief Moves the named sampler to a texture unit and applies wrap and
 * filter parameters. Returns false when the material has no sampler with
 * that name.
 */
func (m *Material) BindSampler(nameHash core.NameHash, unit uint32, params *SamplerParams) bool {
	s := m.Sampler(nameHash)
	if s == nil {
		return false
	}
	s.Unit = unit
	if params != nil {
		s.FilterMinify = params.FilterMinify
		s.FilterMagnify = params.FilterMagnify
		s.RepeatU = params.RepeatU
		s.RepeatV = params.RepeatV
		s.RepeatW = params.RepeatW
		s.MaxAnisotropy = params.MaxAnisotropy
	}
	return true
}

/**
 * @brief Reports whether the given texture can be bound to this sampler.
 * The texture type must match the sampler's declared type, and an array
 * texture must fit in the sampler's bind slots. Mismatches are logged at
 * the point of detection.
 */
func (s *MaterialSampler) CanBind(texture *Texture) bool {
	if texture == nil {
		core.LogError("unable to bind a nil texture to sampler '%s' (texture unit %d)", s.Name, s.Unit)
		return false
	}
	expected, ok := s.Type.TextureType()
	if !ok {
		core.LogError("'%s' has non-sampler type %s, refusing to bind texture '%s'", s.Name, s.Type, texture.Name)
		return false
	}
	if texture.TextureType != expected {
		core.LogError("unable to bind texture '%s' of type %s to sampler '%s' of type %s (texture unit %d)",
			texture.Name, texture.TextureType, s.Name, s.Type, s.Unit)
		return false
	}
	if s.UnitValueCount > 1 && texture.LayerCount > s.UnitValueCount {
		core.LogError("unable to bind texture '%s' with %d layers to sampler '%s' with %d bind slots",
			texture.Name, texture.LayerCount, s.Name, s.UnitValueCount)
		return false
	}
	return true
}

/**
 * @brief The uniform-binding surface a material drives when its state is
 * applied. Satisfied by the renderer backend.
 */
type ConstantBinder interface {
	SetConstantVec4(program AssetHandle, location uint32, values []math.Vec4) error
	SetConstantMat4(program AssetHandle, location uint32, value math.Mat4) error
	SetTexture(program AssetHandle, location uint32, unit uint32, texture AssetHandle) error
}

/**
 * @brief Pushes every constant of the material at the binder.
 * Engine-computed constant types take their matrices from the render
 * context and the draw call; user constants push the stored value list.
 */
func (m *Material) ApplyConstants(binder ConstantBinder, ctx *RenderContext, draw *DrawCall) error {
	for i := range m.Constants {
		if err := m.applyConstant(binder, &m.Constants[i], ctx, draw); err != nil {
			return fmt.Errorf("material '%s': %w", m.Name, err)
		}
	}
	return nil
}

func (m *Material) applyConstant(binder ConstantBinder, c *RenderConstant, ctx *RenderContext, draw *DrawCall) error {
	switch c.Type {
	case ConstantTypeUser:
		if c.DataType == ShaderDataTypeMatrix4 {
			value, err := mat4FromValues(c)
			if err != nil {
				return err
			}
			return binder.SetConstantMat4(m.ProgramHandle, c.Location, value)
		}
		return binder.SetConstantVec4(m.ProgramHandle, c.Location, c.Values)
	case ConstantTypeUserMatrix4:
		value, err := mat4FromValues(c)
		if err != nil {
			return err
		}
		return binder.SetConstantMat4(m.ProgramHandle, c.Location, value)
	}

	if ctx == nil || draw == nil {
		return fmt.Errorf("constant '%s' of type %s needs a render context and a draw call", c.Name, c.Type)
	}

	switch c.Type {
	case ConstantTypeWorld:
		return binder.SetConstantMat4(m.ProgramHandle, c.Location, draw.World)
	case ConstantTypeTexture:
		return binder.SetConstantMat4(m.ProgramHandle, c.Location, draw.TextureTransform)
	case ConstantTypeView:
		return binder.SetConstantMat4(m.ProgramHandle, c.Location, ctx.View)
	case ConstantTypeProjection:
		return binder.SetConstantMat4(m.ProgramHandle, c.Location, ctx.Projection)
	case ConstantTypeViewProjection:
		return binder.SetConstantMat4(m.ProgramHandle, c.Location, ctx.View.Mul(ctx.Projection))
	case ConstantTypeWorldView:
		return binder.SetConstantMat4(m.ProgramHandle, c.Location, draw.World.Mul(ctx.View))
	case ConstantTypeWorldViewProjection:
		return binder.SetConstantMat4(m.ProgramHandle, c.Location, draw.World.Mul(ctx.View).Mul(ctx.Projection))
	case ConstantTypeNormal:
		normal := math.NewMat4Transposed(draw.World.Mul(ctx.View).Inverse())
		return binder.SetConstantMat4(m.ProgramHandle, c.Location, normal)
	}
	return fmt.Errorf("constant '%s' has unsupported type %d", c.Name, c.Type)
}

/**
 * @brief Binds every sampler that has a texture to its unit. Samplers
 * without a texture are skipped; callers that need a fallback assign the
 * default texture before applying.
 */
func (m *Material) ApplySamplers(binder ConstantBinder) error {
	for i := range m.Samplers {
		s := &m.Samplers[i]
		if s.TextureHandle == InvalidAssetHandle {
			continue
		}
		if err := binder.SetTexture(m.ProgramHandle, s.Location, s.Unit, s.TextureHandle); err != nil {
			return fmt.Errorf("material '%s' sampler '%s': %w", m.Name, s.Name, err)
		}
	}
	return nil
}

// mat4FromValues reinterprets a constant's first four Vec4 values as the
// rows of a matrix.
func mat4FromValues(c *RenderConstant) (math.Mat4, error) {
	if len(c.Values) < 4 {
		return math.Mat4{}, fmt.Errorf("matrix constant '%s' needs 4 values, has %d", c.Name, len(c.Values))
	}
	out := math.Mat4{}
	for i := 0; i < 4; i++ {
		out.Data[i*4+0] = c.Values[i].X
		out.Data[i*4+1] = c.Values[i].Y
		out.Data[i*4+2] = c.Values[i].Z
		out.Data[i*4+3] = c.Values[i].W
	}
	return out, nil
}
