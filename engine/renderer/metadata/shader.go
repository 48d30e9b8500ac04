package metadata

import (
	"fmt"

	"github.com/spaghettifunk/pneuma/engine/core"
)

/**
 * @brief Represents the current state of a given shader program.
 */
type ShaderState int

const (
	/** @brief The shader has not yet gone through the creation process, and is unusable.*/
	SHADER_STATE_NOT_CREATED ShaderState = iota
	/** @brief The shader has gone through the creation process, but not initialization. It is unusable.*/
	SHADER_STATE_UNINITIALIZED
	/** @brief The shader is created and initialized, and is ready for use.*/
	SHADER_STATE_INITIALIZED
)

/** @brief The data types a shader binding can declare. */
type ShaderDataType uint8

const (
	ShaderDataTypeNone ShaderDataType = iota
	ShaderDataTypeFloat32
	ShaderDataTypeFloat32_2
	ShaderDataTypeFloat32_3
	ShaderDataTypeFloat32_4
	ShaderDataTypeMatrix2
	ShaderDataTypeMatrix3
	ShaderDataTypeMatrix4
	ShaderDataTypeInt8
	ShaderDataTypeUint8
	ShaderDataTypeInt16
	ShaderDataTypeUint16
	ShaderDataTypeInt32
	ShaderDataTypeUint32
	ShaderDataTypeSampler2D
	ShaderDataTypeSamplerCube
	ShaderDataTypeSampler2DArray
)

/**
 * @brief Size returns the byte size of one element of the type.
 * Sampler types occupy no bytes in a value buffer.
 */
func (t ShaderDataType) Size() uint32 {
	switch t {
	case ShaderDataTypeFloat32:
		return 4
	case ShaderDataTypeFloat32_2:
		return 8
	case ShaderDataTypeFloat32_3:
		return 12
	case ShaderDataTypeFloat32_4:
		return 16
	case ShaderDataTypeMatrix2:
		return 16
	case ShaderDataTypeMatrix3:
		return 36
	case ShaderDataTypeMatrix4:
		return 64
	case ShaderDataTypeInt8, ShaderDataTypeUint8:
		return 1
	case ShaderDataTypeInt16, ShaderDataTypeUint16:
		return 2
	case ShaderDataTypeInt32, ShaderDataTypeUint32:
		return 4
	}
	return 0
}

// ComponentCount returns how many scalar components the type exposes for
// sub-element addressing (.x/.y/.z/.w). Matrices and samplers expose none.
func (t ShaderDataType) ComponentCount() uint32 {
	switch t {
	case ShaderDataTypeFloat32, ShaderDataTypeInt8, ShaderDataTypeUint8,
		ShaderDataTypeInt16, ShaderDataTypeUint16, ShaderDataTypeInt32, ShaderDataTypeUint32:
		return 1
	case ShaderDataTypeFloat32_2:
		return 2
	case ShaderDataTypeFloat32_3:
		return 3
	case ShaderDataTypeFloat32_4:
		return 4
	}
	return 0
}

// IsSampler reports whether the type consumes a texture unit.
func (t ShaderDataType) IsSampler() bool {
	switch t {
	case ShaderDataTypeSampler2D, ShaderDataTypeSamplerCube, ShaderDataTypeSampler2DArray:
		return true
	}
	return false
}

// Vec4Count returns how many Vec4 slots one element of the type occupies in
// a constant's CPU value list. Scalar and vector types fit in one slot,
// matrices span one slot per row. Samplers occupy none.
func (t ShaderDataType) Vec4Count() uint32 {
	switch t {
	case ShaderDataTypeMatrix2:
		return 1
	case ShaderDataTypeMatrix3:
		return 3
	case ShaderDataTypeMatrix4:
		return 4
	case ShaderDataTypeNone:
		return 0
	}
	if t.IsSampler() {
		return 0
	}
	return 1
}

// TextureType returns the texture type a sampler type binds. The second
// return is false for non-sampler types.
func (t ShaderDataType) TextureType() (TextureType, bool) {
	switch t {
	case ShaderDataTypeSampler2D:
		return TextureType2d, true
	case ShaderDataTypeSamplerCube:
		return TextureTypeCube, true
	case ShaderDataTypeSampler2DArray:
		return TextureType2dArray, true
	}
	return TextureType2d, false
}

func (t ShaderDataType) String() string {
	switch t {
	case ShaderDataTypeFloat32:
		return "float"
	case ShaderDataTypeFloat32_2:
		return "vec2"
	case ShaderDataTypeFloat32_3:
		return "vec3"
	case ShaderDataTypeFloat32_4:
		return "vec4"
	case ShaderDataTypeMatrix2:
		return "mat2"
	case ShaderDataTypeMatrix3:
		return "mat3"
	case ShaderDataTypeMatrix4:
		return "mat4"
	case ShaderDataTypeInt8:
		return "i8"
	case ShaderDataTypeUint8:
		return "u8"
	case ShaderDataTypeInt16:
		return "i16"
	case ShaderDataTypeUint16:
		return "u16"
	case ShaderDataTypeInt32:
		return "int"
	case ShaderDataTypeUint32:
		return "uint"
	case ShaderDataTypeSampler2D:
		return "sampler2D"
	case ShaderDataTypeSamplerCube:
		return "samplerCube"
	case ShaderDataTypeSampler2DArray:
		return "sampler2DArray"
	}
	return "none"
}

// ShaderDataTypeFromString parses the names used by shader sources and
// material/shader definition files.
func ShaderDataTypeFromString(s string) (ShaderDataType, error) {
	switch s {
	case "float":
		return ShaderDataTypeFloat32, nil
	case "vec2":
		return ShaderDataTypeFloat32_2, nil
	case "vec3":
		return ShaderDataTypeFloat32_3, nil
	case "vec4":
		return ShaderDataTypeFloat32_4, nil
	case "mat2":
		return ShaderDataTypeMatrix2, nil
	case "mat3":
		return ShaderDataTypeMatrix3, nil
	case "mat4":
		return ShaderDataTypeMatrix4, nil
	case "i8":
		return ShaderDataTypeInt8, nil
	case "u8":
		return ShaderDataTypeUint8, nil
	case "i16":
		return ShaderDataTypeInt16, nil
	case "u16":
		return ShaderDataTypeUint16, nil
	case "int":
		return ShaderDataTypeInt32, nil
	case "uint":
		return ShaderDataTypeUint32, nil
	case "sampler2D":
		return ShaderDataTypeSampler2D, nil
	case "samplerCube":
		return ShaderDataTypeSamplerCube, nil
	case "sampler2DArray":
		return ShaderDataTypeSampler2DArray, nil
	}
	return ShaderDataTypeNone, fmt.Errorf("string %s is not a valid ShaderDataType", s)
}

/** @brief The engine-level meaning of a vertex attribute. */
type VertexAttributeSemantic uint8

const (
	VertexAttributeSemanticNone VertexAttributeSemantic = iota
	VertexAttributeSemanticPosition
	VertexAttributeSemanticNormal
	VertexAttributeSemanticTangent
	VertexAttributeSemanticColor
	VertexAttributeSemanticTexcoord
	VertexAttributeSemanticWorldMatrix
	VertexAttributeSemanticNormalMatrix
)

func VertexAttributeSemanticFromString(s string) (VertexAttributeSemantic, error) {
	switch s {
	case "", "none":
		return VertexAttributeSemanticNone, nil
	case "position":
		return VertexAttributeSemanticPosition, nil
	case "normal":
		return VertexAttributeSemanticNormal, nil
	case "tangent":
		return VertexAttributeSemanticTangent, nil
	case "color":
		return VertexAttributeSemanticColor, nil
	case "texcoord":
		return VertexAttributeSemanticTexcoord, nil
	case "world_matrix":
		return VertexAttributeSemanticWorldMatrix, nil
	case "normal_matrix":
		return VertexAttributeSemanticNormalMatrix, nil
	}
	return VertexAttributeSemanticNone, fmt.Errorf("string %s is not a valid VertexAttributeSemantic", s)
}

/** @brief The space attribute values are expressed in. */
type CoordinateSpace uint8

const (
	CoordinateSpaceDefault CoordinateSpace = iota
	CoordinateSpaceWorld
	CoordinateSpaceLocal
)

func CoordinateSpaceFromString(s string) (CoordinateSpace, error) {
	switch s {
	case "", "default":
		return CoordinateSpaceDefault, nil
	case "world":
		return CoordinateSpaceWorld, nil
	case "local":
		return CoordinateSpaceLocal, nil
	}
	return CoordinateSpaceDefault, fmt.Errorf("string %s is not a valid CoordinateSpace", s)
}

/**
 * @brief Describes one vertex attribute of a program, either produced by
 * reflection or supplied by a caller as an override.
 *
 * The position of a descriptor in its backing array determines its byte
 * offset in the packed value buffer and in the vertex stream layout, so
 * reordering requires recomputing every offset.
 */
type VertexAttribute struct {
	/** @brief The declared attribute name. */
	Name string
	/** @brief Hash of Name, the runtime lookup key. */
	NameHash core.NameHash
	/** @brief The engine-level meaning of the attribute. */
	Semantic VertexAttributeSemantic
	/** @brief The declared data type of one element. */
	DataType ShaderDataType
	/** @brief Array length; 1 for non-arrays. Zero-element attributes are skipped by layout building. */
	ElementCount uint32
	/** @brief Whether integer data is normalized when fed to the program. */
	Normalize bool
	/** @brief The space the values are expressed in. */
	CoordinateSpace CoordinateSpace
	/** @brief Raw default value bytes, laid out as DataType elements back to back. May be nil. */
	Values []byte
}

// ByteSize returns the packed size of this attribute's value region.
func (a *VertexAttribute) ByteSize() uint32 {
	return a.DataType.Size() * a.ElementCount
}

/**
 * @brief Per-attribute runtime bookkeeping for one material instance.
 * ValueIndex offsets are contiguous and monotonically increasing over the
 * packed value buffer; the buffer holds no gaps and no padding beyond
 * natural type size.
 */
type MaterialAttribute struct {
	/** @brief The attribute location (declaration order index). */
	Location uint32
	/** @brief Byte offset of this attribute's value region in the packed buffer. */
	ValueIndex uint32
	/** @brief Array length of the value region. */
	ValueCount uint32
	/** @brief Hashes of "name.x" .. "name.w" for per-component addressing. */
	ElementIDs [4]core.NameHash
}

/**
 * @brief One uniform binding reported by program reflection.
 */
type ShaderUniform struct {
	/** @brief The declared uniform name. */
	Name string
	/** @brief Hash of Name. */
	NameHash core.NameHash
	/** @brief The declared data type. */
	Type ShaderDataType
	/** @brief Array length; 1 for non-arrays. */
	ElementCount uint32
	/** @brief The binding location, equal to the declaration order index. */
	Location uint32
}

/** @brief One packed stream of a vertex declaration. */
type VertexStream struct {
	Name     string
	NameHash core.NameHash
	/** @brief Byte offset of the stream from the start of a vertex. */
	Offset uint32
	/** @brief Byte size of the stream. */
	Size      uint32
	DataType  ShaderDataType
	Normalize bool
}

/**
 * @brief A computed vertex layout: tightly packed streams and the total
 * stride. No alignment padding is inserted between streams even where a
 * backend would conventionally expect 4-byte alignment; this layout is
 * deliberately byte-exact with the packed value buffer.
 */
type VertexDeclaration struct {
	Streams []VertexStream
	Stride  uint32
}

/** @brief Shader stages available in the system. */
type ShaderStage int

const (
	ShaderStageVertex   ShaderStage = 0x00000001
	ShaderStageGeometry ShaderStage = 0x00000002
	ShaderStageFragment ShaderStage = 0x00000004
	ShaderStageCompute  ShaderStage = 0x0000008
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageGeometry:
		return "geometry"
	case ShaderStageFragment:
		return "fragment"
	case ShaderStageCompute:
		return "compute"
	}
	return "unknown"
}

func ShaderStageFromString(s string) (ShaderStage, error) {
	switch s {
	case "vertex":
		return ShaderStageVertex, nil
	case "geometry":
		return ShaderStageGeometry, nil
	case "fragment":
		return ShaderStageFragment, nil
	case "compute":
		return ShaderStageCompute, nil
	}
	return 0, fmt.Errorf("string %s is not a valid ShaderStage", s)
}

/** @brief The name of the builtin world shader. */
const BuiltinShaderNameWorld string = "Shader.Builtin.World"

/**
 * @brief Represents a shader program on the frontend.
 */
type Shader struct {
	/** @brief The shader identifier */
	ID uint32

	Name string

	/** @brief The program object held by the backend container. */
	ProgramHandle AssetHandle

	/** @brief The face cull mode the program is rasterized with. */
	CullMode FaceCullMode

	/** @brief Uniform bindings in declaration order, plain constants and samplers alike. */
	Uniforms []ShaderUniform

	/** @brief Attribute bindings in declaration order. */
	Attributes []VertexAttribute

	/** @brief A hashtable to store uniform locations by name hash. */
	UniformLookup map[core.NameHash]uint32

	/** @brief The internal State of the shader. */
	State ShaderState

	/** @brief Incremented every time the program sources are reloaded. */
	Generation uint32
}

/** @brief Configuration for one stage of a shader, loaded from a .shader.toml resource. */
type ShaderStageConfig struct {
	/** @brief The stage name: "vertex", "geometry", "fragment" or "compute". */
	Stage string `toml:"stage"`
	/** @brief The GLSL source file, relative to the shader directory. */
	Filename string `toml:"filename"`
}

/**
 * @brief Configuration for a shader. Typically created and destroyed by the
 * shader resource loader from a .shader.toml resource file.
 */
type ShaderConfig struct {
	/** @brief The name of the shader to be created. */
	Name string `toml:"name"`
	/** @brief The face cull mode: "none", "front", "back", "front_and_back". Default is back. */
	CullMode string `toml:"cull_mode"`
	/** @brief The collection of stages. */
	Stages []ShaderStageConfig `toml:"stages"`
}

/** @brief One stage's GLSL source, resolved by the shader loader. */
type ShaderStageSource struct {
	Stage    ShaderStage
	Filename string
	Source   string
}

/**
 * @brief A fully resolved shader resource: the parsed configuration plus
 * every stage's source text, ready for program creation.
 */
type ShaderResourceData struct {
	Config *ShaderConfig
	Stages []ShaderStageSource
}
