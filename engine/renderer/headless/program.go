package headless

import (
	"fmt"

	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/math"
	"github.com/spaghettifunk/pneuma/engine/renderer"
	"github.com/spaghettifunk/pneuma/engine/renderer/glsl"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

// boundTexture records a SetTexture call for one sampler location.
type boundTexture struct {
	Unit    uint32
	Texture metadata.AssetHandle
}

// program is the backend-native linked program object. Reflection runs once
// at create time by scanning the stage sources; uniform binds are recorded
// so callers can verify what reached the backend.
type program struct {
	name       string
	cullMode   metadata.FaceCullMode
	uniforms   []metadata.ShaderUniform
	attributes []metadata.VertexAttribute

	boundVec4     map[uint32][]math.Vec4
	boundMat4     map[uint32]math.Mat4
	boundTextures map[uint32]boundTexture
}

// ProgramCreate links the given stage sources. Attributes are reflected
// from the vertex stage only; uniforms from every stage, deduplicated by
// name since a uniform visible in two stages is still one binding. The
// binding location of each uniform and attribute is its position in the
// reflected list, i.e. declaration order.
func (b *Backend) ProgramCreate(config *metadata.ShaderConfig, stageSources map[metadata.ShaderStage]string) (metadata.AssetHandle, error) {
	p, err := linkProgram(config, stageSources)
	if err != nil {
		return metadata.InvalidAssetHandle, err
	}
	return b.assets.Store(p, metadata.AssetTypeProgram)
}

// ProgramReload relinks the stage sources and swaps the result in under the
// existing handle. Previously recorded uniform binds are dropped; the new
// program starts clean.
func (b *Backend) ProgramReload(handle metadata.AssetHandle, config *metadata.ShaderConfig, stageSources map[metadata.ShaderStage]string) error {
	if renderer.AssetFrom[program](b.assets, handle, metadata.AssetTypeProgram) == nil {
		return fmt.Errorf("headless: reload of invalid program handle %s", handle.String())
	}
	p, err := linkProgram(config, stageSources)
	if err != nil {
		return err
	}
	return b.assets.Replace(handle, p)
}

func linkProgram(config *metadata.ShaderConfig, stageSources map[metadata.ShaderStage]string) (*program, error) {
	if config == nil {
		return nil, fmt.Errorf("headless: program create without a config")
	}
	p := &program{
		name:          config.Name,
		cullMode:      metadata.FaceCullModeFromString(config.CullMode),
		boundVec4:     make(map[uint32][]math.Vec4),
		boundMat4:     make(map[uint32]math.Mat4),
		boundTextures: make(map[uint32]boundTexture),
	}

	if vertexSource, ok := stageSources[metadata.ShaderStageVertex]; ok {
		err := glsl.ParseAttributes(vertexSource, func(_ glsl.BindingType, name string, dataType metadata.ShaderDataType, size uint32) {
			semantic, _ := metadata.VertexAttributeSemanticFromString(name)
			p.attributes = append(p.attributes, metadata.VertexAttribute{
				Name:         name,
				NameHash:     core.HashName(name),
				Semantic:     semantic,
				DataType:     dataType,
				ElementCount: size,
			})
		})
		if err != nil {
			return nil, fmt.Errorf("headless: program %s: %w", config.Name, err)
		}
	}

	// Uniform declaration order across stages: vertex first, then fragment.
	stageOrder := []metadata.ShaderStage{metadata.ShaderStageVertex, metadata.ShaderStageFragment, metadata.ShaderStageGeometry, metadata.ShaderStageCompute}
	var reflectErr error
	for _, stage := range stageOrder {
		source, ok := stageSources[stage]
		if !ok {
			continue
		}
		err := glsl.ParseUniforms(source, func(_ glsl.BindingType, name string, dataType metadata.ShaderDataType, size uint32) {
			for i := range p.uniforms {
				if p.uniforms[i].Name != name {
					continue
				}
				if p.uniforms[i].Type != dataType && reflectErr == nil {
					reflectErr = fmt.Errorf("headless: program %s declares uniform %s as both %s and %s",
						config.Name, name, p.uniforms[i].Type.String(), dataType.String())
				}
				return
			}
			p.uniforms = append(p.uniforms, metadata.ShaderUniform{
				Name:         name,
				NameHash:     core.HashName(name),
				Type:         dataType,
				ElementCount: size,
				Location:     uint32(len(p.uniforms)),
			})
		})
		if err != nil {
			return nil, fmt.Errorf("headless: program %s: %w", config.Name, err)
		}
	}
	if reflectErr != nil {
		return nil, reflectErr
	}
	return p, nil
}

func (b *Backend) ProgramDestroy(handle metadata.AssetHandle) {
	p := renderer.AssetFrom[program](b.assets, handle, metadata.AssetTypeProgram)
	if p == nil {
		return
	}
	if b.currentProgram == handle {
		b.currentProgram = metadata.InvalidAssetHandle
	}
	b.assets.Release(handle)
}

// Reflect returns copies of the program's uniform and attribute lists so
// callers can partition and mutate them freely.
func (b *Backend) Reflect(handle metadata.AssetHandle) ([]metadata.ShaderUniform, []metadata.VertexAttribute, error) {
	p := renderer.AssetFrom[program](b.assets, handle, metadata.AssetTypeProgram)
	if p == nil {
		return nil, nil, fmt.Errorf("headless: reflect on invalid program handle %s", handle.String())
	}
	uniforms := make([]metadata.ShaderUniform, len(p.uniforms))
	copy(uniforms, p.uniforms)
	attributes := make([]metadata.VertexAttribute, len(p.attributes))
	copy(attributes, p.attributes)
	return uniforms, attributes, nil
}

func (b *Backend) ProgramUse(handle metadata.AssetHandle) error {
	if renderer.AssetFrom[program](b.assets, handle, metadata.AssetTypeProgram) == nil {
		return fmt.Errorf("headless: cannot use invalid program handle %s", handle.String())
	}
	b.currentProgram = handle
	return nil
}

func (b *Backend) SetConstantVec4(handle metadata.AssetHandle, location uint32, values []math.Vec4) error {
	p, err := b.programForUniform(handle, location)
	if err != nil {
		return err
	}
	p.boundVec4[location] = append([]math.Vec4(nil), values...)
	return nil
}

func (b *Backend) SetConstantMat4(handle metadata.AssetHandle, location uint32, value math.Mat4) error {
	p, err := b.programForUniform(handle, location)
	if err != nil {
		return err
	}
	p.boundMat4[location] = value
	return nil
}

func (b *Backend) SetTexture(handle metadata.AssetHandle, location uint32, unit uint32, textureHandle metadata.AssetHandle) error {
	p, err := b.programForUniform(handle, location)
	if err != nil {
		return err
	}
	if renderer.AssetFrom[texture](b.assets, textureHandle, metadata.AssetTypeTexture) == nil {
		return fmt.Errorf("headless: program %s: binding invalid texture handle %s to unit %d", p.name, textureHandle.String(), unit)
	}
	p.boundTextures[location] = boundTexture{Unit: unit, Texture: textureHandle}
	return nil
}

// BoundVec4 returns the last vec4 values bound at location, for callers
// verifying constant application.
func (b *Backend) BoundVec4(handle metadata.AssetHandle, location uint32) ([]math.Vec4, bool) {
	p := renderer.AssetFrom[program](b.assets, handle, metadata.AssetTypeProgram)
	if p == nil {
		return nil, false
	}
	values, ok := p.boundVec4[location]
	return values, ok
}

// BoundMat4 returns the last mat4 bound at location.
func (b *Backend) BoundMat4(handle metadata.AssetHandle, location uint32) (math.Mat4, bool) {
	p := renderer.AssetFrom[program](b.assets, handle, metadata.AssetTypeProgram)
	if p == nil {
		return math.NewMat4Identity(), false
	}
	value, ok := p.boundMat4[location]
	return value, ok
}

// ProgramCullMode returns the face cull mode the program was linked with.
func (b *Backend) ProgramCullMode(handle metadata.AssetHandle) (metadata.FaceCullMode, bool) {
	p := renderer.AssetFrom[program](b.assets, handle, metadata.AssetTypeProgram)
	if p == nil {
		return metadata.FaceCullModeNone, false
	}
	return p.cullMode, true
}

// BoundTexture returns the last texture bound at location.
func (b *Backend) BoundTexture(handle metadata.AssetHandle, location uint32) (metadata.AssetHandle, uint32, bool) {
	p := renderer.AssetFrom[program](b.assets, handle, metadata.AssetTypeProgram)
	if p == nil {
		return metadata.InvalidAssetHandle, 0, false
	}
	bound, ok := p.boundTextures[location]
	return bound.Texture, bound.Unit, ok
}

func (b *Backend) programForUniform(handle metadata.AssetHandle, location uint32) (*program, error) {
	p := renderer.AssetFrom[program](b.assets, handle, metadata.AssetTypeProgram)
	if p == nil {
		return nil, fmt.Errorf("headless: uniform bind on invalid program handle %s", handle.String())
	}
	for i := range p.uniforms {
		if p.uniforms[i].Location == location {
			return p, nil
		}
	}
	return nil, fmt.Errorf("headless: program %s has no uniform at location %d", p.name, location)
}
