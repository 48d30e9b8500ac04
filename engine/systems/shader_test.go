package systems

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/pneuma/engine/assets"
	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/renderer/headless"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

const testVertexSource = `#version 450

layout(location = 0) in vec3 position;
layout(location = 1) in vec2 texcoord;

uniform mat4 view_proj;
uniform mat4 model;

out vec2 frag_texcoord;

void main() {
	frag_texcoord = texcoord;
	gl_Position = view_proj * model * vec4(position, 1.0);
}
`

const testFragmentSource = `#version 450

in vec2 frag_texcoord;

uniform vec4 diffuse_colour;
uniform sampler2D diffuse_texture;

out vec4 out_colour;

void main() {
	out_colour = diffuse_colour * texture(diffuse_texture, frag_texcoord);
}
`

func writeShaderFiles(t *testing.T, root, name, vertexSource, fragmentSource string) {
	t.Helper()
	shaderDir := filepath.Join(root, "shaders")
	require.NoError(t, os.MkdirAll(shaderDir, 0o755))

	definition := "name = \"" + name + "\"\n" +
		"cull_mode = \"back\"\n\n" +
		"[[stages]]\n" +
		"stage = \"vertex\"\n" +
		"filename = \"" + name + ".vert.glsl\"\n\n" +
		"[[stages]]\n" +
		"stage = \"fragment\"\n" +
		"filename = \"" + name + ".frag.glsl\"\n"

	require.NoError(t, os.WriteFile(filepath.Join(shaderDir, name+".shader.toml"), []byte(definition), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(shaderDir, name+".vert.glsl"), []byte(vertexSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(shaderDir, name+".frag.glsl"), []byte(fragmentSource), 0o644))
}

func newTestShaderSystem(t *testing.T, root string) (*ShaderSystem, *headless.Backend) {
	t.Helper()
	backend := headless.New()
	require.NoError(t, backend.Initialize(&metadata.RendererBackendConfig{
		ApplicationName: "shader-test",
		Width:           1280,
		Height:          720,
	}))

	var assetManager *assets.AssetManager
	if root != "" {
		var err error
		assetManager, err = assets.NewAssetManager()
		require.NoError(t, err)
		require.NoError(t, assetManager.Initialize(root))
		t.Cleanup(func() { assetManager.Shutdown() })
	}

	shaderSystem, err := NewShaderSystem(&ShaderSystemConfig{MaxShaderCount: 8}, backend, assetManager)
	require.NoError(t, err)
	return shaderSystem, backend
}

func inlineShaderData(name, vertexSource, fragmentSource string) *metadata.ShaderResourceData {
	return &metadata.ShaderResourceData{
		Config: &metadata.ShaderConfig{Name: name},
		Stages: []metadata.ShaderStageSource{
			{Stage: metadata.ShaderStageVertex, Filename: name + ".vert.glsl", Source: vertexSource},
			{Stage: metadata.ShaderStageFragment, Filename: name + ".frag.glsl", Source: fragmentSource},
		},
	}
}

func TestNewShaderSystemRejectsZeroCapacity(t *testing.T) {
	_, err := NewShaderSystem(&ShaderSystemConfig{}, headless.New(), nil)
	assert.Error(t, err)
}

func TestShaderSystemLoadReflectsProgram(t *testing.T) {
	root := t.TempDir()
	writeShaderFiles(t, root, "test_world", testVertexSource, testFragmentSource)
	shaderSystem, backend := newTestShaderSystem(t, root)

	shader, err := shaderSystem.Load("test_world")
	require.NoError(t, err)
	require.NotNil(t, shader)

	assert.Equal(t, "test_world", shader.Name)
	assert.Equal(t, metadata.SHADER_STATE_INITIALIZED, shader.State)
	assert.Equal(t, metadata.FaceCullModeBack, shader.CullMode)
	assert.True(t, backend.IsValid(shader.ProgramHandle))

	// Uniform locations follow declaration order, vertex stage first.
	require.Len(t, shader.Uniforms, 4)
	assert.Equal(t, "view_proj", shader.Uniforms[0].Name)
	assert.Equal(t, metadata.ShaderDataTypeMatrix4, shader.Uniforms[0].Type)
	assert.Equal(t, "model", shader.Uniforms[1].Name)
	assert.Equal(t, "diffuse_colour", shader.Uniforms[2].Name)
	assert.Equal(t, "diffuse_texture", shader.Uniforms[3].Name)
	assert.Equal(t, metadata.ShaderDataTypeSampler2D, shader.Uniforms[3].Type)
	assert.Equal(t, uint32(1), shader.UniformLookup[core.HashName("model")])
	assert.Equal(t, uint32(3), shader.UniformLookup[core.HashName("diffuse_texture")])

	require.Len(t, shader.Attributes, 2)
	assert.Equal(t, "position", shader.Attributes[0].Name)
	assert.Equal(t, metadata.ShaderDataTypeFloat32_3, shader.Attributes[0].DataType)
	assert.Equal(t, "texcoord", shader.Attributes[1].Name)
}

func TestShaderSystemLoadTwiceReturnsSameShader(t *testing.T) {
	root := t.TempDir()
	writeShaderFiles(t, root, "test_world", testVertexSource, testFragmentSource)
	shaderSystem, _ := newTestShaderSystem(t, root)

	first, err := shaderSystem.Load("test_world")
	require.NoError(t, err)
	second, err := shaderSystem.Load("test_world")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestShaderCullModeReachesBackend(t *testing.T) {
	shaderSystem, backend := newTestShaderSystem(t, "")

	data := inlineShaderData("unculled", testVertexSource, testFragmentSource)
	data.Config.CullMode = "none"
	shader, err := shaderSystem.CreateShader(data)
	require.NoError(t, err)

	assert.Equal(t, metadata.FaceCullModeNone, shader.CullMode)
	mode, ok := backend.ProgramCullMode(shader.ProgramHandle)
	require.True(t, ok)
	assert.Equal(t, metadata.FaceCullModeNone, mode)

	// An absent cull_mode key falls back to back-face culling.
	defaulted, err := shaderSystem.CreateShader(inlineShaderData("defaulted", testVertexSource, testFragmentSource))
	require.NoError(t, err)
	assert.Equal(t, metadata.FaceCullModeBack, defaulted.CullMode)
}

func TestShaderSystemUseShader(t *testing.T) {
	shaderSystem, _ := newTestShaderSystem(t, "")
	shader, err := shaderSystem.CreateShader(inlineShaderData("inline", testVertexSource, testFragmentSource))
	require.NoError(t, err)

	assert.True(t, shaderSystem.UseShader("inline"))
	assert.Equal(t, shader.ID, shaderSystem.CurrentShaderID)
	// Using the bound shader again is a no-op.
	assert.True(t, shaderSystem.UseShader("inline"))

	assert.False(t, shaderSystem.UseShader("missing"))
	assert.Equal(t, shader.ID, shaderSystem.CurrentShaderID)
}

func TestShaderSystemReloadKeepsHandle(t *testing.T) {
	root := t.TempDir()
	writeShaderFiles(t, root, "test_world", testVertexSource, testFragmentSource)
	shaderSystem, backend := newTestShaderSystem(t, root)

	shader, err := shaderSystem.Load("test_world")
	require.NoError(t, err)
	originalHandle := shader.ProgramHandle

	updatedFragment := `#version 450

uniform vec4 diffuse_colour;
uniform sampler2D diffuse_texture;
uniform float shine;

out vec4 out_colour;

void main() {
	out_colour = diffuse_colour * shine;
}
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "shaders", "test_world.frag.glsl"), []byte(updatedFragment), 0o644))

	require.NoError(t, shaderSystem.Reload("test_world"))

	assert.Equal(t, originalHandle, shader.ProgramHandle)
	assert.True(t, backend.IsValid(shader.ProgramHandle))
	assert.Equal(t, uint32(1), shader.Generation)

	// The new uniform is reflected in at the next free location.
	require.Len(t, shader.Uniforms, 5)
	assert.Equal(t, "shine", shader.Uniforms[4].Name)
	assert.Equal(t, uint32(4), shader.UniformLookup[core.HashName("shine")])
}

func TestShaderSystemReloadUnknownShader(t *testing.T) {
	shaderSystem, _ := newTestShaderSystem(t, "")
	assert.Error(t, shaderSystem.Reload("missing"))
}

func TestCreateShaderDuplicateReturnsExisting(t *testing.T) {
	shaderSystem, _ := newTestShaderSystem(t, "")

	first, err := shaderSystem.CreateShader(inlineShaderData("inline", testVertexSource, testFragmentSource))
	require.NoError(t, err)
	second, err := shaderSystem.CreateShader(inlineShaderData("inline", testVertexSource, testFragmentSource))
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestCreateShaderCapacityExhausted(t *testing.T) {
	shaderSystem, err := NewShaderSystem(&ShaderSystemConfig{MaxShaderCount: 1}, headless.New(), nil)
	require.NoError(t, err)

	_, err = shaderSystem.CreateShader(inlineShaderData("first", testVertexSource, testFragmentSource))
	require.NoError(t, err)
	_, err = shaderSystem.CreateShader(inlineShaderData("second", testVertexSource, testFragmentSource))
	assert.Error(t, err)
}

func TestCreateShaderBadSourceFailsCleanly(t *testing.T) {
	shaderSystem, _ := newTestShaderSystem(t, "")

	_, err := shaderSystem.CreateShader(inlineShaderData("broken", "uniform unknowable thing;", ""))
	require.Error(t, err)

	// The slot is free again for the next shader.
	shader, err := shaderSystem.CreateShader(inlineShaderData("inline", testVertexSource, testFragmentSource))
	require.NoError(t, err)
	assert.Equal(t, uint32(0), shader.ID)
}

func TestShaderSystemShutdownDestroysPrograms(t *testing.T) {
	shaderSystem, backend := newTestShaderSystem(t, "")
	shader, err := shaderSystem.CreateShader(inlineShaderData("inline", testVertexSource, testFragmentSource))
	require.NoError(t, err)
	handle := shader.ProgramHandle

	require.NoError(t, shaderSystem.Shutdown())
	assert.False(t, backend.IsValid(handle))
	_, err = shaderSystem.GetShader("inline")
	assert.Error(t, err)
}
