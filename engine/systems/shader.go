package systems

import (
	"fmt"

	"github.com/spaghettifunk/pneuma/engine/assets"
	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/renderer"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

/** @brief Configuration for the shader system. */
type ShaderSystemConfig struct {
	/** @brief The maximum number of shaders held in the system. */
	MaxShaderCount uint16
}

type ShaderSystem struct {
	// This system's configuration.
	Config *ShaderSystemConfig
	// A lookup table for shader name->id.
	Lookup map[string]uint32
	// The identifier for the currently bound shader.
	CurrentShaderID uint32
	// A collection of created shaders.
	Shaders []*metadata.Shader
	// sub systems
	backend      renderer.RendererBackend
	assetManager *assets.AssetManager
}

func NewShaderSystem(config *ShaderSystemConfig, backend renderer.RendererBackend, am *assets.AssetManager) (*ShaderSystem, error) {
	// Verify configuration.
	if config.MaxShaderCount == 0 {
		err := fmt.Errorf("NewShaderSystem - config.MaxShaderCount must be greater than 0")
		core.LogError(err.Error())
		return nil, err
	}

	shaderSystem := &ShaderSystem{
		Config:          config,
		Shaders:         make([]*metadata.Shader, config.MaxShaderCount),
		CurrentShaderID: metadata.InvalidID,
		Lookup:          make(map[string]uint32),
		backend:         backend,
		assetManager:    am,
	}

	// Invalidate all shader ids.
	for i := uint16(0); i < config.MaxShaderCount; i++ {
		shaderSystem.Shaders[i] = &metadata.Shader{
			ID:            metadata.InvalidID,
			ProgramHandle: metadata.InvalidAssetHandle,
		}
	}

	return shaderSystem, nil
}

/**
 * @brief Shuts down the shader system, destroying every program still alive.
 */
func (shaderSystem *ShaderSystem) Shutdown() error {
	for i := uint16(0); i < shaderSystem.Config.MaxShaderCount; i++ {
		shader := shaderSystem.Shaders[i]
		if shader.ID != metadata.InvalidID {
			shaderSystem.destroyShader(shader)
		}
	}
	shaderSystem.CurrentShaderID = metadata.InvalidID
	return nil
}

/**
 * @brief Loads the shader resource with the given name and creates a program
 * from it. Loading a name that already exists returns the existing shader.
 *
 * @param name The name of the shader resource.
 * @return A pointer to the shader, or an error.
 */
func (shaderSystem *ShaderSystem) Load(name string) (*metadata.Shader, error) {
	if id, ok := shaderSystem.Lookup[name]; ok {
		return shaderSystem.Shaders[id], nil
	}
	resource, err := shaderSystem.assetManager.LoadAsset(name, metadata.ResourceTypeShader, nil)
	if err != nil {
		core.LogError("failed to load shader resource '%s'", name)
		return nil, err
	}
	data, ok := resource.Data.(*metadata.ShaderResourceData)
	if !ok {
		shaderSystem.assetManager.UnloadAsset(resource)
		err := fmt.Errorf("shader resource '%s' holds unexpected data", name)
		core.LogError(err.Error())
		return nil, err
	}
	shader, err := shaderSystem.CreateShader(data)
	shaderSystem.assetManager.UnloadAsset(resource)
	return shader, err
}

/**
 * @brief Creates a new shader from the given resource data. The program is
 * linked by the backend, then its uniforms and attributes are reflected back
 * into the shader for location lookups.
 *
 * @param data The loaded shader resource data.
 * @return A pointer to the shader, or an error.
 */
func (shaderSystem *ShaderSystem) CreateShader(data *metadata.ShaderResourceData) (*metadata.Shader, error) {
	if data == nil || data.Config == nil {
		err := fmt.Errorf("CreateShader requires shader resource data with a config")
		core.LogError(err.Error())
		return nil, err
	}
	config := data.Config

	if id, ok := shaderSystem.Lookup[config.Name]; ok {
		core.LogWarn("a shader named '%s' already exists and will not be created again", config.Name)
		return shaderSystem.Shaders[id], nil
	}

	id := shaderSystem.newShaderID()
	if id == metadata.InvalidID {
		err := fmt.Errorf("shader system cannot hold any more shaders. Adjust configuration to allow more")
		core.LogError(err.Error())
		return nil, err
	}

	shader := shaderSystem.Shaders[id]
	shader.State = metadata.SHADER_STATE_NOT_CREATED
	shader.Name = config.Name
	shader.CullMode = metadata.FaceCullModeFromString(config.CullMode)

	handle, err := shaderSystem.backend.ProgramCreate(config, stageSourceMap(data))
	if err != nil {
		core.LogError("failed to create program for shader '%s'", config.Name)
		return nil, err
	}
	shader.ProgramHandle = handle
	shader.State = metadata.SHADER_STATE_UNINITIALIZED

	if err := shaderSystem.reflectShader(shader); err != nil {
		shaderSystem.backend.ProgramDestroy(handle)
		shader.ProgramHandle = metadata.InvalidAssetHandle
		shader.State = metadata.SHADER_STATE_NOT_CREATED
		return nil, err
	}

	shader.ID = id
	shader.State = metadata.SHADER_STATE_INITIALIZED

	// At this point, creation is successful, so store the shader id in the
	// lookup table so this can be found by name later.
	shaderSystem.Lookup[config.Name] = id

	return shader, nil
}

/**
 * @brief Reloads the shader's resource from disk and relinks its program
 * under the same handle. References to the handle stay valid; the generation
 * bump tells holders that reflection data may have changed.
 *
 * @param name The name of the shader to reload. Case sensitive.
 * @return An error if the resource cannot be loaded or relinked.
 */
func (shaderSystem *ShaderSystem) Reload(name string) error {
	id, ok := shaderSystem.Lookup[name]
	if !ok {
		return fmt.Errorf("cannot reload unknown shader '%s'", name)
	}
	shader := shaderSystem.Shaders[id]

	resource, err := shaderSystem.assetManager.LoadAsset(name, metadata.ResourceTypeShader, nil)
	if err != nil {
		core.LogError("failed to reload shader resource '%s'", name)
		return err
	}
	defer shaderSystem.assetManager.UnloadAsset(resource)

	data, ok := resource.Data.(*metadata.ShaderResourceData)
	if !ok || data.Config == nil {
		err := fmt.Errorf("shader resource '%s' holds unexpected data", name)
		core.LogError(err.Error())
		return err
	}

	if err := shaderSystem.backend.ProgramReload(shader.ProgramHandle, data.Config, stageSourceMap(data)); err != nil {
		core.LogError("failed to relink shader '%s'", name)
		return err
	}
	if err := shaderSystem.reflectShader(shader); err != nil {
		return err
	}
	// The reloaded definition may declare a different cull mode.
	shader.CullMode = metadata.FaceCullModeFromString(data.Config.CullMode)
	shader.Generation++
	core.LogInfo("shader '%s' reloaded, generation %d", name, shader.Generation)
	return nil
}

/**
 * @brief Gets the identifier of a shader by name.
 *
 * @param shaderName The name of the shader.
 * @return The shader id, if found; otherwise InvalidID.
 */
func (shaderSystem *ShaderSystem) GetShaderID(shaderName string) uint32 {
	id, ok := shaderSystem.Lookup[shaderName]
	if !ok {
		core.LogError("there is no shader registered named '%s'", shaderName)
		return metadata.InvalidID
	}
	return id
}

/**
 * @brief Returns a pointer to the shader with the given identifier.
 *
 * @param shaderID The shader identifier.
 * @return A pointer to a shader, if found.
 */
func (shaderSystem *ShaderSystem) GetShaderByID(shaderID uint32) (*metadata.Shader, error) {
	if shaderID >= uint32(shaderSystem.Config.MaxShaderCount) || shaderSystem.Shaders[shaderID].ID == metadata.InvalidID {
		return nil, fmt.Errorf("shader with ID `%d` not found", shaderID)
	}
	return shaderSystem.Shaders[shaderID], nil
}

/**
 * @brief Returns a pointer to the shader with the given name.
 *
 * @param shaderName The name to search for. Case sensitive.
 * @return A pointer to a shader, if found.
 */
func (shaderSystem *ShaderSystem) GetShader(shaderName string) (*metadata.Shader, error) {
	if id, ok := shaderSystem.Lookup[shaderName]; ok {
		return shaderSystem.GetShaderByID(id)
	}
	return nil, fmt.Errorf("shader with name `%s` not found", shaderName)
}

/**
 * @brief Uses the shader with the given name.
 *
 * @param shaderName The name of the shader to use. Case sensitive.
 * @return True on success; otherwise false.
 */
func (shaderSystem *ShaderSystem) UseShader(shaderName string) bool {
	id, ok := shaderSystem.Lookup[shaderName]
	if !ok {
		core.LogError("there is no shader registered named '%s'", shaderName)
		return false
	}
	return shaderSystem.UseShaderByID(id)
}

/**
 * @brief Uses the shader with the given identifier.
 *
 * @param shaderID The identifier of the shader to be used.
 * @return True on success; otherwise false.
 */
func (shaderSystem *ShaderSystem) UseShaderByID(shaderID uint32) bool {
	// Only perform the use if the shader id is different.
	if shaderSystem.CurrentShaderID == shaderID {
		return true
	}
	shader, err := shaderSystem.GetShaderByID(shaderID)
	if err != nil {
		core.LogError(err.Error())
		return false
	}
	if err := shaderSystem.backend.ProgramUse(shader.ProgramHandle); err != nil {
		core.LogError("failed to use shader '%s': %s", shader.Name, err.Error())
		return false
	}
	shaderSystem.CurrentShaderID = shaderID
	return true
}

// reflectShader pulls the uniform and attribute lists out of the backend
// program and rebuilds the name hash lookup.
func (shaderSystem *ShaderSystem) reflectShader(shader *metadata.Shader) error {
	uniforms, attributes, err := shaderSystem.backend.Reflect(shader.ProgramHandle)
	if err != nil {
		core.LogError("failed to reflect shader '%s'", shader.Name)
		return err
	}
	shader.Uniforms = uniforms
	shader.Attributes = attributes
	shader.UniformLookup = make(map[core.NameHash]uint32, len(uniforms))
	for i := range uniforms {
		shader.UniformLookup[uniforms[i].NameHash] = uniforms[i].Location
	}
	return nil
}

func (shaderSystem *ShaderSystem) newShaderID() uint32 {
	for i := uint32(0); i < uint32(shaderSystem.Config.MaxShaderCount); i++ {
		if shaderSystem.Shaders[i].ID == metadata.InvalidID {
			return i
		}
	}
	return metadata.InvalidID
}

func (shaderSystem *ShaderSystem) destroyShader(shader *metadata.Shader) {
	if shader.ProgramHandle != metadata.InvalidAssetHandle {
		shaderSystem.backend.ProgramDestroy(shader.ProgramHandle)
	}
	// Set it to be unusable right away.
	shader.State = metadata.SHADER_STATE_NOT_CREATED
	delete(shaderSystem.Lookup, shader.Name)
	shader.Name = ""
	shader.ID = metadata.InvalidID
	shader.ProgramHandle = metadata.InvalidAssetHandle
	shader.Uniforms = nil
	shader.Attributes = nil
	shader.UniformLookup = nil
	shader.Generation = 0
}

func stageSourceMap(data *metadata.ShaderResourceData) map[metadata.ShaderStage]string {
	sources := make(map[metadata.ShaderStage]string, len(data.Stages))
	for _, stage := range data.Stages {
		sources[stage.Stage] = stage.Source
	}
	return sources
}
