package systems

import (
	"fmt"
	"sort"

	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/math"
	"github.com/spaghettifunk/pneuma/engine/renderer/components"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

/** @brief The name the builtin world view is registered under. */
const WorldViewName string = "world"

/**
 * @brief Materials carrying this tag are treated as translucent: their draws
 * are depth sorted and submitted after every opaque draw of the frame.
 */
const TransparentMaterialTag string = "transparent"

/** @brief The configuration for the render view system. */
type RenderViewSystemConfig struct {
	/** @brief The maximum number of views that can be registered with the system. */
	MaxViewCount uint16
}

type RenderViewSystem struct {
	Lookup          map[string]uint16
	MaxViewCount    uint32
	RegisteredViews []*metadata.RenderView
	// subsystems
	renderer       *RendererSystem
	shaderSystem   *ShaderSystem
	cameraSystem   *CameraSystem
	materialSystem *MaterialSystem
	tagRegistry    *TagRegistry
}

func NewRenderViewSystem(config *RenderViewSystemConfig, r *RendererSystem, ss *ShaderSystem, cs *CameraSystem, ms *MaterialSystem, tags *TagRegistry) (*RenderViewSystem, error) {
	if config.MaxViewCount == 0 {
		err := fmt.Errorf("func NewRenderViewSystem - config.MaxViewCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	rvs := &RenderViewSystem{
		MaxViewCount:    uint32(config.MaxViewCount),
		Lookup:          make(map[string]uint16, config.MaxViewCount),
		RegisteredViews: make([]*metadata.RenderView, config.MaxViewCount),
		renderer:        r,
		shaderSystem:    ss,
		cameraSystem:    cs,
		materialSystem:  ms,
		tagRegistry:     tags,
	}
	// Fill the array with invalid entries.
	for i := uint32(0); i < rvs.MaxViewCount; i++ {
		rvs.RegisteredViews[i] = &metadata.RenderView{
			ID: metadata.InvalidIDUint16,
		}
	}
	return rvs, nil
}

/**
 * @brief Destroys every registered view. Renderpasses referenced by the
 * views are owned by the renderer and stay alive.
 */
func (rvs *RenderViewSystem) Shutdown() error {
	for i := uint32(0); i < rvs.MaxViewCount; i++ {
		view := rvs.RegisteredViews[i]
		if view.ID == metadata.InvalidIDUint16 {
			continue
		}
		if impl, err := viewImplementation(view); err == nil {
			if err := impl.OnDestroy(); err != nil {
				core.LogError("failed to destroy view '%s': %s", view.Name, err.Error())
				return err
			}
		}
		delete(rvs.Lookup, view.Name)
		view.ID = metadata.InvalidIDUint16
		view.Passes = nil
		view.InternalData = nil
	}
	return nil
}

/**
 * @brief Creates a view from the given configuration and registers it under
 * the configured name. The renderpasses the configuration names must already
 * exist on the backend; the view renders into their targets but never owns
 * them.
 */
func (rvs *RenderViewSystem) Create(config *metadata.RenderViewConfig) error {
	if config == nil {
		return fmt.Errorf("render view creation requires a pointer to a valid config")
	}
	if config.Name == "" {
		return fmt.Errorf("render view creation requires a name")
	}
	if len(config.PassNames) < 1 {
		return fmt.Errorf("render view '%s' must reference at least one renderpass", config.Name)
	}

	// Make sure there is not already an entry with this name already registered.
	if id, ok := rvs.Lookup[config.Name]; ok && id != metadata.InvalidIDUint16 {
		return fmt.Errorf("a view named '%s' already exists. A new one will not be created", config.Name)
	}

	// Find a new id.
	id := metadata.InvalidIDUint16
	for i := uint32(0); i < rvs.MaxViewCount; i++ {
		if rvs.RegisteredViews[i].ID == metadata.InvalidIDUint16 {
			id = uint16(i)
			break
		}
	}
	if id == metadata.InvalidIDUint16 {
		return fmt.Errorf("render view system has no space for a new view. Adjust configuration to allow more")
	}

	width := config.Width
	if width == 0 {
		width = uint16(rvs.renderer.FramebufferWidth)
	}
	height := config.Height
	if height == 0 {
		height = uint16(rvs.renderer.FramebufferHeight)
	}

	view := rvs.RegisteredViews[id]
	view.ID = id
	view.Name = config.Name
	view.Width = width
	view.Height = height
	view.RenderViewType = config.RenderViewType
	view.CustomShaderName = config.CustomShaderName
	view.RenderpassCount = uint8(len(config.PassNames))
	view.Passes = make([]*metadata.RenderPass, view.RenderpassCount)

	for i, passName := range config.PassNames {
		pass := rvs.renderer.RenderPassGet(passName)
		if pass == nil {
			rvs.releaseViewSlot(view)
			return fmt.Errorf("render view '%s' references renderpass '%s', which does not exist on the backend", config.Name, passName)
		}
		view.Passes[i] = pass
	}

	var impl metadata.IRenderView
	switch config.RenderViewType {
	case metadata.RENDERER_VIEW_KNOWN_TYPE_WORLD:
		impl = newRenderViewWorld(view, rvs.renderer, rvs.shaderSystem, rvs.cameraSystem, rvs.materialSystem, rvs.tagRegistry)
	default:
		rvs.releaseViewSlot(view)
		return fmt.Errorf("render view type %d has no implementation", config.RenderViewType)
	}

	view.InternalData = impl
	if err := impl.OnCreate(); err != nil {
		rvs.releaseViewSlot(view)
		core.LogError("failed to create view '%s': %s", config.Name, err.Error())
		return err
	}

	// Update the hashtable entry.
	rvs.Lookup[config.Name] = id

	return nil
}

/**
 * @brief Called when the owner of this view (i.e. the window) is resized.
 * The renderer updates pass render areas and targets itself; views only
 * recompute what depends on their own dimensions, such as projections.
 *
 * @param width The new width in pixels.
 * @param height The new height in pixels.
 */
func (rvs *RenderViewSystem) OnWindowResize(width, height uint32) {
	// Send to all views
	for i := uint32(0); i < rvs.MaxViewCount; i++ {
		view := rvs.RegisteredViews[i]
		if view.ID == metadata.InvalidIDUint16 {
			continue
		}
		if width == uint32(view.Width) && height == uint32(view.Height) {
			continue
		}
		view.Width = uint16(width)
		view.Height = uint16(height)
		if impl, err := viewImplementation(view); err == nil {
			impl.OnResize(width, height)
		}
	}
}

/**
 * @brief Obtains a pointer to a view with the given name.
 *
 * @param name The name of the view.
 * @return A pointer to a view if found; otherwise nil.
 */
func (rvs *RenderViewSystem) Get(name string) *metadata.RenderView {
	if id, ok := rvs.Lookup[name]; ok && id != metadata.InvalidIDUint16 {
		return rvs.RegisteredViews[id]
	}
	return nil
}

/**
 * @brief Builds a render view packet using the provided view and scene data.
 *
 * @param view A pointer to the view to use.
 * @param data Freeform data used to build the packet.
 * @return The generated packet, or an error.
 */
func (rvs *RenderViewSystem) BuildPacket(view *metadata.RenderView, data interface{}) (*metadata.RenderViewPacket, error) {
	if view == nil {
		return nil, fmt.Errorf("packet building requires a valid pointer to a view")
	}
	impl, err := viewImplementation(view)
	if err != nil {
		return nil, err
	}
	return impl.OnBuildPacket(data)
}

/**
 * @brief Uses the given packet to render the contents therein.
 *
 * @param packet A pointer to the packet whose data is to be rendered.
 * @param frameNumber The current renderer frame number, typically used for data synchronization.
 * @param renderTargetIndex The current render target index for backends that use multiple render targets at once.
 * @return An error if any pass of the view fails.
 */
func (rvs *RenderViewSystem) OnRender(packet *metadata.RenderViewPacket, frameNumber, renderTargetIndex uint64) error {
	if packet == nil || packet.View == nil {
		return nil
	}
	impl, err := viewImplementation(packet.View)
	if err != nil {
		return err
	}
	return impl.OnRender(packet, frameNumber, renderTargetIndex)
}

/**
 * @brief Releases packet resources once the frame using it has been
 * submitted.
 */
func (rvs *RenderViewSystem) DestroyPacket(packet *metadata.RenderViewPacket) error {
	if packet == nil || packet.View == nil {
		return nil
	}
	impl, err := viewImplementation(packet.View)
	if err != nil {
		return err
	}
	return impl.OnDestroyPacket(packet)
}

func (rvs *RenderViewSystem) releaseViewSlot(view *metadata.RenderView) {
	view.ID = metadata.InvalidIDUint16
	view.Name = ""
	view.Passes = nil
	view.InternalData = nil
}

// viewImplementation unwraps the per type logic attached to a view at
// creation time.
func viewImplementation(view *metadata.RenderView) (metadata.IRenderView, error) {
	impl, ok := view.InternalData.(metadata.IRenderView)
	if !ok {
		return nil, fmt.Errorf("render view '%s' has no implementation attached", view.Name)
	}
	return impl, nil
}

/**
 * @brief The builtin world view. Draws opaque scene meshes first, then
 * translucent ones sorted furthest first, all through the world renderpass
 * owned by the renderer.
 */
type renderViewWorld struct {
	view           *metadata.RenderView
	renderer       *RendererSystem
	shaderSystem   *ShaderSystem
	cameraSystem   *CameraSystem
	materialSystem *MaterialSystem
	tagRegistry    *TagRegistry

	shader           *metadata.Shader
	fov              float32
	nearClip         float32
	farClip          float32
	projectionMatrix math.Mat4
	worldCamera      *components.Camera
	ambientColour    math.Vec4
	transparentQuery []core.NameHash
}

func newRenderViewWorld(view *metadata.RenderView, r *RendererSystem, ss *ShaderSystem, cs *CameraSystem, ms *MaterialSystem, tags *TagRegistry) *renderViewWorld {
	return &renderViewWorld{
		view:           view,
		renderer:       r,
		shaderSystem:   ss,
		cameraSystem:   cs,
		materialSystem: ms,
		tagRegistry:    tags,
	}
}

func (v *renderViewWorld) OnCreate() error {
	// Get either the custom shader override or the defined default.
	shaderName := metadata.BuiltinShaderNameWorld
	if v.view.CustomShaderName != "" {
		shaderName = v.view.CustomShaderName
	}
	shader, err := v.shaderSystem.Load(shaderName)
	if err != nil {
		core.LogError("failed to load shader '%s' for the world view", shaderName)
		return err
	}
	v.shader = shader

	// TODO: Set from configuration.
	v.nearClip = 0.1
	v.farClip = 1000.0
	v.fov = math.DegToRad(45.0)
	v.ambientColour = math.NewVec4Create(0.25, 0.25, 0.25, 1.0)
	v.projectionMatrix = math.NewMat4Perspective(v.fov, viewAspect(uint32(v.view.Width), uint32(v.view.Height)), v.nearClip, v.farClip)
	v.worldCamera = v.cameraSystem.GetDefault()
	v.transparentQuery = []core.NameHash{core.HashName(TransparentMaterialTag)}

	return nil
}

func (v *renderViewWorld) OnDestroy() error {
	// The shader is owned by the shader system and may be shared with
	// other views, so there is nothing view owned to release.
	return nil
}

func (v *renderViewWorld) OnResize(width, height uint32) {
	v.projectionMatrix = math.NewMat4Perspective(v.fov, viewAspect(width, height), v.nearClip, v.farClip)
}

func (v *renderViewWorld) OnBuildPacket(data interface{}) (*metadata.RenderViewPacket, error) {
	worldData, ok := data.(*metadata.WorldPacketData)
	if !ok || worldData == nil {
		err := fmt.Errorf("the world view builds packets from *metadata.WorldPacketData only")
		core.LogError(err.Error())
		return nil, err
	}

	packet := &metadata.RenderViewPacket{
		View:             v.view,
		ProjectionMatrix: v.projectionMatrix,
		ViewMatrix:       v.worldCamera.GetView(),
		ViewPosition:     v.worldCamera.GetPosition(),
		AmbientColour:    v.ambientColour,
		CustomShaderName: v.view.CustomShaderName,
	}

	cameraPosition := v.worldCamera.GetPosition()
	translucent := []drawDistance{}

	for _, mesh := range worldData.Meshes {
		if mesh == nil {
			continue
		}
		model := mesh.Transform.GetWorld()

		for _, geometry := range mesh.Geometries {
			if geometry == nil || geometry.ID == metadata.InvalidID {
				continue
			}

			material := v.materialSystem.GetByName(geometry.MaterialName)
			var materialTags []core.NameHash
			if material.TagListKey != 0 {
				materialTags = v.tagRegistry.Lookup(material.TagListKey)
			}
			if len(worldData.RequiredTags) > 0 && !MatchTags(materialTags, worldData.RequiredTags) {
				continue
			}

			draw := &metadata.DrawCall{
				World:            model,
				TextureTransform: math.NewMat4Identity(),
				Geometry:         geometry,
				UniqueID:         mesh.UniqueID,
			}

			if MatchTags(materialTags, v.transparentQuery) {
				// Translucent draws are sorted on the distance between the
				// camera and the geometry center in world space.
				center := geometry.Center.Transform(model)
				translucent = append(translucent, drawDistance{
					draw:     draw,
					distance: center.Distance(cameraPosition),
				})
				continue
			}

			packet.Draws = append(packet.Draws, draw)
		}
	}

	// Furthest translucent surfaces go first so nearer ones blend over them.
	sort.Slice(translucent, func(i, j int) bool {
		return translucent[i].distance > translucent[j].distance
	})
	for i := range translucent {
		packet.Draws = append(packet.Draws, translucent[i].draw)
	}
	packet.DrawCount = uint32(len(packet.Draws))

	return packet, nil
}

func (v *renderViewWorld) OnDestroyPacket(packet *metadata.RenderViewPacket) error {
	if packet != nil {
		packet.Draws = nil
		packet.DrawCount = 0
	}
	return nil
}

func (v *renderViewWorld) OnRender(packet *metadata.RenderViewPacket, frameNumber, renderTargetIndex uint64) error {
	ctx := &metadata.RenderContext{
		View:              packet.ViewMatrix,
		Projection:        packet.ProjectionMatrix,
		ViewPosition:      packet.ViewPosition,
		AmbientColour:     packet.AmbientColour,
		FrameNumber:       frameNumber,
		RenderTargetIndex: renderTargetIndex,
	}

	for p := uint8(0); p < v.view.RenderpassCount; p++ {
		pass := v.view.Passes[p]
		if err := v.renderer.RenderPassBegin(pass, pass.Targets[renderTargetIndex]); err != nil {
			core.LogError("world view renderpass index %d failed to start", p)
			return err
		}

		if !v.shaderSystem.UseShaderByID(v.shader.ID) {
			err := fmt.Errorf("failed to use the world shader. Render frame failed")
			core.LogError(err.Error())
			return err
		}

		for i := uint32(0); i < packet.DrawCount; i++ {
			draw := packet.Draws[i]
			material := v.materialSystem.GetByName(draw.Geometry.MaterialName)

			if err := v.materialSystem.Apply(material, v.renderer, ctx, draw); err != nil {
				core.LogWarn("failed to apply material '%s'. Skipping draw", material.Name)
				continue
			}

			if err := v.renderer.DrawGeometry(draw, material.VertexDeclaration); err != nil {
				core.LogWarn("failed to draw geometry '%s': %s", draw.Geometry.Name, err.Error())
				continue
			}
		}

		if err := v.renderer.RenderPassEnd(pass); err != nil {
			core.LogError("world view renderpass index %d failed to end", p)
			return err
		}
	}

	return nil
}

// drawDistance pairs a translucent draw with its camera distance for depth
// sorting.
type drawDistance struct {
	draw     *metadata.DrawCall
	distance float32
}

// viewAspect guards the ratio so a zero height view cannot divide by zero.
func viewAspect(width, height uint32) float32 {
	if height == 0 {
		return 1.0
	}
	return float32(width) / float32(height)
}
