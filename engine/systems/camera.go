package systems

import (
	"fmt"

	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/renderer/components"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

type CameraSystem struct {
	Config  *CameraSystemConfig
	Lookup  map[string]uint16
	Cameras []*components.CameraLookup
	// A default, non-registered camera that always exists as a fallback.
	DefaultCamera *components.Camera
}

/** @brief The camera system configuration. */
type CameraSystemConfig struct {
	/** @brief The maximum number of cameras that can be managed by the system. */
	MaxCameraCount uint16
}

func NewCameraSystem(config *CameraSystemConfig) (*CameraSystem, error) {
	if config.MaxCameraCount == 0 {
		err := fmt.Errorf("func NewCameraSystem - config.MaxCameraCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	cs := &CameraSystem{
		Config:  config,
		Cameras: make([]*components.CameraLookup, config.MaxCameraCount),
		Lookup:  make(map[string]uint16, config.MaxCameraCount),
	}
	// Invalidate all cameras in the array.
	for i := uint16(0); i < config.MaxCameraCount; i++ {
		cs.Cameras[i] = &components.CameraLookup{
			ID: metadata.InvalidIDUint16,
		}
	}
	// Setup default camera.
	cs.DefaultCamera = components.NewCamera()
	return cs, nil
}

func (cs *CameraSystem) Shutdown() error {
	return nil
}

/**
 * @brief Acquires a camera by name, creating and registering it on first
 * use. The internal reference counter is incremented.
 */
func (cs *CameraSystem) Acquire(name string) (*components.Camera, error) {
	if name == components.DEFAULT_CAMERA_NAME {
		return cs.DefaultCamera, nil
	}

	id, ok := cs.Lookup[name]
	if !ok || id == metadata.InvalidIDUint16 {
		// Find a free slot.
		id = metadata.InvalidIDUint16
		for i := uint16(0); i < cs.Config.MaxCameraCount; i++ {
			if cs.Cameras[i].ID == metadata.InvalidIDUint16 {
				id = i
				break
			}
		}
		if id == metadata.InvalidIDUint16 {
			err := fmt.Errorf("camera system cannot hold any more cameras. Adjust configuration to allow more")
			core.LogError(err.Error())
			return nil, err
		}

		// Create and register the new camera.
		core.LogDebug("creating new camera named '%s'", name)
		cs.Cameras[id].Camera = components.NewCamera()
		cs.Cameras[id].ID = id
		cs.Lookup[name] = id
	}

	cs.Cameras[id].ReferenceCount++
	return cs.Cameras[id].Camera, nil
}

/**
 * @brief Releases a camera with the given name. The internal reference
 * counter is decremented; when it reaches 0 the camera is reset and the
 * slot becomes usable by a new camera.
 */
func (cs *CameraSystem) Release(name string) {
	if name == components.DEFAULT_CAMERA_NAME {
		core.LogDebug("cannot release the default camera. Nothing was done")
		return
	}
	id, ok := cs.Lookup[name]
	if !ok || id == metadata.InvalidIDUint16 {
		core.LogWarn("tried to release non-existent camera: '%s'", name)
		return
	}

	if cs.Cameras[id].ReferenceCount > 0 {
		cs.Cameras[id].ReferenceCount--
	}
	if cs.Cameras[id].ReferenceCount < 1 {
		cs.Cameras[id].Camera.Reset()
		cs.Cameras[id].ID = metadata.InvalidIDUint16
		delete(cs.Lookup, name)
	}
}

func (cs *CameraSystem) GetDefault() *components.Camera {
	return cs.DefaultCamera
}
