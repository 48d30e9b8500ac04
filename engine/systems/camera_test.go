package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/pneuma/engine/math"
	"github.com/spaghettifunk/pneuma/engine/renderer/components"
)

func TestCameraDefaultsToIdentityView(t *testing.T) {
	camera := components.NewCamera()
	assert.Equal(t, math.NewMat4Identity(), camera.GetView())
	assert.Equal(t, math.NewVec3Zero(), camera.GetPosition())
}

func TestCameraViewFollowsPosition(t *testing.T) {
	camera := components.NewCamera()
	camera.SetPosition(math.NewVec3(0, 0, 5))

	view := camera.GetView()

	// The view matrix is the inverse of the camera transform.
	assert.InDelta(t, -5.0, view.Data[14], 1e-6)
	assert.False(t, camera.IsDirty)
}

func TestCameraMoveForward(t *testing.T) {
	camera := components.NewCamera()
	camera.MoveForward(2.0)

	pos := camera.GetPosition()
	assert.InDelta(t, 0.0, pos.X, 1e-6)
	assert.InDelta(t, 0.0, pos.Y, 1e-6)
	assert.InDelta(t, -2.0, pos.Z, 1e-6)
}

func TestCameraYawTurnsForwardVector(t *testing.T) {
	camera := components.NewCamera()
	camera.Yaw(math.DegToRad(90.0))

	forward := camera.Forward()
	assert.InDelta(t, -1.0, forward.X, 1e-5)
	assert.InDelta(t, 0.0, forward.Z, 1e-5)
}

func TestCameraPitchClamps(t *testing.T) {
	camera := components.NewCamera()

	camera.Pitch(10.0)
	assert.InDelta(t, 1.55334306, camera.GetEulerRotation().X, 1e-5)

	camera.Pitch(-20.0)
	assert.InDelta(t, -1.55334306, camera.GetEulerRotation().X, 1e-5)
}

func TestNewCameraSystemRejectsZeroCapacity(t *testing.T) {
	_, err := NewCameraSystem(&CameraSystemConfig{})
	assert.Error(t, err)
}

func TestCameraSystemAcquireCreatesNamedCamera(t *testing.T) {
	cs, err := NewCameraSystem(&CameraSystemConfig{MaxCameraCount: 4})
	require.NoError(t, err)

	camera, err := cs.Acquire("world")
	require.NoError(t, err)
	require.NotNil(t, camera)

	again, err := cs.Acquire("world")
	require.NoError(t, err)
	assert.Same(t, camera, again)
	assert.Equal(t, uint16(2), cs.Cameras[cs.Lookup["world"]].ReferenceCount)
}

func TestCameraSystemDefaultCamera(t *testing.T) {
	cs, err := NewCameraSystem(&CameraSystemConfig{MaxCameraCount: 4})
	require.NoError(t, err)

	camera, err := cs.Acquire(components.DEFAULT_CAMERA_NAME)
	require.NoError(t, err)
	assert.Same(t, cs.GetDefault(), camera)

	// Releasing the default camera is ignored.
	cs.Release(components.DEFAULT_CAMERA_NAME)
	assert.NotNil(t, cs.GetDefault())
}

func TestCameraSystemReleaseResetsAtZero(t *testing.T) {
	cs, err := NewCameraSystem(&CameraSystemConfig{MaxCameraCount: 4})
	require.NoError(t, err)

	camera, err := cs.Acquire("world")
	require.NoError(t, err)
	camera.SetPosition(math.NewVec3(1, 2, 3))

	cs.Release("world")

	// The slot was recycled and the camera reset.
	_, registered := cs.Lookup["world"]
	assert.False(t, registered)
	assert.Equal(t, math.NewVec3Zero(), camera.GetPosition())

	fresh, err := cs.Acquire("world")
	require.NoError(t, err)
	assert.Equal(t, math.NewVec3Zero(), fresh.GetPosition())
}

func TestCameraSystemReleaseUnknownWarns(t *testing.T) {
	cs, err := NewCameraSystem(&CameraSystemConfig{MaxCameraCount: 4})
	require.NoError(t, err)

	// Must not panic or underflow.
	cs.Release("never-acquired")
}

func TestCameraSystemCapacityExhausted(t *testing.T) {
	cs, err := NewCameraSystem(&CameraSystemConfig{MaxCameraCount: 1})
	require.NoError(t, err)

	_, err = cs.Acquire("first")
	require.NoError(t, err)

	_, err = cs.Acquire("second")
	assert.Error(t, err)
}
