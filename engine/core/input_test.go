package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupInput(t *testing.T) {
	t.Helper()
	require.NoError(t, InputInitialize())
	inputState.KeyboardCurrent = KeyboardState{}
	inputState.KeyboardPrevious = KeyboardState{}
	inputState.MouseCurrent = MouseState{}
	inputState.MousePrevious = MouseState{}
}

func TestInputKeyPressAndRelease(t *testing.T) {
	setupInput(t)
	setupEventSystem(t)

	require.NoError(t, InputProcessKey(KEY_W, true))
	assert.True(t, InputIsKeyDown(KEY_W))
	assert.True(t, InputWasKeyUp(KEY_W))

	// The frame update rolls current state into previous.
	require.NoError(t, InputUpdate(0.016))
	assert.True(t, InputWasKeyDown(KEY_W))

	require.NoError(t, InputProcessKey(KEY_W, false))
	assert.True(t, InputIsKeyUp(KEY_W))
	assert.True(t, InputWasKeyDown(KEY_W))
}

func TestInputKeyEventFiredOncePerStateChange(t *testing.T) {
	setupInput(t)
	setupEventSystem(t)

	var pressed []KeyCode
	EventRegister(EVENT_CODE_KEY_PRESSED, func(context EventContext) {
		pressed = append(pressed, context.Data.(*KeyEvent).KeyCode)
	})
	released := 0
	EventRegister(EVENT_CODE_KEY_RELEASED, func(EventContext) { released++ })

	require.NoError(t, InputProcessKey(KEY_SPACE, true))
	// Key repeats deliver the same state again and must not refire.
	require.NoError(t, InputProcessKey(KEY_SPACE, true))
	require.NoError(t, InputProcessKey(KEY_SPACE, false))

	ProcessEvents()
	assert.Equal(t, []KeyCode{KEY_SPACE}, pressed)
	assert.Equal(t, 1, released)
}

func TestInputMouseState(t *testing.T) {
	setupInput(t)
	setupEventSystem(t)

	require.NoError(t, InputProcessButton(BUTTON_LEFT, true))
	assert.True(t, InputIsButtonDown(BUTTON_LEFT))
	assert.True(t, InputIsButtonUp(BUTTON_RIGHT))

	require.NoError(t, InputProcessMouseMove(320, 240))
	x, y := InputGetMousePosition()
	assert.Equal(t, int32(320), x)
	assert.Equal(t, int32(240), y)

	require.NoError(t, InputUpdate(0.016))
	px, py := InputGetPreviousMousePosition()
	assert.Equal(t, int32(320), px)
	assert.Equal(t, int32(240), py)

	require.NoError(t, InputProcessButton(BUTTON_LEFT, false))
	assert.True(t, InputWasButtonDown(BUTTON_LEFT))
	assert.True(t, InputIsButtonUp(BUTTON_LEFT))
}

func TestInputMouseWheelEvent(t *testing.T) {
	setupInput(t)
	setupEventSystem(t)

	var scrolls []int8
	EventRegister(EVENT_CODE_MOUSE_WHEEL, func(context EventContext) {
		scrolls = append(scrolls, context.Data.(*MouseEvent).Scroll)
	})

	require.NoError(t, InputProcessMouseWheel(1))
	require.NoError(t, InputProcessMouseWheel(-1))

	ProcessEvents()
	assert.Equal(t, []int8{1, -1}, scrolls)
}
