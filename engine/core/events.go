package core

import (
	"sync"

	"github.com/spaghettifunk/pneuma/engine/containers"
)

// System internal event codes. Application should use codes beyond 255.
type EventCode uint16

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01

	// Keyboard key pressed. Data is a *KeyEvent.
	EVENT_CODE_KEY_PRESSED EventCode = 0x02

	// Keyboard key released. Data is a *KeyEvent.
	EVENT_CODE_KEY_RELEASED EventCode = 0x03

	// Mouse button pressed. Data is a *MouseEvent.
	EVENT_CODE_BUTTON_PRESSED EventCode = 0x04

	// Mouse button released. Data is a *MouseEvent.
	EVENT_CODE_BUTTON_RELEASED EventCode = 0x05

	// Mouse moved. Data is a *MouseEvent.
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06

	// Mouse wheel scrolled. Data is a *MouseEvent.
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07

	// Resized/resolution changed from the OS. Data is a *SystemEvent.
	EVENT_CODE_RESIZED EventCode = 0x08

	// A file under the watched asset root was written. Data is a *WatchedFileEvent.
	EVENT_CODE_WATCHED_FILE_WRITTEN EventCode = 0x09

	// A shader program was rebuilt from changed sources. Data is a *ProgramEvent.
	EVENT_CODE_PROGRAM_RELOADED EventCode = 0x0A

	// The default render targets must be regenerated (e.g. after a resize).
	EVENT_CODE_RENDER_TARGET_REFRESH_REQUIRED EventCode = 0x0B

	MAX_EVENT_CODE EventCode = 0xFF
)

// Pending events beyond this count are dropped with a warning.
const maxQueuedEvents = 1024

type EventContext struct {
	Type EventCode
	Data interface{}
}

// Fired for EVENT_CODE_KEY_PRESSED / EVENT_CODE_KEY_RELEASED.
type KeyEvent struct {
	KeyCode KeyCode
}

// Fired for mouse button/move/wheel codes.
type MouseEvent struct {
	Button Button
	PosX   uint16
	PosY   uint16
	Scroll int8
}

// Fired for EVENT_CODE_RESIZED.
type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

// Fired by the asset manager when a watched file changes on disk.
type WatchedFileEvent struct {
	FullPath string
	Name     string
}

// Fired after a program reload so dependent materials can rebuild.
type ProgramEvent struct {
	ProgramName string
}

// Event callbacks run on the goroutine draining ProcessEvents, which the
// engine calls once per frame step.
type FnOnEvent func(context EventContext)

type eventSystemState struct {
	registered map[EventCode][]FnOnEvent
	pending    *containers.RingQueue[EventContext]
	mu         sync.Mutex
}

var onceEvent sync.Once
var eventState *eventSystemState = nil

func EventSystemInitialize() bool {
	onceEvent.Do(func() {
		eventState = &eventSystemState{
			registered: make(map[EventCode][]FnOnEvent),
			pending:    containers.NewRingQueue[EventContext](maxQueuedEvents),
		}
	})
	return eventState != nil
}

func EventSystemShutdown() error {
	if eventState == nil {
		return nil
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	eventState.registered = make(map[EventCode][]FnOnEvent)
	eventState.pending = containers.NewRingQueue[EventContext](maxQueuedEvents)
	return nil
}

// Register to listen for events fired with the provided code.
func EventRegister(code EventCode, onEvent FnOnEvent) bool {
	if eventState == nil || onEvent == nil {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	eventState.registered[code] = append(eventState.registered[code], onEvent)
	return true
}

// EventUnregisterAll drops every listener for the given code.
func EventUnregisterAll(code EventCode) {
	if eventState == nil {
		return
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	delete(eventState.registered, code)
}

// EventFire queues an event for delivery on the next ProcessEvents drain.
// Safe to call from watcher goroutines.
func EventFire(context EventContext) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	if err := eventState.pending.Enqueue(context); err != nil {
		LogWarn("event queue full, dropping event code %d", context.Type)
		return false
	}
	return true
}

// ProcessEvents delivers all queued events to their listeners. The engine
// drains once per frame so all callbacks run on the frame goroutine.
func ProcessEvents() {
	if eventState == nil {
		return
	}
	for {
		eventState.mu.Lock()
		context, err := eventState.pending.Dequeue()
		if err != nil {
			eventState.mu.Unlock()
			return
		}
		listeners := eventState.registered[context.Type]
		eventState.mu.Unlock()

		for _, cb := range listeners {
			cb(context)
		}
	}
}
