package core

import "sync"

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

	// Mouse moved. Data is a *MouseEvent carrying the position.
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06

	// Mouse wheel scrolled. Data is a *MouseEvent carrying the delta.
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07

	// Resized/resolution changed from the OS. Data is a *SystemEvent.
	EVENT_CODE_RESIZED EventCode = 0x08

	// A watched file changed on disk. Data is a *FileEvent.
	EVENT_CODE_WATCHED_FILE_WRITTEN EventCode = 0x09

	MAX_EVENT_CODE EventCode = 0xFF
)

type EventContext struct {
	Type EventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type MouseEvent struct {
	Button Button
	PosX   uint16
	PosY   uint16
	Scroll int8
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

type FileEvent struct {
	Path string
}

// Fires beyond this many undelivered events are dropped with a warning.
const eventQueueCapacity = 512

type eventSystemState struct {
	mu         sync.RWMutex
	registered map[EventCode][]func(EventContext)
	queue      chan EventContext
	closed     bool
}

var onceEvent sync.Once
var eventState *eventSystemState

func EventSystemInitialize() bool {
	onceEvent.Do(func() {
		eventState = &eventSystemState{
			registered: make(map[EventCode][]func(EventContext)),
			queue:      make(chan EventContext, eventQueueCapacity),
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
	if eventState.closed {
		return nil
	}
	eventState.closed = true
	close(eventState.queue)
	return nil
}

// Register to listen for events fired with the provided code. Listeners are
// invoked on the goroutine running ProcessEvents, in registration order.
func EventRegister(code EventCode, onEvent func(EventContext)) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	eventState.registered[code] = append(eventState.registered[code], onEvent)
	return true
}

// EventFire queues an event for delivery. Never blocks: when the queue is
// full the event is dropped.
func EventFire(context EventContext) {
	if eventState == nil {
		return
	}
	eventState.mu.RLock()
	defer eventState.mu.RUnlock()
	if eventState.closed {
		return
	}
	select {
	case eventState.queue <- context:
	default:
		LogWarn("event queue full, dropping event code %d", context.Type)
	}
}

// ProcessEvents delivers fired events to their listeners until the event
// system shuts down. Run it on its own goroutine.
func ProcessEvents() {
	if eventState == nil {
		return
	}
	for context := range eventState.queue {
		eventState.mu.RLock()
		listeners := eventState.registered[context.Type]
		eventState.mu.RUnlock()
		for _, onEvent := range listeners {
			onEvent(context)
		}
	}
}
