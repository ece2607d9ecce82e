// Package platform owns the window and the OS message pump. Input and
// resize callbacks are translated into core events.
package platform

import (
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/Fahien/vkr-go/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window *glfw.Window
}

func New() (*Platform, error) {
	return &Platform{}, nil
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(keyCallback)
	p.Window.SetMouseButtonCallback(mouseButtonCallback)
	p.Window.SetCursorPosCallback(cursorPosCallback)
	p.Window.SetScrollCallback(scrollCallback)
	p.Window.SetFramebufferSizeCallback(framebufferSizeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages drains pending OS events. Returns false once the window
// wants to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// GetFramebufferSize reports the drawable surface size in pixels, which
// on high-DPI displays differs from the window size.
func (p *Platform) GetFramebufferSize() (uint32, uint32) {
	width, height := p.Window.GetFramebufferSize()
	return uint32(width), uint32(height)
}

// GetAbsoluteTime returns seconds since platform startup.
func (p *Platform) GetAbsoluteTime() float64 {
	return glfw.GetTime()
}

// Sleep yields the remainder of the frame to the OS.
func (p *Platform) Sleep(ms float64) {
	time.Sleep(time.Duration(ms * float64(time.Millisecond)))
}

func keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Repeat {
		return
	}
	code, ok := translateKey(key)
	if !ok {
		return
	}
	core.InputProcessKey(code, action == glfw.Press)
}

func mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	var translated core.Button
	switch button {
	case glfw.MouseButtonLeft:
		translated = core.BUTTON_LEFT
	case glfw.MouseButtonRight:
		translated = core.BUTTON_RIGHT
	case glfw.MouseButtonMiddle:
		translated = core.BUTTON_MIDDLE
	default:
		return
	}
	core.InputProcessButton(translated, action == glfw.Press)
}

func cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	if xpos < 0 {
		xpos = 0
	}
	if ypos < 0 {
		ypos = 0
	}
	core.InputProcessMouseMove(uint16(xpos), uint16(ypos))
}

func scrollCallback(w *glfw.Window, xoff, yoff float64) {
	core.InputProcessMouseWheel(int8(yoff))
}

func framebufferSizeCallback(w *glfw.Window, width, height int) {
	core.EventFire(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{
			WindowWidth:  uint32(width),
			WindowHeight: uint32(height),
		},
	})
}

// translateKey maps GLFW keys onto the engine key codes. Letters line up
// with their ASCII values on both sides; everything else needs the table.
func translateKey(key glfw.Key) (core.KeyCode, bool) {
	if key >= glfw.KeyA && key <= glfw.KeyZ {
		return core.KEY_A + core.KeyCode(key-glfw.KeyA), true
	}
	if key >= glfw.KeyF1 && key <= glfw.KeyF24 {
		return core.KEY_F1 + core.KeyCode(key-glfw.KeyF1), true
	}
	if key >= glfw.KeyKP0 && key <= glfw.KeyKP9 {
		return core.KEY_NUMPAD0 + core.KeyCode(key-glfw.KeyKP0), true
	}

	switch key {
	case glfw.KeyEscape:
		return core.KEY_ESCAPE, true
	case glfw.KeyEnter:
		return core.KEY_ENTER, true
	case glfw.KeyTab:
		return core.KEY_TAB, true
	case glfw.KeyBackspace:
		return core.KEY_BACKSPACE, true
	case glfw.KeySpace:
		return core.KEY_SPACE, true
	case glfw.KeyInsert:
		return core.KEY_INSERT, true
	case glfw.KeyDelete:
		return core.KEY_DELETE, true
	case glfw.KeyHome:
		return core.KEY_HOME, true
	case glfw.KeyEnd:
		return core.KEY_END, true
	case glfw.KeyPageUp:
		return core.KEY_PRIOR, true
	case glfw.KeyPageDown:
		return core.KEY_NEXT, true
	case glfw.KeyLeft:
		return core.KEY_LEFT, true
	case glfw.KeyUp:
		return core.KEY_UP, true
	case glfw.KeyRight:
		return core.KEY_RIGHT, true
	case glfw.KeyDown:
		return core.KEY_DOWN, true
	case glfw.KeyLeftShift:
		return core.KEY_LSHIFT, true
	case glfw.KeyRightShift:
		return core.KEY_RSHIFT, true
	case glfw.KeyLeftControl:
		return core.KEY_LCONTROL, true
	case glfw.KeyRightControl:
		return core.KEY_RCONTROL, true
	case glfw.KeyLeftAlt:
		return core.KEY_LMENU, true
	case glfw.KeyRightAlt:
		return core.KEY_RMENU, true
	case glfw.KeyPause:
		return core.KEY_PAUSE, true
	case glfw.KeyCapsLock:
		return core.KEY_CAPITAL, true
	case glfw.KeyNumLock:
		return core.KEY_NUMLOCK, true
	case glfw.KeyScrollLock:
		return core.KEY_SCROLL, true
	case glfw.KeyPrintScreen:
		return core.KEY_SNAPSHOT, true
	case glfw.KeySemicolon:
		return core.KEY_SEMICOLON, true
	case glfw.KeyEqual:
		return core.KEY_PLUS, true
	case glfw.KeyComma:
		return core.KEY_COMMA, true
	case glfw.KeyMinus:
		return core.KEY_MINUS, true
	case glfw.KeyPeriod:
		return core.KEY_PERIOD, true
	case glfw.KeySlash:
		return core.KEY_SLASH, true
	case glfw.KeyGraveAccent:
		return core.KEY_GRAVE, true
	case glfw.KeyKPAdd:
		return core.KEY_ADD, true
	case glfw.KeyKPSubtract:
		return core.KEY_SUBTRACT, true
	case glfw.KeyKPMultiply:
		return core.KEY_MULTIPLY, true
	case glfw.KeyKPDivide:
		return core.KEY_DIVIDE, true
	case glfw.KeyKPDecimal:
		return core.KEY_DECIMAL, true
	case glfw.KeyKPEqual:
		return core.KEY_NUMPAD_EQUAL, true
	}
	return 0, false
}
