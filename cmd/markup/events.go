package main

import (
	"log"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/irfansharif/markup/internal/app"
	"github.com/irfansharif/markup/internal/geom"
	"github.com/irfansharif/markup/internal/interact"
	"github.com/irfansharif/markup/internal/library"
)

// toolKeys bind letter keys to annotation tools.
var toolKeys = map[glfw.Key]interact.Tool{
	glfw.KeyP: interact.ToolPen,
	glfw.KeyR: interact.ToolRectangle,
	glfw.KeyO: interact.ToolCircle,
	glfw.KeyL: interact.ToolSegment,
	glfw.KeyT: interact.ToolText,
}

// menuKeys bind letter keys to context menu items while the menu is open.
var menuKeys = map[glfw.Key]interact.Action{
	glfw.KeyD: interact.ActionDelete,
	glfw.KeyC: interact.ActionRecolor,
	glfw.KeyE: interact.ActionEditText,
}

// EventHandlers manages all event handling for the application.
type EventHandlers struct {
	application *app.App
	window      *glfw.Window
}

// NewEventHandlers creates a new event handlers manager.
func NewEventHandlers(application *app.App, window *glfw.Window) *EventHandlers {
	eh := &EventHandlers{application: application, window: window}
	eh.SetupCallbacks(window)
	return eh
}

// SetupCallbacks configures all GLFW event callbacks.
func (eh *EventHandlers) SetupCallbacks(window *glfw.Window) {
	window.SetKeyCallback(func(wnd *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
		eh.handleKey(key, action, mods) // tools, commands and prompt editing
	})
	window.SetCharCallback(func(wnd *glfw.Window, char rune) {
		eh.application.TypeRune(char) // only lands while a prompt is open
	})
	window.SetMouseButtonCallback(func(wnd *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		eh.handleMouseButton(button, action) // drawing, selection, panning
	})
	window.SetCursorPosCallback(func(wnd *glfw.Window, xpos, ypos float64) {
		eh.application.CursorMoved(geom.MakePoint(xpos, ypos))
	})
	window.SetScrollCallback(func(wnd *glfw.Window, _, zoomDelta float64) {
		x, y := wnd.GetCursorPos()
		eh.application.Scroll(geom.MakePoint(x, y), zoomDelta) // zoom at cursor
	})
	window.SetSizeCallback(func(wnd *glfw.Window, newW, newH int) {
		eh.application.Resize(float64(newW), float64(newH)) // re-tile panels
	})
	window.SetFramebufferSizeCallback(func(wnd *glfw.Window, newW, newH int) {
		eh.handleFramebufferSize(newW, newH) // for high-density displays
	})
}

// handleFramebufferSize keeps the renderer's pixel ratio current.
func (eh *EventHandlers) handleFramebufferSize(newW, newH int) {
	ww, _ := eh.window.GetSize()
	eh.application.Renderer.SetWindow(newW, newH, float64(newW)/float64(max(ww, 1)))
}

// handleKey handles keyboard input events.
func (eh *EventHandlers) handleKey(key glfw.Key, action glfw.Action, mods glfw.ModifierKey) {
	a := eh.application

	// While typing into a prompt only editing keys do anything; characters
	// arrive through the char callback.
	if _, ok := a.Prompt(); ok {
		if action == glfw.Release {
			return
		}
		switch key {
		case glfw.KeyEnter, glfw.KeyKPEnter:
			if err := a.SubmitPrompt(); err != nil {
				log.Printf("Rejected input: %v", err)
			}
		case glfw.KeyBackspace:
			a.Backspace()
		case glfw.KeyEscape:
			a.CancelPrompt()
		}
		return
	}

	if action != glfw.Press {
		if action == glfw.Repeat && (key == glfw.KeyLeftBracket || key == glfw.KeyRightBracket) {
			eh.handleStrokeWidthKey(key)
		}
		return
	}

	if _, ok := a.Menu(); ok {
		if item, ok := menuKeys[key]; ok {
			a.InvokeMenu(item)
			return
		}
	}

	if tool, ok := toolKeys[key]; ok {
		a.SetTool(tool)
		return
	}
	if key >= glfw.Key1 && key <= glfw.Key9 {
		a.PickColor(int(key-glfw.Key1) + 1)
		return
	}

	switch key {
	case glfw.KeyA:
		a.ToggleAnnotations()
	case glfw.KeyLeftBracket, glfw.KeyRightBracket:
		eh.handleStrokeWidthKey(key)
	case glfw.Key0:
		a.ResetView()
	case glfw.KeyEqual, glfw.KeyKPAdd:
		a.StepScale(1)
	case glfw.KeyMinus, glfw.KeyKPSubtract:
		a.StepScale(-1)
	case glfw.KeyX:
		a.ClearFocused()
	case glfw.KeyE:
		eh.handleExportKey()
	case glfw.KeyDelete, glfw.KeyBackspace:
		a.DeleteSelected()
	case glfw.KeyM:
		a.OpenMenu()
	case glfw.KeyEscape:
		a.Escape()
	case glfw.KeyTab:
		a.FocusNext((mods & glfw.ModShift) == 0)
	case glfw.KeyW:
		if (mods & (glfw.ModSuper | glfw.ModControl)) != 0 {
			eh.window.SetShouldClose(true)
		}
	}
}

// handleStrokeWidthKey handles [ and ] (thinner and thicker strokes).
func (eh *EventHandlers) handleStrokeWidthKey(key glfw.Key) {
	if key == glfw.KeyLeftBracket {
		eh.application.AdjustStrokeWidth(-1)
	} else {
		eh.application.AdjustStrokeWidth(1)
	}
}

// handleExportKey handles E: export the focused panel next to its source.
func (eh *EventHandlers) handleExportKey() {
	out, err := eh.application.ExportFocused()
	if err != nil {
		log.Printf("Export failed: %v", err)
		return
	}
	log.Printf("Exported %s", out)
}

// handleMouseButton maps GLFW buttons onto panel buttons: left draws and
// selects, right (or middle) pans.
func (eh *EventHandlers) handleMouseButton(button glfw.MouseButton, action glfw.Action) {
	var b interact.Button
	switch button {
	case glfw.MouseButtonLeft:
		b = interact.Primary
	case glfw.MouseButtonRight, glfw.MouseButtonMiddle:
		b = interact.Secondary
	default:
		return // nothing to do
	}

	var pa interact.PointerAction
	switch action {
	case glfw.Press:
		pa = interact.Press
	case glfw.Release:
		pa = interact.Release
	default:
		return
	}
	x, y := eh.window.GetCursorPos()
	eh.application.MouseButton(b, pa, geom.MakePoint(x, y))
}

// drainLibrary applies pending changes to the diagrams directory without
// blocking the frame.
func (eh *EventHandlers) drainLibrary(events <-chan library.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			eh.application.HandleLibraryEvent(ev)
		default:
			return
		}
	}
}
