package interact

import (
	"fmt"

	"github.com/irfansharif/markup/internal/annot"
	"github.com/irfansharif/markup/internal/geom"
)

// State is the interaction state of a panel.
type State int

const (
	Idle State = iota
	Panning
	Drawing
	AwaitingTextInput
	DraggingEntity
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Panning:
		return "panning"
	case Drawing:
		return "drawing"
	case AwaitingTextInput:
		return "awaiting-text"
	case DraggingEntity:
		return "dragging"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type PointerAction int

const (
	Press PointerAction = iota
	Move
	Release
)

type Button int

const (
	Primary Button = iota
	Secondary
)

// PointerEvent is a pointer input in screen space: pixels relative to the
// panel's top-left corner. Button is ignored for Move.
type PointerEvent struct {
	Action PointerAction
	Button Button
	Pos    geom.Point
}

type Key int

const (
	KeyDelete Key = iota
	KeyEscape
)

type KeyEvent struct {
	Key Key
}

// Purpose says what the answer to a TextRequest is for.
type Purpose int

const (
	CreateText Purpose = iota
	RecolorSelection
	EditSelectionText
)

// TextRequest asks the host for a line of text. The panel stays in
// AwaitingTextInput until the host calls ResolveText or CancelText.
type TextRequest struct {
	Purpose Purpose
	Label   string
	Default string
}

// Action is a context menu entry.
type Action int

const (
	ActionDelete Action = iota
	ActionRecolor
	ActionEditText
)

func (a Action) String() string {
	switch a {
	case ActionDelete:
		return "Delete"
	case ActionRecolor:
		return "Change Color"
	case ActionEditText:
		return "Edit Text"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Menu is the context menu for the current selection.
type Menu struct {
	Target annot.Ref
	Items  []Action
}
