package interact

import (
	"fmt"
	"strings"

	"github.com/irfansharif/markup/internal/annot"
)

// Tool is the annotation tool started by a primary press on empty canvas.
type Tool int

const (
	ToolPen Tool = iota
	ToolRectangle
	ToolCircle
	ToolSegment
	ToolText
)

var toolNames = [...]string{
	ToolPen:       "pen",
	ToolRectangle: "rectangle",
	ToolCircle:    "circle",
	ToolSegment:   "segment",
	ToolText:      "text",
}

func (t Tool) String() string {
	if t >= 0 && int(t) < len(toolNames) {
		return toolNames[t]
	}
	return fmt.Sprintf("Tool(%d)", int(t))
}

// ParseTool maps a tool name to its Tool. "line" is accepted for segment.
func ParseTool(s string) (Tool, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "line" {
		return ToolSegment, nil
	}
	for i, name := range toolNames {
		if name == s {
			return Tool(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tool %q", s)
}

func (t Tool) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tool) UnmarshalText(b []byte) error {
	parsed, err := ParseTool(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

const (
	MinStrokeWidth = 1
	MaxStrokeWidth = 20
)

// Settings are the host-owned tool settings shared by every panel. They are
// passed in with each event and never retained.
type Settings struct {
	AnnotationsEnabled bool
	Tool               Tool
	Color              annot.Color
	StrokeWidth        int
}

// DefaultSettings mirror a fresh viewer: annotating with a red 2px pen.
var DefaultSettings = Settings{
	AnnotationsEnabled: true,
	Tool:               ToolPen,
	Color:              annot.Red,
	StrokeWidth:        2,
}

// Width returns the stroke width in image pixels, clamped to the allowed
// range.
func (s Settings) Width() float64 {
	w := s.StrokeWidth
	if w < MinStrokeWidth {
		w = MinStrokeWidth
	}
	if w > MaxStrokeWidth {
		w = MaxStrokeWidth
	}
	return float64(w)
}
