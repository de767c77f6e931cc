package annot

import (
	"encoding/json"
	"fmt"

	"github.com/irfansharif/markup/internal/geom"
	"gopkg.in/yaml.v3"
)

// Snapshot is the full annotation state of a panel, the unit exchanged with
// the host for persistence.
type Snapshot struct {
	Lines  []Line
	Shapes []Shape
	Texts  []Text
}

// Empty reports whether the snapshot has no annotations.
func (s Snapshot) Empty() bool {
	return len(s.Lines) == 0 && len(s.Shapes) == 0 && len(s.Texts) == 0
}

// The wire format keeps points as flat [x1, y1, x2, y2, ...] arrays and
// shapes as one record discriminated by type.

type wireLine struct {
	ID          ID        `json:"id" yaml:"id"`
	Points      []float64 `json:"points" yaml:"points,flow"`
	Stroke      Color     `json:"stroke" yaml:"stroke"`
	StrokeWidth float64   `json:"strokeWidth" yaml:"strokeWidth"`
	Draggable   bool      `json:"draggable" yaml:"draggable"`
}

type wireShape struct {
	ID          ID        `json:"id" yaml:"id"`
	Type        string    `json:"type" yaml:"type"`
	X           float64   `json:"x,omitempty" yaml:"x,omitempty"`
	Y           float64   `json:"y,omitempty" yaml:"y,omitempty"`
	Width       float64   `json:"width,omitempty" yaml:"width,omitempty"`
	Height      float64   `json:"height,omitempty" yaml:"height,omitempty"`
	Radius      float64   `json:"radius,omitempty" yaml:"radius,omitempty"`
	Points      []float64 `json:"points,omitempty" yaml:"points,omitempty,flow"`
	Fill        string    `json:"fill" yaml:"fill"`
	Stroke      Color     `json:"stroke" yaml:"stroke"`
	StrokeWidth float64   `json:"strokeWidth" yaml:"strokeWidth"`
	Draggable   bool      `json:"draggable" yaml:"draggable"`
}

type wireText struct {
	ID        ID      `json:"id" yaml:"id"`
	X         float64 `json:"x" yaml:"x"`
	Y         float64 `json:"y" yaml:"y"`
	Text      string  `json:"text" yaml:"text"`
	FontSize  float64 `json:"fontSize" yaml:"fontSize"`
	Fill      Color   `json:"fill" yaml:"fill"`
	Draggable bool    `json:"draggable" yaml:"draggable"`
}

type wireSnapshot struct {
	Lines  []wireLine  `json:"lines" yaml:"lines"`
	Shapes []wireShape `json:"shapes" yaml:"shapes"`
	Texts  []wireText  `json:"texts" yaml:"texts"`
}

func flatten(pts []geom.Point) []float64 {
	out := make([]float64, 0, 2*len(pts))
	for _, p := range pts {
		out = append(out, p.X, p.Y)
	}
	return out
}

func unflatten(xs []float64) ([]geom.Point, error) {
	if len(xs)%2 != 0 {
		return nil, fmt.Errorf("odd number of coordinates (%d)", len(xs))
	}
	pts := make([]geom.Point, 0, len(xs)/2)
	for i := 0; i < len(xs); i += 2 {
		pts = append(pts, geom.MakePoint(xs[i], xs[i+1]))
	}
	return pts, nil
}

func (s Snapshot) wire() wireSnapshot {
	w := wireSnapshot{
		Lines:  make([]wireLine, 0, len(s.Lines)),
		Shapes: make([]wireShape, 0, len(s.Shapes)),
		Texts:  make([]wireText, 0, len(s.Texts)),
	}
	for _, l := range s.Lines {
		w.Lines = append(w.Lines, wireLine{
			ID:          l.ID,
			Points:      flatten(l.Points),
			Stroke:      l.Stroke,
			StrokeWidth: l.StrokeWidth,
			Draggable:   l.Draggable,
		})
	}
	for _, sh := range s.Shapes {
		ws := wireShape{
			ID:          sh.ID,
			Fill:        Transparent,
			Stroke:      sh.Stroke,
			StrokeWidth: sh.StrokeWidth,
			Draggable:   sh.Draggable,
		}
		if sh.Fill != nil {
			ws.Fill = sh.Fill.Hex()
		}
		switch g := sh.Geometry.(type) {
		case Rect:
			ws.Type, ws.X, ws.Y, ws.Width, ws.Height = KindRectangle, g.X, g.Y, g.W, g.H
		case Circle:
			ws.Type, ws.X, ws.Y, ws.Radius = KindCircle, g.X, g.Y, g.R
		case Segment:
			ws.Type, ws.Points = KindSegment, flatten([]geom.Point{g.P1, g.P2})
		}
		w.Shapes = append(w.Shapes, ws)
	}
	for _, t := range s.Texts {
		w.Texts = append(w.Texts, wireText(t))
	}
	return w
}

func (w wireSnapshot) snapshot() (Snapshot, error) {
	var s Snapshot
	for _, wl := range w.Lines {
		pts, err := unflatten(wl.Points)
		if err != nil {
			return Snapshot{}, fmt.Errorf("line %s: %w", wl.ID, err)
		}
		s.Lines = append(s.Lines, Line{
			ID:          wl.ID,
			Points:      pts,
			Stroke:      wl.Stroke,
			StrokeWidth: wl.StrokeWidth,
			Draggable:   wl.Draggable,
		})
	}
	for _, ws := range w.Shapes {
		sh := Shape{
			ID:          ws.ID,
			Stroke:      ws.Stroke,
			StrokeWidth: ws.StrokeWidth,
			Draggable:   ws.Draggable,
		}
		if ws.Fill != "" && ws.Fill != Transparent {
			c, err := ParseColor(ws.Fill)
			if err != nil {
				return Snapshot{}, fmt.Errorf("shape %s fill: %w", ws.ID, err)
			}
			sh.Fill = &c
		}
		switch ws.Type {
		case KindRectangle:
			sh.Geometry = Rect{ws.X, ws.Y, ws.Width, ws.Height}
		case KindCircle:
			sh.Geometry = Circle{ws.X, ws.Y, ws.Radius}
		case KindSegment, "line":
			pts, err := unflatten(ws.Points)
			if err != nil || len(pts) != 2 {
				return Snapshot{}, fmt.Errorf("shape %s: segment needs exactly 4 coordinates, got %d", ws.ID, len(ws.Points))
			}
			sh.Geometry = Segment{pts[0], pts[1]}
		default:
			return Snapshot{}, fmt.Errorf("shape %s: unknown type %q", ws.ID, ws.Type)
		}
		s.Shapes = append(s.Shapes, sh)
	}
	for _, wt := range w.Texts {
		s.Texts = append(s.Texts, Text(wt))
	}
	return s, nil
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.wire())
}

func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var w wireSnapshot
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	snap, err := w.snapshot()
	if err != nil {
		return err
	}
	*s = snap
	return nil
}

func (s Snapshot) MarshalYAML() (interface{}, error) {
	return s.wire(), nil
}

func (s *Snapshot) UnmarshalYAML(n *yaml.Node) error {
	var w wireSnapshot
	if err := n.Decode(&w); err != nil {
		return err
	}
	snap, err := w.snapshot()
	if err != nil {
		return err
	}
	*s = snap
	return nil
}
