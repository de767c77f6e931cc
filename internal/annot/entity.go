// Package annot is the annotation model of a single diagram: freehand lines,
// geometric shapes and text labels, all in image space (source pixels,
// origin top-left), plus the store that owns them and the selection.
package annot

import (
	"math"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/irfansharif/markup/internal/geom"
)

// ID identifies an annotation for the lifetime of its panel.
type ID string

// NewID returns a fresh time-ordered identifier.
func NewID() ID {
	return ID(uuid.Must(uuid.NewV7()).String())
}

// Kind names the collection an annotation lives in.
type Kind int

const (
	KindLine Kind = iota
	KindShape
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindShape:
		return "shape"
	case KindText:
		return "text"
	}
	return "unknown"
}

// Ref addresses one annotation.
type Ref struct {
	ID   ID
	Kind Kind
}

// Line is a freehand polyline.
type Line struct {
	ID          ID
	Points      []geom.Point
	Stroke      Color
	StrokeWidth float64
	Draggable   bool
}

// Shape is a stroked (and optionally filled) geometric primitive.
type Shape struct {
	ID          ID
	Geometry    Geometry
	Fill        *Color // nil draws no fill
	Stroke      Color
	StrokeWidth float64
	Draggable   bool
}

// Text is a single-line label whose top-left corner sits at (X, Y).
type Text struct {
	ID        ID
	X, Y      float64
	Text      string
	FontSize  float64
	Fill      Color
	Draggable bool
}

// Geometry is one of Rect, Circle or Segment.
type Geometry interface {
	// Kind is the wire discriminant: "rectangle", "circle" or "segment".
	Kind() string
	// Translate returns the geometry moved by d.
	Translate(d geom.Point) Geometry
	// Bounds returns the normalized bounding box.
	Bounds() geom.Box
	// OutlineDist returns the distance from p to the drawn outline.
	OutlineDist(p geom.Point) float64
	// Inside reports whether p lies in the filled area.
	Inside(p geom.Point) bool

	isGeometry()
}

// Rect is anchored at (X, Y); W and H are negative when it was dragged out
// up or to the left and are only normalized when read.
type Rect struct {
	X, Y, W, H float64
}

// Circle is centred at (X, Y).
type Circle struct {
	X, Y, R float64
}

// Segment is a straight line between two points.
type Segment struct {
	P1, P2 geom.Point
}

const (
	KindRectangle = "rectangle"
	KindCircle    = "circle"
	KindSegment   = "segment"
)

func (Rect) isGeometry()    {}
func (Circle) isGeometry()  {}
func (Segment) isGeometry() {}

func (Rect) Kind() string    { return KindRectangle }
func (Circle) Kind() string  { return KindCircle }
func (Segment) Kind() string { return KindSegment }

func (r Rect) Box() geom.Box { return geom.MakeBox(r.X, r.Y, r.W, r.H) }

// Normalized returns the rectangle with non-negative extents.
func (r Rect) Normalized() Rect {
	b := r.Box().Normalized()
	return Rect{b.X, b.Y, b.W, b.H}
}

func (r Rect) Translate(d geom.Point) Geometry {
	return Rect{r.X + d.X, r.Y + d.Y, r.W, r.H}
}

func (r Rect) Bounds() geom.Box { return r.Box().Normalized() }

func (r Rect) Corners() [4]geom.Point {
	n := r.Normalized()
	return [4]geom.Point{
		{X: n.X, Y: n.Y},
		{X: n.X + n.W, Y: n.Y},
		{X: n.X + n.W, Y: n.Y + n.H},
		{X: n.X, Y: n.Y + n.H},
	}
}

func (r Rect) OutlineDist(p geom.Point) float64 {
	c := r.Corners()
	d := math.Inf(1)
	for i := range c {
		d = math.Min(d, geom.SegmentDist(p, c[i], c[(i+1)%4]))
	}
	return d
}

func (r Rect) Inside(p geom.Point) bool { return r.Box().Contains(p) }

func (c Circle) Center() geom.Point { return geom.MakePoint(c.X, c.Y) }

func (c Circle) Translate(d geom.Point) Geometry {
	return Circle{c.X + d.X, c.Y + d.Y, c.R}
}

func (c Circle) Bounds() geom.Box {
	r := math.Abs(c.R)
	return geom.MakeBox(c.X-r, c.Y-r, 2*r, 2*r)
}

func (c Circle) OutlineDist(p geom.Point) float64 {
	return math.Abs(geom.Dist(p, c.Center()) - math.Abs(c.R))
}

func (c Circle) Inside(p geom.Point) bool { return geom.Dist(p, c.Center()) <= math.Abs(c.R) }

func (s Segment) Translate(d geom.Point) Geometry {
	return Segment{s.P1.Add(d), s.P2.Add(d)}
}

func (s Segment) Bounds() geom.Box {
	return geom.MakeBox(s.P1.X, s.P1.Y, s.P2.X-s.P1.X, s.P2.Y-s.P1.Y).Normalized()
}

func (s Segment) OutlineDist(p geom.Point) float64 { return geom.SegmentDist(p, s.P1, s.P2) }

// Inside is always false: a segment has no area.
func (s Segment) Inside(geom.Point) bool { return false }

// Translate moves every point of the line by d.
func (l Line) Translate(d geom.Point) Line {
	pts := make([]geom.Point, len(l.Points))
	for i, p := range l.Points {
		pts[i] = p.Add(d)
	}
	l.Points = pts
	return l
}

// Dist returns the distance from p to the polyline.
func (l Line) Dist(p geom.Point) float64 {
	switch len(l.Points) {
	case 0:
		return math.Inf(1)
	case 1:
		return geom.Dist(p, l.Points[0])
	}
	d := math.Inf(1)
	for i := 1; i < len(l.Points); i++ {
		d = math.Min(d, geom.SegmentDist(p, l.Points[i-1], l.Points[i]))
	}
	return d
}

func (l Line) clone() Line {
	l.Points = append([]geom.Point(nil), l.Points...)
	return l
}

func (s Shape) clone() Shape {
	if s.Fill != nil {
		f := *s.Fill
		s.Fill = &f
	}
	return s
}

// Pos returns the top-left anchor of the text.
func (t Text) Pos() geom.Point { return geom.MakePoint(t.X, t.Y) }

// EstimateSize approximates the rendered extent of the text for hit testing
// when no font metrics are at hand.
func (t Text) EstimateSize() geom.Point {
	return geom.MakePoint(0.6*t.FontSize*float64(utf8.RuneCountInString(t.Text)), t.FontSize)
}

// Measurer reports the rendered width and height of a text label in image
// pixels.
type Measurer func(Text) geom.Point
