package annot

import (
	"errors"
	"fmt"

	"github.com/irfansharif/markup/internal/geom"
)

// ErrNotFound is returned when a Ref names no live annotation.
var ErrNotFound = errors.New("annotation not found")

// Store owns the committed annotations of one panel and its selection. Each
// collection keeps insertion order, which is also the draw order. Ids are
// never reused, not even after removal.
type Store struct {
	lines  []Line
	shapes []Shape
	texts  []Text

	selected Ref
	hasSel   bool

	used  map[ID]struct{}
	newID func() ID
}

// NewStore creates a store seeded with the contents of snap. Entities in the
// seed with an empty or duplicate id are assigned a fresh one.
func NewStore(snap Snapshot) *Store {
	s := &Store{used: make(map[ID]struct{}), newID: NewID}
	for _, l := range snap.Lines {
		s.AddLine(l)
	}
	for _, sh := range snap.Shapes {
		s.AddShape(sh)
	}
	for _, t := range snap.Texts {
		s.AddText(t)
	}
	return s
}

func (s *Store) claim(id ID) ID {
	if _, ok := s.used[id]; id == "" || ok {
		for {
			id = s.newID()
			if _, ok := s.used[id]; !ok {
				break
			}
		}
	}
	s.used[id] = struct{}{}
	return id
}

// AddLine appends l, assigning its id, and returns its reference.
func (s *Store) AddLine(l Line) Ref {
	l = l.clone()
	l.ID = s.claim(l.ID)
	s.lines = append(s.lines, l)
	return Ref{l.ID, KindLine}
}

// AddShape appends sh, assigning its id, and returns its reference.
func (s *Store) AddShape(sh Shape) Ref {
	sh = sh.clone()
	sh.ID = s.claim(sh.ID)
	s.shapes = append(s.shapes, sh)
	return Ref{sh.ID, KindShape}
}

// AddText appends t, assigning its id, and returns its reference.
func (s *Store) AddText(t Text) Ref {
	t.ID = s.claim(t.ID)
	s.texts = append(s.texts, t)
	return Ref{t.ID, KindText}
}

func (s *Store) index(ref Ref) int {
	switch ref.Kind {
	case KindLine:
		for i := range s.lines {
			if s.lines[i].ID == ref.ID {
				return i
			}
		}
	case KindShape:
		for i := range s.shapes {
			if s.shapes[i].ID == ref.ID {
				return i
			}
		}
	case KindText:
		for i := range s.texts {
			if s.texts[i].ID == ref.ID {
				return i
			}
		}
	}
	return -1
}

// Has reports whether ref names a live annotation.
func (s *Store) Has(ref Ref) bool { return s.index(ref) >= 0 }

// Line returns the line with the given id.
func (s *Store) Line(id ID) (Line, bool) {
	if i := s.index(Ref{id, KindLine}); i >= 0 {
		return s.lines[i].clone(), true
	}
	return Line{}, false
}

// Shape returns the shape with the given id.
func (s *Store) Shape(id ID) (Shape, bool) {
	if i := s.index(Ref{id, KindShape}); i >= 0 {
		return s.shapes[i].clone(), true
	}
	return Shape{}, false
}

// Text returns the text with the given id.
func (s *Store) Text(id ID) (Text, bool) {
	if i := s.index(Ref{id, KindText}); i >= 0 {
		return s.texts[i], true
	}
	return Text{}, false
}

// Draggable reports whether the referenced annotation may be dragged.
func (s *Store) Draggable(ref Ref) bool {
	i := s.index(ref)
	if i < 0 {
		return false
	}
	switch ref.Kind {
	case KindLine:
		return s.lines[i].Draggable
	case KindShape:
		return s.shapes[i].Draggable
	default:
		return s.texts[i].Draggable
	}
}

// Remove deletes the referenced annotation, clearing the selection if it
// pointed there. Reports whether anything was removed.
func (s *Store) Remove(ref Ref) bool {
	i := s.index(ref)
	if i < 0 {
		return false
	}
	switch ref.Kind {
	case KindLine:
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
	case KindShape:
		s.shapes = append(s.shapes[:i], s.shapes[i+1:]...)
	case KindText:
		s.texts = append(s.texts[:i], s.texts[i+1:]...)
	}
	if s.hasSel && s.selected == ref {
		s.hasSel = false
	}
	return true
}

// Clear removes every annotation and the selection.
func (s *Store) Clear() {
	s.lines, s.shapes, s.texts = nil, nil, nil
	s.hasSel = false
}

// Len returns the number of committed annotations.
func (s *Store) Len() int { return len(s.lines) + len(s.shapes) + len(s.texts) }

// Select makes ref the selection.
func (s *Store) Select(ref Ref) error {
	if !s.Has(ref) {
		return fmt.Errorf("select %s %s: %w", ref.Kind, ref.ID, ErrNotFound)
	}
	s.selected, s.hasSel = ref, true
	return nil
}

// ClearSelection drops the selection, if any.
func (s *Store) ClearSelection() { s.hasSel = false }

// Selection returns the selected annotation.
func (s *Store) Selection() (Ref, bool) { return s.selected, s.hasSel }

// Translate moves the referenced annotation by d (image pixels).
func (s *Store) Translate(ref Ref, d geom.Point) error {
	i := s.index(ref)
	if i < 0 {
		return fmt.Errorf("translate %s %s: %w", ref.Kind, ref.ID, ErrNotFound)
	}
	switch ref.Kind {
	case KindLine:
		s.lines[i] = s.lines[i].Translate(d)
	case KindShape:
		s.shapes[i].Geometry = s.shapes[i].Geometry.Translate(d)
	case KindText:
		s.texts[i].X += d.X
		s.texts[i].Y += d.Y
	}
	return nil
}

// Recolor sets the fill of a text, or the stroke of a line or shape.
func (s *Store) Recolor(ref Ref, c Color) error {
	i := s.index(ref)
	if i < 0 {
		return fmt.Errorf("recolor %s %s: %w", ref.Kind, ref.ID, ErrNotFound)
	}
	switch ref.Kind {
	case KindLine:
		s.lines[i].Stroke = c
	case KindShape:
		s.shapes[i].Stroke = c
	case KindText:
		s.texts[i].Fill = c
	}
	return nil
}

// SetText replaces the content of a text annotation and reports whether it
// changed.
func (s *Store) SetText(id ID, text string) (bool, error) {
	i := s.index(Ref{id, KindText})
	if i < 0 {
		return false, fmt.Errorf("edit text %s: %w", id, ErrNotFound)
	}
	if s.texts[i].Text == text {
		return false, nil
	}
	s.texts[i].Text = text
	return true, nil
}

// HitTest returns the topmost annotation at p (image space). Texts are
// considered first, then shapes, then lines, newest first within each.
// Strokes count as hit within tol plus half their width. A nil measure falls
// back to Text.EstimateSize.
func (s *Store) HitTest(p geom.Point, tol float64, measure Measurer) (Ref, bool) {
	if measure == nil {
		measure = Text.EstimateSize
	}
	for i := len(s.texts) - 1; i >= 0; i-- {
		t := s.texts[i]
		sz := measure(t)
		if geom.MakeBox(t.X, t.Y, sz.X, sz.Y).Grow(tol).Contains(p) {
			return Ref{t.ID, KindText}, true
		}
	}
	for i := len(s.shapes) - 1; i >= 0; i-- {
		sh := s.shapes[i]
		if sh.Fill != nil && sh.Geometry.Inside(p) {
			return Ref{sh.ID, KindShape}, true
		}
		if sh.Geometry.OutlineDist(p) <= tol+sh.StrokeWidth/2 {
			return Ref{sh.ID, KindShape}, true
		}
	}
	for i := len(s.lines) - 1; i >= 0; i-- {
		l := s.lines[i]
		if l.Dist(p) <= tol+l.StrokeWidth/2 {
			return Ref{l.ID, KindLine}, true
		}
	}
	return Ref{}, false
}

// Snapshot returns a deep copy of the committed annotations.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Lines:  make([]Line, len(s.lines)),
		Shapes: make([]Shape, len(s.shapes)),
		Texts:  append([]Text{}, s.texts...),
	}
	for i, l := range s.lines {
		snap.Lines[i] = l.clone()
	}
	for i, sh := range s.shapes {
		snap.Shapes[i] = sh.clone()
	}
	return snap
}
