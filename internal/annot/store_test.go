package annot

import (
	"errors"
	"fmt"
	"testing"

	"github.com/irfansharif/markup/internal/geom"
)

func pt(x, y float64) geom.Point { return geom.MakePoint(x, y) }

func TestIDsUniqueAndNeverReused(t *testing.T) {
	s := NewStore(Snapshot{})
	seen := make(map[ID]bool)
	for i := 0; i < 200; i++ {
		var ref Ref
		switch i % 3 {
		case 0:
			ref = s.AddLine(Line{Points: []geom.Point{pt(1, 1)}})
		case 1:
			ref = s.AddShape(Shape{Geometry: Rect{0, 0, 1, 1}})
		case 2:
			ref = s.AddText(Text{Text: "x"})
		}
		if seen[ref.ID] {
			t.Fatalf("id %s reused", ref.ID)
		}
		seen[ref.ID] = true
		if i%2 == 0 {
			s.Remove(ref)
		}
	}
	s.Clear()
	if ref := s.AddText(Text{Text: "after clear"}); seen[ref.ID] {
		t.Fatalf("id %s reused after clear", ref.ID)
	}
}

func TestSeedDuplicatesGetFreshIDs(t *testing.T) {
	s := NewStore(Snapshot{
		Lines: []Line{{ID: "a"}, {ID: "a"}},
		Texts: []Text{{ID: "a"}},
	})
	snap := s.Snapshot()
	if snap.Lines[0].ID != "a" {
		t.Fatalf("first seeded id should be kept, got %s", snap.Lines[0].ID)
	}
	if snap.Lines[1].ID == "a" || snap.Texts[0].ID == "a" {
		t.Fatal("duplicate seed id was kept")
	}
	if s.AddText(Text{ID: snap.Lines[1].ID}).ID == snap.Lines[1].ID {
		t.Fatal("explicit id collision was accepted")
	}
}

func TestRemoveClearsSelection(t *testing.T) {
	s := NewStore(Snapshot{})
	ref := s.AddShape(Shape{Geometry: Circle{5, 5, 2}})
	if err := s.Select(ref); err != nil {
		t.Fatal(err)
	}
	if !s.Remove(ref) {
		t.Fatal("remove reported nothing removed")
	}
	if _, ok := s.Selection(); ok {
		t.Fatal("selection survived removal")
	}
	if err := s.Select(ref); !errors.Is(err, ErrNotFound) {
		t.Fatalf("selecting a removed entity: %v", err)
	}
	if s.Remove(ref) {
		t.Fatal("second remove should be a no-op")
	}
}

func TestTranslate(t *testing.T) {
	s := NewStore(Snapshot{})
	l := s.AddLine(Line{Points: []geom.Point{pt(0, 0), pt(10, 10)}})
	r := s.AddShape(Shape{Geometry: Rect{1, 2, -3, 4}})
	c := s.AddShape(Shape{Geometry: Circle{1, 1, 5}})
	g := s.AddShape(Shape{Geometry: Segment{pt(0, 0), pt(1, 1)}})
	x := s.AddText(Text{X: 3, Y: 4})

	d := pt(5, -1)
	for _, ref := range []Ref{l, r, c, g, x} {
		if err := s.Translate(ref, d); err != nil {
			t.Fatal(err)
		}
	}

	line, _ := s.Line(l.ID)
	if line.Points[0] != pt(5, -1) || line.Points[1] != pt(15, 9) {
		t.Errorf("line points %v", line.Points)
	}
	rect, _ := s.Shape(r.ID)
	if rect.Geometry != (Rect{6, 1, -3, 4}) {
		t.Errorf("rect %+v", rect.Geometry)
	}
	circ, _ := s.Shape(c.ID)
	if circ.Geometry != (Circle{6, 0, 5}) {
		t.Errorf("circle %+v", circ.Geometry)
	}
	seg, _ := s.Shape(g.ID)
	if seg.Geometry != (Segment{pt(5, -1), pt(6, 0)}) {
		t.Errorf("segment %+v", seg.Geometry)
	}
	text, _ := s.Text(x.ID)
	if text.Pos() != pt(8, 3) {
		t.Errorf("text at %v", text.Pos())
	}
}

func TestRecolorTargetsFillOrStroke(t *testing.T) {
	s := NewStore(Snapshot{})
	fill := Black
	sh := s.AddShape(Shape{Geometry: Rect{0, 0, 1, 1}, Fill: &fill, Stroke: Black})
	tx := s.AddText(Text{Text: "a", Fill: Black})
	ln := s.AddLine(Line{Stroke: Black})

	for _, ref := range []Ref{sh, tx, ln} {
		if err := s.Recolor(ref, Red); err != nil {
			t.Fatal(err)
		}
	}
	shape, _ := s.Shape(sh.ID)
	if shape.Stroke != Red || *shape.Fill != Black {
		t.Errorf("shape stroke %v fill %v", shape.Stroke, *shape.Fill)
	}
	text, _ := s.Text(tx.ID)
	if text.Fill != Red {
		t.Errorf("text fill %v", text.Fill)
	}
	line, _ := s.Line(ln.ID)
	if line.Stroke != Red {
		t.Errorf("line stroke %v", line.Stroke)
	}
}

func TestSetText(t *testing.T) {
	s := NewStore(Snapshot{})
	ref := s.AddText(Text{Text: "old"})
	if changed, err := s.SetText(ref.ID, "old"); changed || err != nil {
		t.Fatalf("same text: changed=%v err=%v", changed, err)
	}
	if changed, err := s.SetText(ref.ID, "new"); !changed || err != nil {
		t.Fatalf("new text: changed=%v err=%v", changed, err)
	}
	if _, err := s.SetText("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing id: %v", err)
	}
}

func TestHitTestOrder(t *testing.T) {
	s := NewStore(Snapshot{})
	ln := s.AddLine(Line{Points: []geom.Point{pt(0, 50), pt(100, 50)}, StrokeWidth: 2})
	old := s.AddShape(Shape{Geometry: Rect{40, 40, 20, 20}, StrokeWidth: 2})
	newer := s.AddShape(Shape{Geometry: Rect{60, 40, -20, 20}, StrokeWidth: 2})
	tx := s.AddText(Text{X: 200, Y: 200, Text: "hello", FontSize: 10})

	tests := []struct {
		name string
		p    geom.Point
		want Ref
		hit  bool
	}{
		{"text box", pt(210, 205), tx, true},
		{"newest shape wins", pt(40, 45), newer, true},
		{"line", pt(10, 51), ln, true},
		{"hollow rect interior falls through to line", pt(50, 50), ln, true},
		{"miss", pt(500, 500), Ref{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.HitTest(tt.p, 2, nil)
			if ok != tt.hit || got != tt.want {
				t.Fatalf("HitTest(%v) = %v, %v; want %v, %v", tt.p, got, ok, tt.want, tt.hit)
			}
		})
	}
	_ = old
}

func TestHitTestFilledShape(t *testing.T) {
	s := NewStore(Snapshot{})
	fill := Red
	ref := s.AddShape(Shape{Geometry: Circle{50, 50, 20}, Fill: &fill, StrokeWidth: 1})
	if got, ok := s.HitTest(pt(50, 50), 0, nil); !ok || got != ref {
		t.Fatalf("filled circle centre not hit: %v %v", got, ok)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := NewStore(Snapshot{})
	ref := s.AddLine(Line{Points: []geom.Point{pt(1, 2)}})
	snap := s.Snapshot()
	snap.Lines[0].Points[0] = pt(99, 99)
	line, _ := s.Line(ref.ID)
	if line.Points[0] != pt(1, 2) {
		t.Fatalf("store mutated through snapshot: %v", line.Points)
	}
}

func ExampleStore_HitTest() {
	s := NewStore(Snapshot{})
	ref := s.AddShape(Shape{Geometry: Rect{10, 10, 100, 50}, StrokeWidth: 2})
	got, ok := s.HitTest(geom.MakePoint(10, 30), 1, nil)
	fmt.Println(ok, got == ref, got.Kind)
	// Output: true true shape
}
