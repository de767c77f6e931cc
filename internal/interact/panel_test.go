package interact

import (
	"errors"
	"testing"

	"github.com/irfansharif/markup/internal/annot"
	"github.com/irfansharif/markup/internal/geom"
	"github.com/irfansharif/markup/internal/view"
	"gonum.org/v1/gonum/floats/scalar"
)

const tol = 1e-9

func pt(x, y float64) geom.Point { return geom.MakePoint(x, y) }

func near(a, b geom.Point) bool {
	return scalar.EqualWithinAbs(a.X, b.X, tol) && scalar.EqualWithinAbs(a.Y, b.Y, tol)
}

func press(p *Panel, s Settings, b Button, at geom.Point) {
	p.Pointer(PointerEvent{Action: Press, Button: b, Pos: at}, s)
}

func moveTo(p *Panel, s Settings, at geom.Point) {
	p.Pointer(PointerEvent{Action: Move, Pos: at}, s)
}

func release(p *Panel, s Settings, b Button, at geom.Point) {
	p.Pointer(PointerEvent{Action: Release, Button: b, Pos: at}, s)
}

func settings(tool Tool) Settings {
	s := DefaultSettings
	s.Tool = tool
	return s
}

// recorder captures everything a panel pushes to its host.
type recorder struct {
	snaps    []annot.Snapshot
	views    []view.State
	requests []TextRequest
}

func (r *recorder) options() []Option {
	return []Option{
		WithAnnotationsListener(func(s annot.Snapshot) { r.snaps = append(r.snaps, s) }),
		WithViewListener(func(st view.State) { r.views = append(r.views, st) }),
		WithTextRequester(func(req TextRequest) { r.requests = append(r.requests, req) }),
	}
}

func (r *recorder) last() annot.Snapshot {
	if len(r.snaps) == 0 {
		return annot.Snapshot{}
	}
	return r.snaps[len(r.snaps)-1]
}

func newPanel(r *recorder, opts ...Option) *Panel {
	return NewPanel(800, 600, 400, 300, append(r.options(), opts...)...)
}

func TestPenStrokeStoredInImageSpace(t *testing.T) {
	var r recorder
	p := newPanel(&r)
	s := settings(ToolPen)

	press(p, s, Primary, pt(0, 0))
	if p.State() != Drawing {
		t.Fatalf("state = %v, want drawing", p.State())
	}
	moveTo(p, s, pt(400, 300))
	release(p, s, Primary, pt(400, 300))

	if p.State() != Idle {
		t.Fatalf("state = %v after release", p.State())
	}
	snap := r.last()
	if len(snap.Lines) != 1 {
		t.Fatalf("got %d lines", len(snap.Lines))
	}
	got := snap.Lines[0].Points
	if len(got) != 2 || !near(got[0], pt(0, 0)) || !near(got[1], pt(800, 600)) {
		t.Fatalf("points = %v, want [(0,0) (800,600)]", got)
	}
	if snap.Lines[0].Stroke != annot.Red || snap.Lines[0].StrokeWidth != 2 {
		t.Fatalf("line style %+v", snap.Lines[0])
	}
}

func TestPressOutsideImageCreatesNothing(t *testing.T) {
	// 800x600 in 400x400: fit 0.5, image spans screen y 50..350.
	for _, tool := range []Tool{ToolPen, ToolRectangle, ToolCircle, ToolSegment, ToolText} {
		var r recorder
		p := NewPanel(800, 600, 400, 400, r.options()...)
		s := settings(tool)
		press(p, s, Primary, pt(100, 10))
		moveTo(p, s, pt(120, 100))
		release(p, s, Primary, pt(120, 100))
		if p.State() != Idle || len(r.snaps) != 0 || len(r.requests) != 0 {
			t.Errorf("%v: state %v, %d pushes, %d requests", tool, p.State(), len(r.snaps), len(r.requests))
		}
	}
}

func TestDrawingIgnoresOutOfBoundsMoves(t *testing.T) {
	var r recorder
	p := newPanel(&r)
	s := settings(ToolPen)
	press(p, s, Primary, pt(10, 10))
	moveTo(p, s, pt(-5, 10))
	moveTo(p, s, pt(20, 10))
	moveTo(p, s, pt(20, 301))
	release(p, s, Primary, pt(20, 10))

	if got := r.last().Lines[0].Points; len(got) != 2 {
		t.Fatalf("points = %v, want the two in-bounds points", got)
	}
}

func TestShapeTools(t *testing.T) {
	tests := []struct {
		tool Tool
		want annot.Geometry
	}{
		{ToolRectangle, annot.Rect{X: 100, Y: 100, W: -40, H: 60}},
		{ToolCircle, annot.Circle{X: 100, Y: 100, R: 72.11102550927978}},
		{ToolSegment, annot.Segment{P1: pt(100, 100), P2: pt(60, 160)}},
	}
	for _, tt := range tests {
		t.Run(tt.tool.String(), func(t *testing.T) {
			var r recorder
			p := newPanel(&r)
			s := settings(tt.tool)
			press(p, s, Primary, pt(50, 50))
			if scene := p.Scene(); len(scene.Shapes) != 1 {
				t.Fatalf("draft missing from scene: %+v", scene)
			}
			moveTo(p, s, pt(30, 80))
			release(p, s, Primary, pt(30, 80))

			snap := r.last()
			if len(snap.Shapes) != 1 {
				t.Fatalf("got %d shapes", len(snap.Shapes))
			}
			sh := snap.Shapes[0]
			if c, ok := sh.Geometry.(annot.Circle); ok {
				want := tt.want.(annot.Circle)
				if !scalar.EqualWithinAbs(c.R, want.R, 1e-6) || c.X != want.X || c.Y != want.Y {
					t.Fatalf("circle %+v", c)
				}
			} else if sh.Geometry != tt.want {
				t.Fatalf("geometry %+v, want %+v", sh.Geometry, tt.want)
			}
			if sh.Fill != nil || !sh.Draggable {
				t.Fatalf("shape style %+v", sh)
			}
		})
	}
}

func TestDegenerateShapeIsStored(t *testing.T) {
	var r recorder
	p := newPanel(&r)
	s := settings(ToolRectangle)
	press(p, s, Primary, pt(50, 50))
	release(p, s, Primary, pt(50, 50))
	if got := r.last().Shapes; len(got) != 1 || got[0].Geometry != (annot.Rect{X: 100, Y: 100}) {
		t.Fatalf("shapes = %+v", got)
	}
}

func TestPanningUsesIncrementalDeltas(t *testing.T) {
	for _, scale := range []float64{0.5, 1, 3} {
		var r recorder
		p := newPanel(&r, WithViewState(view.State{Scale: scale}))
		s := settings(ToolPen)

		press(p, s, Secondary, pt(100, 100))
		moveTo(p, s, pt(110, 105))
		moveTo(p, s, pt(125, 95))
		release(p, s, Secondary, pt(125, 95))

		if p.State() != Idle {
			t.Fatalf("state = %v", p.State())
		}
		if got := p.ViewState().Position; !near(got, pt(25, -5)) {
			t.Errorf("scale %v: position %v, want (25,-5)", scale, got)
		}
		if len(r.views) != 2 {
			t.Errorf("expected a view push per move, got %d", len(r.views))
		}
	}
}

func TestSecondaryPressIgnoredWhileDrawing(t *testing.T) {
	var r recorder
	p := newPanel(&r)
	s := settings(ToolPen)
	press(p, s, Primary, pt(10, 10))
	press(p, s, Secondary, pt(10, 10))
	if p.State() != Drawing {
		t.Fatalf("state = %v, want drawing", p.State())
	}
}

func TestSelectAndDrag(t *testing.T) {
	var r recorder
	p := newPanel(&r)
	s := settings(ToolRectangle)

	press(p, s, Primary, pt(10, 10))
	moveTo(p, s, pt(60, 60))
	release(p, s, Primary, pt(60, 60))
	rect := r.last().Shapes[0]

	// Press on the left edge selects rather than drawing a new shape.
	press(p, s, Primary, pt(10, 30))
	if ref, ok := p.Selection(); !ok || ref.ID != rect.ID {
		t.Fatalf("selection = %v %v", ref, ok)
	}
	if p.State() != Idle {
		t.Fatalf("state = %v, want idle until the first move", p.State())
	}
	moveTo(p, s, pt(20, 30))
	if p.State() != DraggingEntity {
		t.Fatalf("state = %v, want dragging", p.State())
	}
	moveTo(p, s, pt(20, 35))
	release(p, s, Primary, pt(20, 35))

	if p.State() != Idle {
		t.Fatalf("state = %v after release", p.State())
	}
	got := r.last().Shapes
	if len(got) != 1 || got[0].Geometry != (annot.Rect{X: 40, Y: 30, W: 100, H: 100}) {
		t.Fatalf("shapes = %+v", got)
	}
}

func TestClickOnEmptyCanvasClearsSelection(t *testing.T) {
	var r recorder
	p := newPanel(&r)
	s := settings(ToolPen)
	press(p, s, Primary, pt(10, 10))
	release(p, s, Primary, pt(10, 10))
	ref := annot.Ref{ID: r.last().Lines[0].ID, Kind: annot.KindLine}
	if err := p.Select(ref); err != nil {
		t.Fatal(err)
	}
	press(p, s, Primary, pt(200, 200))
	if _, ok := p.Selection(); ok {
		t.Fatal("selection survived a click on empty canvas")
	}
}

func TestAnnotationsDisabled(t *testing.T) {
	var r recorder
	p := newPanel(&r)
	s := settings(ToolPen)
	s.AnnotationsEnabled = false
	press(p, s, Primary, pt(10, 10))
	if p.State() != Idle {
		t.Fatalf("state = %v", p.State())
	}
	press(p, s, Secondary, pt(10, 10))
	if p.State() != Panning {
		t.Fatalf("panning should work without annotations, state = %v", p.State())
	}
}

func TestTextCreation(t *testing.T) {
	var r recorder
	p := newPanel(&r, WithFontSize(20))
	s := settings(ToolText)
	s.Color = annot.MustParseColor("#123456")

	press(p, s, Primary, pt(50, 25))
	if p.State() != AwaitingTextInput {
		t.Fatalf("state = %v", p.State())
	}
	if len(r.requests) != 1 || r.requests[0].Purpose != CreateText || r.requests[0].Label != "Enter text:" {
		t.Fatalf("requests = %+v", r.requests)
	}

	// Everything pointer-related is ignored while the prompt is open.
	press(p, s, Secondary, pt(0, 0))
	moveTo(p, s, pt(100, 100))
	if p.State() != AwaitingTextInput || p.ViewState() != view.DefaultState {
		t.Fatalf("pointer input leaked through the prompt: %v %+v", p.State(), p.ViewState())
	}

	if err := p.ResolveText("  hello  "); err != nil {
		t.Fatal(err)
	}
	texts := r.last().Texts
	if len(texts) != 1 {
		t.Fatalf("texts = %+v", texts)
	}
	tx := texts[0]
	if tx.Text != "hello" || tx.Pos() != pt(100, 50) || tx.FontSize != 20 || tx.Fill != s.Color {
		t.Fatalf("text = %+v", tx)
	}
	if ref, ok := p.Selection(); !ok || ref.ID != tx.ID {
		t.Fatal("new text should be selected")
	}
}

func TestTextCreationDiscarded(t *testing.T) {
	for _, resolve := range []func(*Panel){
		func(p *Panel) { _ = p.ResolveText("   ") },
		func(p *Panel) { p.CancelText() },
		func(p *Panel) { p.Key(KeyEvent{Key: KeyEscape}, DefaultSettings) },
	} {
		var r recorder
		p := newPanel(&r)
		press(p, settings(ToolText), Primary, pt(50, 25))
		resolve(p)
		if p.State() != Idle || len(r.snaps) != 0 {
			t.Fatalf("state %v, %d pushes", p.State(), len(r.snaps))
		}
	}
}

func addText(t *testing.T, p *Panel) annot.Ref {
	t.Helper()
	press(p, settings(ToolText), Primary, pt(50, 25))
	if err := p.ResolveText("label"); err != nil {
		t.Fatal(err)
	}
	ref, ok := p.Selection()
	if !ok {
		t.Fatal("text not selected")
	}
	return ref
}

func TestRecolorSelectedText(t *testing.T) {
	var r recorder
	p := newPanel(&r)
	addText(t, p)
	before := r.last().Texts[0].Fill
	pushes := len(r.snaps)

	if err := p.Recolor("not-a-color"); !errors.Is(err, annot.ErrInvalidColor) {
		t.Fatalf("err = %v", err)
	}
	if len(r.snaps) != pushes || p.Snapshot().Texts[0].Fill != before {
		t.Fatal("invalid colour mutated the text")
	}
	if err := p.Recolor("#00ff00"); err != nil {
		t.Fatal(err)
	}
	if got := r.last().Texts[0].Fill.Hex(); got != "#00ff00" {
		t.Fatalf("fill = %s", got)
	}
}

func TestContextMenu(t *testing.T) {
	var r recorder
	p := newPanel(&r)
	if _, ok := p.ContextMenu(DefaultSettings); ok {
		t.Fatal("menu without a selection")
	}
	ref := addText(t, p)

	off := DefaultSettings
	off.AnnotationsEnabled = false
	if _, ok := p.ContextMenu(off); ok {
		t.Fatal("menu with annotations disabled")
	}
	m, ok := p.ContextMenu(DefaultSettings)
	if !ok || m.Target != ref || len(m.Items) != 3 || m.Items[2] != ActionEditText {
		t.Fatalf("menu = %+v", m)
	}

	p.Invoke(ActionEditText)
	req, pending := p.PendingRequest()
	if !pending || req.Purpose != EditSelectionText || req.Default != "label" {
		t.Fatalf("request = %+v %v", req, pending)
	}
	if err := p.ResolveText("renamed"); err != nil {
		t.Fatal(err)
	}
	if got := r.last().Texts[0].Text; got != "renamed" {
		t.Fatalf("text = %q", got)
	}

	p.Invoke(ActionRecolor)
	if req, _ := p.PendingRequest(); req.Default != annot.Red.Hex() {
		t.Fatalf("recolor default = %q", req.Default)
	}
	if err := p.ResolveText("blue"); !errors.Is(err, annot.ErrInvalidColor) {
		t.Fatalf("err = %v", err)
	}
	if p.State() != Idle {
		t.Fatalf("state = %v after invalid colour", p.State())
	}

	p.Invoke(ActionDelete)
	if len(r.last().Texts) != 0 {
		t.Fatal("delete did not remove the text")
	}
	if _, ok := p.ContextMenu(DefaultSettings); ok {
		t.Fatal("menu survives deletion")
	}
}

func TestKeyDelete(t *testing.T) {
	var r recorder
	p := newPanel(&r)
	p.Key(KeyEvent{Key: KeyDelete}, DefaultSettings)
	if len(r.snaps) != 0 {
		t.Fatal("delete without a selection pushed a snapshot")
	}
	addText(t, p)
	p.Key(KeyEvent{Key: KeyDelete}, DefaultSettings)
	if len(r.last().Texts) != 0 {
		t.Fatal("text not deleted")
	}
}

func TestEscapeEndsDrag(t *testing.T) {
	var r recorder
	p := newPanel(&r)
	s := settings(ToolRectangle)

	press(p, s, Primary, pt(10, 10))
	moveTo(p, s, pt(60, 60))
	release(p, s, Primary, pt(60, 60))

	press(p, s, Primary, pt(10, 30))
	moveTo(p, s, pt(20, 30))
	if p.State() != DraggingEntity {
		t.Fatalf("state = %v, want dragging", p.State())
	}
	p.Key(KeyEvent{Key: KeyEscape}, s)
	if _, ok := p.Selection(); ok || p.State() != Idle {
		t.Fatalf("state = %v, selected = %v; want idle with no selection", p.State(), ok)
	}

	moveTo(p, s, pt(100, 100))
	release(p, s, Primary, pt(100, 100))
	got := p.Snapshot().Shapes
	if len(got) != 1 || got[0].Geometry != (annot.Rect{X: 40, Y: 20, W: 100, H: 100}) {
		t.Fatalf("shapes = %+v; the drag should stop at escape", got)
	}
}

func TestEscapeAbandonsDrawing(t *testing.T) {
	var r recorder
	p := newPanel(&r)
	s := settings(ToolCircle)
	press(p, s, Primary, pt(50, 50))
	p.Key(KeyEvent{Key: KeyEscape}, s)
	release(p, s, Primary, pt(60, 60))
	if p.State() != Idle || len(r.snaps) != 0 {
		t.Fatalf("state %v, %d pushes", p.State(), len(r.snaps))
	}
}

func TestClearAll(t *testing.T) {
	var r recorder
	p := newPanel(&r)
	p.ClearAll()
	if len(r.snaps) != 0 {
		t.Fatal("clearing an empty panel pushed a snapshot")
	}
	addText(t, p)
	p.ClearAll()
	if !r.last().Empty() {
		t.Fatalf("snapshot after clear: %+v", r.last())
	}
}

func TestIDsUniqueAcrossRapidCreates(t *testing.T) {
	var r recorder
	p := newPanel(&r)
	s := settings(ToolPen)
	for i := 0; i < 50; i++ {
		at := pt(float64(i%10)*30+5, float64(i/10)*30+5)
		press(p, s, Primary, at)
		release(p, s, Primary, at)
		p.Key(KeyEvent{Key: KeyEscape}, s)
	}
	lines := r.last().Lines
	ids := make(map[annot.ID]bool)
	for _, l := range lines {
		ids[l.ID] = true
	}
	if len(lines) != 50 || len(ids) != 50 {
		t.Fatalf("%d lines, %d distinct ids", len(lines), len(ids))
	}
}

func TestZoomAndReset(t *testing.T) {
	var r recorder
	p := newPanel(&r)
	p.Zoom(pt(200, 150), 1)
	st := p.ViewState()
	if !scalar.EqualWithinAbs(st.Scale, 1.1, tol) || !near(st.Position, pt(-20, -15)) {
		t.Fatalf("after zoom: %+v", st)
	}
	p.SetScale(2)
	if got := p.ViewState().Scale; got != 2 {
		t.Fatalf("slider scale = %v", got)
	}
	p.ResetView()
	if p.ViewState() != view.DefaultState || len(r.views) != 3 {
		t.Fatalf("after reset: %+v (%d pushes)", p.ViewState(), len(r.views))
	}
}

func TestDrawingAfterZoomStaysInImageSpace(t *testing.T) {
	var r recorder
	p := newPanel(&r, WithViewState(view.State{Scale: 2, Position: pt(-100, -50)}))
	s := settings(ToolPen)
	// screen = (image*0.5)*2 + (-100,-50) => image = screen + (100,50)
	press(p, s, Primary, pt(0, 0))
	release(p, s, Primary, pt(0, 0))
	if got := r.last().Lines[0].Points[0]; !near(got, pt(100, 50)) {
		t.Fatalf("point = %v", got)
	}
}

func TestResizeKeepsViewState(t *testing.T) {
	var r recorder
	p := newPanel(&r, WithViewState(view.State{Scale: 1.5, Position: pt(3, 4)}))
	p.Resize(800, 600)
	if p.ViewState().Scale != 1.5 {
		t.Fatal("resize changed the zoom")
	}
	if f := p.Pipeline().Fit; f.Scale != 1 {
		t.Fatalf("fit after resize = %+v", f)
	}
	p.SetImageSize(1600, 1200)
	if f := p.Pipeline().Fit; f.Scale != 0.5 {
		t.Fatalf("fit after image change = %+v", f)
	}
}
