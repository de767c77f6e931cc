// Package interact turns pointer and keyboard input on a diagram panel into
// viewport changes and annotation edits.
//
// A Panel owns one annotation store and one viewport. It is not safe for
// concurrent use; the host drives it from a single goroutine. All pointer
// positions are screen space, relative to the panel's top-left corner, and
// are mapped into image space through the fit and viewport transforms before
// they touch annotation geometry.
package interact

import (
	"strings"

	"github.com/irfansharif/markup/internal/annot"
	"github.com/irfansharif/markup/internal/geom"
	"github.com/irfansharif/markup/internal/logging"
	"github.com/irfansharif/markup/internal/view"
)

// DefaultFontSize is the size of newly created text, in image pixels.
const DefaultFontSize = 16

// hitSlop is the pick tolerance in screen pixels.
const hitSlop = 4

// Panel is the interactive state of one diagram.
type Panel struct {
	store *annot.Store
	vp    *view.Viewport

	imageW, imageH         float64
	containerW, containerH float64

	state State

	// Drawing.
	tool       Tool
	draftLine  annot.Line
	draftShape annot.Shape
	anchor     geom.Point

	// AwaitingTextInput.
	request   TextRequest
	textAt    geom.Point
	textColor annot.Color

	// Panning and dragging track the previous pointer position.
	last    geom.Point
	dragRef annot.Ref
	armed   bool

	fontSize float64
	measure  annot.Measurer

	onAnnotations func(annot.Snapshot)
	onView        func(view.State)
	onText        func(TextRequest)
}

// Option configures a Panel at construction.
type Option func(*Panel)

// WithAnnotationsListener registers fn to receive a snapshot after every
// annotation mutation.
func WithAnnotationsListener(fn func(annot.Snapshot)) Option {
	return func(p *Panel) { p.onAnnotations = fn }
}

// WithViewListener registers fn to receive the viewport state after every
// zoom, pan or reset.
func WithViewListener(fn func(view.State)) Option {
	return func(p *Panel) { p.onView = fn }
}

// WithTextRequester registers fn to be told when the panel needs text.
func WithTextRequester(fn func(TextRequest)) Option {
	return func(p *Panel) { p.onText = fn }
}

// WithSnapshot seeds the annotations.
func WithSnapshot(s annot.Snapshot) Option {
	return func(p *Panel) { p.store = annot.NewStore(s) }
}

// WithViewState seeds the viewport.
func WithViewState(st view.State) Option {
	return func(p *Panel) { p.vp = view.NewViewport(st) }
}

// WithFontSize overrides DefaultFontSize for new text.
func WithFontSize(size float64) Option {
	return func(p *Panel) {
		if size > 0 {
			p.fontSize = size
		}
	}
}

// WithMeasurer sets the text extent function used for picking text.
func WithMeasurer(m annot.Measurer) Option {
	return func(p *Panel) { p.measure = m }
}

// NewPanel creates a panel showing an imageW x imageH image inside a
// containerW x containerH container.
func NewPanel(imageW, imageH, containerW, containerH float64, opts ...Option) *Panel {
	p := &Panel{
		imageW:     imageW,
		imageH:     imageH,
		containerW: containerW,
		containerH: containerH,
		fontSize:   DefaultFontSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.store == nil {
		p.store = annot.NewStore(annot.Snapshot{})
	}
	if p.vp == nil {
		p.vp = view.NewViewport(view.DefaultState)
	}
	return p
}

// State returns the current interaction state.
func (p *Panel) State() State { return p.state }

// Pipeline returns the current image->screen transform pipeline.
func (p *Panel) Pipeline() view.Pipeline {
	return view.Pipeline{
		Fit:  view.FitImage(p.imageW, p.imageH, p.containerW, p.containerH),
		View: p.vp.State(),
	}
}

// ViewState returns the viewport state.
func (p *Panel) ViewState() view.State { return p.vp.State() }

// ImageSize returns the source image dimensions.
func (p *Panel) ImageSize() (w, h float64) { return p.imageW, p.imageH }

// ContainerSize returns the container dimensions.
func (p *Panel) ContainerSize() (w, h float64) { return p.containerW, p.containerH }

// Snapshot returns the committed annotations.
func (p *Panel) Snapshot() annot.Snapshot { return p.store.Snapshot() }

// Scene returns the committed annotations plus the one being drawn, if any,
// in draw order.
func (p *Panel) Scene() annot.Snapshot {
	snap := p.store.Snapshot()
	if p.state == Drawing {
		if p.tool == ToolPen {
			snap.Lines = append(snap.Lines, p.draftLine)
		} else {
			snap.Shapes = append(snap.Shapes, p.draftShape)
		}
	}
	return snap
}

// Selection returns the selected annotation.
func (p *Panel) Selection() (annot.Ref, bool) { return p.store.Selection() }

// PendingRequest returns the outstanding text request, if any.
func (p *Panel) PendingRequest() (TextRequest, bool) {
	return p.request, p.state == AwaitingTextInput
}

func (p *Panel) setState(s State) {
	if s == p.state {
		return
	}
	logging.Logger().Debug("panel state", "from", p.state, "to", s)
	p.state = s
}

func (p *Panel) annotationsChanged() {
	if p.onAnnotations != nil {
		p.onAnnotations(p.store.Snapshot())
	}
}

func (p *Panel) viewChanged() {
	if p.onView != nil {
		p.onView(p.vp.State())
	}
}

func (p *Panel) ask(req TextRequest) {
	p.request = req
	p.setState(AwaitingTextInput)
	if p.onText != nil {
		p.onText(req)
	}
}

// Resize records a new container size. The view state is kept.
func (p *Panel) Resize(w, h float64) {
	p.containerW, p.containerH = w, h
}

// SetImageSize records new source image dimensions, e.g. after a reload.
func (p *Panel) SetImageSize(w, h float64) {
	p.imageW, p.imageH = w, h
}

// toImage maps a screen point to image space and reports whether it lies on
// the image.
func (p *Panel) toImage(screen geom.Point) (geom.Point, bool) {
	pt := p.Pipeline().ToImage(screen)
	if p.imageW <= 0 || p.imageH <= 0 {
		return pt, false
	}
	return pt, view.InImage(pt, p.imageW, p.imageH)
}

// Pointer feeds one pointer event through the state machine.
func (p *Panel) Pointer(ev PointerEvent, s Settings) {
	if p.state == AwaitingTextInput {
		return
	}
	switch ev.Action {
	case Press:
		p.press(ev, s)
	case Move:
		p.move(ev)
	case Release:
		p.release(ev)
	}
}

func (p *Panel) press(ev PointerEvent, s Settings) {
	if ev.Button == Secondary {
		if p.state == Drawing {
			return
		}
		p.armed = false
		p.last = ev.Pos
		p.setState(Panning)
		return
	}
	if p.state != Idle || !s.AnnotationsEnabled {
		return
	}

	pt, inside := p.toImage(ev.Pos)
	tol := hitSlop / p.Pipeline().Scale()
	if ref, ok := p.store.HitTest(pt, tol, p.measure); ok {
		_ = p.store.Select(ref)
		p.dragRef, p.armed = ref, p.store.Draggable(ref)
		p.last = ev.Pos
		return
	}
	p.store.ClearSelection()
	if !inside {
		return
	}
	p.start(pt, s)
}

// start begins the active tool at image point pt.
func (p *Panel) start(pt geom.Point, s Settings) {
	p.tool = s.Tool
	p.anchor = pt
	shape := annot.Shape{Stroke: s.Color, StrokeWidth: s.Width(), Draggable: true}
	switch s.Tool {
	case ToolPen:
		p.draftLine = annot.Line{
			Points:      []geom.Point{pt},
			Stroke:      s.Color,
			StrokeWidth: s.Width(),
			Draggable:   true,
		}
	case ToolRectangle:
		shape.Geometry = annot.Rect{X: pt.X, Y: pt.Y}
		p.draftShape = shape
	case ToolCircle:
		shape.Geometry = annot.Circle{X: pt.X, Y: pt.Y}
		p.draftShape = shape
	case ToolSegment:
		shape.Geometry = annot.Segment{P1: pt, P2: pt}
		p.draftShape = shape
	case ToolText:
		p.textAt, p.textColor = pt, s.Color
		p.ask(TextRequest{Purpose: CreateText, Label: "Enter text:"})
		return
	default:
		return
	}
	p.setState(Drawing)
}

func (p *Panel) move(ev PointerEvent) {
	switch p.state {
	case Panning:
		p.vp.PanBy(ev.Pos.Sub(p.last))
		p.last = ev.Pos
		p.viewChanged()

	case Drawing:
		pt, inside := p.toImage(ev.Pos)
		if !inside {
			return
		}
		p.extend(pt)

	case Idle:
		if !p.armed {
			return
		}
		p.setState(DraggingEntity)
		fallthrough

	case DraggingEntity:
		d := p.Pipeline().DeltaToImage(ev.Pos.Sub(p.last))
		p.last = ev.Pos
		if err := p.store.Translate(p.dragRef, d); err != nil {
			p.armed = false
			p.setState(Idle)
			return
		}
		p.annotationsChanged()
	}
}

// extend updates the draft with a new in-bounds image point.
func (p *Panel) extend(pt geom.Point) {
	if p.tool == ToolPen {
		p.draftLine.Points = append(p.draftLine.Points, pt)
		return
	}
	switch g := p.draftShape.Geometry.(type) {
	case annot.Rect:
		g.W, g.H = pt.X-p.anchor.X, pt.Y-p.anchor.Y
		p.draftShape.Geometry = g
	case annot.Circle:
		g.R = geom.Dist(pt, p.anchor)
		p.draftShape.Geometry = g
	case annot.Segment:
		g.P2 = pt
		p.draftShape.Geometry = g
	}
}

func (p *Panel) release(ev PointerEvent) {
	switch p.state {
	case Panning:
		if ev.Button == Secondary {
			p.setState(Idle)
		}
	case Drawing:
		if ev.Button == Primary {
			p.commit()
		}
	case DraggingEntity:
		if ev.Button == Primary {
			p.armed = false
			p.setState(Idle)
		}
	case Idle:
		if ev.Button == Primary {
			p.armed = false
		}
	}
}

func (p *Panel) commit() {
	p.setState(Idle)
	if p.tool == ToolPen {
		if len(p.draftLine.Points) == 0 {
			return
		}
		p.store.AddLine(p.draftLine)
	} else {
		p.store.AddShape(p.draftShape)
	}
	p.draftLine, p.draftShape = annot.Line{}, annot.Shape{}
	p.annotationsChanged()
}

// Key handles keyboard input. Delete removes the selection, Escape clears it
// (or abandons an unfinished drawing or text prompt).
func (p *Panel) Key(ev KeyEvent, s Settings) {
	switch ev.Key {
	case KeyDelete:
		if p.state == Idle {
			p.DeleteSelected()
		}
	case KeyEscape:
		switch p.state {
		case AwaitingTextInput:
			p.CancelText()
		case Drawing:
			p.draftLine, p.draftShape = annot.Line{}, annot.Shape{}
			p.setState(Idle)
		case DraggingEntity:
			p.armed = false
			p.store.ClearSelection()
			p.setState(Idle)
		default:
			p.armed = false
			p.store.ClearSelection()
		}
	}
}

// ContextMenu returns the menu for the current selection. There is none
// when annotations are disabled or nothing is selected.
func (p *Panel) ContextMenu(s Settings) (Menu, bool) {
	ref, ok := p.store.Selection()
	if !ok || !s.AnnotationsEnabled {
		return Menu{}, false
	}
	m := Menu{Target: ref, Items: []Action{ActionDelete, ActionRecolor}}
	if ref.Kind == annot.KindText {
		m.Items = append(m.Items, ActionEditText)
	}
	return m, true
}

// Invoke runs a context menu action on the selection. Delete happens
// immediately; recolor and edit-text ask the host for text.
func (p *Panel) Invoke(a Action) {
	ref, ok := p.store.Selection()
	if !ok || p.state == AwaitingTextInput {
		return
	}
	switch a {
	case ActionDelete:
		p.DeleteSelected()
	case ActionRecolor:
		p.ask(TextRequest{
			Purpose: RecolorSelection,
			Label:   "Enter new color (hex):",
			Default: p.colorOf(ref).Hex(),
		})
	case ActionEditText:
		t, ok := p.store.Text(ref.ID)
		if ref.Kind != annot.KindText || !ok {
			return
		}
		p.ask(TextRequest{Purpose: EditSelectionText, Label: "Edit text:", Default: t.Text})
	}
}

func (p *Panel) colorOf(ref annot.Ref) annot.Color {
	switch ref.Kind {
	case annot.KindLine:
		l, _ := p.store.Line(ref.ID)
		return l.Stroke
	case annot.KindShape:
		sh, _ := p.store.Shape(ref.ID)
		return sh.Stroke
	default:
		t, _ := p.store.Text(ref.ID)
		return t.Fill
	}
}

// ResolveText answers the pending text request. Answering a recolor request
// with anything but #rrggbb returns annot.ErrInvalidColor and changes
// nothing. The panel is Idle afterwards either way.
func (p *Panel) ResolveText(text string) error {
	if p.state != AwaitingTextInput {
		return nil
	}
	req := p.request
	p.request = TextRequest{}
	p.setState(Idle)

	switch req.Purpose {
	case CreateText:
		text = strings.TrimSpace(text)
		if text == "" {
			return nil
		}
		ref := p.store.AddText(annot.Text{
			X:         p.textAt.X,
			Y:         p.textAt.Y,
			Text:      text,
			FontSize:  p.fontSize,
			Fill:      p.textColor,
			Draggable: true,
		})
		_ = p.store.Select(ref)
		p.annotationsChanged()
	case RecolorSelection:
		return p.Recolor(text)
	case EditSelectionText:
		p.EditText(text)
	}
	return nil
}

// CancelText dismisses the pending text request without effect.
func (p *Panel) CancelText() {
	if p.state != AwaitingTextInput {
		return
	}
	p.request = TextRequest{}
	p.setState(Idle)
}

// DeleteSelected removes the selected annotation.
func (p *Panel) DeleteSelected() {
	ref, ok := p.store.Selection()
	if !ok {
		return
	}
	if p.store.Remove(ref) {
		p.annotationsChanged()
	}
}

// Recolor sets the colour of the selection from a #rrggbb string: the fill
// of a text, the stroke of a line or shape.
func (p *Panel) Recolor(value string) error {
	c, err := annot.ParseColor(strings.TrimSpace(value))
	if err != nil {
		return err
	}
	ref, ok := p.store.Selection()
	if !ok {
		return nil
	}
	if err := p.store.Recolor(ref, c); err != nil {
		return err
	}
	p.annotationsChanged()
	return nil
}

// EditText replaces the content of the selected text when it differs.
func (p *Panel) EditText(text string) {
	ref, ok := p.store.Selection()
	if !ok || ref.Kind != annot.KindText {
		return
	}
	if changed, err := p.store.SetText(ref.ID, text); err == nil && changed {
		p.annotationsChanged()
	}
}

// ClearAll removes every annotation.
func (p *Panel) ClearAll() {
	if p.store.Len() == 0 {
		return
	}
	p.store.Clear()
	p.annotationsChanged()
}

// Select makes ref the selection.
func (p *Panel) Select(ref annot.Ref) error { return p.store.Select(ref) }

// Zoom zooms one step in (dir > 0) or out (dir < 0) around a screen point.
func (p *Panel) Zoom(screen geom.Point, dir int) {
	if p.vp.ZoomAt(screen, dir) {
		p.viewChanged()
	}
}

// SetScale sets the zoom level around the container centre.
func (p *Panel) SetScale(scale float64) {
	if p.vp.ZoomToCenter(scale, geom.MakePoint(p.containerW, p.containerH)) {
		p.viewChanged()
	}
}

// ResetView restores the unzoomed, unpanned viewport.
func (p *Panel) ResetView() {
	p.vp.Reset()
	p.viewChanged()
}
