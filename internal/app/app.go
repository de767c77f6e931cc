package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/irfansharif/markup/internal/annot"
	"github.com/irfansharif/markup/internal/config"
	"github.com/irfansharif/markup/internal/export"
	"github.com/irfansharif/markup/internal/geom"
	"github.com/irfansharif/markup/internal/interact"
	"github.com/irfansharif/markup/internal/layout"
	"github.com/irfansharif/markup/internal/library"
	"github.com/irfansharif/markup/internal/logging"
	"github.com/irfansharif/markup/internal/palette"
	"github.com/irfansharif/markup/internal/render"
	"github.com/irfansharif/markup/internal/view"
)

const (
	dividerSlop = 4.0 // pixels either side of a divider that grab it
	frameWidth  = 2.0 // focused panel border, in window pixels
)

var frameColor = annot.Color{R: 0xc8, G: 0xc8, B: 0xc8}

// Prompt is an outstanding text request being typed into.
type Prompt struct {
	Panel   PanelID
	Request interact.TextRequest
	Input   []rune
}

// App encapsulates the main application state and logic. It is driven from
// the window's thread; Renderer may be nil to run without a GL context.
type App struct {
	Config   *config.Config
	Renderer *render.Renderer
	Grid     *layout.Grid
	Panels   *PanelManager
	Settings interact.Settings
	Swatches palette.Swatches

	width, height float64 // window size in window pixels

	// Pointer capture: the panel (or divider) that received the press gets
	// every move until release.
	capture       *PanelView
	captureOrigin geom.Point
	splitting     bool
	lastPointer   geom.Point

	prompt *Prompt
	menu   *interact.Menu
	status string
}

// NewApp creates a new application instance for a width x height window.
func NewApp(cfg *config.Config, renderer *render.Renderer, width, height float64) *App {
	return &App{
		Config:   cfg,
		Renderer: renderer,
		Grid:     layout.NewGrid(),
		Panels:   NewPanelManager(),
		Settings: cfg.Settings(),
		Swatches: cfg.Swatches(),
		width:    width,
		height:   height,
	}
}

// Open loads a diagram into a new panel. Opening a diagram that is already
// open focuses it. A diagram that exists but cannot be decoded still gets a
// panel, in its error state: it renders nothing but can be focused, closed
// and reloaded. Both the panel and the load error are returned then.
func (app *App) Open(name string) (*PanelView, error) {
	if pv := app.Panels.ByName(name); pv != nil {
		app.Panels.SetCurrent(pv)
		return pv, nil
	}
	if app.Grid.Len() >= layout.MaxPanels {
		return nil, layout.ErrFull
	}

	path, err := library.Resolve(app.Config.DiagramsDir, name)
	if err != nil {
		return nil, err
	}
	img, loadErr := library.Load(app.Config.DiagramsDir, name)
	if errors.Is(loadErr, library.ErrNotFound) {
		return nil, loadErr
	}

	var sc library.Sidecar
	if app.Config.Sidecars {
		if sc, err = library.LoadSidecar(path); err != nil {
			logging.Logger().Warn("ignoring unreadable sidecar", "diagram", name, "err", err)
			sc = library.Sidecar{}
		}
	}

	pv := &PanelView{Name: name, Path: path, Image: img}
	opts := []interact.Option{
		interact.WithSnapshot(sc.Annotations),
		interact.WithFontSize(app.Config.FontSize),
		interact.WithMeasurer(export.MeasureText),
		interact.WithAnnotationsListener(func(annot.Snapshot) {
			pv.Dirty, pv.stale = true, true
		}),
		interact.WithViewListener(func(view.State) {
			pv.Dirty, pv.stale = true, true
		}),
		interact.WithTextRequester(func(req interact.TextRequest) {
			app.prompt = &Prompt{Panel: pv.ID, Request: req, Input: []rune(req.Default)}
		}),
	}
	if sc.View.Scale > 0 {
		opts = append(opts, interact.WithViewState(sc.View))
	}
	var w, h float64
	if loadErr != nil {
		pv.Err, pv.Image = loadErr, nil
		logging.Logger().Warn("loading diagram", "name", name, "err", loadErr)
	} else {
		b := img.Bounds()
		w, h = float64(b.Dx()), float64(b.Dy())
		if app.Renderer != nil {
			pv.Layer = app.Renderer.NewLayer(img)
		}
	}
	pv.Panel = interact.NewPanel(w, h, 0, 0, opts...)

	if err := app.Grid.Add(name); err != nil {
		if pv.Layer != nil {
			pv.Layer.Delete()
		}
		return nil, err
	}
	app.Panels.Add(pv)
	app.Panels.SetCurrent(pv)
	app.relayout()
	logging.Logger().Debug("opened diagram", "name", name, "w", w, "h", h)
	return pv, loadErr
}

// Close removes the named panel, dropping any unfinished interaction on it.
func (app *App) Close(name string) bool {
	pv := app.Panels.ByName(name)
	if pv == nil {
		return false
	}
	app.flush(pv)
	if app.capture == pv {
		app.capture = nil
	}
	if app.prompt != nil && app.prompt.Panel == pv.ID {
		app.prompt = nil
	}
	if pv == app.Panels.Current() {
		app.menu = nil
	}
	if pv.Layer != nil {
		pv.Layer.Delete()
	}
	app.Grid.Remove(name)
	app.Panels.Remove(pv.ID)
	app.relayout()
	return true
}

// Reload re-reads a diagram that changed on disk. Annotations and the view
// are kept. A failed decode puts the panel in its error state until a later
// reload succeeds.
func (app *App) Reload(name string) error {
	pv := app.Panels.ByName(name)
	if pv == nil {
		return nil
	}
	pv.Dirty = true
	img, err := library.Load(app.Config.DiagramsDir, name)
	if err != nil {
		pv.Err, pv.Image = err, nil
		if app.capture == pv {
			app.capture = nil
		}
		logging.Logger().Warn("reloading diagram", "name", name, "err", err)
		return err
	}
	pv.Err = nil
	pv.Image = img
	b := img.Bounds()
	pv.Panel.SetImageSize(float64(b.Dx()), float64(b.Dy()))
	switch {
	case pv.Layer != nil:
		pv.Layer.SetImage(img)
	case app.Renderer != nil:
		pv.Layer = app.Renderer.NewLayer(img)
	}
	return nil
}

// HandleLibraryEvent reacts to a change in the diagrams directory.
func (app *App) HandleLibraryEvent(ev library.Event) {
	switch ev.Type {
	case library.Created:
		if app.Panels.Len() == 0 {
			if _, err := app.Open(ev.Filename); err != nil {
				logging.Logger().Warn("opening new diagram", "name", ev.Filename, "err", err)
			}
		}
	case library.Modified:
		_ = app.Reload(ev.Filename)
	case library.Deleted:
		app.Close(ev.Filename)
	}
}

// Resize records a new window size and re-tiles the panels.
func (app *App) Resize(width, height float64) {
	app.width, app.height = width, height
	app.relayout()
}

func (app *App) relayout() {
	for i, r := range app.Grid.Rects(app.width, app.height) {
		if pv := app.Panels.ByName(app.Grid.Names()[i]); pv != nil {
			pv.Panel.Resize(r.W, r.H)
			pv.Dirty = true
		}
	}
}

func (app *App) panelAt(p geom.Point) (*PanelView, geom.Box) {
	name, i, ok := app.Grid.Hit(p, app.width, app.height)
	if !ok {
		return nil, geom.Box{}
	}
	return app.Panels.ByName(name), app.Grid.Rects(app.width, app.height)[i]
}

// Focused returns the panel receiving keyboard commands.
func (app *App) Focused() *PanelView { return app.Panels.Current() }

// usable returns the focused panel unless it is in its error state.
func (app *App) usable() *PanelView {
	if pv := app.Focused(); pv != nil && pv.Err == nil {
		return pv
	}
	return nil
}

// FocusNext cycles keyboard focus through the panels.
func (app *App) FocusNext(forward bool) *PanelView {
	if app.prompt != nil {
		return app.Focused()
	}
	app.menu = nil
	return app.Panels.Iter(forward)
}

// MouseButton routes a press or release at window point p.
func (app *App) MouseButton(button interact.Button, action interact.PointerAction, p geom.Point) {
	app.lastPointer = p
	switch action {
	case interact.Press:
		if app.prompt != nil || app.splitting {
			return
		}
		if pv := app.capture; pv != nil {
			app.forward(pv, interact.PointerEvent{Action: interact.Press, Button: button, Pos: p})
			return
		}
		if button == interact.Primary && app.Grid.OnDivider(p, app.width, app.height, dividerSlop) {
			app.splitting = true
			return
		}
		pv, rect := app.panelAt(p)
		if pv == nil {
			return
		}
		app.menu = nil
		app.Panels.SetCurrent(pv)
		if pv.Err != nil {
			return
		}
		app.capture = pv
		app.captureOrigin = geom.MakePoint(rect.X, rect.Y)
		app.forward(pv, interact.PointerEvent{Action: interact.Press, Button: button, Pos: p})

	case interact.Release:
		if app.splitting {
			app.splitting = false
			return
		}
		if pv := app.capture; pv != nil {
			app.forward(pv, interact.PointerEvent{Action: interact.Release, Button: button, Pos: p})
			if !gesturing(pv.Panel.State()) {
				app.capture = nil
			}
		}
	}
}

// CursorMoved routes a pointer move to the captured panel or divider.
func (app *App) CursorMoved(p geom.Point) {
	delta := p.Sub(app.lastPointer)
	app.lastPointer = p
	if app.splitting {
		app.Grid.DragSplit(delta.X, delta.Y, app.width, app.height)
		app.relayout()
		return
	}
	if pv := app.capture; pv != nil {
		app.forward(pv, interact.PointerEvent{Action: interact.Move, Pos: p})
	}
}

// gesturing reports whether a panel is mid-gesture and still owns the
// pointer.
func gesturing(s interact.State) bool {
	return s == interact.Panning || s == interact.Drawing || s == interact.DraggingEntity
}

func (app *App) forward(pv *PanelView, ev interact.PointerEvent) {
	ev.Pos = ev.Pos.Sub(app.captureOrigin)
	pv.Panel.Pointer(ev, app.Settings)
	pv.Dirty = true
}

// Scroll zooms the panel under p one step per notch.
func (app *App) Scroll(p geom.Point, dy float64) {
	pv, rect := app.panelAt(p)
	if pv == nil || pv.Err != nil || dy == 0 {
		return
	}
	dir := 1
	if dy < 0 {
		dir = -1
	}
	pv.Panel.Zoom(p.Sub(geom.MakePoint(rect.X, rect.Y)), dir)
}

// SetTool selects the annotation tool for every panel.
func (app *App) SetTool(t interact.Tool) { app.Settings.Tool = t }

// ToggleAnnotations enables or disables annotating.
func (app *App) ToggleAnnotations() {
	app.Settings.AnnotationsEnabled = !app.Settings.AnnotationsEnabled
	if !app.Settings.AnnotationsEnabled {
		app.menu = nil
	}
}

// PickColor selects palette swatch n (1-9).
func (app *App) PickColor(n int) bool {
	c, ok := app.Swatches.At(n)
	if ok {
		app.Settings.Color = c
	}
	return ok
}

// AdjustStrokeWidth changes the stroke width by delta, within bounds.
func (app *App) AdjustStrokeWidth(delta int) {
	w := app.Settings.StrokeWidth + delta
	w = max(interact.MinStrokeWidth, min(interact.MaxStrokeWidth, w))
	app.Settings.StrokeWidth = w
}

// ResetView restores the focused panel's unzoomed view.
func (app *App) ResetView() {
	if pv := app.usable(); pv != nil {
		pv.Panel.ResetView()
	}
}

// StepScale zooms the focused panel one step in (dir > 0) or out (dir < 0)
// about its centre.
func (app *App) StepScale(dir int) {
	pv := app.usable()
	if pv == nil || dir == 0 {
		return
	}
	s := pv.Panel.ViewState().Scale
	if dir > 0 {
		s *= view.ZoomStep
	} else {
		s /= view.ZoomStep
	}
	pv.Panel.SetScale(s)
}

// ClearFocused removes every annotation on the focused panel.
func (app *App) ClearFocused() {
	if pv := app.usable(); pv != nil && app.prompt == nil {
		pv.Panel.ClearAll()
		pv.Dirty = true
	}
}

// DeleteSelected removes the focused panel's selection.
func (app *App) DeleteSelected() {
	if pv := app.usable(); pv != nil {
		pv.Panel.Key(interact.KeyEvent{Key: interact.KeyDelete}, app.Settings)
		pv.Dirty = true
	}
}

// Escape cancels the innermost pending thing: the prompt, then the menu,
// then the focused panel's drawing or selection.
func (app *App) Escape() {
	switch {
	case app.prompt != nil:
		app.CancelPrompt()
	case app.menu != nil:
		app.menu = nil
	default:
		if pv := app.usable(); pv != nil {
			pv.Panel.Key(interact.KeyEvent{Key: interact.KeyEscape}, app.Settings)
			pv.Dirty = true
			if pv == app.capture && !gesturing(pv.Panel.State()) {
				app.capture = nil
			}
		}
	}
}

// OpenMenu shows the context menu for the focused panel's selection.
func (app *App) OpenMenu() (interact.Menu, bool) {
	pv := app.usable()
	if pv == nil || app.prompt != nil {
		return interact.Menu{}, false
	}
	m, ok := pv.Panel.ContextMenu(app.Settings)
	if !ok {
		app.menu = nil
		return interact.Menu{}, false
	}
	app.menu = &m
	return m, true
}

// Menu returns the open context menu.
func (app *App) Menu() (interact.Menu, bool) {
	if app.menu == nil {
		return interact.Menu{}, false
	}
	return *app.menu, true
}

// InvokeMenu runs an item of the open menu and closes it.
func (app *App) InvokeMenu(a interact.Action) bool {
	if app.menu == nil {
		return false
	}
	found := false
	for _, item := range app.menu.Items {
		found = found || item == a
	}
	app.menu = nil
	pv := app.usable()
	if !found || pv == nil {
		return false
	}
	pv.Panel.Invoke(a)
	pv.Dirty = true
	return true
}

// Prompt returns the text request being typed, if any.
func (app *App) Prompt() (Prompt, bool) {
	if app.prompt == nil {
		return Prompt{}, false
	}
	return *app.prompt, true
}

// TypeRune appends a typed character to the prompt.
func (app *App) TypeRune(r rune) {
	if app.prompt != nil {
		app.prompt.Input = append(app.prompt.Input, r)
	}
}

// Backspace removes the last character of the prompt.
func (app *App) Backspace() {
	if app.prompt != nil && len(app.prompt.Input) > 0 {
		app.prompt.Input = app.prompt.Input[:len(app.prompt.Input)-1]
	}
}

// SubmitPrompt answers the text request with what was typed.
func (app *App) SubmitPrompt() error {
	pr := app.prompt
	if pr == nil {
		return nil
	}
	app.prompt = nil
	pv := app.Panels.Get(pr.Panel)
	if pv == nil {
		return nil
	}
	pv.Dirty = true
	if err := pv.Panel.ResolveText(string(pr.Input)); err != nil {
		app.status = err.Error()
		return err
	}
	app.status = ""
	return nil
}

// CancelPrompt dismisses the text request.
func (app *App) CancelPrompt() {
	pr := app.prompt
	if pr == nil {
		return
	}
	app.prompt = nil
	if pv := app.Panels.Get(pr.Panel); pv != nil {
		pv.Panel.CancelText()
		pv.Dirty = true
	}
}

// ExportFocused writes the focused diagram with its annotations, at native
// resolution, next to the source as <name>.annotated.png.
func (app *App) ExportFocused() (string, error) {
	pv := app.Focused()
	if pv == nil {
		return "", errors.New("no diagram open")
	}
	if pv.Err != nil {
		return "", pv.Err
	}
	out := strings.TrimSuffix(pv.Path, filepath.Ext(pv.Path)) + ".annotated.png"
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if err := export.PNG(f, pv.Image, pv.Panel.Snapshot()); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	app.status = "exported " + filepath.Base(out)
	return out, nil
}

// Sync writes the sidecars of panels whose annotations or view changed since
// the last call.
func (app *App) Sync() {
	for _, pv := range app.Panels.Panels() {
		app.flush(pv)
	}
}

func (app *App) flush(pv *PanelView) {
	if !pv.stale || !app.Config.Sidecars {
		return
	}
	pv.stale = false
	sc := library.Sidecar{Annotations: pv.Panel.Snapshot(), View: pv.Panel.ViewState()}
	if err := library.SaveSidecar(pv.Path, sc); err != nil {
		logging.Logger().Warn("writing sidecar", "diagram", pv.Name, "err", err)
	}
}

// Title summarizes the tool settings, the focused panel and any prompt or
// menu for the window title.
func (app *App) Title() string {
	var b strings.Builder
	b.WriteString("markup")
	if pv := app.Focused(); pv != nil {
		fmt.Fprintf(&b, " - %s (%.0f%%)", pv.Name, pv.Panel.ViewState().Scale*100)
		if pv.Err != nil {
			b.WriteString(" [unreadable]")
		}
	}
	if app.Settings.AnnotationsEnabled {
		fmt.Fprintf(&b, " | %s %s %dpx", app.Settings.Tool, app.Settings.Color, app.Settings.StrokeWidth)
	} else {
		b.WriteString(" | annotations off")
	}
	switch {
	case app.prompt != nil:
		fmt.Fprintf(&b, " | %s %s_", app.prompt.Request.Label, string(app.prompt.Input))
	case app.menu != nil:
		b.WriteString(" |")
		for _, item := range app.menu.Items {
			fmt.Fprintf(&b, " [%c]%s", menuKey(item), item.String()[1:])
		}
	case app.status != "":
		fmt.Fprintf(&b, " | %s", app.status)
	}
	return b.String()
}

// menuKey is the key that invokes a context menu item.
func menuKey(a interact.Action) rune {
	switch a {
	case interact.ActionDelete:
		return 'D'
	case interact.ActionRecolor:
		return 'C'
	default:
		return 'E'
	}
}

// Draw renders every panel and the focus frame.
func (app *App) Draw() {
	if app.Renderer == nil {
		return
	}
	app.Renderer.Begin()

	rects := app.Grid.Rects(app.width, app.height)
	var chrome render.Mesh
	for i, name := range app.Grid.Names() {
		pv := app.Panels.ByName(name)
		if pv == nil {
			continue
		}
		if pv.Err == nil && pv.Layer != nil {
			app.drawPanel(pv, rects[i])
		}

		col, width := frameColor, 1.0
		if pv == app.Focused() && app.Panels.Len() > 1 {
			col, width = app.Settings.Color, frameWidth
		}
		if frame, err := render.Frame(rects[i], width, col); err == nil {
			chrome = append(chrome, frame...)
		}
	}
	if len(chrome) > 0 {
		app.Renderer.DrawChrome(chrome, app.width, app.height)
	}
}

func (app *App) drawPanel(pv *PanelView, rect geom.Box) {
	p := pv.Panel.Pipeline()
	if pv.Dirty {
		opts := render.TessellateOptions{PixelSize: 1 / p.Scale(), Measure: export.MeasureText}
		if ref, ok := pv.Panel.Selection(); ok {
			opts.Selected = &ref
		}
		if err := app.Renderer.Prepare(pv.Layer, pv.Panel.Scene(), opts); err != nil {
			logging.Logger().Warn("preparing panel", "name", pv.Name, "err", err)
		}
		pv.Dirty = false
	}
	app.Renderer.DrawLayer(pv.Layer, rect, p)
}
