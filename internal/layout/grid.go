// Package layout arranges up to four diagram panels inside a window. Panels
// are tiled so that no more than two ever share a row or a column, and the
// cross-shaped divider between them can be dragged.
package layout

import (
	"errors"
	"math"
	"slices"

	"github.com/irfansharif/markup/internal/geom"
)

const (
	MaxPanels = 4
	MinSplit  = 0.1
	MaxSplit  = 0.9
)

var ErrFull = errors.New("layout holds the maximum number of panels")

// Grid is the ordered set of open panels plus the divider position, expressed
// as fractions of the window.
type Grid struct {
	names  []string
	splitX float64
	splitY float64
}

func NewGrid() *Grid {
	return &Grid{splitX: 0.5, splitY: 0.5}
}

// Add appends a panel. Adding a name that is already open is a no-op.
func (g *Grid) Add(name string) error {
	if slices.Contains(g.names, name) {
		return nil
	}
	if len(g.names) >= MaxPanels {
		return ErrFull
	}
	g.names = append(g.names, name)
	return nil
}

// Remove closes a panel, reporting whether it was open.
func (g *Grid) Remove(name string) bool {
	i := slices.Index(g.names, name)
	if i < 0 {
		return false
	}
	g.names = slices.Delete(g.names, i, i+1)
	return true
}

func (g *Grid) Names() []string { return slices.Clone(g.names) }

func (g *Grid) Len() int { return len(g.names) }

func (g *Grid) Split() (fx, fy float64) { return g.splitX, g.splitY }

func clampSplit(f float64) float64 {
	if math.IsNaN(f) {
		return 0.5
	}
	return math.Max(MinSplit, math.Min(MaxSplit, f))
}

// SetSplit moves the divider to the given window fractions.
func (g *Grid) SetSplit(fx, fy float64) {
	g.splitX = clampSplit(fx)
	g.splitY = clampSplit(fy)
}

// DragSplit moves the divider by a pixel delta within a w×h window.
func (g *Grid) DragSplit(dx, dy, w, h float64) {
	fx, fy := g.splitX, g.splitY
	if w > 0 {
		fx += dx / w
	}
	if h > 0 {
		fy += dy / h
	}
	g.SetSplit(fx, fy)
}

// Rects returns one rectangle per open panel, in Names order.
func (g *Grid) Rects(w, h float64) []geom.Box {
	sx := math.Round(w * g.splitX)
	sy := math.Round(h * g.splitY)
	switch len(g.names) {
	case 0:
		return nil
	case 1:
		return []geom.Box{geom.MakeBox(0, 0, w, h)}
	case 2:
		return []geom.Box{
			geom.MakeBox(0, 0, sx, h),
			geom.MakeBox(sx, 0, w-sx, h),
		}
	case 3:
		return []geom.Box{
			geom.MakeBox(0, 0, sx, sy),
			geom.MakeBox(sx, 0, w-sx, sy),
			geom.MakeBox(0, sy, w, h-sy),
		}
	default:
		return []geom.Box{
			geom.MakeBox(0, 0, sx, sy),
			geom.MakeBox(sx, 0, w-sx, sy),
			geom.MakeBox(0, sy, sx, h-sy),
			geom.MakeBox(sx, sy, w-sx, h-sy),
		}
	}
}

// Hit returns the panel under p, or false when p is outside every panel.
func (g *Grid) Hit(p geom.Point, w, h float64) (string, int, bool) {
	for i, r := range g.Rects(w, h) {
		if p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H {
			return g.names[i], i, true
		}
	}
	return "", -1, false
}

// OnDivider reports whether p lies within slop pixels of a visible divider.
func (g *Grid) OnDivider(p geom.Point, w, h, slop float64) bool {
	sx, sy := math.Round(w*g.splitX), math.Round(h*g.splitY)
	switch n := len(g.names); {
	case n < 2:
		return false
	case n == 2:
		return math.Abs(p.X-sx) <= slop
	case n == 3:
		return math.Abs(p.Y-sy) <= slop || (p.Y < sy && math.Abs(p.X-sx) <= slop)
	default:
		return math.Abs(p.X-sx) <= slop || math.Abs(p.Y-sy) <= slop
	}
}
