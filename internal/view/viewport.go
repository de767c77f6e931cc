// Package view holds the per-diagram viewing transforms: the letterbox fit of
// the native image into its container, the user-controlled zoom/pan
// viewport, and the pipeline composing the two.
package view

import (
	"github.com/irfansharif/markup/internal/geom"
)

const (
	MinScale = 0.1
	MaxScale = 5.0
	ZoomStep = 1.1
)

// State is the externally visible viewport state, reported to the host on
// every change and accepted back when a panel is rebuilt.
type State struct {
	Scale    float64    `json:"scale" yaml:"scale"`
	Position geom.Point `json:"position" yaml:"position"`
}

// DefaultState is the unzoomed, unpanned viewport.
var DefaultState = State{Scale: 1}

// Viewport manages the zoom scale and pan translation of one diagram. The
// scale always lies within [MinScale, MaxScale]; the position is
// unconstrained, so the image may be panned off-canvas.
type Viewport struct {
	scale    float64
	position geom.Point
}

// NewViewport creates a viewport seeded from st. A zero scale means "no
// preserved state" and starts at 1.
func NewViewport(st State) *Viewport {
	vp := &Viewport{scale: 1, position: st.Position}
	if st.Scale != 0 {
		vp.scale = clampScale(st.Scale)
	}
	return vp
}

func clampScale(s float64) float64 {
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}

// State returns the current scale and position.
func (vp *Viewport) State() State {
	return State{Scale: vp.scale, Position: vp.position}
}

// Scale returns the current zoom scale.
func (vp *Viewport) Scale() float64 { return vp.scale }

// Position returns the current pan translation in container pixels.
func (vp *Viewport) Position() geom.Point { return vp.position }

// ZoomAt zooms in (direction > 0) or out (direction < 0) by ZoomStep while
// keeping the stage-local point under the screen point fixed on screen.
// Returns false if nothing changed.
func (vp *Viewport) ZoomAt(screen geom.Point, direction int) bool {
	var newScale float64
	switch {
	case direction > 0:
		newScale = vp.scale * ZoomStep
	case direction < 0:
		newScale = vp.scale / ZoomStep
	default:
		return false
	}
	return vp.zoomAnchored(screen, newScale)
}

// ZoomToCenter sets the scale to newScale anchored at the geometric center of
// a container of the given size (used by scale sliders).
func (vp *Viewport) ZoomToCenter(newScale float64, container geom.Point) bool {
	return vp.zoomAnchored(container.Scale(0.5), newScale)
}

// zoomAnchored rescales around anchor: the stage-local point under anchor is
// computed with the old scale, then the position is solved for so that the
// same point maps back to anchor under the new scale.
func (vp *Viewport) zoomAnchored(anchor geom.Point, newScale float64) bool {
	newScale = clampScale(newScale)
	if newScale == vp.scale {
		return false
	}
	local := anchor.Sub(vp.position).Div(vp.scale)
	vp.scale = newScale
	vp.position = anchor.Sub(local.Scale(newScale))
	return true
}

// PanBy translates the viewport by a screen-space delta. Panning is
// independent of the current scale.
func (vp *Viewport) PanBy(delta geom.Point) {
	vp.position = vp.position.Add(delta)
}

// Reset restores scale 1 and a zero position.
func (vp *Viewport) Reset() {
	vp.scale = 1
	vp.position = geom.Point{}
}

// Affine returns the display->screen transform.
func (vp *Viewport) Affine() geom.Affine {
	return vp.State().Affine()
}

// Affine returns the display->screen transform of the state.
func (st State) Affine() geom.Affine {
	return geom.Translate(st.Position.X, st.Position.Y).Mul(geom.Scale(st.Scale))
}
