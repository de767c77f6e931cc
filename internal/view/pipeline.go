package view

import "github.com/irfansharif/markup/internal/geom"

// Pipeline composes the two viewing transforms, applied in this order from
// image space outward:
//
//	display = image*Fit.Scale + Fit.Offset
//	screen  = display*View.Scale + View.Position
type Pipeline struct {
	Fit  Fit
	View State
}

// ToScreen maps an image-space point to screen (pointer) space.
func (p Pipeline) ToScreen(img geom.Point) geom.Point {
	display := img.Scale(p.Fit.Scale).Add(p.Fit.Offset)
	return display.Scale(p.View.Scale).Add(p.View.Position)
}

// ToImage maps a screen-space point back to image space.
func (p Pipeline) ToImage(screen geom.Point) geom.Point {
	stageLocal := screen.Sub(p.View.Position).Div(p.View.Scale)
	return stageLocal.Sub(p.Fit.Offset).Div(p.Fit.Scale)
}

// DeltaToImage converts a screen-space displacement into an image-space one.
// Translations cancel, only the two scales apply.
func (p Pipeline) DeltaToImage(d geom.Point) geom.Point {
	return d.Div(p.View.Scale * p.Fit.Scale)
}

// Affine returns the composed image->screen transform.
func (p Pipeline) Affine() geom.Affine {
	return p.View.Affine().Mul(p.Fit.Affine())
}

// Scale returns the overall image->screen scale factor.
func (p Pipeline) Scale() float64 { return p.Fit.Scale * p.View.Scale }

// InImage reports whether an image-space point lies within [0,w]x[0,h].
func InImage(pt geom.Point, w, h float64) bool {
	return pt.X >= 0 && pt.X <= w && pt.Y >= 0 && pt.Y <= h
}
