package view

import "github.com/irfansharif/markup/internal/geom"

// Fit is the letterbox transform placing the native image inside its
// container: display = image*Scale + Offset. It is derived from the image and
// container sizes and never persisted.
type Fit struct {
	Scale  float64
	Offset geom.Point
}

// IdentityFit is the fallback used when there is no image or no container.
var IdentityFit = Fit{Scale: 1}

// FitImage computes the letterbox fit of an imageW x imageH bitmap inside a
// containerW x containerH container. If the container is relatively wider
// than the image the height is matched, otherwise the width; the other axis
// is centered. Any non-positive dimension yields IdentityFit.
func FitImage(imageW, imageH, containerW, containerH float64) Fit {
	s, off := geom.Letterbox(
		geom.MakeBox(0, 0, imageW, imageH),
		geom.MakeBox(0, 0, containerW, containerH),
	)
	return Fit{Scale: s, Offset: off}
}

// Affine returns the fit as an image->display transform.
func (f Fit) Affine() geom.Affine {
	return geom.Translate(f.Offset.X, f.Offset.Y).Mul(geom.Scale(f.Scale))
}
