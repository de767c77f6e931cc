// Package geom provides 2D geometric primitives and affine transformations:
// - Point arithmetic and distances
// - Axis-aligned boxes (with sign normalization for boxes drawn backwards)
// - 2D affine transforms, their composition and inversion
// - Letterbox fitting of one box inside another
package geom

import (
	"fmt"
	"math"
)

// Point represents a 2D point or vector in Cartesian coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Box represents an axis-aligned rectangle. W and H may be negative when the
// box was dragged out up and/or to the left of its anchor.
type Box struct {
	X float64
	Y float64
	W float64
	H float64
}

// Affine represents a 2D affine transform in row-major form:
// [ a b c ]
// [ d e f ]
// where (x', y') = (a*x + b*y + c, d*x + e*y + f)
type Affine struct {
	A float64
	B float64
	C float64
	D float64
	E float64
	F float64
}

func MakePoint(x, y float64) Point               { return Point{X: x, Y: y} }
func MakeBox(x, y, w, h float64) Box             { return Box{X: x, Y: y, W: w, H: h} }
func MakeAffine(a, b, c, d, e, f float64) Affine { return Affine{A: a, B: b, C: c, D: d, E: e, F: f} }

// Identity is the transform that maps every point onto itself.
func Identity() Affine { return MakeAffine(1, 0, 0, 0, 1, 0) }

// Translate returns a pure translation by (tx, ty).
func Translate(tx, ty float64) Affine { return MakeAffine(1, 0, tx, 0, 1, ty) }

// Scale returns a uniform scaling about the origin.
func Scale(s float64) Affine { return MakeAffine(s, 0, 0, 0, s, 0) }

func (p Point) Add(q Point) Point     { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point     { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }
func (p Point) Div(s float64) Point   { return Point{p.X / s, p.Y / s} }

func (p Point) String() string { return fmt.Sprintf("(%g,%g)", p.X, p.Y) }

func Dot(p, q Point) float64 { return p.X*q.X + p.Y*q.Y }

func Dist(p, q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// SegmentDist returns the distance from p to the closed segment ab.
func SegmentDist(p, a, b Point) float64 {
	ab := b.Sub(a)
	l2 := Dot(ab, ab)
	if l2 == 0 {
		return Dist(p, a)
	}
	t := Dot(p.Sub(a), ab) / l2
	t = math.Max(0, math.Min(1, t))
	return Dist(p, a.Add(ab.Scale(t)))
}

// Normalized returns the same box with non-negative width and height.
func (b Box) Normalized() Box {
	if b.W < 0 {
		b.X += b.W
		b.W = -b.W
	}
	if b.H < 0 {
		b.Y += b.H
		b.H = -b.H
	}
	return b
}

// Contains reports whether p lies inside the (normalized) box, edges
// included.
func (b Box) Contains(p Point) bool {
	n := b.Normalized()
	return p.X >= n.X && p.X <= n.X+n.W && p.Y >= n.Y && p.Y <= n.Y+n.H
}

// Grow returns the box expanded by d on every side.
func (b Box) Grow(d float64) Box {
	n := b.Normalized()
	return MakeBox(n.X-d, n.Y-d, n.W+2*d, n.H+2*d)
}

// MulPoint applies the affine transform to a point.
func (t Affine) MulPoint(p Point) Point {
	return Point{
		X: t.A*p.X + t.B*p.Y + t.C,
		Y: t.D*p.X + t.E*p.Y + t.F,
	}
}

// Mul composes two affine transforms (applies u then t).
func (t Affine) Mul(u Affine) Affine {
	return MakeAffine(
		t.A*u.A+t.B*u.D,
		t.A*u.B+t.B*u.E,
		t.A*u.C+t.B*u.F+t.C,
		t.D*u.A+t.E*u.D,
		t.D*u.B+t.E*u.E,
		t.D*u.C+t.E*u.F+t.F,
	)
}

// Inv returns the inverse of the affine transform.
// Returns an error if the transform is not invertible (determinant is zero).
func (t Affine) Inv() (Affine, error) {
	det := t.A*t.E - t.B*t.D
	if math.Abs(det) < 1e-10 {
		return Affine{}, fmt.Errorf("affine transform is not invertible (determinant ≈ 0)")
	}
	return MakeAffine(
		t.E/det, -t.B/det, (t.B*t.F-t.C*t.E)/det,
		-t.D/det, t.A/det, (t.C*t.D-t.A*t.F)/det,
	), nil
}

// ScaleFactor returns the uniform scale of the transform (the geometric mean
// of its axis scales). Used to carry stroke widths through a transform.
func (t Affine) ScaleFactor() float64 {
	return math.Sqrt(math.Abs(t.A*t.E - t.B*t.D))
}

// Letterbox returns the uniform scale and offset that fit box src inside dst
// while preserving its aspect ratio: the longer-aspect side fills dst exactly
// and the other is centered. When dst is relatively wider than src the height
// is matched, otherwise the width. Degenerate boxes (any side <= 0) yield a
// scale of 1 and a zero offset.
func Letterbox(src, dst Box) (scale float64, offset Point) {
	if src.W <= 0 || src.H <= 0 || dst.W <= 0 || dst.H <= 0 {
		return 1, Point{}
	}

	srcAspect := src.W / src.H
	dstAspect := dst.W / dst.H
	if dstAspect > srcAspect {
		scale = dst.H / src.H
	} else {
		scale = dst.W / src.W
	}
	offset = Point{
		X: dst.X + (dst.W-src.W*scale)/2 - src.X*scale,
		Y: dst.Y + (dst.H-src.H*scale)/2 - src.Y*scale,
	}
	return scale, offset
}
