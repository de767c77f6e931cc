package render

import (
	"fmt"
	"math"

	"github.com/rclancey/earcut"

	"github.com/irfansharif/markup/internal/annot"
	"github.com/irfansharif/markup/internal/geom"
	"github.com/irfansharif/markup/internal/palette"
)

// floatsPerVertex is the colour vertex layout: x, y, r, g, b, a.
const floatsPerVertex = 6

// Mesh is interleaved colour vertex data, three vertices per triangle, in
// image space.
type Mesh []float32

// VertexCount returns the number of vertices in the mesh.
func (m Mesh) VertexCount() int { return len(m) / floatsPerVertex }

// TessellateOptions control how a scene is turned into triangles.
type TessellateOptions struct {
	// PixelSize is the size of one screen pixel in image pixels. It sets
	// curve resolution and the selection outline thickness.
	PixelSize float64
	// Selected, if set, gets a highlight ring around its bounds.
	Selected *annot.Ref
	// Measure sizes texts for their selection ring.
	Measure annot.Measurer
}

// earClip triangulates a polygon using the earcut algorithm, optionally with
// holes. Vertex order doesn't matter.
func earClip(outer []geom.Point, holes ...[]geom.Point) ([][3]geom.Point, error) {
	if len(outer) < 3 {
		return nil, fmt.Errorf("degenerate polygon (%d vertices < 3)", len(outer))
	}

	// Flat coordinate array required by earcut: [x0, y0, x1, y1, ...], with
	// the hole rings appended after the outer ring.
	n := len(outer)
	for _, h := range holes {
		n += len(h)
	}
	coords := make([]float64, 0, 2*n)
	for _, p := range outer {
		coords = append(coords, p.X, p.Y)
	}
	var holeIndices []int
	for _, h := range holes {
		holeIndices = append(holeIndices, len(coords)/2)
		for _, p := range h {
			coords = append(coords, p.X, p.Y)
		}
	}

	indices, err := earcut.Earcut(coords, holeIndices, 2 /* dim */)
	if err != nil {
		return nil, fmt.Errorf("triangulating %d-vertex polygon: %w", len(outer), err)
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("invalid triangle count (indices: %d, not divisible by 3)", len(indices))
	}

	at := func(i int) geom.Point { return geom.MakePoint(coords[2*i], coords[2*i+1]) }
	tris := make([][3]geom.Point, len(indices)/3)
	for t := range tris {
		tris[t] = [3]geom.Point{at(indices[3*t]), at(indices[3*t+1]), at(indices[3*t+2])}
	}
	return tris, nil
}

// arcSegments picks a polygon resolution for a circle of radius r so that
// edges stay a few screen pixels long.
func arcSegments(r, pixelSize float64) int {
	if pixelSize <= 0 {
		pixelSize = 1
	}
	n := int(2 * math.Pi * r / pixelSize / 4)
	if n < 16 {
		return 16
	}
	if n > 128 {
		return 128
	}
	return n
}

func circlePoints(c geom.Point, r float64, n int) []geom.Point {
	pts := make([]geom.Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = geom.MakePoint(c.X+r*math.Cos(a), c.Y+r*math.Sin(a))
	}
	return pts
}

func disc(c geom.Point, r float64, n int) [][3]geom.Point {
	ring := circlePoints(c, r, n)
	tris := make([][3]geom.Point, n)
	for i := range ring {
		tris[i] = [3]geom.Point{c, ring[i], ring[(i+1)%n]}
	}
	return tris
}

func boxPoints(b geom.Box) []geom.Point {
	b = b.Normalized()
	return []geom.Point{
		{X: b.X, Y: b.Y},
		{X: b.X + b.W, Y: b.Y},
		{X: b.X + b.W, Y: b.Y + b.H},
		{X: b.X, Y: b.Y + b.H},
	}
}

// strokePolyline covers a polyline of the given width: one quad per segment
// plus a disc at every vertex for round caps and joins.
func strokePolyline(pts []geom.Point, width, pixelSize float64) [][3]geom.Point {
	r := width / 2
	n := arcSegments(r, pixelSize)
	var tris [][3]geom.Point
	for i, p := range pts {
		tris = append(tris, disc(p, r, n)...)
		if i == 0 {
			continue
		}
		a, b := pts[i-1], p
		d := b.Sub(a)
		l := math.Hypot(d.X, d.Y)
		if l == 0 {
			continue
		}
		off := geom.MakePoint(-d.Y/l*r, d.X/l*r)
		a0, a1 := a.Add(off), a.Sub(off)
		b0, b1 := b.Add(off), b.Sub(off)
		tris = append(tris, [3]geom.Point{a0, b0, b1}, [3]geom.Point{a0, b1, a1})
	}
	return tris
}

// strokeBox covers the outline of b with a band of the given width centred
// on its edges.
func strokeBox(b geom.Box, width float64) ([][3]geom.Point, error) {
	outer := b.Grow(width / 2)
	inner := b.Grow(-width / 2)
	if inner.W <= 0 || inner.H <= 0 {
		return earClip(boxPoints(outer))
	}
	return earClip(boxPoints(outer), boxPoints(inner))
}

func strokeCircle(c annot.Circle, width, pixelSize float64) ([][3]geom.Point, error) {
	r := math.Abs(c.R)
	outerR, innerR := r+width/2, r-width/2
	n := arcSegments(outerR, pixelSize)
	if innerR <= 0 {
		return disc(c.Center(), outerR, n), nil
	}
	return earClip(circlePoints(c.Center(), outerR, n), circlePoints(c.Center(), innerR, n))
}

func appendTriangles(m Mesh, tris [][3]geom.Point, col [4]float32) Mesh {
	for _, tri := range tris {
		for _, v := range tri {
			m = append(m, float32(v.X), float32(v.Y), col[0], col[1], col[2], col[3])
		}
	}
	return m
}

func shapeTriangles(sh annot.Shape, pixelSize float64) (fill, stroke [][3]geom.Point, err error) {
	switch g := sh.Geometry.(type) {
	case annot.Rect:
		if sh.Fill != nil && g.W != 0 && g.H != 0 {
			if fill, err = earClip(boxPoints(g.Box())); err != nil {
				return nil, nil, err
			}
		}
		stroke, err = strokeBox(g.Box(), sh.StrokeWidth)
	case annot.Circle:
		if sh.Fill != nil && g.R != 0 {
			fill = disc(g.Center(), math.Abs(g.R), arcSegments(math.Abs(g.R), pixelSize))
		}
		stroke, err = strokeCircle(g, sh.StrokeWidth, pixelSize)
	case annot.Segment:
		stroke = strokePolyline([]geom.Point{g.P1, g.P2}, sh.StrokeWidth, pixelSize)
	}
	return fill, stroke, err
}

// Tessellate turns the lines and shapes of a scene into triangles, in draw
// order: lines, then shapes (fill before stroke), then the selection ring.
// Texts are drawn from textures and are not part of the mesh.
func Tessellate(scene annot.Snapshot, opts TessellateOptions) (Mesh, error) {
	px := opts.PixelSize
	if px <= 0 {
		px = 1
	}
	var m Mesh
	for _, l := range scene.Lines {
		if len(l.Points) == 0 {
			continue
		}
		m = appendTriangles(m, strokePolyline(l.Points, l.StrokeWidth, px), palette.Float32(l.Stroke, 1))
	}
	for _, sh := range scene.Shapes {
		fill, stroke, err := shapeTriangles(sh, px)
		if err != nil {
			return nil, fmt.Errorf("shape %s: %w", sh.ID, err)
		}
		if fill != nil {
			m = appendTriangles(m, fill, palette.Float32(*sh.Fill, 1))
		}
		m = appendTriangles(m, stroke, palette.Float32(sh.Stroke, 1))
	}
	if opts.Selected != nil {
		ring, err := selectionRing(scene, *opts.Selected, opts.Measure, px)
		if err != nil {
			return nil, err
		}
		m = append(m, ring...)
	}
	return m, nil
}

// selectionRing outlines the bounds of the selected annotation in a colour
// contrasting with its own.
func selectionRing(scene annot.Snapshot, ref annot.Ref, measure annot.Measurer, px float64) (Mesh, error) {
	if measure == nil {
		measure = annot.Text.EstimateSize
	}
	var bounds geom.Box
	var col annot.Color
	found := false
	switch ref.Kind {
	case annot.KindLine:
		for _, l := range scene.Lines {
			if l.ID == ref.ID && len(l.Points) > 0 {
				bounds, col, found = pointsBounds(l.Points).Grow(l.StrokeWidth/2), l.Stroke, true
			}
		}
	case annot.KindShape:
		for _, sh := range scene.Shapes {
			if sh.ID == ref.ID && sh.Geometry != nil {
				bounds, col, found = sh.Geometry.Bounds().Grow(sh.StrokeWidth/2), sh.Stroke, true
			}
		}
	case annot.KindText:
		for _, t := range scene.Texts {
			if t.ID == ref.ID {
				sz := measure(t)
				bounds, col, found = geom.MakeBox(t.X, t.Y, sz.X, sz.Y), t.Fill, true
			}
		}
	}
	if !found {
		return nil, nil
	}
	tris, err := strokeBox(bounds.Grow(4*px), 1.5*px)
	if err != nil {
		return nil, fmt.Errorf("selection %s: %w", ref.ID, err)
	}
	return appendTriangles(nil, tris, palette.Float32(palette.Contrast(col), 0.9)), nil
}

func pointsBounds(pts []geom.Point) geom.Box {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return geom.MakeBox(minX, minY, maxX-minX, maxY-minY)
}

// Frame returns a border of the given width just inside a screen rectangle,
// used to mark panels.
func Frame(b geom.Box, width float64, col annot.Color) (Mesh, error) {
	tris, err := strokeBox(b.Grow(-width/2), width)
	if err != nil {
		return nil, err
	}
	return appendTriangles(nil, tris, palette.Float32(col, 1)), nil
}
