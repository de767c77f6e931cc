// Package export rasterizes a diagram and its annotations.
//
// Render works at the source image's native resolution and ignores any
// viewport: annotations are stored in image pixels, so they are drawn with an
// identity transform. Preview draws the same scene through a view pipeline
// into a container-sized bitmap.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"math"

	"github.com/gogpu/gg"
	"github.com/irfansharif/markup/internal/annot"
	"github.com/irfansharif/markup/internal/geom"
	"github.com/irfansharif/markup/internal/logging"
	"github.com/irfansharif/markup/internal/view"
)

// ErrNoImage is returned when there is no source bitmap to draw on.
var ErrNoImage = errors.New("no image")

func checkSource(src image.Image) error {
	if src == nil || src.Bounds().Empty() {
		return ErrNoImage
	}
	return nil
}

func toMatrix(a geom.Affine) gg.Matrix {
	return gg.Matrix{A: a.A, B: a.B, C: a.C, D: a.D, E: a.E, F: a.F}
}

func render(src image.Image, snap annot.Snapshot) (*gg.Context, error) {
	if err := checkSource(src); err != nil {
		return nil, err
	}
	dc := gg.NewContextForImage(src)
	if err := drawScene(dc, snap, geom.Identity()); err != nil {
		_ = dc.Close()
		return nil, err
	}
	return dc, nil
}

// Render composites snap over src at src's native size. Lines are drawn
// first, then shapes, then texts, each in insertion order.
func Render(src image.Image, snap annot.Snapshot) (*image.RGBA, error) {
	dc, err := render(src, snap)
	if err != nil {
		return nil, err
	}
	defer dc.Close()
	return toRGBA(dc.Image()), nil
}

// PNG writes the Render result to w as a PNG.
func PNG(w io.Writer, src image.Image, snap annot.Snapshot) error {
	dc, err := render(src, snap)
	if err != nil {
		return err
	}
	defer dc.Close()
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	logging.Logger().Debug("exported png",
		"width", dc.Width(), "height", dc.Height(),
		"lines", len(snap.Lines), "shapes", len(snap.Shapes), "texts", len(snap.Texts))
	return nil
}

// Preview draws src and snap through the pipeline into a w x h bitmap, the
// way the panel shows them on screen.
func Preview(src image.Image, snap annot.Snapshot, p view.Pipeline, w, h int) (*image.RGBA, error) {
	if err := checkSource(src); err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("preview size %dx%d: %w", w, h, ErrNoImage)
	}
	dc := gg.NewContext(w, h)
	defer dc.Close()

	tr := p.Affine()
	b := src.Bounds()
	dc.SetTransform(toMatrix(tr))
	dc.DrawImageEx(gg.ImageBufFromImage(src), gg.DrawImageOptions{
		DstWidth:  float64(b.Dx()),
		DstHeight: float64(b.Dy()),
	})
	if err := drawScene(dc, snap, tr); err != nil {
		return nil, err
	}
	return toRGBA(dc.Image()), nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

// drawScene draws the annotations in image space through tr. Paths go
// through the context transform; text is placed by hand since gg draws
// glyphs in device space.
func drawScene(dc *gg.Context, snap annot.Snapshot, tr geom.Affine) error {
	dc.SetTransform(toMatrix(tr))
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	for _, l := range snap.Lines {
		if err := drawLine(dc, l); err != nil {
			return fmt.Errorf("line %s: %w", l.ID, err)
		}
	}
	for _, sh := range snap.Shapes {
		if err := drawShape(dc, sh); err != nil {
			return fmt.Errorf("shape %s: %w", sh.ID, err)
		}
	}

	dc.Identity()
	scale := tr.ScaleFactor()
	for _, t := range snap.Texts {
		if err := drawText(dc, t, tr, scale); err != nil {
			return fmt.Errorf("text %s: %w", t.ID, err)
		}
	}
	return nil
}

func drawLine(dc *gg.Context, l annot.Line) error {
	dc.SetColor(l.Stroke.RGBA())
	switch len(l.Points) {
	case 0:
		return nil
	case 1:
		// A tap: the round cap of a zero-length stroke.
		p := l.Points[0]
		dc.DrawCircle(p.X, p.Y, l.StrokeWidth/2)
		return dc.Fill()
	}
	dc.SetLineWidth(l.StrokeWidth)
	dc.MoveTo(l.Points[0].X, l.Points[0].Y)
	for _, p := range l.Points[1:] {
		dc.LineTo(p.X, p.Y)
	}
	return dc.Stroke()
}

func shapePath(dc *gg.Context, g annot.Geometry) {
	switch g := g.(type) {
	case annot.Rect:
		n := g.Normalized()
		dc.DrawRectangle(n.X, n.Y, n.W, n.H)
	case annot.Circle:
		dc.DrawCircle(g.X, g.Y, math.Abs(g.R))
	case annot.Segment:
		dc.MoveTo(g.P1.X, g.P1.Y)
		dc.LineTo(g.P2.X, g.P2.Y)
	}
}

func drawShape(dc *gg.Context, sh annot.Shape) error {
	if sh.Geometry == nil {
		return nil
	}
	if _, ok := sh.Geometry.(annot.Segment); !ok && sh.Fill != nil {
		shapePath(dc, sh.Geometry)
		dc.SetColor(sh.Fill.RGBA())
		if err := dc.Fill(); err != nil {
			return err
		}
	}
	shapePath(dc, sh.Geometry)
	dc.SetColor(sh.Stroke.RGBA())
	dc.SetLineWidth(sh.StrokeWidth)
	return dc.Stroke()
}

func drawText(dc *gg.Context, t annot.Text, tr geom.Affine, scale float64) error {
	if t.Text == "" || t.FontSize <= 0 {
		return nil
	}
	face, err := Face(t.FontSize * scale)
	if err != nil {
		return err
	}
	at := tr.MulPoint(t.Pos())
	dc.SetFont(face)
	dc.SetColor(t.Fill.RGBA())
	dc.DrawString(t.Text, at.X, at.Y+face.Metrics().Ascent)
	return nil
}
