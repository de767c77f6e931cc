package library

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Vector diagrams without a usable viewBox are rasterized at this size.
const (
	defaultSVGWidth  = 800
	defaultSVGHeight = 600
	maxSVGSide       = 8192
)

// Decode reads a diagram. Raster formats are decoded as-is; SVG is
// rasterized onto a white background at its viewBox size.
func Decode(r io.Reader, name string) (image.Image, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		img, _, err := image.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return img, nil
	case ".svg":
		img, err := rasterizeSVG(r)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return img, nil
	default:
		return nil, fmt.Errorf("%q: %w", name, ErrUnsupported)
	}
}

func svgSide(v, fallback float64) int {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return int(fallback)
	}
	return int(math.Min(math.Ceil(v), maxSVGSide))
}

func rasterizeSVG(r io.Reader) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(r, oksvg.WarnErrorMode)
	if err != nil {
		return nil, err
	}
	w := svgSide(icon.ViewBox.W, defaultSVGWidth)
	h := svgSide(icon.ViewBox.H, defaultSVGHeight)
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1)
	return img, nil
}
