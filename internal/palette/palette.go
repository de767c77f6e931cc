// Package palette provides the colour swatches bound to the number keys and
// the derived colours the renderer uses for selection highlights.
package palette

import (
	"fmt"
	"image/color"
	"math"
	"math/rand"

	"github.com/irfansharif/markup/internal/annot"
	"github.com/lucasb-eyer/go-colorful"
)

// Swatches holds the nine colours selectable with keys 1 through 9.
type Swatches [9]annot.Color

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// hsb converts hue in [0,360) and saturation/brightness in [0,1].
func hsb(h, s, b float64) annot.Color {
	return annot.FromColorful(colorful.Hsv(h, clamp(s, 0, 1), clamp(b, 0, 1)))
}

// Default returns red, black, white and six evenly spaced saturated hues
// sitting between the primaries.
func Default() Swatches {
	p := Swatches{annot.Red, annot.Black, {R: 255, G: 255, B: 255}}
	for i := 3; i < 9; i++ {
		p[i] = hsb(float64(i-3)*60+30, 0.9, 0.95)
	}
	return p
}

// Random returns a palette using HSV generation, keeping red and black in
// the first two slots.
func Random(r *rand.Rand) Swatches {
	p := Swatches{annot.Red, annot.Black}
	for i := 2; i < 9; i++ {
		p[i] = hsb(r.Float64()*360, r.Float64()*0.5+0.5, r.Float64()*0.4+0.6)
	}
	return p
}

// Parse builds swatches from up to nine #rrggbb strings; missing slots keep
// their Default colour.
func Parse(hexes []string) (Swatches, error) {
	p := Default()
	if len(hexes) > len(p) {
		return p, fmt.Errorf("palette has %d colours, at most %d allowed", len(hexes), len(p))
	}
	for i, h := range hexes {
		c, err := annot.ParseColor(h)
		if err != nil {
			return Default(), fmt.Errorf("palette slot %d: %w", i+1, err)
		}
		p[i] = c
	}
	return p, nil
}

// At returns the colour bound to number key n (1-9).
func (p Swatches) At(n int) (annot.Color, bool) {
	if n < 1 || n > len(p) {
		return annot.Color{}, false
	}
	return p[n-1], true
}

// Contrast returns a colour that stands out against c: its hue rotated
// half way round, at full saturation and brightness. Greys map to a
// fixed cyan.
func Contrast(c annot.Color) annot.Color {
	h, s, _ := c.Colorful().Hsv()
	if s < 0.1 {
		return hsb(180, 1, 1)
	}
	return hsb(math.Mod(h+180, 360), 1, 1)
}

// Float32 returns c as normalized RGBA components with the given alpha.
func Float32(c annot.Color, alpha float64) [4]float32 {
	rgba := color.RGBA{c.R, c.G, c.B, 255}
	return [4]float32{
		float32(rgba.R) / 255.0, float32(rgba.G) / 255.0,
		float32(rgba.B) / 255.0, float32(clamp(alpha, 0, 1)),
	}
}
