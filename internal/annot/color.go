package annot

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidColor is returned for colour strings that are not of the form
// #rrggbb.
var ErrInvalidColor = errors.New("invalid color")

// Transparent is the wire value of an absent fill.
const Transparent = "transparent"

// Color is an opaque 24-bit colour.
type Color struct {
	R, G, B uint8
}

var (
	Black = Color{0, 0, 0}
	Red   = Color{0xff, 0, 0}
)

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// ParseColor parses "#rrggbb" (case-insensitive). Shorthand, named colours
// and alpha forms are rejected.
func ParseColor(s string) (Color, error) {
	if len(s) != 7 || s[0] != '#' {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	for i := 1; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return FromColorful(c), nil
}

// MustParseColor is like ParseColor but panics on malformed input. Only for
// package-level literals.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// FromColorful converts a colorful.Color, clamping it into gamut.
func FromColorful(c colorful.Color) Color {
	r, g, b := c.Clamped().RGB255()
	return Color{r, g, b}
}

// Colorful returns the colour as a colorful.Color.
func (c Color) Colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// Hex formats the colour as lowercase #rrggbb.
func (c Color) Hex() string { return c.Colorful().Hex() }

func (c Color) String() string { return c.Hex() }

// RGBA returns the colour as a fully opaque color.RGBA.
func (c Color) RGBA() color.RGBA { return color.RGBA{c.R, c.G, c.B, 0xff} }

func (c Color) MarshalText() ([]byte, error) { return []byte(c.Hex()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
