package export

import (
	"fmt"
	"sync"

	"github.com/gogpu/gg/text"
	"github.com/irfansharif/markup/internal/annot"
	"github.com/irfansharif/markup/internal/geom"
	"golang.org/x/image/font/gofont/goregular"
)

var fonts struct {
	once sync.Once
	src  *text.FontSource
	err  error

	mu    sync.Mutex
	faces map[float64]text.Face
}

// Face returns the Go Regular face at the given pixel size. Faces are cached
// per size.
func Face(size float64) (text.Face, error) {
	fonts.once.Do(func() {
		fonts.src, fonts.err = text.NewFontSource(goregular.TTF)
		fonts.faces = make(map[float64]text.Face)
	})
	if fonts.err != nil {
		return nil, fmt.Errorf("loading font: %w", fonts.err)
	}

	fonts.mu.Lock()
	defer fonts.mu.Unlock()
	if f, ok := fonts.faces[size]; ok {
		return f, nil
	}
	f := fonts.src.Face(size)
	fonts.faces[size] = f
	return f, nil
}

// MeasureText returns the rendered extent of a text annotation in image
// pixels: its advance width and its line height. It satisfies
// annot.Measurer.
func MeasureText(t annot.Text) geom.Point {
	face, err := Face(t.FontSize)
	if err != nil {
		return t.EstimateSize()
	}
	w, h := text.Measure(t.Text, face)
	return geom.MakePoint(w, h)
}

var _ annot.Measurer = MeasureText
