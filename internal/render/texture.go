package render

import (
	"image"
	"image/draw"
	"math"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/gogpu/gg"

	"github.com/irfansharif/markup/internal/annot"
	"github.com/irfansharif/markup/internal/export"
)

// Texture is an RGBA texture uploaded from a bitmap.
type Texture struct {
	id   uint32
	W, H int
}

// NewTexture uploads img.
func NewTexture(img image.Image) *Texture {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*rgba.Rect.Dx() || rgba.Rect.Min != (image.Point{}) {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	t := &Texture{W: rgba.Rect.Dx(), H: rgba.Rect.Dy()}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	if t.W > 0 && t.H > 0 {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(t.W), int32(t.H), 0,
			gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba.Pix))
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return t
}

// Bind makes t the active texture on unit 0.
func (t *Texture) Bind() {
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
}

// Delete releases the texture.
func (t *Texture) Delete() {
	gl.DeleteTextures(1, &t.id)
}

// quad returns two textured triangles covering (x, y, w, h): x, y, u, v.
func quad(x, y, w, h float64) []float32 {
	x0, y0, x1, y1 := float32(x), float32(y), float32(x+w), float32(y+h)
	return []float32{
		x0, y0, 0, 0,
		x1, y0, 1, 0,
		x1, y1, 1, 1,
		x0, y0, 0, 0,
		x1, y1, 1, 1,
		x0, y1, 0, 1,
	}
}

// textKey identifies a rasterized label. Size is the on-screen pixel size,
// so labels are re-rasterized when the zoom level changes enough to matter.
type textKey struct {
	text  string
	size  int
	color annot.Color
}

type textEntry struct {
	tex  *Texture
	used bool
}

// textCache rasterizes text labels with gg and keeps them as textures until
// a frame goes by without them.
type textCache struct {
	entries map[textKey]*textEntry
}

func newTextCache() *textCache {
	return &textCache{entries: make(map[textKey]*textEntry)}
}

// get returns the texture for t drawn at screenScale screen pixels per image
// pixel.
func (c *textCache) get(t annot.Text, screenScale float64) (*Texture, error) {
	size := int(math.Round(t.FontSize * screenScale))
	if size < 1 {
		size = 1
	}
	key := textKey{t.Text, size, t.Fill}
	if e, ok := c.entries[key]; ok {
		e.used = true
		return e.tex, nil
	}

	face, err := export.Face(float64(size))
	if err != nil {
		return nil, err
	}
	sz := export.MeasureText(annot.Text{Text: t.Text, FontSize: float64(size)})

	dc := gg.NewContext(int(math.Ceil(sz.X))+1, int(math.Ceil(sz.Y))+1)
	defer dc.Close()
	dc.SetFont(face)
	dc.SetColor(t.Fill.RGBA())
	dc.DrawString(t.Text, 0, face.Metrics().Ascent)

	tex := NewTexture(dc.Image())
	c.entries[key] = &textEntry{tex: tex, used: true}
	return tex, nil
}

// sweep deletes textures not used since the previous sweep.
func (c *textCache) sweep() {
	for k, e := range c.entries {
		if !e.used {
			e.tex.Delete()
			delete(c.entries, k)
			continue
		}
		e.used = false
	}
}

func (c *textCache) delete() {
	for k, e := range c.entries {
		e.tex.Delete()
		delete(c.entries, k)
	}
}
