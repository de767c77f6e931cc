// Package render draws diagram panels with OpenGL.
//
// Each panel is drawn into its own rectangle of the window: the diagram
// bitmap as a textured quad, annotations as triangles, and text labels as
// textured quads rasterized with gg. Geometry is kept in image space and
// placed on screen by a single transform uniform, so zooming and panning
// never regenerate it.
package render

import (
	"image"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/irfansharif/markup/internal/annot"
	"github.com/irfansharif/markup/internal/geom"
	"github.com/irfansharif/markup/internal/logging"
	"github.com/irfansharif/markup/internal/view"
)

type Renderer struct {
	shaders *ShaderManager
	quads   *VertexBuffer // x, y, u, v
	chrome  *VertexBuffer // x, y, r, g, b, a

	fbW, fbH int     // framebuffer size
	fbScale  float64 // framebuffer pixels per window pixel

	stats Stats
}

// Stats tracks rendering performance metrics.
type Stats struct {
	LastPrepareTimeMs float64 // time spent in the last Prepare call in milliseconds
	LastDrawTimeUs    float64 // time spent drawing the last frame in microseconds
	Vertices          int     // annotation vertices drawn in the last frame
}

// NewRenderer compiles the shaders and sets up blending. Must be called with
// a current GL context.
func NewRenderer() (*Renderer, error) {
	shaders, err := NewShaderManager()
	if err != nil {
		return nil, err
	}
	gl.Enable(gl.BLEND)
	return &Renderer{
		shaders: shaders,
		quads:   NewVertexBuffer(2, 2),
		chrome:  NewVertexBuffer(2, 4),
		fbScale: 1,
	}, nil
}

// SetWindow records the framebuffer size and its ratio to window
// coordinates (greater than one on high-density displays).
func (r *Renderer) SetWindow(fbW, fbH int, scale float64) {
	r.fbW, r.fbH = fbW, fbH
	if scale <= 0 {
		scale = 1
	}
	r.fbScale = scale
}

// Begin clears the window for a new frame.
func (r *Renderer) Begin() {
	r.stats.Vertices = 0
	gl.Disable(gl.SCISSOR_TEST)
	gl.Viewport(0, 0, int32(r.fbW), int32(r.fbH))
	gl.ClearColor(0.93, 0.93, 0.93, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

// Stats returns the current performance statistics.
func (r *Renderer) Stats() Stats {
	return r.stats
}

// Delete releases every GL object owned by the renderer.
func (r *Renderer) Delete() {
	r.quads.Delete()
	r.chrome.Delete()
	r.shaders.Delete()
}

// Layer holds the GPU resources of one panel.
type Layer struct {
	image *Texture
	mesh  *VertexBuffer
	texts *textCache
	scene []annot.Text
}

// NewLayer uploads img as a panel's diagram.
func (r *Renderer) NewLayer(img image.Image) *Layer {
	l := &Layer{
		mesh:  NewVertexBuffer(2, 4),
		texts: newTextCache(),
	}
	l.SetImage(img)
	return l
}

// SetImage replaces the diagram bitmap, e.g. after the file changed on disk.
func (l *Layer) SetImage(img image.Image) {
	if l.image != nil {
		l.image.Delete()
		l.image = nil
	}
	if img != nil {
		l.image = NewTexture(img)
	}
}

// Prepare tessellates and uploads a panel's scene. Call it only when the
// scene or selection changed; zoom and pan don't require it.
func (r *Renderer) Prepare(l *Layer, scene annot.Snapshot, opts TessellateOptions) error {
	start := time.Now()
	mesh, err := Tessellate(scene, opts)
	if err != nil {
		return err
	}
	l.mesh.Upload(mesh)
	l.scene = scene.Texts
	r.stats.LastPrepareTimeMs = float64(time.Since(start).Microseconds()) / 1000.0
	return nil
}

// Delete releases the layer's GL objects.
func (l *Layer) Delete() {
	l.SetImage(nil)
	l.mesh.Delete()
	l.texts.delete()
}

// viewportFor restricts drawing to a window-space rectangle.
func (r *Renderer) viewportFor(rect geom.Box) {
	x := int32(rect.X * r.fbScale)
	w := int32(rect.W * r.fbScale)
	h := int32(rect.H * r.fbScale)
	y := int32(r.fbH) - int32(rect.Y*r.fbScale) - h // GL origin is bottom-left
	gl.Viewport(x, y, w, h)
	gl.Enable(gl.SCISSOR_TEST)
	gl.Scissor(x, y, w, h)
}

// DrawLayer draws a panel into rect (window coordinates) through the
// panel's view pipeline.
func (r *Renderer) DrawLayer(l *Layer, rect geom.Box, p view.Pipeline) {
	start := time.Now()
	r.viewportFor(rect)
	matrix := affineToMatrix4(screenToNDC(rect.W, rect.H).Mul(p.Affine()))

	gl.BlendFunc(gl.ONE, gl.ONE_MINUS_SRC_ALPHA) // textures are premultiplied
	r.shaders.UseTexture(matrix)
	if l.image != nil {
		l.image.Bind()
		r.quads.Upload(quad(0, 0, float64(l.image.W), float64(l.image.H)))
		r.quads.Draw()
	}

	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	r.shaders.UseColor(matrix)
	l.mesh.Draw()
	r.stats.Vertices += l.mesh.Len()

	gl.BlendFunc(gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
	r.shaders.UseTexture(matrix)
	scale := p.Scale()
	for _, t := range l.scene {
		if t.Text == "" {
			continue
		}
		tex, err := l.texts.get(t, scale)
		if err != nil {
			logging.Logger().Warn("rasterizing text", "id", t.ID, "err", err)
			continue
		}
		tex.Bind()
		r.quads.Upload(quad(t.X, t.Y, float64(tex.W)/scale, float64(tex.H)/scale))
		r.quads.Draw()
	}
	l.texts.sweep()

	r.stats.LastDrawTimeUs = float64(time.Since(start).Microseconds())
}

// DrawChrome draws window-space decorations (panel frames, dividers) over
// the whole window.
func (r *Renderer) DrawChrome(mesh Mesh, winW, winH float64) {
	r.viewportFor(geom.MakeBox(0, 0, winW, winH))
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	r.shaders.UseColor(affineToMatrix4(screenToNDC(winW, winH)))
	r.chrome.Upload(mesh)
	r.chrome.Draw()
}

// screenToNDC converts w x h screen coordinates (origin top-left, y down) to
// OpenGL NDC.
func screenToNDC(w, h float64) geom.Affine {
	return geom.MakeAffine(
		2.0/w, 0, -1,
		0, -2.0/h, 1,
	)
}

// affineToMatrix4 converts an affine transform to OpenGL 4x4 matrix format.
func affineToMatrix4(transform geom.Affine) [16]float32 {
	return [16]float32{
		float32(transform.A), float32(transform.D), 0, 0,
		float32(transform.B), float32(transform.E), 0, 0,
		0, 0, 1, 0,
		float32(transform.C), float32(transform.F), 0, 1,
	}
}
