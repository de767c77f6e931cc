// Package server exposes the diagram library over HTTP: listing and serving
// diagrams, exporting annotated copies, and pushing library changes to
// clients over a websocket.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/irfansharif/markup/internal/annot"
	"github.com/irfansharif/markup/internal/config"
	"github.com/irfansharif/markup/internal/export"
	"github.com/irfansharif/markup/internal/library"
	"github.com/irfansharif/markup/internal/logging"
	"github.com/irfansharif/markup/internal/view"
	"golang.org/x/net/websocket"
)

const (
	// maxSnapshotBytes bounds the annotation payload accepted by export.
	maxSnapshotBytes = 8 << 20
	// maxPreviewSide bounds either side of a preview bitmap.
	maxPreviewSide = 4096
)

// exportPNG renders an annotated diagram for the export endpoint.
var exportPNG = export.PNG

// Server serves one diagram directory.
type Server struct {
	cfg    *config.Config
	router *chi.Mux
	hub    *hub
}

// New builds the router for cfg.DiagramsDir.
func New(cfg *config.Config) *Server {
	s := &Server{cfg: cfg, hub: newHub()}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/diagrams", s.handleList)
		r.Get("/diagrams/{filename}", s.handleDiagram)
		r.Post("/diagrams/{filename}/export", s.handleExport)
		r.Post("/diagrams/{filename}/preview", s.handlePreview)
	})
	r.Handle("/ws", websocket.Server{Handler: s.serveEvents})
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully. Library
// changes are forwarded to event subscribers while it runs; a directory that
// cannot be watched only disables the event stream.
func (s *Server) Run(ctx context.Context) error {
	w, err := library.NewWatcher(s.cfg.DiagramsDir)
	if err != nil {
		logging.Logger().Warn("diagram watcher disabled", "err", err)
	} else {
		defer w.Close()
		go s.forward(w.Events())
	}

	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logging.Logger().Info("serving diagrams", "addr", s.cfg.Listen, "dir", s.cfg.DiagramsDir)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) forward(events <-chan library.Event) {
	for ev := range events {
		s.hub.publish(ev)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	names, err := library.List(s.cfg.DiagramsDir)
	if err != nil {
		logging.Logger().Warn("list diagrams", "err", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"diagrams": names})
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	path, err := library.Resolve(s.cfg.DiagramsDir, name)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
		writeError(w, http.StatusNotFound, fmt.Errorf("%q: %w", name, library.ErrNotFound))
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	var snap annot.Snapshot
	if code, err := readJSON(r, &snap); err != nil {
		writeError(w, code, fmt.Errorf("annotations: %w", err))
		return
	}

	img, err := library.Load(s.cfg.DiagramsDir, name)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	var buf bytes.Buffer
	if err := exportPNG(&buf, img, snap); err != nil {
		logging.Logger().Warn("export", "diagram", name, "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(name)))
	w.Write(buf.Bytes())
}

// handlePreview renders the diagram the way a panel of ?width x ?height
// shows it, given the annotations and view state in the body.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	cw, errW := strconv.Atoi(r.URL.Query().Get("width"))
	ch, errH := strconv.Atoi(r.URL.Query().Get("height"))
	if errW != nil || errH != nil || cw <= 0 || ch <= 0 || cw > maxPreviewSide || ch > maxPreviewSide {
		writeError(w, http.StatusBadRequest, fmt.Errorf("width and height must be in [1, %d]", maxPreviewSide))
		return
	}

	var sc library.Sidecar
	if code, err := readJSON(r, &sc); err != nil {
		writeError(w, code, fmt.Errorf("preview: %w", err))
		return
	}

	img, err := library.Load(s.cfg.DiagramsDir, name)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	b := img.Bounds()
	p := view.Pipeline{
		Fit:  view.FitImage(float64(b.Dx()), float64(b.Dy()), float64(cw), float64(ch)),
		View: view.NewViewport(sc.View).State(),
	}
	out, err := export.Preview(img, sc.Annotations, p, cw, ch)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

// readJSON decodes a bounded request body into v. An empty body leaves v
// untouched. On failure it returns the status to answer with.
func readJSON(r *http.Request, v any) (int, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSnapshotBytes+1))
	if err != nil {
		return http.StatusBadRequest, err
	}
	if len(body) > maxSnapshotBytes {
		return http.StatusRequestEntityTooLarge, errors.New("payload too large")
	}
	if len(body) == 0 {
		return http.StatusOK, nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return http.StatusBadRequest, err
	}
	return http.StatusOK, nil
}

// serveEvents pushes every library change to one websocket client as
// {"type", "filename"}. Client messages are read and discarded.
func (s *Server) serveEvents(ws *websocket.Conn) {
	defer ws.Close()
	events, cancel := s.hub.subscribe()
	defer cancel()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		_, _ = io.Copy(io.Discard, ws)
	}()

	for {
		select {
		case <-gone:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := websocket.JSON.Send(ws, ev); err != nil {
				logging.Logger().Debug("websocket client dropped", "err", err)
				return
			}
		}
	}
}

// exportName maps "flow.svg" to "flow.annotated.png".
func exportName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".annotated.png"
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, library.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, library.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, export.ErrNoImage):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
