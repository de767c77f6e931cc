package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/irfansharif/markup/internal/annot"
	"github.com/irfansharif/markup/internal/config"
	"github.com/irfansharif/markup/internal/library"
	"golang.org/x/net/websocket"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()

	img := image.NewRGBA(image.Rect(0, 0, 100, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	for name, data := range map[string][]byte{
		"flow.png":  buf.Bytes(),
		"notes.txt": []byte("not a diagram"),
	} {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.DefaultConfig()
	cfg.DiagramsDir = dir
	return New(cfg), dir
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("error body: %v", err)
	}
	return body.Error
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	if rec := do(t, s, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestListDiagrams(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/diagrams", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got struct {
		Diagrams []string `json:"diagrams"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Diagrams, []string{"flow.png"}) {
		t.Fatalf("diagrams = %v", got.Diagrams)
	}
}

func TestListMissingDirectory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DiagramsDir = filepath.Join(t.TempDir(), "absent")
	rec := do(t, New(cfg), http.MethodGet, "/api/diagrams", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"diagrams":[]}` {
		t.Fatalf("got %d %s", rec.Code, rec.Body)
	}
}

func TestGetDiagram(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/diagrams/flow.png", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}

	tests := []struct {
		target string
		code   int
	}{
		{"/api/diagrams/missing.png", http.StatusNotFound},
		{"/api/diagrams/notes.txt", http.StatusBadRequest},
		{"/api/diagrams/.hidden.png", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := do(t, s, http.MethodGet, tt.target, "")
		if rec.Code != tt.code {
			t.Errorf("GET %s = %d, want %d", tt.target, rec.Code, tt.code)
			continue
		}
		if msg := errorBody(t, rec); msg == "" {
			t.Errorf("GET %s: empty error message", tt.target)
		}
	}
}

func TestExport(t *testing.T) {
	s, _ := newTestServer(t)
	body := `{"lines":[],"texts":[],"shapes":[
		{"id":"r1","type":"rectangle","x":10,"y":10,"width":50,"height":40,
		 "fill":"transparent","stroke":"#ff0000","strokeWidth":4,"draggable":true}]}`

	rec := do(t, s, http.MethodPost, "/api/diagrams/flow.png/export", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "flow.annotated.png") {
		t.Fatalf("content disposition = %q", cd)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 80 {
		t.Fatalf("export bounds = %v, want native 100x80", b)
	}
	edge := color.RGBAModel.Convert(img.At(10, 30)).(color.RGBA)
	if edge.R < 200 || edge.G > 80 {
		t.Errorf("rectangle edge = %v, want red", edge)
	}
	inside := color.RGBAModel.Convert(img.At(35, 30)).(color.RGBA)
	if inside.G < 240 {
		t.Errorf("rectangle interior = %v, want untouched white", inside)
	}
}

func TestExportErrors(t *testing.T) {
	s, _ := newTestServer(t)
	tests := []struct {
		target, body string
		code         int
	}{
		{"/api/diagrams/flow.png/export", `{"shapes":[{"id":"x","type":"hexagon"}]}`, http.StatusBadRequest},
		{"/api/diagrams/flow.png/export", `not json`, http.StatusBadRequest},
		{"/api/diagrams/missing.png/export", `{}`, http.StatusNotFound},
		{"/api/diagrams/notes.txt/export", `{}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := do(t, s, http.MethodPost, tt.target, tt.body); rec.Code != tt.code {
			t.Errorf("POST %s %s = %d, want %d", tt.target, tt.body, rec.Code, tt.code)
		}
	}
}

func TestPreview(t *testing.T) {
	s, _ := newTestServer(t)
	// The 100x80 diagram fits a 200x160 panel at scale 2; the rectangle's
	// left edge at x=10 lands at x=20 on screen.
	body := `{"annotations":{"shapes":[
		{"id":"r1","type":"rectangle","x":10,"y":10,"width":50,"height":40,
		 "fill":"transparent","stroke":"#ff0000","strokeWidth":4,"draggable":true}]},
		"view":{"scale":1,"position":{"x":0,"y":0}}}`

	rec := do(t, s, http.MethodPost, "/api/diagrams/flow.png/preview?width=200&height=160", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 160 {
		t.Fatalf("preview bounds = %v, want 200x160", b)
	}
	edge := color.RGBAModel.Convert(img.At(20, 60)).(color.RGBA)
	if edge.R < 200 || edge.G > 80 {
		t.Errorf("rectangle edge = %v, want red", edge)
	}
	inside := color.RGBAModel.Convert(img.At(70, 60)).(color.RGBA)
	if inside.G < 240 {
		t.Errorf("rectangle interior = %v, want white", inside)
	}

	for _, target := range []string{
		"/api/diagrams/flow.png/preview",
		"/api/diagrams/flow.png/preview?width=0&height=10",
		"/api/diagrams/flow.png/preview?width=10&height=99999",
	} {
		if rec := do(t, s, http.MethodPost, target, "{}"); rec.Code != http.StatusBadRequest {
			t.Errorf("POST %s = %d, want 400", target, rec.Code)
		}
	}
	if rec := do(t, s, http.MethodPost, "/api/diagrams/missing.png/preview?width=10&height=10", "{}"); rec.Code != http.StatusNotFound {
		t.Errorf("missing diagram = %d, want 404", rec.Code)
	}
}

func TestExportFailureIsNotAnImage(t *testing.T) {
	s, _ := newTestServer(t)
	defer func(orig func(io.Writer, image.Image, annot.Snapshot) error) { exportPNG = orig }(exportPNG)
	exportPNG = func(io.Writer, image.Image, annot.Snapshot) error {
		return errors.New("rasterizer failed")
	}

	rec := do(t, s, http.MethodPost, "/api/diagrams/flow.png/export", "{}")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "" {
		t.Fatalf("content disposition = %q, want none", cd)
	}
	if msg := errorBody(t, rec); msg != "rasterizer failed" {
		t.Fatalf("error = %q", msg)
	}
}

func TestEventSocket(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ws, err := websocket.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", "", ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	deadline := time.Now().Add(5 * time.Second)
	for s.hub.len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.hub.publish(library.Event{Type: library.Modified, Filename: "flow.png"})

	if err := ws.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatal(err)
	}
	var msg string
	if err := websocket.Message.Receive(ws, &msg); err != nil {
		t.Fatal(err)
	}
	if msg != `{"type":"file_modified","filename":"flow.png"}` {
		t.Fatalf("message = %s", msg)
	}

	ws.Close()
	deadline = time.Now().Add(5 * time.Second)
	for s.hub.len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("closed client still subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubClose(t *testing.T) {
	h := newHub()
	ch, cancel := h.subscribe()
	h.close()
	if _, ok := <-ch; ok {
		t.Fatal("subscriber channel should be closed")
	}
	cancel()

	late, _ := h.subscribe()
	if _, ok := <-late; ok {
		t.Fatal("subscribing after close should yield a closed channel")
	}
}
