package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestDefaultIsSilent(t *testing.T) {
	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Fatal("default logger should be disabled at every level")
	}
}

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	Logger().Info("panel added", "name", "a.png")
	if !strings.Contains(buf.String(), "name=a.png") {
		t.Fatalf("unexpected output %q", buf.String())
	}

	SetLogger(nil)
	buf.Reset()
	Logger().Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("nil logger should restore silence, got %q", buf.String())
	}
}

func TestFromEnv(t *testing.T) {
	defer SetLogger(nil)

	var buf bytes.Buffer
	t.Setenv("MARKUP_TEST_DEBUG", "")
	if FromEnv("MARKUP_TEST_DEBUG", &buf) {
		t.Fatal("unset variable should not enable logging")
	}
	t.Setenv("MARKUP_TEST_DEBUG", "1")
	if !FromEnv("MARKUP_TEST_DEBUG", &buf) {
		t.Fatal("expected logging to be enabled")
	}
	Logger().Debug("transition", "to", "panning")
	if !strings.Contains(buf.String(), "to=panning") {
		t.Fatalf("debug record missing: %q", buf.String())
	}
}
