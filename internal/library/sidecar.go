package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/irfansharif/markup/internal/annot"
	"github.com/irfansharif/markup/internal/view"
	"gopkg.in/yaml.v3"
)

// Sidecar is the persisted per-diagram state.
type Sidecar struct {
	Annotations annot.Snapshot `json:"annotations" yaml:"annotations"`
	View        view.State     `json:"view" yaml:"view"`
}

// SidecarPath returns where the sidecar for the diagram at path lives:
// a hidden file next to it, so watchers and listings skip it.
func SidecarPath(path string) string {
	dir, name := filepath.Split(path)
	return filepath.Join(dir, "."+name+".markup.yaml")
}

// LoadSidecar reads the sidecar for the diagram at path. A missing sidecar
// yields the zero value.
func LoadSidecar(path string) (Sidecar, error) {
	var sc Sidecar
	data, err := os.ReadFile(SidecarPath(path))
	if errors.Is(err, os.ErrNotExist) {
		return sc, nil
	}
	if err != nil {
		return sc, err
	}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Sidecar{}, fmt.Errorf("sidecar %s: %w", path, err)
	}
	return sc, nil
}

// SaveSidecar writes the sidecar atomically.
func SaveSidecar(path string, sc Sidecar) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return fmt.Errorf("sidecar %s: %w", path, err)
	}
	target := SidecarPath(path)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}
