// Package library manages a directory of diagrams: listing and resolving
// files, decoding them into images, watching the directory for changes, and
// keeping per-diagram annotation sidecars next to them.
package library

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrNotFound    = errors.New("diagram not found")
	ErrUnsupported = errors.New("unsupported diagram format")
)

var extensions = []string{".svg", ".png", ".jpg", ".jpeg"}

// Supported reports whether name carries one of the diagram extensions.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// List returns the supported regular files in dir, sorted by name. A
// directory that does not exist holds no diagrams.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	names := []string{}
	for _, e := range entries {
		if !e.Type().IsRegular() || !Supported(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Resolve maps a diagram name to its path inside dir. Names that would escape
// dir are reported as not found.
func Resolve(dir, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if !Supported(name) {
		return "", fmt.Errorf("%q: %w", name, ErrUnsupported)
	}
	return filepath.Join(dir, name), nil
}

// Load resolves, opens and decodes the named diagram.
func Load(dir, name string) (image.Image, error) {
	path, err := Resolve(dir, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, name)
}
