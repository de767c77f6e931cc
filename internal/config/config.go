// Package config loads the markup configuration shared by the viewer and
// the diagram service.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/irfansharif/markup/internal/annot"
	"github.com/irfansharif/markup/internal/interact"
	"github.com/irfansharif/markup/internal/palette"
	"gopkg.in/yaml.v3"
)

// Config holds the full markup configuration.
type Config struct {
	DiagramsDir string       `yaml:"diagrams_dir"`
	Listen      string       `yaml:"listen"`
	Window      WindowConfig `yaml:"window"`
	Tools       ToolsConfig  `yaml:"tools"`
	FontSize    float64      `yaml:"font_size"`
	Sidecars    bool         `yaml:"sidecars"`
	Palette     []string     `yaml:"palette"`
}

type WindowConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// ToolsConfig seeds the tool settings at startup.
type ToolsConfig struct {
	AnnotationsEnabled bool          `yaml:"annotations_enabled"`
	Tool               interact.Tool `yaml:"tool"`
	Color              annot.Color   `yaml:"color"`
	StrokeWidth        int           `yaml:"stroke_width"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		DiagramsDir: "diagrams",
		Listen:      ":3001",
		Window:      WindowConfig{Width: 1280, Height: 800},
		Tools: ToolsConfig{
			AnnotationsEnabled: interact.DefaultSettings.AnnotationsEnabled,
			Tool:               interact.DefaultSettings.Tool,
			Color:              interact.DefaultSettings.Color,
			StrokeWidth:        interact.DefaultSettings.StrokeWidth,
		},
		FontSize: interact.DefaultFontSize,
		Sidecars: true,
	}
}

// Load reads a YAML config file over the defaults. An empty path skips the
// file. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

// FromEnv loads the file named by MARKUP_CONFIG, if any.
func FromEnv() (*Config, error) {
	return Load(os.Getenv("MARKUP_CONFIG"))
}

func (c *Config) applyEnv(getenv func(string) string) {
	if dir := getenv("DIAGRAMS_DIR"); dir != "" {
		c.DiagramsDir = dir
	}
	if port := getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			c.Listen = ":" + port
		} else {
			c.Listen = port
		}
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.DiagramsDir == "" {
		c.DiagramsDir = def.DiagramsDir
	}
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Window.Width <= 0 {
		c.Window.Width = def.Window.Width
	}
	if c.Window.Height <= 0 {
		c.Window.Height = def.Window.Height
	}
	if c.FontSize <= 0 {
		c.FontSize = def.FontSize
	}
	if c.Tools.StrokeWidth == 0 {
		c.Tools.StrokeWidth = def.Tools.StrokeWidth
	}
	c.DiagramsDir = filepath.Clean(c.DiagramsDir)
}

// Validate checks that values are sane.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Listen) == "" {
		errs = append(errs, fmt.Errorf("listen is required"))
	}
	if w := c.Tools.StrokeWidth; w < interact.MinStrokeWidth || w > interact.MaxStrokeWidth {
		errs = append(errs, fmt.Errorf("tools.stroke_width must be within [%d, %d], got %d",
			interact.MinStrokeWidth, interact.MaxStrokeWidth, w))
	}
	if len(c.Palette) > 0 {
		if _, err := palette.Parse(c.Palette); err != nil {
			errs = append(errs, fmt.Errorf("palette: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Settings returns the configured initial tool settings.
func (c *Config) Settings() interact.Settings {
	return interact.Settings{
		AnnotationsEnabled: c.Tools.AnnotationsEnabled,
		Tool:               c.Tools.Tool,
		Color:              c.Tools.Color,
		StrokeWidth:        c.Tools.StrokeWidth,
	}
}

// Swatches returns the configured colour palette, or the default one.
func (c *Config) Swatches() palette.Swatches {
	if len(c.Palette) == 0 {
		return palette.Default()
	}
	p, err := palette.Parse(c.Palette)
	if err != nil {
		return palette.Default()
	}
	return p
}
