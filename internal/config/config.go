// Package config loads the TOML settings shared by the edm commands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/arc"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/contour"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/gcode"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/render"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/viewport"
)

// Config is the full settings file.
type Config struct {
	Parser   Parser   `toml:"parser"`
	Contour  Contour  `toml:"contour"`
	Viewport Viewport `toml:"viewport"`
	Render   Render   `toml:"render"`
}

type Parser struct {
	ArcOffsets      string  `toml:"arc_offsets"` // follow, incremental or absolute
	RadiusTolerance float64 `toml:"radius_tolerance"`
}

type Contour struct {
	Epsilon       float64 `toml:"epsilon"`
	NearClosure   float64 `toml:"near_closure"`
	SplitAtRapids bool    `toml:"split_at_rapids"`
}

type Viewport struct {
	MinZoom    float64 `toml:"min_zoom"`
	MaxZoom    float64 `toml:"max_zoom"`
	ZoomStep   float64 `toml:"zoom_step"`
	FitPadding float64 `toml:"fit_padding"`
	Margin     float64 `toml:"margin"`
}

type Render struct {
	Width      int     `toml:"width"`
	Height     int     `toml:"height"`
	ArcStep    float64 `toml:"arc_step"`
	LineWidth  float64 `toml:"line_width"`
	HideRapids bool    `toml:"hide_rapids"`
}

// Default returns the settings used when no file exists.
func Default() *Config {
	return &Config{
		Parser: Parser{
			ArcOffsets:      gcode.OffsetFollowDistance.String(),
			RadiusTolerance: arc.DefaultRadiusTolerance,
		},
		Contour: Contour{
			Epsilon:     contour.DefaultEpsilon,
			NearClosure: contour.DefaultNearClosure,
		},
		Viewport: Viewport{
			MinZoom:    viewport.MinZoom,
			MaxZoom:    viewport.MaxZoom,
			ZoomStep:   viewport.ZoomStep,
			FitPadding: viewport.FitPadding,
			Margin:     viewport.DefaultFitMargin,
		},
		Render: Render{
			Width:     1024,
			Height:    768,
			ArcStep:   render.DefaultArcStep,
			LineWidth: render.DefaultStyle().LineWidth,
		},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	if appData := os.Getenv("APPDATA"); appData != "" {
		// Windows: %APPDATA%\OpenTraceEDM
		return filepath.Join(appData, "OpenTraceEDM", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "opentraceedm", "config.toml"), nil
}

// Load reads the config at path, or at DefaultPath when path is empty.
// A missing default file yields Default(); a missing explicit file is an
// error. Keys absent from the file keep their default value and unknown
// keys are rejected.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("config: %s", strict.String())
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks every value and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("config: "+format, args...))
		}
	}

	if _, ok := gcode.ParseOffsetMode(c.Parser.ArcOffsets); !ok {
		errs = append(errs, fmt.Errorf("config: parser.arc_offsets: unknown mode %q", c.Parser.ArcOffsets))
	}
	check(c.Parser.RadiusTolerance > 0, "parser.radius_tolerance must be positive, got %v", c.Parser.RadiusTolerance)
	check(c.Contour.Epsilon > 0, "contour.epsilon must be positive, got %v", c.Contour.Epsilon)
	check(c.Contour.NearClosure >= 0, "contour.near_closure must not be negative, got %v", c.Contour.NearClosure)
	check(c.Viewport.MinZoom > 0, "viewport.min_zoom must be positive, got %v", c.Viewport.MinZoom)
	check(c.Viewport.MaxZoom >= c.Viewport.MinZoom, "viewport.max_zoom %v is below min_zoom %v", c.Viewport.MaxZoom, c.Viewport.MinZoom)
	check(c.Viewport.ZoomStep > 1, "viewport.zoom_step must be above 1, got %v", c.Viewport.ZoomStep)
	check(c.Viewport.FitPadding > 0 && c.Viewport.FitPadding <= 1, "viewport.fit_padding must be in (0, 1], got %v", c.Viewport.FitPadding)
	check(c.Viewport.Margin >= 0, "viewport.margin must not be negative, got %v", c.Viewport.Margin)
	check(c.Render.Width > 0 && c.Render.Height > 0, "render size must be positive, got %dx%d", c.Render.Width, c.Render.Height)
	check(c.Render.ArcStep > 0, "render.arc_step must be positive, got %v", c.Render.ArcStep)
	check(c.Render.LineWidth > 0, "render.line_width must be positive, got %v", c.Render.LineWidth)

	return errors.Join(errs...)
}

// ParserOptions converts the [parser] section.
func (c *Config) ParserOptions() gcode.Options {
	mode, _ := gcode.ParseOffsetMode(c.Parser.ArcOffsets)
	return gcode.Options{ArcOffsets: mode, RadiusTolerance: c.Parser.RadiusTolerance}
}

// ContourOptions converts the [contour] section. A zero near_closure
// disables the ambiguous closure warning.
func (c *Config) ContourOptions() contour.Options {
	near := c.Contour.NearClosure
	if near == 0 {
		near = -1
	}
	return contour.Options{
		Epsilon:       c.Contour.Epsilon,
		NearClosure:   near,
		SplitAtRapids: c.Contour.SplitAtRapids,
	}
}

// ViewportOptions converts the [viewport] section.
func (c *Config) ViewportOptions() []viewport.Option {
	return []viewport.Option{
		viewport.WithZoomRange(c.Viewport.MinZoom, c.Viewport.MaxZoom),
		viewport.WithZoomStep(c.Viewport.ZoomStep),
		viewport.WithFitPadding(c.Viewport.FitPadding),
		viewport.WithMargin(c.Viewport.Margin),
	}
}

// PNGOptions converts the [render] section.
func (c *Config) PNGOptions() render.PNGOptions {
	opts := render.DefaultPNGOptions()
	opts.Style.LineWidth = c.Render.LineWidth
	opts.Flatten = render.Options{ArcStep: c.Render.ArcStep, HideRapids: c.Render.HideRapids}
	return opts
}
