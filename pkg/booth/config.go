package booth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/tstromberg/fotoautomat/pkg/capture"
	"github.com/tstromberg/fotoautomat/pkg/imgload"
	"github.com/tstromberg/fotoautomat/pkg/layout"
	"github.com/tstromberg/fotoautomat/pkg/template"
)

// Capture modes.
const (
	ModeSingle    = "single"
	ModeCountdown = "countdown"
	ModeBurst     = "burst"
)

var modes = []string{ModeSingle, ModeCountdown, ModeBurst}

// Duration is a time.Duration written as "5s" in JSON.
type Duration struct {
	time.Duration
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		d.Duration = time.Duration(x * float64(time.Second))
	case string:
		p, err := time.ParseDuration(x)
		if err != nil {
			return err
		}
		d.Duration = p
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	return nil
}

// GalleryConfig selects the gallery's blob store.
type GalleryConfig struct {
	Backend string `json:"backend"` // memory, dir or sqlite
	Path    string `json:"path"`
	Quota   int    `json:"quota,omitempty"` // memory backend only
}

// Config is everything a booth needs.
type Config struct {
	Title         string         `json:"title"`
	Template      string         `json:"template"`
	Mode          string         `json:"mode"`
	Facing        capture.Facing `json:"facing"`
	Countdown     int            `json:"countdown"`
	BurstInterval Duration       `json:"burst_interval"`
	Mirror        bool           `json:"mirror"`
	AutoSave      bool           `json:"auto_save"`

	Border       int      `json:"border"`
	Spacing      int      `json:"spacing"`
	Quality      int      `json:"quality"`
	MinLoadRatio float64  `json:"min_load_ratio"`
	LoadTimeout  Duration `json:"load_timeout"`

	Multiplier float64 `json:"multiplier"`
	MaxWidth   int     `json:"max_width"`
	MaxHeight  int     `json:"max_height"`
	Padding    int     `json:"padding"`
	Background string  `json:"background,omitempty"`
	Frame      string  `json:"frame,omitempty"`

	Gallery     GalleryConfig `json:"gallery"`
	DownloadDir string        `json:"download_dir"`
	Language    string        `json:"language"`
	AssetDir    string        `json:"asset_dir,omitempty"`
}

// DefaultConfig returns the stock booth setup.
func DefaultConfig() *Config {
	return &Config{
		Title:         "fotoautomat",
		Template:      template.Default,
		Mode:          ModeBurst,
		Facing:        capture.User,
		Countdown:     5,
		BurstInterval: Duration{5 * time.Second},
		Mirror:        true,
		AutoSave:      true,
		Border:        layout.DefaultBorder,
		Spacing:       layout.DefaultSpacing,
		Quality:       layout.DefaultQuality,
		MinLoadRatio:  layout.DefaultMinLoadRatio,
		LoadTimeout:   Duration{imgload.DefaultTimeout},
		Multiplier:    2,
		MaxWidth:      384,
		MaxHeight:     600,
		Padding:       40,
		Gallery:       GalleryConfig{Backend: "memory"},
		DownloadDir:   ".",
		Language:      "en",
	}
}

// DefaultPath is ~/.config/fotoautomat/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".config", "fotoautomat", "config.json"), nil
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults; an empty path means DefaultPath.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

// Save writes c to path as indented JSON.
func (c *Config) Save(path string) error {
	bs, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return os.WriteFile(path, bs, 0o644)
}

// Validate rejects settings no booth could run with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := template.Lookup(c.Template); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(modes, c.Mode) {
		errs = append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}
	if c.Facing != capture.User && c.Facing != capture.Environment {
		errs = append(errs, fmt.Errorf("unknown facing %q", c.Facing))
	}
	if c.MinLoadRatio <= 0 || c.MinLoadRatio > 1 {
		errs = append(errs, fmt.Errorf("min_load_ratio %v outside (0,1]", c.MinLoadRatio))
	}
	if c.Countdown < 0 {
		errs = append(errs, fmt.Errorf("negative countdown"))
	}
	if c.BurstInterval.Duration < 0 || c.LoadTimeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("invalid durations"))
	}
	if c.Border < 0 || c.Spacing < 0 || c.Padding < 0 {
		errs = append(errs, fmt.Errorf("negative border, spacing or padding"))
	}
	if c.MaxWidth <= 0 || c.MaxHeight <= 0 || c.Multiplier <= 0 {
		errs = append(errs, fmt.Errorf("non-positive size"))
	}
	if c.Quality < 1 || c.Quality > 100 {
		errs = append(errs, fmt.Errorf("quality %d outside 1-100", c.Quality))
	}
	switch c.Gallery.Backend {
	case "memory":
	case "dir", "sqlite":
		if c.Gallery.Path == "" {
			errs = append(errs, fmt.Errorf("gallery backend %s needs a path", c.Gallery.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown gallery backend %q", c.Gallery.Backend))
	}
	return errors.Join(errs...)
}

// burstTicks converts the burst interval to whole countdown ticks.
func (c *Config) burstTicks() int {
	return int(c.BurstInterval.Round(time.Second) / time.Second)
}
