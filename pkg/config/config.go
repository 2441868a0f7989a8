// Package config loads visibility run settings from TOML, YAML or JSON files
// and merges them with command line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/taigrr/occlusion/pkg/dome"
	"github.com/taigrr/occlusion/pkg/visibility"
)

// ErrUnknownFormat is returned for config files with an unrecognised
// extension.
var ErrUnknownFormat = errors.New("unknown config format")

// Config is the on-disk form of a run. Zero values mean "use the default"
// for every field; see Resolve.
type Config struct {
	Samples int `toml:"samples" yaml:"samples" json:"samples"`
	// Resolution is the square render size. Width and Height override it
	// per axis.
	Resolution int       `toml:"resolution" yaml:"resolution" json:"resolution"`
	Width      int       `toml:"width" yaml:"width" json:"width"`
	Height     int       `toml:"height" yaml:"height" json:"height"`
	Dome       dome.Kind `toml:"dome" yaml:"dome" json:"dome"`
	Radius     float64   `toml:"radius" yaml:"radius" json:"radius"`
	// FOV is in degrees. 180 or more, or inf in TOML, selects an
	// orthographic camera.
	FOV     float64 `toml:"fov" yaml:"fov" json:"fov"`
	Near    float64 `toml:"near" yaml:"near" json:"near"`
	Far     float64 `toml:"far" yaml:"far" json:"far"`
	// Epsilon is the depth tolerance. Unset means the default; 0 is exact.
	Epsilon *float64 `toml:"epsilon" yaml:"epsilon" json:"epsilon"`
	// Seed fixes the viewpoint sequence. Zero seeds from the clock.
	Seed       int64  `toml:"seed" yaml:"seed" json:"seed"`
	PreviewDir string `toml:"preview_dir" yaml:"preview_dir" json:"preview_dir"`
}

// Default returns the settings used when neither a file nor flags set
// anything.
func Default() Config {
	eps := visibility.DefaultEpsilon
	return Config{
		Samples:    visibility.DefaultSamples,
		Resolution: visibility.DefaultResolution,
		Dome:       dome.Hemisphere,
		FOV:        visibility.DefaultFOV,
		Epsilon:    &eps,
	}
}

// Load reads a config file, choosing the decoder by extension. Unknown
// keys are errors.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := Decode(f, filepath.Ext(path))
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads a config in the format named by ext (".toml", ".yaml",
// ".yml" or ".json"). An empty document is a zero Config.
func Decode(r io.Reader, ext string) (Config, error) {
	var cfg Config
	var err error
	switch strings.ToLower(ext) {
	case ".toml":
		err = toml.NewDecoder(r).DisallowUnknownFields().Decode(&cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		err = dec.Decode(&cfg)
	case ".json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	default:
		return Config{}, fmt.Errorf("%w %q", ErrUnknownFormat, ext)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, nil
}

// Flags holds command line overrides. A nil field was not given.
type Flags struct {
	Samples    *int
	Resolution *int
	Dome       *dome.Kind
	Radius     *float64
	FOV        *float64
	Epsilon    *float64
	Seed       *int64
	PreviewDir *string
}

// Resolve layers flags over file over defaults.
func Resolve(file Config, flags Flags) Config {
	cfg := Default()
	cfg.merge(file)

	if flags.Samples != nil {
		cfg.Samples = *flags.Samples
	}
	if flags.Resolution != nil {
		cfg.Resolution = *flags.Resolution
		cfg.Width, cfg.Height = 0, 0
	}
	if flags.Dome != nil {
		cfg.Dome = *flags.Dome
	}
	if flags.Radius != nil {
		cfg.Radius = *flags.Radius
	}
	if flags.FOV != nil {
		cfg.FOV = *flags.FOV
	}
	if flags.Epsilon != nil {
		cfg.Epsilon = flags.Epsilon
	}
	if flags.Seed != nil {
		cfg.Seed = *flags.Seed
	}
	if flags.PreviewDir != nil {
		cfg.PreviewDir = *flags.PreviewDir
	}
	return cfg
}

// merge copies the non-zero fields of o into c.
func (c *Config) merge(o Config) {
	if o.Samples != 0 {
		c.Samples = o.Samples
	}
	if o.Resolution != 0 {
		c.Resolution = o.Resolution
	}
	if o.Width != 0 {
		c.Width = o.Width
	}
	if o.Height != 0 {
		c.Height = o.Height
	}
	if o.Dome != dome.Hemisphere {
		c.Dome = o.Dome
	}
	if o.Radius != 0 {
		c.Radius = o.Radius
	}
	if o.FOV != 0 {
		c.FOV = o.FOV
	}
	if o.Near != 0 {
		c.Near = o.Near
	}
	if o.Far != 0 {
		c.Far = o.Far
	}
	if o.Epsilon != nil {
		c.Epsilon = o.Epsilon
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.PreviewDir != "" {
		c.PreviewDir = o.PreviewDir
	}
}

// Size returns the render width and height.
func (c Config) Size() (int, int) {
	w, h := c.Resolution, c.Resolution
	if c.Width != 0 {
		w = c.Width
	}
	if c.Height != 0 {
		h = c.Height
	}
	return w, h
}

// Params converts the config into run parameters. FOV values of 180 or
// more select an orthographic camera.
func (c Config) Params() visibility.Params {
	w, h := c.Size()
	fov := c.FOV
	if fov >= 180 {
		fov = math.Inf(1)
	}
	return visibility.Params{
		Samples: c.Samples,
		Width:   w,
		Height:  h,
		Dome:    c.Dome,
		Radius:  c.Radius,
		FOV:     fov,
		Near:    c.Near,
		Far:     c.Far,
		Epsilon: c.Epsilon,
	}
}
