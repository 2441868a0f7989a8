package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/occlusion/pkg/dome"
	"github.com/taigrr/occlusion/pkg/visibility"
)

func TestDecode(t *testing.T) {
	want := Config{
		Samples:    64,
		Resolution: 256,
		Dome:       dome.Sphere,
		Radius:     12.5,
		Epsilon:    float(0.002),
		Seed:       9,
		PreviewDir: "out",
	}

	tests := []struct {
		ext  string
		body string
	}{
		{".toml", `
samples = 64
resolution = 256
dome = "sphere"
radius = 12.5
epsilon = 0.002
seed = 9
preview_dir = "out"
`},
		{".yaml", `
samples: 64
resolution: 256
dome: sphere
radius: 12.5
epsilon: 0.002
seed: 9
preview_dir: out
`},
		{".JSON", `{"samples": 64, "resolution": 256, "dome": "sphere", "radius": 12.5,
"epsilon": 0.002, "seed": 9, "preview_dir": "out"}`},
	}
	for _, tc := range tests {
		t.Run(tc.ext, func(t *testing.T) {
			got, err := Decode(strings.NewReader(tc.body), tc.ext)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		body string
	}{
		{"unknown toml key", ".toml", "samplez = 3\n"},
		{"unknown yaml key", ".yml", "samplez: 3\n"},
		{"unknown json key", ".json", `{"samplez": 3}`},
		{"bad dome", ".toml", `dome = "cube"`},
		{"bad syntax", ".json", `{"samples": }`},
		{"wrong type", ".yaml", "samples: many\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.body), tc.ext)
			assert.Error(t, err)
		})
	}

	_, err := Decode(strings.NewReader(""), ".ini")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDecodeEmpty(t *testing.T) {
	for _, ext := range []string{".toml", ".yaml", ".json"} {
		cfg, err := Decode(strings.NewReader(""), ext)
		require.NoError(t, err, ext)
		assert.Equal(t, Config{}, cfg)
	}
}

func TestDecodeInfiniteFOV(t *testing.T) {
	cfg, err := Decode(strings.NewReader("fov = inf\n"), ".toml")
	require.NoError(t, err)
	assert.True(t, math.IsInf(cfg.Params().FOV, 1))
}

func TestExactEpsilon(t *testing.T) {
	cfg, err := Decode(strings.NewReader("epsilon = 0\n"), ".toml")
	require.NoError(t, err)
	require.NotNil(t, cfg.Epsilon)

	p := Resolve(cfg, Flags{}).Params()
	require.NotNil(t, p.Epsilon)
	assert.Zero(t, *p.Epsilon)

	eps := 0.0
	p = Resolve(Config{Epsilon: float(0.5)}, Flags{Epsilon: &eps}).Params()
	assert.Zero(t, *p.Epsilon)

	p = Resolve(Config{}, Flags{}).Params()
	assert.Equal(t, visibility.DefaultEpsilon, *p.Epsilon)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.toml")
	require.NoError(t, os.WriteFile(path, []byte("samples = 5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Samples)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorContains(t, err, "config: read")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("samples: [\n"), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "config: parse")
}

func TestResolve(t *testing.T) {
	samples := 3
	res := 32
	sphere := dome.Sphere
	dir := "flags"

	tests := []struct {
		name  string
		file  Config
		flags Flags
		want  Config
	}{
		{
			name: "defaults",
			want: Default(),
		},
		{
			name: "file over defaults",
			file: Config{Samples: 40, Width: 100, Near: 0.5, Far: 20},
			want: Config{
				Samples: 40, Resolution: visibility.DefaultResolution, Width: 100,
				FOV: visibility.DefaultFOV, Near: 0.5, Far: 20, Epsilon: float(visibility.DefaultEpsilon),
			},
		},
		{
			name:  "flags over file",
			file:  Config{Samples: 40, Width: 100, Height: 50, PreviewDir: "file"},
			flags: Flags{Samples: &samples, Resolution: &res, Dome: &sphere, PreviewDir: &dir},
			want: Config{
				Samples: 3, Resolution: 32, Dome: dome.Sphere,
				FOV: visibility.DefaultFOV, Epsilon: float(visibility.DefaultEpsilon), PreviewDir: "flags",
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Resolve(tc.file, tc.flags))
		})
	}
}

func TestParams(t *testing.T) {
	cfg := Resolve(Config{Width: 80, Dome: dome.Sphere, Radius: 3, FOV: 200}, Flags{})
	p := cfg.Params()

	assert.Equal(t, visibility.DefaultSamples, p.Samples)
	assert.Equal(t, 80, p.Width)
	assert.Equal(t, visibility.DefaultResolution, p.Height)
	assert.Equal(t, dome.Sphere, p.Dome)
	assert.Equal(t, 3.0, p.Radius)
	assert.True(t, math.IsInf(p.FOV, 1))
	require.NoError(t, p.Validate())

	assert.NoError(t, Resolve(Config{}, Flags{}).Params().Validate())
}

func float(v float64) *float64 {
	return &v
}
