package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/occlusion/pkg/models"
	"github.com/taigrr/occlusion/pkg/render"
	"github.com/taigrr/occlusion/pkg/visibility"
)

func TestLevelFromFlags(t *testing.T) {
	tests := []struct {
		name      string
		vv, v, q  bool
		wantLevel slog.Level
	}{
		{"default", false, false, false, slog.LevelWarn},
		{"verbose", false, true, false, slog.LevelInfo},
		{"debug wins", true, true, true, slog.LevelDebug},
		{"quiet", false, false, true, slog.LevelError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantLevel, levelFromFlags(tc.vv, tc.v, tc.q))
		})
	}
}

func TestReport(t *testing.T) {
	objects := []models.Object{{Name: "box"}, {}}
	res := &visibility.Result{Visible: [][]bool{{true, false, true}, {false}}}

	tests := []struct {
		name   string
		hidden bool
		list   bool
		want   string
	}{
		{"visible", false, false, "box: 2/3 visible\nobject 1: 0/1 visible\n"},
		{"hidden", true, false, "box: 1/3 hidden\nobject 1: 1/1 hidden\n"},
		{"listed", false, true, "box: 2/3 visible\n  0 2\nobject 1: 0/1 visible\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var sb strings.Builder
			require.NoError(t, report(&sb, objects, res, tc.hidden, tc.list))
			assert.Equal(t, tc.want, sb.String())
		})
	}
}

func TestPrintDepth(t *testing.T) {
	buf := render.NewDepthBuffer(4, 4)
	buf.Depth[0] = 0.5

	var sb strings.Builder
	printDepth(&sb, buf)
	assert.Contains(t, sb.String(), "▀")
	assert.Equal(t, 2, strings.Count(strings.TrimRight(sb.String(), "\n"), "\n")+1)
}

func TestProgressBar(t *testing.T) {
	bar := newProgressBar(30)
	for range 120 {
		bar.Update(1)
	}
	assert.InDelta(t, 1.0, bar.Position, 1e-3)

	bar.Update(-5)
	assert.GreaterOrEqual(t, bar.Position, 0.0)
}

func TestRunRejectsPreviewFormat(t *testing.T) {
	saved := *previewExt
	t.Cleanup(func() { *previewExt = saved })
	*previewExt = "gif"

	err := run("/nonexistent/scene.glb", slog.New(slog.DiscardHandler))
	require.ErrorIs(t, err, render.ErrImageFormat)
	assert.ErrorContains(t, err, "-preview-format")
}

func TestPreviewWriter(t *testing.T) {
	dir := t.TempDir()
	buf := render.NewDepthBuffer(8, 8)
	buf.Depth[9] = 0.25

	write := previewWriter(dir, ".PNG", slog.New(slog.DiscardHandler))
	write(visibility.SampleInfo{Index: 3, Depth: buf, Epsilon: visibility.DefaultEpsilon})

	info, err := os.Stat(filepath.Join(dir, "sample_0003.png"))
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
