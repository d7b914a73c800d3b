package presets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dunamismax/pixelprops/internal/urlbuilder"
	"github.com/stretchr/testify/require"
)

const heroYAML = `
hero:
  width: 1600
  height: 900
  fit: crop
  quality: 70
thumb:
  width: 320
  flip_horizontal: true
`

func TestParse(t *testing.T) {
	presets, err := Parse([]byte(heroYAML))
	require.NoError(t, err)
	require.Len(t, presets, 2)

	hero := presets["hero"]
	require.Equal(t, "hero", hero.Name)
	require.Equal(t, 1600, hero.Width)
	require.Equal(t, 900, hero.Height)
	require.Equal(t, urlbuilder.FitCrop, hero.Fit)
	require.Equal(t, 70, hero.Quality)
	require.True(t, presets["thumb"].FlipHorizontal)
}

func TestParseImageAdjustments(t *testing.T) {
	presets, err := Parse([]byte("poster:\n  min_width: 200\n  min_height: 100\n  bg: ff0000\n  saturation: -100\n  orientation: 90\n  pad: 4\n  crop: entropy\n"))
	require.NoError(t, err)

	poster := presets["poster"]
	require.Equal(t, 200, poster.MinWidth)
	require.Equal(t, 100, poster.MinHeight)
	require.Equal(t, "ff0000", poster.BG)
	require.Equal(t, -100, poster.Saturation)
	require.Equal(t, 90, poster.Orientation)
	require.Equal(t, 4, poster.Pad)
	require.Equal(t, "entropy", poster.CropMode)
}

func TestParseRejectsInvalidPresets(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad fit", yaml: "a:\n  fit: stretch\n"},
		{name: "quality too high", yaml: "a:\n  quality: 101\n"},
		{name: "negative width", yaml: "a:\n  width: -1\n"},
		{name: "bad orientation", yaml: "a:\n  orientation: 45\n"},
		{name: "saturation out of range", yaml: "a:\n  saturation: -150\n"},
		{name: "bg not hex", yaml: "a:\n  bg: red\n"},
		{name: "not a mapping", yaml: "- a\n- b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestRegistryGet(t *testing.T) {
	path := writePresets(t, heroYAML)

	reg, err := NewRegistry(path, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"hero", "thumb"}, reg.Names())

	hero, err := reg.Get("hero")
	require.NoError(t, err)
	require.Equal(t, 1600, hero.Width)

	_, err = reg.Get("banner")
	require.True(t, errors.Is(err, ErrUnknownPreset))
}

func TestRegistryEmptyPath(t *testing.T) {
	reg, err := NewRegistry("", nil)
	require.NoError(t, err)
	require.Empty(t, reg.Names())
	require.NoError(t, reg.Reload())
}

func TestRegistryMissingFile(t *testing.T) {
	_, err := NewRegistry(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}

func TestRegistryWatchReloads(t *testing.T) {
	path := writePresets(t, heroYAML)
	reg, err := NewRegistry(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reg.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	require.Eventually(t, func() bool {
		// Rewrite until the watcher is attached and has picked the change up.
		_ = os.WriteFile(path, []byte("banner:\n  width: 2400\n"), 0o644)
		_, err := reg.Get("banner")
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)

	_, err = reg.Get("hero")
	require.True(t, errors.Is(err, ErrUnknownPreset))
}

func TestRegistryWatchKeepsPresetsOnBrokenEdit(t *testing.T) {
	path := writePresets(t, heroYAML)
	reg, err := NewRegistry(path, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("hero:\n  fit: nope\n"), 0o644))
	require.Error(t, reg.Reload())

	hero, err := reg.Get("hero")
	require.NoError(t, err)
	require.Equal(t, 1600, hero.Width)
}

func writePresets(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
