package presets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/dunamismax/pixelprops/internal/imageprops"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var ErrUnknownPreset = errors.New("unknown preset")

// Parse decodes a YAML document mapping preset names to transforms:
//
//	hero:
//	  width: 1600
//	  height: 900
//	  fit: crop
//	thumb:
//	  width: 320
//	  quality: 60
func Parse(data []byte) (map[string]imageprops.Preset, error) {
	raw := map[string]imageprops.Preset{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}

	out := make(map[string]imageprops.Preset, len(raw))
	for name, p := range raw {
		if name == "" {
			return nil, errors.New("preset name must not be empty")
		}
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		p.Name = name
		out[name] = p
	}
	return out, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Registry holds the named presets of one YAML file. Watch keeps it in sync
// with the file; a broken edit is logged and the previous presets stay live.
type Registry struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	presets map[string]imageprops.Preset
}

// NewRegistry loads path. An empty path yields an empty registry.
func NewRegistry(path string, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		path:    path,
		logger:  logger,
		presets: map[string]imageprops.Preset{},
	}
	if path == "" {
		return r, nil
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) Reload() error {
	if r.path == "" {
		return nil
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read presets file: %w", err)
	}
	presets, err := Parse(data)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.presets = presets
	r.mu.Unlock()
	r.logger.Info("presets loaded", zap.String("path", r.path), zap.Int("count", len(presets)))
	return nil
}

func (r *Registry) Get(name string) (imageprops.Preset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.presets[name]
	if !ok {
		return imageprops.Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Watch reloads the registry whenever the presets file is written or
// replaced. It blocks until ctx is done. The parent directory is watched
// because editors usually save by renaming a temp file over the original.
func (r *Registry) Watch(ctx context.Context) error {
	if r.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create presets watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(r.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch presets dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := r.Reload(); err != nil {
				r.logger.Warn("presets reload failed, keeping previous presets", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("presets watcher error", zap.Error(err))
		}
	}
}
