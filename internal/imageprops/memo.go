package imageprops

import (
	"reflect"
	"sync"

	"github.com/dunamismax/pixelprops/internal/domain"
)

// Memo caches the last Resolve result and returns it while the client, the
// source pointer, both transforms and the scalar options are unchanged.
//
// Only comparable transform values such as DefaultTransform, Preset or a
// pointer can hit the cache. Function transforms and non-comparable values
// never match, since closures over different state share one code pointer.
type Memo struct {
	mu    sync.Mutex
	key   memoKey
	props *Props
	err   error
	valid bool
}

type memoKey struct {
	client        any
	source        *domain.ImageSource
	main          any
	blur          any
	blurUpWidth   int
	blurUpQuality int
	blurUpAmount  int
	disableBlurUp bool
	shape         Shape
}

func (m *Memo) Resolve(client Client, src *domain.ImageSource, opts Options) (*Props, error) {
	key := memoKey{
		client:        identity(client),
		source:        src,
		main:          identity(opts.Main),
		blur:          identity(opts.Blur),
		blurUpWidth:   opts.BlurUpWidth,
		blurUpQuality: opts.BlurUpQuality,
		blurUpAmount:  opts.BlurUpAmount,
		disableBlurUp: opts.DisableBlurUp,
		shape:         opts.Shape,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.key == key {
		return m.props, m.err
	}

	props, err := Resolve(client, src, opts)
	m.key = key
	m.props = props
	m.err = err
	m.valid = true
	return props, err
}

// Reset drops the cached result.
func (m *Memo) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valid = false
	m.props = nil
	m.err = nil
}

func identity(v any) any {
	if v == nil {
		return nil
	}

	t := reflect.TypeOf(v)
	if t.Kind() != reflect.Func && t.Comparable() && !containsInterface(t) {
		return v
	}
	// A fresh pointer never equals a previous key.
	return new(byte)
}

func containsInterface(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if containsInterface(t.Field(i).Type) {
				return true
			}
		}
	case reflect.Array:
		return containsInterface(t.Elem())
	}
	return false
}
