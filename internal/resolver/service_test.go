package resolver

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dunamismax/pixelprops/internal/config"
	"github.com/dunamismax/pixelprops/internal/domain"
	"github.com/dunamismax/pixelprops/internal/imageprops"
	"github.com/stretchr/testify/require"
)

const hdURL = "https://cdn.sanity.io/images/projectid/dataset/uuid-1920x1080.png"

var errUnknown = errors.New("unknown preset")

type presetMap map[string]imageprops.Preset

func (m presetMap) Get(name string) (imageprops.Preset, error) {
	p, ok := m[name]
	if !ok {
		return imageprops.Preset{}, fmt.Errorf("%w: %s", errUnknown, name)
	}
	return p, nil
}

func testImages() config.ImagesConfig {
	return config.ImagesConfig{
		ProjectID:      "projectid",
		Dataset:        "dataset",
		DefaultQuality: 75,
		DefaultFit:     "clip",
		BlurUpEnabled:  true,
		BlurUpWidth:    64,
		BlurUpQuality:  30,
		BlurUpAmount:   50,
		SizePolicy:     "builder",
		DeviceSizes:    []int{640, 1080},
		ImageSizes:     []int{16, 32},
	}
}

func hd() *domain.ImageSource {
	return domain.SourceFromID("image-uuid-1920x1080-png")
}

func TestResolveDefaults(t *testing.T) {
	svc := New(testImages(), nil)

	props, err := svc.Resolve(Request{Image: hd()})
	require.NoError(t, err)
	require.Equal(t, hdURL+"?q=75&fit=clip&auto=format", props.Src)
	require.Equal(t, hdURL+"?w=64&blur=50&q=30&fit=clip&auto=format", props.BlurDataURL)
	require.Equal(t, imageprops.PlaceholderBlur, props.Placeholder)
}

func TestResolveConfiguredDefaults(t *testing.T) {
	images := testImages()
	images.DefaultQuality = 90
	images.DefaultFit = "max"
	images.BlurUpEnabled = false

	props, err := New(images, nil).Resolve(Request{Image: hd()})
	require.NoError(t, err)
	require.Equal(t, hdURL+"?q=90&fit=max&auto=format", props.Src)
	require.Equal(t, imageprops.PlaceholderEmpty, props.Placeholder)
}

func TestResolveSizeTablePolicy(t *testing.T) {
	images := testImages()
	images.SizePolicy = SizePolicySizeTable
	images.DeviceSizes = []int{640, 960}

	props, err := New(images, nil).Resolve(Request{Image: hd(), Shape: imageprops.ShapePlain})
	require.NoError(t, err)
	require.Equal(t, 960.0, props.Width)
	require.Equal(t, 540.0, props.Height)
	require.Equal(t, hdURL+"?w=960&fit=clip&auto=format", props.Src)
}

func TestResolvePresetAndInlineTransform(t *testing.T) {
	presets := presetMap{"thumb": {Name: "thumb", Width: 320, Quality: 60}}
	svc := New(testImages(), presets)

	props, err := svc.Resolve(Request{Image: hd(), Preset: "thumb", Shape: imageprops.ShapePlain})
	require.NoError(t, err)
	require.Equal(t, 320.0, props.Width)
	require.Equal(t, hdURL+"?w=320&q=60&fit=clip&auto=format", props.Src)

	_, err = svc.Resolve(Request{Image: hd(), Preset: "banner"})
	require.True(t, errors.Is(err, errUnknown))

	inline, err := svc.Resolve(Request{Image: hd(), Transform: &imageprops.Preset{MaxWidth: 800}, Shape: imageprops.ShapePlain})
	require.NoError(t, err)
	require.Equal(t, 800.0, inline.Width)
	require.Equal(t, 450.0, inline.Height)

	_, err = svc.Resolve(Request{Image: hd(), Transform: &imageprops.Preset{Fit: "stretch"}})
	require.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestResolvePresetWithoutRegistry(t *testing.T) {
	_, err := New(testImages(), nil).Resolve(Request{Image: hd(), Preset: "thumb"})
	require.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestResolveBlurUpOverrides(t *testing.T) {
	svc := New(testImages(), nil)
	disabled := false

	props, err := svc.Resolve(Request{Image: hd(), BlurUp: &BlurUp{Enabled: &disabled}})
	require.NoError(t, err)
	require.Equal(t, imageprops.PlaceholderEmpty, props.Placeholder)

	props, err = svc.Resolve(Request{Image: hd(), BlurUp: &BlurUp{Width: 10, Quality: 5, Amount: 100}})
	require.NoError(t, err)
	require.Equal(t, hdURL+"?w=10&blur=100&q=5&fit=clip&auto=format", props.BlurDataURL)
}

func TestResolveRejectsUnknownShape(t *testing.T) {
	_, err := New(testImages(), nil).Resolve(Request{Image: hd(), Shape: "square"})
	require.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestOptionsEnforcesRequestBounds(t *testing.T) {
	svc := New(testImages(), presetMap{"thumb": {Name: "thumb", Width: 320}})

	tests := []struct {
		name string
		req  Request
	}{
		{name: "blur width too large", req: Request{Image: hd(), BlurUp: &BlurUp{Width: 10000}}},
		{name: "blur quality too high", req: Request{Image: hd(), BlurUp: &BlurUp{Quality: 101}}},
		{name: "negative blur amount", req: Request{Image: hd(), BlurUp: &BlurUp{Amount: -1}}},
		{name: "transform quality too high", req: Request{Image: hd(), Transform: &imageprops.Preset{Quality: 150}}},
		{name: "transform orientation", req: Request{Image: hd(), Transform: &imageprops.Preset{Orientation: 45}}},
		{name: "preset and transform", req: Request{Image: hd(), Preset: "thumb", Transform: &imageprops.Preset{Width: 10}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Options(tt.req)
			require.True(t, errors.Is(err, ErrInvalidRequest), "got %v", err)
		})
	}
}

func TestLoaderURL(t *testing.T) {
	svc := New(testImages(), nil)

	url, err := svc.LoaderURL(Request{Image: hd()}, 640, 0)
	require.NoError(t, err)
	require.Equal(t, hdURL+"?w=640&q=75&fit=clip&auto=format", url)

	_, err = svc.LoaderURL(Request{}, 640, 0)
	require.True(t, errors.Is(err, ErrNoImage))

	_, err = svc.LoaderURL(Request{Image: domain.SourceFromID("image-uuid-png")}, 640, 0)
	require.True(t, errors.Is(err, domain.ErrMalformedIdentifier))
}

func TestClientUsesConfiguredProject(t *testing.T) {
	svc := New(testImages(), nil)
	require.Equal(t, "projectid", svc.Client().ProjectID())
	require.Equal(t, "dataset", svc.Client().Dataset())
}
