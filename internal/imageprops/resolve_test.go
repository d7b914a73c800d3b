package imageprops

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/dunamismax/pixelprops/internal/domain"
	"github.com/dunamismax/pixelprops/internal/urlbuilder"
	"github.com/stretchr/testify/require"
)

const (
	hdURL    = "https://cdn.sanity.io/images/projectid/dataset/uuid-1920x1080.png"
	smallURL = "https://cdn.sanity.io/images/projectid/dataset/uuid-1366x768.png"
)

func testClient() *urlbuilder.Client {
	return urlbuilder.NewClient(urlbuilder.Config{ProjectID: "projectid", Dataset: "dataset"})
}

func imageSource(width, height int) *domain.ImageSource {
	return &domain.ImageSource{
		Asset: &domain.AssetRef{Ref: fmt.Sprintf("image-uuid-%dx%d-png", width, height)},
	}
}

func fixedTransform(apply func(b urlbuilder.Builder) urlbuilder.Builder) TransformFunc {
	return func(b urlbuilder.Builder, _ TransformOptions) urlbuilder.Builder {
		return apply(b)
	}
}

func TestResolveDefaults(t *testing.T) {
	props, err := Resolve(testClient(), imageSource(1920, 1080), Options{})
	require.NoError(t, err)
	require.NotNil(t, props)

	require.Equal(t, 1920.0, props.Width)
	require.Equal(t, 1080.0, props.Height)
	require.Equal(t, hdURL+"?q=75&fit=clip&auto=format", props.Src)
	require.Equal(t, hdURL+"?w=64&blur=50&q=30&fit=clip&auto=format", props.BlurDataURL)
	require.Equal(t, PlaceholderBlur, props.Placeholder)
	require.Empty(t, props.Layout)
}

func TestResolveCustomTransform(t *testing.T) {
	main := fixedTransform(func(b urlbuilder.Builder) urlbuilder.Builder {
		return b.Width(813).Blur(20).FlipHorizontal().Fit(urlbuilder.FitCrop).Quality(20)
	})

	props, err := Resolve(testClient(), imageSource(1920, 1080), Options{Main: main})
	require.NoError(t, err)

	require.Equal(t, 813.0, props.Width)
	require.Equal(t, 457.0, props.Height)
	require.Equal(t, hdURL+"?flip=h&w=813&blur=20&q=20&fit=crop&auto=format", props.Src)
}

func TestResolveCroppedImage(t *testing.T) {
	src := imageSource(1366, 768)
	src.Crop = &domain.Crop{Left: 0.1, Right: 0.1, Top: 0.1, Bottom: 0.1}
	hotspot := domain.DefaultHotspot()
	src.Hotspot = &hotspot

	props, err := Resolve(testClient(), src, Options{})
	require.NoError(t, err)

	croppedWidth := 1366 * 0.8
	croppedHeight := 768 * 0.8
	require.InDelta(t, croppedWidth, props.Width, 1e-9)
	require.Equal(t, math.Round(croppedWidth/(croppedWidth/croppedHeight)), props.Height)
	require.Equal(t, smallURL+"?rect=137,77,1092,614&q=75&fit=clip&auto=format", props.Src)
}

func TestResolveWidthPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		apply func(b urlbuilder.Builder) urlbuilder.Builder
		want  float64
	}{
		{
			name:  "explicit width beats max width and working width",
			apply: func(b urlbuilder.Builder) urlbuilder.Builder { return b.Width(5000).MaxWidth(100) },
			want:  5000,
		},
		{
			name:  "max width clamps working width",
			apply: func(b urlbuilder.Builder) urlbuilder.Builder { return b.MaxWidth(960) },
			want:  960,
		},
		{
			name:  "max width above working width",
			apply: func(b urlbuilder.Builder) urlbuilder.Builder { return b.MaxWidth(4000) },
			want:  1920,
		},
		{
			name:  "working width",
			apply: func(b urlbuilder.Builder) urlbuilder.Builder { return b },
			want:  1920,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props, err := Resolve(testClient(), imageSource(1920, 1080), Options{Main: fixedTransform(tt.apply)})
			require.NoError(t, err)
			require.Equal(t, tt.want, props.Width)
		})
	}
}

func TestResolveHeightPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		apply func(b urlbuilder.Builder) urlbuilder.Builder
		want  float64
	}{
		{
			name:  "explicit height",
			apply: func(b urlbuilder.Builder) urlbuilder.Builder { return b.Height(123).MaxHeight(50) },
			want:  123,
		},
		{
			name:  "max height clamps working height",
			apply: func(b urlbuilder.Builder) urlbuilder.Builder { return b.MaxHeight(300) },
			want:  300,
		},
		{
			name:  "max height above working height",
			apply: func(b urlbuilder.Builder) urlbuilder.Builder { return b.MaxHeight(3000) },
			want:  1080,
		},
		{
			name:  "derived from resolved width",
			apply: func(b urlbuilder.Builder) urlbuilder.Builder { return b.MaxWidth(960) },
			want:  540,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props, err := Resolve(testClient(), imageSource(1920, 1080), Options{Main: fixedTransform(tt.apply)})
			require.NoError(t, err)
			require.Equal(t, tt.want, props.Height)
		})
	}
}

func TestResolveNoImage(t *testing.T) {
	called := false
	spy := TransformFunc(func(b urlbuilder.Builder, _ TransformOptions) urlbuilder.Builder {
		called = true
		return b
	})

	props, err := Resolve(testClient(), nil, Options{Main: spy, Blur: spy})
	require.NoError(t, err)
	require.Nil(t, props)

	props, err = Resolve(testClient(), &domain.ImageSource{Asset: &domain.AssetRef{}}, Options{Main: spy, Blur: spy})
	require.NoError(t, err)
	require.Nil(t, props)
	require.False(t, called)
}

func TestResolveMalformedIdentifier(t *testing.T) {
	_, err := Resolve(testClient(), domain.SourceFromID("image-uuid-png"), Options{})
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrMalformedIdentifier))
}

func TestResolveLoader(t *testing.T) {
	props, err := Resolve(testClient(), imageSource(1366, 768), Options{})
	require.NoError(t, err)

	first := props.Loader(LoaderParams{Width: 300})
	require.Equal(t, smallURL+"?w=300&q=75&fit=clip&auto=format", first)
	require.Equal(t, first, props.Loader(LoaderParams{Width: 300}))
	require.Equal(t, smallURL+"?w=640&q=40&fit=clip&auto=format", props.Loader(LoaderParams{Width: 640, Quality: 40}))

	// Loader calls do not disturb the eagerly computed values.
	require.Equal(t, smallURL+"?q=75&fit=clip&auto=format", props.Src)
	require.Equal(t, 1366.0, props.Width)
}

func TestResolveLoaderConcurrent(t *testing.T) {
	props, err := Resolve(testClient(), imageSource(1366, 768), Options{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = props.Loader(LoaderParams{Width: 300})
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		require.Equal(t, smallURL+"?w=300&q=75&fit=clip&auto=format", got)
	}
}

func TestResolveBlurUpOptions(t *testing.T) {
	props, err := Resolve(testClient(), imageSource(1920, 1080), Options{
		BlurUpWidth:   20,
		BlurUpQuality: 10,
		BlurUpAmount:  80,
	})
	require.NoError(t, err)
	require.Equal(t, hdURL+"?w=20&blur=80&q=10&fit=clip&auto=format", props.BlurDataURL)

	var seen TransformOptions
	custom := TransformFunc(func(b urlbuilder.Builder, opts TransformOptions) urlbuilder.Builder {
		seen = opts
		return b.Width(8)
	})
	props, err = Resolve(testClient(), imageSource(1920, 1080), Options{Blur: custom, BlurUpAmount: 5})
	require.NoError(t, err)
	require.Equal(t, hdURL+"?w=8&auto=format", props.BlurDataURL)
	require.Equal(t, 5, seen.BlurAmount)
	require.Zero(t, seen.Width)
	require.Equal(t, 1920.0, seen.Original.Width)
}

func TestResolveBlurUpDisabled(t *testing.T) {
	props, err := Resolve(testClient(), imageSource(1920, 1080), Options{DisableBlurUp: true})
	require.NoError(t, err)
	require.Equal(t, PlaceholderEmpty, props.Placeholder)
	require.Empty(t, props.BlurDataURL)
}

func TestResolveShapes(t *testing.T) {
	plain, err := Resolve(testClient(), imageSource(1920, 1080), Options{Shape: ShapePlain})
	require.NoError(t, err)
	require.Empty(t, plain.Placeholder)
	require.Empty(t, plain.BlurDataURL)
	require.Empty(t, plain.Layout)

	responsive, err := Resolve(testClient(), imageSource(1920, 1080), Options{Shape: ShapeResponsive})
	require.NoError(t, err)
	require.Equal(t, "responsive", responsive.Layout)
	require.Empty(t, responsive.Placeholder)
	require.Equal(t, plain.Width, responsive.Width)
	require.Equal(t, plain.Src, responsive.Src)
}

func TestResolveWithoutURL(t *testing.T) {
	client := urlbuilder.NewClient(urlbuilder.Config{Dataset: "dataset"})
	props, err := Resolve(client, imageSource(1920, 1080), Options{})
	require.NoError(t, err)
	require.Empty(t, props.Src)
	require.Empty(t, props.BlurDataURL)
	require.Empty(t, props.Loader(LoaderParams{Width: 100}))
	require.Equal(t, 1920.0, props.Width)
}

func TestResolveSizeTableTransform(t *testing.T) {
	main := SizeTableTransform{Sizes: []int{640, 1080, 1920, 16, 64}}
	props, err := Resolve(testClient(), imageSource(2732, 1536), Options{Main: main, Shape: ShapeResponsive})
	require.NoError(t, err)
	require.Equal(t, 1920.0, props.Width)
	require.Equal(t, 1079.0, props.Height)

	small, err := Resolve(testClient(), imageSource(1366, 768), Options{Main: SizeTableTransform{}})
	require.NoError(t, err)
	require.Equal(t, 1366.0, small.Width)
	require.Equal(t, DefaultFallbackWidth, SizeTableTransform{}.Bound())
}

func TestResolvePresetImageAdjustments(t *testing.T) {
	poster := Preset{
		Width:        400,
		Height:       300,
		MinWidth:     200,
		MinHeight:    100,
		Quality:      60,
		Fit:          urlbuilder.FitCrop,
		CropMode:     "entropy",
		Saturation:   -50,
		Orientation:  90,
		Pad:          4,
		DPR:          2,
		BG:           "fff",
		Format:       "webp",
		Download:     "poster.png",
		Invert:       true,
		FlipVertical: true,
	}
	props, err := Resolve(testClient(), imageSource(1920, 1080), Options{Main: poster, Shape: ShapePlain})
	require.NoError(t, err)

	require.Equal(t, 400.0, props.Width)
	require.Equal(t, 300.0, props.Height)
	require.Equal(t, hdURL+"?bg=fff&flip=v&w=400&h=300&fm=webp&dl=poster.png&invert=true&or=90"+
		"&min-h=100&min-w=200&q=60&fit=crop&crop=entropy&sat=-50&auto=format&dpr=2&pad=4", props.Src)
}

func TestResolvePreset(t *testing.T) {
	hero := Preset{Name: "hero", Width: 800, Height: 400, Fit: urlbuilder.FitCrop, Quality: 60}
	props, err := Resolve(testClient(), imageSource(1920, 1080), Options{Main: hero, DisableBlurUp: true})
	require.NoError(t, err)

	require.Equal(t, 800.0, props.Width)
	require.Equal(t, 400.0, props.Height)
	require.Equal(t, hdURL+"?rect=0,60,1920,960&w=800&h=400&q=60&fit=crop&auto=format", props.Src)
	require.Equal(t, hdURL+"?rect=0,60,1920,960&w=400&h=200&q=60&fit=crop&auto=format", props.Loader(LoaderParams{Width: 400}))
}
