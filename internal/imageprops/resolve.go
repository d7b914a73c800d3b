package imageprops

import (
	"math"

	"github.com/dunamismax/pixelprops/internal/domain"
	"github.com/dunamismax/pixelprops/internal/urlbuilder"
)

// Client opens a fresh builder for an image source.
type Client interface {
	Image(src domain.ImageSource) urlbuilder.Builder
}

type Placeholder string

const (
	PlaceholderBlur  Placeholder = "blur"
	PlaceholderEmpty Placeholder = "empty"
)

// Shape selects which optional fields of Props are populated.
type Shape string

const (
	ShapeBlur       Shape = "blur"
	ShapePlain      Shape = "plain"
	ShapeResponsive Shape = "responsive"
)

type LoaderParams struct {
	Width   int
	Quality int
}

// Loader returns the image URL for one rendering width. It holds no state
// and may be called concurrently.
type Loader func(p LoaderParams) string

type Props struct {
	Width       float64     `json:"width"`
	Height      float64     `json:"height"`
	Src         string      `json:"src"`
	Loader      Loader      `json:"-"`
	BlurDataURL string      `json:"blur_data_url,omitempty"`
	Placeholder Placeholder `json:"placeholder,omitempty"`
	Layout      string      `json:"layout,omitempty"`
}

type Options struct {
	Main          ImageTransform
	Blur          ImageTransform
	BlurUpWidth   int
	BlurUpQuality int
	BlurUpAmount  int
	DisableBlurUp bool
	Shape         Shape
}

func (o Options) main() ImageTransform {
	if o.Main == nil {
		return DefaultTransform{}
	}
	return o.Main
}

func (o Options) blur() ImageTransform {
	if o.Blur == nil {
		return BlurTransform{}
	}
	return o.Blur
}

// Resolve computes the render size, source URL, loader and placeholder for
// src. A nil source, or one without an identifier, resolves to (nil, nil):
// there is nothing to render yet. A present but undecodable identifier
// returns an error wrapping domain.ErrMalformedIdentifier.
func Resolve(client Client, src *domain.ImageSource, opts Options) (*Props, error) {
	if src == nil || src.Identifier() == "" {
		return nil, nil
	}

	original, err := ParseDimensions(*src)
	if err != nil {
		return nil, err
	}
	cropped := ApplyCrop(original, src.Crop)

	source := *src
	open := func() urlbuilder.Builder {
		return client.Image(source).Auto("format")
	}
	main := opts.main()

	loader := func(p LoaderParams) string {
		return main.Apply(open(), TransformOptions{
			Width:    p.Width,
			Original: original,
			Cropped:  cropped,
			Quality:  p.Quality,
		}).URL()
	}

	base := main.Apply(open(), TransformOptions{
		Original: original,
		Cropped:  cropped,
	})
	baseOpts := base.Options()

	width := finalWidth(baseOpts, cropped)
	props := &Props{
		Width:  width,
		Height: finalHeight(baseOpts, cropped, width),
		Src:    base.URL(),
		Loader: loader,
	}

	switch opts.Shape {
	case ShapePlain:
	case ShapeResponsive:
		props.Layout = "responsive"
	default:
		if opts.DisableBlurUp {
			props.Placeholder = PlaceholderEmpty
			break
		}
		props.BlurDataURL = opts.blur().Apply(open(), TransformOptions{
			Width:      opts.BlurUpWidth,
			Original:   original,
			Cropped:    cropped,
			Quality:    opts.BlurUpQuality,
			BlurAmount: opts.BlurUpAmount,
		}).URL()
		props.Placeholder = PlaceholderBlur
	}

	return props, nil
}

// Explicit builder width wins, then the max-width clamp, then the working
// width.
func finalWidth(o urlbuilder.Options, cropped domain.Dimensions) float64 {
	if o.Width > 0 {
		return float64(o.Width)
	}
	if o.MaxWidth > 0 {
		return math.Min(float64(o.MaxWidth), cropped.Width)
	}
	return cropped.Width
}

// Same precedence as finalWidth; the last tier derives from the already
// resolved width.
func finalHeight(o urlbuilder.Options, cropped domain.Dimensions, width float64) float64 {
	if o.Height > 0 {
		return float64(o.Height)
	}
	if o.MaxHeight > 0 {
		return math.Min(float64(o.MaxHeight), cropped.Height)
	}
	return math.Round(width / cropped.AspectRatio)
}
