package imageprops

import (
	"math"
	"slices"

	"github.com/dunamismax/pixelprops/internal/domain"
	"github.com/dunamismax/pixelprops/internal/urlbuilder"
)

const (
	DefaultQuality = 75

	DefaultBlurUpWidth   = 64
	DefaultBlurUpQuality = 30
	DefaultBlurUpAmount  = 50

	DefaultFallbackWidth = 1920
)

// TransformOptions is what a transform knows about the request. Zero Width,
// Quality or BlurAmount means the transform decides.
type TransformOptions struct {
	Width      int
	Original   domain.Dimensions
	Cropped    domain.Dimensions
	Quality    int
	BlurAmount int
}

// ImageTransform maps a builder onto a builder with more parameters set.
type ImageTransform interface {
	Apply(b urlbuilder.Builder, opts TransformOptions) urlbuilder.Builder
}

type TransformFunc func(b urlbuilder.Builder, opts TransformOptions) urlbuilder.Builder

func (f TransformFunc) Apply(b urlbuilder.Builder, opts TransformOptions) urlbuilder.Builder {
	return f(b, opts)
}

// DefaultTransform sets quality and fit, and the width only when one was
// requested so the service default governs the base URL.
type DefaultTransform struct {
	Quality int
	Fit     urlbuilder.Fit
}

func (t DefaultTransform) Apply(b urlbuilder.Builder, opts TransformOptions) urlbuilder.Builder {
	quality := firstPositive(opts.Quality, t.Quality, DefaultQuality)
	fit := t.Fit
	if fit == "" {
		fit = urlbuilder.FitClip
	}

	b = b.Quality(quality).Fit(fit)
	if opts.Width > 0 {
		b = b.Width(opts.Width)
	}
	return b
}

// BlurTransform renders the low-resolution placeholder.
type BlurTransform struct {
	Width   int
	Quality int
	Amount  int
}

func (t BlurTransform) Apply(b urlbuilder.Builder, opts TransformOptions) urlbuilder.Builder {
	return b.
		Width(firstPositive(opts.Width, t.Width, DefaultBlurUpWidth)).
		Quality(firstPositive(opts.Quality, t.Quality, DefaultBlurUpQuality)).
		Blur(firstPositive(opts.BlurAmount, t.Amount, DefaultBlurUpAmount)).
		Fit(urlbuilder.FitClip)
}

// SizeTableTransform bounds the default width by the largest configured
// device or image size instead of leaving it to the image service.
type SizeTableTransform struct {
	Sizes []int
}

func (t SizeTableTransform) Apply(b urlbuilder.Builder, opts TransformOptions) urlbuilder.Builder {
	width := opts.Width
	if width <= 0 {
		width = int(math.Min(opts.Original.Width, float64(t.Bound())))
	}
	b = b.Width(width).Fit(urlbuilder.FitClip)
	if opts.Quality > 0 {
		b = b.Quality(opts.Quality)
	}
	return b
}

func (t SizeTableTransform) Bound() int {
	if len(t.Sizes) == 0 {
		return DefaultFallbackWidth
	}
	return slices.Max(t.Sizes)
}

// Preset is a declarative transform loaded from configuration. A requested
// width overrides the preset width and scales a fixed height with it.
type Preset struct {
	Name           string         `yaml:"-" json:"name"`
	Width          int            `yaml:"width" json:"width,omitempty" validate:"gte=0,lte=8192"`
	Height         int            `yaml:"height" json:"height,omitempty" validate:"gte=0,lte=8192"`
	MaxWidth       int            `yaml:"max_width" json:"max_width,omitempty" validate:"gte=0,lte=8192"`
	MaxHeight      int            `yaml:"max_height" json:"max_height,omitempty" validate:"gte=0,lte=8192"`
	MinWidth       int            `yaml:"min_width" json:"min_width,omitempty" validate:"gte=0,lte=8192"`
	MinHeight      int            `yaml:"min_height" json:"min_height,omitempty" validate:"gte=0,lte=8192"`
	Quality        int            `yaml:"quality" json:"quality,omitempty" validate:"gte=0,lte=100"`
	Fit            urlbuilder.Fit `yaml:"fit" json:"fit,omitempty" validate:"omitempty,oneof=clip crop fill fillmax max scale min"`
	CropMode       string         `yaml:"crop" json:"crop,omitempty" validate:"omitempty,oneof=top bottom left right center focalpoint entropy"`
	Blur           int            `yaml:"blur" json:"blur,omitempty" validate:"gte=0,lte=2000"`
	Sharpen        int            `yaml:"sharpen" json:"sharpen,omitempty" validate:"gte=0,lte=100"`
	Saturation     int            `yaml:"saturation" json:"saturation,omitempty" validate:"gte=-100,lte=100"`
	Orientation    int            `yaml:"orientation" json:"orientation,omitempty" validate:"oneof=0 90 180 270"`
	Pad            int            `yaml:"pad" json:"pad,omitempty" validate:"gte=0,lte=1000"`
	DPR            float64        `yaml:"dpr" json:"dpr,omitempty" validate:"gte=0,lte=3"`
	BG             string         `yaml:"bg" json:"bg,omitempty" validate:"omitempty,hexadecimal,max=8"`
	Format         string         `yaml:"format" json:"format,omitempty" validate:"omitempty,oneof=jpg pjpg png webp"`
	Download       string         `yaml:"download" json:"download,omitempty" validate:"omitempty,max=255"`
	Invert         bool           `yaml:"invert" json:"invert,omitempty"`
	FlipHorizontal bool           `yaml:"flip_horizontal" json:"flip_horizontal,omitempty"`
	FlipVertical   bool           `yaml:"flip_vertical" json:"flip_vertical,omitempty"`
}

func (p Preset) Apply(b urlbuilder.Builder, opts TransformOptions) urlbuilder.Builder {
	fit := p.Fit
	if fit == "" {
		fit = urlbuilder.FitClip
	}
	b = b.Quality(firstPositive(opts.Quality, p.Quality, DefaultQuality)).Fit(fit)

	width, height := p.Width, p.Height
	if opts.Width > 0 {
		if p.Width > 0 && p.Height > 0 {
			height = int(math.Round(float64(p.Height) * float64(opts.Width) / float64(p.Width)))
		}
		width = opts.Width
	}
	if width > 0 {
		b = b.Width(width)
	}
	if height > 0 {
		b = b.Height(height)
	}
	if p.MaxWidth > 0 {
		b = b.MaxWidth(p.MaxWidth)
	}
	if p.MaxHeight > 0 {
		b = b.MaxHeight(p.MaxHeight)
	}
	if p.MinWidth > 0 {
		b = b.MinWidth(p.MinWidth)
	}
	if p.MinHeight > 0 {
		b = b.MinHeight(p.MinHeight)
	}
	if p.CropMode != "" {
		b = b.Crop(p.CropMode)
	}
	if p.Blur > 0 {
		b = b.Blur(p.Blur)
	}
	if p.Sharpen > 0 {
		b = b.Sharpen(p.Sharpen)
	}
	if p.Saturation != 0 {
		b = b.Saturation(p.Saturation)
	}
	if p.Orientation != 0 {
		b = b.Orientation(p.Orientation)
	}
	if p.Pad > 0 {
		b = b.Pad(p.Pad)
	}
	if p.DPR > 0 {
		b = b.DPR(p.DPR)
	}
	if p.BG != "" {
		b = b.BG(p.BG)
	}
	if p.Format != "" {
		b = b.Format(p.Format)
	}
	if p.Download != "" {
		b = b.ForceDownload(p.Download)
	}
	if p.Invert {
		b = b.Invert(true)
	}
	if p.FlipHorizontal {
		b = b.FlipHorizontal()
	}
	if p.FlipVertical {
		b = b.FlipVertical()
	}
	return b
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
