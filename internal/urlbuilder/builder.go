package urlbuilder

import "github.com/dunamismax/pixelprops/internal/domain"

type Fit string

const (
	FitClip    Fit = "clip"
	FitCrop    Fit = "crop"
	FitFill    Fit = "fill"
	FitFillMax Fit = "fillmax"
	FitMax     Fit = "max"
	FitScale   Fit = "scale"
	FitMin     Fit = "min"
)

// Rect is a source-pixel region.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Options is the read-only snapshot of everything set on a Builder. Zero
// values mean "not set".
type Options struct {
	Width       int
	Height      int
	MaxWidth    int
	MaxHeight   int
	MinWidth    int
	MinHeight   int
	Quality     int
	Blur        int
	Sharpen     int
	Saturation  int
	Orientation int
	Pad         int
	DPR         float64
	Fit         Fit
	Crop        string
	Format      string
	Auto        string
	BG          string
	Download    string
	Invert      bool
	FlipH       bool
	FlipV       bool
	Rect        *Rect

	IgnoreImageParams bool
}

// Builder is an immutable image transformation request. Every setter returns
// a modified copy, so a Builder can be shared freely between goroutines.
type Builder struct {
	projectID string
	dataset   string
	baseURL   string
	source    domain.ImageSource
	opts      Options
}

func (b Builder) Options() Options {
	out := b.opts
	if b.opts.Rect != nil {
		rect := *b.opts.Rect
		out.Rect = &rect
	}
	return out
}

func (b Builder) with(apply func(o *Options)) Builder {
	next := b
	next.opts = b.Options()
	apply(&next.opts)
	return next
}

func (b Builder) Width(width int) Builder {
	return b.with(func(o *Options) { o.Width = width })
}

func (b Builder) Height(height int) Builder {
	return b.with(func(o *Options) { o.Height = height })
}

func (b Builder) Size(width, height int) Builder {
	return b.with(func(o *Options) {
		o.Width = width
		o.Height = height
	})
}

func (b Builder) MaxWidth(width int) Builder {
	return b.with(func(o *Options) { o.MaxWidth = width })
}

func (b Builder) MaxHeight(height int) Builder {
	return b.with(func(o *Options) { o.MaxHeight = height })
}

func (b Builder) MinWidth(width int) Builder {
	return b.with(func(o *Options) { o.MinWidth = width })
}

func (b Builder) MinHeight(height int) Builder {
	return b.with(func(o *Options) { o.MinHeight = height })
}

func (b Builder) Quality(quality int) Builder {
	return b.with(func(o *Options) { o.Quality = quality })
}

func (b Builder) Blur(amount int) Builder {
	return b.with(func(o *Options) { o.Blur = amount })
}

func (b Builder) Sharpen(amount int) Builder {
	return b.with(func(o *Options) { o.Sharpen = amount })
}

func (b Builder) Saturation(amount int) Builder {
	return b.with(func(o *Options) { o.Saturation = amount })
}

func (b Builder) Orientation(degrees int) Builder {
	return b.with(func(o *Options) { o.Orientation = degrees })
}

func (b Builder) Pad(pixels int) Builder {
	return b.with(func(o *Options) { o.Pad = pixels })
}

func (b Builder) DPR(ratio float64) Builder {
	return b.with(func(o *Options) { o.DPR = ratio })
}

func (b Builder) Fit(fit Fit) Builder {
	return b.with(func(o *Options) { o.Fit = fit })
}

// Crop sets the crop mode used with FitCrop (e.g. "center", "focalpoint").
func (b Builder) Crop(mode string) Builder {
	return b.with(func(o *Options) { o.Crop = mode })
}

func (b Builder) Format(format string) Builder {
	return b.with(func(o *Options) { o.Format = format })
}

func (b Builder) Auto(mode string) Builder {
	return b.with(func(o *Options) { o.Auto = mode })
}

func (b Builder) BG(color string) Builder {
	return b.with(func(o *Options) { o.BG = color })
}

func (b Builder) ForceDownload(filename string) Builder {
	return b.with(func(o *Options) { o.Download = filename })
}

func (b Builder) Invert(invert bool) Builder {
	return b.with(func(o *Options) { o.Invert = invert })
}

func (b Builder) FlipHorizontal() Builder {
	return b.with(func(o *Options) { o.FlipH = true })
}

func (b Builder) FlipVertical() Builder {
	return b.with(func(o *Options) { o.FlipV = true })
}

// Rect pins the source region explicitly and disables the crop/hotspot fit.
func (b Builder) Rect(left, top, width, height int) Builder {
	return b.with(func(o *Options) {
		o.Rect = &Rect{Left: left, Top: top, Width: width, Height: height}
	})
}

// IgnoreImageParams drops the document's crop and hotspot from the URL.
func (b Builder) IgnoreImageParams() Builder {
	return b.with(func(o *Options) { o.IgnoreImageParams = true })
}
