package resolver

import (
	"errors"
	"fmt"

	"github.com/dunamismax/pixelprops/internal/config"
	"github.com/dunamismax/pixelprops/internal/domain"
	"github.com/dunamismax/pixelprops/internal/imageprops"
	"github.com/dunamismax/pixelprops/internal/urlbuilder"
	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidRequest = errors.New("invalid props request")
	ErrNoImage        = errors.New("no image to resolve")
)

const SizePolicySizeTable = "size_table"

var validate = validator.New(validator.WithRequiredStructEnabled())

type PresetSource interface {
	Get(name string) (imageprops.Preset, error)
}

// Request selects an image and the policy it is resolved with. Preset names
// a registered transform; Transform is an inline one. At most one is set.
type Request struct {
	Image     *domain.ImageSource `json:"image"`
	Preset    string              `json:"preset,omitempty" validate:"omitempty,max=64"`
	Transform *imageprops.Preset  `json:"transform,omitempty" validate:"excluded_with=Preset"`
	BlurUp    *BlurUp             `json:"blur_up,omitempty"`
	Shape     imageprops.Shape    `json:"shape,omitempty" validate:"omitempty,oneof=blur plain responsive"`
}

type BlurUp struct {
	Enabled *bool `json:"enabled,omitempty"`
	Width   int   `json:"width,omitempty" validate:"gte=0,lte=512"`
	Quality int   `json:"quality,omitempty" validate:"gte=0,lte=100"`
	Amount  int   `json:"amount,omitempty" validate:"gte=0,lte=2000"`
}

// Service binds the resolution engine to one image project and its
// configured defaults.
type Service struct {
	client  *urlbuilder.Client
	images  config.ImagesConfig
	presets PresetSource
}

func New(images config.ImagesConfig, presets PresetSource) *Service {
	return &Service{
		client: urlbuilder.NewClient(urlbuilder.Config{
			ProjectID: images.ProjectID,
			Dataset:   images.Dataset,
			BaseURL:   images.BaseURL,
		}),
		images:  images,
		presets: presets,
	}
}

func (s *Service) Client() *urlbuilder.Client {
	return s.client
}

// Options validates a request and turns it into engine options. Request
// fields override the configured defaults.
func (s *Service) Options(req Request) (imageprops.Options, error) {
	if err := validate.Struct(req); err != nil {
		return imageprops.Options{}, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	main, err := s.mainTransform(req)
	if err != nil {
		return imageprops.Options{}, err
	}

	opts := imageprops.Options{
		Main: main,
		Blur: imageprops.BlurTransform{
			Width:   s.images.BlurUpWidth,
			Quality: s.images.BlurUpQuality,
			Amount:  s.images.BlurUpAmount,
		},
		DisableBlurUp: !s.images.BlurUpEnabled,
		Shape:         req.Shape,
	}
	if b := req.BlurUp; b != nil {
		if b.Enabled != nil {
			opts.DisableBlurUp = !*b.Enabled
		}
		opts.BlurUpWidth = b.Width
		opts.BlurUpQuality = b.Quality
		opts.BlurUpAmount = b.Amount
	}
	return opts, nil
}

func (s *Service) mainTransform(req Request) (imageprops.ImageTransform, error) {
	switch {
	case req.Preset != "":
		if s.presets == nil {
			return nil, fmt.Errorf("%w: no presets configured", ErrInvalidRequest)
		}
		preset, err := s.presets.Get(req.Preset)
		if err != nil {
			return nil, err
		}
		return preset, nil
	case req.Transform != nil:
		return *req.Transform, nil
	case s.images.SizePolicy == SizePolicySizeTable:
		return imageprops.SizeTableTransform{Sizes: s.images.Sizes()}, nil
	default:
		return imageprops.DefaultTransform{
			Quality: s.images.DefaultQuality,
			Fit:     urlbuilder.Fit(s.images.DefaultFit),
		}, nil
	}
}

// Resolve returns (nil, nil) when the request carries no image.
func (s *Service) Resolve(req Request) (*imageprops.Props, error) {
	opts, err := s.Options(req)
	if err != nil {
		return nil, err
	}
	return imageprops.Resolve(s.client, req.Image, opts)
}

// LoaderURL is the URL the props loader produces for one rendering width.
func (s *Service) LoaderURL(req Request, width, quality int) (string, error) {
	props, err := s.Resolve(req)
	if err != nil {
		return "", err
	}
	if props == nil {
		return "", ErrNoImage
	}
	return props.Loader(imageprops.LoaderParams{Width: width, Quality: quality}), nil
}
