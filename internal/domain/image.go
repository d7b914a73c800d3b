package domain

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrMalformedIdentifier = errors.New("malformed image identifier")

// AssetRef is the nested asset object of an image document.
type AssetRef struct {
	Ref string `json:"_ref,omitempty"`
	ID  string `json:"_id,omitempty"`
}

// ImageSource is a reference to a stored image. It decodes either from a bare
// identifier string or from an image document object.
type ImageSource struct {
	ID      string    `json:"_id,omitempty"`
	Ref     string    `json:"_ref,omitempty"`
	Asset   *AssetRef `json:"asset,omitempty"`
	Crop    *Crop     `json:"crop,omitempty"`
	Hotspot *Hotspot  `json:"hotspot,omitempty"`
}

// SourceFromID wraps a bare identifier.
func SourceFromID(id string) *ImageSource {
	return &ImageSource{ID: id}
}

// Identifier returns the asset identifier, or "" when none is present.
func (s ImageSource) Identifier() string {
	if s.Asset != nil {
		if s.Asset.Ref != "" {
			return s.Asset.Ref
		}
		if s.Asset.ID != "" {
			return s.Asset.ID
		}
	}
	if s.Ref != "" {
		return s.Ref
	}
	return s.ID
}

func (s *ImageSource) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("decode image identifier: %w", err)
		}
		*s = ImageSource{ID: id}
		return nil
	}

	type plain ImageSource
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("decode image source: %w", err)
	}
	*s = ImageSource(decoded)
	return nil
}

// Crop holds the fraction of the native image trimmed from each edge.
type Crop struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Degenerate reports whether opposing edges trim the whole axis away.
func (c Crop) Degenerate() bool {
	return c.Left+c.Right >= 1 || c.Top+c.Bottom >= 1
}

type Hotspot struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultHotspot is the centred, full-frame hotspot used when a document has
// none.
func DefaultHotspot() Hotspot {
	return Hotspot{X: 0.5, Y: 0.5, Width: 1, Height: 1}
}

// Dimensions are pixel sizes, possibly fractional after a crop.
type Dimensions struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
}

func NewDimensions(width, height float64) Dimensions {
	return Dimensions{
		Width:       width,
		Height:      height,
		AspectRatio: width / height,
	}
}
