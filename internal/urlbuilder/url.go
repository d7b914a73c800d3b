package urlbuilder

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/dunamismax/pixelprops/internal/domain"
)

type assetID struct {
	id     string
	width  int
	height int
	format string
}

// parseAssetID decodes "image-<id>-<w>x<h>-<format>".
func parseAssetID(ref string) (assetID, bool) {
	parts := strings.Split(ref, "-")
	if len(parts) != 4 || parts[0] != "image" || parts[1] == "" || parts[3] == "" {
		return assetID{}, false
	}

	dims := strings.Split(parts[2], "x")
	if len(dims) != 2 {
		return assetID{}, false
	}
	width, err := strconv.Atoi(dims[0])
	if err != nil || width <= 0 {
		return assetID{}, false
	}
	height, err := strconv.Atoi(dims[1])
	if err != nil || height <= 0 {
		return assetID{}, false
	}

	return assetID{id: parts[1], width: width, height: height, format: parts[3]}, true
}

// URL returns the CDN URL for the builder, or "" when the builder has no
// project, dataset or decodable asset.
func (b Builder) URL() string {
	if b.projectID == "" || b.dataset == "" {
		return ""
	}
	asset, ok := parseAssetID(b.source.Identifier())
	if !ok {
		return ""
	}

	opts := b.Options()
	if opts.Rect == nil && !opts.IgnoreImageParams && opts.Crop == "" {
		rect := fitRect(asset, b.source, opts.Width, opts.Height)
		opts.Rect = &rect
	}

	base := fmt.Sprintf(
		"%s/images/%s/%s/%s-%dx%d.%s",
		b.baseURL,
		url.PathEscape(b.projectID),
		url.PathEscape(b.dataset),
		asset.id,
		asset.width,
		asset.height,
		asset.format,
	)

	params := queryParams(opts, asset)
	if len(params) == 0 {
		return base
	}
	return base + "?" + strings.Join(params, "&")
}

func queryParams(o Options, asset assetID) []string {
	params := make([]string, 0, 8)

	if r := o.Rect; r != nil {
		effective := r.Left != 0 || r.Top != 0 || r.Width != asset.width || r.Height != asset.height
		if effective {
			params = append(params, fmt.Sprintf("rect=%d,%d,%d,%d", r.Left, r.Top, r.Width, r.Height))
		}
	}
	if o.BG != "" {
		params = append(params, "bg="+url.QueryEscape(o.BG))
	}

	flip := ""
	if o.FlipH {
		flip += "h"
	}
	if o.FlipV {
		flip += "v"
	}
	if flip != "" {
		params = append(params, "flip="+flip)
	}

	addInt := func(name string, v int) {
		if v != 0 {
			params = append(params, name+"="+strconv.Itoa(v))
		}
	}
	addString := func(name, v string) {
		if v != "" {
			params = append(params, name+"="+url.QueryEscape(v))
		}
	}

	addInt("w", o.Width)
	addInt("h", o.Height)
	addString("fm", o.Format)
	addString("dl", o.Download)
	addInt("blur", o.Blur)
	addInt("sharp", o.Sharpen)
	if o.Invert {
		params = append(params, "invert=true")
	}
	addInt("or", o.Orientation)
	addInt("min-h", o.MinHeight)
	addInt("max-h", o.MaxHeight)
	addInt("min-w", o.MinWidth)
	addInt("max-w", o.MaxWidth)
	addInt("q", o.Quality)
	addString("fit", string(o.Fit))
	addString("crop", o.Crop)
	addInt("sat", o.Saturation)
	addString("auto", o.Auto)
	if o.DPR != 0 {
		params = append(params, "dpr="+strconv.FormatFloat(o.DPR, 'f', -1, 64))
	}
	addInt("pad", o.Pad)

	return params
}

// fitRect derives the source region from the document crop and, when both
// output sides are fixed, narrows it to the output aspect ratio centred on the
// hotspot while staying inside the crop.
func fitRect(asset assetID, src domain.ImageSource, width, height int) Rect {
	crop := domain.Crop{}
	if src.Crop != nil {
		crop = *src.Crop
	}
	hotspot := domain.DefaultHotspot()
	if src.Hotspot != nil {
		hotspot = *src.Hotspot
	}

	w := float64(asset.width)
	h := float64(asset.height)

	cropLeft := math.Round(crop.Left * w)
	cropTop := math.Round(crop.Top * h)
	cropRect := Rect{
		Left:   int(cropLeft),
		Top:    int(cropTop),
		Width:  int(math.Round(w - crop.Right*w - cropLeft)),
		Height: int(math.Round(h - crop.Bottom*h - cropTop)),
	}

	if width <= 0 || height <= 0 {
		return cropRect
	}

	hotspotLeft := hotspot.X*w - hotspot.Width*w/2
	hotspotRight := hotspot.X*w + hotspot.Width*w/2
	hotspotTop := hotspot.Y*h - hotspot.Height*h/2
	hotspotBottom := hotspot.Y*h + hotspot.Height*h/2

	desired := float64(width) / float64(height)
	cropAspect := float64(cropRect.Width) / float64(cropRect.Height)

	if cropAspect > desired {
		outHeight := cropRect.Height
		outWidth := int(math.Round(float64(outHeight) * desired))
		top := max(0, cropRect.Top)
		centerX := math.Round((hotspotRight-hotspotLeft)/2 + hotspotLeft)
		left := max(0, int(math.Round(centerX-float64(outWidth)/2)))
		if left < cropRect.Left {
			left = cropRect.Left
		} else if left+outWidth > cropRect.Left+cropRect.Width {
			left = cropRect.Left + cropRect.Width - outWidth
		}
		return Rect{Left: left, Top: top, Width: outWidth, Height: outHeight}
	}

	outWidth := cropRect.Width
	outHeight := int(math.Round(float64(outWidth) / desired))
	left := max(0, cropRect.Left)
	centerY := math.Round((hotspotBottom-hotspotTop)/2 + hotspotTop)
	top := max(0, int(math.Round(centerY-float64(outHeight)/2)))
	if top < cropRect.Top {
		top = cropRect.Top
	} else if top+outHeight > cropRect.Top+cropRect.Height {
		top = cropRect.Top + cropRect.Height - outHeight
	}
	return Rect{Left: left, Top: top, Width: outWidth, Height: outHeight}
}
