package imageprops

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dunamismax/pixelprops/internal/domain"
)

// ParseDimensions reads the native pixel size encoded in the source's
// identifier ("image-<id>-<w>x<h>-<ext>").
func ParseDimensions(src domain.ImageSource) (domain.Dimensions, error) {
	return ParseIdentifier(src.Identifier())
}

func ParseIdentifier(id string) (domain.Dimensions, error) {
	if id == "" {
		return domain.Dimensions{}, fmt.Errorf("%w: empty identifier", domain.ErrMalformedIdentifier)
	}

	segments := strings.Split(id, "-")
	if len(segments) < 3 {
		return domain.Dimensions{}, fmt.Errorf("%w: %q has no dimension segment", domain.ErrMalformedIdentifier, id)
	}

	tokens := strings.Split(segments[2], "x")
	if len(tokens) != 2 {
		return domain.Dimensions{}, fmt.Errorf("%w: %q is not <width>x<height>", domain.ErrMalformedIdentifier, segments[2])
	}

	width, ok := leadingInt(tokens[0])
	if !ok || width <= 0 {
		return domain.Dimensions{}, fmt.Errorf("%w: invalid width %q", domain.ErrMalformedIdentifier, tokens[0])
	}
	height, ok := leadingInt(tokens[1])
	if !ok || height <= 0 {
		return domain.Dimensions{}, fmt.Errorf("%w: invalid height %q", domain.ErrMalformedIdentifier, tokens[1])
	}

	return domain.NewDimensions(float64(width), float64(height)), nil
}

// leadingInt parses the base-10 integer prefix of s, ignoring anything after
// the last digit.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ApplyCrop scales native dimensions by the fraction each crop edge leaves.
// The result stays fractional and is not validated; a crop that trims a whole
// axis yields a zero or negative side.
func ApplyCrop(native domain.Dimensions, crop *domain.Crop) domain.Dimensions {
	if crop == nil {
		return native
	}

	return domain.NewDimensions(
		native.Width*(1-crop.Left-crop.Right),
		native.Height*(1-crop.Top-crop.Bottom),
	)
}
