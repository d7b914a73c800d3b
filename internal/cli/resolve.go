package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dunamismax/pixelprops/internal/domain"
	"github.com/dunamismax/pixelprops/internal/imageprops"
	"github.com/dunamismax/pixelprops/internal/resolver"
	"github.com/dunamismax/pixelprops/internal/urlbuilder"
	"github.com/spf13/cobra"
)

type resolveFlags struct {
	preset  string
	shape   string
	crop    string
	noBlur  bool
	quality int
	fit     string
}

func newResolveCommand(global *globalFlags) *cobra.Command {
	var flags resolveFlags

	cmd := &cobra.Command{
		Use:   "resolve <identifier|image-json>",
		Short: "Resolve render size, source URL and placeholder for an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := parseImageArg(args[0])
			if err != nil {
				return err
			}
			if flags.crop != "" {
				crop, err := parseCrop(flags.crop)
				if err != nil {
					return err
				}
				src.Crop = &crop
			}

			svc, _, err := global.service()
			if err != nil {
				return err
			}

			req := resolver.Request{
				Image:  src,
				Preset: flags.preset,
				Shape:  imageprops.Shape(flags.shape),
			}
			if flags.quality > 0 || flags.fit != "" {
				req.Transform = &imageprops.Preset{Quality: flags.quality, Fit: urlbuilder.Fit(flags.fit)}
			}
			if flags.noBlur {
				disabled := false
				req.BlurUp = &resolver.BlurUp{Enabled: &disabled}
			}

			props, err := svc.Resolve(req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), props)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.preset, "preset", "", "named preset from the presets file")
	f.StringVar(&flags.shape, "shape", "", "result shape: blur, plain or responsive")
	f.StringVar(&flags.crop, "crop", "", "crop fractions as left,right,top,bottom")
	f.BoolVar(&flags.noBlur, "no-blur", false, "skip the blur-up placeholder")
	f.IntVar(&flags.quality, "quality", 0, "inline transform quality")
	f.StringVar(&flags.fit, "fit", "", "inline transform fit mode")
	cmd.MarkFlagsMutuallyExclusive("preset", "quality")
	cmd.MarkFlagsMutuallyExclusive("preset", "fit")
	return cmd
}

func parseCrop(raw string) (domain.Crop, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return domain.Crop{}, fmt.Errorf("crop needs four comma separated fractions, got %q", raw)
	}
	var values [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.Crop{}, fmt.Errorf("crop value %q: %w", p, err)
		}
		values[i] = v
	}
	crop := domain.Crop{Left: values[0], Right: values[1], Top: values[2], Bottom: values[3]}
	if crop.Degenerate() {
		return domain.Crop{}, fmt.Errorf("crop %q removes the whole image", raw)
	}
	return crop, nil
}
