package cli

import (
	"fmt"

	"github.com/dunamismax/pixelprops/internal/resolver"
	"github.com/spf13/cobra"
)

func newURLCommand(global *globalFlags) *cobra.Command {
	var (
		width   int
		quality int
		preset  string
	)

	cmd := &cobra.Command{
		Use:   "url <identifier|image-json>",
		Short: "Print the loader URL for one rendering width",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if width <= 0 {
				return fmt.Errorf("--width must be positive")
			}
			src, err := parseImageArg(args[0])
			if err != nil {
				return err
			}
			svc, _, err := global.service()
			if err != nil {
				return err
			}

			url, err := svc.LoaderURL(resolver.Request{Image: src, Preset: preset}, width, quality)
			if err != nil {
				return err
			}
			if url == "" {
				return fmt.Errorf("no URL: set --project and --dataset")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), url)
			return err
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "rendering width in pixels")
	cmd.Flags().IntVar(&quality, "quality", 0, "quality override")
	cmd.Flags().StringVar(&preset, "preset", "", "named preset from the presets file")
	_ = cmd.MarkFlagRequired("width")
	return cmd
}
