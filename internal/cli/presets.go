package cli

import (
	"github.com/dunamismax/pixelprops/internal/imageprops"
	"github.com/spf13/cobra"
)

func newPresetsCommand(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the presets of the presets file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, registry, err := global.service()
			if err != nil {
				return err
			}

			out := make([]imageprops.Preset, 0)
			for _, name := range registry.Names() {
				p, err := registry.Get(name)
				if err != nil {
					return err
				}
				out = append(out, p)
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}
