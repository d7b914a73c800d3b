package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/dunamismax/pixelprops/internal/config"
	"github.com/dunamismax/pixelprops/internal/domain"
	"github.com/dunamismax/pixelprops/internal/presets"
	"github.com/dunamismax/pixelprops/internal/resolver"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var version = "dev"

func SetVersion(v string) {
	version = v
}

// globalFlags override the environment configuration for one invocation.
type globalFlags struct {
	project string
	dataset string
	baseURL string
	presets string
}

// NewRootCommand builds the command tree. Defaults come from the same
// environment variables the API reads.
func NewRootCommand() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "pixelprops",
		Short: "Resolve responsive image props for image asset identifiers",
		Long: `pixelprops computes render size, source URL, per-width loader URLs and
blur-up placeholders for images stored in a Sanity-style image CDN.

Examples:
  pixelprops resolve image-abc123-1920x1080-png --project p1 --dataset production
  pixelprops resolve '{"asset":{"_ref":"image-abc123-1920x1080-png"},"crop":{"left":0.1,"right":0,"top":0,"bottom":0}}'
  pixelprops url image-abc123-1920x1080-png --width 640
  pixelprops presets --presets ./presets.yaml`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.project, "project", "", "image project ID (default $SANITY_PROJECT_ID)")
	pf.StringVar(&flags.dataset, "dataset", "", "image dataset (default $SANITY_DATASET)")
	pf.StringVar(&flags.baseURL, "base-url", "", "image CDN base URL (default $SANITY_CDN_BASE_URL)")
	pf.StringVar(&flags.presets, "presets", "", "presets YAML file (default $IMAGE_PRESETS_FILE)")

	root.AddCommand(
		newResolveCommand(&flags),
		newURLCommand(&flags),
		newPresetsCommand(&flags),
		newVersionCommand(),
	)
	return root
}

func (f *globalFlags) imagesConfig() config.ImagesConfig {
	images := config.Load().Images
	if f.project != "" {
		images.ProjectID = f.project
	}
	if f.dataset != "" {
		images.Dataset = f.dataset
	}
	if f.baseURL != "" {
		images.BaseURL = f.baseURL
	}
	if f.presets != "" {
		images.PresetsFile = f.presets
	}
	return images
}

func (f *globalFlags) service() (*resolver.Service, *presets.Registry, error) {
	images := f.imagesConfig()
	registry, err := presets.NewRegistry(images.PresetsFile, nil)
	if err != nil {
		return nil, nil, err
	}
	return resolver.New(images, registry), registry, nil
}

// parseImageArg accepts a bare identifier or an image document as JSON.
func parseImageArg(arg string) (*domain.ImageSource, error) {
	arg = strings.TrimSpace(arg)
	if !strings.HasPrefix(arg, "{") {
		return domain.SourceFromID(arg), nil
	}
	var src domain.ImageSource
	if err := json.Unmarshal([]byte(arg), &src); err != nil {
		return nil, fmt.Errorf("parse image document: %w", err)
	}
	return &src, nil
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "pixelprops", version)
		},
	}
}
