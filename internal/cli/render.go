package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/abcta/internal/adapters/htmldom"
	"github.com/emiliopalmerini/abcta/internal/domain"
	"github.com/emiliopalmerini/abcta/internal/experiment"
)

var renderCmd = &cobra.Command{
	Use:   "render <page.html|->",
	Short: "Print a page as a profile's variant would see it",
	Long: `Resolve the profile's variant, apply it to the page and print the
resulting HTML. No events are reported, but an unassigned profile is
assigned (and persisted) the same way a visit would.

Examples:
  abcta render site/index.html --profile alice > treated.html`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var (
	renderProfile     string
	renderProfilePath string
)

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&renderProfile, "profile", "p", "default", "Browser profile name")
	renderCmd.Flags().StringVar(&renderProfilePath, "profile-path", "", "Browser profile file (overrides --profile)")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadExperiment()
	if err != nil {
		return err
	}

	in, closeIn, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer closeIn()

	variant, err := render(cmd.Context(), cfg, renderProfile, renderProfilePath, in, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "rendered variant %s\n", variant)
	return nil
}

func render(ctx context.Context, cfg domain.ExperimentConfig, profileName, profilePath string, in io.Reader, out io.Writer) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	page, err := htmldom.Parse(in)
	if err != nil {
		return "", err
	}
	profile, err := openProfile(profileName, profilePath)
	if err != nil {
		return "", err
	}

	ctrl, err := experiment.New(cfg, experiment.Deps{
		Profile:   profile,
		Document:  page,
		Window:    page,
		Transport: nopTransport{},
	})
	if err != nil {
		return "", err
	}
	ctrl.Start(ctx)
	ctrl.Close()

	if err := page.Render(out); err != nil {
		return "", fmt.Errorf("failed to render page: %w", err)
	}
	return ctrl.VariantLabel(), nil
}
