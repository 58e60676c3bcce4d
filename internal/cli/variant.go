package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/abcta/internal/experiment"
	"github.com/emiliopalmerini/abcta/internal/ports"
)

var variantCmd = &cobra.Command{
	Use:   "variant",
	Short: "Inspect or force a profile's assignment",
	Long: `Inspect or force the variant stored in a browser profile.

Forcing writes the label to the profile's local storage and cookie, exactly
as the in-page debug helpers do; the next visit picks it up.

Examples:
  abcta variant get
  abcta variant force-treatment --profile alice
  abcta variant force control
  abcta variant reset`,
}

var (
	variantProfile     string
	variantProfilePath string
)

func init() {
	rootCmd.AddCommand(variantCmd)
	variantCmd.PersistentFlags().StringVarP(&variantProfile, "profile", "p", "default", "Browser profile name")
	variantCmd.PersistentFlags().StringVar(&variantProfilePath, "profile-path", "", "Browser profile file (overrides --profile)")

	variantCmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the stored variant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDebugUtils(cmd, func(d *experiment.DebugUtils, out io.Writer) error {
				v := d.Variant()
				if v == "" {
					v = "(unassigned)"
				}
				_, err := fmt.Fprintln(out, v)
				return err
			})
		},
	})

	variantCmd.AddCommand(&cobra.Command{
		Use:   "force-control",
		Short: "Force the control variant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDebugUtils(cmd, func(d *experiment.DebugUtils, out io.Writer) error {
				return d.ForceControl()
			})
		},
	})

	variantCmd.AddCommand(&cobra.Command{
		Use:   "force-treatment",
		Short: "Force the treatment variant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDebugUtils(cmd, func(d *experiment.DebugUtils, out io.Writer) error {
				return d.ForceTreatment()
			})
		},
	})

	variantCmd.AddCommand(&cobra.Command{
		Use:   "force <label>",
		Short: "Force a variant by label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDebugUtils(cmd, func(d *experiment.DebugUtils, out io.Writer) error {
				return d.ForceVariant(args[0])
			})
		},
	})

	variantCmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Remove the stored variant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDebugUtils(cmd, func(d *experiment.DebugUtils, out io.Writer) error {
				return d.Reset()
			})
		},
	})
}

func withDebugUtils(cmd *cobra.Command, fn func(*experiment.DebugUtils, io.Writer) error) error {
	cfg, err := loadExperiment()
	if err != nil {
		return err
	}
	profile, err := openProfile(variantProfile, variantProfilePath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	logger := newLogger(cmd.ErrOrStderr(), debugLogging)
	reload := func() {
		fmt.Fprintf(out, "%s: %s (takes effect on next visit)\n", cfg.TestName, storedLabel(cfg.StorageKey, profile))
	}
	return fn(experiment.NewDebugUtils(cfg, profile, reload, logger), out)
}

func storedLabel(key string, profile ports.KeyValueStore) string {
	v, ok, err := profile.Get(key)
	if err != nil || !ok {
		return "(unassigned)"
	}
	return v
}
