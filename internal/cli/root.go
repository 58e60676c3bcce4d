package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	debugLogging   bool
	experimentPath string
)

var rootCmd = &cobra.Command{
	Use:   "abcta",
	Short: "Two-arm page experiment harness",
	Long: `abcta assigns visitors to a control or treatment group, applies the
group to tagged page elements and reports behavioral events.

It can visit pages headlessly with a persistent browser profile, inspect
or force a profile's assignment, and run the collector that stores the
events posted to the analytics endpoint.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&experimentPath, "experiment", "e", "", "Experiment definition (YAML); defaults to ABCTA_EXPERIMENT_CONFIG or the built-in experiment")
}
