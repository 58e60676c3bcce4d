package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete stored events older than a cutoff",
	Long: `Delete stored events received before now minus --older-than.

Examples:
  abcta purge --older-than 720h`,
	Args: cobra.NoArgs,
	RunE: runPurge,
}

var purgeOlderThan time.Duration

func init() {
	rootCmd.AddCommand(purgeCmd)
	purgeCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 0, "Age of the oldest event to keep (required)")
	_ = purgeCmd.MarkFlagRequired("older-than")
}

func runPurge(cmd *cobra.Command, args []string) error {
	if purgeOlderThan <= 0 {
		return fmt.Errorf("--older-than must be positive")
	}

	app, err := NewAppContext(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	n, err := app.Events.DeleteBefore(cmd.Context(), time.Now().Add(-purgeOlderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d events\n", n)
	return nil
}
