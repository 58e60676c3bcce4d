package cli

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/abcta/internal/domain"
	"github.com/emiliopalmerini/abcta/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch [test-id]",
	Short: "Live terminal view of per-variant totals",
	Long: `Show per-variant totals in a terminal view that refreshes on an interval.

Examples:
  abcta watch
  abcta watch --prometheus --hours 1 --every 10s`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

var (
	watchPrometheus bool
	watchHours      int
	watchEvery      time.Duration
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchPrometheus, "prometheus", false, "Read counts from Prometheus instead of the database")
	watchCmd.Flags().IntVar(&watchHours, "hours", 24, "Rolling window for --prometheus")
	watchCmd.Flags().DurationVar(&watchEvery, "every", 5*time.Second, "Refresh interval")
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd.ErrOrStderr(), debugLogging)

	var (
		load   tui.LoadFunc
		source string
		exp    domain.ExperimentConfig
	)
	if watchPrometheus {
		var err error
		exp, err = loadExperiment()
		if err != nil {
			return err
		}
		testID := pickTestID(args, exp)
		client := prometheusClient(logger)
		source = fmt.Sprintf("prometheus (%dh)", watchHours)
		load = func(ctx context.Context) (domain.ExperimentSummary, error) {
			return summaryFromPrometheus(ctx, client, testID, watchHours)
		}
	} else {
		app, err := NewAppContext(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		exp = app.Experiment
		testID := pickTestID(args, exp)
		source = "database"
		load = func(ctx context.Context) (domain.ExperimentSummary, error) {
			return summaryFromRepo(ctx, app.Events, testID)
		}
	}

	title := fmt.Sprintf("%s (%s)", exp.TestName, pickTestID(args, exp))
	model := tui.NewWatch(title, source, watchEvery, load)

	_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	return err
}
