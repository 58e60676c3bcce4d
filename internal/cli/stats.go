package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/abcta/internal/adapters/prometheus"
	"github.com/emiliopalmerini/abcta/internal/domain"
	"github.com/emiliopalmerini/abcta/internal/ports"
	"github.com/emiliopalmerini/abcta/internal/util"
)

var statsCmd = &cobra.Command{
	Use:   "stats [test-id]",
	Short: "Show per-variant event totals",
	Long: `Show per-variant totals for an experiment: impressions, CTA clicks,
sessions and every other event. Totals are descriptive only.

Examples:
  abcta stats                         # Stored events of the configured experiment
  abcta stats ab-test-nav-cta-001
  abcta stats --prometheus --hours 6  # Rolling window from Prometheus
  abcta stats --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStats,
}

var (
	statsPrometheus bool
	statsHours      int
	statsJSON       bool
)

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsPrometheus, "prometheus", false, "Read counts from Prometheus instead of the database")
	statsCmd.Flags().IntVar(&statsHours, "hours", 24, "Rolling window for --prometheus")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger(cmd.ErrOrStderr(), debugLogging)

	var (
		summary domain.ExperimentSummary
		testID  string
	)
	if statsPrometheus {
		exp, err := loadExperiment()
		if err != nil {
			return err
		}
		testID = pickTestID(args, exp)
		summary, err = summaryFromPrometheus(ctx, prometheusClient(logger), testID, statsHours)
		if err != nil {
			return err
		}
	} else {
		app, err := NewAppContext(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		testID = pickTestID(args, app.Experiment)
		summary, err = summaryFromRepo(ctx, app.Events, testID)
		if err != nil {
			return err
		}
	}

	if statsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	return printSummary(cmd.OutOrStdout(), summary)
}

func pickTestID(args []string, exp domain.ExperimentConfig) string {
	if len(args) > 0 {
		return args[0]
	}
	return exp.TestID
}

func summaryFromRepo(ctx context.Context, repo ports.EventRepository, testID string) (domain.ExperimentSummary, error) {
	counts, err := repo.CountByVariant(ctx, testID)
	if err != nil {
		return domain.ExperimentSummary{}, err
	}
	return domain.Summarize(testID, counts), nil
}

func summaryFromPrometheus(ctx context.Context, client ports.PrometheusClient, testID string, hours int) (domain.ExperimentSummary, error) {
	if !client.IsAvailable(ctx) {
		return domain.ExperimentSummary{}, fmt.Errorf("prometheus is not available (set ABCTA_PROMETHEUS_URL and ABCTA_PROMETHEUS_ENABLED)")
	}
	counts, err := client.GetVariantEventCounts(ctx, testID, hours)
	if err != nil {
		return domain.ExperimentSummary{}, err
	}
	return domain.Summarize(testID, counts), nil
}

// prometheusClient returns the configured client, or a no-op client when
// Prometheus is disabled.
func prometheusClient(logger *slog.Logger) ports.PrometheusClient {
	cfg, err := prometheus.LoadConfig()
	if err != nil {
		logger.Warn("invalid prometheus config", "error", err)
		return prometheus.NewNoOpClient()
	}
	if !cfg.Enabled {
		return prometheus.NewNoOpClient()
	}
	client, err := prometheus.NewClient(cfg)
	if err != nil {
		logger.Warn("prometheus client disabled", "error", err)
		return prometheus.NewNoOpClient()
	}
	return client
}

func printSummary(w io.Writer, s domain.ExperimentSummary) error {
	fmt.Fprintf(w, "Experiment: %s\n\n", s.TestID)
	if len(s.Variants) == 0 {
		_, err := fmt.Fprintln(w, "No events recorded yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIANT\tIMPRESSIONS\tCLICKS\tSESSIONS\tCTR\tCLICKS/SESSION")
	for _, v := range s.Variants {
		r := v.ComputeRates()
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%.2f\n",
			v.Variant, v.Impressions, v.Clicks, v.Sessions,
			util.FormatPercent(r.ClickThroughRate), r.ClicksPerSession)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIANT\tEVENT\tCOUNT")
	for _, v := range s.Variants {
		names := make([]string, 0, len(v.Events))
		for name := range v.Events {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", v.Variant, name, v.Events[name])
		}
	}
	return tw.Flush()
}
