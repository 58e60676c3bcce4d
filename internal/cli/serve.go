package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/abcta/internal/adapters/otel"
	"github.com/emiliopalmerini/abcta/internal/adapters/prometheus"
	"github.com/emiliopalmerini/abcta/internal/adapters/turso"
	"github.com/emiliopalmerini/abcta/internal/domain"
	"github.com/emiliopalmerini/abcta/internal/infrastructure/config"
	"github.com/emiliopalmerini/abcta/internal/migrate"
	"github.com/emiliopalmerini/abcta/internal/ports"
	"github.com/emiliopalmerini/abcta/internal/tui"
	"github.com/emiliopalmerini/abcta/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analytics collector",
	Long: `Run the collector behind the custom analytics endpoint. Posted events
are stored in the libsql database and counted in Prometheus metrics.

Examples:
  abcta serve                       # Listen on ABCTA_PORT (default 8080)
  abcta serve --port 3000 --migrate
  abcta serve --site ./public       # Also serve the experiment site`,
	RunE: runServe,
}

var (
	servePort    int
	serveSite    string
	serveMigrate bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides ABCTA_PORT)")
	serveCmd.Flags().StringVar(&serveSite, "site", "", "Static site directory (overrides ABCTA_SITE_DIR)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply pending migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadCollector()
	if err != nil {
		return fmt.Errorf("failed to load collector config: %w", err)
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if serveSite != "" {
		cfg.SiteDir = serveSite
	}
	if experimentPath == "" {
		experimentPath = cfg.ExperimentConfig
	}

	exp, err := loadExperiment()
	if err != nil {
		return err
	}
	exp.Endpoint = cfg.Endpoint

	logger := newLogger(cmd.ErrOrStderr(), debugLogging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return RunCollector(ctx, cfg, exp, serveMigrate, logger, cmd.OutOrStdout())
}

// RunCollector wires the event store, metrics and HTTP server, and serves
// until ctx is cancelled.
func RunCollector(ctx context.Context, cfg *config.Collector, exp domain.ExperimentConfig, applyMigrations bool, logger *slog.Logger, out io.Writer) error {
	db, err := turso.Open(cfg.Database.URL, cfg.Database.AuthToken)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if applyMigrations {
		n, err := migrate.New(db, migrationsFS(), logger).Up(ctx)
		if err != nil {
			return err
		}
		logger.Info("migrations applied", "count", n)
	}

	promSink := prometheus.NewSink()
	eventSinks := []ports.Sink{promSink}

	otelCfg, err := otel.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load otel config: %w", err)
	}
	if otelCfg.Enabled {
		exporter, err := otel.NewExporter(ctx, otelCfg)
		if err != nil {
			logger.Warn("otel exporter disabled", "error", err)
		} else {
			eventSinks = append(eventSinks, exporter)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = exporter.Close(shutdownCtx)
			}()
		}
	}

	server := web.NewServer(web.Config{
		Port:      cfg.Port,
		Endpoint:  cfg.Endpoint,
		SiteDir:   cfg.SiteDir,
		Retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
	}, web.Deps{
		Events:     turso.NewEventRepository(db),
		Sinks:      eventSinks,
		Metrics:    promSink.Handler(),
		Prometheus: prometheusClient(logger),
		Experiment: exp,
		Logger:     logger,
	})

	fmt.Fprintln(out, tui.Banner("abcta collector",
		fmt.Sprintf("experiment  %s (%s)", exp.TestName, exp.TestID),
		fmt.Sprintf("endpoint    http://localhost:%d%s", cfg.Port, cfg.Endpoint),
		fmt.Sprintf("summary     http://localhost:%d/experiments/%s", cfg.Port, exp.TestID),
	))

	return server.Start(ctx)
}
