package cli

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/abcta/internal/adapters/turso"
	"github.com/emiliopalmerini/abcta/internal/domain"
	"github.com/emiliopalmerini/abcta/internal/infrastructure/config"
	"github.com/emiliopalmerini/abcta/internal/ports"
)

// AppContext holds the shared dependencies of the database-backed commands.
type AppContext struct {
	Experiment domain.ExperimentConfig
	Logger     *slog.Logger
	DB         *sql.DB
	Events     ports.EventRepository
}

// NewAppContext loads the experiment and opens the event store.
func NewAppContext(cmd *cobra.Command) (*AppContext, error) {
	logger := newLogger(cmd.ErrOrStderr(), debugLogging)

	exp, err := loadExperiment()
	if err != nil {
		return nil, err
	}

	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	db, err := turso.Open(dbCfg.URL, dbCfg.AuthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &AppContext{
		Experiment: exp,
		Logger:     logger,
		DB:         db,
		Events:     turso.NewEventRepository(db),
	}, nil
}

// Close releases all resources held by the AppContext.
func (a *AppContext) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadExperiment resolves the --experiment flag, then ABCTA_EXPERIMENT_CONFIG.
func loadExperiment() (domain.ExperimentConfig, error) {
	path := experimentPath
	if path == "" {
		v, err := config.LoadVisitor()
		if err != nil {
			return domain.ExperimentConfig{}, fmt.Errorf("failed to load config: %w", err)
		}
		path = v.ExperimentConfig
	}
	return config.Experiment(path)
}
