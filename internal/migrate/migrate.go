package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/emiliopalmerini/abcta/migrations"
)

var upPattern = regexp.MustCompile(`^(\d+)_(.+)\.up\.sql$`)

// Migration represents a single database migration with up and down SQL.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// Runner applies versioned migrations read from a filesystem.
type Runner struct {
	db     *sql.DB
	source fs.FS
	logger *slog.Logger
}

func New(db *sql.DB, source fs.FS, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{db: db, source: source, logger: logger}
}

// RunAll applies every pending embedded migration.
func RunAll(ctx context.Context, db *sql.DB) error {
	_, err := New(db, migrations.FS, nil).Up(ctx)
	return err
}

// ensureTable creates the schema_migrations table if it doesn't exist.
func (r *Runner) ensureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			dirty INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// Version returns the current migration version and dirty state.
func (r *Runner) Version(ctx context.Context) (int, bool, error) {
	if err := r.ensureTable(ctx); err != nil {
		return 0, false, err
	}

	var version, dirty int
	err := r.db.QueryRowContext(ctx, `SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, dirty == 1, nil
}

func (r *Runner) setVersion(ctx context.Context, version int, dirty bool) error {
	dirtyInt := 0
	if dirty {
		dirtyInt = 1
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		return err
	}
	if version <= 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO schema_migrations (version, dirty) VALUES (?, ?)`, version, dirtyInt)
	return err
}

// Load reads all migration files and returns them sorted by version.
func (r *Runner) Load() ([]Migration, error) {
	var result []Migration

	err := fs.WalkDir(r.source, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		matches := upPattern.FindStringSubmatch(path.Base(p))
		if matches == nil {
			return nil
		}

		version, _ := strconv.Atoi(matches[1])
		upSQL, err := fs.ReadFile(r.source, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}

		downPath := path.Join(path.Dir(p), fmt.Sprintf("%s_%s.down.sql", matches[1], matches[2]))
		downSQL, err := fs.ReadFile(r.source, downPath)
		if err != nil {
			downSQL = nil
		}

		result = append(result, Migration{
			Version: version,
			Name:    matches[2],
			UpSQL:   string(upSQL),
			DownSQL: string(downSQL),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Version < result[j].Version
	})
	return result, nil
}

// Up applies all pending migrations and returns how many ran.
func (r *Runner) Up(ctx context.Context) (int, error) {
	return r.UpTo(ctx, -1)
}

// UpTo applies pending migrations up to target; a negative target means all.
func (r *Runner) UpTo(ctx context.Context, target int) (int, error) {
	current, all, err := r.prepare(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range all {
		if m.Version <= current {
			continue
		}
		if target >= 0 && m.Version > target {
			break
		}
		if err := r.run(ctx, m, true); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// DownTo reverts applied migrations until the version equals target.
func (r *Runner) DownTo(ctx context.Context, target int) (int, error) {
	current, all, err := r.prepare(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if m.Version > current {
			continue
		}
		if m.Version <= target {
			break
		}
		if m.DownSQL == "" {
			return count, fmt.Errorf("no down migration for version %d", m.Version)
		}
		if err := r.run(ctx, m, false); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (r *Runner) prepare(ctx context.Context) (int, []Migration, error) {
	current, dirty, err := r.Version(ctx)
	if err != nil {
		return 0, nil, err
	}
	if dirty {
		return 0, nil, fmt.Errorf("database is in dirty state at version %d", current)
	}

	all, err := r.Load()
	if err != nil {
		return 0, nil, err
	}
	return current, all, nil
}

func (r *Runner) run(ctx context.Context, m Migration, up bool) error {
	direction := "up"
	sqlContent := m.UpSQL
	target := m.Version
	if !up {
		direction = "down"
		sqlContent = m.DownSQL
		target = m.Version - 1
	}

	r.logger.Info("running migration", "direction", direction, "version", m.Version, "name", m.Name)

	if err := r.setVersion(ctx, m.Version, true); err != nil {
		return fmt.Errorf("failed to set dirty flag: %w", err)
	}

	for _, stmt := range SplitSQL(sqlContent) {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration %d %s: %w\nSQL: %s", m.Version, direction, err, stmt)
		}
	}

	if err := r.setVersion(ctx, target, false); err != nil {
		return fmt.Errorf("failed to clear dirty flag: %w", err)
	}
	return nil
}

// SplitSQL splits a SQL script on semicolons, dropping empty statements.
func SplitSQL(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
