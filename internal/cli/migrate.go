package cli

import (
	"fmt"
	"io/fs"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/abcta/internal/migrate"
	"github.com/emiliopalmerini/abcta/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [version]",
	Short: "Run database migrations",
	Long: `Run database migrations.

Without arguments, runs all pending migrations (up).
With a version number, migrates to that specific version (up or down as needed).

Examples:
  abcta migrate      # Run all pending migrations
  abcta migrate 1    # Migrate to version 1
  abcta migrate 0    # Rollback all migrations`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func migrationsFS() fs.FS {
	return migrations.FS
}

func runMigrate(cmd *cobra.Command, args []string) error {
	app, err := NewAppContext(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	runner := migrate.New(app.DB, migrationsFS(), app.Logger)

	current, dirty, err := runner.Version(ctx)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d, manual intervention required", current)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Current version: %d\n", current)

	if len(args) == 0 {
		n, err := runner.Up(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Fprintln(out, "No migrations to run")
			return nil
		}
		version, _, _ := runner.Version(ctx)
		fmt.Fprintf(out, "Migrated to version %d (%d migrations applied)\n", version, n)
		return nil
	}

	target, err := strconv.Atoi(args[0])
	if err != nil || target < 0 {
		return fmt.Errorf("invalid version number: %s", args[0])
	}

	switch {
	case target > current:
		_, err = runner.UpTo(ctx, target)
	case target < current:
		_, err = runner.DownTo(ctx, target)
	default:
		fmt.Fprintln(out, "Already at target version")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Migrated to version %d\n", target)
	return nil
}
