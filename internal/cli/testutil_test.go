package cli

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/emiliopalmerini/abcta/internal/adapters/turso"
	"github.com/emiliopalmerini/abcta/internal/migrate"
)

// testDB opens a file-backed libsql database with all migrations applied.
func testDB(t *testing.T) (*sql.DB, string) {
	t.Helper()

	url := "file:" + filepath.Join(t.TempDir(), "abcta.db")
	db, err := turso.Open(url, "")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	if err := migrate.RunAll(context.Background(), db); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db, url
}

// writeExperiment writes an experiment definition and returns its path.
func writeExperiment(t *testing.T, yaml string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "experiment.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("Failed to write experiment: %v", err)
	}
	return path
}

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return strings.TrimSpace(out.String()), err
}

const testPage = `<!DOCTYPE html>
<html><head><title>Site</title></head>
<body>
<nav>
  <a href="/contribute" data-tracking="contribute-cta-click" data-tracking-location="header-navigation"
     data-ab-test="navigation-cta-button" data-ab-variant="treatment"> Contribute </a>
  <a href="/docs" data-ab-test="navigation-cta-button" data-ab-variant="control">Docs</a>
</nav>
</body></html>`
