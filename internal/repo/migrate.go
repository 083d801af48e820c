package repo

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
)

// execFunc abstracts statement execution over database/sql and pgx.
type execFunc func(ctx context.Context, query string, args ...any) error

// applySchema executes the embedded SQL files for the given dialect in
// lexicographical order. Statements are written idempotently
// (CREATE TABLE IF NOT EXISTS), so re-running on an existing file is safe.
func applySchema(ctx context.Context, exec execFunc, filesystem fs.FS, dialect string) error {
	entries, err := fs.ReadDir(filesystem, dialect)
	if err != nil {
		return fmt.Errorf("read %s migrations: %w", dialect, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		sqlBytes, err := fs.ReadFile(filesystem, dialect+"/"+entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if len(sqlBytes) == 0 {
			continue
		}
		if err := exec(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("execute migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

type addedColumn struct {
	table, column, definition string
}

// addedColumns lists columns introduced after the initial release. Deployments
// created from the current schema already have them; older database files get
// them added here. One statement per column, never destructive.
func addedColumns(dialect string) []addedColumn {
	boolDef := "INTEGER NOT NULL DEFAULT 0"
	intDef := "INTEGER NOT NULL DEFAULT 0"
	if dialect == "postgres" {
		boolDef = "BOOLEAN NOT NULL DEFAULT FALSE"
		intDef = "BIGINT NOT NULL DEFAULT 0"
	}
	return []addedColumn{
		{"users", "plan_status", "TEXT NOT NULL DEFAULT 'free'"},
		{"users", "external_customer_id", "TEXT"},
		{"automation_settings", "ai_training", "TEXT NOT NULL DEFAULT ''"},
		{"automation_settings", "minimum_offer", intDef},
		{"automation_settings", "logo", "TEXT NOT NULL DEFAULT ''"},
		{"automation_settings", "custom_slug", "TEXT NOT NULL DEFAULT ''"},
		{"proposals", "custom_slug", "TEXT NOT NULL DEFAULT ''"},
		{"proposals", "is_default", boolDef},
	}
}

// addMissingColumns attempts every additive column migration and swallows
// "duplicate column" errors, which is the expected outcome on databases that
// already carry the column.
func addMissingColumns(ctx context.Context, exec execFunc, dialect string, logger *slog.Logger) error {
	for _, c := range addedColumns(dialect) {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.column, c.definition)
		if err := exec(ctx, stmt); err != nil {
			if isDuplicateColumn(err) {
				continue
			}
			return fmt.Errorf("add column %s.%s: %w", c.table, c.column, err)
		}
		logger.Info("added column", "table", c.table, "column", c.column)
	}
	return nil
}

func isDuplicateColumn(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// sqlite reports "duplicate column name", postgres SQLSTATE 42701
	// reports "already exists".
	return strings.Contains(msg, "duplicate column") ||
		strings.Contains(msg, "sqlstate 42701") ||
		strings.Contains(msg, "already exists")
}
