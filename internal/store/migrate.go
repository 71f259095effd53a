package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ApplyMigrations runs every *.up.sql file not yet recorded in
// schema_migrations, in file name order, each in its own transaction.
func ApplyMigrations(ctx context.Context, db *sql.DB, migrationsDir string) error {
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return err
	}

	pending, err := PendingMigrations(ctx, db, migrationsDir)
	if err != nil {
		return err
	}

	for _, version := range pending {
		contents, err := os.ReadFile(filepath.Join(migrationsDir, version))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", version, err)
		}
		err = inTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(contents)); err != nil {
				return fmt.Errorf("execute migration %s: %w", version, err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES($1)`, version); err != nil {
				return fmt.Errorf("record migration %s: %w", version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// PendingMigrations lists the up files that have not been applied.
func PendingMigrations(ctx context.Context, db *sql.DB, migrationsDir string) ([]string, error) {
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return nil, err
	}
	files, err := migrationFiles(migrationsDir, ".up.sql")
	if err != nil {
		return nil, err
	}

	pending := make([]string, 0, len(files))
	for _, version := range files {
		migrated, err := isMigrated(ctx, db, version)
		if err != nil {
			return nil, err
		}
		if !migrated {
			pending = append(pending, version)
		}
	}
	return pending, nil
}

// RollbackMigrations runs the down file of every applied migration, newest
// first, and forgets it in schema_migrations.
func RollbackMigrations(ctx context.Context, db *sql.DB, migrationsDir string) error {
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return err
	}
	files, err := migrationFiles(migrationsDir, ".up.sql")
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	for _, version := range files {
		migrated, err := isMigrated(ctx, db, version)
		if err != nil {
			return err
		}
		if !migrated {
			continue
		}
		downName := strings.TrimSuffix(version, ".up.sql") + ".down.sql"
		contents, err := os.ReadFile(filepath.Join(migrationsDir, downName))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", downName, err)
		}
		err = inTx(ctx, db, func(tx *sql.Tx) error {
			if sqlText := strings.TrimSpace(string(contents)); sqlText != "" {
				if _, err := tx.ExecContext(ctx, sqlText); err != nil {
					return fmt.Errorf("execute migration %s: %w", downName, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version=$1`, version); err != nil {
				return fmt.Errorf("forget migration %s: %w", version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func migrationFiles(migrationsDir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name := entry.Name(); strings.HasSuffix(name, suffix) {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}

func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	return nil
}

func isMigrated(ctx context.Context, db *sql.DB, version string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, version).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check migration %s: %w", version, err)
	}
	return exists, nil
}
