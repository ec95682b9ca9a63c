package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/CaroLe-prw/zap/internal/apperr"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open opens the sqlite database at path and applies any pending
// schema migrations. Migrations run exactly once; applied versions are
// recorded in the schema_migrations table.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperr.Database(err)
	}

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, apperr.Database(fmt.Errorf("%s: %w", pragma, err))
		}
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx,
		"CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TEXT NOT NULL DEFAULT (datetime('now')))",
	); err != nil {
		return apperr.Migration(fmt.Errorf("create schema_migrations: %w", err))
	}

	names, err := migrationNames()
	if err != nil {
		return apperr.Migration(err)
	}

	for _, name := range names {
		applied, err := migrationApplied(ctx, db, name)
		if err != nil {
			return apperr.Migration(err)
		}
		if applied {
			continue
		}

		script, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return apperr.Migration(fmt.Errorf("read %s: %w", name, err))
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return apperr.Migration(err)
		}
		if _, err := tx.ExecContext(ctx, string(script)); err != nil {
			_ = tx.Rollback()
			return apperr.Migration(fmt.Errorf("apply %s: %w", name, err))
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", name); err != nil {
			_ = tx.Rollback()
			return apperr.Migration(fmt.Errorf("record %s: %w", name, err))
		}
		if err := tx.Commit(); err != nil {
			return apperr.Migration(err)
		}

		log.Debugf("applied migration %s", name)
	}

	return nil
}

func migrationNames() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func migrationApplied(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM schema_migrations WHERE version = ?", name).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check migration %s: %w", name, err)
	}
	return true, nil
}
