package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Arbitrary but fixed key for the advisory lock that keeps two instances
// from migrating at the same time.
const migrationLockKey = 7420251

// RunMigrations applies all pending SQL scripts in filename order. Each
// script runs inside its own transaction and is recorded in
// schema_migrations, so reruns are no-ops. The whole run holds a session
// advisory lock, pinned to one connection so lock and unlock pair up.
func RunMigrations(database *sql.DB) error {
	ctx := context.Background()
	conn, err := database.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, migrationLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer conn.ExecContext(ctx, `SELECT pg_advisory_unlock($1)`, migrationLockKey)

	if _, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	scripts, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migration scripts: %w", err)
	}
	sort.Strings(scripts)

	for _, script := range scripts {
		if err := applyScript(ctx, conn, script); err != nil {
			return err
		}
	}
	return nil
}

func applyScript(ctx context.Context, conn *sql.Conn, path string) error {
	var applied bool
	err := conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, path).Scan(&applied)
	if err != nil {
		return fmt.Errorf("check migration %s: %w", path, err)
	}
	if applied {
		return nil
	}

	body, err := migrationFS.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", path, err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", path, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("execute migration %s: %w", path, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, path); err != nil {
		return fmt.Errorf("record migration %s: %w", path, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", path, err)
	}
	return nil
}
