package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/samirrijal/fieldroute/internal/pkg/config"
	"github.com/samirrijal/fieldroute/internal/pkg/logging"
)

const migrationsDir = "migrations"

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate <up|down|status>")
		os.Exit(2)
	}

	cfg, err := config.Load("fieldroute-migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, "text")

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		fatal("db", err)
	}
	defer pool.Close()

	if err := ensureVersionTable(ctx, pool); err != nil {
		fatal("schema_migrations", err)
	}

	switch os.Args[1] {
	case "up":
		err = up(ctx, pool)
	case "down":
		err = down(ctx, pool)
	case "status":
		err = status(ctx, pool)
	default:
		err = fmt.Errorf("unknown command: %s", os.Args[1])
	}
	if err != nil {
		fatal("migrate "+os.Args[1], err)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func ensureVersionTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

// migrationFiles lists NNN_name.<direction>.sql files in version order.
func migrationFiles(direction string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*."+direction+".sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func version(file string) string {
	return strings.SplitN(filepath.Base(file), ".", 2)[0]
}

func applied(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(versions))
	for _, v := range versions {
		out[v] = true
	}
	return out, nil
}

func up(ctx context.Context, pool *pgxpool.Pool) error {
	files, err := migrationFiles("up")
	if err != nil {
		return err
	}
	done, err := applied(ctx, pool)
	if err != nil {
		return err
	}

	for _, f := range files {
		v := version(f)
		if done[v] {
			continue
		}
		if err := runInTx(ctx, pool, f, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, v)
			return err
		}); err != nil {
			return err
		}
		slog.Info("applied", "migration", f)
	}
	slog.Info("all migrations applied")
	return nil
}

// down reverts the most recent applied migration.
func down(ctx context.Context, pool *pgxpool.Pool) error {
	files, err := migrationFiles("down")
	if err != nil {
		return err
	}
	done, err := applied(ctx, pool)
	if err != nil {
		return err
	}

	for i := len(files) - 1; i >= 0; i-- {
		v := version(files[i])
		if !done[v] {
			continue
		}
		if err := runInTx(ctx, pool, files[i], func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, v)
			return err
		}); err != nil {
			return err
		}
		slog.Info("reverted", "migration", files[i])
		return nil
	}
	slog.Info("nothing to revert")
	return nil
}

func status(ctx context.Context, pool *pgxpool.Pool) error {
	files, err := migrationFiles("up")
	if err != nil {
		return err
	}
	done, err := applied(ctx, pool)
	if err != nil {
		return err
	}
	for _, f := range files {
		state := "pending"
		if done[version(f)] {
			state = "applied"
		}
		fmt.Printf("%-8s %s\n", state, filepath.Base(f))
	}
	return nil
}

func runInTx(ctx context.Context, pool *pgxpool.Pool, file string, record func(pgx.Tx) error) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(data)); err != nil {
		return fmt.Errorf("exec %s: %w", file, err)
	}
	if err := record(tx); err != nil {
		return fmt.Errorf("record %s: %w", file, err)
	}
	return tx.Commit(ctx)
}
