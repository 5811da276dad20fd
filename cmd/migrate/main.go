package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"sickfits-be/internal/logger"
	"sickfits-be/migrations"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	ModeUp     = "up"
	ModeDown   = "down"
	ModeStatus = "status"

	markerPrefix = "-- +migrate "
)

func main() {
	_ = godotenv.Load()
	logger.Init(os.Getenv("APP_ENV"))
	defer logger.Sync()
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		_ = logger.SetLevel(lvl)
	}
	log := logger.L()

	mode := flag.String("mode", ModeUp, "migration mode: up, down or status")
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	flag.Parse()

	db, err := sql.Open("postgres", dsnFromEnv())
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	var source fs.FS = migrations.FS
	if *dir != "" {
		source = os.DirFS(*dir)
	}

	if err := run(context.Background(), db, *mode, source); err != nil {
		log.Fatal("migration failed", zap.String("mode", *mode), zap.Error(err))
	}
}

// dsnFromEnv prefers DB_URL and otherwise assembles the DSN from the same
// DB_* variables the server reads.
func dsnFromEnv() string {
	if url := os.Getenv("DB_URL"); url != "" {
		return url
	}
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"), os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"), port,
	)
}

type migration struct {
	version string
	up      string
	down    string
}

func run(ctx context.Context, db *sql.DB, mode string, source fs.FS) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	all, err := load(source)
	if err != nil {
		return err
	}

	switch mode {
	case ModeUp:
		return migrateUp(ctx, db, all)
	case ModeDown:
		return migrateDown(ctx, db, all)
	case ModeStatus:
		return status(ctx, db, all)
	default:
		return fmt.Errorf("unknown mode: %s (use up, down or status)", mode)
	}
}

// load reads every *.sql file in version order.
func load(source fs.FS) ([]migration, error) {
	names, err := fs.Glob(source, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	out := make([]migration, 0, len(names))
	for _, name := range names {
		content, err := fs.ReadFile(source, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		m := migration{
			version: path.Base(name),
			up:      section(string(content), "Up"),
			down:    section(string(content), "Down"),
		}
		if strings.TrimSpace(m.up) == "" {
			return nil, fmt.Errorf("%s has no Up section", name)
		}
		out = append(out, m)
	}
	return out, nil
}

// section returns the lines between "-- +migrate <name>" and the next marker.
func section(content, name string) string {
	var b strings.Builder
	in := false

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, markerPrefix) {
			if in {
				break
			}
			in = strings.TrimSpace(strings.TrimPrefix(trimmed, markerPrefix)) == name
			continue
		}
		if in {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func applied(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}
	defer rows.Close()

	done := map[string]bool{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = true
	}
	return done, rows.Err()
}

// inTx runs the migration body and its bookkeeping statement atomically.
func inTx(ctx context.Context, db *sql.DB, body, record, version string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, record, version); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func migrateUp(ctx context.Context, db *sql.DB, all []migration) error {
	log := logger.L()

	done, err := applied(ctx, db)
	if err != nil {
		return err
	}

	count := 0
	for _, m := range all {
		if done[m.version] {
			log.Debug("skipping applied migration", zap.String("version", m.version))
			continue
		}

		log.Info("applying migration", zap.String("version", m.version))
		if err := inTx(ctx, db, m.up, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.version); err != nil {
			return fmt.Errorf("apply %s: %w", m.version, err)
		}
		count++
	}

	log.Info("migrations up to date", zap.Int("applied", count))
	return nil
}

// migrateDown rolls back the most recently applied migration only.
func migrateDown(ctx context.Context, db *sql.DB, all []migration) error {
	log := logger.L()

	var last string
	err := db.QueryRowContext(ctx,
		`SELECT version FROM schema_migrations ORDER BY applied_at DESC, version DESC LIMIT 1`,
	).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		log.Info("no migrations to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("find last applied migration: %w", err)
	}

	for _, m := range all {
		if m.version != last {
			continue
		}
		if strings.TrimSpace(m.down) == "" {
			return fmt.Errorf("%s has no Down section", last)
		}

		log.Info("rolling back migration", zap.String("version", last))
		if err := inTx(ctx, db, m.down, `DELETE FROM schema_migrations WHERE version = $1`, last); err != nil {
			return fmt.Errorf("roll back %s: %w", last, err)
		}
		return nil
	}
	return fmt.Errorf("migration file not found for version: %s", last)
}

func status(ctx context.Context, db *sql.DB, all []migration) error {
	done, err := applied(ctx, db)
	if err != nil {
		return err
	}

	log := logger.L()
	for _, m := range all {
		log.Info("migration", zap.String("version", m.version), zap.Bool("applied", done[m.version]))
	}
	return nil
}
