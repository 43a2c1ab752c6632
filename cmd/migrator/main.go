package main

import (
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/jerichox/jerichox-security/internal/config"
)

func main() {
	upCmd := flag.Bool("up", false, "Run all up migrations")
	downCmd := flag.Bool("down", false, "Rollback all migrations")
	stepsCmd := flag.Int("steps", 0, "Run +/- steps")
	source := flag.String("source", "file://db/migrations", "Migration source URL")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Only the database section matters here, so skip full validation.
	cfg := config.Default()
	if err := cfg.LoadDatabaseEnv(); err != nil {
		fatal(logger, "load config", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL())
	if err != nil {
		fatal(logger, "open database", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fatal(logger, "ping database", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		fatal(logger, "create migrate driver", err)
	}

	m, err := migrate.NewWithDatabaseInstance(*source, "postgres", driver)
	if err != nil {
		fatal(logger, "init migrate", err)
	}

	start := time.Now()
	switch {
	case *upCmd:
		logger.Info("running up migrations")
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatal(logger, "migration up", err)
		}
	case *downCmd:
		logger.Info("running down migrations")
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatal(logger, "migration down", err)
		}
	case *stepsCmd != 0:
		logger.Info("running migration steps", "steps", *stepsCmd)
		if err := m.Steps(*stepsCmd); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatal(logger, "migration steps", err)
		}
	default:
		logger.Info("no command specified, use -up, -down, or -steps")
		version, dirty, err := m.Version()
		if err != nil {
			logger.Info("no version found (empty db?)")
		} else {
			logger.Info("current version", "version", version, "dirty", dirty)
		}
	}
	logger.Info("done", "duration", time.Since(start).String())
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg+" failed", "error", err)
	os.Exit(1)
}
