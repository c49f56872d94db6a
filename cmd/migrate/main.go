package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/clinic/backend/internal/infrastructure/config"
	"github.com/clinic/backend/internal/infrastructure/logger"
	"github.com/clinic/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

func main() {
	var (
		direction      string
		steps          int
		version        int
		migrationsPath string
		name           string
		description    string
		logLevel       string
	)

	flag.StringVar(&direction, "direction", "up", "up, down, steps, version, force, status, verify, list or create")
	flag.IntVar(&steps, "steps", 0, "Number of migrations for -direction steps (negative rolls back)")
	flag.IntVar(&version, "version", -1, "Version recorded by -direction force")
	flag.StringVar(&migrationsPath, "dir", "", "Path to migrations directory (default: ./migrations)")
	flag.StringVar(&name, "name", "", "Migration name for -direction create")
	flag.StringVar(&description, "description", "", "Migration description for -direction create")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	migrationsPath, err = resolveMigrationsPath(migrationsPath)
	if err != nil {
		log.Fatal("Failed to resolve migrations directory", zap.Error(err))
	}
	log.Info("Migration CLI started",
		zap.String("direction", direction),
		zap.String("migrations_path", migrationsPath),
	)

	// Directions that only touch the filesystem
	switch direction {
	case "create":
		if name == "" {
			log.Fatal("Migration name required: -direction create -name <name>")
		}
		mf, err := migration.CreateMigration(migrationsPath, name, description, time.Now())
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.String("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return

	case "list":
		names, err := migration.ListMigrations(migrationsPath)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		log.Info("Available migrations", zap.Int("count", len(names)))
		for _, n := range names {
			fmt.Println("  -", n)
		}
		return

	case "verify":
		if err := migration.Verify(migrationsPath); err != nil {
			log.Fatal("Migration files are inconsistent", zap.Error(err))
		}
		log.Info("Migration files are consistent")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, migrationsPath, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch direction {
	case "up":
		if err := migration.Verify(migrationsPath); err != nil {
			log.Fatal("Migration files are inconsistent", zap.Error(err))
		}
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		if steps == 0 {
			log.Fatal("Non-zero -steps required for -direction steps")
		}
		err = m.Steps(steps)
	case "force":
		if version < 0 {
			log.Fatal("-version required for -direction force")
		}
		err = m.Force(version)
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil {
			log.Fatal("Failed to get version", zap.Error(verr))
		}
		log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
	case "status":
		st, serr := m.Status()
		if serr != nil {
			log.Fatal("Failed to get status", zap.Error(serr))
		}
		log.Info("Migration status",
			zap.Uint("applied", st.Applied),
			zap.Uint("latest", st.Latest),
			zap.Bool("dirty", st.Dirty),
			zap.Strings("pending", st.Pending),
			zap.Bool("up_to_date", st.UpToDate()),
		)
	default:
		log.Error("Unknown direction", zap.String("direction", direction))
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("Migration failed", zap.String("direction", direction), zap.Error(err))
	}
}

// resolveMigrationsPath prefers the explicit flag, then ./migrations, then
// migrations two levels above the executable (bin/<os>/migrate layouts).
func resolveMigrationsPath(path string) (string, error) {
	if path == "" {
		path = defaultMigrationsPath
		if _, err := os.Stat(path); err != nil {
			if exe, exeErr := os.Executable(); exeErr == nil {
				candidate := filepath.Join(filepath.Dir(exe), "..", "..", defaultMigrationsPath)
				if _, err := os.Stat(candidate); err == nil {
					path = candidate
				}
			}
		}
	}
	return filepath.Abs(path)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Clinic database migration tool

Usage:
  migrate [flags]

Directions (-direction):
  up        Apply all pending migrations (default)
  down      Roll back all migrations
  steps     Apply -steps migrations (negative rolls back)
  version   Show the applied version
  status    Show applied, latest and pending migrations
  force     Record -version as applied without running SQL
  verify    Check that every up file has a down file
  list      List migration files
  create    Create an empty up/down pair named -name

Flags:
  -dir string           Path to migrations directory (default: ./migrations)
  -steps int            Step count for -direction steps
  -version int          Version for -direction force
  -name string          Name for -direction create
  -description string   Description for -direction create
  -log-level string     debug, info, warn or error (default: info)

The database is configured through CLINIC_DATABASE_* environment variables.`)
}
