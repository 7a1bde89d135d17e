package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/dynamodb"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/migration"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(config.LogConfig{Level: logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("store_backend", cfg.Store.Backend),
	)

	switch {
	case cfg.Store.Backend == "dynamodb":
		migrateDynamoDB(log, cfg, command)
	case cfg.Store.Backend == "gorm" && cfg.Database.Driver == "sqlite":
		migrateSQLite(log, cfg, command)
	case cfg.Store.Backend == "gorm":
		migratePostgres(log, cfg, command, args[1:])
	default:
		log.Info("The memory store needs no schema")
	}
}

// migrateDynamoDB creates the documents table; it has no versioned schema
func migrateDynamoDB(log *zap.Logger, cfg *config.Config, command string) {
	if command != "up" {
		log.Fatal("Only 'up' is supported for the dynamodb store", zap.String("command", command))
	}
	ctx := context.Background()
	client, err := dynamodb.NewClient(ctx, &cfg.Store)
	if err != nil {
		log.Fatal("Failed to create DynamoDB client", zap.Error(err))
	}
	if err := dynamodb.EnsureTable(ctx, client, cfg.Store.DynamoDBTable); err != nil {
		log.Fatal("Failed to create documents table", zap.Error(err))
	}
	log.Info("DynamoDB documents table ready", zap.String("table", cfg.Store.DynamoDBTable))
}

// migrateSQLite applies the schema with GORM auto-migration
func migrateSQLite(log *zap.Logger, cfg *config.Config, command string) {
	if command != "up" {
		log.Fatal("Only 'up' is supported for sqlite", zap.String("command", command))
	}
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()
	if err := persistence.AutoMigrate(db); err != nil {
		log.Fatal("Auto-migration failed", zap.Error(err))
	}
	log.Info("SQLite schema ready", zap.String("path", cfg.Database.Path))
}

func migratePostgres(log *zap.Logger, cfg *config.Config, command string, args []string) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()

	case "down":
		err = m.Down()

	case "step":
		if len(args) < 1 {
			log.Fatal("Step count required. Usage: migrate step <n>")
		}
		n, convErr := strconv.Atoi(args[0])
		if convErr != nil {
			log.Fatal("Invalid step count", zap.String("value", args[0]))
		}
		err = m.Steps(n)

	case "version":
		version, dirty, vErr := m.Version()
		if vErr != nil {
			log.Fatal("Failed to get version", zap.Error(vErr))
		}
		if version == 0 {
			log.Info("No migrations applied")
			return
		}
		log.Info("Current migration version",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)

	case "force":
		if len(args) < 1 {
			log.Fatal("Version required. Usage: migrate force <version>")
		}
		version, convErr := strconv.Atoi(args[0])
		if convErr != nil {
			log.Fatal("Invalid version number", zap.String("value", args[0]))
		}
		err = m.Force(version)

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal("Migration failed", zap.String("command", command), zap.Error(err))
	}
}

func printUsage() {
	fmt.Println(`ERP back-office schema tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations (every store backend)
  down                  Roll back all migrations (postgres)
  step <n>              Apply n migrations, negative rolls back (postgres)
  version               Show current migration version (postgres)
  force <version>       Force set migration version (postgres)

Flags:
  -log-level string     Log level: debug, info, warn, error (default: info)

The store backend and database come from config.toml and ERP_* variables,
e.g. ERP_STORE_BACKEND=gorm ERP_DATABASE_DRIVER=postgres.`)
}
