// Command postvault is the maintenance CLI for the post ledger store. The
// fetch and download collaborators embed the services directly; this binary
// covers the operator-facing tasks that don't need network access:
//
//	postvault info    print store path, size, counts, and schema version
//	postvault prune   archive every post with no outstanding media work
//	postvault vacuum  compact the store file
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/castlebay/postvault/internal/config"
	"github.com/castlebay/postvault/internal/observability"
	"github.com/castlebay/postvault/internal/repo"
	"github.com/castlebay/postvault/internal/services"
	"github.com/castlebay/postvault/internal/sysutil"
)

// version is stamped by the build (-ldflags "-X main.version=...").
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Error().Err(err).Msg("postvault failed")
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log.Logger = sysutil.NewLogger(os.Stderr, cfg.LogPretty)
	sysutil.SetLogLevel(cfg.LogLevel)

	ctx := context.Background()

	shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store %s: %w", cfg.DBPath, err)
	}
	defer closeDB(db)

	if cfg.OTEL.Enabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return err
		}
	}

	if err := repo.Migrate(db); err != nil {
		return fmt.Errorf("migrate store %s: %w", cfg.DBPath, err)
	}

	cmd := "info"
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "info":
		info := &services.InfoService{DB: db, Path: cfg.DBPath}
		snap, err := info.Collect(ctx)
		if err != nil {
			return err
		}
		fmt.Println(snap.Format())
		return nil

	case "prune":
		archiver := &services.ArchiveService{DB: db}
		pruned, err := archiver.PruneFetched(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("archived %d posts\n", pruned)
		return nil

	case "vacuum":
		return repo.Vacuum(ctx, db)

	default:
		return fmt.Errorf("unknown command %q (want info, prune, or vacuum)", cmd)
	}
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
