package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/edvin/branchvault/internal/archive"
	"github.com/edvin/branchvault/internal/catalog"
	"github.com/edvin/branchvault/internal/config"
	"github.com/edvin/branchvault/internal/discovery"
	"github.com/edvin/branchvault/internal/dump"
	"github.com/edvin/branchvault/internal/logging"
	"github.com/edvin/branchvault/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg).With().Str("run_id", uuid.NewString()).Logger()

	catalogClient := catalog.NewClient(cfg.CatalogAPIURL, cfg.CatalogAPIKey)
	discoverer := discovery.NewDiscoverer(catalogClient, logger, cfg.LookbackDays, cfg.PreferredDatabase)
	producer := dump.NewProducer(logger, cfg.PGDumpPath, cfg.BackupDir, dump.Options{
		Format:       cfg.DumpFormat,
		IncludeBlobs: true,
		StripACL:     true,
	})

	uploader, err := archive.FromConfig(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure uploader")
	}

	orchestrator := pipeline.NewOrchestrator(cfg, logger, discoverer, producer, uploader)

	if _, err := orchestrator.Run(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("backup run failed")
	}
}
