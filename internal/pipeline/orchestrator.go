package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/branchvault/internal/archive"
	"github.com/edvin/branchvault/internal/config"
	"github.com/edvin/branchvault/internal/model"
)

// ErrNoSuccessfulBackups means every attempted backup failed. Individual
// backup failures are tolerated; losing all of them is not.
var ErrNoSuccessfulBackups = errors.New("no backups succeeded")

// Discoverer enumerates the branches that need backing up.
type Discoverer interface {
	DiscoverActiveResources(ctx context.Context) ([]model.ActiveResource, error)
}

// Producer creates backups and applies local retention.
type Producer interface {
	CheckTool(ctx context.Context) bool
	CreateBackups(ctx context.Context, resources []model.ActiveResource) []model.BackupArtifact
	CleanupOld(retentionDays int)
}

// Summary aggregates one pipeline run. Informational only; correctness never
// depends on it.
type Summary struct {
	Discovered       int
	BackupsSucceeded int
	BackupsFailed    int
	UploadsSucceeded int
	UploadsFailed    int
	RemoteDeleted    int
	TotalBytes       int64
	Duration         time.Duration
}

// Orchestrator runs the linear discover-backup-upload-cleanup pipeline. One
// instance, one run, no retries, no parallelism.
type Orchestrator struct {
	logger     zerolog.Logger
	discoverer Discoverer
	producer   Producer
	uploader   archive.Uploader

	localRetentionDays     int
	remoteRetentionEnabled bool
	remoteRetentionDays    int
}

func NewOrchestrator(cfg *config.Config, logger zerolog.Logger, discoverer Discoverer, producer Producer, uploader archive.Uploader) *Orchestrator {
	return &Orchestrator{
		logger:                 logger.With().Str("component", "orchestrator").Logger(),
		discoverer:             discoverer,
		producer:               producer,
		uploader:               uploader,
		localRetentionDays:     cfg.LocalRetentionDays,
		remoteRetentionEnabled: cfg.RemoteRetentionEnabled,
		remoteRetentionDays:    cfg.RemoteRetentionDays,
	}
}

// Run executes one pipeline pass. Errors before the backup stage are fatal
// and abort the run; afterwards only the all-backups-failed condition is.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	// Stage 1: verify connectivity before any expensive work.
	o.logger.Info().Msg("verifying connections")
	if !o.producer.CheckTool(ctx) {
		return nil, fmt.Errorf("pg_dump is not available")
	}
	if err := o.uploader.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize store client: %w", err)
	}
	if err := o.uploader.TestConnection(ctx); err != nil {
		return nil, fmt.Errorf("store connection check: %w", err)
	}

	// Stage 2: discovery.
	o.logger.Info().Msg("discovering active branches")
	resources, err := o.discoverer.DiscoverActiveResources(ctx)
	if err != nil {
		return nil, err
	}
	summary.Discovered = len(resources)

	if len(resources) == 0 {
		// Not an error: nothing changed, nothing to back up.
		o.logger.Info().Msg("no branches with recent activity, nothing to do")
		o.producer.CleanupOld(o.localRetentionDays)
		summary.Duration = time.Since(start)
		o.logSummary(summary)
		return summary, nil
	}

	// Stage 3: backups, strictly sequential.
	o.logger.Info().Int("resources", len(resources)).Msg("creating backups")
	artifacts := o.producer.CreateBackups(ctx, resources)
	for _, artifact := range artifacts {
		if artifact.Success {
			summary.BackupsSucceeded++
			summary.TotalBytes += artifact.SizeBytes
		} else {
			summary.BackupsFailed++
		}
	}

	if summary.BackupsSucceeded == 0 {
		summary.Duration = time.Since(start)
		return summary, fmt.Errorf("%d backups attempted: %w", len(artifacts), ErrNoSuccessfulBackups)
	}

	// Stage 4: uploads.
	o.logger.Info().Int("artifacts", summary.BackupsSucceeded).Msg("uploading backups")
	uploads := o.uploader.UploadAll(ctx, artifacts)
	summary.UploadsSucceeded = uploads.Uploaded
	summary.UploadsFailed = uploads.Failed

	// Stage 5: retention, best-effort on both sides.
	o.producer.CleanupOld(o.localRetentionDays)
	if o.remoteRetentionEnabled {
		deleted, err := o.uploader.CleanupOlderThan(ctx, o.remoteRetentionDays)
		if err != nil {
			o.logger.Warn().Err(err).Msg("remote retention failed")
		}
		summary.RemoteDeleted = deleted
	}

	summary.Duration = time.Since(start)
	o.logSummary(summary)
	return summary, nil
}

func (o *Orchestrator) logSummary(s *Summary) {
	o.logger.Info().
		Int("discovered", s.Discovered).
		Int("backups_succeeded", s.BackupsSucceeded).
		Int("backups_failed", s.BackupsFailed).
		Int("uploads_succeeded", s.UploadsSucceeded).
		Int("uploads_failed", s.UploadsFailed).
		Int("remote_deleted", s.RemoteDeleted).
		Int64("total_bytes", s.TotalBytes).
		Dur("duration", s.Duration).
		Msg("run complete")
}
