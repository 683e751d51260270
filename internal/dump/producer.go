package dump

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/edvin/branchvault/internal/model"
)

const (
	FormatCustom = "custom"
	FormatPlain  = "plain"
)

// Options control how pg_dump is invoked for every resource in a run.
type Options struct {
	// Format is FormatCustom (-Fc, compressed by pg_dump itself) or
	// FormatPlain (-Fp, compressed into a zip afterwards).
	Format string
	// IncludeBlobs adds large objects to the dump.
	IncludeBlobs bool
	// StripACL drops ownership and privilege statements so the dump restores
	// cleanly under a different role.
	StripACL bool
}

// Producer creates point-in-time dumps of branch databases in a local staging
// directory. It owns that directory exclusively for the duration of a run.
type Producer struct {
	logger     zerolog.Logger
	pgDumpPath string
	stagingDir string
	opts       Options

	// pause between successive dumps, to bound load on the source databases.
	pause time.Duration
	now   func() time.Time
}

func NewProducer(logger zerolog.Logger, pgDumpPath, stagingDir string, opts Options) *Producer {
	return &Producer{
		logger:     logger.With().Str("component", "backup-producer").Logger(),
		pgDumpPath: pgDumpPath,
		stagingDir: stagingDir,
		opts:       opts,
		pause:      time.Second,
		now:        time.Now,
	}
}

// CheckTool probes the dump utility with a version flag. True only when the
// probe exits zero.
func (p *Producer) CheckTool(ctx context.Context) bool {
	out, err := exec.CommandContext(ctx, p.pgDumpPath, "--version").Output()
	if err != nil {
		p.logger.Error().Err(err).Str("pg_dump", p.pgDumpPath).Msg("pg_dump probe failed")
		return false
	}
	p.logger.Info().Str("version", strings.TrimSpace(string(out))).Msg("pg_dump available")
	return true
}

// CreateBackup dumps one resource. Failures never propagate as errors; every
// outcome is reported as an artifact so the caller keeps a 1:1 correspondence
// with its input resources.
func (p *Producer) CreateBackup(ctx context.Context, res model.ActiveResource) model.BackupArtifact {
	artifact := model.BackupArtifact{
		ProjectName: res.ProjectName,
		BranchName:  res.BranchName,
	}

	if res.ConnectionURI == "" {
		artifact.Error = "resource has no connection uri"
		return artifact
	}

	connCfg, err := pgconn.ParseConfig(res.ConnectionURI)
	if err != nil {
		artifact.Error = fmt.Sprintf("parse connection uri: %v", err)
		return artifact
	}

	if err := os.MkdirAll(p.stagingDir, 0750); err != nil {
		artifact.Error = fmt.Sprintf("create staging directory: %v", err)
		return artifact
	}

	ext := "dump"
	formatFlag := "-Fc"
	if p.opts.Format == FormatPlain {
		ext = "sql"
		formatFlag = "-Fp"
	}
	fileName := BackupFileName(res.ProjectName, res.BranchName, p.now(), ext)
	outPath := filepath.Join(p.stagingDir, fileName)

	args := []string{
		"-h", connCfg.Host,
		"-p", strconv.Itoa(int(connCfg.Port)),
		"-U", connCfg.User,
		"-d", connCfg.Database,
		formatFlag,
		"-f", outPath,
	}
	if p.opts.IncludeBlobs {
		args = append(args, "--blobs")
	}
	if p.opts.StripACL {
		args = append(args, "--no-owner", "--no-acl")
	}

	p.logger.Info().
		Str("project", res.ProjectName).
		Str("branch", res.BranchName).
		Str("database", connCfg.Database).
		Str("file", fileName).
		Msg("starting dump")

	start := time.Now()
	cmd := exec.CommandContext(ctx, p.pgDumpPath, args...)
	// The password never appears on the command line.
	cmd.Env = append(os.Environ(),
		"PGPASSWORD="+connCfg.Password,
		"PGSSLMODE=require",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		artifact.Duration = time.Since(start)
		artifact.Error = dumpError(err, stderr.String())
		p.logger.Error().
			Str("branch", res.BranchName).
			Str("error", artifact.Error).
			Msg("dump failed")
		return artifact
	}

	if p.opts.Format == FormatPlain {
		zipPath, err := p.compress(outPath)
		if err != nil {
			os.Remove(outPath)
			artifact.Duration = time.Since(start)
			artifact.Error = fmt.Sprintf("compress dump: %v", err)
			return artifact
		}
		artifact.PlainPath = outPath
		outPath = zipPath
		fileName = filepath.Base(zipPath)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		artifact.Duration = time.Since(start)
		artifact.Error = fmt.Sprintf("stat dump file: %v", err)
		return artifact
	}

	artifact.Success = true
	artifact.LocalPath = outPath
	artifact.FileName = fileName
	artifact.SizeBytes = info.Size()
	artifact.Duration = time.Since(start)

	p.logger.Info().
		Str("branch", res.BranchName).
		Str("file", fileName).
		Int64("size_bytes", artifact.SizeBytes).
		Dur("duration", artifact.Duration).
		Msg("dump complete")
	return artifact
}

// CreateBackups processes resources strictly in order, one at a time, with a
// flat pause between attempts. Always returns exactly one artifact per
// resource and never aborts early.
func (p *Producer) CreateBackups(ctx context.Context, resources []model.ActiveResource) []model.BackupArtifact {
	artifacts := make([]model.BackupArtifact, 0, len(resources))
	for i, res := range resources {
		if i > 0 && p.pause > 0 {
			time.Sleep(p.pause)
		}
		artifacts = append(artifacts, p.CreateBackup(ctx, res))
	}
	return artifacts
}

// CleanupOld deletes staged backup files whose modification time is strictly
// older than the retention window. Best-effort: scan and delete errors are
// logged, never propagated.
func (p *Producer) CleanupOld(retentionDays int) {
	cutoff := p.now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(p.stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			p.logger.Warn().Err(err).Str("dir", p.stagingDir).Msg("cannot scan staging directory")
		}
		return
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isBackupFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			p.logger.Warn().Err(err).Str("file", entry.Name()).Msg("cannot stat staged backup")
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(p.stagingDir, entry.Name())
		if err := os.Remove(path); err != nil {
			p.logger.Warn().Err(err).Str("file", entry.Name()).Msg("cannot delete staged backup")
			continue
		}
		removed++
	}
	if removed > 0 {
		p.logger.Info().Int("removed", removed).Int("retention_days", retentionDays).Msg("local retention applied")
	}
}

func isBackupFile(name string) bool {
	switch filepath.Ext(name) {
	case ".dump", ".sql", ".zip":
		return true
	}
	return false
}

// compress packs a plain SQL dump into a single-entry zip at maximum
// compression and removes the original.
func (p *Producer) compress(sqlPath string) (string, error) {
	zipPath := strings.TrimSuffix(sqlPath, ".sql") + ".zip"

	in, err := os.Open(sqlPath)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(zipPath)
	if err != nil {
		return "", err
	}

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	entry, err := zw.Create(filepath.Base(sqlPath))
	if err == nil {
		_, err = io.Copy(entry, in)
	}
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(zipPath)
		return "", err
	}

	plainInfo, statErr := os.Stat(sqlPath)
	zipInfo, zipStatErr := os.Stat(zipPath)
	if statErr == nil && zipStatErr == nil && plainInfo.Size() > 0 {
		ratio := float64(zipInfo.Size()) / float64(plainInfo.Size()) * 100
		p.logger.Info().
			Str("file", filepath.Base(zipPath)).
			Int64("plain_bytes", plainInfo.Size()).
			Int64("zip_bytes", zipInfo.Size()).
			Str("ratio", fmt.Sprintf("%.1f%%", ratio)).
			Msg("dump compressed")
	}

	if err := os.Remove(sqlPath); err != nil {
		p.logger.Warn().Err(err).Str("file", sqlPath).Msg("cannot remove plain dump after compression")
	}

	return zipPath, nil
}

// dumpError turns a pg_dump invocation error into an actionable message,
// distinguishing a missing executable from a real dump failure.
func dumpError(err error, stderr string) string {
	if errors.Is(err, exec.ErrNotFound) {
		return "pg_dump not found: install the postgresql client tools or set PG_DUMP_PATH"
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("pg_dump exited with code %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr))
	}
	return fmt.Sprintf("pg_dump failed to start: %v", err)
}
