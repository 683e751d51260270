package archive

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/branchvault/internal/model"
)

// Uploader archives backup artifacts to the remote store and applies remote
// retention. Two variants implement it, differing only in how they
// authenticate; the variant is chosen once at construction by FromConfig.
type Uploader interface {
	// Initialize authenticates against the store. Must be called before any
	// other method.
	Initialize(ctx context.Context) error
	// TestConnection is a cheap read-only liveness probe.
	TestConnection(ctx context.Context) error
	// EnsureFolder resolves the destination folder, creating it when absent.
	// The resolved id is memoized for the remainder of the run.
	EnsureFolder(ctx context.Context) (string, error)
	// UploadOne uploads a single local file under the given display name.
	UploadOne(ctx context.Context, localPath, name string) (*model.RemoteFile, error)
	// UploadAll uploads every successful artifact, isolating per-file
	// failures. It never aborts the batch.
	UploadAll(ctx context.Context, artifacts []model.BackupArtifact) UploadSummary
	// CleanupOlderThan deletes remote files created strictly before
	// now - days. Returns the number of files deleted.
	CleanupOlderThan(ctx context.Context, days int) (int, error)
}

// UploadSummary reports the outcome of one batch upload.
type UploadSummary struct {
	Uploaded int
	Failed   int
	Bytes    int64
}

// driveUploader is the shared core of both credential variants: everything
// after authentication is identical.
type driveUploader struct {
	api        storeAPI
	logger     zerolog.Logger
	folderName string
	parentID   string

	// folderID memoizes the resolved destination folder. Safe because an
	// uploader instance is never used concurrently.
	folderID string

	// pause between successive uploads, to respect store rate limits.
	pause time.Duration
	now   func() time.Time
}

func (u *driveUploader) TestConnection(ctx context.Context) error {
	identity, err := u.api.About(ctx)
	if err != nil {
		return err
	}
	u.logger.Info().Str("identity", identity).Msg("store connection verified")
	return nil
}

func (u *driveUploader) EnsureFolder(ctx context.Context) (string, error) {
	if u.folderID != "" {
		return u.folderID, nil
	}

	id, err := u.api.FindFolder(ctx, u.folderName, u.parentID)
	if err != nil {
		return "", err
	}
	if id == "" {
		id, err = u.api.CreateFolder(ctx, u.folderName, u.parentID)
		if err != nil {
			return "", err
		}
		u.logger.Info().Str("folder", u.folderName).Str("folder_id", id).Msg("created backup folder")
	} else {
		u.logger.Debug().Str("folder", u.folderName).Str("folder_id", id).Msg("found backup folder")
	}

	u.folderID = id
	return id, nil
}

func (u *driveUploader) UploadOne(ctx context.Context, localPath, name string) (*model.RemoteFile, error) {
	folderID, err := u.EnsureFolder(ctx)
	if err != nil {
		return nil, err
	}

	remote, err := u.api.Upload(ctx, folderID, name, localPath)
	if err != nil {
		return nil, err
	}
	u.logger.Info().Str("file", name).Str("file_id", remote.ID).Msg("uploaded backup")
	return remote, nil
}

func (u *driveUploader) UploadAll(ctx context.Context, artifacts []model.BackupArtifact) UploadSummary {
	var summary UploadSummary
	first := true
	for _, artifact := range artifacts {
		if !artifact.Success {
			continue
		}
		if !first && u.pause > 0 {
			time.Sleep(u.pause)
		}
		first = false

		if _, err := u.UploadOne(ctx, artifact.LocalPath, artifact.FileName); err != nil {
			u.logger.Error().Err(err).Str("file", artifact.FileName).Msg("upload failed")
			summary.Failed++
			continue
		}
		summary.Uploaded++
		summary.Bytes += artifact.SizeBytes
	}
	return summary
}

func (u *driveUploader) CleanupOlderThan(ctx context.Context, days int) (int, error) {
	folderID, err := u.EnsureFolder(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := u.now().AddDate(0, 0, -days)
	files, err := u.api.ListOlderThan(ctx, folderID, cutoff)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, f := range files {
		if err := u.api.Delete(ctx, f.ID); err != nil {
			u.logger.Warn().Err(err).Str("file", f.Name).Msg("cannot delete remote backup")
			continue
		}
		u.logger.Info().Str("file", f.Name).Time("created_at", f.CreatedAt).Msg("deleted expired remote backup")
		deleted++
	}
	return deleted, nil
}
