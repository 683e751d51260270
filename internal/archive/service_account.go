package archive

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// ServiceAccountUploader authenticates as a long-lived application identity
// from a service-account key file. Use it when the destination folder lives on
// a shared or managed Drive; a service account has no storage quota of its
// own, so it cannot upload into plain personal storage.
type ServiceAccountUploader struct {
	driveUploader
	keyPath string
}

func NewServiceAccountUploader(logger zerolog.Logger, keyPath, folderName, parentID string) *ServiceAccountUploader {
	return &ServiceAccountUploader{
		driveUploader: driveUploader{
			logger:     logger.With().Str("component", "uploader").Str("auth", "service-account").Logger(),
			folderName: folderName,
			parentID:   parentID,
			pause:      500 * time.Millisecond,
			now:        time.Now,
		},
		keyPath: keyPath,
	}
}

func (u *ServiceAccountUploader) Initialize(ctx context.Context) error {
	data, err := os.ReadFile(u.keyPath)
	if err != nil {
		return fmt.Errorf("read service account key %s: %w", u.keyPath, err)
	}

	jwtCfg, err := google.JWTConfigFromJSON(data, drive.DriveScope)
	if err != nil {
		return fmt.Errorf("parse service account key: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithTokenSource(jwtCfg.TokenSource(ctx)))
	if err != nil {
		return fmt.Errorf("create drive service: %w", err)
	}

	u.api = newDriveOps(svc)
	return nil
}
