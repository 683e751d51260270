package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// TokenUploader authenticates on behalf of an end user via a refresh token
// obtained out of band; no interactive step happens at run time. Use it when
// the destination is the user's own Drive quota.
type TokenUploader struct {
	driveUploader
	clientID     string
	clientSecret string
	refreshToken string
}

func NewTokenUploader(logger zerolog.Logger, clientID, clientSecret, refreshToken, folderName, parentID string) *TokenUploader {
	return &TokenUploader{
		driveUploader: driveUploader{
			logger:     logger.With().Str("component", "uploader").Str("auth", "oauth").Logger(),
			folderName: folderName,
			parentID:   parentID,
			pause:      500 * time.Millisecond,
			now:        time.Now,
		},
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
	}
}

func (u *TokenUploader) Initialize(ctx context.Context) error {
	oauthCfg := &oauth2.Config{
		ClientID:     u.clientID,
		ClientSecret: u.clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveScope},
	}

	// The token source refreshes access tokens transparently for the whole run.
	source := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: u.refreshToken})

	svc, err := drive.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return fmt.Errorf("create drive service: %w", err)
	}

	u.api = newDriveOps(svc)
	return nil
}
