package archive

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/edvin/branchvault/internal/config"
)

// FromConfig selects the uploader variant once, at construction. Exactly one
// credential variant must be fully configured; anything else is a
// configuration error, never a silent default.
func FromConfig(cfg *config.Config, logger zerolog.Logger) (Uploader, error) {
	sa := cfg.DriveServiceAccountJSON != ""
	oauth := cfg.DriveClientID != "" || cfg.DriveClientSecret != "" || cfg.DriveRefreshToken != ""

	switch {
	case sa && oauth:
		return nil, fmt.Errorf("both Drive credential variants configured, pick one")
	case sa:
		return NewServiceAccountUploader(logger, cfg.DriveServiceAccountJSON, cfg.DriveFolderName, cfg.DriveParentFolderID), nil
	case oauth:
		if cfg.DriveClientID == "" || cfg.DriveClientSecret == "" || cfg.DriveRefreshToken == "" {
			return nil, fmt.Errorf("incomplete Drive OAuth credentials")
		}
		return NewTokenUploader(logger, cfg.DriveClientID, cfg.DriveClientSecret, cfg.DriveRefreshToken, cfg.DriveFolderName, cfg.DriveParentFolderID), nil
	default:
		return nil, fmt.Errorf("no Drive credentials configured")
	}
}
