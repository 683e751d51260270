package archive

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/branchvault/internal/config"
)

func TestFromConfig_ServiceAccount(t *testing.T) {
	cfg := &config.Config{
		DriveServiceAccountJSON: "/etc/branchvault/sa.json",
		DriveFolderName:         "branchvault",
	}

	uploader, err := FromConfig(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &ServiceAccountUploader{}, uploader)
}

func TestFromConfig_Token(t *testing.T) {
	cfg := &config.Config{
		DriveClientID:     "id",
		DriveClientSecret: "secret",
		DriveRefreshToken: "refresh",
		DriveFolderName:   "branchvault",
	}

	uploader, err := FromConfig(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &TokenUploader{}, uploader)
}

func TestFromConfig_BothConfigured(t *testing.T) {
	cfg := &config.Config{
		DriveServiceAccountJSON: "/etc/branchvault/sa.json",
		DriveClientID:           "id",
		DriveClientSecret:       "secret",
		DriveRefreshToken:       "refresh",
	}

	_, err := FromConfig(cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestFromConfig_NoneConfigured(t *testing.T) {
	_, err := FromConfig(&config.Config{}, zerolog.Nop())
	require.Error(t, err)
}

func TestFromConfig_IncompleteOAuth(t *testing.T) {
	cfg := &config.Config{
		DriveClientID: "id",
	}

	_, err := FromConfig(cfg, zerolog.Nop())
	require.Error(t, err)
}
