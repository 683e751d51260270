package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	// Catalog API access.
	CatalogAPIKey string `validate:"required"`
	CatalogAPIURL string `validate:"required,url"`

	// Google Drive, service-account variant. Path to the key JSON file.
	DriveServiceAccountJSON string

	// Google Drive, refresh-token variant. All three must be set together.
	DriveClientID     string
	DriveClientSecret string
	DriveRefreshToken string

	// DriveFolderName is the destination folder resolved (or created) at the
	// top of the Drive, or under DriveParentFolderID when set.
	DriveFolderName     string `validate:"required"`
	DriveParentFolderID string

	// LookbackDays is the activity window: branches whose updated_at is within
	// the trailing window are backed up.
	LookbackDays int `validate:"min=1"`

	BackupDir         string `validate:"required"`
	PreferredDatabase string
	// DumpFormat is "custom" (pg_dump -Fc) or "plain" (plain SQL, then zipped).
	DumpFormat string `validate:"oneof=custom plain"`
	PGDumpPath string `validate:"required"`

	LocalRetentionDays     int `validate:"min=1"`
	RemoteRetentionEnabled bool
	RemoteRetentionDays    int `validate:"min=1"`

	ServiceName string
	LogLevel    string
}

var validate = validator.New()

func Load() (*Config, error) {
	cfg := &Config{
		CatalogAPIKey:           getEnv("CATALOG_API_KEY", ""),
		CatalogAPIURL:           getEnv("CATALOG_API_URL", "https://console.neon.tech/api/v2"),
		DriveServiceAccountJSON: getEnv("GDRIVE_SERVICE_ACCOUNT_JSON", ""),
		DriveClientID:           getEnv("GDRIVE_CLIENT_ID", ""),
		DriveClientSecret:       getEnv("GDRIVE_CLIENT_SECRET", ""),
		DriveRefreshToken:       getEnv("GDRIVE_REFRESH_TOKEN", ""),
		DriveFolderName:         getEnv("GDRIVE_FOLDER_NAME", "branchvault"),
		DriveParentFolderID:     getEnv("GDRIVE_PARENT_FOLDER_ID", ""),
		LookbackDays:            getEnvInt("LOOKBACK_DAYS", 7),
		BackupDir:               getEnv("BACKUP_DIR", "./backups"),
		PreferredDatabase:       getEnv("PREFERRED_DATABASE", "neondb"),
		DumpFormat:              getEnv("DUMP_FORMAT", "custom"),
		PGDumpPath:              getEnv("PG_DUMP_PATH", "pg_dump"),
		LocalRetentionDays:      getEnvInt("LOCAL_RETENTION_DAYS", 7),
		RemoteRetentionEnabled:  getEnvBool("REMOTE_RETENTION_ENABLED", true),
		RemoteRetentionDays:     getEnvInt("REMOTE_RETENTION_DAYS", 30),
		ServiceName:             getEnv("SERVICE_NAME", "branchvault"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// Validate checks required fields and that exactly one Drive credential
// variant is fully configured. Construction must fail fast here rather than
// let the pipeline pick a default.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	sa := c.DriveServiceAccountJSON != ""
	oauth := c.DriveClientID != "" || c.DriveClientSecret != "" || c.DriveRefreshToken != ""

	switch {
	case sa && oauth:
		return fmt.Errorf("both GDRIVE_SERVICE_ACCOUNT_JSON and GDRIVE_CLIENT_ID/GDRIVE_CLIENT_SECRET/GDRIVE_REFRESH_TOKEN are set; configure exactly one Drive credential variant")
	case !sa && !oauth:
		return fmt.Errorf("no Drive credentials configured; set GDRIVE_SERVICE_ACCOUNT_JSON or GDRIVE_CLIENT_ID/GDRIVE_CLIENT_SECRET/GDRIVE_REFRESH_TOKEN")
	case oauth && (c.DriveClientID == "" || c.DriveClientSecret == "" || c.DriveRefreshToken == ""):
		return fmt.Errorf("incomplete Drive OAuth credentials; GDRIVE_CLIENT_ID, GDRIVE_CLIENT_SECRET and GDRIVE_REFRESH_TOKEN must all be set")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
