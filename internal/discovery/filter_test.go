package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/edvin/branchvault/internal/model"
)

func TestIsActive(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	window := 7 * 24 * time.Hour

	tests := []struct {
		name      string
		updatedAt string
		want      bool
	}{
		{"updated yesterday", now.AddDate(0, 0, -1).Format(time.RFC3339), true},
		{"updated 40 days ago", now.AddDate(0, 0, -40).Format(time.RFC3339), false},
		{"exactly on the boundary", now.Add(-window).Format(time.RFC3339), true},
		{"one second past the boundary", now.Add(-window - time.Second).Format(time.RFC3339), false},
		{"sub-second precision", now.Add(-time.Hour).Format(time.RFC3339Nano), true},
		{"unparseable fails open", "not-a-timestamp", true},
		{"empty fails open", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			branch := model.Branch{ID: "br-1", Name: "main", UpdatedAt: tt.updatedAt}
			assert.Equal(t, tt.want, IsActive(branch, now, window))
		})
	}
}
