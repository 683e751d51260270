package dump

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var safeName = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func TestBackupFileName_Charset(t *testing.T) {
	ts := time.Date(2026, 8, 27, 9, 30, 15, 0, time.UTC)

	tests := []struct {
		project string
		branch  string
		want    string
	}{
		{"shop", "main", "shop_main_20260827-093015.dump"},
		{"my shop", "feature/checkout", "my-shop_feature-checkout_20260827-093015.dump"},
		{"a.b|c", "dev (old)", "a-b-c_dev--old-_20260827-093015.dump"},
	}

	for _, tt := range tests {
		got := BackupFileName(tt.project, tt.branch, ts, "dump")
		assert.Equal(t, tt.want, got)
		assert.Regexp(t, safeName, got)
	}
}

func TestBackupFileName_Injective(t *testing.T) {
	ts := time.Date(2026, 8, 27, 9, 30, 15, 0, time.UTC)

	names := map[string]bool{}
	inputs := []struct {
		project string
		branch  string
		ts      time.Time
	}{
		{"shop", "main", ts},
		{"shop", "dev", ts},
		{"blog", "main", ts},
		{"shop", "main", ts.Add(time.Second)},
	}
	for _, in := range inputs {
		name := BackupFileName(in.project, in.branch, in.ts, "dump")
		assert.False(t, names[name], "duplicate name %s", name)
		names[name] = true
	}
}
