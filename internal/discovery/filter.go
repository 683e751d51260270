package discovery

import (
	"time"

	"github.com/edvin/branchvault/internal/model"
)

// parseBranchTime handles the timestamp formats the catalog has been seen to
// emit: RFC 3339 with and without sub-second precision.
func parseBranchTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

// IsActive reports whether the branch was modified within the trailing
// lookback window, boundary inclusive. An unparseable updated_at fails open:
// an unnecessary backup beats silently skipping a branch that changed.
func IsActive(branch model.Branch, now time.Time, lookback time.Duration) bool {
	updated, err := parseBranchTime(branch.UpdatedAt)
	if err != nil {
		return true
	}
	cutoff := now.Add(-lookback)
	return !updated.Before(cutoff)
}
