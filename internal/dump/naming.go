package dump

import (
	"fmt"
	"regexp"
	"time"
)

// unsafeChars matches everything that may not appear in a backup filename.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// sanitizeName makes a project or branch name filesystem-safe.
func sanitizeName(name string) string {
	return unsafeChars.ReplaceAllString(name, "-")
}

// BackupFileName builds the artifact name for one branch backup. The name is
// a pure function of project, branch and timestamp, unique at second
// granularity, and contains only alphanumerics, '-', '_' and the extension dot.
func BackupFileName(project, branch string, ts time.Time, ext string) string {
	return fmt.Sprintf("%s_%s_%s.%s",
		sanitizeName(project), sanitizeName(branch), ts.Format("20060102-150405"), ext)
}
