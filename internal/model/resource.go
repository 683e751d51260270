package model

import "time"

// ActiveResource is a branch that passed the activity filter together with the
// connection credential resolved for it. It lives only for the duration of one
// pipeline run.
type ActiveResource struct {
	ProjectID      string
	ProjectName    string
	BranchID       string
	BranchName     string
	RecentActivity bool
	LastActivity   time.Time
	ConnectionURI  string
}

// BackupArtifact is the outcome of one backup attempt for one ActiveResource.
// When Success is true, LocalPath points to a file that existed at creation
// time. PlainPath references the pre-compression dump, kept only so local
// cleanup can account for it.
type BackupArtifact struct {
	ProjectName string
	BranchName  string
	Success     bool
	LocalPath   string
	FileName    string
	SizeBytes   int64
	Duration    time.Duration
	Error       string
	PlainPath   string
}

// RemoteFile mirrors a file in the remote store. Never cached; every cleanup
// pass re-queries the store.
type RemoteFile struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
