package archive

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"

	"github.com/edvin/branchvault/internal/model"
)

const folderMimeType = "application/vnd.google-apps.folder"

// storeAPI is the narrow slice of the object store the uploader logic needs.
// The Drive-backed implementation below is the only production one; tests
// substitute a deterministic fake.
type storeAPI interface {
	About(ctx context.Context) (string, error)
	FindFolder(ctx context.Context, name, parentID string) (string, error)
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
	Upload(ctx context.Context, folderID, name, localPath string) (*model.RemoteFile, error)
	ListOlderThan(ctx context.Context, folderID string, before time.Time) ([]model.RemoteFile, error)
	Delete(ctx context.Context, fileID string) error
}

// driveOps implements storeAPI against the Drive v3 API.
type driveOps struct {
	svc *drive.Service
}

func newDriveOps(svc *drive.Service) *driveOps {
	return &driveOps{svc: svc}
}

// About is a cheap liveness probe; returns the authenticated user's email.
func (d *driveOps) About(ctx context.Context) (string, error) {
	about, err := d.svc.About.Get().Context(ctx).Fields("user").Do()
	if err != nil {
		return "", fmt.Errorf("drive about: %w", err)
	}
	if about.User == nil {
		return "", nil
	}
	return about.User.EmailAddress, nil
}

// FindFolder searches for a non-trashed folder by exact name, optionally under
// a parent. Returns "" when absent.
func (d *driveOps) FindFolder(ctx context.Context, name, parentID string) (string, error) {
	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQuery(name), folderMimeType)
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}

	list, err := d.svc.Files.List().
		Context(ctx).
		Q(query).
		PageSize(1).
		Fields("files(id, name)").
		Do()
	if err != nil {
		return "", fmt.Errorf("search folder %q: %w", name, err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func (d *driveOps) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	meta := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
	}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	folder, err := d.svc.Files.Create(meta).Context(ctx).Fields("id").Do()
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}
	return folder.Id, nil
}

// Upload streams a local file into the given folder.
func (d *driveOps) Upload(ctx context.Context, folderID, name, localPath string) (*model.RemoteFile, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	meta := &drive.File{
		Name:    name,
		Parents: []string{folderID},
	}
	created, err := d.svc.Files.Create(meta).
		Context(ctx).
		Media(f).
		Fields("id, name, createdTime").
		Do()
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}

	createdAt, _ := time.Parse(time.RFC3339, created.CreatedTime)
	return &model.RemoteFile{
		ID:        created.Id,
		Name:      created.Name,
		CreatedAt: createdAt,
	}, nil
}

// ListOlderThan lists files directly under folderID created strictly before
// the given time. The time filter is pushed into the Drive query.
func (d *driveOps) ListOlderThan(ctx context.Context, folderID string, before time.Time) ([]model.RemoteFile, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false and createdTime < '%s'",
		escapeQuery(folderID), before.UTC().Format(time.RFC3339))

	var files []model.RemoteFile
	pageToken := ""
	for {
		call := d.svc.Files.List().
			Context(ctx).
			Q(query).
			Fields("nextPageToken, files(id, name, createdTime)")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list folder files: %w", err)
		}
		for _, f := range list.Files {
			createdAt, _ := time.Parse(time.RFC3339, f.CreatedTime)
			files = append(files, model.RemoteFile{ID: f.Id, Name: f.Name, CreatedAt: createdAt})
		}
		pageToken = list.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return files, nil
}

func (d *driveOps) Delete(ctx context.Context, fileID string) error {
	if err := d.svc.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete file %s: %w", fileID, err)
	}
	return nil
}

// escapeQuery escapes single quotes for Drive query string literals.
func escapeQuery(s string) string {
	return strings.ReplaceAll(s, `'`, `\'`)
}
