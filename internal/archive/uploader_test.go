package archive

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/branchvault/internal/model"
)

// fakeStore is a deterministic in-memory object store.
type fakeStore struct {
	folders       map[string]string // name -> id
	files         []model.RemoteFile
	createCalls   int
	uploadErrFor  map[string]error // by display name
	deleteErrFor  map[string]error // by file id
	deleted       []string
	aboutErr      error
	nextFileIndex int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		folders:      map[string]string{},
		uploadErrFor: map[string]error{},
		deleteErrFor: map[string]error{},
	}
}

func (f *fakeStore) About(ctx context.Context) (string, error) {
	if f.aboutErr != nil {
		return "", f.aboutErr
	}
	return "backups@example.com", nil
}

func (f *fakeStore) FindFolder(ctx context.Context, name, parentID string) (string, error) {
	return f.folders[name], nil
}

func (f *fakeStore) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	f.createCalls++
	id := fmt.Sprintf("folder-%d", f.createCalls)
	f.folders[name] = id
	return id, nil
}

func (f *fakeStore) Upload(ctx context.Context, folderID, name, localPath string) (*model.RemoteFile, error) {
	if err := f.uploadErrFor[name]; err != nil {
		return nil, err
	}
	f.nextFileIndex++
	file := model.RemoteFile{ID: fmt.Sprintf("file-%d", f.nextFileIndex), Name: name, CreatedAt: time.Now()}
	f.files = append(f.files, file)
	return &file, nil
}

func (f *fakeStore) ListOlderThan(ctx context.Context, folderID string, before time.Time) ([]model.RemoteFile, error) {
	var out []model.RemoteFile
	for _, file := range f.files {
		if file.CreatedAt.Before(before) {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeStore) Delete(ctx context.Context, fileID string) error {
	if err := f.deleteErrFor[fileID]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, fileID)
	return nil
}

var uploaderNow = time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

func newTestUploader(store *fakeStore) *driveUploader {
	return &driveUploader{
		api:        store,
		logger:     zerolog.Nop(),
		folderName: "branchvault",
		now:        func() time.Time { return uploaderNow },
	}
}

func TestEnsureFolder_CreatesWhenAbsent(t *testing.T) {
	store := newFakeStore()
	u := newTestUploader(store)

	id, err := u.EnsureFolder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "folder-1", id)
	assert.Equal(t, 1, store.createCalls)
}

func TestEnsureFolder_Idempotent(t *testing.T) {
	store := newFakeStore()
	u := newTestUploader(store)

	first, err := u.EnsureFolder(context.Background())
	require.NoError(t, err)
	second, err := u.EnsureFolder(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.createCalls, "no duplicate folder created")
}

func TestEnsureFolder_FindsExisting(t *testing.T) {
	store := newFakeStore()
	store.folders["branchvault"] = "folder-existing"

	u := newTestUploader(store)
	id, err := u.EnsureFolder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "folder-existing", id)
	assert.Zero(t, store.createCalls)
}

func TestTestConnection(t *testing.T) {
	u := newTestUploader(newFakeStore())
	require.NoError(t, u.TestConnection(context.Background()))

	broken := newFakeStore()
	broken.aboutErr = fmt.Errorf("token expired")
	u = newTestUploader(broken)
	require.Error(t, u.TestConnection(context.Background()))
}

func TestUploadAll_SkipsFailedArtifactsAndNeverAborts(t *testing.T) {
	store := newFakeStore()
	store.uploadErrFor["b.dump"] = fmt.Errorf("quota exceeded")

	u := newTestUploader(store)
	artifacts := []model.BackupArtifact{
		{Success: true, FileName: "a.dump", LocalPath: "/tmp/a.dump", SizeBytes: 100},
		{Success: true, FileName: "b.dump", LocalPath: "/tmp/b.dump", SizeBytes: 200},
		{Success: false, FileName: "c.dump", Error: "dump failed"},
		{Success: true, FileName: "d.dump", LocalPath: "/tmp/d.dump", SizeBytes: 400},
	}

	summary := u.UploadAll(context.Background(), artifacts)
	assert.Equal(t, 2, summary.Uploaded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, int64(500), summary.Bytes)
	require.Len(t, store.files, 2)
	assert.Equal(t, "a.dump", store.files[0].Name)
	assert.Equal(t, "d.dump", store.files[1].Name)
}

func TestUploadAll_Empty(t *testing.T) {
	u := newTestUploader(newFakeStore())
	summary := u.UploadAll(context.Background(), nil)
	assert.Zero(t, summary.Uploaded)
	assert.Zero(t, summary.Failed)
}

func TestCleanupOlderThan_StrictBoundary(t *testing.T) {
	store := newFakeStore()
	cutoff := uploaderNow.AddDate(0, 0, -30)
	store.files = []model.RemoteFile{
		{ID: "f1", Name: "expired.dump", CreatedAt: cutoff.Add(-time.Microsecond)},
		{ID: "f2", Name: "boundary.dump", CreatedAt: cutoff},
		{ID: "f3", Name: "fresh.dump", CreatedAt: uploaderNow.AddDate(0, 0, -1)},
	}

	u := newTestUploader(store)
	deleted, err := u.CleanupOlderThan(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, []string{"f1"}, store.deleted)
}

func TestCleanupOlderThan_DeleteFailureDoesNotAbort(t *testing.T) {
	store := newFakeStore()
	old := uploaderNow.AddDate(0, 0, -31)
	store.files = []model.RemoteFile{
		{ID: "f1", Name: "one.dump", CreatedAt: old},
		{ID: "f2", Name: "two.dump", CreatedAt: old},
		{ID: "f3", Name: "three.dump", CreatedAt: old},
	}
	store.deleteErrFor["f2"] = fmt.Errorf("permission denied")

	u := newTestUploader(store)
	deleted, err := u.CleanupOlderThan(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, []string{"f1", "f3"}, store.deleted)
}
