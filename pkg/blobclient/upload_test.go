package blobclient

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/alphaflow/blobkit/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobKey(t *testing.T) {
	assert.Equal(t, "p/a.txt", BlobKey("p", "a.txt"))
	assert.Equal(t, "p/sub/b.txt", BlobKey("p/", filepath.Join("sub", "b.txt")))
	assert.Equal(t, "a.txt", BlobKey("", "a.txt"))
}

func TestPlanUpload(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.txt":            "a",
		"sub/b.txt":        "b",
		"sub/deeper/c.bin": "c",
	})

	items, err := PlanUpload(root, "p")
	require.NoError(t, err)

	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.BlobKey)
		assert.FileExists(t, item.LocalPath)
	}
	assert.Equal(t, []string{"p/a.txt", "p/sub/b.txt", "p/sub/deeper/c.bin"}, keys)
}

func planKeys(items []UploadItem) []string {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.BlobKey)
	}
	return keys
}

func TestPlanUpload_Symlinks(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "a", "sub/b.txt": "b"})
	outside := writeTree(t, map[string]string{"linked.txt": "l", "dir/c.txt": "c"})
	if err := os.Symlink(filepath.Join(outside, "linked.txt"), filepath.Join(root, "file-link.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(outside, "dir"), filepath.Join(root, "dir-link")))

	t.Run("linked file is followed and linked directory is skipped", func(t *testing.T) {
		items, err := PlanUpload(root, "p")
		require.NoError(t, err)
		assert.Equal(t, []string{"p/a.txt", "p/file-link.txt", "p/sub/b.txt"}, planKeys(items))
	})

	t.Run("linked root is walked", func(t *testing.T) {
		link := filepath.Join(t.TempDir(), "root-link")
		require.NoError(t, os.Symlink(root, link))

		items, err := PlanUpload(link, "p")
		require.NoError(t, err)
		assert.Equal(t, []string{"p/a.txt", "p/file-link.txt", "p/sub/b.txt"}, planKeys(items))
		for _, item := range items {
			assert.FileExists(t, item.LocalPath)
		}
	})
}

func TestUploadPath_SymlinkedDirectory(t *testing.T) {
	client, backend, _ := newTestClient(t, "data")
	ctx := context.Background()
	root := writeTree(t, map[string]string{"a.txt": "alpha", "sub/b.txt": "beta"})
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(root, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	uploaded, err := client.UploadPath(ctx, link, "data", "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"p/a.txt", "p/sub/b.txt"}, uploaded)

	data, err := backend.DownloadBlob(ctx, "data", "p/sub/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "beta", string(data))
}

func TestUploadPath_Directory(t *testing.T) {
	client, backend, _ := newTestClient(t, "data")
	ctx := context.Background()
	root := writeTree(t, map[string]string{"a.txt": "alpha", "sub/b.txt": "beta"})

	uploaded, err := client.UploadPath(ctx, root, "data", "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"p/a.txt", "p/sub/b.txt"}, uploaded)

	blobs, err := backend.ListBlobs(ctx, "data", "")
	require.NoError(t, err)
	require.Len(t, blobs, 2)
	assert.Equal(t, "p/a.txt", blobs[0].Name)
	assert.Equal(t, "p/sub/b.txt", blobs[1].Name)

	data, err := backend.DownloadBlob(ctx, "data", "p/sub/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "beta", string(data))
}

func TestUploadPath_ExistingKeyFailsDirectoryUpload(t *testing.T) {
	client, backend, _ := newTestClient(t, "data")
	ctx := context.Background()
	root := writeTree(t, map[string]string{"a.txt": "alpha", "sub/b.txt": "beta"})

	require.NoError(t, backend.UploadBlob(ctx, "data", "p/sub/b.txt", []byte("keep me")))

	plan, err := PlanUpload(root, "p")
	require.NoError(t, err)
	require.Len(t, plan, 2)

	uploaded, err := client.UploadPath(ctx, root, "data", "p")
	require.Error(t, err)
	assert.True(t, errors.IsAlreadyExists(err))

	// Everything uploaded precedes the failing item in the plan.
	failing := -1
	for i, item := range plan {
		if item.BlobKey == "p/sub/b.txt" {
			failing = i
		}
	}
	require.NotEqual(t, -1, failing)
	expected := []string{}
	for _, item := range plan[:failing] {
		expected = append(expected, item.BlobKey)
	}
	assert.Equal(t, expected, uploaded)

	data, err := backend.DownloadBlob(ctx, "data", "p/sub/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestUploadPath_StopsAtFirstFailure(t *testing.T) {
	client, backend, _ := newTestClient(t, "data")
	ctx := context.Background()
	root := writeTree(t, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})

	require.NoError(t, backend.UploadBlob(ctx, "data", "p/b.txt", []byte("old")))

	uploaded, err := client.UploadPath(ctx, root, "data", "p")
	assert.True(t, errors.IsAlreadyExists(err))
	assert.Equal(t, []string{"p/a.txt"}, uploaded)

	presence, err := backend.BlobStatus(ctx, "data", "p/c.txt")
	require.NoError(t, err)
	assert.Equal(t, Absent, presence, "files after the failure are not uploaded")
}

func TestUploadPath_SingleFile(t *testing.T) {
	client, backend, reporter := newTestClient(t, "data")
	ctx := context.Background()
	root := writeTree(t, map[string]string{"report.csv": "x,y"})
	file := filepath.Join(root, "report.csv")

	uploaded, err := client.UploadPath(ctx, file, "data", "reports/today.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"reports/today.csv"}, uploaded)
	assert.Contains(t, reporter.lines, "success: Uploaded file "+file+" to data/reports/today.csv")

	uploaded, err = client.UploadPath(ctx, file, "data", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"report.csv"}, uploaded)

	presence, err := backend.BlobStatus(ctx, "data", "report.csv")
	require.NoError(t, err)
	assert.Equal(t, Present, presence)
}

func TestUploadPath_RelativePath(t *testing.T) {
	client, _, _ := newTestClient(t, "data")
	root := writeTree(t, map[string]string{"dir/a.txt": "a"})

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	uploaded, err := client.UploadPath(context.Background(), "dir", "data", "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"x/a.txt"}, uploaded)
}

func TestUploadPath_MissingContainerCheckedFirst(t *testing.T) {
	client, _, _ := newTestClient(t)
	root := writeTree(t, map[string]string{"a.txt": "a"})

	uploaded, err := client.UploadPath(context.Background(), root, "missing", "p")
	assert.True(t, errors.IsNotFound(err))
	assert.Empty(t, uploaded)
}

func TestUploadPath_MissingLocalPath(t *testing.T) {
	client, _, _ := newTestClient(t, "data")

	_, err := client.UploadPath(context.Background(), filepath.Join(t.TempDir(), "nope"), "data", "p")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
