package blobclient

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/alphaflow/blobkit/pkg/logging"
)

// UploadItem pairs a local file with the blob key it is uploaded to.
type UploadItem struct {
	LocalPath string
	BlobKey   string
}

// BlobKey joins a destination prefix and a local relative path into a blob key.
// Keys always use forward slashes.
func BlobKey(prefix, relPath string) string {
	return path.Join(prefix, filepath.ToSlash(relPath))
}

// PlanUpload lists every file under root, in lexical order, with its blob key
// under prefix. A symlinked root is resolved and walked. Below the root,
// symlinked files are followed and symlinked directories are skipped.
func PlanUpload(root, prefix string) ([]UploadItem, error) {
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	root = resolved

	items := []UploadItem{}
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(p)
			if err != nil || !target.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		items = append(items, UploadItem{LocalPath: p, BlobKey: BlobKey(prefix, rel)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return items, nil
}

// UploadPath uploads a file or a whole directory tree.
//
// A file goes to blob key prefix, or to its base name when prefix is empty.
// A directory is uploaded file by file under prefix, keeping the tree shape.
// The first failing file stops the upload; the keys uploaded before it are
// returned along with the error.
func (c *Client) UploadPath(ctx context.Context, localPath, container, prefix string) ([]string, error) {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", localPath, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", localPath, err)
	}
	if info.IsDir() {
		if abs, err = filepath.EvalSymlinks(abs); err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", localPath, err)
		}
	}

	if err := c.requireContainer(ctx, container); err != nil {
		return nil, err
	}

	if !info.IsDir() {
		key := prefix
		if key == "" {
			key = filepath.Base(abs)
		}
		if err := c.uploadFile(ctx, abs, container, key); err != nil {
			return nil, err
		}
		return []string{key}, nil
	}

	items, err := PlanUpload(abs, prefix)
	if err != nil {
		return nil, err
	}

	logger := c.logger.With(
		logging.NewField("operation", "blob.upload_dir"),
		logging.NewField("container", container),
		logging.NewField("prefix", prefix),
	)
	logger.Info("Uploading directory", logging.NewField("files", len(items)))

	uploaded := make([]string, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return uploaded, err
		}
		if err := c.uploadFile(ctx, item.LocalPath, container, item.BlobKey); err != nil {
			logger.Error("Directory upload stopped",
				logging.NewField("blob", item.BlobKey),
				logging.NewField("uploaded", len(uploaded)),
				logging.NewField("error", err),
			)
			c.reporter.Errorf("Failed to upload %s: %v", item.LocalPath, err)
			return uploaded, err
		}
		uploaded = append(uploaded, item.BlobKey)
	}

	logger.Info("Directory upload completed", logging.NewField("uploaded", len(uploaded)))
	return uploaded, nil
}
