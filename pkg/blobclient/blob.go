package blobclient

import (
	"context"
)

// Backend is the storage capability the Client drives.
// Implementations translate missing targets to errors.ErrNotFound and
// create-only conflicts to errors.ErrAlreadyExists; anything else is returned raw.
type Backend interface {
	// CreateContainer creates an empty container.
	CreateContainer(ctx context.Context, name string) error

	// DeleteContainer deletes a container together with its blobs.
	DeleteContainer(ctx context.Context, name string) error

	// ListContainers returns every container name in the account.
	ListContainers(ctx context.Context) ([]string, error)

	// ContainerStatus reports whether a container exists.
	ContainerStatus(ctx context.Context, name string) (Presence, error)

	// ListBlobs lists blobs in a container with optional prefix.
	ListBlobs(ctx context.Context, container, prefix string) ([]BlobInfo, error)

	// BlobStatus reports whether a blob exists.
	BlobStatus(ctx context.Context, container, blobName string) (Presence, error)

	// UploadBlob writes a new blob. It never overwrites an existing one.
	UploadBlob(ctx context.Context, container, blobName string, data []byte) error

	// DownloadBlob returns the full content of a blob.
	DownloadBlob(ctx context.Context, container, blobName string) ([]byte, error)

	// DeleteBlob deletes a single blob.
	DeleteBlob(ctx context.Context, container, blobName string) error
}

// Presence is the result of an existence lookup.
type Presence int

const (
	Absent Presence = iota
	Present
)

func (p Presence) String() string {
	if p == Present {
		return "present"
	}
	return "absent"
}

// BlobInfo contains information about a blob.
type BlobInfo struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ContentType  string `json:"content_type,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	URL          string `json:"url,omitempty"`
}
