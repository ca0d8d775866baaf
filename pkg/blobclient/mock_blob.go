package blobclient

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alphaflow/blobkit/pkg/errors"
)

var _ Backend = (*MemoryBackend)(nil)

type memoryBlob struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

// MemoryBackend is an in-memory implementation of Backend for tests and local development.
type MemoryBackend struct {
	containers map[string]map[string]memoryBlob // container -> blobName -> blob
	mu         sync.RWMutex
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		containers: make(map[string]map[string]memoryBlob),
	}
}

func containerNotFound(name string) error {
	return errors.NewNotFoundError(fmt.Sprintf("container '%s' not found", name))
}

func (m *MemoryBackend) CreateContainer(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.containers[name]; ok {
		return errors.NewAlreadyExistsError(fmt.Sprintf("container '%s' already exists", name))
	}
	m.containers[name] = make(map[string]memoryBlob)
	return nil
}

func (m *MemoryBackend) DeleteContainer(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.containers[name]; !ok {
		return containerNotFound(name)
	}
	delete(m.containers, name)
	return nil
}

func (m *MemoryBackend) ListContainers(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.containers))
	for name := range m.containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryBackend) ContainerStatus(ctx context.Context, name string) (Presence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.containers[name]; ok {
		return Present, nil
	}
	return Absent, nil
}

// ListBlobs returns blobs in name order, like the storage service does.
func (m *MemoryBackend) ListBlobs(ctx context.Context, container, prefix string) ([]BlobInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blobs, ok := m.containers[container]
	if !ok {
		return nil, containerNotFound(container)
	}

	result := []BlobInfo{}
	for name, b := range blobs {
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		result = append(result, BlobInfo{
			Name:         name,
			Size:         int64(len(b.data)),
			ContentType:  b.contentType,
			LastModified: b.lastModified.Format(time.RFC3339),
			URL:          fmt.Sprintf("memory://%s/%s", container, name),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MemoryBackend) BlobStatus(ctx context.Context, container, blobName string) (Presence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.containers[container][blobName]; ok {
		return Present, nil
	}
	return Absent, nil
}

func (m *MemoryBackend) UploadBlob(ctx context.Context, container, blobName string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	blobs, ok := m.containers[container]
	if !ok {
		return containerNotFound(container)
	}
	if _, exists := blobs[blobName]; exists {
		return errors.NewAlreadyExistsError(fmt.Sprintf("blob '%s' already exists", blobName))
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	blobs[blobName] = memoryBlob{
		data:         stored,
		contentType:  http.DetectContentType(data),
		lastModified: time.Now().UTC(),
	}
	return nil
}

func (m *MemoryBackend) DownloadBlob(ctx context.Context, container, blobName string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blobs, ok := m.containers[container]
	if !ok {
		return nil, containerNotFound(container)
	}
	b, exists := blobs[blobName]
	if !exists {
		return nil, errors.NewNotFoundError(fmt.Sprintf("blob '%s' not found", blobName))
	}

	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, nil
}

func (m *MemoryBackend) DeleteBlob(ctx context.Context, container, blobName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	blobs, ok := m.containers[container]
	if !ok {
		return containerNotFound(container)
	}
	if _, exists := blobs[blobName]; !exists {
		return errors.NewNotFoundError(fmt.Sprintf("blob '%s' not found", blobName))
	}
	delete(blobs, blobName)
	return nil
}
