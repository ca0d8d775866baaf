package blobclient

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingReporter) add(kind, format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, kind+": "+fmt.Sprintf(format, args...))
}

func (r *recordingReporter) Infof(format string, args ...interface{})    { r.add("info", format, args...) }
func (r *recordingReporter) Successf(format string, args ...interface{}) { r.add("success", format, args...) }
func (r *recordingReporter) Errorf(format string, args ...interface{})   { r.add("error", format, args...) }
func (r *recordingReporter) Itemf(format string, args ...interface{})    { r.add("item", format, args...) }

type operation struct {
	name    string
	outcome error
}

type recordingRecorder struct {
	mu  sync.Mutex
	ops []operation
}

func (r *recordingRecorder) RecordOperation(op, container, blob string, d time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, operation{name: op, outcome: err})
}

// writeTree creates files (relative slash paths) with their contents under a temp dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func newTestClient(t *testing.T, containers ...string) (*Client, *MemoryBackend, *recordingReporter) {
	t.Helper()
	backend := NewMemoryBackend()
	for _, c := range containers {
		require.NoError(t, backend.CreateContainer(context.Background(), c))
	}
	reporter := &recordingReporter{}
	return NewClient(backend, WithReporter(reporter)), backend, reporter
}
