package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alphaflow/blobkit/pkg/auth"
	"github.com/alphaflow/blobkit/pkg/blobclient"
	"github.com/alphaflow/blobkit/pkg/config"
	"github.com/alphaflow/blobkit/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	backend *blobclient.MemoryBackend
}

type result struct {
	code   int
	stdout string
	stderr string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	// keep the developer's environment out of the tests
	for _, key := range []string{"AZURE_STORAGE_CONNECTION_STRING", "AZURE_SERVICEBUS_CONNECTION_STRING", "NEW_RELIC_LICENSE_KEY", "RETRY_MAX_ATTEMPTS", "BREAKER_FAILURE_THRESHOLD"} {
		t.Setenv(key, "")
	}
	return &harness{backend: blobclient.NewMemoryBackend()}
}

func (h *harness) run(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := &app{
		stdout: &stdout,
		stderr: &stderr,
		logger: logging.NewNopLogger(),
		newBackend: func(*config.Config, logging.Logger) (blobclient.Backend, error) {
			return h.backend, nil
		},
	}
	full := append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...)
	code := a.execute(context.Background(), full)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestContainerCommands(t *testing.T) {
	h := newHarness(t)

	r := h.run(t, "container", "create", "logs")
	assert.Equal(t, 0, r.code)
	assert.Equal(t, "Container 'logs' created.\n", r.stdout)

	r = h.run(t, "container", "create", "logs")
	assert.Equal(t, 1, r.code)
	assert.Equal(t, "Container 'logs' already exists.\n", r.stdout)
	assert.Empty(t, r.stderr)

	r = h.run(t, "container", "exists", "logs")
	assert.Equal(t, 0, r.code)
	assert.Equal(t, "Container 'logs' exists.\n", r.stdout)

	r = h.run(t, "container", "list")
	assert.Equal(t, "List of containers in the storage account:\n  logs\n", r.stdout)

	r = h.run(t, "container", "delete", "logs")
	assert.Equal(t, 0, r.code)

	r = h.run(t, "container", "delete", "logs")
	assert.Equal(t, 1, r.code)
	assert.Equal(t, "Container 'logs' does not exist.\n", r.stdout)

	r = h.run(t, "container", "list")
	assert.Equal(t, "There are no containers in the storage account.\n", r.stdout)
}

func TestUploadAndBlobCommands(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.backend.CreateContainer(context.Background(), "logs"))

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("beta"), 0o644))

	r := h.run(t, "upload", root, "--container", "logs", "--prefix", "p")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Uploaded 2 blob(s).")

	r = h.run(t, "blob", "list", "logs")
	assert.Equal(t, "List of blobs in the container:\n  p/a.txt\n  p/sub/b.txt\n", r.stdout)

	r = h.run(t, "blob", "list", "logs", "--prefix", "p/sub/")
	assert.Contains(t, r.stdout, "p/sub/b.txt (4 bytes)")

	r = h.run(t, "blob", "get", "logs", "p/a.txt")
	assert.Equal(t, 0, r.code)
	assert.Equal(t, "alpha", r.stdout)

	out := filepath.Join(t.TempDir(), "b.txt")
	r = h.run(t, "blob", "get", "logs", "p/sub/b.txt", "-o", out)
	assert.Equal(t, 0, r.code)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "beta", string(data))

	r = h.run(t, "upload", filepath.Join(root, "a.txt"), "--container", "logs", "--prefix", "p/a.txt")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "Blob 'p/a.txt' already exists.")

	r = h.run(t, "blob", "delete", "logs", "p/a.txt")
	assert.Equal(t, 0, r.code)
	assert.Equal(t, "Blob 'p/a.txt' deleted.\n", r.stdout)

	r = h.run(t, "blob", "delete", "logs", "p/a.txt")
	assert.Equal(t, 1, r.code)
	assert.Equal(t, "Blob 'p/a.txt' does not exist.\n", r.stderr)

	r = h.run(t, "upload", root, "--container", "missing")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "Container 'missing' does not exist.")
}

func TestSentimentCommand(t *testing.T) {
	h := newHarness(t)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"timestamp":"1609459200","value":"50","value_classification":"Neutral","time_until_update":"3600"}]}`))
	}))
	defer upstream.Close()
	t.Setenv("SENTIMENT_URL", upstream.URL)

	r := h.run(t, "sentiment", "--format", "csv")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "date,value,value_classification\n2021-01-01,50,Neutral\n", r.stdout)

	r = h.run(t, "sentiment")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "2021-01-01")
	assert.Contains(t, r.stdout, "Neutral")

	pdf := filepath.Join(t.TempDir(), "index.pdf")
	r = h.run(t, "sentiment", "--format", "pdf", "-o", pdf)
	require.Equal(t, 0, r.code, r.stderr)
	data, err := os.ReadFile(pdf)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))

	r = h.run(t, "sentiment", "--format", "xml")
	assert.Equal(t, 1, r.code)
}

func TestSentimentCommand_UpstreamRefuses(t *testing.T) {
	h := newHarness(t)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer upstream.Close()
	t.Setenv("SENTIMENT_URL", upstream.URL)

	r := h.run(t, "sentiment")
	assert.Equal(t, 1, r.code)
	assert.Equal(t, "Failed to retrieve data, status code: 503\n", r.stdout)
	assert.Empty(t, r.stderr)
}

func TestTokenCommand(t *testing.T) {
	h := newHarness(t)
	secret := "0123456789abcdef0123456789abcdef"

	t.Setenv("AUTH_JWT_SECRET", "")
	r := h.run(t, "token", "--subject", "ci")
	assert.Equal(t, 1, r.code)

	t.Setenv("AUTH_JWT_SECRET", secret)
	r = h.run(t, "token", "--subject", "ci", "--scope", auth.ScopeWrite)
	require.Equal(t, 0, r.code, r.stderr)

	tokens, err := auth.NewTokenService(secret, nil)
	require.NoError(t, err)
	claims, err := tokens.Validate(strings.TrimSpace(r.stdout))
	require.NoError(t, err)
	assert.Equal(t, "ci", claims.Subject)
	assert.True(t, claims.HasScope(auth.ScopeWrite))

	r = h.run(t, "token", "--subject", "ci", "--scope", "admin")
	assert.Equal(t, 1, r.code)
}
