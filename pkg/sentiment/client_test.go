package sentiment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	lines []string
}

func (r *recordingReporter) Warnf(format string, args ...interface{}) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchIndex_SingleRecord(t *testing.T) {
	server := serve(t, http.StatusOK, `{"data":[{"timestamp":"1609459200","value":"50","time_until_update":"3600"}]}`)

	table, err := NewClient(WithURL(server.URL)).FetchIndex(context.Background())
	require.NoError(t, err)
	require.NotNil(t, table)

	assert.Equal(t, 1, table.Len())
	assert.Equal(t, []string{"value"}, table.Columns)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), table.Rows[0].Date)
	assert.Equal(t, map[string]string{"value": "50"}, table.Rows[0].Values)
	assert.Equal(t, [][]string{{"2021-01-01", "50"}}, table.Records())
	assert.Equal(t, []string{"date", "value"}, table.Header())
}

func TestFetchIndex_FullResponse(t *testing.T) {
	server := serve(t, http.StatusOK, `{
		"name": "Fear and Greed Index",
		"data": [
			{"value": "40", "value_classification": "Fear", "timestamp": "1551225600", "time_until_update": "68499"},
			{"value": 47, "value_classification": "Neutral", "timestamp": 1551139200}
		],
		"metadata": {"error": null}
	}`)

	table, err := NewClient(WithURL(server.URL)).FetchIndex(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"value", "value_classification"}, table.Columns)
	assert.Equal(t, [][]string{
		{"2019-02-27", "40", "Fear"},
		{"2019-02-26", "47", "Neutral"},
	}, table.Records())
}

func TestFetchIndex_Non200ReturnsNoResult(t *testing.T) {
	server := serve(t, http.StatusServiceUnavailable, `oops`)
	reporter := &recordingReporter{}

	table, err := NewClient(WithURL(server.URL), WithReporter(reporter)).FetchIndex(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, table)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, []string{"Failed to retrieve data, status code: 503"}, reporter.lines)
}

func TestFetchIndex_MalformedBody(t *testing.T) {
	server := serve(t, http.StatusOK, `{"data": [`)

	_, err := NewClient(WithURL(server.URL)).FetchIndex(context.Background())
	assert.ErrorContains(t, err, "decode")
}

func TestFetchIndex_BadTimestamp(t *testing.T) {
	server := serve(t, http.StatusOK, `{"data":[{"timestamp":"yesterday","value":"1"}]}`)

	_, err := NewClient(WithURL(server.URL)).FetchIndex(context.Background())
	assert.ErrorContains(t, err, "timestamp")

	server = serve(t, http.StatusOK, `{"data":[{"value":"1"}]}`)
	_, err = NewClient(WithURL(server.URL)).FetchIndex(context.Background())
	assert.ErrorContains(t, err, "missing timestamp")
}

func TestFetchIndex_EmptyData(t *testing.T) {
	server := serve(t, http.StatusOK, `{"data":[]}`)

	table, err := NewClient(WithURL(server.URL)).FetchIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Empty(t, table.Records())
}

func TestFetchIndex_ContextCancelled(t *testing.T) {
	server := serve(t, http.StatusOK, `{"data":[]}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(WithURL(server.URL)).FetchIndex(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", stringify(nil))
	assert.Equal(t, "true", stringify(true))
	assert.Equal(t, `{"a":1}`, stringify(map[string]interface{}{"a": 1}))
}
