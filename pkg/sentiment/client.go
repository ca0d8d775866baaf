package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/alphaflow/blobkit/pkg/logging"
)

// DefaultURL is the public crypto fear & greed index, full history.
const DefaultURL = "https://api.alternative.me/fng/?limit=0"

// Fields removed from every record before it becomes a row.
const (
	fieldTimestamp       = "timestamp"
	fieldTimeUntilUpdate = "time_until_update"
)

// Reporter receives the diagnostic line for a failed fetch.
type Reporter interface {
	Warnf(format string, args ...interface{})
}

// Client fetches the fear & greed index.
type Client struct {
	url        string
	httpClient *http.Client
	logger     logging.Logger
	reporter   Reporter
}

// Option configures a Client.
type Option func(*Client)

// WithURL overrides the index endpoint.
func WithURL(url string) Option {
	return func(c *Client) { c.url = url }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithReporter sets where the failed-fetch diagnostic is printed.
func WithReporter(r Reporter) Option {
	return func(c *Client) { c.reporter = r }
}

// NewClient creates an index client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		url:        DefaultURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type response struct {
	Data []map[string]interface{} `json:"data"`
}

// FetchIndex downloads the index and returns it as a table.
// A non-200 response is not an error: it is reported and FetchIndex returns (nil, nil).
func (c *Client) FetchIndex(ctx context.Context) (*Table, error) {
	logger := c.logger.With(
		logging.NewField("operation", "sentiment.fetch"),
		logging.NewField("url", c.url),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sentiment index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("Sentiment index request failed", logging.NewField("status", resp.StatusCode))
		if c.reporter != nil {
			c.reporter.Warnf("Failed to retrieve data, status code: %d", resp.StatusCode)
		}
		return nil, nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	var body response
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode sentiment index: %w", err)
	}

	table, err := buildTable(body.Data)
	if err != nil {
		return nil, err
	}

	logger.Debug("Sentiment index fetched", logging.NewField("rows", table.Len()))
	return table, nil
}

func buildTable(records []map[string]interface{}) (*Table, error) {
	table := &Table{Columns: []string{}, Rows: make([]Row, 0, len(records))}
	seen := make(map[string]bool)

	for i, record := range records {
		raw, ok := record[fieldTimestamp]
		if !ok {
			return nil, fmt.Errorf("record %d: missing %s", i, fieldTimestamp)
		}
		date, err := parseUnixSeconds(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		values := make(map[string]string, len(record))
		for key, v := range record {
			if key == fieldTimestamp || key == fieldTimeUntilUpdate {
				continue
			}
			values[key] = stringify(v)
			if !seen[key] {
				seen[key] = true
				table.Columns = append(table.Columns, key)
			}
		}
		table.Rows = append(table.Rows, Row{Date: date, Values: values})
	}

	sort.Strings(table.Columns)
	return table, nil
}

func parseUnixSeconds(v interface{}) (time.Time, error) {
	var secs int64
	var err error

	switch t := v.(type) {
	case string:
		secs, err = strconv.ParseInt(t, 10, 64)
	case json.Number:
		secs, err = t.Int64()
	default:
		err = fmt.Errorf("unexpected type %T", v)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %v: %w", fieldTimestamp, v, err)
	}
	return time.Unix(secs, 0).UTC(), nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(t); err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(bytes.TrimSpace(buf.Bytes()))
	}
}
