package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrUnfilteredDelete is returned when a delete carries no row filter.
var ErrUnfilteredDelete = errors.New("delete requires at least one filter")

// APIError represents an error response from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("postgrest error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// response is a read body with the headers that matter to callers.
type response struct {
	status int
	header http.Header
	body   []byte
}

// request describes one call against a table.
type request struct {
	method  string
	table   string
	query   url.Values
	body    []byte
	headers map[string]string
}

// doRequest performs a single HTTP request.
func (c *Client) doRequest(ctx context.Context, r request) (*response, error) {
	fullURL := c.baseURL + r.table
	if len(r.query) > 0 {
		fullURL += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, data),
			Body:       data,
		}
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

// doWithRetry performs a request with exponential backoff retry.
func (c *Client) doWithRetry(ctx context.Context, r request) (*response, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)+1))
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
				"method", r.method,
				"table", r.table,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		resp, err := c.doRequest(ctx, r)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// Select reads rows from table into out, which must be a pointer to a slice.
func (c *Client) Select(ctx context.Context, table string, q *Query, out any) error {
	resp, err := c.doWithRetry(ctx, request{
		method: http.MethodGet,
		table:  table,
		query:  q.Values(),
	})
	if err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}

	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("select %s: unmarshal response: %w", table, err)
	}
	return nil
}

// Insert writes rows to table in chunks. A non-empty onConflict turns the
// insert into an upsert keyed on that column. It returns the number of rows sent.
func Insert[T any](ctx context.Context, c *Client, table string, rows []T, onConflict string) (int, error) {
	if len(rows) == 0 {
		c.logger.Warn("no rows to insert", "table", table)
		return 0, nil
	}

	sent := 0
	for start := 0; start < len(rows); start += c.chunkSize {
		end := min(start+c.chunkSize, len(rows))
		chunk, err := json.Marshal(rows[start:end])
		if err != nil {
			return sent, fmt.Errorf("insert %s: marshal rows: %w", table, err)
		}
		if err := c.insertChunk(ctx, table, chunk, onConflict); err != nil {
			return sent, err
		}
		sent += end - start
	}

	c.logger.Info("inserted rows", "table", table, "rows", sent, "upsert", onConflict != "")
	return sent, nil
}

func (c *Client) insertChunk(ctx context.Context, table string, chunk []byte, onConflict string) error {
	r := request{
		method:  http.MethodPost,
		table:   table,
		body:    chunk,
		headers: map[string]string{"Prefer": "return=minimal"},
	}
	if onConflict != "" {
		r.query = url.Values{"on_conflict": {onConflict}}
		r.headers["Prefer"] = "return=minimal,resolution=merge-duplicates"
	}

	resp, err := c.doWithRetry(ctx, r)
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	if resp.status != http.StatusCreated && resp.status != http.StatusNoContent {
		return fmt.Errorf("insert %s: %w", table, &APIError{
			StatusCode: resp.status,
			Message:    "unexpected status",
			Body:       resp.body,
		})
	}
	return nil
}

// Delete removes the rows matched by q and returns how many were deleted.
func (c *Client) Delete(ctx context.Context, table string, q *Query) (int, error) {
	if !q.HasFilter() {
		return 0, fmt.Errorf("delete %s: %w", table, ErrUnfilteredDelete)
	}

	resp, err := c.doWithRetry(ctx, request{
		method:  http.MethodDelete,
		table:   table,
		query:   q.Values(),
		headers: map[string]string{"Prefer": "return=representation"},
	})
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}

	n := deletedCount(resp)
	c.logger.Info("deleted rows", "table", table, "rows", n)
	return n, nil
}

// deletedCount reads the number of deleted rows from the returned array,
// falling back to the total in Content-Range.
func deletedCount(resp *response) int {
	var rows []json.RawMessage
	if len(resp.body) > 0 && json.Unmarshal(resp.body, &rows) == nil {
		return len(rows)
	}
	cr := resp.header.Get("Content-Range")
	if i := strings.LastIndexByte(cr, '/'); i >= 0 {
		if n, err := strconv.Atoi(cr[i+1:]); err == nil {
			return n
		}
	}
	return 0
}

// errorMessage extracts the backend's message field, falling back to the status text.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	return http.StatusText(status)
}
