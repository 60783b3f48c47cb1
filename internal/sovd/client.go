package sovd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"sovdscope/internal/config"
	"sovdscope/internal/telemetry"
)

// Client talks to a single SOVD server. Requests are split into three
// timeout classes: short health probes, ordinary data calls, and
// long-running invocation creation.
type Client struct {
	baseURL string
	health  *http.Client
	data    *http.Client
	invoke  *http.Client
	stream  *http.Client
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("server returned %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("server returned %s", e.Status)
}

// IsNotFound reports whether err is an HTTP 404 from the server. Optional
// resource collections treat 404 as "empty", not as an error.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// IsTimeout reports whether err was caused by a request deadline, so the UI
// can distinguish "server unreachable/slow" from "server returned an error".
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}

// NewClient normalizes the server URL and base path and returns a client.
// No network traffic happens here; call Health to probe connectivity.
func NewClient(rawURL, basePath string) (*Client, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("server URL is empty")
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", rawURL, err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: missing host", rawURL)
	}

	base := strings.TrimRight(parsed.Scheme+"://"+parsed.Host+parsed.Path, "/")
	basePath = strings.Trim(basePath, "/")
	if basePath != "" {
		base = base + "/" + basePath
	}

	return &Client{
		baseURL: base,
		health:  &http.Client{Timeout: config.HealthTimeout},
		data:    &http.Client{Timeout: config.DataTimeout},
		invoke:  &http.Client{Timeout: config.InvokeTimeout},
		stream:  &http.Client{}, // no timeout: holds the SSE connection open
	}, nil
}

// BaseURL returns the normalized server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do performs a JSON request and returns the raw response body. Non-2xx
// responses come back as *StatusError.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body interface{}) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "sovd.request")
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("sovd.path", path),
	)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		span.RecordError(err)
		if IsTimeout(err) {
			return nil, fmt.Errorf("server did not respond in time: %w", err)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Cleanup, error not critical

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(payload)),
		}
		span.RecordError(statusErr)
		return nil, statusErr
	}

	return payload, nil
}

// getJSON performs a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, hc *http.Client, path string, out interface{}) error {
	payload, err := c.do(ctx, hc, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// decodeItems normalizes a list response: servers return either a bare JSON
// array or an {"items": [...]} envelope.
func decodeItems(payload []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode list response: %w", err)
		}
		return items, nil
	}

	var envelope struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode list envelope: %w", err)
	}
	return envelope.Items, nil
}

// getList performs a GET against a list endpoint and normalizes the
// envelope. A 404 yields an empty list when optional is true.
func (c *Client) getList(ctx context.Context, path string, optional bool) ([]json.RawMessage, error) {
	payload, err := c.do(ctx, c.data, http.MethodGet, path, nil)
	if err != nil {
		if optional && IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return decodeItems(payload)
}

// getEntities fetches a discovery list, applying fallbackType to items the
// server leaves untagged.
func (c *Client) getEntities(ctx context.Context, path string, fallbackType EntityType) ([]Entity, error) {
	items, err := c.getList(ctx, path, true)
	if err != nil {
		return nil, err
	}

	entities := make([]Entity, 0, len(items))
	for _, raw := range items {
		var item wireItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to decode entity from %s: %w", path, err)
		}
		entities = append(entities, item.entity(fallbackType))
	}
	return entities, nil
}
