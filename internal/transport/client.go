package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds a single request when no timeout is configured.
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 16 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client issues JSON requests against the backend API.
// It makes exactly one attempt per call.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New creates a transport client. BaseURL should include the /api prefix.
func New(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		logger:  logger,
	}
}

// BaseURL returns the configured API base.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Call POSTs payload as JSON to the endpoint and decodes the response into out.
// out may be nil when only the status matters.
func (c *Client) Call(ctx context.Context, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &Error{Endpoint: endpoint, Kind: KindTransport, Cause: fmt.Errorf("encode request: %w", err)}
	}
	return c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body), out)
}

// Get issues a GET to the endpoint and decodes the response into out (if non-nil).
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, out any) error {
	url := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return &Error{Endpoint: endpoint, Kind: KindTransport, Cause: err}
	}
	reqID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("endpoint", endpoint),
			zap.String("request_id", reqID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return &Error{Endpoint: endpoint, Kind: KindTransport, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.logger.Debug("request done",
		zap.String("endpoint", endpoint),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(raw)),
		zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		return &Error{Endpoint: endpoint, Kind: KindTransport, Status: resp.StatusCode, Cause: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		cause := fmt.Errorf("unexpected status %s", resp.Status)
		if msg := serverError(raw); msg != "" {
			cause = fmt.Errorf("unexpected status %s: %s", resp.Status, msg)
		}
		return &Error{Endpoint: endpoint, Kind: KindTransport, Status: resp.StatusCode, Cause: cause}
	}

	if msg := serverError(raw); msg != "" {
		return &Error{Endpoint: endpoint, Kind: KindServer, Status: resp.StatusCode, Cause: serverMessage(msg)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Endpoint: endpoint, Kind: KindTransport, Status: resp.StatusCode, Cause: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// serverError extracts a non-empty "error" string from a JSON object body.
func serverError(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ""
	}
	var probe struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return ""
	}
	s, ok := probe.Error.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
