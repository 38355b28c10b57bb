package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hryarih32/mediacatalogbot/internal/parser"
)

// maxBody caps how much of a response is read
const maxBody = 16 << 20

// ClientConfig configures an HTTPClient
type ClientConfig struct {
	Service string
	BaseURL string // e.g., http://localhost:7878
	Header  http.Header
	Timeout time.Duration
	Retries int           // extra attempts for idempotent requests
	Backoff time.Duration // base delay between attempts
}

// HTTPClient is a JSON API client that classifies failures into Kinds
type HTTPClient struct {
	cfg        ClientConfig
	httpClient *http.Client
	sanitizer  *parser.Sanitizer
	logger     *slog.Logger
}

// Request describes one API call
type Request struct {
	Op         string
	Method     string
	Path       string
	Query      url.Values
	Body       any
	Idempotent bool // retried on retryable failures
}

// NewHTTPClient creates a new API client
func NewHTTPClient(cfg ClientConfig, logger *slog.Logger) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &HTTPClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		sanitizer: parser.NewSanitizer(),
		logger:    logger.With("component", cfg.Service+"_client"),
	}
}

// Configured returns true if the client has somewhere to send requests
func (c *HTTPClient) Configured() bool {
	return c.cfg.BaseURL != ""
}

// Service returns the service name
func (c *HTTPClient) Service() string {
	return c.cfg.Service
}

// Do performs req and decodes a JSON response into out (if non-nil).
// Idempotent requests are retried on retryable and timeout failures.
func (c *HTTPClient) Do(ctx context.Context, req Request, out any) error {
	if !c.Configured() {
		return NotConfigured(c.cfg.Service)
	}

	attempts := 1
	if req.Idempotent {
		attempts += c.cfg.Retries
	}

	for attempt := 1; ; attempt++ {
		err := c.do(ctx, req, out)
		if err == nil {
			return nil
		}

		kind := KindOf(err)
		if attempt >= attempts || (kind != KindRetryable && kind != KindTimeout) || ctx.Err() != nil {
			return err
		}

		wait := c.cfg.Backoff * time.Duration(attempt)
		c.logger.Warn("request failed, retrying", "op", req.Op, "attempt", attempt, "wait", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

// Probe performs a GET health check and reports any failure as Unavailable
func (c *HTTPClient) Probe(ctx context.Context, path string, out any) error {
	if !c.Configured() {
		return NotConfigured(c.cfg.Service)
	}
	err := c.do(ctx, Request{Op: "health", Method: http.MethodGet, Path: path}, out)
	if err != nil {
		return Unavailable(c.cfg.Service, err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, req Request, out any) error {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return &Error{Kind: KindInternal, Service: c.cfg.Service, Op: req.Op, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	u := c.cfg.BaseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &Error{Kind: KindInternal, Service: c.cfg.Service, Op: req.Op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, values := range c.cfg.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return c.transportError(ctx, req.Op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return c.transportError(ctx, req.Op, fmt.Errorf("failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return &Error{Kind: KindInternal, Service: c.cfg.Service, Op: req.Op, Status: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
		}
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		reason := c.sanitizer.Sanitize(respBody, resp.Header.Get("Content-Type"))
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return Rejected(c.cfg.Service, req.Op, resp.StatusCode, reason)
	default:
		return &Error{
			Kind:    KindRetryable,
			Service: c.cfg.Service,
			Op:      req.Op,
			Status:  resp.StatusCode,
			Reason:  c.sanitizer.Sanitize(respBody, resp.Header.Get("Content-Type")),
		}
	}
}

// transportError classifies a failure that produced no response
func (c *HTTPClient) transportError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return &Error{Kind: KindInternal, Service: c.cfg.Service, Op: op, Err: err}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTimeout, Service: c.cfg.Service, Op: op, Err: err}
	}
	return &Error{Kind: KindRetryable, Service: c.cfg.Service, Op: op, Err: err}
}
