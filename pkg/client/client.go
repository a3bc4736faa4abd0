// Package client sends tool invocations to the upstream API.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
	"github.com/ubermorgenland/swagger-mcp/pkg/auth"
	"github.com/ubermorgenland/swagger-mcp/pkg/logging"
	"github.com/ubermorgenland/swagger-mcp/pkg/memory"
	"github.com/ubermorgenland/swagger-mcp/pkg/models"
)

const (
	DefaultTimeout         = 600 * time.Second
	DefaultMaxResponseSize = 50 * 1024 * 1024
)

// Request is one upstream call. Path must already have its parameters
// substituted and escaped.
type Request struct {
	Method models.Method
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Response is a fully read upstream response. Non-2xx statuses are
// responses, not errors.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Doer is what tools need from a client.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Config configures a Client.
type Config struct {
	BaseURL         string
	BasePath        string
	Token           string
	Timeout         time.Duration
	MaxResponseSize int64
	Transport       http.RoundTripper
	Logger          *logging.Logger
}

// Client is safe for concurrent use; the underlying connection pool is shared
// by every tool.
type Client struct {
	baseURL  string
	http     *http.Client
	timeout  time.Duration
	maxBytes int64
	logger   *logging.Logger
}

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, apperrors.Config("invalid base URL", cfg.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, apperrors.Config("base URL must use http or https", cfg.BaseURL)
	}
	if bp := strings.Trim(cfg.BasePath, "/"); bp != "" {
		base += "/" + bp
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxBytes := cfg.MaxResponseSize
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResponseSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewSilent()
	}

	return &Client{
		baseURL: base,
		http: &http.Client{
			Transport: auth.NewRoundTripper(cfg.Transport, auth.NewBearerProvider(cfg.Token)),
		},
		timeout:  timeout,
		maxBytes: maxBytes,
		logger:   logger.WithComponent("client"),
	}, nil
}

// BaseURL returns the effective base URL including any base path.
func (c *Client) BaseURL() string { return c.baseURL }

// URL builds the absolute URL of req.
func (c *Client) URL(req *Request) string {
	path := req.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

// Do sends req and reads the whole response body. Transport failures,
// timeouts and oversized bodies are returned as errors.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.URL(req)
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), target, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("method", string(req.Method)).
			Str("url", target).
			Str("request_id", requestID).
			Dur("duration", time.Since(start)).
			Msg("API request failed")
		return nil, err
	}
	defer resp.Body.Close()

	data, err := memory.ReadAllLimited(ctx, resp.Body, c.maxBytes)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("method", string(req.Method)).
			Str("url", target).
			Int("status", resp.StatusCode).
			Msg("reading API response failed")
		return nil, err
	}

	c.logger.Info().
		Str("method", string(req.Method)).
		Str("url", target).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("duration", elapsed).
		Msg("API request")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Duration:   elapsed,
	}, nil
}
