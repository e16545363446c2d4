// Package transport is the HTTP collaborator of the mapping layer: it builds
// API URLs, executes requests and exposes Link-header pagination.
package transport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-omeka-mapper/internal/metrics"
	"github.com/google/uuid"
)

// Content types used for writes. Creation uses JSON-LD, updates plain JSON.
const (
	ContentTypeCreate = "application/ld+json"
	ContentTypeUpdate = "application/json"
)

const (
	queryKeyIdentity   = "key_identity"
	queryKeyCredential = "key_credential"
	headerRequestID    = "X-Request-ID"
	redacted           = "***"
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is a fully read API response.
type Response struct {
	Status    int
	Header    http.Header
	Body      []byte
	URL       *url.URL
	RequestID string
}

// Client talks to one API root.
type Client struct {
	base          *url.URL
	keyIdentity   string
	keyCredential string
	userAgent     string
	http          Doer
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.http = d }
}

// WithTimeout sets the timeout of the default *http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if hc, ok := c.http.(*http.Client); ok && d > 0 {
			hc.Timeout = d
		}
	}
}

// WithCredentials sets the API key pair sent as query parameters.
func WithCredentials(identity, credential string) Option {
	return func(c *Client) {
		c.keyIdentity = identity
		c.keyCredential = credential
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a Client for the API rooted at api, e.g.
// "https://example.org/api".
func New(api string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(api, "/"))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "parse api url")
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, errors.New("api url must be absolute: "+api, errors.CategoryBadInput)
	}

	c := &Client{
		base:      base,
		userAgent: "go-omeka-mapper",
		http:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "transport")

	return c, nil
}

// URL builds the absolute URL for path below the API root, adding query and
// the configured credentials.
func (c *Client) URL(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")

	q := url.Values{}
	for k, vs := range query {
		q[k] = append([]string(nil), vs...)
	}
	if c.keyIdentity != "" {
		q.Set(queryKeyIdentity, c.keyIdentity)
	}
	if c.keyCredential != "" {
		q.Set(queryKeyCredential, c.keyCredential)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// Request executes method against target and reads the whole body. A body is
// sent with the content type matching the method. Statuses >= 400 are
// returned as errors carrying the status code.
func (c *Client) Request(ctx context.Context, method, target string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "build request")
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", ContentTypeFor(method))
	}

	logTarget := Redact(target)
	if body != nil {
		c.logger.Debug("request", "method", method, "url", logTarget, "request_id", requestID, "payload", string(body))
	} else {
		c.logger.Debug("request", "method", method, "url", logTarget, "request_id", requestID)
	}

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, 0, time.Since(start))
		return nil, errors.Wrap(err, errors.CategoryExternal, method+" "+logTarget).
			WithRequestID(requestID)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	c.metrics.ObserveRequest(method, httpResp.StatusCode, time.Since(start))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "read response body").
			WithRequestID(requestID)
	}

	resp := &Response{
		Status:    httpResp.StatusCode,
		Header:    httpResp.Header,
		Body:      data,
		URL:       req.URL,
		RequestID: requestID,
	}
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		resp.URL = httpResp.Request.URL
	}

	c.logger.Debug("response", "status", resp.Status, "url", logTarget, "request_id", requestID, "bytes", len(data))

	if resp.Status >= http.StatusBadRequest {
		return nil, statusError(method, logTarget, resp)
	}
	return resp, nil
}

// ContentTypeFor returns the request content type used for method.
func ContentTypeFor(method string) string {
	if method == http.MethodPost {
		return ContentTypeCreate
	}
	return ContentTypeUpdate
}

// Redact masks the credential query parameter of raw.
func Redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get(queryKeyCredential) == "" {
		return raw
	}
	q.Set(queryKeyCredential, redacted)
	u.RawQuery = q.Encode()
	return u.String()
}
