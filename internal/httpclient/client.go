// Package httpclient performs the authenticated GET and HEAD requests every
// source resolver builds on.
package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/stacklok/artifact-sync/internal/config"
	"github.com/stacklok/artifact-sync/internal/versions"
)

const (
	// DefaultTimeout bounds a whole request including reading the body
	DefaultTimeout = 10 * time.Minute

	// MaxResponseSize is the maximum size GetBytes buffers in memory (100MB)
	MaxResponseSize = 100 * 1024 * 1024
)

// NewTransport builds a traced transport with its own connection pool.
// Proxies come from the environment.
func NewTransport() http.RoundTripper {
	return otelhttp.NewTransport(&http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	})
}

// Client issues requests on behalf of repositories
type Client struct {
	client     *http.Client
	retries    uint
	userAgent  string
	newBackOff func() backoff.BackOff
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout. Zero keeps DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithTransport replaces the transport NewClient would build
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.client.Transport = rt
	}
}

// WithRetries repeats requests that failed at the transport level or with a
// 5xx or 429 status up to n extra times with exponential backoff.
func WithRetries(n uint) Option {
	return func(c *Client) {
		c.retries = n
	}
}

// NewClient creates a Client. Unless WithTransport is given it owns a new
// transport, so resolvers sharing a connection pool must share the Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		userAgent: versions.UserAgent(),
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client.Transport == nil {
		c.client.Transport = NewTransport()
	}
	return c
}

// ResolveURL turns an item locator into an absolute URL. A ref that already
// carries a scheme is returned unchanged; anything else is joined onto the
// repository base URL with exactly one slash between them.
func ResolveURL(repo *config.RepositoryConfig, ref string) string {
	if strings.Contains(ref, "://") || repo == nil {
		return ref
	}
	return strings.TrimSuffix(repo.URL, "/") + "/" + strings.TrimPrefix(ref, "/")
}

// Get performs a GET request and returns the response on status 200.
// The caller must close the response body.
func (c *Client) Get(ctx context.Context, url string, repo *config.RepositoryConfig) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, url, repo)
}

// Head performs a HEAD request and returns the response headers on status 200
func (c *Client) Head(ctx context.Context, url string, repo *config.RepositoryConfig) (http.Header, error) {
	resp, err := c.do(ctx, http.MethodHead, url, repo)
	if err != nil {
		return nil, err
	}
	_ = resp.Body.Close()
	return resp.Header, nil
}

// GetBytes performs a GET request and buffers the whole body
func (c *Client) GetBytes(ctx context.Context, url string, repo *config.RepositoryConfig) ([]byte, error) {
	resp, err := c.Get(ctx, url, repo)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Check Content-Length header if available
	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes",
			resp.ContentLength, MaxResponseSize)
	}

	// +1 to detect if limit exceeded
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes", MaxResponseSize)
	}

	return body, nil
}

func (c *Client) do(ctx context.Context, method, url string, repo *config.RepositoryConfig) (*http.Response, error) {
	auth := ""
	if repo != nil {
		var err error
		if auth, err = repo.AuthorizationHeader(); err != nil {
			return nil, fmt.Errorf("failed to build authorization for %s: %w", url, err)
		}
	}

	attempt := func() (*http.Response, error) {
		resp, err := c.once(ctx, method, url, auth)
		if err != nil && !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}

	if c.retries == 0 {
		return c.once(ctx, method, url, auth)
	}

	return backoff.Retry(ctx, attempt,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.retries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.WarnContext(ctx, "Retrying request", "method", method, "url", url, "in", next, "error", err)
		}),
	)
}

func (c *Client) once(ctx context.Context, method, url, auth string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	slog.DebugContext(ctx, "HTTP request", "method", method, "url", url)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, NewHTTPError(resp.StatusCode, url, resp.Status)
	}

	return resp, nil
}
