// internal/statusapi/client.go
package statusapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// DefaultBaseURL is the public mcsrvstat.us endpoint.
const DefaultBaseURL = "https://api.mcsrvstat.us"

// maxBodyBytes bounds the status document (icons are inline base64).
const maxBodyBytes = 4 << 20

// Client talks to the status API.
// One Lookup = one HTTP GET. No retries, no caching.
type Client struct {
	baseURL   string
	userAgent string
	http      *retryablehttp.Client
}

// Config is minimal transport config.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration // 0 keeps the transport default

	// HTTPClient replaces the underlying client. Used by tests.
	HTTPClient *http.Client
}

// New creates a status API client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("status API: invalid base url: %w", err)
	}
	if cfg.UserAgent == "" {
		return nil, errors.New("status API: user agent required")
	}

	rhc := retryablehttp.NewClient()
	rhc.RetryMax = 0
	rhc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rhc.Logger = slog.Default()
	rhc.ResponseLogHook = logResponse
	if cfg.HTTPClient != nil {
		rhc.HTTPClient = cfg.HTTPClient
	}
	if cfg.Timeout > 0 {
		rhc.HTTPClient.Timeout = cfg.Timeout
	}

	return &Client{
		baseURL:   base,
		userAgent: cfg.UserAgent,
		http:      rhc,
	}, nil
}

// LookupURL returns the endpoint queried for t.
func (c *Client) LookupURL(t Target) string {
	variant := "/3/"
	if t.Bedrock {
		variant = "/bedrock/3/"
	}
	return c.baseURL + variant + url.PathEscape(strings.TrimSpace(t.Host)) + ":" + strconv.Itoa(t.Port)
}

// Lookup fetches the status of one server.
//
// Transport failures are returned unwrapped so callers can classify them.
// A non-2xx answer yields *HTTPError; an unusable body yields ErrMalformed.
func (c *Client) Lookup(ctx context.Context, t Target) (*Result, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.LookupURL(t), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	return decodeStatus(body)
}
