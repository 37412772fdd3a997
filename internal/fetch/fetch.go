package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Sentinel errors for the fetch failure modes. Callers match these with
// errors.Is; the wrapped message carries the URL for logging only.
var (
	ErrMalformedURL = errors.New("fetch: malformed url")
	ErrTimeout      = errors.New("fetch: request timed out")
	ErrUnavailable  = errors.New("fetch: site unavailable")
)

// Client fetches raw markup from the resale site. RA varies responses
// for bare default clients, so every request carries a browser-like
// header set.
type Client struct {
	http      *http.Client
	userAgent string
	cache     *Cache
}

func NewClient(timeout time.Duration, userAgent string) *Client {
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// WithCache attaches a page cache. Cache failures fall through to a
// direct fetch.
func (c *Client) WithCache(cache *Cache) *Client {
	c.cache = cache
	return c
}

// Fetch issues a GET against rawurl and returns the response body. No
// retries; the next scheduled cycle is the retry path.
func (c *Client) Fetch(ctx context.Context, rawurl string) (string, error) {
	parsed, err := url.Parse(rawurl)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, rawurl)
	}

	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, rawurl); ok {
			return body, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, rawurl)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", classify(rawurl, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %q returned status %d", ErrUnavailable, rawurl, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classify(rawurl, err)
	}

	if c.cache != nil {
		c.cache.Set(ctx, rawurl, string(body))
	}

	return string(body), nil
}

func classify(rawurl string, err error) error {
	var netErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %q: %v", ErrTimeout, rawurl, err)
	}
	return fmt.Errorf("%w: %q: %v", ErrUnavailable, rawurl, err)
}
