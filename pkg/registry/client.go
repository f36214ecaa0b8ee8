package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jamhq/jam/pkg/cache"
	"github.com/jamhq/jam/pkg/httputil"
)

// DefaultBaseURL is the public npm registry.
const DefaultBaseURL = "https://registry.npmjs.org"

const metadataTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when a package or version doesn't exist in the registry.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")

	// ErrRegistry is returned when the registry responds with an error document.
	ErrRegistry = errors.New("registry error")
)

// Client fetches metadata and tarballs from an npm registry.
// It handles response caching, retry logic, and status mapping.
// The zero value is not usable; construct with [NewClient].
type Client struct {
	http     *http.Client
	download *http.Client
	cache    cache.Cache
	ttl      time.Duration
	baseURL  string
}

// NewClient creates a Client backed by the given response cache.
// Metadata responses are cached for ttl; pass baseURL "" for the public
// registry. Pass a [cache.NullCache] to disable caching.
func NewClient(c cache.Cache, ttl time.Duration, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:     &http.Client{Timeout: metadataTimeout},
		download: &http.Client{},
		cache:    c,
		ttl:      ttl,
		baseURL:  baseURL,
	}
}

// Version fetches the metadata document for one concrete version or dist-tag,
// e.g. Version(ctx, "left-pad", "latest") or Version(ctx, "left-pad", "1.3.0").
// Scoped names keep their literal form in the URL path.
func (c *Client) Version(ctx context.Context, name, version string) (*VersionDoc, error) {
	key := "npm:" + name + "/" + version

	if data, ok, _ := c.cache.Get(ctx, key); ok {
		var doc VersionDoc
		if err := json.Unmarshal(data, &doc); err == nil {
			return &doc, nil
		}
		// Corrupt entry: drop it and fetch fresh.
		_ = c.cache.Delete(ctx, key)
	}

	url := c.baseURL + "/" + name + "/" + version

	var body []byte
	err := httputil.RetryWithBackoff(ctx, func() error {
		var err error
		body, err = c.get(ctx, url)
		return err
	})
	if err != nil {
		return nil, err
	}

	var doc VersionDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode response for %s: %w", url, err)
	}
	if doc.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRegistry, doc.Error)
	}

	_ = c.cache.Set(ctx, key, body, c.ttl)
	return &doc, nil
}

// DownloadFile streams the response body for url into outputPath, creating
// the file. Redirects are followed; any status other than 200 is a failure.
// On failure the partial file is removed.
func (c *Client) DownloadFile(ctx context.Context, url, outputPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.download.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, url)
		}
		return fmt.Errorf("%w: status %d for %s", ErrNetwork, resp.StatusCode, url)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		_ = os.Remove(outputPath)
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(outputPath)
		return err
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &httputil.Temporary{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return &httputil.Temporary{Err: fmt.Errorf("%w: status %d", ErrNetwork, code)}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
