package fetch

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/futterwatch/futterwatch/internal/config"
)

// maxBodySize caps a single response read at 10MB.
const maxBodySize = 10 << 20

// HTTPClient fetches server-rendered pages without the browser. Used by the
// one adapter whose search results arrive as static HTML; it still applies
// the same politeness delay and realistic headers as browser fetches.
type HTTPClient struct {
	client *http.Client
	cfg    *config.Config
	logger *slog.Logger
}

// NewHTTPClient creates the static-page client.
func NewHTTPClient(cfg *config.Config, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Scraper.NavigationTimeout,
			Transport: &http.Transport{
				MaxIdleConns:    16,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		cfg:    cfg,
		logger: logger.With("component", "http_client"),
	}
}

// Get fetches a URL and returns the decoded body.
func (c *HTTPClient) Get(ctx context.Context, url string) ([]byte, error) {
	if err := Delay(ctx, c.cfg.Scraper.RequestDelayMin, c.cfg.Scraper.RequestDelayMax); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.Browser.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", c.cfg.Browser.Locale+","+c.cfg.Browser.Locale[:2]+";q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body for %s: %w", url, err)
	}

	c.logger.Debug("static fetch complete", "url", url, "size", len(body))
	return body, nil
}
