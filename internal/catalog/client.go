package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxRemoteCatalogSize bounds a downloaded catalog document
const maxRemoteCatalogSize = 64 << 20

// Client fetches a catalog document published over HTTP
type Client struct {
	URL        string
	httpClient *http.Client
}

// NewClient creates a new catalog client
func NewClient(url string) *Client {
	return &Client{
		URL: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch downloads the catalog. The body is either a File document or a bare
// list of items.
func (c *Client) Fetch(ctx context.Context) (File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return File{}, fmt.Errorf("failed to create catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return File{}, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return File{}, fmt.Errorf("catalog server returned status %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteCatalogSize))
	if err != nil {
		return File{}, fmt.Errorf("failed to read catalog: %w", err)
	}
	return decodeJSON(data)
}
