package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	_ "golang.org/x/image/webp"
)

// maxReferenceSize bounds downloaded and uploaded reference images
const maxReferenceSize = 20 << 20

// Reference is a validated reference image ready to send to a model
type Reference struct {
	MIMEType string
	Data     []byte
	Width    int
	Height   int
}

// DataURI returns the reference encoded as a data URI
func (r *Reference) DataURI() string {
	return EncodeDataURI(r.MIMEType, r.Data)
}

// Fetcher retrieves reference images from data URIs, URLs or local files
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Load reads source, which may be a data URI, an http(s) URL or a file
// path, and checks that it decodes as an image.
func (f *Fetcher) Load(ctx context.Context, source string) (*Reference, error) {
	source = strings.TrimSpace(source)

	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(source, "data:"):
		_, data, err = DecodeDataURI(source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		data, err = f.download(ctx, source)
	default:
		data, err = readFile(source)
	}
	if err != nil {
		return nil, err
	}

	return Inspect(data)
}

// Inspect validates data as an image and records its format and size
func Inspect(data []byte) (*Reference, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("image is empty")
	}
	if len(data) > maxReferenceSize {
		return nil, fmt.Errorf("image too large: %d bytes", len(data))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return &Reference{
		MIMEType: "image/" + format,
		Data:     data,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReferenceSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	slog.Debug("Downloaded reference image", "url", url, "size", len(data))
	return data, nil
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}
	if info.Size() > maxReferenceSize {
		return nil, fmt.Errorf("image too large: %d bytes", info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}
