package generation

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/promptmarket/gallery/internal/images"
	"github.com/promptmarket/gallery/internal/models"
	"github.com/promptmarket/gallery/internal/providers"
)

// Request describes one image to generate
type Request struct {
	Template       string
	Subject        string
	DefaultSubject string // used when Subject is empty
	AspectRatio    models.AspectRatio
	ReferenceImage string // optional data URI
}

// Client turns a prompt template into an image, trying the primary model
// first and the fallback model once when the primary is not accessible.
type Client struct {
	model    providers.ImageModel
	primary  string
	fallback string
}

// NewClient returns a client. A nil model means no credentials are
// configured; every call then fails with ErrMissingCredentials.
func NewClient(model providers.ImageModel, primary, fallback string) *Client {
	return &Client{
		model:    model,
		primary:  primary,
		fallback: fallback,
	}
}

// Close releases the backend when it holds a connection
func (c *Client) Close() error {
	if closer, ok := c.model.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Models returns the primary and fallback model identifiers
func (c *Client) Models() (string, string) {
	return c.primary, c.fallback
}

// Generate returns the generated image as a data URI. An empty string with
// a nil error means the call succeeded but returned no image.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c.model == nil {
		return "", ErrMissingCredentials
	}

	prompt := BuildPrompt(req.Template, req.Subject, req.DefaultSubject)
	preq := providers.Request{
		AspectRatio: AspectRatioFor(req.AspectRatio),
	}

	if req.ReferenceImage != "" {
		mimeType, data, err := images.DecodeDataURI(req.ReferenceImage)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidReference, err)
		}
		preq.Parts = append(preq.Parts, providers.ImagePart(mimeType, data))
	}
	preq.Parts = append(preq.Parts, providers.TextPart(prompt))

	preq.Model = c.primary
	resp, err := c.model.GenerateImage(ctx, preq)
	if err != nil {
		if !IsAccessDenied(err) || c.fallback == "" || c.fallback == c.primary {
			return "", newGenerationError(c.primary, err)
		}

		slog.Warn("Primary model unavailable, falling back", "primary", c.primary, "fallback", c.fallback, "err", err)
		preq.Model = c.fallback
		resp, err = c.model.GenerateImage(ctx, preq)
		if err != nil {
			return "", newGenerationError(c.fallback, err)
		}
	}

	img, ok := resp.FirstImage()
	if !ok {
		slog.Warn("Model returned no image", "model", preq.Model)
		return "", nil
	}

	slog.Info("Image generated", "model", preq.Model, "mime_type", img.MIMEType, "size", len(img.Data))
	return images.EncodeDataURI(img.MIMEType, img.Data), nil
}

// GenerateItem generates an image for a catalog item unattended, using the
// title without its first word as the subject.
func (c *Client) GenerateItem(ctx context.Context, item models.CatalogItem) (string, error) {
	return c.Generate(ctx, Request{
		Template:    item.Template,
		Subject:     SubjectFromTitle(item.Title),
		AspectRatio: item.AspectRatio,
	})
}
