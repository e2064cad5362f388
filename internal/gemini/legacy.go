package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	legacygenai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/promptmarket/gallery/internal/providers"
)

// Legacy is an image model backed by the older generative-ai-go client. It
// has no aspect ratio control.
type Legacy struct {
	client *legacygenai.Client
}

// NewLegacy returns a provider using the legacy client
func NewLegacy(ctx context.Context, apiKey string) (*Legacy, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key not set")
	}

	client, err := legacygenai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	return &Legacy{client: client}, nil
}

// Close releases the underlying client
func (l *Legacy) Close() error {
	return l.client.Close()
}

func (l *Legacy) GenerateImage(ctx context.Context, req providers.Request) (*providers.Response, error) {
	if req.AspectRatio != "" {
		slog.Debug("Legacy gemini client ignores aspect ratio", "aspect_ratio", req.AspectRatio)
	}

	parts := make([]legacygenai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.IsImage() {
			parts = append(parts, legacygenai.Blob{MIMEType: p.MIMEType, Data: p.Data})
			continue
		}
		parts = append(parts, legacygenai.Text(p.Text))
	}

	model := l.client.GenerativeModel(req.Model)
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) {
			return nil, &providers.APIError{Code: gErr.Code, Message: gErr.Message, Err: err}
		}
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	out := &providers.Response{}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		var c providers.Candidate
		for _, part := range candidate.Content.Parts {
			switch v := part.(type) {
			case legacygenai.Blob:
				c.Parts = append(c.Parts, providers.ImagePart(v.MIMEType, v.Data))
			case legacygenai.Text:
				c.Parts = append(c.Parts, providers.TextPart(string(v)))
			}
		}
		out.Candidates = append(out.Candidates, c)
	}

	return out, nil
}
