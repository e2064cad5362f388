package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/promptmarket/gallery/internal/providers"
)

const (
	// ProModel is tried first for every request
	ProModel = "gemini-3-pro-image-preview"

	// FlashModel is used when the pro model is not available to the key
	FlashModel = "gemini-2.5-flash-image"
)

// Gemini is an image model backed by the Gemini API
type Gemini struct {
	client *genai.Client
}

// New returns a new Gemini provider
func New(ctx context.Context, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	return &Gemini{client: client}, nil
}

// GenerateImage sends the request parts in order and returns every
// candidate's parts.
func (g *Gemini) GenerateImage(ctx context.Context, req providers.Request) (*providers.Response, error) {
	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.IsImage() {
			parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIMEType))
			continue
		}
		parts = append(parts, genai.NewPartFromText(p.Text))
	}

	config := &genai.GenerateContentConfig{}
	if req.AspectRatio != "" {
		config.ImageConfig = &genai.ImageConfig{AspectRatio: req.AspectRatio}
	}

	slog.Debug("Calling gemini", "model", req.Model, "parts", len(parts), "aspect_ratio", req.AspectRatio)
	resp, err := g.client.Models.GenerateContent(ctx, req.Model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		return nil, convertError(err)
	}

	out := &providers.Response{}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		var c providers.Candidate
		for _, part := range candidate.Content.Parts {
			switch {
			case part == nil:
			case part.InlineData != nil && len(part.InlineData.Data) > 0:
				c.Parts = append(c.Parts, providers.ImagePart(part.InlineData.MIMEType, part.InlineData.Data))
			case part.Text != "":
				c.Parts = append(c.Parts, providers.TextPart(part.Text))
			}
		}
		out.Candidates = append(out.Candidates, c)
	}

	return out, nil
}

func convertError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &providers.APIError{Code: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &providers.APIError{Code: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Message, Err: err}
	}
	return fmt.Errorf("failed to generate content: %w", err)
}
