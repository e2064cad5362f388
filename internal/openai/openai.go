package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/promptmarket/gallery/internal/providers"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is tried first; FallbackModel is used when the key has no
	// access to it.
	DefaultModel  = "gpt-image-1"
	FallbackModel = "dall-e-3"
)

// OpenAI is an image model backed by the OpenAI images API
type OpenAI struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New returns a new OpenAI provider. An empty baseURL selects the public
// API.
func New(apiKey, baseURL string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OpenAI{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}, nil
}

// GenerateImage calls images/generations, or images/edits when the request
// carries a reference image.
func (o *OpenAI) GenerateImage(ctx context.Context, req providers.Request) (*providers.Response, error) {
	var (
		prompt    []string
		reference *providers.Part
	)
	for i := range req.Parts {
		p := req.Parts[i]
		if p.IsImage() {
			if reference == nil {
				reference = &p
			}
			continue
		}
		prompt = append(prompt, p.Text)
	}

	size := SizeFor(req.Model, req.AspectRatio)

	var (
		httpReq *http.Request
		err     error
	)
	if reference != nil {
		httpReq, err = o.editRequest(ctx, req.Model, strings.Join(prompt, "\n"), size, *reference)
	} else {
		httpReq, err = o.generationRequest(ctx, req.Model, strings.Join(prompt, "\n"), size)
	}
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp.StatusCode, body)
	}

	var response struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
		OutputFormat string `json:"output_format"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	mimeType := "image/png"
	switch response.OutputFormat {
	case "jpeg":
		mimeType = "image/jpeg"
	case "webp":
		mimeType = "image/webp"
	}

	out := &providers.Response{}
	for _, d := range response.Data {
		var c providers.Candidate
		if d.B64JSON != "" {
			data, err := base64.StdEncoding.DecodeString(d.B64JSON)
			if err != nil {
				return nil, fmt.Errorf("failed to decode image data: %w", err)
			}
			c.Parts = append(c.Parts, providers.ImagePart(mimeType, data))
		}
		out.Candidates = append(out.Candidates, c)
	}
	return out, nil
}

func (o *OpenAI) generationRequest(ctx context.Context, model, prompt, size string) (*http.Request, error) {
	payload := map[string]interface{}{
		"model":  model,
		"prompt": prompt,
		"n":      1,
		"size":   size,
	}
	if isDallE(model) {
		payload["response_format"] = "b64_json"
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/images/generations", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (o *OpenAI) editRequest(ctx context.Context, model, prompt, size string, reference providers.Part) (*http.Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"model":  model,
		"prompt": prompt,
		"n":      "1",
		"size":   size,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}

	fw, err := w.CreateFormFile("image", "reference"+extensionFor(reference.MIMEType))
	if err != nil {
		return nil, fmt.Errorf("failed to create image field: %w", err)
	}
	if _, err := fw.Write(reference.Data); err != nil {
		return nil, fmt.Errorf("failed to write image field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/images/edits", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, nil
}

func decodeError(status int, body []byte) error {
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    any    `json:"code"`
		} `json:"error"`
	}
	apiErr := &providers.APIError{Code: status, Message: strings.TrimSpace(string(body))}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		apiErr.Message = payload.Error.Message
		apiErr.Status = payload.Error.Type
		if code, ok := payload.Error.Code.(string); ok && code != "" {
			apiErr.Status = code
		}
	}
	return apiErr
}

// SizeFor maps an aspect ratio to a size the model accepts
func SizeFor(model, aspectRatio string) string {
	switch aspectRatio {
	case "3:4":
		if isDallE(model) {
			return "1024x1792"
		}
		return "1024x1536"
	case "16:9":
		if isDallE(model) {
			return "1792x1024"
		}
		return "1536x1024"
	default:
		return "1024x1024"
	}
}

func isDallE(model string) bool {
	return strings.HasPrefix(model, "dall-e")
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
