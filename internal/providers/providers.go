package providers

import (
	"context"
	"fmt"
)

// Part is one ordered input or output of a generation call: either text or
// inline binary image data.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

// TextPart returns a text part
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart returns an inline image part
func ImagePart(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

// IsImage reports whether the part carries inline image data
func (p Part) IsImage() bool {
	return len(p.Data) > 0
}

// Request represents a single image generation call
type Request struct {
	Model       string
	Parts       []Part
	AspectRatio string // e.g. "3:4", "16:9", "1:1"
}

// Candidate is one result of a generation call
type Candidate struct {
	Parts []Part
}

// Response holds every candidate returned by the model
type Response struct {
	Candidates []Candidate
}

// FirstImage returns the first image part of the first candidate that has
// one.
func (r *Response) FirstImage() (Part, bool) {
	if r == nil {
		return Part{}, false
	}
	for _, c := range r.Candidates {
		for _, p := range c.Parts {
			if p.IsImage() {
				return p, true
			}
		}
	}
	return Part{}, false
}

// ImageModel defines the interface for an image generation backend
type ImageModel interface {
	GenerateImage(ctx context.Context, req Request) (*Response, error)
}

// APIError is a backend failure carrying the service's numeric code and
// status token when it reported them.
type APIError struct {
	Code    int
	Status  string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	switch {
	case e.Code != 0 && e.Status != "":
		return fmt.Sprintf("%d %s: %s", e.Code, e.Status, e.Message)
	case e.Code != 0:
		return fmt.Sprintf("%d: %s", e.Code, e.Message)
	case e.Status != "":
		return fmt.Sprintf("%s: %s", e.Status, e.Message)
	default:
		return e.Message
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}
