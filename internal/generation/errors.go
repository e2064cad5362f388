package generation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/promptmarket/gallery/internal/providers"
)

var (
	ErrMissingCredentials = errors.New("API key missing")
	ErrPremiumRequired    = errors.New("premium membership required")
	ErrUnknownCharacter   = errors.New("unknown character")
	ErrNoImage            = errors.New("no image data returned from model")
	ErrInvalidReference   = errors.New("invalid reference image")
)

// GenerationError is a failed model call. Code and Status are set when the
// backend reported them.
type GenerationError struct {
	Model   string
	Code    int
	Status  string
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("generation with %s failed (%d): %s", e.Model, e.Code, e.Message)
	}
	return fmt.Sprintf("generation with %s failed: %s", e.Model, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func newGenerationError(model string, err error) *GenerationError {
	gErr := &GenerationError{Model: model, Message: err.Error(), Err: err}
	var apiErr *providers.APIError
	if errors.As(err, &apiErr) {
		gErr.Code = apiErr.Code
		gErr.Status = apiErr.Status
		gErr.Message = apiErr.Message
	}
	return gErr
}

// IsAccessDenied reports whether err means the model is forbidden to this
// key or does not exist.
func IsAccessDenied(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *providers.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 403 || apiErr.Code == 404 {
			return true
		}
		switch strings.ToUpper(apiErr.Status) {
		case "PERMISSION_DENIED", "NOT_FOUND":
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission") || strings.Contains(msg, "not found")
}
