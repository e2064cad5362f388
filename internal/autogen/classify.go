package autogen

import (
	"errors"
	"slices"
	"strings"

	"github.com/promptmarket/gallery/internal/generation"
	"github.com/promptmarket/gallery/internal/providers"
)

// ErrorClass decides how long the sweep waits before retrying an item
type ErrorClass int

const (
	ClassGeneric ErrorClass = iota
	ClassRateLimit
)

func (c ErrorClass) String() string {
	if c == ClassRateLimit {
		return "rate_limit"
	}
	return "generic"
}

// Classifier recognises rate-limit errors by code, status token or message
// substring. Status and substring matches ignore case.
type Classifier struct {
	Codes      []int    `mapstructure:"codes"`
	Statuses   []string `mapstructure:"statuses"`
	Substrings []string `mapstructure:"substrings"`
}

// DefaultClassifier matches HTTP 429, RESOURCE_EXHAUSTED and any message
// mentioning quota, limit, exhausted or 429.
func DefaultClassifier() Classifier {
	return Classifier{
		Codes:      []int{429},
		Statuses:   []string{"RESOURCE_EXHAUSTED"},
		Substrings: []string{"quota", "limit", "exhausted", "429", "resource_exhausted"},
	}
}

// Classify returns ClassRateLimit when err matches any configured signature
func (c Classifier) Classify(err error) ErrorClass {
	if err == nil {
		return ClassGeneric
	}

	code, status := errorSignature(err)
	if code != 0 && slices.Contains(c.Codes, code) {
		return ClassRateLimit
	}
	if status != "" {
		for _, s := range c.Statuses {
			if strings.EqualFold(s, status) {
				return ClassRateLimit
			}
		}
	}

	msg := strings.ToLower(err.Error())
	for _, sub := range c.Substrings {
		if sub != "" && strings.Contains(msg, strings.ToLower(sub)) {
			return ClassRateLimit
		}
	}
	return ClassGeneric
}

func errorSignature(err error) (int, string) {
	var gErr *generation.GenerationError
	if errors.As(err, &gErr) && (gErr.Code != 0 || gErr.Status != "") {
		return gErr.Code, gErr.Status
	}
	var apiErr *providers.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Status
	}
	return 0, ""
}

// displayMessage is the short form of err shown in the status line
func displayMessage(err error) string {
	var gErr *generation.GenerationError
	if errors.As(err, &gErr) && gErr.Message != "" {
		return gErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Error"
}
