package recovery

import (
	"strings"
	"unicode"
)

const (
	// DefaultImageHeader is prepended to bare base64 payloads
	DefaultImageHeader = "data:image/png;base64,"

	// ImageDataURIPrefix marks a string that already is an image data URI
	ImageDataURIPrefix = "data:image"

	minPayloadLength = 500
	sniffWindow      = 50
)

// LooksLikeImagePayload reports whether a whitespace-free string is likely
// an encoded image: longer than 500 characters and either a data URI or a
// run of base64 in its first 50 characters.
func LooksLikeImagePayload(cleaned string) bool {
	if len(cleaned) <= minPayloadLength {
		return false
	}
	if strings.HasPrefix(cleaned, ImageDataURIPrefix) {
		return true
	}
	for _, r := range cleaned[:sniffWindow] {
		if !isBase64Char(r) {
			return false
		}
	}
	return true
}

func isBase64Char(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '+', r == '/', r == '=':
		return true
	}
	return false
}

// StripWhitespace removes every whitespace character from s
func StripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// AsDataURI adds DefaultImageHeader unless cleaned already is an image data
// URI.
func AsDataURI(cleaned string) string {
	if strings.HasPrefix(cleaned, ImageDataURIPrefix) {
		return cleaned
	}
	return DefaultImageHeader + cleaned
}
