package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/promptmarket/gallery/internal/generation"
	"github.com/promptmarket/gallery/internal/images"
)

// maxUploadSize limits an uploaded reference image
const maxUploadSize = 10 * 1024 * 1024

// referenceFromUpload reads the optional "reference" file of a multipart
// form. It returns "" when no file was sent.
func (h *Handler) referenceFromUpload(r *http.Request) (string, error) {
	file, header, err := r.FormFile("reference")
	if err == http.ErrMissingFile {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", generation.ErrInvalidReference, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read file contents: %w", err)
	}
	if len(data) > maxUploadSize {
		return "", fmt.Errorf("%w: file too large (max 10MB)", generation.ErrInvalidReference)
	}

	ref, err := images.Inspect(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", generation.ErrInvalidReference, err)
	}

	slog.Info("Reference image uploaded", "filename", header.Filename, "type", ref.MIMEType, "width", ref.Width, "height", ref.Height)
	return ref.DataURI(), nil
}

// referenceFromSource resolves a reference given as a data URI or an
// http(s) URL. Local paths are refused over HTTP.
func (h *Handler) referenceFromSource(r *http.Request, source string) (string, error) {
	if source == "" {
		return "", nil
	}
	if !isRemoteOrInline(source) {
		return "", fmt.Errorf("%w: reference must be a data URI or an http(s) URL", generation.ErrInvalidReference)
	}

	ref, err := h.app.Fetcher.Load(r.Context(), source)
	if err != nil {
		return "", fmt.Errorf("%w: %w", generation.ErrInvalidReference, err)
	}

	slog.Debug("Reference image loaded", "type", ref.MIMEType, "width", ref.Width, "height", ref.Height)
	return ref.DataURI(), nil
}

func isRemoteOrInline(source string) bool {
	for _, prefix := range []string{"data:", "http://", "https://"} {
		if strings.HasPrefix(source, prefix) {
			return true
		}
	}
	return false
}
