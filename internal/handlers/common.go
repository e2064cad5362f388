package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/promptmarket/gallery/internal/app"
	"github.com/promptmarket/gallery/internal/autogen"
	"github.com/promptmarket/gallery/internal/catalog"
	"github.com/promptmarket/gallery/internal/generation"
	"github.com/promptmarket/gallery/internal/images"
	"github.com/promptmarket/gallery/internal/storage"
)

// maxBodySize bounds JSON request bodies, which may carry a backup or a
// reference image
const maxBodySize = 64 << 20

type Handler struct {
	app *app.App
}

func New(a *app.App) *Handler {
	return &Handler{app: a}
}

// Routes registers every endpoint on mux
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/catalog", h.HandleCatalog)
	mux.HandleFunc("/api/images", h.HandleImages)
	mux.HandleFunc("/api/images/export", h.HandleImageExport)
	mux.HandleFunc("/api/characters", h.HandleCharacters)
	mux.HandleFunc("/api/characters/", h.HandleCharacterDetail)
	mux.HandleFunc("/api/generate", h.HandleGenerate)
	mux.HandleFunc("/api/autogen/start", h.HandleAutogenStart)
	mux.HandleFunc("/api/autogen/stop", h.HandleAutogenStop)
	mux.HandleFunc("/api/autogen/status", h.HandleAutogenStatus)
	mux.HandleFunc("/api/autogen/events", h.HandleAutogenEvents)
	mux.HandleFunc("/api/recovery/scan", h.HandleRecoveryScan)
	mux.HandleFunc("/api/recovery/force", h.HandleRecoveryForce)
	mux.HandleFunc("/api/recovery/raw", h.HandleRecoveryRaw)
	mux.HandleFunc("/api/recovery/import", h.HandleRecoveryImport)
	mux.HandleFunc("/api/premium", h.HandlePremium)
	mux.HandleFunc("/images/", h.HandleImageFile)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message, "code", code)
	} else {
		slog.Warn(message, "code", code)
	}
	http.Error(w, message, code)
}

// writeFailure reports err with the status its kind maps to
func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	h.writeError(w, err.Error(), errorStatus(err))
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func errorStatus(err error) int {
	var gErr *generation.GenerationError
	switch {
	case errors.Is(err, generation.ErrPremiumRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, generation.ErrUnknownCharacter):
		return http.StatusNotFound
	case errors.Is(err, generation.ErrInvalidReference),
		errors.Is(err, images.ErrInvalidDataURI),
		errors.Is(err, catalog.ErrInvalidCharacter),
		errors.Is(err, storage.ErrEmptyPayload):
		return http.StatusBadRequest
	case errors.Is(err, generation.ErrMissingCredentials):
		return http.StatusServiceUnavailable
	case errors.Is(err, autogen.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, generation.ErrNoImage):
		return http.StatusBadGateway
	case errors.As(err, &gErr):
		if gErr.Code == http.StatusTooManyRequests {
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
