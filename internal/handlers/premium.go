package handlers

import (
	"io"
	"log/slog"
	"net/http"
)

// HandlePremium reads and toggles the simulated membership flag
func (h *Handler) HandlePremium(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		if err := h.app.Local.SetPremium(true); err != nil {
			h.writeFailure(w, err)
			return
		}
		slog.Info("Premium enabled")
	case http.MethodDelete:
		if err := h.app.Local.SetPremium(false); err != nil {
			h.writeFailure(w, err)
			return
		}
		slog.Info("Premium disabled")
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, map[string]bool{"premium": h.app.Local.IsPremium()})
}

func readBody(w http.ResponseWriter, r *http.Request) (string, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
