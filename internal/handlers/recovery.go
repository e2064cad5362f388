package handlers

import (
	"log/slog"
	"net/http"

	"github.com/promptmarket/gallery/internal/models"
)

func (h *Handler) HandleRecoveryScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.app.Scanner.ScanAll(r.Context()))
}

// HandleRecoveryForce force-imports the entry posted as JSON. The entry is
// usually one returned by the scan endpoint.
func (h *Handler) HandleRecoveryForce(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var entry models.StorageInventoryEntry
	if !h.decodeJSON(w, r, &entry) {
		return
	}
	if entry.Key == "" || entry.Source == "" {
		h.writeError(w, "key and source are required", http.StatusBadRequest)
		return
	}

	ok := h.app.ForceImport(r.Context(), entry)
	slog.Info("Force import", "key", entry.Key, "source", entry.Source, "db", entry.DBName, "success", ok)
	h.writeJSON(w, map[string]bool{"success": ok})
}

func (h *Handler) HandleRecoveryRaw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var entry models.StorageInventoryEntry
	if !h.decodeJSON(w, r, &entry) {
		return
	}

	content, ok := h.app.Recovery.GetRawItemContent(r.Context(), entry)
	h.writeJSON(w, map[string]any{"content": content, "found": ok})
}

// HandleRecoveryImport imports a pasted backup. The body is the backup text
// itself, not a JSON envelope.
func (h *Handler) HandleRecoveryImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw, err := readBody(w, r)
	if err != nil {
		h.writeError(w, "Failed to read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	result := h.app.ManualImport(r.Context(), raw)
	slog.Info("Manual import", "success", result.Success, "count", result.ImportedCount)
	h.writeJSON(w, result)
}
