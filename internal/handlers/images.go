package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/promptmarket/gallery/internal/images"
)

type imageSummary struct {
	ID   string `json:"id"`
	Size string `json:"size"`
	URL  string `json:"url"`
}

func (h *Handler) HandleImages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		all := h.app.Store.GetAllImages(r.Context())
		list := make([]imageSummary, 0, len(all))
		for id, payload := range all {
			list = append(list, imageSummary{ID: id, Size: humanize.IBytes(uint64(len(payload))), URL: imageURL(id)})
		}
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
		h.writeJSON(w, list)
	case http.MethodDelete:
		if err := h.app.ClearImages(r.Context()); err != nil {
			h.writeFailure(w, err)
			return
		}
		slog.Info("Cleared all generated images")
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleImageExport streams every image as a zip archive, or as a JSON
// backup with ?format=json.
func (h *Handler) HandleImageExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	all := h.app.Store.GetAllImages(r.Context())
	stamp := time.Now().Format("20060102-150405")

	if r.URL.Query().Get("format") == "json" {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="gallery-backup-%s.json"`, stamp))
		if err := images.WriteBackup(w, all); err != nil {
			slog.Error("Failed to write backup", "err", err)
		}
		return
	}

	var buf bytes.Buffer
	n, err := images.WriteZip(&buf, all)
	if err != nil {
		h.writeError(w, "Failed to build archive: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="gallery-images-%s.zip"`, stamp))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Failed to send archive", "err", err)
		return
	}
	slog.Info("Exported images", "count", n)
}

// HandleImageFile serves a stored image as a binary file
func (h *Handler) HandleImageFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/images/")
	if id == "" || strings.Contains(id, "/") {
		h.writeError(w, "Invalid image id", http.StatusBadRequest)
		return
	}

	payload, ok := h.app.Store.GetImage(r.Context(), id)
	if !ok {
		h.writeError(w, "Image not found", http.StatusNotFound)
		return
	}

	mimeType, data, err := images.DecodeDataURI(payload)
	if err != nil {
		h.writeError(w, "Stored image is unreadable: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, id+images.Extension(mimeType), time.Time{}, bytes.NewReader(data))
}
