package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/promptmarket/gallery/internal/generation"
)

type generateRequest struct {
	ItemID         string `json:"item_id"`
	Subject        string `json:"subject"`
	CharacterID    string `json:"character_id"`
	ReferenceImage string `json:"reference_image"` // data URI or URL
}

type generateResponse struct {
	ID           string `json:"id"`
	Image        string `json:"image"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Saved        bool   `json:"saved"`
	Warning      string `json:"warning,omitempty"`
}

// HandleGenerate accepts JSON, or a multipart form whose "reference" file
// is the reference image.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var (
		request   generateRequest
		reference string
		err       error
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			h.writeError(w, "Invalid form: "+err.Error(), http.StatusBadRequest)
			return
		}
		request = generateRequest{
			ItemID:      r.FormValue("item_id"),
			Subject:     r.FormValue("subject"),
			CharacterID: r.FormValue("character_id"),
		}
		reference, err = h.referenceFromUpload(r)
	} else {
		if !h.decodeJSON(w, r, &request) {
			return
		}
		reference, err = h.referenceFromSource(r, request.ReferenceImage)
	}
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	if request.ItemID == "" {
		h.writeError(w, "item_id is required", http.StatusBadRequest)
		return
	}
	item, ok := h.app.Catalog.Get(request.ItemID)
	if !ok {
		h.writeError(w, "Catalog item not found", http.StatusNotFound)
		return
	}

	slog.Info("Generating image", "id", item.ID, "title", item.Title, "character", request.CharacterID, "reference", reference != "")
	payload, err := h.app.Generator.GenerateForItem(r.Context(), item, generation.Options{
		Subject:        request.Subject,
		CharacterID:    request.CharacterID,
		ReferenceImage: reference,
	})

	if err != nil && payload == "" {
		h.writeFailure(w, err)
		return
	}

	resp := generateResponse{ID: item.ID, Image: payload, Saved: err == nil}
	if err != nil {
		slog.Error("Generated image could not be saved", "id", item.ID, "err", err)
		resp.Warning = err.Error()
	} else {
		resp.ThumbnailURL = imageURL(item.ID)
	}
	h.writeJSON(w, resp)
}
