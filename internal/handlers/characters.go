package handlers

import (
	"net/http"
	"strings"
)

func (h *Handler) HandleCharacters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, h.app.Characters.All(r.Context()))
	case http.MethodPost:
		var request struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if !h.decodeJSON(w, r, &request) {
			return
		}

		character, err := h.app.Characters.Add(r.Context(), request.Name, request.Description)
		if err != nil {
			h.writeFailure(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		h.writeJSON(w, character)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleCharacterDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/characters/")
	if id == "" {
		h.writeError(w, "Character id is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		character, ok := h.app.Characters.Find(r.Context(), id)
		if !ok {
			h.writeError(w, "Character not found", http.StatusNotFound)
			return
		}
		h.writeJSON(w, character)
	case http.MethodDelete:
		if _, ok := h.app.Characters.Find(r.Context(), id); !ok {
			h.writeError(w, "Character not found", http.StatusNotFound)
			return
		}
		if err := h.app.Characters.Delete(r.Context(), id); err != nil {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
