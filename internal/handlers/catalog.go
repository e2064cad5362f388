package handlers

import (
	"net/http"
	"net/url"

	"github.com/promptmarket/gallery/internal/models"
)

// catalogItem replaces the inline thumbnail with a link to it
type catalogItem struct {
	models.CatalogItem
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

type catalogResponse struct {
	Categories []models.Category `json:"categories"`
	Items      []catalogItem     `json:"items"`
	Premium    bool              `json:"premium"`
}

func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	items := h.app.Catalog.Items(r.URL.Query().Get("category"))
	resp := catalogResponse{
		Categories: h.app.Catalog.Categories(),
		Items:      make([]catalogItem, 0, len(items)),
		Premium:    h.app.Local.IsPremium(),
	}
	for _, item := range items {
		out := catalogItem{CatalogItem: item}
		if item.CustomThumbnail != "" {
			out.ThumbnailURL = imageURL(item.ID)
			out.CustomThumbnail = ""
		}
		resp.Items = append(resp.Items, out)
	}

	h.writeJSON(w, resp)
}

func imageURL(id string) string {
	return "/images/" + url.PathEscape(id)
}
