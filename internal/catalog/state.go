// Package catalog holds the gallery's prompt templates, their categories and
// the built-in personas.
package catalog

import (
	"sync"

	"github.com/promptmarket/gallery/internal/models"
)

// AllCategory is the navigation entry that matches every item
const AllCategory = "all"

// State is the in-memory catalog shared by the HTTP handlers and the
// auto-generation sweep.
type State struct {
	mu         sync.RWMutex
	items      []models.CatalogItem
	index      map[string]int
	categories []models.Category
}

func NewState(items []models.CatalogItem, categories []models.Category) *State {
	s := &State{
		items:      append([]models.CatalogItem(nil), items...),
		index:      make(map[string]int, len(items)),
		categories: append([]models.Category(nil), categories...),
	}
	for i, item := range s.items {
		s.index[item.ID] = i
	}
	return s
}

// Snapshot returns a copy of every item in catalog order
func (s *State) Snapshot() []models.CatalogItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CatalogItem(nil), s.items...)
}

// Items returns the items in category, or all of them for "" and "all"
func (s *State) Items(category string) []models.CatalogItem {
	if category == "" || category == AllCategory {
		return s.Snapshot()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.CatalogItem
	for _, item := range s.items {
		if item.Category == category {
			out = append(out, item)
		}
	}
	return out
}

func (s *State) Get(id string) (models.CatalogItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return models.CatalogItem{}, false
	}
	return s.items[i], true
}

// UpdateItemByID applies fn to the item with id and reports whether it exists
func (s *State) UpdateItemByID(id string, fn func(*models.CatalogItem)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return false
	}
	fn(&s.items[i])
	s.items[i].ID = id
	return true
}

// ApplyImages sets the thumbnail of every item that has a persisted image
// and returns how many matched.
func (s *State) ApplyImages(images map[string]string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, payload := range images {
		if i, ok := s.index[id]; ok {
			s.items[i].CustomThumbnail = payload
			n++
		}
	}
	return n
}

// ClearThumbnails drops every generated thumbnail
func (s *State) ClearThumbnails() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		s.items[i].CustomThumbnail = ""
	}
}

func (s *State) Categories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Category(nil), s.categories...)
}

func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
