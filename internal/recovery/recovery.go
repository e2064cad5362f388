// Package recovery imports image payloads found in arbitrary stored values
// back into the gallery database.
package recovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/promptmarket/gallery/internal/inspector"
	"github.com/promptmarket/gallery/internal/models"
	"github.com/promptmarket/gallery/internal/storage"
)

// ImageWriter is the part of the persistent store the engine writes to.
type ImageWriter interface {
	PutImage(ctx context.Context, id, payload string) error
}

// Engine recovers images from inventory entries and pasted backups.
type Engine struct {
	images  ImageWriter
	simple  storage.StringStore
	session storage.StringStore
	dataDir string

	now    func() time.Time
	suffix func() int
}

// New returns an engine writing into images and reading structured
// databases from dataDir. Either string store may be nil.
func New(images ImageWriter, simple, session storage.StringStore, dataDir string) *Engine {
	return &Engine{
		images:  images,
		simple:  simple,
		session: session,
		dataDir: dataDir,
		now:     time.Now,
		suffix:  func() int { return rand.IntN(1000) },
	}
}

// ForceImportItem scans the value behind entry for anything that looks like
// an encoded image and stores each hit under a new forced_ id. String values
// that look like JSON are parsed and scanned when the raw scan finds nothing.
func (e *Engine) ForceImportItem(ctx context.Context, entry models.StorageInventoryEntry) bool {
	raw, err := e.fetch(ctx, entry)
	if err != nil {
		slog.Error("Force import failed", "key", entry.Key, "err", err)
		return false
	}
	if isEmpty(raw) {
		return false
	}

	ids := map[string]bool{}
	text, isString := raw.(string)
	if !isString {
		return e.importHeuristic(ctx, FromAny(raw), ids) > 0
	}

	found := e.importHeuristic(ctx, String(text), ids) > 0
	trimmed := strings.TrimSpace(text)
	if !found && (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) {
		parsed, err := ParseJSON(trimmed)
		if err != nil {
			slog.Debug("Stored value is not JSON", "key", entry.Key, "err", err)
			return false
		}
		found = e.importHeuristic(ctx, parsed, ids) > 0
	}

	slog.Info("Force import finished", "key", entry.Key, "found", found)
	return found
}

func (e *Engine) importHeuristic(ctx context.Context, v Value, ids map[string]bool) int {
	stored := 0
	for _, s := range Strings(v) {
		cleaned := StripWhitespace(s)
		if !LooksLikeImagePayload(cleaned) {
			continue
		}
		id := e.forcedID(ids)
		if err := e.images.PutImage(ctx, id, AsDataURI(cleaned)); err != nil {
			slog.Error("Failed to store recovered image", "id", id, "err", err)
			continue
		}
		stored++
	}
	return stored
}

// forcedID returns forced_<unix-millis>_<3 digits>, unique within ids
func (e *Engine) forcedID(ids map[string]bool) string {
	ms := e.now().UnixMilli()
	for {
		id := fmt.Sprintf("forced_%d_%03d", ms, e.suffix())
		if !ids[id] {
			ids[id] = true
			return id
		}
		ms++
	}
}

// ManualImport parses rawText as JSON and stores every string that starts
// with an image data URI prefix under a new restored_ id.
func (e *Engine) ManualImport(ctx context.Context, rawText string) models.RecoveryImportResult {
	parsed, err := ParseJSON(rawText)
	if err != nil {
		slog.Warn("Manual import rejected", "err", err)
		return models.RecoveryImportResult{Success: false, ImportedCount: 0}
	}

	ms := e.now().UnixMilli()
	count := 0
	for _, s := range Strings(parsed) {
		if !strings.HasPrefix(s, ImageDataURIPrefix) {
			continue
		}
		id := fmt.Sprintf("restored_%d_%d", ms, count)
		if err := e.images.PutImage(ctx, id, s); err != nil {
			slog.Error("Failed to store restored image", "id", id, "err", err)
			continue
		}
		count++
	}

	slog.Info("Manual import finished", "count", count)
	return models.RecoveryImportResult{Success: count > 0, ImportedCount: count}
}

// GetRawItemContent returns the value behind entry as text, indenting
// structured values. ok is false when nothing is stored.
func (e *Engine) GetRawItemContent(ctx context.Context, entry models.StorageInventoryEntry) (string, bool) {
	raw, err := e.fetch(ctx, entry)
	if err != nil {
		return "Error reading item: " + err.Error(), true
	}
	if isEmpty(raw) {
		return "", false
	}
	if s, ok := raw.(string); ok {
		return s, true
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return "Error reading item: " + err.Error(), true
	}
	return string(data), true
}

func isEmpty(raw any) bool {
	if raw == nil {
		return true
	}
	s, ok := raw.(string)
	return ok && s == ""
}

// fetch returns the stored value behind entry, or nil if there is none.
func (e *Engine) fetch(ctx context.Context, entry models.StorageInventoryEntry) (any, error) {
	switch entry.Source {
	case models.SourceSimpleStore:
		return fetchString(e.simple, entry.Key)
	case models.SourceSessionStore:
		return fetchString(e.session, entry.Key)
	case models.SourceStructuredStore:
		return e.fetchStructured(ctx, entry)
	default:
		return nil, fmt.Errorf("unknown storage source %q", entry.Source)
	}
}

func fetchString(store storage.StringStore, key string) (any, error) {
	if store == nil {
		return nil, nil
	}
	value, ok, err := store.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return value, nil
}

func (e *Engine) fetchStructured(ctx context.Context, entry models.StorageInventoryEntry) (any, error) {
	if inspector.IsSynthetic(entry) || entry.DBName == "" || entry.CollectionName == "" {
		return nil, nil
	}

	prefix := entry.CollectionName + inspector.KeySeparator
	if !strings.HasPrefix(entry.Key, prefix) {
		return nil, nil
	}
	key := strings.TrimPrefix(entry.Key, prefix)

	path, err := storage.DatabasePath(e.dataDir, entry.DBName)
	if err != nil {
		return nil, err
	}
	db, err := storage.OpenDatabase(ctx, path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	value, found, err := db.Lookup(ctx, entry.CollectionName, key)
	if err != nil {
		return nil, err
	}
	if found && !isEmpty(value) {
		return value, nil
	}

	// keys render as text in the inventory but may be stored as numbers
	numeric, ok := parseNumericKey(key)
	if !ok {
		return value, nil
	}
	value, _, err = db.Lookup(ctx, entry.CollectionName, numeric)
	if err != nil {
		return nil, err
	}
	return value, nil
}

func parseNumericKey(key string) (any, bool) {
	if n, err := strconv.ParseInt(key, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(key, 64); err == nil {
		return f, true
	}
	return nil, false
}
