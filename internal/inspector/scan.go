// Package inspector enumerates everything the gallery keeps on disk or in
// memory, including databases it did not create, so lost images can be found
// and recovered.
package inspector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/promptmarket/gallery/internal/models"
	"github.com/promptmarket/gallery/internal/storage"
)

const (
	// PreviewLength is the maximum number of characters in an entry preview
	PreviewLength = 100

	// KeySeparator joins collection and record key in structured entry keys
	KeySeparator = " / "

	opaquePreview = "[Object]"
)

// Synthetic key suffixes for entries that describe a condition rather than a
// stored record.
const (
	SuffixEmpty            = " (Empty)"
	SuffixNoStores         = " (No Stores)"
	SuffixConnectionFailed = " (Connection Failed)"
	SuffixAccessDenied     = " (Access Denied)"
	SuffixTxError          = " (Tx Error)"
)

// Scanner performs deep scans over the simple store, the session store and
// every structured database in the data directory.
type Scanner struct {
	simple  storage.StringStore
	session storage.StringStore
	dataDir string
}

// New returns a scanner. Either string store may be nil.
func New(simple, session storage.StringStore, dataDir string) *Scanner {
	return &Scanner{
		simple:  simple,
		session: session,
		dataDir: dataDir,
	}
}

// ScanAll returns one entry per stored key, sorted by raw size, largest
// first. It never fails: problems are reported as synthetic entries.
func (s *Scanner) ScanAll(ctx context.Context) []models.StorageInventoryEntry {
	var entries []models.StorageInventoryEntry

	if s.simple != nil {
		entries = append(entries, scanStringStore(s.simple, models.SourceSimpleStore)...)
	}
	if s.session != nil {
		entries = append(entries, scanStringStore(s.session, models.SourceSessionStore)...)
	}

	for _, name := range s.databaseNames() {
		entries = append(entries, s.scanDatabase(ctx, name)...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RawSize > entries[j].RawSize
	})

	slog.Debug("Storage scan complete", "entries", len(entries))
	return entries
}

// databaseNames returns the application database followed by any other
// database found in the data directory.
func (s *Scanner) databaseNames() []string {
	names := []string{storage.DatabaseName}

	found, err := storage.DiscoverDatabases(s.dataDir)
	if err != nil {
		slog.Warn("Database enumeration failed", "dir", s.dataDir, "err", err)
		return names
	}
	for _, name := range found {
		if name != storage.DatabaseName {
			names = append(names, name)
		}
	}
	return names
}

func scanStringStore(store storage.StringStore, source models.StorageSource) (entries []models.StorageInventoryEntry) {
	defer func() {
		if r := recover(); r != nil {
			entries = append(entries, enumerationError(source, fmt.Errorf("%v", r)))
		}
	}()

	keys, err := store.Keys()
	if err != nil {
		return []models.StorageInventoryEntry{enumerationError(source, err)}
	}

	for _, key := range keys {
		value, ok, err := store.Get(key)
		if err != nil {
			entries = append(entries, enumerationError(source, err))
			continue
		}
		if !ok {
			continue
		}
		entries = append(entries, models.StorageInventoryEntry{
			Key:        key,
			Source:     source,
			RawSize:    len(value),
			SizePretty: FormatSize(len(value)),
			Preview:    Preview(value),
		})
	}
	return entries
}

func enumerationError(source models.StorageSource, err error) models.StorageInventoryEntry {
	return models.StorageInventoryEntry{
		Key:        "ERROR",
		Source:     source,
		SizePretty: FormatSize(0),
		Preview:    fmt.Sprintf("%s error: %v", source, err),
		Error:      err.Error(),
		Synthetic:  true,
	}
}

// scanDatabase never lets a single broken database abort the scan.
func (s *Scanner) scanDatabase(ctx context.Context, name string) (entries []models.StorageInventoryEntry) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Database scan panicked", "db", name, "panic", r)
			entries = append(entries, connectionFailed(name, fmt.Errorf("%v", r)))
		}
	}()

	path, err := storage.DatabasePath(s.dataDir, name)
	if err != nil {
		return []models.StorageInventoryEntry{connectionFailed(name, err)}
	}

	db, err := storage.OpenDatabase(ctx, path)
	if err != nil {
		return []models.StorageInventoryEntry{connectionFailed(name, err)}
	}
	defer db.Close()

	collections, err := db.Collections(ctx)
	if err != nil {
		return []models.StorageInventoryEntry{{
			Key:        name + SuffixTxError,
			Source:     models.SourceStructuredStore,
			SizePretty: FormatSize(0),
			Preview:    err.Error(),
			DBName:     name,
			Error:      err.Error(),
			Synthetic:  true,
		}}
	}

	if len(collections) == 0 {
		return []models.StorageInventoryEntry{{
			Key:        name + SuffixNoStores,
			Source:     models.SourceStructuredStore,
			SizePretty: FormatSize(0),
			Preview:    "Database exists but has no object stores.",
			DBName:     name,
			Synthetic:  true,
		}}
	}

	for _, collection := range collections {
		entries = append(entries, scanCollection(ctx, db, name, collection)...)
	}
	return entries
}

func scanCollection(ctx context.Context, db *storage.Database, dbName, collection string) []models.StorageInventoryEntry {
	var entries []models.StorageInventoryEntry

	err := db.Cursor(ctx, collection, func(r storage.Record) error {
		size, preview := describe(r.Value)
		entries = append(entries, models.StorageInventoryEntry{
			Key:            collection + KeySeparator + FormatKey(r.Key),
			Source:         models.SourceStructuredStore,
			RawSize:        size,
			SizePretty:     FormatSize(size),
			Preview:        preview,
			DBName:         dbName,
			CollectionName: collection,
		})
		return nil
	})
	if err != nil {
		slog.Warn("Collection scan failed", "db", dbName, "collection", collection, "err", err)
		return append(entries, models.StorageInventoryEntry{
			Key:            collection + SuffixAccessDenied,
			Source:         models.SourceStructuredStore,
			SizePretty:     FormatSize(0),
			Preview:        "Error reading store",
			DBName:         dbName,
			CollectionName: collection,
			Error:          err.Error(),
			Synthetic:      true,
		})
	}

	if len(entries) == 0 {
		entries = append(entries, models.StorageInventoryEntry{
			Key:            collection + SuffixEmpty,
			Source:         models.SourceStructuredStore,
			SizePretty:     FormatSize(0),
			Preview:        "Store exists but contains 0 items.",
			DBName:         dbName,
			CollectionName: collection,
			Synthetic:      true,
		})
	}
	return entries
}

func connectionFailed(name string, err error) models.StorageInventoryEntry {
	return models.StorageInventoryEntry{
		Key:        name + SuffixConnectionFailed,
		Source:     models.SourceStructuredStore,
		SizePretty: FormatSize(0),
		Preview:    Preview(err.Error()),
		Error:      err.Error(),
		Synthetic:  true,
	}
}

// describe returns the size and preview of a record value. Values that
// cannot be stringified get size 0 and an opaque preview.
func describe(value any) (int, string) {
	if str, ok := value.(string); ok {
		return len(str), Preview(str)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return 0, opaquePreview
	}
	return len(data), Preview(string(data))
}

// Preview truncates value to PreviewLength characters and collapses newlines
// to spaces.
func Preview(value string) string {
	runes := []rune(value)
	if len(runes) > PreviewLength {
		runes = runes[:PreviewLength]
	}
	return strings.ReplaceAll(string(runes), "\n", " ")
}

// FormatSize renders a byte count in IEC units
func FormatSize(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// FormatKey renders a record key the way it appears in entry keys
func FormatKey(key any) string {
	switch k := key.(type) {
	case string:
		return k
	case nil:
		return ""
	default:
		return fmt.Sprint(k)
	}
}

// IsSynthetic reports whether an entry describes a condition rather than a
// stored record.
func IsSynthetic(entry models.StorageInventoryEntry) bool {
	return entry.Synthetic
}
