package recovery

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptmarket/gallery/internal/inspector"
	"github.com/promptmarket/gallery/internal/models"
	"github.com/promptmarket/gallery/internal/storage"
)

type fixture struct {
	dir     string
	store   *storage.Store
	kv      *storage.KVStore
	session *storage.SessionStore
	engine  *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.Open(context.Background(), filepath.Join(dir, storage.DatabaseName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	kv, err := storage.OpenKV(filepath.Join(dir, storage.LocalStoreName))
	require.NoError(t, err)

	session := storage.NewSessionStore()
	engine := New(store, kv, session, dir)
	engine.now = func() time.Time { return time.UnixMilli(1700000000000) }
	engine.suffix = func() int { return 7 }

	return &fixture{dir: dir, store: store, kv: kv, session: session, engine: engine}
}

type failingWriter struct{}

func (failingWriter) PutImage(context.Context, string, string) error {
	return errors.New("disk full")
}

func TestForceImportItem_BareBase64(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.kv.Set("old_image", strings.Repeat("QUJD", 150)))
	entry := models.StorageInventoryEntry{Key: "old_image", Source: models.SourceSimpleStore}

	assert.True(t, f.engine.ForceImportItem(ctx, entry))

	images := f.store.GetAllImages(ctx)
	require.Len(t, images, 1)
	payload, ok := images["forced_1700000000000_007"]
	require.True(t, ok, "expected forced id, got %v", images)
	assert.True(t, strings.HasPrefix(payload, DefaultImageHeader))
	assert.Equal(t, DefaultImageHeader+strings.Repeat("QUJD", 150), payload)
}

func TestForceImportItem_WhitespaceAndExistingHeader(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	body := strings.Repeat("iVBORw0KGgo\n", 60)
	f.session.Set("pasted", "data:image/jpeg;base64,"+body)
	entry := models.StorageInventoryEntry{Key: "pasted", Source: models.SourceSessionStore}

	require.True(t, f.engine.ForceImportItem(ctx, entry))

	for _, payload := range f.store.GetAllImages(ctx) {
		assert.Equal(t, "data:image/jpeg;base64,"+strings.Repeat("iVBORw0KGgo", 60), payload)
	}
}

func TestForceImportItem_JSONFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	backup := `{"gallery": {"a": "` + strings.Repeat("A", 600) + `", "b": "` + strings.Repeat("B", 600) + `"}, "title": "short"}`
	require.NoError(t, f.kv.Set("backup", backup))

	next := 0
	f.engine.suffix = func() int {
		next++
		return next
	}

	require.True(t, f.engine.ForceImportItem(ctx, models.StorageInventoryEntry{Key: "backup", Source: models.SourceSimpleStore}))

	images := f.store.GetAllImages(ctx)
	assert.Len(t, images, 2)
	assert.Equal(t, DefaultImageHeader+strings.Repeat("A", 600), images["forced_1700000000000_001"])
	assert.Equal(t, DefaultImageHeader+strings.Repeat("B", 600), images["forced_1700000000000_002"])
}

func TestForceImportItem_NothingFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.kv.Set("theme", "dark"))

	tests := []models.StorageInventoryEntry{
		{Key: "theme", Source: models.SourceSimpleStore},
		{Key: "missing", Source: models.SourceSimpleStore},
		{Key: "generated_images (Empty)", Source: models.SourceStructuredStore, DBName: storage.DatabaseName, CollectionName: storage.ImagesCollection},
	}
	for _, entry := range tests {
		t.Run(entry.Key, func(t *testing.T) {
			assert.False(t, f.engine.ForceImportItem(ctx, entry))
		})
	}
	assert.Empty(t, f.store.GetAllImages(ctx))
}

func TestForceImportItem_WriteFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.kv.Set("old_image", strings.Repeat("QUJD", 150)))
	engine := New(failingWriter{}, f.kv, nil, f.dir)

	assert.False(t, engine.ForceImportItem(ctx, models.StorageInventoryEntry{Key: "old_image", Source: models.SourceSimpleStore}))
}

func TestForceImportItem_StructuredNumericKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	legacy, err := sql.Open("sqlite", filepath.Join(f.dir, "PromptMarketDB.db"))
	require.NoError(t, err)
	_, err = legacy.Exec(`CREATE TABLE generated_images (k PRIMARY KEY, value)`)
	require.NoError(t, err)
	_, err = legacy.Exec(`INSERT INTO generated_images VALUES (42, ?)`, strings.Repeat("R0lGOD", 100))
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	var target models.StorageInventoryEntry
	for _, entry := range inspector.New(nil, nil, f.dir).ScanAll(ctx) {
		if entry.DBName == "PromptMarketDB.db" && entry.Key == "generated_images / 42" {
			target = entry
		}
	}
	require.Equal(t, "generated_images / 42", target.Key, "scanner should list legacy record")

	assert.True(t, f.engine.ForceImportItem(ctx, target))
	assert.Len(t, f.store.GetAllImages(ctx), 1)
}

func TestForceImportItem_RecordKeyWithConditionSuffix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.PutImage(ctx, "old (Tx Error)", strings.Repeat("QUJD", 150)))

	var target models.StorageInventoryEntry
	for _, entry := range inspector.New(nil, nil, f.dir).ScanAll(ctx) {
		if entry.Key == "generated_images / old (Tx Error)" {
			target = entry
		}
	}
	require.Equal(t, storage.DatabaseName, target.DBName, "scanner should list the record")

	content, ok := f.engine.GetRawItemContent(ctx, target)
	require.True(t, ok)
	assert.Equal(t, strings.Repeat("QUJD", 150), content)

	assert.True(t, f.engine.ForceImportItem(ctx, target))
	assert.Len(t, f.store.GetAllImages(ctx), 2)
}

func TestManualImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw := `{"items": [{"img": "data:image/png;base64,AAA"}, {"img": "data:image/webp;base64,BBB"}], "note": "plain text", "count": 2}`
	result := f.engine.ManualImport(ctx, raw)

	assert.Equal(t, models.RecoveryImportResult{Success: true, ImportedCount: 2}, result)
	want := map[string]string{
		"restored_1700000000000_0": "data:image/png;base64,AAA",
		"restored_1700000000000_1": "data:image/webp;base64,BBB",
	}
	if diff := cmp.Diff(want, f.store.GetAllImages(ctx)); diff != "" {
		t.Errorf("Imported images mismatch (-want +got):\n%s", diff)
	}
}

func TestManualImport_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "not json"},
		{"empty", ""},
		{"trailing data", `{"a": "data:image/png;base64,AAA"} extra`},
		{"json without images", `{"a": "b"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			result := f.engine.ManualImport(ctx, tt.raw)

			assert.Equal(t, models.RecoveryImportResult{Success: false, ImportedCount: 0}, result)
			assert.Empty(t, f.store.GetAllImages(ctx))
		})
	}
}

func TestGetRawItemContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.kv.Set("theme", "dark"))
	require.NoError(t, f.store.PutCharacter(ctx, models.Character{ID: "custom_1", Name: "Ada"}))

	content, ok := f.engine.GetRawItemContent(ctx, models.StorageInventoryEntry{Key: "theme", Source: models.SourceSimpleStore})
	assert.True(t, ok)
	assert.Equal(t, "dark", content)

	_, ok = f.engine.GetRawItemContent(ctx, models.StorageInventoryEntry{Key: "nope", Source: models.SourceSimpleStore})
	assert.False(t, ok)

	entry := models.StorageInventoryEntry{
		Key:            storage.CharactersCollection + inspector.KeySeparator + "custom_1",
		Source:         models.SourceStructuredStore,
		DBName:         storage.DatabaseName,
		CollectionName: storage.CharactersCollection,
	}
	content, ok = f.engine.GetRawItemContent(ctx, entry)
	assert.True(t, ok)
	assert.Contains(t, content, `"name":"Ada"`)

	entry.DBName = "../outside.db"
	content, ok = f.engine.GetRawItemContent(ctx, entry)
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(content, "Error reading item: "), content)
}
