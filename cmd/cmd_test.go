package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptmarket/gallery/internal/catalog"
	"github.com/promptmarket/gallery/internal/models"
)

// setup writes a config that keeps everything under a temp directory and
// returns its path.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GALLERY_CONFIG_DIR", dir)
	for _, key := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(key, "")
	}
	t.Chdir(dir)

	path := filepath.Join(dir, "gallery.yaml")
	content := "storage:\n  data_dir: " + filepath.Join(dir, "data") + "\ncatalog:\n  seed_count: 4\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", configPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPremiumCommand(t *testing.T) {
	cfg := setup(t)

	out, err := run(t, cfg, "premium")
	require.NoError(t, err)
	assert.Equal(t, "Premium: off\n", out)

	out, err = run(t, cfg, "premium", "on")
	require.NoError(t, err)
	assert.Equal(t, "Premium: on\n", out)

	out, err = run(t, cfg, "premium")
	require.NoError(t, err)
	assert.Equal(t, "Premium: on\n", out)

	_, err = run(t, cfg, "premium", "maybe")
	assert.Error(t, err)
}

func TestCharactersCommands(t *testing.T) {
	cfg := setup(t)

	out, err := run(t, cfg, "characters", "add", "Max", "a tall man with glasses")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Created custom_"), out)
	id := strings.Fields(out)[1]

	out, err = run(t, cfg, "characters", "list")
	require.NoError(t, err)
	var all []models.Character
	require.NoError(t, json.Unmarshal([]byte(out), &all))
	assert.Equal(t, id, all[0].ID)
	assert.Len(t, all, len(catalog.PremadeCharacters)+1)

	_, err = run(t, cfg, "characters", "delete", "char_1")
	assert.Error(t, err)

	_, err = run(t, cfg, "characters", "delete", id)
	require.NoError(t, err)

	_, err = run(t, cfg, "characters", "delete", id)
	assert.Error(t, err)
}

func TestCatalogExport(t *testing.T) {
	cfg := setup(t)
	dir := filepath.Dir(cfg)

	for _, name := range []string{"catalog.yaml", "catalog.json", "catalog.parquet"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			_, err := run(t, cfg, "catalog", "export", path)
			require.NoError(t, err)

			state, err := catalog.Load(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, len(catalog.PremadeCharacters)+4, state.Len())
		})
	}

	_, err := run(t, cfg, "catalog", "export", filepath.Join(dir, "catalog.csv"))
	assert.Error(t, err)
}

func TestRecoverImportAndImagesExport(t *testing.T) {
	cfg := setup(t)
	dir := filepath.Dir(cfg)

	backup := filepath.Join(dir, "backup.json")
	payload := "data:image/png;base64,iVBORw0KGgo="
	require.NoError(t, os.WriteFile(backup, []byte(`{"images":{"1":"`+payload+`"}}`), 0644))

	out, err := run(t, cfg, "recover", "import", backup)
	require.NoError(t, err)
	assert.Equal(t, "Imported 1 images\n", out)

	out, err = run(t, cfg, "images", "export", "--format", "json")
	require.NoError(t, err)
	var exported struct {
		Images map[string]string `json:"images"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &exported))
	require.Len(t, exported.Images, 1)
	for _, v := range exported.Images {
		assert.Equal(t, payload, v)
	}

	_, err = run(t, cfg, "images", "export")
	assert.Error(t, err, "zip export needs --out")

	_, err = run(t, cfg, "images", "clear")
	assert.Error(t, err, "clear needs --yes")

	_, err = run(t, cfg, "images", "clear", "--yes")
	require.NoError(t, err)

	out, err = run(t, cfg, "images", "list")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	_, err = run(t, cfg, "recover", "force", "no-such-key")
	assert.Error(t, err)
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"ID", "Size"}, [][]string{{"1", "2 KiB"}, {"2"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "2 KiB")
	assert.Empty(t, renderTable(nil, nil, nil))
}
