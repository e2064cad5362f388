package catalog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/promptmarket/gallery/internal/models"
)

// File is the document form of a catalog file. A bare list of items is
// also accepted.
type File struct {
	Categories []models.Category    `json:"categories" yaml:"categories"`
	Items      []models.CatalogItem `json:"items" yaml:"items"`
}

// itemRow is the parquet layout of a catalog item
type itemRow struct {
	ID           string `parquet:"id"`
	Title        string `parquet:"title"`
	Template     string `parquet:"template"`
	IsPremium    bool   `parquet:"is_premium"`
	BaseImageURL string `parquet:"base_image_url,optional"`
	Category     string `parquet:"category"`
	AspectRatio  string `parquet:"aspect_ratio,optional"`
	CharacterID  string `parquet:"character_id,optional"`
}

func (r itemRow) item() models.CatalogItem {
	return models.CatalogItem{
		ID:           r.ID,
		Title:        r.Title,
		Template:     r.Template,
		IsPremium:    r.IsPremium,
		BaseImageURL: r.BaseImageURL,
		Category:     r.Category,
		AspectRatio:  models.AspectRatio(r.AspectRatio),
		CharacterID:  r.CharacterID,
	}
}

// Load reads a catalog from a local file (.yaml, .yml, .json, .jsonl,
// .parquet) or an http(s) URL serving JSON.
func Load(ctx context.Context, source string) (*State, error) {
	var (
		file File
		err  error
	)

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		file, err = NewClient(source).Fetch(ctx)
	} else {
		file, err = loadFile(source)
	}
	if err != nil {
		return nil, err
	}

	if err := validate(file.Items); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", source, err)
	}
	if len(file.Categories) == 0 {
		file.Categories = deriveCategories(file.Items)
	}

	slog.Info("Loaded catalog", "source", source, "items", len(file.Items), "categories", len(file.Categories))
	return NewState(file.Items, file.Categories), nil
}

func loadFile(path string) (File, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".parquet":
		items, err := loadParquet(path)
		return File{Items: items}, err
	case ".jsonl":
		items, err := loadJSONL(path)
		return File{Items: items}, err
	case ".json":
		return loadJSON(path)
	case ".yaml", ".yml":
		return loadYAML(path)
	default:
		return File{}, fmt.Errorf("unsupported file format: %s (supported: .yaml, .yml, .json, .jsonl, .parquet)", ext)
	}
}

func loadJSON(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return decodeJSON(data)
}

func decodeJSON(data []byte) (File, error) {
	var file File
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &file.Items); err != nil {
			return File{}, fmt.Errorf("failed to parse catalog JSON: %w", err)
		}
		return file, nil
	}
	if err := json.Unmarshal(trimmed, &file); err != nil {
		return File{}, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	return file, nil
}

func loadYAML(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return File{}, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	var file File
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		err = node.Content[0].Decode(&file.Items)
	} else {
		err = node.Decode(&file)
	}
	if err != nil {
		return File{}, fmt.Errorf("failed to decode catalog YAML: %w", err)
	}
	return file, nil
}

func loadJSONL(path string) ([]models.CatalogItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	var items []models.CatalogItem
	scanner := bufio.NewScanner(f)

	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var item models.CatalogItem
		if err := json.Unmarshal(line, &item); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading catalog: %w", err)
	}
	return items, nil
}

func loadParquet(path string) ([]models.CatalogItem, error) {
	slog.Debug("Opening Parquet file", "path", path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Parquet file opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[itemRow](pf)
	defer reader.Close()

	var items []models.CatalogItem
	rows := make([]itemRow, 128)
	for {
		n, err := reader.Read(rows)
		for _, row := range rows[:n] {
			items = append(items, row.item())
		}
		if err != nil {
			break
		}
	}
	return items, nil
}

// WriteParquet writes items in the layout Load reads back
func WriteParquet(path string, items []models.CatalogItem) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer f.Close()

	rows := make([]itemRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, itemRow{
			ID:           item.ID,
			Title:        item.Title,
			Template:     item.Template,
			IsPremium:    item.IsPremium,
			BaseImageURL: item.BaseImageURL,
			Category:     item.Category,
			AspectRatio:  string(item.AspectRatio),
			CharacterID:  item.CharacterID,
		})
	}

	w := parquet.NewGenericWriter[itemRow](f)
	if _, err := w.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func validate(items []models.CatalogItem) error {
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		if item.ID == "" {
			return fmt.Errorf("item %d has no id", i)
		}
		if seen[item.ID] {
			return fmt.Errorf("duplicate item id %q", item.ID)
		}
		if strings.TrimSpace(item.Template) == "" {
			return fmt.Errorf("item %q has no template", item.ID)
		}
		seen[item.ID] = true
	}
	return nil
}

// deriveCategories lists "all" followed by every category the items use,
// in first-seen order, named after the built-in categories where known.
func deriveCategories(items []models.CatalogItem) []models.Category {
	names := make(map[string]string, len(DefaultCategories))
	for _, c := range DefaultCategories {
		names[c.ID] = c.Name
	}

	categories := []models.Category{{ID: AllCategory, Name: names[AllCategory]}}
	seen := map[string]bool{AllCategory: true}
	for _, item := range items {
		if item.Category == "" || seen[item.Category] {
			continue
		}
		seen[item.Category] = true
		name, ok := names[item.Category]
		if !ok {
			name = item.Category
		}
		categories = append(categories, models.Category{ID: item.Category, Name: name})
	}
	return categories
}
