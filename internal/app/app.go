// Package app assembles the gallery's components from configuration. The
// HTTP server and every CLI command share one App.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/promptmarket/gallery/internal/autogen"
	"github.com/promptmarket/gallery/internal/catalog"
	"github.com/promptmarket/gallery/internal/config"
	"github.com/promptmarket/gallery/internal/generation"
	"github.com/promptmarket/gallery/internal/images"
	"github.com/promptmarket/gallery/internal/inspector"
	"github.com/promptmarket/gallery/internal/models"
	"github.com/promptmarket/gallery/internal/recovery"
	"github.com/promptmarket/gallery/internal/storage"
)

type App struct {
	Config *config.Config

	Store   *storage.Store
	Local   *storage.KVStore
	Session *storage.SessionStore

	Catalog    *catalog.State
	Characters *catalog.Characters

	Client    *generation.Client
	Generator *generation.Service
	Fetcher   *images.Fetcher

	Scanner  *inspector.Scanner
	Recovery *recovery.Engine
	Autogen  *autogen.Orchestrator
}

// Open creates the data directory, opens every store and loads the catalog
// with persisted images attached.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	dataDir := cfg.Storage.DataDir
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.Open(ctx, filepath.Join(dataDir, storage.DatabaseName))
	if err != nil {
		return nil, err
	}

	local, err := storage.OpenKV(filepath.Join(dataDir, storage.LocalStoreName))
	if err != nil {
		store.Close()
		return nil, err
	}

	state, err := loadCatalog(ctx, cfg.Catalog)
	if err != nil {
		store.Close()
		return nil, err
	}

	client, err := generation.NewClientFromConfig(ctx, cfg.Generation.Backend())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create generation client: %w", err)
	}

	a := &App{
		Config:  cfg,
		Store:   store,
		Local:   local,
		Session: storage.NewSessionStore(),
		Catalog: state,
		Client:  client,
		Fetcher: images.NewFetcher(),
	}
	a.Characters = catalog.NewCharacters(store)
	a.Generator = generation.NewService(client, store, a.Characters, state, local.IsPremium)
	a.Scanner = inspector.New(local, a.Session, dataDir)
	a.Recovery = recovery.New(store, local, a.Session, dataDir)
	a.Autogen = autogen.New(client, store, state,
		autogen.WithPolicy(cfg.Autogen.Policy),
		autogen.WithClassifier(cfg.Autogen.Classifier),
		autogen.WithOnComplete(func(s autogen.Summary) {
			slog.Info("Auto-generation sweep complete", "run_id", s.RunID, "generated", s.Generated, "skipped", s.Skipped, "total", s.Total)
		}),
	)

	attached := a.RefreshThumbnails(ctx)
	primary, fallback := client.Models()
	slog.Info("Gallery ready",
		"data_dir", dataDir,
		"items", state.Len(),
		"images", attached,
		"provider", cfg.Generation.Provider,
		"primary_model", primary,
		"fallback_model", fallback)

	return a, nil
}

func loadCatalog(ctx context.Context, cfg config.CatalogConfig) (*catalog.State, error) {
	if cfg.Source != "" {
		return catalog.Load(ctx, cfg.Source)
	}
	return catalog.NewState(catalog.Seed(cfg.SeedCount, cfg.Seed), catalog.DefaultCategories), nil
}

// RefreshThumbnails reattaches every persisted image to its catalog item and
// returns how many matched.
func (a *App) RefreshThumbnails(ctx context.Context) int {
	a.Catalog.ClearThumbnails()
	return a.Catalog.ApplyImages(a.Store.GetAllImages(ctx))
}

// ClearImages deletes every generated image and the thumbnails showing them
func (a *App) ClearImages(ctx context.Context) error {
	if err := a.Store.ClearImages(ctx); err != nil {
		return err
	}
	a.Catalog.ClearThumbnails()
	return nil
}

// ForceImport runs a forced import and refreshes the catalog on success
func (a *App) ForceImport(ctx context.Context, entry models.StorageInventoryEntry) bool {
	ok := a.Recovery.ForceImportItem(ctx, entry)
	if ok {
		a.RefreshThumbnails(ctx)
	}
	return ok
}

// ManualImport imports pasted backup text and refreshes the catalog
func (a *App) ManualImport(ctx context.Context, raw string) models.RecoveryImportResult {
	result := a.Recovery.ManualImport(ctx, raw)
	if result.Success {
		a.RefreshThumbnails(ctx)
	}
	return result
}

// FindEntry rescans storage and returns the inventory entry with key. An
// empty dbName matches entries from any source.
func (a *App) FindEntry(ctx context.Context, key, dbName string) (models.StorageInventoryEntry, bool) {
	for _, entry := range a.Scanner.ScanAll(ctx) {
		if entry.Key == key && (dbName == "" || entry.DBName == dbName) && !inspector.IsSynthetic(entry) {
			return entry, true
		}
	}
	return models.StorageInventoryEntry{}, false
}

// Close stops any sweep and releases the stores
func (a *App) Close() error {
	a.Autogen.Stop()
	a.Autogen.Wait()

	return errors.Join(a.Client.Close(), a.Store.Close())
}
