package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/promptmarket/gallery/internal/models"
)

// ImageStore persists generated images
type ImageStore interface {
	PutImage(ctx context.Context, id, payload string) error
}

// CharacterFinder resolves premade and custom characters by id
type CharacterFinder interface {
	Find(ctx context.Context, id string) (models.Character, bool)
}

// CatalogUpdater patches catalog entries in place
type CatalogUpdater interface {
	UpdateItemByID(id string, fn func(*models.CatalogItem)) bool
}

// Options are the user's choices for an interactive generation
type Options struct {
	Subject        string
	CharacterID    string
	ReferenceImage string // data URI
}

// Service runs interactive generations: it applies premium gating and
// character personas, then saves the result and attaches it to the catalog.
type Service struct {
	client     *Client
	images     ImageStore
	characters CharacterFinder
	catalog    CatalogUpdater
	isPremium  func() bool
}

func NewService(client *Client, images ImageStore, characters CharacterFinder, catalog CatalogUpdater, isPremium func() bool) *Service {
	if isPremium == nil {
		isPremium = func() bool { return false }
	}
	return &Service{
		client:     client,
		images:     images,
		characters: characters,
		catalog:    catalog,
		isPremium:  isPremium,
	}
}

// GenerateForItem generates, stores and attaches an image for item. Unlike
// the unattended sweep it treats an empty model response as ErrNoImage.
func (s *Service) GenerateForItem(ctx context.Context, item models.CatalogItem, opts Options) (string, error) {
	premium := s.isPremium()
	if item.IsPremium && !premium {
		return "", fmt.Errorf("%w: %s", ErrPremiumRequired, item.Title)
	}

	fallback := DefaultSubject
	if item.IsPersona() || opts.CharacterID != "" {
		fallback = PersonaDefaultSubject
	}

	subject := strings.TrimSpace(opts.Subject)
	if opts.CharacterID != "" && opts.CharacterID != item.CharacterID {
		character, err := s.character(ctx, opts.CharacterID, premium)
		if err != nil {
			return "", err
		}
		if subject == "" {
			subject = fallback
		}
		subject = character.Description + ", " + subject
	}

	payload, err := s.client.Generate(ctx, Request{
		Template:       item.Template,
		Subject:        subject,
		DefaultSubject: fallback,
		AspectRatio:    item.AspectRatio,
		ReferenceImage: opts.ReferenceImage,
	})
	if err != nil {
		return "", err
	}
	if payload == "" {
		return "", ErrNoImage
	}

	if err := s.images.PutImage(ctx, item.ID, payload); err != nil {
		return payload, fmt.Errorf("failed to save image: %w", err)
	}
	if s.catalog != nil {
		s.catalog.UpdateItemByID(item.ID, func(c *models.CatalogItem) {
			c.CustomThumbnail = payload
		})
	}

	slog.Info("Saved generated image", "id", item.ID, "character", opts.CharacterID)
	return payload, nil
}

func (s *Service) character(ctx context.Context, id string, premium bool) (models.Character, error) {
	if s.characters == nil {
		return models.Character{}, fmt.Errorf("%w: %s", ErrUnknownCharacter, id)
	}
	character, ok := s.characters.Find(ctx, id)
	if !ok {
		return models.Character{}, fmt.Errorf("%w: %s", ErrUnknownCharacter, id)
	}
	if character.IsPremium && !premium {
		return models.Character{}, fmt.Errorf("%w: %s", ErrPremiumRequired, character.Name)
	}
	return character, nil
}
