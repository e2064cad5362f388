package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/promptmarket/gallery/internal/models"
)

var ErrInvalidCharacter = errors.New("character needs a name and a description")

// CharacterStore persists custom characters
type CharacterStore interface {
	PutCharacter(ctx context.Context, character models.Character) error
	GetAllCharacters(ctx context.Context) []models.Character
	DeleteCharacter(ctx context.Context, id string) error
}

// Characters merges the user's custom characters with the premade ones
type Characters struct {
	store CharacterStore
	now   func() time.Time
}

func NewCharacters(store CharacterStore) *Characters {
	return &Characters{store: store, now: time.Now}
}

// All lists custom characters newest first, then the premade ones
func (c *Characters) All(ctx context.Context) []models.Character {
	var all []models.Character
	if c.store != nil {
		all = append(all, c.store.GetAllCharacters(ctx)...)
	}
	return append(all, PremadeCharacters...)
}

func (c *Characters) Find(ctx context.Context, id string) (models.Character, bool) {
	for _, ch := range c.All(ctx) {
		if ch.ID == id {
			return ch, true
		}
	}
	return models.Character{}, false
}

// Add creates and stores a custom character
func (c *Characters) Add(ctx context.Context, name, description string) (models.Character, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" || description == "" {
		return models.Character{}, ErrInvalidCharacter
	}

	character := models.Character{
		ID:          fmt.Sprintf("custom_%d", c.now().UnixMilli()),
		Name:        name,
		Description: description,
		AvatarURL:   "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random&color=fff",
		IsCustom:    true,
	}
	if err := c.store.PutCharacter(ctx, character); err != nil {
		return models.Character{}, fmt.Errorf("failed to save character: %w", err)
	}
	return character, nil
}

// Delete removes a custom character. Premade characters cannot be deleted.
func (c *Characters) Delete(ctx context.Context, id string) error {
	for _, ch := range PremadeCharacters {
		if ch.ID == id {
			return fmt.Errorf("cannot delete premade character %s", id)
		}
	}
	return c.store.DeleteCharacter(ctx, id)
}
