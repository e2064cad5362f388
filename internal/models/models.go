package models

// AspectRatio is the shape hint carried by a catalog item
type AspectRatio string

const (
	AspectPortrait  AspectRatio = "portrait"
	AspectSquare    AspectRatio = "square"
	AspectLandscape AspectRatio = "landscape"
)

// CatalogItem represents one prompt template in the gallery
type CatalogItem struct {
	ID              string      `json:"id" yaml:"id"`
	Title           string      `json:"title" yaml:"title"`
	Template        string      `json:"template" yaml:"template"` // contains a {subject} placeholder
	IsPremium       bool        `json:"is_premium" yaml:"is_premium"`
	BaseImageURL    string      `json:"base_image_url" yaml:"base_image_url"`
	Category        string      `json:"category" yaml:"category"`
	AspectRatio     AspectRatio `json:"aspect_ratio" yaml:"aspect_ratio"`
	CustomThumbnail string      `json:"custom_thumbnail,omitempty" yaml:"-"` // generated data URI
	CharacterID     string      `json:"character_id,omitempty" yaml:"character_id,omitempty"`
}

// PersonaCategory holds one card per character; its prompts are persona
// prompts regardless of CharacterID.
const PersonaCategory = "ai_personas"

// IsPersona reports whether the item is rendered around a character
func (c CatalogItem) IsPersona() bool {
	return c.Category == PersonaCategory || c.CharacterID != ""
}

// Category groups catalog items in the gallery navigation
type Category struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// GeneratedImage is a persisted image keyed by catalog item id
type GeneratedImage struct {
	ID      string `json:"id"`
	Payload string `json:"payload"` // data:<mime>;base64,<data>
}

// Character is a persona whose description personalises a prompt
type Character struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatar_url"`
	IsCustom    bool   `json:"is_custom"`
	IsPremium   bool   `json:"is_premium,omitempty"`
}

// StorageSource identifies the persistence mechanism an inventory entry came from
type StorageSource string

const (
	SourceSimpleStore     StorageSource = "SimpleStore"
	SourceSessionStore    StorageSource = "SessionStore"
	SourceStructuredStore StorageSource = "StructuredStore"
)

// StorageInventoryEntry is one row of a deep scan
type StorageInventoryEntry struct {
	Key            string        `json:"key"`
	Source         StorageSource `json:"source"`
	RawSize        int           `json:"raw_size"`
	SizePretty     string        `json:"size"`
	Preview        string        `json:"preview"`
	DBName         string        `json:"db_name,omitempty"`
	CollectionName string        `json:"collection_name,omitempty"`
	Error          string        `json:"error,omitempty"`
	Synthetic      bool          `json:"synthetic,omitempty"` // describes a scan condition, not a stored record
}

// RecoveryImportResult reports the outcome of a single import
type RecoveryImportResult struct {
	Success       bool `json:"success"`
	ImportedCount int  `json:"count"`
}

// Progress is the observable state of an auto-generation sweep
type Progress struct {
	Running          bool   `json:"running"`
	RunID            string `json:"run_id,omitempty"`
	CurrentItemID    string `json:"current_item_id,omitempty"`
	CurrentItemTitle string `json:"current_item_title,omitempty"`
	Status           string `json:"status"`
	Generated        int    `json:"generated"`
}
