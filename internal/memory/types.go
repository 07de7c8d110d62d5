package memory

import (
	"context"
	"time"

	"github.com/avvvet/voicenav/internal/models"
)

// Entry is a classification kept for repeated commands.
type Entry struct {
	Text     string              `json:"text"`     // Normalised command text
	Result   models.IntentResult `json:"result"`   // What the model answered
	StoredAt time.Time           `json:"stored_at"` // When the entry was written
}

// Store defines the interface for classification storage
// This allows us to swap between Redis, in-memory, etc.
type Store interface {
	// Load returns the entry under key, or nil when there is none
	Load(ctx context.Context, key string) (*Entry, error)

	// Save writes an entry, replacing any previous one
	Save(ctx context.Context, key string, entry *Entry) error

	// Delete removes an entry
	Delete(ctx context.Context, key string) error

	// Exists checks if an entry is present
	Exists(ctx context.Context, key string) (bool, error)
}
