package memory

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/voicenav/internal/logger"
	"github.com/avvvet/voicenav/internal/models"
)

// Manager caches model classifications by command text. Storage errors
// are logged and behave as misses; the cache never fails a command.
type Manager struct {
	store Store
	log   logger.Logger
	now   func() time.Time
}

// NewManager creates a new cache manager
func NewManager(store Store, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Manager{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Key derives the storage key for a command. Case and surrounding
// whitespace do not matter.
func Key(text string) string {
	sum := sha256.Sum256([]byte(normalise(text)))
	return fmt.Sprintf("intent:%x", sum)
}

func normalise(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// Lookup returns the cached result for text, if any.
func (m *Manager) Lookup(ctx context.Context, text string) (models.IntentResult, bool) {
	key := Key(text)
	entry, err := m.store.Load(ctx, key)
	if err != nil {
		m.log.WithError(err).Warn("⚠️ Cache lookup failed", map[string]interface{}{"key": key})
		return models.IntentResult{}, false
	}
	if entry == nil {
		return models.IntentResult{}, false
	}
	if entry.Result.Entities == nil {
		entry.Result.Entities = models.Entities{}
	}

	m.log.Debug("📚 Cache hit", map[string]interface{}{"key": key, "intent": entry.Result.Intent})
	return entry.Result, true
}

// Remember stores a model result. Rule-based results are never kept.
func (m *Manager) Remember(ctx context.Context, text string, result models.IntentResult) {
	if result.IsFallback() {
		return
	}
	key := Key(text)
	entry := &Entry{
		Text:     normalise(text),
		Result:   result,
		StoredAt: m.now().UTC(),
	}
	if err := m.store.Save(ctx, key, entry); err != nil {
		m.log.WithError(err).Warn("⚠️ Cache write failed", map[string]interface{}{"key": key})
		return
	}

	m.log.Debug("💾 Cached classification", map[string]interface{}{"key": key, "intent": result.Intent})
}

// Forget drops the cached result for text and reports whether there was
// one.
func (m *Manager) Forget(ctx context.Context, text string) (bool, error) {
	key := Key(text)
	exists, err := m.store.Exists(ctx, key)
	if err != nil || !exists {
		return false, err
	}
	if err := m.store.Delete(ctx, key); err != nil {
		return false, err
	}
	m.log.Info("🗑️ Forgot cached classification", map[string]interface{}{"key": key})
	return true, nil
}
