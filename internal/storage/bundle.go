package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// DefaultKey is the fixed key the session bundle is stored under.
const DefaultKey = "flashcard-app-data"

// BundleRepository saves the whole session bundle as one JSON document.
type BundleRepository struct {
	db     *DB
	key    string
	logger *slog.Logger
}

// NewBundleRepository stores bundles in db under key (DefaultKey when empty).
func NewBundleRepository(db *DB, key string, logger *slog.Logger) *BundleRepository {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BundleRepository{db: db, key: key, logger: logger.With("component", "storage", "key", key)}
}

// savedBundle is the stored document. Every section must be present.
type savedBundle struct {
	Flashcards    *[]domain.Flashcard   `json:"flashcards"`
	CardStatus    *[]domain.CardStatus  `json:"cardStatus"`
	ReviewHistory *[]domain.ReviewEvent `json:"reviewHistory"`
	Stats         *domain.Stats         `json:"stats"`
}

// Load reads the saved bundle. A document that cannot be decoded, or that
// lacks one of its sections, is treated as absent so the caller falls back
// to defaults.
func (r *BundleRepository) Load(ctx context.Context) (domain.Bundle, bool, error) {
	raw, ok, err := r.db.Get(ctx, r.key)
	if err != nil || !ok {
		return domain.Bundle{}, false, err
	}
	var saved savedBundle
	if err := json.Unmarshal(raw, &saved); err != nil {
		r.logger.Warn("Saved data is corrupt, ignoring it", "error", err, "bytes", len(raw))
		return domain.Bundle{}, false, nil
	}
	if saved.Flashcards == nil || saved.CardStatus == nil || saved.ReviewHistory == nil || saved.Stats == nil {
		r.logger.Warn("Saved data is incomplete, ignoring it", "bytes", len(raw))
		return domain.Bundle{}, false, nil
	}
	b := domain.Bundle{
		Flashcards:    *saved.Flashcards,
		CardStatus:    *saved.CardStatus,
		ReviewHistory: *saved.ReviewHistory,
		Stats:         *saved.Stats,
	}
	if b.Stats.ReviewsByDate == nil {
		b.Stats.ReviewsByDate = map[string]domain.DayStats{}
	}
	return b, true, nil
}

// Save replaces the saved bundle. Nil sections are written as empty so the
// document always loads back.
func (r *BundleRepository) Save(ctx context.Context, b domain.Bundle) error {
	if b.Flashcards == nil {
		b.Flashcards = []domain.Flashcard{}
	}
	if b.CardStatus == nil {
		b.CardStatus = []domain.CardStatus{}
	}
	if b.ReviewHistory == nil {
		b.ReviewHistory = []domain.ReviewEvent{}
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	return r.db.Put(ctx, r.key, raw)
}

// Clear removes the saved bundle.
func (r *BundleRepository) Clear(ctx context.Context) error {
	return r.db.Delete(ctx, r.key)
}
