package ports

import (
	"context"

	"github.com/malinali-app/trad/internal/domain"
)

// PhraseRepository owns the canonical source-language phrase set.
type PhraseRepository interface {
	GetAll(ctx context.Context) (map[string]domain.SourcePhrase, error)
	// SaveAll upserts the given phrases as one transaction; a failure
	// leaves no partial subset visible.
	SaveAll(ctx context.Context, phrases []domain.SourcePhrase) error
	Count(ctx context.Context) (int, error)
}

// TranslationRepository owns per-locale translations keyed by (key, locale).
type TranslationRepository interface {
	Get(ctx context.Context, key, locale string) (*domain.Translation, error)
	// IsManual is false when no translation exists.
	IsManual(ctx context.Context, key, locale string) (bool, error)
	Save(ctx context.Context, t domain.Translation) error
	// SaveBatch groups by locale and commits each locale's records as one
	// transaction. Cross-locale atomicity is not provided.
	SaveBatch(ctx context.Context, ts []domain.Translation) error
	ListByLocale(ctx context.Context, locale string) (map[string]domain.Translation, error)
	CountByLocale(ctx context.Context) (map[string]int, error)
}
