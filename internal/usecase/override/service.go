// Package override protects human-corrected translations from the sync
// path by flipping their provenance to manual.
package override

import (
	"context"
	"time"

	"github.com/malinali-app/trad/internal/domain"
	"github.com/malinali-app/trad/internal/ports"
)

type Service struct {
	translations ports.TranslationRepository
}

func New(translations ports.TranslationRepository) *Service {
	return &Service{translations: translations}
}

// MarkResult is the per-key outcome of a MarkManual call.
type MarkResult struct {
	Key string
	Err error
}

// MarkManual flips provenance to manual for each (key, locale), keeping
// the stored value untouched. A key with no translation yet fails with
// domain.ErrTranslationNotFound — there is no value to preserve. Marking
// an already-manual key succeeds and only refreshes the timestamp.
func (s *Service) MarkManual(ctx context.Context, locale string, keys ...string) []MarkResult {
	out := make([]MarkResult, 0, len(keys))
	for _, key := range keys {
		out = append(out, MarkResult{Key: key, Err: s.markOne(ctx, key, locale)})
	}
	return out
}

func (s *Service) markOne(ctx context.Context, key, locale string) error {
	t, err := s.translations.Get(ctx, key, locale)
	if err != nil {
		return err
	}
	if t == nil {
		return domain.ErrTranslationNotFound
	}
	t.Provenance = domain.ProvenanceManual
	t.UpdatedAt = time.Now().UTC()
	return s.translations.Save(ctx, *t)
}
