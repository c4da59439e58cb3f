// Package sync drives a full synchronization run: diff the incoming
// catalog against the store, translate what changed for every target
// locale, and re-export each locale's bundle.
//
// Manual translations are never touched (invariant: sync only ever writes
// automatic provenance, and manual keys are filtered out before the
// oracle sees them). The source-phrase delta is committed once, before
// any locale is processed, so a crash mid-run cannot drift the canonical
// store on retry.
package sync

import (
	"context"
	"errors"
	"time"

	"github.com/malinali-app/trad/internal/domain"
	"github.com/malinali-app/trad/internal/ports"
	"github.com/malinali-app/trad/internal/usecase/diff"
	"github.com/malinali-app/trad/internal/usecase/export"
	"github.com/malinali-app/trad/internal/usecase/translator"
)

type Deps struct {
	Phrases      ports.PhraseRepository
	Translations ports.TranslationRepository
	Batch        *translator.Service
	Export       *export.Service
}

type Service struct{ d Deps }

func New(d Deps) *Service { return &Service{d: d} }

// Params describes one sync run.
type Params struct {
	// Entries is the incoming source catalog in canonical order.
	Entries []domain.Entry
	// Metadata holds the catalog's reserved-prefix keys, carried into
	// every exported bundle untranslated.
	Metadata map[string]string
	// SourceLocale is the catalog's language.
	SourceLocale string
	// Locales are the translation targets, processed sequentially.
	Locales []string
	// Force retranslates every entry regardless of the stored state.
	Force bool
	// Batch tunes the batch translator; OnChunk is owned by the run.
	Batch translator.Options
	// OnLog emits progress messages. May be nil.
	OnLog func(format string, args ...any)
}

// Run executes the state machine Init -> Diffing -> (NoChanges |
// Translating) -> Merging -> Done. A storage failure before any locale is
// touched aborts the run; a storage failure inside one locale abandons
// that locale and the run continues with the next. Oracle failures only
// ever degrade to per-key failure records.
func (s *Service) Run(ctx context.Context, p Params) (domain.SyncReport, error) {
	started := time.Now()
	logf := p.OnLog
	if logf == nil {
		logf = func(string, ...any) {}
	}
	report := domain.SyncReport{Forced: p.Force}

	stored, err := s.d.Phrases.GetAll(ctx)
	if err != nil {
		return report, err
	}

	delta := diff.Delta(p.Entries, stored, p.Force)
	report.Diffed = len(delta)
	if len(delta) == 0 && !s.hasPendingFailures(p.Locales) {
		report.NoChanges = true
		report.Elapsed = time.Since(started)
		logf("no changes")
		return report, nil
	}
	logf("%d phrase(s) need translation", len(delta))

	// Commit the delta to the canonical store before any locale work so
	// a crash mid-locale-loop cannot drift source phrases on retry.
	if len(delta) > 0 {
		now := time.Now().UTC()
		phrases := make([]domain.SourcePhrase, len(delta))
		for i, e := range delta {
			phrases[i] = domain.SourcePhrase{Key: e.Key, Value: e.Value, UpdatedAt: now}
		}
		if err := s.d.Phrases.SaveAll(ctx, phrases); err != nil {
			return report, err
		}
	}

	for _, locale := range p.Locales {
		lr, err := s.syncLocale(ctx, locale, delta, p, logf)
		report.Locales = append(report.Locales, lr)
		if err != nil {
			// Context cancellation ends the run; progress already
			// committed per chunk survives for the next run's diff.
			report.Elapsed = time.Since(started)
			return report, err
		}
	}
	report.Elapsed = time.Since(started)
	return report, nil
}

// hasPendingFailures reports whether any locale still has a failed-keys
// artifact from a previous run waiting to be retried. An unreadable
// artifact counts as pending: the locale pass rebuilds it, and skipping
// would silently flip the run to "no changes".
func (s *Service) hasPendingFailures(locales []string) bool {
	for _, locale := range locales {
		keys, err := s.d.Export.ReadFailedKeys(locale)
		if err != nil || len(keys) > 0 {
			return true
		}
	}
	return false
}

// recordUnfinished writes every key of the work set not durably persisted
// into the failed-keys artifact, so an aborted locale stays recoverable by
// the next run. Best effort — the abort error itself is what gets
// reported.
func (s *Service) recordUnfinished(locale string, work []domain.Entry, merged map[string]string, logf func(string, ...any)) []string {
	var keys []string
	for _, e := range work {
		if _, ok := merged[e.Key]; !ok {
			keys = append(keys, e.Key)
		}
	}
	if err := s.d.Export.WriteFailedKeys(locale, keys); err != nil {
		logf("could not record unfinished keys for %s: %v", locale, err)
	}
	return keys
}

func (s *Service) syncLocale(ctx context.Context, locale string, delta []domain.Entry, p Params, logf func(string, ...any)) (domain.LocaleReport, error) {
	lr := domain.LocaleReport{Locale: locale}

	existing, err := s.d.Translations.ListByLocale(ctx, locale)
	if err != nil {
		lr.Err = err
		return lr, nil
	}

	// Keys that failed in an earlier run are picked up again, as long as
	// they are still part of the incoming catalog. The source-phrase
	// commit happens before translation, so the diff alone would never
	// see them again.
	work := append([]domain.Entry(nil), delta...)
	prevFailed, err := s.d.Export.ReadFailedKeys(locale)
	if err != nil {
		// An unreadable artifact cannot name its keys; it is rebuilt from
		// this run's outcome below.
		logf("%s: unreadable failed-key artifact, rebuilding: %v", locale, err)
	}
	if len(prevFailed) > 0 {
		inDelta := make(map[string]struct{}, len(delta))
		for _, e := range delta {
			inDelta[e.Key] = struct{}{}
		}
		incoming := make(map[string]string, len(p.Entries))
		for _, e := range p.Entries {
			incoming[e.Key] = e.Value
		}
		for _, key := range prevFailed {
			if _, ok := inDelta[key]; ok {
				continue
			}
			if value, ok := incoming[key]; ok {
				work = append(work, domain.Entry{Key: key, Value: value})
			}
		}
	}

	// Manual overrides are preserved no matter what the source did.
	toTranslate := make([]domain.Entry, 0, len(work))
	for _, e := range work {
		if t, ok := existing[e.Key]; ok && t.Provenance == domain.ProvenanceManual {
			lr.SkippedManual++
			continue
		}
		toTranslate = append(toTranslate, e)
	}

	opts := p.Batch
	opts.OnLog = logf
	opts.OnChunk = func(pairs []domain.Entry) error {
		now := time.Now().UTC()
		ts := make([]domain.Translation, len(pairs))
		for i, pair := range pairs {
			ts[i] = domain.Translation{
				Key:        pair.Key,
				Locale:     locale,
				Value:      pair.Value,
				Provenance: domain.ProvenanceAutomatic,
				UpdatedAt:  now,
			}
		}
		return s.d.Translations.SaveBatch(ctx, ts)
	}

	res, err := s.d.Batch.Run(ctx, p.SourceLocale, locale, toTranslate, opts)
	if err != nil {
		// The delta is already committed, so every key not persisted by
		// an OnChunk chunk must land in the artifact or it would never be
		// retried.
		lr.Err = err
		lr.Translated = len(res.Merged)
		lr.FailedKeys = s.recordUnfinished(locale, toTranslate, res.Merged, logf)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return lr, err
		}
		// Storage failure persisting a chunk: abandon this locale, keep
		// the run going.
		return lr, nil
	}
	lr.Translated = len(res.Merged)
	lr.FailedKeys = res.FailedKeys

	if err := s.d.Export.WriteFailedKeys(locale, res.FailedKeys); err != nil {
		lr.Err = err
		return lr, nil
	}
	// Merging: export reflects the full current store state for the
	// locale, not just this run's delta.
	if _, err := s.d.Export.ExportLocale(ctx, s.d.Translations, locale, p.Metadata); err != nil {
		lr.Err = err
		return lr, nil
	}
	logf("%s: %d translated, %d manual kept, %d failed", locale, lr.Translated, lr.SkippedManual, len(lr.FailedKeys))
	return lr, nil
}
