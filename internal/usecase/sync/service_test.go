package sync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malinali-app/trad/internal/adapters/bundle/flatjson"
	dbsqlite "github.com/malinali-app/trad/internal/adapters/db/sqlite"
	"github.com/malinali-app/trad/internal/domain"
	"github.com/malinali-app/trad/internal/ports"
	"github.com/malinali-app/trad/internal/usecase/export"
	"github.com/malinali-app/trad/internal/usecase/translator"
)

// fakeOracle translates via a per-locale dictionary, or fails wholesale.
type fakeOracle struct {
	calls int
	fail  bool
	dict  map[string]map[string]string // locale -> source text -> translation
}

func (f *fakeOracle) Translate(_ context.Context, _, to string, texts []string) ([]string, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("service unavailable")
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		if v, ok := f.dict[to][t]; ok {
			out[i] = v
		} else {
			out[i] = "[" + to + "] " + t
		}
	}
	return out, nil
}

type fixture struct {
	svc          *Service
	oracle       *fakeOracle
	translations *dbsqlite.TranslationRepo
	phrases      *dbsqlite.PhraseRepo
	export       *export.Service
	outDir       string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := dbsqlite.Init(filepath.Join(dir, "trad.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	oracle := &fakeOracle{dict: map[string]map[string]string{
		"fr": {"Hello": "Bonjour", "Bye": "Au revoir", "Hello (updated)": "Bonjour (mis à jour)"},
		"de": {"Hello": "Hallo", "Bye": "Tschüss", "Hello (updated)": "Hallo (aktualisiert)"},
	}}
	outDir := filepath.Join(dir, "locales")
	phrases := dbsqlite.NewPhraseRepo(db)
	translations := dbsqlite.NewTranslationRepo(db)
	exp := export.New(outDir, flatjson.New())
	return &fixture{
		svc: New(Deps{
			Phrases:      phrases,
			Translations: translations,
			Batch:        translator.New(oracle),
			Export:       exp,
		}),
		oracle:       oracle,
		translations: translations,
		phrases:      phrases,
		export:       exp,
		outDir:       outDir,
	}
}

func noSleep(context.Context, time.Duration) error { return nil }

func (f *fixture) run(t *testing.T, entries []domain.Entry, locales []string, force bool) domain.SyncReport {
	t.Helper()
	report, err := f.svc.Run(context.Background(), Params{
		Entries:      entries,
		SourceLocale: "en",
		Locales:      locales,
		Force:        force,
		Batch:        translator.Options{Sleep: noSleep},
	})
	require.NoError(t, err)
	return report
}

func (f *fixture) bundle(t *testing.T, locale string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(f.export.BundlePath(locale))
	require.NoError(t, err)
	values, _, err := flatjson.New().Decode(data)
	require.NoError(t, err)
	return values
}

var sourceV1 = []domain.Entry{{Key: "greeting", Value: "Hello"}, {Key: "farewell", Value: "Bye"}}

func TestSyncFirstRun(t *testing.T) {
	f := newFixture(t)
	report := f.run(t, sourceV1, []string{"fr"}, false)

	assert.Equal(t, 2, report.Diffed)
	require.Len(t, report.Locales, 1)
	assert.Equal(t, 2, report.Locales[0].Translated)
	assert.Empty(t, report.Locales[0].FailedKeys)

	assert.Equal(t, map[string]string{"greeting": "Bonjour", "farewell": "Au revoir"}, f.bundle(t, "fr"))

	ctx := context.Background()
	got, err := f.translations.Get(ctx, "greeting", "fr")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.ProvenanceAutomatic, got.Provenance)

	stored, err := f.phrases.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hello", stored["greeting"].Value)
}

func TestSyncUnchangedSourceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.run(t, sourceV1, []string{"fr"}, false)
	callsAfterFirst := f.oracle.calls

	report := f.run(t, sourceV1, []string{"fr"}, false)
	assert.True(t, report.NoChanges)
	assert.Empty(t, report.Locales)
	assert.Equal(t, callsAfterFirst, f.oracle.calls, "second run must not call the oracle")
}

func TestSyncManualTranslationIsPreserved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.run(t, sourceV1, []string{"fr", "de"}, false)

	// Operator fixes the French greeting and locks it.
	require.NoError(t, f.translations.Save(ctx, domain.Translation{
		Key: "greeting", Locale: "fr", Value: "Salut", Provenance: domain.ProvenanceManual,
	}))

	changed := []domain.Entry{{Key: "greeting", Value: "Hello (updated)"}, {Key: "farewell", Value: "Bye"}}
	report := f.run(t, changed, []string{"fr", "de"}, false)
	assert.Equal(t, 1, report.Diffed)

	fr, err := f.translations.Get(ctx, "greeting", "fr")
	require.NoError(t, err)
	assert.Equal(t, "Salut", fr.Value)
	assert.Equal(t, domain.ProvenanceManual, fr.Provenance)

	de, err := f.translations.Get(ctx, "greeting", "de")
	require.NoError(t, err)
	assert.Equal(t, "Hallo (aktualisiert)", de.Value)
	assert.Equal(t, domain.ProvenanceAutomatic, de.Provenance)

	// The exported bundle keeps the manual value too.
	assert.Equal(t, "Salut", f.bundle(t, "fr")["greeting"])

	require.Len(t, report.Locales, 2)
	assert.Equal(t, 1, report.Locales[0].SkippedManual)

	stored, err := f.phrases.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hello (updated)", stored["greeting"].Value, "source phrase still tracks the catalog")
}

func TestSyncOracleFailureRecordsKeys(t *testing.T) {
	f := newFixture(t)
	f.oracle.fail = true
	report := f.run(t, sourceV1, []string{"fr"}, false)

	require.Len(t, report.Locales, 1)
	lr := report.Locales[0]
	assert.NoError(t, lr.Err, "oracle failures are never fatal to the locale")
	assert.Zero(t, lr.Translated)
	assert.ElementsMatch(t, []string{"greeting", "farewell"}, lr.FailedKeys)

	keys, err := f.export.ReadFailedKeys("fr")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"greeting", "farewell"}, keys)
}

// flakyTranslations fails SaveBatch on selected calls, then delegates.
type flakyTranslations struct {
	ports.TranslationRepository
	calls  int
	failOn func(call int) bool
}

func (f *flakyTranslations) SaveBatch(ctx context.Context, ts []domain.Translation) error {
	f.calls++
	if f.failOn(f.calls) {
		return domain.NewStorageError("save translations", errors.New("disk full"))
	}
	return f.TranslationRepository.SaveBatch(ctx, ts)
}

func (f *fixture) withTranslations(repo ports.TranslationRepository) *Service {
	return New(Deps{
		Phrases:      f.phrases,
		Translations: repo,
		Batch:        translator.New(f.oracle),
		Export:       f.export,
	})
}

func TestSyncStorageFailureKeepsKeysRecoverable(t *testing.T) {
	f := newFixture(t)
	broken := f.withTranslations(&flakyTranslations{
		TranslationRepository: f.translations,
		failOn:                func(call int) bool { return call == 1 },
	})

	report, err := broken.Run(context.Background(), Params{
		Entries:      sourceV1,
		SourceLocale: "en",
		Locales:      []string{"fr"},
		Batch:        translator.Options{Sleep: noSleep},
	})
	require.NoError(t, err, "a storage failure inside one locale does not abort the run")
	require.Len(t, report.Locales, 1)
	lr := report.Locales[0]
	require.Error(t, lr.Err)
	assert.Zero(t, lr.Translated)

	// Nothing reached the store, but every unpersisted key is on record.
	// The delta was already committed, so without the artifact these keys
	// would never surface again.
	ctx := context.Background()
	fr, err := f.translations.ListByLocale(ctx, "fr")
	require.NoError(t, err)
	assert.Empty(t, fr)
	keys, err := f.export.ReadFailedKeys("fr")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"greeting", "farewell"}, keys)

	// With storage healthy again, the same catalog is not a no-op: the
	// artifact drives the retry to completion and is then cleared.
	report = f.run(t, sourceV1, []string{"fr"}, false)
	assert.False(t, report.NoChanges)
	require.Len(t, report.Locales, 1)
	assert.Equal(t, 2, report.Locales[0].Translated)
	assert.Equal(t, map[string]string{"greeting": "Bonjour", "farewell": "Au revoir"}, f.bundle(t, "fr"))
	keys, err = f.export.ReadFailedKeys("fr")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSyncPartialStorageFailureRecordsOnlyUnpersistedKeys(t *testing.T) {
	f := newFixture(t)
	// First SaveBatch succeeds, second fails: with one-entry batches the
	// first key lands in the store and only the second goes on record.
	broken := f.withTranslations(&flakyTranslations{
		TranslationRepository: f.translations,
		failOn:                func(call int) bool { return call == 2 },
	})

	report, err := broken.Run(context.Background(), Params{
		Entries:      sourceV1,
		SourceLocale: "en",
		Locales:      []string{"fr"},
		Batch:        translator.Options{BatchSize: 1, Sleep: noSleep},
	})
	require.NoError(t, err)
	require.Len(t, report.Locales, 1)
	lr := report.Locales[0]
	require.Error(t, lr.Err)
	assert.Equal(t, 1, lr.Translated)
	assert.Equal(t, []string{"farewell"}, lr.FailedKeys)

	keys, err := f.export.ReadFailedKeys("fr")
	require.NoError(t, err)
	assert.Equal(t, []string{"farewell"}, keys)
}

func TestSyncUnreadableArtifactIsRebuilt(t *testing.T) {
	f := newFixture(t)
	f.run(t, sourceV1, []string{"fr"}, false)

	// A corrupt artifact must not let the run degrade to "no changes".
	require.NoError(t, os.WriteFile(f.export.FailedPath("fr"), []byte("{not json"), 0o644))
	report := f.run(t, sourceV1, []string{"fr"}, false)
	assert.False(t, report.NoChanges)
	require.Len(t, report.Locales, 1)
	assert.NoError(t, report.Locales[0].Err)

	// The locale pass rewrote the artifact from its real outcome: no
	// failures, so it is gone and the next run is a clean no-op.
	_, err := os.Stat(f.export.FailedPath("fr"))
	assert.True(t, os.IsNotExist(err))
	assert.True(t, f.run(t, sourceV1, []string{"fr"}, false).NoChanges)
}

func TestSyncRetriesFailedKeysFromArtifact(t *testing.T) {
	f := newFixture(t)
	f.oracle.fail = true
	f.run(t, sourceV1, []string{"fr"}, false)

	// Same catalog again: the diff is empty (phrases were committed
	// before translation), but the artifact brings the keys back.
	f.oracle.fail = false
	report := f.run(t, sourceV1, []string{"fr"}, false)
	assert.False(t, report.NoChanges)
	assert.Zero(t, report.Diffed)
	require.Len(t, report.Locales, 1)
	assert.Equal(t, 2, report.Locales[0].Translated)

	assert.Equal(t, map[string]string{"greeting": "Bonjour", "farewell": "Au revoir"}, f.bundle(t, "fr"))

	// Artifact is cleared; the next run is a clean no-op.
	keys, err := f.export.ReadFailedKeys("fr")
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.True(t, f.run(t, sourceV1, []string{"fr"}, false).NoChanges)
}

func TestSyncForceRetranslatesEverything(t *testing.T) {
	f := newFixture(t)
	f.run(t, sourceV1, []string{"fr"}, false)
	callsAfterFirst := f.oracle.calls

	report := f.run(t, sourceV1, []string{"fr"}, true)
	assert.False(t, report.NoChanges)
	assert.Equal(t, 2, report.Diffed)
	assert.Greater(t, f.oracle.calls, callsAfterFirst)
}

func TestSyncMetadataKeysCarriedUntranslated(t *testing.T) {
	f := newFixture(t)
	report, err := f.svc.Run(context.Background(), Params{
		Entries:      sourceV1,
		Metadata:     map[string]string{"$schema": "https://inlang.com/schema"},
		SourceLocale: "en",
		Locales:      []string{"fr"},
		Batch:        translator.Options{Sleep: noSleep},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Diffed)

	data, err := os.ReadFile(f.export.BundlePath("fr"))
	require.NoError(t, err)
	values, metadata, err := flatjson.New().Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "https://inlang.com/schema", metadata["$schema"])
	assert.NotContains(t, values, "$schema")
}

func TestSyncEmptyCatalogNoChanges(t *testing.T) {
	f := newFixture(t)
	report := f.run(t, nil, []string{"fr"}, false)
	assert.True(t, report.NoChanges)
	assert.Zero(t, f.oracle.calls)
}
