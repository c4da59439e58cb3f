package override

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbsqlite "github.com/malinali-app/trad/internal/adapters/db/sqlite"
	"github.com/malinali-app/trad/internal/domain"
)

func testRepo(t *testing.T) *dbsqlite.TranslationRepo {
	t.Helper()
	db, err := dbsqlite.Init(filepath.Join(t.TempDir(), "trad.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return dbsqlite.NewTranslationRepo(db)
}

func TestMarkManualFlipsProvenanceKeepingValue(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, domain.Translation{
		Key: "greeting", Locale: "fr", Value: "Salut", Provenance: domain.ProvenanceAutomatic,
	}))

	results := New(repo).MarkManual(ctx, "fr", "greeting")
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	got, err := repo.Get(ctx, "greeting", "fr")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Salut", got.Value, "value must be preserved")
	assert.Equal(t, domain.ProvenanceManual, got.Provenance)
}

func TestMarkManualRequiresExistingTranslation(t *testing.T) {
	repo := testRepo(t)
	results := New(repo).MarkManual(context.Background(), "fr", "never-translated")
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, domain.ErrTranslationNotFound)
}

func TestMarkManualIdempotent(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, domain.Translation{
		Key: "greeting", Locale: "fr", Value: "Salut", Provenance: domain.ProvenanceManual,
	}))

	results := New(repo).MarkManual(ctx, "fr", "greeting")
	require.NoError(t, results[0].Err)
	got, err := repo.Get(ctx, "greeting", "fr")
	require.NoError(t, err)
	assert.Equal(t, "Salut", got.Value)
	assert.Equal(t, domain.ProvenanceManual, got.Provenance)
}

func TestMarkManualMixedKeys(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, domain.Translation{
		Key: "a", Locale: "fr", Value: "A", Provenance: domain.ProvenanceAutomatic,
	}))

	results := New(repo).MarkManual(ctx, "fr", "a", "missing")
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, domain.ErrTranslationNotFound)
}
