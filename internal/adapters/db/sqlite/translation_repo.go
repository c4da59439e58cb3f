package sqlite

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/malinali-app/trad/internal/domain"
)

type TranslationRepo struct{ *Repo }

func NewTranslationRepo(db *sql.DB) *TranslationRepo { return &TranslationRepo{NewRepo(db)} }

func (r *TranslationRepo) Get(ctx context.Context, key, locale string) (*domain.Translation, error) {
	q := r.SQ.Select("key", "locale", "value", "provenance", "updated_at").From("translations").
		Where(sq.Eq{"key": key, "locale": locale}).Limit(1)
	sqlStr, args, _ := q.ToSql()
	row := r.DB.QueryRowContext(ctx, sqlStr, args...)
	var t domain.Translation
	var updated string
	if err := row.Scan(&t.Key, &t.Locale, &t.Value, &t.Provenance, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, domain.NewStorageError("load translation", err)
	}
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &t, nil
}

func (r *TranslationRepo) IsManual(ctx context.Context, key, locale string) (bool, error) {
	t, err := r.Get(ctx, key, locale)
	if err != nil {
		return false, err
	}
	return t != nil && t.Provenance == domain.ProvenanceManual, nil
}

func (r *TranslationRepo) Save(ctx context.Context, t domain.Translation) error {
	return r.SaveBatch(ctx, []domain.Translation{t})
}

// SaveBatch groups records by locale and commits each locale's group as
// one transaction. Cross-locale atomicity is not provided.
func (r *TranslationRepo) SaveBatch(ctx context.Context, ts []domain.Translation) error {
	if len(ts) == 0 {
		return nil
	}
	byLocale := map[string][]domain.Translation{}
	var order []string
	for _, t := range ts {
		if _, ok := byLocale[t.Locale]; !ok {
			order = append(order, t.Locale)
		}
		byLocale[t.Locale] = append(byLocale[t.Locale], t)
	}
	for _, locale := range order {
		err := WithTx(ctx, r.DB, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, `INSERT INTO translations(key, locale, value, provenance, updated_at) VALUES (?, ?, ?, ?, ?)
                ON CONFLICT(key, locale) DO UPDATE SET value=excluded.value, provenance=excluded.provenance, updated_at=excluded.updated_at`)
			if err != nil {
				return err
			}
			defer stmt.Close()
			for _, t := range byLocale[locale] {
				prov := t.Provenance
				if !prov.Valid() {
					prov = domain.ProvenanceAutomatic
				}
				ts := t.UpdatedAt
				if ts.IsZero() {
					ts = time.Now().UTC()
				}
				if _, err := stmt.ExecContext(ctx, t.Key, t.Locale, t.Value, string(prov), ts.Format(time.RFC3339)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return domain.NewStorageError("save translations "+locale, err)
		}
	}
	return nil
}

func (r *TranslationRepo) ListByLocale(ctx context.Context, locale string) (map[string]domain.Translation, error) {
	q := r.SQ.Select("key", "locale", "value", "provenance", "updated_at").From("translations").
		Where(sq.Eq{"locale": locale})
	sqlStr, args, _ := q.ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, domain.NewStorageError("load translations "+locale, err)
	}
	defer rows.Close()
	out := map[string]domain.Translation{}
	for rows.Next() {
		var t domain.Translation
		var updated string
		if err := rows.Scan(&t.Key, &t.Locale, &t.Value, &t.Provenance, &updated); err != nil {
			return nil, domain.NewStorageError("scan translation", err)
		}
		t.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		out[t.Key] = t
	}
	return out, domain.NewStorageError("load translations "+locale, rows.Err())
}

func (r *TranslationRepo) CountByLocale(ctx context.Context) (map[string]int, error) {
	q := r.SQ.Select("locale", "COUNT(*)").From("translations").GroupBy("locale")
	sqlStr, args, _ := q.ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, domain.NewStorageError("count translations", err)
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var locale string
		var n int
		if err := rows.Scan(&locale, &n); err != nil {
			return nil, domain.NewStorageError("count translations", err)
		}
		out[locale] = n
	}
	return out, domain.NewStorageError("count translations", rows.Err())
}
