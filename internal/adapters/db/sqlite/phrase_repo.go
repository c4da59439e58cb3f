package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/malinali-app/trad/internal/domain"
)

type PhraseRepo struct{ *Repo }

func NewPhraseRepo(db *sql.DB) *PhraseRepo { return &PhraseRepo{NewRepo(db)} }

func (r *PhraseRepo) GetAll(ctx context.Context) (map[string]domain.SourcePhrase, error) {
	q := r.SQ.Select("key", "value", "updated_at").From("phrases")
	sqlStr, args, _ := q.ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, domain.NewStorageError("load phrases", err)
	}
	defer rows.Close()
	out := map[string]domain.SourcePhrase{}
	for rows.Next() {
		var p domain.SourcePhrase
		var updated string
		if err := rows.Scan(&p.Key, &p.Value, &updated); err != nil {
			return nil, domain.NewStorageError("scan phrase", err)
		}
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		out[p.Key] = p
	}
	return out, domain.NewStorageError("load phrases", rows.Err())
}

// SaveAll upserts all given phrases in one transaction so concurrent
// readers never observe a partial subset.
func (r *PhraseRepo) SaveAll(ctx context.Context, phrases []domain.SourcePhrase) error {
	if len(phrases) == 0 {
		return nil
	}
	err := WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO phrases(key, value, updated_at) VALUES (?, ?, ?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, p := range phrases {
			ts := p.UpdatedAt
			if ts.IsZero() {
				ts = time.Now().UTC()
			}
			if _, err := stmt.ExecContext(ctx, p.Key, p.Value, ts.Format(time.RFC3339)); err != nil {
				return err
			}
		}
		return nil
	})
	return domain.NewStorageError("save phrases", err)
}

func (r *PhraseRepo) Count(ctx context.Context) (int, error) {
	q := r.SQ.Select("COUNT(*)").From("phrases")
	sqlStr, args, _ := q.ToSql()
	var n int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, domain.NewStorageError("count phrases", err)
	}
	return n, nil
}
