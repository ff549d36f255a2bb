package overrides

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostelcore/hostelcore/internal/audit"
	"github.com/hostelcore/hostelcore/internal/platform/db"
	"github.com/hostelcore/hostelcore/internal/shared"
)

// Repository defines persistence for override records. SaveWithAudit is the
// only write path: an override is never persisted without its audit record.
type Repository interface {
	Get(ctx context.Context, subject string) (Record, error)
	SaveWithAudit(ctx context.Context, rec Record, entry audit.Record) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Get fetches the override stored for a subject. Returns shared.ErrNotFound
// when the subject has no record.
func (r *PGRepository) Get(ctx context.Context, subject string) (Record, error) {
	var (
		payload   []byte
		updatedBy int64
		updatedAt pgtype.Timestamptz
	)
	err := r.pool.QueryRow(ctx,
		`SELECT payload, updated_by, updated_at FROM authz_overrides WHERE subject = $1`,
		subject,
	).Scan(&payload, &updatedBy, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, shared.ErrNotFound
		}
		return Record{}, fmt.Errorf("overrides: get %s: %w", subject, err)
	}
	rec := Record{Subject: subject, UpdatedBy: updatedBy}
	if updatedAt.Valid {
		rec.UpdatedAt = updatedAt.Time
	}
	if err := json.Unmarshal(payload, &rec.Override); err != nil {
		return Record{}, fmt.Errorf("overrides: decode %s: %w", subject, err)
	}
	return rec, nil
}

// SaveWithAudit upserts the override and appends its audit record in one
// transaction. Either both land or neither does.
func (r *PGRepository) SaveWithAudit(ctx context.Context, rec Record, entry audit.Record) error {
	payload, err := json.Marshal(rec.Override)
	if err != nil {
		return fmt.Errorf("overrides: encode %s: %w", rec.Subject, err)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO authz_overrides (subject, payload, updated_by, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (subject) DO UPDATE
			SET payload = EXCLUDED.payload,
			    updated_by = EXCLUDED.updated_by,
			    updated_at = EXCLUDED.updated_at`,
			rec.Subject, payload, rec.UpdatedBy, rec.UpdatedAt,
		); err != nil {
			return fmt.Errorf("overrides: upsert %s: %w", rec.Subject, err)
		}
		return audit.Append(ctx, tx, entry)
	})
}

var _ Repository = (*PGRepository)(nil)
