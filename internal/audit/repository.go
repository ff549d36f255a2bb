package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so the trail can be
// appended inside the override mutation transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Repository defines the query surface over the trail.
type Repository interface {
	ListByTarget(ctx context.Context, target string, offset, limit int) ([]Record, error)
	AllByTarget(ctx context.Context, target string) ([]Record, error)
}

// Append inserts one record. There is deliberately no update or delete
// counterpart; the trail is immutable once written.
func Append(ctx context.Context, db DBTX, rec Record) error {
	before, err := json.Marshal(rec.Before)
	if err != nil {
		return fmt.Errorf("audit: encode before override: %w", err)
	}
	after, err := json.Marshal(rec.After)
	if err != nil {
		return fmt.Errorf("audit: encode after override: %w", err)
	}
	occurredAt := rec.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	_, err = db.Exec(ctx, `
		INSERT INTO authz_audit (id, target, action, changed_by, reason, before_override, after_override, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.Target, rec.Action, rec.ChangedBy,
		pgtype.Text{String: rec.Reason, Valid: rec.Reason != ""},
		before, after, occurredAt,
	)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return fmt.Errorf("audit: duplicate record id %s", rec.ID)
		}
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

// PGRepository implements Repository against PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectColumns = `id, target, action, changed_by, reason, before_override, after_override, occurred_at`

// ListByTarget returns a window of records for the target, newest first.
func (r *PGRepository) ListByTarget(ctx context.Context, target string, offset, limit int) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM authz_audit
		WHERE target = $1
		ORDER BY occurred_at DESC, id DESC
		OFFSET $2 LIMIT $3`,
		target, offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: list by target: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// AllByTarget returns every record for the target, newest first.
func (r *PGRepository) AllByTarget(ctx context.Context, target string) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM authz_audit
		WHERE target = $1
		ORDER BY occurred_at DESC, id DESC`,
		target,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: all by target: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecords(rows rowScanner) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var (
			rec        Record
			reason     pgtype.Text
			before     []byte
			after      []byte
			occurredAt pgtype.Timestamptz
		)
		if err := rows.Scan(&rec.ID, &rec.Target, &rec.Action, &rec.ChangedBy, &reason, &before, &after, &occurredAt); err != nil {
			return nil, fmt.Errorf("audit: scan record: %w", err)
		}
		if reason.Valid {
			rec.Reason = reason.String
		}
		if occurredAt.Valid {
			rec.OccurredAt = occurredAt.Time
		}
		if err := json.Unmarshal(before, &rec.Before); err != nil {
			return nil, fmt.Errorf("audit: decode before override: %w", err)
		}
		if err := json.Unmarshal(after, &rec.After); err != nil {
			return nil, fmt.Errorf("audit: decode after override: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate records: %w", err)
	}
	return records, nil
}
