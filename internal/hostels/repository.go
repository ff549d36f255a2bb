package hostels

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostelcore/hostelcore/internal/shared"
)

// Repository defines persistence for hostels and supervisor assignments.
type Repository interface {
	ListManagedBy(ctx context.Context, userID int64) ([]Hostel, error)
	Get(ctx context.Context, id int64) (Hostel, error)
	Manages(ctx context.Context, userID, hostelID int64) (bool, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListManagedBy returns the hostels a supervisor manages, ordered by code.
func (r *PGRepository) ListManagedBy(ctx context.Context, userID int64) ([]Hostel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT h.id, h.code, h.name
		FROM hostels h
		JOIN hostel_supervisors hs ON hs.hostel_id = h.id
		WHERE hs.user_id = $1
		ORDER BY h.code`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("hostels: list managed: %w", err)
	}
	defer rows.Close()

	var hostels []Hostel
	for rows.Next() {
		var h Hostel
		if err := rows.Scan(&h.ID, &h.Code, &h.Name); err != nil {
			return nil, fmt.Errorf("hostels: scan: %w", err)
		}
		hostels = append(hostels, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hostels: iterate: %w", err)
	}
	return hostels, nil
}

// Get fetches a hostel by ID.
func (r *PGRepository) Get(ctx context.Context, id int64) (Hostel, error) {
	var h Hostel
	err := r.pool.QueryRow(ctx,
		`SELECT id, code, name FROM hostels WHERE id = $1`, id,
	).Scan(&h.ID, &h.Code, &h.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Hostel{}, shared.ErrNotFound
		}
		return Hostel{}, fmt.Errorf("hostels: get %d: %w", id, err)
	}
	return h, nil
}

// Manages reports whether the user supervises the hostel.
func (r *PGRepository) Manages(ctx context.Context, userID, hostelID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM hostel_supervisors WHERE user_id = $1 AND hostel_id = $2)`,
		userID, hostelID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("hostels: manages: %w", err)
	}
	return exists, nil
}

var _ Repository = (*PGRepository)(nil)
