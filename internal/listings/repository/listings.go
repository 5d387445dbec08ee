package repository

import (
	"context"
	"errors"

	"github.com/sngor/bayon-backend/internal/listings/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const listingColumns = `id, user_id, connection_id, external_id, address, status, previous_status, last_synced_at, created_at, updated_at`

type CreateListingParams struct {
	UserID       uuid.UUID
	ConnectionID uuid.UUID
	ExternalID   string
	Address      string
	Status       domain.ListingStatus
}

func (r *Repository) CreateListing(ctx context.Context, params CreateListingParams) (domain.Listing, error) {
	return r.scanListing(r.pool.QueryRow(ctx, `
		INSERT INTO listings (user_id, connection_id, external_id, address, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (connection_id, external_id) DO UPDATE
		SET address = EXCLUDED.address, updated_at = now()
		RETURNING `+listingColumns,
		params.UserID, params.ConnectionID, params.ExternalID, params.Address, params.Status,
	))
}

func (r *Repository) GetListing(ctx context.Context, userID, id uuid.UUID) (domain.Listing, error) {
	return r.scanListing(r.pool.QueryRow(ctx, `
		SELECT `+listingColumns+` FROM listings WHERE id = $1 AND user_id = $2
	`, id, userID))
}

func (r *Repository) ListListings(ctx context.Context, userID uuid.UUID) ([]domain.Listing, error) {
	return r.queryListings(ctx, `
		SELECT `+listingColumns+` FROM listings WHERE user_id = $1 ORDER BY created_at ASC
	`, userID)
}

func (r *Repository) ListListingsByConnection(ctx context.Context, connectionID uuid.UUID) ([]domain.Listing, error) {
	return r.queryListings(ctx, `
		SELECT `+listingColumns+` FROM listings WHERE connection_id = $1 ORDER BY created_at ASC
	`, connectionID)
}

// ApplyExternalStatus overwrites the local status with the authority's
// answer and stamps the sync time. The previous status is kept for
// transition classification and the restoration audit trail.
func (r *Repository) ApplyExternalStatus(ctx context.Context, id uuid.UUID, status domain.ListingStatus) (domain.Listing, error) {
	return r.scanListing(r.pool.QueryRow(ctx, `
		UPDATE listings
		SET previous_status = status,
			status = $2,
			last_synced_at = now(),
			updated_at = now()
		WHERE id = $1
		RETURNING `+listingColumns,
		id, status,
	))
}

// TouchSynced stamps a listing whose external status came back unchanged.
func (r *Repository) TouchSynced(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE listings SET last_synced_at = now() WHERE id = $1
	`, id)
	return err
}

func (r *Repository) queryListings(ctx context.Context, sql string, args ...any) ([]domain.Listing, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Listing, 0)
	for rows.Next() {
		var l domain.Listing
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.ConnectionID, &l.ExternalID, &l.Address,
			&l.Status, &l.PreviousStatus, &l.LastSyncedAt, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, l)
	}

	return items, rows.Err()
}

func (r *Repository) scanListing(row pgx.Row) (domain.Listing, error) {
	var l domain.Listing
	err := row.Scan(
		&l.ID, &l.UserID, &l.ConnectionID, &l.ExternalID, &l.Address,
		&l.Status, &l.PreviousStatus, &l.LastSyncedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Listing{}, ErrNotFound
	}
	if err != nil {
		return domain.Listing{}, err
	}
	return l, nil
}
