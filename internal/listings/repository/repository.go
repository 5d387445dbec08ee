package repository

import (
	"context"
	"errors"

	"github.com/sngor/bayon-backend/internal/listings/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("listing record not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const connectionColumns = `id, user_id, provider, api_base_url, access_token, status, created_at, updated_at`

type CreateConnectionParams struct {
	UserID      uuid.UUID
	Provider    string
	APIBaseURL  string
	AccessToken string
}

func (r *Repository) CreateConnection(ctx context.Context, params CreateConnectionParams) (domain.Connection, error) {
	return r.scanConnection(r.pool.QueryRow(ctx, `
		INSERT INTO mls_connections (user_id, provider, api_base_url, access_token)
		VALUES ($1, $2, $3, $4)
		RETURNING `+connectionColumns,
		params.UserID, params.Provider, params.APIBaseURL, params.AccessToken,
	))
}

func (r *Repository) GetConnection(ctx context.Context, userID, id uuid.UUID) (domain.Connection, error) {
	return r.scanConnection(r.pool.QueryRow(ctx, `
		SELECT `+connectionColumns+`
		FROM mls_connections
		WHERE id = $1 AND user_id = $2
	`, id, userID))
}

func (r *Repository) ListConnections(ctx context.Context, userID uuid.UUID) ([]domain.Connection, error) {
	return r.queryConnections(ctx, `
		SELECT `+connectionColumns+`
		FROM mls_connections
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, userID)
}

// ListActiveConnections returns every syncable connection across all
// users, for the periodic full sweep.
func (r *Repository) ListActiveConnections(ctx context.Context) ([]domain.Connection, error) {
	return r.queryConnections(ctx, `
		SELECT `+connectionColumns+`
		FROM mls_connections
		WHERE status = 'active'
		ORDER BY created_at ASC
	`)
}

// SetConnectionStatus records a connection health change, typically to
// reauth_required after a terminal auth failure.
func (r *Repository) SetConnectionStatus(ctx context.Context, id uuid.UUID, status domain.ConnectionStatus) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE mls_connections SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	return err
}

func (r *Repository) queryConnections(ctx context.Context, sql string, args ...any) ([]domain.Connection, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Connection, 0)
	for rows.Next() {
		var conn domain.Connection
		if err := rows.Scan(
			&conn.ID, &conn.UserID, &conn.Provider, &conn.APIBaseURL,
			&conn.AccessToken, &conn.Status, &conn.CreatedAt, &conn.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, conn)
	}

	return items, rows.Err()
}

func (r *Repository) scanConnection(row pgx.Row) (domain.Connection, error) {
	var conn domain.Connection
	err := row.Scan(
		&conn.ID, &conn.UserID, &conn.Provider, &conn.APIBaseURL,
		&conn.AccessToken, &conn.Status, &conn.CreatedAt, &conn.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Connection{}, ErrNotFound
	}
	if err != nil {
		return domain.Connection{}, err
	}
	return conn, nil
}
