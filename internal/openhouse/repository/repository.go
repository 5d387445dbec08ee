package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sngor/bayon-backend/internal/openhouse/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound       = errors.New("open house record not found")
	ErrTokenCollision = errors.New("public token already in use")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type CreateSessionParams struct {
	UserID      uuid.UUID
	Title       string
	Address     string
	PublicToken string
	StartsAt    time.Time
	EndsAt      time.Time
}

func (r *Repository) CreateSession(ctx context.Context, params CreateSessionParams) (domain.Session, error) {
	var s domain.Session
	err := r.pool.QueryRow(ctx, `
		INSERT INTO open_house_sessions (user_id, title, address, public_token, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, title, address, public_token, starts_at, ends_at, archived_at, created_at, updated_at
	`, params.UserID, params.Title, params.Address, params.PublicToken, params.StartsAt, params.EndsAt).Scan(
		&s.ID, &s.UserID, &s.Title, &s.Address, &s.PublicToken,
		&s.StartsAt, &s.EndsAt, &s.ArchivedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Session{}, ErrTokenCollision
		}
		return domain.Session{}, err
	}
	return s, nil
}

func (r *Repository) GetSession(ctx context.Context, userID, id uuid.UUID) (domain.Session, error) {
	return r.scanSession(r.pool.QueryRow(ctx, `
		SELECT id, user_id, title, address, public_token, starts_at, ends_at, archived_at, created_at, updated_at
		FROM open_house_sessions
		WHERE id = $1 AND user_id = $2
	`, id, userID))
}

// GetSessionByToken looks a session up by its public check-in token.
// It deliberately ignores ownership: the caller is an anonymous visitor.
func (r *Repository) GetSessionByToken(ctx context.Context, token string) (domain.Session, error) {
	return r.scanSession(r.pool.QueryRow(ctx, `
		SELECT id, user_id, title, address, public_token, starts_at, ends_at, archived_at, created_at, updated_at
		FROM open_house_sessions
		WHERE public_token = $1 AND archived_at IS NULL
	`, token))
}

func (r *Repository) ListSessions(ctx context.Context, userID uuid.UUID) ([]domain.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, title, address, public_token, starts_at, ends_at, archived_at, created_at, updated_at
		FROM open_house_sessions
		WHERE user_id = $1 AND archived_at IS NULL
		ORDER BY starts_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Session, 0)
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.Title, &s.Address, &s.PublicToken,
			&s.StartsAt, &s.EndsAt, &s.ArchivedAt, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, s)
	}

	return items, rows.Err()
}

func (r *Repository) ArchiveSession(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE open_house_sessions
		SET archived_at = now(), updated_at = now()
		WHERE id = $1 AND user_id = $2 AND archived_at IS NULL
	`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) scanSession(row pgx.Row) (domain.Session, error) {
	var s domain.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.Title, &s.Address, &s.PublicToken,
		&s.StartsAt, &s.EndsAt, &s.ArchivedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, ErrNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	return s, nil
}
