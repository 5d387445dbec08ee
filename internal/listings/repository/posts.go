package repository

import (
	"context"
	"errors"

	"github.com/sngor/bayon-backend/internal/listings/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const postColumns = `id, listing_id, user_id, platform, platform_post_id, status, published_at, unpublished_at, last_error, created_at, updated_at`

type CreatePostParams struct {
	ListingID      uuid.UUID
	UserID         uuid.UUID
	Platform       string
	PlatformPostID string
}

func (r *Repository) CreatePost(ctx context.Context, params CreatePostParams) (domain.SocialPost, error) {
	return r.scanPost(r.pool.QueryRow(ctx, `
		INSERT INTO social_posts (listing_id, user_id, platform, platform_post_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+postColumns,
		params.ListingID, params.UserID, params.Platform, params.PlatformPostID,
	))
}

// ListPublishedPosts returns the posts the sold-listing cascade must
// take down.
func (r *Repository) ListPublishedPosts(ctx context.Context, listingID uuid.UUID) ([]domain.SocialPost, error) {
	return r.queryPosts(ctx, `
		SELECT `+postColumns+`
		FROM social_posts
		WHERE listing_id = $1 AND status = 'published'
		ORDER BY published_at ASC
	`, listingID)
}

func (r *Repository) ListPostsByListing(ctx context.Context, userID, listingID uuid.UUID) ([]domain.SocialPost, error) {
	return r.queryPosts(ctx, `
		SELECT `+postColumns+`
		FROM social_posts
		WHERE listing_id = $1 AND user_id = $2
		ORDER BY published_at ASC
	`, listingID, userID)
}

// MarkPostUnpublished stamps the takedown. The status guard keeps a
// concurrent second cascade from re-stamping unpublished_at.
func (r *Repository) MarkPostUnpublished(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE social_posts
		SET status = 'unpublished', unpublished_at = now(), last_error = NULL, updated_at = now()
		WHERE id = $1 AND status = 'published'
	`, id)
	return err
}

// MarkPostUnpublishFailed records a platform takedown failure. The post
// stays visible to the retry sweep and to the agent.
func (r *Repository) MarkPostUnpublishFailed(ctx context.Context, id uuid.UUID, cause string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE social_posts
		SET status = 'unpublish_failed', last_error = $2, updated_at = now()
		WHERE id = $1
	`, id, cause)
	return err
}

func (r *Repository) GetSocialConnectionToken(ctx context.Context, userID uuid.UUID, platform string) (string, error) {
	var token string
	err := r.pool.QueryRow(ctx, `
		SELECT access_token FROM social_connections
		WHERE user_id = $1 AND platform = $2 AND status = 'active'
	`, userID, platform).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (r *Repository) queryPosts(ctx context.Context, sql string, args ...any) ([]domain.SocialPost, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SocialPost, 0)
	for rows.Next() {
		var p domain.SocialPost
		if err := rows.Scan(
			&p.ID, &p.ListingID, &p.UserID, &p.Platform, &p.PlatformPostID,
			&p.Status, &p.PublishedAt, &p.UnpublishedAt, &p.LastError,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, p)
	}

	return items, rows.Err()
}

func (r *Repository) scanPost(row pgx.Row) (domain.SocialPost, error) {
	var p domain.SocialPost
	err := row.Scan(
		&p.ID, &p.ListingID, &p.UserID, &p.Platform, &p.PlatformPostID,
		&p.Status, &p.PublishedAt, &p.UnpublishedAt, &p.LastError,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SocialPost{}, ErrNotFound
	}
	if err != nil {
		return domain.SocialPost{}, err
	}
	return p, nil
}
