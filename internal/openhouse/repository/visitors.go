package repository

import (
	"context"
	"errors"

	"github.com/sngor/bayon-backend/internal/openhouse/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const visitorColumns = `
	id, session_id, user_id, full_name, email, phone, interest_level,
	COALESCE(notes, ''), source, checked_in_at, followup_generated,
	followup_sent_at, opened_at, clicked_at, created_at`

type CreateVisitorParams struct {
	SessionID     uuid.UUID
	UserID        uuid.UUID
	FullName      string
	Email         *string
	Phone         *string
	InterestLevel domain.InterestLevel
	Notes         string
	Source        string
}

func (r *Repository) CreateVisitor(ctx context.Context, params CreateVisitorParams) (domain.Visitor, error) {
	var notes *string
	if params.Notes != "" {
		notes = &params.Notes
	}

	return r.scanVisitor(r.pool.QueryRow(ctx, `
		INSERT INTO visitors (session_id, user_id, full_name, email, phone, interest_level, notes, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+visitorColumns,
		params.SessionID, params.UserID, params.FullName, params.Email,
		params.Phone, params.InterestLevel, notes, params.Source,
	))
}

func (r *Repository) GetVisitor(ctx context.Context, id uuid.UUID) (domain.Visitor, error) {
	return r.scanVisitor(r.pool.QueryRow(ctx, `
		SELECT `+visitorColumns+`
		FROM visitors
		WHERE id = $1
	`, id))
}

func (r *Repository) ListVisitors(ctx context.Context, userID, sessionID uuid.UUID) ([]domain.Visitor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+visitorColumns+`
		FROM visitors
		WHERE session_id = $1 AND user_id = $2
		ORDER BY checked_in_at DESC
	`, sessionID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Visitor, 0)
	for rows.Next() {
		v, err := scanVisitorRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}

	return items, rows.Err()
}

// MarkFollowupGenerated records that scheduling ran for the visitor so
// repeated check-in submissions do not schedule twice.
func (r *Repository) MarkFollowupGenerated(ctx context.Context, visitorID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE visitors SET followup_generated = TRUE WHERE id = $1
	`, visitorID)
	return err
}

// MarkVisitorOpened sets opened_at once; later opens keep the first timestamp.
func (r *Repository) MarkVisitorOpened(ctx context.Context, visitorID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE visitors SET opened_at = now() WHERE id = $1 AND opened_at IS NULL
	`, visitorID)
	return err
}

// MarkVisitorClicked sets clicked_at once; later clicks keep the first timestamp.
func (r *Repository) MarkVisitorClicked(ctx context.Context, visitorID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE visitors SET clicked_at = now() WHERE id = $1 AND clicked_at IS NULL
	`, visitorID)
	return err
}

func (r *Repository) scanVisitor(row pgx.Row) (domain.Visitor, error) {
	v, err := scanVisitorRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Visitor{}, ErrNotFound
	}
	if err != nil {
		return domain.Visitor{}, err
	}
	return v, nil
}

func scanVisitorRow(row pgx.Row) (domain.Visitor, error) {
	var v domain.Visitor
	err := row.Scan(
		&v.ID, &v.SessionID, &v.UserID, &v.FullName, &v.Email, &v.Phone,
		&v.InterestLevel, &v.Notes, &v.Source, &v.CheckedInAt,
		&v.FollowupGenerated, &v.FollowupSentAt, &v.OpenedAt, &v.ClickedAt, &v.CreatedAt,
	)
	return v, err
}
