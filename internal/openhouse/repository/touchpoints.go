package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sngor/bayon-backend/internal/openhouse/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const touchpointColumns = `
	id, visitor_id, session_id, user_id, step_number, due_at, channel,
	template, status, attempts, last_error, leased_until, sent_at,
	opened_at, clicked_at, created_at, updated_at`

type InsertTouchpointParams struct {
	VisitorID  uuid.UUID
	SessionID  uuid.UUID
	UserID     uuid.UUID
	StepNumber int
	DueAt      time.Time
	Channel    domain.Channel
	Template   string
}

// InsertPendingTouchpoint creates one pending touchpoint. A partial
// unique index guarantees at most one pending row per (visitor, step);
// a duplicate insert is silently dropped and reported as false.
func (r *Repository) InsertPendingTouchpoint(ctx context.Context, params InsertTouchpointParams) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO touchpoints (visitor_id, session_id, user_id, step_number, due_at, channel, template)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (visitor_id, step_number) WHERE status = 'pending' DO NOTHING
	`, params.VisitorID, params.SessionID, params.UserID, params.StepNumber,
		params.DueAt, params.Channel, params.Template)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ClaimDue leases up to limit due pending touchpoints until the given
// deadline. Rows stay publicly pending while leased; an expired lease
// makes the row claimable again, so a crashed worker only delays
// delivery instead of losing it. SKIP LOCKED keeps concurrent batch
// runs from blocking on each other.
func (r *Repository) ClaimDue(ctx context.Context, limit int, leasedUntil time.Time) ([]domain.Touchpoint, error) {
	rows, err := r.pool.Query(ctx, `
		WITH due AS (
			SELECT id
			FROM touchpoints
			WHERE status = 'pending'
			  AND due_at <= now()
			  AND (leased_until IS NULL OR leased_until < now())
			ORDER BY due_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE touchpoints t
		SET leased_until = $2, updated_at = now()
		FROM due
		WHERE t.id = due.id
		RETURNING t.id, t.visitor_id, t.session_id, t.user_id, t.step_number,
			t.due_at, t.channel, t.template, t.status, t.attempts, t.last_error,
			t.leased_until, t.sent_at, t.opened_at, t.clicked_at, t.created_at, t.updated_at
	`, limit, leasedUntil)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Touchpoint, 0, limit)
	for rows.Next() {
		tp, err := scanTouchpointRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, tp)
	}

	return items, rows.Err()
}

// MarkSent finalizes a delivered touchpoint. Terminal rows are left
// untouched so a late duplicate worker cannot rewrite history.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE touchpoints
		SET status = 'sent', sent_at = now(), leased_until = NULL, last_error = NULL, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordFailure bumps the attempt counter and stores the error. The
// attempt that reaches maxAttempts flips the row to failed; otherwise
// the row returns to the claimable pool for the next batch.
func (r *Repository) RecordFailure(ctx context.Context, id uuid.UUID, cause string, maxAttempts int) (domain.TouchpointStatus, error) {
	var status domain.TouchpointStatus
	err := r.pool.QueryRow(ctx, `
		UPDATE touchpoints
		SET attempts = attempts + 1,
			last_error = $2,
			status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE status END,
			leased_until = NULL,
			updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING status
	`, id, cause, maxAttempts).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return status, nil
}

// MarkSkipped retires a touchpoint that cannot be delivered at all,
// for example an SMS step for a visitor who left no phone number.
func (r *Repository) MarkSkipped(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE touchpoints
		SET status = 'skipped', last_error = $2, leased_until = NULL, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, reason)
	return err
}

// MarkTouchpointOpened stamps the visitor's most recent sent touchpoint.
// First open wins; later opens are no-ops.
func (r *Repository) MarkTouchpointOpened(ctx context.Context, visitorID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE touchpoints
		SET opened_at = now(), updated_at = now()
		WHERE id = (
			SELECT id FROM touchpoints
			WHERE visitor_id = $1 AND status = 'sent' AND opened_at IS NULL
			ORDER BY sent_at DESC
			LIMIT 1
		)
	`, visitorID)
	return err
}

// MarkTouchpointClicked stamps the visitor's most recent sent touchpoint.
// First click wins; later clicks are no-ops.
func (r *Repository) MarkTouchpointClicked(ctx context.Context, visitorID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE touchpoints
		SET clicked_at = now(), updated_at = now()
		WHERE id = (
			SELECT id FROM touchpoints
			WHERE visitor_id = $1 AND status = 'sent' AND clicked_at IS NULL
			ORDER BY sent_at DESC
			LIMIT 1
		)
	`, visitorID)
	return err
}

func (r *Repository) ListTouchpointsByVisitor(ctx context.Context, userID, visitorID uuid.UUID) ([]domain.Touchpoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+touchpointColumns+`
		FROM touchpoints
		WHERE visitor_id = $1 AND user_id = $2
		ORDER BY step_number ASC
	`, visitorID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Touchpoint, 0)
	for rows.Next() {
		tp, err := scanTouchpointRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, tp)
	}

	return items, rows.Err()
}

// MarkVisitorFollowupSent stamps the first successful delivery for the visitor.
func (r *Repository) MarkVisitorFollowupSent(ctx context.Context, visitorID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE visitors SET followup_sent_at = now() WHERE id = $1 AND followup_sent_at IS NULL
	`, visitorID)
	return err
}

func scanTouchpointRow(row pgx.Row) (domain.Touchpoint, error) {
	var tp domain.Touchpoint
	err := row.Scan(
		&tp.ID, &tp.VisitorID, &tp.SessionID, &tp.UserID, &tp.StepNumber,
		&tp.DueAt, &tp.Channel, &tp.Template, &tp.Status, &tp.Attempts,
		&tp.LastError, &tp.LeasedUntil, &tp.SentAt, &tp.OpenedAt, &tp.ClickedAt,
		&tp.CreatedAt, &tp.UpdatedAt,
	)
	return tp, err
}
