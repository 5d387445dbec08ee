package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sngor/bayon-backend/internal/openhouse/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type UpsertSequenceParams struct {
	SessionID uuid.UUID
	UserID    uuid.UUID
	Name      string
	Steps     []domain.SequenceStep
}

// UpsertSequence replaces the session's follow-up plan. Each session has
// at most one sequence.
func (r *Repository) UpsertSequence(ctx context.Context, params UpsertSequenceParams) (domain.Sequence, error) {
	steps, err := json.Marshal(params.Steps)
	if err != nil {
		return domain.Sequence{}, fmt.Errorf("marshal steps: %w", err)
	}

	return r.scanSequence(r.pool.QueryRow(ctx, `
		INSERT INTO sequences (session_id, user_id, name, steps)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE
		SET name = EXCLUDED.name, steps = EXCLUDED.steps, updated_at = now()
		RETURNING id, session_id, user_id, name, steps, created_at, updated_at
	`, params.SessionID, params.UserID, params.Name, steps))
}

func (r *Repository) GetSequenceBySession(ctx context.Context, sessionID uuid.UUID) (domain.Sequence, error) {
	return r.scanSequence(r.pool.QueryRow(ctx, `
		SELECT id, session_id, user_id, name, steps, created_at, updated_at
		FROM sequences
		WHERE session_id = $1
	`, sessionID))
}

func (r *Repository) scanSequence(row pgx.Row) (domain.Sequence, error) {
	var (
		seq domain.Sequence
		raw []byte
	)
	err := row.Scan(&seq.ID, &seq.SessionID, &seq.UserID, &seq.Name, &raw, &seq.CreatedAt, &seq.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Sequence{}, ErrNotFound
	}
	if err != nil {
		return domain.Sequence{}, err
	}
	if err := json.Unmarshal(raw, &seq.Steps); err != nil {
		return domain.Sequence{}, fmt.Errorf("unmarshal steps: %w", err)
	}
	return seq, nil
}
