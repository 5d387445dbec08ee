package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sngor/bayon-backend/internal/openhouse/domain"
	"github.com/sngor/bayon-backend/internal/openhouse/repository"
)

// ScheduleForVisitor creates one pending touchpoint per sequence step,
// due at check-in time plus the step offset. The session's own sequence
// wins; otherwise the built-in default applies. Scheduling is
// idempotent: re-running for the same visitor creates nothing new.
// It returns the number of touchpoints actually created.
func (s *Service) ScheduleForVisitor(ctx context.Context, visitor domain.Visitor) (int, error) {
	steps, err := s.sequenceFor(ctx, visitor)
	if err != nil {
		return 0, err
	}

	if err := domain.ValidateSteps(steps); err != nil {
		return 0, err
	}

	created := 0
	for i, step := range steps {
		inserted, err := s.store.InsertPendingTouchpoint(ctx, repository.InsertTouchpointParams{
			VisitorID:  visitor.ID,
			SessionID:  visitor.SessionID,
			UserID:     visitor.UserID,
			StepNumber: i + 1,
			DueAt:      visitor.CheckedInAt.Add(step.Offset()),
			Channel:    step.Channel,
			Template:   step.Template,
		})
		if err != nil {
			return created, fmt.Errorf("schedule step %d: %w", i+1, err)
		}
		if inserted {
			created++
		}
	}

	if created > 0 {
		if err := s.store.MarkFollowupGenerated(ctx, visitor.ID); err != nil {
			s.log.Warn("mark followup generated", "error", err, "visitor_id", visitor.ID)
		}
	}

	s.log.Info("scheduled follow-up touchpoints",
		"visitor_id", visitor.ID, "session_id", visitor.SessionID,
		"steps", len(steps), "created", created)

	return created, nil
}

// sequenceFor resolves the effective sequence steps for a visitor.
func (s *Service) sequenceFor(ctx context.Context, visitor domain.Visitor) ([]domain.SequenceStep, error) {
	seq, err := s.store.GetSequenceBySession(ctx, visitor.SessionID)
	if err == nil {
		return seq.Steps, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if len(s.defaultSequence) == 0 {
		return nil, fmt.Errorf("%w: session has no sequence and no default is configured", domain.ErrInvalidSequence)
	}
	return s.defaultSequence, nil
}
