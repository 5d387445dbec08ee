package service

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/sngor/bayon-backend/internal/events"
	"github.com/sngor/bayon-backend/internal/messaging/email"
	"github.com/sngor/bayon-backend/internal/openhouse/domain"
	"github.com/sngor/bayon-backend/internal/openhouse/transport"

	"golang.org/x/sync/errgroup"
)

// processConcurrency bounds parallel touchpoint dispatch within a batch.
const processConcurrency = 8

// ProcessAllPending claims one batch of due touchpoints and dispatches
// each on its channel. Items run in parallel; one item's failure never
// touches another. The returned summary counts successes and failures
// for the whole batch.
func (s *Service) ProcessAllPending(ctx context.Context) (transport.ProcessSummary, error) {
	started := time.Now()
	leasedUntil := time.Now().Add(s.cfg.GetTouchpointLease())

	batch, err := s.store.ClaimDue(ctx, s.cfg.GetTouchpointBatchSize(), leasedUntil)
	if err != nil {
		return transport.ProcessSummary{}, fmt.Errorf("claim due touchpoints: %w", err)
	}

	summary := transport.ProcessSummary{Errors: []string{}}
	if len(batch) == 0 {
		return summary, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(processConcurrency)

	for _, tp := range batch {
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(gctx, s.cfg.GetTouchpointItemTimeout())
			defer cancel()

			sent, err := s.dispatchTouchpoint(itemCtx, tp)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Failed++
				summary.Errors = append(summary.Errors, fmt.Sprintf("touchpoint %s: %v", tp.ID, err))
			case sent:
				summary.Processed++
			}
			// A skipped item counts in neither column.
			return nil
		})
	}
	g.Wait()

	s.log.BatchSummary("touchpoints", summary.Processed, summary.Failed, float64(time.Since(started).Milliseconds()))
	return summary, nil
}

// dispatchTouchpoint delivers one claimed touchpoint. It returns
// (true, nil) on delivery, (false, nil) when the item was skipped, and
// (false, err) on failure, after updating the row accordingly.
func (s *Service) dispatchTouchpoint(ctx context.Context, tp domain.Touchpoint) (bool, error) {
	visitor, err := s.store.GetVisitor(ctx, tp.VisitorID)
	if err != nil {
		return false, s.failTouchpoint(ctx, tp, fmt.Errorf("load visitor: %w", err))
	}

	step, err := s.stepFor(ctx, tp, visitor)
	if err != nil {
		s.skipTouchpoint(ctx, tp, err.Error())
		return false, nil
	}

	switch tp.Channel {
	case domain.ChannelEmail:
		if !visitor.HasEmail() {
			s.skipTouchpoint(ctx, tp, "visitor has no email address")
			return false, nil
		}
		err = s.sendEmailStep(ctx, tp, visitor, step)
	case domain.ChannelSMS:
		if !visitor.HasPhone() {
			s.skipTouchpoint(ctx, tp, "visitor has no phone number")
			return false, nil
		}
		err = s.sendSMSStep(ctx, tp, visitor, step)
	default:
		s.skipTouchpoint(ctx, tp, fmt.Sprintf("unknown channel %q", tp.Channel))
		return false, nil
	}

	if err != nil {
		return false, s.failTouchpoint(ctx, tp, err)
	}

	if err := s.store.MarkSent(ctx, tp.ID); err != nil {
		s.log.Error("mark touchpoint sent", "error", err, "touchpoint_id", tp.ID)
	}
	if err := s.store.MarkVisitorFollowupSent(ctx, visitor.ID); err != nil {
		s.log.Warn("mark visitor followup sent", "error", err, "visitor_id", visitor.ID)
	}

	s.bus.Publish(ctx, events.TouchpointSent{
		BaseEvent:    events.NewBaseEvent(),
		TouchpointID: tp.ID,
		VisitorID:    visitor.ID,
		SessionID:    tp.SessionID,
		UserID:       tp.UserID,
		StepNumber:   tp.StepNumber,
		Channel:      string(tp.Channel),
		SentAt:       time.Now(),
	})

	return true, nil
}

func (s *Service) sendEmailStep(ctx context.Context, tp domain.Touchpoint, visitor domain.Visitor, step domain.SequenceStep) error {
	session, err := s.store.GetSession(ctx, tp.UserID, tp.SessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	body := s.personalizeBody(ctx, step.Body, visitor)

	base := s.cfg.GetTrackingBaseURL()
	query := fmt.Sprintf("sessionId=%s&visitorId=%s", tp.SessionID, tp.VisitorID)
	pixelURL := fmt.Sprintf("%s/track/open?%s", base, query)
	clickURL := fmt.Sprintf("%s/track/click?%s&url=%s", base, query,
		url.QueryEscape(s.checkInURL(session.PublicToken)))

	subject := step.Subject
	if subject == "" {
		subject = fmt.Sprintf("Thanks for visiting %s", session.Title)
	}

	html, err := email.RenderFollowUp(visitor.FullName, s.cfg.GetEmailFromName(), session.Title, session.Address, body, clickURL, pixelURL)
	if err != nil {
		return fmt.Errorf("render template %q: %w", tp.Template, err)
	}

	return s.email.SendFollowUpEmail(ctx, *visitor.Email, subject, html)
}

func (s *Service) sendSMSStep(ctx context.Context, tp domain.Touchpoint, visitor domain.Visitor, step domain.SequenceStep) error {
	body := s.personalizeBody(ctx, step.Body, visitor)

	base := s.cfg.GetTrackingBaseURL()
	clickURL := fmt.Sprintf("%s/track/click?sessionId=%s&visitorId=%s&url=%s",
		base, tp.SessionID, tp.VisitorID, url.QueryEscape(s.cfg.GetPublicBaseURL()))

	return s.sms.SendMessage(ctx, *visitor.Phone, body+" "+clickURL)
}

// personalizeBody is best-effort: any personalization error falls back
// to the template body unchanged.
func (s *Service) personalizeBody(ctx context.Context, body string, visitor domain.Visitor) string {
	if s.personalizer == nil {
		return body
	}
	personalized, err := s.personalizer.Personalize(ctx, body, visitor.FullName, string(visitor.InterestLevel), visitor.Notes)
	if err != nil {
		s.log.Warn("personalize follow-up body", "error", err, "visitor_id", visitor.ID)
		return body
	}
	return personalized
}

// stepFor resolves the sequence step a touchpoint points at.
func (s *Service) stepFor(ctx context.Context, tp domain.Touchpoint, visitor domain.Visitor) (domain.SequenceStep, error) {
	steps, err := s.sequenceFor(ctx, visitor)
	if err != nil {
		return domain.SequenceStep{}, fmt.Errorf("resolve sequence: %w", err)
	}
	if tp.StepNumber < 1 || tp.StepNumber > len(steps) {
		return domain.SequenceStep{}, fmt.Errorf("step %d is out of range for a %d-step sequence", tp.StepNumber, len(steps))
	}
	return steps[tp.StepNumber-1], nil
}

// failTouchpoint records the failure and returns the delivery error so
// the batch summary can count it. The retry ceiling turns the row
// failed; anything below it goes back to pending for the next batch.
func (s *Service) failTouchpoint(ctx context.Context, tp domain.Touchpoint, cause error) error {
	status, err := s.store.RecordFailure(ctx, tp.ID, cause.Error(), s.cfg.GetTouchpointRetryCeiling())
	if err != nil {
		s.log.Error("record touchpoint failure", "error", err, "touchpoint_id", tp.ID)
		return cause
	}

	if status == domain.TouchpointFailed {
		s.bus.Publish(ctx, events.TouchpointFailed{
			BaseEvent:    events.NewBaseEvent(),
			TouchpointID: tp.ID,
			VisitorID:    tp.VisitorID,
			UserID:       tp.UserID,
			StepNumber:   tp.StepNumber,
			Channel:      string(tp.Channel),
			LastError:    cause.Error(),
		})
	}

	return cause
}

func (s *Service) skipTouchpoint(ctx context.Context, tp domain.Touchpoint, reason string) {
	if err := s.store.MarkSkipped(ctx, tp.ID, reason); err != nil {
		s.log.Error("mark touchpoint skipped", "error", err, "touchpoint_id", tp.ID)
	}
	s.log.Info("skipped touchpoint", "touchpoint_id", tp.ID, "reason", reason)
}
