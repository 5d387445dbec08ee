package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/sngor/bayon-backend/internal/events"
	"github.com/sngor/bayon-backend/internal/openhouse/domain"
	"github.com/sngor/bayon-backend/internal/openhouse/repository"
	"github.com/sngor/bayon-backend/internal/openhouse/transport"
	"github.com/sngor/bayon-backend/platform/phone"

	"github.com/google/uuid"
)

const checkInSource = "checkin"

func (s *Service) CreateSession(ctx context.Context, userID uuid.UUID, req transport.CreateSessionRequest) (transport.SessionResponse, error) {
	token, err := newPublicToken()
	if err != nil {
		return transport.SessionResponse{}, err
	}

	session, err := s.store.CreateSession(ctx, repository.CreateSessionParams{
		UserID:      userID,
		Title:       req.Title,
		Address:     req.Address,
		PublicToken: token,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	})
	if err != nil {
		return transport.SessionResponse{}, err
	}

	return transport.NewSessionResponse(session, s.checkInURL(session.PublicToken)), nil
}

func (s *Service) GetSession(ctx context.Context, userID, id uuid.UUID) (transport.SessionResponse, error) {
	session, err := s.store.GetSession(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.SessionResponse{}, ErrSessionNotFound
	}
	if err != nil {
		return transport.SessionResponse{}, err
	}
	return transport.NewSessionResponse(session, s.checkInURL(session.PublicToken)), nil
}

func (s *Service) ListSessions(ctx context.Context, userID uuid.UUID) ([]transport.SessionResponse, error) {
	sessions, err := s.store.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]transport.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, transport.NewSessionResponse(session, s.checkInURL(session.PublicToken)))
	}
	return out, nil
}

func (s *Service) ArchiveSession(ctx context.Context, userID, id uuid.UUID) error {
	err := s.store.ArchiveSession(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

func (s *Service) UpsertSequence(ctx context.Context, userID, sessionID uuid.UUID, req transport.UpsertSequenceRequest) (transport.SequenceResponse, error) {
	if _, err := s.store.GetSession(ctx, userID, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.SequenceResponse{}, ErrSessionNotFound
		}
		return transport.SequenceResponse{}, err
	}

	steps := make([]domain.SequenceStep, 0, len(req.Steps))
	for _, st := range req.Steps {
		steps = append(steps, domain.SequenceStep{
			OffsetMinutes: st.OffsetMinutes,
			Channel:       domain.Channel(st.Channel),
			Template:      st.Template,
			Subject:       st.Subject,
			Body:          st.Body,
		})
	}
	if err := domain.ValidateSteps(steps); err != nil {
		return transport.SequenceResponse{}, err
	}

	seq, err := s.store.UpsertSequence(ctx, repository.UpsertSequenceParams{
		SessionID: sessionID,
		UserID:    userID,
		Name:      req.Name,
		Steps:     steps,
	})
	if err != nil {
		return transport.SequenceResponse{}, err
	}

	return transport.NewSequenceResponse(seq), nil
}

// CheckIn registers a visitor against a public session token and
// schedules their follow-up sequence. A broken sequence definition is
// logged and skipped: the visitor's sign-in must never bounce.
func (s *Service) CheckIn(ctx context.Context, token string, req transport.CheckInRequest) (transport.VisitorResponse, error) {
	session, err := s.store.GetSessionByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.VisitorResponse{}, ErrSessionNotFound
	}
	if err != nil {
		return transport.VisitorResponse{}, err
	}

	if !SessionWindowOpen(session, time.Now()) {
		return transport.VisitorResponse{}, ErrSessionClosed
	}

	if req.Email == "" && req.Phone == "" {
		return transport.VisitorResponse{}, ErrContactRequired
	}

	params := repository.CreateVisitorParams{
		SessionID:     session.ID,
		UserID:        session.UserID,
		FullName:      req.FullName,
		InterestLevel: domain.InterestMedium,
		Notes:         req.Notes,
		Source:        checkInSource,
	}
	if req.Email != "" {
		params.Email = &req.Email
	}
	if req.Phone != "" {
		normalized := phone.NormalizeE164(req.Phone)
		params.Phone = &normalized
	}
	if req.InterestLevel != "" {
		params.InterestLevel = domain.InterestLevel(req.InterestLevel)
	}

	visitor, err := s.store.CreateVisitor(ctx, params)
	if err != nil {
		return transport.VisitorResponse{}, err
	}

	if _, err := s.ScheduleForVisitor(ctx, visitor); err != nil {
		s.log.Error("schedule follow-ups after check-in",
			"error", err, "visitor_id", visitor.ID, "session_id", session.ID)
	}

	s.bus.Publish(ctx, events.VisitorCheckedIn{
		BaseEvent:   events.NewBaseEvent(),
		VisitorID:   visitor.ID,
		SessionID:   session.ID,
		UserID:      session.UserID,
		VisitorName: visitor.FullName,
		Source:      visitor.Source,
	})

	if visitor.HasEmail() {
		if err := s.email.SendCheckInReceiptEmail(ctx, *visitor.Email, visitor.FullName, session.Title, session.Address); err != nil {
			s.log.Warn("send check-in receipt", "error", err, "visitor_id", visitor.ID)
		}
	}

	return transport.NewVisitorResponse(visitor), nil
}

func (s *Service) ListVisitors(ctx context.Context, userID, sessionID uuid.UUID) ([]transport.VisitorResponse, error) {
	visitors, err := s.store.ListVisitors(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	out := make([]transport.VisitorResponse, 0, len(visitors))
	for _, v := range visitors {
		out = append(out, transport.NewVisitorResponse(v))
	}
	return out, nil
}

func (s *Service) ListTouchpoints(ctx context.Context, userID, visitorID uuid.UUID) ([]transport.TouchpointResponse, error) {
	touchpoints, err := s.store.ListTouchpointsByVisitor(ctx, userID, visitorID)
	if err != nil {
		return nil, err
	}

	out := make([]transport.TouchpointResponse, 0, len(touchpoints))
	for _, tp := range touchpoints {
		out = append(out, transport.NewTouchpointResponse(tp))
	}
	return out, nil
}

func (s *Service) checkInURL(token string) string {
	return fmt.Sprintf("%s/checkin/%s", s.cfg.GetPublicBaseURL(), token)
}

func newPublicToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate public token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// SessionWindowOpen reports whether check-in is currently allowed.
// A grace period on both sides covers early arrivals and stragglers.
func SessionWindowOpen(session domain.Session, now time.Time) bool {
	const grace = 30 * time.Minute
	return now.After(session.StartsAt.Add(-grace)) && now.Before(session.EndsAt.Add(grace))
}
