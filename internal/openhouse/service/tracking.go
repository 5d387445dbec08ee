package service

import (
	"context"

	"github.com/google/uuid"
)

// RecordOpen notes that a visitor opened a follow-up email. The first
// open wins; later opens never move the timestamp. Errors are logged
// and swallowed: the tracking pixel must always be served.
func (s *Service) RecordOpen(ctx context.Context, sessionID, visitorID uuid.UUID) {
	if err := s.store.MarkVisitorOpened(ctx, visitorID); err != nil {
		s.log.Error("record email open", "error", err, "visitor_id", visitorID, "session_id", sessionID)
		return
	}
	if err := s.store.MarkTouchpointOpened(ctx, visitorID); err != nil {
		s.log.Error("record touchpoint open", "error", err, "visitor_id", visitorID)
	}
}

// RecordClick notes that a visitor clicked a follow-up link. First
// click wins. Errors are logged and swallowed so the caller can always
// redirect to the destination.
func (s *Service) RecordClick(ctx context.Context, sessionID, visitorID uuid.UUID) {
	if err := s.store.MarkVisitorClicked(ctx, visitorID); err != nil {
		s.log.Error("record link click", "error", err, "visitor_id", visitorID, "session_id", sessionID)
		return
	}
	if err := s.store.MarkTouchpointClicked(ctx, visitorID); err != nil {
		s.log.Error("record touchpoint click", "error", err, "visitor_id", visitorID)
	}
}
