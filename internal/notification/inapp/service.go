// Package inapp persists per-user notifications and mirrors them to
// connected SSE clients.
package inapp

import (
	"context"

	"github.com/google/uuid"

	"github.com/sngor/bayon-backend/internal/notification/sse"
	"github.com/sngor/bayon-backend/platform/logger"
)

// Store is the persistence surface Send and the read paths depend on.
type Store interface {
	Create(ctx context.Context, p CreateParams) (Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, int, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, userID, notificationID uuid.UUID) error
}

// Broadcaster pushes an event to every live sink of one user.
type Broadcaster interface {
	Broadcast(userID uuid.UUID, event sse.Event)
}

var _ Store = (*Repository)(nil)

type Service struct {
	store Store
	sse   Broadcaster
	log   *logger.Logger
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// SetSSE attaches the live-push channel after construction. The SSE hub
// is optional; without it notifications are persist-only.
func (s *Service) SetSSE(b Broadcaster) {
	s.sse = b
}

// SendParams describes one notification to deliver.
type SendParams struct {
	UserID       uuid.UUID
	Title        string
	Content      string
	ResourceID   *uuid.UUID
	ResourceType *string
	Category     string
}

// Send persists the notification and pushes it to the user's live SSE
// sinks if any are connected. A push failure never surfaces: broadcast
// is fire-and-forget by contract.
func (s *Service) Send(ctx context.Context, p SendParams) (Notification, error) {
	if p.Category == "" {
		p.Category = "info"
	}

	n, err := s.store.Create(ctx, CreateParams{
		UserID:       p.UserID,
		Title:        p.Title,
		Content:      p.Content,
		ResourceID:   p.ResourceID,
		ResourceType: p.ResourceType,
		Category:     p.Category,
	})
	if err != nil {
		return Notification{}, err
	}

	if s.sse != nil {
		s.sse.Broadcast(p.UserID, sse.Event{
			Type:    sse.EventNotification,
			Message: n.Title,
			Data:    n,
		})
	}

	return n, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, userID, limit, offset)
}

func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.store.MarkRead(ctx, userID, notificationID)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.store.MarkAllRead(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.store.Delete(ctx, userID, notificationID)
}
