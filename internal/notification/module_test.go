package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sngor/bayon-backend/internal/events"
	"github.com/sngor/bayon-backend/internal/notification/inapp"
	"github.com/sngor/bayon-backend/internal/notification/sse"
	"github.com/sngor/bayon-backend/platform/logger"
)

type fakeInAppStore struct {
	mu      sync.Mutex
	created []inapp.Notification
}

func (s *fakeInAppStore) Create(_ context.Context, p inapp.CreateParams) (inapp.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := inapp.Notification{
		ID:           uuid.New(),
		UserID:       p.UserID,
		Title:        p.Title,
		Content:      p.Content,
		ResourceID:   p.ResourceID,
		ResourceType: p.ResourceType,
		Category:     p.Category,
		CreatedAt:    time.Now(),
	}
	s.created = append(s.created, n)
	return n, nil
}

func (s *fakeInAppStore) List(_ context.Context, userID uuid.UUID, limit, offset int) ([]inapp.Notification, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]inapp.Notification, 0)
	for _, n := range s.created {
		if n.UserID == userID {
			items = append(items, n)
		}
	}
	return items, len(items), nil
}

func (s *fakeInAppStore) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.created {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *fakeInAppStore) MarkRead(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (s *fakeInAppStore) MarkAllRead(context.Context, uuid.UUID) error         { return nil }
func (s *fakeInAppStore) Delete(context.Context, uuid.UUID, uuid.UUID) error   { return nil }

func newTestModule(t *testing.T) (*Module, *fakeInAppStore) {
	t.Helper()
	log := logger.New("development")
	store := &fakeInAppStore{}
	sseSvc := sse.New(log)
	inAppSvc := inapp.NewService(store, log)
	inAppSvc.SetSSE(sseSvc)
	return &Module{log: log, sse: sseSvc, inApp: inAppSvc}, store
}

func TestHandleTouchpointFailedPersistsErrorNotification(t *testing.T) {
	m, store := newTestModule(t)
	userID := uuid.New()

	err := m.Handle(context.Background(), events.TouchpointFailed{
		BaseEvent:    events.NewBaseEvent(),
		TouchpointID: uuid.New(),
		VisitorID:    uuid.New(),
		UserID:       userID,
		StepNumber:   2,
		Channel:      "email",
		LastError:    "smtp refused",
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if len(store.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(store.created))
	}
	n := store.created[0]
	if n.UserID != userID {
		t.Fatalf("notification went to wrong user: %s", n.UserID)
	}
	if n.Category != "error" {
		t.Fatalf("expected category error, got %q", n.Category)
	}
}

func TestHandleTouchpointSentStreamsWithoutPersisting(t *testing.T) {
	m, store := newTestModule(t)
	userID := uuid.New()

	ch, cleanup := m.sse.Register(userID)
	defer cleanup()

	err := m.Handle(context.Background(), events.TouchpointSent{
		BaseEvent:  events.NewBaseEvent(),
		UserID:     userID,
		StepNumber: 1,
		Channel:    "sms",
		SentAt:     time.Now(),
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	select {
	case ev := <-ch:
		if ev.Type != sse.EventTouchpointSent {
			t.Fatalf("expected touchpoint_sent event, got %q", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no SSE event delivered")
	}

	if len(store.created) != 0 {
		t.Fatalf("sent touchpoints must not persist rows, got %d", len(store.created))
	}
}

func TestHandleListingRestoredUsesRestorationCopy(t *testing.T) {
	m, store := newTestModule(t)
	userID := uuid.New()

	err := m.Handle(context.Background(), events.ListingStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		ListingID: uuid.New(),
		UserID:    userID,
		Address:   "12 Oak Lane",
		OldStatus: "pending",
		NewStatus: "active",
		Restored:  true,
		SyncedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if len(store.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(store.created))
	}
	if store.created[0].Title != "Listing restored to active" {
		t.Fatalf("expected restoration title, got %q", store.created[0].Title)
	}
}

func TestHandlePostsUnpublishedWithFailuresWarns(t *testing.T) {
	m, store := newTestModule(t)
	userID := uuid.New()

	err := m.Handle(context.Background(), events.PostsUnpublished{
		BaseEvent:   events.NewBaseEvent(),
		ListingID:   uuid.New(),
		UserID:      userID,
		Address:     "12 Oak Lane",
		Unpublished: 1,
		Failed:      1,
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if len(store.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(store.created))
	}
	if store.created[0].Category != "warning" {
		t.Fatalf("expected warning category, got %q", store.created[0].Category)
	}
}

type strayEvent struct{ events.BaseEvent }

func (strayEvent) EventName() string { return "test.stray" }

func TestHandleUnknownEventIsIgnored(t *testing.T) {
	m, _ := newTestModule(t)

	if err := m.Handle(context.Background(), strayEvent{events.NewBaseEvent()}); err != nil {
		t.Fatalf("unknown events must not error: %v", err)
	}
}
