// Package notification turns domain events into in-app notifications and
// live SSE pushes. It subscribes to the event bus so the openhouse and
// listings modules never need to know who is watching.
package notification

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sngor/bayon-backend/internal/events"
	apphttp "github.com/sngor/bayon-backend/internal/http"
	notifhandler "github.com/sngor/bayon-backend/internal/notification/handler"
	"github.com/sngor/bayon-backend/internal/notification/inapp"
	"github.com/sngor/bayon-backend/internal/notification/sse"
	"github.com/sngor/bayon-backend/platform/logger"
)

// Module bridges the event bus to per-user notification delivery.
type Module struct {
	log     *logger.Logger
	sse     *sse.Service
	inApp   *inapp.Service
	handler *notifhandler.HTTPHandler
}

// New wires the SSE hub and the persisted in-app notification service.
func New(pool *pgxpool.Pool, log *logger.Logger) *Module {
	sseSvc := sse.New(log)
	inAppSvc := inapp.NewService(inapp.NewRepository(pool), log)
	inAppSvc.SetSSE(sseSvc)

	return &Module{
		log:     log,
		sse:     sseSvc,
		inApp:   inAppSvc,
		handler: notifhandler.NewHTTPHandler(inAppSvc, sseSvc),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterRoutes registers notification API routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	notifications := ctx.Protected.Group("/notifications")
	m.handler.RegisterRoutes(notifications)
}

// SSE exposes the broadcast hub for integration points.
func (m *Module) SSE() *sse.Service { return m.sse }

// InAppService exposes the in-app notification service for integration points.
func (m *Module) InAppService() *inapp.Service { return m.inApp }

// Close shuts down the SSE hub, disconnecting every stream.
func (m *Module) Close() { m.sse.Close() }

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.VisitorCheckedIn{}.EventName(), m)
	bus.Subscribe(events.TouchpointSent{}.EventName(), m)
	bus.Subscribe(events.TouchpointFailed{}.EventName(), m)
	bus.Subscribe(events.ListingStatusChanged{}.EventName(), m)
	bus.Subscribe(events.PostsUnpublished{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.VisitorCheckedIn:
		return m.handleVisitorCheckedIn(ctx, e)
	case events.TouchpointSent:
		return m.handleTouchpointSent(ctx, e)
	case events.TouchpointFailed:
		return m.handleTouchpointFailed(ctx, e)
	case events.ListingStatusChanged:
		return m.handleListingStatusChanged(ctx, e)
	case events.PostsUnpublished:
		return m.handlePostsUnpublished(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleVisitorCheckedIn(ctx context.Context, e events.VisitorCheckedIn) error {
	m.sse.Broadcast(e.UserID, sse.Event{
		Type:    sse.EventVisitorCheckedIn,
		Message: fmt.Sprintf("%s checked in", e.VisitorName),
		Data:    e,
	})

	visitorID := e.VisitorID
	resourceType := "visitor"
	_, err := m.inApp.Send(ctx, inapp.SendParams{
		UserID:       e.UserID,
		Title:        "New visitor checked in",
		Content:      fmt.Sprintf("%s just signed in at your open house.", e.VisitorName),
		ResourceID:   &visitorID,
		ResourceType: &resourceType,
		Category:     "info",
	})
	return err
}

// Sent touchpoints are high volume, so they only stream live; no row is
// persisted per send.
func (m *Module) handleTouchpointSent(_ context.Context, e events.TouchpointSent) error {
	m.sse.Broadcast(e.UserID, sse.Event{
		Type:    sse.EventTouchpointSent,
		Message: fmt.Sprintf("Follow-up step %d sent via %s", e.StepNumber, e.Channel),
		Data:    e,
	})
	return nil
}

func (m *Module) handleTouchpointFailed(ctx context.Context, e events.TouchpointFailed) error {
	m.sse.Broadcast(e.UserID, sse.Event{
		Type:    sse.EventTouchpointFailed,
		Message: fmt.Sprintf("Follow-up step %d failed permanently", e.StepNumber),
		Data:    e,
	})

	touchpointID := e.TouchpointID
	resourceType := "touchpoint"
	_, err := m.inApp.Send(ctx, inapp.SendParams{
		UserID:       e.UserID,
		Title:        "Follow-up delivery failed",
		Content:      fmt.Sprintf("Step %d via %s gave up after repeated errors: %s", e.StepNumber, e.Channel, e.LastError),
		ResourceID:   &touchpointID,
		ResourceType: &resourceType,
		Category:     "error",
	})
	return err
}

func (m *Module) handleListingStatusChanged(ctx context.Context, e events.ListingStatusChanged) error {
	m.sse.Broadcast(e.UserID, sse.Event{
		Type:    sse.EventListingStatusChanged,
		Message: fmt.Sprintf("%s is now %s", e.Address, e.NewStatus),
		Data:    e,
	})

	title := "Listing status changed"
	content := fmt.Sprintf("%s moved from %s to %s.", e.Address, e.OldStatus, e.NewStatus)
	if e.Restored {
		title = "Listing restored to active"
		content = fmt.Sprintf("%s fell out of pending and is active again.", e.Address)
	}

	listingID := e.ListingID
	resourceType := "listing"
	_, err := m.inApp.Send(ctx, inapp.SendParams{
		UserID:       e.UserID,
		Title:        title,
		Content:      content,
		ResourceID:   &listingID,
		ResourceType: &resourceType,
		Category:     "info",
	})
	return err
}

func (m *Module) handlePostsUnpublished(ctx context.Context, e events.PostsUnpublished) error {
	m.sse.Broadcast(e.UserID, sse.Event{
		Type:    sse.EventPostsUnpublished,
		Message: fmt.Sprintf("Social posts for %s taken down", e.Address),
		Data:    e,
	})

	category := "info"
	content := fmt.Sprintf("%d post(s) for %s were unpublished after the sale.", e.Unpublished, e.Address)
	if e.Failed > 0 {
		category = "warning"
		content = fmt.Sprintf("%d post(s) for %s were unpublished; %d could not be removed and need attention.", e.Unpublished, e.Address, e.Failed)
	}

	listingID := e.ListingID
	resourceType := "listing"
	_, err := m.inApp.Send(ctx, inapp.SendParams{
		UserID:       e.UserID,
		Title:        "Social posts unpublished",
		Content:      content,
		ResourceID:   &listingID,
		ResourceType: &resourceType,
		Category:     category,
	})
	return err
}
