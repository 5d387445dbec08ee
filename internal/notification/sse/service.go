// Package sse provides Server-Sent Events support for real-time
// notifications. Connections live in process memory: an event raised on
// one instance reaches only clients attached to that instance.
package sse

import (
	"encoding/json"
	"sync"

	"github.com/sngor/bayon-backend/platform/httpkit"
	"github.com/sngor/bayon-backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType represents different types of SSE events.
type EventType string

const (
	EventVisitorCheckedIn     EventType = "visitor_checked_in"
	EventTouchpointSent       EventType = "touchpoint_sent"
	EventTouchpointFailed     EventType = "touchpoint_failed"
	EventListingStatusChanged EventType = "listing_status_changed"
	EventPostsUnpublished     EventType = "posts_unpublished"
	EventNotification         EventType = "notification"
)

// Event represents an SSE event payload.
type Event struct {
	Type    EventType   `json:"type"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// client represents one connected browser tab.
type client struct {
	userID uuid.UUID
	events chan Event
	once   sync.Once
}

// Service manages SSE connections and event broadcasting.
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client // userID -> clients, one per tab
	log     *logger.Logger
}

func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

// Register attaches a new sink for a user and returns the event channel
// plus a cleanup function removing exactly that sink. A user may hold
// several registrations at once, one per open tab.
func (s *Service) Register(userID uuid.UUID) (<-chan Event, func()) {
	cl := &client{
		userID: userID,
		events: make(chan Event, 32),
	}

	s.mu.Lock()
	s.clients[userID] = append(s.clients[userID], cl)
	s.mu.Unlock()

	cleanup := func() {
		s.removeClient(cl)
	}
	return cl.events, cleanup
}

// removeClient detaches a sink and closes its channel. The close stays
// inside the write-lock critical section so it can never interleave
// with a Broadcast send, which holds the read lock.
func (s *Service) removeClient(cl *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[cl.userID]
	for i, c := range clients {
		if c == cl {
			s.clients[cl.userID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(s.clients[cl.userID]) == 0 {
		delete(s.clients, cl.userID)
	}

	cl.once.Do(func() { close(cl.events) })
}

// Broadcast delivers an event to every sink of a user. A sink that
// cannot accept the event is dropped on the spot; delivery problems
// never surface to the caller. Sends happen under the read lock, so
// they exclude the close in removeClient.
func (s *Service) Broadcast(userID uuid.UUID, event Event) {
	var evict []*client

	s.mu.RLock()
	for _, cl := range s.clients[userID] {
		select {
		case cl.events <- event:
		default:
			evict = append(evict, cl)
		}
	}
	s.mu.RUnlock()

	for _, cl := range evict {
		s.log.Warn("dropping unresponsive sse client", "user_id", userID, "event", event.Type)
		s.removeClient(cl)
	}
}

// ClientCount reports the number of attached sinks for a user.
func (s *Service) ClientCount(userID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[userID])
}

// Handler returns the Gin handler for the authenticated event stream.
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := httpkit.MustGetIdentity(c)
		if identity == nil {
			return
		}
		userID := identity.UserID()

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		events, cleanup := s.Register(userID)
		defer cleanup()

		c.SSEvent("connected", gin.H{"userId": userID})
		c.Writer.Flush()

		s.log.Info("sse client connected", "user_id", userID)

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				s.log.Info("sse client disconnected", "user_id", userID)
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close shuts down the SSE service, disconnecting every client.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, clients := range s.clients {
		for _, cl := range clients {
			cl.once.Do(func() { close(cl.events) })
		}
	}
	s.clients = make(map[uuid.UUID][]*client)
}
