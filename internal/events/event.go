// Package events defines the domain events exchanged between modules.
package events

import (
	"time"

	"github.com/google/uuid"
)

// VisitorCheckedIn is published when a visitor registers at an open house.
type VisitorCheckedIn struct {
	BaseEvent
	VisitorID   uuid.UUID
	SessionID   uuid.UUID
	UserID      uuid.UUID
	VisitorName string
	Source      string
}

// EventName returns the unique event identifier.
func (e VisitorCheckedIn) EventName() string { return "openhouse.visitor_checked_in" }

// TouchpointSent is published when a follow-up touchpoint is dispatched.
type TouchpointSent struct {
	BaseEvent
	TouchpointID uuid.UUID
	VisitorID    uuid.UUID
	SessionID    uuid.UUID
	UserID       uuid.UUID
	StepNumber   int
	Channel      string
	SentAt       time.Time
}

// EventName returns the unique event identifier.
func (e TouchpointSent) EventName() string { return "openhouse.touchpoint_sent" }

// TouchpointFailed is published when a touchpoint exhausts its retry ceiling.
type TouchpointFailed struct {
	BaseEvent
	TouchpointID uuid.UUID
	VisitorID    uuid.UUID
	UserID       uuid.UUID
	StepNumber   int
	Channel      string
	LastError    string
}

// EventName returns the unique event identifier.
func (e TouchpointFailed) EventName() string { return "openhouse.touchpoint_failed" }

// ListingStatusChanged is published when reconciliation detects a transition.
type ListingStatusChanged struct {
	BaseEvent
	ListingID  uuid.UUID
	UserID     uuid.UUID
	Address    string
	OldStatus  string
	NewStatus  string
	Restored   bool
	SyncedAt   time.Time
}

// EventName returns the unique event identifier.
func (e ListingStatusChanged) EventName() string { return "listings.status_changed" }

// PostsUnpublished is published after the sold-listing unpublish cascade.
type PostsUnpublished struct {
	BaseEvent
	ListingID   uuid.UUID
	UserID      uuid.UUID
	Address     string
	Unpublished int
	Failed      int
}

// EventName returns the unique event identifier.
func (e PostsUnpublished) EventName() string { return "listings.posts_unpublished" }
