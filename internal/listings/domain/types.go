// Package domain holds the listing reconciliation core types.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ListingStatus is the lifecycle reported by the external listing
// authority. The authority's word is final: local status is a cache.
type ListingStatus string

const (
	ListingActive    ListingStatus = "active"
	ListingPending   ListingStatus = "pending"
	ListingSold      ListingStatus = "sold"
	ListingWithdrawn ListingStatus = "withdrawn"
)

func (s ListingStatus) Valid() bool {
	switch s {
	case ListingActive, ListingPending, ListingSold, ListingWithdrawn:
		return true
	}
	return false
}

// ConnectionStatus is the health of an MLS connection.
type ConnectionStatus string

const (
	ConnectionActive         ConnectionStatus = "active"
	ConnectionReauthRequired ConnectionStatus = "reauth_required"
	ConnectionDisabled       ConnectionStatus = "disabled"
)

// Connection is one credentialed link to an external listing authority.
type Connection struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Provider    string
	APIBaseURL  string
	AccessToken string
	Status      ConnectionStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Listing is the local mirror of one externally managed listing.
type Listing struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	ConnectionID   uuid.UUID
	ExternalID     string
	Address        string
	Status         ListingStatus
	PreviousStatus *ListingStatus
	LastSyncedAt   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PostStatus is the lifecycle of a social post tied to a listing.
type PostStatus string

const (
	PostPublished       PostStatus = "published"
	PostUnpublished     PostStatus = "unpublished"
	PostUnpublishFailed PostStatus = "unpublish_failed"
)

// SocialPost is one published promotion of a listing on a platform.
type SocialPost struct {
	ID             uuid.UUID
	ListingID      uuid.UUID
	UserID         uuid.UUID
	Platform       string
	PlatformPostID string
	Status         PostStatus
	PublishedAt    time.Time
	UnpublishedAt  *time.Time
	LastError      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Transition classifies what a reconciliation observed for one listing.
type Transition struct {
	ListingID uuid.UUID
	From      ListingStatus
	To        ListingStatus
}

// BecameSold reports whether this transition triggers the unpublish cascade.
func (t Transition) BecameSold() bool {
	return t.From != ListingSold && t.To == ListingSold
}

// Restoration reports a pending listing returning to market. It is
// logged as a notable event but causes no side effects.
func (t Transition) Restoration() bool {
	return t.From == ListingPending && t.To == ListingActive
}
