// Package transport defines the request and response shapes of the
// listings HTTP surface.
package transport

import (
	"time"

	"github.com/sngor/bayon-backend/internal/listings/domain"

	"github.com/google/uuid"
)

type CreateConnectionRequest struct {
	Provider    string `json:"provider" validate:"required,max=50"`
	APIBaseURL  string `json:"apiBaseUrl" validate:"required,url"`
	AccessToken string `json:"accessToken" validate:"required"`
}

type ConnectionResponse struct {
	ID        uuid.UUID `json:"id"`
	Provider  string    `json:"provider"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateListingRequest struct {
	ConnectionID uuid.UUID `json:"connectionId" validate:"required"`
	ExternalID   string    `json:"externalId" validate:"required,max=100"`
	Address      string    `json:"address" validate:"required,max=300"`
}

type ListingResponse struct {
	ID             uuid.UUID  `json:"id"`
	ConnectionID   uuid.UUID  `json:"connectionId"`
	ExternalID     string     `json:"externalId"`
	Address        string     `json:"address"`
	Status         string     `json:"status"`
	PreviousStatus *string    `json:"previousStatus,omitempty"`
	LastSyncedAt   *time.Time `json:"lastSyncedAt,omitempty"`
}

type RegisterPostRequest struct {
	Platform       string `json:"platform" validate:"required,oneof=facebook instagram x linkedin"`
	PlatformPostID string `json:"platformPostId" validate:"required,max=200"`
}

type PostResponse struct {
	ID             uuid.UUID  `json:"id"`
	ListingID      uuid.UUID  `json:"listingId"`
	Platform       string     `json:"platform"`
	PlatformPostID string     `json:"platformPostId"`
	Status         string     `json:"status"`
	UnpublishedAt  *time.Time `json:"unpublishedAt,omitempty"`
	LastError      *string    `json:"lastError,omitempty"`
}

// SyncSummary is the outcome of one reconciliation run.
type SyncSummary struct {
	Connections int      `json:"connections"`
	Checked     int      `json:"checked"`
	Changed     int      `json:"changed"`
	Failed      int      `json:"failed"`
	Errors      []string `json:"errors"`
}

// CascadeSummary is the outcome of one unpublish cascade.
type CascadeSummary struct {
	Unpublished int `json:"unpublished"`
	Failed      int `json:"failed"`
}

func NewConnectionResponse(c domain.Connection) ConnectionResponse {
	return ConnectionResponse{
		ID:        c.ID,
		Provider:  c.Provider,
		Status:    string(c.Status),
		CreatedAt: c.CreatedAt,
	}
}

func NewListingResponse(l domain.Listing) ListingResponse {
	resp := ListingResponse{
		ID:           l.ID,
		ConnectionID: l.ConnectionID,
		ExternalID:   l.ExternalID,
		Address:      l.Address,
		Status:       string(l.Status),
		LastSyncedAt: l.LastSyncedAt,
	}
	if l.PreviousStatus != nil {
		prev := string(*l.PreviousStatus)
		resp.PreviousStatus = &prev
	}
	return resp
}

func NewPostResponse(p domain.SocialPost) PostResponse {
	return PostResponse{
		ID:             p.ID,
		ListingID:      p.ListingID,
		Platform:       p.Platform,
		PlatformPostID: p.PlatformPostID,
		Status:         string(p.Status),
		UnpublishedAt:  p.UnpublishedAt,
		LastError:      p.LastError,
	}
}
