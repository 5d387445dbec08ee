package service

import (
	"context"
	"errors"

	"github.com/sngor/bayon-backend/internal/events"
	"github.com/sngor/bayon-backend/internal/listings/domain"
	"github.com/sngor/bayon-backend/internal/listings/mls"
	"github.com/sngor/bayon-backend/internal/listings/repository"
	"github.com/sngor/bayon-backend/internal/listings/transport"
	"github.com/sngor/bayon-backend/platform/apperr"
	"github.com/sngor/bayon-backend/platform/logger"

	"github.com/google/uuid"
)

// Typed sentinels: the HTTP layer maps their kind to a status code.
var (
	ErrListingNotFound    = apperr.NotFound("listing not found")
	ErrConnectionNotFound = apperr.NotFound("mls connection not found")
)

// Store is the persistence surface the listings services need.
// *repository.Repository satisfies it.
type Store interface {
	CreateConnection(ctx context.Context, params repository.CreateConnectionParams) (domain.Connection, error)
	GetConnection(ctx context.Context, userID, id uuid.UUID) (domain.Connection, error)
	ListConnections(ctx context.Context, userID uuid.UUID) ([]domain.Connection, error)
	ListActiveConnections(ctx context.Context) ([]domain.Connection, error)
	SetConnectionStatus(ctx context.Context, id uuid.UUID, status domain.ConnectionStatus) error

	CreateListing(ctx context.Context, params repository.CreateListingParams) (domain.Listing, error)
	GetListing(ctx context.Context, userID, id uuid.UUID) (domain.Listing, error)
	ListListings(ctx context.Context, userID uuid.UUID) ([]domain.Listing, error)
	ListListingsByConnection(ctx context.Context, connectionID uuid.UUID) ([]domain.Listing, error)
	ApplyExternalStatus(ctx context.Context, id uuid.UUID, status domain.ListingStatus) (domain.Listing, error)
	TouchSynced(ctx context.Context, id uuid.UUID) error

	CreatePost(ctx context.Context, params repository.CreatePostParams) (domain.SocialPost, error)
	ListPublishedPosts(ctx context.Context, listingID uuid.UUID) ([]domain.SocialPost, error)
	ListPostsByListing(ctx context.Context, userID, listingID uuid.UUID) ([]domain.SocialPost, error)
	MarkPostUnpublished(ctx context.Context, id uuid.UUID) error
	MarkPostUnpublishFailed(ctx context.Context, id uuid.UUID, cause string) error
	GetSocialConnectionToken(ctx context.Context, userID uuid.UUID, platform string) (string, error)
}

// StatusFetcher reads a listing's status from its external authority.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, conn domain.Connection, externalID string) (mls.StatusResult, error)
}

// PostRemover takes a published post down from its platform.
type PostRemover interface {
	DeletePost(ctx context.Context, platform, accessToken, platformPostID string) error
}

type Service struct {
	store  Store
	mls    StatusFetcher
	social PostRemover
	bus    events.Bus
	log    *logger.Logger
}

func New(store Store, mlsClient StatusFetcher, social PostRemover, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, mls: mlsClient, social: social, bus: bus, log: log}
}

var _ Store = (*repository.Repository)(nil)

func (s *Service) CreateConnection(ctx context.Context, userID uuid.UUID, req transport.CreateConnectionRequest) (transport.ConnectionResponse, error) {
	conn, err := s.store.CreateConnection(ctx, repository.CreateConnectionParams{
		UserID:      userID,
		Provider:    req.Provider,
		APIBaseURL:  req.APIBaseURL,
		AccessToken: req.AccessToken,
	})
	if err != nil {
		return transport.ConnectionResponse{}, err
	}
	return transport.NewConnectionResponse(conn), nil
}

func (s *Service) ListConnections(ctx context.Context, userID uuid.UUID) ([]transport.ConnectionResponse, error) {
	conns, err := s.store.ListConnections(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.ConnectionResponse, 0, len(conns))
	for _, c := range conns {
		out = append(out, transport.NewConnectionResponse(c))
	}
	return out, nil
}

func (s *Service) CreateListing(ctx context.Context, userID uuid.UUID, req transport.CreateListingRequest) (transport.ListingResponse, error) {
	// The connection must belong to the caller before anything hangs
	// off it.
	if _, err := s.store.GetConnection(ctx, userID, req.ConnectionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.ListingResponse{}, ErrConnectionNotFound
		}
		return transport.ListingResponse{}, err
	}

	listing, err := s.store.CreateListing(ctx, repository.CreateListingParams{
		UserID:       userID,
		ConnectionID: req.ConnectionID,
		ExternalID:   req.ExternalID,
		Address:      req.Address,
		Status:       domain.ListingActive,
	})
	if err != nil {
		return transport.ListingResponse{}, err
	}
	return transport.NewListingResponse(listing), nil
}

func (s *Service) ListListings(ctx context.Context, userID uuid.UUID) ([]transport.ListingResponse, error) {
	listings, err := s.store.ListListings(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.ListingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, transport.NewListingResponse(l))
	}
	return out, nil
}

func (s *Service) RegisterPost(ctx context.Context, userID, listingID uuid.UUID, req transport.RegisterPostRequest) (transport.PostResponse, error) {
	if _, err := s.store.GetListing(ctx, userID, listingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.PostResponse{}, ErrListingNotFound
		}
		return transport.PostResponse{}, err
	}

	post, err := s.store.CreatePost(ctx, repository.CreatePostParams{
		ListingID:      listingID,
		UserID:         userID,
		Platform:       req.Platform,
		PlatformPostID: req.PlatformPostID,
	})
	if err != nil {
		return transport.PostResponse{}, err
	}
	return transport.NewPostResponse(post), nil
}

func (s *Service) ListPosts(ctx context.Context, userID, listingID uuid.UUID) ([]transport.PostResponse, error) {
	posts, err := s.store.ListPostsByListing(ctx, userID, listingID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.PostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, transport.NewPostResponse(p))
	}
	return out, nil
}
