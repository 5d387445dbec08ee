package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sngor/bayon-backend/internal/events"
	"github.com/sngor/bayon-backend/internal/listings/domain"
	"github.com/sngor/bayon-backend/internal/listings/mls"
	"github.com/sngor/bayon-backend/internal/listings/transport"

	"github.com/google/uuid"
)

// syncItemTimeout bounds one connection's reconciliation. A hung
// authority burns its own budget, not the whole sweep's.
const syncItemTimeout = 15 * time.Second

// SyncAllConnections reconciles every connection of one user against
// its external authority. Connections are isolated from each other: a
// dead authority or revoked credential poisons only its own batch item.
func (s *Service) SyncAllConnections(ctx context.Context, userID uuid.UUID) (transport.SyncSummary, error) {
	conns, err := s.store.ListConnections(ctx, userID)
	if err != nil {
		return transport.SyncSummary{}, fmt.Errorf("list connections: %w", err)
	}
	return s.syncConnections(ctx, conns), nil
}

// SyncEverything reconciles every active connection across all users.
// This is the periodic sweep behind the freshness target.
func (s *Service) SyncEverything(ctx context.Context) (transport.SyncSummary, error) {
	conns, err := s.store.ListActiveConnections(ctx)
	if err != nil {
		return transport.SyncSummary{}, fmt.Errorf("list active connections: %w", err)
	}
	return s.syncConnections(ctx, conns), nil
}

func (s *Service) syncConnections(ctx context.Context, conns []domain.Connection) transport.SyncSummary {
	started := time.Now()
	summary := transport.SyncSummary{Errors: []string{}}

	for _, conn := range conns {
		if conn.Status != domain.ConnectionActive {
			summary.Errors = append(summary.Errors,
				fmt.Sprintf("connection %s (%s): skipped, status %s", conn.ID, conn.Provider, conn.Status))
			continue
		}
		summary.Connections++

		connCtx, cancel := context.WithTimeout(ctx, syncItemTimeout)
		checked, changed, errs := s.syncConnection(connCtx, conn)
		cancel()
		summary.Checked += checked
		summary.Changed += changed
		summary.Failed += len(errs)
		summary.Errors = append(summary.Errors, errs...)
	}

	s.log.BatchSummary("mls-sync", summary.Checked, summary.Failed, float64(time.Since(started).Milliseconds()))
	return summary
}

// syncConnection walks one connection's listings. An auth rejection
// aborts the walk and flags the connection for re-authentication;
// every other failure is per-listing.
func (s *Service) syncConnection(ctx context.Context, conn domain.Connection) (checked, changed int, errs []string) {
	listings, err := s.store.ListListingsByConnection(ctx, conn.ID)
	if err != nil {
		return 0, 0, []string{fmt.Sprintf("connection %s: list listings: %v", conn.ID, err)}
	}

	for _, listing := range listings {
		result, err := s.mls.FetchStatus(ctx, conn, listing.ExternalID)
		if errors.Is(err, mls.ErrAuthRejected) {
			if markErr := s.store.SetConnectionStatus(ctx, conn.ID, domain.ConnectionReauthRequired); markErr != nil {
				s.log.Error("flag connection for reauth", "error", markErr, "connection_id", conn.ID)
			}
			s.log.Warn("connection credentials rejected, aborting its sync",
				"connection_id", conn.ID, "provider", conn.Provider)
			errs = append(errs, fmt.Sprintf("connection %s: %v", conn.ID, err))
			return checked, changed, errs
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("listing %s: %v", listing.ID, err))
			continue
		}

		checked++
		if result.Status == listing.Status {
			if err := s.store.TouchSynced(ctx, listing.ID); err != nil {
				s.log.Warn("stamp listing sync time", "error", err, "listing_id", listing.ID)
			}
			continue
		}

		if err := s.applyTransition(ctx, listing, result.Status); err != nil {
			errs = append(errs, fmt.Sprintf("listing %s: %v", listing.ID, err))
			continue
		}
		changed++
	}

	return checked, changed, errs
}

// applyTransition overwrites the local status with the external one.
// The external answer always wins, whatever the direction of travel.
func (s *Service) applyTransition(ctx context.Context, listing domain.Listing, external domain.ListingStatus) error {
	transition := domain.Transition{ListingID: listing.ID, From: listing.Status, To: external}

	updated, err := s.store.ApplyExternalStatus(ctx, listing.ID, external)
	if err != nil {
		return fmt.Errorf("apply external status: %w", err)
	}

	switch {
	case transition.Restoration():
		// Back on market after a fallen-through deal. Notable enough
		// to log and notify, but nothing to republish or cascade.
		s.log.Info("listing restored to market",
			"listing_id", listing.ID, "address", listing.Address,
			"from", transition.From, "to", transition.To)
	case transition.BecameSold():
		s.log.Info("listing sold, unpublishing posts",
			"listing_id", listing.ID, "address", listing.Address)
	case listing.Status == domain.ListingSold:
		// The authority walked a sale back. Overwrite anyway, loudly.
		s.log.Warn("sold listing reverted by authority",
			"listing_id", listing.ID, "address", listing.Address, "to", transition.To)
	}

	s.bus.Publish(ctx, events.ListingStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		ListingID: updated.ID,
		UserID:    updated.UserID,
		Address:   updated.Address,
		OldStatus: string(transition.From),
		NewStatus: string(transition.To),
		Restored:  transition.Restoration(),
		SyncedAt:  time.Now(),
	})

	if transition.BecameSold() {
		if _, err := s.UnpublishListingPosts(ctx, updated); err != nil {
			// The status change already stuck; the cascade failing is
			// its own problem and must not fail the sync item.
			s.log.Error("unpublish cascade failed", "error", err, "listing_id", updated.ID)
		}
	}

	return nil
}

// UnpublishListingPosts takes down every published post of a sold
// listing. Each post and platform fails independently: one platform's
// outage never blocks the takedown on the others.
func (s *Service) UnpublishListingPosts(ctx context.Context, listing domain.Listing) (transport.CascadeSummary, error) {
	posts, err := s.store.ListPublishedPosts(ctx, listing.ID)
	if err != nil {
		return transport.CascadeSummary{}, fmt.Errorf("list published posts: %w", err)
	}

	var summary transport.CascadeSummary
	for _, post := range posts {
		if err := s.unpublishPost(ctx, post); err != nil {
			summary.Failed++
			if markErr := s.store.MarkPostUnpublishFailed(ctx, post.ID, err.Error()); markErr != nil {
				s.log.Error("mark post unpublish failed", "error", markErr, "post_id", post.ID)
			}
			s.log.Warn("post takedown failed",
				"error", err, "post_id", post.ID, "platform", post.Platform)
			continue
		}
		summary.Unpublished++
		if err := s.store.MarkPostUnpublished(ctx, post.ID); err != nil {
			s.log.Error("mark post unpublished", "error", err, "post_id", post.ID)
		}
	}

	if len(posts) > 0 {
		s.bus.Publish(ctx, events.PostsUnpublished{
			BaseEvent:   events.NewBaseEvent(),
			ListingID:   listing.ID,
			UserID:      listing.UserID,
			Address:     listing.Address,
			Unpublished: summary.Unpublished,
			Failed:      summary.Failed,
		})
	}

	return summary, nil
}

func (s *Service) unpublishPost(ctx context.Context, post domain.SocialPost) error {
	token, err := s.store.GetSocialConnectionToken(ctx, post.UserID, post.Platform)
	if err != nil {
		return fmt.Errorf("no usable %s credentials: %w", post.Platform, err)
	}
	return s.social.DeletePost(ctx, post.Platform, token, post.PlatformPostID)
}
