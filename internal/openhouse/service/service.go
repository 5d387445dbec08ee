package service

import (
	"context"
	"time"

	"github.com/sngor/bayon-backend/internal/events"
	"github.com/sngor/bayon-backend/internal/openhouse/domain"
	"github.com/sngor/bayon-backend/internal/openhouse/repository"
	"github.com/sngor/bayon-backend/internal/storage"
	"github.com/sngor/bayon-backend/platform/apperr"
	"github.com/sngor/bayon-backend/platform/config"
	"github.com/sngor/bayon-backend/platform/logger"

	"github.com/google/uuid"
)

// Typed sentinels: the HTTP layer maps their kind to a status code.
var (
	ErrSessionNotFound = apperr.NotFound("session not found")
	ErrVisitorNotFound = apperr.NotFound("visitor not found")
	ErrContactRequired = apperr.Validation("email or phone is required")
	ErrSessionClosed   = apperr.Conflict("session is not open for check-in")
)

// Store is the persistence surface the open-house services need.
// *repository.Repository satisfies it.
type Store interface {
	CreateSession(ctx context.Context, params repository.CreateSessionParams) (domain.Session, error)
	GetSession(ctx context.Context, userID, id uuid.UUID) (domain.Session, error)
	GetSessionByToken(ctx context.Context, token string) (domain.Session, error)
	ListSessions(ctx context.Context, userID uuid.UUID) ([]domain.Session, error)
	ArchiveSession(ctx context.Context, userID, id uuid.UUID) error

	CreateVisitor(ctx context.Context, params repository.CreateVisitorParams) (domain.Visitor, error)
	GetVisitor(ctx context.Context, id uuid.UUID) (domain.Visitor, error)
	ListVisitors(ctx context.Context, userID, sessionID uuid.UUID) ([]domain.Visitor, error)
	MarkFollowupGenerated(ctx context.Context, visitorID uuid.UUID) error
	MarkVisitorOpened(ctx context.Context, visitorID uuid.UUID) error
	MarkVisitorClicked(ctx context.Context, visitorID uuid.UUID) error
	MarkVisitorFollowupSent(ctx context.Context, visitorID uuid.UUID) error

	UpsertSequence(ctx context.Context, params repository.UpsertSequenceParams) (domain.Sequence, error)
	GetSequenceBySession(ctx context.Context, sessionID uuid.UUID) (domain.Sequence, error)

	InsertPendingTouchpoint(ctx context.Context, params repository.InsertTouchpointParams) (bool, error)
	ClaimDue(ctx context.Context, limit int, leasedUntil time.Time) ([]domain.Touchpoint, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	RecordFailure(ctx context.Context, id uuid.UUID, cause string, maxAttempts int) (domain.TouchpointStatus, error)
	MarkSkipped(ctx context.Context, id uuid.UUID, reason string) error
	MarkTouchpointOpened(ctx context.Context, visitorID uuid.UUID) error
	MarkTouchpointClicked(ctx context.Context, visitorID uuid.UUID) error
	ListTouchpointsByVisitor(ctx context.Context, userID, visitorID uuid.UUID) ([]domain.Touchpoint, error)
}

// EmailSender delivers rendered follow-up and receipt emails.
type EmailSender interface {
	SendFollowUpEmail(ctx context.Context, to, subject, html string) error
	SendCheckInReceiptEmail(ctx context.Context, to, visitorName, sessionTitle, address string) error
}

// SMSSender delivers plain-text messages to a phone number.
type SMSSender interface {
	SendMessage(ctx context.Context, phoneNumber, message string) error
}

// Personalizer optionally rewrites a follow-up body for a visitor.
type Personalizer interface {
	Personalize(ctx context.Context, body string, visitorName, interestLevel, notes string) (string, error)
}

// ObjectStore persists generated QR codes. Nil disables QR downloads.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, fileKey, contentType string, data []byte) error
	PresignedDownloadURL(ctx context.Context, bucket, fileKey, downloadName string) (*storage.PresignedURL, error)
}

// Config narrows platform config to what the services read.
type Config interface {
	GetTouchpointBatchSize() int
	GetTouchpointRetryCeiling() int
	GetTouchpointItemTimeout() time.Duration
	GetTouchpointLease() time.Duration
	GetTrackingBaseURL() string
	GetPublicBaseURL() string
	GetEmailFromName() string
	GetMinioBucketSessionQR() string
}

type Service struct {
	store        Store
	email        EmailSender
	sms          SMSSender
	personalizer Personalizer
	objects      ObjectStore
	bus          events.Bus
	cfg          Config
	log          *logger.Logger

	defaultSequence []domain.SequenceStep
}

func New(store Store, email EmailSender, sms SMSSender, personalizer Personalizer, objects ObjectStore, bus events.Bus, cfg Config, log *logger.Logger) *Service {
	return &Service{
		store:        store,
		email:        email,
		sms:          sms,
		personalizer: personalizer,
		objects:      objects,
		bus:          bus,
		cfg:          cfg,
		log:          log,
	}
}

var (
	_ Store  = (*repository.Repository)(nil)
	_ Config = (*config.Config)(nil)
)
