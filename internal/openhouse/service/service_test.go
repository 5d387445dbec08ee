package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sngor/bayon-backend/internal/events"
	"github.com/sngor/bayon-backend/internal/openhouse/domain"
	"github.com/sngor/bayon-backend/internal/openhouse/repository"
	"github.com/sngor/bayon-backend/internal/storage"
	"github.com/sngor/bayon-backend/platform/logger"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store mirroring the repository's semantics,
// including the one-pending-row-per-step rule and the lease handling.
type fakeStore struct {
	mu          sync.Mutex
	sessions    map[uuid.UUID]domain.Session
	visitors    map[uuid.UUID]domain.Visitor
	sequences   map[uuid.UUID]domain.Sequence
	touchpoints map[uuid.UUID]*domain.Touchpoint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:    make(map[uuid.UUID]domain.Session),
		visitors:    make(map[uuid.UUID]domain.Visitor),
		sequences:   make(map[uuid.UUID]domain.Sequence),
		touchpoints: make(map[uuid.UUID]*domain.Touchpoint),
	}
}

func (f *fakeStore) CreateSession(_ context.Context, params repository.CreateSessionParams) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := domain.Session{
		ID:          uuid.New(),
		UserID:      params.UserID,
		Title:       params.Title,
		Address:     params.Address,
		PublicToken: params.PublicToken,
		StartsAt:    params.StartsAt,
		EndsAt:      params.EndsAt,
		CreatedAt:   time.Now(),
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeStore) GetSession(_ context.Context, userID, id uuid.UUID) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.UserID != userID {
		return domain.Session{}, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) GetSessionByToken(_ context.Context, token string) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.PublicToken == token && s.ArchivedAt == nil {
			return s, nil
		}
	}
	return domain.Session{}, repository.ErrNotFound
}

func (f *fakeStore) ListSessions(_ context.Context, userID uuid.UUID) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Session, 0)
	for _, s := range f.sessions {
		if s.UserID == userID && s.ArchivedAt == nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) ArchiveSession(_ context.Context, userID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.UserID != userID || s.ArchivedAt != nil {
		return repository.ErrNotFound
	}
	now := time.Now()
	s.ArchivedAt = &now
	f.sessions[id] = s
	return nil
}

func (f *fakeStore) CreateVisitor(_ context.Context, params repository.CreateVisitorParams) (domain.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := domain.Visitor{
		ID:            uuid.New(),
		SessionID:     params.SessionID,
		UserID:        params.UserID,
		FullName:      params.FullName,
		Email:         params.Email,
		Phone:         params.Phone,
		InterestLevel: params.InterestLevel,
		Notes:         params.Notes,
		Source:        params.Source,
		CheckedInAt:   time.Now(),
		CreatedAt:     time.Now(),
	}
	f.visitors[v.ID] = v
	return v, nil
}

func (f *fakeStore) GetVisitor(_ context.Context, id uuid.UUID) (domain.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.visitors[id]
	if !ok {
		return domain.Visitor{}, repository.ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) ListVisitors(_ context.Context, userID, sessionID uuid.UUID) ([]domain.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Visitor, 0)
	for _, v := range f.visitors {
		if v.SessionID == sessionID && v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkFollowupGenerated(_ context.Context, visitorID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.visitors[visitorID]; ok {
		v.FollowupGenerated = true
		f.visitors[visitorID] = v
	}
	return nil
}

func (f *fakeStore) MarkVisitorOpened(_ context.Context, visitorID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.visitors[visitorID]
	if ok && v.OpenedAt == nil {
		now := time.Now()
		v.OpenedAt = &now
		f.visitors[visitorID] = v
	}
	return nil
}

func (f *fakeStore) MarkVisitorClicked(_ context.Context, visitorID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.visitors[visitorID]
	if ok && v.ClickedAt == nil {
		now := time.Now()
		v.ClickedAt = &now
		f.visitors[visitorID] = v
	}
	return nil
}

func (f *fakeStore) MarkVisitorFollowupSent(_ context.Context, visitorID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.visitors[visitorID]
	if ok && v.FollowupSentAt == nil {
		now := time.Now()
		v.FollowupSentAt = &now
		f.visitors[visitorID] = v
	}
	return nil
}

func (f *fakeStore) UpsertSequence(_ context.Context, params repository.UpsertSequenceParams) (domain.Sequence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq := domain.Sequence{
		ID:        uuid.New(),
		SessionID: params.SessionID,
		UserID:    params.UserID,
		Name:      params.Name,
		Steps:     params.Steps,
		UpdatedAt: time.Now(),
	}
	f.sequences[params.SessionID] = seq
	return seq, nil
}

func (f *fakeStore) GetSequenceBySession(_ context.Context, sessionID uuid.UUID) (domain.Sequence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq, ok := f.sequences[sessionID]
	if !ok {
		return domain.Sequence{}, repository.ErrNotFound
	}
	return seq, nil
}

func (f *fakeStore) InsertPendingTouchpoint(_ context.Context, params repository.InsertTouchpointParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tp := range f.touchpoints {
		if tp.VisitorID == params.VisitorID && tp.StepNumber == params.StepNumber && tp.Status == domain.TouchpointPending {
			return false, nil
		}
	}
	tp := &domain.Touchpoint{
		ID:         uuid.New(),
		VisitorID:  params.VisitorID,
		SessionID:  params.SessionID,
		UserID:     params.UserID,
		StepNumber: params.StepNumber,
		DueAt:      params.DueAt,
		Channel:    params.Channel,
		Template:   params.Template,
		Status:     domain.TouchpointPending,
		CreatedAt:  time.Now(),
	}
	f.touchpoints[tp.ID] = tp
	return true, nil
}

func (f *fakeStore) ClaimDue(_ context.Context, limit int, leasedUntil time.Time) ([]domain.Touchpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	out := make([]domain.Touchpoint, 0)
	for _, tp := range f.touchpoints {
		if len(out) >= limit {
			break
		}
		if tp.Status != domain.TouchpointPending || tp.DueAt.After(now) {
			continue
		}
		if tp.LeasedUntil != nil && tp.LeasedUntil.After(now) {
			continue
		}
		lease := leasedUntil
		tp.LeasedUntil = &lease
		out = append(out, *tp)
	}
	return out, nil
}

func (f *fakeStore) MarkSent(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tp, ok := f.touchpoints[id]
	if !ok || tp.Status != domain.TouchpointPending {
		return repository.ErrNotFound
	}
	now := time.Now()
	tp.Status = domain.TouchpointSent
	tp.SentAt = &now
	tp.LeasedUntil = nil
	tp.LastError = nil
	return nil
}

func (f *fakeStore) RecordFailure(_ context.Context, id uuid.UUID, cause string, maxAttempts int) (domain.TouchpointStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tp, ok := f.touchpoints[id]
	if !ok || tp.Status != domain.TouchpointPending {
		return "", repository.ErrNotFound
	}
	tp.Attempts++
	tp.LastError = &cause
	tp.LeasedUntil = nil
	if tp.Attempts >= maxAttempts {
		tp.Status = domain.TouchpointFailed
	}
	return tp.Status, nil
}

func (f *fakeStore) MarkSkipped(_ context.Context, id uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tp, ok := f.touchpoints[id]
	if !ok || tp.Status != domain.TouchpointPending {
		return nil
	}
	tp.Status = domain.TouchpointSkipped
	tp.LastError = &reason
	tp.LeasedUntil = nil
	return nil
}

func (f *fakeStore) MarkTouchpointOpened(_ context.Context, visitorID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tp := range f.touchpoints {
		if tp.VisitorID == visitorID && tp.Status == domain.TouchpointSent && tp.OpenedAt == nil {
			now := time.Now()
			tp.OpenedAt = &now
			break
		}
	}
	return nil
}

func (f *fakeStore) MarkTouchpointClicked(_ context.Context, visitorID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tp := range f.touchpoints {
		if tp.VisitorID == visitorID && tp.Status == domain.TouchpointSent && tp.ClickedAt == nil {
			now := time.Now()
			tp.ClickedAt = &now
			break
		}
	}
	return nil
}

func (f *fakeStore) ListTouchpointsByVisitor(_ context.Context, userID, visitorID uuid.UUID) ([]domain.Touchpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Touchpoint, 0)
	for _, tp := range f.touchpoints {
		if tp.VisitorID == visitorID && tp.UserID == userID {
			out = append(out, *tp)
		}
	}
	return out, nil
}

// pendingCount reports how many pending touchpoints exist for a visitor.
func (f *fakeStore) pendingCount(visitorID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, tp := range f.touchpoints {
		if tp.VisitorID == visitorID && tp.Status == domain.TouchpointPending {
			n++
		}
	}
	return n
}

func (f *fakeStore) touchpoint(id uuid.UUID) domain.Touchpoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.touchpoints[id]
}

type fakeEmailSender struct {
	mu       sync.Mutex
	sent     []string
	failWith error
}

func (f *fakeEmailSender) SendFollowUpEmail(_ context.Context, to, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.sent = append(f.sent, to)
	return nil
}

func (f *fakeEmailSender) SendCheckInReceiptEmail(_ context.Context, to, _, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return nil
}

func (f *fakeEmailSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeSMSSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSMSSender) SendMessage(_ context.Context, phoneNumber, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, phoneNumber)
	return nil
}

type fakeConfig struct{}

func (fakeConfig) GetTouchpointBatchSize() int             { return 200 }
func (fakeConfig) GetTouchpointRetryCeiling() int          { return domain.MaxAttempts }
func (fakeConfig) GetTouchpointItemTimeout() time.Duration { return 15 * time.Second }
func (fakeConfig) GetTouchpointLease() time.Duration       { return 2 * time.Minute }
func (fakeConfig) GetTrackingBaseURL() string              { return "http://api.test" }
func (fakeConfig) GetPublicBaseURL() string                { return "http://app.test" }
func (fakeConfig) GetEmailFromName() string                { return "Bayon Realty" }
func (fakeConfig) GetMinioBucketSessionQR() string         { return "session-qr" }

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeObjectStore) Upload(_ context.Context, bucket, fileKey, _ string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[bucket+"/"+fileKey] = data
	return nil
}

func (f *fakeObjectStore) PresignedDownloadURL(_ context.Context, bucket, fileKey, _ string) (*storage.PresignedURL, error) {
	return &storage.PresignedURL{
		URL:       fmt.Sprintf("http://minio.test/%s/%s", bucket, fileKey),
		FileKey:   fileKey,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func newTestService(store *fakeStore, email *fakeEmailSender, smsSender *fakeSMSSender) *Service {
	log := logger.New("test")
	return New(store, email, smsSender, nil, &fakeObjectStore{}, events.NewInMemoryBus(log), fakeConfig{}, log)
}

func strPtr(s string) *string { return &s }

func testVisitor(store *fakeStore, steps []domain.SequenceStep) (domain.Session, domain.Visitor) {
	ctx := context.Background()
	session, _ := store.CreateSession(ctx, repository.CreateSessionParams{
		UserID:      uuid.New(),
		Title:       "Open House at 12 Elm St",
		Address:     "12 Elm St, Springfield",
		PublicToken: "tok-" + uuid.NewString(),
		StartsAt:    time.Now().Add(-time.Hour),
		EndsAt:      time.Now().Add(time.Hour),
	})
	if steps != nil {
		store.UpsertSequence(ctx, repository.UpsertSequenceParams{
			SessionID: session.ID,
			UserID:    session.UserID,
			Name:      "standard",
			Steps:     steps,
		})
	}
	visitor, _ := store.CreateVisitor(ctx, repository.CreateVisitorParams{
		SessionID:     session.ID,
		UserID:        session.UserID,
		FullName:      "Dana Visitor",
		Email:         strPtr("dana@example.com"),
		Phone:         strPtr("+15551234567"),
		InterestLevel: domain.InterestHigh,
		Source:        "checkin",
	})
	return session, visitor
}

func standardSteps() []domain.SequenceStep {
	return []domain.SequenceStep{
		{OffsetMinutes: 0, Channel: domain.ChannelEmail, Template: "thanks", Subject: "Thanks for coming", Body: "<p>Great meeting you!</p>"},
		{OffsetMinutes: 60, Channel: domain.ChannelSMS, Template: "nudge", Body: "Any questions about the home?"},
		{OffsetMinutes: 1440, Channel: domain.ChannelEmail, Template: "listing", Subject: "Similar homes", Body: "<p>A few more listings you may like.</p>"},
	}
}
