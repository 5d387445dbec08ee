package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sngor/bayon-backend/internal/openhouse/domain"
	"github.com/sngor/bayon-backend/internal/openhouse/repository"
	"github.com/sngor/bayon-backend/internal/openhouse/transport"

	"github.com/google/uuid"
)

func TestCheckInSchedulesFollowUps(t *testing.T) {
	store := newFakeStore()
	emailSender := &fakeEmailSender{}
	svc := newTestService(store, emailSender, &fakeSMSSender{})
	session, _ := testVisitor(store, standardSteps())

	resp, err := svc.CheckIn(context.Background(), session.PublicToken, transport.CheckInRequest{
		FullName: "Chris Buyer",
		Email:    "chris@example.com",
	})
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if n := store.pendingCount(resp.ID); n != 3 {
		t.Fatalf("expected 3 scheduled touchpoints, got %d", n)
	}
	// Receipt email to the visitor.
	if emailSender.sentCount() != 1 {
		t.Fatalf("expected 1 receipt email, got %d", emailSender.sentCount())
	}
}

func TestCheckInRequiresContact(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeEmailSender{}, &fakeSMSSender{})
	session, _ := testVisitor(store, standardSteps())

	_, err := svc.CheckIn(context.Background(), session.PublicToken, transport.CheckInRequest{FullName: "No Contact"})
	if !errors.Is(err, ErrContactRequired) {
		t.Fatalf("expected ErrContactRequired, got %v", err)
	}
}

func TestCheckInSurvivesBrokenSequence(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeEmailSender{}, &fakeSMSSender{})
	session, _ := testVisitor(store, nil)
	// A session with no sequence and no configured default cannot
	// schedule, but the sign-in itself must still succeed.

	resp, err := svc.CheckIn(context.Background(), session.PublicToken, transport.CheckInRequest{
		FullName: "Robin Walkin",
		Email:    "robin@example.com",
	})
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if n := store.pendingCount(resp.ID); n != 0 {
		t.Fatalf("expected no touchpoints, got %d", n)
	}
}

func TestCheckInUnknownToken(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeEmailSender{}, &fakeSMSSender{})

	_, err := svc.CheckIn(context.Background(), "no-such-token", transport.CheckInRequest{
		FullName: "Lost Visitor",
		Email:    "lost@example.com",
	})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestCheckInOutsideWindow(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeEmailSender{}, &fakeSMSSender{})

	session, err := store.CreateSession(context.Background(), repository.CreateSessionParams{
		UserID:      uuid.New(),
		Title:       "Last Week's Open House",
		Address:     "9 Oak Ave",
		PublicToken: "stale-token",
		StartsAt:    time.Now().Add(-8 * 24 * time.Hour),
		EndsAt:      time.Now().Add(-7 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	_, err = svc.CheckIn(context.Background(), session.PublicToken, transport.CheckInRequest{
		FullName: "Too Late",
		Email:    "late@example.com",
	})
	if !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestUpsertSequenceValidatesSteps(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeEmailSender{}, &fakeSMSSender{})
	session, _ := testVisitor(store, nil)

	_, err := svc.UpsertSequence(context.Background(), session.UserID, session.ID, transport.UpsertSequenceRequest{
		Name: "bad",
		Steps: []transport.SequenceStepRequest{
			{OffsetMinutes: 10, Channel: "email", Template: "a", Body: "a"},
			{OffsetMinutes: 10, Channel: "email", Template: "b", Body: "b"},
		},
	})
	if !errors.Is(err, domain.ErrInvalidSequence) {
		t.Fatalf("expected ErrInvalidSequence for equal offsets, got %v", err)
	}
}
