package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sngor/bayon-backend/internal/openhouse/domain"
)

func TestScheduleForVisitorCreatesOneTouchpointPerStep(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeEmailSender{}, &fakeSMSSender{})
	_, visitor := testVisitor(store, standardSteps())

	created, err := svc.ScheduleForVisitor(context.Background(), visitor)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if created != 3 {
		t.Fatalf("expected 3 touchpoints, got %d", created)
	}

	tps, err := store.ListTouchpointsByVisitor(context.Background(), visitor.UserID, visitor.ID)
	if err != nil {
		t.Fatalf("list touchpoints: %v", err)
	}
	for _, tp := range tps {
		wantDue := visitor.CheckedInAt.Add(time.Duration(standardSteps()[tp.StepNumber-1].OffsetMinutes) * time.Minute)
		if !tp.DueAt.Equal(wantDue) {
			t.Errorf("step %d due at %v, want %v", tp.StepNumber, tp.DueAt, wantDue)
		}
		if tp.Status != domain.TouchpointPending {
			t.Errorf("step %d status %q, want pending", tp.StepNumber, tp.Status)
		}
	}
}

func TestScheduleForVisitorIsIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeEmailSender{}, &fakeSMSSender{})
	_, visitor := testVisitor(store, standardSteps())

	if _, err := svc.ScheduleForVisitor(context.Background(), visitor); err != nil {
		t.Fatalf("first schedule: %v", err)
	}
	created, err := svc.ScheduleForVisitor(context.Background(), visitor)
	if err != nil {
		t.Fatalf("second schedule: %v", err)
	}
	if created != 0 {
		t.Fatalf("second schedule created %d touchpoints, want 0", created)
	}
	if n := store.pendingCount(visitor.ID); n != 3 {
		t.Fatalf("expected 3 pending touchpoints after rerun, got %d", n)
	}
}

func TestScheduleForVisitorRejectsNonIncreasingOffsets(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeEmailSender{}, &fakeSMSSender{})
	steps := []domain.SequenceStep{
		{OffsetMinutes: 60, Channel: domain.ChannelEmail, Template: "a", Body: "a"},
		{OffsetMinutes: 30, Channel: domain.ChannelEmail, Template: "b", Body: "b"},
	}
	_, visitor := testVisitor(store, steps)

	_, err := svc.ScheduleForVisitor(context.Background(), visitor)
	if !errors.Is(err, domain.ErrInvalidSequence) {
		t.Fatalf("expected ErrInvalidSequence, got %v", err)
	}
	if n := store.pendingCount(visitor.ID); n != 0 {
		t.Fatalf("invalid sequence scheduled %d touchpoints, want 0", n)
	}
}

func TestScheduleForVisitorRejectsNegativeOffset(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeEmailSender{}, &fakeSMSSender{})
	steps := []domain.SequenceStep{
		{OffsetMinutes: -5, Channel: domain.ChannelEmail, Template: "a", Body: "a"},
	}
	_, visitor := testVisitor(store, steps)

	if _, err := svc.ScheduleForVisitor(context.Background(), visitor); !errors.Is(err, domain.ErrInvalidSequence) {
		t.Fatalf("expected ErrInvalidSequence, got %v", err)
	}
}

func TestScheduleForVisitorUsesDefaultSequence(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeEmailSender{}, &fakeSMSSender{})
	svc.defaultSequence = standardSteps()
	_, visitor := testVisitor(store, nil)

	created, err := svc.ScheduleForVisitor(context.Background(), visitor)
	if err != nil {
		t.Fatalf("schedule with default sequence: %v", err)
	}
	if created != 3 {
		t.Fatalf("expected 3 touchpoints from default sequence, got %d", created)
	}
}

func TestScheduleForVisitorFailsWithoutAnySequence(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeEmailSender{}, &fakeSMSSender{})
	_, visitor := testVisitor(store, nil)

	if _, err := svc.ScheduleForVisitor(context.Background(), visitor); err == nil {
		t.Fatal("expected error when no sequence is available")
	}
}
