package sse

import (
	"sync"
	"testing"

	"github.com/sngor/bayon-backend/platform/logger"

	"github.com/google/uuid"
)

func newTestService() *Service {
	return New(logger.New("test"))
}

func TestBroadcastReachesEveryTab(t *testing.T) {
	svc := newTestService()
	userID := uuid.New()

	tab1, cleanup1 := svc.Register(userID)
	tab2, cleanup2 := svc.Register(userID)
	defer cleanup1()
	defer cleanup2()

	svc.Broadcast(userID, Event{Type: EventTouchpointSent, Message: "sent"})

	for i, ch := range []<-chan Event{tab1, tab2} {
		select {
		case ev := <-ch:
			if ev.Type != EventTouchpointSent {
				t.Errorf("tab %d got event %q, want touchpoint_sent", i+1, ev.Type)
			}
		default:
			t.Errorf("tab %d received nothing", i+1)
		}
	}
}

func TestCleanupRemovesExactlyThatSink(t *testing.T) {
	svc := newTestService()
	userID := uuid.New()

	_, cleanup1 := svc.Register(userID)
	tab2, cleanup2 := svc.Register(userID)
	defer cleanup2()

	cleanup1()
	if n := svc.ClientCount(userID); n != 1 {
		t.Fatalf("client count = %d after one cleanup, want 1", n)
	}

	svc.Broadcast(userID, Event{Type: EventListingStatusChanged})
	select {
	case ev := <-tab2:
		if ev.Type != EventListingStatusChanged {
			t.Fatalf("surviving tab got %q", ev.Type)
		}
	default:
		t.Fatal("surviving tab received nothing")
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	svc := newTestService()
	userID := uuid.New()

	_, cleanup := svc.Register(userID)
	cleanup()
	cleanup() // second call must not panic or close twice

	if n := svc.ClientCount(userID); n != 0 {
		t.Fatalf("client count = %d, want 0", n)
	}
}

func TestBroadcastToUnknownUserIsNoop(t *testing.T) {
	svc := newTestService()
	svc.Broadcast(uuid.New(), Event{Type: EventTouchpointFailed})
}

func TestBroadcastDropsUnresponsiveSink(t *testing.T) {
	svc := newTestService()
	userID := uuid.New()

	slow, cleanup := svc.Register(userID)
	defer cleanup()
	_ = slow // never drained

	for i := 0; i < 40; i++ {
		svc.Broadcast(userID, Event{Type: EventTouchpointSent})
	}

	if n := svc.ClientCount(userID); n != 0 {
		t.Fatalf("client count = %d, want unresponsive sink evicted", n)
	}
}

// Run with -race: broadcasting must never send on a channel that a
// concurrent cleanup or eviction is closing.
func TestBroadcastDuringRegisterChurn(t *testing.T) {
	svc := newTestService()
	userID := uuid.New()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					svc.Broadcast(userID, Event{Type: EventNotification})
				}
			}
		}()
	}

	for i := 0; i < 5000; i++ {
		_, cleanup := svc.Register(userID)
		cleanup()
	}

	close(stop)
	wg.Wait()

	if n := svc.ClientCount(userID); n != 0 {
		t.Fatalf("client count = %d after churn, want 0", n)
	}
}

func TestBroadcastIsolatedPerUser(t *testing.T) {
	svc := newTestService()
	alice, bob := uuid.New(), uuid.New()

	aliceCh, cleanupA := svc.Register(alice)
	bobCh, cleanupB := svc.Register(bob)
	defer cleanupA()
	defer cleanupB()

	svc.Broadcast(alice, Event{Type: EventPostsUnpublished})

	select {
	case <-bobCh:
		t.Fatal("bob received alice's event")
	default:
	}
	select {
	case <-aliceCh:
	default:
		t.Fatal("alice received nothing")
	}
}
