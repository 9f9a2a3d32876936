package store

import (
	"context"
	"testing"
	"time"

	"approval-hub/internal/approval"
)

// nextEvent receives one event or fails the test after a timeout.
func nextEvent(t *testing.T, events <-chan approval.Event) approval.Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("event channel closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return approval.Event{}
}

func TestWatch_ReplaysHistoryInOrder(t *testing.T) {
	s := New(0)
	sess := s.CreateSession()

	texts := []string{"First", "Second", "Third"}
	for _, text := range texts {
		s.AddProposal(sess.ID, text)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := s.Watch(ctx, sess.ID)
	for _, text := range texts {
		ev := nextEvent(t, events)
		if ev.Kind != approval.EventCreated {
			t.Errorf("expected created event for %q, got %s", text, ev.Kind)
		}
		if ev.Proposal.Text != text {
			t.Errorf("expected text %q, got %q", text, ev.Proposal.Text)
		}
	}
}

func TestWatch_DecidedProposalReplaysAsUpdated(t *testing.T) {
	s := New(0)
	sess := s.CreateSession()
	p, _ := s.AddProposal(sess.ID, "Please approve")
	s.UpdateProposal(sess.ID, p.ID, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := s.Watch(ctx, sess.ID)
	ev := nextEvent(t, events)
	if ev.Kind != approval.EventUpdated {
		t.Errorf("expected updated event, got %s", ev.Kind)
	}
	if ev.Proposal.Status != approval.StatusApproved {
		t.Errorf("expected approved, got %s", ev.Proposal.Status)
	}

	// The decided proposal yields exactly one replay event.
	select {
	case extra := <-events:
		t.Errorf("expected no further events, got %s for %s", extra.Kind, extra.Proposal.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatch_LiveEventAfterSubscribe(t *testing.T) {
	s := New(0)
	sess := s.CreateSession()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := s.Watch(ctx, sess.ID)

	// The subscription is live as soon as Watch returns, so a mutation
	// now must not be lost even if the snapshot replay has not run yet.
	p, err := s.AddProposal(sess.ID, "live one")
	if err != nil {
		t.Fatalf("AddProposal failed: %v", err)
	}

	ev := nextEvent(t, events)
	if ev.Kind != approval.EventCreated {
		t.Errorf("expected created event, got %s", ev.Kind)
	}
	if ev.Proposal.ID != p.ID {
		t.Errorf("expected proposal %s, got %s", p.ID, ev.Proposal.ID)
	}
}

func TestWatch_HistoryThenLive(t *testing.T) {
	s := New(0)
	sess := s.CreateSession()
	s.AddProposal(sess.ID, "historic")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := s.Watch(ctx, sess.ID)

	first := nextEvent(t, events)
	if first.Proposal.Text != "historic" {
		t.Fatalf("expected historic proposal first, got %q", first.Proposal.Text)
	}

	s.AddProposal(sess.ID, "live")
	second := nextEvent(t, events)
	if second.Proposal.Text != "live" {
		t.Errorf("expected live proposal second, got %q", second.Proposal.Text)
	}
}

func TestWatch_SessionIsolation(t *testing.T) {
	s := New(0)
	sessA := s.CreateSession()
	sessB := s.CreateSession()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventsA := s.Watch(ctx, sessA.ID)

	s.AddProposal(sessB.ID, "for session B")

	select {
	case ev := <-eventsA:
		t.Errorf("watcher of session A received %s for session %s", ev.Kind, ev.Proposal.SessionID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatch_CancelReleasesSubscription(t *testing.T) {
	s := New(0)
	sess := s.CreateSession()

	ctx, cancel := context.WithCancel(context.Background())
	events := s.Watch(ctx, sess.ID)

	// Wait until the subscription is registered.
	deadline := time.Now().Add(2 * time.Second)
	for s.SubscriberCount(sess.ID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()

	// The channel closes and the subscriber set empties.
	for range events {
	}
	deadline = time.Now().Add(2 * time.Second)
	for s.SubscriberCount(sess.ID) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 0 subscribers, got %d", s.SubscriberCount(sess.ID))
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Publishing with zero subscribers must not error or panic.
	if _, err := s.AddProposal(sess.ID, "after unsubscribe"); err != nil {
		t.Fatalf("AddProposal failed: %v", err)
	}
}

func TestWatch_MultipleWatchers(t *testing.T) {
	s := New(0)
	sess := s.CreateSession()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events1 := s.Watch(ctx, sess.ID)
	events2 := s.Watch(ctx, sess.ID)

	p, _ := s.AddProposal(sess.ID, "for everyone")

	for _, events := range []<-chan approval.Event{events1, events2} {
		ev := nextEvent(t, events)
		if ev.Proposal.ID != p.ID {
			t.Errorf("expected proposal %s, got %s", p.ID, ev.Proposal.ID)
		}
	}
}
