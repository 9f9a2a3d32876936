package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"approval-hub/internal/approval"
	"approval-hub/internal/realtime"
	"approval-hub/internal/store"
)

func newTestClient(t *testing.T) (*Client, *store.Store) {
	t.Helper()
	st := store.New(0)
	srv := httptest.NewServer(realtime.New(st, "").Handler())
	t.Cleanup(srv.Close)
	return New(srv.URL), st
}

func TestCreateAndGetSession(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	sess, err := c.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected non-empty session ID")
	}

	got, err := c.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.ID != sess.ID {
		t.Errorf("expected ID %s, got %s", sess.ID, got.ID)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.GetSession(context.Background(), "nonexistent")
	if err == nil {
		t.Fatal("expected error for unknown session")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status 404 in error, got %v", err)
	}
}

func TestSubmitAndDecideProposal(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	sess, err := c.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	p, err := c.SubmitProposal(ctx, sess.ID, "Please approve")
	if err != nil {
		t.Fatalf("SubmitProposal failed: %v", err)
	}
	if p.Status != approval.StatusPending {
		t.Errorf("expected pending, got %s", p.Status)
	}

	updated, err := c.SubmitDecision(ctx, sess.ID, p.ID, true)
	if err != nil {
		t.Fatalf("SubmitDecision failed: %v", err)
	}
	if updated.Status != approval.StatusApproved {
		t.Errorf("expected approved, got %s", updated.Status)
	}

	proposals, err := c.ListProposals(ctx, sess.ID)
	if err != nil {
		t.Fatalf("ListProposals failed: %v", err)
	}
	if len(proposals) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(proposals))
	}
	if proposals[0].Status != approval.StatusApproved {
		t.Errorf("expected stored status approved, got %s", proposals[0].Status)
	}
}

func TestSubmitProposal_EmptyText(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	sess, _ := c.CreateSession(ctx)
	_, err := c.SubmitProposal(ctx, sess.ID, "   ")
	if err == nil {
		t.Fatal("expected error for empty proposal text")
	}
}

func TestSubmitDecision_AlreadyDecided(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	sess, _ := c.CreateSession(ctx)
	p, _ := c.SubmitProposal(ctx, sess.ID, "ship it")
	if _, err := c.SubmitDecision(ctx, sess.ID, p.ID, true); err != nil {
		t.Fatalf("first decision failed: %v", err)
	}

	_, err := c.SubmitDecision(ctx, sess.ID, p.ID, false)
	if err == nil {
		t.Fatal("expected error for second decision")
	}
	if !strings.Contains(err.Error(), "409") {
		t.Errorf("expected status 409 in error, got %v", err)
	}
}

func TestWatch_UnknownSession(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Watch(context.Background(), "nonexistent", "test-client")
	if err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestWatch_HistoryThenLive(t *testing.T) {
	c, st := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, err := c.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	historic, err := c.SubmitProposal(ctx, sess.ID, "historic")
	if err != nil {
		t.Fatalf("SubmitProposal failed: %v", err)
	}

	events, err := c.Watch(ctx, sess.ID, "test-client")
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	first := recvEvent(t, events)
	if first.Kind != approval.EventCreated {
		t.Errorf("expected created event, got %s", first.Kind)
	}
	if first.Proposal.ID != historic.ID {
		t.Errorf("expected proposal %s, got %s", historic.ID, first.Proposal.ID)
	}

	live, err := c.SubmitProposal(ctx, sess.ID, "live")
	if err != nil {
		t.Fatalf("SubmitProposal failed: %v", err)
	}
	second := recvEvent(t, events)
	if second.Proposal.ID != live.ID {
		t.Errorf("expected proposal %s, got %s", live.ID, second.Proposal.ID)
	}

	// Cancelling the watch releases the server-side subscription.
	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for st.SubscriberCount(sess.ID) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 0 subscribers after cancel, got %d", st.SubscriberCount(sess.ID))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWatch_SeesDecision(t *testing.T) {
	c, _ := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, _ := c.CreateSession(ctx)

	events, err := c.Watch(ctx, sess.ID, "test-client")
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	p, err := c.SubmitProposal(ctx, sess.ID, "Please approve")
	if err != nil {
		t.Fatalf("SubmitProposal failed: %v", err)
	}
	if ev := recvEvent(t, events); ev.Kind != approval.EventCreated {
		t.Fatalf("expected created event, got %s", ev.Kind)
	}

	if _, err := c.SubmitDecision(ctx, sess.ID, p.ID, false); err != nil {
		t.Fatalf("SubmitDecision failed: %v", err)
	}
	ev := recvEvent(t, events)
	if ev.Kind != approval.EventUpdated {
		t.Errorf("expected updated event, got %s", ev.Kind)
	}
	if ev.Proposal.Status != approval.StatusRejected {
		t.Errorf("expected rejected, got %s", ev.Proposal.Status)
	}
}

func recvEvent(t *testing.T, events <-chan approval.Event) approval.Event {
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
