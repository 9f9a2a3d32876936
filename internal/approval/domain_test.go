package approval

import "testing"

func TestNewSession(t *testing.T) {
	sess := NewSession()
	if sess.ID == "" {
		t.Error("expected non-empty session ID")
	}
	if sess.CreatedAt.IsZero() {
		t.Error("expected non-zero creation time")
	}
}

func TestNewProposal(t *testing.T) {
	p := NewProposal("sess-1", "ship it")
	if p.ID == "" {
		t.Error("expected non-empty proposal ID")
	}
	if p.SessionID != "sess-1" {
		t.Errorf("expected session ID 'sess-1', got %s", p.SessionID)
	}
	if p.Text != "ship it" {
		t.Errorf("expected text 'ship it', got %s", p.Text)
	}
	if p.Status != StatusPending {
		t.Errorf("expected pending status, got %s", p.Status)
	}
	if p.CreatedAt.IsZero() {
		t.Error("expected non-zero creation time")
	}
}

func TestProposal_DecideApprove(t *testing.T) {
	p := NewProposal("sess-1", "ship it")
	updated := p.Decide(true)

	if updated.Status != StatusApproved {
		t.Errorf("expected approved, got %s", updated.Status)
	}
	if updated.ID != p.ID || updated.Text != p.Text || !updated.CreatedAt.Equal(p.CreatedAt) {
		t.Error("expected ID, text, and creation time to carry over")
	}
	if p.Status != StatusPending {
		t.Errorf("expected original proposal untouched, got %s", p.Status)
	}
}

func TestProposal_DecideReject(t *testing.T) {
	p := NewProposal("sess-1", "ship it")
	updated := p.Decide(false)

	if updated.Status != StatusRejected {
		t.Errorf("expected rejected, got %s", updated.Status)
	}
}

func TestStatus_Decided(t *testing.T) {
	if StatusPending.Decided() {
		t.Error("pending must not be decided")
	}
	if !StatusApproved.Decided() {
		t.Error("approved must be decided")
	}
	if !StatusRejected.Decided() {
		t.Error("rejected must be decided")
	}
}
