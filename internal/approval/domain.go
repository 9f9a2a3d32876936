package approval

import (
	"time"

	"github.com/google/uuid"
)

// Status represents where a proposal sits in the approval workflow.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Decided reports whether the status is terminal. A decided proposal
// never changes status again.
func (s Status) Decided() bool {
	return s == StatusApproved || s == StatusRejected
}

// Session is a named container for an ordered list of proposals.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewSession creates a session with a generated ID.
func NewSession() Session {
	return Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}
}

// Proposal is a piece of submitted text moving through
// pending → approved/rejected.
type Proposal struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Text      string    `json:"text"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewProposal creates a pending proposal with a generated ID.
func NewProposal(sessionID, text string) Proposal {
	return Proposal{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Text:      text,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// Decide returns a copy of the proposal with its status resolved.
// The receiver is never mutated; ID, text, and creation time carry over.
func (p Proposal) Decide(approved bool) Proposal {
	if approved {
		p.Status = StatusApproved
	} else {
		p.Status = StatusRejected
	}
	return p
}

// EventKind distinguishes proposal-created and proposal-decided events.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
)

// Event is a single change to a session's proposal list. Events are
// ephemeral: watchers that join late get events regenerated from the
// current proposal state rather than a stored log.
type Event struct {
	Kind     EventKind `json:"kind"`
	Proposal Proposal  `json:"proposal"`
}
