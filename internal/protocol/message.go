package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"approval-hub/internal/approval"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a server-originated message with the current timestamp.
func NewMessage(msgType string, payload interface{}) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		Type:      msgType,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Server → Client message types.
const (
	TypeProposalCreated = "proposal.created"
	TypeProposalUpdated = "proposal.updated"
	TypeWatchStarted    = "watch.started"
	TypeError           = "error"
)

// Client → Server message types.
const (
	TypeSessionWatch   = "session.watch"
	TypeSessionUnwatch = "session.unwatch"
	TypeProposalSubmit = "proposal.submit"
	TypeProposalDecide = "proposal.decide"
)

// Error codes.
const (
	ErrSessionNotFound  = "SESSION_NOT_FOUND"
	ErrProposalNotFound = "PROPOSAL_NOT_FOUND"
	ErrEmptyProposal    = "EMPTY_PROPOSAL"
	ErrAlreadyDecided   = "ALREADY_DECIDED"
	ErrInvalidMessage   = "INVALID_MESSAGE"
	ErrInternal         = "INTERNAL_ERROR"
)

// Server → Client payloads.

// EventPayload carries one proposal event. The message type says
// whether the proposal was created or decided.
type EventPayload struct {
	SessionID string            `json:"sessionId"`
	Proposal  approval.Proposal `json:"proposal"`
}

type WatchStartedPayload struct {
	SessionID string `json:"sessionId"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client → Server payloads.

type WatchPayload struct {
	SessionID string `json:"sessionId"`
	ClientID  string `json:"clientId"`
}

type UnwatchPayload struct {
	SessionID string `json:"sessionId"`
}

type SubmitPayload struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

type DecidePayload struct {
	SessionID  string `json:"sessionId"`
	ProposalID string `json:"proposalId"`
	Approved   bool   `json:"approved"`
}
