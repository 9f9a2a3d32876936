package store

import (
	"strings"
	"sync"

	"approval-hub/internal/approval"
	"approval-hub/internal/broadcast"
)

// sessionData is the store's internal per-session record. Proposals are
// kept in insertion order.
type sessionData struct {
	session   approval.Session
	proposals []approval.Proposal
}

// Store owns the canonical session/proposal state and coordinates event
// fan-out. Mutations update storage first (the source of truth), then
// broadcast to the session's channel after the lock is released.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*sessionData
	broadcaster *broadcast.Broadcaster[approval.Event]
}

// New creates an empty store. mailboxSize bounds each watcher's buffer
// of undelivered events; pass 0 for the default.
func New(mailboxSize int) *Store {
	return &Store{
		sessions:    make(map[string]*sessionData),
		broadcaster: broadcast.New[approval.Event](mailboxSize),
	}
}

// channelFor maps a session to its broadcast channel name.
func channelFor(sessionID string) string {
	return "session:" + sessionID
}

// CreateSession creates a new empty session. It never fails.
func (s *Store) CreateSession() approval.Session {
	sess := approval.NewSession()

	s.mu.Lock()
	s.sessions[sess.ID] = &sessionData{session: sess}
	s.mu.Unlock()

	return sess
}

// GetSession returns the session or ErrSessionNotFound.
func (s *Store) GetSession(sessionID string) (approval.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sd, ok := s.sessions[sessionID]
	if !ok {
		return approval.Session{}, ErrSessionNotFound
	}
	return sd.session, nil
}

// SessionExists reports whether the session is known.
func (s *Store) SessionExists(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.sessions[sessionID]
	return ok
}

// AddProposal appends a pending proposal with the trimmed text to the
// session and broadcasts a created event. Text that is empty after
// trimming is rejected with ErrEmptyProposal before anything is stored.
func (s *Store) AddProposal(sessionID, text string) (approval.Proposal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return approval.Proposal{}, ErrEmptyProposal
	}

	proposal := approval.NewProposal(sessionID, text)

	s.mu.Lock()
	sd, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return approval.Proposal{}, ErrSessionNotFound
	}
	sd.proposals = append(sd.proposals, proposal)
	s.mu.Unlock()

	// Broadcast after releasing the lock.
	s.broadcaster.Publish(channelFor(sessionID), approval.Event{
		Kind:     approval.EventCreated,
		Proposal: proposal,
	})

	return proposal, nil
}

// UpdateProposal resolves a pending proposal to approved or rejected
// and broadcasts an updated event. Deciding an already-decided proposal
// returns ErrAlreadyDecided without changing anything.
func (s *Store) UpdateProposal(sessionID, proposalID string, approved bool) (approval.Proposal, error) {
	s.mu.Lock()
	sd, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return approval.Proposal{}, ErrSessionNotFound
	}

	idx := -1
	for i, p := range sd.proposals {
		if p.ID == proposalID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return approval.Proposal{}, ErrProposalNotFound
	}
	if sd.proposals[idx].Status.Decided() {
		s.mu.Unlock()
		return approval.Proposal{}, ErrAlreadyDecided
	}

	updated := sd.proposals[idx].Decide(approved)
	sd.proposals[idx] = updated
	s.mu.Unlock()

	s.broadcaster.Publish(channelFor(sessionID), approval.Event{
		Kind:     approval.EventUpdated,
		Proposal: updated,
	})

	return updated, nil
}

// ListProposals returns a copy of the session's proposals in insertion
// order. An unknown session yields an empty list.
func (s *Store) ListProposals(sessionID string) []approval.Proposal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sd, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]approval.Proposal, len(sd.proposals))
	copy(out, sd.proposals)
	return out
}

// SubscriberCount returns the number of active watchers on a session's
// channel.
func (s *Store) SubscriberCount(sessionID string) int {
	return s.broadcaster.SubscriberCount(channelFor(sessionID))
}
