package store

import "errors"

// Sentinel errors returned by store operations. All are expected,
// caller-correctable conditions; none leaves the store in a partially
// mutated state.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrProposalNotFound = errors.New("proposal not found")
	ErrEmptyProposal    = errors.New("proposal text is empty")
	ErrAlreadyDecided   = errors.New("proposal already decided")
)
