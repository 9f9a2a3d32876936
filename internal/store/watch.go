package store

import (
	"context"

	"approval-hub/internal/approval"
)

// Watch streams a session's history followed by live events until ctx
// is cancelled. The returned channel is closed when the watch ends; the
// underlying subscription is released on every exit path.
//
// The live subscription is opened before the history snapshot is read.
// Any mutation that lands between the two is buffered in the
// subscription's mailbox instead of being lost; it may then be seen
// twice, once from the snapshot and once live. Callers that care can
// deduplicate by proposal ID and status.
func (s *Store) Watch(ctx context.Context, sessionID string) <-chan approval.Event {
	channel := channelFor(sessionID)
	sub := s.broadcaster.Subscribe(channel)
	out := make(chan approval.Event)

	go func() {
		defer close(out)
		defer s.broadcaster.Unsubscribe(channel, sub)

		// The snapshot is taken only now, with the subscription above
		// already live.
		for _, p := range s.ListProposals(sessionID) {
			ev := approval.Event{Kind: approval.EventCreated, Proposal: p}
			if p.Status.Decided() {
				// Replay compresses history: a decided proposal shows up
				// as a single updated event, never a created one.
				ev.Kind = approval.EventUpdated
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}

		for {
			select {
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
