package broadcast

import "sync"

// DefaultMailboxSize is the per-subscriber buffer used when New is
// given a non-positive size.
const DefaultMailboxSize = 100

// Broadcaster fans messages out to every subscriber of a named channel.
// It is generic over the message type and knows nothing about what the
// messages mean. Delivery is best-effort: each subscriber has a bounded
// mailbox, and a full mailbox drops the message for that subscriber
// rather than blocking the publisher.
type Broadcaster[T any] struct {
	mu          sync.RWMutex
	mailboxSize int
	channels    map[string]map[*Subscription[T]]struct{}
}

// Subscription is one subscriber's handle on a channel. Receive from C
// until it is closed by Unsubscribe.
type Subscription[T any] struct {
	C <-chan T

	ch     chan T
	mu     sync.Mutex
	closed bool
}

// send enqueues without blocking, dropping on a full mailbox. The
// per-subscription lock makes send safe against a concurrent close.
func (s *Subscription[T]) send(msg T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- msg:
	default:
		// Mailbox full, drop for this subscriber.
	}
}

func (s *Subscription[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// New creates a broadcaster whose subscribers buffer up to mailboxSize
// undelivered messages each.
func New[T any](mailboxSize int) *Broadcaster[T] {
	if mailboxSize <= 0 {
		mailboxSize = DefaultMailboxSize
	}
	return &Broadcaster[T]{
		mailboxSize: mailboxSize,
		channels:    make(map[string]map[*Subscription[T]]struct{}),
	}
}

// Subscribe registers a new mailbox under the channel and returns its
// handle. Release it with Unsubscribe when done.
func (b *Broadcaster[T]) Subscribe(channel string) *Subscription[T] {
	ch := make(chan T, b.mailboxSize)
	sub := &Subscription[T]{C: ch, ch: ch}

	b.mu.Lock()
	set, ok := b.channels[channel]
	if !ok {
		set = make(map[*Subscription[T]]struct{})
		b.channels[channel] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes the subscription from the channel and closes its
// mailbox. Unsubscribing an unknown handle or channel is a no-op. A
// channel whose subscriber set empties is pruned from the registry.
func (b *Broadcaster[T]) Unsubscribe(channel string, sub *Subscription[T]) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	set, ok := b.channels[channel]
	if !ok {
		b.mu.Unlock()
		return
	}
	if _, ok := set[sub]; !ok {
		b.mu.Unlock()
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.channels, channel)
	}
	b.mu.Unlock()

	sub.close()
}

// Publish delivers msg to every current subscriber of the channel. The
// subscriber set is snapshotted under the registry lock and the pushes
// happen outside it, so a stalled subscriber cannot block new
// subscribe/unsubscribe calls. Publishing to a channel with no
// subscribers is a no-op.
func (b *Broadcaster[T]) Publish(channel string, msg T) {
	b.mu.RLock()
	set := b.channels[channel]
	subs := make([]*Subscription[T], 0, len(set))
	for sub := range set {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.send(msg)
	}
}

// SubscriberCount returns the number of active subscriptions on the
// channel.
func (b *Broadcaster[T]) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.channels[channel])
}
