package events

import (
	"sync"

	"ssohub/internal/connection"
)

// SessionOp identifies the kind of change reported for an sso-session
// profile.
type SessionOp string

const (
	SessionAdded    SessionOp = "added"
	SessionModified SessionOp = "modified"
	SessionRemoved  SessionOp = "removed"
)

// SessionChange reports that an sso-session profile was added, modified, or
// removed in the external profile source. Changes are keyed by the profile's
// session name.
type SessionChange struct {
	Op      SessionOp
	Profile connection.Profile
}

// ProviderInvalidated reports that the token provider with the given ID must
// discard its credentials.
type ProviderInvalidated struct {
	ProviderID string
}

// ActiveConnectionChanged reports a change of the active connection.
// Connection is nil when no connection is active.
type ActiveConnectionChanged struct {
	Connection connection.Connection
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

type topic[T any] struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscriber[T]
}

func (t *topic[T]) subscribe(fn func(T)) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs = append(t.subs, subscriber[T]{id: id, fn: fn})
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, s := range t.subs {
			if s.id == id {
				t.subs = append(t.subs[:i], t.subs[i+1:]...)
				return
			}
		}
	}
}

// publish delivers ev to every subscriber registered at the time of the
// call, synchronously and in subscription order. The subscriber list is
// snapshotted first so handlers may publish or subscribe reentrantly.
func (t *topic[T]) publish(ev T) {
	t.mu.RLock()
	subs := make([]subscriber[T], len(t.subs))
	copy(subs, t.subs)
	t.mu.RUnlock()

	for _, s := range subs {
		s.fn(ev)
	}
}

// Bus is a typed publish/subscribe channel connecting the auth components.
// Delivery is ordered and synchronous within a publish call.
type Bus struct {
	sessions    topic[SessionChange]
	invalidated topic[ProviderInvalidated]
	active      topic[ActiveConnectionChanged]
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// SubscribeSessionChanges registers fn for session-changed notifications.
// The returned function removes the subscription.
func (b *Bus) SubscribeSessionChanges(fn func(SessionChange)) func() {
	return b.sessions.subscribe(fn)
}

// PublishSessionChange delivers a session-changed notification.
func (b *Bus) PublishSessionChange(ev SessionChange) {
	b.sessions.publish(ev)
}

// SubscribeProviderInvalidated registers fn for provider-invalidated
// notifications. The returned function removes the subscription.
func (b *Bus) SubscribeProviderInvalidated(fn func(ProviderInvalidated)) func() {
	return b.invalidated.subscribe(fn)
}

// PublishProviderInvalidated delivers a provider-invalidated notification.
func (b *Bus) PublishProviderInvalidated(ev ProviderInvalidated) {
	b.invalidated.publish(ev)
}

// SubscribeActiveConnection registers fn for active-connection-changed
// notifications. The returned function removes the subscription.
func (b *Bus) SubscribeActiveConnection(fn func(ActiveConnectionChanged)) func() {
	return b.active.subscribe(fn)
}

// PublishActiveConnection delivers an active-connection-changed
// notification.
func (b *Bus) PublishActiveConnection(ev ActiveConnectionChanged) {
	b.active.publish(ev)
}
