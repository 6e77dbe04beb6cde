// Package events implements a small typed publish/subscribe bus used to
// propagate session and cache changes across components. It replaces the
// kind of stringly-typed global event dispatch a browser UI would use with
// typed payload variants per event.
package events

import (
	"sync"

	"storefront/internal/models"
)

// Event is implemented by all broadcast payloads.
type Event interface {
	event()
}

// SessionEstablished is published after login or OTP verification, once all
// local session state has been committed.
type SessionEstablished struct {
	User models.User
}

// SessionEnded is published after logout or a failed token refresh, once all
// local session state has been cleared.
type SessionEnded struct{}

// ProfileUpdated is published after a confirmed profile write.
type ProfileUpdated struct {
	User models.User
}

// AddressAdded is published after a confirmed address creation.
type AddressAdded struct {
	Address models.Address
}

// AddressUpdated is published after a confirmed address update.
type AddressUpdated struct {
	Address models.Address
}

// AddressDeleted is published after a confirmed address deletion.
type AddressDeleted struct {
	AddressID string
}

func (SessionEstablished) event() {}
func (SessionEnded) event()       {}
func (ProfileUpdated) event()     {}
func (AddressAdded) event()       {}
func (AddressUpdated) event()     {}
func (AddressDeleted) event()     {}

type subscriber struct {
	id int
	fn func(Event)
}

// Bus delivers events to subscribers in subscription order. A panicking
// subscriber does not prevent delivery to the rest.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns an id usable with Unsubscribe.
func (b *Bus) Subscribe(fn func(Event)) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs = append(b.subs, subscriber{id: b.nextID, fn: fn})
	return b.nextID
}

// Unsubscribe removes the subscriber with the given id. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers e to every subscriber. Delivery happens outside the bus
// lock so subscribers may subscribe/unsubscribe from within a handler.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		deliver(s.fn, e)
	}
}

func deliver(fn func(Event), e Event) {
	defer func() {
		_ = recover()
	}()
	fn(e)
}
