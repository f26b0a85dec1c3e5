// Package event provides a small typed publish/subscribe registry used to
// fan document changes and diagnostics out to host consumers.
//
// Delivery is synchronous and ordered: handlers run in subscription order in
// the publisher's goroutine, and events are observed in the order they are
// published. Handler errors and panics are forwarded to an error callback,
// never back to the publisher.
package event

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event wraps a payload with delivery metadata.
type Event[T any] struct {
	// ID uniquely identifies this event instance.
	ID string

	// Time is when the event was published.
	Time time.Time

	// Payload is the event data.
	Payload T
}

// Handler processes one event.
type Handler[T any] func(Event[T]) error

// Token identifies a subscription for later removal.
type Token uint64

// Registry dispatches events of one payload type.
//
// Thread-safety: all methods are safe for concurrent use. The subscriber
// list is snapshotted before delivery, so handlers may subscribe or
// unsubscribe during a publish without deadlocking.
type Registry[T any] struct {
	mu      sync.Mutex
	next    Token
	subs    []subscription[T]
	onError func(error)
}

type subscription[T any] struct {
	token   Token
	handler Handler[T]
}

// NewRegistry creates a registry. onError receives handler failures and may
// be nil to discard them.
func NewRegistry[T any](onError func(error)) *Registry[T] {
	return &Registry[T]{onError: onError}
}

// Subscribe registers a handler and returns a token for Unsubscribe.
func (r *Registry[T]) Subscribe(h Handler[T]) Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	r.subs = append(r.subs, subscription[T]{token: r.next, handler: h})
	return r.next
}

// Unsubscribe removes a handler. Unknown tokens are ignored.
func (r *Registry[T]) Unsubscribe(token Token) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, sub := range r.subs {
		if sub.token == token {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every current subscriber in order.
func (r *Registry[T]) Publish(payload T) {
	r.mu.Lock()
	snapshot := make([]subscription[T], len(r.subs))
	copy(snapshot, r.subs)
	onError := r.onError
	r.mu.Unlock()

	evt := Event[T]{
		ID:      uuid.New().String(),
		Time:    time.Now(),
		Payload: payload,
	}

	for _, sub := range snapshot {
		if err := deliver(sub.handler, evt); err != nil && onError != nil {
			onError(err)
		}
	}
}

// Len returns the number of active subscriptions.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// deliver invokes one handler, converting panics into errors.
func deliver[T any](h Handler[T], evt Event[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panic: %v", r)
		}
	}()
	return h(evt)
}
