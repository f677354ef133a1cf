package events

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/certshop/internal/domain"
)

type Type string

const (
	CartUpdated       Type = "cart_updated"
	PurchaseCreated   Type = "purchase_created"
	DeliveryStarted   Type = "delivery_started"
	DeliverySettled   Type = "delivery_settled"
	CheckoutCompleted Type = "checkout_completed"
	ResendCompleted   Type = "resend_completed"
)

// Event is dispatched after a mutation has been committed to the session store.
type Event struct {
	Type       Type                   `json:"type"`
	SessionID  string                 `json:"session_id,omitempty"`
	PurchaseID string                 `json:"purchase_id,omitempty"`
	Purchase   *domain.PurchaseRecord `json:"purchase,omitempty"`
	Message    string                 `json:"message,omitempty"`
	At         time.Time              `json:"at"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, event Event)
}

type Subscriber func(ctx context.Context, event Event)

// Bus calls every subscriber synchronously, in subscription order.
type Bus struct {
	mu    sync.RWMutex
	next  int
	order []int
	subs  map[int]Subscriber
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]Subscriber)}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.subs[id] = fn
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

func (b *Bus) Dispatch(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.order))
	for _, id := range b.order {
		subs = append(subs, b.subs[id])
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(ctx, event)
	}
}

type sessionDispatcher struct {
	next      Dispatcher
	sessionID string
}

// WithSession stamps every event with the session it belongs to.
func WithSession(next Dispatcher, sessionID string) Dispatcher {
	return sessionDispatcher{next: next, sessionID: sessionID}
}

func (d sessionDispatcher) Dispatch(ctx context.Context, event Event) {
	event.SessionID = d.sessionID
	d.next.Dispatch(ctx, event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Dispatch(context.Context, Event) {}
