package port

import (
	"context"
	"sync"

	"github.com/niksmo/parentshop/internal/core/domain"
)

type (
	runnerContextWg interface {
		Run(context.Context, *sync.WaitGroup)
	}

	closer interface {
		Close()
	}
)

// Inbound ports.

type ProductLister interface {
	ListProducts(context.Context, domain.Visitor, domain.FilterState) ([]domain.Product, error)
	ViewProduct(context.Context, domain.Visitor, string) (domain.Product, error)
}

type CartManager interface {
	AddToCart(context.Context, domain.Visitor, string) (domain.Cart, domain.Notification, error)
	RemoveFromCart(context.Context, domain.Visitor, string) (domain.Cart, error)
	OpenCart(context.Context, domain.Visitor) (domain.Cart, error)
	Checkout(context.Context, domain.Visitor) (domain.CheckoutOutcome, error)
}

type NewsletterSubscriber interface {
	SignupNewsletter(context.Context, domain.Visitor, string) (domain.Notification, error)
}

type VisitorTracker interface {
	TrackPage(context.Context, domain.Visitor, string, domain.Properties) error
	TrackScroll(context.Context, domain.Visitor, int) (bool, error)
	TrackEvent(context.Context, domain.Visitor, domain.Event) error
	SessionActivity(context.Context, domain.Visitor) (domain.SessionActivity, error)
}

type ClientEventsSaver interface {
	SaveEvents(context.Context, []domain.Event) error
}

// Outbound ports.

type ProductCatalog interface {
	ListAll() []domain.Product
	Find(id string) (domain.Product, bool)
	Len() int
}

// A SessionStore holds visitor sessions.
//
// Update runs fn under the session lock; changes made by fn are kept
// only if fn returns nil. A missing session is created.
type SessionStore interface {
	Get(ctx context.Context, id string) (domain.Session, error)
	Update(ctx context.Context, id string, fn func(*domain.Session) error) (domain.Session, error)
}

// An EventEmitter never blocks the caller and never reports delivery
// failures.
type EventEmitter interface {
	Emit(context.Context, domain.Event)
}

// An AnalyticsSink is the external analytics collector.
type AnalyticsSink interface {
	Track(context.Context, domain.Event) error
	Page(context.Context, domain.Event) error
	Identify(context.Context, domain.Event) error
}

type SessionActivityReader interface {
	Activity(ctx context.Context, sessionID string) (domain.SessionActivity, error)
}

type ClientEventsStorage interface {
	StoreEvents(context.Context, []domain.Event) error
}

type ClientEventsConsumer interface {
	runnerContextWg
	closer
}

type SessionActivityProcessor interface {
	runnerContextWg
	closer
}
