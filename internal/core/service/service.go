package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/niksmo/parentshop/internal/core/port"
	"github.com/shopspring/decimal"
)

var _ port.ProductLister = (*Service)(nil)
var _ port.CartManager = (*Service)(nil)
var _ port.NewsletterSubscriber = (*Service)(nil)
var _ port.VisitorTracker = (*Service)(nil)
var _ port.ClientEventsSaver = (*Service)(nil)

const (
	newsletterFormName = "Newsletter Signup"
	newsletterSource   = "homepage"

	emptyCartMessage  = "Your cart is empty!"
	checkoutMessage   = "Redirecting to checkout..."
	newsletterMessage = "Thank you for subscribing to our newsletter!"
)

type CheckoutConfig struct {
	RedirectURL   string
	RedirectDelay time.Duration
}

func DefaultCheckoutConfig() CheckoutConfig {
	return CheckoutConfig{
		RedirectURL:   "checkout.html",
		RedirectDelay: time.Second,
	}
}

type Service struct {
	catalog       port.ProductCatalog
	sessions      port.SessionStore
	emitter       port.EventEmitter
	activity      port.SessionActivityReader
	eventsStorage port.ClientEventsStorage
	checkout      CheckoutConfig
}

func New(
	catalog port.ProductCatalog,
	sessions port.SessionStore,
	emitter port.EventEmitter,
	activity port.SessionActivityReader,
	eventsStorage port.ClientEventsStorage,
	checkout CheckoutConfig,
) Service {
	return Service{
		catalog,
		sessions,
		emitter,
		activity,
		eventsStorage,
		checkout,
	}
}

func (s Service) ListProducts(
	ctx context.Context, v domain.Visitor, fs domain.FilterState,
) ([]domain.Product, error) {
	const op = "Service.ListProducts"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ps := domain.ApplyFilter(s.catalog.ListAll(), fs)

	s.track(ctx, v, domain.EventProductsViewed, domain.Properties{
		"products_count": len(ps),
		"filter_applied": fs.Applied(),
		"category":       string(fs.Category),
		"price_range":    fs.PriceRange.String(),
		"sort":           string(fs.Sort),
	})
	return ps, nil
}

func (s Service) ViewProduct(
	ctx context.Context, v domain.Visitor, productID string,
) (domain.Product, error) {
	const op = "Service.ViewProduct"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	p, ok := s.catalog.Find(productID)
	if !ok {
		return domain.Product{}, fmt.Errorf("%s: %w", op, domain.ErrProductNotFound)
	}

	s.track(ctx, v, domain.EventProductClicked, domain.Properties{
		"product_id":   p.ID,
		"product_name": p.Name,
		"price":        amount(p.Price),
		"category":     string(p.Category),
	})
	return p, nil
}

func (s Service) AddToCart(
	ctx context.Context, v domain.Visitor, productID string,
) (domain.Cart, domain.Notification, error) {
	const op = "Service.AddToCart"

	if err := ctx.Err(); err != nil {
		return domain.Cart{}, domain.Notification{}, fmt.Errorf("%s: %w", op, err)
	}

	p, ok := s.catalog.Find(productID)
	if !ok {
		return domain.Cart{}, domain.Notification{},
			fmt.Errorf("%s: %w", op, domain.ErrProductNotFound)
	}

	sess, err := s.sessions.Update(ctx, v.SessionID, func(sess *domain.Session) error {
		sess.Cart.Add(p.ID, p.Name, p.Price)
		return nil
	})
	if err != nil {
		return domain.Cart{}, domain.Notification{}, fmt.Errorf("%s: %w", op, err)
	}

	s.emit(ctx, domain.TrackEvent(v, sess.UserID, domain.EventProductAdded, domain.Properties{
		"product_id":   p.ID,
		"product_name": p.Name,
		"price":        amount(p.Price),
		"cart_total":   amount(sess.Cart.Total()),
		"cart_size":    sess.Cart.Size(),
	}))

	n := domain.SuccessNotification(p.Name + " added to cart!")
	return sess.Cart, n, nil
}

func (s Service) RemoveFromCart(
	ctx context.Context, v domain.Visitor, productID string,
) (domain.Cart, error) {
	const op = "Service.RemoveFromCart"

	if err := ctx.Err(); err != nil {
		return domain.Cart{}, fmt.Errorf("%s: %w", op, err)
	}

	var (
		removed domain.CartLine
		ok      bool
	)
	sess, err := s.sessions.Update(ctx, v.SessionID, func(sess *domain.Session) error {
		removed, ok = sess.Cart.Remove(productID)
		return nil
	})
	if err != nil {
		return domain.Cart{}, fmt.Errorf("%s: %w", op, err)
	}

	if ok {
		s.emit(ctx, domain.TrackEvent(v, sess.UserID, domain.EventProductRemoved, domain.Properties{
			"product_id":   removed.ProductID,
			"product_name": removed.Name,
			"price":        amount(removed.Price),
			"cart_total":   amount(sess.Cart.Total()),
			"cart_size":    sess.Cart.Size(),
		}))
	}
	return sess.Cart, nil
}

func (s Service) OpenCart(
	ctx context.Context, v domain.Visitor,
) (domain.Cart, error) {
	const op = "Service.OpenCart"

	sess, err := s.session(ctx, v)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("%s: %w", op, err)
	}

	s.emit(ctx, domain.TrackEvent(v, sess.UserID, domain.EventCartOpened, domain.Properties{
		"cart_total": amount(sess.Cart.Total()),
		"cart_size":  sess.Cart.Size(),
	}))
	return sess.Cart, nil
}

// Checkout hands a non-empty cart over to the external checkout flow.
//
// On an empty cart the returned outcome still carries the notification
// to show, together with an error wrapping [domain.ErrEmptyCart].
func (s Service) Checkout(
	ctx context.Context, v domain.Visitor,
) (domain.CheckoutOutcome, error) {
	const op = "Service.Checkout"

	sess, err := s.session(ctx, v)
	if err != nil {
		return domain.CheckoutOutcome{}, fmt.Errorf("%s: %w", op, err)
	}

	if sess.Cart.Empty() {
		outcome := domain.CheckoutOutcome{
			Notification: domain.ErrorNotification(emptyCartMessage),
		}
		return outcome, fmt.Errorf("%s: %w", op, domain.ErrEmptyCart)
	}

	lines := sess.Cart.Lines()
	products := make([]map[string]any, len(lines))
	for i, l := range lines {
		products[i] = map[string]any{
			"product_id":   l.ProductID,
			"product_name": l.Name,
			"price":        amount(l.Price),
			"quantity":     l.Quantity,
		}
	}

	s.emit(ctx, domain.TrackEvent(v, sess.UserID, domain.EventCheckoutInitiated, domain.Properties{
		"cart_total": amount(sess.Cart.Total()),
		"cart_size":  sess.Cart.Size(),
		"products":   products,
	}))

	return domain.CheckoutOutcome{
		Notification: domain.SuccessNotification(checkoutMessage),
		Redirect: domain.Redirect{
			URL:   s.checkout.RedirectURL,
			After: s.checkout.RedirectDelay,
		},
	}, nil
}

func (s Service) SignupNewsletter(
	ctx context.Context, v domain.Visitor, email string,
) (domain.Notification, error) {
	const op = "Service.SignupNewsletter"

	if err := ctx.Err(); err != nil {
		return domain.Notification{}, fmt.Errorf("%s: %w", op, err)
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return domain.Notification{}, fmt.Errorf("%s: %w", op, domain.ErrEmptyEmail)
	}

	_, err := s.sessions.Update(ctx, v.SessionID, func(sess *domain.Session) error {
		sess.UserID = email
		return nil
	})
	if err != nil {
		return domain.Notification{}, fmt.Errorf("%s: %w", op, err)
	}

	s.emit(ctx, domain.IdentifyEvent(v, email, domain.Properties{
		"email":             email,
		"newsletter_signup": true,
		"signup_source":     newsletterSource,
		"signup_date":       time.Now().UTC().Format(time.RFC3339),
	}))

	s.emit(ctx, domain.TrackEvent(v, email, domain.EventFormSubmitted, domain.Properties{
		"form_name": newsletterFormName,
		"email":     email,
		"source":    newsletterSource,
	}))

	return domain.SuccessNotification(newsletterMessage), nil
}

// TrackPage reports a page view. Known pages get their default
// properties; props override them.
func (s Service) TrackPage(
	ctx context.Context, v domain.Visitor, name string, props domain.Properties,
) error {
	const op = "Service.TrackPage"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	merged := s.pageDefaults(name)
	for k, val := range props {
		merged[k] = val
	}

	evt := domain.PageEvent(v, s.userID(ctx, v), name, merged)
	if err := domain.ValidateEvent(evt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.emit(ctx, evt)
	return nil
}

func (s Service) pageDefaults(name string) domain.Properties {
	switch name {
	case domain.PageHomepage:
		return domain.Properties{
			"page_type": "landing",
			"user_type": "visitor",
		}
	case domain.PageShop:
		return domain.Properties{
			"page_type":      "product_listing",
			"total_products": s.catalog.Len(),
		}
	}
	return domain.Properties{}
}

// TrackScroll records the scroll position of the visitor's current page.
//
// A Page Scroll event is emitted on every new maximum of at least 25
// percent on the current page; the result reports whether it was.
func (s Service) TrackScroll(
	ctx context.Context, v domain.Visitor, percent int,
) (bool, error) {
	const op = "Service.TrackScroll"

	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	percent = min(max(percent, 0), 100)

	var depth string
	sess, err := s.sessions.Update(ctx, v.SessionID, func(sess *domain.Session) error {
		if sess.ScrollPage != v.Page.URL {
			sess.ScrollPage = v.Page.URL
			sess.MaxScroll = 0
		}
		if percent <= sess.MaxScroll {
			return nil
		}

		sess.MaxScroll = percent
		if d, ok := domain.ScrollDepth(percent); ok {
			depth = d
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if depth == "" {
		return false, nil
	}

	s.emit(ctx, domain.TrackEvent(v, sess.UserID, domain.EventPageScroll, domain.Properties{
		"depth": depth,
	}))
	return true, nil
}

// TrackEvent accepts an event reported by the storefront client.
//
// Only track and page events are accepted; the event is bound to the
// visitor's session before validation.
func (s Service) TrackEvent(
	ctx context.Context, v domain.Visitor, evt domain.Event,
) error {
	const op = "Service.TrackEvent"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if evt.Type != domain.EventTrack && evt.Type != domain.EventPage {
		return fmt.Errorf(
			"%s: %w: type %q is not accepted", op, domain.ErrInvalidEvent, evt.Type,
		)
	}

	evt.MessageID = ""
	evt.Timestamp = time.Time{}
	evt.AnonymousID = v.SessionID
	evt.UserID = s.userID(ctx, v)
	evt.Page = v.Page

	if err := domain.ValidateEvent(evt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.emit(ctx, evt)
	return nil
}

func (s Service) SessionActivity(
	ctx context.Context, v domain.Visitor,
) (domain.SessionActivity, error) {
	const op = "Service.SessionActivity"

	if err := ctx.Err(); err != nil {
		return domain.SessionActivity{}, fmt.Errorf("%s: %w", op, err)
	}

	if s.activity == nil {
		return domain.SessionActivity{},
			fmt.Errorf("%s: %w", op, domain.ErrActivityUnavailable)
	}

	a, err := s.activity.Activity(ctx, v.SessionID)
	if err != nil {
		return domain.SessionActivity{}, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

func (s Service) SaveEvents(ctx context.Context, evts []domain.Event) error {
	const op = "Service.SaveEvents"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := s.eventsStorage.StoreEvents(ctx, evts)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// session returns the visitor's session, or an empty one if the visitor
// has none yet.
func (s Service) session(
	ctx context.Context, v domain.Visitor,
) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	sess, err := s.sessions.Get(ctx, v.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.Session{ID: v.SessionID}, nil
		}
		return domain.Session{}, err
	}
	return sess, nil
}

func (s Service) userID(ctx context.Context, v domain.Visitor) string {
	sess, err := s.session(ctx, v)
	if err != nil {
		return ""
	}
	return sess.UserID
}

func (s Service) track(
	ctx context.Context, v domain.Visitor, name string, props domain.Properties,
) {
	s.emit(ctx, domain.TrackEvent(v, s.userID(ctx, v), name, props))
}

func (s Service) emit(ctx context.Context, evt domain.Event) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(ctx, evt)
}

func amount(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
