package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type EventType string

const (
	EventTrack    EventType = "track"
	EventPage     EventType = "page"
	EventIdentify EventType = "identify"
)

// Track event names.
const (
	EventProductClicked    = "Product Clicked"
	EventProductsViewed    = "Products Viewed"
	EventProductAdded      = "Product Added to Cart"
	EventProductRemoved    = "Product Removed from Cart"
	EventCartOpened        = "Cart Opened"
	EventCheckoutInitiated = "Checkout Initiated"
	EventFormSubmitted     = "Form Submitted"
	EventPageScroll        = "Page Scroll"
)

// Page names.
const (
	PageHomepage = "Homepage"
	PageShop     = "Shop Page"
	PageHome     = "Home"
)

// Property keys filled in by the emitter for every event.
const (
	PropTimestamp = "timestamp"
	PropPageURL   = "page_url"
	PropPageTitle = "page_title"
)

// Properties maps property names to scalar or nested values.
type Properties map[string]any

func (p Properties) Clone() Properties {
	c := make(Properties, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// An Event is an outbound analytics notification.
//
// For [EventIdentify] Name holds the user key and Properties the traits.
type Event struct {
	MessageID   string
	Type        EventType
	Name        string
	AnonymousID string
	UserID      string
	Properties  Properties
	Page        PageContext
	Timestamp   time.Time
}

type eventSchema struct {
	required []string
	optional []string
	open     bool
}

func (s eventSchema) allows(key string) bool {
	return s.open ||
		slices.Contains(s.required, key) ||
		slices.Contains(s.optional, key)
}

var trackSchemas = map[string]eventSchema{
	EventProductClicked: {
		required: []string{"product_id", "product_name", "price", "category"},
	},
	EventProductsViewed: {
		required: []string{"products_count", "filter_applied"},
		optional: []string{"category", "price_range", "sort"},
	},
	EventProductAdded: {
		required: []string{"product_id", "product_name", "price", "cart_total", "cart_size"},
	},
	EventProductRemoved: {
		required: []string{"product_id", "product_name", "price", "cart_total", "cart_size"},
	},
	EventCartOpened: {
		required: []string{"cart_total", "cart_size"},
	},
	EventCheckoutInitiated: {
		required: []string{"cart_total", "cart_size", "products"},
	},
	EventFormSubmitted: {
		required: []string{"form_name"},
		optional: []string{"email", "source"},
	},
	EventPageScroll: {
		required: []string{"depth"},
	},
}

var pageSchemas = map[string]eventSchema{
	PageHomepage: {optional: []string{"page_type", "user_type"}},
	PageShop:     {optional: []string{"page_type", "total_products"}},
	PageHome:     {optional: []string{"title", "path", "url"}},
}

var identifySchema = eventSchema{open: true}

func isReservedProp(key string) bool {
	switch key {
	case PropTimestamp, PropPageURL, PropPageTitle:
		return true
	}
	return false
}

// ValidateEvent checks evt against the closed event schema.
//
// The returned error wraps [ErrInvalidEvent].
func ValidateEvent(evt Event) error {
	var (
		s  eventSchema
		ok bool
	)

	switch evt.Type {
	case EventTrack:
		s, ok = trackSchemas[evt.Name]
	case EventPage:
		s, ok = pageSchemas[evt.Name]
	case EventIdentify:
		s, ok = identifySchema, strings.TrimSpace(evt.Name) != ""
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, evt.Type)
	}
	if !ok {
		return fmt.Errorf(
			"%w: unknown %s event %q", ErrInvalidEvent, evt.Type, evt.Name,
		)
	}

	for _, k := range s.required {
		if _, ok := evt.Properties[k]; !ok {
			return fmt.Errorf(
				"%w: %q requires property %q", ErrInvalidEvent, evt.Name, k,
			)
		}
	}

	for k := range evt.Properties {
		if !isReservedProp(k) && !s.allows(k) {
			return fmt.Errorf(
				"%w: %q does not accept property %q", ErrInvalidEvent, evt.Name, k,
			)
		}
	}
	return nil
}

func TrackEvent(v Visitor, userID, name string, props Properties) Event {
	return Event{
		Type:        EventTrack,
		Name:        name,
		AnonymousID: v.SessionID,
		UserID:      userID,
		Properties:  props,
		Page:        v.Page,
	}
}

func PageEvent(v Visitor, userID, name string, props Properties) Event {
	return Event{
		Type:        EventPage,
		Name:        name,
		AnonymousID: v.SessionID,
		UserID:      userID,
		Properties:  props,
		Page:        v.Page,
	}
}

func IdentifyEvent(v Visitor, userKey string, traits Properties) Event {
	return Event{
		Type:        EventIdentify,
		Name:        userKey,
		AnonymousID: v.SessionID,
		UserID:      userKey,
		Properties:  traits,
		Page:        v.Page,
	}
}
