package domain_test

import (
	"testing"

	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestValidateEvent(t *testing.T) {
	v := domain.Visitor{SessionID: "sid"}

	t.Run("ValidTrack", func(t *testing.T) {
		evt := domain.TrackEvent(v, "", domain.EventCartOpened, domain.Properties{
			"cart_total": 0.0,
			"cart_size":  0,
			"page_url":   "http://shop/",
		})
		assert.NoError(t, domain.ValidateEvent(evt))
	})

	t.Run("MissingRequired", func(t *testing.T) {
		evt := domain.TrackEvent(v, "", domain.EventCartOpened, domain.Properties{
			"cart_total": 0.0,
		})
		assert.ErrorIs(t, domain.ValidateEvent(evt), domain.ErrInvalidEvent)
	})

	t.Run("UnknownProperty", func(t *testing.T) {
		evt := domain.TrackEvent(v, "", domain.EventPageScroll, domain.Properties{
			"depth": "25%",
			"extra": true,
		})
		assert.ErrorIs(t, domain.ValidateEvent(evt), domain.ErrInvalidEvent)
	})

	t.Run("UnknownName", func(t *testing.T) {
		evt := domain.TrackEvent(v, "", "Coupon Applied", nil)
		assert.ErrorIs(t, domain.ValidateEvent(evt), domain.ErrInvalidEvent)
	})

	t.Run("Page", func(t *testing.T) {
		evt := domain.PageEvent(v, "", domain.PageShop, domain.Properties{
			"page_type": "product_listing",
		})
		assert.NoError(t, domain.ValidateEvent(evt))

		evt = domain.PageEvent(v, "", "Checkout", nil)
		assert.ErrorIs(t, domain.ValidateEvent(evt), domain.ErrInvalidEvent)
	})

	t.Run("Identify", func(t *testing.T) {
		evt := domain.IdentifyEvent(v, "a@b.c", domain.Properties{"anything": 1})
		assert.NoError(t, domain.ValidateEvent(evt))

		evt = domain.IdentifyEvent(v, " ", nil)
		assert.ErrorIs(t, domain.ValidateEvent(evt), domain.ErrInvalidEvent)
	})

	t.Run("UnknownType", func(t *testing.T) {
		evt := domain.Event{Type: "alias", Name: "x"}
		assert.ErrorIs(t, domain.ValidateEvent(evt), domain.ErrInvalidEvent)
	})
}

func TestScrollDepth(t *testing.T) {
	tests := []struct {
		percent int
		want    string
		ok      bool
	}{
		{0, "", false},
		{24, "", false},
		{25, "25%", true},
		{49, "25%", true},
		{50, "50%", true},
		{74, "50%", true},
		{75, "75%", true},
		{100, "75%", true},
	}
	for _, tt := range tests {
		got, ok := domain.ScrollDepth(tt.percent)
		assert.Equal(t, tt.want, got, "percent %d", tt.percent)
		assert.Equal(t, tt.ok, ok, "percent %d", tt.percent)
	}
}
