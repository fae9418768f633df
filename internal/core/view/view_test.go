package view_test

import (
	"testing"

	"github.com/niksmo/parentshop/internal/core/catalog"
	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/niksmo/parentshop/internal/core/view"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductCards(t *testing.T) {
	all := catalog.MustLoad().ListAll()
	cards := view.ProductCards(all)

	require.Len(t, cards, len(all))
	for i := range all {
		assert.Equal(t, all[i].ID, cards[i].ID)
		assert.Equal(t, all[i].ID, cards[i].Add.Body["product_id"])
	}
	assert.Equal(t, "$45.00", cards[0].PriceLabel)
	assert.Equal(t, "POST", cards[0].Add.Method)
}

func TestCartSummary(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		v := view.CartSummary(domain.Cart{})
		assert.True(t, v.Empty)
		assert.Equal(t, view.EmptyCartMessage, v.EmptyMessage)
		assert.Equal(t, "0.00", v.Total)
		assert.Empty(t, v.Lines)
	})

	t.Run("Lines", func(t *testing.T) {
		var c domain.Cart
		c.Add("wooden-teething-ring", "Wooden Teething Ring", decimal.NewFromInt(18))
		c.Add("wooden-teething-ring", "Wooden Teething Ring", decimal.NewFromInt(18))
		c.Add("nursing-pillow", "Ergonomic Nursing Pillow", decimal.NewFromInt(65))

		v := view.CartSummary(c)
		assert.False(t, v.Empty)
		assert.Equal(t, 3, v.Count)
		assert.Equal(t, "101.00", v.Total)
		require.Len(t, v.Lines, 2)
		assert.Equal(t, "$36.00", v.Lines[0].SubtotalLabel)
		assert.Equal(t, 2, v.Lines[0].Quantity)
		assert.Equal(t, "/v1/cart/items/wooden-teething-ring", v.Lines[0].Remove.Path)
		assert.Equal(t, "DELETE", v.Lines[1].Remove.Method)
	})

	t.Run("EscapedRemovePath", func(t *testing.T) {
		var c domain.Cart
		c.Add("gift card/50", "Gift Card", decimal.NewFromInt(50))

		v := view.CartSummary(c)
		require.Len(t, v.Lines, 1)
		assert.Equal(t, "/v1/cart/items/gift%20card%2F50", v.Lines[0].Remove.Path)
	})
}
