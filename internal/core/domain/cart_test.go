package domain_test

import (
	"testing"

	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCartAdd(t *testing.T) {
	t.Run("SameProductAggregates", func(t *testing.T) {
		var c domain.Cart
		for range 5 {
			c.Add("baby-carrier", "Ergonomic Baby Carrier", price("89"))
		}

		assert.Equal(t, 5, c.Size())
		require.Len(t, c.Lines(), 1)
		assert.Equal(t, 5, c.Lines()[0].Quantity)
		assert.True(t, price("445").Equal(c.Total()))
	})

	t.Run("KeepsInsertionOrder", func(t *testing.T) {
		var c domain.Cart
		c.Add("nursing-tea", "Organic Nursing Tea", price("24"))
		c.Add("baby-mobile", "Wooden Crib Mobile", price("58"))
		c.Add("nursing-tea", "Organic Nursing Tea", price("24"))

		lines := c.Lines()
		require.Len(t, lines, 2)
		assert.Equal(t, "nursing-tea", lines[0].ProductID)
		assert.Equal(t, 2, lines[0].Quantity)
		assert.Equal(t, "baby-mobile", lines[1].ProductID)
	})

	t.Run("CapturesPriceAtFirstAdd", func(t *testing.T) {
		var c domain.Cart
		c.Add("nursing-tea", "Organic Nursing Tea", price("24"))
		l := c.Add("nursing-tea", "Renamed Tea", price("99"))

		assert.Equal(t, "Organic Nursing Tea", l.Name)
		assert.True(t, price("48").Equal(c.Total()))
	})
}

func TestCartRemove(t *testing.T) {
	t.Run("DeletesWholeLine", func(t *testing.T) {
		var c domain.Cart
		c.Add("baby-carrier", "Ergonomic Baby Carrier", price("89"))
		c.Add("baby-carrier", "Ergonomic Baby Carrier", price("89"))
		c.Add("nursing-tea", "Organic Nursing Tea", price("24"))

		l, ok := c.Remove("baby-carrier")
		require.True(t, ok)
		assert.Equal(t, 2, l.Quantity)

		_, ok = c.Line("baby-carrier")
		assert.False(t, ok)
		assert.Equal(t, 1, c.Size())
		assert.True(t, price("24").Equal(c.Total()))
	})

	t.Run("AbsentIsNoop", func(t *testing.T) {
		var c domain.Cart
		c.Add("nursing-tea", "Organic Nursing Tea", price("24"))

		_, ok := c.Remove("baby-carrier")
		assert.False(t, ok)
		assert.Equal(t, 1, c.Size())
	})

	t.Run("EmptyCart", func(t *testing.T) {
		var c domain.Cart
		_, ok := c.Remove("baby-carrier")
		assert.False(t, ok)
		assert.True(t, c.Empty())
		assert.True(t, decimal.Zero.Equal(c.Total()))
	})
}

func TestCartScenario(t *testing.T) {
	var c domain.Cart
	c.Add("wooden-teething-ring", "Wooden Teething Ring", price("18"))
	c.Add("nursing-pillow", "Ergonomic Nursing Pillow", price("65"))

	assert.True(t, price("83").Equal(c.Total()))
	assert.Equal(t, 2, c.Size())

	c.Remove("wooden-teething-ring")

	assert.True(t, price("65").Equal(c.Total()))
	assert.Equal(t, 1, c.Size())
}

func TestCartTotalAfterInterleaving(t *testing.T) {
	type op struct {
		add   bool
		id    string
		price string
	}
	ops := []op{
		{true, "a", "10.50"},
		{true, "b", "3"},
		{true, "a", "10.50"},
		{false, "b", ""},
		{true, "c", "0.25"},
		{true, "b", "3"},
		{false, "x", ""},
		{true, "c", "0.25"},
	}

	var c domain.Cart
	for _, o := range ops {
		if o.add {
			c.Add(o.id, o.id, price(o.price))
		} else {
			c.Remove(o.id)
		}

		want := decimal.Zero
		size := 0
		for _, l := range c.Lines() {
			want = want.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
			size += l.Quantity
		}
		assert.True(t, want.Equal(c.Total()))
		assert.Equal(t, size, c.Size())
	}
	assert.Equal(t, "24.5", c.Total().String())
}

func TestCartClone(t *testing.T) {
	var c domain.Cart
	c.Add("a", "A", price("1"))

	cp := c.Clone()
	cp.Add("a", "A", price("1"))
	cp.Add("b", "B", price("2"))

	assert.Equal(t, 1, c.Size())
	assert.Equal(t, 3, cp.Size())
	assert.Len(t, cp.Lines(), 2)
	assert.Len(t, c.Lines(), 1)
}
