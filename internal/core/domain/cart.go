package domain

import (
	"slices"

	"github.com/shopspring/decimal"
)

// A CartLine is one aggregated product entry of a [Cart].
//
// Name and Price are captured when the product is first added
// and are never re-read from the catalog.
type CartLine struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// A Cart holds at most one line per product id in insertion order.
//
// The zero value is an empty cart ready to use.
type Cart struct {
	lines []CartLine
}

func (c *Cart) Add(productID, name string, price decimal.Decimal) CartLine {
	if i := c.index(productID); i != -1 {
		c.lines[i].Quantity++
		return c.lines[i]
	}

	l := CartLine{
		ProductID: productID,
		Name:      name,
		Price:     price,
		Quantity:  1,
	}
	c.lines = append(c.lines, l)
	return l
}

// Remove deletes the whole line of productID.
//
// It reports false and leaves the cart untouched if there is no such line.
func (c *Cart) Remove(productID string) (CartLine, bool) {
	i := c.index(productID)
	if i == -1 {
		return CartLine{}, false
	}
	l := c.lines[i]
	c.lines = slices.Delete(c.lines, i, i+1)
	return l, true
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Size is the number of items, not the number of lines.
func (c Cart) Size() int {
	var n int
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c Cart) Lines() []CartLine {
	return slices.Clone(c.lines)
}

func (c Cart) Line(productID string) (CartLine, bool) {
	if i := c.index(productID); i != -1 {
		return c.lines[i], true
	}
	return CartLine{}, false
}

func (c Cart) Empty() bool {
	return c.Size() == 0
}

// Clone returns a cart that shares no lines with c.
func (c Cart) Clone() Cart {
	return Cart{lines: slices.Clone(c.lines)}
}

func (c Cart) index(productID string) int {
	return slices.IndexFunc(c.lines, func(l CartLine) bool {
		return l.ProductID == productID
	})
}
