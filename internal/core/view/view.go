// Package view projects storefront state into view models for the
// presentation layer.
package view

import (
	"net/url"

	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/shopspring/decimal"
)

const EmptyCartMessage = "Your cart is empty"

type Action struct {
	Method string
	Path   string
	Body   map[string]string
}

type ProductCard struct {
	ID          string
	Name        string
	Description string
	Image       string
	Category    string
	PriceLabel  string
	Add         Action
}

type CartLineView struct {
	ProductID     string
	Name          string
	Quantity      int
	SubtotalLabel string
	Remove        Action
}

type CartView struct {
	Lines        []CartLineView
	Count        int
	Total        string
	Empty        bool
	EmptyMessage string
}

func PriceLabel(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func ProductCards(ps []domain.Product) []ProductCard {
	cards := make([]ProductCard, len(ps))
	for i, p := range ps {
		cards[i] = ProductCard{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Image:       p.Image,
			Category:    string(p.Category),
			PriceLabel:  PriceLabel(p.Price),
			Add: Action{
				Method: "POST",
				Path:   "/v1/cart/items",
				Body:   map[string]string{"product_id": p.ID},
			},
		}
	}
	return cards
}

func CartSummary(c domain.Cart) CartView {
	lines := c.Lines()
	v := CartView{
		Lines: make([]CartLineView, len(lines)),
		Count: c.Size(),
		Total: c.Total().StringFixed(2),
		Empty: len(lines) == 0,
	}
	if v.Empty {
		v.EmptyMessage = EmptyCartMessage
	}

	for i, l := range lines {
		v.Lines[i] = CartLineView{
			ProductID:     l.ProductID,
			Name:          l.Name,
			Quantity:      l.Quantity,
			SubtotalLabel: PriceLabel(l.Subtotal()),
			Remove: Action{
				Method: "DELETE",
				Path:   "/v1/cart/items/" + url.PathEscape(l.ProductID),
			},
		}
	}
	return v
}
