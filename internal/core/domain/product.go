package domain

import "github.com/shopspring/decimal"

type Category string

const (
	CategoryAll     Category = "all"
	CategoryBaby    Category = "baby"
	CategoryToddler Category = "toddler"
	CategoryParent  Category = "parent"
)

// ParseCategory maps a form value to a [Category].
//
// Empty input means [CategoryAll]. Any other value is returned as is,
// so an unknown category simply matches no product.
func ParseCategory(s string) Category {
	if s == "" {
		return CategoryAll
	}
	return Category(s)
}

func (c Category) Valid() bool {
	switch c {
	case CategoryBaby, CategoryToddler, CategoryParent:
		return true
	}
	return false
}

type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Category    Category
	Image       string
	Description string
}
