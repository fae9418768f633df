package domain

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortKey string

const (
	SortFeatured        SortKey = "featured"
	SortPriceAscending  SortKey = "price-ascending"
	SortPriceDescending SortKey = "price-descending"
	SortNameAscending   SortKey = "name-ascending"
)

// ParseSortKey maps a form value to a [SortKey].
//
// The listing form values "price-low", "price-high" and "name" are
// accepted as aliases. Anything unrecognized falls back to [SortFeatured].
func ParseSortKey(s string) SortKey {
	switch s {
	case "price-ascending", "price-low":
		return SortPriceAscending
	case "price-descending", "price-high":
		return SortPriceDescending
	case "name-ascending", "name":
		return SortNameAscending
	}
	return SortFeatured
}

// A PriceRange is an inclusive price interval.
//
// A zero value PriceRange is "all": it retains every price.
type PriceRange struct {
	bounded bool
	min     decimal.Decimal
	max     decimal.Decimal
	open    bool
}

func AllPrices() PriceRange {
	return PriceRange{}
}

func ClosedPriceRange(lo, hi decimal.Decimal) PriceRange {
	return PriceRange{bounded: true, min: lo, max: hi}
}

func OpenPriceRange(lo decimal.Decimal) PriceRange {
	return PriceRange{bounded: true, min: lo, open: true}
}

// ParsePriceRange parses "all", "min-max" or "min+".
//
// The second result reports whether the input was well formed; a malformed
// range is returned as [AllPrices].
func ParsePriceRange(s string) (PriceRange, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "all" {
		return AllPrices(), true
	}

	loS, hiS, _ := strings.Cut(s, "-")
	lo, err := decimal.NewFromString(strings.TrimSuffix(loS, "+"))
	if err != nil {
		return AllPrices(), false
	}

	hiS = strings.TrimSuffix(hiS, "+")
	if hiS == "" {
		return OpenPriceRange(lo), true
	}

	hi, err := decimal.NewFromString(hiS)
	if err != nil {
		return AllPrices(), false
	}
	return ClosedPriceRange(lo, hi), true
}

func (r PriceRange) IsAll() bool {
	return !r.bounded
}

func (r PriceRange) Contains(price decimal.Decimal) bool {
	if !r.bounded {
		return true
	}
	if price.LessThan(r.min) {
		return false
	}
	return r.open || !price.GreaterThan(r.max)
}

func (r PriceRange) String() string {
	switch {
	case !r.bounded:
		return "all"
	case r.open:
		return r.min.String() + "+"
	default:
		return r.min.String() + "-" + r.max.String()
	}
}

type FilterState struct {
	Category   Category
	PriceRange PriceRange
	Sort       SortKey
}

func DefaultFilterState() FilterState {
	return FilterState{
		Category:   CategoryAll,
		PriceRange: AllPrices(),
		Sort:       SortFeatured,
	}
}

// Applied reports whether the category predicate narrows the listing.
func (fs FilterState) Applied() bool {
	return fs.Category != CategoryAll && fs.Category != ""
}

func (fs FilterState) retains(p Product) bool {
	if fs.Applied() && p.Category != fs.Category {
		return false
	}
	return fs.PriceRange.Contains(p.Price)
}

// ApplyFilter derives the display sequence from catalog.
//
// The catalog slice is never modified. All sorts are stable so products
// with equal keys keep their catalog order.
func ApplyFilter(catalog []Product, fs FilterState) []Product {
	out := make([]Product, 0, len(catalog))
	for _, p := range catalog {
		if fs.retains(p) {
			out = append(out, p)
		}
	}

	switch fs.Sort {
	case SortPriceAscending:
		slices.SortStableFunc(out, func(a, b Product) int {
			return a.Price.Cmp(b.Price)
		})
	case SortPriceDescending:
		slices.SortStableFunc(out, func(a, b Product) int {
			return b.Price.Cmp(a.Price)
		})
	case SortNameAscending:
		c := collate.New(language.English)
		slices.SortStableFunc(out, func(a, b Product) int {
			return c.CompareString(a.Name, b.Name)
		})
	}
	return out
}
