// Package catalog holds the static, read-only product catalog.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"

	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

var (
	ErrDuplicateID     = errors.New("duplicate product id")
	ErrInvalidCategory = errors.New("invalid category")
	ErrNegativePrice   = errors.New("negative price")
)

type (
	document struct {
		Products []product `yaml:"products"`
	}

	product struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Price       string `yaml:"price"`
		Category    string `yaml:"category"`
		Image       string `yaml:"image"`
		Description string `yaml:"description"`
	}
)

// A Store is the ordered product catalog.
type Store struct {
	products []domain.Product
	byID     map[string]int
}

// MustLoad returns the catalog compiled into the binary.
func MustLoad() Store {
	s, err := Parse(catalogYAML)
	if err != nil {
		panic(err) // develop mistake
	}
	return s
}

// Parse builds a [Store] from a YAML catalog document.
func Parse(data []byte) (Store, error) {
	const op = "catalog.Parse"

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Store{}, fmt.Errorf("%s: %w", op, err)
	}

	s := Store{
		products: make([]domain.Product, 0, len(doc.Products)),
		byID:     make(map[string]int, len(doc.Products)),
	}
	for _, v := range doc.Products {
		p, err := v.toDomain()
		if err != nil {
			return Store{}, fmt.Errorf("%s: product %q: %w", op, v.ID, err)
		}
		if _, ok := s.byID[p.ID]; ok {
			return Store{}, fmt.Errorf("%s: %w: %q", op, ErrDuplicateID, p.ID)
		}
		s.byID[p.ID] = len(s.products)
		s.products = append(s.products, p)
	}
	return s, nil
}

func (v product) toDomain() (domain.Product, error) {
	price, err := decimal.NewFromString(v.Price)
	if err != nil {
		return domain.Product{}, err
	}
	if price.IsNegative() {
		return domain.Product{}, ErrNegativePrice
	}

	category := domain.Category(v.Category)
	if !category.Valid() {
		return domain.Product{}, fmt.Errorf("%w: %q", ErrInvalidCategory, v.Category)
	}

	return domain.Product{
		ID:          v.ID,
		Name:        v.Name,
		Price:       price,
		Category:    category,
		Image:       v.Image,
		Description: v.Description,
	}, nil
}

// ListAll returns the whole catalog in definition order.
func (s Store) ListAll() []domain.Product {
	return slices.Clone(s.products)
}

func (s Store) Find(id string) (domain.Product, bool) {
	i, ok := s.byID[id]
	if !ok {
		return domain.Product{}, false
	}
	return s.products[i], true
}

func (s Store) Len() int {
	return len(s.products)
}
