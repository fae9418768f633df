package catalog_test

import (
	"testing"

	"github.com/niksmo/parentshop/internal/core/catalog"
	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustLoad(t *testing.T) {
	var s catalog.Store
	require.NotPanics(t, func() {
		s = catalog.MustLoad()
	})

	all := s.ListAll()
	require.Len(t, all, 12)
	assert.Equal(t, 12, s.Len())
	assert.Equal(t, "organic-baby-blanket", all[0].ID)
	assert.Equal(t, "toddler-puzzle-set", all[11].ID)

	p, ok := s.Find("nursing-pillow")
	require.True(t, ok)
	assert.Equal(t, "Ergonomic Nursing Pillow", p.Name)
	assert.Equal(t, "65", p.Price.String())
	assert.Equal(t, domain.CategoryParent, p.Category)

	_, ok = s.Find("unknown")
	assert.False(t, ok)
}

func TestListAllReturnsCopy(t *testing.T) {
	s := catalog.MustLoad()
	all := s.ListAll()
	all[0].Name = "changed"

	p, _ := s.Find("organic-baby-blanket")
	assert.Equal(t, "Organic Cotton Baby Blanket", p.Name)
}

func TestParse(t *testing.T) {
	t.Run("DuplicateID", func(t *testing.T) {
		data := []byte(`
products:
  - {id: a, name: A, price: "1", category: baby}
  - {id: a, name: B, price: "2", category: baby}
`)
		_, err := catalog.Parse(data)
		require.Error(t, err)
		assert.ErrorIs(t, err, catalog.ErrDuplicateID)
	})

	t.Run("InvalidCategory", func(t *testing.T) {
		data := []byte(`
products:
  - {id: a, name: A, price: "1", category: teen}
`)
		_, err := catalog.Parse(data)
		assert.ErrorIs(t, err, catalog.ErrInvalidCategory)
	})

	t.Run("NegativePrice", func(t *testing.T) {
		data := []byte(`
products:
  - {id: a, name: A, price: "-1", category: baby}
`)
		_, err := catalog.Parse(data)
		assert.ErrorIs(t, err, catalog.ErrNegativePrice)
	})

	t.Run("BadPrice", func(t *testing.T) {
		data := []byte(`
products:
  - {id: a, name: A, price: "free", category: baby}
`)
		_, err := catalog.Parse(data)
		assert.Error(t, err)
	})
}
