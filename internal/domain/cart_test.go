package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewCartSnapshot_Totals(t *testing.T) {
	items := []CartItem{
		{ID: 1, ProductID: 7, Quantity: 2, PriceAtAdd: decimal.RequireFromString("19.99")},
		{ID: 2, ProductID: 9, Quantity: 1, PriceAtAdd: decimal.RequireFromString("5.50")},
	}

	snap := NewCartSnapshot(items, false, "")

	assert.Equal(t, 3, snap.TotalItems)
	assert.True(t, snap.TotalPrice.Equal(decimal.RequireFromString("45.48")),
		"expected 45.48, got %s", snap.TotalPrice)
	assert.False(t, snap.IsEmpty())
}

func TestEmptyCartSnapshot(t *testing.T) {
	snap := EmptyCartSnapshot()

	assert.True(t, snap.IsEmpty())
	assert.Equal(t, 0, snap.TotalItems)
	assert.True(t, snap.TotalPrice.IsZero())
	assert.Nil(t, snap.ItemFor(1))
}

func TestCartSnapshot_Clone_Independent(t *testing.T) {
	items := []CartItem{{ID: 1, ProductID: 7, Quantity: 1, PriceAtAdd: decimal.NewFromInt(10)}}
	snap := NewCartSnapshot(items, false, "")

	clone := snap.Clone()
	clone.Items[0].Quantity = 99

	assert.Equal(t, 1, snap.Items[0].Quantity)
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, NormalizeRole("admin"))
	assert.Equal(t, RoleAdmin, NormalizeRole(" Admin "))
	assert.Equal(t, RoleCustomer, NormalizeRole("customer"))
	assert.Equal(t, RoleCustomer, NormalizeRole("administrator"))
	assert.Equal(t, RoleCustomer, NormalizeRole(""))
}
