package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem mirrors the server-side cart line. An item with ID == 0 does not
// exist server-side yet. PriceAtAdd is captured when the line is created and
// never changes afterwards, even if the catalog price does.
type CartItem struct {
	ID         int64           `json:"id"`
	CartID     int64           `json:"cartId"`
	ProductID  int64           `json:"productId"`
	Quantity   int             `json:"quantity"`
	PriceAtAdd decimal.Decimal `json:"priceAtAdd"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Cart is the server-authoritative resource; the client only ever holds a
// read-through copy of it.
type Cart struct {
	ID       int64      `json:"id"`
	UserID   int64      `json:"userId"`
	IsActive bool       `json:"isActive"`
	Items    []CartItem `json:"cartItems"`
}

// CartSnapshot is the client's derived view of the cart. Totals are never
// mutated directly; NewCartSnapshot recomputes them from the item list after
// every change.
type CartSnapshot struct {
	Items      []CartItem
	TotalItems int
	TotalPrice decimal.Decimal
	Loading    bool
	Err        string
}

func NewCartSnapshot(items []CartItem, loading bool, errMsg string) CartSnapshot {
	total := 0
	price := decimal.Zero
	for _, it := range items {
		total += it.Quantity
		price = price.Add(it.PriceAtAdd.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return CartSnapshot{
		Items:      items,
		TotalItems: total,
		TotalPrice: price,
		Loading:    loading,
		Err:        errMsg,
	}
}

// EmptyCartSnapshot is the state an anonymous (or freshly logged-out) session
// observes.
func EmptyCartSnapshot() CartSnapshot {
	return NewCartSnapshot(nil, false, "")
}

func (s CartSnapshot) IsEmpty() bool {
	return len(s.Items) == 0
}

// ItemFor returns the line holding productID, or nil.
func (s CartSnapshot) ItemFor(productID int64) *CartItem {
	for i := range s.Items {
		if s.Items[i].ProductID == productID {
			return &s.Items[i]
		}
	}
	return nil
}

// Clone returns a copy whose item slice is independent of the receiver, so
// subscribers never observe a snapshot mutating under them.
func (s CartSnapshot) Clone() CartSnapshot {
	out := s
	if s.Items != nil {
		out.Items = make([]CartItem, len(s.Items))
		copy(out.Items, s.Items)
	}
	return out
}
