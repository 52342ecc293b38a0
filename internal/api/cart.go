package api

import (
	"context"
	"fmt"

	"github.com/ccawaisnadeem/storefront-go/internal/domain"
)

type CartAPI struct {
	c *Client
}

func NewCartAPI(c *Client) *CartAPI { return &CartAPI{c: c} }

// GetByUser fetches the user's active cart. ErrNotFound means the user has
// never had one; callers create it on demand.
func (a *CartAPI) GetByUser(ctx context.Context, userID int64) (*domain.Cart, error) {
	var cart domain.Cart
	if err := a.c.get(ctx, fmt.Sprintf("/cart/user/%d", userID), &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

type createCartRequest struct {
	UserID int64 `json:"userId"`
}

func (a *CartAPI) Create(ctx context.Context, userID int64) (*domain.Cart, error) {
	var cart domain.Cart
	if err := a.c.post(ctx, "/cart", createCartRequest{UserID: userID}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

type addItemRequest struct {
	CartID    int64 `json:"cartId"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// AddItem creates a new line; the server captures priceAtAdd from the current
// catalog price.
func (a *CartAPI) AddItem(ctx context.Context, cartID, productID int64, quantity int) (*domain.CartItem, error) {
	var item domain.CartItem
	req := addItemRequest{CartID: cartID, ProductID: productID, Quantity: quantity}
	if err := a.c.post(ctx, "/cartitem", req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (a *CartAPI) UpdateItem(ctx context.Context, itemID int64, quantity int) (*domain.CartItem, error) {
	var item domain.CartItem
	if err := a.c.put(ctx, fmt.Sprintf("/cartitem/%d", itemID), updateItemRequest{Quantity: quantity}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (a *CartAPI) RemoveItem(ctx context.Context, itemID int64) error {
	return a.c.delete(ctx, fmt.Sprintf("/cartitem/%d", itemID))
}

// Clear empties the user's active cart server-side; the cart itself stays.
func (a *CartAPI) Clear(ctx context.Context, userID int64) error {
	return a.c.delete(ctx, fmt.Sprintf("/cart/clear/%d", userID))
}
