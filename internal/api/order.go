package api

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ccawaisnadeem/storefront-go/internal/domain"
)

type OrderAPI struct {
	c *Client
}

func NewOrderAPI(c *Client) *OrderAPI { return &OrderAPI{c: c} }

func (a *OrderAPI) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	var orders []domain.Order
	if err := a.c.get(ctx, fmt.Sprintf("/order/user/%d", userID), &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (a *OrderAPI) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	var order domain.Order
	if err := a.c.get(ctx, fmt.Sprintf("/order/%d", orderID), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ConfirmPaymentRequest is the payload the success page sends after the
// provider redirects back. The backend creates the order if this session has
// not been confirmed before, otherwise returns the existing one.
type ConfirmPaymentRequest struct {
	SessionID     string          `json:"sessionId"`
	CustomerEmail string          `json:"customerEmail"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

func (a *OrderAPI) ConfirmPayment(ctx context.Context, userID int64, req ConfirmPaymentRequest) (*domain.Order, error) {
	var order domain.Order
	if err := a.c.post(ctx, fmt.Sprintf("/order/confirm-payment/%d", userID), req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
