package api

import (
	"context"
	"fmt"

	"github.com/ccawaisnadeem/storefront-go/internal/domain"
)

type CheckoutAPI struct {
	c *Client
}

func NewCheckoutAPI(c *Client) *CheckoutAPI { return &CheckoutAPI{c: c} }

type CreateSessionRequest struct {
	UserID        int64                     `json:"userId"`
	CartID        int64                     `json:"cartId"`
	CustomerEmail string                    `json:"customerEmail"`
	LineItems     []domain.CheckoutLineItem `json:"lineItems"`
}

func (a *CheckoutAPI) CreateSession(ctx context.Context, req CreateSessionRequest) (*domain.CheckoutSession, error) {
	var session domain.CheckoutSession
	if err := a.c.post(ctx, "/StripeCheckout/create-checkout-session", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (a *CheckoutAPI) GetSession(ctx context.Context, sessionID string) (domain.CheckoutSessionDetails, error) {
	var details domain.CheckoutSessionDetails
	if err := a.c.get(ctx, fmt.Sprintf("/StripeCheckout/session/%s", sessionID), &details); err != nil {
		return domain.CheckoutSessionDetails{}, err
	}
	return details, nil
}
