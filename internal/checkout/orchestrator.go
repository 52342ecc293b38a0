// Package checkout drives the hosted-payment flow: build a manifest from the
// cart snapshot, open a provider session, and reconcile when the provider
// redirects the customer back.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ccawaisnadeem/storefront-go/internal/api"
	"github.com/ccawaisnadeem/storefront-go/internal/domain"
	"github.com/ccawaisnadeem/storefront-go/internal/notify"
)

var (
	ErrNotAuthenticated = errors.New("login required for checkout")
	ErrEmptyCart        = errors.New("cart is empty")

	// ErrVerificationFailed covers every failure after the provider redirect:
	// the charge may have gone through, so the message must not claim it
	// failed.
	ErrVerificationFailed = errors.New("payment verification failed, contact support if charged")
)

// minAmount is the floor for a manifest line price.
var minAmount = decimal.RequireFromString("0.01")

type Cart interface {
	Snapshot() domain.CartSnapshot
	CartID() int64
	ClearCart(ctx context.Context) bool
}

type Sessions interface {
	CurrentUser() *domain.User
}

type Catalog interface {
	Get(ctx context.Context, id int64) (*domain.Product, error)
}

type CheckoutClient interface {
	CreateSession(ctx context.Context, req api.CreateSessionRequest) (*domain.CheckoutSession, error)
	GetSession(ctx context.Context, sessionID string) (domain.CheckoutSessionDetails, error)
}

type OrderClient interface {
	ConfirmPayment(ctx context.Context, userID int64, req api.ConfirmPaymentRequest) (*domain.Order, error)
}

type Orchestrator struct {
	sessions Sessions
	cart     Cart
	catalog  Catalog
	checkout CheckoutClient
	orders   OrderClient
	notifier *notify.Center
}

func NewOrchestrator(sessions Sessions, cart Cart, catalog Catalog, checkout CheckoutClient, orders OrderClient, notifier *notify.Center) *Orchestrator {
	return &Orchestrator{
		sessions: sessions,
		cart:     cart,
		catalog:  catalog,
		checkout: checkout,
		orders:   orders,
		notifier: notifier,
	}
}

// Begin validates locally, builds the line-item manifest and opens a hosted
// session. The returned session's URL is where the caller sends the customer;
// nothing else happens locally until the provider redirects back.
func (o *Orchestrator) Begin(ctx context.Context) (*domain.CheckoutSession, error) {
	user := o.sessions.CurrentUser()
	if user == nil {
		o.notifier.Warning("Checkout", "please login before checking out")
		return nil, ErrNotAuthenticated
	}

	snap := o.cart.Snapshot()
	if snap.IsEmpty() {
		o.notifier.Warning("Checkout", "your cart is empty")
		return nil, ErrEmptyCart
	}

	lineItems := o.buildManifest(ctx, snap.Items)

	session, err := o.checkout.CreateSession(ctx, api.CreateSessionRequest{
		UserID:        user.ID,
		CartID:        o.cart.CartID(),
		CustomerEmail: user.Email,
		LineItems:     lineItems,
	})
	if err != nil {
		o.notifier.Error("Checkout", api.UserMessage(err))
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return session, nil
}

// buildManifest resolves product names in parallel and clamps price and
// quantity. A product lookup failure degrades to a generic label; it never
// blocks the checkout.
func (o *Orchestrator) buildManifest(ctx context.Context, items []domain.CartItem) []domain.CheckoutLineItem {
	lineItems := make([]domain.CheckoutLineItem, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		amount := item.PriceAtAdd
		if amount.LessThan(minAmount) {
			amount = minAmount
		}
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		lineItems[i] = domain.CheckoutLineItem{
			Name:     fmt.Sprintf("Product %d", item.ProductID),
			Amount:   amount,
			Quantity: quantity,
		}

		wg.Add(1)
		go func(i int, productID int64) {
			defer wg.Done()
			product, err := o.catalog.Get(ctx, productID)
			if err != nil {
				log.Printf("checkout: resolve product %d: %v", productID, err)
				return
			}
			lineItems[i].Name = product.Name
			lineItems[i].Description = product.Description
		}(i, item.ProductID)
	}
	wg.Wait()

	return lineItems
}

// CompleteReturn runs when the provider redirects back with a session id:
// verify the session, confirm the payment (the backend creates the order
// idempotently), then clear the cart. A failed clear after a confirmed order
// is logged and swallowed: the customer still sees success, and the next
// cart load self-heals.
func (o *Orchestrator) CompleteReturn(ctx context.Context, sessionID string) (*domain.Order, error) {
	user := o.sessions.CurrentUser()
	if user == nil {
		return nil, ErrNotAuthenticated
	}

	details, err := o.checkout.GetSession(ctx, sessionID)
	if err != nil {
		o.notifier.Error("Payment verification", ErrVerificationFailed.Error())
		return nil, fmt.Errorf("%w: fetch session: %v", ErrVerificationFailed, err)
	}

	order, err := o.orders.ConfirmPayment(ctx, user.ID, api.ConfirmPaymentRequest{
		SessionID:     sessionID,
		CustomerEmail: details.CustomerEmail,
		TotalAmount:   details.TotalAmount,
	})
	if err != nil {
		o.notifier.Error("Payment verification", ErrVerificationFailed.Error())
		return nil, fmt.Errorf("%w: confirm payment: %v", ErrVerificationFailed, err)
	}

	if !o.cart.ClearCart(ctx) {
		log.Printf("checkout: cart clear failed after order %d was confirmed; leaving stale snapshot", order.ID)
	}

	o.notifier.Success("Payment confirmed", fmt.Sprintf("order #%d placed", order.ID))
	return order, nil
}
