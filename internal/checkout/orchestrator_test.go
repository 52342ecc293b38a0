package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccawaisnadeem/storefront-go/internal/api"
	"github.com/ccawaisnadeem/storefront-go/internal/domain"
	"github.com/ccawaisnadeem/storefront-go/internal/notify"
)

type mockSessions struct{ user *domain.User }

func (m *mockSessions) CurrentUser() *domain.User { return m.user }

type mockCart struct {
	snap       domain.CartSnapshot
	cartID     int64
	clearOK    bool
	clearCalls int
}

func (m *mockCart) Snapshot() domain.CartSnapshot { return m.snap }
func (m *mockCart) CartID() int64                 { return m.cartID }
func (m *mockCart) ClearCart(context.Context) bool {
	m.clearCalls++
	return m.clearOK
}

type mockCatalog struct {
	products map[int64]*domain.Product
	err      error
}

func (m *mockCatalog) Get(_ context.Context, id int64) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, api.ErrNotFound
	}
	return p, nil
}

type mockCheckoutClient struct {
	lastCreate api.CreateSessionRequest
	session    *domain.CheckoutSession
	details    domain.CheckoutSessionDetails
	createErr  error
	getErr     error
}

func (m *mockCheckoutClient) CreateSession(_ context.Context, req api.CreateSessionRequest) (*domain.CheckoutSession, error) {
	m.lastCreate = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.session, nil
}

func (m *mockCheckoutClient) GetSession(_ context.Context, sessionID string) (domain.CheckoutSessionDetails, error) {
	if m.getErr != nil {
		return domain.CheckoutSessionDetails{}, m.getErr
	}
	return m.details, nil
}

type mockOrders struct {
	lastReq api.ConfirmPaymentRequest
	order   *domain.Order
	err     error
	calls   int
}

func (m *mockOrders) ConfirmPayment(_ context.Context, _ int64, req api.ConfirmPaymentRequest) (*domain.Order, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func snapshotWith(items ...domain.CartItem) domain.CartSnapshot {
	return domain.NewCartSnapshot(items, false, "")
}

func fixture() (*Orchestrator, *mockCart, *mockCheckoutClient, *mockOrders, *notify.Center) {
	cartState := &mockCart{
		snap: snapshotWith(domain.CartItem{
			ID: 101, CartID: 10, ProductID: 7, Quantity: 2,
			PriceAtAdd: decimal.RequireFromString("19.99"),
		}),
		cartID:  10,
		clearOK: true,
	}
	catalog := &mockCatalog{products: map[int64]*domain.Product{
		7: {ID: 7, Name: "Mug", Description: "A mug"},
	}}
	checkoutClient := &mockCheckoutClient{
		session: &domain.CheckoutSession{SessionID: "cs_123", URL: "https://pay.example.com/cs_123"},
		details: domain.CheckoutSessionDetails{
			CustomerEmail: "jo@example.com",
			TotalAmount:   decimal.RequireFromString("39.98"),
			PaymentStatus: "paid",
		},
	}
	orders := &mockOrders{order: &domain.Order{ID: 555, UserID: 1, SessionID: "cs_123"}}
	center := notify.NewCenter()

	o := NewOrchestrator(
		&mockSessions{user: &domain.User{ID: 1, Email: "jo@example.com", Role: domain.RoleCustomer}},
		cartState, catalog, checkoutClient, orders, center,
	)
	return o, cartState, checkoutClient, orders, center
}

func TestBegin_RequiresAuthentication(t *testing.T) {
	o, _, cc, _, _ := fixture()
	o.sessions = &mockSessions{user: nil}

	_, err := o.Begin(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, cc.lastCreate.LineItems, "no session request may be sent")
}

func TestBegin_RequiresNonEmptyCart(t *testing.T) {
	o, cartState, cc, _, _ := fixture()
	cartState.snap = domain.EmptyCartSnapshot()

	_, err := o.Begin(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, cc.lastCreate.CustomerEmail)
}

func TestBegin_BuildsManifestAndReturnsHostedURL(t *testing.T) {
	o, _, cc, _, _ := fixture()

	session, err := o.Begin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/cs_123", session.URL)

	req := cc.lastCreate
	assert.Equal(t, int64(1), req.UserID)
	assert.Equal(t, int64(10), req.CartID)
	assert.Equal(t, "jo@example.com", req.CustomerEmail)
	require.Len(t, req.LineItems, 1)
	assert.Equal(t, "Mug", req.LineItems[0].Name)
	assert.Equal(t, 2, req.LineItems[0].Quantity)
	assert.True(t, req.LineItems[0].Amount.Equal(decimal.RequireFromString("19.99")))
}

func TestBegin_ClampsPriceAndQuantity(t *testing.T) {
	o, cartState, cc, _, _ := fixture()
	cartState.snap = snapshotWith(domain.CartItem{
		ID: 102, CartID: 10, ProductID: 7, Quantity: 0, PriceAtAdd: decimal.Zero,
	})

	_, err := o.Begin(context.Background())
	require.NoError(t, err)

	require.Len(t, cc.lastCreate.LineItems, 1)
	line := cc.lastCreate.LineItems[0]
	assert.True(t, line.Amount.Equal(decimal.RequireFromString("0.01")), "price clamped to a strictly-positive minimum")
	assert.Equal(t, 1, line.Quantity, "quantity clamped to at least 1")
}

func TestBegin_CatalogFailureDegradesToGenericLabel(t *testing.T) {
	o, _, cc, _, _ := fixture()
	o.catalog = &mockCatalog{err: api.ErrNetworkUnavailable}

	_, err := o.Begin(context.Background())
	require.NoError(t, err, "a catalog hiccup must not block checkout")
	assert.Equal(t, fmt.Sprintf("Product %d", 7), cc.lastCreate.LineItems[0].Name)
}

func TestBegin_SessionCreationFailureAborts(t *testing.T) {
	o, _, cc, _, center := fixture()
	cc.createErr = api.ErrServer

	_, err := o.Begin(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrServer)
	assert.NotEmpty(t, center.Active(), "pre-redirect failures surface as a notification")
}

func TestCompleteReturn_ConfirmsAndClears(t *testing.T) {
	o, cartState, _, orders, _ := fixture()

	order, err := o.CompleteReturn(context.Background(), "cs_123")
	require.NoError(t, err)
	assert.Equal(t, int64(555), order.ID)
	assert.Equal(t, 1, cartState.clearCalls)
	assert.Equal(t, "cs_123", orders.lastReq.SessionID)
	assert.Equal(t, "jo@example.com", orders.lastReq.CustomerEmail)
	assert.True(t, orders.lastReq.TotalAmount.Equal(decimal.RequireFromString("39.98")))
}

func TestCompleteReturn_ClearFailureStaysSuccessful(t *testing.T) {
	o, cartState, _, _, center := fixture()
	cartState.clearOK = false

	order, err := o.CompleteReturn(context.Background(), "cs_123")
	require.NoError(t, err, "payment success takes priority over the failed clear")
	require.NotNil(t, order)

	for _, n := range center.Active() {
		assert.NotEqual(t, domain.NotificationError, n.Type,
			"no error notification may reach the user after a confirmed payment")
	}
}

func TestCompleteReturn_VerificationFailureIsDistinct(t *testing.T) {
	o, cartState, cc, orders, _ := fixture()
	cc.getErr = api.ErrServer

	_, err := o.CompleteReturn(context.Background(), "cs_123")
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Zero(t, orders.calls, "no confirm without a verified session")
	assert.Zero(t, cartState.clearCalls, "cart untouched when verification fails")
}

func TestCompleteReturn_ConfirmFailureIsVerificationFailure(t *testing.T) {
	o, cartState, _, orders, _ := fixture()
	orders.err = errors.New("backend down")

	_, err := o.CompleteReturn(context.Background(), "cs_123")
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Zero(t, cartState.clearCalls)
}
