package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccawaisnadeem/storefront-go/internal/api"
	"github.com/ccawaisnadeem/storefront-go/internal/domain"
	"github.com/ccawaisnadeem/storefront-go/internal/notify"
)

type mockSessions struct {
	mu   sync.Mutex
	user *domain.User
	ch   chan *domain.User
}

func newMockSessions(user *domain.User) *mockSessions {
	m := &mockSessions{user: user, ch: make(chan *domain.User, 8)}
	m.ch <- user
	return m
}

func (m *mockSessions) CurrentUser() *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

func (m *mockSessions) Subscribe() (<-chan *domain.User, func()) {
	var once sync.Once
	return m.ch, func() { once.Do(func() { close(m.ch) }) }
}

func (m *mockSessions) emit(user *domain.User) {
	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	m.ch <- user
}

// mockCartClient plays the server side: it owns the cart resource and
// captures priceAtAdd from its price list, like the backend does.
type mockCartClient struct {
	mu       sync.Mutex
	cart     *domain.Cart
	prices   map[int64]decimal.Decimal
	nextID   int64
	calls    int
	callsFor map[string]int
	errOn    map[string]error
}

func newMockCartClient() *mockCartClient {
	return &mockCartClient{
		prices:   map[int64]decimal.Decimal{7: decimal.RequireFromString("19.99"), 9: decimal.RequireFromString("5.50")},
		nextID:   100,
		callsFor: make(map[string]int),
		errOn:    make(map[string]error),
	}
}

func (m *mockCartClient) track(op string) error {
	m.calls++
	m.callsFor[op]++
	return m.errOn[op]
}

func (m *mockCartClient) GetByUser(_ context.Context, userID int64) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("get"); err != nil {
		return nil, err
	}
	if m.cart == nil {
		return nil, api.ErrNotFound
	}
	c := *m.cart
	c.Items = append([]domain.CartItem(nil), m.cart.Items...)
	return &c, nil
}

func (m *mockCartClient) Create(_ context.Context, userID int64) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("create"); err != nil {
		return nil, err
	}
	m.cart = &domain.Cart{ID: 10, UserID: userID, IsActive: true}
	return m.cart, nil
}

func (m *mockCartClient) AddItem(_ context.Context, cartID, productID int64, quantity int) (*domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("add"); err != nil {
		return nil, err
	}
	m.nextID++
	item := domain.CartItem{
		ID: m.nextID, CartID: cartID, ProductID: productID,
		Quantity: quantity, PriceAtAdd: m.prices[productID], CreatedAt: time.Now(),
	}
	m.cart.Items = append(m.cart.Items, item)
	return &item, nil
}

func (m *mockCartClient) UpdateItem(_ context.Context, itemID int64, quantity int) (*domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("update"); err != nil {
		return nil, err
	}
	for i := range m.cart.Items {
		if m.cart.Items[i].ID == itemID {
			m.cart.Items[i].Quantity = quantity
			return &m.cart.Items[i], nil
		}
	}
	return nil, api.ErrNotFound
}

func (m *mockCartClient) RemoveItem(_ context.Context, itemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("remove"); err != nil {
		return err
	}
	for i := range m.cart.Items {
		if m.cart.Items[i].ID == itemID {
			m.cart.Items = append(m.cart.Items[:i], m.cart.Items[i+1:]...)
			return nil
		}
	}
	return api.ErrNotFound
}

func (m *mockCartClient) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("clear"); err != nil {
		return err
	}
	if m.cart != nil {
		m.cart.Items = nil
	}
	return nil
}

func (m *mockCartClient) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func jo() *domain.User { return &domain.User{ID: 1, Email: "jo@example.com", Role: domain.RoleCustomer} }

func productSeven() domain.Product {
	return domain.Product{ID: 7, Name: "Mug", Price: decimal.RequireFromString("19.99")}
}

func newSync(t *testing.T, user *domain.User) (*Synchronizer, *mockCartClient, *mockSessions) {
	t.Helper()
	client := newMockCartClient()
	sessions := newMockSessions(user)
	s := NewSynchronizer(client, sessions, notify.NewCenter())
	t.Cleanup(s.Close)
	if user != nil {
		// wait for the initial identity-driven load to settle
		require.Eventually(t, func() bool { return client.totalCalls() > 0 }, time.Second, time.Millisecond)
	}
	return s, client, sessions
}

func TestAddToCart_AnonymousFailsWithoutNetwork(t *testing.T) {
	s, client, _ := newSync(t, nil)

	ok := s.AddToCart(context.Background(), productSeven(), 1)

	assert.False(t, ok)
	assert.Zero(t, client.totalCalls(), "no network call may be made")
	snap := s.Snapshot()
	assert.Contains(t, snap.Err, "please login")
	assert.True(t, snap.IsEmpty())
	assert.False(t, snap.Loading)
}

func TestAddToCart_CreatesCartOnFirstAdd(t *testing.T) {
	s, client, _ := newSync(t, jo())

	ok := s.AddToCart(context.Background(), productSeven(), 2)
	require.True(t, ok)

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.TotalItems)
	assert.True(t, snap.TotalPrice.Equal(decimal.RequireFromString("39.98")),
		"expected 39.98, got %s", snap.TotalPrice)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, int64(7), snap.Items[0].ProductID)
	assert.Equal(t, 1, client.callsFor["create"], "cart is created lazily on first add")
	assert.Equal(t, int64(10), s.CartID())
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Err)
}

func TestAddToCart_SameProductMergesQuantity(t *testing.T) {
	s, client, _ := newSync(t, jo())
	ctx := context.Background()

	require.True(t, s.AddToCart(ctx, productSeven(), 1))
	require.True(t, s.AddToCart(ctx, productSeven(), 1))

	snap := s.Snapshot()
	require.Len(t, snap.Items, 1, "never a duplicate line for the same product")
	assert.Equal(t, 2, snap.Items[0].Quantity)
	assert.Equal(t, 1, client.callsFor["add"])
	assert.Equal(t, 1, client.callsFor["update"])
}

func TestUpdateToZeroEqualsRemove(t *testing.T) {
	ctx := context.Background()

	s1, _, _ := newSync(t, jo())
	require.True(t, s1.AddToCart(ctx, productSeven(), 2))
	itemID := s1.Snapshot().Items[0].ID
	require.True(t, s1.UpdateItemQuantity(ctx, itemID, 0))

	s2, _, _ := newSync(t, jo())
	require.True(t, s2.AddToCart(ctx, productSeven(), 2))
	itemID2 := s2.Snapshot().Items[0].ID
	require.True(t, s2.RemoveItem(ctx, itemID2))

	a, b := s1.Snapshot(), s2.Snapshot()
	assert.Equal(t, a.TotalItems, b.TotalItems)
	assert.True(t, a.TotalPrice.Equal(b.TotalPrice))
	assert.Equal(t, len(a.Items), len(b.Items))
	assert.True(t, a.IsEmpty())
}

func TestMutationFailureKeepsLastKnownGoodSnapshot(t *testing.T) {
	s, client, _ := newSync(t, jo())
	ctx := context.Background()

	require.True(t, s.AddToCart(ctx, productSeven(), 2))
	before := s.Snapshot()

	client.mu.Lock()
	client.errOn["update"] = api.ErrNetworkUnavailable
	client.mu.Unlock()

	ok := s.UpdateItemQuantity(ctx, before.Items[0].ID, 5)
	assert.False(t, ok)

	after := s.Snapshot()
	assert.False(t, after.Loading, "loading must clear on settle")
	assert.NotEmpty(t, after.Err)
	assert.Equal(t, before.TotalItems, after.TotalItems, "items untouched on failure")
}

func TestClearCart_SuccessResetsCartID(t *testing.T) {
	s, _, _ := newSync(t, jo())
	ctx := context.Background()

	require.True(t, s.AddToCart(ctx, productSeven(), 1))
	require.NotZero(t, s.CartID())

	require.True(t, s.ClearCart(ctx))
	assert.Zero(t, s.CartID())
	assert.True(t, s.IsEmpty())
}

func TestClearCart_FailureLeavesPriorState(t *testing.T) {
	s, client, _ := newSync(t, jo())
	ctx := context.Background()

	require.True(t, s.AddToCart(ctx, productSeven(), 1))

	client.mu.Lock()
	client.errOn["clear"] = api.ErrServer
	client.mu.Unlock()

	ok := s.ClearCart(ctx)
	assert.False(t, ok)
	assert.False(t, s.IsEmpty(), "prior snapshot survives a failed clear")
	assert.NotZero(t, s.CartID())
}

func TestLogoutResetsSnapshotWithoutNetwork(t *testing.T) {
	s, client, sessions := newSync(t, jo())
	ctx := context.Background()

	require.True(t, s.AddToCart(ctx, productSeven(), 1))
	callsBefore := client.totalCalls()

	sessions.emit(nil)
	require.Eventually(t, func() bool { return s.IsEmpty() }, time.Second, time.Millisecond)
	assert.Equal(t, callsBefore, client.totalCalls(), "logout reset makes no network call")
}

func TestLoginLoadsExistingCart(t *testing.T) {
	client := newMockCartClient()
	client.cart = &domain.Cart{ID: 10, UserID: 1, IsActive: true, Items: []domain.CartItem{
		{ID: 101, CartID: 10, ProductID: 9, Quantity: 3, PriceAtAdd: decimal.RequireFromString("5.50")},
	}}
	sessions := newMockSessions(nil)
	s := NewSynchronizer(client, sessions, notify.NewCenter())
	t.Cleanup(s.Close)

	sessions.emit(jo())

	require.Eventually(t, func() bool { return !s.IsEmpty() }, time.Second, time.Millisecond)
	snap := s.Snapshot()
	assert.Equal(t, 3, snap.TotalItems)
	assert.True(t, s.IsInCart(9))
	assert.False(t, s.IsInCart(7))
	require.NotNil(t, s.CartItemFor(9))
	assert.Equal(t, int64(101), s.CartItemFor(9).ID)
}

func TestDerivedQueriesMakeNoNetworkCalls(t *testing.T) {
	s, client, _ := newSync(t, jo())
	require.True(t, s.AddToCart(context.Background(), productSeven(), 1))
	calls := client.totalCalls()

	_ = s.IsInCart(7)
	_ = s.CartItemFor(7)
	_ = s.IsEmpty()
	_ = s.Snapshot()

	assert.Equal(t, calls, client.totalCalls())
}

func TestSubscribeSeesLoadingCycle(t *testing.T) {
	s, _, _ := newSync(t, jo())

	snaps, cancel := s.Subscribe()
	defer cancel()
	<-snaps // replay of current state

	require.True(t, s.AddToCart(context.Background(), productSeven(), 1))

	sawLoading := false
	deadline := time.After(time.Second)
	for !sawLoading {
		select {
		case snap := <-snaps:
			if snap.Loading {
				sawLoading = true
			}
		case <-deadline:
			t.Fatal("never observed the loading state")
		}
	}

	var final domain.CartSnapshot
	final = s.Snapshot()
	assert.False(t, final.Loading)
	assert.Equal(t, 1, final.TotalItems)
}

func TestReloadFailureAfterWriteReportsError(t *testing.T) {
	s, client, _ := newSync(t, jo())
	ctx := context.Background()
	require.True(t, s.AddToCart(ctx, productSeven(), 1))

	client.mu.Lock()
	client.errOn["get"] = errors.New("connection reset")
	client.mu.Unlock()

	prodNine := domain.Product{ID: 9, Name: "Plate", Price: decimal.RequireFromString("5.50")}
	ok := s.AddToCart(ctx, prodNine, 1)
	assert.False(t, ok, "a write whose reload failed is reported as failed")
	assert.NotEmpty(t, s.Snapshot().Err)
}
