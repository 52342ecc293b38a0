package devserver

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ccawaisnadeem/storefront-go/internal/domain"
)

var (
	errNotFound   = errors.New("not found")
	errEmailTaken = errors.New("email already registered")
)

type account struct {
	user         domain.User
	passwordHash []byte
}

type checkoutSession struct {
	ID            string
	UserID        int64
	CartID        int64
	CustomerEmail string
	TotalAmount   decimal.Decimal
	PaymentStatus string
}

// memoryStore backs the dev server: every resource the REST contract exposes,
// held in maps under one lock. Good enough for local runs and tests; nothing
// survives a restart, which is the point.
type memoryStore struct {
	mu sync.RWMutex

	nextUserID  int64
	nextCartID  int64
	nextItemID  int64
	nextOrderID int64

	accounts      map[int64]*account
	emails        map[string]int64 // email -> user id
	refreshTokens map[string]int64 // refresh token -> user id

	products map[int64]domain.Product
	carts    map[int64]*domain.Cart // cart id -> cart
	userCart map[int64]int64        // user id -> active cart id

	sessions map[string]*checkoutSession
	orders   map[string]*domain.Order // session id -> order (idempotency key)
}

func newMemoryStore() *memoryStore {
	s := &memoryStore{
		accounts:      make(map[int64]*account),
		emails:        make(map[string]int64),
		refreshTokens: make(map[string]int64),
		products:      make(map[int64]domain.Product),
		carts:         make(map[int64]*domain.Cart),
		userCart:      make(map[int64]int64),
		sessions:      make(map[string]*checkoutSession),
		orders:        make(map[string]*domain.Order),
	}
	s.seedProducts()
	return s
}

func (s *memoryStore) seedProducts() {
	seed := []domain.Product{
		{Name: "Classic Mug", Description: "Ceramic mug, 350ml", Price: decimal.RequireFromString("19.99"), Stock: 120},
		{Name: "Dinner Plate", Description: "Porcelain plate, 27cm", Price: decimal.RequireFromString("5.50"), Stock: 300},
		{Name: "Chef Knife", Description: "Stainless steel, 20cm blade", Price: decimal.RequireFromString("49.00"), Stock: 45},
		{Name: "Cutting Board", Description: "Bamboo, 40x30cm", Price: decimal.RequireFromString("24.95"), Stock: 80},
		{Name: "French Press", Description: "Borosilicate glass, 1l", Price: decimal.RequireFromString("34.90"), Stock: 60},
		{Name: "Tea Towel Set", Description: "Cotton, pack of 3", Price: decimal.RequireFromString("12.00"), Stock: 200},
	}
	for i, p := range seed {
		p.ID = int64(i + 1)
		s.products[p.ID] = p
	}
}

func (s *memoryStore) createAccount(email string, hash []byte, name string, role domain.Role) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[email]; taken {
		return nil, errEmailTaken
	}
	s.nextUserID++
	acct := &account{
		user: domain.User{
			ID:          s.nextUserID,
			Email:       email,
			DisplayName: name,
			Role:        role,
			CreatedAt:   time.Now().UTC(),
		},
		passwordHash: hash,
	}
	s.accounts[acct.user.ID] = acct
	s.emails[email] = acct.user.ID
	u := acct.user
	return &u, nil
}

func (s *memoryStore) accountByEmail(email string) (*account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, errNotFound
	}
	return s.accounts[id], nil
}

func (s *memoryStore) userByID(id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return nil, errNotFound
	}
	u := acct.user
	return &u, nil
}

func (s *memoryStore) saveRefreshToken(token string, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens[token] = userID
}

// redeemRefreshToken consumes the token: refresh rotates the pair, an old
// token cannot be replayed.
func (s *memoryStore) redeemRefreshToken(token string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.refreshTokens[token]
	if ok {
		delete(s.refreshTokens, token)
	}
	return userID, ok
}

func (s *memoryStore) listProducts() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.products))
	for i := int64(1); i <= int64(len(s.products)); i++ {
		if p, ok := s.products[i]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *memoryStore) product(id int64) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, errNotFound
	}
	return p, nil
}

func (s *memoryStore) cartForUser(userID int64) (*domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cartID, ok := s.userCart[userID]
	if !ok {
		return nil, errNotFound
	}
	return s.cloneCart(s.carts[cartID]), nil
}

func (s *memoryStore) createCart(userID int64) *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cartID, ok := s.userCart[userID]; ok {
		return s.cloneCart(s.carts[cartID])
	}
	s.nextCartID++
	cart := &domain.Cart{ID: s.nextCartID, UserID: userID, IsActive: true}
	s.carts[cart.ID] = cart
	s.userCart[userID] = cart.ID
	return s.cloneCart(cart)
}

func (s *memoryStore) addItem(cartID, productID int64, quantity int) (*domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[cartID]
	if !ok {
		return nil, errNotFound
	}
	product, ok := s.products[productID]
	if !ok {
		return nil, errNotFound
	}

	// the server enforces one line per product too
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity += quantity
			item := cart.Items[i]
			return &item, nil
		}
	}

	s.nextItemID++
	item := domain.CartItem{
		ID:         s.nextItemID,
		CartID:     cartID,
		ProductID:  productID,
		Quantity:   quantity,
		PriceAtAdd: product.Price,
		CreatedAt:  time.Now().UTC(),
	}
	cart.Items = append(cart.Items, item)
	return &item, nil
}

func (s *memoryStore) updateItem(itemID int64, quantity int) (*domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cart := range s.carts {
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				cart.Items[i].Quantity = quantity
				item := cart.Items[i]
				return &item, nil
			}
		}
	}
	return nil, errNotFound
}

func (s *memoryStore) removeItem(itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cart := range s.carts {
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
				return nil
			}
		}
	}
	return errNotFound
}

// clearCart empties the user's cart but keeps the cart itself, mirroring the
// real backend's clear-not-delete semantics.
func (s *memoryStore) clearCart(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cartID, ok := s.userCart[userID]
	if !ok {
		return errNotFound
	}
	s.carts[cartID].Items = nil
	return nil
}

func (s *memoryStore) saveSession(session *checkoutSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

func (s *memoryStore) session(id string) (*checkoutSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, errNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *memoryStore) markSessionPaid(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return errNotFound
	}
	session.PaymentStatus = "paid"
	return nil
}

// confirmOrder creates the order for a session exactly once; later calls get
// the same order back.
func (s *memoryStore) confirmOrder(userID int64, sessionID string, email string, total decimal.Decimal) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.orders[sessionID]; ok {
		copied := *existing
		return &copied, nil
	}
	if _, ok := s.sessions[sessionID]; !ok {
		return nil, errNotFound
	}

	s.nextOrderID++
	order := &domain.Order{
		ID:          s.nextOrderID,
		UserID:      userID,
		SessionID:   sessionID,
		TotalAmount: total,
		Status:      domain.OrderStatusPaid,
		CreatedAt:   time.Now().UTC(),
	}

	// snapshot the cart lines into the order
	if cartID, ok := s.userCart[userID]; ok {
		for _, item := range s.carts[cartID].Items {
			order.Items = append(order.Items, domain.OrderItem{
				ID:        item.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.PriceAtAdd,
			})
		}
	}

	s.orders[sessionID] = order
	copied := *order
	return &copied, nil
}

func (s *memoryStore) ordersForUser(userID int64) []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Order
	for _, order := range s.orders {
		if order.UserID == userID {
			out = append(out, *order)
		}
	}
	return out
}

func (s *memoryStore) orderByID(orderID int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, order := range s.orders {
		if order.ID == orderID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, errNotFound
}

// cloneCart requires s.mu held (read or write).
func (s *memoryStore) cloneCart(cart *domain.Cart) *domain.Cart {
	copied := *cart
	copied.Items = append([]domain.CartItem(nil), cart.Items...)
	return &copied
}
