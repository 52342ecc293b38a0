// Package cart keeps a local snapshot of the signed-in user's cart in step
// with the server. Every mutation round-trips and then reloads the full cart,
// so the snapshot is always server truth, never an optimistic guess.
package cart

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/ccawaisnadeem/storefront-go/internal/api"
	"github.com/ccawaisnadeem/storefront-go/internal/domain"
	"github.com/ccawaisnadeem/storefront-go/internal/notify"
)

const loginRequiredMsg = "please login to manage your cart"

// Client is the slice of the cart REST surface the synchronizer uses;
// *api.CartAPI satisfies it.
type Client interface {
	GetByUser(ctx context.Context, userID int64) (*domain.Cart, error)
	Create(ctx context.Context, userID int64) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID, productID int64, quantity int) (*domain.CartItem, error)
	UpdateItem(ctx context.Context, itemID int64, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, itemID int64) error
	Clear(ctx context.Context, userID int64) error
}

// Sessions is what the synchronizer needs from the session store.
type Sessions interface {
	CurrentUser() *domain.User
	Subscribe() (<-chan *domain.User, func())
}

// Synchronizer owns the cart snapshot. Mutations are serialized; readers get
// immutable snapshot copies. None of the mutating operations return an
// error: failures land in the snapshot's Err field and a notification, and
// the bool result says whether the mutation took.
type Synchronizer struct {
	client   Client
	sessions Sessions
	notifier *notify.Center

	// serializes mutations so reload-after-write cannot interleave with a
	// second write reading stale state
	opMu sync.Mutex

	mu      sync.RWMutex
	userID  int64
	cartID  int64
	snap    domain.CartSnapshot
	subs    map[int]chan domain.CartSnapshot
	nextSub int

	unsubscribe func()
	done        chan struct{}
}

func NewSynchronizer(client Client, sessions Sessions, notifier *notify.Center) *Synchronizer {
	s := &Synchronizer{
		client:   client,
		sessions: sessions,
		notifier: notifier,
		snap:     domain.EmptyCartSnapshot(),
		subs:     make(map[int]chan domain.CartSnapshot),
		done:     make(chan struct{}),
	}

	ids, cancel := sessions.Subscribe()
	s.unsubscribe = cancel
	go s.watchIdentity(ids)
	return s
}

// Close detaches from the identity stream and waits for the watcher to stop.
func (s *Synchronizer) Close() {
	s.unsubscribe()
	<-s.done
}

// watchIdentity reacts to login/logout. Login loads that user's cart; logout
// resets to empty locally with no network call.
func (s *Synchronizer) watchIdentity(ids <-chan *domain.User) {
	defer close(s.done)
	for user := range ids {
		if user == nil {
			s.reset()
			continue
		}
		s.mu.Lock()
		s.userID = user.ID
		s.cartID = 0
		s.mu.Unlock()
		if err := s.reload(context.Background()); err != nil {
			log.Printf("cart: initial load for user %d: %v", user.ID, err)
			s.publish(domain.NewCartSnapshot(nil, false, api.UserMessage(err)))
		}
	}
}

// Snapshot returns the current state; the returned copy is the caller's own.
func (s *Synchronizer) Snapshot() domain.CartSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Subscribe delivers the current snapshot immediately, then every change.
func (s *Synchronizer) Subscribe() (<-chan domain.CartSnapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan domain.CartSnapshot, 8)
	ch <- s.snap.Clone()
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
}

func (s *Synchronizer) IsEmpty() bool { return s.Snapshot().IsEmpty() }

func (s *Synchronizer) IsInCart(productID int64) bool {
	return s.Snapshot().ItemFor(productID) != nil
}

func (s *Synchronizer) CartItemFor(productID int64) *domain.CartItem {
	return s.Snapshot().ItemFor(productID)
}

// CartID exposes the cached server cart id; zero means none resolved yet.
func (s *Synchronizer) CartID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cartID
}

// AddToCart adds quantity of product. If the product already has a line item
// the quantities are merged via an update, never a duplicate line. Requires a
// signed-in user; anonymous calls fail locally without touching the network.
func (s *Synchronizer) AddToCart(ctx context.Context, product domain.Product, quantity int) bool {
	if quantity < 1 {
		quantity = 1
	}

	user := s.sessions.CurrentUser()
	if user == nil {
		s.setError(loginRequiredMsg)
		s.notifier.Warning("Login required", loginRequiredMsg)
		return false
	}

	if existing := s.Snapshot().ItemFor(product.ID); existing != nil {
		return s.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+quantity)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.setLoading()

	cartID, err := s.ensureCart(ctx, user.ID)
	if err != nil {
		s.fail("could not prepare your cart", err)
		return false
	}
	if _, err := s.client.AddItem(ctx, cartID, product.ID, quantity); err != nil {
		s.fail("could not add the item to your cart", err)
		return false
	}
	return s.settle(ctx)
}

// UpdateItemQuantity sets a line's quantity; zero or less removes the line,
// so update-to-zero and remove converge on the same state.
func (s *Synchronizer) UpdateItemQuantity(ctx context.Context, itemID int64, quantity int) bool {
	if quantity <= 0 {
		return s.RemoveItem(ctx, itemID)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.setLoading()

	if _, err := s.client.UpdateItem(ctx, itemID, quantity); err != nil {
		s.fail("could not update the item quantity", err)
		return false
	}
	return s.settle(ctx)
}

func (s *Synchronizer) RemoveItem(ctx context.Context, itemID int64) bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.setLoading()

	if err := s.client.RemoveItem(ctx, itemID); err != nil {
		s.fail("could not remove the item", err)
		return false
	}
	return s.settle(ctx)
}

// ClearCart empties the server cart and the snapshot. On failure the
// last-known-good snapshot stays; callers that already collected payment
// treat this as non-fatal.
func (s *Synchronizer) ClearCart(ctx context.Context) bool {
	user := s.sessions.CurrentUser()
	if user == nil {
		s.setError(loginRequiredMsg)
		return false
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.setLoading()

	if err := s.client.Clear(ctx, user.ID); err != nil {
		// no notification here: the main caller is the checkout return path,
		// where the payment already succeeded and must stay the headline
		log.Printf("cart: clear for user %d: %v", user.ID, err)
		s.setError("could not clear your cart: " + api.UserMessage(err))
		return false
	}

	s.mu.Lock()
	s.cartID = 0
	s.mu.Unlock()
	s.publish(domain.EmptyCartSnapshot())
	return true
}

// ensureCart resolves the server cart id, creating the cart when the user has
// never had one.
func (s *Synchronizer) ensureCart(ctx context.Context, userID int64) (int64, error) {
	s.mu.RLock()
	cached := s.cartID
	s.mu.RUnlock()
	if cached != 0 {
		return cached, nil
	}

	cart, err := s.client.GetByUser(ctx, userID)
	if errors.Is(err, api.ErrNotFound) {
		cart, err = s.client.Create(ctx, userID)
	}
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.cartID = cart.ID
	s.mu.Unlock()
	return cart.ID, nil
}

// settle is the reload-after-write step shared by every successful mutation.
func (s *Synchronizer) settle(ctx context.Context) bool {
	if err := s.reload(ctx); err != nil {
		s.fail("could not refresh your cart", err)
		return false
	}
	return true
}

// reload fetches the authoritative cart and replaces the snapshot with it.
func (s *Synchronizer) reload(ctx context.Context) error {
	s.mu.RLock()
	userID := s.userID
	s.mu.RUnlock()
	if userID == 0 {
		s.publish(domain.EmptyCartSnapshot())
		return nil
	}

	cart, err := s.client.GetByUser(ctx, userID)
	if errors.Is(err, api.ErrNotFound) {
		// user has no cart yet; that is just an empty snapshot
		s.publish(domain.EmptyCartSnapshot())
		return nil
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cartID = cart.ID
	s.mu.Unlock()
	s.publish(domain.NewCartSnapshot(cart.Items, false, ""))
	return nil
}

// reset is the logout path: empty snapshot, no network.
func (s *Synchronizer) reset() {
	s.mu.Lock()
	s.userID = 0
	s.cartID = 0
	s.mu.Unlock()
	s.publish(domain.EmptyCartSnapshot())
}

func (s *Synchronizer) setLoading() {
	s.mu.Lock()
	snap := s.snap.Clone()
	snap.Loading = true
	snap.Err = ""
	s.snap = snap
	s.broadcast(snap)
	s.mu.Unlock()
}

// setError flags an error without touching the item list.
func (s *Synchronizer) setError(msg string) {
	s.mu.Lock()
	snap := s.snap.Clone()
	snap.Loading = false
	snap.Err = msg
	s.snap = snap
	s.broadcast(snap)
	s.mu.Unlock()
}

// fail reports a mutation failure: loading cleared, retryable error message
// set, last-known-good items untouched.
func (s *Synchronizer) fail(what string, err error) {
	log.Printf("cart: %s: %v", what, err)
	s.setError(what + ": " + api.UserMessage(err))
	s.notifier.Error("Cart", what)
}

func (s *Synchronizer) publish(snap domain.CartSnapshot) {
	s.mu.Lock()
	s.snap = snap
	s.broadcast(snap)
	s.mu.Unlock()
}

// broadcast requires s.mu held.
func (s *Synchronizer) broadcast(snap domain.CartSnapshot) {
	for _, sub := range s.subs {
		select {
		case sub <- snap.Clone():
		default: // slow subscriber, drop
		}
	}
}
