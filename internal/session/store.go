// Package session owns the authenticated identity and the credential pair.
// It is the only writer of the identity stream everything else subscribes to.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ccawaisnadeem/storefront-go/internal/api"
	"github.com/ccawaisnadeem/storefront-go/internal/domain"
	"github.com/ccawaisnadeem/storefront-go/internal/notify"
	"github.com/ccawaisnadeem/storefront-go/internal/storage"
)

// ErrNoRefreshToken means there is nothing to refresh with. Distinct from a
// rejected refresh: it does not force a logout.
var ErrNoRefreshToken = errors.New("no refresh token stored")

// AuthClient is the slice of the API surface the store needs; *api.AuthAPI
// satisfies it.
type AuthClient interface {
	Login(ctx context.Context, email, password string) (*domain.User, domain.AuthTokens, error)
	Register(ctx context.Context, req api.RegisterRequest) (*domain.User, domain.AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.User, domain.AuthTokens, error)
}

// Store holds the current identity and tokens, mirrors them to durable
// storage, and broadcasts identity transitions. Invariant: a non-nil user
// always comes with a non-empty access token; logout and a rejected refresh
// clear both in one transition.
type Store struct {
	auth     AuthClient
	storage  storage.Store
	notifier *notify.Center

	mu      sync.RWMutex
	user    *domain.User
	tokens  domain.AuthTokens
	subs    map[int]chan *domain.User
	nextSub int

	// serializes refresh calls from direct callers; the transport-level
	// single-flight already collapses 401-driven ones
	refreshMu sync.Mutex
}

func NewStore(auth AuthClient, store storage.Store, notifier *notify.Center) *Store {
	s := &Store{
		auth:     auth,
		storage:  store,
		notifier: notifier,
		subs:     make(map[int]chan *domain.User),
	}
	s.restore()
	return s
}

// restore rebuilds in-memory state from durable storage on startup. A token
// without an identity (or the reverse) is inconsistent leftover state and is
// discarded wholesale.
func (s *Store) restore() {
	ctx := context.Background()

	access, errA := s.storage.Get(ctx, storage.KeyAccessToken)
	rawUser, errU := s.storage.Get(ctx, storage.KeyCurrentUser)
	refresh, _ := s.storage.Get(ctx, storage.KeyRefreshToken)

	if errA != nil || errU != nil {
		if errA == nil || errU == nil {
			s.clearStorage(ctx)
		}
		return
	}

	var user domain.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		log.Printf("session: dropping unreadable stored identity: %v", err)
		s.clearStorage(ctx)
		return
	}

	s.user = &user
	s.tokens = domain.AuthTokens{AccessToken: access, RefreshToken: refresh}
}

// Subscribe registers an identity listener. The current identity (possibly
// nil) is delivered immediately so late subscribers converge without a
// separate read. The cancel func must be called when done.
func (s *Store) Subscribe() (<-chan *domain.User, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan *domain.User, 8)
	ch <- s.user
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

func (s *Store) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, tokens, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.notifier.Error("Login failed", api.UserMessage(err))
		return nil, err
	}

	s.setAuthenticated(ctx, user, tokens)
	s.notifier.Success("Welcome back", user.Email)
	return user, nil
}

// Register creates an account. Customer registrations log the new user in;
// admin registrations do not (no auto-login for the back office).
func (s *Store) Register(ctx context.Context, req api.RegisterRequest) (*domain.User, error) {
	req.Role = domain.NormalizeRole(string(req.Role))

	user, tokens, err := s.auth.Register(ctx, req)
	if err != nil {
		s.notifier.Error("Registration failed", api.UserMessage(err))
		return nil, err
	}

	if req.Role == domain.RoleAdmin {
		return user, nil
	}

	s.setAuthenticated(ctx, user, tokens)
	s.notifier.Success("Account created", user.Email)
	return user, nil
}

// Refresh exchanges the stored refresh token for a new credential pair. A
// missing token short-circuits with ErrNoRefreshToken before any network
// call. A rejected token forces logout and reports ErrSessionExpired; network
// trouble does neither.
func (s *Store) Refresh(ctx context.Context) (domain.AuthTokens, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.RLock()
	refreshToken := s.tokens.RefreshToken
	s.mu.RUnlock()

	if refreshToken == "" {
		return domain.AuthTokens{}, ErrNoRefreshToken
	}

	user, tokens, err := s.auth.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, api.ErrInvalidCredentials) || errors.Is(err, api.ErrForbidden) {
			s.Logout(ctx)
			return domain.AuthTokens{}, fmt.Errorf("%w: refresh rejected", api.ErrSessionExpired)
		}
		return domain.AuthTokens{}, fmt.Errorf("refresh credentials: %w", err)
	}

	s.setAuthenticated(ctx, user, tokens)
	return tokens, nil
}

// CompleteOAuthCallback finishes an external-provider login: the callback URL
// carries the credential pair, and the identity is read out of the access
// token's claims.
func (s *Store) CompleteOAuthCallback(ctx context.Context, accessToken, refreshToken string) (*domain.User, error) {
	user, err := userFromToken(accessToken)
	if err != nil {
		return nil, fmt.Errorf("oauth callback: %w", err)
	}

	s.setAuthenticated(ctx, user, domain.AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken})
	s.notifier.Success("Welcome back", user.Email)
	return user, nil
}

// Logout clears memory and storage and emits a nil identity. Safe to call
// any number of times, with or without an active session.
func (s *Store) Logout(ctx context.Context) {
	s.clearStorage(ctx)

	s.mu.Lock()
	wasAuthenticated := s.user != nil
	s.user = nil
	s.tokens = domain.AuthTokens{}
	if wasAuthenticated {
		s.broadcast(nil)
	}
	s.mu.Unlock()
}

func (s *Store) CurrentUser() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.AccessToken
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.tokens.AccessToken != ""
}

func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.tokens.AccessToken != "" && s.user.Role == domain.RoleAdmin
}

// TokenExpiresAt reads the expiry claim out of the access token. The zero
// time means no token, or a token the client cannot decode; tokens are
// opaque, expiry is just an optimization hint.
func (s *Store) TokenExpiresAt() time.Time {
	s.mu.RLock()
	token := s.tokens.AccessToken
	s.mu.RUnlock()

	if token == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// setAuthenticated persists to durable storage first and emits after, so any
// subscriber reacting to the emission reads consistent storage.
func (s *Store) setAuthenticated(ctx context.Context, user *domain.User, tokens domain.AuthTokens) {
	rawUser, err := json.Marshal(user)
	if err != nil {
		log.Printf("session: marshal identity: %v", err)
		return
	}
	if err := s.storage.Set(ctx, storage.KeyCurrentUser, string(rawUser)); err != nil {
		log.Printf("session: persist identity: %v", err)
	}
	if err := s.storage.Set(ctx, storage.KeyAccessToken, tokens.AccessToken); err != nil {
		log.Printf("session: persist access token: %v", err)
	}
	if err := s.storage.Set(ctx, storage.KeyRefreshToken, tokens.RefreshToken); err != nil {
		log.Printf("session: persist refresh token: %v", err)
	}

	s.mu.Lock()
	s.user = user
	s.tokens = tokens
	s.broadcast(user)
	s.mu.Unlock()
}

func (s *Store) clearStorage(ctx context.Context) {
	err := s.storage.Delete(ctx, storage.KeyCurrentUser, storage.KeyAccessToken, storage.KeyRefreshToken)
	if err != nil {
		log.Printf("session: clear storage: %v", err)
	}
}

// broadcast requires s.mu held.
func (s *Store) broadcast(user *domain.User) {
	for _, sub := range s.subs {
		select {
		case sub <- user:
		default: // slow subscriber, drop
		}
	}
}

func userFromToken(accessToken string) (*domain.User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	user := &domain.User{}
	if sub, err := claims.GetSubject(); err == nil {
		_, _ = fmt.Sscanf(sub, "%d", &user.ID)
	}
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		user.DisplayName = name
	}
	if role, ok := claims["role"].(string); ok {
		user.Role = domain.NormalizeRole(role)
	} else {
		user.Role = domain.RoleCustomer
	}
	if user.Email == "" && user.ID == 0 {
		return nil, errors.New("access token carries no identity claims")
	}
	return user, nil
}
