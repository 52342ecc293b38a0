// Package devserver is an in-memory implementation of the storefront REST
// contract. It exists so the SDK, the CLI and the integration tests have a
// real backend to talk to without standing up the production API.
package devserver

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ccawaisnadeem/storefront-go/internal/domain"
)

type Config struct {
	// JWTSecret signs access tokens; a fixed dev default applies when empty.
	JWTSecret []byte
	// AccessTokenTTL is deliberately short so the refresh path gets exercised
	// in normal local use.
	AccessTokenTTL time.Duration
	// FrontendBaseURL is where the fake hosted payment page redirects back to.
	FrontendBaseURL string
}

type Server struct {
	cfg   Config
	store *memoryStore
}

func New(cfg Config) *Server {
	if len(cfg.JWTSecret) == 0 {
		cfg.JWTSecret = []byte("storefront-dev-secret")
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.FrontendBaseURL == "" {
		cfg.FrontendBaseURL = "http://localhost:4300"
	}
	return &Server{cfg: cfg, store: newMemoryStore()}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Post("/refresh-token", s.handleRefresh)
	})

	r.Get("/product", s.handleListProducts)
	r.Get("/product/{productID}", s.handleGetProduct)

	// the fake provider page is public, like the real hosted page would be
	r.Get("/StripeCheckout/hosted/{sessionID}", s.handleHostedPage)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/cart/user/{userID}", s.handleGetCart)
		r.Post("/cart", s.handleCreateCart)
		r.Delete("/cart/clear/{userID}", s.handleClearCart)
		r.Post("/cartitem", s.handleAddItem)
		r.Put("/cartitem/{itemID}", s.handleUpdateItem)
		r.Delete("/cartitem/{itemID}", s.handleRemoveItem)

		r.Post("/StripeCheckout/create-checkout-session", s.handleCreateSession)
		r.Get("/StripeCheckout/session/{sessionID}", s.handleGetSession)

		r.Post("/order/confirm-payment/{userID}", s.handleConfirmPayment)
		r.Get("/order/user/{userID}", s.handleListOrders)
		r.Get("/order/{orderID}", s.handleGetOrder)
	})

	return r
}

type ctxKey int

const ctxKeyUserID ctxKey = 0

// requireAuth validates the bearer token and stashes the caller's user id in
// the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			respondMessage(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(header[len(prefix):], claims, func(t *jwt.Token) (any, error) {
			return s.cfg.JWTSecret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			respondMessage(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		sub, err := claims.GetSubject()
		if err != nil {
			respondMessage(w, http.StatusUnauthorized, "invalid token subject")
			return
		}
		userID, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			respondMessage(w, http.StatusUnauthorized, "invalid token subject")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerID(r *http.Request) int64 {
	if id, ok := r.Context().Value(ctxKeyUserID).(int64); ok {
		return id
	}
	return 0
}

// mustOwn guards resources addressed by user id: customers only reach their
// own, admins reach anyone's.
func (s *Server) mustOwn(w http.ResponseWriter, r *http.Request, userID int64) bool {
	caller := callerID(r)
	if caller == userID {
		return true
	}
	if user, err := s.store.userByID(caller); err == nil && user.Role == domain.RoleAdmin {
		return true
	}
	respondMessage(w, http.StatusForbidden, "not your resource")
	return false
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("devserver: encode response: %v", err)
	}
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

func respondValidation(w http.ResponseWriter, fields map[string][]string) {
	respondJSON(w, http.StatusBadRequest, map[string]any{"errors": fields})
}
