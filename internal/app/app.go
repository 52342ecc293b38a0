// Package app wires the SDK together: storage, session store, authenticated
// transport, cart synchronizer and checkout orchestrator, all sharing one
// notification center.
package app

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/ccawaisnadeem/storefront-go/internal/api"
	"github.com/ccawaisnadeem/storefront-go/internal/authtransport"
	"github.com/ccawaisnadeem/storefront-go/internal/cart"
	"github.com/ccawaisnadeem/storefront-go/internal/checkout"
	"github.com/ccawaisnadeem/storefront-go/internal/config"
	"github.com/ccawaisnadeem/storefront-go/internal/notify"
	"github.com/ccawaisnadeem/storefront-go/internal/session"
	"github.com/ccawaisnadeem/storefront-go/internal/storage"
)

type App struct {
	Config   *config.Config
	Notifier *notify.Center
	Sessions *session.Store
	Cart     *cart.Synchronizer
	Checkout *checkout.Orchestrator
	Products *api.ProductAPI
	Orders   *api.OrderAPI

	redisClient *redis.Client
}

// New builds the full client stack against cfg.APIBaseURL.
//
// Two HTTP clients exist on purpose: the session store talks to the auth
// endpoints over a plain client, and everything else goes through the request
// authenticator, which in turn calls back into the session store to refresh.
// That breaks what would otherwise be a construction cycle.
func New(cfg *config.Config) (*App, error) {
	notifier := notify.NewCenter()

	store, redisClient, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}

	plainClient := api.NewClient(cfg.APIBaseURL, api.NewHTTPClient(nil))
	sessions := session.NewStore(api.NewAuthAPI(plainClient), store, notifier)

	authRT, err := authtransport.New(http.DefaultTransport, sessions, cfg.APIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("build request authenticator: %w", err)
	}
	authedClient := api.NewClient(cfg.APIBaseURL, api.NewHTTPClient(authRT))

	products := api.NewProductAPI(authedClient)
	orders := api.NewOrderAPI(authedClient)
	cartSync := cart.NewSynchronizer(api.NewCartAPI(authedClient), sessions, notifier)
	orchestrator := checkout.NewOrchestrator(
		sessions, cartSync, products, api.NewCheckoutAPI(authedClient), orders, notifier,
	)

	return &App{
		Config:      cfg,
		Notifier:    notifier,
		Sessions:    sessions,
		Cart:        cartSync,
		Checkout:    orchestrator,
		Products:    products,
		Orders:      orders,
		redisClient: redisClient,
	}, nil
}

func (a *App) Close() {
	a.Cart.Close()
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
}

func openStorage(cfg *config.Config) (storage.Store, *redis.Client, error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return storage.NewRedisStore(client, "storefront"), client, nil
	}
	if cfg.StatePath != "" {
		store, err := storage.NewFileStore(cfg.StatePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open state file: %w", err)
		}
		return store, nil, nil
	}
	return storage.NewMemoryStore(), nil, nil
}
