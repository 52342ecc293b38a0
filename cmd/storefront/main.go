package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ccawaisnadeem/storefront-go/internal/api"
	"github.com/ccawaisnadeem/storefront-go/internal/app"
	"github.com/ccawaisnadeem/storefront-go/internal/config"
	"github.com/ccawaisnadeem/storefront-go/internal/domain"
	"github.com/ccawaisnadeem/storefront-go/internal/notify"
)

const usage = `Usage: storefront <command> [flags]

Commands:
  register   create an account and sign in
  login      sign in with email and password
  logout     sign out and clear the saved session
  whoami     show the signed-in user
  products   list the catalog
  cart       show the cart
  add        add a product to the cart
  update     change a cart line's quantity
  remove     remove a cart line
  clear      empty the cart
  checkout   start a hosted-payment checkout and wait for the return
  orders     list past orders
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	// surface notifications the way a toast area would
	events, cancel := a.Notifier.Subscribe()
	defer cancel()
	go func() {
		for ev := range events {
			if ev.Kind != notify.EventAdded {
				continue
			}
			n := ev.Notification
			fmt.Printf("[%s] %s: %s\n", n.Type, n.Title, n.Message)
		}
	}()

	ctx, cancelCtx := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancelCtx()

	if err := run(ctx, a, cfg, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", api.UserMessage(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, cfg *config.Config, command string, args []string) error {
	switch command {
	case "register":
		return cmdRegister(ctx, a, args)
	case "login":
		return cmdLogin(ctx, a, args)
	case "logout":
		a.Sessions.Logout(ctx)
		fmt.Println("Signed out.")
		return nil
	case "whoami":
		return cmdWhoami(a)
	case "products":
		return cmdProducts(ctx, a)
	case "cart":
		return cmdCart(a)
	case "add":
		return cmdAdd(ctx, a, args)
	case "update":
		return cmdUpdate(ctx, a, args)
	case "remove":
		return cmdRemove(ctx, a, args)
	case "clear":
		if !a.Cart.ClearCart(ctx) {
			return errors.New(a.Cart.Snapshot().Err)
		}
		fmt.Println("Cart cleared.")
		return nil
	case "checkout":
		return cmdCheckout(ctx, a, cfg)
	case "orders":
		return cmdOrders(ctx, a)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func cmdRegister(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	name := fs.String("name", "", "display name")
	role := fs.String("role", "customer", "account role")
	fs.Parse(args)

	user, err := a.Sessions.Register(ctx, api.RegisterRequest{
		Email:    *email,
		Password: *password,
		FullName: *name,
		Role:     domain.Role(*role),
	})
	if err != nil {
		return err
	}
	fmt.Printf("Registered %s (#%d).\n", user.Email, user.ID)
	if !a.Sessions.IsAuthenticated() {
		fmt.Println("Admin accounts must sign in explicitly.")
	}
	return nil
}

func cmdLogin(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	user, err := a.Sessions.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s.\n", user.Email)
	return nil
}

func cmdWhoami(a *app.App) error {
	user := a.Sessions.CurrentUser()
	if user == nil {
		fmt.Println("Not signed in.")
		return nil
	}
	fmt.Printf("%s <%s> role=%s", user.DisplayName, user.Email, user.Role)
	if exp := a.Sessions.TokenExpiresAt(); !exp.IsZero() {
		fmt.Printf(" token expires %s", exp.Format(time.RFC3339))
	}
	fmt.Println()
	return nil
}

func cmdProducts(ctx context.Context, a *app.App) error {
	products, err := a.Products.List(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		marker := " "
		if a.Cart.IsInCart(p.ID) {
			marker = "*"
		}
		fmt.Printf("%s #%-4d %-30s %8s  (stock %d)\n", marker, p.ID, p.Name, p.Price.StringFixed(2), p.Stock)
	}
	return nil
}

func cmdCart(a *app.App) error {
	snap := a.Cart.Snapshot()
	if snap.Err != "" {
		return errors.New(snap.Err)
	}
	if snap.IsEmpty() {
		fmt.Println("Cart is empty.")
		return nil
	}
	for _, it := range snap.Items {
		fmt.Printf("  line #%-4d product #%-4d qty %-3d @ %s\n", it.ID, it.ProductID, it.Quantity, it.PriceAtAdd.StringFixed(2))
	}
	fmt.Printf("  %d item(s), total %s\n", snap.TotalItems, snap.TotalPrice.StringFixed(2))
	return nil
}

func cmdAdd(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	productID := fs.Int64("product", 0, "product id")
	qty := fs.Int("qty", 1, "quantity")
	fs.Parse(args)

	product, err := a.Products.Get(ctx, *productID)
	if err != nil {
		return err
	}
	if !a.Cart.AddToCart(ctx, *product, *qty) {
		return errors.New(a.Cart.Snapshot().Err)
	}
	fmt.Printf("Added %s.\n", product.Name)
	return cmdCart(a)
}

func cmdUpdate(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	itemID := fs.Int64("item", 0, "cart line id")
	qty := fs.Int("qty", 1, "new quantity, 0 removes the line")
	fs.Parse(args)

	if !a.Cart.UpdateItemQuantity(ctx, *itemID, *qty) {
		return errors.New(a.Cart.Snapshot().Err)
	}
	return cmdCart(a)
}

func cmdRemove(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	itemID := fs.Int64("item", 0, "cart line id")
	fs.Parse(args)

	if !a.Cart.RemoveItem(ctx, *itemID) {
		return errors.New(a.Cart.Snapshot().Err)
	}
	return cmdCart(a)
}

// cmdCheckout creates the hosted-payment session, prints the URL for the
// customer to open, and runs a local return listener in place of the web app's
// success route. The order is confirmed when the provider redirects back.
func cmdCheckout(ctx context.Context, a *app.App, cfg *config.Config) error {
	session, err := a.Checkout.Begin(ctx)
	if err != nil {
		return err
	}

	front, err := url.Parse(cfg.FrontendBaseURL)
	if err != nil {
		return fmt.Errorf("parse frontend base url: %w", err)
	}

	returned := make(chan string, 1)
	r := chi.NewRouter()
	r.Get("/checkout/success", func(w http.ResponseWriter, req *http.Request) {
		id := req.URL.Query().Get("session_id")
		fmt.Fprintln(w, "Payment received, you can close this tab.")
		select {
		case returned <- id:
		default:
		}
	})
	r.Get("/checkout/cancel", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprintln(w, "Checkout cancelled.")
		select {
		case returned <- "":
		default:
		}
	})

	srv := &http.Server{Addr: front.Host, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Return listener failed: %v", err)
		}
	}()
	defer srv.Shutdown(context.Background())

	fmt.Printf("Open the payment page:\n\n  %s\n\nWaiting for the return redirect on %s ...\n", session.URL, front.Host)

	var sessionID string
	select {
	case sessionID = <-returned:
	case <-ctx.Done():
		return ctx.Err()
	}
	if sessionID == "" {
		fmt.Println("Checkout cancelled, cart left as-is.")
		return nil
	}

	order, err := a.Checkout.CompleteReturn(ctx, sessionID)
	if err != nil {
		return err
	}
	fmt.Printf("Order #%d confirmed, total %s.\n", order.ID, order.TotalAmount.StringFixed(2))
	return nil
}

func cmdOrders(ctx context.Context, a *app.App) error {
	user := a.Sessions.CurrentUser()
	if user == nil {
		return errors.New("sign in first")
	}
	orders, err := a.Orders.ListByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Println("No orders yet.")
		return nil
	}
	for _, o := range orders {
		fmt.Printf("  order #%-4d %-10s total %8s  %s\n", o.ID, o.Status, o.TotalAmount.StringFixed(2), o.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
