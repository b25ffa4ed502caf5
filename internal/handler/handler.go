package handler

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/user"
)

// PathPrefix is the mount point of the versioned API.
const PathPrefix = "/api/v1"

// Authenticator logs users in and verifies their tokens.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	Authenticate(ctx context.Context, header string) (*auth.Claims, error)
}

// Users manages accounts.
type Users interface {
	Register(ctx context.Context, in user.RegisterInput) (*user.User, error)
	Get(ctx context.Context, id string) (*user.User, error)
	List(ctx context.Context) ([]user.User, error)
	ChangeStatus(ctx context.Context, id string, status user.Status) (*user.User, error)
}

// Products manages the catalog.
type Products interface {
	Create(ctx context.Context, in product.Input) (*product.Product, error)
	List(ctx context.Context) ([]product.Product, error)
	Get(ctx context.Context, id string) (*product.Product, error)
}

// Carts manages the user's cart.
type Carts interface {
	AddToCart(ctx context.Context, userID, productID string, quantity int) (*cart.Cart, error)
	GetCart(ctx context.Context, userID string) (*cart.Cart, error)
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*cart.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*cart.Cart, error)
}

// Orders places orders and drives their lifecycle.
type Orders interface {
	PlaceOrder(ctx context.Context, userID string, d order.Details) (*order.Order, error)
	ListOrders(ctx context.Context, userID string) ([]order.Order, error)
	ListAllOrders(ctx context.Context, q order.Query) (*order.Page, error)
	UpdateStatus(ctx context.Context, orderID string, status order.Status) (*order.Order, error)
	Cancel(ctx context.Context, orderID, userID string) (*order.Order, error)
	Deliver(ctx context.Context, orderID, userID string) (*order.Order, error)
	Refund(ctx context.Context, orderID string) (*order.Order, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// MaxBodyBytes limits request bodies. Zero means 1 MiB.
	MaxBodyBytes int64
	// SecureCookies marks the refresh token cookie as Secure.
	SecureCookies bool
}

// Handler serves the REST API, delegating business logic to the domain
// services.
type Handler struct {
	auth     Authenticator
	users    Users
	products Products
	carts    Carts
	orders   Orders

	validate      *validator.Validate
	maxBodyBytes  int64
	secureCookies bool
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	authenticator Authenticator,
	users Users,
	products Products,
	carts Carts,
	orders Orders,
) *Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return &Handler{
		auth:          authenticator,
		users:         users,
		products:      products,
		carts:         carts,
		orders:        orders,
		validate:      newValidator(),
		maxBodyBytes:  cfg.MaxBodyBytes,
		secureCookies: cfg.SecureCookies,
	}
}

// Routes registers every endpoint under PathPrefix.
func (h *Handler) Routes() *http.ServeMux {
	const p = PathPrefix
	mux := http.NewServeMux()

	mux.HandleFunc("POST "+p+"/auth/login", h.Login)
	mux.HandleFunc("POST "+p+"/auth/refresh-token", h.RefreshToken)
	mux.Handle("POST "+p+"/auth/change-password", h.authorize(h.ChangePassword))

	mux.HandleFunc("POST "+p+"/users/register", h.Register)
	mux.Handle("GET "+p+"/users/me", h.authorize(h.Me))
	mux.Handle("GET "+p+"/users", h.authorize(h.ListUsers, user.RoleAdmin))
	mux.Handle("GET "+p+"/users/{id}", h.authorize(h.GetUser, user.RoleAdmin))
	mux.Handle("PATCH "+p+"/users/{id}/status", h.authorize(h.ChangeUserStatus, user.RoleAdmin))

	mux.HandleFunc("GET "+p+"/products", h.ListProducts)
	mux.HandleFunc("GET "+p+"/products/{id}", h.GetProduct)
	mux.Handle("POST "+p+"/products", h.authorize(h.CreateProduct, user.RoleAdmin))

	mux.Handle("GET "+p+"/carts", h.authorize(h.GetCart, user.RoleUser))
	mux.Handle("POST "+p+"/carts/items", h.authorize(h.AddToCart, user.RoleUser))
	mux.Handle("PATCH "+p+"/carts/items", h.authorize(h.UpdateCartItem, user.RoleUser))
	mux.Handle("DELETE "+p+"/carts/items/{productId}", h.authorize(h.RemoveCartItem, user.RoleUser))

	mux.Handle("POST "+p+"/orders", h.authorize(h.PlaceOrder, user.RoleUser))
	mux.Handle("GET "+p+"/orders/me", h.authorize(h.MyOrders, user.RoleUser))
	mux.Handle("GET "+p+"/orders", h.authorize(h.ListOrders, user.RoleAdmin))
	mux.Handle("PATCH "+p+"/orders/{id}/status", h.authorize(h.UpdateOrderStatus, user.RoleAdmin))
	mux.Handle("PATCH "+p+"/orders/{id}/cancel", h.authorize(h.CancelOrder, user.RoleUser))
	mux.Handle("PATCH "+p+"/orders/{id}/deliver", h.authorize(h.DeliverOrder, user.RoleUser))
	mux.Handle("PATCH "+p+"/orders/{id}/refund", h.authorize(h.RefundOrder, user.RoleAdmin))

	mux.HandleFunc(p+"/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errRouteNotFound)
	})
	return mux
}
