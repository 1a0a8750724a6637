package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/repository"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/service"
)

type Accounts interface {
	Register(ctx context.Context, username, email, password1, password2 string) (*entity.Account, error)
	Login(ctx context.Context, email, password string) (*entity.Account, error)
	UpdateProfile(ctx context.Context, accountID string, in service.ProfileInput) (*entity.Account, error)
	Dashboard(ctx context.Context, accountID string) (*service.Dashboard, error)
}

type Listings interface {
	Create(ctx context.Context, ownerID string, in service.ListingInput, images []service.Upload) (*entity.Listing, error)
	Update(ctx context.Context, ownerID, listingID string, in service.ListingInput, images []service.Upload) (*entity.Listing, error)
	Delete(ctx context.Context, ownerID, listingID string) error
	GetBySlug(ctx context.Context, slug string) (*entity.Listing, error)
	Search(ctx context.Context, q, category string, page int) (repository.PageResult[entity.Listing], error)
}

type Carts interface {
	Add(ctx context.Context, accountID, listingID string, qty int) (*entity.AddResult, error)
	Update(ctx context.Context, accountID, entryID string, newQty int) (*entity.CartEntry, error)
	Remove(ctx context.Context, accountID, entryID string) error
	List(ctx context.Context, accountID string) (entity.Cart, error)
}

type Checkout interface {
	Checkout(ctx context.Context, accountID string) (*entity.Order, error)
}

type Orders interface {
	List(ctx context.Context, accountID string) ([]entity.Order, error)
	Get(ctx context.Context, accountID, orderID string) (*entity.Order, error)
}

// Sessions resolves opaque session tokens to account ids.
type Sessions interface {
	Create(ctx context.Context, accountID string) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Destroy(ctx context.Context, token string) error
	TTL() time.Duration
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Accounts Accounts
	Listings Listings
	Carts    Carts
	Checkout Checkout
	Orders   Orders
	Sessions Sessions
	DB       Pinger
	// SecureCookies marks the session cookie Secure; enable behind TLS.
	SecureCookies bool
}

// Handler handles HTTP requests for the application.
type Handler struct {
	accounts Accounts
	listings Listings
	carts    Carts
	checkout Checkout
	orders   Orders
	sessions Sessions
	db       Pinger
	secure   bool
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		accounts: d.Accounts,
		listings: d.Listings,
		carts:    d.Carts,
		checkout: d.Checkout,
		orders:   d.Orders,
		sessions: d.Sessions,
		db:       d.DB,
		secure:   d.SecureCookies,
	}
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
