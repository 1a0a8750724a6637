package repository

import (
	"context"
	"errors"
	"io"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
)

// ErrDuplicate is returned when an insert hits a unique constraint.
var ErrDuplicate = errors.New("duplicate key")

// AccountRepository handles persistence for Accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *entity.Account) error
	Update(ctx context.Context, account *entity.Account) error
	FindByID(ctx context.Context, id string) (*entity.Account, error)
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
	// EmailTaken and UsernameTaken ignore the account with id exceptID.
	EmailTaken(ctx context.Context, email, exceptID string) (bool, error)
	UsernameTaken(ctx context.Context, username, exceptID string) (bool, error)
}

// ListingFilter narrows a listing search. Zero values do not filter.
type ListingFilter struct {
	Query         string
	Category      entity.Category
	OwnerID       string
	OnlyAvailable bool
	InStockOnly   bool
}

// Page selects a 1-based page.
type Page struct {
	Number  int
	PerPage int
}

// PageResult is one page of results with totals.
type PageResult[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
}

// ListingRepository handles persistence for Listings and their images.
type ListingRepository interface {
	// Create inserts the listing and its images atomically. It returns
	// ErrDuplicate if the slug is taken.
	Create(ctx context.Context, listing *entity.Listing, images []entity.ListingImage) error
	// Update saves the listing fields and appends images atomically.
	Update(ctx context.Context, listing *entity.Listing, images []entity.ListingImage) error
	// Delete removes the listing; images and cart entries cascade.
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*entity.Listing, error)
	FindBySlug(ctx context.Context, slug string) (*entity.Listing, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Search(ctx context.Context, filter ListingFilter, page Page) (PageResult[entity.Listing], error)
	Images(ctx context.Context, listingID string) ([]entity.ListingImage, error)
	// Seed inserts initial listings if none exist.
	Seed(ctx context.Context, listings []entity.Listing) error
}

// CartRepository handles persistence for CartEntries.
type CartRepository interface {
	Lines(ctx context.Context, accountID string) ([]entity.CartLine, error)
	FindByListing(ctx context.Context, accountID, listingID string) (*entity.CartEntry, error)
	// FindByID only returns entries owned by accountID.
	FindByID(ctx context.Context, accountID, entryID string) (*entity.CartEntry, error)
	// Insert returns ErrDuplicate if the (account, listing) pair exists.
	Insert(ctx context.Context, entry *entity.CartEntry) error
	UpdateQty(ctx context.Context, entryID string, qty int) error
	Delete(ctx context.Context, accountID, entryID string) error
	Count(ctx context.Context, accountID string) (int, error)
}

// OrderRepository is the read side of completed orders.
type OrderRepository interface {
	// ListByAccount returns completed orders newest first; limit <= 0 means all.
	ListByAccount(ctx context.Context, accountID string, limit int) ([]entity.Order, error)
	FindByID(ctx context.Context, accountID, orderID string) (*entity.Order, error)
}

// CheckoutTx is the set of operations available inside a checkout
// transaction.
type CheckoutTx interface {
	CartEntries(ctx context.Context, accountID string) ([]entity.CartEntry, error)
	// LockListings takes exclusive row locks in ascending id order. Missing
	// listings are absent from the result.
	LockListings(ctx context.Context, ids []string) (map[string]*entity.Listing, error)
	InsertOrder(ctx context.Context, order *entity.Order) error
	SaveStock(ctx context.Context, listing *entity.Listing) error
	ClearCart(ctx context.Context, accountID string) error
	Enqueue(ctx context.Context, topic, key string, event entity.Event) error
}

// CheckoutStore runs fn in a single transaction. It commits when fn returns
// nil and rolls back otherwise.
type CheckoutStore interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx CheckoutTx) error) error
}

// OutboxStore is read by the outbox relay.
type OutboxStore interface {
	// FetchPending claims up to limit unsent events, oldest first. A claimed
	// event is hidden from other relays until MarkSent or the claim expires.
	FetchPending(ctx context.Context, limit int) ([]entity.OutboxRecord, error)
	MarkSent(ctx context.Context, id int64) error
}

// BlobStore keeps uploaded images.
type BlobStore interface {
	// Put stores the object and returns its public URL.
	Put(ctx context.Context, objectName, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, objectName string) error
}
