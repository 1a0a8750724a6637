package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlaceholderImageURL is served when a listing has no images.
const PlaceholderImageURL = "/static/img/placeholder.png"

// Account is a registered marketplace user.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	AvatarObject string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Category of a listing.
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryBooks       Category = "books"
	CategoryClothing    Category = "clothing"
	CategoryFurniture   Category = "furniture"
	CategoryHome        Category = "home"
	CategoryToys        Category = "toys"
	CategoryOther       Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryElectronics, CategoryBooks, CategoryClothing, CategoryFurniture,
	CategoryHome, CategoryToys, CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Condition describes the wear of a listed item.
type Condition string

const (
	ConditionNew      Condition = "new"
	ConditionLikeNew  Condition = "like_new"
	ConditionUsedGood Condition = "used_good"
	ConditionUsedFair Condition = "used_fair"
	ConditionForParts Condition = "for_parts"
)

// Conditions lists every condition in display order.
var Conditions = []Condition{
	ConditionNew, ConditionLikeNew, ConditionUsedGood, ConditionUsedFair, ConditionForParts,
}

func (c Condition) Valid() bool {
	for _, known := range Conditions {
		if c == known {
			return true
		}
	}
	return false
}

// ListingDetails is descriptive metadata that plays no part in stock or
// checkout logic.
type ListingDetails struct {
	YearOfManufacture *int             `json:"year_of_manufacture,omitempty"`
	Brand             string           `json:"brand"`
	Model             string           `json:"model"`
	LengthCM          *decimal.Decimal `json:"length_cm,omitempty"`
	WidthCM           *decimal.Decimal `json:"width_cm,omitempty"`
	HeightCM          *decimal.Decimal `json:"height_cm,omitempty"`
	WeightKG          *decimal.Decimal `json:"weight_kg,omitempty"`
	Material          string           `json:"material"`
	Color             string           `json:"color"`
	OriginalPackaging bool             `json:"original_packaging"`
	ManualIncluded    bool             `json:"manual_included"`
	WorkingCondition  string           `json:"working_condition_description"`
}

// Listing is a product offered for sale by its owner.
type Listing struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Category    Category        `json:"category"`
	Price       decimal.Decimal `json:"price"`
	// Quantity is nil when stock is not tracked.
	Quantity    *int           `json:"quantity"`
	Condition   Condition      `json:"condition"`
	Details     ListingDetails `json:"details"`
	IsAvailable bool           `json:"is_available"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	Images []ListingImage `json:"images,omitempty"`
}

// PrimaryImageURL returns the first image, or the placeholder.
func (l *Listing) PrimaryImageURL() string {
	if len(l.Images) > 0 && l.Images[0].URL != "" {
		return l.Images[0].URL
	}
	return PlaceholderImageURL
}

// ListingImage is an image owned by a listing.
type ListingImage struct {
	ID         string    `json:"id"`
	ListingID  string    `json:"listing_id"`
	URL        string    `json:"url"`
	ObjectName string    `json:"-"`
	Alt        string    `json:"alt"`
	CreatedAt  time.Time `json:"created_at"`
}

// --- Events ---

// OrderPlaced is emitted when checkout commits an order.
type OrderPlaced struct {
	OrderID   string          `json:"order_id"`
	AccountID string          `json:"account_id"`
	Lines     []OrderLine     `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	PlacedAt  time.Time       `json:"placed_at"`
}

func (e OrderPlaced) EventType() string { return "OrderPlaced" }
