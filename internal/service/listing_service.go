package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/repository"
)

const (
	listingsPerPage  = 12
	maxSlugBase      = 220
	dashboardListing = 8
	maxSlugAttempts  = 5
)

// ListingInput is the raw form of a listing as submitted by its owner.
// Numeric fields are parsed and validated by ListingService.
type ListingInput struct {
	Title       string
	Description string
	Category    string
	Condition   string
	Price       string
	Quantity    string

	YearOfManufacture string
	Brand             string
	Model             string
	LengthCM          string
	WidthCM           string
	HeightCM          string
	WeightKG          string
	Material          string
	Color             string
	OriginalPackaging bool
	ManualIncluded    bool
	WorkingCondition  string
}

// Upload is an image file received with a listing or profile form.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// ListingService is the catalog: listing CRUD, search and images.
type ListingService struct {
	listings repository.ListingRepository
	blobs    repository.BlobStore
}

func NewListingService(listings repository.ListingRepository, blobs repository.BlobStore) *ListingService {
	return &ListingService{
		listings: listings,
		blobs:    blobs,
	}
}

func (s *ListingService) Create(ctx context.Context, ownerID string, in ListingInput, images []Upload) (*entity.Listing, error) {
	one := 1
	l := &entity.Listing{ID: uuid.NewString(), OwnerID: ownerID, Quantity: &one}
	if err := applyInput(l, in); err != nil {
		return nil, err
	}

	imgs, err := s.uploadImages(ctx, l, images)
	if err != nil {
		return nil, err
	}

	// A concurrent create can claim the slug between the check and the
	// insert; pick the next free one and try again.
	for attempt := 1; ; attempt++ {
		if l.Slug, err = s.uniqueSlug(ctx, l.Title); err != nil {
			s.discardBlobs(ctx, imgs)
			return nil, err
		}
		err = s.listings.Create(ctx, l, imgs)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicate) || attempt == maxSlugAttempts {
			s.discardBlobs(ctx, imgs)
			return nil, fmt.Errorf("failed to create listing: %w", err)
		}
		slog.Warn("Listing slug taken concurrently, retrying", "slug", l.Slug, "attempt", attempt)
	}
	l.Images = append(l.Images, imgs...)
	slog.Info("Service: Listing created", "listing_id", l.ID, "slug", l.Slug, "owner_id", ownerID)
	return l, nil
}

// Update replaces the listing fields. The slug is kept and new images are
// appended to the existing ones. An empty quantity keeps the current stock.
func (s *ListingService) Update(ctx context.Context, ownerID, listingID string, in ListingInput, images []Upload) (*entity.Listing, error) {
	l, err := s.owned(ctx, ownerID, listingID)
	if err != nil {
		return nil, err
	}
	if err := applyInput(l, in); err != nil {
		return nil, err
	}

	imgs, err := s.uploadImages(ctx, l, images)
	if err != nil {
		return nil, err
	}
	if err := s.listings.Update(ctx, l, imgs); err != nil {
		s.discardBlobs(ctx, imgs)
		return nil, fmt.Errorf("failed to update listing %s: %w", listingID, err)
	}
	l.Images = append(l.Images, imgs...)
	return l, nil
}

func (s *ListingService) Delete(ctx context.Context, ownerID, listingID string) error {
	l, err := s.owned(ctx, ownerID, listingID)
	if err != nil {
		return err
	}
	if err := s.listings.Delete(ctx, l.ID); err != nil {
		return fmt.Errorf("failed to delete listing %s: %w", listingID, err)
	}

	// Rows are gone with the listing; blobs are cleaned up best-effort.
	for _, img := range l.Images {
		if img.ObjectName == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, img.ObjectName); err != nil {
			slog.Error("Failed to delete listing image", "object", img.ObjectName, "err", err)
		}
	}
	slog.Info("Service: Listing deleted", "listing_id", listingID)
	return nil
}

func (s *ListingService) GetBySlug(ctx context.Context, slug string) (*entity.Listing, error) {
	l, err := s.listings.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load listing %q: %w", slug, err)
	}
	return l, nil
}

// Search pages through available listings, newest first. An unknown
// category is ignored.
func (s *ListingService) Search(ctx context.Context, q, category string, page int) (repository.PageResult[entity.Listing], error) {
	f := repository.ListingFilter{Query: q, OnlyAvailable: true}
	if c := entity.Category(category); c.Valid() {
		f.Category = c
	}
	return s.listings.Search(ctx, f, repository.Page{Number: page, PerPage: listingsPerPage})
}

// MyListings returns the owner's newest listings that can still be bought.
func (s *ListingService) MyListings(ctx context.Context, ownerID string) ([]entity.Listing, error) {
	res, err := s.listings.Search(ctx, repository.ListingFilter{
		OwnerID:       ownerID,
		OnlyAvailable: true,
		InStockOnly:   true,
	}, repository.Page{Number: 1, PerPage: dashboardListing})
	if err != nil {
		return nil, fmt.Errorf("failed to load listings of %s: %w", ownerID, err)
	}
	return res.Items, nil
}

func (s *ListingService) owned(ctx context.Context, ownerID, listingID string) (*entity.Listing, error) {
	l, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load listing %s: %w", listingID, err)
	}
	if l.OwnerID != ownerID {
		return nil, entity.ErrUnauthorized
	}
	return l, nil
}

func (s *ListingService) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := slug.Make(title)
	if len(base) > maxSlugBase {
		base = strings.TrimRight(base[:maxSlugBase], "-")
	}
	if base == "" {
		base = "listing"
	}

	candidate := base
	for n := 1; ; n++ {
		taken, err := s.listings.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// uploadImages stores every upload before any row is written. On failure
// the objects already stored are removed again.
func (s *ListingService) uploadImages(ctx context.Context, l *entity.Listing, images []Upload) ([]entity.ListingImage, error) {
	imgs := make([]entity.ListingImage, 0, len(images))
	for _, up := range images {
		object := fmt.Sprintf("listings/%s/%s%s", l.ID, uuid.NewString(), strings.ToLower(path.Ext(up.Filename)))
		url, err := s.blobs.Put(ctx, object, up.ContentType, up.Body)
		if err != nil {
			s.discardBlobs(ctx, imgs)
			return nil, fmt.Errorf("failed to upload image %s: %w", up.Filename, err)
		}
		imgs = append(imgs, entity.ListingImage{
			ID:         uuid.NewString(),
			ListingID:  l.ID,
			URL:        url,
			ObjectName: object,
			Alt:        l.Title,
		})
	}
	return imgs, nil
}

func (s *ListingService) discardBlobs(ctx context.Context, imgs []entity.ListingImage) {
	for _, img := range imgs {
		if err := s.blobs.Delete(ctx, img.ObjectName); err != nil {
			slog.Error("Failed to delete orphaned listing image", "object", img.ObjectName, "err", err)
		}
	}
}

// applyInput validates in and copies it onto l. All problems are reported
// together in a ValidationError. An empty quantity leaves l.Quantity as is.
func applyInput(l *entity.Listing, in ListingInput) error {
	var msgs []string

	title := strings.TrimSpace(in.Title)
	if len([]rune(title)) < 3 {
		msgs = append(msgs, "Enter a valid title (min 3 characters).")
	}

	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	switch {
	case err != nil:
		msgs = append(msgs, "Enter a valid price.")
	case price.IsNegative():
		msgs = append(msgs, "Price must be non-negative.")
	}

	qty := l.Quantity
	if raw := strings.TrimSpace(in.Quantity); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			msgs = append(msgs, "Enter a valid quantity.")
		case n < 0:
			msgs = append(msgs, "Quantity must be >= 0.")
		}
		qty = &n
	}

	category := entity.CategoryOther
	if c := strings.TrimSpace(in.Category); c != "" {
		category = entity.Category(c)
		if !category.Valid() {
			msgs = append(msgs, "Choose a valid category.")
		}
	}
	condition := entity.ConditionUsedGood
	if c := strings.TrimSpace(in.Condition); c != "" {
		condition = entity.Condition(c)
		if !condition.Valid() {
			msgs = append(msgs, "Choose a valid condition.")
		}
	}

	year, err := optionalInt(in.YearOfManufacture)
	if err != nil || (year != nil && *year < 0) {
		msgs = append(msgs, "Enter a valid year of manufacture.")
	}
	dims := make([]*decimal.Decimal, 4)
	for i, f := range []struct{ name, raw string }{
		{"length", in.LengthCM}, {"width", in.WidthCM}, {"height", in.HeightCM}, {"weight", in.WeightKG},
	} {
		d, err := optionalDecimal(f.raw)
		if err != nil || (d != nil && d.IsNegative()) {
			msgs = append(msgs, fmt.Sprintf("Enter a valid %s.", f.name))
			continue
		}
		dims[i] = d
	}

	if len(msgs) > 0 {
		return &entity.ValidationError{Messages: msgs}
	}

	l.Title = title
	l.Description = strings.TrimSpace(in.Description)
	l.Category = category
	l.Condition = condition
	l.Price = price
	l.Quantity = qty
	l.Details = entity.ListingDetails{
		YearOfManufacture: year,
		Brand:             strings.TrimSpace(in.Brand),
		Model:             strings.TrimSpace(in.Model),
		LengthCM:          dims[0],
		WidthCM:           dims[1],
		HeightCM:          dims[2],
		WeightKG:          dims[3],
		Material:          strings.TrimSpace(in.Material),
		Color:             strings.TrimSpace(in.Color),
		OriginalPackaging: in.OriginalPackaging,
		ManualIncluded:    in.ManualIncluded,
		WorkingCondition:  strings.TrimSpace(in.WorkingCondition),
	}
	l.SyncAvailability()
	return nil
}

func optionalInt(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func optionalDecimal(raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// SeedDemo inserts a small demo catalog owned by ownerID when the catalog
// is empty.
func (s *ListingService) SeedDemo(ctx context.Context, ownerID string) error {
	type demo struct {
		title, desc, price string
		category           entity.Category
		condition          entity.Condition
		qty                *int
	}
	qty := func(n int) *int { return &n }
	demos := []demo{
		{"Wireless Noise-Cancelling Headphones", "Over-ear headphones, 30-hour battery, barely used.", "149.99", entity.CategoryElectronics, entity.ConditionLikeNew, qty(3)},
		{"Mechanical Keyboard", "Tactile switches, aluminum frame. One keycap replaced.", "59.00", entity.CategoryElectronics, entity.ConditionUsedGood, qty(1)},
		{"Ergonomic Office Chair", "Adjustable lumbar support and breathable mesh.", "120.00", entity.CategoryFurniture, entity.ConditionUsedFair, qty(2)},
		{"Smart LED Desk Lamp", "Adjustable color temperature with USB charging port.", "25.50", entity.CategoryHome, entity.ConditionUsedGood, qty(5)},
		{"Paperback Classics Bundle", "Ten well-read paperback novels.", "18.00", entity.CategoryBooks, entity.ConditionUsedFair, nil},
		{"Wooden Train Set", "Complete set with 40 track pieces.", "35.00", entity.CategoryToys, entity.ConditionUsedGood, qty(1)},
	}

	listings := make([]entity.Listing, 0, len(demos))
	for _, d := range demos {
		listings = append(listings, entity.Listing{
			ID:          uuid.NewString(),
			OwnerID:     ownerID,
			Title:       d.title,
			Slug:        slug.Make(d.title),
			Description: d.desc,
			Category:    d.category,
			Condition:   d.condition,
			Price:       decimal.RequireFromString(d.price),
			Quantity:    d.qty,
			IsAvailable: true,
		})
	}

	if err := s.listings.Seed(ctx, listings); err != nil {
		return fmt.Errorf("failed to seed listings: %w", err)
	}
	slog.Info("Seeded demo listings", "count", len(listings))
	return nil
}
