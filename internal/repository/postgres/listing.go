package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/repository"
)

type listingRepository struct {
	db *sql.DB
}

// NewListingRepository creates a new ListingRepository backed by Postgres.
func NewListingRepository(db *sql.DB) repository.ListingRepository {
	return &listingRepository{db: db}
}

const listingColumns = `
  id, owner_id, title, slug, description, category, price, quantity, condition,
  year_of_manufacture, brand, model, length_cm, width_cm, height_cm, weight_kg,
  material, color, original_packaging, manual_included, working_condition_description,
  is_available, created_at, updated_at`

func scanListing(row scanner) (*entity.Listing, error) {
	var (
		l                     entity.Listing
		quantity, year        sql.NullInt64
		length, width, height decimal.NullDecimal
		weight                decimal.NullDecimal
		category, condition   string
	)
	err := row.Scan(
		&l.ID, &l.OwnerID, &l.Title, &l.Slug, &l.Description, &category, &l.Price, &quantity, &condition,
		&year, &l.Details.Brand, &l.Details.Model, &length, &width, &height, &weight,
		&l.Details.Material, &l.Details.Color, &l.Details.OriginalPackaging, &l.Details.ManualIncluded,
		&l.Details.WorkingCondition, &l.IsAvailable, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Category = entity.Category(category)
	l.Condition = entity.Condition(condition)
	l.Quantity = intFromNull(quantity)
	l.Details.YearOfManufacture = intFromNull(year)
	l.Details.LengthCM = decimalFromNull(length)
	l.Details.WidthCM = decimalFromNull(width)
	l.Details.HeightCM = decimalFromNull(height)
	l.Details.WeightKG = decimalFromNull(weight)
	return &l, nil
}

func listingArgs(l *entity.Listing) []any {
	return []any{
		l.ID, l.OwnerID, l.Title, l.Slug, l.Description, string(l.Category), l.Price, nullInt(l.Quantity), string(l.Condition),
		nullInt(l.Details.YearOfManufacture), l.Details.Brand, l.Details.Model,
		nullDecimal(l.Details.LengthCM), nullDecimal(l.Details.WidthCM), nullDecimal(l.Details.HeightCM), nullDecimal(l.Details.WeightKG),
		l.Details.Material, l.Details.Color, l.Details.OriginalPackaging, l.Details.ManualIncluded,
		l.Details.WorkingCondition, l.IsAvailable,
	}
}

func (r *listingRepository) Create(ctx context.Context, l *entity.Listing, images []entity.ListingImage) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
INSERT INTO listings (
  id, owner_id, title, slug, description, category, price, quantity, condition,
  year_of_manufacture, brand, model, length_cm, width_cm, height_cm, weight_kg,
  material, color, original_packaging, manual_included, working_condition_description,
  is_available
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
RETURNING created_at, updated_at`,
			listingArgs(l)...,
		).Scan(&l.CreatedAt, &l.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert listing: %w", classify(err))
		}
		return insertImages(ctx, tx, images)
	})
}

func (r *listingRepository) Update(ctx context.Context, l *entity.Listing, images []entity.ListingImage) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
UPDATE listings SET
  owner_id = $2, title = $3, slug = $4, description = $5, category = $6, price = $7, quantity = $8, condition = $9,
  year_of_manufacture = $10, brand = $11, model = $12, length_cm = $13, width_cm = $14, height_cm = $15, weight_kg = $16,
  material = $17, color = $18, original_packaging = $19, manual_included = $20, working_condition_description = $21,
  is_available = $22, updated_at = NOW()
WHERE id = $1
RETURNING updated_at`,
			listingArgs(l)...,
		).Scan(&l.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update listing: %w", notFound(classify(err)))
		}
		return insertImages(ctx, tx, images)
	})
}

func (r *listingRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit listing: %w", classify(err))
	}
	return nil
}

func insertImages(ctx context.Context, tx *sql.Tx, images []entity.ListingImage) error {
	for i := range images {
		img := &images[i]
		err := tx.QueryRowContext(ctx,
			`INSERT INTO listing_images (id, listing_id, url, object_name, alt) VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
			img.ID, img.ListingID, img.URL, img.ObjectName, img.Alt,
		).Scan(&img.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert listing image: %w", err)
		}
	}
	return nil
}

func (r *listingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	return requireAffected(res)
}

func (r *listingRepository) FindByID(ctx context.Context, id string) (*entity.Listing, error) {
	return r.findOne(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
}

func (r *listingRepository) FindBySlug(ctx context.Context, slug string) (*entity.Listing, error) {
	return r.findOne(ctx, `SELECT `+listingColumns+` FROM listings WHERE slug = $1`, slug)
}

func (r *listingRepository) findOne(ctx context.Context, q string, arg string) (*entity.Listing, error) {
	l, err := scanListing(r.db.QueryRowContext(ctx, q, strings.TrimSpace(arg)))
	if err != nil {
		return nil, notFound(err)
	}
	images, err := r.Images(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	l.Images = images
	return l, nil
}

func (r *listingRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM listings WHERE slug = $1)`, slug).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return ok, nil
}

func buildListingWhere(f repository.ListingFilter) ([]string, []any) {
	var (
		where []string
		args  []any
	)
	if f.OnlyAvailable {
		where = append(where, "is_available = TRUE")
	}
	if f.InStockOnly {
		where = append(where, "(quantity IS NULL OR quantity > 0)")
	}
	if f.Category != "" {
		args = append(args, string(f.Category))
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.OwnerID != "" {
		args = append(args, f.OwnerID)
		where = append(where, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	return where, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *listingRepository) Search(ctx context.Context, f repository.ListingFilter, page repository.Page) (repository.PageResult[entity.Listing], error) {
	where, args := buildListingWhere(f)
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	perPage := page.PerPage
	if perPage <= 0 {
		perPage = 12
	}
	number := page.Number
	if number <= 0 {
		number = 1
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings `+whereSQL, args...).Scan(&total); err != nil {
		return repository.PageResult[entity.Listing]{}, fmt.Errorf("failed to count listings: %w", err)
	}

	totalPages := (total + perPage - 1) / perPage
	if totalPages > 0 && number > totalPages {
		number = totalPages
	}
	offset := (number - 1) * perPage

	q := fmt.Sprintf(`SELECT %s FROM listings %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		listingColumns, whereSQL, len(args)+1, len(args)+2)
	args = append(args, perPage, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return repository.PageResult[entity.Listing]{}, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	items := []entity.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return repository.PageResult[entity.Listing]{}, fmt.Errorf("failed to scan listing: %w", err)
		}
		items = append(items, *l)
	}
	if err := rows.Err(); err != nil {
		return repository.PageResult[entity.Listing]{}, fmt.Errorf("error iterating listing rows: %w", err)
	}

	return repository.PageResult[entity.Listing]{
		Items:      items,
		TotalCount: total,
		TotalPages: totalPages,
		Page:       number,
		PerPage:    perPage,
	}, nil
}

func (r *listingRepository) Images(ctx context.Context, listingID string) ([]entity.ListingImage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, listing_id, url, object_name, alt, created_at FROM listing_images WHERE listing_id = $1 ORDER BY created_at ASC, id ASC`,
		listingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query listing images: %w", err)
	}
	defer rows.Close()

	var images []entity.ListingImage
	for rows.Next() {
		var img entity.ListingImage
		if err := rows.Scan(&img.ID, &img.ListingID, &img.URL, &img.ObjectName, &img.Alt, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan listing image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (r *listingRepository) Seed(ctx context.Context, listings []entity.Listing) error {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM listings").Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil // already seeded
	}

	for i := range listings {
		if err := r.Create(ctx, &listings[i], nil); err != nil {
			return fmt.Errorf("failed to seed listing %s: %w", listings[i].Slug, err)
		}
	}
	return nil
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func decimalFromNull(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}

func nullDecimal(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*v)
}
