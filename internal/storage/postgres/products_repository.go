package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vitrin-cms/server/internal/api/pagination"
	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/products"
)

var _ products.Repository = (*ProductRepository)(nil)

type ProductRepository struct {
	conn
}

var productTranslations = translationTable{
	name:        "product_translations",
	ownerColumn: "product_id",
	columns:     []string{"name", "summary", "body", "body_doc", "meta_title", "meta_description"},
}

const productColumns = `p.id, p.slug, p.category, p.sku, p.price, p.currency, p.image_url, p.gallery,
       p.status, p.sort_order, p.created_at, p.updated_at`

func scanProduct(row pgx.Row) (products.Product, error) {
	var p products.Product
	err := row.Scan(&p.ID, &p.Slug, &p.Category, &p.SKU, &p.Price, &p.Currency, &p.ImageURL, &p.Gallery,
		&p.Status, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt)
	if p.Gallery == nil {
		p.Gallery = []string{}
	}
	return p, err
}

func scanProductTranslation(rows pgx.Rows, owner, locale *string) (products.Translation, error) {
	var t products.Translation
	var doc []byte
	err := rows.Scan(owner, locale, &t.Name, &t.Summary, &t.Body, &doc, &t.MetaTitle, &t.MetaDescription)
	t.BodyDoc = doc
	return t, err
}

func (r *ProductRepository) List(ctx context.Context, filters products.Filters) (content.Page[products.Product], error) {
	q := r.queryer()

	var cursorPos *int
	var cursorID *string
	if filters.After != "" {
		cursor, err := pagination.DecodeOrderCursor(filters.After)
		if err != nil {
			return content.Page[products.Product]{}, err
		}
		cursorPos, cursorID = &cursor.Position, &cursor.ID
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = content.DefaultLimit
	}

	rows, err := q.Query(ctx, `
SELECT `+productColumns+`
  FROM products p
 WHERE ($1 = '' OR p.status = $1)
   AND ($2 = '' OR p.category = $2)
   AND ($3 = '' OR p.sku ILIKE $3 OR EXISTS (
         SELECT 1 FROM product_translations t
          WHERE t.product_id = p.id AND (t.name ILIKE $3 OR t.summary ILIKE $3)))
   AND ($4::int IS NULL OR (p.sort_order, p.id) > ($4::int, $5::text))
 ORDER BY p.sort_order ASC, p.id ASC
 LIMIT $6
`, string(filters.Status), filters.Category, likePattern(filters.Query), cursorPos, cursorID, limit+1)
	if err != nil {
		return content.Page[products.Product]{}, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	items := make([]products.Product, 0, limit+1)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return content.Page[products.Product]{}, fmt.Errorf("scan products: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return content.Page[products.Product]{}, fmt.Errorf("iterate products: %w", err)
	}

	if err := r.attach(ctx, q, items); err != nil {
		return content.Page[products.Product]{}, err
	}
	return content.Paginate(items, limit, func(p products.Product) string {
		return pagination.EncodeOrderCursor(p.SortOrder, p.ID)
	}), nil
}

func (r *ProductRepository) attach(ctx context.Context, q queryer, items []products.Product) error {
	owners := make([]string, len(items))
	for i, p := range items {
		owners[i] = p.ID
	}
	translations, err := loadTranslations(ctx, q, productTranslations, owners, scanProductTranslation)
	if err != nil {
		return err
	}
	for i := range items {
		items[i].Translations = translations[items[i].ID]
		if items[i].Translations == nil {
			items[i].Translations = map[string]products.Translation{}
		}
	}
	return nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*products.Product, error) {
	return r.getBy(ctx, r.queryer(), "p.id", id)
}

func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*products.Product, error) {
	return r.getBy(ctx, r.queryer(), "p.slug", slug)
}

func (r *ProductRepository) getBy(ctx context.Context, q queryer, column, value string) (*products.Product, error) {
	p, err := scanProduct(q.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE `+column+` = $1`, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, content.ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	items := []products.Product{p}
	if err := r.attach(ctx, q, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func productTranslationRows(translations map[string]products.Translation) [][]any {
	rows := make([][]any, 0, len(translations))
	for locale, t := range translations {
		rows = append(rows, []any{locale, t.Name, t.Summary, t.Body, nullableJSON(t.BodyDoc), t.MetaTitle, t.MetaDescription})
	}
	return rows
}

func (r *ProductRepository) Create(ctx context.Context, product products.Product) (*products.Product, error) {
	if product.Gallery == nil {
		product.Gallery = []string{}
	}
	err := r.inTx(ctx, func(q queryer) error {
		if err := q.QueryRow(ctx, `
INSERT INTO products (id, slug, category, sku, price, currency, image_url, gallery, status, sort_order)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at, updated_at
`, product.ID, product.Slug, product.Category, product.SKU, product.Price, product.Currency, product.ImageURL,
			product.Gallery, product.Status, product.SortOrder,
		).Scan(&product.CreatedAt, &product.UpdatedAt); err != nil {
			if uniqueViolationOn(err) {
				return content.ErrSlugTaken
			}
			return fmt.Errorf("insert product: %w", err)
		}
		return productTranslations.replace(ctx, q, product.ID, productTranslationRows(product.Translations))
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepository) Update(ctx context.Context, product products.Product) (*products.Product, error) {
	if product.Gallery == nil {
		product.Gallery = []string{}
	}
	err := r.inTx(ctx, func(q queryer) error {
		if err := q.QueryRow(ctx, `
UPDATE products
   SET slug = $2, category = $3, sku = $4, price = $5, currency = $6, image_url = $7, gallery = $8,
       status = $9, sort_order = $10, updated_at = now()
 WHERE id = $1
RETURNING created_at, updated_at
`, product.ID, product.Slug, product.Category, product.SKU, product.Price, product.Currency, product.ImageURL,
			product.Gallery, product.Status, product.SortOrder,
		).Scan(&product.CreatedAt, &product.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return content.ErrNotFound
			}
			if uniqueViolationOn(err) {
				return content.ErrSlugTaken
			}
			return fmt.Errorf("update product: %w", err)
		}
		return productTranslations.replace(ctx, q, product.ID, productTranslationRows(product.Translations))
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.queryer(), "products", id)
}

func (r *ProductRepository) Categories(ctx context.Context, status content.Status) ([]string, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT DISTINCT category
  FROM products
 WHERE category <> '' AND ($1 = '' OR status = $1)
 ORDER BY category
`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categories, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

// deleteByID removes one row from table; translations cascade.
func deleteByID(ctx context.Context, q queryer, table, id string) error {
	tag, err := q.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return content.ErrNotFound
	}
	return nil
}
