package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/emporia-labs/emporia-backend/internal/apperror"
	"github.com/emporia-labs/emporia-backend/internal/model"
	"github.com/emporia-labs/emporia-backend/internal/query"
)

const productResource = "Product"

var productColumns = []string{
	"id", "name", "slug", "description", "price", "discount_price", "sku", "stock",
	"category_id", "images", "variants", "meta_title", "meta_description", "tags",
	"is_active", "created_by", "updated_by", "deleted_at", "created_at", "updated_at",
}

var productCategoryColumns = []string{"c.id", "c.name", "c.slug", "c.is_active"}

type CreateProductParams struct {
	Name            string
	Slug            string
	Description     *string
	Price           float64
	DiscountPrice   *float64
	SKU             *string
	Stock           int
	CategoryID      uuid.UUID
	Images          []string
	Variants        model.Variants
	MetaTitle       *string
	MetaDescription *string
	Tags            []string
	CreatedBy       uuid.UUID
}

func productTargets(p *model.Product) []interface{} {
	return []interface{}{
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.DiscountPrice,
		&p.SKU,
		&p.Stock,
		&p.CategoryID,
		pq.Array(&p.Images),
		&p.Variants,
		&p.MetaTitle,
		&p.MetaDescription,
		pq.Array(&p.Tags),
		&p.IsActive,
		&p.CreatedBy,
		&p.UpdatedBy,
		&p.DeletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
}

func scanProduct(row rowScanner) (model.Product, error) {
	var p model.Product
	err := row.Scan(productTargets(&p)...)
	normalizeProduct(&p)
	return p, err
}

// scanProductWithCategory reads productColumns followed by productCategoryColumns.
func scanProductWithCategory(row rowScanner) (model.Product, error) {
	var (
		p   model.Product
		cat model.CategorySummary
	)
	targets := append(productTargets(&p), &cat.ID, &cat.Name, &cat.Slug, &cat.IsActive)
	if err := row.Scan(targets...); err != nil {
		return model.Product{}, err
	}
	normalizeProduct(&p)
	p.Category = &cat
	return p, nil
}

func normalizeProduct(p *model.Product) {
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Variants == nil {
		p.Variants = model.Variants{}
	}
}

func productsWithCategory(cols ...string) sq.SelectBuilder {
	return psql.Select(cols...).
		From("products p").
		Join("categories c ON c.id = p.category_id")
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (model.Product, error) {
	b := psql.Insert("products").
		Columns(
			"name", "slug", "description", "price", "discount_price", "sku", "stock",
			"category_id", "images", "variants", "meta_title", "meta_description", "tags",
			"is_active", "created_by", "updated_by",
		).
		Values(
			arg.Name, arg.Slug, arg.Description, arg.Price, arg.DiscountPrice, arg.SKU, arg.Stock,
			arg.CategoryID, pq.Array(arg.Images), arg.Variants, arg.MetaTitle, arg.MetaDescription, pq.Array(arg.Tags),
			true, arg.CreatedBy, arg.CreatedBy,
		).
		Suffix("RETURNING " + joinColumns(productColumns))

	sqlStr, args, err := b.ToSql()
	if err != nil {
		return model.Product{}, fmt.Errorf("failed to build insert: %w", err)
	}
	p, err := scanProduct(q.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		return model.Product{}, mapError(err, productResource)
	}
	return p, nil
}

// GetProductByID returns a live product with its category embedded.
// Soft-deleted products are not found.
func (q *Queries) GetProductByID(ctx context.Context, id uuid.UUID) (model.Product, error) {
	cols := append(qualify("p", productColumns), productCategoryColumns...)
	b := productsWithCategory(cols...).
		Where(sq.Eq{"p.id": id.String(), "p.deleted_at": nil})
	return getOne(ctx, q.db, b, productResource, scanProductWithCategory)
}

func (q *Queries) ListProducts(ctx context.Context, rq query.ResolvedQuery) ([]model.Product, int64, error) {
	cols := append(qualify("p", productColumns), productCategoryColumns...)
	base := productsWithCategory(cols...)
	count := productsWithCategory("COUNT(*)")
	return listPage(ctx, q.db, base, count, rq, scanProductWithCategory)
}

func (q *Queries) ProductSlugExists(ctx context.Context, slug string) (bool, error) {
	return q.exists(ctx, psql.Select("1").From("products").Where(sq.Eq{"slug": slug}))
}

// SoftDeleteProduct marks a live product deleted.
func (q *Queries) SoftDeleteProduct(ctx context.Context, id, deletedBy uuid.UUID) error {
	n, err := exec(ctx, q.db, psql.Update("products").
		Set("deleted_at", sq.Expr("NOW()")).
		Set("updated_by", deletedBy).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id.String(), "deleted_at": nil}))
	if err != nil {
		return fmt.Errorf("failed to soft delete product: %w", err)
	}
	if n == 0 {
		return apperror.NotFoundError{Resource: productResource}
	}
	return nil
}

// AppendProductImage adds url to the image list of a live product.
func (q *Queries) AppendProductImage(ctx context.Context, id uuid.UUID, url string, updatedBy uuid.UUID) (model.Product, error) {
	sqlStr, args, err := psql.Update("products").
		Set("images", sq.Expr("array_append(images, ?)", url)).
		Set("updated_by", updatedBy).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id.String(), "deleted_at": nil}).
		Suffix("RETURNING " + joinColumns(productColumns)).
		ToSql()
	if err != nil {
		return model.Product{}, fmt.Errorf("failed to build update: %w", err)
	}
	p, err := scanProduct(q.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		return model.Product{}, mapError(err, productResource)
	}
	return p, nil
}
