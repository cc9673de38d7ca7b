package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/emporia-labs/emporia-backend/internal/apperror"
	"github.com/emporia-labs/emporia-backend/internal/model"
	"github.com/emporia-labs/emporia-backend/internal/query"
)

func productRow(id, categoryID uuid.UUID, name string) []driver.Value {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return []driver.Value{
		id.String(), name, "iphone-15", nil, []byte("1200.00"), nil, nil, int64(20),
		categoryID.String(), []byte("{apple,phone}"), []byte(`[{"name":"color","value":"red","additionalPrice":0,"stock":3}]`),
		name, nil, []byte("{Apple,Smartphone}"),
		true, nil, nil, nil, now, now,
	}
}

func productWithCategoryColumns() []string {
	return append(qualify("p", productColumns), productCategoryColumns...)
}

func TestListProducts_ExcludesDeletedAndScopesCategory(t *testing.T) {
	q, mock, _ := newMock(t)
	mock.MatchExpectationsInOrder(false)

	categoryID := uuid.New()
	rq := resolve(t, "category="+categoryID.String()+"&sortBy=price&sortOrder=asc&limit=5", model.ProductQueryConfig())

	where := "WHERE (p.deleted_at IS NULL AND p.category_id = $1)"
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products p JOIN categories c ON c.id = p.category_id " + where)).
		WithArgs(categoryID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	row := append(productRow(uuid.New(), categoryID, "iPhone 15"), categoryID.String(), "Phones", "phones", true)
	mock.ExpectQuery(regexp.QuoteMeta(where + " ORDER BY p.price ASC, p.id ASC LIMIT 5 OFFSET 0")).
		WithArgs(categoryID.String()).
		WillReturnRows(sqlmock.NewRows(productWithCategoryColumns()).AddRow(row...))

	items, total, err := q.ListProducts(context.Background(), rq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("unexpected page: %d items, total %d", len(items), total)
	}

	p := items[0]
	if p.Price != 1200 {
		t.Errorf("price = %v", p.Price)
	}
	if len(p.Tags) != 2 || p.Tags[0] != "Apple" {
		t.Errorf("tags = %v", p.Tags)
	}
	if len(p.Variants) != 1 || p.Variants[0].Value != "red" {
		t.Errorf("variants = %v", p.Variants)
	}
	if p.Category == nil || p.Category.Name != "Phones" {
		t.Errorf("category not embedded: %+v", p.Category)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListProducts_SearchIncludesTags(t *testing.T) {
	q, mock, _ := newMock(t)
	mock.MatchExpectationsInOrder(false)

	rq := resolve(t, "search=apple", model.ProductQueryConfig())
	filter := "(p.deleted_at IS NULL AND (p.name ILIKE $1 OR p.slug ILIKE $2 OR EXISTS (SELECT 1 FROM unnest(p.tags) AS elem WHERE elem ILIKE $3)))"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products p JOIN categories c ON c.id = p.category_id WHERE " + filter)).
		WithArgs("%apple%", "%apple%", "%apple%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE " + filter + " ORDER BY p.created_at DESC")).
		WithArgs("%apple%", "%apple%", "%apple%").
		WillReturnRows(sqlmock.NewRows(productWithCategoryColumns()))

	items, total, err := q.ListProducts(context.Background(), rq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Errorf("expected empty page, got %d/%d", len(items), total)
	}
}

func TestGetProductByID_SoftDeletedIsNotFound(t *testing.T) {
	q, mock, _ := newMock(t)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.deleted_at IS NULL AND p.id = $1")).
		WithArgs(id.String()).
		WillReturnError(sql.ErrNoRows)

	_, err := q.GetProductByID(context.Background(), id)
	if !apperror.IsNotFound(err) || err.Error() != "Product not found" {
		t.Fatalf("expected product not found, got %v", err)
	}
}

func TestCreateProduct_UniqueViolations(t *testing.T) {
	tests := []struct {
		constraint string
		msg        string
	}{
		{"products_slug_key", "Product slug already exists"},
		{"products_sku_key", "Product SKU already exists"},
		{"products_category_name_key", "Product with this name already exists in category"},
		{"some_new_key", "Product already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			q, mock, _ := newMock(t)
			mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products")).
				WillReturnError(&pq.Error{Code: "23505", Constraint: tt.constraint})

			_, err := q.CreateProduct(context.Background(), CreateProductParams{Name: "x", Slug: "x", CategoryID: uuid.New()})
			if !apperror.IsConflict(err) {
				t.Fatalf("expected ConflictError, got %v", err)
			}
			if err.Error() != tt.msg {
				t.Errorf("message = %q, want %q", err.Error(), tt.msg)
			}
		})
	}
}

func TestSoftDeleteProduct(t *testing.T) {
	q, mock, _ := newMock(t)

	id, user := uuid.New(), uuid.New()
	stmt := regexp.QuoteMeta("UPDATE products SET deleted_at = NOW(), updated_by = $1, updated_at = NOW() WHERE deleted_at IS NULL AND id = $2")

	mock.ExpectExec(stmt).WithArgs(user, id.String()).WillReturnResult(sqlmock.NewResult(0, 1))
	if err := q.SoftDeleteProduct(context.Background(), id, user); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectExec(stmt).WithArgs(user, id.String()).WillReturnResult(sqlmock.NewResult(0, 0))
	if err := q.SoftDeleteProduct(context.Background(), id, user); !apperror.IsNotFound(err) {
		t.Fatalf("second delete must be not found, got %v", err)
	}
}

func TestMapError(t *testing.T) {
	if mapError(nil, "X") != nil {
		t.Error("nil stays nil")
	}

	plain := errors.New("boom")
	if !errors.Is(mapError(plain, "X"), plain) {
		t.Error("unknown errors pass through")
	}

	fk := mapError(&pq.Error{Code: "23503"}, "Product")
	if !apperror.IsValidation(fk) {
		t.Errorf("foreign key violations are validation errors, got %v", fk)
	}
}

func TestCreateProduct_NumericOverflowIsValidation(t *testing.T) {
	q, mock, _ := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products")).
		WillReturnError(&pq.Error{Code: "22003", Message: "numeric field overflow"})

	_, err := q.CreateProduct(context.Background(), CreateProductParams{Name: "Yacht", Price: 1e13})
	if !apperror.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if status := apperror.Status(err); status != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", status)
	}
	if err.Error() != "Value out of range for product" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestMapError_DataExceptions(t *testing.T) {
	for _, code := range []pq.ErrorCode{"22001", "22003", "22007"} {
		if err := mapError(&pq.Error{Code: code}, "Category"); !apperror.IsValidation(err) {
			t.Errorf("SQLSTATE %s: expected validation error, got %v", code, err)
		}
	}
}

func TestListPage_ContextCancelled(t *testing.T) {
	q, mock, _ := newMock(t)
	mock.MatchExpectationsInOrder(false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT id").WillReturnRows(sqlmock.NewRows(categoryColumns))

	rq := query.ResolvedQuery{Page: 1, Limit: 20, Sort: query.Sort{Column: "created_at", Tiebreak: "id"}}
	if _, _, err := q.ListCategories(ctx, rq); err == nil {
		t.Fatal("expected cancellation error")
	}
}
