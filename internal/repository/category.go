package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/emporia-labs/emporia-backend/internal/apperror"
	"github.com/emporia-labs/emporia-backend/internal/model"
	"github.com/emporia-labs/emporia-backend/internal/query"
)

const categoryResource = "Category"

var categoryColumns = []string{
	"id", "name", "slug", "description", "parent_id", "is_active", "version",
	"created_by", "updated_by", "created_at", "updated_at",
}

type CreateCategoryParams struct {
	Name        string
	Slug        string
	Description *string
	ParentID    *uuid.UUID
	CreatedBy   uuid.UUID
}

func scanCategory(row rowScanner) (model.Category, error) {
	var c model.Category
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&c.Description,
		&c.ParentID,
		&c.IsActive,
		&c.Version,
		&c.CreatedBy,
		&c.UpdatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

// eqID matches col against id, or IS NULL when id is nil.
func eqID(col string, id *uuid.UUID) sq.Eq {
	if id == nil {
		return sq.Eq{col: nil}
	}
	return sq.Eq{col: id.String()}
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (model.Category, error) {
	b := psql.Insert("categories").
		Columns("name", "slug", "description", "parent_id", "is_active", "created_by", "updated_by").
		Values(arg.Name, arg.Slug, arg.Description, arg.ParentID, true, arg.CreatedBy, arg.CreatedBy).
		Suffix("RETURNING " + joinColumns(categoryColumns))

	sqlStr, args, err := b.ToSql()
	if err != nil {
		return model.Category{}, fmt.Errorf("failed to build insert: %w", err)
	}
	c, err := scanCategory(q.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		return model.Category{}, mapError(err, categoryResource)
	}
	return c, nil
}

func (q *Queries) GetCategoryByID(ctx context.Context, id uuid.UUID) (model.Category, error) {
	b := psql.Select(categoryColumns...).From("categories").Where(sq.Eq{"id": id.String()})
	return getOne(ctx, q.db, b, categoryResource, scanCategory)
}

// CategoryNameExists reports whether a sibling under parentID already uses name.
func (q *Queries) CategoryNameExists(ctx context.Context, parentID *uuid.UUID, name string) (bool, error) {
	return q.exists(ctx, psql.Select("1").From("categories").
		Where(eqID("parent_id", parentID)).
		Where(sq.Eq{"name": name}))
}

func (q *Queries) CategorySlugExists(ctx context.Context, slug string) (bool, error) {
	return q.exists(ctx, psql.Select("1").From("categories").Where(sq.Eq{"slug": slug}))
}

func (q *Queries) ListCategories(ctx context.Context, rq query.ResolvedQuery) ([]model.Category, int64, error) {
	base := psql.Select(categoryColumns...).From("categories")
	count := psql.Select("COUNT(*)").From("categories")
	return listPage(ctx, q.db, base, count, rq, scanCategory)
}

// CountChildren returns the number of direct children per parent id. Parents
// without children are absent from the map.
func (q *Queries) CountChildren(ctx context.Context, parentIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(parentIDs))
	if len(parentIDs) == 0 {
		return counts, nil
	}

	ids := make([]string, len(parentIDs))
	for i, id := range parentIDs {
		ids[i] = id.String()
	}

	sqlStr, args, err := psql.Select("parent_id", "COUNT(*)").
		From("categories").
		Where(sq.Expr("parent_id = ANY(?::uuid[])", pq.Array(ids))).
		GroupBy("parent_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build children count query: %w", err)
	}

	rows, err := q.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute children count query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			parentID uuid.UUID
			n        int64
		)
		if err := rows.Scan(&parentID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan children count: %w", err)
		}
		counts[parentID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating children counts: %w", err)
	}
	return counts, nil
}

// ToggleCategoryActive flips is_active only if the row is still at version.
// A concurrent writer that got there first turns this into a ConflictError.
func (q *Queries) ToggleCategoryActive(ctx context.Context, id uuid.UUID, version int64, updatedBy uuid.UUID) (model.Category, error) {
	sqlStr, args, err := psql.Update("categories").
		Set("is_active", sq.Expr("NOT is_active")).
		Set("version", sq.Expr("version + 1")).
		Set("updated_by", updatedBy).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id.String(), "version": version}).
		Suffix("RETURNING " + joinColumns(categoryColumns)).
		ToSql()
	if err != nil {
		return model.Category{}, fmt.Errorf("failed to build update: %w", err)
	}

	c, err := scanCategory(q.db.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, apperror.ConflictError{
			Resource: categoryResource,
			Msg:      "Category was modified by another request, please retry",
			Err:      err,
		}
	}
	if err != nil {
		return model.Category{}, mapError(err, categoryResource)
	}
	return c, nil
}

func (q *Queries) exists(ctx context.Context, b sq.SelectBuilder) (bool, error) {
	inner, args, err := b.Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build exists query: %w", err)
	}
	var found bool
	if err := q.db.QueryRowContext(ctx, "SELECT EXISTS ("+inner+")", args...).Scan(&found); err != nil {
		return false, fmt.Errorf("failed to execute exists query: %w", err)
	}
	return found, nil
}
