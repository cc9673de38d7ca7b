package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"golang.org/x/sync/errgroup"

	"github.com/emporia-labs/emporia-backend/internal/query"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// listPage runs the filtered count and the filtered page concurrently and
// returns them once both finish. base must select exactly the columns scan
// reads; count is the same FROM/JOIN with a COUNT(*) projection.
func listPage[T any](ctx context.Context, db DBTX, base, count sq.SelectBuilder, rq query.ResolvedQuery, scan func(rowScanner) (T, error)) ([]T, int64, error) {
	var (
		items []T
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		countSQL, countArgs, err := rq.Where(count).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build count query: %w", err)
		}
		if err := db.QueryRowContext(gctx, countSQL, countArgs...).Scan(&total); err != nil {
			return fmt.Errorf("failed to execute count query: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		selectSQL, selectArgs, err := rq.Apply(base).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build select query: %w", err)
		}
		rows, err := db.QueryContext(gctx, selectSQL, selectArgs...)
		if err != nil {
			return fmt.Errorf("failed to execute select query: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			item, err := scan(rows)
			if err != nil {
				return fmt.Errorf("failed to scan row: %w", err)
			}
			items = append(items, item)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating rows: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []T{}
	}
	return items, total, nil
}

// getOne runs a single-row query and maps sql.ErrNoRows to NotFoundError.
func getOne[T any](ctx context.Context, db DBTX, b sq.SelectBuilder, resource string, scan func(rowScanner) (T, error)) (T, error) {
	var zero T

	sqlStr, args, err := b.ToSql()
	if err != nil {
		return zero, fmt.Errorf("failed to build query: %w", err)
	}
	item, err := scan(db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		return zero, mapError(err, resource)
	}
	return item, nil
}

// exec runs a write and reports the affected row count.
func exec(ctx context.Context, db DBTX, b sq.Sqlizer) (int64, error) {
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build statement: %w", err)
	}
	res, err := db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}

// qualify prefixes every column with a table alias.
func qualify(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}

var _ rowScanner = (*sql.Row)(nil)
