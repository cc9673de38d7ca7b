package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/emporia-labs/emporia-backend/internal/apperror"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Use PostgreSQL placeholder format ($1, $2, etc.)
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Store adds transactions on top of Queries.
type Store struct {
	*Queries
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{Queries: New(db), db: db}
}

// ExecTx runs fn inside a transaction, rolling back when fn fails.
func (s *Store) ExecTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(s.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqDataExceptionClass  = "22"
)

// uniqueConstraints maps constraint names to client-facing conflict messages.
var uniqueConstraints = map[string]string{
	"users_email_key":               "User already exists",
	"categories_parent_name_key":    "Category with this name already exists under same parent",
	"categories_root_name_key":      "Category with this name already exists under same parent",
	"categories_slug_key":           "Category slug already exists",
	"products_slug_key":             "Product slug already exists",
	"products_sku_key":              "Product SKU already exists",
	"products_category_name_key":    "Product with this name already exists in category",
	"customer_profiles_user_id_key": "Customer profile already exists",
	"employee_profiles_user_id_key": "Employee profile already exists for this user",
	"employee_profiles_code_key":    "Employee code already exists",
	"refresh_tokens_token_hash_key": "Refresh token already exists",
}

// mapError turns driver errors into apperror types. sql.ErrNoRows becomes
// NotFoundError for resource.
func mapError(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFoundError{Resource: resource, Err: err}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			msg, ok := uniqueConstraints[pqErr.Constraint]
			if !ok {
				msg = fmt.Sprintf("%s already exists", resource)
			}
			return apperror.ConflictError{Resource: resource, Msg: msg, Err: err}
		case pqForeignKeyViolation:
			return apperror.ValidationError{Msg: "Referenced record does not exist", Err: err}
		}
		// Out of range numbers, overlong strings and the like.
		if pqErr.Code.Class() == pqDataExceptionClass {
			return apperror.ValidationError{Msg: "Value out of range for " + strings.ToLower(resource), Err: err}
		}
	}
	return err
}
