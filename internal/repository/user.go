package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/emporia-labs/emporia-backend/internal/apperror"
	"github.com/emporia-labs/emporia-backend/internal/model"
)

const userResource = "User"

var userColumns = []string{
	"id", "full_name", "email", "phone", "password_hash", "role",
	"email_verified", "is_active", "created_at", "updated_at",
}

type CreateUserParams struct {
	FullName     string
	Email        string
	Phone        *string
	PasswordHash string
	Role         model.Role
}

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.Phone,
		&u.PasswordHash,
		&u.Role,
		&u.EmailVerified,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	sqlStr, args, err := psql.Insert("users").
		Columns("full_name", "email", "phone", "password_hash", "role").
		Values(arg.FullName, arg.Email, arg.Phone, arg.PasswordHash, string(arg.Role)).
		Suffix("RETURNING " + joinColumns(userColumns)).
		ToSql()
	if err != nil {
		return model.User{}, fmt.Errorf("failed to build insert: %w", err)
	}
	u, err := scanUser(q.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		return model.User{}, mapError(err, userResource)
	}
	return u, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	b := psql.Select(userColumns...).From("users").Where(sq.Eq{"id": id.String()})
	return getOne(ctx, q.db, b, userResource, scanUser)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	b := psql.Select(userColumns...).From("users").Where(sq.Eq{"email": email})
	return getOne(ctx, q.db, b, userResource, scanUser)
}

// SetUserRole promotes an account once a profile is attached to it.
func (q *Queries) SetUserRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	n, err := exec(ctx, q.db, psql.Update("users").
		Set("role", string(role)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id.String()}))
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	if n == 0 {
		return apperror.NotFoundError{Resource: userResource}
	}
	return nil
}

type CreateRefreshTokenParams struct {
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	UserAgent *string
	IPAddress *string
}

type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (q *Queries) CreateRefreshToken(ctx context.Context, arg CreateRefreshTokenParams) (RefreshToken, error) {
	sqlStr, args, err := psql.Insert("refresh_tokens").
		Columns("user_id", "token_hash", "expires_at", "user_agent", "ip_address").
		Values(arg.UserID, arg.TokenHash, arg.ExpiresAt, arg.UserAgent, arg.IPAddress).
		Suffix("RETURNING id, user_id, token_hash, expires_at, created_at").
		ToSql()
	if err != nil {
		return RefreshToken{}, fmt.Errorf("failed to build insert: %w", err)
	}

	var t RefreshToken
	err = q.db.QueryRowContext(ctx, sqlStr, args...).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return RefreshToken{}, mapError(err, "Refresh token")
	}
	return t, nil
}

// GetRefreshTokenByHash returns an unrevoked, unexpired token.
func (q *Queries) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (RefreshToken, error) {
	b := psql.Select("id", "user_id", "token_hash", "expires_at", "created_at").
		From("refresh_tokens").
		Where(sq.Eq{"token_hash": tokenHash, "revoked_at": nil}).
		Where(sq.Expr("expires_at > NOW()"))

	return getOne(ctx, q.db, b, "Refresh token", func(row rowScanner) (RefreshToken, error) {
		var t RefreshToken
		err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
		return t, err
	})
}

// RevokeRefreshToken reports whether a live token was revoked.
func (q *Queries) RevokeRefreshToken(ctx context.Context, tokenHash string) (bool, error) {
	n, err := exec(ctx, q.db, psql.Update("refresh_tokens").
		Set("revoked_at", sq.Expr("NOW()")).
		Where(sq.Eq{"token_hash": tokenHash, "revoked_at": nil}))
	if err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return n > 0, nil
}
