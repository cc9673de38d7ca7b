package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/emporia-labs/emporia-backend/internal/model"
	"github.com/emporia-labs/emporia-backend/internal/query"
)

const customerResource = "Customer profile"

var customerColumns = []string{
	"id", "user_id", "address", "gender", "date_of_birth", "customer_type",
	"loyalty_tier", "status", "created_by", "created_at", "updated_at",
}

type CreateCustomerProfileParams struct {
	UserID       uuid.UUID
	Address      model.Address
	Gender       model.Gender
	DateOfBirth  model.Date
	CustomerType model.CustomerType
	CreatedBy    uuid.UUID
}

func customerTargets(c *model.CustomerProfile) []interface{} {
	return []interface{}{
		&c.ID,
		&c.UserID,
		&c.Address,
		&c.Gender,
		&c.DateOfBirth,
		&c.CustomerType,
		&c.LoyaltyTier,
		&c.Status,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
}

func scanCustomer(row rowScanner) (model.CustomerProfile, error) {
	var c model.CustomerProfile
	err := row.Scan(customerTargets(&c)...)
	return c, err
}

func scanCustomerWithUser(row rowScanner) (model.CustomerProfile, error) {
	var c model.CustomerProfile
	err := row.Scan(append(customerTargets(&c), &c.FullName, &c.Email)...)
	return c, err
}

func customersWithUser(cols ...string) sq.SelectBuilder {
	return psql.Select(cols...).
		From("customer_profiles c").
		Join("users u ON u.id = c.user_id")
}

func (q *Queries) CreateCustomerProfile(ctx context.Context, arg CreateCustomerProfileParams) (model.CustomerProfile, error) {
	sqlStr, args, err := psql.Insert("customer_profiles").
		Columns("user_id", "address", "gender", "date_of_birth", "customer_type", "created_by").
		Values(arg.UserID, arg.Address, string(arg.Gender), arg.DateOfBirth, string(arg.CustomerType), arg.CreatedBy).
		Suffix("RETURNING " + joinColumns(customerColumns)).
		ToSql()
	if err != nil {
		return model.CustomerProfile{}, fmt.Errorf("failed to build insert: %w", err)
	}
	c, err := scanCustomer(q.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		return model.CustomerProfile{}, mapError(err, customerResource)
	}
	return c, nil
}

func (q *Queries) GetCustomerByUserID(ctx context.Context, userID uuid.UUID) (model.CustomerProfile, error) {
	cols := append(qualify("c", customerColumns), "u.full_name", "u.email")
	b := customersWithUser(cols...).Where(sq.Eq{"c.user_id": userID.String()})
	return getOne(ctx, q.db, b, customerResource, scanCustomerWithUser)
}

func (q *Queries) CustomerProfileExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	return q.exists(ctx, psql.Select("1").From("customer_profiles").Where(sq.Eq{"user_id": userID.String()}))
}

func (q *Queries) ListCustomers(ctx context.Context, rq query.ResolvedQuery) ([]model.CustomerProfile, int64, error) {
	cols := append(qualify("c", customerColumns), "u.full_name", "u.email")
	return listPage(ctx, q.db, customersWithUser(cols...), customersWithUser("COUNT(*)"), rq, scanCustomerWithUser)
}

// SignupCustomer creates the account and its customer profile in one transaction.
func (s *Store) SignupCustomer(ctx context.Context, user CreateUserParams, profile CreateCustomerProfileParams) (model.User, model.CustomerProfile, error) {
	var (
		u model.User
		c model.CustomerProfile
	)
	err := s.ExecTx(ctx, func(q *Queries) error {
		var err error
		u, err = q.CreateUser(ctx, user)
		if err != nil {
			return err
		}
		profile.UserID = u.ID
		profile.CreatedBy = u.ID
		c, err = q.CreateCustomerProfile(ctx, profile)
		return err
	})
	if err != nil {
		return model.User{}, model.CustomerProfile{}, err
	}
	c.FullName = u.FullName
	c.Email = u.Email
	return u, c, nil
}

// RegisterCustomer attaches a profile to an existing account and promotes it
// to the customer role, atomically.
func (s *Store) RegisterCustomer(ctx context.Context, user model.User, profile CreateCustomerProfileParams) (model.CustomerProfile, error) {
	var c model.CustomerProfile
	err := s.ExecTx(ctx, func(q *Queries) error {
		var err error
		profile.UserID = user.ID
		c, err = q.CreateCustomerProfile(ctx, profile)
		if err != nil {
			return err
		}
		if user.Role == model.RoleUser {
			return q.SetUserRole(ctx, user.ID, model.RoleCustomer)
		}
		return nil
	})
	if err != nil {
		return model.CustomerProfile{}, err
	}
	c.FullName = user.FullName
	c.Email = user.Email
	return c, nil
}
