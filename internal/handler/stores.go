package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/emporia-labs/emporia-backend/internal/model"
	"github.com/emporia-labs/emporia-backend/internal/query"
	"github.com/emporia-labs/emporia-backend/internal/repository"
)

// The store interfaces are satisfied by *repository.Store; tests use fakes.

type CategoryStore interface {
	CreateCategory(ctx context.Context, arg repository.CreateCategoryParams) (model.Category, error)
	GetCategoryByID(ctx context.Context, id uuid.UUID) (model.Category, error)
	CategoryNameExists(ctx context.Context, parentID *uuid.UUID, name string) (bool, error)
	CategorySlugExists(ctx context.Context, slug string) (bool, error)
	ListCategories(ctx context.Context, rq query.ResolvedQuery) ([]model.Category, int64, error)
	CountChildren(ctx context.Context, parentIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	ToggleCategoryActive(ctx context.Context, id uuid.UUID, version int64, updatedBy uuid.UUID) (model.Category, error)
}

type ProductStore interface {
	GetCategoryByID(ctx context.Context, id uuid.UUID) (model.Category, error)
	CreateProduct(ctx context.Context, arg repository.CreateProductParams) (model.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (model.Product, error)
	ListProducts(ctx context.Context, rq query.ResolvedQuery) ([]model.Product, int64, error)
	ProductSlugExists(ctx context.Context, slug string) (bool, error)
	SoftDeleteProduct(ctx context.Context, id, deletedBy uuid.UUID) error
	AppendProductImage(ctx context.Context, id uuid.UUID, url string, updatedBy uuid.UUID) (model.Product, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, arg repository.CreateUserParams) (model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	CreateRefreshToken(ctx context.Context, arg repository.CreateRefreshTokenParams) (repository.RefreshToken, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (repository.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) (bool, error)
	GetCustomerByUserID(ctx context.Context, userID uuid.UUID) (model.CustomerProfile, error)
	GetEmployeeByUserID(ctx context.Context, userID uuid.UUID) (model.EmployeeProfile, error)
}

type CustomerStore interface {
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	CustomerProfileExists(ctx context.Context, userID uuid.UUID) (bool, error)
	GetCustomerByUserID(ctx context.Context, userID uuid.UUID) (model.CustomerProfile, error)
	ListCustomers(ctx context.Context, rq query.ResolvedQuery) ([]model.CustomerProfile, int64, error)
	SignupCustomer(ctx context.Context, user repository.CreateUserParams, profile repository.CreateCustomerProfileParams) (model.User, model.CustomerProfile, error)
	RegisterCustomer(ctx context.Context, user model.User, profile repository.CreateCustomerProfileParams) (model.CustomerProfile, error)
}

type EmployeeStore interface {
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	EmployeeProfileExists(ctx context.Context, userID uuid.UUID) (bool, error)
	EmployeeCodeExists(ctx context.Context, code string) (bool, error)
	GetEmployeeByID(ctx context.Context, id uuid.UUID) (model.EmployeeProfile, error)
	ListEmployees(ctx context.Context, rq query.ResolvedQuery) ([]model.EmployeeProfile, int64, error)
	RegisterEmployee(ctx context.Context, user model.User, profile repository.CreateEmployeeProfileParams) (model.EmployeeProfile, error)
}

var (
	_ CategoryStore = (*repository.Store)(nil)
	_ ProductStore  = (*repository.Store)(nil)
	_ UserStore     = (*repository.Store)(nil)
	_ CustomerStore = (*repository.Store)(nil)
	_ EmployeeStore = (*repository.Store)(nil)
)
