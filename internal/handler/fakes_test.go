package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/emporia-labs/emporia-backend/internal/apperror"
	"github.com/emporia-labs/emporia-backend/internal/auth"
	"github.com/emporia-labs/emporia-backend/internal/events"
	"github.com/emporia-labs/emporia-backend/internal/middleware"
	"github.com/emporia-labs/emporia-backend/internal/model"
	"github.com/emporia-labs/emporia-backend/internal/query"
	"github.com/emporia-labs/emporia-backend/internal/repository"
)

// envelope mirrors Response with a raw payload for per-test decoding.
type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Details map[string]string `json:"details"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to parse response %q: %v", rr.Body.String(), err)
	}
	return env
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("failed to parse data %s: %v", env.Data, err)
	}
}

// serve routes a single request through a chi router so URL params resolve.
func serve(method, pattern string, h http.HandlerFunc, target, body string, p *auth.Principal) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if p != nil {
		req = req.WithContext(middleware.WithPrincipal(req.Context(), p))
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func admin() *auth.Principal {
	return &auth.Principal{ID: uuid.New(), Email: "admin@example.com", Role: model.RoleAdmin}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Topic
	}
	return out
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache { return &memCache{entries: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memCache) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

// fakeCatalog is an in-memory CategoryStore and ProductStore.
type fakeCatalog struct {
	mu         sync.Mutex
	categories map[uuid.UUID]model.Category
	products   map[uuid.UUID]model.Product
	slugsTaken map[string]bool
	children   map[uuid.UUID]int64
	calls      map[string]int
	lastQuery  *query.ResolvedQuery

	// loseToggleRace makes the next toggle fail as if another request won.
	loseToggleRace bool
	// appendErr fails AppendProductImage.
	appendErr error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		categories: map[uuid.UUID]model.Category{},
		products:   map[uuid.UUID]model.Product{},
		slugsTaken: map[string]bool{},
		children:   map[uuid.UUID]int64{},
		calls:      map[string]int{},
	}
}

func (f *fakeCatalog) record(name string) {
	f.calls[name]++
}

func (f *fakeCatalog) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeCatalog) addCategory(name string, parent *uuid.UUID) model.Category {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	c := model.Category{
		ID:        uuid.New(),
		Name:      name,
		Slug:      strings.ToLower(name),
		ParentID:  parent,
		IsActive:  true,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.categories[c.ID] = c
	f.slugsTaken[c.Slug] = true
	return c
}

func (f *fakeCatalog) CreateCategory(_ context.Context, arg repository.CreateCategoryParams) (model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateCategory")
	now := time.Now().UTC()
	createdBy := arg.CreatedBy
	c := model.Category{
		ID:          uuid.New(),
		Name:        arg.Name,
		Slug:        arg.Slug,
		Description: arg.Description,
		ParentID:    arg.ParentID,
		IsActive:    true,
		Version:     1,
		CreatedBy:   &createdBy,
		UpdatedBy:   &createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.categories[c.ID] = c
	f.slugsTaken[c.Slug] = true
	return c, nil
}

func (f *fakeCatalog) GetCategoryByID(_ context.Context, id uuid.UUID) (model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetCategoryByID")
	c, ok := f.categories[id]
	if !ok {
		return model.Category{}, apperror.NotFoundError{Resource: "Category"}
	}
	return c, nil
}

func (f *fakeCatalog) CategoryNameExists(_ context.Context, parentID *uuid.UUID, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CategoryNameExists")
	for _, c := range f.categories {
		sameParent := (c.ParentID == nil && parentID == nil) ||
			(c.ParentID != nil && parentID != nil && *c.ParentID == *parentID)
		if sameParent && c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCatalog) CategorySlugExists(_ context.Context, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CategorySlugExists")
	return f.slugsTaken[slug], nil
}

func (f *fakeCatalog) ListCategories(_ context.Context, rq query.ResolvedQuery) ([]model.Category, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListCategories")
	f.lastQuery = &rq
	var items []model.Category
	for _, c := range f.categories {
		items = append(items, c)
	}
	return items, int64(len(items)), nil
}

func (f *fakeCatalog) CountChildren(_ context.Context, parentIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CountChildren")
	out := map[uuid.UUID]int64{}
	for _, id := range parentIDs {
		if n, ok := f.children[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func (f *fakeCatalog) ToggleCategoryActive(_ context.Context, id uuid.UUID, version int64, updatedBy uuid.UUID) (model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ToggleCategoryActive")
	c, ok := f.categories[id]
	if !ok || f.loseToggleRace || c.Version != version {
		return model.Category{}, apperror.ConflictError{Msg: "Category was modified by another request, please retry"}
	}
	c.IsActive = !c.IsActive
	c.Version++
	c.UpdatedBy = &updatedBy
	f.categories[id] = c
	return c, nil
}

func (f *fakeCatalog) CreateProduct(_ context.Context, arg repository.CreateProductParams) (model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateProduct")
	if f.slugsTaken["product:"+arg.Slug] {
		return model.Product{}, apperror.ConflictError{Msg: "Product slug already exists"}
	}
	now := time.Now().UTC()
	createdBy := arg.CreatedBy
	p := model.Product{
		ID:              uuid.New(),
		Name:            arg.Name,
		Slug:            arg.Slug,
		Description:     arg.Description,
		Price:           arg.Price,
		DiscountPrice:   arg.DiscountPrice,
		SKU:             arg.SKU,
		Stock:           arg.Stock,
		CategoryID:      arg.CategoryID,
		Images:          arg.Images,
		Variants:        arg.Variants,
		MetaTitle:       arg.MetaTitle,
		MetaDescription: arg.MetaDescription,
		Tags:            arg.Tags,
		IsActive:        true,
		CreatedBy:       &createdBy,
		UpdatedBy:       &createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	f.products[p.ID] = p
	f.slugsTaken["product:"+p.Slug] = true
	return p, nil
}

func (f *fakeCatalog) GetProductByID(_ context.Context, id uuid.UUID) (model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetProductByID")
	p, ok := f.products[id]
	if !ok || p.DeletedAt != nil {
		return model.Product{}, apperror.NotFoundError{Resource: "Product"}
	}
	if c, ok := f.categories[p.CategoryID]; ok {
		p.Category = &model.CategorySummary{ID: c.ID, Name: c.Name, Slug: c.Slug, IsActive: c.IsActive}
	}
	return p, nil
}

func (f *fakeCatalog) ListProducts(_ context.Context, rq query.ResolvedQuery) ([]model.Product, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListProducts")
	f.lastQuery = &rq
	var items []model.Product
	for _, p := range f.products {
		if p.DeletedAt == nil {
			items = append(items, p)
		}
	}
	return items, int64(len(items)), nil
}

func (f *fakeCatalog) ProductSlugExists(_ context.Context, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ProductSlugExists")
	return f.slugsTaken["product:"+slug], nil
}

func (f *fakeCatalog) SoftDeleteProduct(_ context.Context, id, deletedBy uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SoftDeleteProduct")
	p, ok := f.products[id]
	if !ok || p.DeletedAt != nil {
		return apperror.NotFoundError{Resource: "Product"}
	}
	now := time.Now().UTC()
	p.DeletedAt = &now
	p.UpdatedBy = &deletedBy
	f.products[id] = p
	return nil
}

func (f *fakeCatalog) AppendProductImage(_ context.Context, id uuid.UUID, url string, updatedBy uuid.UUID) (model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AppendProductImage")
	if f.appendErr != nil {
		return model.Product{}, f.appendErr
	}
	p, ok := f.products[id]
	if !ok || p.DeletedAt != nil {
		return model.Product{}, apperror.NotFoundError{Resource: "Product"}
	}
	p.Images = append(p.Images, url)
	p.UpdatedBy = &updatedBy
	f.products[id] = p
	return p, nil
}

type fakeImages struct {
	uploaded []string
	deleted  []string
	err      error
}

func (f *fakeImages) Upload(_ context.Context, file io.Reader, filename, mimeType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.ReadAll(file); err != nil {
		return "", err
	}
	f.uploaded = append(f.uploaded, filename)
	return "https://images.example.com/" + filename, nil
}

func (f *fakeImages) Delete(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

type storedToken struct {
	userID    uuid.UUID
	expiresAt time.Time
	revoked   bool
}

// fakeIAM is an in-memory UserStore, CustomerStore and EmployeeStore.
type fakeIAM struct {
	mu         sync.Mutex
	users      map[uuid.UUID]model.User
	tokens     map[string]*storedToken
	customers  map[uuid.UUID]model.CustomerProfile
	employees  map[uuid.UUID]model.EmployeeProfile
	codesTaken map[string]bool
	failWith   error
}

func newFakeIAM() *fakeIAM {
	return &fakeIAM{
		users:      map[uuid.UUID]model.User{},
		tokens:     map[string]*storedToken{},
		customers:  map[uuid.UUID]model.CustomerProfile{},
		employees:  map[uuid.UUID]model.EmployeeProfile{},
		codesTaken: map[string]bool{},
	}
}

func (f *fakeIAM) addUser(email, passwordHash string, role model.Role) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	u := model.User{
		ID:           uuid.New(),
		FullName:     "Test User",
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeIAM) createUser(arg repository.CreateUserParams) (model.User, error) {
	for _, u := range f.users {
		if u.Email == arg.Email {
			return model.User{}, apperror.ConflictError{Resource: "User", Msg: "User already exists"}
		}
	}
	now := time.Now().UTC()
	u := model.User{
		ID:           uuid.New(),
		FullName:     arg.FullName,
		Email:        arg.Email,
		Phone:        arg.Phone,
		PasswordHash: arg.PasswordHash,
		Role:         arg.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeIAM) CreateUser(_ context.Context, arg repository.CreateUserParams) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createUser(arg)
}

func (f *fakeIAM) GetUserByID(_ context.Context, id uuid.UUID) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.User{}, apperror.NotFoundError{Resource: "User"}
	}
	return u, nil
}

func (f *fakeIAM) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return model.User{}, f.failWith
	}
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, apperror.NotFoundError{Resource: "User"}
}

func (f *fakeIAM) CreateRefreshToken(_ context.Context, arg repository.CreateRefreshTokenParams) (repository.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[arg.TokenHash] = &storedToken{userID: arg.UserID, expiresAt: arg.ExpiresAt}
	return repository.RefreshToken{ID: uuid.New(), UserID: arg.UserID, TokenHash: arg.TokenHash, ExpiresAt: arg.ExpiresAt}, nil
}

func (f *fakeIAM) GetRefreshTokenByHash(_ context.Context, tokenHash string) (repository.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[tokenHash]
	if !ok || t.revoked || time.Now().After(t.expiresAt) {
		return repository.RefreshToken{}, apperror.NotFoundError{Resource: "Refresh token"}
	}
	return repository.RefreshToken{UserID: t.userID, TokenHash: tokenHash, ExpiresAt: t.expiresAt}, nil
}

func (f *fakeIAM) RevokeRefreshToken(_ context.Context, tokenHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[tokenHash]
	if !ok || t.revoked {
		return false, nil
	}
	t.revoked = true
	return true, nil
}

func (f *fakeIAM) liveTokens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tokens {
		if !t.revoked {
			n++
		}
	}
	return n
}

func (f *fakeIAM) GetCustomerByUserID(_ context.Context, userID uuid.UUID) (model.CustomerProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[userID]
	if !ok {
		return model.CustomerProfile{}, apperror.NotFoundError{Resource: "Customer profile"}
	}
	return c, nil
}

func (f *fakeIAM) GetEmployeeByUserID(_ context.Context, userID uuid.UUID) (model.EmployeeProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.employees {
		if e.UserID == userID {
			return e, nil
		}
	}
	return model.EmployeeProfile{}, apperror.NotFoundError{Resource: "Employee profile"}
}

func (f *fakeIAM) CustomerProfileExists(_ context.Context, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.customers[userID]
	return ok, nil
}

func (f *fakeIAM) ListCustomers(_ context.Context, rq query.ResolvedQuery) ([]model.CustomerProfile, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []model.CustomerProfile
	for _, c := range f.customers {
		items = append(items, c)
	}
	return items, int64(len(items)), nil
}

func (f *fakeIAM) newCustomer(u model.User, arg repository.CreateCustomerProfileParams) model.CustomerProfile {
	now := time.Now().UTC()
	c := model.CustomerProfile{
		ID:           uuid.New(),
		UserID:       u.ID,
		Address:      arg.Address,
		Gender:       arg.Gender,
		DateOfBirth:  arg.DateOfBirth,
		CustomerType: arg.CustomerType,
		LoyaltyTier:  "iron",
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
		FullName:     u.FullName,
		Email:        u.Email,
	}
	f.customers[u.ID] = c
	return c
}

func (f *fakeIAM) SignupCustomer(_ context.Context, user repository.CreateUserParams, profile repository.CreateCustomerProfileParams) (model.User, model.CustomerProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.createUser(user)
	if err != nil {
		return model.User{}, model.CustomerProfile{}, err
	}
	return u, f.newCustomer(u, profile), nil
}

func (f *fakeIAM) RegisterCustomer(_ context.Context, user model.User, profile repository.CreateCustomerProfileParams) (model.CustomerProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.Role == model.RoleUser {
		user.Role = model.RoleCustomer
		f.users[user.ID] = user
	}
	return f.newCustomer(user, profile), nil
}

func (f *fakeIAM) EmployeeProfileExists(_ context.Context, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.employees {
		if e.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeIAM) EmployeeCodeExists(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codesTaken[code], nil
}

func (f *fakeIAM) GetEmployeeByID(_ context.Context, id uuid.UUID) (model.EmployeeProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.employees[id]
	if !ok {
		return model.EmployeeProfile{}, apperror.NotFoundError{Resource: "Employee profile"}
	}
	return e, nil
}

func (f *fakeIAM) ListEmployees(_ context.Context, rq query.ResolvedQuery) ([]model.EmployeeProfile, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []model.EmployeeProfile
	for _, e := range f.employees {
		items = append(items, e)
	}
	return items, int64(len(items)), nil
}

func (f *fakeIAM) RegisterEmployee(_ context.Context, user model.User, arg repository.CreateEmployeeProfileParams) (model.EmployeeProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.codesTaken[arg.EmployeeCode] {
		return model.EmployeeProfile{}, errors.New("code reused")
	}
	now := time.Now().UTC()
	createdBy := arg.CreatedBy
	e := model.EmployeeProfile{
		ID:               uuid.New(),
		UserID:           user.ID,
		EmployeeCode:     arg.EmployeeCode,
		EmployeeType:     arg.EmployeeType,
		Phone:            arg.Phone,
		Gender:           arg.Gender,
		DateOfBirth:      arg.DateOfBirth,
		Address:          arg.Address,
		EmergencyContact: arg.EmergencyContact,
		EmploymentType:   arg.EmploymentType,
		Designation:      arg.Designation,
		Department:       arg.Department,
		JoiningDate:      arg.JoiningDate,
		Status:           model.EmploymentActive,
		Salary:           arg.Salary,
		SalaryCurrency:   arg.SalaryCurrency,
		SalaryFrequency:  arg.SalaryFrequency,
		SupervisorID:     arg.SupervisorID,
		Skills:           arg.Skills,
		CreatedBy:        &createdBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	f.employees[e.ID] = e
	f.codesTaken[e.EmployeeCode] = true
	if user.Role != model.RoleAdmin {
		user.Role = arg.EmployeeType.Role()
		f.users[user.ID] = user
	}
	return e, nil
}

var (
	_ CategoryStore = (*fakeCatalog)(nil)
	_ ProductStore  = (*fakeCatalog)(nil)
	_ UserStore     = (*fakeIAM)(nil)
	_ CustomerStore = (*fakeIAM)(nil)
	_ EmployeeStore = (*fakeIAM)(nil)
)
