package handler

import (
	"log/slog"
	"net/http"

	"github.com/emporia-labs/emporia-backend/internal/apperror"
	"github.com/emporia-labs/emporia-backend/internal/auth"
	"github.com/emporia-labs/emporia-backend/internal/events"
	"github.com/emporia-labs/emporia-backend/internal/model"
	"github.com/emporia-labs/emporia-backend/internal/query"
	"github.com/emporia-labs/emporia-backend/internal/repository"
)

type CustomerHandler struct {
	store CustomerStore
	serviceDeps
}

func NewCustomerHandler(store CustomerStore, p events.Publisher, log *slog.Logger) *CustomerHandler {
	return &CustomerHandler{store: store, serviceDeps: newServiceDeps(nil, p, log)}
}

type customerSignupResponse struct {
	User    model.UserResponse    `json:"user"`
	Profile model.CustomerProfile `json:"profile"`
}

// Register handles POST /customers/register. Callers register their own
// account; admins and managers may register any account.
func (h *CustomerHandler) Register(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	var req model.RegisterCustomerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		respondAppError(w, r, h.log, validationFailed(errs))
		return
	}
	if req.Email != p.Email {
		if err := auth.RequireRole(p, model.RoleAdmin, model.RoleManager); err != nil {
			respondAppError(w, r, h.log, err)
			return
		}
	}

	ctx := r.Context()
	user, err := h.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	exists, err := h.store.CustomerProfileExists(ctx, user.ID)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	if exists {
		respondAppError(w, r, h.log, apperror.ConflictError{Msg: "Customer profile already exists"})
		return
	}

	profile, err := h.store.RegisterCustomer(ctx, user, repository.CreateCustomerProfileParams{
		Address:      req.Address,
		Gender:       req.Gender,
		DateOfBirth:  req.DateOfBirth,
		CustomerType: req.CustomerType,
		CreatedBy:    p.ID,
	})
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	h.publish(ctx, events.New(events.EntityCustomer, events.ActionCreated, profile.ID, profile))
	respondSuccess(w, http.StatusCreated, "Customer profile created", profile)
}

// Signup handles POST /customers/signup
func (h *CustomerHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.CustomerSignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		respondAppError(w, r, h.log, validationFailed(errs))
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	ctx := r.Context()
	user, profile, err := h.store.SignupCustomer(ctx,
		repository.CreateUserParams{
			FullName:     req.FullName,
			Email:        req.Email,
			Phone:        &req.Phone,
			PasswordHash: hash,
			Role:         model.RoleCustomer,
		},
		repository.CreateCustomerProfileParams{
			Address:      req.Address,
			Gender:       req.Gender,
			DateOfBirth:  req.DateOfBirth,
			CustomerType: req.CustomerType,
		},
	)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	h.publish(ctx, events.New(events.EntityCustomer, events.ActionCreated, profile.ID, profile))
	respondSuccess(w, http.StatusCreated, "Customer created successfully", customerSignupResponse{
		User:    model.NewUserResponse(user),
		Profile: profile,
	})
}

// Profile handles GET /customers/profile
func (h *CustomerHandler) Profile(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	profile, err := h.store.GetCustomerByUserID(r.Context(), p.ID)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Customer profile fetched", profile)
}

// List handles GET /customers
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	rq, err := query.Parse(r.URL.Query(), model.CustomerQueryConfig())
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	items, total, err := h.store.ListCustomers(r.Context(), rq)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	data, err := listPayload(items, total, rq)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Customers fetched", data)
}
