package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/emporia-labs/emporia-backend/internal/apperror"
	"github.com/emporia-labs/emporia-backend/internal/events"
	"github.com/emporia-labs/emporia-backend/internal/model"
	"github.com/emporia-labs/emporia-backend/internal/query"
	"github.com/emporia-labs/emporia-backend/internal/repository"
	"github.com/emporia-labs/emporia-backend/internal/util"
)

const maxCodeAttempts = 10

type EmployeeHandler struct {
	store EmployeeStore
	serviceDeps
}

func NewEmployeeHandler(store EmployeeStore, p events.Publisher, log *slog.Logger) *EmployeeHandler {
	return &EmployeeHandler{store: store, serviceDeps: newServiceDeps(nil, p, log)}
}

// Register handles POST /employees/register
func (h *EmployeeHandler) Register(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	var req model.RegisterEmployeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		respondAppError(w, r, h.log, validationFailed(errs))
		return
	}

	ctx := r.Context()
	user, err := h.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	exists, err := h.store.EmployeeProfileExists(ctx, user.ID)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	if exists {
		respondAppError(w, r, h.log, apperror.ConflictError{Msg: "Employee profile already exists for this user"})
		return
	}

	var supervisorID *uuid.UUID
	if req.Supervisor != nil {
		id, err := parseID(*req.Supervisor, "supervisor")
		if err != nil {
			respondAppError(w, r, h.log, err)
			return
		}
		if _, err := h.store.GetEmployeeByID(ctx, id); err != nil {
			if apperror.IsNotFound(err) {
				err = apperror.NotFoundError{Resource: "Supervisor", Err: err}
			}
			respondAppError(w, r, h.log, err)
			return
		}
		supervisorID = &id
	}

	code, err := h.employeeCode(ctx, req)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	profile, err := h.store.RegisterEmployee(ctx, user, repository.CreateEmployeeProfileParams{
		EmployeeCode:     code,
		EmployeeType:     req.EmployeeType,
		Phone:            req.Phone,
		Gender:           req.Gender,
		DateOfBirth:      req.DateOfBirth,
		Address:          req.Address,
		EmergencyContact: req.EmergencyContact,
		EmploymentType:   req.EmploymentType,
		Designation:      req.Designation,
		Department:       req.Department,
		JoiningDate:      req.JoiningDate,
		Salary:           *req.Salary,
		SalaryCurrency:   req.SalaryCurrency,
		SalaryFrequency:  req.SalaryFrequency,
		SupervisorID:     supervisorID,
		Skills:           req.Skills,
		CreatedBy:        p.ID,
	})
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	h.publish(ctx, events.New(events.EntityEmployee, events.ActionCreated, profile.ID, map[string]string{
		"employeeCode": profile.EmployeeCode,
		"userId":       profile.UserID.String(),
	}))
	respondSuccess(w, http.StatusCreated, "Employee profile created", profile)
}

// employeeCode draws codes until one is unused.
func (h *EmployeeHandler) employeeCode(ctx context.Context, req model.RegisterEmployeeRequest) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := util.EmployeeCode(req.Department, req.Designation, string(req.Gender))
		taken, err := h.store.EmployeeCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", apperror.ConflictError{Msg: "Could not generate a unique employee code, please retry"}
}

// List handles GET /employees
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	rq, err := query.Parse(r.URL.Query(), model.EmployeeQueryConfig())
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	items, total, err := h.store.ListEmployees(r.Context(), rq)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	data, err := listPayload(items, total, rq)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Employees fetched", data)
}

// Get handles GET /employees/{id}
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"), "employee")
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	profile, err := h.store.GetEmployeeByID(r.Context(), id)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Employee profile fetched", profile)
}
