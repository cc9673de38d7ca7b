package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/emporia-labs/emporia-backend/internal/apperror"
	"github.com/emporia-labs/emporia-backend/internal/cache"
	"github.com/emporia-labs/emporia-backend/internal/events"
	"github.com/emporia-labs/emporia-backend/internal/model"
	"github.com/emporia-labs/emporia-backend/internal/query"
	"github.com/emporia-labs/emporia-backend/internal/repository"
	"github.com/emporia-labs/emporia-backend/internal/util"
)

type CategoryHandler struct {
	store CategoryStore
	serviceDeps
}

func NewCategoryHandler(store CategoryStore, c cache.Cache, p events.Publisher, log *slog.Logger) *CategoryHandler {
	return &CategoryHandler{store: store, serviceDeps: newServiceDeps(c, p, log)}
}

// Create handles POST /categories
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	var req model.CreateCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		respondAppError(w, r, h.log, validationFailed(errs))
		return
	}

	ctx := r.Context()

	var parentID *uuid.UUID
	if req.Parent != nil {
		id, err := parseID(*req.Parent, "parent")
		if err != nil {
			respondAppError(w, r, h.log, err)
			return
		}
		if _, err := h.store.GetCategoryByID(ctx, id); err != nil {
			if apperror.IsNotFound(err) {
				err = apperror.NotFoundError{Resource: "Parent category", Err: err}
			}
			respondAppError(w, r, h.log, err)
			return
		}
		parentID = &id
	}

	taken, err := h.store.CategoryNameExists(ctx, parentID, req.Name)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	if taken {
		respondAppError(w, r, h.log, apperror.ConflictError{
			Resource: "Category",
			Msg:      "Category with this name already exists under same parent",
		})
		return
	}

	slug, err := uniqueSlug(ctx, util.SlugBase(req.Name, model.CategorySlugMaxLen), h.store.CategorySlugExists)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	category, err := h.store.CreateCategory(ctx, repository.CreateCategoryParams{
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		ParentID:    parentID,
		CreatedBy:   p.ID,
	})
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	h.publish(ctx, events.New(events.EntityCategory, events.ActionCreated, category.ID, category))
	respondSuccess(w, http.StatusCreated, "Category created successfully", category)
}

// List handles GET /categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	rq, err := query.Parse(r.URL.Query(), model.CategoryQueryConfig())
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	ctx := r.Context()
	items, total, err := h.store.ListCategories(ctx, rq)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	if rq.Wants(model.IncludeChildrenCount) && len(items) > 0 {
		idOf := func(c model.Category) uuid.UUID { return c.ID }
		counts, err := h.store.CountChildren(ctx, query.IDs(items, idOf))
		if err != nil {
			respondAppError(w, r, h.log, err)
			return
		}
		query.AttachCounts(items, idOf, counts, func(c *model.Category, n int64) {
			c.ChildrenCount = &n
		})
	}

	data, err := listPayload(items, total, rq)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Categories fetched", data)
}

// Get handles GET /categories/{id}
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"), "category")
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	ctx := r.Context()
	category, err := cached(ctx, h.serviceDeps, cache.CategoryKey(id), func() (model.Category, error) {
		return h.store.GetCategoryByID(ctx, id)
	})
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Category fetched", category)
}

// ToggleActive handles PATCH /categories/{id}/toggle-active. The flip is
// conditional on the version read here, so a concurrent toggle fails with a
// conflict.
func (h *CategoryHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	id, err := parseID(chi.URLParam(r, "id"), "category")
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	ctx := r.Context()
	current, err := h.store.GetCategoryByID(ctx, id)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	updated, err := h.store.ToggleCategoryActive(ctx, id, current.Version, p.ID)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	h.invalidate(ctx, cache.CategoryKey(id))
	h.publish(ctx, events.New(events.EntityCategory, events.ActionToggled, id, map[string]bool{"isActive": updated.IsActive}))

	message := "Category deactivated successfully"
	if updated.IsActive {
		message = "Category activated successfully"
	}
	respondSuccess(w, http.StatusOK, message, updated)
}
