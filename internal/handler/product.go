package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/emporia-labs/emporia-backend/internal/apperror"
	"github.com/emporia-labs/emporia-backend/internal/cache"
	"github.com/emporia-labs/emporia-backend/internal/events"
	"github.com/emporia-labs/emporia-backend/internal/model"
	"github.com/emporia-labs/emporia-backend/internal/query"
	"github.com/emporia-labs/emporia-backend/internal/repository"
	"github.com/emporia-labs/emporia-backend/internal/storage"
	"github.com/emporia-labs/emporia-backend/internal/util"
)

const maxImageBytes = 10 << 20

type ProductHandler struct {
	store         ProductStore
	images        storage.ImageStore
	storefrontURL string
	serviceDeps
}

// NewProductHandler wires the product endpoints. A nil image store disables
// uploads; storefrontURL is the base of the links encoded in QR codes.
func NewProductHandler(store ProductStore, images storage.ImageStore, storefrontURL string, c cache.Cache, p events.Publisher, log *slog.Logger) *ProductHandler {
	if images == nil {
		images = storage.Disabled{}
	}
	return &ProductHandler{
		store:         store,
		images:        images,
		storefrontURL: strings.TrimRight(storefrontURL, "/"),
		serviceDeps:   newServiceDeps(c, p, log),
	}
}

// Create handles POST /products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	var req model.CreateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		respondAppError(w, r, h.log, validationFailed(errs))
		return
	}
	if err := req.CheckRules(); err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	ctx := r.Context()

	categoryID, err := parseID(req.Category, "category")
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	category, err := h.store.GetCategoryByID(ctx, categoryID)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	req.ApplyDefaults()

	var slug string
	if req.Slug != nil {
		slug = util.TruncateSlug(util.Slugify(*req.Slug), model.ProductSlugMaxLen)
		if slug == "" {
			respondAppError(w, r, h.log, validationFailed(map[string]string{"slug": "slug must contain letters or digits"}))
			return
		}
	} else {
		slug, err = uniqueSlug(ctx, util.SlugBase(req.Name, model.ProductSlugMaxLen), h.store.ProductSlugExists)
		if err != nil {
			respondAppError(w, r, h.log, err)
			return
		}
	}

	product, err := h.store.CreateProduct(ctx, repository.CreateProductParams{
		Name:            req.Name,
		Slug:            slug,
		Description:     req.Description,
		Price:           *req.Price,
		DiscountPrice:   req.DiscountPrice,
		SKU:             req.SKU,
		Stock:           *req.Stock,
		CategoryID:      categoryID,
		Images:          req.Images,
		Variants:        req.Variants,
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
		Tags:            req.Tags,
		CreatedBy:       p.ID,
	})
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	product.Category = &model.CategorySummary{
		ID:       category.ID,
		Name:     category.Name,
		Slug:     category.Slug,
		IsActive: category.IsActive,
	}

	h.publish(ctx, events.New(events.EntityProduct, events.ActionCreated, product.ID, product))
	respondSuccess(w, http.StatusCreated, "Product created successfully", product)
}

// List handles GET /products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	rq, err := query.Parse(r.URL.Query(), model.ProductQueryConfig())
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	items, total, err := h.store.ListProducts(r.Context(), rq)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	data, err := listPayload(items, total, rq)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Products fetched successfully", data)
}

// Get handles GET /products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.load(r)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Product fetched successfully", product)
}

func (h *ProductHandler) load(r *http.Request) (model.Product, error) {
	id, err := parseID(chi.URLParam(r, "id"), "product")
	if err != nil {
		return model.Product{}, err
	}
	ctx := r.Context()
	product, err := cached(ctx, h.serviceDeps, cache.ProductKey(id), func() (model.Product, error) {
		p, err := h.store.GetProductByID(ctx, id)
		p.Category = nil
		return p, err
	})
	if err != nil {
		return model.Product{}, err
	}

	// The category summary is attached per read from the category entry,
	// which category writes invalidate, so it never outlives a toggle.
	category, err := cached(ctx, h.serviceDeps, cache.CategoryKey(product.CategoryID), func() (model.Category, error) {
		return h.store.GetCategoryByID(ctx, product.CategoryID)
	})
	switch {
	case apperror.IsNotFound(err):
	case err != nil:
		return model.Product{}, err
	default:
		product.Category = &model.CategorySummary{
			ID:       category.ID,
			Name:     category.Name,
			Slug:     category.Slug,
			IsActive: category.IsActive,
		}
	}
	return product, nil
}

// Delete handles DELETE /products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	id, err := parseID(chi.URLParam(r, "id"), "product")
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	ctx := r.Context()
	if err := h.store.SoftDeleteProduct(ctx, id, p.ID); err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	h.invalidate(ctx, cache.ProductKey(id))
	h.publish(ctx, events.New(events.EntityProduct, events.ActionDeleted, id, nil))
	respondSuccess(w, http.StatusOK, "Product deleted successfully", map[string]string{"id": id.String()})
}

// UploadImage handles POST /products/{id}/images with a multipart "image" field
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	if _, disabled := h.images.(storage.Disabled); disabled {
		respondError(w, http.StatusServiceUnavailable, "Image uploads are not configured", nil)
		return
	}
	id, err := parseID(chi.URLParam(r, "id"), "product")
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	ctx := r.Context()
	if _, err := h.store.GetProductByID(ctx, id); err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+1<<20)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		respondAppError(w, r, h.log, apperror.ValidationError{Field: "image", Msg: "Invalid multipart form", Err: err})
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respondAppError(w, r, h.log, apperror.ValidationError{Field: "image", Msg: "Image file is required", Err: err})
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		respondAppError(w, r, h.log, apperror.ValidationError{Field: "image", Msg: "File must be an image"})
		return
	}

	filename := fmt.Sprintf("%s-%s%s", id, util.GenerateShortCode(6), path.Ext(header.Filename))
	url, err := h.images.Upload(ctx, file, filename, mimeType)
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			respondError(w, http.StatusServiceUnavailable, "Image uploads are not configured", nil)
			return
		}
		respondAppError(w, r, h.log, apperror.InternalError{Msg: "Failed to upload image", Err: err})
		return
	}

	product, err := h.store.AppendProductImage(ctx, id, url, p.ID)
	if err != nil {
		if derr := h.images.Delete(ctx, url); derr != nil {
			h.log.WarnContext(ctx, "failed to remove orphaned image", "url", url, "error", derr)
		}
		respondAppError(w, r, h.log, err)
		return
	}

	h.invalidate(ctx, cache.ProductKey(id))
	h.publish(ctx, events.New(events.EntityProduct, events.ActionUpdated, id, map[string]string{"image": url}))
	respondSuccess(w, http.StatusOK, "Product image uploaded successfully", product)
}

// QRCode handles GET /products/{id}/qr and returns a PNG linking to the
// product's storefront page.
func (h *ProductHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	product, err := h.load(r)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	png, err := util.QRCodePNG(h.storefrontURL + "/products/" + product.Slug)
	if err != nil {
		respondAppError(w, r, h.log, apperror.InternalError{Msg: "Failed to generate QR code", Err: err})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s.png"`, product.Slug))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
