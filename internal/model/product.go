package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/emporia-labs/emporia-backend/internal/apperror"
	"github.com/emporia-labs/emporia-backend/internal/query"
)

const (
	metaTitleMax       = 60
	metaDescriptionMax = 160

	// ProductSlugMaxLen is the width of products.slug.
	ProductSlugMaxLen = 220
)

type Variant struct {
	Name            string  `json:"name" validate:"required,max=100"`
	Value           string  `json:"value" validate:"required,max=100"`
	AdditionalPrice float64 `json:"additionalPrice" validate:"gte=0,lte=9999999999.99"`
	Stock           int     `json:"stock" validate:"gte=0,lte=2147483647"`
}

// Variants is stored as a JSONB array.
type Variants []Variant

func (v Variants) Value() (driver.Value, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v)
}

func (v *Variants) Scan(src any) error {
	var raw []byte
	switch s := src.(type) {
	case nil:
		*v = Variants{}
		return nil
	case []byte:
		raw = s
	case string:
		raw = []byte(s)
	default:
		return fmt.Errorf("cannot scan %T into Variants", src)
	}
	var out Variants
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode variants: %w", err)
	}
	if out == nil {
		out = Variants{}
	}
	*v = out
	return nil
}

type Product struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Slug            string     `json:"slug"`
	Description     *string    `json:"description"`
	Price           float64    `json:"price"`
	DiscountPrice   *float64   `json:"discountPrice"`
	SKU             *string    `json:"sku"`
	Stock           int        `json:"stock"`
	CategoryID      uuid.UUID  `json:"categoryId"`
	Images          []string   `json:"images"`
	Variants        Variants   `json:"variants"`
	MetaTitle       *string    `json:"metaTitle"`
	MetaDescription *string    `json:"metaDescription"`
	Tags            []string   `json:"tags"`
	IsActive        bool       `json:"isActive"`
	CreatedBy       *uuid.UUID `json:"createdBy"`
	UpdatedBy       *uuid.UUID `json:"updatedBy"`
	DeletedAt       *time.Time `json:"deletedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`

	// Category is the embedded owning category on reads.
	Category *CategorySummary `json:"category,omitempty"`
}

type CategorySummary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Slug     string    `json:"slug"`
	IsActive bool      `json:"isActive"`
}

// CreateProductRequest is the body of POST /products
type CreateProductRequest struct {
	Name            string   `json:"name" validate:"required,max=200"`
	Slug            *string  `json:"slug,omitempty" validate:"omitempty,max=220"`
	Description     *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price           *float64 `json:"price" validate:"required,gte=0,lte=9999999999.99"`
	DiscountPrice   *float64 `json:"discountPrice,omitempty" validate:"omitempty,gte=0,lte=9999999999.99"`
	SKU             *string  `json:"sku,omitempty" validate:"omitempty,max=50"`
	Stock           *int     `json:"stock" validate:"required,gte=0,lte=2147483647"`
	Category        string   `json:"category" validate:"required"`
	Images          []string `json:"images,omitempty" validate:"omitempty,max=20,dive,required,max=2048"`
	Variants        Variants `json:"variants,omitempty" validate:"omitempty,max=50,dive"`
	MetaTitle       *string  `json:"metaTitle,omitempty" validate:"omitempty,max=60"`
	MetaDescription *string  `json:"metaDescription,omitempty" validate:"omitempty,max=160"`
	Tags            []string `json:"tags,omitempty" validate:"omitempty,max=30,dive,required,max=50"`
}

// Validate trims the request and returns field errors
func (r *CreateProductRequest) Validate() map[string]string {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.TrimSpace(r.Category)
	r.Slug = trimOptional(r.Slug)
	r.SKU = trimOptional(r.SKU)
	for i, tag := range r.Tags {
		r.Tags[i] = strings.TrimSpace(tag)
	}
	return validateStruct(r)
}

// CheckRules enforces rules that span fields. Run after Validate.
func (r *CreateProductRequest) CheckRules() error {
	if r.DiscountPrice != nil && r.Price != nil && *r.DiscountPrice > *r.Price {
		return apperror.ValidationError{
			Field: "discountPrice",
			Msg:   "Discount price must be less than or equal to price",
		}
	}
	return nil
}

// ApplyDefaults fills the SEO fields from name and description when absent.
func (r *CreateProductRequest) ApplyDefaults() {
	if r.MetaTitle == nil || strings.TrimSpace(*r.MetaTitle) == "" {
		title := truncateRunes(r.Name, metaTitleMax)
		r.MetaTitle = &title
	}
	if (r.MetaDescription == nil || strings.TrimSpace(*r.MetaDescription) == "") && r.Description != nil && *r.Description != "" {
		desc := truncateRunes(*r.Description, metaDescriptionMax)
		r.MetaDescription = &desc
	}
	if r.Images == nil {
		r.Images = []string{}
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.Variants == nil {
		r.Variants = Variants{}
	}
}

// ProductQueryConfig drives GET /products. Columns are qualified because the
// list joins the owning category.
func ProductQueryConfig() query.EntityQueryConfig {
	return query.EntityQueryConfig{
		SortFields: map[string]string{
			"createdAt": "p.created_at",
			"updatedAt": "p.updated_at",
			"name":      "p.name",
			"price":     "p.price",
		},
		DefaultSort:    "createdAt",
		TiebreakColumn: "p.id",
		Fields: []string{
			"name", "slug", "description", "price", "discountPrice", "sku", "stock",
			"categoryId", "category", "images", "variants", "metaTitle", "metaDescription",
			"tags", "isActive", "createdAt", "updatedAt",
		},
		SearchFields: []query.SearchField{
			{Column: "p.name"},
			{Column: "p.slug"},
			{Column: "p.tags", Array: true},
		},
		Scope: &query.Scope{
			Param:    "category",
			Column:   "p.category_id",
			Resource: "category",
		},
		ActiveColumn: "p.is_active",
		BaseFilter:   []sq.Sqlizer{sq.Eq{"p.deleted_at": nil}},
	}
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
