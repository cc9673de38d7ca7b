package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emporia-labs/emporia-backend/internal/query"
)

const IncludeChildrenCount = "childrenCount"

// CategorySlugMaxLen is the width of categories.slug.
const CategorySlugMaxLen = 140

type Category struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description *string    `json:"description"`
	ParentID    *uuid.UUID `json:"parent"`
	IsActive    bool       `json:"isActive"`
	Version     int64      `json:"version"`
	CreatedBy   *uuid.UUID `json:"createdBy"`
	UpdatedBy   *uuid.UUID `json:"updatedBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// ChildrenCount is only set when requested with include=childrenCount.
	ChildrenCount *int64 `json:"childrenCount,omitempty"`
}

// CreateCategoryRequest is the body of POST /categories
type CreateCategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Parent      *string `json:"parent,omitempty"`
}

// Validate trims the request and returns field errors. The parent id is
// checked by the handler so a malformed id is reported as a client error
// with its own message.
func (r *CreateCategoryRequest) Validate() map[string]string {
	r.Name = strings.TrimSpace(r.Name)
	if r.Parent != nil {
		trimmed := strings.TrimSpace(*r.Parent)
		if trimmed == "" {
			r.Parent = nil
		} else {
			r.Parent = &trimmed
		}
	}
	return validateStruct(r)
}

// CategoryQueryConfig drives GET /categories.
func CategoryQueryConfig() query.EntityQueryConfig {
	return query.EntityQueryConfig{
		SortFields: map[string]string{
			"createdAt": "created_at",
			"updatedAt": "updated_at",
			"name":      "name",
		},
		DefaultSort: "createdAt",
		Fields: []string{
			"name", "slug", "description", "parent", "isActive",
			"createdBy", "updatedBy", "createdAt", "updatedAt",
		},
		SearchFields: []query.SearchField{{Column: "name"}, {Column: "slug"}},
		Scope: &query.Scope{
			Param:     "parent",
			Column:    "parent_id",
			AllowRoot: true,
			Resource:  "parent",
		},
		ActiveColumn: "is_active",
		Includes:     []string{IncludeChildrenCount},
	}
}
