package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emporia-labs/emporia-backend/internal/query"
)

type CustomerType string

const (
	CustomerRegular   CustomerType = "regular"
	CustomerVIP       CustomerType = "vip"
	CustomerWholesale CustomerType = "wholesale"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Address is stored as a JSONB object.
type Address struct {
	Street  string `json:"street" validate:"required,max=200"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state,omitempty" validate:"omitempty,max=100"`
	ZipCode string `json:"zipCode,omitempty" validate:"omitempty,max=20"`
	Country string `json:"country" validate:"required,max=100"`
}

func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *Address) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		*a = Address{}
		return nil
	case []byte:
		return json.Unmarshal(s, a)
	case string:
		return json.Unmarshal([]byte(s), a)
	default:
		return fmt.Errorf("cannot scan %T into Address", src)
	}
}

func (a *Address) trim() {
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.ZipCode = strings.TrimSpace(a.ZipCode)
	a.Country = strings.TrimSpace(a.Country)
}

type CustomerProfile struct {
	ID           uuid.UUID    `json:"id"`
	UserID       uuid.UUID    `json:"userId"`
	Address      Address      `json:"address"`
	Gender       Gender       `json:"gender"`
	DateOfBirth  Date         `json:"dateOfBirth"`
	CustomerType CustomerType `json:"customerType"`
	LoyaltyTier  string       `json:"loyaltyTier"`
	Status       string       `json:"status"`
	CreatedBy    *uuid.UUID   `json:"createdBy"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`

	// Account fields joined from users on reads.
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
}

// RegisterCustomerRequest attaches a customer profile to an existing account
type RegisterCustomerRequest struct {
	Email        string       `json:"email" validate:"required,email"`
	Address      Address      `json:"address" validate:"required"`
	Gender       Gender       `json:"gender" validate:"required,oneof=male female other"`
	DateOfBirth  Date         `json:"dateOfBirth" validate:"required"`
	CustomerType CustomerType `json:"customerType" validate:"omitempty,oneof=regular vip wholesale"`
}

// Validate normalizes the request and returns field errors
func (r *RegisterCustomerRequest) Validate() map[string]string {
	r.Email = normalizeEmail(r.Email)
	r.Address.trim()
	if r.CustomerType == "" {
		r.CustomerType = CustomerRegular
	}
	errs := validateStruct(r)
	checkBirthDate(errs, r.DateOfBirth)
	return errs
}

// CustomerSignupRequest creates the account and the profile together
type CustomerSignupRequest struct {
	FullName     string       `json:"fullName" validate:"required,max=100"`
	Email        string       `json:"email" validate:"required,email,max=255"`
	Password     string       `json:"password" validate:"required,min=6,max=72"`
	Phone        string       `json:"phone" validate:"required,max=30"`
	Address      Address      `json:"address" validate:"required"`
	Gender       Gender       `json:"gender" validate:"required,oneof=male female other"`
	DateOfBirth  Date         `json:"dateOfBirth" validate:"required"`
	CustomerType CustomerType `json:"customerType" validate:"required,oneof=regular vip wholesale"`
}

// Validate normalizes the request and returns field errors
func (r *CustomerSignupRequest) Validate() map[string]string {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = normalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address.trim()
	errs := validateStruct(r)
	checkBirthDate(errs, r.DateOfBirth)
	return errs
}

func checkBirthDate(errs map[string]string, d Date) {
	if _, exists := errs["dateOfBirth"]; exists || d.IsZero() {
		return
	}
	if d.After(time.Now()) {
		errs["dateOfBirth"] = "dateOfBirth must be in the past"
	}
}

// CustomerQueryConfig drives GET /customers. The list joins users as u.
func CustomerQueryConfig() query.EntityQueryConfig {
	return query.EntityQueryConfig{
		SortFields: map[string]string{
			"createdAt": "c.created_at",
			"updatedAt": "c.updated_at",
			"fullName":  "u.full_name",
		},
		DefaultSort:    "createdAt",
		TiebreakColumn: "c.id",
		Fields: []string{
			"userId", "address", "gender", "dateOfBirth", "customerType",
			"loyaltyTier", "status", "fullName", "email", "createdAt", "updatedAt",
		},
		SearchFields: []query.SearchField{{Column: "u.full_name"}, {Column: "u.email"}},
		ActiveColumn: "u.is_active",
	}
}
