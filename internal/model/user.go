package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser     Role = "user"
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleCustomer, RoleStaff, RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User is the stored account row.
type User struct {
	ID            uuid.UUID
	FullName      string
	Email         string
	Phone         *string
	PasswordHash  string
	Role          Role
	EmailVerified bool
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SignupRequest represents the signup request body
type SignupRequest struct {
	FullName string  `json:"fullName" validate:"max=100"`
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=30"`
}

// Validate normalizes the request and returns field errors
func (r *SignupRequest) Validate() map[string]string {
	r.Email = normalizeEmail(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
	return validateStruct(r)
}

// SignupResponse is returned after a plain account signup
type SignupResponse struct {
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
}

// UserResponse is the API response for user data (excludes password)
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewUserResponse(u User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type PersonKind string

const (
	PersonUser     PersonKind = "user"
	PersonCustomer PersonKind = "customer"
	PersonEmployee PersonKind = "employee"
)

// Person is an account together with the profile its kind implies. Exactly
// one of Customer and Employee is set for the matching kind; neither for
// PersonUser.
type Person struct {
	Kind     PersonKind       `json:"kind"`
	User     UserResponse     `json:"user"`
	Customer *CustomerProfile `json:"customer,omitempty"`
	Employee *EmployeeProfile `json:"employee,omitempty"`
}

func NewPerson(u User, customer *CustomerProfile, employee *EmployeeProfile) Person {
	p := Person{Kind: PersonUser, User: NewUserResponse(u)}
	switch {
	case employee != nil:
		p.Kind = PersonEmployee
		p.Employee = employee
	case customer != nil:
		p.Kind = PersonCustomer
		p.Customer = customer
	}
	return p
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
