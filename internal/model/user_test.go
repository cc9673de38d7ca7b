package model

import (
	"testing"

	"github.com/google/uuid"
)

func TestSignupRequest_Validate(t *testing.T) {
	tests := []struct {
		name           string
		request        SignupRequest
		expectedErrors map[string]string
	}{
		{
			name: "valid request",
			request: SignupRequest{
				FullName: "John Doe",
				Email:    "test@example.com",
				Password: "secret1",
			},
			expectedErrors: map[string]string{},
		},
		{
			name: "empty email",
			request: SignupRequest{
				Password: "secret1",
			},
			expectedErrors: map[string]string{
				"email": "email is required",
			},
		},
		{
			name: "invalid email format",
			request: SignupRequest{
				Email:    "testexample.com",
				Password: "secret1",
			},
			expectedErrors: map[string]string{
				"email": "Valid email is required",
			},
		},
		{
			name: "password too short",
			request: SignupRequest{
				Email:    "test@example.com",
				Password: "short",
			},
			expectedErrors: map[string]string{
				"password": "password must be at least 6 characters",
			},
		},
		{
			name: "name too long",
			request: SignupRequest{
				FullName: string(make([]rune, 101)),
				Email:    "test@example.com",
				Password: "secret1",
			},
			expectedErrors: map[string]string{
				"fullName": "fullName must be 100 characters or less",
			},
		},
		{
			name: "multiple validation errors",
			request: SignupRequest{
				Email:    "invalid",
				Password: "",
			},
			expectedErrors: map[string]string{
				"email":    "Valid email is required",
				"password": "password is required",
			},
		},
		{
			name: "trims and lowercases email",
			request: SignupRequest{
				Email:    "  Test@Example.COM  ",
				Password: "secret1",
			},
			expectedErrors: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errors := tt.request.Validate()

			if len(errors) != len(tt.expectedErrors) {
				t.Errorf("expected %d errors, got %d: %v", len(tt.expectedErrors), len(errors), errors)
				return
			}

			for field, expectedMsg := range tt.expectedErrors {
				if errors[field] != expectedMsg {
					t.Errorf("expected error for %s: %q, got %q", field, expectedMsg, errors[field])
				}
			}
		})
	}
}

func TestSignupRequest_NormalizesEmail(t *testing.T) {
	req := SignupRequest{Email: "  Test@Example.COM ", Password: "secret1"}
	req.Validate()
	if req.Email != "test@example.com" {
		t.Errorf("expected normalized email, got %q", req.Email)
	}
}

func TestNewPerson(t *testing.T) {
	user := User{ID: uuid.New(), Email: "a@b.co", Role: RoleCustomer}

	tests := []struct {
		name     string
		customer *CustomerProfile
		employee *EmployeeProfile
		want     PersonKind
	}{
		{"plain user", nil, nil, PersonUser},
		{"customer", &CustomerProfile{UserID: user.ID}, nil, PersonCustomer},
		{"employee", nil, &EmployeeProfile{UserID: user.ID}, PersonEmployee},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPerson(user, tt.customer, tt.employee)
			if p.Kind != tt.want {
				t.Errorf("kind = %s, want %s", p.Kind, tt.want)
			}
			if (p.Customer != nil) != (tt.want == PersonCustomer) {
				t.Errorf("customer payload mismatch for kind %s", p.Kind)
			}
			if (p.Employee != nil) != (tt.want == PersonEmployee) {
				t.Errorf("employee payload mismatch for kind %s", p.Kind)
			}
			if p.User.ID != user.ID {
				t.Errorf("user id not carried")
			}
		})
	}
}

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleCustomer, RoleStaff, RoleEmployee, RoleManager, RoleAdmin} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if Role("root").Valid() {
		t.Error("unknown role must be invalid")
	}
}
