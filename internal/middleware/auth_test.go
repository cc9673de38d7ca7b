package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/emporia-labs/emporia-backend/internal/auth"
	"github.com/emporia-labs/emporia-backend/internal/config"
	"github.com/emporia-labs/emporia-backend/internal/model"
)

var jwtManager = auth.NewJWTManager(&config.Config{
	JWTSecret:         "middleware-secret",
	AccessTokenExpiry: time.Minute,
})

func bearer(t *testing.T, role model.Role) string {
	t.Helper()
	token, err := jwtManager.GenerateAccessToken(auth.Principal{ID: uuid.New(), Email: "x@example.com", Role: role})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return "Bearer " + token
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if GetPrincipal(r.Context()) == nil {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.WriteHeader(http.StatusNoContent)
})

func TestJWTAuth(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{"missing header", "", http.StatusUnauthorized, "Authorization token missing"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Authorization token missing"},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "Authorization token missing"},
		{"bad token", "Bearer nope", http.StatusUnauthorized, "Invalid or expired access token"},
		{"valid", bearer(t, model.RoleUser), http.StatusNoContent, ""},
	}

	h := JWTAuth(jwtManager)(okHandler)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			if tt.message == "" {
				return
			}
			var body struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body.Success || body.Message != tt.message {
				t.Errorf("body = %+v, want message %q", body, tt.message)
			}
		})
	}
}

func TestRequirePermission(t *testing.T) {
	h := JWTAuth(jwtManager)(RequirePermission(auth.ProductDelete)(okHandler))

	tests := []struct {
		role   model.Role
		status int
	}{
		{model.RoleAdmin, http.StatusNoContent},
		{model.RoleManager, http.StatusForbidden},
		{model.RoleCustomer, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/", nil)
			req.Header.Set("Authorization", bearer(t, tt.role))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.status {
				t.Errorf("status = %d, want %d", rr.Code, tt.status)
			}
		})
	}
}

func TestRequirePermission_WithoutPrincipal(t *testing.T) {
	rr := httptest.NewRecorder()
	RequirePermission(auth.CategoryCreate)(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestRequireRole(t *testing.T) {
	h := JWTAuth(jwtManager)(RequireRole(model.RoleAdmin)(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, model.RoleManager))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rr.Code)
	}
}
