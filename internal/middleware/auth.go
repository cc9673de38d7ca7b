package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/emporia-labs/emporia-backend/internal/apperror"
	"github.com/emporia-labs/emporia-backend/internal/auth"
	"github.com/emporia-labs/emporia-backend/internal/model"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// JWTAuth rejects requests without a valid bearer access token and stores the
// token's principal in the request context.
func JWTAuth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := authenticate(jwtManager, r)
			if err != nil {
				respondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func authenticate(jwtManager *auth.JWTManager, r *http.Request) (*auth.Principal, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, apperror.AuthenticationError{Msg: "Authorization token missing"}
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return nil, apperror.AuthenticationError{Msg: "Authorization token missing"}
	}

	claims, err := jwtManager.ValidateAccessToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, apperror.AuthenticationError{Msg: "Invalid or expired access token", Err: err}
	}
	return claims.Principal(), nil
}

func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// GetPrincipal returns the authenticated caller, or nil for anonymous requests.
func GetPrincipal(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(PrincipalKey).(*auth.Principal)
	return p
}

// RequirePermission must run after JWTAuth.
func RequirePermission(action auth.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.Authorize(GetPrincipal(r.Context()), action); err != nil {
				respondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.RequireRole(GetPrincipal(r.Context()), roles...); err != nil {
				respondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func respondError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperror.Status(err))
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": apperror.Message(err),
	})
}
