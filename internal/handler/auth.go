package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/emporia-labs/emporia-backend/internal/apperror"
	"github.com/emporia-labs/emporia-backend/internal/auth"
	"github.com/emporia-labs/emporia-backend/internal/model"
	"github.com/emporia-labs/emporia-backend/internal/repository"
)

const (
	bcryptCost        = 12
	refreshCookieName = "refreshToken"
)

var errBadCredentials = apperror.AuthenticationError{Msg: "Invalid email or password"}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	store        UserStore
	jwtManager   *auth.JWTManager
	secureCookie bool
	log          *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. secureCookie marks the refresh
// cookie Secure and should be set outside local development.
func NewAuthHandler(store UserStore, jwtManager *auth.JWTManager, secureCookie bool, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{
		store:        store,
		jwtManager:   jwtManager,
		secureCookie: secureCookie,
		log:          log,
	}
}

// Status handles GET /auth/status
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, "Auth service is running", nil)
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		respondAppError(w, r, h.log, validationFailed(errs))
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), repository.CreateUserParams{
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         model.RoleUser,
	})
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "User created successfully", model.SignupResponse{
		UserID: user.ID,
		Email:  user.Email,
	})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
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
		if apperror.IsNotFound(err) {
			err = errBadCredentials
		}
		respondAppError(w, r, h.log, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respondAppError(w, r, h.log, errBadCredentials)
		return
	}
	if !user.IsActive {
		respondAppError(w, r, h.log, apperror.AuthenticationError{Msg: "Account is disabled"})
		return
	}

	tokens, err := h.issueTokens(ctx, r, user)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)
	respondSuccess(w, http.StatusOK, "Login successful", model.LoginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    tokens.ExpiresIn,
		User:         model.NewUserResponse(user),
	})
}

// Refresh handles POST /auth/refresh. The presented token is revoked and a new
// pair is issued; a token that was already rotated is rejected.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw, err := refreshTokenFrom(r)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	if raw == "" {
		respondAppError(w, r, h.log, apperror.AuthenticationError{Msg: "Refresh token missing"})
		return
	}

	ctx := r.Context()
	invalid := apperror.AuthenticationError{Msg: "Invalid or expired refresh token"}

	tokenHash := auth.HashRefreshToken(raw)
	stored, err := h.store.GetRefreshTokenByHash(ctx, tokenHash)
	if err != nil {
		if apperror.IsNotFound(err) {
			err = invalid
		}
		respondAppError(w, r, h.log, err)
		return
	}

	revoked, err := h.store.RevokeRefreshToken(ctx, tokenHash)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	if !revoked {
		respondAppError(w, r, h.log, invalid)
		return
	}

	user, err := h.store.GetUserByID(ctx, stored.UserID)
	if err != nil {
		if apperror.IsNotFound(err) {
			err = invalid
		}
		respondAppError(w, r, h.log, err)
		return
	}
	if !user.IsActive {
		respondAppError(w, r, h.log, apperror.AuthenticationError{Msg: "Account is disabled"})
		return
	}

	tokens, err := h.issueTokens(ctx, r, user)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)
	respondSuccess(w, http.StatusOK, "Token refreshed successfully", tokens)
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	raw, err := refreshTokenFrom(r)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	if raw != "" {
		if _, err := h.store.RevokeRefreshToken(r.Context(), auth.HashRefreshToken(raw)); err != nil {
			respondAppError(w, r, h.log, err)
			return
		}
	}

	h.clearRefreshCookie(w)
	respondSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

// Me handles GET /auth/me and returns the caller with their profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	ctx := r.Context()
	user, err := h.store.GetUserByID(ctx, p.ID)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	customer, employee, err := h.profiles(ctx, user)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	respondSuccess(w, http.StatusOK, "User fetched successfully", model.NewPerson(user, customer, employee))
}

// GetUser handles GET /auth/user/{id}
func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"), "user")
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}

	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		respondAppError(w, r, h.log, err)
		return
	}
	respondSuccess(w, http.StatusOK, "User fetched successfully", model.NewUserResponse(user))
}

// profiles loads the profile implied by the account's role. Accounts without
// one are plain users.
func (h *AuthHandler) profiles(ctx context.Context, user model.User) (*model.CustomerProfile, *model.EmployeeProfile, error) {
	switch user.Role {
	case model.RoleCustomer:
		c, err := h.store.GetCustomerByUserID(ctx, user.ID)
		if apperror.IsNotFound(err) {
			return nil, nil, nil
		}
		if err != nil {
			return nil, nil, err
		}
		return &c, nil, nil
	case model.RoleEmployee, model.RoleStaff, model.RoleManager, model.RoleAdmin:
		e, err := h.store.GetEmployeeByUserID(ctx, user.ID)
		if apperror.IsNotFound(err) {
			return nil, nil, nil
		}
		if err != nil {
			return nil, nil, err
		}
		return nil, &e, nil
	}
	return nil, nil, nil
}

func (h *AuthHandler) issueTokens(ctx context.Context, r *http.Request, user model.User) (model.RefreshResponse, error) {
	customer, employee, err := h.profiles(ctx, user)
	if err != nil {
		return model.RefreshResponse{}, err
	}

	p := auth.Principal{ID: user.ID, Email: user.Email, Role: user.Role}
	if customer != nil {
		p.CustomerType = customer.CustomerType
	}
	if employee != nil {
		p.EmployeeType = employee.EmployeeType
	}

	accessToken, err := h.jwtManager.GenerateAccessToken(p)
	if err != nil {
		return model.RefreshResponse{}, apperror.InternalError{Msg: "Failed to generate token", Err: err}
	}

	rawRefreshToken, tokenHash, expiresAt, err := h.jwtManager.GenerateRefreshToken()
	if err != nil {
		return model.RefreshResponse{}, apperror.InternalError{Msg: "Failed to generate token", Err: err}
	}

	_, err = h.store.CreateRefreshToken(ctx, repository.CreateRefreshTokenParams{
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		UserAgent: optional(r.UserAgent()),
		IPAddress: optional(getClientIP(r)),
	})
	if err != nil {
		return model.RefreshResponse{}, err
	}

	return model.RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: rawRefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.jwtManager.AccessTokenExpiry().Seconds()),
	}, nil
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.jwtManager.RefreshTokenExpiry() / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

// refreshTokenFrom reads the token from the JSON body, falling back to the
// cookie. An empty body is allowed.
func refreshTokenFrom(r *http.Request) (string, error) {
	var req model.RefreshRequest
	if r.Body != nil {
		err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			return "", apperror.ValidationError{Msg: "Invalid request body", Err: err}
		}
	}
	if token := strings.TrimSpace(req.RefreshToken); token != "" {
		return token, nil
	}
	if c, err := r.Cookie(refreshCookieName); err == nil {
		return c.Value, nil
	}
	return "", nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", apperror.InternalError{Msg: "Failed to process registration", Err: err}
	}
	return string(hashed), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		return ip[:idx]
	}
	return ip
}
