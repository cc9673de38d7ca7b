package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/emporia-labs/emporia-backend/internal/config"
	"github.com/emporia-labs/emporia-backend/internal/model"
)

const issuer = "emporia"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Principal is the authenticated caller attached to a request.
type Principal struct {
	ID           uuid.UUID
	Email        string
	Role         model.Role
	EmployeeType model.EmployeeType
	CustomerType model.CustomerType
}

// Claims carries the principal inside an access token.
type Claims struct {
	UserID       uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	EmployeeType string    `json:"employeeType,omitempty"`
	CustomerType string    `json:"customerType,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Principal() *Principal {
	return &Principal{
		ID:           c.UserID,
		Email:        c.Email,
		Role:         model.Role(c.Role),
		EmployeeType: model.EmployeeType(c.EmployeeType),
		CustomerType: model.CustomerType(c.CustomerType),
	}
}

// JWTManager signs and verifies HS256 access tokens and mints opaque refresh
// tokens.
type JWTManager struct {
	secretKey          []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
}

func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{
		secretKey:          []byte(cfg.JWTSecret),
		accessTokenExpiry:  cfg.AccessTokenExpiry,
		refreshTokenExpiry: cfg.RefreshTokenExpiry,
	}
}

func (m *JWTManager) GenerateAccessToken(p Principal) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:       p.ID,
		Email:        p.Email,
		Role:         string(p.Role),
		EmployeeType: string(p.EmployeeType),
		CustomerType: string(p.CustomerType),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   p.ID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// GenerateRefreshToken returns the raw token handed to the client, the hash
// that is persisted, and the expiry.
func (m *JWTManager) GenerateRefreshToken() (string, string, time.Time, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", "", time.Time{}, err
	}

	rawToken := base64.URLEncoding.EncodeToString(tokenBytes)
	return rawToken, HashRefreshToken(rawToken), time.Now().Add(m.refreshTokenExpiry), nil
}

func HashRefreshToken(rawToken string) string {
	hash := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(hash[:])
}

func (m *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (m *JWTManager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}

func (m *JWTManager) RefreshTokenExpiry() time.Duration {
	return m.refreshTokenExpiry
}
