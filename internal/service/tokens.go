package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/seniku-go-api/internal/models"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the JWT payload for both token types. Version is only set on refresh tokens.
type TokenClaims struct {
	Type    string `json:"type"`
	Role    string `json:"role,omitempty"`
	Version int    `json:"ver"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c TokenClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject: %w", err)
	}
	return uint(id), nil
}

// TokenManager signs and verifies HS256 access and refresh tokens with separate secrets.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewTokenManager builds a token manager. Zero TTLs fall back to 15 minutes and 7 days.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        "seniku-api",
		now:           time.Now,
	}
}

// AccessTTL returns the lifetime of access tokens.
func (m *TokenManager) AccessTTL() time.Duration { return m.accessTTL }

// RefreshTTL returns the lifetime of refresh tokens.
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

// IssueAccess signs a short-lived access token for user.
func (m *TokenManager) IssueAccess(user models.User) (string, error) {
	return m.sign(m.accessSecret, TokenClaims{
		Type: TokenTypeAccess,
		Role: user.Role,
	}, user.ID, m.accessTTL)
}

// IssueRefresh signs a refresh token bound to the user's current token version.
func (m *TokenManager) IssueRefresh(user models.User) (string, error) {
	return m.sign(m.refreshSecret, TokenClaims{
		Type:    TokenTypeRefresh,
		Version: user.TokenVersion,
	}, user.ID, m.refreshTTL)
}

// ParseAccess verifies an access token.
func (m *TokenManager) ParseAccess(token string) (TokenClaims, error) {
	return m.parse(token, m.accessSecret, TokenTypeAccess)
}

// ParseRefresh verifies a refresh token.
func (m *TokenManager) ParseRefresh(token string) (TokenClaims, error) {
	return m.parse(token, m.refreshSecret, TokenTypeRefresh)
}

func (m *TokenManager) sign(secret []byte, claims TokenClaims, userID uint, ttl time.Duration) (string, error) {
	now := m.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (m *TokenManager) parse(raw string, secret []byte, expectedType string) (TokenClaims, error) {
	var claims TokenClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return TokenClaims{}, ErrInvalidToken.Wrap(err)
	}
	if !token.Valid {
		return TokenClaims{}, ErrInvalidToken
	}
	if claims.Type != expectedType {
		return TokenClaims{}, ErrInvalidToken.Wrap(errors.New("unexpected token type"))
	}
	return claims, nil
}
