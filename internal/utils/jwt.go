package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"healthcare-admin-server/internal/config"
	"healthcare-admin-server/internal/models"
)

// TokenType distinguishes access tokens from refresh tokens so one cannot be
// replayed as the other.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims represents the JWT claims.
type Claims struct {
	UserID string      `json:"user_id"`
	Role   models.Role `json:"role"`
	Type   TokenType   `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is the result of a login or refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// GenerateTokens issues an access and a refresh token for user.
func GenerateTokens(user *models.User, cfg *config.Config) (*TokenPair, error) {
	now := time.Now()

	access, _, err := signToken(user, AccessToken, cfg.JWTSecret,
		now, time.Duration(cfg.JWTExpirationMinutes)*time.Minute)
	if err != nil {
		return nil, err
	}

	refresh, refreshExp, err := signToken(user, RefreshToken, cfg.JWTRefreshSecret,
		now, time.Duration(cfg.JWTRefreshExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh, RefreshExpiresAt: refreshExp}, nil
}

func signToken(user *models.User, typ TokenType, secret string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return signed, expiresAt, nil
}

// ValidateToken parses tokenString, checks its signature and expiry, and
// requires it to be of the expected type.
func ValidateToken(tokenString, secretKey string, expected TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Type != expected {
		return nil, fmt.Errorf("expected %s token, got %q", expected, claims.Type)
	}
	return claims, nil
}

// HashToken returns the hex SHA-256 digest stored in place of a refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
