package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/alpenform/storefront/internal/infrastructure/config"
)

// Common errors
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Claims are the storefront session token claims. The commerce backend's
// customer token is embedded so authenticated requests can be replayed
// against the store API without a second login.
type Claims struct {
	jwt.RegisteredClaims
	CustomerID    string `json:"customer_id"`
	Email         string `json:"email"`
	CustomerToken string `json:"customer_token"`
}

// TokenService issues and validates storefront session tokens
type TokenService struct {
	secret     []byte
	expiration time.Duration
	issuer     string
}

// NewTokenService creates a token service from the auth configuration
func NewTokenService(cfg config.AuthConfig) *TokenService {
	return &TokenService{
		secret:     []byte(cfg.Secret),
		expiration: cfg.TokenExpiration,
		issuer:     cfg.Issuer,
	}
}

// Generate issues a signed session token for an authenticated customer
func (s *TokenService) Generate(customerID, email, customerToken string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiration)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   customerID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		CustomerID:    customerID,
		Email:         email,
		CustomerToken: customerToken,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate parses and verifies a session token
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.CustomerID == "" {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}
