package repository

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims are carried by admin session tokens
type AdminClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// AdminTokenService issues and verifies admin tokens
type AdminTokenService interface {
	Issue(subject string) (token string, expiresAt time.Time, err error)
	Verify(token string) (*AdminClaims, error)
}
