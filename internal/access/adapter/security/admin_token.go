package security

import (
	"errors"
	"time"

	"scl90-gate/internal/access/config"
	"scl90-gate/internal/access/domain/repository"

	"github.com/golang-jwt/jwt/v5"
)

// AdminScope is the only scope an admin token carries
const AdminScope = "admin"

var (
	ErrTokenInvalid          = errors.New("token is invalid")
	ErrTokenExpired          = errors.New("token is expired")
	ErrTokenSignatureInvalid = errors.New("token signature is invalid")
)

// AdminTokenService signs short-lived HS256 admin tokens
type AdminTokenService struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
	now       func() time.Time
}

// NewAdminTokenService creates a token service from the access config
func NewAdminTokenService(cfg *config.Config) (*AdminTokenService, error) {
	if cfg.AdminTokenSecret == "" {
		return nil, errors.New("admin token secret cannot be empty")
	}
	if cfg.AdminTokenIssuer == "" {
		return nil, errors.New("admin token issuer cannot be empty")
	}
	if cfg.AdminTokenTTL <= 0 {
		return nil, errors.New("admin token TTL must be positive")
	}

	return &AdminTokenService{
		secretKey: []byte(cfg.AdminTokenSecret),
		issuer:    cfg.AdminTokenIssuer,
		ttl:       cfg.AdminTokenTTL,
		now:       time.Now,
	}, nil
}

// Issue creates a token for subject
func (s *AdminTokenService) Issue(subject string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := &repository.AdminClaims{
		Scope: AdminScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token
func (s *AdminTokenService) Verify(tokenString string) (*repository.AdminClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	token, err := jwt.ParseWithClaims(tokenString, &repository.AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenSignatureInvalid
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignatureInvalid
		default:
			return nil, ErrTokenInvalid
		}
	}

	claims, ok := token.Claims.(*repository.AdminClaims)
	if !ok || !token.Valid || claims.Scope != AdminScope {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

var _ repository.AdminTokenService = (*AdminTokenService)(nil)
