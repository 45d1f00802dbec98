package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tripeco/identity-service/internal/core/domain"
)

const (
	DefaultTokenPrefix = "Bearer"
	DefaultTokenTTL    = 24 * time.Hour
)

type TokenConfig struct {
	Secret string
	Prefix string
	TTL    time.Duration
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS512 session tokens. Tokens carry the
// subject, role and expiry; nothing is stored server side.
type TokenService struct {
	key    []byte
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(cfg TokenConfig) *TokenService {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultTokenPrefix
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{key: []byte(cfg.Secret), prefix: prefix, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source used for issuing and expiry checks.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

func (s *TokenService) Prefix() string { return s.prefix }

// Issue returns "<prefix> <jwt>" for the subject and role.
func (s *TokenService) Issue(subject string, role domain.Role) (string, error) {
	if subject == "" {
		return "", errors.New("token service: empty subject")
	}

	now := s.now()
	claims := tokenClaims{
		Role: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("token service: sign: %w", err)
	}
	return s.prefix + " " + signed, nil
}

// Verify checks the signature before the expiry, so a forged expired token
// reports domain.ErrTokenBadSignature rather than domain.ErrTokenExpired.
func (s *TokenService) Verify(token string) (domain.Principal, error) {
	raw := strings.TrimSpace(token)
	if rest, ok := strings.CutPrefix(raw, s.prefix+" "); ok {
		raw = strings.TrimSpace(rest)
	}
	if raw == "" {
		return domain.Principal{}, domain.ErrTokenMalformed
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrTokenBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
	default:
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}

	role, ok := domain.ParseRole(claims.Role)
	if !ok || claims.Subject == "" {
		return domain.Principal{}, fmt.Errorf("%w: missing subject or role", domain.ErrTokenMalformed)
	}
	return domain.Principal{UserID: claims.Subject, Role: role}, nil
}
