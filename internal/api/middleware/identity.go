package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tripeco/identity-service/internal/api/identity"
	"github.com/tripeco/identity-service/internal/api/metrics"
	"github.com/tripeco/identity-service/internal/core/domain"
)

// TokenVerifier is the subset of the token service the middleware needs.
type TokenVerifier interface {
	Verify(token string) (domain.Principal, error)
}

type IdentityConfig struct {
	// UserHeader carries a user id set by a trusted upstream gateway.
	UserHeader string
	// TokenHeader carries a session token issued by /login.
	TokenHeader string
	Tokens      TokenVerifier
}

// Identity resolves the caller and stores it in the request context.
// A token, when present, must verify; otherwise the trusted user header is
// used. Requests with neither pass through anonymously and fail later only if
// the handler needs a current user.
func Identity(cfg IdentityConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			if raw := strings.TrimSpace(req.Header.Get(cfg.TokenHeader)); raw != "" && cfg.Tokens != nil {
				p, err := cfg.Tokens.Verify(raw)
				metrics.TokenVerificationsTotal.WithLabelValues(verificationResult(err)).Inc()
				if err != nil {
					return err
				}
				c.SetRequest(req.WithContext(identity.WithPrincipal(req.Context(), p)))
				return next(c)
			}

			if id := strings.TrimSpace(req.Header.Get(cfg.UserHeader)); id != "" {
				c.SetRequest(req.WithContext(identity.WithPrincipal(req.Context(), domain.Principal{UserID: id})))
			}
			return next(c)
		}
	}
}

func verificationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenBadSignature):
		return "bad_signature"
	default:
		return "malformed"
	}
}
