package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/tripeco/identity-service/internal/api/identity"
	"github.com/tripeco/identity-service/internal/core/domain"
)

// RequireRole rejects callers whose verified role is not in allowed with
// domain.ErrForbidden. When enforce is false the gate is open, which suits
// deployments where the gateway already authorises routes.
func RequireRole(enforce bool, allowed ...domain.Role) echo.MiddlewareFunc {
	set := make(map[domain.Role]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !enforce {
			return next
		}
		return func(c echo.Context) error {
			p, ok := identity.PrincipalFrom(c.Request().Context())
			if !ok {
				return domain.ErrMissingIdentity
			}
			if _, ok := set[p.Role]; !ok {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
