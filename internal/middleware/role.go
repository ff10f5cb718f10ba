package middleware

import (
	"net/http"

	"github.com/anonto42/medfeed/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// RequireSuperAdmin rejects requests whose JWT role claim is not
// superadmin. Must run after JWTAuthMiddleware.
func RequireSuperAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get("user").(*models.JwtCustomClaims)
			if !ok || claims.Role != models.RoleSuperAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "Access denied")
			}
			return next(c)
		}
	}
}
