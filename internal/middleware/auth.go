// Package middleware holds the HTTP middleware for the capability service.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/omx-labs/storage-browser/internal/utils"
)

const bearerScheme = "Bearer "

// BearerAuth validates the Authorization header against the configured
// token set and stores the matching subject on the context. The session
// subsystem issuing tokens lives outside this service; this middleware is
// its seam. Auth failures are uniform 401s.
func BearerAuth(tokens map[string]string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Health stays unauthenticated.
			if c.Request().URL.Path == "/health" {
				return next(c)
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, bearerScheme) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}
			presented := strings.TrimPrefix(header, bearerScheme)

			for subject, token := range tokens {
				if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) == 1 {
					c.Set(utils.ContextKeySubject, subject)
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}
	}
}
