package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireCapability guards a route group: the request proceeds only when the
// caller's resolved capability set contains at least one of the given
// capabilities.
func RequireCapability(caps ...Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			set := CapabilitiesFromContext(c.Request().Context())
			for _, cap := range caps {
				if set.Has(cap) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
		}
	}
}
