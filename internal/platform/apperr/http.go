package apperr

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTPStatus maps an error kind to its transport status code. The two named
// readiness-gate failures share 409 with InvalidState but keep their own
// code in the response body so callers can render a specific remediation.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState, KindTimeoutRequired, KindDebriefRequired:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

type httpBody struct {
	Code    Kind   `json:"code"`
	Message string `json:"message"`
}

// JSON writes the error as a stable {code, message} body.
func JSON(c echo.Context, err error) error {
	kind := KindOf(err)
	return c.JSON(HTTPStatus(kind), httpBody{Code: kind, Message: MessageOf(err)})
}
