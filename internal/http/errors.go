package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/jmehdipour/judgment-gateway/internal/apperr"
)

// statusFor maps an error kind to the HTTP status returned to callers.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindResolution:
		return http.StatusUnprocessableEntity
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindTransfer:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with its stable code. Internal errors are logged
// and their detail is not exposed.
func writeError(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Errorf("%s %s failed: %v", c.Request().Method, c.Path(), err)
		return c.JSON(status, map[string]string{"error": "INTERNAL", "message": "internal error"})
	}
	return c.JSON(status, map[string]string{"error": apperr.CodeOf(err), "message": err.Error()})
}
