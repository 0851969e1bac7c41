package handler

import (
	"github.com/labstack/echo/v4"

	apperrors "writehub/internal/errors"
)

// respondError converts a domain error into an echo.HTTPError carrying the
// standard error body. The original error stays attached for logging.
func respondError(err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
}

func badRequest(message string) error {
	return respondError(apperrors.NewValidationError(message))
}
