package router

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	apperrors "writehub/internal/errors"
)

// NewHTTPErrorHandler renders every error as an ErrorResponse. Outside
// production, 5xx responses carry the underlying error message.
func NewHTTPErrorHandler(production bool, log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body, internal := renderError(err)
		if status >= http.StatusInternalServerError {
			log.WithError(err).WithField("path", c.Path()).Error("request failed")
			if !production && internal != nil {
				body.Message = internal.Error()
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.WithError(err).Error("write error response")
		}
	}
}

func renderError(err error) (int, apperrors.ErrorResponse, error) {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		mapped := apperrors.MapErrorToHTTP(err)
		return mapped.StatusCode, mapped.ToErrorResponse(), err
	}

	if he == echo.ErrNotFound {
		return http.StatusNotFound, apperrors.ErrorResponse{Message: "Route not found", Code: "NOT_FOUND"}, nil
	}

	body := apperrors.ErrorResponse{Code: codeForStatus(he.Code)}
	switch m := he.Message.(type) {
	case apperrors.ErrorResponse:
		body = m
	case string:
		body.Message = m
	case error:
		body.Message = m.Error()
	default:
		body.Message = http.StatusText(he.Code)
	}
	return he.Code, body, he.Internal
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	}
	if status >= http.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}
