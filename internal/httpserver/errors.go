package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/account_service/internal/service"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrTokenNotFound),
		errors.Is(err, service.ErrTokenInactive),
		errors.Is(err, service.ErrTokenReuseDetected):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidResetToken):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, service.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(err error) string {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, service.ErrStoreUnavailable):
		return "service temporarily unavailable, retry later"
	case statusFor(err) == http.StatusInternalServerError:
		return "internal error"
	default:
		return err.Error()
	}
}

func httpError(err error) *echo.HTTPError {
	he := echo.NewHTTPError(statusFor(err), publicMessage(err))
	return he.SetInternal(err)
}
