package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tripeco/identity-service/internal/api/handler"
	"github.com/tripeco/identity-service/internal/core/domain"
)

const (
	genericMessage = "Unable to process your request, please try again."
	sessionMessage = "Your session is not valid. Please log in again."
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain validation and authentication errors to their status codes.
//   - Logs unexpected errors without leaking details to the client.
//   - Renders every failure with the handler.ErrorResponse envelope.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, handler.ErrorResponse) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return validationStatus(verr.Kind), handler.NewErrorResponse(verr.Message, verr.Developer)
	}

	var aerr *domain.AuthError
	if errors.As(err, &aerr) {
		return http.StatusUnauthorized, handler.NewErrorResponse(handler.LoginFailureMessage(err), aerr.Developer)
	}

	switch {
	case errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenBadSignature),
		errors.Is(err, domain.ErrTokenMalformed):
		return http.StatusUnauthorized, handler.NewErrorResponse(sessionMessage, err.Error())
	}

	// Echo's own errors (unknown route, method not allowed, body too large).
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
		return he.Code, handler.NewErrorResponse(genericMessage, fmt.Sprintf("%v", he.Message))
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("unhandled error")

	return http.StatusInternalServerError, handler.NewErrorResponse(genericMessage, "")
}

func validationStatus(kind domain.ValidationKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindWeakPassword, domain.KindEmailInUse, domain.KindInvalidRequest:
		return http.StatusUnprocessableEntity
	case domain.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}
