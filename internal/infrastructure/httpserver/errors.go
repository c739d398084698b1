package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/auth"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/infrastructure/httpserver/helpers"
)

func statusForKind(kind challenge.Kind) int {
	switch kind {
	case challenge.KindAlreadyExists:
		return http.StatusConflict
	case challenge.KindNoPendingChallenge, challenge.KindAccountNotFound:
		return http.StatusNotFound
	case challenge.KindExpired:
		return http.StatusGone
	case challenge.KindInvalidCode:
		return http.StatusBadRequest
	case challenge.KindAttemptsExceeded, challenge.KindRateLimited:
		return http.StatusTooManyRequests
	case challenge.KindInvalidCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

// errorResponse turns a service error into an HTTP error. Domain errors keep
// their message; anything else is logged and reported as a generic 500.
func (s *Server) errorResponse(c echo.Context, err error) error {
	var de *challenge.Error
	if errors.As(err, &de) {
		return echo.NewHTTPError(statusForKind(de.Kind), helpers.ErrorBody{
			Kind:    string(de.Kind),
			Message: de.Message,
			Expired: de.Expired(),
		})
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrSessionRevoked) {
		return helpers.Unauthorized(err.Error())
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		}).WithError(err).Error("request failed")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, helpers.ErrorBody{
		Kind:    "internal",
		Message: "internal server error",
	})
}

// bind decodes and validates a request body
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, helpers.ErrorBody{Kind: "validation", Message: "invalid request body"})
	}
	return c.Validate(req)
}
