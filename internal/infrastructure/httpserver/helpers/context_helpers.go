package helpers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/auth"
)

// ErrorBody is the JSON shape of every error the API returns.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Expired bool   `json:"expired,omitempty"`
}

func Unauthorized(message string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, ErrorBody{Kind: "unauthorized", Message: message})
}

// GetBearerToken extracts the session token from the Authorization header.
func GetBearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", Unauthorized("missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", Unauthorized("invalid authorization header format")
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", Unauthorized("empty token")
	}
	return token, nil
}

// GetClaimsFromContext returns the claims stored by the JWT middleware.
func GetClaimsFromContext(c echo.Context) (*auth.Claims, error) {
	claims, ok := GetClaimsRaw(c)
	if !ok || claims == nil {
		return nil, Unauthorized("invalid session context")
	}
	return claims, nil
}

// GetSessionTokenFromContext prefers the token the middleware already verified.
func GetSessionTokenFromContext(c echo.Context) (string, error) {
	if token, ok := GetTokenRaw(c); ok {
		return token, nil
	}
	return GetBearerToken(c)
}
