package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/auth"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/infrastructure/httpserver/helpers"
)

// login authenticates with email and password
func (s *Server) login(c echo.Context) error {
	var req auth.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session, err := s.authSvc.PasswordLogin(c.Request().Context(), &req)
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (s *Server) logout(c echo.Context) error {
	token, err := helpers.GetSessionTokenFromContext(c)
	if err != nil {
		return err
	}
	if err := s.authSvc.Logout(c.Request().Context(), token); err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

// me returns the identity carried by the session token
func (s *Server) me(c echo.Context) error {
	claims, err := helpers.GetClaimsFromContext(c)
	if err != nil {
		return err
	}
	resp := map[string]interface{}{
		"id":    claims.AccountID,
		"email": claims.Email,
		"role":  claims.Role,
	}
	if claims.ExpiresAt != nil {
		resp["expires_at"] = claims.ExpiresAt.Time
	}
	return c.JSON(http.StatusOK, resp)
}
