package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/auth"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
)

type ticketResponse struct {
	Message string `json:"message"`
	*auth.ChallengeTicket
}

func (s *Server) ticket(c echo.Context, message string, purpose challenge.Purpose, t *auth.ChallengeTicket, err error) error {
	recordChallengeEvent(purpose, "issued", err)
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusAccepted, ticketResponse{Message: message, ChallengeTicket: t})
}

// register starts a registration and emails a code
func (s *Server) register(c echo.Context) error {
	var req auth.RegistrationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	t, err := s.verifySvc.RequestRegistration(c.Request().Context(), &req)
	return s.ticket(c, "verification code sent", challenge.PurposeRegistration, t, err)
}

// verifyRegistration creates the account once the code checks out. No session
// is issued; the client signs in afterwards.
func (s *Server) verifyRegistration(c echo.Context) error {
	var req auth.VerifyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	acct, err := s.verifySvc.VerifyRegistration(c.Request().Context(), req.Email, req.Code)
	recordChallengeEvent(challenge.PurposeRegistration, "verified", err)
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "account created",
		"account": acct.Projection(),
	})
}

func (s *Server) resendRegistration(c echo.Context) error {
	var req auth.EmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	t, err := s.verifySvc.ResendRegistration(c.Request().Context(), req.Email)
	return s.ticket(c, "verification code resent", challenge.PurposeRegistration, t, err)
}

func (s *Server) requestLoginCode(c echo.Context) error {
	var req auth.EmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	t, err := s.verifySvc.RequestLogin(c.Request().Context(), req.Email)
	return s.ticket(c, "login code sent", challenge.PurposeLogin, t, err)
}

func (s *Server) verifyLoginCode(c echo.Context) error {
	var req auth.VerifyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	session, err := s.verifySvc.VerifyLogin(c.Request().Context(), req.Email, req.Code)
	recordChallengeEvent(challenge.PurposeLogin, "verified", err)
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (s *Server) resendLoginCode(c echo.Context) error {
	var req auth.EmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	t, err := s.verifySvc.ResendLogin(c.Request().Context(), req.Email)
	return s.ticket(c, "login code resent", challenge.PurposeLogin, t, err)
}

// resend is the purpose-tagged variant of the two resend routes
func (s *Server) resend(c echo.Context) error {
	var req auth.ResendRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	t, err := s.verifySvc.Resend(c.Request().Context(), req.Email, req.Purpose)
	return s.ticket(c, "code resent", req.Purpose, t, err)
}
