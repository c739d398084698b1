package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")
	auth := api.Group("/auth", s.middleware.RateLimit.Handler())

	auth.POST("/register", s.register)
	auth.POST("/register/verify", s.verifyRegistration)
	auth.POST("/register/resend", s.resendRegistration)

	auth.POST("/login", s.login)
	auth.POST("/login/otp", s.requestLoginCode)
	auth.POST("/login/otp/verify", s.verifyLoginCode)
	auth.POST("/login/otp/resend", s.resendLoginCode)

	auth.POST("/resend", s.resend)

	protected := auth.Group("", s.middleware.JWT.RequireJWT())
	protected.POST("/logout", s.logout)
	protected.GET("/me", s.me)
}
