package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	config "github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/configs"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/application/services"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/infrastructure/db"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/infrastructure/email"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/infrastructure/health"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/infrastructure/httpserver"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/infrastructure/redis"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/infrastructure/repositories"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := newLogger(&cfg.Log)
	logger.Info("Starting storefront auth service...")

	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()
	logger.Info("Connected to database successfully")

	if err := database.Migrate(cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("Failed to run migrations:", err)
	}

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis successfully")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	healthCheckers := []ports.HealthChecker{
		health.NewDBHealthChecker(database),
		health.NewRedisHealthChecker(redisClient),
	}

	stores, err := buildChallengeStores(ctx, cfg, database, redisClient, logger)
	if err != nil {
		logger.Fatal("Failed to set up challenge stores:", err)
	}
	healthCheckers = append(healthCheckers, stores.healthCheckers...)

	redisCache := redis.NewRedisCache(redisClient, "app:cache")
	accounts := repositories.NewCachingAccountRepository(
		repositories.NewAccountRepository(database, logger),
		redisCache,
		cfg.Redis.CacheTTL,
	)

	var notifier ports.Notifier
	if cfg.Email.SendGridAPIKey != "" {
		notifier, err = email.NewSendGridNotifier(&cfg.Email, logger)
		if err != nil {
			logger.Fatal("Failed to initialize email notifier:", err)
		}
	} else {
		logger.Warn("SENDGRID_API_KEY not set; codes are written to the log instead of emailed")
		notifier = email.NewLogNotifier(logger)
	}
	dispatcher := services.NewNotificationDispatcher(notifier, &services.NotificationDispatcherConfig{
		Workers:   cfg.Notification.Workers,
		QueueSize: cfg.Notification.QueueSize,
		Timeout:   cfg.Notification.Timeout,
	}, logger)

	limiter := services.NewRateLimiterService(repositories.NewRateLimitRedisRepository(redisClient), &services.RateLimiterConfig{
		Limit:     cfg.RateLimit.ChallengesPerWindow,
		Window:    cfg.RateLimit.Window,
		KeyPrefix: cfg.RateLimit.KeyPrefix,
	}, logger)

	clock := services.SystemClock{}
	sessions := services.NewJWTSessionIssuer(&cfg.JWT, clock)

	verificationService := services.NewVerificationService(services.VerificationDeps{
		Accounts:      accounts,
		Registrations: stores.registrations,
		Logins:        stores.logins,
		Tokens:        services.NewHexTokenGenerator(cfg.Challenge.TokenBytes),
		Sessions:      sessions,
		Queue:         dispatcher,
		Limiter:       limiter,
		Clock:         clock,
	}, services.VerificationConfig{
		RegistrationTTL: cfg.Challenge.RegistrationTTL,
		LoginTTL:        cfg.Challenge.LoginTTL,
		OTPSessionTTL:   cfg.JWT.OTPLoginTTL,
		MaxAttempts:     cfg.Challenge.MaxAttempts,
	}, logger)

	authService := services.NewAuthService(
		accounts,
		sessions,
		repositories.NewTokenDenylistRedisRepository(redisClient, clock, logger),
		cfg.JWT.PasswordLoginTTL,
		logger,
	)

	sweeper := services.NewChallengeSweeper(stores.sweepable, clock, cfg.Challenge.SweepInterval, logger)
	go sweeper.Run(ctx)

	server := httpserver.NewServer(&httpserver.ServerConfig{
		Host:                  cfg.Server.Host,
		Port:                  cfg.Server.Port,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		TLSCertFile:           cfg.Server.TLSCertFile,
		TLSKeyFile:            cfg.Server.TLSKeyFile,
		AuthRequestsPerSecond: cfg.RateLimit.IPRequestsPerSecond,
		AuthBurst:             cfg.RateLimit.IPBurst,
	}, logger, httpserver.ServerDeps{
		VerificationService: verificationService,
		AuthService:         authService,
		HealthCheckers:      healthCheckers,
	})

	go func() {
		if err := server.Start(); err != nil {
			logger.Info("Server stopped: ", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown: ", err)
	}
	// deliver codes that were already accepted before exiting
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("Notification queue not fully drained: ", err)
	}

	logger.Info("Server exited")
}

func newLogger(cfg *config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}
	return logger
}
