package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fastdo_auth/internal/auth"
	"fastdo_auth/internal/config"
	"fastdo_auth/internal/http_server/handlers"
	changeEmail "fastdo_auth/internal/http_server/handlers/change_email"
	changePassword "fastdo_auth/internal/http_server/handlers/change_password"
	confirmEmail "fastdo_auth/internal/http_server/handlers/confirm_email"
	confirmEmailChange "fastdo_auth/internal/http_server/handlers/confirm_email_change"
	forgotPassword "fastdo_auth/internal/http_server/handlers/forgot_password"
	"fastdo_auth/internal/http_server/handlers/login"
	"fastdo_auth/internal/http_server/handlers/logout"
	logoutAll "fastdo_auth/internal/http_server/handlers/logout_all"
	"fastdo_auth/internal/http_server/handlers/refresh"
	"fastdo_auth/internal/http_server/handlers/register"
	resendConfirmation "fastdo_auth/internal/http_server/handlers/resend_confirmation"
	resetPassword "fastdo_auth/internal/http_server/handlers/reset_password"
	"fastdo_auth/internal/lib/jwt"
	"fastdo_auth/internal/lib/logger/sl"
	"fastdo_auth/internal/lib/metrics"
	"fastdo_auth/internal/lib/password"
	"fastdo_auth/internal/lib/verification"
	"fastdo_auth/internal/mail"
	"fastdo_auth/internal/middleware/authn"
	rateLimit "fastdo_auth/internal/middleware/ratelimit"
	"fastdo_auth/internal/rabbitmq"
	"fastdo_auth/internal/storage/postgres"
	"fastdo_auth/internal/sweeper"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting auth service", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		os.Exit(1)
	}
	defer storage.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer msgBroker.Close()

	authService := auth.New(
		log,
		storage,
		password.New(cfg.Password.BcryptCost),
		jwt.New(
			cfg.Tokens.AccessTokenSecret,
			cfg.Tokens.RefreshTokenSecret,
			cfg.Tokens.AccessTokenTTL,
			cfg.Tokens.RefreshTokenTTL,
		),
		verification.New(cfg.Tokens.VerificationTokenSecret, cfg.Tokens.VerificationTokenTTL),
		mail.New(log, msgBroker, cfg.App.FrontendURL),
		cfg.Sessions.MaxPerUser,
	)

	sweep := sweeper.New(log, storage, cfg.Sweeper.Schedule, cfg.Sweeper.Timeout)
	if err := sweep.Start(); err != nil {
		log.Error("failed to start sweeper", sl.Err(err))
		os.Exit(1)
	}

	router := setupRouter(log, authService)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	if err := sweep.Stop(shutdownCtx); err != nil {
		log.Error("Sweeper shutdown error", sl.Err(err))
	}

	log.Info("Main service stopped")
}

func setupRouter(log *slog.Logger, authService *auth.Auth) *chi.Mux {
	validate := handlers.NewValidator()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.With(rateLimit.Register()).Post("/register", register.New(log, validate, authService))
		r.With(rateLimit.Login()).Post("/login", login.New(log, validate, authService))
		r.With(rateLimit.Refresh()).Post("/refresh", refresh.New(log, validate, authService))

		r.With(rateLimit.ConfirmEmail()).Get("/confirm-email", confirmEmail.New(log, authService))
		r.With(rateLimit.ResendConfirmation()).Post("/confirm-email/resend", resendConfirmation.New(log, validate, authService))

		r.With(rateLimit.ForgotPassword()).Post("/forgot-password", forgotPassword.New(log, validate, authService))
		r.With(rateLimit.ResetPassword()).Post("/reset-password", resetPassword.New(log, validate, authService))

		r.With(rateLimit.ConfirmEmail()).Get("/email/confirm", confirmEmailChange.New(log, authService))

		r.Group(func(r chi.Router) {
			r.Use(authn.New(log, authService))

			r.With(rateLimit.Logout()).Post("/logout", logout.New(log, validate, authService))
			r.With(rateLimit.Logout()).Post("/logout-all", logoutAll.New(log, authService))

			r.With(rateLimit.Account()).Post("/password", changePassword.New(log, validate, authService))
			r.With(rateLimit.Account()).Post("/email", changeEmail.New(log, validate, authService))
		})
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
