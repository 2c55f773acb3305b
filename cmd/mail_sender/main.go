package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"fastdo_auth/internal/config"
	"fastdo_auth/internal/lib/logger/sl"
	mailer "fastdo_auth/internal/mail-sender"
	"fastdo_auth/internal/models"
	"fastdo_auth/internal/rabbitmq"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoadMailSender()
	log := setupLogger(cfg.Env)

	log.Info("Starting mail_sender", slog.String("env", cfg.Env))

	startConsumer(ctx, cfg, log)
}

func startConsumer(ctx context.Context, cfg *config.MailSender, log *slog.Logger) {
	r, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to init rabbitmq", sl.Err(err))
		return
	}
	defer r.Close()

	m := &mailer.Mailer{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		err := r.StartReading(ctx, func(ctx context.Context, msg models.Message) error {
			if err := m.Deliver(ctx, msg); err != nil {
				log.Error("failed to send message",
					slog.String("purpose", msg.Purpose),
					sl.Err(err),
				)
				return err
			}

			log.Info("message sent successfully", slog.String("purpose", msg.Purpose))

			return nil
		})
		if err != nil {
			log.Error("failed to read queue", sl.Err(err))
			return
		}
	}()

	log.Info("consumer successfully started")

	select {
	case <-ctx.Done():
		log.Info("shutting down consumer...")
		<-done
	case <-done:
		log.Info("consumer finished the work")
	}

	log.Info("service gracefully stopped")
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
