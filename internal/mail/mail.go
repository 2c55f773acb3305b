package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"fastdo_auth/internal/lib/metrics"
	"fastdo_auth/internal/models"
)

const (
	confirmEmailPath       = "/confirm-email"
	resetPasswordPath      = "/reset-password"
	confirmEmailChangePath = "/confirm-email-change"
)

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

// Mailer кладет письма в очередь. Доставкой по SMTP занимается mail_sender.
type Mailer struct {
	log         *slog.Logger
	publisher   Publisher
	frontendURL string
}

func New(log *slog.Logger, publisher Publisher, frontendURL string) *Mailer {
	return &Mailer{
		log:         log,
		publisher:   publisher,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

func (m *Mailer) SendConfirmationEmail(ctx context.Context, to, token string) error {
	return m.send(ctx, to, token, models.PurposeEmailConfirmation, confirmEmailPath)
}

func (m *Mailer) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	return m.send(ctx, to, token, models.PurposePasswordReset, resetPasswordPath)
}

func (m *Mailer) SendEmailChangeConfirmation(ctx context.Context, to, token string) error {
	return m.send(ctx, to, token, models.PurposeEmailChange, confirmEmailChangePath)
}

func (m *Mailer) send(ctx context.Context, to, token, purpose, path string) error {
	const op = "mail.send"

	msg := models.Message{
		Email:   to,
		Link:    m.link(path, token),
		Purpose: purpose,
	}

	if err := m.publisher.SendMessage(ctx, msg); err != nil {
		metrics.MailPublishErrors.WithLabelValues(purpose).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}

	m.log.Debug("mail queued",
		slog.String("op", op),
		slog.String("purpose", purpose),
	)

	return nil
}

func (m *Mailer) link(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", m.frontendURL, path, url.QueryEscape(token))
}
