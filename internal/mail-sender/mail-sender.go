package mailSender

import (
	"context"
	"errors"
	"fmt"

	"fastdo_auth/internal/models"

	"gopkg.in/gomail.v2"
)

var ErrUnknownPurpose = errors.New("unknown message purpose")

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// * Compose возвращает тему и текст письма для назначения сообщения.
func Compose(msg models.Message) (subject, body string, err error) {
	switch msg.Purpose {
	case models.PurposeEmailConfirmation:
		return "Подтверждение почты",
			"Чтобы подтвердить почту, перейдите по ссылке:\n" + msg.Link +
				"\n\nЕсли вы не регистрировались в fastdo, просто проигнорируйте это письмо.", nil
	case models.PurposePasswordReset:
		return "Сброс пароля",
			"Чтобы задать новый пароль, перейдите по ссылке:\n" + msg.Link +
				"\n\nЕсли вы не запрашивали сброс, ничего делать не нужно.", nil
	case models.PurposeEmailChange:
		return "Смена почты",
			"Чтобы подтвердить новый адрес, перейдите по ссылке:\n" + msg.Link, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownPurpose, msg.Purpose)
	}
}

// * Deliver собирает письмо и отправляет его по SMTP.
func (m *Mailer) Deliver(_ context.Context, msg models.Message) error {
	const op = "mailSender.Deliver"

	subject, body, err := Compose(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := m.Send(msg.Email, subject, body); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (m *Mailer) Send(to, subject, body string) error {
	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	return dialer.DialAndSend(m.newMessage(to, subject, body))
}

func (m *Mailer) newMessage(to, subject, body string) *gomail.Message {
	from := m.From
	if from == "" {
		from = m.Username
	}

	msg := gomail.NewMessage()
	msg.SetHeader("To", to)
	msg.SetHeader("From", from)
	msg.SetHeader("Subject", subject)

	msg.SetBody("text/plain", body)

	return msg
}
