package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fastdo_auth/internal/lib/logger/sl"
	"fastdo_auth/internal/models"
)

type publisherMock struct {
	mock.Mock
}

func (p *publisherMock) SendMessage(ctx context.Context, msg models.Message) error {
	args := p.Called(ctx, msg)
	return args.Error(0)
}

func TestMailer_Links(t *testing.T) {
	tests := []struct {
		name    string
		send    func(m *Mailer) error
		purpose string
		link    string
	}{
		{
			name:    "confirmation",
			send:    func(m *Mailer) error { return m.SendConfirmationEmail(context.Background(), "alice@example.com", "a.b.c") },
			purpose: models.PurposeEmailConfirmation,
			link:    "http://front.test/confirm-email?token=a.b.c",
		},
		{
			name:    "password reset",
			send:    func(m *Mailer) error { return m.SendPasswordResetEmail(context.Background(), "alice@example.com", "a.b.c") },
			purpose: models.PurposePasswordReset,
			link:    "http://front.test/reset-password?token=a.b.c",
		},
		{
			name:    "email change",
			send:    func(m *Mailer) error { return m.SendEmailChangeConfirmation(context.Background(), "alice@example.com", "a+b") },
			purpose: models.PurposeEmailChange,
			link:    "http://front.test/confirm-email-change?token=a%2Bb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &publisherMock{}
			pub.On("SendMessage", mock.Anything, models.Message{
				Email:   "alice@example.com",
				Link:    tt.link,
				Purpose: tt.purpose,
			}).Return(nil).Once()

			m := New(sl.NewDiscardLogger(), pub, "http://front.test/")

			require.NoError(t, tt.send(m))
			pub.AssertExpectations(t)
		})
	}
}

func TestMailer_PublishError(t *testing.T) {
	pub := &publisherMock{}
	boom := errors.New("broker unavailable")
	pub.On("SendMessage", mock.Anything, mock.Anything).Return(boom)

	m := New(sl.NewDiscardLogger(), pub, "http://front.test")

	err := m.SendConfirmationEmail(context.Background(), "alice@example.com", "tok")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
