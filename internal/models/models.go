package models

import "time"

type User struct {
	ID               int64
	Email            string
	PassHash         []byte
	IsActive         bool
	IsEmailConfirmed bool

	TermsAcceptedAt   *time.Time
	PrivacyAcceptedAt *time.Time

	ConfirmationToken       *string
	ConfirmationTokenExpiry *time.Time

	PasswordResetToken       *string
	PasswordResetTokenExpiry *time.Time

	PendingEmail           *string
	EmailChangeToken       *string
	EmailChangeTokenExpiry *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Role struct {
	ID   int64
	Code string
	Name string
}

type RefreshToken struct {
	ID        int64
	TokenHash []byte
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// * IsExpired проверяет, истек ли срок действия токена
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type ConfirmResult struct {
	Success bool   `json:"success"`
	Email   string `json:"email"`
}

const (
	PurposeEmailConfirmation = "email_confirmation"
	PurposePasswordReset     = "password_reset"
	PurposeEmailChange       = "email_change"
)

type Message struct {
	Email   string `json:"to"`
	Link    string `json:"link"`
	Purpose string `json:"purpose"`
}
