package postgres

import (
	"context"
	"errors"
	"fmt"

	"fastdo_auth/internal/models"
	"fastdo_auth/internal/storage"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, password_hash, is_active, is_email_confirmed,
		terms_accepted_at, privacy_accepted_at,
		confirmation_token, confirmation_token_expiry,
		password_reset_token, password_reset_token_expiry,
		pending_email, email_change_token, email_change_token_expiry,
		created_at, updated_at`

func (r *PostgresRepo) SaveUser(ctx context.Context, u models.User) (int64, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (
			email, password_hash, is_active, is_email_confirmed,
			terms_accepted_at, privacy_accepted_at,
			confirmation_token, confirmation_token_expiry
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id;
	`

	var id int64

	err := r.q.QueryRow(ctx, query,
		u.Email,
		u.PassHash,
		u.IsActive,
		u.IsEmailConfirmed,
		u.TermsAcceptedAt,
		u.PrivacyAcceptedAt,
		u.ConfirmationToken,
		u.ConfirmationTokenExpiry,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, storage.ErrUserExists
		}

		return 0, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

// * UpdateUser перезаписывает все изменяемые поля пользователя.
func (r *PostgresRepo) UpdateUser(ctx context.Context, u models.User) error {
	const op = "storage.postgres.UpdateUser"

	query := `
		UPDATE users SET
			email = $2,
			password_hash = $3,
			is_active = $4,
			is_email_confirmed = $5,
			confirmation_token = $6,
			confirmation_token_expiry = $7,
			password_reset_token = $8,
			password_reset_token_expiry = $9,
			pending_email = $10,
			email_change_token = $11,
			email_change_token_expiry = $12,
			updated_at = NOW()
		WHERE id = $1;
	`

	tag, err := r.q.Exec(ctx, query,
		u.ID,
		u.Email,
		u.PassHash,
		u.IsActive,
		u.IsEmailConfirmed,
		u.ConfirmationToken,
		u.ConfirmationTokenExpiry,
		u.PasswordResetToken,
		u.PasswordResetTokenExpiry,
		u.PendingEmail,
		u.EmailChangeToken,
		u.EmailChangeTokenExpiry,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrUserExists
		}

		return fmt.Errorf("%s: failed to update user: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepo) UserByID(ctx context.Context, id int64) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1` + r.lockClause()

	return r.scanUser(r.q.QueryRow(ctx, query, id), "storage.postgres.UserByID")
}

func (r *PostgresRepo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1` + r.lockClause()

	return r.scanUser(r.q.QueryRow(ctx, query, email), "storage.postgres.UserByEmail")
}

func (r *PostgresRepo) scanUser(row pgx.Row, op string) (models.User, error) {
	var u models.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PassHash,
		&u.IsActive,
		&u.IsEmailConfirmed,
		&u.TermsAcceptedAt,
		&u.PrivacyAcceptedAt,
		&u.ConfirmationToken,
		&u.ConfirmationTokenExpiry,
		&u.PasswordResetToken,
		&u.PasswordResetTokenExpiry,
		&u.PendingEmail,
		&u.EmailChangeToken,
		&u.EmailChangeTokenExpiry,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}
