package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fastdo_auth/internal/lib/logger/sl"
	"fastdo_auth/internal/lib/metrics"
	"fastdo_auth/internal/lib/password"
	"fastdo_auth/internal/lib/verification"
	"fastdo_auth/internal/models"
	"fastdo_auth/internal/storage"
)

// * Register создает неподтвержденного пользователя с ролью user.
// Письмо с подтверждением уходит после коммита, его ошибка только логируется.
func (a *Auth) Register(
	ctx context.Context,
	email string,
	pass string,
	termsAccepted bool,
	privacyAccepted bool,
) (user models.User, err error) {
	const op = "auth.Register"

	defer func() { metrics.Observe("register", err) }()

	email = normalizeEmail(email)

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	log.Info("registering new user")

	var confirmationToken string

	err = a.storage.WithTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		_, err := repo.UserByEmail(ctx, email)
		if err == nil {
			return ErrUserExists
		}
		if !errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("failed to check user: %w", err)
		}

		role, err := repo.RoleByCode(ctx, defaultRole)
		if err != nil {
			if errors.Is(err, storage.ErrRoleNotFound) {
				return ErrRoleNotFound
			}
			return err
		}

		passHash, err := a.hasher.Hash(pass)
		if err != nil {
			return hashError(err)
		}

		token, expiresAt, err := a.verifier.Generate(email, models.PurposeEmailConfirmation)
		if err != nil {
			return fmt.Errorf("failed to generate confirmation token: %w", err)
		}

		now := a.now()

		u := models.User{
			Email:                   email,
			PassHash:                passHash,
			IsActive:                true,
			IsEmailConfirmed:        false,
			ConfirmationToken:       &token,
			ConfirmationTokenExpiry: &expiresAt,
			CreatedAt:               now,
			UpdatedAt:               now,
		}
		if termsAccepted {
			u.TermsAcceptedAt = &now
		}
		if privacyAccepted {
			u.PrivacyAcceptedAt = &now
		}

		id, err := repo.SaveUser(ctx, u)
		if err != nil {
			if errors.Is(err, storage.ErrUserExists) {
				return ErrUserExists
			}
			return err
		}
		u.ID = id

		if err := repo.AssignRole(ctx, id, role.ID); err != nil {
			return fmt.Errorf("failed to assign role: %w", err)
		}

		user = u
		confirmationToken = token

		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUserExists):
			log.Warn("user already exists")
		case errors.Is(err, ErrRoleNotFound):
			log.Error("default role is missing", slog.String("role", defaultRole))
		case errors.Is(err, ErrPasswordTooLong):
			log.Info("password too long")
		default:
			log.Error("failed to register user", sl.Err(err))
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.mailer.SendConfirmationEmail(ctx, email, confirmationToken); err != nil {
		log.Error("failed to send confirmation email", sl.Err(err))
	}

	log.Info("user registered", slog.Int64("uid", user.ID))

	return user, nil
}

// * ConfirmEmail подтверждает почту. Повторный, просроченный или уже использованный
// токен возвращает {false, email} без ошибки.
func (a *Auth) ConfirmEmail(ctx context.Context, rawToken string) (res models.ConfirmResult, err error) {
	const op = "auth.ConfirmEmail"

	defer func() { metrics.Observe("confirm_email", err) }()

	log := a.log.With(
		slog.String("op", op),
	)

	email, err := a.verifier.Parse(rawToken, models.PurposeEmailConfirmation)
	if err != nil {
		if errors.Is(err, verification.ErrTokenExpired) {
			log.Info("confirmation token expired", slog.String("email", email))
			return models.ConfirmResult{Success: false, Email: email}, nil
		}

		log.Info("invalid confirmation token", sl.Err(err))
		return models.ConfirmResult{}, ErrInvalidToken
	}

	log = log.With(slog.String("email", email))
	res = models.ConfirmResult{Email: email}

	err = a.storage.WithTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		user, err := repo.UserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return nil
			}
			return err
		}

		if user.IsEmailConfirmed {
			return nil
		}

		if !guardMatches(user.ConfirmationToken, user.ConfirmationTokenExpiry, rawToken, a.now()) {
			return nil
		}

		user.IsEmailConfirmed = true
		user.ConfirmationToken = nil
		user.ConfirmationTokenExpiry = nil

		if err := repo.UpdateUser(ctx, user); err != nil {
			return err
		}

		res.Success = true

		return nil
	})
	if err != nil {
		log.Error("failed to confirm email", sl.Err(err))
		return models.ConfirmResult{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email confirmation processed", slog.Bool("success", res.Success))

	return res, nil
}

// * ResendConfirmation выпускает новый токен подтверждения взамен старого.
// Для неизвестной или уже подтвержденной почты ничего не делает.
func (a *Auth) ResendConfirmation(ctx context.Context, email string) error {
	const op = "auth.ResendConfirmation"

	email = normalizeEmail(email)

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	var token string

	err := a.storage.WithTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		user, err := repo.UserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return nil
			}
			return err
		}

		if user.IsEmailConfirmed {
			return nil
		}

		t, expiresAt, err := a.verifier.Generate(email, models.PurposeEmailConfirmation)
		if err != nil {
			return err
		}

		user.ConfirmationToken = &t
		user.ConfirmationTokenExpiry = &expiresAt

		if err := repo.UpdateUser(ctx, user); err != nil {
			return err
		}

		token = t

		return nil
	})
	if err != nil {
		log.Error("failed to resend confirmation", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if token == "" {
		log.Info("nothing to resend")
		return nil
	}

	if err := a.mailer.SendConfirmationEmail(ctx, email, token); err != nil {
		log.Error("failed to send confirmation email", sl.Err(err))
	}

	return nil
}

// * ForgotPassword для существующей почты сохраняет токен сброса и отправляет письмо.
// Вызывающему не сообщается, существует ли пользователь. Ошибки хранилища и почты только логируются.
func (a *Auth) ForgotPassword(ctx context.Context, email string) error {
	const op = "auth.ForgotPassword"

	email = normalizeEmail(email)

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	var token string

	err := a.storage.WithTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		user, err := repo.UserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return nil
			}
			return err
		}

		t, expiresAt, err := a.verifier.Generate(email, models.PurposePasswordReset)
		if err != nil {
			return err
		}

		user.PasswordResetToken = &t
		user.PasswordResetTokenExpiry = &expiresAt

		if err := repo.UpdateUser(ctx, user); err != nil {
			return err
		}

		token = t

		return nil
	})
	metrics.Observe("forgot_password", err)
	if err != nil {
		log.Error("failed to prepare password reset", sl.Err(err))
		return nil
	}

	if token == "" {
		log.Info("user not found, reset mail skipped")
		return nil
	}

	if err := a.mailer.SendPasswordResetEmail(ctx, email, token); err != nil {
		log.Error("failed to send password reset email", sl.Err(err))
	}

	return nil
}

// * ResetPassword устанавливает новый пароль и завершает все сессии пользователя.
// Любая проблема с токеном дает ErrInvalidToken без изменений в базе.
func (a *Auth) ResetPassword(ctx context.Context, rawToken, newPassword string) (err error) {
	const op = "auth.ResetPassword"

	defer func() { metrics.Observe("reset_password", err) }()

	log := a.log.With(
		slog.String("op", op),
	)

	email, err := a.verifier.Parse(rawToken, models.PurposePasswordReset)
	if err != nil {
		log.Info("invalid reset token", sl.Err(err))
		return ErrInvalidToken
	}

	log = log.With(slog.String("email", email))

	var revoked int64

	err = a.storage.WithTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		user, err := repo.UserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return ErrInvalidToken
			}
			return err
		}

		if !guardMatches(user.PasswordResetToken, user.PasswordResetTokenExpiry, rawToken, a.now()) {
			return ErrInvalidToken
		}

		passHash, err := a.hasher.Hash(newPassword)
		if err != nil {
			return hashError(err)
		}

		user.PassHash = passHash
		user.PasswordResetToken = nil
		user.PasswordResetTokenExpiry = nil

		if err := repo.UpdateUser(ctx, user); err != nil {
			return err
		}

		revoked, err = repo.DeleteUserRefreshTokens(ctx, user.ID)

		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			log.Info("reset token rejected")
			return ErrInvalidToken
		}

		if errors.Is(err, ErrPasswordTooLong) {
			log.Info("password too long")
			return ErrPasswordTooLong
		}

		log.Error("failed to reset password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password reset", slog.Int64("revoked_sessions", revoked))

	return nil
}

// * ChangePassword меняет пароль по текущему паролю и завершает все сессии.
func (a *Auth) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	const op = "auth.ChangePassword"

	log := a.log.With(
		slog.String("op", op),
		slog.Int64("uid", userID),
	)

	err := a.storage.WithTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		user, err := repo.UserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return ErrInvalidCredentials
			}
			return err
		}

		if !a.hasher.Compare(user.PassHash, currentPassword) {
			return ErrInvalidCredentials
		}

		passHash, err := a.hasher.Hash(newPassword)
		if err != nil {
			return hashError(err)
		}

		user.PassHash = passHash

		if err := repo.UpdateUser(ctx, user); err != nil {
			return err
		}

		_, err = repo.DeleteUserRefreshTokens(ctx, user.ID)

		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			log.Info("current password mismatch")
			return ErrInvalidCredentials
		}

		if errors.Is(err, ErrPasswordTooLong) {
			log.Info("password too long")
			return ErrPasswordTooLong
		}

		log.Error("failed to change password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password changed")

	return nil
}

// * RequestEmailChange сохраняет новую почту как ожидающую и отправляет на нее письмо.
// Письмо отправляется внутри транзакции: если отправка не удалась, изменения откатываются.
func (a *Auth) RequestEmailChange(ctx context.Context, userID int64, newEmail string) error {
	const op = "auth.RequestEmailChange"

	newEmail = normalizeEmail(newEmail)

	log := a.log.With(
		slog.String("op", op),
		slog.Int64("uid", userID),
	)

	err := a.storage.WithTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		user, err := repo.UserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return ErrInvalidCredentials
			}
			return err
		}

		if user.Email == newEmail {
			return ErrEmailTaken
		}

		_, err = repo.UserByEmail(ctx, newEmail)
		if err == nil {
			return ErrEmailTaken
		}
		if !errors.Is(err, storage.ErrUserNotFound) {
			return err
		}

		token, expiresAt, err := a.verifier.GenerateForUser(user.ID, newEmail, models.PurposeEmailChange)
		if err != nil {
			return err
		}

		user.PendingEmail = &newEmail
		user.EmailChangeToken = &token
		user.EmailChangeTokenExpiry = &expiresAt

		if err := repo.UpdateUser(ctx, user); err != nil {
			if errors.Is(err, storage.ErrUserExists) {
				return ErrEmailTaken
			}
			return err
		}

		if err := a.mailer.SendEmailChangeConfirmation(ctx, newEmail, token); err != nil {
			log.Error("failed to send email change confirmation", sl.Err(err))
			return ErrEmailChangeFailed
		}

		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrEmailChangeFailed):
			log.Info("email change rejected", sl.Err(err))
			return err
		default:
			log.Error("failed to request email change", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	log.Info("email change requested")

	return nil
}

// * ConfirmEmailChange переносит ожидающую почту в основную.
// Пользователь берется из sub токена, а не по ожидающей почте.
func (a *Auth) ConfirmEmailChange(ctx context.Context, rawToken string) error {
	const op = "auth.ConfirmEmailChange"

	log := a.log.With(
		slog.String("op", op),
	)

	userID, newEmail, err := a.verifier.ParseForUser(rawToken, models.PurposeEmailChange)
	if err != nil {
		log.Info("invalid email change token", sl.Err(err))
		return ErrInvalidToken
	}

	log = log.With(slog.Int64("uid", userID))

	err = a.storage.WithTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		user, err := repo.UserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return ErrInvalidToken
			}
			return err
		}

		if user.PendingEmail == nil || *user.PendingEmail != newEmail {
			return ErrInvalidToken
		}

		if !guardMatches(user.EmailChangeToken, user.EmailChangeTokenExpiry, rawToken, a.now()) {
			return ErrInvalidToken
		}

		if _, err := repo.UserByEmail(ctx, newEmail); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, storage.ErrUserNotFound) {
			return err
		}

		user.Email = newEmail
		user.PendingEmail = nil
		user.EmailChangeToken = nil
		user.EmailChangeTokenExpiry = nil

		if err := repo.UpdateUser(ctx, user); err != nil {
			if errors.Is(err, storage.ErrUserExists) {
				return ErrEmailTaken
			}
			return err
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrEmailTaken) {
			log.Info("email change confirmation rejected", sl.Err(err))
			return err
		}

		log.Error("failed to confirm email change", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email changed", slog.String("email", newEmail))

	return nil
}

func hashError(err error) error {
	if errors.Is(err, password.ErrTooLong) {
		return ErrPasswordTooLong
	}

	return fmt.Errorf("failed to generate password hash: %w", err)
}
