package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fastdo_auth/internal/lib/jwt"
	"fastdo_auth/internal/lib/logger/sl"
	"fastdo_auth/internal/lib/metrics"
	"fastdo_auth/internal/lib/password"
	"fastdo_auth/internal/lib/verification"
	"fastdo_auth/internal/models"
	"fastdo_auth/internal/storage"
)

const (
	defaultRole   = "user"
	dummyPassword = "fastdo-dummy-password"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrUserExists          = errors.New("user already exists")
	ErrEmailTaken          = errors.New("email already taken")
	ErrRoleNotFound        = errors.New("role not found")
	ErrEmailChangeFailed   = errors.New("failed to send email change confirmation")
	ErrPasswordTooLong     = errors.New("password too long")
)

// Storage - репозиторий с поддержкой транзакций.
type Storage interface {
	storage.Repository
	WithTx(ctx context.Context, fn storage.TxFunc) error
}

// Mailer отправляет письма. Для сервиса это побочный эффект: кроме смены почты,
// ошибки отправки только логируются.
type Mailer interface {
	SendConfirmationEmail(ctx context.Context, to, token string) error
	SendPasswordResetEmail(ctx context.Context, to, token string) error
	SendEmailChangeConfirmation(ctx context.Context, to, token string) error
}

type Auth struct {
	log         *slog.Logger
	storage     Storage
	hasher      *password.Hasher
	tokens      *jwt.Manager
	verifier    *verification.Issuer
	mailer      Mailer
	maxSessions int
	now         func() time.Time

	// dummyHash сравнивается с паролем для неизвестной почты, чтобы время ответа не отличалось.
	dummyHash []byte
}

func New(
	log *slog.Logger,
	storage Storage,
	hasher *password.Hasher,
	tokens *jwt.Manager,
	verifier *verification.Issuer,
	mailer Mailer,
	maxSessions int,
) *Auth {
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		log.Error("failed to prepare dummy password hash", sl.Err(err))
	}

	return &Auth{
		log:         log,
		storage:     storage,
		hasher:      hasher,
		tokens:      tokens,
		verifier:    verifier,
		mailer:      mailer,
		maxSessions: maxSessions,
		now:         time.Now,
		dummyHash:   dummyHash,
	}
}

func (a *Auth) WithClock(now func() time.Time) *Auth {
	a.now = now
	return a
}

// * IsUnauthorized сообщает, что ошибка должна уйти клиенту как 401.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidRefreshToken) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrEmailChangeFailed)
}

// * Login проверяет учетные данные и возвращает access и refresh токены
func (a *Auth) Login(ctx context.Context, email, pass string) (pair models.TokenPair, err error) {
	const op = "auth.Login"

	defer func() { metrics.Observe("login", err) }()

	email = normalizeEmail(email)

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	user, err := a.storage.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			a.hasher.Compare(a.dummyHash, pass)

			log.Info("user not found")
			return models.TokenPair{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if !a.hasher.Compare(user.PassHash, pass) {
		log.Info("invalid password")
		return models.TokenPair{}, ErrInvalidCredentials
	}

	if !user.IsEmailConfirmed {
		log.Info("email not confirmed", slog.Int64("uid", user.ID))
		return models.TokenPair{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		log.Info("user is inactive", slog.Int64("uid", user.ID))
		return models.TokenPair{}, ErrInvalidCredentials
	}

	pair, err = a.issueTokens(ctx, a.storage, user)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.RefreshTokensIssued.Inc()

	log.Info("user logged in successfully", slog.Int64("uid", user.ID))

	return pair, nil
}

// * RefreshToken меняет refresh токен на новую пару. Старый токен удаляется
// в той же транзакции, поэтому повторно его использовать нельзя.
func (a *Auth) RefreshToken(ctx context.Context, rawRefreshToken string) (pair models.TokenPair, err error) {
	const op = "auth.RefreshToken"

	defer func() { metrics.Observe("refresh", err) }()

	log := a.log.With(
		slog.String("op", op),
	)

	userID, err := a.tokens.ParseRefreshToken(rawRefreshToken)
	if err != nil {
		log.Info("invalid refresh token", sl.Err(err))
		return models.TokenPair{}, ErrInvalidRefreshToken
	}

	log = log.With(slog.Int64("uid", userID))

	err = a.storage.WithTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		user, err := repo.UserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return ErrInvalidRefreshToken
			}
			return err
		}

		if !user.IsActive || !user.IsEmailConfirmed {
			return ErrInvalidRefreshToken
		}

		stored, err := repo.RefreshTokens(ctx, user.ID)
		if err != nil {
			return err
		}

		matched := a.matchRefreshToken(stored, rawRefreshToken)
		if matched == nil {
			return ErrInvalidToken
		}

		if matched.IsExpired(a.now()) {
			return ErrTokenExpired
		}

		if err := repo.DeleteRefreshToken(ctx, matched.ID); err != nil {
			if errors.Is(err, storage.ErrRefreshTokenNotFound) {
				return ErrInvalidToken
			}
			return err
		}

		pair, err = a.issueTokens(ctx, repo, user)

		return err
	})
	if err != nil {
		if IsUnauthorized(err) {
			log.Info("refresh rejected", sl.Err(err))
			return models.TokenPair{}, err
		}

		log.Error("failed to refresh tokens", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.RefreshTokensIssued.Inc()

	log.Info("refresh successful")

	return pair, nil
}

// * Logout удаляет только совпавший refresh токен. Отсутствие совпадения ошибкой не считается.
func (a *Auth) Logout(ctx context.Context, userID int64, rawRefreshToken string) (err error) {
	const op = "auth.Logout"

	defer func() { metrics.Observe("logout", err) }()

	log := a.log.With(
		slog.String("op", op),
		slog.Int64("uid", userID),
	)

	stored, err := a.storage.RefreshTokens(ctx, userID)
	if err != nil {
		log.Error("failed to list refresh tokens", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	matched := a.matchRefreshToken(stored, rawRefreshToken)
	if matched == nil {
		log.Info("refresh token not found, nothing to do")
		return nil
	}

	if err := a.storage.DeleteRefreshToken(ctx, matched.ID); err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			return nil
		}

		log.Error("failed to delete refresh token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("logout successful")

	return nil
}

func (a *Auth) LogoutFromAllDevices(ctx context.Context, userID int64) (err error) {
	const op = "auth.LogoutFromAllDevices"

	defer func() { metrics.Observe("logout_all", err) }()

	log := a.log.With(
		slog.String("op", op),
		slog.Int64("uid", userID),
	)

	deleted, err := a.storage.DeleteUserRefreshTokens(ctx, userID)
	if err != nil {
		log.Error("failed to delete refresh tokens", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("logged out from all devices", slog.Int64("deleted", deleted))

	return nil
}

// * ParseAccessToken проверяет access токен из заголовка Authorization.
func (a *Auth) ParseAccessToken(token string) (jwt.AccessClaims, error) {
	claims, err := a.tokens.ParseAccessToken(token)
	if err != nil {
		return jwt.AccessClaims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return claims, nil
}

// issueTokens выпускает пару токенов и сохраняет хеш refresh токена через repo.
func (a *Auth) issueTokens(ctx context.Context, repo storage.Repository, user models.User) (models.TokenPair, error) {
	roles, err := repo.UserRoles(ctx, user.ID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("failed to load roles: %w", err)
	}

	accessToken, err := a.tokens.NewAccessToken(user.ID, user.Email, roles)
	if err != nil {
		return models.TokenPair{}, err
	}

	refreshToken, expiresAt, err := a.tokens.NewRefreshToken(user.ID)
	if err != nil {
		return models.TokenPair{}, err
	}

	refreshHash, err := a.hasher.HashToken(refreshToken)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("failed to hash refresh token: %w", err)
	}

	_, err = repo.SaveRefreshToken(ctx, models.RefreshToken{
		UserID:    user.ID,
		TokenHash: refreshHash,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("failed to save refresh token: %w", err)
	}

	if a.maxSessions > 0 {
		if _, err := repo.TrimRefreshTokens(ctx, user.ID, a.maxSessions); err != nil {
			return models.TokenPair{}, fmt.Errorf("failed to trim refresh tokens: %w", err)
		}
	}

	return models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// хеши соленые, поэтому сравниваем с каждой строкой по очереди
func (a *Auth) matchRefreshToken(stored []models.RefreshToken, raw string) *models.RefreshToken {
	for i := range stored {
		if a.hasher.CompareToken(stored[i].TokenHash, raw) {
			return &stored[i]
		}
	}

	return nil
}

// guardMatches проверяет одноразовое поле токена на пользователе.
func guardMatches(stored *string, expiry *time.Time, presented string, now time.Time) bool {
	if stored == nil || expiry == nil {
		return false
	}

	if subtle.ConstantTimeCompare([]byte(*stored), []byte(presented)) != 1 {
		return false
	}

	return expiry.After(now)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
