package storage

import (
	"context"
	"errors"
	"time"

	"fastdo_auth/internal/models"
)

var (
	ErrUserExists           = errors.New("user already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrRoleNotFound         = errors.New("role not found")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
)

// Repository - набор операций над пользователями, ролями и refresh токенами.
// Реализация, полученная внутри WithTx, работает в рамках одной транзакции.
type Repository interface {
	SaveUser(ctx context.Context, user models.User) (int64, error)
	UpdateUser(ctx context.Context, user models.User) error
	UserByID(ctx context.Context, id int64) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)

	RoleByCode(ctx context.Context, code string) (models.Role, error)
	UserRoles(ctx context.Context, userID int64) ([]string, error)
	AssignRole(ctx context.Context, userID, roleID int64) error

	SaveRefreshToken(ctx context.Context, token models.RefreshToken) (int64, error)
	RefreshTokens(ctx context.Context, userID int64) ([]models.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, id int64) error
	DeleteUserRefreshTokens(ctx context.Context, userID int64) (int64, error)
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
	TrimRefreshTokens(ctx context.Context, userID int64, keep int) (int64, error)
}

type TxFunc func(ctx context.Context, repo Repository) error
