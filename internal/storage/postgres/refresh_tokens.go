package postgres

import (
	"context"
	"fmt"
	"time"

	"fastdo_auth/internal/models"
	"fastdo_auth/internal/storage"
)

func (r *PostgresRepo) SaveRefreshToken(ctx context.Context, rt models.RefreshToken) (int64, error) {
	const op = "storage.postgres.SaveRefreshToken"

	const query = `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id;
	`

	var id int64

	if err := r.q.QueryRow(ctx, query, rt.UserID, rt.TokenHash, rt.ExpiresAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// * RefreshTokens возвращает все токены пользователя, включая истекшие.
// Внутри транзакции строки блокируются до ее завершения.
func (r *PostgresRepo) RefreshTokens(ctx context.Context, userID int64) ([]models.RefreshToken, error) {
	const op = "storage.postgres.RefreshTokens"

	query := `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM refresh_tokens
		WHERE user_id = $1
		ORDER BY id` + r.lockClause()

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var tokens []models.RefreshToken

	for rows.Next() {
		var rt models.RefreshToken

		if err := rows.Scan(&rt.ID, &rt.UserID, &rt.TokenHash, &rt.ExpiresAt, &rt.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		tokens = append(tokens, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tokens, nil
}

func (r *PostgresRepo) DeleteRefreshToken(ctx context.Context, id int64) error {
	const op = "storage.postgres.DeleteRefreshToken"

	query := `DELETE FROM refresh_tokens WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrRefreshTokenNotFound
	}

	return nil
}

func (r *PostgresRepo) DeleteUserRefreshTokens(ctx context.Context, userID int64) (int64, error) {
	const op = "storage.postgres.DeleteUserRefreshTokens"

	query := `DELETE FROM refresh_tokens WHERE user_id = $1`

	return r.execCount(ctx, op, query, userID)
}

func (r *PostgresRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.postgres.DeleteExpiredRefreshTokens"

	query := `DELETE FROM refresh_tokens WHERE expires_at < $1`

	return r.execCount(ctx, op, query, now)
}

// * TrimRefreshTokens оставляет у пользователя не более keep самых свежих токенов.
func (r *PostgresRepo) TrimRefreshTokens(ctx context.Context, userID int64, keep int) (int64, error) {
	const op = "storage.postgres.TrimRefreshTokens"

	if keep <= 0 {
		return 0, nil
	}

	query := `
		DELETE FROM refresh_tokens
		WHERE id IN (
			SELECT id FROM refresh_tokens
			WHERE user_id = $1
			ORDER BY expires_at DESC, id DESC
			OFFSET $2
		)`

	return r.execCount(ctx, op, query, userID, keep)
}

func (r *PostgresRepo) execCount(ctx context.Context, op, query string, args ...any) (int64, error) {
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}
