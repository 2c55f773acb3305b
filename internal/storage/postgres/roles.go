package postgres

import (
	"context"
	"errors"
	"fmt"

	"fastdo_auth/internal/models"
	"fastdo_auth/internal/storage"

	"github.com/jackc/pgx/v5"
)

func (r *PostgresRepo) RoleByCode(ctx context.Context, code string) (models.Role, error) {
	const op = "storage.postgres.RoleByCode"

	query := `SELECT id, code, name FROM roles WHERE code = $1;`

	var role models.Role

	err := r.q.QueryRow(ctx, query, code).Scan(&role.ID, &role.Code, &role.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Role{}, storage.ErrRoleNotFound
		}

		return models.Role{}, fmt.Errorf("%s: %w", op, err)
	}

	return role, nil
}

func (r *PostgresRepo) UserRoles(ctx context.Context, userID int64) ([]string, error) {
	const op = "storage.postgres.UserRoles"

	query := `
		SELECT r.code
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.code;
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	roles := make([]string, 0, 1)

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		roles = append(roles, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return roles, nil
}

func (r *PostgresRepo) AssignRole(ctx context.Context, userID, roleID int64) error {
	const op = "storage.postgres.AssignRole"

	query := `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING;
	`

	if _, err := r.q.Exec(ctx, query, userID, roleID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
