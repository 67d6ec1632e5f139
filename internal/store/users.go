package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/store-mcp/internal/database"
	"github.com/safar/store-mcp/internal/models"
)

const userColumns = `id, name, email, phone, age, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var age sql.NullInt64

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&age,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Version,
	)
	if err != nil {
		return nil, err
	}

	if age.Valid {
		v := int(age.Int64)
		user.Age = &v
	}

	return user, nil
}

func nullableAge(age *int) sql.NullInt64 {
	if age == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*age), Valid: true}
}

func (s *Postgres) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, phone, age, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW(), 1)
		RETURNING created_at, updated_at, version`

	err := s.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Email, user.Phone, nullableAge(user.Age),
	).Scan(&user.CreatedAt, &user.UpdatedAt, &user.Version)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return database.ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (s *Postgres) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func (s *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return user, nil
}

func (s *Postgres) ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error) {
	var conds conditions
	if filter.IDContains != "" {
		conds.add("STRPOS(LOWER(id), LOWER(?)) > 0", filter.IDContains)
	}
	if filter.EmailContains != "" {
		conds.add("STRPOS(LOWER(email), LOWER(?)) > 0", filter.EmailContains)
	}
	if filter.NameContains != "" {
		conds.add("STRPOS(LOWER(name), LOWER(?)) > 0", filter.NameContains)
	}
	if filter.MinAge != nil {
		conds.add("age >= ?", *filter.MinAge)
	}
	if filter.MaxAge != nil {
		conds.add("age <= ?", *filter.MaxAge)
	}

	query := `SELECT ` + userColumns + ` FROM users` + conds.where() + ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, conds.args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

func (s *Postgres) UpdateUser(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET name = $1, email = $2, phone = $3, age = $4,
		    updated_at = NOW(), version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING updated_at, version`

	err := s.db.QueryRowContext(ctx, query,
		user.Name, user.Email, user.Phone, nullableAge(user.Age), user.ID, user.Version,
	).Scan(&user.UpdatedAt, &user.Version)
	if err == nil {
		return nil
	}

	if database.IsUniqueViolation(err) {
		return database.ErrDuplicateEmail
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update user: %w", err)
	}

	exists, err := s.exists(ctx, "users", user.ID)
	if err != nil {
		return err
	}
	if !exists {
		return database.ErrUserNotFound
	}
	return database.ErrOptimisticLockFailed
}

func (s *Postgres) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrUserNotFound
	}

	return nil
}

// exists is only called with the fixed table names used in this package.
func (s *Postgres) exists(ctx context.Context, table, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check %s exists: %w", table, err)
	}
	return exists, nil
}
