// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carterperez-dev/stockease/internal/core"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateEmail(ctx context.Context, id, email string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateNames(ctx context.Context, user *User) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name,
			is_active, is_staff, is_admin
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, user, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.IsActive,
		user.IsStaff,
		user.IsAdmin,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, email, password_hash, first_name, last_name,
		       is_active, is_staff, is_admin, created_at, updated_at
		FROM users
		WHERE id = $1 AND is_active = true`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	query := `
		SELECT id, email, password_hash, first_name, last_name,
		       is_active, is_staff, is_admin, created_at, updated_at
		FROM users
		WHERE email = $1 AND is_active = true`

	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &user, nil
}

func (r *repository) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM users WHERE email = $1 AND is_active = true)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}

	return exists, nil
}

func (r *repository) UpdateEmail(ctx context.Context, id, email string) error {
	query := `
		UPDATE users
		SET email = $2, updated_at = NOW()
		WHERE id = $1 AND is_active = true`

	result, err := r.db.ExecContext(ctx, query, id, email)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("update email: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("update email: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update email: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update email: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND is_active = true`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) UpdateNames(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET first_name = $2, last_name = $3, updated_at = NOW()
		WHERE id = $1 AND is_active = true
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &user.UpdatedAt, query,
		user.ID,
		user.FirstName,
		user.LastName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	var total int
	countQuery := `SELECT COUNT(*) FROM users WHERE is_active = true`
	if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := `
		SELECT id, email, password_hash, first_name, last_name,
		       is_active, is_staff, is_admin, created_at, updated_at
		FROM users
		WHERE is_active = true
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	var users []User
	err := r.db.SelectContext(
		ctx,
		&users,
		query,
		params.PageSize,
		params.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
