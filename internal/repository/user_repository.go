package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"farmapos/internal/domain"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Permissions(ctx context.Context, roleID int64) ([]string, error)
}

type userRepository struct {
	db DBTX
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user and fills in the generated id
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (role_id, first_name, last_name, email, password_hash, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, now(), now())
		RETURNING id, created_at, updated_at
	`

	user.Active = true

	err := r.db.QueryRowContext(
		ctx,
		query,
		user.RoleID,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return Translate("create user", err)
	}

	return nil
}

const userSelect = `
	SELECT u.id, u.role_id, r.name, u.first_name, u.last_name, u.email, u.password_hash, u.active, u.created_at, u.updated_at
	FROM users u
	JOIN roles r ON r.id = u.role_id
`

func scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.RoleID,
		&user.RoleName,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID retrieves a user with their role name
func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE u.id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, Translate("find user by ID", err)
	}
	return user, nil
}

// FindByEmail retrieves a user with their role name
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE u.email = $1`, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, Translate("find user by email", err)
	}
	return user, nil
}

// Permissions loads the permission names granted to a role. Called once at
// login; the resolved set travels with the session token afterwards.
func (r *userRepository) Permissions(ctx context.Context, roleID int64) ([]string, error) {
	query := `SELECT permission FROM role_permissions WHERE role_id = $1 ORDER BY permission`

	rows, err := r.db.QueryContext(ctx, query, roleID)
	if err != nil {
		return nil, Translate("load role permissions", err)
	}
	defer rows.Close()

	permissions := []string{}
	for rows.Next() {
		var permission string
		if err := rows.Scan(&permission); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, permission)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permissions: %w", err)
	}

	return permissions, nil
}
