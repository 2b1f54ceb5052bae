package repository

import (
	"context"
	"time"

	"github.com/deppfellow/servicekit/internal/errs"
	"github.com/deppfellow/servicekit/internal/sqlerr"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// User is a row of the users table. The validate tags double as the
// response contract of the user routes.
type User struct {
	ID        string    `json:"id" db:"id" validate:"required,uuid"`
	Email     string    `json:"email" db:"email" validate:"required,email"`
	Name      string    `json:"name" db:"name" validate:"required"`
	CreatedAt time.Time `json:"created_at" db:"created_at" validate:"required"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" validate:"required"`
}

const userColumns = `id, email, name, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. A duplicate email comes back as a unique
// violation, which the error classifier answers with 409.
func (r *UserRepository) Create(ctx context.Context, email, name string) (*User, error) {
	stmt := `
		INSERT INTO users (email, name)
		VALUES ($1, $2)
		RETURNING ` + userColumns

	rows, err := r.db.Query(ctx, stmt, email, name)
	if err != nil {
		return nil, handleError(err, "create user")
	}

	user, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[User])
	if err != nil {
		return nil, handleError(err, "create user")
	}
	return user, nil
}

// GetByID returns a 404 HTTPError when no user has id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	stmt := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	rows, err := r.db.Query(ctx, stmt, id)
	if err != nil {
		return nil, handleError(err, "get user")
	}

	user, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[User])
	if err != nil {
		return nil, handleError(err, "get user")
	}
	return user, nil
}

// List returns users newest first.
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]User, error) {
	stmt := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, stmt, limit, offset)
	if err != nil {
		return nil, handleError(err, "list users")
	}

	users, err := pgx.CollectRows(rows, pgx.RowToStructByName[User])
	if err != nil {
		return nil, handleError(err, "list users")
	}
	return users, nil
}

// UpdateName sets the user's name and bumps updated_at.
func (r *UserRepository) UpdateName(ctx context.Context, id, name string) (*User, error) {
	stmt := `
		UPDATE users
		SET name = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	rows, err := r.db.Query(ctx, stmt, id, name)
	if err != nil {
		return nil, handleError(err, "update user")
	}

	user, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[User])
	if err != nil {
		return nil, handleError(err, "update user")
	}
	return user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return handleError(err, "delete user")
	}
	if tag.RowsAffected() == 0 {
		return errs.NewNotFoundError("User not found")
	}
	return nil
}

// handleError tags err with the table so a missing row maps to
// "User not found", then lets sqlerr translate it.
func handleError(err error, op string) error {
	return sqlerr.HandleError(errors.Wrapf(err, "table:users: %s", op))
}
