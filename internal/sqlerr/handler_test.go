package sqlerr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/deppfellow/servicekit/internal/errs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "foreign key",
			err:     &pgconn.PgError{Code: "23503", TableName: "posts", ColumnName: "user_id"},
			status:  http.StatusBadRequest,
			message: "The referenced User does not exist",
		},
		{
			name:    "not null",
			err:     &pgconn.PgError{Code: "23502", TableName: "users", ColumnName: "first_name"},
			status:  http.StatusBadRequest,
			message: "The First Name is required",
		},
		{
			name:    "check",
			err:     &pgconn.PgError{Code: "23514", TableName: "users"},
			status:  http.StatusBadRequest,
			message: "One or more values do not meet required conditions",
		},
		{
			name:    "invalid text",
			err:     &pgconn.PgError{Code: "22P02"},
			status:  http.StatusBadRequest,
			message: "One or more values have an invalid format",
		},
		{
			name:    "no rows with table",
			err:     fmt.Errorf("table:blog_posts: get: %w", pgx.ErrNoRows),
			status:  http.StatusNotFound,
			message: "Blog Post not found",
		},
		{
			name:    "no rows",
			err:     sql.ErrNoRows,
			status:  http.StatusNotFound,
			message: "Resource not found",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var httpErr *errs.HTTPError
			require.True(t, errors.As(HandleError(tt.err), &httpErr))
			assert.Equal(t, tt.status, httpErr.Status)
			assert.Equal(t, tt.message, httpErr.Message)
		})
	}
}

func TestHandleError_NotNullDetails(t *testing.T) {
	t.Parallel()

	err := HandleError(&pgconn.PgError{Code: "23502", ColumnName: "Email"})

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, []errs.FieldFailure{{InstancePath: "/email", Message: "is required", Keyword: "required"}}, httpErr.Details)
}

func TestHandleError_UniqueViolationPassesThrough(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{Code: "23505", TableName: "users", ConstraintName: "users_email_key"}
	err := HandleError(fmt.Errorf("insert: %w", pgErr))

	var sqlErr *Error
	require.True(t, errors.As(err, &sqlErr))
	assert.Equal(t, UniqueViolation, sqlErr.Code)
	assert.ErrorIs(t, err, pgErr)
	assert.True(t, IsUniqueViolation(err))

	classified := errs.Classify(err, errs.Options{})
	assert.Equal(t, http.StatusConflict, classified.StatusCode)
	assert.Equal(t, "Resource already exists", classified.Body.Error)
}

func TestHandleError_Passthrough(t *testing.T) {
	t.Parallel()

	assert.NoError(t, HandleError(nil))

	httpErr := errs.NewForbiddenError("no")
	assert.Same(t, httpErr, HandleError(httpErr))

	other := errors.New("connection refused")
	assert.Same(t, other, HandleError(other))

	serverErr := &pgconn.PgError{Code: "57P01"}
	var sqlErr *Error
	require.True(t, errors.As(HandleError(serverErr), &sqlErr))
	assert.Equal(t, Other, sqlErr.Code)
}

func TestExtractColumnForUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "email", ExtractColumnForUniqueViolation("users_email_key"))
	assert.Equal(t, "slug", ExtractColumnForUniqueViolation("unique_posts_slug"))
	assert.Equal(t, "", ExtractColumnForUniqueViolation("pk"))
	assert.Equal(t, "", ExtractColumnForUniqueViolation(""))
}

func TestConflictColumn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"converted", HandleError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}), "email"},
		{"raw driver error", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "unique_posts_slug"}), "slug"},
		{"unknown constraint", &pgconn.PgError{Code: "23505", ConstraintName: "pk"}, ""},
		{"other code", &pgconn.PgError{Code: "23503", ConstraintName: "users_email_key"}, ""},
		{"not a database error", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, ConflictColumn(tt.err))
		})
	}
}
