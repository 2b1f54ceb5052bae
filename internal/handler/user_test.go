package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/deppfellow/servicekit/internal/config"
	"github.com/deppfellow/servicekit/internal/metrics"
	"github.com/deppfellow/servicekit/internal/middleware"
	"github.com/deppfellow/servicekit/internal/repository"
	"github.com/deppfellow/servicekit/internal/schema"
	"github.com/deppfellow/servicekit/internal/service"
	"github.com/deppfellow/servicekit/internal/validation"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = "7a1f3f4e-3c0b-4f5e-9a55-2b1c6f0d9e21"

var userCols = []string{"id", "email", "name", "created_at", "updated_at"}

func newUserEcho(t *testing.T) (*echo.Echo, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	cfg := config.Default()
	cfg.Primary.Env = config.EnvProduction
	log := zerolog.Nop()
	m := metrics.New("test")
	mw := middleware.NewMiddlewares(cfg, &log, m)

	e := echo.New()
	e.HTTPErrorHandler = mw.Global.GlobalErrorHandler

	h := NewUserHandler(service.NewUserService(repository.NewUserRepository(mock), nil))
	ext := &Extensions{Config: cfg, Logger: &log}
	for _, route := range h.Routes() {
		route.Schema = schema.Normalize(route.Schema)
		e.Add(route.Method, route.Path, Handle(route, ext, m), validation.Middleware(route.Schema))
	}
	return e, mock
}

func decodeBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestUserRoutes_Create(t *testing.T) {
	t.Parallel()

	e, mock := newUserEcho(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("ada@example.com", "Ada").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(userID, "ada@example.com", "Ada", now, now))

	rec := do(e, http.MethodPost, "/users", `{"email":"Ada@Example.com","name":"Ada"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec.Body.Bytes())
	assert.Equal(t, userID, body["id"])
	assert.Equal(t, "ada@example.com", body["email"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRoutes_CreateInvalidBody(t *testing.T) {
	t.Parallel()

	e, mock := newUserEcho(t)

	rec := do(e, http.MethodPost, "/users", `{"email":"not-an-email"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec.Body.Bytes())
	details := body["details"].(map[string]any)
	assert.Equal(t, "validation", details["type"])
	assert.Len(t, details["errors"], 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRoutes_CreateDuplicateEmail(t *testing.T) {
	t.Parallel()

	e, mock := newUserEcho(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("ada@example.com", "Ada").
		WillReturnError(&pgconn.PgError{Code: "23505", TableName: "users", ConstraintName: "users_email_key"})

	rec := do(e, http.MethodPost, "/users", `{"email":"ada@example.com","name":"Ada"}`)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"Resource already exists"}`, rec.Body.String())
}

func TestUserRoutes_List(t *testing.T) {
	t.Parallel()

	e, mock := newUserEcho(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs(service.DefaultPageSize, 0).
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(userID, "ada@example.com", "Ada", now, now))

	rec := do(e, http.MethodGet, "/users", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var users []repository.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "Ada", users[0].Name)
}

func TestUserRoutes_ListRejectsLargeLimit(t *testing.T) {
	t.Parallel()

	e, _ := newUserEcho(t)

	rec := do(e, http.MethodGet, "/users?limit=500", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec.Body.Bytes())
	assert.Equal(t, "limit: must be less than or equal to 100", body["reason"])
}

func TestUserRoutes_GetInvalidID(t *testing.T) {
	t.Parallel()

	e, _ := newUserEcho(t)

	rec := do(e, http.MethodGet, "/users/42", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec.Body.Bytes())
	details := body["details"].(map[string]any)
	failures := details["errors"].([]any)
	require.Len(t, failures, 1)
	assert.Equal(t, "/id", failures[0].(map[string]any)["instancePath"])
}

func TestUserRoutes_GetNotFound(t *testing.T) {
	t.Parallel()

	e, mock := newUserEcho(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(userCols))

	rec := do(e, http.MethodGet, "/users/"+userID, "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec.Body.Bytes())
	assert.Equal(t, "User not found", body["reason"])
}

func TestUserRoutes_RowBreakingContractIs422(t *testing.T) {
	t.Parallel()

	e, mock := newUserEcho(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(userID, "", "Ada", now, now))

	rec := do(e, http.MethodGet, "/users/"+userID, "")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody(t, rec.Body.Bytes())
	details := body["details"].(map[string]any)
	assert.Equal(t, "missing_field", details["type"])
	assert.Equal(t, "email", details["field"])
}

func TestUserRoutes_Update(t *testing.T) {
	t.Parallel()

	e, mock := newUserEcho(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("UPDATE users").
		WithArgs(userID, "Grace").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(userID, "ada@example.com", "Grace", now, now))

	rec := do(e, http.MethodPatch, "/users/"+userID, `{"name":"Grace"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Grace", decodeBody(t, rec.Body.Bytes())["name"])
}

func TestUserRoutes_Delete(t *testing.T) {
	t.Parallel()

	e, mock := newUserEcho(t)

	mock.ExpectExec("DELETE FROM users").
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	rec := do(e, http.MethodDelete, "/users/"+userID, "")

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}
