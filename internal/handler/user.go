package handler

import (
	"context"
	"net/http"

	"github.com/deppfellow/servicekit/internal/errs"
	"github.com/deppfellow/servicekit/internal/repository"
	"github.com/deppfellow/servicekit/internal/schema"
	"github.com/deppfellow/servicekit/internal/service"
)

type CreateUserBody struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Name  string `json:"name" validate:"required,min=1,max=100"`
}

type UpdateUserBody struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type UserParams struct {
	ID string `param:"id" validate:"required,uuid"`
}

type ListUsersQuery struct {
	Limit  int `query:"limit" validate:"gte=0,lte=100"`
	Offset int `query:"offset" validate:"gte=0"`
}

// UserHandler exposes the users resource.
type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Routes returns the users routes.
func (h *UserHandler) Routes() []Route {
	tags := []string{"users"}

	return []Route{
		{
			Method: http.MethodPost,
			Path:   "/users",
			Schema: &schema.Schema{
				Body:     CreateUserBody{},
				Response: map[int]any{http.StatusCreated: repository.User{}},
			},
			Config:  RouteConfig{Summary: "Create a user", OperationID: "createUser", Tags: tags},
			Handler: h.create,
		},
		{
			Method: http.MethodGet,
			Path:   "/users",
			Schema: &schema.Schema{
				Query:    ListUsersQuery{},
				Response: map[int]any{http.StatusOK: []repository.User{}},
			},
			Config:  RouteConfig{Summary: "List users", OperationID: "listUsers", Tags: tags},
			Handler: h.list,
		},
		{
			Method: http.MethodGet,
			Path:   "/users/:id",
			Schema: &schema.Schema{
				Params:   UserParams{},
				Response: map[int]any{http.StatusOK: repository.User{}},
			},
			Config:  RouteConfig{Summary: "Get a user", OperationID: "getUser", Tags: tags},
			Handler: h.get,
		},
		{
			Method: http.MethodPatch,
			Path:   "/users/:id",
			Schema: &schema.Schema{
				Params:   UserParams{},
				Body:     UpdateUserBody{},
				Response: map[int]any{http.StatusOK: repository.User{}},
			},
			Config:  RouteConfig{Summary: "Rename a user", OperationID: "updateUser", Tags: tags},
			Handler: h.update,
		},
		{
			Method:  http.MethodDelete,
			Path:    "/users/:id",
			Schema:  &schema.Schema{Params: UserParams{}},
			Config:  RouteConfig{Summary: "Delete a user", OperationID: "deleteUser", Tags: tags},
			Handler: h.delete,
		},
	}
}

func (h *UserHandler) create(ctx context.Context, req *Request, _ *Extensions) (any, error) {
	body := Body[CreateUserBody](req)
	if body == nil {
		return nil, errs.NewBadRequestError("request body is required")
	}
	return h.users.Create(ctx, body.Email, body.Name)
}

func (h *UserHandler) list(ctx context.Context, req *Request, _ *Extensions) (any, error) {
	var q ListUsersQuery
	if bound := Query[ListUsersQuery](req); bound != nil {
		q = *bound
	}
	return h.users.List(ctx, q.Limit, q.Offset)
}

func (h *UserHandler) get(ctx context.Context, req *Request, _ *Extensions) (any, error) {
	return h.users.Get(ctx, Params[UserParams](req).ID)
}

func (h *UserHandler) update(ctx context.Context, req *Request, _ *Extensions) (any, error) {
	body := Body[UpdateUserBody](req)
	if body == nil {
		return nil, errs.NewBadRequestError("request body is required")
	}
	return h.users.Rename(ctx, Params[UserParams](req).ID, body.Name)
}

func (h *UserHandler) delete(ctx context.Context, req *Request, _ *Extensions) (any, error) {
	return nil, h.users.Delete(ctx, Params[UserParams](req).ID)
}
