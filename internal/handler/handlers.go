package handler

import "github.com/deppfellow/servicekit/internal/service"

// Handlers groups the application handlers.
type Handlers struct {
	Health *HealthHandler
	User   *UserHandler
}

func NewHandlers(ext *Extensions, services *service.Services) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(ext),
		User:   NewUserHandler(services.User),
	}
}
