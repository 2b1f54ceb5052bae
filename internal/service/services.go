package service

import (
	"context"

	"github.com/deppfellow/servicekit/internal/repository"
)

// jsonCache is the part of *cache.Cache the services use. A nil *cache.Cache
// satisfies it and never hits.
type jsonCache interface {
	Key(parts ...string) string
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, keys ...string) error
}

type Services struct {
	User *UserService
}

func NewServices(repos *repository.Repositories, c jsonCache) *Services {
	return &Services{
		User: NewUserService(repos.User, c),
	}
}
