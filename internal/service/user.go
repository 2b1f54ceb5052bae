package service

import (
	"context"
	"strings"

	"github.com/deppfellow/servicekit/internal/cache"
	"github.com/deppfellow/servicekit/internal/repository"
	"github.com/rs/zerolog"
)

// DefaultPageSize applies when a list request gives no limit.
const DefaultPageSize = 20

type userStore interface {
	Create(ctx context.Context, email, name string) (*repository.User, error)
	GetByID(ctx context.Context, id string) (*repository.User, error)
	List(ctx context.Context, limit, offset int) ([]repository.User, error)
	UpdateName(ctx context.Context, id, name string) (*repository.User, error)
	Delete(ctx context.Context, id string) error
}

// UserService manages users. Single-user reads go through the cache when
// one is configured; writes invalidate the cached entry.
type UserService struct {
	users userStore
	cache jsonCache
}

func NewUserService(users userStore, c jsonCache) *UserService {
	if c == nil {
		c = (*cache.Cache)(nil)
	}
	return &UserService{users: users, cache: c}
}

// Create normalizes the email to lower case before inserting.
func (s *UserService) Create(ctx context.Context, email, name string) (*repository.User, error) {
	return s.users.Create(ctx, strings.ToLower(strings.TrimSpace(email)), strings.TrimSpace(name))
}

func (s *UserService) Get(ctx context.Context, id string) (*repository.User, error) {
	key := s.cache.Key("users", id)

	var cached repository.User
	found, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache read failed")
	}
	if found {
		return &cached, nil
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, key, user); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return user, nil
}

// List pages through users; a zero limit means DefaultPageSize.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]repository.User, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []repository.User{}
	}
	return users, nil
}

func (s *UserService) Rename(ctx context.Context, id, name string) (*repository.User, error) {
	user, err := s.users.UpdateName(ctx, id, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *UserService) invalidate(ctx context.Context, id string) {
	key := s.cache.Key("users", id)
	if err := s.cache.Delete(ctx, key); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache invalidation failed")
	}
}
