// Package server defines the Server that composes the app's dependencies
// and drives its lifecycle.
//
// A Server moves through a fixed sequence of states:
//
//	Configured -> DocsRegistered (optional) -> RoutesRegistered
//	  -> ErrorHandlerInstalled -> Listening -> Closed
//
// Calling a step out of order returns ErrInvalidState. Routes are registered
// in one batch, so the route table is frozen before the server listens.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/deppfellow/servicekit/internal/cache"
	"github.com/deppfellow/servicekit/internal/config"
	"github.com/deppfellow/servicekit/internal/database"
	"github.com/deppfellow/servicekit/internal/docs"
	"github.com/deppfellow/servicekit/internal/handler"
	"github.com/deppfellow/servicekit/internal/metrics"
	"github.com/deppfellow/servicekit/internal/middleware"
	"github.com/deppfellow/servicekit/internal/schema"
	"github.com/deppfellow/servicekit/internal/validation"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrInvalidState is returned when a lifecycle step is called out of order.
var ErrInvalidState = errors.New("invalid server state")

// State is a step of the server lifecycle.
type State int

const (
	StateConfigured State = iota
	StateDocsRegistered
	StateRoutesRegistered
	StateErrorHandlerInstalled
	StateListening
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateDocsRegistered:
		return "docs_registered"
	case StateRoutesRegistered:
		return "routes_registered"
	case StateErrorHandlerInstalled:
		return "error_handler_installed"
	case StateListening:
		return "listening"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Server is the application container. It is not the HTTP server itself;
// it owns the config, logger, extensions and the echo instance, and builds
// the *http.Server when it starts listening.
type Server struct {
	Config  *config.Config
	Logger  *zerolog.Logger
	DB      *database.Database
	Cache   *cache.Cache
	Metrics *metrics.Metrics
	Echo    *echo.Echo

	middlewares *middleware.Middlewares
	ext         *handler.Extensions
	docsInfo    *docs.Info

	mu         sync.Mutex
	state      State
	httpServer *http.Server
}

// New opens the database (a failed ping is an error) and the optional
// cache, then builds the server around them.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Server, error) {
	db, err := database.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	c := cache.New(ctx, cfg.Redis, logger)

	return NewWithExtensions(cfg, logger, db, c), nil
}

// NewWithExtensions builds a server around already constructed extensions.
// db and c may be nil.
func NewWithExtensions(cfg *config.Config, logger *zerolog.Logger, db *database.Database, c *cache.Cache) *Server {
	m := metrics.New(config.ServiceName)
	mws := middleware.NewMiddlewares(cfg, logger, m)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(
		middleware.RequestID(),
		mws.ContextEnhancer.EnhanceContext(),
		mws.Global.RequestLogger(),
		mws.Global.Recover(),
		mws.Global.Secure(),
		mws.Global.CORS(),
		mws.Metrics.Observe(),
		mws.RateLimit.Limit(),
	)

	return &Server{
		Config:      cfg,
		Logger:      logger,
		DB:          db,
		Cache:       c,
		Metrics:     m,
		Echo:        e,
		middlewares: mws,
		ext: &handler.Extensions{
			Config: cfg,
			Logger: logger,
			DB:     db,
			Cache:  c,
		},
		state: StateConfigured,
	}
}

// Extensions returns the bundle handed to every handler call.
func (s *Server) Extensions() *handler.Extensions {
	return s.ext
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Server) transition(to State, from ...State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(from, s.state) {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidState, s.state, to)
	}
	s.state = to
	return nil
}

// RegisterDocs turns on document generation. The document itself is built
// by RegisterRoutes, once the route table is known.
func (s *Server) RegisterDocs(info docs.Info) error {
	if err := s.transition(StateDocsRegistered, StateConfigured); err != nil {
		return err
	}
	s.docsInfo = &info
	return nil
}

// RegisterRoutes adds every route exactly once, each behind upstream
// validation of its normalized schema. A (method, path) pair may appear
// only once.
func (s *Server) RegisterRoutes(routes ...handler.Route) error {
	seen := make(map[string]bool, len(routes))
	for _, route := range routes {
		key := strings.ToUpper(route.Method) + " " + route.Path
		if seen[key] {
			return fmt.Errorf("route %s registered twice", key)
		}
		seen[key] = true
	}

	if err := s.transition(StateRoutesRegistered, StateConfigured, StateDocsRegistered); err != nil {
		return err
	}

	registered := make([]handler.Route, 0, len(routes))
	for _, route := range routes {
		route.Schema = schema.Normalize(route.Schema)

		mws := make([]echo.MiddlewareFunc, 0, len(route.Config.Middleware)+1)
		mws = append(mws, validation.Middleware(route.Schema))
		mws = append(mws, route.Config.Middleware...)

		s.Echo.Add(route.Method, route.Path, handler.Handle(route, s.ext, s.Metrics), mws...)
		registered = append(registered, route)

		s.Logger.Debug().
			Str("method", route.Method).
			Str("path", route.Path).
			Msg("route registered")
	}

	if s.docsInfo != nil {
		s.mountDocs(registered)
	}

	return nil
}

// mountDocs serves the generated document and its page under the docs
// path. A document that cannot be built is logged and left unmounted.
func (s *Server) mountDocs(routes []handler.Route) {
	path := s.Config.Docs.Path
	if path == "" {
		path = "/docs"
	}
	documentPath := strings.TrimSuffix(path, "/") + "/openapi.json"

	doc, err := docs.Build(*s.docsInfo, routes)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("failed to build API docs, docs endpoint disabled")
		return
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("failed to encode API docs, docs endpoint disabled")
		return
	}

	page, err := docs.Page(s.docsInfo.Title, documentPath)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("failed to render docs page, docs endpoint disabled")
		return
	}

	h := handler.NewOpenAPIHandler(raw, page)
	s.Echo.GET(path, h.ServeUI)
	s.Echo.GET(documentPath, h.ServeDocument)

	s.Logger.Info().Str("path", path).Int("paths", len(doc.Paths)).Msg("API docs mounted")
}

// InstallErrorHandler makes the error classifier echo's catch-all, so
// routing, binding and validation failures are answered like handler errors.
func (s *Server) InstallErrorHandler() error {
	if err := s.transition(StateErrorHandlerInstalled, StateRoutesRegistered); err != nil {
		return err
	}
	s.Echo.HTTPErrorHandler = s.middlewares.Global.GlobalErrorHandler
	return nil
}

// Listen binds the configured port and serves until Shutdown. A bind
// failure is returned; the caller should treat it as fatal.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", ":"+s.Config.Server.Port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", s.Config.Server.Port, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Addr:         ln.Addr().String(),
		Handler:      s.Echo,
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}

	// The state and the http.Server change together so a concurrent
	// Shutdown always sees the server it has to drain.
	s.mu.Lock()
	if s.state != StateErrorHandlerInstalled {
		state := s.state
		s.mu.Unlock()
		_ = ln.Close()
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidState, state, StateListening)
	}
	s.state = StateListening
	s.httpServer = srv
	s.mu.Unlock()

	s.Logger.Info().
		Str("addr", srv.Addr).
		Str("env", s.Config.Primary.Env).
		Msg("starting server")

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the database pool and the
// cache client. It may be called from any state except Closed.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.transition(StateClosed,
		StateConfigured, StateDocsRegistered, StateRoutesRegistered,
		StateErrorHandlerInstalled, StateListening,
	); err != nil {
		return err
	}

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	var shutdownErr error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("failed to shutdown HTTP server: %w", err))
		}
	}

	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("failed to close database connection: %w", err))
		}
	}

	if err := s.Cache.Close(); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("failed to close cache connection: %w", err))
	}

	s.Logger.Info().Msg("server stopped")
	return shutdownErr
}
